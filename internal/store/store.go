// Package store abstracts document persistence behind a small interface so
// the resource layer stays independent of the backing database. A MongoDB
// implementation and a map-backed implementation for tests and local
// development are provided.
package store

import (
	"context"
	"errors"

	"github.com/docrest/go-docrest/internal/metadata"
	"github.com/docrest/go-docrest/internal/query"
)

// Sentinel errors returned by store implementations.
var (
	// ErrNotFound indicates no document matched the given identifier.
	ErrNotFound = errors.New("store: document not found")

	// ErrDuplicateKey indicates an insert collided with an existing identifier.
	ErrDuplicateKey = errors.New("store: duplicate key")
)

// Store persists and retrieves documents described by DocumentMetadata.
// Implementations must wrap missing-document and identifier-collision
// conditions in ErrNotFound and ErrDuplicateKey respectively.
type Store interface {
	// Insert stores a new document.
	Insert(ctx context.Context, meta *metadata.DocumentMetadata, doc interface{}) error

	// Get loads the document with the given identifier into doc (a *T).
	Get(ctx context.Context, meta *metadata.DocumentMetadata, id interface{}, doc interface{}) error

	// Replace overwrites the document with the given identifier.
	Replace(ctx context.Context, meta *metadata.DocumentMetadata, id interface{}, doc interface{}) error

	// Delete removes the document with the given identifier.
	Delete(ctx context.Context, meta *metadata.DocumentMetadata, id interface{}) error

	// Find loads documents matching the options into out (a *[]T).
	Find(ctx context.Context, meta *metadata.DocumentMetadata, opts query.Options, out interface{}) error

	// Count returns the number of documents matching the options' filters.
	Count(ctx context.Context, meta *metadata.DocumentMetadata, opts query.Options) (int64, error)
}
