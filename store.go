package docrest

import (
	"github.com/docrest/go-docrest/internal/store"
	"go.mongodb.org/mongo-driver/mongo"
)

// MemoryStore is an in-process store for tests and development servers.
// Documents round-trip through BSON so stored values behave as they would in
// a real collection.
type MemoryStore = store.MemoryStore

// MongoStore persists documents in MongoDB collections, one per registered
// document type.
type MongoStore = store.MongoStore

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return store.NewMemoryStore()
}

// NewMongoStore wraps an established database handle. Connection lifecycle
// stays with the caller.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return store.NewMongoStore(db)
}
