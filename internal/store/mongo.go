package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/docrest/go-docrest/internal/metadata"
	"github.com/docrest/go-docrest/internal/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists documents in MongoDB collections, one collection per
// registered document type.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore wraps an established database handle. Connection lifecycle
// stays with the caller.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) collection(meta *metadata.DocumentMetadata) *mongo.Collection {
	return s.db.Collection(meta.CollectionName)
}

func (s *MongoStore) idFilter(meta *metadata.DocumentMetadata, id interface{}) bson.M {
	return bson.M{meta.IDProperty.StoredName: id}
}

// Insert stores a new document.
func (s *MongoStore) Insert(ctx context.Context, meta *metadata.DocumentMetadata, doc interface{}) error {
	if _, err := s.collection(meta).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
		}
		return fmt.Errorf("insert %s: %w", meta.CollectionName, err)
	}
	return nil
}

// Get loads the document with the given identifier.
func (s *MongoStore) Get(ctx context.Context, meta *metadata.DocumentMetadata, id interface{}, doc interface{}) error {
	err := s.collection(meta).FindOne(ctx, s.idFilter(meta, id)).Decode(doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return fmt.Errorf("get %s: %w", meta.CollectionName, err)
	}
	return nil
}

// Replace overwrites the document with the given identifier.
func (s *MongoStore) Replace(ctx context.Context, meta *metadata.DocumentMetadata, id interface{}, doc interface{}) error {
	result, err := s.collection(meta).ReplaceOne(ctx, s.idFilter(meta, id), doc)
	if err != nil {
		return fmt.Errorf("replace %s: %w", meta.CollectionName, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the document with the given identifier.
func (s *MongoStore) Delete(ctx context.Context, meta *metadata.DocumentMetadata, id interface{}) error {
	result, err := s.collection(meta).DeleteOne(ctx, s.idFilter(meta, id))
	if err != nil {
		return fmt.Errorf("delete %s: %w", meta.CollectionName, err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Find loads documents matching the options into out.
func (s *MongoStore) Find(ctx context.Context, meta *metadata.DocumentMetadata, opts query.Options, out interface{}) error {
	findOpts := options.Find()
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(opts.Offset)
	}
	if opts.OrderBy != "" {
		direction := 1
		if opts.Descending {
			direction = -1
		}
		findOpts.SetSort(bson.D{{Key: opts.OrderBy, Value: direction}})
	}

	cursor, err := s.collection(meta).Find(ctx, filterDocument(opts), findOpts)
	if err != nil {
		return fmt.Errorf("find %s: %w", meta.CollectionName, err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("find %s: decode: %w", meta.CollectionName, err)
	}
	return nil
}

// Count returns the number of documents matching the options' filters.
func (s *MongoStore) Count(ctx context.Context, meta *metadata.DocumentMetadata, opts query.Options) (int64, error) {
	count, err := s.collection(meta).CountDocuments(ctx, filterDocument(opts))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", meta.CollectionName, err)
	}
	return count, nil
}

func filterDocument(opts query.Options) bson.M {
	filter := bson.M{}
	for name, value := range opts.Filters {
		filter[name] = value
	}
	return filter
}
