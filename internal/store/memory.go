package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/docrest/go-docrest/internal/metadata"
	"github.com/docrest/go-docrest/internal/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is a map-backed Store used by tests and the development server.
// Documents round-trip through bson marshaling so storage semantics (tag
// handling, zero values, embedded documents) match the MongoDB store.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	docs  map[string][]byte
	order []string // insertion order for natural listing
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

// Reset drops all collections. Tests use it between cases.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = make(map[string]*memoryCollection)
}

func (s *MemoryStore) collection(name string) *memoryCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memoryCollection{docs: make(map[string][]byte)}
		s.collections[name] = c
	}
	return c
}

// Insert stores a new document, generating an ObjectID identifier when the
// document carries a zero one.
func (s *MemoryStore) Insert(_ context.Context, meta *metadata.DocumentMetadata, doc interface{}) error {
	id, err := EnsureID(meta, doc)
	if err != nil {
		return err
	}

	data, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("insert %s: %w", meta.CollectionName, err)
	}

	key := idKey(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(meta.CollectionName)
	if _, exists := c.docs[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}
	c.docs[key] = data
	c.order = append(c.order, key)
	return nil
}

// Get loads the document with the given identifier.
func (s *MemoryStore) Get(_ context.Context, meta *metadata.DocumentMetadata, id interface{}, doc interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[meta.CollectionName]
	if !ok {
		return ErrNotFound
	}
	data, ok := c.docs[idKey(id)]
	if !ok {
		return ErrNotFound
	}
	if err := bson.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("get %s: %w", meta.CollectionName, err)
	}
	return nil
}

// Replace overwrites the document with the given identifier.
func (s *MemoryStore) Replace(_ context.Context, meta *metadata.DocumentMetadata, id interface{}, doc interface{}) error {
	data, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("replace %s: %w", meta.CollectionName, err)
	}

	key := idKey(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[meta.CollectionName]
	if !ok {
		return ErrNotFound
	}
	if _, exists := c.docs[key]; !exists {
		return ErrNotFound
	}
	c.docs[key] = data
	return nil
}

// Delete removes the document with the given identifier.
func (s *MemoryStore) Delete(_ context.Context, meta *metadata.DocumentMetadata, id interface{}) error {
	key := idKey(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[meta.CollectionName]
	if !ok {
		return ErrNotFound
	}
	if _, exists := c.docs[key]; !exists {
		return ErrNotFound
	}
	delete(c.docs, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Find loads documents matching the options into out, applying filters,
// ordering, and pagination in-process.
func (s *MemoryStore) Find(_ context.Context, meta *metadata.DocumentMetadata, opts query.Options, out interface{}) error {
	outValue := reflect.ValueOf(out)
	if outValue.Kind() != reflect.Ptr || outValue.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("find %s: out must be a pointer to a slice", meta.CollectionName)
	}

	matched, err := s.matchingDocuments(meta, opts)
	if err != nil {
		return err
	}

	if opts.OrderBy != "" {
		sortDocuments(matched, meta, opts)
	}

	matched = paginate(matched, opts)

	slice := reflect.MakeSlice(outValue.Elem().Type(), 0, len(matched))
	for _, doc := range matched {
		slice = reflect.Append(slice, doc.Elem())
	}
	outValue.Elem().Set(slice)
	return nil
}

// Count returns the number of documents matching the options' filters.
func (s *MemoryStore) Count(_ context.Context, meta *metadata.DocumentMetadata, opts query.Options) (int64, error) {
	matched, err := s.matchingDocuments(meta, opts)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// matchingDocuments unmarshals every stored document in insertion order and
// keeps those matching the equality filters.
func (s *MemoryStore) matchingDocuments(meta *metadata.DocumentMetadata, opts query.Options) ([]reflect.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[meta.CollectionName]
	if !ok {
		return nil, nil
	}

	matched := make([]reflect.Value, 0, len(c.order))
	for _, key := range c.order {
		doc := reflect.New(meta.DocumentType)
		if err := bson.Unmarshal(c.docs[key], doc.Interface()); err != nil {
			return nil, fmt.Errorf("find %s: %w", meta.CollectionName, err)
		}
		match, err := matchesFilters(doc.Elem(), meta, opts.Filters)
		if err != nil {
			return nil, err
		}
		if match {
			matched = append(matched, doc)
		}
	}
	return matched, nil
}

func matchesFilters(doc reflect.Value, meta *metadata.DocumentMetadata, filters map[string]interface{}) (bool, error) {
	for storedName, want := range filters {
		prop := meta.PropertyByStoredName(storedName)
		if prop == nil {
			return false, fmt.Errorf("unknown filter attribute '%s'", storedName)
		}
		have := doc.FieldByName(prop.Name)
		if !have.IsValid() {
			return false, nil
		}
		if normalizeValue(have) != normalizeValue(reflect.ValueOf(want)) {
			return false, nil
		}
	}
	return true, nil
}

func sortDocuments(docs []reflect.Value, meta *metadata.DocumentMetadata, opts query.Options) {
	prop := meta.PropertyByStoredName(opts.OrderBy)
	if prop == nil {
		return
	}

	sort.SliceStable(docs, func(i, j int) bool {
		less := lessValue(
			docs[i].Elem().FieldByName(prop.Name),
			docs[j].Elem().FieldByName(prop.Name),
		)
		if opts.Descending {
			return !less
		}
		return less
	})
}

func paginate(docs []reflect.Value, opts query.Options) []reflect.Value {
	if opts.Offset > 0 {
		if opts.Offset >= int64(len(docs)) {
			return nil
		}
		docs = docs[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < int64(len(docs)) {
		docs = docs[:opts.Limit]
	}
	return docs
}

// normalizeValue folds a field value into a comparable scalar so filter
// values parsed from query strings compare equal to persisted values.
func normalizeValue(v reflect.Value) interface{} {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch value := v.Interface().(type) {
	case primitive.ObjectID:
		return value.Hex()
	case time.Time:
		return value.UTC().Format(time.RFC3339Nano)
	}

	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return v.Bool()
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

func lessValue(a, b reflect.Value) bool {
	av, bv := normalizeValue(a), normalizeValue(b)
	switch avt := av.(type) {
	case int64:
		if bvt, ok := bv.(int64); ok {
			return avt < bvt
		}
	case float64:
		if bvt, ok := bv.(float64); ok {
			return avt < bvt
		}
	case string:
		if bvt, ok := bv.(string); ok {
			return avt < bvt
		}
	case bool:
		if bvt, ok := bv.(bool); ok {
			return !avt && bvt
		}
	}
	return false
}

// EnsureID reads the identifier from a document, generating and assigning a
// fresh ObjectID when the field holds a zero one.
func EnsureID(meta *metadata.DocumentMetadata, doc interface{}) (interface{}, error) {
	value := reflect.ValueOf(doc)
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}
	field := value.FieldByName(meta.IDProperty.Name)
	if !field.IsValid() {
		return nil, fmt.Errorf("document %s has no identifier field %s", meta.DocumentName, meta.IDProperty.Name)
	}

	if id, ok := field.Interface().(primitive.ObjectID); ok && id.IsZero() {
		if !field.CanSet() {
			return nil, fmt.Errorf("cannot assign identifier on %s", meta.DocumentName)
		}
		generated := primitive.NewObjectID()
		field.Set(reflect.ValueOf(generated))
		return generated, nil
	}

	return field.Interface(), nil
}

func idKey(id interface{}) string {
	if oid, ok := id.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprintf("%v", id)
}
