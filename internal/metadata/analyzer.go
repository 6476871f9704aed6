package metadata

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DocumentMetadata holds metadata information about a persisted document type.
type DocumentMetadata struct {
	DocumentType   reflect.Type
	DocumentName   string
	CollectionName string
	Properties     []PropertyMetadata
	IDProperty     *PropertyMetadata
	ETagProperty   *PropertyMetadata // Property used for revision/ETag generation (optional)
	IsEmbedded     bool              // True for sub-document types analyzed for nesting
	Hooks          HookSet
}

// PropertyMetadata holds metadata information about a single document property.
type PropertyMetadata struct {
	Name       string // Go struct field name
	Type       reflect.Type
	StoredName string // attribute name in the persisted document (bson tag)
	JSONName   string // attribute name on the wire (json tag)
	IsID       bool
	IsReadOnly bool
	IsRequired bool
	IsETag     bool
	Choices    []string // allowed values for enumerated string properties
	Default    string   // default literal applied on create ("now" for timestamps)
	HasDefault bool
	MaxLength  int
	OmitEmpty  bool
	// Embedded sub-documents
	IsEmbedded     bool // single sub-document stored inline
	IsEmbeddedList bool // list of sub-documents stored inline
	Embedded       *DocumentMetadata
}

// HookSet records which lifecycle hooks the document type implements.
type HookSet struct {
	HasBeforeCreate bool
	HasAfterCreate  bool
	HasBeforeUpdate bool
	HasAfterUpdate  bool
	HasBeforeDelete bool
	HasAfterDelete  bool
}

// CollectionNamer lets a model override the derived collection name.
type CollectionNamer interface {
	CollectionName() string
}

var (
	objectIDType = reflect.TypeOf(primitive.ObjectID{})
	timeType     = reflect.TypeOf(time.Time{})
	decimalType  = reflect.TypeOf(primitive.Decimal128{})
)

// AnalyzeDocument extracts metadata from a Go struct representing a top-level
// persisted document. The struct must expose an identifier property: a field
// named ID, a field with a `docrest:"key"` tag, or a field stored as _id.
func AnalyzeDocument(model interface{}) (*DocumentMetadata, error) {
	docType := reflect.TypeOf(model)
	if docType != nil && docType.Kind() == reflect.Ptr {
		docType = docType.Elem()
	}
	if docType == nil || docType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("document model must be a struct, got %v", docType)
	}

	meta := initializeMetadata(docType, model)

	if err := analyzeFields(docType, meta); err != nil {
		return nil, err
	}

	if meta.IDProperty == nil {
		return nil, fmt.Errorf("document %s must have an identifier property (field 'ID', a `docrest:\"key\"` tag, or an attribute stored as _id)", meta.DocumentName)
	}

	meta.Hooks = detectHooks(docType)

	return meta, nil
}

// AnalyzeEmbedded extracts metadata from a struct representing a sub-document
// stored inline within a parent. Embedded documents have no identifier or
// collection requirements.
func AnalyzeEmbedded(docType reflect.Type) (*DocumentMetadata, error) {
	if docType.Kind() == reflect.Ptr {
		docType = docType.Elem()
	}
	if docType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("embedded document must be a struct, got %s", docType.Kind())
	}

	meta := &DocumentMetadata{
		DocumentType: docType,
		DocumentName: docType.Name(),
		Properties:   make([]PropertyMetadata, 0),
		IsEmbedded:   true,
	}

	if err := analyzeFields(docType, meta); err != nil {
		return nil, err
	}

	return meta, nil
}

func initializeMetadata(docType reflect.Type, model interface{}) *DocumentMetadata {
	name := docType.Name()
	collection := pluralize(strings.ToLower(name))
	if namer, ok := model.(CollectionNamer); ok && namer.CollectionName() != "" {
		collection = namer.CollectionName()
	}

	return &DocumentMetadata{
		DocumentType:   docType,
		DocumentName:   name,
		CollectionName: collection,
		Properties:     make([]PropertyMetadata, 0),
	}
}

func analyzeFields(docType reflect.Type, meta *DocumentMetadata) error {
	for i := 0; i < docType.NumField(); i++ {
		field := docType.Field(i)
		if !field.IsExported() {
			continue
		}

		property, err := analyzeField(field, meta)
		if err != nil {
			return err
		}
		if property == nil {
			continue // bson:"-"
		}
		meta.Properties = append(meta.Properties, *property)

		stored := &meta.Properties[len(meta.Properties)-1]
		if stored.IsID && meta.IDProperty == nil {
			meta.IDProperty = stored
		}
		if stored.IsETag && meta.ETagProperty == nil {
			meta.ETagProperty = stored
		}
	}
	return nil
}

func analyzeField(field reflect.StructField, meta *DocumentMetadata) (*PropertyMetadata, error) {
	storedName, omitEmpty, skip := parseBSONTag(field)
	if skip {
		return nil, nil
	}

	property := &PropertyMetadata{
		Name:       field.Name,
		Type:       field.Type,
		StoredName: storedName,
		JSONName:   jsonName(field),
		OmitEmpty:  omitEmpty,
	}

	if err := analyzeEmbeddedField(property, field); err != nil {
		return nil, err
	}

	if err := applyTagOptions(property, field); err != nil {
		return nil, err
	}

	// Identifier detection: explicit tag wins, then _id storage, then the
	// conventional ID field name.
	if !property.IsID && !meta.IsEmbedded {
		if storedName == "_id" || (field.Name == "ID" && meta.IDProperty == nil) {
			property.IsID = true
		}
	}

	return property, nil
}

// analyzeEmbeddedField determines whether a field holds an inline sub-document
// or a list of them, and recursively analyzes the sub-document type.
func analyzeEmbeddedField(property *PropertyMetadata, field reflect.StructField) error {
	fieldType := field.Type
	isSlice := fieldType.Kind() == reflect.Slice
	if isSlice {
		fieldType = fieldType.Elem()
	}
	if fieldType.Kind() == reflect.Ptr {
		fieldType = fieldType.Elem()
	}

	if fieldType.Kind() != reflect.Struct {
		return nil
	}

	// Scalar struct types handled by the codec layer are not sub-documents.
	switch fieldType {
	case objectIDType, timeType, decimalType:
		return nil
	}

	embedded, err := AnalyzeEmbedded(fieldType)
	if err != nil {
		return fmt.Errorf("field %s: %w", field.Name, err)
	}

	property.Embedded = embedded
	if isSlice {
		property.IsEmbeddedList = true
	} else {
		property.IsEmbedded = true
	}
	return nil
}

func applyTagOptions(property *PropertyMetadata, field reflect.StructField) error {
	tag := field.Tag.Get("docrest")
	if tag == "" {
		return nil
	}

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "key":
			property.IsID = true
		case part == "readonly":
			property.IsReadOnly = true
		case part == "required":
			property.IsRequired = true
		case part == "etag":
			property.IsETag = true
		case strings.HasPrefix(part, "choices:"):
			raw := strings.TrimPrefix(part, "choices:")
			property.Choices = strings.Split(raw, "|")
		case strings.HasPrefix(part, "default:"):
			property.Default = strings.TrimPrefix(part, "default:")
			property.HasDefault = true
		case strings.HasPrefix(part, "maxlength:"):
			n, err := parseInt(strings.TrimPrefix(part, "maxlength:"))
			if err != nil {
				return fmt.Errorf("field %s: invalid maxlength: %w", field.Name, err)
			}
			property.MaxLength = n
		case part == "":
			// tolerate trailing commas
		default:
			return fmt.Errorf("field %s: unknown docrest tag option '%s'", field.Name, part)
		}
	}
	return nil
}

// parseBSONTag returns the stored attribute name for a field following the
// driver's conventions: tag name if present, otherwise the lower-cased field
// name. A "-" tag excludes the field from persistence entirely.
func parseBSONTag(field reflect.StructField) (name string, omitEmpty bool, skip bool) {
	tag, ok := field.Tag.Lookup("bson")
	if !ok {
		return strings.ToLower(field.Name), false, false
	}
	parts := strings.Split(tag, ",")
	if parts[0] == "-" {
		return "", false, true
	}
	name = parts[0]
	if name == "" {
		name = strings.ToLower(field.Name)
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

func jsonName(field reflect.StructField) string {
	tag, ok := field.Tag.Lookup("json")
	if !ok {
		return field.Name
	}
	name := strings.Split(tag, ",")[0]
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}

// PropertyByJSONName returns the property with the given wire name.
func (m *DocumentMetadata) PropertyByJSONName(name string) *PropertyMetadata {
	for i := range m.Properties {
		if m.Properties[i].JSONName == name {
			return &m.Properties[i]
		}
	}
	return nil
}

// PropertyByStoredName returns the property with the given stored attribute name.
func (m *DocumentMetadata) PropertyByStoredName(name string) *PropertyMetadata {
	for i := range m.Properties {
		if m.Properties[i].StoredName == name {
			return &m.Properties[i]
		}
	}
	return nil
}

// pluralize derives a collection name from a document name.
func pluralize(word string) string {
	if word == "" {
		return word
	}

	switch {
	case strings.HasSuffix(word, "y") && len(word) > 1 && !isVowel(rune(word[len(word)-2])):
		return word[:len(word)-1] + "ies"
	case strings.HasSuffix(word, "s") || strings.HasSuffix(word, "x") || strings.HasSuffix(word, "z") ||
		strings.HasSuffix(word, "ch") || strings.HasSuffix(word, "sh"):
		return word + "es"
	default:
		return word + "s"
	}
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return true
	default:
		return false
	}
}

func parseInt(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	return n, nil
}
