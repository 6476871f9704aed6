package serializer

import (
	"fmt"
	"reflect"

	"github.com/docrest/go-docrest/internal/metadata"
)

// Serializer maps a document type to its API representation: a declared set of
// fields copied attribute-by-attribute between the wire form and the persisted
// form. Fields absent from the declared set, and declared fields marked
// read-only, are immutable from client input.
type Serializer struct {
	meta   *metadata.DocumentMetadata
	fields []FieldSpec
}

// Option configures a Serializer during construction.
type Option func(*config)

type config struct {
	fieldNames []string
	overrides  []FieldSpec
}

// WithFields restricts the serializer to the named fields, in order. Names
// refer to wire attribute names, including names introduced by WithField.
func WithFields(names ...string) Option {
	return func(c *config) {
		c.fieldNames = append(c.fieldNames, names...)
	}
}

// WithField declares a field explicitly, overriding the declaration derived
// from the document property. Use it to rename wire attributes, mark fields
// read-only, or attach a restricted nested serializer.
func WithField(spec FieldSpec) Option {
	return func(c *config) {
		c.overrides = append(c.overrides, spec)
	}
}

// New builds a serializer for the given document metadata. With no options,
// every analyzed property becomes a declared field.
func New(meta *metadata.DocumentMetadata, opts ...Option) (*Serializer, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	declared := make([]FieldSpec, 0, len(meta.Properties))
	seen := make(map[string]bool)

	for i := range cfg.overrides {
		spec := cfg.overrides[i]
		if err := spec.resolve(meta); err != nil {
			return nil, err
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("serializer field '%s' declared twice", spec.Name)
		}
		declared = append(declared, spec)
		seen[spec.Name] = true
	}

	overriddenProps := make(map[string]bool, len(declared))
	for i := range declared {
		overriddenProps[declared[i].prop.Name] = true
	}

	for i := range meta.Properties {
		prop := &meta.Properties[i]
		if overriddenProps[prop.Name] {
			continue
		}
		spec := defaultFieldSpec(prop)
		if seen[spec.Name] {
			return nil, fmt.Errorf("serializer field '%s' declared twice", spec.Name)
		}
		declared = append(declared, spec)
		seen[spec.Name] = true
	}

	if len(cfg.fieldNames) > 0 {
		selected := make([]FieldSpec, 0, len(cfg.fieldNames))
		for _, name := range cfg.fieldNames {
			found := false
			for i := range declared {
				if declared[i].Name == name {
					selected = append(selected, declared[i])
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("serializer field list names unknown field '%s' on document %s", name, meta.DocumentName)
			}
		}
		declared = selected
	}

	return &Serializer{meta: meta, fields: declared}, nil
}

// newFromMetadata builds the implicit all-fields serializer used for embedded
// documents without an explicit nested declaration. Embedded metadata cannot
// produce invalid field specs, so errors are impossible here.
func newFromMetadata(meta *metadata.DocumentMetadata) *Serializer {
	s, err := New(meta)
	if err != nil {
		panic(fmt.Sprintf("serializer: invalid embedded metadata for %s: %v", meta.DocumentName, err))
	}
	return s
}

// Metadata returns the document metadata this serializer was built for.
func (s *Serializer) Metadata() *metadata.DocumentMetadata {
	return s.meta
}

// Fields returns the declared field set in declaration order.
func (s *Serializer) Fields() []FieldSpec {
	return s.fields
}

// fieldByName returns the declared field with the given wire name.
func (s *Serializer) fieldByName(name string) *FieldSpec {
	for i := range s.fields {
		if s.fields[i].Name == name {
			return &s.fields[i]
		}
	}
	return nil
}

// Serialize copies the declared fields of a document instance into a wire map,
// recursing into nested serializers for embedded sub-documents.
func (s *Serializer) Serialize(doc interface{}) (map[string]interface{}, error) {
	value := reflect.ValueOf(doc)
	if value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return nil, fmt.Errorf("cannot serialize nil %s", s.meta.DocumentName)
		}
		value = value.Elem()
	}
	if value.Type() != s.meta.DocumentType {
		return nil, fmt.Errorf("serializer for %s cannot serialize %s", s.meta.DocumentName, value.Type())
	}

	return s.serializeValue(value)
}

func (s *Serializer) serializeValue(value reflect.Value) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(s.fields))

	for i := range s.fields {
		field := &s.fields[i]
		fieldValue := value.FieldByName(field.prop.Name)
		if !fieldValue.IsValid() {
			return nil, fmt.Errorf("document %s has no field %s", s.meta.DocumentName, field.prop.Name)
		}

		switch {
		case field.Many:
			if fieldValue.IsNil() {
				out[field.Name] = []map[string]interface{}{}
				continue
			}
			items := make([]map[string]interface{}, 0, fieldValue.Len())
			for j := 0; j < fieldValue.Len(); j++ {
				item, err := field.Nested.serializeValue(derefStruct(fieldValue.Index(j)))
				if err != nil {
					return nil, err
				}
				items = append(items, item)
			}
			out[field.Name] = items

		case field.Nested != nil:
			if fieldValue.Kind() == reflect.Ptr && fieldValue.IsNil() {
				out[field.Name] = nil
				continue
			}
			nested, err := field.Nested.serializeValue(derefStruct(fieldValue))
			if err != nil {
				return nil, err
			}
			out[field.Name] = nested

		default:
			out[field.Name] = serializeScalar(fieldValue)
		}
	}

	return out, nil
}

// Validate checks client input against the declared field set and converts it
// to typed values keyed by wire field name. Read-only fields and input keys
// outside the declared set are dropped: they are immutable from external
// input. With partial set, absent fields are simply left out; otherwise
// required fields must be present.
func (s *Serializer) Validate(input map[string]interface{}, partial bool) (map[string]interface{}, error) {
	validated := make(map[string]interface{}, len(input))
	verr := newValidationError()

	for i := range s.fields {
		field := &s.fields[i]
		if field.ReadOnly {
			continue
		}

		raw, supplied := input[field.Name]
		if !supplied {
			if !partial && field.Required {
				verr.add(field.Name, "this field is required")
			}
			continue
		}

		if raw == nil {
			if field.Required {
				verr.add(field.Name, "this field may not be null")
				continue
			}
			validated[field.Name] = nil
			continue
		}

		switch {
		case field.Many:
			items, err := s.validateEmbeddedList(field, raw)
			if err != nil {
				if nested, ok := err.(*ValidationError); ok {
					verr.merge(field.Name, nested)
				} else {
					verr.add(field.Name, err.Error())
				}
				continue
			}
			validated[field.Name] = items

		case field.Nested != nil:
			nestedInput, ok := raw.(map[string]interface{})
			if !ok {
				verr.add(field.Name, "expected an object")
				continue
			}
			nestedValidated, err := field.Nested.Validate(nestedInput, false)
			if err != nil {
				if nested, ok := err.(*ValidationError); ok {
					verr.merge(field.Name, nested)
				} else {
					verr.add(field.Name, err.Error())
				}
				continue
			}
			validated[field.Name] = nestedValidated

		default:
			value, err := convertInput(raw, field)
			if err != nil {
				verr.add(field.Name, err.Error())
				continue
			}
			validated[field.Name] = value
		}
	}

	if !verr.empty() {
		return nil, verr
	}
	return validated, nil
}

func (s *Serializer) validateEmbeddedList(field *FieldSpec, raw interface{}) ([]map[string]interface{}, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a list of objects")
	}

	verr := newValidationError()
	items := make([]map[string]interface{}, 0, len(list))
	for i, elem := range list {
		elemInput, ok := elem.(map[string]interface{})
		if !ok {
			verr.add(fmt.Sprintf("%d", i), "expected an object")
			continue
		}
		elemValidated, err := field.Nested.Validate(elemInput, false)
		if err != nil {
			if nested, ok := err.(*ValidationError); ok {
				verr.merge(fmt.Sprintf("%d", i), nested)
			} else {
				verr.add(fmt.Sprintf("%d", i), err.Error())
			}
			continue
		}
		items = append(items, elemValidated)
	}

	if !verr.empty() {
		return nil, verr
	}
	return items, nil
}

// IsValid reports whether the input passes validation. It mirrors the
// boolean validity check performed before a save.
func (s *Serializer) IsValid(input map[string]interface{}, partial bool) bool {
	_, err := s.Validate(input, partial)
	return err == nil
}

// Apply performs a shallow field-by-field copy of validated values onto a
// document instance. Only fields present in the validated map change; embedded
// sub-documents and embedded lists are replaced wholesale when supplied.
func (s *Serializer) Apply(doc interface{}, validated map[string]interface{}) error {
	value := reflect.ValueOf(doc)
	if value.Kind() != reflect.Ptr || value.IsNil() {
		return fmt.Errorf("apply requires a non-nil pointer to %s", s.meta.DocumentName)
	}
	value = value.Elem()
	if value.Type() != s.meta.DocumentType {
		return fmt.Errorf("serializer for %s cannot apply to %s", s.meta.DocumentName, value.Type())
	}

	return s.applyValue(value, validated)
}

func (s *Serializer) applyValue(value reflect.Value, validated map[string]interface{}) error {
	for i := range s.fields {
		field := &s.fields[i]
		converted, present := validated[field.Name]
		if !present {
			continue
		}

		fieldValue := value.FieldByName(field.prop.Name)
		if !fieldValue.CanSet() {
			return fmt.Errorf("cannot set field %s on %s", field.prop.Name, s.meta.DocumentName)
		}

		if converted == nil {
			fieldValue.Set(reflect.Zero(fieldValue.Type()))
			continue
		}

		switch {
		case field.Many:
			items := converted.([]map[string]interface{})
			slice := reflect.MakeSlice(fieldValue.Type(), 0, len(items))
			elemType := fieldValue.Type().Elem()
			for _, item := range items {
				elem, err := field.Nested.buildEmbedded(elemType, item)
				if err != nil {
					return err
				}
				slice = reflect.Append(slice, elem)
			}
			fieldValue.Set(slice)

		case field.Nested != nil:
			embedded, err := field.Nested.buildEmbedded(fieldValue.Type(), converted.(map[string]interface{}))
			if err != nil {
				return err
			}
			fieldValue.Set(embedded)

		default:
			if err := setScalar(fieldValue, converted); err != nil {
				return fmt.Errorf("field %s: %w", field.Name, err)
			}
		}
	}

	return nil
}

// buildEmbedded constructs a fresh sub-document of the given field type from
// validated nested input. Fields omitted from the nested serializer's declared
// set keep their zero values.
func (s *Serializer) buildEmbedded(fieldType reflect.Type, validated map[string]interface{}) (reflect.Value, error) {
	isPtr := fieldType.Kind() == reflect.Ptr
	structType := fieldType
	if isPtr {
		structType = structType.Elem()
	}

	instance := reflect.New(structType)
	if err := s.applyValue(instance.Elem(), validated); err != nil {
		return reflect.Value{}, err
	}

	if isPtr {
		return instance, nil
	}
	return instance.Elem(), nil
}

// ApplyDefaults sets schema defaults on a new document for properties not
// covered by the validated input. Defaults come from the document metadata, so
// they apply to declared and undeclared properties alike.
func (s *Serializer) ApplyDefaults(doc interface{}, validated map[string]interface{}) error {
	value := reflect.ValueOf(doc)
	if value.Kind() != reflect.Ptr || value.IsNil() {
		return fmt.Errorf("apply defaults requires a non-nil pointer to %s", s.meta.DocumentName)
	}
	value = value.Elem()

	for i := range s.meta.Properties {
		prop := &s.meta.Properties[i]
		if !prop.HasDefault {
			continue
		}
		if field := s.fieldBySource(prop.StoredName); field != nil {
			if _, supplied := validated[field.Name]; supplied {
				continue
			}
		}

		fieldValue := value.FieldByName(prop.Name)
		if !fieldValue.CanSet() || !fieldValue.IsZero() {
			continue
		}
		if err := setDefault(fieldValue, prop.Default); err != nil {
			return fmt.Errorf("property %s: %w", prop.Name, err)
		}
	}

	return nil
}

func (s *Serializer) fieldBySource(storedName string) *FieldSpec {
	for i := range s.fields {
		if s.fields[i].Source == storedName {
			return &s.fields[i]
		}
	}
	return nil
}

func derefStruct(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Ptr {
		return v.Elem()
	}
	return v
}
