package serializer

import (
	"fmt"

	"github.com/docrest/go-docrest/internal/metadata"
)

// FieldSpec declares a single serializer field: how a wire attribute maps to a
// stored document attribute, and the write rules applied to client input.
type FieldSpec struct {
	// Name is the attribute name on the wire.
	Name string
	// Source is the stored attribute name this field reads from and writes to.
	// Empty means the wire name is also the stored name.
	Source string
	// ReadOnly fields appear in output but are never written from input.
	ReadOnly bool
	// Required fields must be supplied on non-partial input.
	Required bool
	// Choices restricts a string field to an enumerated value set.
	Choices []string
	// Default is applied on create when the field is absent from input.
	// The literal "now" resolves to the current UTC time for timestamp fields.
	Default    string
	HasDefault bool
	// MaxLength bounds string input length. Zero means unbounded.
	MaxLength int
	// Nested holds the serializer for an embedded sub-document. With Many set,
	// it applies to each element of an embedded list.
	Nested *Serializer
	Many   bool

	prop *metadata.PropertyMetadata
}

// Property returns the resolved document property backing this field.
func (f *FieldSpec) Property() *metadata.PropertyMetadata {
	return f.prop
}

// defaultFieldSpec derives the field declaration implied by a document
// property when no explicit declaration overrides it.
func defaultFieldSpec(prop *metadata.PropertyMetadata) FieldSpec {
	spec := FieldSpec{
		Name:       prop.JSONName,
		Source:     prop.StoredName,
		ReadOnly:   prop.IsReadOnly || prop.IsID,
		Required:   prop.IsRequired,
		Choices:    prop.Choices,
		Default:    prop.Default,
		HasDefault: prop.HasDefault,
		MaxLength:  prop.MaxLength,
		prop:       prop,
	}

	if prop.IsEmbedded || prop.IsEmbeddedList {
		spec.Nested = newFromMetadata(prop.Embedded)
		spec.Many = prop.IsEmbeddedList
	}

	return spec
}

// resolve binds an explicitly declared field to its backing property. Explicit
// declarations may rename the wire attribute, in which case Source identifies
// the stored attribute.
func (f *FieldSpec) resolve(meta *metadata.DocumentMetadata) error {
	if f.Name == "" {
		return fmt.Errorf("serializer field must have a name")
	}

	source := f.Source
	if source == "" {
		source = f.Name
	}

	prop := meta.PropertyByStoredName(source)
	if prop == nil {
		prop = meta.PropertyByJSONName(source)
	}
	if prop == nil {
		return fmt.Errorf("serializer field '%s' does not map to a property of document %s (source '%s')", f.Name, meta.DocumentName, source)
	}

	f.prop = prop
	f.Source = prop.StoredName

	// Inherit schema rules the declaration did not override.
	if f.Choices == nil {
		f.Choices = prop.Choices
	}
	if !f.HasDefault && prop.HasDefault {
		f.Default = prop.Default
		f.HasDefault = true
	}
	if f.MaxLength == 0 {
		f.MaxLength = prop.MaxLength
	}
	if prop.IsID {
		f.ReadOnly = true
	}

	if (prop.IsEmbedded || prop.IsEmbeddedList) && f.Nested == nil {
		f.Nested = newFromMetadata(prop.Embedded)
		f.Many = prop.IsEmbeddedList
	}
	if f.Nested != nil && !prop.IsEmbedded && !prop.IsEmbeddedList {
		return fmt.Errorf("serializer field '%s' declares a nested serializer but property '%s' is not an embedded document", f.Name, prop.Name)
	}
	if f.Many && !prop.IsEmbeddedList {
		return fmt.Errorf("serializer field '%s' declares many=true but property '%s' is not an embedded list", f.Name, prop.Name)
	}

	return nil
}
