package docrest

import (
	"reflect"

	"github.com/docrest/go-docrest/internal/metadata"
	"github.com/docrest/go-docrest/internal/serializer"
)

// Serializer maps a document type to its API representation. See the
// internal/serializer package for the copy, validation, and merge semantics.
type Serializer = serializer.Serializer

// Field declares a serializer field explicitly: wire name, stored source
// attribute, write rules, and optionally a nested serializer for embedded
// sub-documents.
type Field = serializer.FieldSpec

// SerializerOption configures a serializer during construction.
type SerializerOption = serializer.Option

// Fields restricts a serializer to the named fields, in order.
func Fields(names ...string) SerializerOption {
	return serializer.WithFields(names...)
}

// DeclareField declares a field explicitly, overriding the declaration
// derived from the document property.
func DeclareField(field Field) SerializerOption {
	return serializer.WithField(field)
}

// NewSerializer analyzes a document model and builds a serializer for it.
// With no options every analyzed property becomes a declared field; use
// Fields and DeclareField to restrict and reshape the declared set.
func NewSerializer(model interface{}, opts ...SerializerOption) (*Serializer, error) {
	meta, err := metadata.AnalyzeDocument(model)
	if err != nil {
		return nil, err
	}
	return serializer.New(meta, opts...)
}

func typeOf(model interface{}) reflect.Type {
	t := reflect.TypeOf(model)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// NewEmbeddedSerializer builds a serializer for a sub-document type so it can
// be attached to a parent serializer field. Embedded documents need no
// identifier property.
func NewEmbeddedSerializer(model interface{}, opts ...SerializerOption) (*Serializer, error) {
	meta, err := metadata.AnalyzeEmbedded(typeOf(model))
	if err != nil {
		return nil, err
	}
	return serializer.New(meta, opts...)
}
