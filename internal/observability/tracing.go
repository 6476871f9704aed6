// Package observability provides the tracing, metrics, and server-timing
// instrumentation used by resource handlers.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies spans produced by this library.
const TracerName = "github.com/docrest/go-docrest"

// Attribute keys attached to resource spans.
const (
	AttrCollection = "docrest.collection"
	AttrDocumentID = "docrest.document_id"
	AttrOperation  = "docrest.operation"
	AttrRequestID  = "docrest.request_id"
)

// Tracer wraps an OpenTelemetry tracer with resource-specific span creation.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer using the given TracerProvider.
func NewTracer(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(TracerName)}
}

// StartOperation starts a span for a resource operation. The document id may
// be empty for collection-level operations.
func (t *Tracer) StartOperation(ctx context.Context, operation, collection, documentID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrOperation, operation),
		attribute.String(AttrCollection, collection),
	}
	if documentID != "" {
		attrs = append(attrs, attribute.String(AttrDocumentID, documentID))
	}
	return t.tracer.Start(ctx, "docrest."+operation, trace.WithAttributes(attrs...))
}

// EndSpan records the outcome on a span and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
