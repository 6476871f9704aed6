package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName identifies metrics produced by this library.
const MeterName = "github.com/docrest/go-docrest"

// Metrics holds the resource-level metric instruments.
type Metrics struct {
	requestDuration metric.Float64Histogram
	requestCount    metric.Int64Counter
	resultCount     metric.Int64Histogram
	errorCount      metric.Int64Counter
}

// NewMetrics creates a Metrics instance with the given MeterProvider.
func NewMetrics(mp metric.MeterProvider) *Metrics {
	meter := mp.Meter(MeterName)
	m := &Metrics{}

	var err error

	m.requestDuration, err = meter.Float64Histogram(
		"docrest.request.duration",
		metric.WithDescription("Duration of resource requests in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.requestDuration, _ = meter.Float64Histogram("docrest.request.duration")
	}

	m.requestCount, err = meter.Int64Counter(
		"docrest.request.count",
		metric.WithDescription("Total number of resource requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.requestCount, _ = meter.Int64Counter("docrest.request.count")
	}

	m.resultCount, err = meter.Int64Histogram(
		"docrest.result.count",
		metric.WithDescription("Number of documents returned by list requests"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		m.resultCount, _ = meter.Int64Histogram("docrest.result.count")
	}

	m.errorCount, err = meter.Int64Counter(
		"docrest.error.count",
		metric.WithDescription("Total number of resource errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.errorCount, _ = meter.Int64Counter("docrest.error.count")
	}

	return m
}

// RecordRequest records metrics for a completed request.
func (m *Metrics) RecordRequest(ctx context.Context, collection, operation string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrCollection, collection),
		attribute.String(AttrOperation, operation),
		attribute.Int("http.status_code", statusCode),
	)
	m.requestCount.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	if statusCode >= 400 {
		m.errorCount.Add(ctx, 1, attrs)
	}
}

// RecordResults records the number of documents a list request returned.
func (m *Metrics) RecordResults(ctx context.Context, collection string, count int) {
	if m == nil {
		return
	}
	m.resultCount.Record(ctx, int64(count), metric.WithAttributes(
		attribute.String(AttrCollection, collection),
	))
}
