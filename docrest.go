// Package docrest maps document-oriented database models to serializable REST
// API representations. Models are plain Go structs with bson tags; serializers
// declare which attributes cross the API boundary and how, and registered
// resources expose standard collection CRUD over net/http.
package docrest

import (
	"fmt"
	"log/slog"

	"github.com/docrest/go-docrest/internal/auth"
	"github.com/docrest/go-docrest/internal/handlers"
	"github.com/docrest/go-docrest/internal/observability"
	"github.com/docrest/go-docrest/internal/query"
	"github.com/docrest/go-docrest/internal/store"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Store persists documents for registered resources.
type Store = store.Store

// ServiceConfig controls optional service behaviours.
type ServiceConfig struct {
	// DefaultPageSize is the list page size applied when a request does not
	// specify one. Zero uses the library default.
	DefaultPageSize int64
	// MaxPageSize caps the page size a client may request. Zero uses the
	// library default.
	MaxPageSize int64
}

// Service exposes registered document types as REST resources.
type Service struct {
	// store holds the document persistence backend
	store store.Store
	// resources holds resource handlers keyed by collection name
	resources map[string]*handlers.ResourceHandler
	// policy is the optional authorization policy applied to all resources
	policy auth.Policy
	// tracer and metrics instrument resource operations
	tracer  *observability.Tracer
	metrics *observability.Metrics
	// queryCfg bounds list pagination
	queryCfg query.Config
	// logger is used for structured logging throughout the service
	logger *slog.Logger
}

// NewService creates a service backed by the given store.
func NewService(st Store) *Service {
	service, err := NewServiceWithConfig(st, ServiceConfig{})
	if err != nil {
		panic(err)
	}
	return service
}

// NewServiceWithConfig creates a service with additional configuration.
func NewServiceWithConfig(st Store, cfg ServiceConfig) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("docrest: store is required")
	}

	return &Service{
		store:     st,
		resources: make(map[string]*handlers.ResourceHandler),
		tracer:    observability.NewNoopTracer(),
		metrics:   observability.NewNoopMetrics(),
		queryCfg: query.Config{
			DefaultLimit: cfg.DefaultPageSize,
			MaxLimit:     cfg.MaxPageSize,
		},
		logger: slog.Default(),
	}, nil
}

// SetLogger sets a custom logger for the service.
// If not called, slog.Default() is used.
func (s *Service) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger
	for _, handler := range s.resources {
		handler.SetLogger(logger)
	}
}

// SetPolicy registers an authorization policy for the service.
// Pass nil to clear the policy (all requests will be allowed).
func (s *Service) SetPolicy(policy Policy) {
	s.policy = policy
	for _, handler := range s.resources {
		handler.SetPolicy(policy)
	}
}

// ObservabilityConfig wires OpenTelemetry providers into the service.
type ObservabilityConfig struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// EnableObservability configures tracing and metrics for all resources.
func (s *Service) EnableObservability(cfg ObservabilityConfig) {
	if cfg.TracerProvider != nil {
		s.tracer = observability.NewTracer(cfg.TracerProvider)
	}
	if cfg.MeterProvider != nil {
		s.metrics = observability.NewMetrics(cfg.MeterProvider)
	}
	for _, handler := range s.resources {
		handler.SetTracer(s.tracer)
		handler.SetMetrics(s.metrics)
	}
}

// ResourceOption configures a resource during registration.
type ResourceOption func(*handlers.ResourceHandler)

// WithCreateOverride installs a custom create function for the resource,
// bypassing the default apply-and-insert persistence.
func WithCreateOverride(fn CreateOverride) ResourceOption {
	return func(h *handlers.ResourceHandler) {
		h.SetCreateOverride(fn)
	}
}

// WithUpdateOverride installs a custom update function for the resource,
// bypassing the default fetch-apply-replace persistence.
func WithUpdateOverride(fn UpdateOverride) ResourceOption {
	return func(h *handlers.ResourceHandler) {
		h.SetUpdateOverride(fn)
	}
}

// RegisterDocument registers a document type with the default serializer
// exposing every analyzed property.
func (s *Service) RegisterDocument(model interface{}, opts ...ResourceOption) error {
	ser, err := NewSerializer(model)
	if err != nil {
		return err
	}
	return s.RegisterResource(ser, opts...)
}

// RegisterResource registers a document type with an explicit serializer.
func (s *Service) RegisterResource(ser *Serializer, opts ...ResourceOption) error {
	meta := ser.Metadata()
	if meta.IDProperty == nil {
		return fmt.Errorf("docrest: cannot register embedded document %s as a resource", meta.DocumentName)
	}
	if _, exists := s.resources[meta.CollectionName]; exists {
		return fmt.Errorf("docrest: collection '%s' is already registered", meta.CollectionName)
	}

	handler := handlers.NewResourceHandler(s.store, meta, ser, s.logger)
	handler.SetPolicy(s.policy)
	handler.SetTracer(s.tracer)
	handler.SetMetrics(s.metrics)
	handler.SetQueryConfig(s.queryCfg)
	for _, opt := range opts {
		opt(handler)
	}
	s.resources[meta.CollectionName] = handler

	s.logger.Debug("Registered resource",
		"document", meta.DocumentName,
		"collection", meta.CollectionName)
	return nil
}
