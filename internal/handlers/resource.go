// Package handlers implements the HTTP resource handlers that expose
// registered documents as REST collections.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/docrest/go-docrest/internal/auth"
	"github.com/docrest/go-docrest/internal/metadata"
	"github.com/docrest/go-docrest/internal/observability"
	"github.com/docrest/go-docrest/internal/query"
	"github.com/docrest/go-docrest/internal/response"
	"github.com/docrest/go-docrest/internal/serializer"
	"github.com/docrest/go-docrest/internal/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateOverride replaces the default create persistence for a resource.
// It receives validated input and returns the created document.
type CreateOverride func(ctx context.Context, validated map[string]interface{}) (interface{}, error)

// UpdateOverride replaces the default update persistence for a resource.
// It receives the parsed identifier and validated input and returns the
// updated document.
type UpdateOverride func(ctx context.Context, id interface{}, validated map[string]interface{}, partial bool) (interface{}, error)

// ResourceHandler serves one registered document type: it validates input
// through the resource's serializer, applies it to document instances, and
// persists through the store.
type ResourceHandler struct {
	store      store.Store
	meta       *metadata.DocumentMetadata
	serializer *serializer.Serializer
	logger     *slog.Logger
	policy     auth.Policy
	tracer     *observability.Tracer
	metrics    *observability.Metrics
	queryCfg   query.Config

	createOverride CreateOverride
	updateOverride UpdateOverride
}

// NewResourceHandler creates a handler for a document type.
func NewResourceHandler(st store.Store, meta *metadata.DocumentMetadata, ser *serializer.Serializer, logger *slog.Logger) *ResourceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResourceHandler{
		store:      st,
		meta:       meta,
		serializer: ser,
		logger:     logger,
		tracer:     observability.NewNoopTracer(),
		metrics:    observability.NewNoopMetrics(),
	}
}

// SetLogger replaces the handler's logger.
func (h *ResourceHandler) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	h.logger = logger
}

// SetPolicy sets the authorization policy. A nil policy allows everything.
func (h *ResourceHandler) SetPolicy(policy auth.Policy) {
	h.policy = policy
}

// SetTracer replaces the handler's tracer.
func (h *ResourceHandler) SetTracer(tracer *observability.Tracer) {
	if tracer == nil {
		tracer = observability.NewNoopTracer()
	}
	h.tracer = tracer
}

// SetMetrics replaces the handler's metric instruments.
func (h *ResourceHandler) SetMetrics(metrics *observability.Metrics) {
	if metrics == nil {
		metrics = observability.NewNoopMetrics()
	}
	h.metrics = metrics
}

// SetQueryConfig sets pagination bounds for list requests.
func (h *ResourceHandler) SetQueryConfig(cfg query.Config) {
	h.queryCfg = cfg
}

// SetCreateOverride installs a custom create function, bypassing the default
// apply-and-insert persistence.
func (h *ResourceHandler) SetCreateOverride(fn CreateOverride) {
	h.createOverride = fn
}

// SetUpdateOverride installs a custom update function, bypassing the default
// fetch-apply-replace persistence.
func (h *ResourceHandler) SetUpdateOverride(fn UpdateOverride) {
	h.updateOverride = fn
}

// Metadata returns the document metadata served by this handler.
func (h *ResourceHandler) Metadata() *metadata.DocumentMetadata {
	return h.meta
}

// HandleCollection dispatches collection-level requests.
func (h *ResourceHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.instrumented(w, r, "list", "", h.handleList)
	case http.MethodPost:
		h.instrumented(w, r, "create", "", h.handleCreate)
	default:
		h.writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s is not allowed on a collection", r.Method))
	}
}

// HandleDocument dispatches requests addressing a single document.
func (h *ResourceHandler) HandleDocument(w http.ResponseWriter, r *http.Request, rawID string) {
	switch r.Method {
	case http.MethodGet:
		h.instrumented(w, r, "retrieve", rawID, func(w http.ResponseWriter, r *http.Request) {
			h.handleRetrieve(w, r, rawID)
		})
	case http.MethodPut:
		h.instrumented(w, r, "update", rawID, func(w http.ResponseWriter, r *http.Request) {
			h.handleUpdate(w, r, rawID, false)
		})
	case http.MethodPatch:
		h.instrumented(w, r, "update", rawID, func(w http.ResponseWriter, r *http.Request) {
			h.handleUpdate(w, r, rawID, true)
		})
	case http.MethodDelete:
		h.instrumented(w, r, "delete", rawID, func(w http.ResponseWriter, r *http.Request) {
			h.handleDelete(w, r, rawID)
		})
	default:
		h.writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s is not allowed on a document", r.Method))
	}
}

// instrumented wraps an operation with authorization, tracing, server timing,
// and request metrics.
func (h *ResourceHandler) instrumented(w http.ResponseWriter, r *http.Request, operation, rawID string, fn http.HandlerFunc) {
	ctx, span := h.tracer.StartOperation(r.Context(), operation, h.meta.CollectionName, rawID)
	timing := observability.StartServerTiming(ctx, operation)
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()

	if !h.authorize(recorder, r, operation, rawID) {
		timing.Stop()
		observability.EndSpan(span, errors.New("forbidden"))
		h.metrics.RecordRequest(ctx, h.meta.CollectionName, operation, recorder.status, time.Since(start))
		return
	}

	fn(recorder, r.WithContext(ctx))

	timing.Stop()
	var spanErr error
	if recorder.status >= 400 {
		spanErr = fmt.Errorf("request failed with status %d", recorder.status)
	}
	observability.EndSpan(span, spanErr)
	h.metrics.RecordRequest(ctx, h.meta.CollectionName, operation, recorder.status, time.Since(start))
}

func (h *ResourceHandler) authorize(w http.ResponseWriter, r *http.Request, operation, rawID string) bool {
	if h.policy == nil {
		return true
	}

	decision := h.policy.Authorize(auth.AuthContext{
		Request:   r,
		Operation: auth.Operation(operation),
		Resource: auth.ResourceDescriptor{
			Collection: h.meta.CollectionName,
			DocumentID: rawID,
		},
	})
	if decision.Allowed {
		return true
	}

	reason := decision.Reason
	if reason == "" {
		reason = "access denied"
	}
	h.writeError(w, http.StatusForbidden, reason)
	return false
}

// parseID converts a path identifier into the identifier property's Go type.
func (h *ResourceHandler) parseID(rawID string) (interface{}, error) {
	idType := h.meta.IDProperty.Type
	if idType == reflect.TypeOf(primitive.ObjectID{}) {
		id, err := primitive.ObjectIDFromHex(rawID)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not a valid document id", rawID)
		}
		return id, nil
	}

	switch idType.Kind() {
	case reflect.String:
		return rawID, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not a valid document id", rawID)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unsupported identifier type %s", idType)
	}
}

// decodeBody parses a JSON object request body, enforcing the content type
// when one is declared.
func (h *ResourceHandler) decodeBody(r *http.Request) (map[string]interface{}, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return nil, fmt.Errorf("unsupported content type '%s'", ct)
		}
	}

	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to parse request body: %v", err)
	}
	return body, nil
}

func (h *ResourceHandler) writeError(w http.ResponseWriter, statusCode int, detail string) {
	if err := response.WriteError(w, statusCode, detail); err != nil {
		h.logger.Error("failed to write error response", "error", err)
	}
}

// writeStoreError maps store sentinel errors onto HTTP statuses.
func (h *ResourceHandler) writeStoreError(w http.ResponseWriter, err error, rawID string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("document '%s' not found", rawID))
	case errors.Is(err, store.ErrDuplicateKey):
		h.writeError(w, http.StatusConflict, "a document with this identifier already exists")
	default:
		h.logger.Error("store operation failed", "collection", h.meta.CollectionName, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeValidationError renders a serializer validation failure as a per-field
// error body.
func (h *ResourceHandler) writeValidationError(w http.ResponseWriter, err error) {
	var verr *serializer.ValidationError
	if errors.As(err, &verr) {
		if writeErr := response.WriteFieldErrors(w, verr.Fields); writeErr != nil {
			h.logger.Error("failed to write error response", "error", writeErr)
		}
		return
	}
	h.writeError(w, http.StatusBadRequest, err.Error())
}

// statusRecorder captures the response status for metrics and tracing.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
