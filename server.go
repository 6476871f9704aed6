package docrest

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/docrest/go-docrest/internal/observability"
	"github.com/docrest/go-docrest/internal/response"
	"github.com/google/uuid"
)

// HeaderRequestID carries the request identifier assigned by the service.
const HeaderRequestID = "X-Request-Id"

// ServeHTTP implements http.Handler. Requests route as
// /<collection> and /<collection>/<id>.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(r.URL.Path, "/")
	if path == "" {
		s.handleIndex(w, r)
		return
	}

	segments := strings.Split(path, "/")
	if len(segments) > 2 {
		if err := response.WriteError(w, http.StatusNotFound, "invalid resource path"); err != nil {
			s.logger.Error("failed to write error response", "error", err)
		}
		return
	}

	handler, exists := s.resources[segments[0]]
	if !exists {
		if err := response.WriteError(w, http.StatusNotFound,
			fmt.Sprintf("collection '%s' is not registered", segments[0])); err != nil {
			s.logger.Error("failed to write error response", "error", err)
		}
		return
	}

	if len(segments) == 1 {
		handler.HandleCollection(w, r)
		return
	}
	handler.HandleDocument(w, r, segments[1])
}

// handleIndex lists the registered collections.
func (s *Service) handleIndex(w http.ResponseWriter, _ *http.Request) {
	collections := make(map[string]string, len(s.resources))
	for name, handler := range s.resources {
		collections[name] = "/" + name + " (" + handler.Metadata().DocumentName + ")"
	}
	if err := response.WriteJSON(w, http.StatusOK, collections); err != nil {
		s.logger.Error("failed to write index response", "error", err)
	}
}

// Handler wraps the service with the standard middleware stack: request id
// assignment and Server-Timing collection.
func (s *Service) Handler() http.Handler {
	return requestIDMiddleware(observability.ServerTimingMiddleware(s))
}

// requestIDMiddleware assigns each request an identifier, echoed in the
// response headers for correlation with logs and traces.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe starts the service on the specified address with the
// standard middleware stack.
func (s *Service) ListenAndServe(addr string) error {
	s.logger.Info("starting docrest service", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}
