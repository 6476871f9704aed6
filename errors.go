package docrest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/docrest/go-docrest/internal/serializer"
	"github.com/docrest/go-docrest/internal/store"
)

// Sentinel errors for common resource error conditions.
// These can be used with errors.Is() for error handling.
var (
	// ErrNotFound indicates the requested document does not exist.
	// Maps to HTTP 404 Not Found.
	ErrNotFound = store.ErrNotFound

	// ErrDuplicateKey indicates an insert collided with an existing identifier.
	// Maps to HTTP 409 Conflict.
	ErrDuplicateKey = store.ErrDuplicateKey

	// ErrValidation indicates request data failed validation.
	// Maps to HTTP 400 Bad Request.
	ErrValidation = errors.New("docrest: validation error")

	// ErrForbidden indicates the request was denied by the authorization policy.
	// Maps to HTTP 403 Forbidden.
	ErrForbidden = errors.New("docrest: forbidden")

	// ErrPreconditionFailed indicates an If-Match revision check failed.
	// Maps to HTTP 412 Precondition Failed.
	ErrPreconditionFailed = errors.New("docrest: precondition failed")
)

// ValidationError reports input validation failures keyed by wire field name.
type ValidationError = serializer.ValidationError

// APIError provides a structured error with an explicit HTTP status. It can be
// returned from hooks and create/update overrides to control the response.
//
// Example usage in an update override:
//
//	func updateJob(ctx context.Context, id interface{}, validated map[string]interface{}, partial bool) (interface{}, error) {
//	    if locked(id) {
//	        return nil, &docrest.APIError{
//	            StatusCode: http.StatusConflict,
//	            Message:    "job is locked",
//	        }
//	    }
//	    ...
//	}
type APIError struct {
	// StatusCode is the HTTP status code to return (e.g., 400, 404, 500).
	StatusCode int

	// Message is a human-readable error description.
	Message string

	// Err is the underlying error, if any. This allows error wrapping while
	// maintaining compatibility with errors.Is() and errors.As().
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is() and errors.As().
func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code carried by the error. Resource handlers
// use it when rendering override and hook failures.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// MapErrorToHTTPStatus returns the appropriate HTTP status code for common
// errors. This helper can be used in custom handlers to pick status codes.
func MapErrorToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	}

	return http.StatusInternalServerError
}

// IsValidationError returns true if the error is a validation error.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) || errors.Is(err, ErrValidation)
}

// IsNotFoundError returns true if the error indicates a missing document.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
