package docrest

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMapErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", ErrNotFound), http.StatusNotFound},
		{"duplicate key", ErrDuplicateKey, http.StatusConflict},
		{"validation sentinel", ErrValidation, http.StatusBadRequest},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"precondition", ErrPreconditionFailed, http.StatusPreconditionFailed},
		{"field errors", &ValidationError{Fields: map[string][]string{"title": {"required"}}}, http.StatusBadRequest},
		{"api error", &APIError{StatusCode: http.StatusTeapot, Message: "short and stout"}, http.StatusTeapot},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapErrorToHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapErrorToHTTPStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAPIErrorUnwrap(t *testing.T) {
	apiErr := &APIError{
		StatusCode: http.StatusNotFound,
		Message:    "job not found",
		Err:        ErrNotFound,
	}

	if !errors.Is(apiErr, ErrNotFound) {
		t.Error("APIError should unwrap to its cause")
	}
	if apiErr.HTTPStatus() != http.StatusNotFound {
		t.Errorf("HTTPStatus() = %v", apiErr.HTTPStatus())
	}
	if apiErr.Error() != "job not found: store: document not found" {
		t.Errorf("Error() = %q", apiErr.Error())
	}
}

func TestErrorPredicates(t *testing.T) {
	if !IsNotFoundError(fmt.Errorf("get: %w", ErrNotFound)) {
		t.Error("IsNotFoundError should see through wrapping")
	}
	if IsNotFoundError(ErrForbidden) {
		t.Error("IsNotFoundError should reject unrelated errors")
	}

	verr := &ValidationError{Fields: map[string][]string{"x": {"bad"}}}
	if !IsValidationError(verr) {
		t.Error("IsValidationError should accept field errors")
	}
	if !IsValidationError(ErrValidation) {
		t.Error("IsValidationError should accept the sentinel")
	}
	if IsValidationError(ErrNotFound) {
		t.Error("IsValidationError should reject unrelated errors")
	}
}
