package serializer

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports input validation failures keyed by wire field name.
// Nested field failures use dotted paths ("location.city", "categories.1.id").
type ValidationError struct {
	Fields map[string][]string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

func (e *ValidationError) add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// merge folds nested validation failures into this error under a path prefix.
func (e *ValidationError) merge(prefix string, nested *ValidationError) {
	for field, messages := range nested.Fields {
		e.Fields[prefix+"."+field] = append(e.Fields[prefix+"."+field], messages...)
	}
}

func (e *ValidationError) empty() bool {
	return len(e.Fields) == 0
}
