// Package auth defines the authorization contract consulted by resource
// handlers before each operation.
package auth

import "net/http"

// Operation identifies the kind of access being authorized.
type Operation string

// Operation values for authorization checks.
const (
	OperationList     Operation = "list"
	OperationRetrieve Operation = "retrieve"
	OperationCreate   Operation = "create"
	OperationUpdate   Operation = "update"
	OperationDelete   Operation = "delete"
)

// ResourceDescriptor describes the resource being accessed.
type ResourceDescriptor struct {
	// Collection is the collection name of the resource.
	Collection string
	// DocumentID is the identifier in the request path, empty for
	// collection-level operations.
	DocumentID string
}

// AuthContext carries the request details relevant to an authorization
// decision.
type AuthContext struct {
	Request   *http.Request
	Operation Operation
	Resource  ResourceDescriptor
}

// Decision is the result of an authorization check.
type Decision struct {
	Allowed bool
	// Reason is included in the error response body when access is denied.
	Reason string
}

// Policy decides whether a request may perform an operation on a resource.
// A nil policy allows everything.
type Policy interface {
	Authorize(ctx AuthContext) Decision
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(ctx AuthContext) Decision

// Authorize implements Policy.
func (f PolicyFunc) Authorize(ctx AuthContext) Decision {
	return f(ctx)
}

// Allow returns an allow decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a deny decision with an optional reason.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}
