package docrest

import "github.com/docrest/go-docrest/internal/auth"

// AuthContext contains request metadata for authorization decisions.
type AuthContext = auth.AuthContext

// ResourceDescriptor describes the resource being accessed.
type ResourceDescriptor = auth.ResourceDescriptor

// Operation defines the type of access being authorized.
type Operation = auth.Operation

// Operation values for authorization checks.
const (
	OperationList     = auth.OperationList
	OperationRetrieve = auth.OperationRetrieve
	OperationCreate   = auth.OperationCreate
	OperationUpdate   = auth.OperationUpdate
	OperationDelete   = auth.OperationDelete
)

// Decision represents the result of an authorization check.
type Decision = auth.Decision

// Policy defines the interface for authorization decisions.
type Policy = auth.Policy

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc = auth.PolicyFunc

// Allow returns an allow decision.
func Allow() Decision {
	return auth.Allow()
}

// Deny returns a deny decision with an optional reason.
func Deny(reason string) Decision {
	return auth.Deny(reason)
}
