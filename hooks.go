package docrest

import "github.com/docrest/go-docrest/internal/handlers"

// CreateOverride replaces the default create persistence for a resource.
type CreateOverride = handlers.CreateOverride

// UpdateOverride replaces the default update persistence for a resource.
type UpdateOverride = handlers.UpdateOverride

// Lifecycle hooks are plain methods on document models, detected during
// registration:
//
//	func (j *Job) BeforeCreate(ctx context.Context) error { ... }
//
// Supported hooks: BeforeCreate, AfterCreate, BeforeUpdate, AfterUpdate,
// BeforeDelete, AfterDelete. A non-nil error from a Before* hook aborts the
// operation; After* hook errors are logged and the response proceeds.
