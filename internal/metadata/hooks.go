package metadata

import (
	"context"
	"reflect"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

var hookNames = []string{
	"BeforeCreate",
	"AfterCreate",
	"BeforeUpdate",
	"AfterUpdate",
	"BeforeDelete",
	"AfterDelete",
}

// detectHooks inspects the pointer type of a document for lifecycle hook
// methods of the form `func (d *Doc) BeforeCreate(ctx context.Context) error`.
func detectHooks(docType reflect.Type) HookSet {
	ptrType := reflect.PointerTo(docType)

	set := HookSet{}
	for _, name := range hookNames {
		method, ok := ptrType.MethodByName(name)
		if !ok || !isHookSignature(method.Type) {
			continue
		}
		switch name {
		case "BeforeCreate":
			set.HasBeforeCreate = true
		case "AfterCreate":
			set.HasAfterCreate = true
		case "BeforeUpdate":
			set.HasBeforeUpdate = true
		case "AfterUpdate":
			set.HasAfterUpdate = true
		case "BeforeDelete":
			set.HasBeforeDelete = true
		case "AfterDelete":
			set.HasAfterDelete = true
		}
	}
	return set
}

// isHookSignature reports whether a method type is
// func(receiver, context.Context) error.
func isHookSignature(t reflect.Type) bool {
	if t.NumIn() != 2 || t.NumOut() != 1 {
		return false
	}
	return t.In(1) == contextType && t.Out(0) == errorType
}
