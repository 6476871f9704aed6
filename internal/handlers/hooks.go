package handlers

import (
	"context"
	"fmt"
	"reflect"
)

// callBeforeCreate calls the BeforeCreate hook if the document declares one.
func (h *ResourceHandler) callBeforeCreate(ctx context.Context, doc interface{}) error {
	if !h.meta.Hooks.HasBeforeCreate {
		return nil
	}
	return callHook(ctx, doc, "BeforeCreate")
}

// callAfterCreate calls the AfterCreate hook if the document declares one.
func (h *ResourceHandler) callAfterCreate(ctx context.Context, doc interface{}) error {
	if !h.meta.Hooks.HasAfterCreate {
		return nil
	}
	return callHook(ctx, doc, "AfterCreate")
}

// callBeforeUpdate calls the BeforeUpdate hook if the document declares one.
func (h *ResourceHandler) callBeforeUpdate(ctx context.Context, doc interface{}) error {
	if !h.meta.Hooks.HasBeforeUpdate {
		return nil
	}
	return callHook(ctx, doc, "BeforeUpdate")
}

// callAfterUpdate calls the AfterUpdate hook if the document declares one.
func (h *ResourceHandler) callAfterUpdate(ctx context.Context, doc interface{}) error {
	if !h.meta.Hooks.HasAfterUpdate {
		return nil
	}
	return callHook(ctx, doc, "AfterUpdate")
}

// callBeforeDelete calls the BeforeDelete hook if the document declares one.
func (h *ResourceHandler) callBeforeDelete(ctx context.Context, doc interface{}) error {
	if !h.meta.Hooks.HasBeforeDelete {
		return nil
	}
	return callHook(ctx, doc, "BeforeDelete")
}

// callAfterDelete calls the AfterDelete hook if the document declares one.
func (h *ResourceHandler) callAfterDelete(ctx context.Context, doc interface{}) error {
	if !h.meta.Hooks.HasAfterDelete {
		return nil
	}
	return callHook(ctx, doc, "AfterDelete")
}

func callHook(ctx context.Context, doc interface{}, name string) error {
	method := reflect.ValueOf(doc).MethodByName(name)
	if !method.IsValid() {
		return fmt.Errorf("document does not implement hook %s", name)
	}

	results := method.Call([]reflect.Value{reflect.ValueOf(ctx)})
	if len(results) != 1 {
		return fmt.Errorf("hook %s has an invalid signature", name)
	}
	if err, ok := results[0].Interface().(error); ok && err != nil {
		return err
	}
	return nil
}
