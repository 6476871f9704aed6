package handlers

import (
	"fmt"
	"net/http"
	"reflect"

	"github.com/docrest/go-docrest/internal/etag"
	"github.com/docrest/go-docrest/internal/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// handleCreate serves POST on a collection: validate the full input, build a
// fresh document, apply schema defaults, and insert.
func (h *ResourceHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	input, err := h.decodeBody(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	validated, err := h.serializer.Validate(input, false)
	if err != nil {
		h.writeValidationError(w, err)
		return
	}

	var doc interface{}
	if h.createOverride != nil {
		doc, err = h.createOverride(ctx, validated)
		if err != nil {
			h.writeOverrideError(w, err)
			return
		}
	} else {
		doc = reflect.New(h.meta.DocumentType).Interface()
		if err := h.serializer.Apply(doc, validated); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.serializer.ApplyDefaults(doc, validated); err != nil {
			h.logger.Error("failed to apply defaults", "collection", h.meta.CollectionName, "error", err)
			h.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if _, err := store.EnsureID(h.meta, doc); err != nil {
			h.logger.Error("failed to assign identifier", "collection", h.meta.CollectionName, "error", err)
			h.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := h.callBeforeCreate(ctx, doc); err != nil {
			h.writeHookError(w, err)
			return
		}
		if err := h.store.Insert(ctx, h.meta, doc); err != nil {
			h.writeStoreError(w, err, "")
			return
		}
		if err := h.callAfterCreate(ctx, doc); err != nil {
			h.logger.Error("AfterCreate hook failed", "collection", h.meta.CollectionName, "error", err)
		}
	}

	if id := h.documentIDString(doc); id != "" {
		w.Header().Set("Location", r.URL.Path+"/"+id)
	}
	h.writeDocumentResponse(w, doc, http.StatusCreated)
}

// handleUpdate serves PUT (full) and PATCH (partial) on a document. Both
// merge validated input onto the current persisted state; partial updates
// skip required-field checks so unsupplied fields stay untouched.
func (h *ResourceHandler) handleUpdate(w http.ResponseWriter, r *http.Request, rawID string, partial bool) {
	ctx := r.Context()

	id, err := h.parseID(rawID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	input, err := h.decodeBody(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	validated, err := h.serializer.Validate(input, partial)
	if err != nil {
		h.writeValidationError(w, err)
		return
	}

	if h.updateOverride != nil {
		doc, err := h.updateOverride(ctx, id, validated, partial)
		if err != nil {
			h.writeOverrideError(w, err)
			return
		}
		h.writeDocumentResponse(w, doc, http.StatusOK)
		return
	}

	doc := reflect.New(h.meta.DocumentType).Interface()
	if err := h.store.Get(ctx, h.meta, id, doc); err != nil {
		h.writeStoreError(w, err, rawID)
		return
	}

	if !h.checkPrecondition(w, r, doc) {
		return
	}

	if err := h.serializer.Apply(doc, validated); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.callBeforeUpdate(ctx, doc); err != nil {
		h.writeHookError(w, err)
		return
	}
	if err := h.store.Replace(ctx, h.meta, id, doc); err != nil {
		h.writeStoreError(w, err, rawID)
		return
	}
	if err := h.callAfterUpdate(ctx, doc); err != nil {
		h.logger.Error("AfterUpdate hook failed", "collection", h.meta.CollectionName, "error", err)
	}

	h.writeDocumentResponse(w, doc, http.StatusOK)
}

// handleDelete serves DELETE on a document.
func (h *ResourceHandler) handleDelete(w http.ResponseWriter, r *http.Request, rawID string) {
	ctx := r.Context()

	id, err := h.parseID(rawID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	doc := reflect.New(h.meta.DocumentType).Interface()
	if err := h.store.Get(ctx, h.meta, id, doc); err != nil {
		h.writeStoreError(w, err, rawID)
		return
	}

	if !h.checkPrecondition(w, r, doc) {
		return
	}

	if err := h.callBeforeDelete(ctx, doc); err != nil {
		h.writeHookError(w, err)
		return
	}
	if err := h.store.Delete(ctx, h.meta, id); err != nil {
		h.writeStoreError(w, err, rawID)
		return
	}
	if err := h.callAfterDelete(ctx, doc); err != nil {
		h.logger.Error("AfterDelete hook failed", "collection", h.meta.CollectionName, "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

// checkPrecondition enforces If-Match against the document's current revision
// when the document declares an etag property.
func (h *ResourceHandler) checkPrecondition(w http.ResponseWriter, r *http.Request, doc interface{}) bool {
	if h.meta.ETagProperty == nil {
		return true
	}

	current := etag.Generate(doc, h.meta)
	if etag.Match(r.Header.Get("If-Match"), current) {
		return true
	}

	h.writeError(w, http.StatusPreconditionFailed, "document revision does not match If-Match")
	return false
}

// writeHookError maps errors returned by Before* lifecycle hooks. A hook may
// carry an explicit status via HTTPStatus; plain errors deny the operation.
func (h *ResourceHandler) writeHookError(w http.ResponseWriter, err error) {
	if statusErr, ok := err.(interface{ HTTPStatus() int }); ok {
		h.writeError(w, statusErr.HTTPStatus(), err.Error())
		return
	}
	h.writeError(w, http.StatusForbidden, err.Error())
}

// writeOverrideError maps errors from create/update overrides.
func (h *ResourceHandler) writeOverrideError(w http.ResponseWriter, err error) {
	if statusErr, ok := err.(interface{ HTTPStatus() int }); ok {
		h.writeError(w, statusErr.HTTPStatus(), err.Error())
		return
	}
	h.writeStoreError(w, err, "")
}

// documentIDString renders the identifier of a document for URLs. Returns an
// empty string for documents without an assigned identifier.
func (h *ResourceHandler) documentIDString(doc interface{}) string {
	value := reflect.ValueOf(doc)
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}
	field := value.FieldByName(h.meta.IDProperty.Name)
	if !field.IsValid() {
		return ""
	}
	if oid, ok := field.Interface().(primitive.ObjectID); ok {
		if oid.IsZero() {
			return ""
		}
		return oid.Hex()
	}
	return fmt.Sprintf("%v", field.Interface())
}
