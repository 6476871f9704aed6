package handlers

import (
	"net/http"
	"reflect"

	"github.com/docrest/go-docrest/internal/etag"
	"github.com/docrest/go-docrest/internal/query"
	"github.com/docrest/go-docrest/internal/response"
)

// handleList serves GET on a collection: parse query options, load the
// matching page, and serialize each document through the declared field set.
func (h *ResourceHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	opts, err := query.Parse(r.URL.Query(), h.meta, h.queryCfg)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sliceType := reflect.SliceOf(h.meta.DocumentType)
	docsValue := reflect.New(sliceType)
	if err := h.store.Find(ctx, h.meta, opts, docsValue.Interface()); err != nil {
		h.writeStoreError(w, err, "")
		return
	}

	count, err := h.store.Count(ctx, h.meta, opts)
	if err != nil {
		h.writeStoreError(w, err, "")
		return
	}

	docs := docsValue.Elem()
	results := make([]map[string]interface{}, 0, docs.Len())
	for i := 0; i < docs.Len(); i++ {
		serialized, err := h.serializer.Serialize(docs.Index(i).Addr().Interface())
		if err != nil {
			h.logger.Error("failed to serialize document", "collection", h.meta.CollectionName, "error", err)
			h.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		results = append(results, serialized)
	}

	h.metrics.RecordResults(ctx, h.meta.CollectionName, len(results))

	if err := response.WritePage(w, response.Page{
		Results: results,
		Count:   count,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	}); err != nil {
		h.logger.Error("failed to write list response", "error", err)
	}
}

// handleRetrieve serves GET on a single document.
func (h *ResourceHandler) handleRetrieve(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := h.parseID(rawID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	doc := reflect.New(h.meta.DocumentType).Interface()
	if err := h.store.Get(r.Context(), h.meta, id, doc); err != nil {
		h.writeStoreError(w, err, rawID)
		return
	}

	h.writeDocumentResponse(w, doc, http.StatusOK)
}

// writeDocumentResponse serializes a document and writes it, attaching an
// ETag header when the document declares a revision property.
func (h *ResourceHandler) writeDocumentResponse(w http.ResponseWriter, doc interface{}, statusCode int) {
	serialized, err := h.serializer.Serialize(doc)
	if err != nil {
		h.logger.Error("failed to serialize document", "collection", h.meta.CollectionName, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if tag := etag.Generate(doc, h.meta); tag != "" {
		w.Header().Set("ETag", tag)
	}

	if err := response.WriteJSON(w, statusCode, serialized); err != nil {
		h.logger.Error("failed to write document response", "error", err)
	}
}
