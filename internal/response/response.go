// Package response writes the JSON bodies and error envelopes shared by all
// resource handlers.
package response

import (
	"encoding/json"
	"net/http"
)

const contentTypeJSON = "application/json; charset=utf-8"

// Page is the envelope returned for list requests.
type Page struct {
	Results []map[string]interface{} `json:"results"`
	Count   int64                    `json:"count"`
	Limit   int64                    `json:"limit"`
	Offset  int64                    `json:"offset"`
}

// WriteJSON writes a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, body interface{}) error {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return encoder.Encode(body)
}

// WriteError writes a `{"detail": ...}` error body.
func WriteError(w http.ResponseWriter, statusCode int, detail string) error {
	return WriteJSON(w, statusCode, map[string]string{"detail": detail})
}

// WriteFieldErrors writes a validation failure body keyed by field name,
// each field carrying the list of messages recorded against it.
func WriteFieldErrors(w http.ResponseWriter, fields map[string][]string) error {
	return WriteJSON(w, http.StatusBadRequest, fields)
}

// WritePage writes a list page envelope.
func WritePage(w http.ResponseWriter, page Page) error {
	if page.Results == nil {
		page.Results = []map[string]interface{}{}
	}
	return WriteJSON(w, http.StatusOK, page)
}
