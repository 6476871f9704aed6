package docrest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	docrest "github.com/docrest/go-docrest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJobService(t *testing.T) *docrest.Service {
	t.Helper()
	service := docrest.NewService(docrest.NewMemoryStore())
	require.NoError(t, service.RegisterDocument(&Job{}))
	return service
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func bodyMap(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

func TestServiceCreateThenUpdateWithReturnedBody(t *testing.T) {
	service := newJobService(t)

	created := doJSON(t, service, http.MethodPost, "/jobs", map[string]interface{}{
		"title":       "Gardener",
		"sort_weight": 3,
	})
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())

	body := bodyMap(t, created)
	assert.Equal(t, "Gardener", body["title"])
	assert.Equal(t, "draft", body["status"], "schema default applies on create")
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "/jobs/"+id, created.Header().Get("Location"))

	// Feed the returned representation back with a changed title, the way a
	// client edits a fetched document.
	body["title"] = "Head Gardener"
	updated := doJSON(t, service, http.MethodPut, "/jobs/"+id, body)
	require.Equal(t, http.StatusOK, updated.Code, updated.Body.String())
	assert.Equal(t, "Head Gardener", bodyMap(t, updated)["title"])

	fetched := doJSON(t, service, http.MethodGet, "/jobs/"+id, nil)
	require.Equal(t, http.StatusOK, fetched.Code)
	assert.Equal(t, "Head Gardener", bodyMap(t, fetched)["title"])
}

func TestServiceListEnvelope(t *testing.T) {
	service := newJobService(t)

	for _, title := range []string{"a", "b"} {
		w := doJSON(t, service, http.MethodPost, "/jobs", map[string]interface{}{"title": title})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, service, http.MethodGet, "/jobs?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := bodyMap(t, w)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, float64(1), body["limit"])
	results := body["results"].([]interface{})
	require.Len(t, results, 1)
}

func TestServicePatchMergesPartialInput(t *testing.T) {
	service := newJobService(t)

	created := doJSON(t, service, http.MethodPost, "/jobs", map[string]interface{}{
		"title": "Gardener",
		"notes": "original notes",
	})
	require.Equal(t, http.StatusCreated, created.Code)
	id := bodyMap(t, created)["id"].(string)

	patched := doJSON(t, service, http.MethodPatch, "/jobs/"+id, map[string]interface{}{
		"sort_weight": 8,
	})
	require.Equal(t, http.StatusOK, patched.Code, patched.Body.String())

	body := bodyMap(t, patched)
	assert.Equal(t, float64(8), body["sort_weight"])
	assert.Equal(t, "Gardener", body["title"])
	assert.Equal(t, "original notes", body["notes"])
}

func TestServiceDeleteLifecycle(t *testing.T) {
	service := newJobService(t)

	created := doJSON(t, service, http.MethodPost, "/jobs", map[string]interface{}{"title": "x"})
	require.Equal(t, http.StatusCreated, created.Code)
	id := bodyMap(t, created)["id"].(string)

	deleted := doJSON(t, service, http.MethodDelete, "/jobs/"+id, nil)
	require.Equal(t, http.StatusNoContent, deleted.Code)

	missing := doJSON(t, service, http.MethodGet, "/jobs/"+id, nil)
	require.Equal(t, http.StatusNotFound, missing.Code)
}

func TestServiceRouting(t *testing.T) {
	service := newJobService(t)

	index := doJSON(t, service, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, index.Code)
	assert.Contains(t, bodyMap(t, index), "jobs")

	unknown := doJSON(t, service, http.MethodGet, "/widgets", nil)
	assert.Equal(t, http.StatusNotFound, unknown.Code)

	deep := doJSON(t, service, http.MethodGet, "/jobs/1/extra", nil)
	assert.Equal(t, http.StatusNotFound, deep.Code)
}

func TestServiceRegistrationErrors(t *testing.T) {
	service := newJobService(t)

	err := service.RegisterDocument(&Job{})
	require.Error(t, err, "duplicate collections are rejected")

	embedded, err := docrest.NewEmbeddedSerializer(&Category{})
	require.NoError(t, err)
	require.Error(t, service.RegisterResource(embedded), "embedded documents cannot be resources")
}

func TestServicePolicy(t *testing.T) {
	service := newJobService(t)
	service.SetPolicy(docrest.PolicyFunc(func(ctx docrest.AuthContext) docrest.Decision {
		if ctx.Operation == docrest.OperationDelete {
			return docrest.Deny("deletes are disabled")
		}
		return docrest.Allow()
	}))

	created := doJSON(t, service, http.MethodPost, "/jobs", map[string]interface{}{"title": "x"})
	require.Equal(t, http.StatusCreated, created.Code)
	id := bodyMap(t, created)["id"].(string)

	denied := doJSON(t, service, http.MethodDelete, "/jobs/"+id, nil)
	require.Equal(t, http.StatusForbidden, denied.Code)
	assert.Equal(t, "deletes are disabled", bodyMap(t, denied)["detail"])
}

func TestServiceHandlerAssignsRequestID(t *testing.T) {
	service := newJobService(t)
	handler := service.Handler()

	w := doJSON(t, handler, http.MethodGet, "/jobs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(docrest.HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set(docrest.HeaderRequestID, "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(docrest.HeaderRequestID))
}

func TestServiceCreateOverride(t *testing.T) {
	service := docrest.NewService(docrest.NewMemoryStore())
	ser, err := docrest.NewSerializer(&SomeObject{})
	require.NoError(t, err)

	require.NoError(t, service.RegisterResource(ser,
		docrest.WithCreateOverride(func(_ context.Context, validated map[string]interface{}) (interface{}, error) {
			return &SomeObject{Name: validated["name"].(string) + " (reviewed)"}, nil
		})))

	created := doJSON(t, service, http.MethodPost, "/someobjects", map[string]interface{}{"name": "thing"})
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	assert.Equal(t, "thing (reviewed)", bodyMap(t, created)["name"])
}
