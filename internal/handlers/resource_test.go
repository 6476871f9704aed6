package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/docrest/go-docrest/internal/auth"
	"github.com/docrest/go-docrest/internal/metadata"
	"github.com/docrest/go-docrest/internal/query"
	"github.com/docrest/go-docrest/internal/serializer"
	"github.com/docrest/go-docrest/internal/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type handledJob struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title  string             `bson:"title" json:"title" docrest:"required"`
	Status string             `bson:"status" json:"status" docrest:"choices:draft|published,default:draft"`
	Weight int                `bson:"weight" json:"sort_weight"`
}

type versionedNote struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Text     string             `bson:"text" json:"text"`
	Revision int                `bson:"revision" json:"revision" docrest:"etag,readonly"`
}

type hookedTicket struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title string             `bson:"title" json:"title"`
}

func (d *hookedTicket) BeforeCreate(_ context.Context) error {
	if d.Title == "blocked" {
		return fmt.Errorf("title is blocked")
	}
	return nil
}

type queuedTicket struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title string             `bson:"title" json:"title"`
}

func (d *queuedTicket) BeforeCreate(_ context.Context) error {
	return statusError{status: http.StatusConflict, msg: "already queued"}
}

func newHandler(t *testing.T, model interface{}) (*ResourceHandler, *store.MemoryStore) {
	t.Helper()
	meta, err := metadata.AnalyzeDocument(model)
	if err != nil {
		t.Fatalf("AnalyzeDocument() error = %v", err)
	}
	ser, err := serializer.New(meta)
	if err != nil {
		t.Fatalf("serializer.New() error = %v", err)
	}
	st := store.NewMemoryStore()
	return NewResourceHandler(st, meta, ser, nil), st
}

func postJSON(t *testing.T, h *ResourceHandler, path string, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleCollection(w, req)
	return w
}

func decodeBodyMap(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestHandleCreate(t *testing.T) {
	h, _ := newHandler(t, &handledJob{})

	w := postJSON(t, h, "/handledjobs", map[string]interface{}{
		"title":       "Gardener",
		"sort_weight": 3,
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %v, body = %v", w.Code, w.Body.String())
	}
	body := decodeBodyMap(t, w)
	if body["title"] != "Gardener" {
		t.Errorf("title = %v", body["title"])
	}
	if body["status"] != "draft" {
		t.Errorf("status = %v, want default draft", body["status"])
	}
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatal("response must carry the generated id")
	}
	if loc := w.Header().Get("Location"); loc != "/handledjobs/"+id {
		t.Errorf("Location = %v", loc)
	}
}

func TestHandleCreateValidationError(t *testing.T) {
	h, _ := newHandler(t, &handledJob{})

	w := postJSON(t, h, "/handledjobs", map[string]interface{}{"status": "bogus"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %v", w.Code)
	}

	var body map[string][]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(body["title"]) == 0 {
		t.Errorf("expected a title error, got %v", body)
	}
	if len(body["status"]) == 0 {
		t.Errorf("expected a status error, got %v", body)
	}
}

func TestHandleCreateRejectsWrongContentType(t *testing.T) {
	h, _ := newHandler(t, &handledJob{})

	req := httptest.NewRequest(http.MethodPost, "/handledjobs", strings.NewReader("title=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.HandleCollection(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %v, want 400", w.Code)
	}
}

func TestHandleListAndRetrieve(t *testing.T) {
	h, _ := newHandler(t, &handledJob{})

	for i, title := range []string{"a", "b", "c"} {
		status := "draft"
		if i > 0 {
			status = "published"
		}
		w := postJSON(t, h, "/handledjobs", map[string]interface{}{
			"title": title, "status": status, "sort_weight": i,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("seed create status = %v", w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/handledjobs?status=published&order=-sort_weight", nil)
	w := httptest.NewRecorder()
	h.HandleCollection(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %v, body = %v", w.Code, w.Body.String())
	}

	body := decodeBodyMap(t, w)
	if body["count"] != float64(2) {
		t.Errorf("count = %v, want 2", body["count"])
	}
	results := body["results"].([]interface{})
	if len(results) != 2 {
		t.Fatalf("len(results) = %v", len(results))
	}
	first := results[0].(map[string]interface{})
	if first["title"] != "c" {
		t.Errorf("first result = %v, want c", first["title"])
	}

	id := first["id"].(string)
	req = httptest.NewRequest(http.MethodGet, "/handledjobs/"+id, nil)
	w = httptest.NewRecorder()
	h.HandleDocument(w, req, id)
	if w.Code != http.StatusOK {
		t.Fatalf("retrieve status = %v", w.Code)
	}
	if got := decodeBodyMap(t, w)["title"]; got != "c" {
		t.Errorf("title = %v", got)
	}
}

func TestHandleRetrieveNotFound(t *testing.T) {
	h, _ := newHandler(t, &handledJob{})

	for _, rawID := range []string{primitive.NewObjectID().Hex(), "not-an-id"} {
		req := httptest.NewRequest(http.MethodGet, "/handledjobs/"+rawID, nil)
		w := httptest.NewRecorder()
		h.HandleDocument(w, req, rawID)
		if w.Code != http.StatusNotFound {
			t.Errorf("retrieve %q status = %v, want 404", rawID, w.Code)
		}
	}
}

func TestHandleUpdate(t *testing.T) {
	h, _ := newHandler(t, &handledJob{})

	created := decodeBodyMap(t, postJSON(t, h, "/handledjobs", map[string]interface{}{
		"title": "old", "sort_weight": 1,
	}))
	id := created["id"].(string)

	// PATCH merges onto the persisted state.
	payload, _ := json.Marshal(map[string]interface{}{"sort_weight": 9})
	req := httptest.NewRequest(http.MethodPatch, "/handledjobs/"+id, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleDocument(w, req, id)
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %v, body = %v", w.Code, w.Body.String())
	}
	body := decodeBodyMap(t, w)
	if body["title"] != "old" {
		t.Errorf("title = %v, partial updates must not clear unsupplied fields", body["title"])
	}
	if body["sort_weight"] != float64(9) {
		t.Errorf("sort_weight = %v", body["sort_weight"])
	}

	// PUT requires the full declared set.
	payload, _ = json.Marshal(map[string]interface{}{"sort_weight": 2})
	req = httptest.NewRequest(http.MethodPut, "/handledjobs/"+id, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	h.HandleDocument(w, req, id)
	if w.Code != http.StatusBadRequest {
		t.Errorf("put without required fields status = %v, want 400", w.Code)
	}

	payload, _ = json.Marshal(map[string]interface{}{"title": "new", "sort_weight": 2})
	req = httptest.NewRequest(http.MethodPut, "/handledjobs/"+id, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	h.HandleDocument(w, req, id)
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %v, body = %v", w.Code, w.Body.String())
	}
	if got := decodeBodyMap(t, w)["title"]; got != "new" {
		t.Errorf("title = %v", got)
	}
}

func TestHandleUpdateNotFound(t *testing.T) {
	h, _ := newHandler(t, &handledJob{})

	payload, _ := json.Marshal(map[string]interface{}{"title": "x"})
	rawID := primitive.NewObjectID().Hex()
	req := httptest.NewRequest(http.MethodPatch, "/handledjobs/"+rawID, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleDocument(w, req, rawID)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %v, want 404", w.Code)
	}
}

func TestHandleDelete(t *testing.T) {
	h, _ := newHandler(t, &handledJob{})

	created := decodeBodyMap(t, postJSON(t, h, "/handledjobs", map[string]interface{}{"title": "x"}))
	id := created["id"].(string)

	req := httptest.NewRequest(http.MethodDelete, "/handledjobs/"+id, nil)
	w := httptest.NewRecorder()
	h.HandleDocument(w, req, id)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %v", w.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/handledjobs/"+id, nil)
	w = httptest.NewRecorder()
	h.HandleDocument(w, req, id)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %v, want 404", w.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newHandler(t, &handledJob{})

	req := httptest.NewRequest(http.MethodDelete, "/handledjobs", nil)
	w := httptest.NewRecorder()
	h.HandleCollection(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("collection status = %v, want 405", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/handledjobs/1", nil)
	w = httptest.NewRecorder()
	h.HandleDocument(w, req, "1")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("document status = %v, want 405", w.Code)
	}
}

func TestPolicyDenial(t *testing.T) {
	h, _ := newHandler(t, &handledJob{})
	h.SetPolicy(auth.PolicyFunc(func(ctx auth.AuthContext) auth.Decision {
		if ctx.Operation == auth.OperationCreate {
			return auth.Deny("writes are closed")
		}
		return auth.Allow()
	}))

	w := postJSON(t, h, "/handledjobs", map[string]interface{}{"title": "x"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %v, want 403", w.Code)
	}
	if detail := decodeBodyMap(t, w)["detail"]; detail != "writes are closed" {
		t.Errorf("detail = %v", detail)
	}

	req := httptest.NewRequest(http.MethodGet, "/handledjobs", nil)
	rec := httptest.NewRecorder()
	h.HandleCollection(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("list status = %v, want 200", rec.Code)
	}
}

func TestETagPrecondition(t *testing.T) {
	h, _ := newHandler(t, &versionedNote{})

	created := postJSON(t, h, "/versionednotes", map[string]interface{}{"text": "v1"})
	if created.Code != http.StatusCreated {
		t.Fatalf("create status = %v", created.Code)
	}
	tag := created.Header().Get("ETag")
	if tag == "" {
		t.Fatal("create response must carry an ETag")
	}
	id := decodeBodyMap(t, created)["id"].(string)

	payload, _ := json.Marshal(map[string]interface{}{"text": "v2"})
	req := httptest.NewRequest(http.MethodPatch, "/versionednotes/"+id, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("If-Match", `W/"deadbeef"`)
	w := httptest.NewRecorder()
	h.HandleDocument(w, req, id)
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("stale If-Match status = %v, want 412", w.Code)
	}

	req = httptest.NewRequest(http.MethodPatch, "/versionednotes/"+id, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("If-Match", tag)
	w = httptest.NewRecorder()
	h.HandleDocument(w, req, id)
	if w.Code != http.StatusOK {
		t.Fatalf("matching If-Match status = %v, body = %v", w.Code, w.Body.String())
	}
}

func TestBeforeCreateHookAbortsCreate(t *testing.T) {
	h, st := newHandler(t, &hookedTicket{})

	w := postJSON(t, h, "/hookedtickets", map[string]interface{}{"title": "blocked"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %v, want 403", w.Code)
	}

	count, err := st.Count(context.Background(), h.Metadata(), query.Options{})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count = %v, aborted creates must not persist", count)
	}
}

func TestBeforeCreateHookStatusCarriesThrough(t *testing.T) {
	h, _ := newHandler(t, &queuedTicket{})

	w := postJSON(t, h, "/queuedtickets", map[string]interface{}{"title": "x"})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %v, want 409 carried by the hook error", w.Code)
	}
	if detail := decodeBodyMap(t, w)["detail"]; detail != "already queued" {
		t.Errorf("detail = %v", detail)
	}
}

func TestCreateOverride(t *testing.T) {
	h, _ := newHandler(t, &handledJob{})
	h.SetCreateOverride(func(_ context.Context, validated map[string]interface{}) (interface{}, error) {
		return &handledJob{
			ID:     primitive.NewObjectID(),
			Title:  validated["title"].(string) + "!",
			Status: "published",
		}, nil
	})

	w := postJSON(t, h, "/handledjobs", map[string]interface{}{"title": "custom"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %v, body = %v", w.Code, w.Body.String())
	}
	body := decodeBodyMap(t, w)
	if body["title"] != "custom!" {
		t.Errorf("title = %v", body["title"])
	}
}

func TestCreateOverrideWithoutIDOmitsLocation(t *testing.T) {
	h, _ := newHandler(t, &handledJob{})
	h.SetCreateOverride(func(_ context.Context, validated map[string]interface{}) (interface{}, error) {
		return &handledJob{Title: validated["title"].(string)}, nil
	})

	w := postJSON(t, h, "/handledjobs", map[string]interface{}{"title": "x"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %v, body = %v", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "" {
		t.Errorf("Location = %q, want none for a zero identifier", loc)
	}
}

func TestUpdateOverrideErrorStatus(t *testing.T) {
	h, _ := newHandler(t, &handledJob{})
	h.SetUpdateOverride(func(_ context.Context, _ interface{}, _ map[string]interface{}, _ bool) (interface{}, error) {
		return nil, statusError{status: http.StatusConflict, msg: "document is locked"}
	})

	payload, _ := json.Marshal(map[string]interface{}{"title": "x"})
	rawID := primitive.NewObjectID().Hex()
	req := httptest.NewRequest(http.MethodPatch, "/handledjobs/"+rawID, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleDocument(w, req, rawID)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %v, want 409", w.Code)
	}
}

type statusError struct {
	status int
	msg    string
}

func (e statusError) Error() string   { return e.msg }
func (e statusError) HTTPStatus() int { return e.status }
