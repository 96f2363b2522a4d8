package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jpalmerr/labboard/internal/engine"
	"github.com/jpalmerr/labboard/internal/model"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func TestAPI_View(t *testing.T) {
	h := NewServer(newTestDashboard(t), 0, nil, "", testLogger()).Handler()

	rec := do(t, h, http.MethodGet, "/api/view", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	snap := decodeBody[engine.Snapshot](t, rec)
	if len(snap.Groups) != 1 || len(snap.Groups[0].Cards) != 2 {
		t.Fatalf("unexpected view: %+v", snap.View)
	}
	if len(snap.Visible) != 2 {
		t.Errorf("Visible = %v, want both cards", snap.Visible)
	}

	rec = do(t, h, http.MethodGet, "/api/view?q=ROUTER", "")
	snap = decodeBody[engine.Snapshot](t, rec)
	if len(snap.Visible) != 1 || snap.Visible[0] != "g0-s1" {
		t.Errorf("Visible = %v, want [g0-s1]", snap.Visible)
	}

	rec = do(t, h, http.MethodGet, "/api/view?tags=storage,net", "")
	snap = decodeBody[engine.Snapshot](t, rec)
	if len(snap.Visible) != 0 {
		t.Errorf("Visible = %v, want none for conjunctive tags", snap.Visible)
	}
}

func TestAPI_EditorApplyRejectsInvalidBuffer(t *testing.T) {
	dash := newTestDashboard(t)
	h := NewServer(dash, 0, nil, "", testLogger()).Handler()
	before := dash.View().Generation

	rec := do(t, h, http.MethodPut, "/api/editor", `{"text":"{\"groups\":["}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("put status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/editor/apply", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("apply status = %d, want 400", rec.Code)
	}
	if got := decodeBody[errorResponse](t, rec); got.Error == "" {
		t.Error("expected error message")
	}
	if dash.View().Generation != before {
		t.Error("failed apply must not re-render")
	}

	rec = do(t, h, http.MethodGet, "/api/editor", "")
	if got := decodeBody[textRequest](t, rec); got.Text != `{"groups":[` {
		t.Errorf("buffer = %q, want untouched", got.Text)
	}
}

func TestAPI_EditorApply(t *testing.T) {
	dash := newTestDashboard(t)
	h := NewServer(dash, 0, nil, "", testLogger()).Handler()

	do(t, h, http.MethodPut, "/api/editor", `{"text":"{\"groups\":[{\"name\":\"Edited\",\"servers\":[]}]}"}`)
	rec := do(t, h, http.MethodPost, "/api/editor/apply", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("apply status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := dash.View().Groups[0].Name; got != "Edited" {
		t.Errorf("rendered group = %q, want Edited", got)
	}
}

func TestAPI_Templates(t *testing.T) {
	h := NewServer(newTestDashboard(t), 0, nil, "", testLogger()).Handler()

	rec := do(t, h, http.MethodPost, "/api/editor/template/server", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody[textRequest](t, rec); !strings.Contains(got.Text, "New Server") {
		t.Errorf("buffer missing template: %s", got.Text)
	}

	rec = do(t, h, http.MethodPost, "/api/editor/template/rack", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown kind status = %d, want 400", rec.Code)
	}
}

func TestAPI_ExportImport(t *testing.T) {
	h := NewServer(newTestDashboard(t), 0, nil, "", testLogger()).Handler()

	rec := do(t, h, http.MethodGet, "/api/editor/export", "")
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "servers.json") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	exported := rec.Body.String()

	rec = do(t, h, http.MethodPost, "/api/editor/import", exported)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := model.Encode(decodeBody[model.Configuration](t, rec)); got != exported {
		t.Errorf("round trip mismatch:\n%s\nvs\n%s", got, exported)
	}

	rec = do(t, h, http.MethodPost, "/api/editor/import", `[1,2]`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid import status = %d, want 400", rec.Code)
	}
}

func TestAPI_MergeDiscovered(t *testing.T) {
	h := NewServer(newTestDashboard(t), 0, nil, "", testLogger()).Handler()

	rec := do(t, h, http.MethodPost, "/api/discoveries/merge", `{"ip":"10.0.0.9"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[textRequest](t, rec); !strings.Contains(got.Text, `"name": "Discovered"`) {
		t.Errorf("buffer missing Discovered group: %s", got.Text)
	}

	rec = do(t, h, http.MethodPost, "/api/discoveries/merge", `{"ip":"10.9.9.9"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown host status = %d, want 404", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/discoveries/merge", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d, want 400", rec.Code)
	}
}

func TestAPI_BackupsAndRestoreConfirmation(t *testing.T) {
	h := NewServer(newTestDashboard(t), 0, nil, "", testLogger()).Handler()

	rec := do(t, h, http.MethodGet, "/api/backups", "")
	names := decodeBody[[]string](t, rec)
	if len(names) != 2 || names[0] != "servers-2.json" {
		t.Errorf("backups = %v, want newest first", names)
	}

	rec = do(t, h, http.MethodPost, "/api/backups/servers-1.json/restore", `{"confirm":false}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("unconfirmed restore status = %d, want 409", rec.Code)
	}
}

func TestAPI_FilterAndSession(t *testing.T) {
	h := NewServer(newTestDashboard(t), 0, nil, "", testLogger()).Handler()

	rec := do(t, h, http.MethodPost, "/api/filter/tags/storage", "")
	state := decodeBody[engine.FilterState](t, rec)
	if len(state.ActiveTags) != 1 || state.ActiveTags[0] != "storage" {
		t.Errorf("ActiveTags = %v", state.ActiveTags)
	}

	rec = do(t, h, http.MethodGet, "/api/view", "")
	if snap := decodeBody[engine.Snapshot](t, rec); len(snap.Visible) != 1 {
		t.Errorf("Visible = %v, want only the storage server", snap.Visible)
	}

	rec = do(t, h, http.MethodDelete, "/api/filter/tags", "")
	if state := decodeBody[engine.FilterState](t, rec); len(state.ActiveTags) != 0 {
		t.Errorf("ActiveTags = %v after clear", state.ActiveTags)
	}

	rec = do(t, h, http.MethodPost, "/api/filter/query", `{"text":"nas"}`)
	if rec.Code != http.StatusAccepted {
		t.Errorf("query status = %d, want 202", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/session/key", `{"value":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty key status = %d, want 400", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/api/session/bearer", `{"value":"token"}`)
	if rec.Code != http.StatusNoContent {
		t.Errorf("bearer status = %d, want 204", rec.Code)
	}
}

func TestAPI_Schedule_RejectsBounds(t *testing.T) {
	h := NewServer(newTestDashboard(t), 0, nil, "", testLogger()).Handler()

	rec := do(t, h, http.MethodPost, "/api/schedule", `{"enabled":true,"interval_min":-5}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
