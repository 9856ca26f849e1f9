package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ingestgraph/corpus/internal/adapters/clock"
	"github.com/ingestgraph/corpus/internal/adapters/storage/sqlite"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
	"github.com/ingestgraph/corpus/internal/infrastructure/tools"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	opener := sqlite.NewOpener(t.TempDir(), 8)
	sess := usecases.NewSession(opener, usecases.DefaultConfig())
	registry := tools.NewRegistry(tools.Deps{Log: zerolog.Nop(), TopK: 10})
	return NewServer(registry, sess, clock.System{}, zerolog.Nop(), ":0")
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/health", nil)
	s.handleHealth(rec, req)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleListTools(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/tools", nil)
	s.handleListTools(rec, req)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	names, ok := body["tools"].([]any)
	if !ok || len(names) == 0 {
		t.Fatalf("expected a non-empty tools list, got %+v", body)
	}
}

func TestHandleDispatch_CreateDatabase(t *testing.T) {
	s := newTestServer(t)
	payload, _ := json.Marshal(map[string]any{"name": "corpus-a"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/tools/database.create", bytes.NewReader(payload))
	s.handleDispatch(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp tools.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got error: %+v", resp.Error)
	}
}

func TestHandleDispatch_UnknownTool_Returns400(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/tools/no.such.tool", bytes.NewReader([]byte("{}")))
	s.handleDispatch(rec, req)
	if rec.Code != 400 {
		t.Fatalf("expected 400 for VALIDATION_ERROR, got %d", rec.Code)
	}
}

func TestHandleDispatch_NotSelected_Returns404(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/tools/database.stats", bytes.NewReader([]byte("{}")))
	s.handleDispatch(rec, req)
	if rec.Code != 404 {
		t.Fatalf("expected 404 for DATABASE_NOT_SELECTED, got %d", rec.Code)
	}
}

func TestHandleDispatch_RejectsNonPost(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/tools/database.list", nil)
	s.handleDispatch(rec, req)
	if rec.Code != 405 {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHandleDispatch_UsesSessionHeader(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/tools/database.list", bytes.NewReader([]byte("{}")))
	req.Header.Set(SessionIDHeader, "caller-42")
	s.handleDispatch(rec, req)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	s.manager.mu.Lock()
	_, tracked := s.manager.lastSeen["caller-42"]
	s.manager.mu.Unlock()
	if !tracked {
		t.Errorf("expected session manager to track the caller-42 session id")
	}
}
