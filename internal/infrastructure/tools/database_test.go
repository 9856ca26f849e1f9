package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ingestgraph/corpus/internal/adapters/storage/sqlite"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
)

func newTestRegistryAndSession(t *testing.T) (*Registry, *usecases.Session) {
	t.Helper()
	opener := sqlite.NewOpener(t.TempDir(), 8)
	sess := usecases.NewSession(opener, usecases.DefaultConfig())
	deps := Deps{Log: zerolog.Nop(), TopK: 10}
	return NewRegistry(deps), sess
}

func dispatch(t *testing.T, r *Registry, sess *usecases.Session, name string, args any) Response {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return r.Dispatch(context.Background(), sess, name, raw)
}

func TestDispatch_UnknownTool(t *testing.T) {
	r, sess := newTestRegistryAndSession(t)
	resp := dispatch(t, r, sess, "no.such.tool", map[string]any{})
	if resp.Success {
		t.Fatalf("expected failure for unknown tool")
	}
	if resp.Error.Category != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %q", resp.Error.Category)
	}
}

func TestDatabaseTools_CreateSelectStatsClear(t *testing.T) {
	r, sess := newTestRegistryAndSession(t)

	resp := dispatch(t, r, sess, "database.create", map[string]any{"name": "corpus-a"})
	if !resp.Success {
		t.Fatalf("database.create failed: %+v", resp.Error)
	}

	resp = dispatch(t, r, sess, "database.list", map[string]any{})
	if !resp.Success {
		t.Fatalf("database.list failed: %+v", resp.Error)
	}
	result := resp.Result.(map[string]any)
	dbs := result["databases"].([]string)
	if len(dbs) != 1 || dbs[0] != "corpus-a" {
		t.Errorf("expected [corpus-a], got %v", dbs)
	}

	resp = dispatch(t, r, sess, "database.stats", map[string]any{})
	if !resp.Success {
		t.Fatalf("database.stats failed: %+v", resp.Error)
	}

	resp = dispatch(t, r, sess, "database.clear", map[string]any{})
	if !resp.Success {
		t.Fatalf("database.clear failed: %+v", resp.Error)
	}

	resp = dispatch(t, r, sess, "database.stats", map[string]any{})
	if resp.Success {
		t.Fatalf("expected database.stats to fail with no database selected")
	}
	if resp.Error.Category != "DATABASE_NOT_SELECTED" {
		t.Errorf("expected DATABASE_NOT_SELECTED, got %q", resp.Error.Category)
	}
}

func TestDatabaseTools_CreateRejectsBadName(t *testing.T) {
	r, sess := newTestRegistryAndSession(t)
	resp := dispatch(t, r, sess, "database.create", map[string]any{"name": "bad name!"})
	if resp.Success {
		t.Fatalf("expected database.create to reject an invalid name")
	}
	if resp.Error.Category != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %q", resp.Error.Category)
	}
}

func TestDatabaseTools_DeleteRefusesCurrentSelection(t *testing.T) {
	r, sess := newTestRegistryAndSession(t)
	dispatch(t, r, sess, "database.create", map[string]any{"name": "corpus-a"})

	resp := dispatch(t, r, sess, "database.delete", map[string]any{"name": "corpus-a"})
	if resp.Success {
		t.Fatalf("expected database.delete to refuse deleting the selected database")
	}
}

func TestConfigTools_GetAndSet(t *testing.T) {
	r, sess := newTestRegistryAndSession(t)
	dispatch(t, r, sess, "database.create", map[string]any{"name": "corpus-a"})

	resp := dispatch(t, r, sess, "config.get", map[string]any{})
	if !resp.Success {
		t.Fatalf("config.get failed: %+v", resp.Error)
	}

	resp = dispatch(t, r, sess, "config.set", map[string]any{"max_concurrent": 5})
	if !resp.Success {
		t.Fatalf("config.set failed: %+v", resp.Error)
	}
	if sess.Config().MaxConcurrent != 5 {
		t.Errorf("expected max_concurrent=5 after config.set, got %d", sess.Config().MaxConcurrent)
	}

	resp = dispatch(t, r, sess, "config.set", map[string]any{"max_concurrent": 0})
	if resp.Success {
		t.Fatalf("expected config.set to reject an out-of-range override")
	}
}
