package usecases

import (
	"context"
	"testing"

	"github.com/ingestgraph/corpus/internal/adapters/storage/sqlite"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	opener := sqlite.NewOpener(t.TempDir(), 8)
	return NewSession(opener, DefaultConfig())
}

func TestSession_CurrentDatabase_NoneSelected(t *testing.T) {
	s := newTestSession(t)
	if _, _, err := s.CurrentDatabase(); err == nil {
		t.Fatalf("expected DATABASE_NOT_SELECTED before any selection")
	}
}

func TestSession_CreateSelectClear(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	if err := s.CreateDatabase(ctx, "corpus-a"); err != nil {
		t.Fatalf("create database: %v", err)
	}
	gen1 := s.Generation()
	if gen1 == 0 {
		t.Errorf("expected generation to advance past 0 after create")
	}

	store, name, err := s.CurrentDatabase()
	if err != nil {
		t.Fatalf("current database after create: %v", err)
	}
	if name != "corpus-a" || store == nil {
		t.Fatalf("unexpected current database: name=%q store=%v", name, store)
	}

	if err := s.ClearDatabase(); err != nil {
		t.Fatalf("clear database: %v", err)
	}
	if _, _, err := s.CurrentDatabase(); err == nil {
		t.Errorf("expected no database selected after clear")
	}
	if s.Generation() <= gen1 {
		t.Errorf("expected generation to advance again after clear")
	}
}

func TestSession_CreateDatabase_AlreadyExists(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	if err := s.CreateDatabase(ctx, "corpus-a"); err != nil {
		t.Fatalf("create database: %v", err)
	}
	if err := s.CreateDatabase(ctx, "corpus-a"); err == nil {
		t.Fatalf("expected ALREADY_EXISTS creating a duplicate database")
	}
}

func TestSession_SelectDatabase_NotFound(t *testing.T) {
	s := newTestSession(t)
	if err := s.SelectDatabase(context.Background(), "nonexistent"); err == nil {
		t.Fatalf("expected NOT_FOUND selecting an unknown database")
	}
}

func TestSession_DeleteDatabase_RefusesCurrentSelection(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	if err := s.CreateDatabase(ctx, "corpus-a"); err != nil {
		t.Fatalf("create database: %v", err)
	}
	if err := s.DeleteDatabase(ctx, "corpus-a"); err == nil {
		t.Fatalf("expected delete of the currently selected database to be refused")
	}
}

func TestSession_BeginOp_BlocksSelectDatabase(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	if err := s.CreateDatabase(ctx, "corpus-a"); err != nil {
		t.Fatalf("create database: %v", err)
	}
	if err := s.CreateDatabase(ctx, "corpus-b"); err != nil {
		t.Fatalf("create second database: %v", err)
	}

	guard := s.BeginOp()
	defer guard.End()

	if err := s.SelectDatabase(ctx, "corpus-a"); err == nil {
		t.Fatalf("expected selection to be blocked while an op is in flight")
	}
}

func TestSession_OpGuard_CheckFresh(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()
	if err := s.CreateDatabase(ctx, "corpus-a"); err != nil {
		t.Fatalf("create database: %v", err)
	}

	guard := s.BeginOp()
	if err := guard.CheckFresh(); err != nil {
		t.Fatalf("expected guard to be fresh immediately after BeginOp: %v", err)
	}
	guard.End()

	if err := s.CreateDatabase(ctx, "corpus-b"); err != nil {
		t.Fatalf("create second database: %v", err)
	}
	if err := guard.CheckFresh(); err == nil {
		t.Fatalf("expected STALE_DATABASE_REFERENCE after generation advanced")
	}
}

func TestSession_OpGuard_EndIsIdempotent(t *testing.T) {
	s := newTestSession(t)
	guard := s.BeginOp()
	if s.ActiveOperations() != 1 {
		t.Fatalf("expected 1 active op, got %d", s.ActiveOperations())
	}
	guard.End()
	guard.End()
	if s.ActiveOperations() != 0 {
		t.Fatalf("expected 0 active ops after double End, got %d", s.ActiveOperations())
	}
}

func TestSession_ToolSessionLifecycle(t *testing.T) {
	s := newTestSession(t)
	local := s.ToolSessionFor(LocalSessionID, "")
	if local.ID != LocalSessionID {
		t.Fatalf("expected well-known local session, got %+v", local)
	}

	other := s.ToolSessionFor("caller-1", "user-42")
	if other.UserID != "user-42" {
		t.Errorf("expected user id to be recorded, got %+v", other)
	}

	s.EvictToolSession("caller-1")
	recreated := s.ToolSessionFor("caller-1", "")
	if recreated.UserID != "" {
		t.Errorf("expected eviction to drop prior state, got %+v", recreated)
	}

	// Evicting the well-known local session must be a no-op.
	s.EvictToolSession(LocalSessionID)
	stillThere := s.ToolSessionFor(LocalSessionID, "")
	if stillThere.ID != LocalSessionID {
		t.Errorf("expected local session to survive eviction attempts")
	}
}

func TestConfig_SetConfig_RejectsInvalid(t *testing.T) {
	s := newTestSession(t)
	bad := DefaultConfig()
	bad.MaxConcurrent = 0
	if err := s.SetConfig(bad); err == nil {
		t.Fatalf("expected SetConfig to reject an invalid config")
	}
	if s.Config().MaxConcurrent == 0 {
		t.Errorf("expected rejected config to not be installed")
	}
}
