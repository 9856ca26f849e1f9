package sqlite

import (
	"context"
	"testing"
)

func TestPersistedConfig_LoadEmptyThenSaveAndLoad(t *testing.T) {
	s := newTestStore(t)

	cfg, err := s.LoadPersistedConfig(context.Background())
	if err != nil {
		t.Fatalf("load persisted config (empty): %v", err)
	}
	if len(cfg) != 0 {
		t.Errorf("expected empty config before any save, got %+v", cfg)
	}

	overrides := map[string]any{"top_k": float64(25), "ocr_mode": "thorough"}
	if err := s.SavePersistedConfig(context.Background(), overrides); err != nil {
		t.Fatalf("save persisted config: %v", err)
	}

	got, err := s.LoadPersistedConfig(context.Background())
	if err != nil {
		t.Fatalf("load persisted config: %v", err)
	}
	if got["ocr_mode"] != "thorough" {
		t.Errorf("expected ocr_mode=thorough, got %+v", got)
	}
	if got["top_k"] != float64(25) {
		t.Errorf("expected top_k=25, got %+v", got)
	}

	// Saving again should overwrite rather than conflict (id=1 upsert).
	if err := s.SavePersistedConfig(context.Background(), map[string]any{"ocr_mode": "fast"}); err != nil {
		t.Fatalf("save persisted config (overwrite): %v", err)
	}
	got, err = s.LoadPersistedConfig(context.Background())
	if err != nil {
		t.Fatalf("load persisted config (after overwrite): %v", err)
	}
	if got["ocr_mode"] != "fast" {
		t.Errorf("expected ocr_mode=fast after overwrite, got %+v", got)
	}
	if _, ok := got["top_k"]; ok {
		t.Errorf("expected top_k to be gone after full overwrite, got %+v", got)
	}
}
