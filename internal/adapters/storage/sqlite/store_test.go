package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ingestgraph/corpus/internal/domain/entities"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), 8)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedDocument inserts a root provenance row and a document row referencing
// it, the minimum fixture every cluster/comparison row's foreign keys need.
func seedDocument(t *testing.T, s *Store, id string) *entities.Document {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	provID := id + "-prov"
	prov := &entities.Provenance{
		ID:               provID,
		Type:             entities.TypeDocument,
		SourceType:       "file",
		Processor:        "test",
		ProcessorVersion: "1",
		ProcessingParams: map[string]any{},
		ContentHash:      "hash-" + id,
		RootDocumentID:   id,
		ChainPath:        []entities.ProvenanceType{entities.TypeDocument},
		CreatedAt:        now,
		ProcessedAt:      now,
	}
	if err := s.InsertProvenance(context.Background(), prov); err != nil {
		t.Fatalf("seed provenance %s: %v", id, err)
	}
	doc := &entities.Document{
		ID:           id,
		ProvenanceID: provID,
		FileHash:     "hash-" + id,
		FilePath:     "/tmp/" + id + ".pdf",
		Status:       entities.StatusComplete,
		CreatedAt:    now,
		ModifiedAt:   now,
	}
	if err := s.InsertDocument(context.Background(), doc); err != nil {
		t.Fatalf("seed document %s: %v", id, err)
	}
	return doc
}
