package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ingestgraph/corpus/internal/domain/entities"
)

func TestComparisons_InsertGetFind(t *testing.T) {
	s := newTestStore(t)
	a := seedDocument(t, s, "doc-a")
	b := seedDocument(t, s, "doc-b")
	now := time.Now().UTC().Truncate(time.Second)

	prov := &entities.Provenance{
		ID:               "cmp-prov",
		Type:             entities.TypeComparison,
		SourceType:       "comparison",
		Processor:        "test",
		ProcessorVersion: "1",
		ProcessingParams: map[string]any{},
		ContentHash:      "cmphash",
		RootDocumentID:   a.ID,
		ChainPath:        []entities.ProvenanceType{entities.TypeComparison},
		CreatedAt:        now,
		ProcessedAt:      now,
	}
	if err := s.InsertProvenance(context.Background(), prov); err != nil {
		t.Fatalf("seed comparison provenance: %v", err)
	}

	cmp := &entities.Comparison{
		ID:           "cmp-1",
		ProvenanceID: prov.ID,
		DocumentAID:  a.ID,
		DocumentBID:  b.ID,
		TextDiff:     entities.TextDiff{Ratio: 0.5},
		StructuralDiff: entities.StructuralDiff{
			ChunkCountA: 1,
			ChunkCountB: 2,
		},
		ContentHash: "chash",
		CreatedAt:   now,
	}
	if err := s.InsertComparison(context.Background(), cmp); err != nil {
		t.Fatalf("insert comparison: %v", err)
	}

	got, err := s.GetComparison(context.Background(), "cmp-1")
	if err != nil {
		t.Fatalf("get comparison: %v", err)
	}
	if got.TextDiff.Ratio != 0.5 {
		t.Errorf("text diff not round-tripped: %+v", got.TextDiff)
	}
	if got.StructuralDiff.ChunkCountB != 2 {
		t.Errorf("structural diff not round-tripped: %+v", got.StructuralDiff)
	}

	found, err := s.FindComparison(context.Background(), a.ID, b.ID)
	if err != nil {
		t.Fatalf("find comparison (a,b): %v", err)
	}
	if found == nil {
		t.Fatalf("expected comparison for ordered pair (a,b)")
	}

	// Comparisons are keyed by ordered pair: the reverse direction must not
	// match the (a,b) row.
	reverse, err := s.FindComparison(context.Background(), b.ID, a.ID)
	if err != nil {
		t.Fatalf("find comparison (b,a): %v", err)
	}
	if reverse != nil {
		t.Errorf("expected no comparison for reversed pair (b,a), got %+v", reverse)
	}

	list, err := s.ListComparisons(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("list comparisons: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 comparison touching doc-a, got %d", len(list))
	}
}
