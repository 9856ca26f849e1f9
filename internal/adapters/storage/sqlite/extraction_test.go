package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ingestgraph/corpus/internal/domain/entities"
)

func TestExtractions_InsertGetList(t *testing.T) {
	s := newTestStore(t)
	doc := seedDocument(t, s, "doc-a")
	now := time.Now().UTC().Truncate(time.Second)

	prov := &entities.Provenance{
		ID:               "ext-prov",
		Type:             entities.TypeExtraction,
		SourceType:       "extraction",
		Processor:        "test",
		ProcessorVersion: "1",
		ProcessingParams: map[string]any{},
		ContentHash:      "ehash",
		RootDocumentID:   doc.ID,
		ChainPath:        []entities.ProvenanceType{entities.TypeDocument, entities.TypeExtraction},
		CreatedAt:        now,
		ProcessedAt:      now,
	}
	if err := s.InsertProvenance(context.Background(), prov); err != nil {
		t.Fatalf("seed extraction provenance: %v", err)
	}

	ext := &entities.Extraction{
		ID:           "ext-1",
		ProvenanceID: prov.ID,
		DocumentID:   doc.ID,
		SchemaName:   "invoice_v1",
		Payload:      map[string]any{"total": float64(42)},
	}
	if err := s.InsertExtraction(context.Background(), ext); err != nil {
		t.Fatalf("insert extraction: %v", err)
	}

	got, err := s.GetExtraction(context.Background(), "ext-1")
	if err != nil {
		t.Fatalf("get extraction: %v", err)
	}
	if got.SchemaName != "invoice_v1" {
		t.Errorf("unexpected schema name: %q", got.SchemaName)
	}
	if got.Payload["total"] != float64(42) {
		t.Errorf("payload not round-tripped: %+v", got.Payload)
	}

	list, err := s.ListExtractionsByDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("list extractions: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 extraction, got %d", len(list))
	}
}
