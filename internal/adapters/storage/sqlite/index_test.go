package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ingestgraph/corpus/internal/domain/entities"
	"github.com/ingestgraph/corpus/internal/domain/ports"
)

func seedEmbeddedChunk(t *testing.T, s *Store, docID, chunkID, vectorID string, vec []float32) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)

	chunkProv := chunkID + "-prov"
	if err := s.InsertProvenance(context.Background(), &entities.Provenance{
		ID: chunkProv, Type: entities.TypeChunk, SourceType: "chunk", Processor: "test", ProcessorVersion: "1",
		ProcessingParams: map[string]any{}, ContentHash: "c-" + chunkID, RootDocumentID: docID,
		ChainPath: []entities.ProvenanceType{entities.TypeDocument, entities.TypeChunk}, CreatedAt: now, ProcessedAt: now,
	}); err != nil {
		t.Fatalf("seed chunk provenance: %v", err)
	}
	if err := s.InsertChunks(context.Background(), []*entities.Chunk{{
		ID: chunkID, ProvenanceID: chunkProv, DocumentID: docID, Content: "hello world", Index: 0,
		EmbeddingStatus: entities.EmbeddingDone,
	}}); err != nil {
		t.Fatalf("insert chunk: %v", err)
	}

	embProv := vectorID + "-prov"
	if err := s.InsertProvenance(context.Background(), &entities.Provenance{
		ID: embProv, Type: entities.TypeEmbedding, SourceType: "embedding", Processor: "test", ProcessorVersion: "1",
		ProcessingParams: map[string]any{}, ContentHash: "e-" + vectorID, RootDocumentID: docID,
		ChainPath: []entities.ProvenanceType{entities.TypeDocument, entities.TypeChunk, entities.TypeEmbedding}, CreatedAt: now, ProcessedAt: now,
	}); err != nil {
		t.Fatalf("seed embedding provenance: %v", err)
	}
	if err := s.InsertEmbedding(context.Background(), &entities.Embedding{
		ID: vectorID + "-emb", ProvenanceID: embProv, ChunkID: &chunkID, OriginalText: "hello world",
		ModelName: "test-model", ModelVersion: "1", TaskType: "retrieval", VectorID: vectorID,
	}); err != nil {
		t.Fatalf("insert embedding: %v", err)
	}
	if err := s.UpsertVector(context.Background(), vectorID, vec); err != nil {
		t.Fatalf("upsert vector: %v", err)
	}
}

func TestVectorIndex_UpsertGetDelete(t *testing.T) {
	s := newTestStore(t)
	doc := seedDocument(t, s, "doc-a")
	seedEmbeddedChunk(t, s, doc.ID, "chunk-1", "vec-1", make([]float32, 8))

	got, ok, err := s.GetVector(context.Background(), "vec-1")
	if err != nil {
		t.Fatalf("get vector: %v", err)
	}
	if !ok || len(got) != 8 {
		t.Fatalf("expected an 8-dim vector, got ok=%v len=%d", ok, len(got))
	}

	if err := s.DeleteVectors(context.Background(), []string{"vec-1"}); err != nil {
		t.Fatalf("delete vectors: %v", err)
	}
	_, ok, err = s.GetVector(context.Background(), "vec-1")
	if err != nil {
		t.Fatalf("get vector after delete: %v", err)
	}
	if ok {
		t.Errorf("expected vector to be gone after delete")
	}
}

func TestVectorIndex_SearchFiltersByDocument(t *testing.T) {
	s := newTestStore(t)
	docA := seedDocument(t, s, "doc-a")
	docB := seedDocument(t, s, "doc-b")
	seedEmbeddedChunk(t, s, docA.ID, "chunk-a", "vec-a", []float32{1, 0, 0, 0, 0, 0, 0, 0})
	seedEmbeddedChunk(t, s, docB.ID, "chunk-b", "vec-b", []float32{0, 1, 0, 0, 0, 0, 0, 0})

	hits, err := s.SearchVectors(context.Background(), []float32{1, 0, 0, 0, 0, 0, 0, 0}, 10,
		&ports.VectorFilter{DocumentIDs: []string{docA.ID}})
	if err != nil {
		t.Fatalf("search vectors: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "vec-a" {
		t.Fatalf("expected only vec-a to match the doc-a filter, got %+v", hits)
	}
}

func TestVectorIndex_Dimension(t *testing.T) {
	s := newTestStore(t)
	if s.Dimension() != 8 {
		t.Errorf("expected configured dimension 8, got %d", s.Dimension())
	}
}

func TestFTSIndex_IndexSearchDeleteRebuild(t *testing.T) {
	s := newTestStore(t)
	doc := seedDocument(t, s, "doc-a")

	row := entities.FTSRow{Discriminator: entities.FTSChunk, SourceID: "chunk-1", DocumentID: doc.ID, Text: "the quick brown fox"}
	if err := s.IndexRow(context.Background(), row); err != nil {
		t.Fatalf("index row: %v", err)
	}

	hits, err := s.Search(context.Background(), "quick fox", []entities.FTSDiscriminator{entities.FTSChunk}, 10)
	if err != nil {
		t.Fatalf("fts search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "chunk-1" {
		t.Fatalf("expected chunk-1 to match, got %+v", hits)
	}

	if err := s.DeleteRow(context.Background(), entities.FTSChunk, "chunk-1"); err != nil {
		t.Fatalf("delete row: %v", err)
	}
	hits, err = s.Search(context.Background(), "quick fox", []entities.FTSDiscriminator{entities.FTSChunk}, 10)
	if err != nil {
		t.Fatalf("fts search after delete: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits after deleting the indexed row, got %+v", hits)
	}

	if err := s.Rebuild(context.Background(), []entities.FTSRow{row}); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	hits, err = s.Search(context.Background(), "brown", []entities.FTSDiscriminator{entities.FTSChunk}, 10)
	if err != nil {
		t.Fatalf("fts search after rebuild: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected rebuild to restore the indexed row, got %+v", hits)
	}
}
