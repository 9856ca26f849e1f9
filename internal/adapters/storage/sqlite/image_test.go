package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ingestgraph/corpus/internal/domain/entities"
	"github.com/ingestgraph/corpus/internal/domain/ports"
)

func seedImage(t *testing.T, s *Store, id string, doc *entities.Document, page int, blockType string) *entities.Image {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	provID := id + "-prov"
	prov := &entities.Provenance{
		ID:               provID,
		Type:             entities.TypeImage,
		SourceType:       "image",
		Processor:        "test",
		ProcessorVersion: "1",
		ProcessingParams: map[string]any{},
		ContentHash:      "ihash-" + id,
		RootDocumentID:   doc.ID,
		ChainPath:        []entities.ProvenanceType{entities.TypeDocument, entities.TypeImage},
		CreatedAt:        now,
		ProcessedAt:      now,
	}
	if err := s.InsertProvenance(context.Background(), prov); err != nil {
		t.Fatalf("seed image provenance: %v", err)
	}
	img := &entities.Image{
		ID:           id,
		ProvenanceID: provID,
		DocumentID:   doc.ID,
		FilePath:     "/tmp/" + id + ".png",
		ContentHash:  "ihash-" + id,
		Page:         page,
		BlockType:    blockType,
		VLMStatus:    entities.VLMPending,
	}
	if err := s.InsertImage(context.Background(), img); err != nil {
		t.Fatalf("insert image: %v", err)
	}
	return img
}

func TestImages_InsertGetListAndVLM(t *testing.T) {
	s := newTestStore(t)
	doc := seedDocument(t, s, "doc-a")
	img1 := seedImage(t, s, "img-1", doc, 1, "figure")
	seedImage(t, s, "img-2", doc, 2, "table")

	got, err := s.GetImage(context.Background(), img1.ID)
	if err != nil {
		t.Fatalf("get image: %v", err)
	}
	if got.BlockType != "figure" {
		t.Errorf("unexpected block type: %q", got.BlockType)
	}

	list, err := s.ListImagesByDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("list images by document: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 images, got %d", len(list))
	}

	pending, err := s.ListPendingVLM(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending vlm: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending images, got %d", len(pending))
	}

	if err := s.UpdateImageVLMStatus(context.Background(), img1.ID, entities.VLMDone); err != nil {
		t.Fatalf("update vlm status: %v", err)
	}
	pending, err = s.ListPendingVLM(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending vlm after update: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending image after marking one done, got %d", len(pending))
	}

	if err := s.InsertVLMDescription(context.Background(), &entities.VLMDescription{
		ID:           "vlm-1",
		ProvenanceID: img1.ProvenanceID,
		ImageID:      img1.ID,
		Description:  "a bar chart",
		Analysis:     map[string]any{"kind": "chart"},
		ImageType:    "chart",
		Confidence:   0.95,
		ModelName:    "llava",
	}); err != nil {
		t.Fatalf("insert vlm description: %v", err)
	}

	found, err := s.SearchImages(context.Background(), ports.ImageSearchFilter{ImageType: "chart"})
	if err != nil {
		t.Fatalf("search images by type: %v", err)
	}
	if len(found) != 1 || found[0].ID != img1.ID {
		t.Errorf("expected to find img-1 via image_type filter, got %+v", found)
	}

	byDesc, err := s.SearchImages(context.Background(), ports.ImageSearchFilter{DescriptionLike: "bar"})
	if err != nil {
		t.Fatalf("search images by description: %v", err)
	}
	if len(byDesc) != 1 {
		t.Errorf("expected 1 match for description substring, got %d", len(byDesc))
	}
}

func TestImages_Delete(t *testing.T) {
	s := newTestStore(t)
	doc := seedDocument(t, s, "doc-a")
	img := seedImage(t, s, "img-1", doc, 1, "figure")

	if err := s.DeleteImage(context.Background(), img.ID); err != nil {
		t.Fatalf("delete image: %v", err)
	}
	if _, err := s.GetImage(context.Background(), img.ID); err == nil {
		t.Errorf("expected image to be gone after delete")
	}
}
