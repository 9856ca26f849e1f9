package sqlite

import (
	"context"
	"fmt"

	"github.com/ingestgraph/corpus/internal/domain/entities"
	"github.com/ingestgraph/corpus/internal/domain/ports"
)

// Dimension, UpsertVector, GetVector, and DeleteVectors pass straight
// through to the embedded vector index: none of them need document/image
// ownership, which only vectorindex.SearchVectors's caller (here) knows
// how to resolve.

func (s *Store) Dimension() int { return s.vec.Dimension() }

func (s *Store) UpsertVector(ctx context.Context, id string, v []float32) error {
	return s.vec.UpsertVector(ctx, id, v)
}

func (s *Store) GetVector(ctx context.Context, id string) ([]float32, bool, error) {
	return s.vec.GetVector(ctx, id)
}

func (s *Store) DeleteVectors(ctx context.Context, ids []string) error {
	return s.vec.DeleteVectors(ctx, ids)
}

// SearchVectors resolves filter.DocumentIDs/ImageOnly here rather than in
// vectorindex, since vec0 has no notion of document or image ownership:
// it over-fetches from the vec0 index, then joins each candidate's
// vector_id through embeddings/chunks/images to decide whether it
// belongs to an allowed document (or, for ImageOnly, whether its
// embedding is image-sourced), trimming to topK afterward.
func (s *Store) SearchVectors(ctx context.Context, query []float32, topK int, filter *ports.VectorFilter) ([]ports.ScoredID, error) {
	needsJoin := filter != nil && (len(filter.DocumentIDs) > 0 || filter.ImageOnly)
	fetchK := topK
	if needsJoin {
		fetchK = topK * 8
		if fetchK < 200 {
			fetchK = 200
		}
	}

	hits, err := s.vec.SearchVectors(ctx, query, fetchK, filter)
	if err != nil {
		return nil, err
	}
	if !needsJoin {
		if len(hits) > topK {
			hits = hits[:topK]
		}
		return hits, nil
	}

	allowed := make(map[string]bool, len(filter.DocumentIDs))
	for _, id := range filter.DocumentIDs {
		allowed[id] = true
	}

	out := make([]ports.ScoredID, 0, topK)
	for _, h := range hits {
		ownerDoc, isImage, err := s.vectorOwner(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		if filter.ImageOnly && !isImage {
			continue
		}
		if len(allowed) > 0 && !allowed[ownerDoc] {
			continue
		}
		out = append(out, h)
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

// vectorOwner reports the owning document id and whether the embedding's
// source is an image, for one vector_id.
func (s *Store) vectorOwner(ctx context.Context, vectorID string) (documentID string, isImage bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chunkDoc, imageDoc string
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(c.document_id, ''), COALESCE(i.document_id, '')
		FROM embeddings e
		LEFT JOIN chunks c ON c.id = e.chunk_id
		LEFT JOIN images i ON i.id = e.image_id
		WHERE e.vector_id = ?`, vectorID)
	if err := row.Scan(&chunkDoc, &imageDoc); err != nil {
		return "", false, fmt.Errorf("sqlite: resolve vector owner %q: %w", vectorID, err)
	}
	if imageDoc != "" {
		return imageDoc, true, nil
	}
	return chunkDoc, false, nil
}

func (s *Store) IndexRow(ctx context.Context, row entities.FTSRow) error {
	return s.fts.IndexRow(ctx, row)
}

func (s *Store) DeleteRow(ctx context.Context, discriminator entities.FTSDiscriminator, sourceID string) error {
	return s.fts.DeleteRow(ctx, discriminator, sourceID)
}

func (s *Store) Search(ctx context.Context, q string, discriminators []entities.FTSDiscriminator, topK int) ([]ports.ScoredID, error) {
	return s.fts.Search(ctx, q, discriminators, topK)
}

func (s *Store) Rebuild(ctx context.Context, rows []entities.FTSRow) error {
	return s.fts.Rebuild(ctx, rows)
}
