package usecases

import (
	"context"
	"sort"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/entities"
	"github.com/ingestgraph/corpus/internal/domain/ports"
)

// RetrievalService answers queries over a document's embedded chunks: pure
// vector similarity, pure BM25, or a reciprocal-rank-fusion hybrid of both
// (spec.md §4.4). Grounded on the teacher's QueryUseCase, generalized from
// a single vector lookup + LLM answer into the three retrieval modes
// spec.md names (no LLM answer generation — see DESIGN.md "Deleted/
// trimmed teacher code").
type RetrievalService struct {
	store ports.Store
	embed ports.EmbeddingClient
	topK  int
}

// NewRetrievalService wires a RetrievalService over its collaborators.
// topK is the default result count when a caller does not override it.
func NewRetrievalService(store ports.Store, embed ports.EmbeddingClient, topK int) *RetrievalService {
	if topK <= 0 {
		topK = 5
	}
	return &RetrievalService{store: store, embed: embed, topK: topK}
}

// rrfK is the reciprocal-rank-fusion constant (spec.md §4.4: k=60).
const rrfK = 60

// Hit is one search result surfaced to callers, carrying both fused and
// per-method scores so callers can explain why a result ranked where it
// did.
type Hit struct {
	ChunkID     string
	Score       float64
	VectorRank  int     // 0 = not present in the vector result set
	VectorScore float64 // raw cosine similarity, carried through for tie-breaking fused hits
	BM25Rank    int     // 0 = not present in the BM25 result set
}

// VectorSearch embeds the query and returns the topK nearest chunks by
// cosine similarity (spec.md §4.4 "Vector search").
func (r *RetrievalService) VectorSearch(ctx context.Context, query string, topK int, filter *ports.VectorFilter) ([]Hit, error) {
	if topK <= 0 {
		topK = r.topK
	}
	resp, err := r.embed.EmbedBatch(ctx, ports.EmbedRequest{Texts: []string{query}, TaskType: "search_query"})
	if err != nil {
		return nil, corpuserr.Embedding(err)
	}
	if len(resp.Vectors) != 1 {
		return nil, corpuserr.Internalf("embedding service returned %d vectors for 1 query", len(resp.Vectors))
	}
	vec := l2Normalize(resp.Vectors[0])

	scored, err := r.store.SearchVectors(ctx, vec, topK, filter)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, len(scored))
	for i, s := range scored {
		hits[i] = Hit{ChunkID: s.ID, Score: s.Score, VectorRank: i + 1, VectorScore: s.Score}
	}
	return hits, nil
}

// BM25Search runs the inverted full-text index (spec.md §4.4 "BM25
// search").
func (r *RetrievalService) BM25Search(ctx context.Context, query string, topK int, discriminators []entities.FTSDiscriminator) ([]Hit, error) {
	if topK <= 0 {
		topK = r.topK
	}
	scored, err := r.store.Search(ctx, query, discriminators, topK)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, len(scored))
	for i, s := range scored {
		hits[i] = Hit{ChunkID: s.ID, Score: s.Score, BM25Rank: i + 1}
	}
	return hits, nil
}

// HybridSearch fuses vector and BM25 results with reciprocal rank fusion
// (spec.md §4.4 "Hybrid search"): fused_score = Σ 1/(k + rank) over the
// methods a chunk appears in, ranked descending.
func (r *RetrievalService) HybridSearch(ctx context.Context, query string, topK int, filter *ports.VectorFilter) ([]Hit, error) {
	if topK <= 0 {
		topK = r.topK
	}
	// Pull a wider candidate pool from each method than the final topK, so
	// fusion has enough signal to reorder correctly.
	poolSize := topK * 4
	if poolSize < 20 {
		poolSize = 20
	}

	vecHits, err := r.VectorSearch(ctx, query, poolSize, filter)
	if err != nil {
		return nil, err
	}
	bm25Hits, err := r.BM25Search(ctx, query, poolSize, []entities.FTSDiscriminator{entities.FTSChunk})
	if err != nil {
		return nil, err
	}

	fused := make(map[string]*Hit)
	for _, h := range vecHits {
		fused[h.ChunkID] = &Hit{ChunkID: h.ChunkID, VectorRank: h.VectorRank, VectorScore: h.VectorScore}
	}
	for _, h := range bm25Hits {
		if existing, ok := fused[h.ChunkID]; ok {
			existing.BM25Rank = h.BM25Rank
		} else {
			fused[h.ChunkID] = &Hit{ChunkID: h.ChunkID, BM25Rank: h.BM25Rank}
		}
	}

	out := make([]Hit, 0, len(fused))
	for _, h := range fused {
		if h.VectorRank > 0 {
			h.Score += 1.0 / float64(rrfK+h.VectorRank)
		}
		if h.BM25Rank > 0 {
			h.Score += 1.0 / float64(rrfK+h.BM25Rank)
		}
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].VectorScore != out[j].VectorScore {
			return out[i].VectorScore > out[j].VectorScore
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// ImageSearch filters images by type/block/confidence/page/description
// (spec.md §4.4 "Image search").
func (r *RetrievalService) ImageSearch(ctx context.Context, filter ports.ImageSearchFilter) ([]*entities.Image, error) {
	return r.store.SearchImages(ctx, filter)
}
