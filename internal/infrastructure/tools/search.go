package tools

import (
	"context"
	"encoding/json"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/entities"
	"github.com/ingestgraph/corpus/internal/domain/ports"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
)

// searchArgs is the common request shape for all three search modes
// (spec.md §4.4/§6 "search (vector, BM25, hybrid)").
type searchArgs struct {
	Query          string   `json:"query"`
	TopK           int      `json:"top_k"`
	DocumentIDs    []string `json:"document_ids"`
	ImageOnly      bool     `json:"image_only"`
	Threshold      *float64 `json:"threshold"`
	Discriminators []string `json:"discriminators"`
}

func (a searchArgs) filter() *ports.VectorFilter {
	if len(a.DocumentIDs) == 0 && !a.ImageOnly && a.Threshold == nil {
		return nil
	}
	return &ports.VectorFilter{DocumentIDs: a.DocumentIDs, ImageOnly: a.ImageOnly, Threshold: a.Threshold}
}

func (a searchArgs) ftsDiscriminators() []entities.FTSDiscriminator {
	if len(a.Discriminators) == 0 {
		return []entities.FTSDiscriminator{entities.FTSChunk}
	}
	out := make([]entities.FTSDiscriminator, len(a.Discriminators))
	for i, d := range a.Discriminators {
		out[i] = entities.FTSDiscriminator(d)
	}
	return out
}

// registerSearchTools wires spec.md §6's "search (vector, BM25, hybrid)"
// family over RetrievalService.
func registerSearchTools(r *Registry, deps Deps) {
	r.register("search.vector", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args searchArgs
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		if args.Query == "" {
			return nil, corpuserr.Validationf("query is required")
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		hits, err := svc.retrieval.VectorSearch(ctx, args.Query, args.TopK, args.filter())
		if err != nil {
			if cerr, ok := corpuserr.As(err); ok {
				return nil, cerr
			}
			return nil, corpuserr.Internalf("vector search: %v", err)
		}
		return map[string]any{"hits": hits}, nil
	})

	r.register("search.bm25", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args searchArgs
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		if args.Query == "" {
			return nil, corpuserr.Validationf("query is required")
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		hits, err := svc.retrieval.BM25Search(ctx, args.Query, args.TopK, args.ftsDiscriminators())
		if err != nil {
			return nil, corpuserr.Internalf("bm25 search: %v", err)
		}
		return map[string]any{"hits": hits}, nil
	})

	r.register("search.hybrid", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args searchArgs
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		if args.Query == "" {
			return nil, corpuserr.Validationf("query is required")
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		hits, err := svc.retrieval.HybridSearch(ctx, args.Query, args.TopK, args.filter())
		if err != nil {
			if cerr, ok := corpuserr.As(err); ok {
				return nil, cerr
			}
			return nil, corpuserr.Internalf("hybrid search: %v", err)
		}
		return map[string]any{"hits": hits}, nil
	})
}
