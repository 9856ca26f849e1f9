package tools

import (
	"context"
	"encoding/json"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/entities"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
)

// registerComparisonTools wires spec.md §6's "comparison (compare, list,
// get, discover, batch, matrix)" family over ComparisonService.
func registerComparisonTools(r *Registry, deps Deps) {
	r.register("comparison.compare", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			DocumentAID string `json:"document_a_id"`
			DocumentBID string `json:"document_b_id"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		cmp, err := svc.comparison.Compare(ctx, args.DocumentAID, args.DocumentBID)
		if err != nil {
			if cerr, ok := corpuserr.As(err); ok {
				return nil, cerr
			}
			return nil, corpuserr.Internalf("comparing documents: %v", err)
		}
		return cmp, nil
	})

	r.register("comparison.list", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			DocumentID string `json:"document_id"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		comparisons, err := svc.store.ListComparisons(ctx, args.DocumentID)
		if err != nil {
			return nil, corpuserr.Internalf("listing comparisons: %v", err)
		}
		return map[string]any{"comparisons": comparisons}, nil
	})

	r.register("comparison.get", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			ComparisonID string `json:"comparison_id"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		cmp, err := svc.store.GetComparison(ctx, args.ComparisonID)
		if err != nil {
			return nil, corpuserr.Internalf("comparison %q not found: %v", args.ComparisonID, err)
		}
		return cmp, nil
	})

	// discover surfaces candidate documents worth comparing against a given
	// one, using the document's own clustering membership rather than an
	// O(n^2) all-pairs sweep: two documents sharing a cluster are similar
	// by the centroid-linkage threshold already applied when the cluster
	// was formed.
	r.register("comparison.discover", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			DocumentID string `json:"document_id"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		if args.DocumentID == "" {
			return nil, corpuserr.Validationf("document_id is required")
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		own, err := svc.store.FindClusterMember(ctx, args.DocumentID)
		if err != nil {
			return map[string]any{"document_id": args.DocumentID, "candidates": []string{}}, nil
		}
		siblings, err := svc.store.ListClusterMembers(ctx, own.ClusterID)
		if err != nil {
			return nil, corpuserr.Internalf("listing cluster members: %v", err)
		}
		candidates := make([]string, 0, len(siblings))
		for _, m := range siblings {
			if m.DocumentID != args.DocumentID {
				candidates = append(candidates, m.DocumentID)
			}
		}
		return map[string]any{"document_id": args.DocumentID, "cluster_id": own.ClusterID, "candidates": candidates}, nil
	})

	r.register("comparison.batch", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			Pairs [][2]string `json:"pairs"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		out := make([]*entities.Comparison, 0, len(args.Pairs))
		for _, pair := range args.Pairs {
			cmp, err := svc.comparison.Compare(ctx, pair[0], pair[1])
			if err != nil {
				continue
			}
			out = append(out, cmp)
		}
		return map[string]any{"comparisons": out, "requested": len(args.Pairs), "succeeded": len(out)}, nil
	})

	r.register("comparison.matrix", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			DocumentIDs []string `json:"document_ids"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		if len(args.DocumentIDs) < 2 {
			return nil, corpuserr.Validationf("document_ids must name at least 2 documents")
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		matrix := make(map[string]map[string]*entities.Comparison, len(args.DocumentIDs))
		for _, a := range args.DocumentIDs {
			matrix[a] = make(map[string]*entities.Comparison, len(args.DocumentIDs)-1)
			for _, b := range args.DocumentIDs {
				if a == b {
					continue
				}
				cmp, err := svc.comparison.Compare(ctx, a, b)
				if err != nil {
					continue
				}
				matrix[a][b] = cmp
			}
		}
		return map[string]any{"matrix": matrix}, nil
	})
}
