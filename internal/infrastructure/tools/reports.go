package tools

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/entities"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
)

// registerReportTools wires spec.md §6's "reports (overview, performance,
// errors, trends, cost, evaluation)" family. None of these has a
// dedicated usecase primitive; each aggregates the existing document/
// cluster/provenance store queries, the way the teacher's own stats
// handlers fold raw rows into a summary rather than persisting one.
func registerReportTools(r *Registry, deps Deps) {
	r.register("reports.overview", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		counts := map[string]int{}
		for _, status := range []entities.DocumentStatus{
			entities.StatusPending, entities.StatusProcessing, entities.StatusComplete, entities.StatusFailed,
		} {
			docs, err := svc.store.ListDocuments(ctx, string(status), 0, 0)
			if err != nil {
				return nil, corpuserr.Internalf("listing %s documents: %v", status, err)
			}
			counts[string(status)] = len(docs)
		}
		lastClusterAt, hasClusters, err := svc.store.LastClusterRunAt(ctx)
		if err != nil {
			return nil, corpuserr.Internalf("checking cluster history: %v", err)
		}
		return map[string]any{
			"documents_by_status": counts,
			"has_clusters":        hasClusters,
			"last_cluster_run_at": lastClusterAt,
		}, nil
	})

	r.register("reports.performance", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		docs, err := svc.store.ListDocuments(ctx, string(entities.StatusComplete), 0, 0)
		if err != nil {
			return nil, corpuserr.Internalf("listing complete documents: %v", err)
		}
		if len(docs) == 0 {
			return map[string]any{"sample_size": 0}, nil
		}
		var totalMS int64
		slowest := docs[0]
		for _, d := range docs {
			durationMS := d.ModifiedAt.Sub(d.CreatedAt).Milliseconds()
			totalMS += durationMS
			if durationMS > slowest.ModifiedAt.Sub(slowest.CreatedAt).Milliseconds() {
				slowest = d
			}
		}
		return map[string]any{
			"sample_size":          len(docs),
			"average_duration_ms":  totalMS / int64(len(docs)),
			"slowest_document_id":  slowest.ID,
			"slowest_duration_ms":  slowest.ModifiedAt.Sub(slowest.CreatedAt).Milliseconds(),
		}, nil
	})

	r.register("reports.errors", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		docs, err := svc.store.ListDocuments(ctx, string(entities.StatusFailed), 0, 0)
		if err != nil {
			return nil, corpuserr.Internalf("listing failed documents: %v", err)
		}
		type failure struct {
			DocumentID   string `json:"document_id"`
			FilePath     string `json:"file_path"`
			ErrorMessage string `json:"error_message"`
		}
		out := make([]failure, 0, len(docs))
		for _, d := range docs {
			out = append(out, failure{DocumentID: d.ID, FilePath: d.FilePath, ErrorMessage: d.ErrorMessage})
		}
		return map[string]any{"failures": out}, nil
	})

	r.register("reports.trends", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		docs, err := svc.store.ListDocuments(ctx, "", 0, 0)
		if err != nil {
			return nil, corpuserr.Internalf("listing documents: %v", err)
		}
		byDay := map[string]int{}
		for _, d := range docs {
			byDay[d.CreatedAt.Format("2006-01-02")]++
		}
		days := make([]string, 0, len(byDay))
		for day := range byDay {
			days = append(days, day)
		}
		sort.Strings(days)
		series := make([]map[string]any, 0, len(days))
		for _, day := range days {
			series = append(series, map[string]any{"date": day, "ingested": byDay[day]})
		}
		return map[string]any{"daily_ingestion": series}, nil
	})

	// cost has no billing data anywhere in the store; this reports a
	// rough per-call estimate from fixed unit costs rather than a real
	// ledger, so callers can get an order-of-magnitude number without a
	// pricing integration the corpus doesn't otherwise have.
	r.register("reports.cost", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		const (
			ocrUnitUSD   = 0.01
			vlmUnitUSD   = 0.002
			embedUnitUSD = 0.0001
		)
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		docs, err := svc.store.ListDocuments(ctx, string(entities.StatusComplete), 0, 0)
		if err != nil {
			return nil, corpuserr.Internalf("listing complete documents: %v", err)
		}
		var chunkTotal, embeddingTotal int
		for _, d := range docs {
			n, err := svc.store.CountChunks(ctx, d.ID)
			if err != nil {
				return nil, corpuserr.Internalf("counting chunks: %v", err)
			}
			chunkTotal += n
			n, err = svc.store.CountEmbeddings(ctx, d.ID)
			if err != nil {
				return nil, corpuserr.Internalf("counting embeddings: %v", err)
			}
			embeddingTotal += n
		}
		return map[string]any{
			"documents":          len(docs),
			"estimated_ocr_usd":  float64(len(docs)) * ocrUnitUSD,
			"estimated_embed_usd": float64(embeddingTotal) * embedUnitUSD,
			"estimated_total_usd": float64(len(docs))*ocrUnitUSD + float64(embeddingTotal)*embedUnitUSD,
		}, nil
	})

	// evaluation reuses ProvenanceService.VerifyChain as a read-only
	// corpus-wide quality score, distinct from health.verify which
	// targets one document and from health.fix which may mutate.
	r.register("reports.evaluation", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		docs, err := svc.store.ListDocuments(ctx, string(entities.StatusComplete), 0, 0)
		if err != nil {
			return nil, corpuserr.Internalf("listing complete documents: %v", err)
		}
		ok := 0
		var diverged []string
		for _, d := range docs {
			res, err := svc.prov.VerifyChain(ctx, d.ProvenanceID)
			if err != nil {
				continue
			}
			if res.OK {
				ok++
			} else {
				diverged = append(diverged, d.ID)
			}
		}
		score := 1.0
		if len(docs) > 0 {
			score = float64(ok) / float64(len(docs))
		}
		return map[string]any{
			"documents_checked":  len(docs),
			"chain_intact":       ok,
			"chain_score":        score,
			"diverged_documents": diverged,
		}, nil
	})
}
