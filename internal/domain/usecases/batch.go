package usecases

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ingestgraph/corpus/internal/domain/entities"
)

// BatchResult aggregates the outcome of processing many documents in one
// call (spec.md §4.3 "Batching"): a batch id, wall-clock duration, and
// per-document results including any post-processing warnings.
type BatchResult struct {
	BatchID       string
	Processed     int
	Failed        int
	Results       []PipelineResult
	DurationMS    int64
	ClusteringRan bool
	ClusterInfo   string
}

// ProcessBatch claims up to max pending documents and runs each through
// the pipeline in bounded-parallel waves of cfg.MaxConcurrent
// (spec.md §4.3 "Batching", §5 "Parallelism bound"). After any non-zero
// progress it rebuilds the FTS index and, when the auto-cluster
// conditions hold, triggers a clustering run; clustering failure is
// captured in ClusterInfo and never turns the batch itself into a
// failure (spec.md §4.6 "Auto-clustering trigger").
func (o *Orchestrator) ProcessBatch(ctx context.Context, max int, cfg Config) (BatchResult, error) {
	start := time.Now()
	docs, err := o.ClaimPending(ctx, max)
	if err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{BatchID: uuid.NewString()}
	if len(docs) == 0 {
		result.DurationMS = time.Since(start).Milliseconds()
		return result, nil
	}

	waveWidth := cfg.MaxConcurrent
	if waveWidth < 1 {
		waveWidth = 1
	}

	results := make([]PipelineResult, len(docs))
	sem := make(chan struct{}, waveWidth)
	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, doc *entities.Document) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = o.ProcessDocument(ctx, doc, cfg)
		}(i, doc)
	}
	wg.Wait()

	for _, r := range results {
		result.Results = append(result.Results, r)
		if r.Status == entities.StatusComplete {
			result.Processed++
		} else {
			result.Failed++
		}
	}

	if err := o.rebuildIndexes(ctx); err != nil {
		o.log.Error().Err(err).Msg("post-batch index rebuild failed")
	}

	if o.clustering != nil && cfg.AutoClusterEnabled {
		if ran, info := o.maybeAutoCluster(ctx, cfg); ran {
			result.ClusteringRan = true
			result.ClusterInfo = info
		} else if info != "" {
			result.ClusterInfo = info
		}
	}

	result.DurationMS = time.Since(start).Milliseconds()
	return result, nil
}

// RebuildIndexes is the exported entry point for spec.md §6's
// "chunks/embeddings (..., rebuild)" tool: a full FTS rebuild on demand,
// outside the post-batch trigger in ProcessBatch.
func (o *Orchestrator) RebuildIndexes(ctx context.Context) error {
	return o.rebuildIndexes(ctx)
}

// rebuildIndexes rebuilds the FTS index from the current chunk/VLM/
// extraction rows. The vector index needs no rebuild: UpsertVector is
// already durable per embedding.
func (o *Orchestrator) rebuildIndexes(ctx context.Context) error {
	docs, err := o.store.ListDocuments(ctx, string(entities.StatusComplete), 0, 0)
	if err != nil {
		return err
	}
	var rows []entities.FTSRow
	for _, doc := range docs {
		chunks, err := o.store.ListChunksByDocument(ctx, doc.ID)
		if err != nil {
			return err
		}
		for _, c := range chunks {
			rows = append(rows, entities.FTSRow{Discriminator: entities.FTSChunk, SourceID: c.ID, DocumentID: doc.ID, Text: c.Content})
		}
		extractions, err := o.store.ListExtractionsByDocument(ctx, doc.ID)
		if err != nil {
			return err
		}
		for _, e := range extractions {
			rows = append(rows, entities.FTSRow{Discriminator: entities.FTSExtraction, SourceID: e.ID, DocumentID: doc.ID, Text: fmt.Sprintf("%v", e.Payload)})
		}
	}
	return o.store.Rebuild(ctx, rows)
}

// maybeAutoCluster runs clustering when the database holds at least
// AutoClusterThreshold complete documents and at least an hour has
// passed since the last run (spec.md §4.6). It reports whether it ran
// and an informational message either way.
func (o *Orchestrator) maybeAutoCluster(ctx context.Context, cfg Config) (bool, string) {
	count, err := o.store.CountComplete(ctx)
	if err != nil {
		return false, "auto-cluster check failed: " + err.Error()
	}
	if count < cfg.AutoClusterThreshold {
		return false, ""
	}
	lastRunAt, ok, err := o.store.LastClusterRunAt(ctx)
	if err != nil {
		return false, "auto-cluster check failed: " + err.Error()
	}
	if ok && time.Since(time.Unix(lastRunAt, 0)) < time.Hour {
		return false, ""
	}

	docs, err := o.store.ListDocuments(ctx, string(entities.StatusComplete), 0, 0)
	if err != nil {
		return false, "auto-cluster failed to list documents: " + err.Error()
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}

	res, err := o.clustering.Run(ctx, cfg.AutoClusterAlgorithm, 0.7, ids)
	if err != nil {
		o.log.Warn().Err(err).Msg("auto-cluster run failed")
		return false, "auto-cluster failed: " + err.Error()
	}
	return true, "auto-clustered into " + strconv.Itoa(res.ClusterCount) + " clusters"
}
