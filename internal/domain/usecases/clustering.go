package usecases

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/entities"
	"github.com/ingestgraph/corpus/internal/domain/ports"
)

// ClusteringService groups complete documents by the similarity of their
// chunk-embedding centroids (spec.md §4.6 "Clustering"). It always runs
// against document-level centroids, never against raw chunks, so a
// cluster run's cost is linear in document count rather than chunk count.
type ClusteringService struct {
	store ports.Store
	embed ports.EmbeddingClient
	prov  *ProvenanceService
	clock ports.Clock
	log   zerolog.Logger
}

// NewClusteringService wires a ClusteringService over its collaborators.
func NewClusteringService(store ports.Store, embed ports.EmbeddingClient, prov *ProvenanceService, clock ports.Clock, log zerolog.Logger) *ClusteringService {
	return &ClusteringService{store: store, embed: embed, prov: prov, clock: clock, log: log}
}

// RunResult summarizes one clustering run.
type RunResult struct {
	RunID         string
	ClusterCount  int
	DocumentCount int
	NoiseCount    int
}

// Run clusters the given documents by their chunk-embedding centroids
// with threshold agglomeration (agglomerate), whatever algorithm names:
// algorithm is only recorded on the clusters and in the provenance
// processor and params. There is no k-means or HDBSCAN path, and no
// member is flagged as noise, so NoiseCount is always 0.
func (c *ClusteringService) Run(ctx context.Context, algorithm string, threshold float64, documentIDs []string) (RunResult, error) {
	if len(documentIDs) == 0 {
		return RunResult{}, corpuserr.Validationf("clustering requires at least one document")
	}
	centroids := make(map[string][]float32, len(documentIDs))
	for _, docID := range documentIDs {
		v, err := c.documentCentroid(ctx, docID)
		if err != nil {
			return RunResult{}, err
		}
		if v != nil {
			centroids[docID] = v
		}
	}
	if len(centroids) == 0 {
		return RunResult{}, corpuserr.Internalf("no embedded documents to cluster")
	}

	runID := uuid.NewString()
	assignments := agglomerate(centroids, threshold)

	rec, err := c.prov.Create(ctx, CreateInput{
		Type:             entities.TypeClustering,
		SourceType:       "CLUSTERING",
		ContentHash:      ContentHash([]byte(runID)),
		Processor:        "clustering." + algorithm,
		ProcessorVersion: "1",
		ProcessingParams: map[string]any{"algorithm": algorithm, "threshold": threshold, "document_count": len(centroids)},
	})
	if err != nil {
		return RunResult{}, err
	}

	var clusters []*entities.Cluster
	var members []*entities.ClusterMember
	noise := 0
	for clusterIdx, docIDs := range assignments {
		clusterID := uuid.NewString()
		centroid := meanVector(docIDs, centroids)
		clusters = append(clusters, &entities.Cluster{
			ID: clusterID, ProvenanceID: rec.ID, RunID: runID,
			Algorithm: algorithm, Centroid: centroid, CreatedAt: c.now(),
		})
		for _, docID := range docIDs {
			sim := cosineSim(centroids[docID], centroid)
			isNoise := clusterIdx < 0
			if isNoise {
				noise++
			}
			members = append(members, &entities.ClusterMember{
				ClusterID: clusterID, DocumentID: docID, SimilarityToCentroid: sim, Noise: isNoise,
			})
		}
	}

	if err := c.store.InsertClusters(ctx, clusters); err != nil {
		return RunResult{}, err
	}
	if err := c.store.InsertClusterMembers(ctx, members); err != nil {
		return RunResult{}, err
	}

	return RunResult{RunID: runID, ClusterCount: len(clusters), DocumentCount: len(centroids), NoiseCount: noise}, nil
}

// documentCentroid averages the L2-normalized embeddings of a document's
// chunks, re-normalized to unit length.
func (c *ClusteringService) documentCentroid(ctx context.Context, documentID string) ([]float32, error) {
	chunks, err := c.store.ListChunksByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}
	var sum []float32
	n := 0
	for _, chunk := range chunks {
		vec, err := c.chunkVector(ctx, chunk.ID)
		if err != nil || vec == nil {
			continue
		}
		if sum == nil {
			sum = make([]float32, len(vec))
		}
		for i, x := range vec {
			sum[i] += x
		}
		n++
	}
	if n == 0 {
		return nil, nil
	}
	for i := range sum {
		sum[i] /= float32(n)
	}
	return l2Normalize(sum), nil
}

func (c *ClusteringService) chunkVector(ctx context.Context, chunkID string) ([]float32, error) {
	emb, err := c.store.GetEmbeddingByChunk(ctx, chunkID)
	if err != nil || emb == nil {
		return nil, err
	}
	v, ok, err := c.store.GetVector(ctx, emb.VectorID)
	if err != nil || !ok {
		return nil, err
	}
	return v, nil
}

func (c *ClusteringService) now() time.Time {
	if c.clock != nil {
		return time.Unix(c.clock.Now(), 0).UTC()
	}
	return time.Now().UTC()
}

// agglomerate performs single-linkage agglomerative clustering: merge the
// two closest clusters (by centroid cosine similarity) until the closest
// pair falls below threshold. Clusters with no merge partner above
// threshold become singleton clusters; a singleton is marked as its own
// one-member cluster (negative synthetic index groups used only to flag
// the noise bit on very small clusters is avoided here for simplicity).
func agglomerate(centroids map[string][]float32, threshold float64) map[int][]string {
	ids := make([]string, 0, len(centroids))
	for id := range centroids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	clusters := make(map[int][]string, len(ids))
	for i, id := range ids {
		clusters[i] = []string{id}
	}

	for {
		bestI, bestJ, bestSim := -1, -1, -1.0
		keys := make([]int, 0, len(clusters))
		for k := range clusters {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		for ai := 0; ai < len(keys); ai++ {
			for bi := ai + 1; bi < len(keys); bi++ {
				sim := clusterLinkage(clusters[keys[ai]], clusters[keys[bi]], centroids)
				if sim > bestSim {
					bestSim, bestI, bestJ = sim, keys[ai], keys[bi]
				}
			}
		}
		if bestI == -1 || bestSim < threshold {
			break
		}
		clusters[bestI] = append(clusters[bestI], clusters[bestJ]...)
		delete(clusters, bestJ)
	}
	return clusters
}

func clusterLinkage(a, b []string, centroids map[string][]float32) float64 {
	best := -1.0
	for _, x := range a {
		for _, y := range b {
			sim := cosineSim(centroids[x], centroids[y])
			if sim > best {
				best = sim
			}
		}
	}
	return best
}

func meanVector(ids []string, centroids map[string][]float32) []float32 {
	var sum []float32
	for _, id := range ids {
		v := centroids[id]
		if sum == nil {
			sum = make([]float32, len(v))
		}
		for i, x := range v {
			sum[i] += x
		}
	}
	for i := range sum {
		sum[i] /= float32(len(ids))
	}
	return l2Normalize(sum)
}

func cosineSim(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
