package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ingestgraph/corpus/internal/domain/entities"
)

func seedCluster(t *testing.T, s *Store, id, runID string, docIDs ...string) *entities.Cluster {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	provID := id + "-prov"
	prov := &entities.Provenance{
		ID:               provID,
		Type:             entities.TypeClustering,
		SourceType:       "clustering",
		Processor:        "test",
		ProcessorVersion: "1",
		ProcessingParams: map[string]any{},
		ContentHash:      "chash-" + id,
		RootDocumentID:   id,
		ChainPath:        []entities.ProvenanceType{entities.TypeClustering},
		CreatedAt:        now,
		ProcessedAt:      now,
	}
	if err := s.InsertProvenance(context.Background(), prov); err != nil {
		t.Fatalf("seed cluster provenance: %v", err)
	}
	c := &entities.Cluster{
		ID:             id,
		ProvenanceID:   provID,
		RunID:          runID,
		Algorithm:      "agglomerative",
		Centroid:       []float32{0.1, 0.2},
		TopTerms:       []string{"alpha", "beta"},
		CoherenceScore: 0.9,
		CreatedAt:      now,
	}
	if err := s.InsertClusters(context.Background(), []*entities.Cluster{c}); err != nil {
		t.Fatalf("insert cluster: %v", err)
	}
	var members []*entities.ClusterMember
	for _, d := range docIDs {
		members = append(members, &entities.ClusterMember{
			ClusterID:            id,
			DocumentID:           d,
			SimilarityToCentroid: 0.8,
		})
	}
	if len(members) > 0 {
		if err := s.InsertClusterMembers(context.Background(), members); err != nil {
			t.Fatalf("insert cluster members: %v", err)
		}
	}
	return c
}

func TestClusters_InsertAndList(t *testing.T) {
	s := newTestStore(t)
	seedDocument(t, s, "doc-a")
	seedDocument(t, s, "doc-b")
	seedCluster(t, s, "cl-1", "run-1", "doc-a", "doc-b")

	clusters, err := s.ListClusters(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("list clusters: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if clusters[0].Algorithm != "agglomerative" {
		t.Errorf("unexpected algorithm: %q", clusters[0].Algorithm)
	}
	if len(clusters[0].Centroid) != 2 {
		t.Errorf("centroid not round-tripped: %v", clusters[0].Centroid)
	}

	none, err := s.ListClusters(context.Background(), "no-such-run")
	if err != nil {
		t.Fatalf("list clusters (empty run): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no clusters for unknown run, got %d", len(none))
	}
}

func TestClusters_LastClusterRunAt(t *testing.T) {
	s := newTestStore(t)
	_, _, ok := mustLastRun(t, s)
	if ok {
		t.Fatalf("expected no prior run on an empty store")
	}
	seedDocument(t, s, "doc-a")
	seedCluster(t, s, "cl-1", "run-1", "doc-a")

	ts, ok, err := s.LastClusterRunAt(context.Background())
	if err != nil {
		t.Fatalf("last cluster run: %v", err)
	}
	if !ok {
		t.Fatalf("expected a run timestamp after inserting a cluster")
	}
	if ts <= 0 {
		t.Errorf("expected positive unix timestamp, got %d", ts)
	}
}

func mustLastRun(t *testing.T, s *Store) (int64, bool, error) {
	t.Helper()
	ts, ok, err := s.LastClusterRunAt(context.Background())
	if err != nil {
		t.Fatalf("last cluster run: %v", err)
	}
	return ts, ok, err
}

func TestClusters_ListAndFindMembers(t *testing.T) {
	s := newTestStore(t)
	seedDocument(t, s, "doc-a")
	seedDocument(t, s, "doc-b")
	seedCluster(t, s, "cl-1", "run-1", "doc-a", "doc-b")

	members, err := s.ListClusterMembers(context.Background(), "cl-1")
	if err != nil {
		t.Fatalf("list cluster members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	found, err := s.FindClusterMember(context.Background(), "doc-a")
	if err != nil {
		t.Fatalf("find cluster member: %v", err)
	}
	if found.ClusterID != "cl-1" {
		t.Errorf("expected cluster cl-1, got %q", found.ClusterID)
	}

	if _, err := s.FindClusterMember(context.Background(), "doc-nonexistent"); err == nil {
		t.Errorf("expected an error looking up an unassigned document")
	}
}

func TestClusters_ReassignAndDelete(t *testing.T) {
	s := newTestStore(t)
	seedDocument(t, s, "doc-a")
	seedCluster(t, s, "cl-1", "run-1", "doc-a")
	seedCluster(t, s, "cl-2", "run-1")

	if err := s.ReassignMember(context.Background(), "doc-a", "cl-2"); err != nil {
		t.Fatalf("reassign member: %v", err)
	}
	found, err := s.FindClusterMember(context.Background(), "doc-a")
	if err != nil {
		t.Fatalf("find cluster member after reassign: %v", err)
	}
	if found.ClusterID != "cl-2" {
		t.Errorf("expected reassigned cluster cl-2, got %q", found.ClusterID)
	}

	if err := s.DeleteCluster(context.Background(), "cl-1"); err != nil {
		t.Fatalf("delete cluster: %v", err)
	}
	clusters, err := s.ListClusters(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("list clusters after delete: %v", err)
	}
	if len(clusters) != 1 || clusters[0].ID != "cl-2" {
		t.Errorf("expected only cl-2 to remain, got %+v", clusters)
	}
}
