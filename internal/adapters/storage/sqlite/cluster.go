package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ingestgraph/corpus/internal/domain/entities"
)

func (s *Store) InsertClusters(ctx context.Context, clusters []*entities.Cluster) error {
	if len(clusters) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO clusters (id, provenance_id, run_id, algorithm, centroid_json, top_terms_json, coherence_score, created_at)
		VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert clusters: %w", err)
	}
	defer stmt.Close()

	for _, c := range clusters {
		centroid, _ := json.Marshal(c.Centroid)
		topTerms, _ := json.Marshal(c.TopTerms)
		if _, err := stmt.ExecContext(ctx, c.ID, c.ProvenanceID, c.RunID, c.Algorithm, string(centroid),
			string(topTerms), c.CoherenceScore, c.CreatedAt); err != nil {
			return fmt.Errorf("sqlite: insert cluster %q: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) InsertClusterMembers(ctx context.Context, members []*entities.ClusterMember) error {
	if len(members) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cluster_members (cluster_id, document_id, similarity_to_centroid, noise)
		VALUES (?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert cluster members: %w", err)
	}
	defer stmt.Close()

	for _, m := range members {
		noise := 0
		if m.Noise {
			noise = 1
		}
		if _, err := stmt.ExecContext(ctx, m.ClusterID, m.DocumentID, m.SimilarityToCentroid, noise); err != nil {
			return fmt.Errorf("sqlite: insert cluster member %q/%q: %w", m.ClusterID, m.DocumentID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) ListClusters(ctx context.Context, runID string) ([]*entities.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provenance_id, run_id, algorithm, centroid_json, top_terms_json, coherence_score, created_at
		FROM clusters WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list clusters: %w", err)
	}
	defer rows.Close()
	var out []*entities.Cluster
	for rows.Next() {
		var c entities.Cluster
		var centroid, topTerms string
		if err := rows.Scan(&c.ID, &c.ProvenanceID, &c.RunID, &c.Algorithm, &centroid, &topTerms,
			&c.CoherenceScore, &c.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(centroid), &c.Centroid)
		_ = json.Unmarshal([]byte(topTerms), &c.TopTerms)
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *Store) LastClusterRunAt(ctx context.Context) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ts int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(strftime('%s', MAX(created_at)), '0') FROM clusters`).Scan(&ts)
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: last cluster run: %w", err)
	}
	return ts, ts > 0, nil
}

func (s *Store) ReassignMember(ctx context.Context, documentID, newClusterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `UPDATE cluster_members SET cluster_id = ? WHERE document_id = ?`, newClusterID, documentID)
	if err != nil {
		return fmt.Errorf("sqlite: reassign member: %w", err)
	}
	return nil
}

func (s *Store) ListClusterMembers(ctx context.Context, clusterID string) ([]*entities.ClusterMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT cluster_id, document_id, similarity_to_centroid, noise
		FROM cluster_members WHERE cluster_id = ?`, clusterID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list cluster members: %w", err)
	}
	defer rows.Close()
	var out []*entities.ClusterMember
	for rows.Next() {
		var m entities.ClusterMember
		var noise int
		if err := rows.Scan(&m.ClusterID, &m.DocumentID, &m.SimilarityToCentroid, &noise); err != nil {
			return nil, err
		}
		m.Noise = noise != 0
		out = append(out, &m)
	}
	return out, rows.Err()
}

// FindClusterMember locates a document's membership in the most recent
// clustering run it was assigned by (cluster_members carries no run_id of
// its own, so this joins through clusters.created_at).
func (s *Store) FindClusterMember(ctx context.Context, documentID string) (*entities.ClusterMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var m entities.ClusterMember
	var noise int
	err := s.db.QueryRowContext(ctx, `
		SELECT cm.cluster_id, cm.document_id, cm.similarity_to_centroid, cm.noise
		FROM cluster_members cm
		JOIN clusters c ON c.id = cm.cluster_id
		WHERE cm.document_id = ?
		ORDER BY c.created_at DESC LIMIT 1`, documentID).Scan(&m.ClusterID, &m.DocumentID, &m.SimilarityToCentroid, &noise)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find cluster member: %w", err)
	}
	m.Noise = noise != 0
	return &m, nil
}

func (s *Store) DeleteCluster(ctx context.Context, clusterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM clusters WHERE id = ?`, clusterID); err != nil {
		return fmt.Errorf("sqlite: delete cluster: %w", err)
	}
	return nil
}
