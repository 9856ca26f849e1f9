package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ingestgraph/corpus/internal/domain/entities"
)

const comparisonSelectSQL = `
	SELECT id, provenance_id, document_a_id, document_b_id, text_diff_json, structural_diff_json,
		content_hash, created_at
	FROM comparisons`

func scanComparison(row rowScanner) (*entities.Comparison, error) {
	var c entities.Comparison
	var textDiff, structDiff string
	if err := row.Scan(&c.ID, &c.ProvenanceID, &c.DocumentAID, &c.DocumentBID, &textDiff, &structDiff,
		&c.ContentHash, &c.CreatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(textDiff), &c.TextDiff)
	_ = json.Unmarshal([]byte(structDiff), &c.StructuralDiff)
	return &c, nil
}

func (s *Store) InsertComparison(ctx context.Context, c *entities.Comparison) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	textDiff, _ := json.Marshal(c.TextDiff)
	structDiff, _ := json.Marshal(c.StructuralDiff)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comparisons (id, provenance_id, document_a_id, document_b_id, text_diff_json,
			structural_diff_json, content_hash, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.ProvenanceID, c.DocumentAID, c.DocumentBID, string(textDiff), string(structDiff),
		c.ContentHash, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert comparison: %w", err)
	}
	return nil
}

func (s *Store) GetComparison(ctx context.Context, id string) (*entities.Comparison, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, comparisonSelectSQL+` WHERE id = ?`, id)
	return scanComparison(row)
}

// FindComparison looks up a comparison by its exact ordered pair: spec.md
// treats (A,B) and (B,A) as distinct runs, so this never swaps the args.
func (s *Store) FindComparison(ctx context.Context, docA, docB string) (*entities.Comparison, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, comparisonSelectSQL+` WHERE document_a_id = ? AND document_b_id = ?`, docA, docB)
	c, err := scanComparison(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (s *Store) ListComparisons(ctx context.Context, documentID string) ([]*entities.Comparison, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, comparisonSelectSQL+` WHERE document_a_id = ? OR document_b_id = ? ORDER BY created_at`,
		documentID, documentID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list comparisons: %w", err)
	}
	defer rows.Close()
	var out []*entities.Comparison
	for rows.Next() {
		c, err := scanComparison(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
