package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ingestgraph/corpus/internal/domain/entities"
)

const extractionSelectSQL = `
	SELECT id, provenance_id, document_id, schema_name, payload_json
	FROM extractions`

func scanExtraction(row rowScanner) (*entities.Extraction, error) {
	var e entities.Extraction
	var payload string
	if err := row.Scan(&e.ID, &e.ProvenanceID, &e.DocumentID, &e.SchemaName, &payload); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(payload), &e.Payload)
	return &e, nil
}

func (s *Store) InsertExtraction(ctx context.Context, e *entities.Extraction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, _ := json.Marshal(e.Payload)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO extractions (id, provenance_id, document_id, schema_name, payload_json)
		VALUES (?,?,?,?,?)`,
		e.ID, e.ProvenanceID, e.DocumentID, e.SchemaName, string(payload),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert extraction: %w", err)
	}
	return nil
}

func (s *Store) GetExtraction(ctx context.Context, id string) (*entities.Extraction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, extractionSelectSQL+` WHERE id = ?`, id)
	return scanExtraction(row)
}

func (s *Store) ListExtractionsByDocument(ctx context.Context, documentID string) ([]*entities.Extraction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, extractionSelectSQL+` WHERE document_id = ?`, documentID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list extractions: %w", err)
	}
	defer rows.Close()
	var out []*entities.Extraction
	for rows.Next() {
		e, err := scanExtraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
