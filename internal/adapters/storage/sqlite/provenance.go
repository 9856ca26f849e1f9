package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ingestgraph/corpus/internal/domain/entities"
)

func (s *Store) InsertProvenance(ctx context.Context, p *entities.Provenance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	params, err := json.Marshal(p.ProcessingParams)
	if err != nil {
		return fmt.Errorf("sqlite: marshal processing_params: %w", err)
	}
	parentIDs, _ := json.Marshal(p.ParentIDs)
	chainPath, _ := json.Marshal(p.ChainPath)
	var location sql.NullString
	if p.Location != nil {
		b, err := json.Marshal(p.Location)
		if err != nil {
			return fmt.Errorf("sqlite: marshal location: %w", err)
		}
		location = sql.NullString{String: string(b), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO provenance (
			id, type, source_type, processor, processor_version, processing_params_json,
			content_hash, input_hash, file_hash, parent_id, parent_ids_json, root_document_id,
			chain_depth, chain_path_json, chain_hash, location_json, processing_duration_ms,
			processing_quality_score, created_at, processed_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, string(p.Type), p.SourceType, p.Processor, p.ProcessorVersion, string(params),
		p.ContentHash, p.InputHash, p.FileHash, nullableString(p.ParentID), string(parentIDs), p.RootDocumentID,
		p.ChainDepth, string(chainPath), nullIfEmpty(p.ChainHash), location, p.ProcessingDurationMS,
		nullableFloat(p.ProcessingQualityScore), p.CreatedAt, p.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert provenance: %w", err)
	}
	return nil
}

func (s *Store) GetProvenance(ctx context.Context, id string) (*entities.Provenance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, provenanceSelectSQL+` WHERE id = ?`, id)
	return scanProvenanceRows(row)
}

func (s *Store) GetProvenanceBatch(ctx context.Context, ids []string) (map[string]*entities.Provenance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*entities.Provenance, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders, args := inClause(ids)
	rows, err := s.db.QueryContext(ctx, provenanceSelectSQL+` WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: batch get provenance: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		rec, err := scanProvenanceRows(rows)
		if err != nil {
			return nil, err
		}
		out[rec.ID] = rec
	}
	return out, rows.Err()
}

func (s *Store) ListChildren(ctx context.Context, parentID string) ([]*entities.Provenance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, provenanceSelectSQL+` WHERE parent_id = ? ORDER BY created_at`, parentID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list children: %w", err)
	}
	defer rows.Close()
	var out []*entities.Provenance
	for rows.Next() {
		rec, err := scanProvenanceRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) ListNullChainHash(ctx context.Context) ([]*entities.Provenance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, provenanceSelectSQL+` WHERE chain_hash IS NULL ORDER BY chain_depth`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list null chain hash: %w", err)
	}
	defer rows.Close()
	var out []*entities.Provenance
	for rows.Next() {
		rec, err := scanProvenanceRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) UpdateChainHash(ctx context.Context, id string, chainHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `UPDATE provenance SET chain_hash = ? WHERE id = ?`, chainHash, id)
	if err != nil {
		return fmt.Errorf("sqlite: update chain hash: %w", err)
	}
	return nil
}

// DeleteProvenanceForDocument deletes every provenance row descending from
// the document's own provenance row, EXCLUDING that root row itself
// (spec.md §4.3 "Failure model": cleanup never touches the root DOCUMENT
// provenance). Cascade foreign keys on every child table handle the
// companion rows.
func (s *Store) DeleteProvenanceForDocument(ctx context.Context, documentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rootProvenanceID string
	if err := s.db.QueryRowContext(ctx, `SELECT provenance_id FROM documents WHERE id = ?`, documentID).Scan(&rootProvenanceID); err != nil {
		return 0, fmt.Errorf("sqlite: find root provenance: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM provenance WHERE root_document_id = ? AND id != ?`, rootProvenanceID, rootProvenanceID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete provenance for document: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

const provenanceSelectSQL = `
	SELECT id, type, source_type, processor, processor_version, processing_params_json,
		content_hash, input_hash, file_hash, parent_id, parent_ids_json, root_document_id,
		chain_depth, chain_path_json, chain_hash, location_json, processing_duration_ms,
		processing_quality_score, created_at, processed_at
	FROM provenance`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvenanceRows(row rowScanner) (*entities.Provenance, error) {
	var rec entities.Provenance
	var typ, params, parentIDs, chainPath string
	var parentID, chainHash sql.NullString
	var location sql.NullString
	var quality sql.NullFloat64

	if err := row.Scan(
		&rec.ID, &typ, &rec.SourceType, &rec.Processor, &rec.ProcessorVersion, &params,
		&rec.ContentHash, &rec.InputHash, &rec.FileHash, &parentID, &parentIDs, &rec.RootDocumentID,
		&rec.ChainDepth, &chainPath, &chainHash, &location, &rec.ProcessingDurationMS,
		&quality, &rec.CreatedAt, &rec.ProcessedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: scan provenance: %w", err)
	}

	rec.Type = entities.ProvenanceType(typ)
	if parentID.Valid {
		v := parentID.String
		rec.ParentID = &v
	}
	if chainHash.Valid {
		rec.ChainHash = chainHash.String
	}
	if quality.Valid {
		v := quality.Float64
		rec.ProcessingQualityScore = &v
	}
	_ = json.Unmarshal([]byte(params), &rec.ProcessingParams)
	_ = json.Unmarshal([]byte(parentIDs), &rec.ParentIDs)
	_ = json.Unmarshal([]byte(chainPath), &rec.ChainPath)
	if location.Valid {
		var loc entities.Location
		if err := json.Unmarshal([]byte(location.String), &loc); err == nil {
			rec.Location = &loc
		}
	}
	return &rec, nil
}
