package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ingestgraph/corpus/internal/domain/entities"
)

const chunkSelectSQL = `
	SELECT id, provenance_id, document_id, content, chunk_index, char_start, char_end, page,
		page_range_start, page_range_end, heading_context_json, section_path, content_type_tags_json,
		atomic, overlap_previous, overlap_next, table_meta_json, embedding_status, system_tags_json
	FROM chunks`

func scanChunk(row rowScanner) (*entities.Chunk, error) {
	var c entities.Chunk
	var page, pageStart, pageEnd sql.NullInt64
	var headingJSON, tagsJSON, systemTagsJSON string
	var tableMetaJSON sql.NullString
	var status string
	var atomic int

	if err := row.Scan(&c.ID, &c.ProvenanceID, &c.DocumentID, &c.Content, &c.Index, &c.CharStart, &c.CharEnd,
		&page, &pageStart, &pageEnd, &headingJSON, &c.SectionPath, &tagsJSON, &atomic, &c.OverlapPrevious,
		&c.OverlapNext, &tableMetaJSON, &status, &systemTagsJSON); err != nil {
		return nil, err
	}
	c.Atomic = atomic != 0
	c.EmbeddingStatus = entities.EmbeddingStatus(status)
	if page.Valid {
		v := int(page.Int64)
		c.Page = &v
	}
	if pageStart.Valid {
		v := int(pageStart.Int64)
		c.PageRangeStart = &v
	}
	if pageEnd.Valid {
		v := int(pageEnd.Int64)
		c.PageRangeEnd = &v
	}
	_ = json.Unmarshal([]byte(headingJSON), &c.HeadingContext)
	_ = json.Unmarshal([]byte(tagsJSON), &c.ContentTypeTags)
	_ = json.Unmarshal([]byte(systemTagsJSON), &c.SystemTags)
	if tableMetaJSON.Valid {
		var tm entities.TableMetadata
		if err := json.Unmarshal([]byte(tableMetaJSON.String), &tm); err == nil {
			c.TableMeta = &tm
		}
	}
	return &c, nil
}

func (s *Store) InsertChunks(ctx context.Context, chunks []*entities.Chunk) error {
	if len(chunks) == 0 {
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
		INSERT INTO chunks (id, provenance_id, document_id, content, chunk_index, char_start, char_end,
			page, page_range_start, page_range_end, heading_context_json, section_path,
			content_type_tags_json, atomic, overlap_previous, overlap_next, table_meta_json,
			embedding_status, system_tags_json)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert chunks: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		heading, _ := json.Marshal(c.HeadingContext)
		tags, _ := json.Marshal(c.ContentTypeTags)
		systemTags, _ := json.Marshal(c.SystemTags)
		var tableMeta sql.NullString
		if c.TableMeta != nil {
			b, _ := json.Marshal(c.TableMeta)
			tableMeta = sql.NullString{String: string(b), Valid: true}
		}
		atomic := 0
		if c.Atomic {
			atomic = 1
		}
		_, err := stmt.ExecContext(ctx, c.ID, c.ProvenanceID, c.DocumentID, c.Content, c.Index, c.CharStart,
			c.CharEnd, nullableInt(c.Page), nullableInt(c.PageRangeStart), nullableInt(c.PageRangeEnd),
			string(heading), c.SectionPath, string(tags), atomic, c.OverlapPrevious, c.OverlapNext,
			tableMeta, string(c.EmbeddingStatus), string(systemTags))
		if err != nil {
			return fmt.Errorf("sqlite: insert chunk %q: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetChunk(ctx context.Context, id string) (*entities.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, chunkSelectSQL+` WHERE id = ?`, id)
	return scanChunk(row)
}

func (s *Store) ListChunksByDocument(ctx context.Context, documentID string) ([]*entities.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, chunkSelectSQL+` WHERE document_id = ? ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list chunks: %w", err)
	}
	defer rows.Close()
	var out []*entities.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) TagChunks(ctx context.Context, ids []string, tag string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, id := range ids {
		var systemTagsJSON string
		if err := tx.QueryRowContext(ctx, `SELECT system_tags_json FROM chunks WHERE id = ?`, id).Scan(&systemTagsJSON); err != nil {
			return fmt.Errorf("sqlite: tag chunk %q: %w", id, err)
		}
		var tags []string
		_ = json.Unmarshal([]byte(systemTagsJSON), &tags)
		if !contains(tags, tag) {
			tags = append(tags, tag)
		}
		b, _ := json.Marshal(tags)
		if _, err := tx.ExecContext(ctx, `UPDATE chunks SET system_tags_json = ? WHERE id = ?`, string(b), id); err != nil {
			return fmt.Errorf("sqlite: update chunk tags %q: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *Store) CountChunks(ctx context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE document_id = ?`, documentID).Scan(&n)
	return n, err
}

func contains(ss []string, target string) bool {
	for _, s := range ss {
		if s == target {
			return true
		}
	}
	return false
}
