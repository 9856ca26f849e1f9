package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ingestgraph/corpus/internal/domain/entities"
)

const embeddingSelectSQL = `
	SELECT id, provenance_id, chunk_id, image_id, extraction_id, original_text, model_name,
		model_version, task_type, inference_mode, vector_id
	FROM embeddings`

func scanEmbedding(row rowScanner) (*entities.Embedding, error) {
	var e entities.Embedding
	var chunkID, imageID, extractionID sql.NullString
	if err := row.Scan(&e.ID, &e.ProvenanceID, &chunkID, &imageID, &extractionID, &e.OriginalText,
		&e.ModelName, &e.ModelVersion, &e.TaskType, &e.InferenceMode, &e.VectorID); err != nil {
		return nil, err
	}
	if chunkID.Valid {
		v := chunkID.String
		e.ChunkID = &v
	}
	if imageID.Valid {
		v := imageID.String
		e.ImageID = &v
	}
	if extractionID.Valid {
		v := extractionID.String
		e.ExtractionID = &v
	}
	return &e, nil
}

func (s *Store) InsertEmbedding(ctx context.Context, e *entities.Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (id, provenance_id, chunk_id, image_id, extraction_id, original_text,
			model_name, model_version, task_type, inference_mode, vector_id)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.ProvenanceID, nullableString(e.ChunkID), nullableString(e.ImageID), nullableString(e.ExtractionID),
		e.OriginalText, e.ModelName, e.ModelVersion, e.TaskType, e.InferenceMode, e.VectorID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert embedding: %w", err)
	}
	return nil
}

func (s *Store) GetEmbedding(ctx context.Context, id string) (*entities.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, embeddingSelectSQL+` WHERE id = ?`, id)
	return scanEmbedding(row)
}

func (s *Store) GetEmbeddingByChunk(ctx context.Context, chunkID string) (*entities.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, embeddingSelectSQL+` WHERE chunk_id = ? LIMIT 1`, chunkID)
	e, err := scanEmbedding(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (s *Store) CountEmbeddings(ctx context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM embeddings e JOIN chunks c ON c.id = e.chunk_id WHERE c.document_id = ?`, documentID).Scan(&n)
	return n, err
}

func (s *Store) InsertOCRResult(ctx context.Context, r *entities.OCRResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pageOffsets, _ := json.Marshal(r.PageOffsets)
	blockTree, _ := json.Marshal(r.BlockTree)
	extras, _ := json.Marshal(r.Extras)
	durations, _ := json.Marshal(r.StepDurationsMS)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ocr_results (id, provenance_id, document_id, text, page_offsets_json, block_tree_json,
			mode, extras_json, step_durations_json)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		r.ID, r.ProvenanceID, r.DocumentID, r.Text, string(pageOffsets), string(blockTree), r.Mode,
		string(extras), string(durations),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert ocr result: %w", err)
	}
	return nil
}

func (s *Store) UpdateOCRExtras(ctx context.Context, documentID string, extras map[string]any, stepDurations map[string]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	extrasJSON, _ := json.Marshal(extras)
	durationsJSON, _ := json.Marshal(stepDurations)
	_, err := s.db.ExecContext(ctx, `
		UPDATE ocr_results SET extras_json = ?, step_durations_json = ? WHERE document_id = ?`,
		string(extrasJSON), string(durationsJSON), documentID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update ocr extras: %w", err)
	}
	return nil
}

func (s *Store) GetOCRResultByDocument(ctx context.Context, documentID string) (*entities.OCRResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `
		SELECT id, provenance_id, document_id, text, page_offsets_json, block_tree_json, mode, extras_json, step_durations_json
		FROM ocr_results WHERE document_id = ?`, documentID)

	var r entities.OCRResult
	var pageOffsets, blockTree, extras, durations string
	if err := row.Scan(&r.ID, &r.ProvenanceID, &r.DocumentID, &r.Text, &pageOffsets, &blockTree, &r.Mode, &extras, &durations); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(pageOffsets), &r.PageOffsets)
	_ = json.Unmarshal([]byte(blockTree), &r.BlockTree)
	_ = json.Unmarshal([]byte(extras), &r.Extras)
	_ = json.Unmarshal([]byte(durations), &r.StepDurationsMS)
	return &r, nil
}
