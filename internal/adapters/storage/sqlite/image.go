package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ingestgraph/corpus/internal/domain/entities"
	"github.com/ingestgraph/corpus/internal/domain/ports"
)

const imageSelectSQL = `
	SELECT id, provenance_id, document_id, file_path, content_hash, page, block_type, is_header,
		is_footer, context_text, width, height, vlm_status
	FROM images`

func scanImage(row rowScanner) (*entities.Image, error) {
	var img entities.Image
	var isHeader, isFooter int
	var status string
	if err := row.Scan(&img.ID, &img.ProvenanceID, &img.DocumentID, &img.FilePath, &img.ContentHash,
		&img.Page, &img.BlockType, &isHeader, &isFooter, &img.ContextText, &img.Width, &img.Height, &status); err != nil {
		return nil, err
	}
	img.IsHeader = isHeader != 0
	img.IsFooter = isFooter != 0
	img.VLMStatus = entities.VLMStatus(status)
	return &img, nil
}

func (s *Store) InsertImage(ctx context.Context, img *entities.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	isHeader, isFooter := 0, 0
	if img.IsHeader {
		isHeader = 1
	}
	if img.IsFooter {
		isFooter = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO images (id, provenance_id, document_id, file_path, content_hash, page, block_type,
			is_header, is_footer, context_text, width, height, vlm_status)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		img.ID, img.ProvenanceID, img.DocumentID, img.FilePath, img.ContentHash, img.Page, img.BlockType,
		isHeader, isFooter, img.ContextText, img.Width, img.Height, string(img.VLMStatus),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert image: %w", err)
	}
	return nil
}

func (s *Store) GetImage(ctx context.Context, id string) (*entities.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, imageSelectSQL+` WHERE id = ?`, id)
	return scanImage(row)
}

func (s *Store) ListImagesByDocument(ctx context.Context, documentID string) ([]*entities.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, imageSelectSQL+` WHERE document_id = ? ORDER BY page`, documentID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list images: %w", err)
	}
	defer rows.Close()
	var out []*entities.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

func (s *Store) ListPendingVLM(ctx context.Context, limit int) ([]*entities.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, imageSelectSQL+` WHERE vlm_status = 'pending' ORDER BY document_id, page LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list pending vlm: %w", err)
	}
	defer rows.Close()
	var out []*entities.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

func (s *Store) UpdateImageVLMStatus(ctx context.Context, id string, status entities.VLMStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `UPDATE images SET vlm_status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("sqlite: update image vlm status: %w", err)
	}
	return nil
}

func (s *Store) InsertVLMDescription(ctx context.Context, v *entities.VLMDescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	analysis, _ := json.Marshal(v.Analysis)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vlm_descriptions (id, provenance_id, image_id, description, analysis_json, image_type,
			confidence, model_name)
		VALUES (?,?,?,?,?,?,?,?)`,
		v.ID, v.ProvenanceID, v.ImageID, v.Description, analysis, v.ImageType, v.Confidence, v.ModelName,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert vlm description: %w", err)
	}
	return nil
}

// DeleteImage removes an image's provenance row; the images/vlm_descriptions/
// embeddings rows keyed to it cascade-delete via the schema's foreign keys,
// the same deletion shape as DeleteDocument in document.go.
func (s *Store) DeleteImage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var provenanceID string
	if err := s.db.QueryRowContext(ctx, `SELECT provenance_id FROM images WHERE id = ?`, id).Scan(&provenanceID); err != nil {
		return fmt.Errorf("sqlite: find image provenance: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM provenance WHERE id = ?`, provenanceID); err != nil {
		return fmt.Errorf("sqlite: delete image: %w", err)
	}
	return nil
}

func (s *Store) SearchImages(ctx context.Context, f ports.ImageSearchFilter) ([]*entities.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := imageSelectSQL
	var clauses []string
	var args []any
	if f.ImageType != "" {
		clauses = append(clauses, `id IN (SELECT image_id FROM vlm_descriptions WHERE image_type = ?)`)
		args = append(args, f.ImageType)
	}
	if f.BlockType != "" {
		clauses = append(clauses, `block_type = ?`)
		args = append(args, f.BlockType)
	}
	if f.MinConfidence > 0 {
		clauses = append(clauses, `id IN (SELECT image_id FROM vlm_descriptions WHERE confidence >= ?)`)
		args = append(args, f.MinConfidence)
	}
	if f.Page != nil {
		clauses = append(clauses, `page = ?`)
		args = append(args, *f.Page)
	}
	if f.DescriptionLike != "" {
		clauses = append(clauses, `id IN (SELECT image_id FROM vlm_descriptions WHERE description LIKE ?)`)
		args = append(args, "%"+f.DescriptionLike+"%")
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY document_id, page`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search images: %w", err)
	}
	defer rows.Close()
	var out []*entities.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}
