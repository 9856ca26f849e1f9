package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ingestgraph/corpus/internal/domain/entities"
)

const documentSelectSQL = `
	SELECT id, provenance_id, file_hash, file_path, status, page_count, title, author, subject,
		ocr_completed_at, error_message, created_at, modified_at
	FROM documents`

func scanDocument(row rowScanner) (*entities.Document, error) {
	var d entities.Document
	var status string
	var ocrCompletedAt sql.NullTime
	if err := row.Scan(&d.ID, &d.ProvenanceID, &d.FileHash, &d.FilePath, &status, &d.PageCount,
		&d.Title, &d.Author, &d.Subject, &ocrCompletedAt, &d.ErrorMessage, &d.CreatedAt, &d.ModifiedAt); err != nil {
		return nil, err
	}
	d.Status = entities.DocumentStatus(status)
	if ocrCompletedAt.Valid {
		t := ocrCompletedAt.Time
		d.OCRCompletedAt = &t
	}
	return &d, nil
}

func (s *Store) InsertDocument(ctx context.Context, d *entities.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, provenance_id, file_hash, file_path, status, page_count, title,
			author, subject, ocr_completed_at, error_message, created_at, modified_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.ProvenanceID, d.FileHash, d.FilePath, string(d.Status), d.PageCount, d.Title,
		d.Author, d.Subject, nullableTime(d.OCRCompletedAt), d.ErrorMessage, d.CreatedAt, d.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert document: %w", err)
	}
	return nil
}

func (s *Store) GetDocumentByID(ctx context.Context, id string) (*entities.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, documentSelectSQL+` WHERE id = ?`, id)
	return scanDocument(row)
}

func (s *Store) GetDocumentByPath(ctx context.Context, path string) (*entities.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, documentSelectSQL+` WHERE file_path = ?`, path)
	return scanDocument(row)
}

func (s *Store) GetDocumentByHash(ctx context.Context, hash string) (*entities.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, documentSelectSQL+` WHERE file_hash = ? ORDER BY created_at DESC LIMIT 1`, hash)
	return scanDocument(row)
}

// ClaimPending atomically promotes up to max pending documents to
// processing (spec.md §4.3 "Claim phase (atomic)"): a single UPDATE
// naming the exact rows via a subquery, then a SELECT by the
// fresh modified_at stamp, so two concurrent callers racing this method
// never both win the same row (SQLite serializes writers).
func (s *Store) ClaimPending(ctx context.Context, max int) ([]*entities.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := nowUTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE documents SET status = 'processing', modified_at = ?
		WHERE id IN (
			SELECT id FROM documents WHERE status = 'pending' ORDER BY created_at ASC LIMIT ?
		)`, now, max)
	if err != nil {
		return nil, fmt.Errorf("sqlite: claim pending: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, tx.Commit()
	}

	rows, err := tx.QueryContext(ctx, documentSelectSQL+` WHERE status = 'processing' AND modified_at = ? ORDER BY created_at ASC`, now)
	if err != nil {
		return nil, fmt.Errorf("sqlite: select claimed: %w", err)
	}
	defer rows.Close()
	var out []*entities.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, tx.Commit()
}

func (s *Store) UpdateDocumentStatus(ctx context.Context, id string, status entities.DocumentStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `UPDATE documents SET status = ?, error_message = ?, modified_at = ? WHERE id = ?`,
		string(status), errMsg, nowUTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: update document status: %w", err)
	}
	return nil
}

func (s *Store) UpdateDocumentMetadata(ctx context.Context, id string, title, author, subject string, pageCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `UPDATE documents SET title = ?, author = ?, subject = ?, page_count = ?, modified_at = ? WHERE id = ?`,
		title, author, subject, pageCount, nowUTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: update document metadata: %w", err)
	}
	return nil
}

// ResetStuckProcessing resets processing rows whose modified_at is older
// than olderThanSeconds back to failed (spec.md §9 Open Question 1).
func (s *Store) ResetStuckProcessing(ctx context.Context, olderThanSeconds int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET status = 'failed', error_message = 'reset: exceeded processing threshold', modified_at = ?
		WHERE status = 'processing' AND (strftime('%s', ?) - strftime('%s', modified_at)) > ?`,
		nowUTC(), nowUTC(), olderThanSeconds)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reset stuck processing: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var provenanceID string
	if err := s.db.QueryRowContext(ctx, `SELECT provenance_id FROM documents WHERE id = ?`, id).Scan(&provenanceID); err != nil {
		return fmt.Errorf("sqlite: find document provenance: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM provenance WHERE id = ?`, provenanceID); err != nil {
		return fmt.Errorf("sqlite: delete document: %w", err)
	}
	return nil
}

func (s *Store) ListDocuments(ctx context.Context, statusFilter string, offset, limit int) ([]*entities.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query := documentSelectSQL
	var args []any
	if statusFilter != "" {
		query += ` WHERE status = ?`
		args = append(args, statusFilter)
	}
	query += ` ORDER BY created_at`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list documents: %w", err)
	}
	defer rows.Close()
	var out []*entities.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) SetOCRCompletedAt(ctx context.Context, id string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `UPDATE documents SET ocr_completed_at = ?, modified_at = ? WHERE id = ?`, t, nowUTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: set ocr completed at: %w", err)
	}
	return nil
}

func (s *Store) CountComplete(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE status = 'complete'`).Scan(&n)
	return n, err
}
