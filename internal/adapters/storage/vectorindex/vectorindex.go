// Package vectorindex wraps the sqlite-vec virtual table as the fixed-
// dimension vector similarity index spec.md §4.2 describes: an extension
// loaded at database open, storing L2-normalized vectors and answering
// cosine-similarity top-K queries via the vec0 module's native ANN.
package vectorindex

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/ingestgraph/corpus/internal/domain/ports"
)

func init() {
	sqlite_vec.Auto()
}

// Index implements ports.VectorIndex over a vec0 virtual table. Because
// vec0 addresses rows by integer rowid while the rest of the corpus keys
// vectors by string id (the embedding row's vector_id), Index keeps a
// small id-map table translating between the two.
type Index struct {
	db  *sql.DB
	dim int
}

// Open creates (if absent) the vec0 virtual table and its id-map table at
// the given fixed dimension, and returns an Index over db.
func Open(db *sql.DB, dim int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vectorindex: dimension must be positive, got %d", dim)
	}
	idx := &Index{db: db, dim: dim}
	if err := idx.initSchema(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) initSchema() error {
	stmts := []string{
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d])`, idx.dim),
		`CREATE TABLE IF NOT EXISTS vec_id_map (
			vector_id TEXT PRIMARY KEY,
			rowid     INTEGER NOT NULL UNIQUE
		)`,
	}
	for _, s := range stmts {
		if _, err := idx.db.Exec(s); err != nil {
			return fmt.Errorf("vectorindex: init schema: %w", err)
		}
	}
	return nil
}

// Dimension reports the fixed vector dimension this index was opened with.
func (idx *Index) Dimension() int { return idx.dim }

// UpsertVector stores (or replaces) the vector for id. v must already be
// L2-normalized (spec.md §4.3 step 6); UpsertVector does not normalize.
func (idx *Index) UpsertVector(ctx context.Context, id string, v []float32) error {
	if len(v) != idx.dim {
		return fmt.Errorf("vectorindex: vector has dimension %d, want %d", len(v), idx.dim)
	}
	blob, err := sqlite_vec.SerializeFloat32(v)
	if err != nil {
		return fmt.Errorf("vectorindex: serialize: %w", err)
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var rowid int64
	err = tx.QueryRowContext(ctx, `SELECT rowid FROM vec_id_map WHERE vector_id = ?`, id).Scan(&rowid)
	switch {
	case err == sql.ErrNoRows:
		res, ierr := tx.ExecContext(ctx, `INSERT INTO vec_embeddings(embedding) VALUES (?)`, blob)
		if ierr != nil {
			return fmt.Errorf("vectorindex: insert: %w", ierr)
		}
		rowid, _ = res.LastInsertId()
		if _, ierr := tx.ExecContext(ctx, `INSERT INTO vec_id_map(vector_id, rowid) VALUES (?, ?)`, id, rowid); ierr != nil {
			return fmt.Errorf("vectorindex: map insert: %w", ierr)
		}
	case err != nil:
		return fmt.Errorf("vectorindex: lookup: %w", err)
	default:
		if _, uerr := tx.ExecContext(ctx, `UPDATE vec_embeddings SET embedding = ? WHERE rowid = ?`, blob, rowid); uerr != nil {
			return fmt.Errorf("vectorindex: update: %w", uerr)
		}
	}
	return tx.Commit()
}

// GetVector returns the stored vector for id, if any.
func (idx *Index) GetVector(ctx context.Context, id string) ([]float32, bool, error) {
	var blob []byte
	err := idx.db.QueryRowContext(ctx, `
		SELECT e.embedding FROM vec_embeddings e
		JOIN vec_id_map m ON m.rowid = e.rowid
		WHERE m.vector_id = ?`, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	v, err := deserializeFloat32(blob, idx.dim)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// SearchVectors returns the topK nearest neighbors to query by cosine
// similarity, applying filter.Threshold when set. vec0 has no notion of
// document/image ownership, so filter.DocumentIDs/ImageOnly are applied
// by the composite Store (internal/adapters/storage/sqlite), which knows
// the mapping from vector_id to owning chunk/image/document and wraps
// this call with a wider over-fetch plus a post-filter join.
func (idx *Index) SearchVectors(ctx context.Context, query []float32, topK int, filter *ports.VectorFilter) ([]ports.ScoredID, error) {
	if len(query) != idx.dim {
		return nil, fmt.Errorf("vectorindex: query has dimension %d, want %d", len(query), idx.dim)
	}
	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: serialize query: %w", err)
	}

	rows, err := idx.db.QueryContext(ctx, `
		SELECT m.vector_id, e.distance
		FROM vec_embeddings e
		JOIN vec_id_map m ON m.rowid = e.rowid
		WHERE e.embedding MATCH ? AND k = ?
		ORDER BY e.distance`, blob, topK)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: search: %w", err)
	}
	defer rows.Close()

	var out []ports.ScoredID
	for rows.Next() {
		var vectorID string
		var distance float64
		if err := rows.Scan(&vectorID, &distance); err != nil {
			return nil, err
		}
		score := 1 - (distance*distance)/2 // L2^2 on unit vectors -> cosine similarity (spec.md §4.4)
		if filter != nil && filter.Threshold != nil && score < *filter.Threshold {
			continue
		}
		out = append(out, ports.ScoredID{ID: vectorID, Score: score})
	}
	return out, rows.Err()
}

// DeleteVectors removes vectors by id.
func (idx *Index) DeleteVectors(ctx context.Context, ids []string) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, id := range ids {
		var rowid int64
		err := tx.QueryRowContext(ctx, `SELECT rowid FROM vec_id_map WHERE vector_id = ?`, id).Scan(&rowid)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_embeddings WHERE rowid = ?`, rowid); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_id_map WHERE rowid = ?`, rowid); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func deserializeFloat32(blob []byte, dim int) ([]float32, error) {
	if len(blob) != dim*4 {
		return nil, fmt.Errorf("vectorindex: blob has %d bytes, want %d", len(blob), dim*4)
	}
	out := make([]float32, dim)
	for i := 0; i < dim; i++ {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}
