package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

func (s *Store) LoadPersistedConfig(ctx context.Context) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT json FROM config WHERE id = 1`).Scan(&raw)
	if err == sql.ErrNoRows {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: load persisted config: %w", err)
	}
	var cfg map[string]any
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("sqlite: decode persisted config: %w", err)
	}
	return cfg, nil
}

func (s *Store) SavePersistedConfig(ctx context.Context, cfg map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("sqlite: encode persisted config: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO config (id, json) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET json = excluded.json`, string(raw))
	if err != nil {
		return fmt.Errorf("sqlite: save persisted config: %w", err)
	}
	return nil
}
