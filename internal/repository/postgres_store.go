package repository

import (
	"context"
	"errors"
	"fmt"

	"livepoll/pkg/database"

	"github.com/jackc/pgx/v5"
)

// PostgresStateStore persists records as rows of the kv_store table
type PostgresStateStore struct {
	db *database.PostgresDB
}

// NewPostgresStateStore wraps a connected pool. The schema must exist (cmd/migrate up).
func NewPostgresStateStore(db *database.PostgresDB) *PostgresStateStore {
	return &PostgresStateStore{db: db}
}

func (s *PostgresStateStore) Load(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.Pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStateStore) Save(ctx context.Context, key, value string) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStateStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Pool.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStateStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}

func (s *PostgresStateStore) Close() error {
	s.db.Close()
	return nil
}
