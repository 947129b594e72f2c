package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"livepoll/pkg/database"
)

// SQLiteStateStore persists records as rows of the kv_store table in a local file
type SQLiteStateStore struct {
	db *database.SQLiteDB
}

// NewSQLiteStateStore wraps an opened database
func NewSQLiteStateStore(db *database.SQLiteDB) *SQLiteStateStore {
	return &SQLiteStateStore{db: db}
}

func (s *SQLiteStateStore) Load(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.DB.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStateStore) Save(ctx context.Context, key, value string) error {
	_, err := s.db.DB.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStateStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.DB.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStateStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}

func (s *SQLiteStateStore) Close() error {
	return s.db.Close()
}
