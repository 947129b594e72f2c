package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteDB_InMemory(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLiteDB(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Health(ctx))

	var count int
	err = db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_store`).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNewSQLiteDB_FileSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "livepoll.db")

	db, err := NewSQLiteDB(ctx, path)
	require.NoError(t, err)
	_, err = db.DB.ExecContext(ctx, `INSERT INTO kv_store (key, value) VALUES ('polls', '[]')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := NewSQLiteDB(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	var value string
	err = reopened.DB.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = 'polls'`).Scan(&value)
	require.NoError(t, err)
	assert.Equal(t, "[]", value)
}
