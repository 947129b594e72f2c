package container

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"livepoll/internal/config"
	"livepoll/internal/domain"
	"livepoll/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(backend string) *config.Config {
	return &config.Config{
		Environment:         "test",
		StoreBackend:        backend,
		JWTSecret:           "test-secret",
		AdminTokenTTL:       time.Hour,
		OTPCode:             "123456",
		LiveRefreshInterval: time.Second,
	}
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name        string
		config      func(t *testing.T) *config.Config
		expectRedis bool
		expectError bool
	}{
		{
			name:   "memory store",
			config: func(t *testing.T) *config.Config { return testConfig(config.StoreMemory) },
		},
		{
			name: "redis store",
			config: func(t *testing.T) *config.Config {
				cfg := testConfig(config.StoreRedis)
				cfg.RedisURL = "redis://" + mr.Addr()
				return cfg
			},
			expectRedis: true,
		},
		{
			name: "sqlite store",
			config: func(t *testing.T) *config.Config {
				cfg := testConfig(config.StoreSQLite)
				cfg.SQLitePath = filepath.Join(t.TempDir(), "state.db")
				return cfg
			},
		},
		{
			name: "invalid redis url",
			config: func(t *testing.T) *config.Config {
				cfg := testConfig(config.StoreRedis)
				cfg.RedisURL = "invalid://redis-url"
				return cfg
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(context.Background(), tt.config(t), logger.NewNop())
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			defer c.Close()

			assert.Equal(t, tt.expectRedis, c.HasRedis())
			assert.NotNil(t, c.GetEngine())
			assert.NotNil(t, c.GetAuthService())
			assert.NotNil(t, c.Services.Expiry)
			assert.NotNil(t, c.Services.Live)
			assert.NoError(t, c.Store.Health(context.Background()))
		})
	}
}

func TestNew_RestoresPersistedState(t *testing.T) {
	cfg := testConfig(config.StoreSQLite)
	cfg.SQLitePath = filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	first, err := New(ctx, cfg, logger.NewNop())
	require.NoError(t, err)

	poll, err := first.GetEngine().CreatePoll(ctx, &domain.CreatePollRequest{
		Title:    "Lunch",
		Question: "Where?",
		Options:  []string{"Tacos", "Ramen"},
	})
	require.NoError(t, err)
	session, err := first.GetEngine().LaunchSession(ctx, poll.ID, nil)
	require.NoError(t, err)
	_, err = first.GetEngine().SubmitVote(ctx, session.SessionCode, 1, "voter-1")
	require.NoError(t, err)
	_, err = first.GetAuthService().Register(ctx, &domain.CredentialsRequest{Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(ctx, cfg, logger.NewNop())
	require.NoError(t, err)
	defer second.Close()

	assert.Len(t, second.GetEngine().Polls(), 1)
	assert.True(t, second.GetEngine().HasUserVoted(session.SessionCode, "voter-1"))

	status, err := second.GetAuthService().Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.HasAccount)
	assert.True(t, status.Authenticated)
}
