package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("LIVE_REFRESH_INTERVAL", "")
	t.Setenv("OTP_CODE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, time.Second, cfg.LiveRefreshInterval)
	assert.Equal(t, "123456", cfg.OTPCode)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LIVE_REFRESH_INTERVAL", "3")
	t.Setenv("ADMIN_TOKEN_TTL", "90m")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreRedis, cfg.StoreBackend)
	assert.Equal(t, 3*time.Second, cfg.LiveRefreshInterval)
	assert.Equal(t, 90*time.Minute, cfg.AdminTokenTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "memory is always valid",
			cfg:  Config{StoreBackend: StoreMemory, LiveRefreshInterval: time.Second},
		},
		{
			name:    "redis without url",
			cfg:     Config{StoreBackend: StoreRedis, LiveRefreshInterval: time.Second},
			wantErr: "REDIS_URL",
		},
		{
			name:    "postgres without url",
			cfg:     Config{StoreBackend: StorePostgres, LiveRefreshInterval: time.Second},
			wantErr: "DATABASE_URL",
		},
		{
			name:    "unknown backend",
			cfg:     Config{StoreBackend: "etcd", LiveRefreshInterval: time.Second},
			wantErr: "unknown STORE_BACKEND",
		},
		{
			name:    "production needs a signing secret",
			cfg:     Config{StoreBackend: StoreMemory, Environment: "production", LiveRefreshInterval: time.Second},
			wantErr: "JWT_SECRET",
		},
		{
			name:    "refresh interval must be positive",
			cfg:     Config{StoreBackend: StoreMemory},
			wantErr: "LIVE_REFRESH_INTERVAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
