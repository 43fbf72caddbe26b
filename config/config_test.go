package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"REMOTE_BASE_URL", "SYNC_INTERVAL", "DB_DRIVER", "JWT_SECRET", "PORT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "http://localhost:8000", cfg.RemoteBaseURL)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
	assert.Equal(t, 10*time.Second, cfg.KitchenPollInterval)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("REMOTE_BASE_URL", "https://pos.example.com/")
	t.Setenv("SYNC_INTERVAL", "45s")
	t.Setenv("SYNC_MAX_BACKOFF", "not-a-duration")

	cfg := Load()
	assert.Equal(t, "https://pos.example.com", cfg.RemoteBaseURL)
	assert.Equal(t, 45*time.Second, cfg.SyncInterval)
	assert.Equal(t, 5*time.Minute, cfg.SyncMaxBackoff)
}

func TestInitDB(t *testing.T) {
	db, err := InitDB(Config{DBDriver: "sqlite", DBDSN: "file::memory:"})
	require.NoError(t, err)
	require.NotNil(t, db)

	_, err = InitDB(Config{DBDriver: "oracle", DBDSN: "x"})
	assert.Error(t, err)
}
