package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(8188), cfg.HTTP.Port)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, "EZTutor", cfg.Drive.RootFolder)
	assert.Equal(t, DefaultHTTPClientTimeout, cfg.Drive.HTTPClientTimeout)
	assert.True(t, cfg.ExportQueue.Enabled)
	assert.Equal(t, 30*time.Second, cfg.ExportQueue.Interval)
	assert.Equal(t, time.Minute, cfg.ExportQueue.BaseDelay)
	assert.Equal(t, time.Hour, cfg.ExportQueue.MaxDelay)
	assert.Equal(t, 144, cfg.ExportQueue.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Crypto.OAuthStateTTL)
	assert.Equal(t, AuthModeNone, cfg.Auth.Mode)
	assert.Equal(t, uint(1), cfg.Auth.DefaultUserID)
	assert.Equal(t, FolderCacheMemory, cfg.FolderCache.Backend)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("EXPORT_QUEUE_INTERVAL", "10s")
	t.Setenv("EXPORT_QUEUE_MAX_ATTEMPTS", "5")
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("FOLDER_CACHE", "redis")

	cfg := NewConfig()

	assert.Equal(t, 10*time.Second, cfg.ExportQueue.Interval)
	assert.Equal(t, 5, cfg.ExportQueue.MaxAttempts)
	assert.Equal(t, "client-id", cfg.Google.ClientID)
	assert.Equal(t, FolderCacheRedis, cfg.FolderCache.Backend)
}

func TestDisableExportQueue(t *testing.T) {
	t.Setenv("EXPORT_QUEUE_ENABLED", "true")
	t.Setenv("DISABLE_EXPORT_QUEUE", "1")

	cfg := NewConfig()
	assert.False(t, cfg.ExportQueue.Enabled)
}

func TestHTTPClientTimeoutNeverZero(t *testing.T) {
	t.Setenv("HTTP_CLIENT_TIMEOUT", "0s")

	cfg := NewConfig()
	assert.Equal(t, DefaultHTTPClientTimeout, cfg.Drive.HTTPClientTimeout)
}
