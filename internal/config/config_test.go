package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_TTL_MINUTES", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("SEED_MOCK_DATA", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("FILES_DIR", "")

	cfg, err := LoadServer()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddress())
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 60*time.Minute, cfg.JWTTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.SeedMockData)
	assert.Equal(t, "admin123", cfg.AdminPassword)
	assert.Equal(t, filepath.Join("data", "files"), cfg.FilesDir)
}

func TestLoadServerRejectsShortAdminPassword(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ADMIN_PASSWORD", "short")

	_, err := LoadServer()
	require.Error(t, err)
}

func TestLoadClientDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CONSOLE_API_URL", "http://api.local:9000/")
	t.Setenv("CONSOLE_CACHE", "")
	t.Setenv("CONSOLE_CACHE_PATH", "")
	t.Setenv("CONSOLE_TIMEOUT_SECONDS", "3")
	t.Setenv("GUARD_ALLOW_ANONYMOUS", "")

	cfg, err := LoadClient()
	require.NoError(t, err)

	assert.Equal(t, "http://api.local:9000", cfg.APIBaseURL)
	assert.Equal(t, CacheFile, cfg.CacheBackend)
	assert.Equal(t, filepath.Join(home, ".therapy-console", "cache.json"), cfg.CachePath)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.AllowAnonymous)
}

func TestLoadClientAllowAnonymous(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CONSOLE_CACHE", "sqlite")
	t.Setenv("GUARD_ALLOW_ANONYMOUS", "true")

	cfg, err := LoadClient()
	require.NoError(t, err)

	assert.True(t, cfg.AllowAnonymous)
	assert.Equal(t, "cache.db", filepath.Base(cfg.CachePath))
}

func TestLoadClientUnknownCache(t *testing.T) {
	t.Setenv("CONSOLE_CACHE", "memcached")

	_, err := LoadClient()
	require.Error(t, err)
}
