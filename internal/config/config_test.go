package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("SESSION_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5000", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, SessionBackendRedis, cfg.Session.Backend)
	assert.Equal(t, ClassifierBackendModel, cfg.Classifier.Backend)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.MaxAge())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
port = "9000"
allowed_origins = ["https://mail.example.com"]

[session]
backend = "cookie"
same_site = "none"
secure = true

[classifier]
backend = "none"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("APP_PORT", "9100")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("SESSION_BACKEND", "")
	t.Setenv("CLASSIFIER_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.App.Port)
	assert.Equal(t, []string{"https://mail.example.com"}, cfg.App.AllowedOrigins)
	assert.Equal(t, SessionBackendCookie, cfg.Session.Backend)
	assert.True(t, cfg.Session.Secure)
	assert.Equal(t, "None", cfg.Session.SameSiteMode())
	assert.Equal(t, ClassifierBackendNone, cfg.Classifier.Backend)
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SESSION_BACKEND", "memcached")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("CLASSIFIER_BACKEND", "oracle")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadInvalidRedisDB(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("REDIS_DB", "first")

	_, err := Load()
	assert.Error(t, err)
}

func TestEnvListParsing(t *testing.T) {
	t.Setenv("ORIGINS_UNDER_TEST", " http://a , ,http://b")
	assert.Equal(t, []string{"http://a", "http://b"}, getEnvAsList("ORIGINS_UNDER_TEST", nil))
	assert.Equal(t, []string{"x"}, getEnvAsList("ORIGINS_MISSING", []string{"x"}))
}
