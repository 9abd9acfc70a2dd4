package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	require.NoError(t, BindEnv(v))
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, TransportOllama, cfg.Inference.Transport)
	assert.Equal(t, "http://localhost:11434/api", cfg.Inference.Host)
	assert.Equal(t, "mistral", cfg.Inference.Model)
	assert.Equal(t, 3, cfg.Inference.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Inference.Timeout())
	assert.InDelta(t, 0.2, cfg.Inference.Temperature, 1e-9)
	assert.Equal(t, 1024, cfg.Inference.MaxTokens)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, BackendFile, cfg.Cache.Backend)
	assert.Equal(t, 200, cfg.MaxLogLength)
}

func TestLegacyEnv(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://ollama:11434")
	t.Setenv("OLLAMA_MODEL", "llama3")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("REQUEST_TIMEOUT", "60")
	t.Setenv("TEMPERATURE", "0.7")
	t.Setenv("CACHE_ENABLED", "false")

	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, "http://ollama:11434/api", cfg.Inference.Host)
	assert.Equal(t, "llama3", cfg.Inference.Model)
	assert.Equal(t, 5, cfg.Inference.MaxRetries)
	assert.Equal(t, time.Minute, cfg.Inference.Timeout())
	assert.InDelta(t, 0.7, cfg.Inference.Temperature, 1e-9)
	assert.False(t, cfg.Cache.Enabled)
}

func TestPrefixedEnvWins(t *testing.T) {
	t.Setenv("OLLAMA_MODEL", "llama3")
	t.Setenv("RESUME_INSIGHT_INFERENCE_MODEL", "qwen")
	t.Setenv("RESUME_INSIGHT_CACHE_BACKEND", "Memory")

	cfg, err := Load(newViper(t))
	require.NoError(t, err)
	assert.Equal(t, "qwen", cfg.Inference.Model)
	assert.Equal(t, BackendMemory, cfg.Cache.Backend)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume-insight.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
inference:
  transport: gemini
  host: https://example.com/api
gemini:
  api-key: k
cache:
  backend: redis
  redis:
    addr: redis:6379
    db: 2
`), 0o600))

	v := newViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, TransportGemini, cfg.Inference.Transport)
	assert.Equal(t, "https://example.com/api", cfg.Inference.Host)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 2, cfg.Cache.Redis.DB)

	key, err := cfg.GeminiKey()
	require.NoError(t, err)
	assert.Equal(t, "k", key)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown transport", func(c *Config) { c.Inference.Transport = "grpc" }, "Transport"},
		{"bad host", func(c *Config) { c.Inference.Host = "not a url" }, "Host"},
		{"zero retries", func(c *Config) { c.Inference.MaxRetries = 0 }, "MaxRetries"},
		{"hot temperature", func(c *Config) { c.Inference.Temperature = 3 }, "Temperature"},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "s3" }, "Backend"},
		{"file backend without dir", func(c *Config) { c.Cache.Dir = "" }, "Dir"},
		{"gemini without key", func(c *Config) { c.Inference.Transport = TransportGemini }, "gemini.api-key"},
		{"postgres without dsn", func(c *Config) { c.Cache.Backend = BackendPostgres }, "cache.postgres.dsn"},
		{"redis without addr", func(c *Config) {
			c.Cache.Backend = BackendRedis
			c.Cache.Redis.Addr = ""
		}, "cache.redis.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(newViper(t))
			require.NoError(t, err)

			tt.mutate(cfg)
			assert.ErrorContains(t, Validate(cfg), tt.wantErr)
		})
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("RESUME_INSIGHT_TEST_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("RESUME_INSIGHT_TEST_DOTENV") })

	require.NoError(t, LoadDotenv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "loaded", os.Getenv("RESUME_INSIGHT_TEST_DOTENV"))
}

func TestNormalizeHost(t *testing.T) {
	assert.Equal(t, "http://h:1/api", normalizeHost("http://h:1/"))
	assert.Equal(t, "http://h:1/v1", normalizeHost("http://h:1/v1"))
	assert.Equal(t, "garbage", normalizeHost("garbage"))
}
