package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 10, cfg.DailyQuotaLimit)
	assert.Equal(t, 7, cfg.ContextWindowDays)
	assert.Equal(t, 20, cfg.ConversationCap)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Empty(t, cfg.OpenAIAPIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.DefaultModel)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("HIE_DATA_DIR", "/tmp/test-hie")
	t.Setenv("HIE_SEED_FILE", "/tmp/seed.json")
	t.Setenv("HIE_CACHE_MAX_ITEMS", "500")
	t.Setenv("HIE_CACHE_TTL", "12h")
	t.Setenv("HIE_DAILY_QUOTA_LIMIT", "3")
	t.Setenv("HIE_CONTEXT_WINDOW_DAYS", "14")
	t.Setenv("HIE_PROVIDER_TIMEOUT", "5s")
	t.Setenv("HIE_DEFAULT_MODEL", "claude-3-5-haiku-latest")
	t.Setenv("HIE_LOG_LEVEL", "debug")
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-hie", cfg.DataDir)
	assert.Equal(t, "/tmp/seed.json", cfg.SeedFile)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 3, cfg.DailyQuotaLimit)
	assert.Equal(t, 14, cfg.ContextWindowDays)
	assert.Equal(t, 5*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)

	providers := cfg.ProvidersConfig()
	assert.Equal(t, "g-key", providers.Gemini.APIKey)
	assert.Empty(t, providers.OpenAI.APIKey)
	assert.Equal(t, "claude-3-5-haiku-latest", providers.DefaultModel)

	engine := cfg.EngineConfig()
	assert.Equal(t, 3, engine.DailyQuotaLimit)
	assert.True(t, engine.RecordSymptomChecks)
}

func TestLoadLiteConfig_IgnoresInvalidNumbers(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("HIE_DAILY_QUOTA_LIMIT", "-4")
	t.Setenv("HIE_CACHE_TTL", "soon")

	cfg := LoadLiteConfig()

	assert.Equal(t, 10, cfg.DailyQuotaLimit)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
}

func TestLiteConfig_DatabasePath(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.health-intelligence"}

	assert.Equal(t, "/home/user/.health-intelligence/health.db", cfg.DatabasePath())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	cfg := &LiteConfig{DataDir: filepath.Join(tmpDir, "hie")}

	require.NoError(t, cfg.EnsureDataDir())

	_, err = os.Stat(cfg.DataDir)
	assert.NoError(t, err)
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"HIE_DATA_DIR",
		"HIE_SEED_FILE",
		"HIE_CACHE_MAX_ITEMS",
		"HIE_CACHE_TTL",
		"HIE_DEFAULT_MODEL",
		"HIE_PROVIDER_TIMEOUT",
		"HIE_DAILY_QUOTA_LIMIT",
		"HIE_CONTEXT_WINDOW_DAYS",
		"HIE_CONVERSATION_CAP",
		"HIE_LOG_LEVEL",
		"HIE_LOG_FORMAT",
		"OPENAI_API_KEY",
		"GEMINI_API_KEY",
		"ANTHROPIC_API_KEY",
	}
	for _, v := range vars {
		// t.Setenv restores the original value after the test
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}
