// Package config loads engine configuration.
//
// Manager reads a YAML file plus HIE_-prefixed environment overrides for the
// HTTP server. LiteConfig reads only the environment and backs the standalone
// MCP server, which keeps everything in a local SQLite file.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/health-intelligence-engine/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir  string // Base directory for the SQLite database
	SeedFile string // Optional JSON file of patient records imported at startup

	// Cache settings
	CacheMaxItems int
	CacheTTL      time.Duration

	// Provider credentials; a family without a key is reported unavailable.
	OpenAIAPIKey    string
	GeminiAPIKey    string
	AnthropicAPIKey string
	DefaultModel    string
	ProviderTimeout time.Duration

	// Engine
	DailyQuotaLimit   int
	ContextWindowDays int
	ConversationCap   int

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".health-intelligence")

	return &LiteConfig{
		DataDir:           dataDir,
		CacheMaxItems:     1000,
		CacheTTL:          time.Hour,
		DefaultModel:      "gpt-4o-mini",
		ProviderTimeout:   10 * time.Second,
		DailyQuotaLimit:   10,
		ContextWindowDays: 7,
		ConversationCap:   20,
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("HIE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	cfg.SeedFile = os.Getenv("HIE_SEED_FILE")

	if n, ok := positiveInt("HIE_CACHE_MAX_ITEMS"); ok {
		cfg.CacheMaxItems = n
	}
	if d, ok := duration("HIE_CACHE_TTL"); ok {
		cfg.CacheTTL = d
	}

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	if v := os.Getenv("HIE_DEFAULT_MODEL"); v != "" {
		cfg.DefaultModel = v
	}
	if d, ok := duration("HIE_PROVIDER_TIMEOUT"); ok {
		cfg.ProviderTimeout = d
	}

	if n, ok := positiveInt("HIE_DAILY_QUOTA_LIMIT"); ok {
		cfg.DailyQuotaLimit = n
	}
	if n, ok := positiveInt("HIE_CONTEXT_WINDOW_DAYS"); ok {
		cfg.ContextWindowDays = n
	}
	if n, ok := positiveInt("HIE_CONVERSATION_CAP"); ok {
		cfg.ConversationCap = n
	}

	if v := os.Getenv("HIE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("HIE_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

func positiveInt(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func duration(key string) (time.Duration, bool) {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// DatabasePath returns the path to the SQLite database.
func (c *LiteConfig) DatabasePath() string {
	return filepath.Join(c.DataDir, "health.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}

// ProvidersConfig maps the credentials onto router configuration.
func (c *LiteConfig) ProvidersConfig() domain.ProvidersConfig {
	return domain.ProvidersConfig{
		Timeout:      c.ProviderTimeout,
		DefaultModel: c.DefaultModel,
		OpenAI:       domain.ProviderConfig{APIKey: c.OpenAIAPIKey},
		Gemini:       domain.ProviderConfig{APIKey: c.GeminiAPIKey},
		Anthropic:    domain.ProviderConfig{APIKey: c.AnthropicAPIKey},
	}
}

// EngineConfig maps the engine tunables.
func (c *LiteConfig) EngineConfig() domain.EngineConfig {
	return domain.EngineConfig{
		DailyQuotaLimit:     c.DailyQuotaLimit,
		ContextWindowDays:   c.ContextWindowDays,
		ConversationCap:     c.ConversationCap,
		RecordSymptomChecks: true,
	}
}
