package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Storage     StorageConfig   `mapstructure:"storage"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Providers   ProvidersConfig `mapstructure:"providers"`
	Engine      EngineConfig    `mapstructure:"engine"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// StorageConfig selects the backend for patient records and the usage ledger.
type StorageConfig struct {
	Driver     string `mapstructure:"driver"` // "memory", "sqlite", "postgres"
	SQLitePath string `mapstructure:"sqlite_path"`
}

// CacheConfig represents prediction result cache configuration
type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisURL      string        `mapstructure:"redis_url"`
	DefaultTTL    time.Duration `mapstructure:"default_ttl"`
	MaxMemorySize int           `mapstructure:"max_memory_size"`
	PoolSize      int           `mapstructure:"pool_size"`
}

// RedisConfig configures the optional Redis-backed conversation store.
type RedisConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	URL             string        `mapstructure:"url"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
	ConversationTTL time.Duration `mapstructure:"conversation_ttl"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProvidersConfig holds the generative model provider families.
type ProvidersConfig struct {
	Timeout      time.Duration  `mapstructure:"timeout"`
	DefaultModel string         `mapstructure:"default_model"`
	OpenAI       ProviderConfig `mapstructure:"openai"`
	Gemini       ProviderConfig `mapstructure:"gemini"`
	Anthropic    ProviderConfig `mapstructure:"anthropic"`
}

// ProviderConfig represents one provider family's API configuration
type ProviderConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	RateLimit   int     `mapstructure:"rate_limit"` // requests per second
}

// EngineConfig holds the tunables of the intelligence engine.
type EngineConfig struct {
	DailyQuotaLimit     int    `mapstructure:"daily_quota_limit"`
	ContextWindowDays   int    `mapstructure:"context_window_days"`
	ConversationCap     int    `mapstructure:"conversation_cap"`
	SymptomWeightsPath  string `mapstructure:"symptom_weights_path"`
	DiseaseProfilesPath string `mapstructure:"disease_profiles_path"`
	RecordSymptomChecks bool   `mapstructure:"record_symptom_checks"`
}
