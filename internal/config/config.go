package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/health-intelligence-engine/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManager creates a new configuration manager that searches the standard
// config locations.
func NewManager() (*Manager, error) {
	return NewManagerWithFile("")
}

// NewManagerWithFile creates a configuration manager reading an explicit YAML
// file. An empty path searches the standard locations.
func NewManagerWithFile(configFile string) (*Manager, error) {
	m := &Manager{configFile: configFile}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/health-intelligence/")
	}

	v.SetEnvPrefix("HIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; defaults and environment variables still apply.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "45s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "health_intelligence")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.migrations_path", "migrations")

	// Storage defaults
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.sqlite_path", "data/health.db")

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.default_ttl", "1h")
	v.SetDefault("cache.max_memory_size", 1000)
	v.SetDefault("cache.pool_size", 10)

	// Conversation store defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379")
	v.SetDefault("redis.key_prefix", "hie:conversation:")
	v.SetDefault("redis.conversation_ttl", "24h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Provider defaults
	v.SetDefault("providers.timeout", "10s")
	v.SetDefault("providers.default_model", "gpt-4o-mini")
	for _, family := range []string{"openai", "gemini", "anthropic"} {
		v.SetDefault("providers."+family+".base_url", "")
		v.SetDefault("providers."+family+".api_key", "")
		v.SetDefault("providers."+family+".temperature", 0.7)
		v.SetDefault("providers."+family+".top_p", 0.9)
		v.SetDefault("providers."+family+".max_tokens", 1024)
		v.SetDefault("providers."+family+".rate_limit", 5)
	}

	// Engine defaults
	v.SetDefault("engine.daily_quota_limit", 10)
	v.SetDefault("engine.context_window_days", 7)
	v.SetDefault("engine.conversation_cap", 20)
	v.SetDefault("engine.symptom_weights_path", "")
	v.SetDefault("engine.disease_profiles_path", "")
	v.SetDefault("engine.record_symptom_checks", true)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetProvidersConfig returns the model provider configuration
func (m *Manager) GetProvidersConfig() *domain.ProvidersConfig {
	return &m.config.Providers
}

// GetEngineConfig returns the engine tunables
func (m *Manager) GetEngineConfig() *domain.EngineConfig {
	return &m.config.Engine
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Storage.Driver {
	case "memory":
	case "sqlite":
		if config.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite storage driver")
		}
	case "postgres":
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s", config.Storage.Driver)
	}

	if config.Redis.Enabled && config.Redis.URL == "" {
		return fmt.Errorf("redis URL is required when the Redis conversation store is enabled")
	}

	if config.Providers.Timeout <= 0 {
		return fmt.Errorf("provider timeout must be positive")
	}
	families := map[string]domain.ProviderConfig{
		"openai":    config.Providers.OpenAI,
		"gemini":    config.Providers.Gemini,
		"anthropic": config.Providers.Anthropic,
	}
	for name, p := range families {
		if p.Temperature < 0 || p.Temperature > 2 {
			return fmt.Errorf("invalid %s temperature: %v", name, p.Temperature)
		}
		if p.TopP < 0 || p.TopP > 1 {
			return fmt.Errorf("invalid %s top_p: %v", name, p.TopP)
		}
	}

	if config.Engine.DailyQuotaLimit <= 0 {
		return fmt.Errorf("daily quota limit must be positive")
	}
	if config.Engine.ContextWindowDays <= 0 {
		return fmt.Errorf("context window days must be positive")
	}
	if config.Engine.ConversationCap <= 0 {
		return fmt.Errorf("conversation cap must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// GetDatabaseURL returns the database URL used by lib/pq and migrations
func (m *Manager) GetDatabaseURL() string {
	db := m.config.Database
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.Username, db.Password),
		Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:     "/" + db.Database,
		RawQuery: "sslmode=" + url.QueryEscape(db.SSLMode),
	}
	return u.String()
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
