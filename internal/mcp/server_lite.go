package mcp

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/health-intelligence-engine/internal/cache"
	litecfg "github.com/health-intelligence-engine/internal/config"
	"github.com/health-intelligence-engine/internal/corpus"
	"github.com/health-intelligence-engine/internal/domain"
	"github.com/health-intelligence-engine/internal/service"
	"github.com/health-intelligence-engine/internal/session"
	"github.com/health-intelligence-engine/internal/store"
	"github.com/health-intelligence-engine/pkg/provider"
)

// LiteServer is a lightweight MCP server that requires no external databases.
// It uses in-memory caching and SQLite for persistence.
type LiteServer struct {
	config  *litecfg.LiteConfig
	server  *Server
	store   store.Store
	invoker domain.ModelInvoker
	cache   *cache.ResultCache
	logger  *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithStore sets a custom record store in place of the SQLite file.
func WithStore(s store.Store) LiteServerOption {
	return func(ls *LiteServer) error {
		ls.store = s
		return nil
	}
}

// WithInvoker replaces the provider router.
func WithInvoker(invoker domain.ModelInvoker) LiteServerOption {
	return func(ls *LiteServer) error {
		ls.invoker = invoker
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(ls *LiteServer) error {
		ls.logger = logger
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(ctx context.Context, cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{
		config: cfg,
		logger: logrus.New(),
	}

	// Configure default logger. Stdout carries the protocol, so logs go to stderr.
	server.logger.SetOutput(os.Stderr)
	if cfg.LogFormat == "text" {
		server.logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		server.logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		server.logger.SetLevel(level)
	}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.store == nil {
		if err := cfg.EnsureDataDir(); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		sqliteStore, err := store.NewSQLiteStore(cfg.DatabasePath())
		if err != nil {
			return nil, fmt.Errorf("failed to open record store: %w", err)
		}
		server.store = sqliteStore
	}

	if cfg.SeedFile != "" {
		if err := server.seed(ctx, cfg.SeedFile); err != nil {
			server.store.Close()
			return nil, err
		}
	}

	symptomCorpus, err := corpus.LoadEmbedded()
	if err != nil {
		server.store.Close()
		return nil, fmt.Errorf("failed to load symptom corpus: %w", err)
	}

	if server.invoker == nil {
		server.invoker = provider.NewRouter(cfg.ProvidersConfig(), server.logger)
	}

	resultCache, err := cache.New(cache.Config{
		Enabled:    true,
		DefaultTTL: cfg.CacheTTL,
		MaxEntries: cfg.CacheMaxItems,
	}, server.logger)
	if err != nil {
		server.store.Close()
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	server.cache = resultCache

	engine := cfg.EngineConfig()
	ledger, ok := server.store.(domain.UsageLedger)
	if !ok {
		server.store.Close()
		return nil, fmt.Errorf("record store %T cannot track usage", server.store)
	}

	quota := session.NewQuotaTracker(ledger, server.logger, session.WithDailyLimit(engine.DailyQuotaLimit))
	if _, err := quota.PruneExpired(ctx); err != nil {
		server.logger.WithError(err).Warn("Failed to prune expired usage events")
	}

	health := service.NewHealthService(server.logger, service.HealthServiceDeps{
		Predictor:     service.NewSymptomPredictor(server.logger, symptomCorpus),
		Aggregator:    service.NewContextAggregator(server.logger, server.store),
		Invoker:       server.invoker,
		Conversations: session.NewMemoryConversationStore(engine.ConversationCap),
		Quota:         quota,
		Recorder:      server.store,
		Cache:         resultCache,
	}, service.HealthServiceConfig{
		DefaultModel:        cfg.DefaultModel,
		ContextWindowDays:   engine.ContextWindowDays,
		RecordSymptomChecks: engine.RecordSymptomChecks,
		CacheTTL:            cfg.CacheTTL,
	})

	server.server = NewServer(health, server.logger, &mcp.Implementation{
		Name:    "health-intelligence-engine-lite",
		Version: "v1.0.0",
	})

	server.logger.Info("Lite server initialized successfully")
	return server, nil
}

func (s *LiteServer) seed(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	imported, err := store.ImportJSON(ctx, s.store, f)
	if err != nil {
		return fmt.Errorf("failed to import seed file: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"path": path, "patients": imported}).Info("Imported seed records")
	return nil
}

// Start serves MCP over stdio until ctx is cancelled or stdin closes.
func (s *LiteServer) Start(ctx context.Context) error {
	s.logger.Info("Starting Health Intelligence MCP Server (Lite)...")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Tools returns the tool server.
func (s *LiteServer) Tools() *Server {
	return s.server
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close cache")
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return fmt.Errorf("failed to close record store: %w", err)
		}
	}
	return nil
}
