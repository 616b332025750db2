// Package app assembles the engine from configuration: record store, usage
// ledger, provider router, conversation store, cache and health service.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/health-intelligence-engine/internal/cache"
	"github.com/health-intelligence-engine/internal/corpus"
	"github.com/health-intelligence-engine/internal/database"
	"github.com/health-intelligence-engine/internal/domain"
	"github.com/health-intelligence-engine/internal/repository"
	"github.com/health-intelligence-engine/internal/service"
	"github.com/health-intelligence-engine/internal/session"
	"github.com/health-intelligence-engine/internal/store"
	"github.com/health-intelligence-engine/pkg/provider"
)

// Engine is a fully wired health service plus the resources backing it.
type Engine struct {
	Health  *service.HealthService
	Store   store.Store
	Invoker domain.ModelInvoker

	logger  *logrus.Logger
	closers []func() error
}

// Option customizes Build.
type Option func(*buildOptions)

type buildOptions struct {
	invoker domain.ModelInvoker
}

// WithInvoker replaces the provider router.
func WithInvoker(invoker domain.ModelInvoker) Option {
	return func(o *buildOptions) {
		o.invoker = invoker
	}
}

// NewLogger creates a logrus logger from the logging configuration.
func NewLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// Build wires the engine described by cfg. On error every resource opened so
// far is released.
func Build(ctx context.Context, cfg *domain.Config, logger *logrus.Logger, opts ...Option) (_ *Engine, err error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{logger: logger}
	defer func() {
		if err != nil {
			e.Close()
		}
	}()

	ledger, err := e.openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	symptomCorpus, err := corpus.Load(corpus.Options{
		SymptomWeightsPath:  cfg.Engine.SymptomWeightsPath,
		DiseaseProfilesPath: cfg.Engine.DiseaseProfilesPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load symptom corpus: %w", err)
	}

	e.Invoker = o.invoker
	if e.Invoker == nil {
		e.Invoker = provider.NewRouter(cfg.Providers, logger)
	}

	conversations, err := e.openConversations(ctx, cfg)
	if err != nil {
		return nil, err
	}

	resultCache, err := cache.NewFromConfig(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	e.closers = append(e.closers, resultCache.Close)

	quota := session.NewQuotaTracker(ledger, logger, session.WithDailyLimit(cfg.Engine.DailyQuotaLimit))
	if _, err := quota.PruneExpired(ctx); err != nil {
		logger.WithError(err).Warn("Failed to prune expired usage events")
	}

	e.Health = service.NewHealthService(logger, service.HealthServiceDeps{
		Predictor:     service.NewSymptomPredictor(logger, symptomCorpus),
		Aggregator:    service.NewContextAggregator(logger, e.Store),
		Invoker:       e.Invoker,
		Conversations: conversations,
		Quota:         quota,
		Recorder:      e.Store,
		Cache:         resultCache,
	}, service.HealthServiceConfig{
		DefaultModel:        cfg.Providers.DefaultModel,
		ContextWindowDays:   cfg.Engine.ContextWindowDays,
		RecordSymptomChecks: cfg.Engine.RecordSymptomChecks,
		CacheTTL:            cfg.Cache.DefaultTTL,
	})

	logger.WithFields(logrus.Fields{
		"storage":       cfg.Storage.Driver,
		"redis":         cfg.Redis.Enabled,
		"default_model": e.Health.DefaultModelID(),
	}).Info("Engine initialized")
	return e, nil
}

// openStorage opens the record store selected by storage.driver and returns
// the usage ledger paired with it. Postgres keeps usage in a pgx pool next to
// the database/sql record store.
func (e *Engine) openStorage(ctx context.Context, cfg *domain.Config) (domain.UsageLedger, error) {
	switch cfg.Storage.Driver {
	case "", "memory":
		s := store.NewMemoryStore()
		e.Store = s
		e.closers = append(e.closers, s.Close)
		return s, nil

	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		e.Store = s
		e.closers = append(e.closers, s.Close)
		return s, nil

	case "postgres":
		dbConfig := database.ConfigFromDomain(cfg.Database)
		if cfg.Database.AutoMigrate {
			if err := database.MigrateUp(ctx, dbConfig.URL(), cfg.Database.MigrationsPath, e.logger); err != nil {
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}

		s, err := store.NewPostgresStoreFromURL(dbConfig.URL())
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		e.Store = s
		e.closers = append(e.closers, s.Close)

		db, err := database.NewConnection(ctx, dbConfig, e.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect usage ledger: %w", err)
		}
		e.closers = append(e.closers, func() error { db.Close(); return nil })
		return repository.NewUsageRepository(db.Pool, e.logger), nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

func (e *Engine) openConversations(ctx context.Context, cfg *domain.Config) (session.ConversationStore, error) {
	if !cfg.Redis.Enabled {
		return session.NewMemoryConversationStore(cfg.Engine.ConversationCap), nil
	}

	rs, err := session.NewRedisConversationStoreFromURL(ctx, cfg.Redis.URL, cfg.Redis.KeyPrefix,
		cfg.Engine.ConversationCap, cfg.Redis.ConversationTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect conversation store: %w", err)
	}
	e.closers = append(e.closers, rs.Close)
	return rs, nil
}

// Close releases resources in reverse order of acquisition.
func (e *Engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.logger.WithError(err).Warn("Failed to release engine resource")
		}
	}
	e.closers = nil
}
