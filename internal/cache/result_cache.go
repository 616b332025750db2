// Package cache provides a two-tier result cache: a bounded in-process LRU in
// front of an optional shared Redis tier.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/health-intelligence-engine/internal/domain"
)

const (
	defaultTTL        = 15 * time.Minute
	defaultMaxEntries = 1000
	redisKeyPrefix    = "hie:cache:"
)

// Config configures a ResultCache.
type Config struct {
	Enabled bool
	// RedisClient enables the shared tier when set.
	RedisClient *redis.Client
	DefaultTTL  time.Duration
	// MaxEntries bounds the in-memory tier.
	MaxEntries int
}

// Stats tracks cache effectiveness.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	RedisHits   int64 `json:"redis_hits"`
	RedisErrors int64 `json:"redis_errors"`
	Entries     int   `json:"entries"`
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// ResultCache caches JSON-encodable results by key.
type ResultCache struct {
	config Config
	logger *logrus.Logger
	memory *lru.Cache
	now    func() time.Time

	statsMu sync.Mutex
	stats   Stats
}

// New creates a cache. A disabled cache accepts every call and never hits.
func New(config Config, logger *logrus.Logger) (*ResultCache, error) {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = defaultTTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = defaultMaxEntries
	}

	memory, err := lru.New(config.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	return &ResultCache{
		config: config,
		logger: logger,
		memory: memory,
		now:    time.Now,
	}, nil
}

// NewFromConfig builds a cache from application configuration, connecting the
// Redis tier when a URL is configured.
func NewFromConfig(ctx context.Context, cfg domain.CacheConfig, logger *logrus.Logger) (*ResultCache, error) {
	config := Config{
		Enabled:    cfg.Enabled,
		DefaultTTL: cfg.DefaultTTL,
		MaxEntries: cfg.MaxMemorySize,
	}

	if cfg.Enabled && cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse cache Redis URL: %w", err)
		}
		if cfg.PoolSize > 0 {
			opts.PoolSize = cfg.PoolSize
		}
		client := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to cache Redis: %w", err)
		}
		config.RedisClient = client
	}

	return New(config, logger)
}

// Key derives a stable key from a namespace and JSON-encodable parameters.
func Key(namespace string, params interface{}) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key parameters: %w", err)
	}
	hash := sha256.Sum256(append([]byte(namespace+"::"), data...))
	return namespace + ":" + hex.EncodeToString(hash[:]), nil
}

// Get decodes the cached value for key into out and reports whether it was found.
func (c *ResultCache) Get(ctx context.Context, key string, out interface{}) bool {
	if !c.config.Enabled {
		return false
	}

	if value, ok := c.memory.Get(key); ok {
		e := value.(*entry)
		if c.now().Before(e.expiresAt) && json.Unmarshal(e.data, out) == nil {
			c.record(func(s *Stats) { s.Hits++ })
			return true
		}
		c.memory.Remove(key)
	}

	if c.config.RedisClient != nil {
		data, err := c.config.RedisClient.Get(ctx, redisKeyPrefix+key).Bytes()
		switch {
		case err == nil:
			if json.Unmarshal(data, out) == nil {
				c.memory.Add(key, &entry{data: data, expiresAt: c.now().Add(c.config.DefaultTTL)})
				c.record(func(s *Stats) { s.Hits++; s.RedisHits++ })
				return true
			}
		case err != redis.Nil:
			c.record(func(s *Stats) { s.RedisErrors++ })
			c.logger.WithError(err).Warn("Cache Redis read failed")
		}
	}

	c.record(func(s *Stats) { s.Misses++ })
	return false
}

// Set stores value under key. A ttl of zero uses the default.
func (c *ResultCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.config.Enabled {
		return nil
	}
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	c.memory.Add(key, &entry{data: data, expiresAt: c.now().Add(ttl)})

	if c.config.RedisClient != nil {
		if err := c.config.RedisClient.Set(ctx, redisKeyPrefix+key, data, ttl).Err(); err != nil {
			c.record(func(s *Stats) { s.RedisErrors++ })
			return fmt.Errorf("failed to write cache entry to Redis: %w", err)
		}
	}
	return nil
}

// Stats returns a snapshot of the cache counters.
func (c *ResultCache) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	s := c.stats
	s.Entries = c.memory.Len()
	return s
}

// Close releases the Redis tier, if any.
func (c *ResultCache) Close() error {
	if c.config.RedisClient != nil {
		return c.config.RedisClient.Close()
	}
	return nil
}

func (c *ResultCache) record(update func(*Stats)) {
	c.statsMu.Lock()
	update(&c.stats)
	c.statsMu.Unlock()
}
