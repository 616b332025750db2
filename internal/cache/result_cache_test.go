package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-intelligence-engine/internal/domain"
)

type sample struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func newTestCache(t *testing.T, config Config) *ResultCache {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	c, err := New(config, logger)
	require.NoError(t, err)
	return c
}

func TestKey_StableAndNamespaced(t *testing.T) {
	params := []string{"cough", "fever"}

	a, err := Key("predict", params)
	require.NoError(t, err)
	b, err := Key("predict", params)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := Key("predict", []string{"fever", "cough"})
	require.NoError(t, err)
	assert.NotEqual(t, a, other)

	ns, err := Key("summary", params)
	require.NoError(t, err)
	assert.NotEqual(t, a, ns)
	assert.Contains(t, a, "predict:")
}

func TestResultCache_MemoryTier(t *testing.T) {
	c := newTestCache(t, Config{Enabled: true, MaxEntries: 2})
	ctx := context.Background()

	var out sample
	assert.False(t, c.Get(ctx, "k1", &out))

	require.NoError(t, c.Set(ctx, "k1", sample{Name: "one", Score: 1}, 0))
	require.True(t, c.Get(ctx, "k1", &out))
	assert.Equal(t, sample{Name: "one", Score: 1}, out)

	// third entry evicts the least recently used
	require.NoError(t, c.Set(ctx, "k2", sample{Name: "two"}, 0))
	require.NoError(t, c.Set(ctx, "k3", sample{Name: "three"}, 0))
	assert.False(t, c.Get(ctx, "k1", &out))
	assert.True(t, c.Get(ctx, "k3", &out))

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 2, stats.Entries)
}

func TestResultCache_Expiry(t *testing.T) {
	c := newTestCache(t, Config{Enabled: true})
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", sample{Name: "x"}, time.Minute))

	var out sample
	assert.True(t, c.Get(ctx, "k", &out))

	now = now.Add(2 * time.Minute)
	assert.False(t, c.Get(ctx, "k", &out))
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestResultCache_Disabled(t *testing.T) {
	c := newTestCache(t, Config{Enabled: false})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", sample{Name: "x"}, 0))
	var out sample
	assert.False(t, c.Get(ctx, "k", &out))
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestNewFromConfig_WithoutRedis(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	c, err := NewFromConfig(context.Background(), domain.CacheConfig{Enabled: true, MaxMemorySize: 10}, logger)
	require.NoError(t, err)
	assert.Nil(t, c.config.RedisClient)
	assert.NoError(t, c.Close())
}

func TestNewFromConfig_BadRedisURL(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	_, err := NewFromConfig(context.Background(), domain.CacheConfig{Enabled: true, RedisURL: "::bad"}, logger)
	require.Error(t, err)
}

func TestResultCache_RedisTier(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set, skipping Redis cache tests")
	}

	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	writer := newTestCache(t, Config{Enabled: true, RedisClient: client})
	reader := newTestCache(t, Config{Enabled: true, RedisClient: client})

	key, err := Key("test", t.Name())
	require.NoError(t, err)
	defer client.Del(ctx, redisKeyPrefix+key)

	require.NoError(t, writer.Set(ctx, key, sample{Name: "shared", Score: 7}, time.Minute))

	var out sample
	require.True(t, reader.Get(ctx, key, &out))
	assert.Equal(t, 7, out.Score)
	assert.Equal(t, int64(1), reader.Stats().RedisHits)
}
