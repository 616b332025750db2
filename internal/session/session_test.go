package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-intelligence-engine/internal/domain"
	"github.com/health-intelligence-engine/internal/store"
)

func message(i int) domain.Message {
	return domain.Message{Role: domain.RoleUser, Content: fmt.Sprintf("message %d", i), Timestamp: time.Unix(int64(i), 0).UTC()}
}

func TestMemoryConversationStore_TrimsToCap(t *testing.T) {
	s := NewMemoryConversationStore(0)
	ctx := context.Background()

	for i := 1; i <= 25; i++ {
		require.NoError(t, s.Append(ctx, "c1", message(i)))
	}

	history, err := s.History(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, history, DefaultConversationCap)
	assert.Equal(t, "message 6", history[0].Content)
	assert.Equal(t, "message 25", history[len(history)-1].Content)
}

func TestMemoryConversationStore_Lifecycle(t *testing.T) {
	s := NewMemoryConversationStore(5)
	ctx := context.Background()

	history, err := s.History(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Equal(t, 0, s.Len())

	require.NoError(t, s.Append(ctx, "c1", message(1), message(2)))
	assert.Equal(t, 1, s.Len())

	// returned history is a copy
	history, err = s.History(ctx, "c1")
	require.NoError(t, err)
	history[0].Content = "tampered"
	again, _ := s.History(ctx, "c1")
	assert.Equal(t, "message 1", again[0].Content)

	require.NoError(t, s.Clear(ctx, "c1"))
	history, err = s.History(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Equal(t, 0, s.Len())

	err = s.Append(ctx, "", message(1))
	assert.True(t, domain.IsCode(err, domain.ErrCodeInvalidInput))
}

func TestMemoryConversationStore_ConcurrentAppend(t *testing.T) {
	s := NewMemoryConversationStore(100)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Append(ctx, "shared", message(i))
		}(i)
	}
	wg.Wait()

	history, err := s.History(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, history, 60)
}

func TestNewConversationID(t *testing.T) {
	a, b := NewConversationID(), NewConversationID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func newQuietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func TestQuotaTracker_ExhaustsAndResetsAtMidnight(t *testing.T) {
	ledger := store.NewMemoryStore()
	now := time.Date(2026, 4, 20, 22, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	q := NewQuotaTracker(ledger, newQuietLogger(), WithClock(clock), WithDailyLimit(3))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		status, err := q.CheckQuota(ctx, "p1")
		require.NoError(t, err)
		require.True(t, status.Allowed)
		kind := domain.UsageChat
		if i == 0 {
			kind = domain.UsageSummary
		}
		require.NoError(t, q.RecordUsage(ctx, "p1", kind))
	}

	status, err := q.CheckQuota(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, status.Allowed)
	assert.Equal(t, 3, status.Used)
	assert.Equal(t, 0, status.Remaining())
	assert.Equal(t, time.Date(2026, 4, 21, 0, 0, 0, 0, time.UTC), status.ResetAt)

	other, err := q.CheckQuota(ctx, "p2")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "quota is per patient")

	now = time.Date(2026, 4, 21, 0, 0, 1, 0, time.UTC)
	status, err = q.CheckQuota(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Equal(t, 0, status.Used)
}

func TestQuotaTracker_PruneExpired(t *testing.T) {
	ledger := store.NewMemoryStore()
	now := time.Date(2026, 4, 20, 8, 0, 0, 0, time.UTC)
	q := NewQuotaTracker(ledger, newQuietLogger(), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, ledger.RecordUsage(ctx, domain.UsageEvent{PatientID: "p1", Kind: domain.UsageChat, CreatedAt: now.AddDate(0, 0, -2)}))
	require.NoError(t, ledger.RecordUsage(ctx, domain.UsageEvent{PatientID: "p2", Kind: domain.UsageChat, CreatedAt: now.Add(-9 * time.Hour)}))
	require.NoError(t, q.RecordUsage(ctx, "p1", domain.UsageSummary))

	removed, err := q.PruneExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	status, err := q.CheckQuota(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Used)

	count, err := ledger.CountUsageSince(ctx, "p2", now.AddDate(-1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

type countOnlyLedger struct{}

func (countOnlyLedger) RecordUsage(ctx context.Context, event domain.UsageEvent) error { return nil }

func (countOnlyLedger) CountUsageSince(ctx context.Context, patientID string, since time.Time) (int, error) {
	return 0, nil
}

func TestQuotaTracker_PruneWithoutPruner(t *testing.T) {
	q := NewQuotaTracker(countOnlyLedger{}, newQuietLogger())
	removed, err := q.PruneExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestQuotaTracker_DefaultLimit(t *testing.T) {
	q := NewQuotaTracker(store.NewMemoryStore(), newQuietLogger(), WithDailyLimit(0))
	assert.Equal(t, DefaultDailyLimit, q.Limit())
}

func TestWindowStart(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 2026-01-02 05:00 at +9 is 2026-01-01 20:00 UTC
	got := WindowStart(time.Date(2026, 1, 2, 5, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestRedisConversationStore(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set, skipping Redis conversation tests")
	}

	ctx := context.Background()
	s, err := NewRedisConversationStoreFromURL(ctx, redisURL, "hie:test:", 20, time.Minute)
	require.NoError(t, err)
	defer s.Close()

	id := NewConversationID()
	defer s.Clear(ctx, id)

	for i := 1; i <= 25; i++ {
		require.NoError(t, s.Append(ctx, id, message(i)))
	}

	history, err := s.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 20)
	assert.Equal(t, "message 6", history[0].Content)

	require.NoError(t, s.Clear(ctx, id))
	history, err = s.History(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestNewRedisConversationStoreFromURL_BadURL(t *testing.T) {
	_, err := NewRedisConversationStoreFromURL(context.Background(), "not-a-url", "", 0, 0)
	require.Error(t, err)
}

var _ ConversationStore = (*MemoryConversationStore)(nil)
var _ ConversationStore = (*RedisConversationStore)(nil)
