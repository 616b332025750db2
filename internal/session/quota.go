package session

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/health-intelligence-engine/internal/domain"
)

// DefaultDailyLimit is the default number of summary and chat interactions per
// patient per UTC day.
const DefaultDailyLimit = 10

// QuotaTracker enforces the per-patient daily interaction limit over a usage
// ledger. The window starts at UTC midnight; rollover needs no bookkeeping
// because counts are filtered by creation time.
//
// CheckQuota and RecordUsage are separate calls, so concurrent requests for the
// same patient may each pass the check before either records usage. The
// overshoot is bounded by the number of in-flight requests for that patient.
type QuotaTracker struct {
	logger *logrus.Logger
	ledger domain.UsageLedger
	limit  int
	now    func() time.Time
}

// QuotaOption configures a QuotaTracker.
type QuotaOption func(*QuotaTracker)

// WithClock overrides the clock used to find the current window.
func WithClock(now func() time.Time) QuotaOption {
	return func(q *QuotaTracker) {
		q.now = now
	}
}

// WithDailyLimit sets the daily limit. Values below 1 keep the default.
func WithDailyLimit(limit int) QuotaOption {
	return func(q *QuotaTracker) {
		if limit > 0 {
			q.limit = limit
		}
	}
}

// NewQuotaTracker creates a tracker over the ledger.
func NewQuotaTracker(ledger domain.UsageLedger, logger *logrus.Logger, opts ...QuotaOption) *QuotaTracker {
	q := &QuotaTracker{
		logger: logger,
		ledger: ledger,
		limit:  DefaultDailyLimit,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Limit returns the configured daily limit.
func (q *QuotaTracker) Limit() int {
	return q.limit
}

// CheckQuota reports the patient's usage in the current window and whether
// another interaction is allowed.
func (q *QuotaTracker) CheckQuota(ctx context.Context, patientID string) (*domain.QuotaStatus, error) {
	start := WindowStart(q.now())
	used, err := q.ledger.CountUsageSince(ctx, patientID, start)
	if err != nil {
		return nil, fmt.Errorf("failed to count usage: %w", err)
	}

	status := &domain.QuotaStatus{
		PatientID:   patientID,
		Allowed:     used < q.limit,
		Used:        used,
		Limit:       q.limit,
		WindowStart: start,
		ResetAt:     start.Add(24 * time.Hour),
	}

	if !status.Allowed {
		q.logger.WithFields(logrus.Fields{
			"patient_id": patientID,
			"used":       used,
			"limit":      q.limit,
		}).Info("Daily quota exhausted")
	}
	return status, nil
}

// RecordUsage records one interaction for the patient at the current time.
func (q *QuotaTracker) RecordUsage(ctx context.Context, patientID string, kind domain.UsageKind) error {
	event := domain.UsageEvent{
		PatientID: patientID,
		Kind:      kind,
		CreatedAt: q.now().UTC(),
	}
	if err := q.ledger.RecordUsage(ctx, event); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// PruneExpired removes ledger events from before the current window. Ledgers
// that cannot prune report zero.
func (q *QuotaTracker) PruneExpired(ctx context.Context) (int64, error) {
	pruner, ok := q.ledger.(domain.UsagePruner)
	if !ok {
		return 0, nil
	}
	cutoff := WindowStart(q.now())
	removed, err := pruner.PruneUsageBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune usage: %w", err)
	}
	if removed > 0 {
		q.logger.WithFields(logrus.Fields{
			"cutoff":  cutoff,
			"removed": removed,
		}).Info("Pruned expired usage events")
	}
	return removed, nil
}

// WindowStart returns UTC midnight of the day containing t.
func WindowStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
