package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/health-intelligence-engine/internal/domain"
)

// UsageRepository is the Postgres-backed quota ledger.
type UsageRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *pgxpool.Pool, logger *logrus.Logger) *UsageRepository {
	return &UsageRepository{
		db:  db,
		log: logger,
	}
}

// RecordUsage inserts one quota-consuming event.
func (r *UsageRepository) RecordUsage(ctx context.Context, event domain.UsageEvent) error {
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO usage_events (patient_id, kind, created_at)
		VALUES ($1, $2, $3)`

	if _, err := r.db.Exec(ctx, query, event.PatientID, string(event.Kind), createdAt.UTC()); err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": event.PatientID,
			"kind":       event.Kind,
			"error":      err,
		}).Error("Failed to record usage event")
		return fmt.Errorf("recording usage event: %w", err)
	}
	return nil
}

// CountUsageSince counts the patient's events created at or after since.
func (r *UsageRepository) CountUsageSince(ctx context.Context, patientID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM usage_events
		WHERE patient_id = $1 AND created_at >= $2`

	var count int
	if err := r.db.QueryRow(ctx, query, patientID, since.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting usage events: %w", err)
	}
	return count, nil
}

// PruneUsageBefore removes events older than cutoff and returns how many were removed.
func (r *UsageRepository) PruneUsageBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM usage_events WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning usage events: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"cutoff":  cutoff.UTC(),
		"removed": tag.RowsAffected(),
	}).Debug("Pruned usage events")

	return tag.RowsAffected(), nil
}
