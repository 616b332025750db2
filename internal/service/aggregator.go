package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/health-intelligence-engine/internal/domain"
)

const (
	DefaultContextWindowDays = 7
	MaxContextWindowDays     = 365

	maxMedicalReports = 3
	maxClinicalNotes  = 3
	maxSymptomChecks  = 5

	minDataPoints = 2

	ReasonNoData           = "no data: no medical reports, clinical notes or symptom checks found in the selected timeframe"
	ReasonInsufficientData = "insufficient data: at least 2 records are required to generate a summary"
)

// ContextAggregator builds bounded, read-only snapshots of recent patient activity.
type ContextAggregator struct {
	logger *logrus.Logger
	source domain.PatientSource
	now    func() time.Time
}

// AggregatorOption configures a ContextAggregator.
type AggregatorOption func(*ContextAggregator)

// WithAggregatorClock overrides the clock used for the window start and age.
func WithAggregatorClock(now func() time.Time) AggregatorOption {
	return func(a *ContextAggregator) {
		a.now = now
	}
}

// NewContextAggregator creates a new context aggregator over a patient source.
func NewContextAggregator(logger *logrus.Logger, source domain.PatientSource, opts ...AggregatorOption) *ContextAggregator {
	a := &ContextAggregator{
		logger: logger,
		source: source,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate collects the patient's reports, notes and symptom checks created in
// the last windowDays days. A windowDays of zero or less uses the default window.
func (a *ContextAggregator) Aggregate(ctx context.Context, patientID string, windowDays int) (*domain.PatientContext, error) {
	if patientID == "" {
		return nil, domain.NewInvalidInputError("patient id is required",
			domain.NewValidationError("patient_id", "must not be empty", patientID))
	}
	if windowDays <= 0 {
		windowDays = DefaultContextWindowDays
	}
	if windowDays > MaxContextWindowDays {
		return nil, domain.NewInvalidInputError(
			fmt.Sprintf("timeframe must not exceed %d days", MaxContextWindowDays),
			domain.NewValidationError("timeframe_days", fmt.Sprintf("must be at most %d", MaxContextWindowDays), windowDays))
	}

	profile, err := a.source.GetProfile(ctx, patientID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewNotFoundError("patient profile", patientID)
		}
		return nil, fmt.Errorf("failed to load patient profile: %w", err)
	}

	now := a.now().UTC()
	since := now.AddDate(0, 0, -windowDays)

	pc := &domain.PatientContext{
		PatientID:     patientID,
		ProfileFacts:  profileFacts(profile, now),
		TimeframeDays: windowDays,
		GeneratedAt:   now,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reports, err := a.source.ListMedicalReports(gctx, patientID, since, maxMedicalReports)
		if err != nil {
			return fmt.Errorf("failed to list medical reports: %w", err)
		}
		pc.MedicalReports = reports
		return nil
	})
	g.Go(func() error {
		notes, err := a.source.ListClinicalNotes(gctx, patientID, since, maxClinicalNotes)
		if err != nil {
			return fmt.Errorf("failed to list clinical notes: %w", err)
		}
		pc.ClinicalNotes = notes
		return nil
	})
	g.Go(func() error {
		checks, err := a.source.ListSymptomChecks(gctx, patientID, since, maxSymptomChecks)
		if err != nil {
			return fmt.Errorf("failed to list symptom checks: %w", err)
		}
		pc.SymptomChecks = checks
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Sources are trusted to honour the limit but the snapshot bound is enforced here.
	pc.MedicalReports = truncate(pc.MedicalReports, maxMedicalReports)
	pc.ClinicalNotes = truncate(pc.ClinicalNotes, maxClinicalNotes)
	pc.SymptomChecks = truncate(pc.SymptomChecks, maxSymptomChecks)

	a.logger.WithFields(logrus.Fields{
		"patient_id":      patientID,
		"timeframe_days":  windowDays,
		"medical_reports": len(pc.MedicalReports),
		"clinical_notes":  len(pc.ClinicalNotes),
		"symptom_checks":  len(pc.SymptomChecks),
	}).Debug("Aggregated patient context")

	return pc, nil
}

// Summarize reports the counts and most recent activity of the patient's context.
func (a *ContextAggregator) Summarize(ctx context.Context, patientID string, windowDays int) (*domain.ContextSummary, error) {
	pc, err := a.Aggregate(ctx, patientID, windowDays)
	if err != nil {
		return nil, err
	}
	return SummarizeSnapshot(pc), nil
}

// Validate checks whether the patient's context holds enough data for a summary.
func (a *ContextAggregator) Validate(ctx context.Context, patientID string, windowDays int) (*domain.ContextValidation, error) {
	pc, err := a.Aggregate(ctx, patientID, windowDays)
	if err != nil {
		return nil, err
	}
	return ValidateSnapshot(pc), nil
}

// SummarizeSnapshot computes a ContextSummary from an existing snapshot.
func SummarizeSnapshot(pc *domain.PatientContext) *domain.ContextSummary {
	var last *time.Time
	consider := func(t time.Time) {
		if t.IsZero() {
			return
		}
		if last == nil || t.After(*last) {
			ts := t
			last = &ts
		}
	}
	for _, r := range pc.MedicalReports {
		consider(r.CreatedAt)
	}
	for _, n := range pc.ClinicalNotes {
		consider(n.CreatedAt)
	}
	for _, c := range pc.SymptomChecks {
		consider(c.CreatedAt)
	}

	return &domain.ContextSummary{
		PatientID:             pc.PatientID,
		Counts:                pc.Counts(),
		LastActivityTimestamp: last,
		HasActivity:           pc.DataPointCount() > 0,
	}
}

// ValidateSnapshot applies the data-point threshold to an existing snapshot.
func ValidateSnapshot(pc *domain.PatientContext) *domain.ContextValidation {
	count := pc.DataPointCount()
	switch {
	case count == 0:
		return &domain.ContextValidation{IsValid: false, Reason: ReasonNoData, DataPointCount: 0}
	case count < minDataPoints:
		return &domain.ContextValidation{IsValid: false, Reason: ReasonInsufficientData, DataPointCount: count}
	default:
		return &domain.ContextValidation{IsValid: true, DataPointCount: count}
	}
}

func profileFacts(profile *domain.PatientProfile, now time.Time) domain.ProfileFacts {
	if profile == nil {
		return domain.ProfileFacts{}
	}
	facts := domain.ProfileFacts{
		Gender: profile.Gender,
		Phone:  profile.Phone,
	}
	if profile.DateOfBirth != nil && !profile.DateOfBirth.IsZero() {
		age := ageAt(*profile.DateOfBirth, now)
		if age >= 0 {
			facts.Age = &age
		}
	}
	return facts
}

func ageAt(dob, now time.Time) int {
	dob = dob.UTC()
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

func truncate[T any](items []T, limit int) []T {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
