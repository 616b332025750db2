package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-intelligence-engine/internal/domain"
	"github.com/health-intelligence-engine/internal/store"
)

var fixedNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type failingSource struct {
	*store.MemoryStore
}

func (f failingSource) ListClinicalNotes(ctx context.Context, patientID string, since time.Time, limit int) ([]domain.ClinicalNote, error) {
	return nil, errors.New("notes backend unavailable")
}

func seedPatient(t *testing.T, s *store.MemoryStore, patientID string, reports, notes, checks int) {
	t.Helper()
	ctx := context.Background()
	dob := time.Date(1980, 6, 16, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveProfile(ctx, &domain.PatientProfile{PatientID: patientID, DateOfBirth: &dob, Gender: "female"}))

	for i := 0; i < reports; i++ {
		require.NoError(t, s.AddMedicalReport(ctx, patientID, &domain.MedicalReport{
			Title:     "Lab result",
			CreatedAt: fixedNow.Add(-time.Duration(i+1) * time.Hour),
		}))
	}
	for i := 0; i < notes; i++ {
		require.NoError(t, s.AddClinicalNote(ctx, patientID, &domain.ClinicalNote{
			Comments:  "Follow up",
			CreatedAt: fixedNow.Add(-time.Duration(i+1) * 2 * time.Hour),
		}))
	}
	for i := 0; i < checks; i++ {
		require.NoError(t, s.SaveSymptomCheck(ctx, patientID, &domain.SymptomCheck{
			Symptoms:  []string{"cough"},
			Severity:  domain.SeverityLow,
			CreatedAt: fixedNow.Add(-time.Duration(i+1) * 3 * time.Hour),
		}))
	}
}

func TestContextAggregator_Aggregate(t *testing.T) {
	s := store.NewMemoryStore()
	seedPatient(t, s, "p1", 5, 4, 7)
	require.NoError(t, s.AddMedicalReport(context.Background(), "p1", &domain.MedicalReport{
		Title:     "Outside window",
		CreatedAt: fixedNow.AddDate(0, 0, -8),
	}))

	agg := NewContextAggregator(newTestLogger(), s, WithAggregatorClock(fixedClock))

	pc, err := agg.Aggregate(context.Background(), "p1", 0)
	require.NoError(t, err)

	assert.Equal(t, DefaultContextWindowDays, pc.TimeframeDays)
	assert.Len(t, pc.MedicalReports, 3)
	assert.Len(t, pc.ClinicalNotes, 3)
	assert.Len(t, pc.SymptomChecks, 5)
	assert.True(t, pc.MedicalReports[0].CreatedAt.After(pc.MedicalReports[1].CreatedAt))
	for _, r := range pc.MedicalReports {
		assert.NotEqual(t, "Outside window", r.Title)
	}

	require.NotNil(t, pc.ProfileFacts.Age)
	assert.Equal(t, 45, *pc.ProfileFacts.Age, "birthday is tomorrow")
	assert.Equal(t, "female", pc.ProfileFacts.Gender)
	assert.Equal(t, fixedNow, pc.GeneratedAt)
}

func TestContextAggregator_NotFound(t *testing.T) {
	agg := NewContextAggregator(newTestLogger(), store.NewMemoryStore())

	_, err := agg.Aggregate(context.Background(), "ghost", 7)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ErrCodeNotFound))
}

func TestContextAggregator_EmptyPatientID(t *testing.T) {
	agg := NewContextAggregator(newTestLogger(), store.NewMemoryStore())

	_, err := agg.Aggregate(context.Background(), "", 7)
	assert.True(t, domain.IsCode(err, domain.ErrCodeInvalidInput))
}

func TestContextAggregator_RejectsOversizedWindow(t *testing.T) {
	s := store.NewMemoryStore()
	seedPatient(t, s, "p1", 1, 1, 1)
	agg := NewContextAggregator(newTestLogger(), s, WithAggregatorClock(fixedClock))

	_, err := agg.Aggregate(context.Background(), "p1", MaxContextWindowDays+1)
	assert.True(t, domain.IsCode(err, domain.ErrCodeInvalidInput))

	_, err = agg.Summarize(context.Background(), "p1", 1<<40)
	assert.True(t, domain.IsCode(err, domain.ErrCodeInvalidInput))

	pc, err := agg.Aggregate(context.Background(), "p1", MaxContextWindowDays)
	require.NoError(t, err)
	assert.Equal(t, MaxContextWindowDays, pc.TimeframeDays)
}

func TestContextAggregator_SourceFailure(t *testing.T) {
	s := store.NewMemoryStore()
	seedPatient(t, s, "p1", 1, 1, 1)
	agg := NewContextAggregator(newTestLogger(), failingSource{s}, WithAggregatorClock(fixedClock))

	_, err := agg.Aggregate(context.Background(), "p1", 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notes backend unavailable")
	assert.Equal(t, domain.ErrCodeInternal, domain.CodeOf(err))
}

func TestContextAggregator_Validate(t *testing.T) {
	tests := []struct {
		name          string
		reports       int
		notes         int
		checks        int
		valid         bool
		reason        string
		dataPointsOut int
	}{
		{name: "no data", valid: false, reason: ReasonNoData, dataPointsOut: 0},
		{name: "single record", reports: 1, valid: false, reason: ReasonInsufficientData, dataPointsOut: 1},
		{name: "two records", notes: 1, checks: 1, valid: true, dataPointsOut: 2},
		{name: "capped records", reports: 9, notes: 9, checks: 9, valid: true, dataPointsOut: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := store.NewMemoryStore()
			seedPatient(t, s, "p1", tt.reports, tt.notes, tt.checks)
			agg := NewContextAggregator(newTestLogger(), s, WithAggregatorClock(fixedClock))

			v, err := agg.Validate(context.Background(), "p1", 7)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, v.IsValid)
			assert.Equal(t, tt.reason, v.Reason)
			assert.Equal(t, tt.dataPointsOut, v.DataPointCount)
		})
	}
}

func TestContextAggregator_Summarize(t *testing.T) {
	s := store.NewMemoryStore()
	seedPatient(t, s, "p1", 2, 1, 0)
	agg := NewContextAggregator(newTestLogger(), s, WithAggregatorClock(fixedClock))

	summary, err := agg.Summarize(context.Background(), "p1", 7)
	require.NoError(t, err)
	assert.True(t, summary.HasActivity)
	assert.Equal(t, 2, summary.Counts.MedicalReports)
	assert.Equal(t, 1, summary.Counts.ClinicalNotes)
	require.NotNil(t, summary.LastActivityTimestamp)
	assert.Equal(t, fixedNow.Add(-time.Hour), *summary.LastActivityTimestamp)

	s2 := store.NewMemoryStore()
	seedPatient(t, s2, "p2", 0, 0, 0)
	empty, err := NewContextAggregator(newTestLogger(), s2, WithAggregatorClock(fixedClock)).Summarize(context.Background(), "p2", 7)
	require.NoError(t, err)
	assert.False(t, empty.HasActivity)
	assert.Nil(t, empty.LastActivityTimestamp)
}
