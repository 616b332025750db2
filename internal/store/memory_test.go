package store

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-intelligence-engine/internal/domain"
)

func TestMemoryStore_GetProfileNotFound(t *testing.T) {
	s := NewMemoryStore()

	profile, err := s.GetProfile(context.Background(), "missing")
	assert.Nil(t, profile)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.True(t, domain.IsCode(err, domain.ErrCodeNotFound))
}

func TestMemoryStore_ListFiltersSortsAndLimits(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.SaveProfile(ctx, &domain.PatientProfile{PatientID: "p1"}))
	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddMedicalReport(ctx, "p1", &domain.MedicalReport{
			Title:     "report",
			CreatedAt: now.Add(-time.Duration(i) * 24 * time.Hour),
		}))
	}
	require.NoError(t, s.AddMedicalReport(ctx, "p1", &domain.MedicalReport{
		Title:     "ancient",
		CreatedAt: now.AddDate(0, 0, -30),
	}))
	require.NoError(t, s.AddMedicalReport(ctx, "p2", &domain.MedicalReport{Title: "other patient"}))

	since := now.AddDate(0, 0, -7)

	all, err := s.ListMedicalReports(ctx, "p1", since, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i-1].CreatedAt.After(all[i].CreatedAt))
	}
	for _, r := range all {
		assert.NotEmpty(t, r.ID)
	}

	limited, err := s.ListMedicalReports(ctx, "p1", since, 3)
	require.NoError(t, err)
	require.Len(t, limited, 3)
	assert.Equal(t, all[:3], limited)
}

func TestMemoryStore_UsageWindow(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	midnight := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordUsage(ctx, domain.UsageEvent{PatientID: "p1", Kind: domain.UsageChat, CreatedAt: midnight.Add(-time.Minute)}))
	require.NoError(t, s.RecordUsage(ctx, domain.UsageEvent{PatientID: "p1", Kind: domain.UsageChat, CreatedAt: midnight}))
	require.NoError(t, s.RecordUsage(ctx, domain.UsageEvent{PatientID: "p1", Kind: domain.UsageSummary, CreatedAt: midnight.Add(time.Hour)}))
	require.NoError(t, s.RecordUsage(ctx, domain.UsageEvent{PatientID: "p2", Kind: domain.UsageChat, CreatedAt: midnight.Add(time.Hour)}))

	count, err := s.CountUsageSince(ctx, "p1", midnight)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemoryStore_ConcurrentWrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.RecordUsage(ctx, domain.UsageEvent{PatientID: "p1", Kind: domain.UsageChat})
			_ = s.SaveSymptomCheck(ctx, "p1", &domain.SymptomCheck{Symptoms: []string{"cough"}, Severity: domain.SeverityLow})
		}()
	}
	wg.Wait()

	count, err := s.CountUsageSince(ctx, "p1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 50, count)

	checks, err := s.ListSymptomChecks(ctx, "p1", time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, checks, 50)
}

func TestImportJSON(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	doc := `{
		"version": "1.0",
		"patients": [{
			"profile": {"patient_id": "p1", "gender": "female", "date_of_birth": "1980-05-01T00:00:00Z"},
			"medical_reports": [{"title": "Blood panel", "description": "Normal", "created_at": "2026-01-01T10:00:00Z"}],
			"clinical_notes": [{"diagnosis": "Hypertension", "created_at": "2026-01-02T10:00:00Z"}],
			"symptom_checks": [{"symptoms": ["cough"], "severity": "low", "created_at": "2026-01-03T10:00:00Z"}]
		}]
	}`

	n, err := ImportJSON(ctx, s, strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	profile, err := s.GetProfile(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "female", profile.Gender)
	require.NotNil(t, profile.DateOfBirth)

	notes, err := s.ListClinicalNotes(ctx, "p1", time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Hypertension", notes[0].Text())
}

func TestImportJSON_MissingPatientID(t *testing.T) {
	s := NewMemoryStore()

	_, err := ImportJSON(context.Background(), s, strings.NewReader(`{"patients": [{"profile": {}}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing patient_id")
}
