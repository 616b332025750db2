package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-intelligence-engine/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "store-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := NewSQLiteStore(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "store-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_Profile(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	_, err := store.GetProfile(ctx, "p1")
	assert.True(t, domain.IsCode(err, domain.ErrCodeNotFound))

	dob := time.Date(1985, 7, 14, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveProfile(ctx, &domain.PatientProfile{PatientID: "p1", DateOfBirth: &dob, Gender: "male"}))

	profile, err := store.GetProfile(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "male", profile.Gender)
	require.NotNil(t, profile.DateOfBirth)
	assert.True(t, dob.Equal(*profile.DateOfBirth))

	// upsert replaces fields
	require.NoError(t, store.SaveProfile(ctx, &domain.PatientProfile{PatientID: "p1", Phone: "555-0100"}))
	profile, err = store.GetProfile(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, profile.DateOfBirth)
	assert.Equal(t, "555-0100", profile.Phone)
}

func TestSQLiteStore_Records(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 4; i++ {
		require.NoError(t, store.AddMedicalReport(ctx, "p1", &domain.MedicalReport{
			Title:     "report",
			CreatedAt: now.Add(-time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, store.AddMedicalReport(ctx, "p1", &domain.MedicalReport{Title: "old", CreatedAt: now.AddDate(0, 0, -10)}))
	require.NoError(t, store.AddClinicalNote(ctx, "p1", &domain.ClinicalNote{Comments: "Stable", CreatedAt: now}))
	require.NoError(t, store.SaveSymptomCheck(ctx, "p1", &domain.SymptomCheck{
		Symptoms:   []string{"cough", "high_fever"},
		AIResponse: "Influenza is likely",
		Severity:   domain.SeverityMedium,
		CreatedAt:  now,
	}))

	since := now.AddDate(0, 0, -7)

	reports, err := store.ListMedicalReports(ctx, "p1", since, 3)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.True(t, reports[0].CreatedAt.After(reports[1].CreatedAt))

	allReports, err := store.ListMedicalReports(ctx, "p1", since, 0)
	require.NoError(t, err)
	assert.Len(t, allReports, 4)

	notes, err := store.ListClinicalNotes(ctx, "p1", since, 3)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Stable", notes[0].Comments)

	checks, err := store.ListSymptomChecks(ctx, "p1", since, 5)
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, []string{"cough", "high_fever"}, checks[0].Symptoms)
	assert.Equal(t, domain.SeverityMedium, checks[0].Severity)
	assert.Equal(t, now.UnixNano(), checks[0].CreatedAt.UnixNano())

	other, err := store.ListSymptomChecks(ctx, "p2", since, 5)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSQLiteStore_Usage(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()
	midnight := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordUsage(ctx, domain.UsageEvent{PatientID: "p1", Kind: domain.UsageChat, CreatedAt: midnight.Add(-time.Second)}))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordUsage(ctx, domain.UsageEvent{PatientID: "p1", Kind: domain.UsageSummary, CreatedAt: midnight.Add(time.Duration(i) * time.Minute)}))
	}

	count, err := store.CountUsageSince(ctx, "p1", midnight)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = store.CountUsageSince(ctx, "p2", midnight)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
