package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/health-intelligence-engine/internal/domain"
)

const dateLayout = "2006-01-02"

// SQLiteStore implements Store and domain.UsageLedger using SQLite. Timestamps
// are stored as UTC unix nanoseconds so window filters compare numerically.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite patient store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS patient_profiles (
		patient_id TEXT PRIMARY KEY,
		date_of_birth TEXT,
		gender TEXT DEFAULT '',
		phone TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS medical_reports (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT DEFAULT '',
		uploaded_by TEXT DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS clinical_notes (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		comments TEXT DEFAULT '',
		diagnosis TEXT DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS symptom_checks (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		symptoms TEXT NOT NULL DEFAULT '[]',
		ai_response TEXT DEFAULT '',
		severity TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS usage_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		patient_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_medical_reports_patient ON medical_reports(patient_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_clinical_notes_patient ON clinical_notes(patient_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_symptom_checks_patient ON symptom_checks(patient_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_usage_events_patient ON usage_events(patient_id, created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// SaveProfile creates or replaces a patient profile.
func (s *SQLiteStore) SaveProfile(ctx context.Context, profile *domain.PatientProfile) error {
	var dob interface{}
	if profile.DateOfBirth != nil {
		dob = profile.DateOfBirth.UTC().Format(dateLayout)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO patient_profiles (patient_id, date_of_birth, gender, phone)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(patient_id) DO UPDATE SET
			date_of_birth = excluded.date_of_birth,
			gender = excluded.gender,
			phone = excluded.phone
	`, profile.PatientID, dob, profile.Gender, profile.Phone)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// GetProfile returns the patient's profile or a NotFound error.
func (s *SQLiteStore) GetProfile(ctx context.Context, patientID string) (*domain.PatientProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT patient_id, date_of_birth, gender, phone
		FROM patient_profiles
		WHERE patient_id = ?
	`, patientID)

	profile := &domain.PatientProfile{}
	var dob sql.NullString
	err := row.Scan(&profile.PatientID, &dob, &profile.Gender, &profile.Phone)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("patient profile", patientID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}

	if dob.Valid && dob.String != "" {
		t, err := time.Parse(dateLayout, dob.String)
		if err != nil {
			return nil, fmt.Errorf("invalid date_of_birth %q: %w", dob.String, err)
		}
		profile.DateOfBirth = &t
	}
	return profile, nil
}

// AddMedicalReport appends a document record for the patient.
func (s *SQLiteStore) AddMedicalReport(ctx context.Context, patientID string, report *domain.MedicalReport) error {
	stamp(&report.ID, &report.CreatedAt)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO medical_reports (id, patient_id, title, description, uploaded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, report.ID, patientID, report.Title, report.Description, report.UploadedBy, report.CreatedAt.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert medical report: %w", err)
	}
	return nil
}

// AddClinicalNote appends a clinician note for the patient.
func (s *SQLiteStore) AddClinicalNote(ctx context.Context, patientID string, note *domain.ClinicalNote) error {
	stamp(&note.ID, &note.CreatedAt)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clinical_notes (id, patient_id, comments, diagnosis, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, note.ID, patientID, note.Comments, note.Diagnosis, note.CreatedAt.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert clinical note: %w", err)
	}
	return nil
}

// SaveSymptomCheck records a completed symptom assessment.
func (s *SQLiteStore) SaveSymptomCheck(ctx context.Context, patientID string, check *domain.SymptomCheck) error {
	stamp(&check.ID, &check.CreatedAt)
	symptoms, err := json.Marshal(nonNil(check.Symptoms))
	if err != nil {
		return fmt.Errorf("failed to encode symptoms: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO symptom_checks (id, patient_id, symptoms, ai_response, severity, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, check.ID, patientID, string(symptoms), check.AIResponse, string(check.Severity), check.CreatedAt.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert symptom check: %w", err)
	}
	return nil
}

// ListMedicalReports returns reports created at or after since, newest first.
func (s *SQLiteStore) ListMedicalReports(ctx context.Context, patientID string, since time.Time, limit int) ([]domain.MedicalReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, uploaded_by, created_at
		FROM medical_reports
		WHERE patient_id = ? AND created_at >= ?
		ORDER BY created_at DESC
		LIMIT ?
	`, patientID, since.UTC().UnixNano(), sqliteLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query medical reports: %w", err)
	}
	defer rows.Close()

	var result []domain.MedicalReport
	for rows.Next() {
		var r domain.MedicalReport
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.UploadedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.CreatedAt = time.Unix(0, createdAt).UTC()
		result = append(result, r)
	}
	return result, rows.Err()
}

// ListClinicalNotes returns notes created at or after since, newest first.
func (s *SQLiteStore) ListClinicalNotes(ctx context.Context, patientID string, since time.Time, limit int) ([]domain.ClinicalNote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, comments, diagnosis, created_at
		FROM clinical_notes
		WHERE patient_id = ? AND created_at >= ?
		ORDER BY created_at DESC
		LIMIT ?
	`, patientID, since.UTC().UnixNano(), sqliteLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query clinical notes: %w", err)
	}
	defer rows.Close()

	var result []domain.ClinicalNote
	for rows.Next() {
		var n domain.ClinicalNote
		var createdAt int64
		if err := rows.Scan(&n.ID, &n.Comments, &n.Diagnosis, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		n.CreatedAt = time.Unix(0, createdAt).UTC()
		result = append(result, n)
	}
	return result, rows.Err()
}

// ListSymptomChecks returns checks created at or after since, newest first.
func (s *SQLiteStore) ListSymptomChecks(ctx context.Context, patientID string, since time.Time, limit int) ([]domain.SymptomCheck, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symptoms, ai_response, severity, created_at
		FROM symptom_checks
		WHERE patient_id = ? AND created_at >= ?
		ORDER BY created_at DESC
		LIMIT ?
	`, patientID, since.UTC().UnixNano(), sqliteLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query symptom checks: %w", err)
	}
	defer rows.Close()

	var result []domain.SymptomCheck
	for rows.Next() {
		check, err := scanSymptomCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, *check)
	}
	return result, rows.Err()
}

func scanSymptomCheck(s scanner) (*domain.SymptomCheck, error) {
	check := &domain.SymptomCheck{}
	var symptoms, severity string
	var createdAt int64
	if err := s.Scan(&check.ID, &symptoms, &check.AIResponse, &severity, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(symptoms), &check.Symptoms); err != nil {
		return nil, fmt.Errorf("invalid symptoms column: %w", err)
	}
	check.Severity = domain.SeverityClass(severity)
	check.CreatedAt = time.Unix(0, createdAt).UTC()
	return check, nil
}

// RecordUsage appends a quota-consuming event.
func (s *SQLiteStore) RecordUsage(ctx context.Context, event domain.UsageEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO usage_events (patient_id, kind, created_at) VALUES (?, ?, ?)",
		event.PatientID, string(event.Kind), event.CreatedAt.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// CountUsageSince counts the patient's events created at or after since.
func (s *SQLiteStore) CountUsageSince(ctx context.Context, patientID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM usage_events WHERE patient_id = ? AND created_at >= ?",
		patientID, since.UTC().UnixNano(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count usage: %w", err)
	}
	return count, nil
}

// PruneUsageBefore deletes usage events created before cutoff.
func (s *SQLiteStore) PruneUsageBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM usage_events WHERE created_at < ?", cutoff.UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune usage: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// sqliteLimit maps "no limit" onto SQLite's LIMIT -1.
func sqliteLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
