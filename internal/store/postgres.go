package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/health-intelligence-engine/internal/domain"
)

// PostgresStore implements Store using PostgreSQL.
// It expects the schema to already exist (created via migrations).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL patient store.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL patient store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// SaveProfile creates or replaces a patient profile.
func (s *PostgresStore) SaveProfile(ctx context.Context, profile *domain.PatientProfile) error {
	var dob interface{}
	if profile.DateOfBirth != nil {
		dob = profile.DateOfBirth.UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO patient_profiles (patient_id, date_of_birth, gender, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (patient_id) DO UPDATE SET
			date_of_birth = EXCLUDED.date_of_birth,
			gender = EXCLUDED.gender,
			phone = EXCLUDED.phone
	`, profile.PatientID, dob, profile.Gender, profile.Phone)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// GetProfile returns the patient's profile or a NotFound error.
func (s *PostgresStore) GetProfile(ctx context.Context, patientID string) (*domain.PatientProfile, error) {
	profile := &domain.PatientProfile{}
	var dob sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT patient_id, date_of_birth, gender, phone
		FROM patient_profiles
		WHERE patient_id = $1
	`, patientID).Scan(&profile.PatientID, &dob, &profile.Gender, &profile.Phone)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("patient profile", patientID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if dob.Valid {
		t := dob.Time.UTC()
		profile.DateOfBirth = &t
	}
	return profile, nil
}

// AddMedicalReport appends a document record for the patient.
func (s *PostgresStore) AddMedicalReport(ctx context.Context, patientID string, report *domain.MedicalReport) error {
	stamp(&report.ID, &report.CreatedAt)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO medical_reports (id, patient_id, title, description, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, report.ID, patientID, report.Title, report.Description, report.UploadedBy, report.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert medical report: %w", err)
	}
	return nil
}

// AddClinicalNote appends a clinician note for the patient.
func (s *PostgresStore) AddClinicalNote(ctx context.Context, patientID string, note *domain.ClinicalNote) error {
	stamp(&note.ID, &note.CreatedAt)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clinical_notes (id, patient_id, comments, diagnosis, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, note.ID, patientID, note.Comments, note.Diagnosis, note.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert clinical note: %w", err)
	}
	return nil
}

// SaveSymptomCheck records a completed symptom assessment.
func (s *PostgresStore) SaveSymptomCheck(ctx context.Context, patientID string, check *domain.SymptomCheck) error {
	stamp(&check.ID, &check.CreatedAt)
	symptoms, err := json.Marshal(nonNil(check.Symptoms))
	if err != nil {
		return fmt.Errorf("failed to encode symptoms: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO symptom_checks (id, patient_id, symptoms, ai_response, severity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, check.ID, patientID, string(symptoms), check.AIResponse, string(check.Severity), check.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert symptom check: %w", err)
	}
	return nil
}

// ListMedicalReports returns reports created at or after since, newest first.
func (s *PostgresStore) ListMedicalReports(ctx context.Context, patientID string, since time.Time, limit int) ([]domain.MedicalReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, uploaded_by, created_at
		FROM medical_reports
		WHERE patient_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3
	`, patientID, since, postgresLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query medical reports: %w", err)
	}
	defer rows.Close()

	var result []domain.MedicalReport
	for rows.Next() {
		var r domain.MedicalReport
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.UploadedBy, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ListClinicalNotes returns notes created at or after since, newest first.
func (s *PostgresStore) ListClinicalNotes(ctx context.Context, patientID string, since time.Time, limit int) ([]domain.ClinicalNote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, comments, diagnosis, created_at
		FROM clinical_notes
		WHERE patient_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3
	`, patientID, since, postgresLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query clinical notes: %w", err)
	}
	defer rows.Close()

	var result []domain.ClinicalNote
	for rows.Next() {
		var n domain.ClinicalNote
		if err := rows.Scan(&n.ID, &n.Comments, &n.Diagnosis, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

// ListSymptomChecks returns checks created at or after since, newest first.
func (s *PostgresStore) ListSymptomChecks(ctx context.Context, patientID string, since time.Time, limit int) ([]domain.SymptomCheck, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symptoms, ai_response, severity, created_at
		FROM symptom_checks
		WHERE patient_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3
	`, patientID, since, postgresLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query symptom checks: %w", err)
	}
	defer rows.Close()

	var result []domain.SymptomCheck
	for rows.Next() {
		var c domain.SymptomCheck
		var symptoms []byte
		var severity string
		if err := rows.Scan(&c.ID, &symptoms, &c.AIResponse, &severity, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal(symptoms, &c.Symptoms); err != nil {
			return nil, fmt.Errorf("invalid symptoms column: %w", err)
		}
		c.Severity = domain.SeverityClass(severity)
		result = append(result, c)
	}
	return result, rows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// postgresLimit maps "no limit" onto LIMIT NULL.
func postgresLimit(limit int) interface{} {
	if limit <= 0 {
		return nil
	}
	return limit
}
