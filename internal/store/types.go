// Package store provides the patient record sources the engine reads from:
// profiles, medical reports, clinical notes and prior symptom checks. It also
// holds the usage ledger used for daily quotas in single-process deployments.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/health-intelligence-engine/internal/domain"
)

// Store is a readable and writable patient record store.
type Store interface {
	domain.PatientSource
	domain.SymptomCheckRecorder

	// SaveProfile creates or replaces a patient profile.
	SaveProfile(ctx context.Context, profile *domain.PatientProfile) error

	// AddMedicalReport appends a document record for the patient.
	AddMedicalReport(ctx context.Context, patientID string, report *domain.MedicalReport) error

	// AddClinicalNote appends a clinician note for the patient.
	AddClinicalNote(ctx context.Context, patientID string, note *domain.ClinicalNote) error

	// Close releases resources held by the store.
	Close() error
}

// PatientRecord is the import/export shape of one patient's records.
type PatientRecord struct {
	Profile        domain.PatientProfile  `json:"profile"`
	MedicalReports []domain.MedicalReport `json:"medical_reports,omitempty"`
	ClinicalNotes  []domain.ClinicalNote  `json:"clinical_notes,omitempty"`
	SymptomChecks  []domain.SymptomCheck  `json:"symptom_checks,omitempty"`
}

// SeedDocument is a JSON document of patient records used to seed a store.
type SeedDocument struct {
	Version  string          `json:"version"`
	Patients []PatientRecord `json:"patients"`
}

// ImportJSON loads a SeedDocument into the store and returns the number of
// patients imported.
func ImportJSON(ctx context.Context, s Store, reader io.Reader) (int, error) {
	var doc SeedDocument
	if err := json.NewDecoder(reader).Decode(&doc); err != nil {
		return 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	imported := 0
	for i := range doc.Patients {
		rec := &doc.Patients[i]
		if rec.Profile.PatientID == "" {
			return imported, fmt.Errorf("patient %d: missing patient_id", i)
		}
		patientID := rec.Profile.PatientID

		if err := s.SaveProfile(ctx, &rec.Profile); err != nil {
			return imported, fmt.Errorf("failed to save profile %s: %w", patientID, err)
		}
		for j := range rec.MedicalReports {
			if err := s.AddMedicalReport(ctx, patientID, &rec.MedicalReports[j]); err != nil {
				return imported, fmt.Errorf("failed to add medical report for %s: %w", patientID, err)
			}
		}
		for j := range rec.ClinicalNotes {
			if err := s.AddClinicalNote(ctx, patientID, &rec.ClinicalNotes[j]); err != nil {
				return imported, fmt.Errorf("failed to add clinical note for %s: %w", patientID, err)
			}
		}
		for j := range rec.SymptomChecks {
			if err := s.SaveSymptomCheck(ctx, patientID, &rec.SymptomChecks[j]); err != nil {
				return imported, fmt.Errorf("failed to add symptom check for %s: %w", patientID, err)
			}
		}
		imported++
	}
	return imported, nil
}

// stamp fills in a missing ID and creation time.
func stamp(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
}
