package domain

import (
	"context"
	"time"
)

// PatientSource reads the external patient collaborators: profiles, documents,
// clinician notes and prior symptom checks. List methods return records created
// at or after since, newest first; limit <= 0 means no limit.
type PatientSource interface {
	GetProfile(ctx context.Context, patientID string) (*PatientProfile, error)
	ListMedicalReports(ctx context.Context, patientID string, since time.Time, limit int) ([]MedicalReport, error)
	ListClinicalNotes(ctx context.Context, patientID string, since time.Time, limit int) ([]ClinicalNote, error)
	ListSymptomChecks(ctx context.Context, patientID string, since time.Time, limit int) ([]SymptomCheck, error)
}

// SymptomCheckRecorder persists completed symptom assessments.
type SymptomCheckRecorder interface {
	SaveSymptomCheck(ctx context.Context, patientID string, check *SymptomCheck) error
}

// UsageLedger records quota-consuming events and counts them by window.
type UsageLedger interface {
	RecordUsage(ctx context.Context, event UsageEvent) error
	CountUsageSince(ctx context.Context, patientID string, since time.Time) (int, error)
}

// UsagePruner is implemented by ledgers that can drop events no quota window
// will count again.
type UsagePruner interface {
	PruneUsageBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ModelInvoker sends a prompt to the provider family serving modelID.
type ModelInvoker interface {
	Invoke(ctx context.Context, prompt, modelID string) (string, error)
	Supports(modelID string) error
	Models() []ModelInfo
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetProvidersConfig() *ProvidersConfig
	GetEngineConfig() *EngineConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	IsProduction() bool
	IsDevelopment() bool
}
