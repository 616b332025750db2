package domain

import (
	"time"
)

// SymptomWeight is an immutable row of the symptom severity table.
type SymptomWeight struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

// DiseaseProfile is an immutable disease reference row. Symptoms is never empty.
type DiseaseProfile struct {
	Name            string        `json:"name"`
	Symptoms        []string      `json:"symptoms"`
	SeverityClass   SeverityClass `json:"severity_class"`
	Recommendations []string      `json:"recommendations"`
}

// HasSymptom reports whether the profile lists the given normalized symptom.
func (d DiseaseProfile) HasSymptom(name string) bool {
	for _, s := range d.Symptoms {
		if s == name {
			return true
		}
	}
	return false
}

// ReportedSymptom is a single patient-submitted symptom.
type ReportedSymptom struct {
	Name     string          `json:"name"`
	Severity SymptomSeverity `json:"severity"`
	Duration string          `json:"duration"`
}

// PredictionResult is one ranked disease candidate.
type PredictionResult struct {
	Disease              string        `json:"disease"`
	Confidence           float64       `json:"confidence"`
	MatchingSymptomCount int           `json:"matching_symptom_count"`
	MatchedSymptoms      []string      `json:"matched_symptoms"`
	SeverityClass        SeverityClass `json:"severity_class"`
}

// PredictionReport is the full output of a symptom assessment.
type PredictionReport struct {
	Predictions        []PredictionResult `json:"predictions"`
	OverallSeverity    SeverityClass      `json:"overall_severity"`
	SeverityScore      int                `json:"severity_score"`
	Recommendations    []string           `json:"recommendations"`
	AINarrative        string             `json:"ai_narrative"`
	NormalizedSymptoms []string           `json:"normalized_symptoms"`
}

// MedicalReport is a document record supplied by the document store.
type MedicalReport struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ClinicalNote is a clinician note record. Either Comments or Diagnosis may be empty.
type ClinicalNote struct {
	ID        string    `json:"id"`
	Comments  string    `json:"comments,omitempty"`
	Diagnosis string    `json:"diagnosis,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Text returns the note body, preferring comments over the diagnosis.
func (n ClinicalNote) Text() string {
	if n.Comments != "" {
		return n.Comments
	}
	return n.Diagnosis
}

// SymptomCheck is a previously recorded symptom assessment.
type SymptomCheck struct {
	ID         string        `json:"id"`
	Symptoms   []string      `json:"symptoms"`
	AIResponse string        `json:"ai_response"`
	Severity   SeverityClass `json:"severity"`
	CreatedAt  time.Time     `json:"created_at"`
}

// PatientProfile is the profile record supplied by the patient-profile store.
type PatientProfile struct {
	PatientID   string     `json:"patient_id"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Gender      string     `json:"gender,omitempty"`
	Phone       string     `json:"phone,omitempty"`
}

// ProfileFacts are the profile attributes exposed to prompts.
type ProfileFacts struct {
	Age    *int   `json:"age,omitempty"`
	Gender string `json:"gender,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

// PatientContext is a bounded, read-only snapshot of recent patient activity.
type PatientContext struct {
	PatientID      string          `json:"patient_id"`
	MedicalReports []MedicalReport `json:"medical_reports"`
	ClinicalNotes  []ClinicalNote  `json:"clinical_notes"`
	SymptomChecks  []SymptomCheck  `json:"symptom_checks"`
	ProfileFacts   ProfileFacts    `json:"profile_facts"`
	TimeframeDays  int             `json:"timeframe_days"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// DataPointCount returns the number of records in the snapshot.
func (c *PatientContext) DataPointCount() int {
	return len(c.MedicalReports) + len(c.ClinicalNotes) + len(c.SymptomChecks)
}

// Counts returns the per-collection counts of the snapshot.
func (c *PatientContext) Counts() ContextCounts {
	return ContextCounts{
		MedicalReports: len(c.MedicalReports),
		ClinicalNotes:  len(c.ClinicalNotes),
		SymptomChecks:  len(c.SymptomChecks),
		TimeframeDays:  c.TimeframeDays,
	}
}

// ContextCounts reports how many records of each kind informed a result.
type ContextCounts struct {
	MedicalReports int `json:"medical_reports"`
	ClinicalNotes  int `json:"clinical_notes"`
	SymptomChecks  int `json:"symptom_checks"`
	TimeframeDays  int `json:"timeframe_days"`
}

// ContextSummary describes the activity available for a patient within a window.
type ContextSummary struct {
	PatientID             string        `json:"patient_id"`
	Counts                ContextCounts `json:"counts"`
	LastActivityTimestamp *time.Time    `json:"last_activity_timestamp"`
	HasActivity           bool          `json:"has_activity"`
}

// ContextValidation is the outcome of checking whether a context is rich enough
// to ground a summary.
type ContextValidation struct {
	IsValid        bool   `json:"is_valid"`
	Reason         string `json:"reason,omitempty"`
	DataPointCount int    `json:"data_point_count"`
}

// SummaryFields are the fields parsed out of a provider response.
type SummaryFields struct {
	Summary         string       `json:"summary"`
	KeyInsights     []string     `json:"key_insights"`
	RiskFactors     []string     `json:"risk_factors"`
	Recommendations []string     `json:"recommendations"`
	HealthTrends    []string     `json:"health_trends"`
	UrgencyLevel    UrgencyLevel `json:"urgency_level"`
	Structured      bool         `json:"structured"`
}

// HealthSummary is an immutable generated summary.
type HealthSummary struct {
	SummaryFields
	Confidence     float64       `json:"confidence"`
	ModelUsed      string        `json:"model_used"`
	ConversationID string        `json:"conversation_id"`
	ContextSummary ContextCounts `json:"context_summary"`
	GeneratedAt    time.Time     `json:"generated_at"`
}

// Message is a single conversation turn.
type Message struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Model     string      `json:"model,omitempty"`
}

// ConversationSession is the capped message history of one conversation.
type ConversationSession struct {
	ConversationID string    `json:"conversation_id"`
	Messages       []Message `json:"messages"`
}

// ChatResponse is the result of one chat turn.
type ChatResponse struct {
	Response       string        `json:"response"`
	ConversationID string        `json:"conversation_id"`
	ModelUsed      string        `json:"model_used"`
	ContextSummary ContextCounts `json:"context_summary"`
	Timestamp      time.Time     `json:"timestamp"`
}

// UsageEvent is a single quota-consuming interaction.
type UsageEvent struct {
	PatientID string    `json:"patient_id"`
	Kind      UsageKind `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// QuotaStatus is the daily quota state of a patient.
type QuotaStatus struct {
	PatientID   string    `json:"patient_id"`
	Allowed     bool      `json:"allowed"`
	Used        int       `json:"used"`
	Limit       int       `json:"limit"`
	WindowStart time.Time `json:"window_start"`
	ResetAt     time.Time `json:"reset_at"`
}

// Remaining returns the number of interactions left in the current window.
func (q *QuotaStatus) Remaining() int {
	if q.Used >= q.Limit {
		return 0
	}
	return q.Limit - q.Used
}

// ModelInfo describes a model identifier the router can serve.
type ModelInfo struct {
	ID          string `json:"id"`
	Family      string `json:"family"`
	DisplayName string `json:"display_name"`
	Available   bool   `json:"available"`
}
