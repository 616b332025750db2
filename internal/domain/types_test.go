package domain

import (
	"errors"
	"testing"
	"time"
)

func TestSeverityClassParsing(t *testing.T) {
	tests := []struct {
		input    string
		expected SeverityClass
		wantErr  bool
	}{
		{"low", SeverityLow, false},
		{"Medium", SeverityMedium, false},
		{" HIGH ", SeverityHigh, false},
		{"critical", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSeverityClass(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSeverityClass) {
					t.Errorf("Expected ErrInvalidSeverityClass, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestSymptomSeverityParsing(t *testing.T) {
	got, err := ParseSymptomSeverity("")
	if err != nil || got != SymptomModerate {
		t.Errorf("Expected empty severity to default to moderate, got %s (%v)", got, err)
	}

	got, err = ParseSymptomSeverity("Severe")
	if err != nil || got != SymptomSevere {
		t.Errorf("Expected severe, got %s (%v)", got, err)
	}

	if _, err := ParseSymptomSeverity("unbearable"); !errors.Is(err, ErrInvalidSymptomLevel) {
		t.Errorf("Expected ErrInvalidSymptomLevel, got %v", err)
	}
}

func TestUrgencyAndRoleValidity(t *testing.T) {
	for _, u := range []UrgencyLevel{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical} {
		if !u.IsValid() {
			t.Errorf("Expected %s to be valid", u)
		}
	}
	if UrgencyLevel("urgent").IsValid() {
		t.Errorf("Expected unknown urgency to be invalid")
	}

	for _, r := range []MessageRole{RoleUser, RoleAssistant, RoleSystem} {
		if !r.IsValid() {
			t.Errorf("Expected %s to be valid", r)
		}
	}
	if MessageRole("tool").IsValid() {
		t.Errorf("Expected unknown role to be invalid")
	}
}

func TestPatientContextCounts(t *testing.T) {
	pc := &PatientContext{
		MedicalReports: []MedicalReport{{Title: "CBC"}},
		ClinicalNotes:  []ClinicalNote{{Comments: "stable"}, {Diagnosis: "hypertension"}},
		TimeframeDays:  7,
	}

	if pc.DataPointCount() != 3 {
		t.Errorf("Expected 3 data points, got %d", pc.DataPointCount())
	}

	counts := pc.Counts()
	if counts.MedicalReports != 1 || counts.ClinicalNotes != 2 || counts.SymptomChecks != 0 || counts.TimeframeDays != 7 {
		t.Errorf("Unexpected counts: %+v", counts)
	}

	if pc.ClinicalNotes[1].Text() != "hypertension" {
		t.Errorf("Expected note text to fall back to diagnosis")
	}
}

func TestQuotaStatusRemaining(t *testing.T) {
	q := &QuotaStatus{Used: 4, Limit: 10, ResetAt: time.Now()}
	if q.Remaining() != 6 {
		t.Errorf("Expected 6 remaining, got %d", q.Remaining())
	}

	q.Used = 12
	if q.Remaining() != 0 {
		t.Errorf("Expected 0 remaining when over limit, got %d", q.Remaining())
	}
}
