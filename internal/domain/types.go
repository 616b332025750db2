// Package domain contains the core entities, enumerations and error taxonomy of the
// patient health intelligence engine: symptom reference data, symptom predictions,
// patient context snapshots, generated health summaries and conversation state.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// SeverityClass represents the severity bucket of a disease profile or of a whole
// symptom assessment.
type SeverityClass string

const (
	SeverityLow    SeverityClass = "low"
	SeverityMedium SeverityClass = "medium"
	SeverityHigh   SeverityClass = "high"
)

// SymptomSeverity is the patient-reported intensity of a single symptom.
type SymptomSeverity string

const (
	SymptomMild     SymptomSeverity = "mild"
	SymptomModerate SymptomSeverity = "moderate"
	SymptomSevere   SymptomSeverity = "severe"
)

// UrgencyLevel is the urgency attached to a generated health summary.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// UsageKind identifies which operation consumed a unit of daily quota.
type UsageKind string

const (
	UsageSummary UsageKind = "summary"
	UsageChat    UsageKind = "chat"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidSeverityClass = errors.New("invalid severity class")
	ErrInvalidSymptomLevel  = errors.New("invalid symptom severity")
	ErrInvalidUrgency       = errors.New("invalid urgency level")
	ErrInvalidRole          = errors.New("invalid message role")
)

// IsValid reports whether the severity class is one of low, medium or high.
func (s SeverityClass) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	default:
		return false
	}
}

// String returns the string representation of the severity class.
func (s SeverityClass) String() string {
	return string(s)
}

// ParseSeverityClass parses a case-insensitive severity class.
func ParseSeverityClass(raw string) (SeverityClass, error) {
	s := SeverityClass(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeverityClass, raw)
	}
	return s, nil
}

// IsValid reports whether the symptom severity is mild, moderate or severe.
func (s SymptomSeverity) IsValid() bool {
	switch s {
	case SymptomMild, SymptomModerate, SymptomSevere:
		return true
	default:
		return false
	}
}

// String returns the string representation of the symptom severity.
func (s SymptomSeverity) String() string {
	return string(s)
}

// ParseSymptomSeverity parses a reported symptom severity. An empty value
// defaults to moderate.
func ParseSymptomSeverity(raw string) (SymptomSeverity, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return SymptomModerate, nil
	}
	s := SymptomSeverity(trimmed)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymptomLevel, raw)
	}
	return s, nil
}

// IsValid reports whether the urgency level is known.
func (u UrgencyLevel) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation of the urgency level.
func (u UrgencyLevel) String() string {
	return string(u)
}

// IsValid reports whether the role is user, assistant or system.
func (r MessageRole) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// String returns the string representation of the message role.
func (r MessageRole) String() string {
	return string(r)
}
