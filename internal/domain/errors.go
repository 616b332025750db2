package domain

import (
	"errors"
	"fmt"
	"time"
)

// EngineError is the structured error returned across package boundaries.
type EngineError struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Err       error                  `json:"-"`
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Error codes for different failure scenarios
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeInsufficientContext = "INSUFFICIENT_CONTEXT"
	ErrCodeQuotaExceeded       = "QUOTA_EXCEEDED"
	ErrCodeUnsupportedModel    = "UNSUPPORTED_MODEL"
	ErrCodeProvider            = "PROVIDER_ERROR"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewEngineError creates a new EngineError with timestamp
func NewEngineError(code, message string, details map[string]interface{}, cause error) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		Err:       cause,
	}
}

// NewNotFoundError reports a missing patient, profile or record.
func NewNotFoundError(resource, id string) *EngineError {
	return NewEngineError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource),
		map[string]interface{}{"resource": resource, "id": id}, ErrNotFound)
}

// NewInvalidInputError reports a malformed request. A ValidationError cause is
// surfaced as the field detail.
func NewInvalidInputError(message string, cause error) *EngineError {
	details := map[string]interface{}{}
	var verr *ValidationError
	if errors.As(cause, &verr) {
		details["field"] = verr.Field
		details["value"] = verr.Value
	}
	return NewEngineError(ErrCodeInvalidInput, message, details, cause)
}

// NewInsufficientContextError reports a context that failed validation.
func NewInsufficientContextError(reason string, dataPointCount int) *EngineError {
	return NewEngineError(ErrCodeInsufficientContext, reason,
		map[string]interface{}{"reason": reason, "data_point_count": dataPointCount}, nil)
}

// NewQuotaExceededError reports an exhausted daily quota.
func NewQuotaExceededError(patientID string, limit int, resetAt time.Time) *EngineError {
	return NewEngineError(ErrCodeQuotaExceeded, "daily interaction limit reached",
		map[string]interface{}{
			"patient_id": patientID,
			"limit":      limit,
			"reset_at":   resetAt.UTC().Format(time.RFC3339),
		}, nil)
}

// NewUnsupportedModelError reports a model identifier no provider family serves.
func NewUnsupportedModelError(modelID string) *EngineError {
	return NewEngineError(ErrCodeUnsupportedModel, fmt.Sprintf("unsupported model %q", modelID),
		map[string]interface{}{"model": modelID}, nil)
}

// NewProviderError reports an upstream generation failure. statusCode is 0 when
// no HTTP response was received. Credentials must never be passed in message.
func NewProviderError(family, modelID string, statusCode int, message string, cause error) *EngineError {
	details := map[string]interface{}{
		"family": family,
		"model":  modelID,
	}
	if statusCode != 0 {
		details["status_code"] = statusCode
	}
	return NewEngineError(ErrCodeProvider, message, details, cause)
}

// CodeOf returns the EngineError code of err, or ErrCodeInternal.
func CodeOf(err error) string {
	var engErr *EngineError
	if errors.As(err, &engErr) {
		return engErr.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given EngineError code.
func IsCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}
