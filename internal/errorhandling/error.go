// Package errorhandling is the single classification-and-reporting
// pipeline for every error surfaced by the transport client and the
// entity services. It decides severity, retryability, user visibility,
// and reporting; lower layers never show notifications directly.
package errorhandling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category is the error taxonomy. AppError carries the category as a
// plain tag dispatched over with switches; there is no error subclass
// hierarchy.
type Category string

const (
	CategoryAuthentication Category = "authentication"
	CategoryAuthorization  Category = "authorization"
	CategoryNetwork        Category = "network"
	CategoryValidation     Category = "validation"
	CategoryBusiness       Category = "business"
	CategoryStorage        Category = "storage"
	CategorySystem         Category = "system"
	CategoryExternal       Category = "external"
)

// Severity levels, ordered.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "low"
	}
}

// AppError is the internal error record: one struct for every kind,
// tagged by category. Distinct from the API response envelope.
type AppError struct {
	Category      Category       `json:"category"`
	Severity      Severity       `json:"severity"`
	Code          string         `json:"code"`
	Message       string         `json:"message"`
	Details       map[string]any `json:"details,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	CorrelationID string         `json:"correlation_id"`
	Recoverable   bool           `json:"recoverable"`

	cause error
}

// New creates an AppError with a fresh correlation ID and the
// category's default recoverability.
func New(category Category, severity Severity, code, message string) *AppError {
	return &AppError{
		Category:      category,
		Severity:      severity,
		Code:          code,
		Message:       message,
		Timestamp:     time.Now(),
		CorrelationID: uuid.NewString(),
		Recoverable:   categoryRecoverable(category),
	}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s/%s: %s", e.Category, e.Code, e.Message)
}

// Unwrap exposes the original error for errors.Is/As chains.
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause attaches the originating error.
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetail adds one key to the details map.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// ShouldReport reports whether the error is significant enough for the
// reporting queue.
func (e *AppError) ShouldReport() bool {
	return e.Severity >= SeverityHigh
}

// categoryRecoverable returns the fixed per-category default.
// Authorization and system errors default non-recoverable.
func categoryRecoverable(c Category) bool {
	switch c {
	case CategoryAuthorization, CategorySystem:
		return false
	}
	return true
}
