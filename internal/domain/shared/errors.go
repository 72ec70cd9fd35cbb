// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")

	// Infrastructure errors
	ErrStorage            = errors.New("storage error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progress", "catalog", "store"
	Op      string // Operation that failed, e.g., "Load", "AddXP"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Progress domain errors
var (
	ErrProgressNotFound = NewDomainError("progress", "Load", ErrNotFound, "progress record not found")
	ErrNegativeXP       = NewDomainError("progress", "AddXP", ErrNegativeValue, "xp amount cannot be negative")
	ErrInvalidQuizScore = NewDomainError("progress", "RecordQuizComplete", ErrValueOutOfRange, "quiz score must satisfy 0 <= score <= maxScore <= 10000 and maxScore > 0")
	ErrXPLimit          = NewDomainError("progress", "AddXP", ErrValueOutOfRange, "xp total would exceed the maximum")
	ErrInvalidLearnerID = NewDomainError("progress", "Validate", ErrInvalidID, "learner ID must be 1-64 characters of [A-Za-z0-9_-]")
	ErrEmptyCourseID    = NewDomainError("progress", "CompleteCourse", ErrEmptyValue, "course ID cannot be empty")
	ErrEmptyLessonID    = NewDomainError("progress", "CompleteLesson", ErrEmptyValue, "lesson ID cannot be empty")
)

// Catalog errors
var (
	ErrInvalidCatalog     = NewDomainError("catalog", "Load", ErrInvalidFormat, "invalid badge catalog")
	ErrUnknownRequirement = NewDomainError("catalog", "Load", ErrInvalidFormat, "unknown badge requirement")
	ErrBadgeNotFound      = NewDomainError("catalog", "Find", ErrNotFound, "badge not found")
)

// Storage errors
var (
	ErrStorageFailure = NewDomainError("store", "Request", ErrStorage, "progress store request failed")
	ErrStoreTimeout   = NewDomainError("store", "Request", ErrTimeout, "progress store request timeout")
)

// Access errors
var (
	ErrInvalidAPIKey = NewDomainError("auth", "Verify", ErrUnauthorized, "invalid or missing API key")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsUnauthorized checks if the error is an authorization failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsStorage checks if the error came from the progress store.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// StorageError wraps a backend failure as a storage DomainError.
func StorageError(op string, err error) *DomainError {
	return WrapError("store", op, ErrStorage, "progress store request failed", err)
}
