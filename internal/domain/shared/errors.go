// Package shared contains common domain types, errors and events that are
// used across all domain packages. This package has zero external dependencies.
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
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState = errors.New("invalid state")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")

	// Storage errors
	ErrStorage            = errors.New("storage error")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "student", "pet", "avatarpool"
	Op      string // Operation that failed, e.g., "Adopt", "Feed"
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

// Student domain errors
var (
	ErrStudentNotFound    = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrInvalidStudentName = NewDomainError("student", "Validate", ErrInvalidInput, "student name must be 1-50 characters")
	ErrInvalidGender      = NewDomainError("student", "Validate", ErrInvalidInput, "gender must be boy or girl")
	ErrEmptyAvatar        = NewDomainError("student", "Validate", ErrEmptyValue, "avatar is required")
)

// Pet domain errors
var (
	ErrPetNotFound        = NewDomainError("pet", "Find", ErrNotFound, "pet not found")
	ErrPetAlreadyAdopted  = NewDomainError("pet", "Adopt", ErrAlreadyExists, "student already owns a pet")
	ErrInvalidPetName     = NewDomainError("pet", "Adopt", ErrInvalidInput, "pet name cannot be empty")
	ErrInvalidStageImages = NewDomainError("pet", "Adopt", ErrInvalidInput, "a pet needs one image per stage")
	ErrZeroPoints         = NewDomainError("pet", "GivePoints", ErrValueOutOfRange, "point change cannot be zero")
	ErrUnknownAction      = NewDomainError("pet", "Apply", ErrInvalidInput, "unknown pet action")
	ErrCertificateLocked  = NewDomainError("pet", "Certificate", ErrInvalidState, "certificate unlocks at the final stage")
)

// Preset and resource errors
var (
	ErrPresetNotFound   = NewDomainError("preset", "Find", ErrNotFound, "preset not found")
	ErrInvalidPreset    = NewDomainError("preset", "Validate", ErrInvalidInput, "preset needs a label and a non-zero amount")
	ErrInvalidPack      = NewDomainError("preset", "Validate", ErrInvalidInput, "resource needs a name and at least one image")
	ErrEmptyUpload      = NewDomainError("avatarpool", "Insert", ErrEmptyValue, "no images to upload")
	ErrInvalidClassName = NewDomainError("classroom", "Rename", ErrInvalidInput, "class name cannot be empty")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsInvalidState checks if the error reports a forbidden state.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsStorage checks if the error came from the persistence layer.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage) || errors.Is(err, ErrServiceUnavailable)
}
