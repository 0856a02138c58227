package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when an id does not resolve to a stored record.
	ErrNotFound = errors.New("not found")

	// ErrResourceNotFound is returned when a booking references an unknown resource.
	// It also matches ErrNotFound.
	ErrResourceNotFound = fmt.Errorf("resource %w", ErrNotFound)

	// ErrConflict is matched by *ConflictError.
	ErrConflict = errors.New("booking conflict")

	// ErrAuthentication is returned when ciphertext fails tag verification.
	ErrAuthentication = errors.New("authentication failed")

	// ErrValidation is matched by *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrQuotaExceeded is returned when a hard-stop quota refuses further usage.
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// ConflictError names the confirmed bookings that overlap a requested window.
type ConflictError struct {
	ResourceID string
	BookingIDs []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("resource %s is already booked during this time: %s",
		e.ResourceID, strings.Join(e.BookingIDs, ", "))
}

// Is makes errors.Is(err, ErrConflict) true for conflict errors.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) true for validation errors.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
