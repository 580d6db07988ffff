// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an identifier is empty or malformed.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidEasiness is returned when a card's easiness factor is below the floor.
	ErrInvalidEasiness = errors.New("easiness factor below minimum")

	// ErrInvalidInterval is returned when a card interval is not a positive number of days.
	ErrInvalidInterval = errors.New("interval must be at least one day")

	// ErrInvalidDifficulty is returned when a question difficulty is outside 1..5.
	ErrInvalidDifficulty = errors.New("difficulty must be between 1 and 5")

	// ErrInvalidStrategy is returned when a selection strategy is not one of the known values.
	ErrInvalidStrategy = errors.New("invalid selection strategy")

	// ErrInvalidTier is returned when a rank tier name is not recognised.
	ErrInvalidTier = errors.New("invalid rank tier")

	// ErrInvalidSeasonStatus is returned when a season status is not recognised.
	ErrInvalidSeasonStatus = errors.New("invalid season status")

	// ErrInvalidRankChange is returned when a rank change type is not recognised.
	ErrInvalidRankChange = errors.New("invalid rank change type")
)

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped sentinel so errors.Is keeps working.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError wrapping err, which defaults
// to ErrValidation.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{Field: field, Message: message, Err: err}
}
