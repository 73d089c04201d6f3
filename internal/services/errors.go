package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the target article does not exist
	ErrNotFound = errors.New("article not found")
	// ErrScoringUnavailable means the classifier failed; the article is saved
	// and the score is deferred
	ErrScoringUnavailable = errors.New("scoring unavailable")
	// ErrStorage is a failed durable read or write. Callers may retry.
	ErrStorage = errors.New("storage error")
)

// ValidationError describes input that was rejected before anything was
// written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err carries a *ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
