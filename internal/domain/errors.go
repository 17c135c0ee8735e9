package domain

import (
	"errors"
)

// Common domain errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidPath  = errors.New("invalid path")
	ErrInvalidInput = errors.New("invalid input")

	// Auth domain errors
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOTP         = errors.New("invalid or expired code")
	ErrUserDisabled       = errors.New("user account disabled")

	// File domain errors
	ErrInvalidCategory = errors.New("invalid category")
	ErrNotInTrash      = errors.New("record is not in trash")
)

// SkippableError represents an error that can be logged and skipped.
// Reconciliation continues with the next file when this error occurs.
type SkippableError struct {
	Err     error
	Context string
}

// Error returns the error message
func (e *SkippableError) Error() string {
	if e.Context != "" {
		if e.Err != nil {
			return e.Context + ": " + e.Err.Error()
		}
		return e.Context
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "skippable error"
}

// Unwrap returns the underlying error
func (e *SkippableError) Unwrap() error {
	return e.Err
}

// NewSkippableError creates a new skippable error
func NewSkippableError(err error, context string) *SkippableError {
	return &SkippableError{Err: err, Context: context}
}

// IsSkippable returns true if the error can be skipped
func IsSkippable(err error) bool {
	var se *SkippableError
	return errors.As(err, &se)
}

// ErrSkipFileGone marks a physical file that disappeared between listing and
// processing; the reconciler moves on to the next entry.
var ErrSkipFileGone = NewSkippableError(ErrNotFound, "file gone")
