package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrDuplicateSequence   = errors.New("duplicate sequence number")
	ErrImmutable           = errors.New("record is immutable")
	ErrConcurrencyConflict = errors.New("concurrent append conflict")
)

const (
	ValidationMissingFields      = "missing_fields"
	ValidationSequenceRegression = "sequence_regression"
	ValidationStaleTimestamp     = "stale_timestamp"
)

// ValidationError is a client-correctable failure. Code is one of the
// Validation* constants.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

func NewValidationError(code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// StorageError wraps an infrastructure persistence failure. The wrapped error
// is operator detail; callers surface a generic message to end users.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage failure during " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// TranscodeError captures a failed external transcoder run, including its
// diagnostic output.
type TranscodeError struct {
	ResourceID string
	Output     string
	Err        error
}

func (e *TranscodeError) Error() string {
	return "transcode failed for resource " + e.ResourceID + ": " + e.Err.Error()
}

func (e *TranscodeError) Unwrap() error { return e.Err }
