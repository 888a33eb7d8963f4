package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrInvalidRecord is returned when a record cannot be saved because it
	// fails validation (for example it has no ID).
	ErrInvalidRecord = errors.New("invalid task record")

	// ErrInvalidID is returned when an ID cannot be used as a storage key.
	ErrInvalidID = errors.New("invalid task record ID")

	// ErrCorruptRecord is returned by Decode when stored bytes do not hold a
	// valid record. Backends treat such entries as absent.
	ErrCorruptRecord = errors.New("corrupt task record")

	// ErrUnavailable is returned when the backing service or medium cannot be
	// reached. Check the wrapped error for details.
	ErrUnavailable = errors.New("storage unavailable")
)

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Backend   string // The backend name (e.g., "file", "redis")
	Operation string // The operation that failed (e.g., "save", "get")
	ID        string // The record ID involved, if any
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s of task %s failed: %v", e.Backend, e.Operation, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Backend, e.Operation, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError for the given backend, operation and record ID.
func NewStoreError(backend, operation, id string, err error) *StoreError {
	return &StoreError{
		Backend:   backend,
		Operation: operation,
		ID:        id,
		Err:       err,
	}
}
