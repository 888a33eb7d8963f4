package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when a record ID is empty or malformed.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyTaskType is returned when a record has no task type.
	ErrEmptyTaskType = errors.New("task type cannot be empty")

	// ErrInvalidTaskStatus is returned when a status is not one of the known values.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrInvalidTransition is returned when a status change is not permitted
	// by the task state machine (for example leaving a terminal status).
	ErrInvalidTransition = errors.New("invalid task status transition")
)
