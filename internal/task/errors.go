package task

import "errors"

var (
	// ErrUnknownTaskType is returned when no runner is registered for a task type.
	ErrUnknownTaskType = errors.New("unknown task type")

	// ErrStatePersistence marks a failure to save a record after it reached a
	// terminal status. The outcome of the task is lost from storage.
	ErrStatePersistence = errors.New("failed to persist task state")

	// ErrExecutorPanic is recorded when an executor panics.
	ErrExecutorPanic = errors.New("task executor panicked")

	// ErrNotPending is returned when dispatching a record that already started.
	ErrNotPending = errors.New("task record is not pending")
)
