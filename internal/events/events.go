package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/chunkr/internal/domain"
)

// TaskEvent records that a task reached a status and that the new state was
// persisted.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	TaskID   string            `json:"task_id"`
	TaskType string            `json:"task_type"`
	Status   domain.TaskStatus `json:"status"`

	// Error is the task's failure message when Status is failed
	Error string `json:"error,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// NewTaskEvent describes the current state of rec.
func NewTaskEvent(rec *domain.TaskRecord) *TaskEvent {
	return &TaskEvent{
		ID:         uuid.New(),
		TaskID:     rec.ID,
		TaskType:   rec.TaskType,
		Status:     rec.Status,
		Error:      rec.Error,
		OccurredAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}

// NoopEmitter discards every event.
type NoopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NoopEmitter) EmitEvent(context.Context, *TaskEvent) error { return nil }
