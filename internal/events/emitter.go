package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/phrazzld/chunkr/internal/domain"
)

// ErrHandlerPanic wraps a panic recovered from an event handler.
var ErrHandlerPanic = errors.New("event handler panicked")

// subscription is a handler and the statuses it wants. An empty status list
// means every status.
type subscription struct {
	handler  EventHandler
	statuses []domain.TaskStatus
}

func (s subscription) wants(status domain.TaskStatus) bool {
	return len(s.statuses) == 0 || slices.Contains(s.statuses, status)
}

// InMemoryEventEmitter delivers lifecycle events synchronously to the
// handlers registered in this process. It runs on the task's goroutine, so
// handlers should be quick.
type InMemoryEventEmitter struct {
	mu            sync.RWMutex
	subscriptions []subscription
	logger        *slog.Logger
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter creates an emitter with no handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: logger.With("component", "task_event_emitter"),
	}
}

// RegisterHandler subscribes handler to events for the given statuses, or to
// all events when none are given.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler, statuses ...domain.TaskStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscriptions = append(e.subscriptions, subscription{
		handler:  handler,
		statuses: slices.Clone(statuses),
	})
	e.logger.Debug("registered event handler",
		"handler_count", len(e.subscriptions),
		"statuses", statuses)
}

// EmitEvent delivers event to every interested handler in registration
// order. A failing or panicking handler does not stop delivery to the rest;
// all failures are joined into the returned error.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *TaskEvent) error {
	e.mu.RLock()
	subs := slices.Clone(e.subscriptions)
	e.mu.RUnlock()

	var errs []error
	for i, sub := range subs {
		if !sub.wants(event.Status) {
			continue
		}
		if err := deliver(ctx, sub.handler, event); err != nil {
			e.logger.Error("handler failed to process event",
				"error", err,
				"handler_index", i,
				"event_id", event.ID,
				"task_id", event.TaskID,
				"status", event.Status)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func deliver(ctx context.Context, handler EventHandler, event *TaskEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return handler.HandleEvent(ctx, event)
}
