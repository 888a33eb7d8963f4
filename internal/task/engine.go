package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/phrazzld/chunkr/internal/domain"
	"github.com/phrazzld/chunkr/internal/events"
	"github.com/phrazzld/chunkr/internal/store"
)

// InterruptedMessage is the error recorded on tasks found unfinished at startup.
const InterruptedMessage = "task interrupted by service restart"

// Engine is the dispatch boundary between the transport layer and the
// runners. It persists new tasks, starts them in the background and serves
// reads from the store.
type Engine struct {
	store    store.TaskRecordStore
	registry *Registry
	emitter  events.EventEmitter
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time

	wg sync.WaitGroup

	mu         sync.RWMutex
	errHandler func(rec domain.TaskRecord, err error)
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineEvents publishes an event when a task is accepted as pending.
func WithEngineEvents(emitter events.EventEmitter) EngineOption {
	return func(e *Engine) {
		e.emitter = emitter
	}
}

// WithTimeout sets the expected upper bound on task duration. It is
// advisory: tasks that run longer are reported in the log, not stopped.
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithEngineClock replaces time.Now for recovery timestamps.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an Engine over s that dispatches through registry.
func NewEngine(s store.TaskRecordStore, registry *Registry, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		store:    s,
		registry: registry,
		emitter:  events.NoopEmitter{},
		logger:   logger.With("component", "task_engine"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.errHandler = func(rec domain.TaskRecord, err error) {
		e.logger.Error("background task failed",
			"task_id", rec.ID,
			"task_type", rec.TaskType,
			"status", rec.Status,
			"error", err)
	}
	return e
}

// SetErrorHandler replaces the function that receives every error a
// background task returns. The record is the task's final state.
func (e *Engine) SetErrorHandler(handler func(rec domain.TaskRecord, err error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errHandler = handler
}

// Submit creates a pending record for taskType, persists it and starts it in
// the background. The returned record is the pending snapshot.
func (e *Engine) Submit(ctx context.Context, taskType string, payload json.RawMessage) (*domain.TaskRecord, error) {
	rec, err := domain.NewTaskRecord(taskType)
	if err != nil {
		return nil, err
	}
	if err := e.Dispatch(ctx, rec, payload); err != nil {
		return nil, err
	}
	return rec, nil
}

// Dispatch persists a pending record created by the caller and starts its
// runner on a new goroutine. It fails without persisting anything when the
// task type is unknown. The goroutine does not inherit ctx cancellation.
func (e *Engine) Dispatch(ctx context.Context, rec *domain.TaskRecord, payload json.RawMessage) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", store.ErrInvalidRecord)
	}
	if rec.Status != domain.TaskStatusPending {
		return fmt.Errorf("%w: %s is %s", ErrNotPending, rec.ID, rec.Status)
	}

	runner, err := e.registry.Resolve(rec.TaskType)
	if err != nil {
		return err
	}

	if err := e.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to persist task %s: %w", rec.ID, err)
	}
	if err := e.emitter.EmitEvent(ctx, events.NewTaskEvent(rec)); err != nil {
		e.logger.Warn("failed to emit task event", "task_id", rec.ID, "error", err)
	}

	e.logger.Info("task accepted", "task_id", rec.ID, "task_type", rec.TaskType)

	work := rec.Clone()
	detached := context.WithoutCancel(ctx)

	e.wg.Add(1)
	go e.run(detached, runner, work, payload)

	return nil
}

func (e *Engine) run(ctx context.Context, runner TaskRunner, rec *domain.TaskRecord, payload json.RawMessage) {
	defer e.wg.Done()
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("task runner panicked",
				"task_id", rec.ID,
				"panic", fmt.Sprint(p),
				"stack", string(debug.Stack()))
		}
	}()

	start := time.Now()
	err := runner.Run(ctx, rec, payload)

	if elapsed := time.Since(start); e.timeout > 0 && elapsed > e.timeout {
		e.logger.Warn("task exceeded configured timeout",
			"task_id", rec.ID,
			"elapsed_ms", elapsed.Milliseconds(),
			"timeout_ms", e.timeout.Milliseconds())
	}

	if err != nil {
		e.mu.RLock()
		handler := e.errHandler
		e.mu.RUnlock()
		handler(*rec.Clone(), err)
	}
}

// Fetch returns the latest persisted state of a task.
func (e *Engine) Fetch(ctx context.Context, id string) (*domain.TaskRecord, bool, error) {
	return e.store.Get(ctx, id)
}

// Enumerate returns every stored task keyed by ID.
func (e *Engine) Enumerate(ctx context.Context) (map[string]*domain.TaskRecord, error) {
	return e.store.List(ctx)
}

// Wait blocks until every dispatched task has finished or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running tasks: %w", ctx.Err())
	}
}

// RecoverInterrupted marks every non-terminal stored task as failed. It is
// meant to run once at startup, before new submissions, since a task left
// pending or running by a previous process will never be resumed.
// Pending tasks pass through running so no transition is skipped.
func (e *Engine) RecoverInterrupted(ctx context.Context) (int, error) {
	records, err := e.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tasks for recovery: %w", err)
	}

	var errs []error
	recovered := 0
	for _, rec := range records {
		if rec.Status.IsTerminal() {
			continue
		}

		if rec.Status == domain.TaskStatusPending {
			if err := rec.Start(e.now()); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		if err := rec.Fail(e.now(), InterruptedMessage); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := e.store.Save(ctx, rec); err != nil {
			e.logger.Error("failed to mark interrupted task as failed",
				"task_id", rec.ID,
				"error", err)
			errs = append(errs, err)
			continue
		}
		if err := e.emitter.EmitEvent(ctx, events.NewTaskEvent(rec)); err != nil {
			e.logger.Warn("failed to emit task event", "task_id", rec.ID, "error", err)
		}

		e.logger.Warn("marked interrupted task as failed",
			"task_id", rec.ID,
			"task_type", rec.TaskType)
		recovered++
	}

	e.logger.Info("task recovery finished",
		"scanned", len(records),
		"recovered", recovered)

	return recovered, errors.Join(errs...)
}
