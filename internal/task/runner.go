package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/phrazzld/chunkr/internal/domain"
	"github.com/phrazzld/chunkr/internal/events"
	"github.com/phrazzld/chunkr/internal/platform/logger"
	"github.com/phrazzld/chunkr/internal/store"
)

// Runner moves a task record through the state machine, persisting every
// transition, and delegates the work to its Executor.
type Runner struct {
	store    store.TaskRecordStore
	executor Executor
	emitter  events.EventEmitter
	logger   *slog.Logger
	now      func() time.Time
}

var _ TaskRunner = (*Runner)(nil)

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerEvents publishes lifecycle events after each persisted transition.
func WithRunnerEvents(emitter events.EventEmitter) RunnerOption {
	return func(r *Runner) {
		r.emitter = emitter
	}
}

// WithClock replaces time.Now for the transition timestamps.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a Runner for one executor.
func NewRunner(s store.TaskRecordStore, executor Executor, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{
		store:    s,
		executor: executor,
		emitter:  events.NoopEmitter{},
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes rec, which must be pending. It mutates rec in place so the
// caller sees the final state. The returned error is the executor's failure
// (already recorded on the task) or a persistence failure.
func (r *Runner) Run(ctx context.Context, rec *domain.TaskRecord, payload json.RawMessage) error {
	log := r.logger.With("task_id", rec.ID, "task_type", rec.TaskType)
	ctx = logger.WithLogger(ctx, log)

	if err := rec.Start(r.now()); err != nil {
		return err
	}
	if err := r.store.Save(ctx, rec); err != nil {
		log.Error("failed to persist running state", "error", err)
		// the executor never ran; record that rather than leave the task pending
		return r.finish(ctx, log, rec, nil, fmt.Errorf("failed to persist running state: %w", err))
	}
	r.emit(ctx, log, rec)

	log.Info("task started")
	start := time.Now()
	result, execErr := r.execute(ctx, rec.ID, payload)

	if execErr != nil {
		log.Error("task execution failed",
			"error", execErr,
			"duration_ms", time.Since(start).Milliseconds())
	} else {
		log.Info("task completed",
			"duration_ms", time.Since(start).Milliseconds())
	}

	return r.finish(ctx, log, rec, result, execErr)
}

// finish applies the terminal transition and persists it.
func (r *Runner) finish(
	ctx context.Context,
	log *slog.Logger,
	rec *domain.TaskRecord,
	result map[string]any,
	execErr error,
) error {
	if execErr == nil {
		normalized, err := store.NormalizeResult(result)
		if err != nil {
			log.Error("task result cannot be stored", "error", err)
			execErr = err
		}
		result = normalized
	}

	var err error
	if execErr != nil {
		err = rec.Fail(r.now(), execErr.Error())
	} else {
		err = rec.Complete(r.now(), result)
	}
	if err != nil {
		return errors.Join(execErr, err)
	}

	if err := r.store.Save(ctx, rec); err != nil {
		log.Error("failed to persist terminal task state",
			"severity", "state_lost",
			"status", rec.Status,
			"error", err)
		return errors.Join(execErr, fmt.Errorf("%w: task %s: %w", ErrStatePersistence, rec.ID, err))
	}
	r.emit(ctx, log, rec)

	return execErr
}

func (r *Runner) execute(ctx context.Context, taskID string, payload json.RawMessage) (result map[string]any, err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.FromContext(ctx).Error("task executor panicked",
				"panic", fmt.Sprint(p),
				"stack", string(debug.Stack()))
			result = nil
			err = fmt.Errorf("%w: %v", ErrExecutorPanic, p)
		}
	}()

	return r.executor.Execute(ctx, taskID, payload)
}

func (r *Runner) emit(ctx context.Context, log *slog.Logger, rec *domain.TaskRecord) {
	if err := r.emitter.EmitEvent(ctx, events.NewTaskEvent(rec)); err != nil {
		log.Warn("failed to emit task event", "status", rec.Status, "error", err)
	}
}
