package task

import (
	"context"
	"encoding/json"

	"github.com/phrazzld/chunkr/internal/domain"
)

// Executor performs the work for one task type. The payload is the raw
// execution input given at submission. A nil error means the returned map
// becomes the task's result; any error fails the task with its message.
// Version: 1.0
type Executor interface {
	Execute(ctx context.Context, taskID string, payload json.RawMessage) (map[string]any, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, taskID string, payload json.RawMessage) (map[string]any, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, taskID string, payload json.RawMessage) (map[string]any, error) {
	return f(ctx, taskID, payload)
}

// TaskRunner drives a single record to a terminal state. It returns the
// executor's error, if any, after the failure has been recorded.
// Version: 1.0
type TaskRunner interface {
	Run(ctx context.Context, rec *domain.TaskRecord, payload json.RawMessage) error
}
