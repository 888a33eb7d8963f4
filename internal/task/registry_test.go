package task

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/phrazzld/chunkr/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerFunc func(ctx context.Context, rec *domain.TaskRecord, payload json.RawMessage) error

func (f runnerFunc) Run(ctx context.Context, rec *domain.TaskRecord, payload json.RawMessage) error {
	return f(ctx, rec, payload)
}

func noopRunner() TaskRunner {
	return runnerFunc(func(context.Context, *domain.TaskRecord, json.RawMessage) error { return nil })
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("b_task", noopRunner()))
	require.NoError(t, r.Register("a_task", noopRunner()))

	tests := []struct {
		name     string
		taskType string
		runner   TaskRunner
		errMsg   string
	}{
		{name: "empty type", taskType: "", runner: noopRunner(), errMsg: "cannot be empty"},
		{name: "nil runner", taskType: "c_task", runner: nil, errMsg: "cannot be nil"},
		{name: "duplicate", taskType: "a_task", runner: noopRunner(), errMsg: "already registered"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := r.Register(tc.taskType, tc.runner)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}

	runner, err := r.Resolve("a_task")
	require.NoError(t, err)
	assert.NotNil(t, runner)

	_, err = r.Resolve("missing_task")
	assert.ErrorIs(t, err, ErrUnknownTaskType)
	assert.Contains(t, err.Error(), "missing_task")

	assert.Equal(t, []string{"a_task", "b_task"}, r.Types())
}
