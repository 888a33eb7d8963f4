package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/chunkr/internal/domain"
	"github.com/phrazzld/chunkr/internal/platform/logger"
	"github.com/phrazzld/chunkr/internal/platform/memory"
	"github.com/phrazzld/chunkr/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTaskType = "test_task"

func newEngine(t *testing.T, s store.TaskRecordStore, executor Executor, opts ...EngineOption) *Engine {
	t.Helper()
	registry := NewRegistry()
	require.NoError(t, registry.Register(testTaskType, NewRunner(s, executor, discardLogger())))
	return NewEngine(s, registry, discardLogger(), opts...)
}

func waitAll(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Wait(ctx))
}

func TestEngine_Submit_PersistsPendingFirst(t *testing.T) {
	t.Parallel()

	s := memory.NewMemoryTaskStore()
	release := make(chan struct{})

	registry := NewRegistry()
	require.NoError(t, registry.Register(testTaskType, runnerFunc(
		func(ctx context.Context, rec *domain.TaskRecord, payload json.RawMessage) error {
			<-release
			return NewRunner(s, ExecutorFunc(func(context.Context, string, json.RawMessage) (map[string]any, error) {
				return map[string]any{"done": true}, nil
			}), discardLogger()).Run(ctx, rec, payload)
		})))
	engine := NewEngine(s, registry, discardLogger())

	rec, err := engine.Submit(context.Background(), testTaskType, json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, rec.Status)

	fetched, ok, err := engine.Fetch(context.Background(), rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.TaskStatusPending, fetched.Status)
	assert.Nil(t, fetched.StartedAt)
	assert.Nil(t, fetched.CompletedAt)

	close(release)
	waitAll(t, engine)

	fetched, ok, err = engine.Fetch(context.Background(), rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.TaskStatusCompleted, fetched.Status)
	assert.Equal(t, true, fetched.Result["done"])
	assert.Equal(t, domain.TaskStatusPending, rec.Status, "returned snapshot is not mutated by the runner")
}

func TestEngine_Submit_UnknownType(t *testing.T) {
	t.Parallel()

	s := NewMockTaskRecordStore()
	engine := NewEngine(s, NewRegistry(), discardLogger())

	rec, err := engine.Submit(context.Background(), "no_such_task", nil)
	assert.ErrorIs(t, err, ErrUnknownTaskType)
	assert.Nil(t, rec)

	all, err := engine.Enumerate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "nothing is persisted for a rejected submission")
}

func TestEngine_Submit_EmptyType(t *testing.T) {
	t.Parallel()

	engine := NewEngine(NewMockTaskRecordStore(), NewRegistry(), discardLogger())
	_, err := engine.Submit(context.Background(), "", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyTaskType)
}

func TestEngine_Dispatch_Rejections(t *testing.T) {
	t.Parallel()

	s := NewMockTaskRecordStore()
	engine := newEngine(t, s, ExecutorFunc(func(context.Context, string, json.RawMessage) (map[string]any, error) {
		return nil, nil
	}))

	err := engine.Dispatch(context.Background(), nil, nil)
	assert.ErrorIs(t, err, store.ErrInvalidRecord)

	running, err := domain.NewTaskRecord(testTaskType)
	require.NoError(t, err)
	require.NoError(t, running.Start(time.Now()))
	err = engine.Dispatch(context.Background(), running, nil)
	assert.ErrorIs(t, err, ErrNotPending)

	all, err := engine.Enumerate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestEngine_Dispatch_SaveFails(t *testing.T) {
	t.Parallel()

	s := NewMockTaskRecordStore()
	s.SaveFn = func(context.Context, *domain.TaskRecord) error {
		return store.ErrUnavailable
	}

	executed := false
	engine := newEngine(t, s, ExecutorFunc(func(context.Context, string, json.RawMessage) (map[string]any, error) {
		executed = true
		return nil, nil
	}))

	_, err := engine.Submit(context.Background(), testTaskType, nil)
	assert.ErrorIs(t, err, store.ErrUnavailable)

	waitAll(t, engine)
	assert.False(t, executed)
}

func TestEngine_DetachedFromRequestContext(t *testing.T) {
	t.Parallel()

	s := memory.NewMemoryTaskStore()
	started := make(chan struct{})
	release := make(chan struct{})

	var execCtxErr error
	engine := newEngine(t, s, ExecutorFunc(func(ctx context.Context, _ string, _ json.RawMessage) (map[string]any, error) {
		close(started)
		<-release
		execCtxErr = ctx.Err()
		return map[string]any{}, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	rec, err := engine.Submit(ctx, testTaskType, nil)
	require.NoError(t, err)

	<-started
	cancel()
	close(release)
	waitAll(t, engine)

	assert.NoError(t, execCtxErr)
	fetched, _, _ := engine.Fetch(context.Background(), rec.ID)
	assert.Equal(t, domain.TaskStatusCompleted, fetched.Status)
}

func TestEngine_ConcurrentSubmissions(t *testing.T) {
	t.Parallel()

	const k = 25
	s := memory.NewMemoryTaskStore()
	engine := newEngine(t, s, ExecutorFunc(func(_ context.Context, taskID string, payload json.RawMessage) (map[string]any, error) {
		var in struct {
			N int `json:"n"`
		}
		if err := json.Unmarshal(payload, &in); err != nil {
			return nil, err
		}
		if in.N%2 == 1 {
			return nil, fmt.Errorf("odd input %d for %s", in.N, taskID)
		}
		return map[string]any{"task_id": taskID, "n": in.N}, nil
	}))

	ids := make([]string, k)
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := engine.Submit(context.Background(), testTaskType, json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)))
			assert.NoError(t, err)
			if rec != nil {
				ids[i] = rec.ID
			}
		}(i)
	}
	wg.Wait()
	waitAll(t, engine)

	all, err := engine.Enumerate(context.Background())
	require.NoError(t, err)
	require.Len(t, all, k)

	for i, id := range ids {
		rec, ok := all[id]
		require.True(t, ok, "task %d missing", i)
		require.NotNil(t, rec.StartedAt)
		require.NotNil(t, rec.CompletedAt)
		assert.False(t, rec.CompletedAt.Before(*rec.StartedAt))

		if i%2 == 1 {
			assert.Equal(t, domain.TaskStatusFailed, rec.Status)
			assert.Equal(t, fmt.Sprintf("odd input %d for %s", i, id), rec.Error)
			assert.Nil(t, rec.Result)
		} else {
			assert.Equal(t, domain.TaskStatusCompleted, rec.Status)
			assert.Equal(t, id, rec.Result["task_id"])
			assert.Equal(t, float64(i), rec.Result["n"], "results are stored in their JSON form")
			assert.Empty(t, rec.Error)
		}
	}
}

func TestEngine_ErrorHandler(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	engine := newEngine(t, memory.NewMemoryTaskStore(), ExecutorFunc(func(context.Context, string, json.RawMessage) (map[string]any, error) {
		return nil, boom
	}))

	var mu sync.Mutex
	var got []error
	var gotRec domain.TaskRecord
	engine.SetErrorHandler(func(rec domain.TaskRecord, err error) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, err)
		gotRec = rec
	})

	rec, err := engine.Submit(context.Background(), testTaskType, nil)
	require.NoError(t, err, "task failure is not a submission failure")
	waitAll(t, engine)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0], boom)
	assert.Equal(t, rec.ID, gotRec.ID)
	assert.Equal(t, domain.TaskStatusFailed, gotRec.Status)
}

func TestEngine_DefaultErrorHandlerLogs(t *testing.T) {
	t.Parallel()

	testLogger, logBuf := logger.GetTestLogger(t)
	s := memory.NewMemoryTaskStore()
	registry := NewRegistry()
	require.NoError(t, registry.Register(testTaskType, NewRunner(s, ExecutorFunc(
		func(context.Context, string, json.RawMessage) (map[string]any, error) {
			return nil, errors.New("conversion exploded")
		}), discardLogger())))
	engine := NewEngine(s, registry, testLogger)

	_, err := engine.Submit(context.Background(), testTaskType, nil)
	require.NoError(t, err)
	waitAll(t, engine)

	entries := logBuf.FindEntries("background task failed")
	require.Len(t, entries, 1)
	assert.Equal(t, "conversion exploded", entries[0]["error"])
	assert.Equal(t, "task_engine", entries[0]["component"])
}

func TestEngine_TimeoutIsAdvisory(t *testing.T) {
	t.Parallel()

	testLogger, logBuf := logger.GetTestLogger(t)
	s := memory.NewMemoryTaskStore()
	registry := NewRegistry()
	require.NoError(t, registry.Register(testTaskType, NewRunner(s, ExecutorFunc(
		func(context.Context, string, json.RawMessage) (map[string]any, error) {
			time.Sleep(20 * time.Millisecond)
			return map[string]any{}, nil
		}), discardLogger())))
	engine := NewEngine(s, registry, testLogger, WithTimeout(time.Millisecond))

	rec, err := engine.Submit(context.Background(), testTaskType, nil)
	require.NoError(t, err)
	waitAll(t, engine)

	fetched, _, _ := engine.Fetch(context.Background(), rec.ID)
	assert.Equal(t, domain.TaskStatusCompleted, fetched.Status, "slow tasks still complete")
	assert.Len(t, logBuf.FindEntries("task exceeded configured timeout"), 1)
}

func TestEngine_Wait_ContextExpires(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	engine := newEngine(t, memory.NewMemoryTaskStore(), ExecutorFunc(func(context.Context, string, json.RawMessage) (map[string]any, error) {
		<-release
		return map[string]any{}, nil
	}))

	_, err := engine.Submit(context.Background(), testTaskType, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = engine.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	waitAll(t, engine)
}

func TestEngine_RecoverInterrupted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memory.NewMemoryTaskStore()

	pending, err := domain.NewTaskRecord(testTaskType)
	require.NoError(t, err)
	running, err := domain.NewTaskRecord(testTaskType)
	require.NoError(t, err)
	require.NoError(t, running.Start(time.Now()))
	completed, err := domain.NewTaskRecord(testTaskType)
	require.NoError(t, err)
	require.NoError(t, completed.Start(time.Now()))
	require.NoError(t, completed.Complete(time.Now(), map[string]any{"kept": true}))

	for _, rec := range []*domain.TaskRecord{pending, running, completed} {
		require.NoError(t, s.Save(ctx, rec))
	}

	emitter := newRecordingEmitter()
	engine := NewEngine(s, NewRegistry(), discardLogger(), WithEngineEvents(emitter))

	recovered, err := engine.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, recovered)

	for _, id := range []string{pending.ID, running.ID} {
		rec, ok, err := s.Get(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, domain.TaskStatusFailed, rec.Status)
		assert.Equal(t, InterruptedMessage, rec.Error)
		assert.NotNil(t, rec.StartedAt)
		assert.NotNil(t, rec.CompletedAt)
		require.NoError(t, rec.Validate())
		assert.Equal(t, []domain.TaskStatus{domain.TaskStatusFailed}, emitter.For(id))
	}

	rec, _, err := s.Get(ctx, completed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, rec.Status)
	assert.Equal(t, true, rec.Result["kept"])

	recovered, err = engine.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Zero(t, recovered, "recovery is idempotent")
}

func TestEngine_RecoverInterrupted_Errors(t *testing.T) {
	t.Parallel()

	t.Run("list fails", func(t *testing.T) {
		t.Parallel()

		s := NewMockTaskRecordStore()
		s.ListFn = func(context.Context) (map[string]*domain.TaskRecord, error) {
			return nil, store.ErrUnavailable
		}
		_, err := NewEngine(s, NewRegistry(), discardLogger()).RecoverInterrupted(context.Background())
		assert.ErrorIs(t, err, store.ErrUnavailable)
	})

	t.Run("save fails", func(t *testing.T) {
		t.Parallel()

		s := NewMockTaskRecordStore()
		rec := newPending(t)
		require.NoError(t, s.Save(context.Background(), rec))
		s.SaveFn = func(context.Context, *domain.TaskRecord) error {
			return store.ErrUnavailable
		}

		recovered, err := NewEngine(s, NewRegistry(), discardLogger()).RecoverInterrupted(context.Background())
		assert.ErrorIs(t, err, store.ErrUnavailable)
		assert.Zero(t, recovered)
	})
}
