// Package storetest provides a conformance suite that every
// store.TaskRecordStore backend runs from its own tests.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/chunkr/internal/domain"
	"github.com/phrazzld/chunkr/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.TaskRecordStore

// RunConformance exercises the TaskRecordStore contract against the store
// returned by newStore.
func RunConformance(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("get missing returns absent", func(t *testing.T) {
		s := newStore(t)
		rec, ok, err := s.Get(context.Background(), "never-saved")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, rec)
	})

	t.Run("round trip every status", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, rec := range SampleRecords(t) {
			require.NoError(t, s.Save(ctx, rec))

			got, ok, err := s.Get(ctx, rec.ID)
			require.NoError(t, err)
			require.True(t, ok, "record %s should be present", rec.ID)
			AssertRecordEqual(t, rec, got)
		}
	})

	t.Run("save is last write wins", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rec := NewRecord(t)
		require.NoError(t, s.Save(ctx, rec))
		require.NoError(t, s.Save(ctx, rec))

		require.NoError(t, rec.Start(time.Now()))
		require.NoError(t, s.Save(ctx, rec))

		got, ok, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, domain.TaskStatusRunning, got.Status)
		AssertRecordEqual(t, rec, got)
	})

	t.Run("returned records are independent copies", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rec := CompletedRecord(t)
		require.NoError(t, s.Save(ctx, rec))

		// mutating the saved value must not reach the store
		rec.Result["summary"] = "mutated after save"

		got, ok, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "chunked", got.Result["summary"])

		got.Result["summary"] = "mutated after get"
		got.Status = domain.TaskStatusFailed

		again, ok, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "chunked", again.Result["summary"])
		assert.Equal(t, domain.TaskStatusCompleted, again.Status)

		all, err := s.List(ctx)
		require.NoError(t, err)
		all[rec.ID].Result["summary"] = "mutated after list"

		again, _, err = s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "chunked", again.Result["summary"])
	})

	t.Run("typed result values are not shared", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rec := NewRecord(t)
		require.NoError(t, rec.Start(time.Now()))
		require.NoError(t, rec.Complete(time.Now(), map[string]any{
			"counts": []int{1, 2, 3},
			"labels": map[string]string{"a": "b"},
		}))
		require.NoError(t, s.Save(ctx, rec))

		first, ok, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		require.True(t, ok)

		mutateTypedResult(t, rec.Result)
		mutateTypedResult(t, first.Result)

		again, ok, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.NotEqual(t, first.Result, again.Result, "stored result changed through a returned copy")
		mutateTypedResult(t, again.Result)
		assert.Equal(t, first.Result, again.Result)
	})

	t.Run("list returns exactly the saved ids", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		saved := make(map[string]*domain.TaskRecord)
		for i := 0; i < 5; i++ {
			rec := NewRecord(t)
			require.NoError(t, s.Save(ctx, rec))
			saved[rec.ID] = rec
		}

		// overwrite one to check List sees the latest value
		for _, rec := range saved {
			require.NoError(t, rec.Start(time.Now()))
			require.NoError(t, s.Save(ctx, rec))
			break
		}

		all, err = s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, len(saved))
		for id, want := range saved {
			got, ok := all[id]
			require.True(t, ok, "missing id %s", id)
			AssertRecordEqual(t, want, got)
		}
	})

	t.Run("concurrent saves of distinct ids", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const workers = 16
		ids := make([]string, workers)
		var wg sync.WaitGroup
		errs := make(chan error, workers*3)

		for i := 0; i < workers; i++ {
			rec := NewRecord(t)
			ids[i] = rec.ID
			wg.Add(1)
			go func(i int, rec *domain.TaskRecord) {
				defer wg.Done()
				if err := s.Save(ctx, rec); err != nil {
					errs <- err
					return
				}
				if err := rec.Start(time.Now()); err != nil {
					errs <- err
					return
				}
				if err := s.Save(ctx, rec); err != nil {
					errs <- err
					return
				}
				if err := rec.Complete(time.Now(), map[string]any{"worker": fmt.Sprintf("w%d", i)}); err != nil {
					errs <- err
					return
				}
				if err := s.Save(ctx, rec); err != nil {
					errs <- err
				}
			}(i, rec)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		all, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, workers)
		for i, id := range ids {
			assert.Equal(t, domain.TaskStatusCompleted, all[id].Status)
			assert.Equal(t, fmt.Sprintf("w%d", i), all[id].Result["worker"])
		}
	})

	t.Run("save rejects invalid record", func(t *testing.T) {
		s := newStore(t)
		err := s.Save(context.Background(), &domain.TaskRecord{TaskType: "x", Status: domain.TaskStatusPending, CreatedAt: time.Now()})
		assert.Error(t, err)
	})
}

// NewRecord returns a fresh PENDING record.
func NewRecord(t *testing.T) *domain.TaskRecord {
	t.Helper()
	rec, err := domain.NewTaskRecord("conformance_task")
	require.NoError(t, err)
	return rec
}

// CompletedRecord returns a COMPLETED record whose result only holds values
// that survive a JSON round trip unchanged.
func CompletedRecord(t *testing.T) *domain.TaskRecord {
	t.Helper()
	rec := NewRecord(t)
	require.NoError(t, rec.Start(time.Now()))
	require.NoError(t, rec.Complete(time.Now().Add(time.Millisecond), map[string]any{
		"summary":         "chunked",
		"processed_files": float64(2),
		"ok":              true,
		"nested":          map[string]any{"path": "/tmp/x/chunks.json"},
		"errors":          []any{map[string]any{"file_path": "a.pdf", "error": "boom"}},
	}))
	return rec
}

// SampleRecords returns one record per status.
func SampleRecords(t *testing.T) []*domain.TaskRecord {
	t.Helper()

	pending := NewRecord(t)

	running := NewRecord(t)
	require.NoError(t, running.Start(time.Now()))

	failed := NewRecord(t)
	require.NoError(t, failed.Start(time.Now()))
	require.NoError(t, failed.Fail(time.Now(), "unknown chunking strategy: nope"))

	return []*domain.TaskRecord{pending, running, CompletedRecord(t), failed}
}

// AssertRecordEqual compares two records field by field, treating timestamps
// as equal when they denote the same instant.
func AssertRecordEqual(t *testing.T, want, got *domain.TaskRecord) {
	t.Helper()
	require.NotNil(t, got)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.TaskType, got.TaskType)
	assert.Equal(t, want.Status, got.Status)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at: want %v got %v", want.CreatedAt, got.CreatedAt)
	assertTimePtrEqual(t, "started_at", want.StartedAt, got.StartedAt)
	assertTimePtrEqual(t, "completed_at", want.CompletedAt, got.CompletedAt)
	assert.Equal(t, want.Result, got.Result)
	assert.Equal(t, want.Error, got.Error)
}

func assertTimePtrEqual(t *testing.T, field string, want, got *time.Time) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got, "%s should be absent", field)
		return
	}
	if assert.NotNil(t, got, "%s should be set", field) {
		assert.True(t, want.Equal(*got), "%s: want %v got %v", field, *want, *got)
	}
}

// mutateTypedResult overwrites the first count and the "a" label of a result
// saved with typed values. Backends may hand the values back either typed or
// in their JSON form, so both shapes are handled.
func mutateTypedResult(t *testing.T, result map[string]any) {
	t.Helper()

	switch counts := result["counts"].(type) {
	case []int:
		counts[0] = 99
	case []any:
		counts[0] = float64(99)
	default:
		t.Fatalf("unexpected counts type %T", counts)
	}

	switch labels := result["labels"].(type) {
	case map[string]string:
		labels["a"] = "MUTATED"
	case map[string]any:
		labels["a"] = "MUTATED"
	default:
		t.Fatalf("unexpected labels type %T", labels)
	}
}
