package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskRecord(t *testing.T) {
	t.Parallel()

	rec, err := NewTaskRecord("chunking_task")
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "chunking_task", rec.TaskType)
	assert.Equal(t, TaskStatusPending, rec.Status)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Nil(t, rec.StartedAt)
	assert.Nil(t, rec.CompletedAt)
	assert.Nil(t, rec.Result)
	assert.Empty(t, rec.Error)

	other, err := NewTaskRecord("chunking_task")
	require.NoError(t, err)
	assert.NotEqual(t, rec.ID, other.ID, "ids must be unique")

	_, err = NewTaskRecord("")
	assert.ErrorIs(t, err, ErrEmptyTaskType)
}

func TestTaskRecord_Lifecycle(t *testing.T) {
	t.Parallel()

	t.Run("pending to running to completed", func(t *testing.T) {
		t.Parallel()

		rec, err := NewTaskRecord("test")
		require.NoError(t, err)

		start := time.Now()
		require.NoError(t, rec.Start(start))
		assert.Equal(t, TaskStatusRunning, rec.Status)
		require.NotNil(t, rec.StartedAt)
		assert.Nil(t, rec.CompletedAt)
		require.NoError(t, rec.Validate())

		end := start.Add(time.Second)
		require.NoError(t, rec.Complete(end, map[string]any{"processed_files": 1}))
		assert.Equal(t, TaskStatusCompleted, rec.Status)
		require.NotNil(t, rec.CompletedAt)
		assert.Equal(t, 1, rec.Result["processed_files"])
		assert.Empty(t, rec.Error)
		assert.False(t, rec.CompletedAt.Before(*rec.StartedAt))
		require.NoError(t, rec.Validate())
	})

	t.Run("pending to running to failed", func(t *testing.T) {
		t.Parallel()

		rec, err := NewTaskRecord("test")
		require.NoError(t, err)
		require.NoError(t, rec.Start(time.Now()))
		require.NoError(t, rec.Fail(time.Now(), "boom"))

		assert.Equal(t, TaskStatusFailed, rec.Status)
		assert.Equal(t, "boom", rec.Error)
		assert.Nil(t, rec.Result)
		require.NoError(t, rec.Validate())
	})

	t.Run("complete with nil result stores empty map", func(t *testing.T) {
		t.Parallel()

		rec, err := NewTaskRecord("test")
		require.NoError(t, err)
		require.NoError(t, rec.Start(time.Now()))
		require.NoError(t, rec.Complete(time.Now(), nil))
		assert.NotNil(t, rec.Result)
	})

	t.Run("fail with empty message keeps a message", func(t *testing.T) {
		t.Parallel()

		rec, err := NewTaskRecord("test")
		require.NoError(t, err)
		require.NoError(t, rec.Start(time.Now()))
		require.NoError(t, rec.Fail(time.Now(), ""))
		assert.NotEmpty(t, rec.Error)
	})
}

func TestTaskRecord_InvalidTransitions(t *testing.T) {
	t.Parallel()

	newRunning := func(t *testing.T) *TaskRecord {
		rec, err := NewTaskRecord("test")
		require.NoError(t, err)
		require.NoError(t, rec.Start(time.Now()))
		return rec
	}

	tests := []struct {
		name string
		run  func(t *testing.T) error
	}{
		{
			name: "complete skips running",
			run: func(t *testing.T) error {
				rec, err := NewTaskRecord("test")
				require.NoError(t, err)
				return rec.Complete(time.Now(), map[string]any{})
			},
		},
		{
			name: "fail skips running",
			run: func(t *testing.T) error {
				rec, err := NewTaskRecord("test")
				require.NoError(t, err)
				return rec.Fail(time.Now(), "x")
			},
		},
		{
			name: "start twice",
			run: func(t *testing.T) error {
				return newRunning(t).Start(time.Now())
			},
		},
		{
			name: "leave completed",
			run: func(t *testing.T) error {
				rec := newRunning(t)
				require.NoError(t, rec.Complete(time.Now(), nil))
				return rec.Fail(time.Now(), "late failure")
			},
		},
		{
			name: "leave failed",
			run: func(t *testing.T) error {
				rec := newRunning(t)
				require.NoError(t, rec.Fail(time.Now(), "x"))
				return rec.Complete(time.Now(), nil)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run(t)
			assert.True(t, errors.Is(err, ErrInvalidTransition), "expected ErrInvalidTransition, got %v", err)
		})
	}
}

func TestTaskRecord_Validate(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	later := now.Add(time.Minute)

	tests := []struct {
		name    string
		rec     TaskRecord
		wantErr bool
	}{
		{
			name: "valid pending",
			rec:  TaskRecord{ID: "a", TaskType: "t", Status: TaskStatusPending, CreatedAt: now},
		},
		{
			name:    "missing id",
			rec:     TaskRecord{TaskType: "t", Status: TaskStatusPending, CreatedAt: now},
			wantErr: true,
		},
		{
			name:    "unknown status",
			rec:     TaskRecord{ID: "a", TaskType: "t", Status: "queued", CreatedAt: now},
			wantErr: true,
		},
		{
			name:    "pending with started_at",
			rec:     TaskRecord{ID: "a", TaskType: "t", Status: TaskStatusPending, CreatedAt: now, StartedAt: &now},
			wantErr: true,
		},
		{
			name:    "running without started_at",
			rec:     TaskRecord{ID: "a", TaskType: "t", Status: TaskStatusRunning, CreatedAt: now},
			wantErr: true,
		},
		{
			name: "completed with both result and error",
			rec: TaskRecord{
				ID: "a", TaskType: "t", Status: TaskStatusCompleted, CreatedAt: now,
				StartedAt: &now, CompletedAt: &later, Result: map[string]any{}, Error: "x",
			},
			wantErr: true,
		},
		{
			name: "failed without error",
			rec: TaskRecord{
				ID: "a", TaskType: "t", Status: TaskStatusFailed, CreatedAt: now,
				StartedAt: &now, CompletedAt: &later,
			},
			wantErr: true,
		},
		{
			name: "valid failed",
			rec: TaskRecord{
				ID: "a", TaskType: "t", Status: TaskStatusFailed, CreatedAt: now,
				StartedAt: &now, CompletedAt: &later, Error: "x",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rec.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTaskRecord_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	rec, err := NewTaskRecord("test")
	require.NoError(t, err)
	require.NoError(t, rec.Start(time.Now()))
	require.NoError(t, rec.Complete(time.Now(), map[string]any{
		"nested": map[string]any{"k": "v"},
		"errors": []map[string]any{{"file_path": "a.pdf"}},
		"paths":  []string{"a.txt"},
	}))

	clone := rec.Clone()
	require.Equal(t, rec, clone)

	clone.Result["nested"].(map[string]any)["k"] = "changed"
	clone.Result["errors"].([]map[string]any)[0]["file_path"] = "changed"
	clone.Result["paths"].([]string)[0] = "changed"
	*clone.StartedAt = clone.StartedAt.Add(time.Hour)
	clone.Status = TaskStatusFailed

	assert.Equal(t, "v", rec.Result["nested"].(map[string]any)["k"])
	assert.Equal(t, "a.pdf", rec.Result["errors"].([]map[string]any)[0]["file_path"])
	assert.Equal(t, "a.txt", rec.Result["paths"].([]string)[0])
	assert.Equal(t, TaskStatusCompleted, rec.Status)
	assert.True(t, rec.StartedAt.Before(*clone.StartedAt))

	var nilRec *TaskRecord
	assert.Nil(t, nilRec.Clone())
}

func TestTaskRecord_CloneCopiesTypedValues(t *testing.T) {
	t.Parallel()

	type summary struct {
		Sizes []int
		Meta  map[string]string
	}

	tests := []struct {
		name   string
		value  func() any
		mutate func(v any)
	}{
		{
			name:   "int slice",
			value:  func() any { return []int{1, 2, 3} },
			mutate: func(v any) { v.([]int)[0] = 99 },
		},
		{
			name:   "float slice",
			value:  func() any { return []float64{0.5, 1.5} },
			mutate: func(v any) { v.([]float64)[1] = -1 },
		},
		{
			name:   "string map",
			value:  func() any { return map[string]string{"a": "b"} },
			mutate: func(v any) { v.(map[string]string)["a"] = "MUTATED" },
		},
		{
			name:   "map of slices",
			value:  func() any { return map[string][]int{"a": {1}} },
			mutate: func(v any) { v.(map[string][]int)["a"][0] = 99 },
		},
		{
			name:   "slice of any holding typed map",
			value:  func() any { return []any{map[string]int{"n": 1}} },
			mutate: func(v any) { v.([]any)[0].(map[string]int)["n"] = 99 },
		},
		{
			name: "struct pointer",
			value: func() any {
				return &summary{Sizes: []int{1}, Meta: map[string]string{"k": "v"}}
			},
			mutate: func(v any) {
				s := v.(*summary)
				s.Sizes[0] = 99
				s.Meta["k"] = "MUTATED"
			},
		},
		{
			name:   "array of slices",
			value:  func() any { return [2][]string{{"a"}, {"b"}} },
			mutate: func(v any) { v.([2][]string)[1][0] = "MUTATED" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec, err := NewTaskRecord("test")
			require.NoError(t, err)
			require.NoError(t, rec.Start(time.Now()))
			require.NoError(t, rec.Complete(time.Now(), map[string]any{"v": tt.value()}))

			clone := rec.Clone()
			require.Equal(t, rec.Result, clone.Result)

			tt.mutate(clone.Result["v"])

			assert.Equal(t, tt.value(), rec.Result["v"], "original must not see the clone's changes")
			assert.NotEqual(t, rec.Result["v"], clone.Result["v"])
		})
	}
}
