package domain

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task record
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// IsTerminal reports whether no further transitions may leave this status.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// IsValid reports whether s is one of the known statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// TaskRecord is the persisted state of one submitted unit of asynchronous
// work. It is created PENDING, moved to RUNNING when execution begins and
// finishes as either COMPLETED (with a Result) or FAILED (with an Error).
//
// Records are mutated only through Start, Complete and Fail so that the
// timestamp and payload invariants hold at every persisted step.
type TaskRecord struct {
	ID          string         `json:"task_id"`
	TaskType    string         `json:"task_type"`
	Status      TaskStatus     `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	Result      map[string]any `json:"result"`
	Error       string         `json:"error,omitempty"`
}

// NewTaskRecord creates a PENDING record of the given type with a freshly
// generated identifier.
func NewTaskRecord(taskType string) (*TaskRecord, error) {
	rec := &TaskRecord{
		ID:        uuid.NewString(),
		TaskType:  taskType,
		Status:    TaskStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return rec, nil
}

// Start moves a PENDING record to RUNNING and stamps StartedAt.
func (r *TaskRecord) Start(now time.Time) error {
	if r.Status != TaskStatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, TaskStatusRunning)
	}

	started := now.UTC()
	r.Status = TaskStatusRunning
	r.StartedAt = &started
	return nil
}

// Complete moves a RUNNING record to COMPLETED with the given result.
// A nil result is stored as an empty map so that a completed record always
// carries a result.
func (r *TaskRecord) Complete(now time.Time, result map[string]any) error {
	if r.Status != TaskStatusRunning {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, TaskStatusCompleted)
	}
	if result == nil {
		result = map[string]any{}
	}

	completed := now.UTC()
	r.Status = TaskStatusCompleted
	r.CompletedAt = &completed
	r.Result = result
	r.Error = ""
	return nil
}

// Fail moves a RUNNING record to FAILED with a descriptive message.
func (r *TaskRecord) Fail(now time.Time, message string) error {
	if r.Status != TaskStatusRunning {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, TaskStatusFailed)
	}
	if message == "" {
		message = "task failed without an error message"
	}

	completed := now.UTC()
	r.Status = TaskStatusFailed
	r.CompletedAt = &completed
	r.Result = nil
	r.Error = message
	return nil
}

// Validate checks that the record satisfies the status invariants: which
// timestamps are set, and that exactly one of Result and Error is present
// once the record is terminal.
func (r *TaskRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrInvalidID)
	}
	if r.TaskType == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyTaskType)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: %w: %q", ErrValidation, ErrInvalidTaskStatus, r.Status)
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("%w: created_at is not set", ErrValidation)
	}

	started := r.Status != TaskStatusPending
	if started != (r.StartedAt != nil) {
		return fmt.Errorf("%w: started_at inconsistent with status %s", ErrValidation, r.Status)
	}
	if r.Status.IsTerminal() != (r.CompletedAt != nil) {
		return fmt.Errorf("%w: completed_at inconsistent with status %s", ErrValidation, r.Status)
	}

	switch r.Status {
	case TaskStatusCompleted:
		if r.Result == nil || r.Error != "" {
			return fmt.Errorf("%w: completed record must carry a result and no error", ErrValidation)
		}
	case TaskStatusFailed:
		if r.Error == "" || r.Result != nil {
			return fmt.Errorf("%w: failed record must carry an error and no result", ErrValidation)
		}
	default:
		if r.Result != nil || r.Error != "" {
			return fmt.Errorf("%w: %s record cannot carry a result or error", ErrValidation, r.Status)
		}
	}

	return nil
}

// Clone returns a deep copy of the record. Nested maps and slices inside
// Result are copied so that the clone shares no mutable state with r.
func (r *TaskRecord) Clone() *TaskRecord {
	if r == nil {
		return nil
	}

	c := *r
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	if r.Result != nil {
		c.Result = cloneMap(r.Result)
	}
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i] = cloneMap(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case nil:
		return nil
	default:
		return deepCopy(reflect.ValueOf(v)).Interface()
	}
}

// deepCopy copies the maps, slices, arrays and pointers reachable from v so the
// result shares no mutable memory with it. Unexported struct fields are
// copied shallowly. Channels and funcs are returned as is.
func deepCopy(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := range v.Len() {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := range v.Len() {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(deepCopy(v.Elem()))
		return out
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(deepCopy(v.Elem()))
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := range v.NumField() {
			if field := out.Field(i); field.CanSet() {
				field.Set(deepCopy(v.Field(i)))
			}
		}
		return out
	default:
		return v
	}
}
