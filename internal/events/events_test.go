package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/chunkr/internal/domain"
)

// MockEventHandler records the events it receives.
type MockEventHandler struct {
	mu sync.Mutex
	// The last event received by this handler
	LastEvent *TaskEvent
	// Error to return from HandleEvent
	HandlerError error
	// Count of events handled
	HandledCount int
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *TaskEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestNewTaskEvent(t *testing.T) {
	t.Parallel()

	rec, err := domain.NewTaskRecord("chunking_task")
	require.NoError(t, err)
	require.NoError(t, rec.Start(time.Now()))
	require.NoError(t, rec.Fail(time.Now(), "unknown chunking strategy: nope"))

	before := time.Now().UTC()
	event := NewTaskEvent(rec)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, rec.ID, event.TaskID)
	assert.Equal(t, "chunking_task", event.TaskType)
	assert.Equal(t, domain.TaskStatusFailed, event.Status)
	assert.Equal(t, "unknown chunking strategy: nope", event.Error)
	assert.False(t, event.OccurredAt.Before(before))

	assert.NotEqual(t, event.ID, NewTaskEvent(rec).ID)
}

func TestEventHandlerFunc(t *testing.T) {
	t.Parallel()

	var got *TaskEvent
	h := EventHandlerFunc(func(ctx context.Context, event *TaskEvent) error {
		got = event
		return nil
	})

	event := &TaskEvent{ID: uuid.New(), TaskID: "abc"}
	require.NoError(t, h.HandleEvent(context.Background(), event))
	assert.Same(t, event, got)

	assert.NoError(t, NoopEmitter{}.EmitEvent(context.Background(), event))
}
