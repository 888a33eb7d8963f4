package events

import (
	"context"
	"log/slog"

	"github.com/phrazzld/chunkr/internal/domain"
)

// LoggingHandler writes one log line per lifecycle event. Failed tasks are
// logged at WARN so they stand out from routine transitions.
type LoggingHandler struct {
	logger *slog.Logger
}

// NewLoggingHandler creates a LoggingHandler.
func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingHandler{logger: logger.With("component", "task_events")}
}

// HandleEvent implements EventHandler.
func (h *LoggingHandler) HandleEvent(ctx context.Context, event *TaskEvent) error {
	attrs := []any{
		"event_id", event.ID,
		"task_id", event.TaskID,
		"task_type", event.TaskType,
		"status", event.Status,
	}

	if event.Status == domain.TaskStatusFailed {
		h.logger.WarnContext(ctx, "task status changed", append(attrs, "error", event.Error)...)
		return nil
	}
	h.logger.InfoContext(ctx, "task status changed", attrs...)
	return nil
}
