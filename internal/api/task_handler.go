package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/chunkr/internal/api/shared"
	"github.com/phrazzld/chunkr/internal/domain"
	"github.com/phrazzld/chunkr/internal/platform/logger"
	"github.com/phrazzld/chunkr/internal/task"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// TaskService is the dispatch boundary the handlers talk to.
type TaskService interface {
	Dispatch(ctx context.Context, rec *domain.TaskRecord, payload json.RawMessage) error
	Fetch(ctx context.Context, id string) (*domain.TaskRecord, bool, error)
	Enumerate(ctx context.Context) (map[string]*domain.TaskRecord, error)
}

// ChunkingTaskRequest is the validated form of a chunking submission.
type ChunkingTaskRequest struct {
	Strategy string                  `validate:"required"`
	Files    []*multipart.FileHeader `validate:"required,min=1"`
}

// TaskAcceptedResponse acknowledges a submission.
type TaskAcceptedResponse struct {
	TaskID    string            `json:"task_id"`
	TaskType  string            `json:"task_type"`
	Status    domain.TaskStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// TaskHandler handles task submission, polling and result downloads.
type TaskHandler struct {
	service        TaskService
	workDir        string
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewTaskHandler creates a TaskHandler. Uploads are stored under
// <workDir>/<task id>/ and downloads are confined to workDir.
func NewTaskHandler(service TaskService, workDir string, maxUploadBytes int64, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		service:        service,
		workDir:        workDir,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With("component", "task_handler"),
	}
}

// SubmitChunkingTask handles POST /api/v1/tasks/chunking_task requests
func (h *TaskHandler) SubmitChunkingTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
		case strings.Contains(err.Error(), "request body too large"):
			// multipart parsing does not always wrap the limit error
			err = fmt.Errorf("%w: %w", ErrRequestTooLarge, err)
		default:
			err = fmt.Errorf("%w: %w", ErrInvalidUpload, err)
		}
		HandleAPIError(w, r, err, "")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Warn("failed to remove multipart temp files", "error", err)
		}
	}()

	req := ChunkingTaskRequest{
		Strategy: strings.TrimSpace(r.FormValue("strategy")),
		Files:    r.MultipartForm.File["files"],
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	rec, err := domain.NewTaskRecord(task.TaskTypeChunking)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	taskDir := filepath.Join(h.workDir, rec.ID)
	if err := h.accept(r.Context(), rec, taskDir, req); err != nil {
		if rmErr := os.RemoveAll(taskDir); rmErr != nil {
			log.Warn("failed to clean up task directory", "task_id", rec.ID, "error", rmErr)
		}
		HandleAPIError(w, r, err, "Failed to submit task")
		return
	}

	log.Info("chunking task submitted",
		"task_id", rec.ID,
		"files", len(req.Files),
		"strategy", req.Strategy)

	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskAcceptedResponse{
		TaskID:    rec.ID,
		TaskType:  rec.TaskType,
		Status:    rec.Status,
		CreatedAt: rec.CreatedAt,
	})
}

// accept stores the uploads and dispatches the task.
func (h *TaskHandler) accept(ctx context.Context, rec *domain.TaskRecord, taskDir string, req ChunkingTaskRequest) error {
	if err := os.MkdirAll(taskDir, 0o755); err != nil {
		return fmt.Errorf("failed to create task directory: %w", err)
	}

	files := make([]string, 0, len(req.Files))
	for _, fh := range req.Files {
		path, err := saveUpload(taskDir, fh)
		if err != nil {
			return err
		}
		files = append(files, path)
	}

	payload, err := json.Marshal(task.ChunkingPayload{Files: files, Strategy: req.Strategy})
	if err != nil {
		return fmt.Errorf("failed to encode task payload: %w", err)
	}

	return h.service.Dispatch(ctx, rec, payload)
}

func saveUpload(dir string, fh *multipart.FileHeader) (string, error) {
	name := filepath.Base(filepath.Clean("/" + fh.Filename))
	if name == "/" || name == "." || name == "" {
		return "", fmt.Errorf("%w: missing file name", ErrInvalidUpload)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() { _ = src.Close() }()

	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return path, nil
}

// GetTaskResult handles GET /api/v1/results/{task_id} requests
func (h *TaskHandler) GetTaskResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "task_id")

	rec, ok, err := h.service.Fetch(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}
	if !ok {
		shared.RespondWithError(w, r, http.StatusNotFound, GetSafeErrorMessage(ErrTaskNotFound))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, rec)
}

// ListTasks handles GET /api/v1/tasks requests
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Enumerate(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, records)
}

// DownloadFile handles GET /api/v1/download?file_path=... requests
func (h *TaskHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	requested := r.URL.Query().Get("file_path")
	if requested == "" {
		HandleAPIError(w, r, ErrMissingFilePath, "")
		return
	}

	path, err := h.resolveDownload(requested)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to download file")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		HandleAPIError(w, r, fmt.Errorf("%w: %w", ErrFileNotFound, err), "")
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		HandleAPIError(w, r, ErrFileNotFound, "")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}

// resolveDownload returns the real path of requested if it lies inside the
// work directory, following symlinks on both sides.
func (h *TaskHandler) resolveDownload(requested string) (string, error) {
	rootAbs, err := filepath.Abs(h.workDir)
	if err != nil {
		return "", err
	}
	rootReal := rootAbs
	if real, err := filepath.EvalSymlinks(rootAbs); err == nil {
		rootReal = real
	}

	abs, err := filepath.Abs(requested)
	if err != nil {
		return "", err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		if !within(rootAbs, abs) && !within(rootReal, abs) {
			return "", ErrPathOutsideWork
		}
		return "", fmt.Errorf("%w: %w", ErrFileNotFound, err)
	}

	if !within(rootReal, real) {
		return "", ErrPathOutsideWork
	}
	return real, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
