package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/phrazzld/chunkr/internal/domain"
	"github.com/phrazzld/chunkr/internal/store"
)

const (
	backendName = "file"
	fileExt     = ".json"
)

// FileTaskStore implements store.TaskRecordStore with one file per record.
type FileTaskStore struct {
	dir    string
	logger *slog.Logger
}

var _ store.TaskRecordStore = (*FileTaskStore)(nil)

// NewFileTaskStore creates the storage directory if needed and returns a
// store rooted there.
func NewFileTaskStore(dir string, logger *slog.Logger) (*FileTaskStore, error) {
	if dir == "" {
		return nil, errors.New("file store directory cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, store.NewStoreError(backendName, "init", "", fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}

	return &FileTaskStore{
		dir:    dir,
		logger: logger.With("component", "file_task_store", "dir", dir),
	}, nil
}

// Dir returns the directory holding the record files.
func (s *FileTaskStore) Dir() string {
	return s.dir
}

func (s *FileTaskStore) path(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

// Save atomically replaces the file for rec.ID with the encoded record.
func (s *FileTaskStore) Save(ctx context.Context, rec *domain.TaskRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: nil record", store.ErrInvalidRecord)
	}
	if err := store.ValidateID(rec.ID); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidRecord, err)
	}

	data, err := store.Encode(rec)
	if err != nil {
		return err
	}

	if err := s.writeAtomic(s.path(rec.ID), data); err != nil {
		s.logger.Error("failed to write task record",
			"task_id", rec.ID,
			"error", err)
		return store.NewStoreError(backendName, "save", rec.ID, err)
	}

	return nil
}

func (s *FileTaskStore) writeAtomic(target string, data []byte) (err error) {
	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(target)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err = os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// Get reads the record for id. Missing and unreadable files both report
// absence; other I/O failures are returned.
func (s *FileTaskStore) Get(ctx context.Context, id string) (*domain.TaskRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	// an ID that cannot name a file was never saved
	if err := store.ValidateID(id); err != nil {
		return nil, false, nil
	}

	rec, err := s.readRecord(s.path(id), id)
	switch {
	case err == nil:
		return rec, true, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, false, nil
	case errors.Is(err, store.ErrCorruptRecord):
		s.logger.Warn("skipping corrupt task record",
			"task_id", id,
			"error", err)
		return nil, false, nil
	default:
		return nil, false, store.NewStoreError(backendName, "get", id, err)
	}
}

// List reads every record file in the directory. Files that cannot be read
// or decoded are logged and left out of the result.
func (s *FileTaskStore) List(ctx context.Context) (map[string]*domain.TaskRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]*domain.TaskRecord{}, nil
		}
		return nil, store.NewStoreError(backendName, "list", "", err)
	}

	out := make(map[string]*domain.TaskRecord, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != fileExt {
			continue
		}

		id := strings.TrimSuffix(name, fileExt)
		rec, err := s.readRecord(filepath.Join(s.dir, name), id)
		if err != nil {
			// removed between ReadDir and read
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			s.logger.Warn("skipping unreadable task record",
				"file", name,
				"error", err)
			continue
		}
		out[rec.ID] = rec
	}

	return out, nil
}

func (s *FileTaskStore) readRecord(path, id string) (*domain.TaskRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	rec, err := store.Decode(data)
	if err != nil {
		return nil, err
	}
	if rec.ID != id {
		return nil, fmt.Errorf("%w: file for %s holds task %s", store.ErrCorruptRecord, id, rec.ID)
	}
	return rec, nil
}
