package filestore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/phrazzld/chunkr/internal/platform/logger"
	"github.com/phrazzld/chunkr/internal/store"
	"github.com/phrazzld/chunkr/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileTaskStore {
	t.Helper()
	s, err := NewFileTaskStore(t.TempDir(), slog.New(slog.NewJSONHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func TestFileTaskStore_Conformance(t *testing.T) {
	storetest.RunConformance(t, func(t *testing.T) store.TaskRecordStore {
		return newTestStore(t)
	})
}

func TestFileTaskStore_WritesOneFilePerTask(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	rec := storetest.CompletedRecord(t)
	require.NoError(t, s.Save(ctx, rec))
	require.NoError(t, s.Save(ctx, rec))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
	assert.Equal(t, rec.ID+".json", entries[0].Name())
}

func TestFileTaskStore_CorruptEntries(t *testing.T) {
	t.Parallel()

	testLogger, logBuf := logger.GetTestLogger(t)
	dir := t.TempDir()
	s, err := NewFileTaskStore(dir, testLogger)
	require.NoError(t, err)
	ctx := context.Background()

	good := storetest.NewRecord(t)
	require.NoError(t, s.Save(ctx, good))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "truncated.json"), []byte(`{"task_id":"trunc`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.json"), nil, 0o644))
	// a record stored under the wrong name is treated as corrupt
	other := storetest.NewRecord(t)
	data, err := store.Encode(other)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "misnamed.json"), data, 0o644))
	// non-record files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".inflight.json-123.tmp"), []byte("{"), 0o644))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	storetest.AssertRecordEqual(t, good, all[good.ID])

	rec, ok, err := s.Get(ctx, "truncated")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, rec)

	assert.Contains(t, logBuf.String(), "skipping")
}

func TestFileTaskStore_GetRejectsPathLikeIDs(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	for _, id := range []string{"../etc/passwd", "..", "a/b"} {
		rec, ok, err := s.Get(context.Background(), id)
		require.NoError(t, err)
		assert.False(t, ok, "id %q", id)
		assert.Nil(t, rec)
	}
}

func TestFileTaskStore_SaveFailsWhenDirectoryIsGone(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, os.RemoveAll(s.Dir()))

	err := s.Save(context.Background(), storetest.NewRecord(t))
	require.Error(t, err)

	var storeErr *store.StoreError
	assert.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "save", storeErr.Operation)
}

func TestFileTaskStore_ListMissingDirectory(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, os.RemoveAll(s.Dir()))

	all, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNewFileTaskStore_EmptyDir(t *testing.T) {
	t.Parallel()

	_, err := NewFileTaskStore("", nil)
	assert.Error(t, err)
}
