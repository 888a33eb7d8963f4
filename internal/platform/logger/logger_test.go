package logger_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/chunkr/internal/platform/logger"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		level slog.Level
		ok    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"Warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			level, ok := logger.ParseLevel(tc.input)
			assert.Equal(t, tc.level, level)
			assert.Equal(t, tc.ok, ok)
		})
	}
}

func TestSetup(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	buf := &logger.TestLogBuffer{}
	l, closeFn, err := logger.Setup(logger.LoggerConfig{Level: "warn", Output: buf})
	require.NoError(t, err)
	defer closeFn()

	l.Info("hidden")
	l.Warn("shown", "task_id", "abc")

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["msg"])
	assert.Equal(t, "abc", entries[0]["task_id"])
	assert.Equal(t, l, slog.Default())
}

func TestSetup_WritesDailyFile(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	dir := filepath.Join(t.TempDir(), "logs")
	buf := &logger.TestLogBuffer{}
	l, closeFn, err := logger.Setup(logger.LoggerConfig{Level: "info", Dir: dir, Output: buf})
	require.NoError(t, err)

	l.Info("to both")
	closeFn()

	data, err := os.ReadFile(filepath.Join(dir, time.Now().Format("2006-01-02")+".log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both")
	assert.Contains(t, buf.String(), "to both")
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	custom, _ := logger.GetTestLogger(t)
	fallback := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	//nolint:staticcheck // a nil context is tolerated deliberately
	assert.Equal(t, fallback, logger.FromContextOrDefault(nil, fallback))
	assert.Equal(t, fallback, logger.FromContextOrDefault(context.Background(), fallback))

	ctx := logger.WithLogger(context.Background(), custom)
	assert.Equal(t, custom, logger.FromContext(ctx))

	assert.Panics(t, func() {
		logger.WithLogger(context.Background(), nil)
	})
}

func TestCleanupOldLogs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	now := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

	write := func(name string, age time.Duration) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		mtime := now.Add(-age)
		require.NoError(t, os.Chtimes(path, mtime, mtime))
		return path
	}

	old := write("2025-05-01.log", 60*24*time.Hour)
	recent := write("2025-06-29.log", 24*time.Hour)
	other := write("keep.txt", 90*24*time.Hour)

	testLogger, logBuf := logger.GetTestLogger(t)
	removed, err := logger.CleanupOldLogs(dir, logger.DefaultRetention, now, testLogger)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, old)
	assert.FileExists(t, recent)
	assert.FileExists(t, other)
	assert.Len(t, logBuf.FindEntries("deleted old log file"), 1)

	removed, err = logger.CleanupOldLogs(filepath.Join(dir, "missing"), logger.DefaultRetention, now, nil)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
