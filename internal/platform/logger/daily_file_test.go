package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyFileWriter_SwitchesOnDateChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	now := time.Date(2025, 1, 1, 23, 59, 0, 0, time.Local)
	w, err := newDailyFileWriter(dir, func() time.Time { return now })
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2025-01-01.log"), w.Path())

	now = now.Add(2 * time.Minute)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2025-01-02.log"), w.Path())

	first, err := os.ReadFile(filepath.Join(dir, "2025-01-01.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(first))

	second, err := os.ReadFile(filepath.Join(dir, "2025-01-02.log"))
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(second))
}

func TestDailyFileWriter_CloseTwice(t *testing.T) {
	t.Parallel()

	w, err := NewDailyFileWriter(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
