package logger

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// DefaultRetention is how long daily log files are kept.
const DefaultRetention = 30 * 24 * time.Hour

// CleanupOldLogs deletes *.log files in dir last modified before
// now-retention and returns how many were removed. A missing directory is
// not an error.
func CleanupOldLogs(dir string, retention time.Duration, now time.Time, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := now.Add(-retention)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != logFileExt {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn("failed to delete old log file", "file", path, "error", err)
			continue
		}
		logger.Info("deleted old log file", "file", path)
		removed++
	}

	return removed, nil
}
