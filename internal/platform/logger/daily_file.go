package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	logFileExt    = ".log"
	logDateLayout = "2006-01-02"
)

// DailyFileWriter appends to <dir>/<YYYY-MM-DD>.log, switching files when
// the local date changes.
type DailyFileWriter struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
}

// NewDailyFileWriter creates dir if needed and opens today's file.
func NewDailyFileWriter(dir string) (*DailyFileWriter, error) {
	return newDailyFileWriter(dir, time.Now)
}

func newDailyFileWriter(dir string, now func() time.Time) (*DailyFileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	w := &DailyFileWriter{dir: dir, now: now}
	if err := w.rotate(now().Format(logDateLayout)); err != nil {
		return nil, err
	}
	return w, nil
}

// Write implements io.Writer.
func (w *DailyFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if day := w.now().Format(logDateLayout); day != w.day || w.file == nil {
		if err := w.rotate(day); err != nil {
			return 0, err
		}
	}
	return w.file.Write(p)
}

// Path returns the file currently written to.
func (w *DailyFileWriter) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return filepath.Join(w.dir, w.day+logFileExt)
}

// Close closes the current file.
func (w *DailyFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// rotate must be called with mu held.
func (w *DailyFileWriter) rotate(day string) error {
	f, err := os.OpenFile(filepath.Join(w.dir, day+logFileExt), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	if w.file != nil {
		_ = w.file.Close()
	}
	w.file = f
	w.day = day
	return nil
}
