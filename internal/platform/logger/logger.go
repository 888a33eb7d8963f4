package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LoggerConfig holds the settings Setup needs.
type LoggerConfig struct {
	// Level is one of debug, info, warn or error (case-insensitive).
	Level string
	// Dir, when set, receives a copy of every line in <Dir>/<YYYY-MM-DD>.log.
	Dir string
	// Output overrides stdout; used by tests.
	Output io.Writer
}

// ParseLevel maps a configured level name to a slog.Level. The boolean is
// false when the name is not recognized.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Setup initializes the application's logger from cfg and installs it as the
// slog default. The returned close function releases the daily log file, if
// any, and is safe to call when Dir is empty.
func Setup(cfg LoggerConfig) (*slog.Logger, func(), error) {
	level, ok := ParseLevel(cfg.Level)
	if !ok {
		tmpLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmpLogger.Warn("invalid log level configured, using default level",
			"configured_level", cfg.Level,
			"default_level", "info")
	}

	var out io.Writer = os.Stdout
	if cfg.Output != nil {
		out = cfg.Output
	}

	closeFn := func() {}
	if cfg.Dir != "" {
		fileWriter, err := NewDailyFileWriter(cfg.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log directory: %w", err)
		}
		out = io.MultiWriter(out, fileWriter)
		closeFn = func() { _ = fileWriter.Close() }
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler)

	slog.SetDefault(logger)

	return logger, closeFn, nil
}
