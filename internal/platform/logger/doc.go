// Package logger provides structured logging functionality for the application
// using Go's standard library log/slog package.
//
// Setup builds the process logger: JSON lines on stdout, optionally mirrored
// into one file per day under a log directory. Request and task scoped
// loggers travel through context.Context via WithLogger and FromContext.
// CleanupOldLogs enforces the retention window for the daily files.
package logger
