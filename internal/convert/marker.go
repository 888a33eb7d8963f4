package convert

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/phrazzld/chunkr/internal/platform/logger"
)

// DefaultMarkerCommand is the marker CLI entry point.
const DefaultMarkerCommand = "marker_single"

// maxLoggedLine caps a single logged line of marker output. Longer lines are
// truncated and the rest of them is discarded.
const maxLoggedLine = 64 * 1024

// MarkerConfig configures MarkerConverter.
type MarkerConfig struct {
	// Command is the executable to run; DefaultMarkerCommand when empty.
	Command string
	// APIKey is the Gemini key marker uses for its LLM pass.
	APIKey string
	// ModelName is the Gemini model marker should use.
	ModelName string
}

// MarkerConverter converts PDFs by running marker_single and streaming its
// output into the log.
type MarkerConverter struct {
	cfg    MarkerConfig
	logger *slog.Logger
}

// NewMarkerConverter creates a MarkerConverter. A missing API key is only
// reported when a conversion is attempted.
func NewMarkerConverter(cfg MarkerConfig, logger *slog.Logger) *MarkerConverter {
	if cfg.Command == "" {
		cfg.Command = DefaultMarkerCommand
	}
	if cfg.ModelName == "" {
		cfg.ModelName = DefaultModelName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MarkerConverter{cfg: cfg, logger: logger.With("component", "marker_converter")}
}

// Convert runs marker on path and returns the Markdown file it produced.
func (c *MarkerConverter) Convert(ctx context.Context, path string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: a Gemini API key is required for parsing PDFs", ErrMissingCredential)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("PDF file not found: %w", err)
	}

	log := logger.FromContextOrDefault(ctx, c.logger).With("file", filepath.Base(path))
	outputDir := filepath.Dir(path)
	args := []string{
		path,
		"--output_dir", outputDir,
		"--output_format", "markdown",
		"--use_llm",
		"--gemini_api_key", c.cfg.APIKey,
		"--model_name", c.cfg.ModelName,
	}

	log.Info("running PDF conversion",
		"command", c.cfg.Command,
		"args", strings.Join(redactArgs(args), " "))

	cmd := exec.CommandContext(ctx, c.cfg.Command, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: conversion tool %q is not installed", ErrConversionFailed, c.cfg.Command)
		}
		return "", fmt.Errorf("%w: failed to start %s: %v", ErrConversionFailed, c.cfg.Command, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go streamLines(&wg, stdout, log, func(line string) { log.Info(line, "stream", "stdout") })
	go streamLines(&wg, stderr, log, func(line string) { log.Warn(line, "stream", "stderr") })
	// pipes must be drained before Wait closes them
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrConversionFailed, c.cfg.Command, err)
	}

	output := OutputPath(path)
	if _, err := os.Stat(output); err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutputMissing, output)
	}

	log.Info("PDF conversion finished", "output", output)
	return output, nil
}

// streamLines emits each non-blank line read from r and always reads r to
// EOF, so the child process never blocks on a full pipe.
func streamLines(wg *sync.WaitGroup, r io.Reader, log *slog.Logger, emit func(string)) {
	defer wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(splitOutputLines(maxLoggedLine))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			emit(line)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn("stopped reading conversion output", "error", err)
	}
	if _, err := io.Copy(io.Discard, r); err != nil && !errors.Is(err, os.ErrClosed) {
		log.Warn("failed to drain conversion output", "error", err)
	}
}

// splitOutputLines splits on both \n and \r, since progress bars redraw with a
// bare carriage return. A line longer than limit is cut at limit bytes and its
// remainder skipped up to the next line break.
func splitOutputLines(limit int) bufio.SplitFunc {
	skipping := false
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
			if skipping {
				skipping = false
				return i + 1, nil, nil
			}
			return i + 1, data[:min(i, limit)], nil
		}
		if skipping {
			return len(data), nil, nil
		}
		if len(data) >= limit {
			skipping = true
			return len(data), data[:limit], nil
		}
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}

func redactArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "--gemini_api_key" {
			out[i+1] = "[REDACTED]"
		}
	}
	return out
}
