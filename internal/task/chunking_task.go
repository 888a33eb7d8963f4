package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/chunkr/internal/chunking"
	"github.com/phrazzld/chunkr/internal/convert"
	"github.com/phrazzld/chunkr/internal/platform/logger"
)

// TaskTypeChunking is the task type handled by ChunkingExecutor.
const TaskTypeChunking = "chunking_task"

// ChunksFileName is the name of the chunk output written in each task directory.
const ChunksFileName = "chunks.json"

// Common errors
var (
	ErrInvalidPayload = errors.New("invalid task payload")
	ErrNilChunkers    = errors.New("chunking registry cannot be nil")
	ErrNilConverters  = errors.New("converter registry cannot be nil")
	ErrEmptyWorkDir   = errors.New("work directory cannot be empty")
)

// ChunkingPayload is the execution input of a chunking task.
type ChunkingPayload struct {
	Files    []string `json:"files"    validate:"required,min=1,dive,required"`
	Strategy string   `json:"strategy"`
}

// StrategyResolver returns the chunker registered under a strategy name.
type StrategyResolver interface {
	Resolve(name string) (chunking.Chunker, error)
}

// ConverterLookup returns the converter for a file, keyed by its extension.
type ConverterLookup interface {
	Lookup(path string) (convert.Converter, bool)
}

// ChunkingExecutor resolves each input file to text, chunks the text with
// the requested strategy and writes the chunks to <workDir>/<task id>/chunks.json.
type ChunkingExecutor struct {
	chunkers   StrategyResolver
	converters ConverterLookup
	workDir    string
	validate   *validator.Validate
	logger     *slog.Logger
}

var _ Executor = (*ChunkingExecutor)(nil)

// NewChunkingExecutor creates a ChunkingExecutor.
func NewChunkingExecutor(
	chunkers StrategyResolver,
	converters ConverterLookup,
	workDir string,
	logger *slog.Logger,
) (*ChunkingExecutor, error) {
	if chunkers == nil {
		return nil, ErrNilChunkers
	}
	if converters == nil {
		return nil, ErrNilConverters
	}
	if workDir == "" {
		return nil, ErrEmptyWorkDir
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ChunkingExecutor{
		chunkers:   chunkers,
		converters: converters,
		workDir:    workDir,
		validate:   validator.New(),
		logger:     logger.With("component", "chunking_executor"),
	}, nil
}

// TaskDir returns the directory holding the uploads and output of a task.
func (e *ChunkingExecutor) TaskDir(taskID string) string {
	return filepath.Join(e.workDir, taskID)
}

// Execute implements Executor.
//
// Conversion failures are recorded per file and do not stop the task. An
// unknown strategy or a chunker failure fails the whole task.
func (e *ChunkingExecutor) Execute(ctx context.Context, taskID string, payload json.RawMessage) (map[string]any, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	var in ChunkingPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if err := e.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	strategy := chunking.CanonicalName(in.Strategy)
	chunker, err := e.chunkers.Resolve(strategy)
	if err != nil {
		return nil, err
	}

	log.Info("starting chunking task", "files", len(in.Files), "strategy", strategy)

	parsed := make([]string, 0, len(in.Files))
	failures := make([]map[string]any, 0)
	for _, path := range in.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		textPath, err := e.resolveText(ctx, path)
		if err != nil {
			log.Error("failed to process file", "file_path", path, "error", err)
			failures = append(failures, map[string]any{
				"file_path": path,
				"error":     err.Error(),
				"status":    "failed",
			})
			continue
		}
		log.Debug("processed file", "file_path", path, "text_path", textPath)
		parsed = append(parsed, textPath)
	}

	results := make([]map[string]any, 0, 1)
	if len(parsed) > 0 {
		chunksPath, count, err := e.writeChunks(ctx, chunker, taskID, parsed)
		if err != nil {
			return nil, err
		}
		log.Info("wrote chunks", "chunks", count, "chunks_file_path", chunksPath)

		results = append(results, map[string]any{
			"files_paths":        append([]string(nil), in.Files...),
			"parsed_files_paths": parsed,
			"chunks_file_path":   chunksPath,
			"status":             "success",
		})
	} else {
		log.Warn("no file could be converted to text, skipping chunking")
	}

	log.Info("completed chunking task",
		"processed", len(in.Files),
		"successful", len(parsed),
		"failed", len(failures))

	return map[string]any{
		"processed_files": len(in.Files),
		"successful":      len(parsed),
		"failed":          len(failures),
		"strategy":        strategy,
		"results":         results,
		"errors":          failures,
	}, nil
}

// resolveText returns a path holding the plain text of path, converting it
// when a converter is registered for its extension.
func (e *ChunkingExecutor) resolveText(ctx context.Context, path string) (string, error) {
	if c, ok := e.converters.Lookup(path); ok {
		return c.Convert(ctx, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("cannot read input file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("input %s is a directory", filepath.Base(path))
	}
	return path, nil
}

func (e *ChunkingExecutor) writeChunks(
	ctx context.Context,
	chunker chunking.Chunker,
	taskID string,
	paths []string,
) (string, int, error) {
	chunks, err := chunker.ChunkDocuments(ctx, paths)
	if err != nil {
		return "", 0, fmt.Errorf("chunking failed: %w", err)
	}
	if chunks == nil {
		chunks = []chunking.Chunk{}
	}

	dir := e.TaskDir(taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create task directory: %w", err)
	}

	data, err := json.MarshalIndent(chunks, "", "    ")
	if err != nil {
		return "", 0, fmt.Errorf("failed to encode chunks: %w", err)
	}

	out := filepath.Join(dir, ChunksFileName)
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", 0, fmt.Errorf("failed to write chunks: %w", err)
	}
	return out, len(chunks), nil
}
