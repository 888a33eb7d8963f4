package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/phrazzld/chunkr/internal/chunking"
	"github.com/phrazzld/chunkr/internal/config"
	"github.com/phrazzld/chunkr/internal/convert"
	"github.com/phrazzld/chunkr/internal/events"
	"github.com/phrazzld/chunkr/internal/platform/logger"
	"github.com/phrazzld/chunkr/internal/task"
)

// logCleanupInterval is how often expired daily log files are removed.
const logCleanupInterval = 24 * time.Hour

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	storage    *taskStorage
	converters *convert.Registry
	chunkers   *chunking.Registry
	emitter    *events.InMemoryEventEmitter
	engine     *task.Engine
}

// newApplication creates a new application instance with all dependencies
// initialized. Storage is opened here and released by cleanup.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	if err := os.MkdirAll(cfg.Task.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	storage, err := openTaskStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	app.storage = storage
	logger.Info("task storage initialized", "storage_type", cfg.Storage.Type)

	app.converters, err = newConverterRegistry(ctx, cfg.Converter, logger)
	if err != nil {
		app.cleanup()
		return nil, err
	}
	app.chunkers = chunking.NewRegistry()

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(events.NewLoggingHandler(logger))

	executor, err := task.NewChunkingExecutor(app.chunkers, app.converters, cfg.Task.WorkDir, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create chunking executor: %w", err)
	}

	registry := task.NewRegistry()
	runner := task.NewRunner(storage.store, executor, logger, task.WithRunnerEvents(app.emitter))
	if err := registry.Register(task.TaskTypeChunking, runner); err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to register chunking runner: %w", err)
	}

	app.engine = task.NewEngine(storage.store, registry, logger,
		task.WithEngineEvents(app.emitter),
		task.WithTimeout(cfg.Task.Timeout()))

	if cfg.Task.RecoverOnStart {
		recovered, err := app.engine.RecoverInterrupted(ctx)
		if err != nil {
			logger.Error("failed to recover interrupted tasks", "recovered", recovered, "error", err)
		} else if recovered > 0 {
			logger.Warn("marked interrupted tasks as failed", "count", recovered)
		}
	}

	logger.Info("application initialized successfully",
		"task_types", registry.Types(),
		"strategies", app.chunkers.Names(),
		"converters", app.converters.Extensions())
	return app, nil
}

// newConverterRegistry registers the configured PDF backend. Plain-text
// formats need no converter and are read directly by the executor.
func newConverterRegistry(ctx context.Context, cfg config.ConverterConfig, logger *slog.Logger) (*convert.Registry, error) {
	registry := convert.NewRegistry()

	switch cfg.PDFBackend {
	case config.PDFBackendGemini:
		gemini, err := convert.NewGeminiConverter(ctx, geminiConfig(cfg), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini converter: %w", err)
		}
		registry.Register(".pdf", gemini)
	default:
		registry.Register(".pdf", convert.NewMarkerConverter(convert.MarkerConfig{
			Command:   cfg.MarkerCommand,
			APIKey:    cfg.GeminiAPIKey,
			ModelName: cfg.ModelName,
		}, logger))
	}

	if cfg.GeminiAPIKey == "" {
		logger.Warn("no Gemini API key configured, PDF conversion will fail",
			"pdf_backend", cfg.PDFBackend)
	}
	return registry, nil
}

func geminiConfig(cfg config.ConverterConfig) convert.GeminiConfig {
	return convert.GeminiConfig{
		APIKey:     cfg.GeminiAPIKey,
		ModelName:  cfg.ModelName,
		MaxRetries: cfg.GeminiMaxRetries,
		RetryDelay: cfg.GeminiRetryDelay(),
	}
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	if app.config.Log.Dir != "" {
		go app.runLogCleanup(ctx)
	}

	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// runLogCleanup removes expired log files now and then once a day until ctx
// is done.
func (app *application) runLogCleanup(ctx context.Context) {
	log := app.logger.With("component", "log_cleanup")
	cleanup := func() {
		removed, err := logger.CleanupOldLogs(app.config.Log.Dir, app.config.Log.Retention(), time.Now(), log)
		if err != nil {
			log.Error("failed to clean up old logs", "error", err)
			return
		}
		if removed > 0 {
			log.Info("removed expired log files", "count", removed)
		}
	}

	cleanup()
	ticker := time.NewTicker(logCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanup()
		}
	}
}

// cleanup waits for in-flight tasks and then releases storage. Tasks still
// running when the shutdown timeout expires are left for restart recovery.
func (app *application) cleanup() {
	if app.engine != nil {
		waitCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout())
		defer cancel()
		if err := app.engine.Wait(waitCtx); err != nil {
			app.logger.Warn("shutdown timed out with tasks still running", "error", err)
		}
	}

	if app.storage != nil {
		if err := app.storage.close(); err != nil {
			app.logger.Error("error closing task storage", "error", err)
		}
	}
}
