// Package main implements the entry point for the chunkr server, which
// accepts document uploads, converts and chunks them in background tasks and
// serves the results over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/phrazzld/chunkr/internal/config"
	"github.com/phrazzld/chunkr/internal/platform/logger"
)

const appName = "chunkr"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to a YAML configuration file (default: ./config.yaml if present)")
	migrateCmd := flag.String("migrate", "", "Run database migrations and exit (up, status)")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", appName, version)
		return
	}

	if err := run(context.Background(), *configPath, *migrateCmd); err != nil {
		log.Fatalf("%s: %v", appName, err)
	}
}

// run loads configuration, sets up logging and either runs migrations or
// serves until shutdown.
func run(ctx context.Context, configPath, migrateCmd string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, closeLog, err := logger.Setup(logger.LoggerConfig{
		Level: cfg.Server.LogLevel,
		Dir:   cfg.Log.Dir,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	defer closeLog()

	l.Info("server configuration loaded",
		"version", version,
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"storage_type", cfg.Storage.Type,
		"work_dir", cfg.Task.WorkDir,
		"pdf_backend", cfg.Converter.PDFBackend)

	if migrateCmd != "" {
		return runMigrations(ctx, cfg.Storage, migrateCmd, l.With("component", "migrations"))
	}

	app, err := newApplication(ctx, cfg, l)
	if err != nil {
		l.Error("failed to initialize application", "error", err)
		return err
	}
	return app.Run(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}
