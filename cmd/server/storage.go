package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/chunkr/internal/config"
	"github.com/phrazzld/chunkr/internal/platform/filestore"
	"github.com/phrazzld/chunkr/internal/platform/memory"
	"github.com/phrazzld/chunkr/internal/platform/postgres"
	"github.com/phrazzld/chunkr/internal/platform/redis"
	"github.com/phrazzld/chunkr/internal/store"
)

// taskStorage is an opened backend together with the function that releases
// its connections.
type taskStorage struct {
	store store.TaskRecordStore
	close func() error
}

func noopClose() error { return nil }

// openTaskStorage selects and opens the backend named by cfg.Type. The
// postgres backend applies pending migrations before it is returned.
func openTaskStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*taskStorage, error) {
	switch cfg.Type {
	case config.StorageMemory, "":
		return &taskStorage{store: memory.NewMemoryTaskStore(), close: noopClose}, nil

	case config.StorageFile:
		s, err := filestore.NewFileTaskStore(cfg.FilePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open file storage: %w", err)
		}
		return &taskStorage{store: s, close: noopClose}, nil

	case config.StorageRedis:
		client, err := redis.Open(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return &taskStorage{
			store: redis.NewRedisTaskStore(client, cfg.RedisKeyPrefix, logger),
			close: client.Close,
		}, nil

	case config.StoragePostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := postgres.Migrate(ctx, db, logger.With("component", "migrations")); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &taskStorage{store: postgres.NewPostgresTaskStore(db), close: db.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}

// runMigrations handles the -migrate flag. Only the postgres backend has a
// schema; other backends report that there is nothing to do.
func runMigrations(ctx context.Context, cfg config.StorageConfig, command string, logger *slog.Logger) error {
	if cfg.Type != config.StoragePostgres {
		logger.Info("storage backend has no schema to migrate", "storage_type", cfg.Type)
		return nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database connection", "error", err)
		}
	}()

	switch command {
	case "up":
		return postgres.Migrate(ctx, db, logger)
	case "status":
		return postgres.MigrationStatus(ctx, db, logger)
	default:
		return fmt.Errorf("unknown migration command %q (expected up or status)", command)
	}
}
