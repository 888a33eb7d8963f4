package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/chunkr/internal/domain"
	"github.com/phrazzld/chunkr/internal/store"
)

const (
	backendName = "redis"

	// DefaultKeyPrefix namespaces task keys within the Redis database.
	DefaultKeyPrefix = "task:"

	scanBatchSize = 100
)

// RedisTaskStore implements store.TaskRecordStore with one Redis string per record.
type RedisTaskStore struct {
	client goredis.UniversalClient
	prefix string
	logger *slog.Logger
}

var _ store.TaskRecordStore = (*RedisTaskStore)(nil)

// Open parses a redis:// URL, connects and verifies the server answers PING.
func Open(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, store.NewStoreError(backendName, "ping", "", fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}
	return client, nil
}

// NewRedisTaskStore wraps an existing client. An empty prefix selects
// DefaultKeyPrefix.
func NewRedisTaskStore(client goredis.UniversalClient, prefix string, logger *slog.Logger) *RedisTaskStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisTaskStore{
		client: client,
		prefix: prefix,
		logger: logger.With("component", "redis_task_store"),
	}
}

func (s *RedisTaskStore) key(id string) string {
	return s.prefix + id
}

// Save writes the encoded record and returns once Redis acknowledges it.
func (s *RedisTaskStore) Save(ctx context.Context, rec *domain.TaskRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", store.ErrInvalidRecord)
	}
	if err := store.ValidateID(rec.ID); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidRecord, err)
	}

	data, err := store.Encode(rec)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.key(rec.ID), data, 0).Err(); err != nil {
		s.logger.Error("failed to save task record",
			"task_id", rec.ID,
			"error", err)
		return store.NewStoreError(backendName, "save", rec.ID, fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}
	return nil
}

// Get fetches the record for id. A value that does not decode is logged and
// reported as absent.
func (s *RedisTaskStore) Get(ctx context.Context, id string) (*domain.TaskRecord, bool, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, store.NewStoreError(backendName, "get", id, fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}

	rec, err := s.decode(id, data)
	if err != nil {
		s.logger.Warn("skipping corrupt task record",
			"task_id", id,
			"error", err)
		return nil, false, nil
	}
	return rec, true, nil
}

// List scans the key prefix and fetches values in batches.
func (s *RedisTaskStore) List(ctx context.Context) (map[string]*domain.TaskRecord, error) {
	out := make(map[string]*domain.TaskRecord)

	iter := s.client.Scan(ctx, 0, s.prefix+"*", scanBatchSize).Iterator()
	batch := make([]string, 0, scanBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatchSize {
			if err := s.fetchBatch(ctx, batch, out); err != nil {
				return nil, err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return nil, store.NewStoreError(backendName, "list", "", fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}
	if err := s.fetchBatch(ctx, batch, out); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *RedisTaskStore) fetchBatch(ctx context.Context, keys []string, out map[string]*domain.TaskRecord) error {
	if len(keys) == 0 {
		return nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return store.NewStoreError(backendName, "list", "", fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}

	for i, value := range values {
		id := strings.TrimPrefix(keys[i], s.prefix)
		raw, ok := value.(string)
		if !ok {
			// key expired or was deleted after the scan
			continue
		}

		rec, err := s.decode(id, []byte(raw))
		if err != nil {
			s.logger.Warn("skipping corrupt task record",
				"task_id", id,
				"error", err)
			continue
		}
		out[rec.ID] = rec
	}
	return nil
}

func (s *RedisTaskStore) decode(id string, data []byte) (*domain.TaskRecord, error) {
	rec, err := store.Decode(data)
	if err != nil {
		return nil, err
	}
	if rec.ID != id {
		return nil, fmt.Errorf("%w: key for %s holds task %s", store.ErrCorruptRecord, id, rec.ID)
	}
	return rec, nil
}
