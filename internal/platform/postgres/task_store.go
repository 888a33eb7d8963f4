package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/chunkr/internal/domain"
	"github.com/phrazzld/chunkr/internal/platform/logger"
	"github.com/phrazzld/chunkr/internal/store"
)

const backendName = "postgres"

// PostgresTaskStore implements store.TaskRecordStore using PostgreSQL
type PostgresTaskStore struct {
	db DBTX
}

var _ store.TaskRecordStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a new PostgresTaskStore
func NewPostgresTaskStore(db DBTX) *PostgresTaskStore {
	return &PostgresTaskStore{
		db: db,
	}
}

// Save upserts the record row.
func (s *PostgresTaskStore) Save(ctx context.Context, rec *domain.TaskRecord) error {
	log := logger.FromContext(ctx)

	if rec == nil {
		return fmt.Errorf("%w: nil record", store.ErrInvalidRecord)
	}

	data, err := store.Encode(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO task_records (id, task_type, status, record, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
			record = EXCLUDED.record,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.TaskType,
		string(rec.Status),
		string(data),
		rec.CreatedAt,
		time.Now().UTC(),
	)
	if err != nil {
		log.Error("failed to save task record",
			"task_id", rec.ID,
			"status", rec.Status,
			"error", err)
		return store.NewStoreError(backendName, "save", rec.ID, MapError(err))
	}

	return nil
}

// Get loads the record row for id.
func (s *PostgresTaskStore) Get(ctx context.Context, id string) (*domain.TaskRecord, bool, error) {
	log := logger.FromContext(ctx)

	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT record FROM task_records WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, store.NewStoreError(backendName, "get", id, MapError(err))
	}

	rec, err := decodeRow(id, raw)
	if err != nil {
		log.Warn("skipping corrupt task record",
			"task_id", id,
			"error", err)
		return nil, false, nil
	}
	return rec, true, nil
}

// List loads every record row.
func (s *PostgresTaskStore) List(ctx context.Context) (map[string]*domain.TaskRecord, error) {
	log := logger.FromContext(ctx)

	rows, err := s.db.QueryContext(ctx, `SELECT id, record FROM task_records`)
	if err != nil {
		log.Error("failed to query task records", "error", err)
		return nil, store.NewStoreError(backendName, "list", "", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]*domain.TaskRecord)
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, store.NewStoreError(backendName, "list", "", MapError(err))
		}

		rec, err := decodeRow(id, raw)
		if err != nil {
			log.Warn("skipping corrupt task record",
				"task_id", id,
				"error", err)
			continue
		}
		out[rec.ID] = rec
	}

	if err := rows.Err(); err != nil {
		log.Error("error iterating task record rows", "error", err)
		return nil, store.NewStoreError(backendName, "list", "", MapError(err))
	}

	return out, nil
}

func decodeRow(id string, raw []byte) (*domain.TaskRecord, error) {
	rec, err := store.Decode(raw)
	if err != nil {
		return nil, err
	}
	if rec.ID != id {
		return nil, fmt.Errorf("%w: row %s holds task %s", store.ErrCorruptRecord, id, rec.ID)
	}
	return rec, nil
}
