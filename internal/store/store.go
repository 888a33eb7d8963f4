package store

import (
	"context"

	"github.com/phrazzld/chunkr/internal/domain"
)

// TaskRecordStore persists task records keyed by their ID.
// Version: 1.0
//
// Every record returned by a store is an independent copy: mutating it never
// changes what the store holds.
type TaskRecordStore interface {
	// Save upserts the full record under its ID (last write wins). It returns
	// only after the write is durable per the backend's own model, and never
	// drops a write silently.
	Save(ctx context.Context, rec *domain.TaskRecord) error

	// Get returns the most recently saved record for id. The boolean is false
	// when no readable record exists; that is not an error.
	Get(ctx context.Context, id string) (*domain.TaskRecord, bool, error)

	// List returns a snapshot of all readable records keyed by ID, in no
	// particular order. Corrupt entries are skipped and logged.
	List(ctx context.Context) (map[string]*domain.TaskRecord, error)
}
