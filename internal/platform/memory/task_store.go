package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/phrazzld/chunkr/internal/domain"
	"github.com/phrazzld/chunkr/internal/store"
)

// MemoryTaskStore implements store.TaskRecordStore with a mutex-guarded map.
type MemoryTaskStore struct {
	mu      sync.RWMutex
	records map[string]*domain.TaskRecord
}

var _ store.TaskRecordStore = (*MemoryTaskStore)(nil)

// NewMemoryTaskStore creates an empty MemoryTaskStore.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		records: make(map[string]*domain.TaskRecord),
	}
}

// Save stores a copy of rec, replacing any previous value for its ID.
func (s *MemoryTaskStore) Save(ctx context.Context, rec *domain.TaskRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", store.ErrInvalidRecord)
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidRecord, err)
	}

	snapshot := rec.Clone()

	s.mu.Lock()
	s.records[rec.ID] = snapshot
	s.mu.Unlock()

	return nil
}

// Get returns a copy of the record stored under id.
func (s *MemoryTaskStore) Get(ctx context.Context, id string) (*domain.TaskRecord, bool, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	return rec.Clone(), true, nil
}

// List returns copies of every stored record.
func (s *MemoryTaskStore) List(ctx context.Context) (map[string]*domain.TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*domain.TaskRecord, len(s.records))
	for id, rec := range s.records {
		out[id] = rec.Clone()
	}
	return out, nil
}

// Len returns the number of stored records.
func (s *MemoryTaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
