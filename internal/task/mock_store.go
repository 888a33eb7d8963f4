package task

import (
	"context"
	"sync"

	"github.com/phrazzld/chunkr/internal/domain"
	"github.com/phrazzld/chunkr/internal/store"
)

// MockTaskRecordStore implements store.TaskRecordStore for testing. The Fn
// fields default to an in-memory map and can be replaced per test.
type MockTaskRecordStore struct {
	mutex   sync.RWMutex
	records map[string]*domain.TaskRecord
	history map[string][]domain.TaskStatus

	SaveFn func(ctx context.Context, rec *domain.TaskRecord) error
	GetFn  func(ctx context.Context, id string) (*domain.TaskRecord, bool, error)
	ListFn func(ctx context.Context) (map[string]*domain.TaskRecord, error)
}

var _ store.TaskRecordStore = (*MockTaskRecordStore)(nil)

// NewMockTaskRecordStore creates a MockTaskRecordStore with working defaults.
func NewMockTaskRecordStore() *MockTaskRecordStore {
	s := &MockTaskRecordStore{
		records: make(map[string]*domain.TaskRecord),
		history: make(map[string][]domain.TaskStatus),
	}

	s.SaveFn = func(ctx context.Context, rec *domain.TaskRecord) error {
		s.mutex.Lock()
		defer s.mutex.Unlock()

		s.records[rec.ID] = rec.Clone()
		s.history[rec.ID] = append(s.history[rec.ID], rec.Status)
		return nil
	}

	s.GetFn = func(ctx context.Context, id string) (*domain.TaskRecord, bool, error) {
		s.mutex.RLock()
		defer s.mutex.RUnlock()

		rec, ok := s.records[id]
		if !ok {
			return nil, false, nil
		}
		return rec.Clone(), true, nil
	}

	s.ListFn = func(ctx context.Context) (map[string]*domain.TaskRecord, error) {
		s.mutex.RLock()
		defer s.mutex.RUnlock()

		out := make(map[string]*domain.TaskRecord, len(s.records))
		for id, rec := range s.records {
			out[id] = rec.Clone()
		}
		return out, nil
	}

	return s
}

// Save calls SaveFn.
func (s *MockTaskRecordStore) Save(ctx context.Context, rec *domain.TaskRecord) error {
	return s.SaveFn(ctx, rec)
}

// Get calls GetFn.
func (s *MockTaskRecordStore) Get(ctx context.Context, id string) (*domain.TaskRecord, bool, error) {
	return s.GetFn(ctx, id)
}

// List calls ListFn.
func (s *MockTaskRecordStore) List(ctx context.Context) (map[string]*domain.TaskRecord, error) {
	return s.ListFn(ctx)
}

// StatusHistory returns the statuses saved for id, oldest first. Only saves
// that reached the default SaveFn are recorded.
func (s *MockTaskRecordStore) StatusHistory(id string) []domain.TaskStatus {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return append([]domain.TaskStatus(nil), s.history[id]...)
}
