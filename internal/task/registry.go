package task

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry maps task-type names to the runner responsible for them. It is
// filled at startup and read concurrently afterwards.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]TaskRunner
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{runners: make(map[string]TaskRunner)}
}

// Register binds taskType to runner. Registering a type twice is an error.
func (r *Registry) Register(taskType string, runner TaskRunner) error {
	if taskType == "" {
		return errors.New("task type cannot be empty")
	}
	if runner == nil {
		return fmt.Errorf("runner for task type %q cannot be nil", taskType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runners[taskType]; exists {
		return fmt.Errorf("task type %q is already registered", taskType)
	}
	r.runners[taskType] = runner
	return nil
}

// Resolve returns the runner registered for taskType.
func (r *Registry) Resolve(taskType string) (TaskRunner, error) {
	r.mu.RLock()
	runner, ok := r.runners[taskType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, taskType)
	}
	return runner, nil
}

// Types returns the registered task types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.runners))
	for t := range r.runners {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
