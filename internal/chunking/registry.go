package chunking

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Strategy names accepted by Registry.Resolve.
const (
	StrategyDefault         = "default"
	StrategyAutoAI          = "auto_ai"
	StrategySectionSemantic = "section_semantic"
	StrategySemantic        = "semantic"
	StrategyRecursiveText   = "recursive_text"
)

// ErrUnknownStrategy is returned by Resolve for names with no chunker.
var ErrUnknownStrategy = errors.New("unknown chunking strategy")

// Registry maps strategy names to chunkers.
type Registry struct {
	mu       sync.RWMutex
	chunkers map[string]Chunker
}

// NewRegistry returns a Registry holding the built-in strategies.
func NewRegistry() *Registry {
	r := &Registry{chunkers: make(map[string]Chunker)}
	r.Register(StrategyRecursiveText, NewRecursiveTextChunker(defaultChunkSize, defaultChunkOverlap))
	r.Register(StrategySectionSemantic, NewSectionChunker(defaultChunkSize, defaultChunkOverlap))
	r.Register(StrategySemantic, NewSemanticChunker(defaultChunkSize, DefaultCohesionThreshold))
	r.Register(StrategyAutoAI, NewAutoChunker(defaultChunkSize, defaultChunkOverlap))
	return r
}

// Register binds name to c, replacing any earlier binding.
func (r *Registry) Register(name string, c Chunker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunkers[name] = c
}

// CanonicalName maps the "default" alias and the empty string to auto_ai.
func CanonicalName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == StrategyDefault {
		return StrategyAutoAI
	}
	return name
}

// Resolve returns the chunker for name.
func (r *Registry) Resolve(name string) (Chunker, error) {
	r.mu.RLock()
	c, ok := r.chunkers[CanonicalName(name)]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
	return c, nil
}

// Names lists the registered strategies in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.chunkers))
	for name := range r.chunkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
