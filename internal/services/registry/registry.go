// Package registry holds a named collection of strategies for lookup and
// enumeration by the simulation engine.
package registry

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/backtester/internal/services/strategy"
)

// Registry maps strategy identifiers to implementations. Safe for
// concurrent use, comparison runs resolve strategies from goroutines.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]strategy.Strategy
}

// New creates an empty strategy registry.
func New() *Registry {
	return &Registry{
		strategies: make(map[string]strategy.Strategy),
	}
}

// Register adds a strategy keyed by its ID. Empty and duplicate identifiers
// are rejected.
func (r *Registry) Register(s strategy.Strategy) error {
	if s == nil {
		return errors.New("strategy is nil")
	}
	id := s.ID()
	if id == "" {
		return errors.New("strategy ID is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[id]; exists {
		return errors.Errorf("strategy %q already registered", id)
	}
	r.strategies[id] = s

	return nil
}

// Get retrieves a strategy by ID, nil when absent.
func (r *Registry) Get(id string) strategy.Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.strategies[id]
}

// List returns a sorted slice of all registered strategy identifiers.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.strategies))
	for id := range r.strategies {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

// Clear removes every registered strategy.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.strategies = make(map[string]strategy.Strategy)
}
