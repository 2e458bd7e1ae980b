package stage

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kingrea/spanweave/internal/errs"
)

// Factory constructs a stage with the provided configuration.
type Factory func(Config) (Stage, error)

// Registry maintains known stage factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register installs a stage factory. Returns an error if the ID already exists.
func (r *Registry) Register(id string, factory Factory) error {
	if id == "" {
		return fmt.Errorf("stage: id is required")
	}
	if factory == nil {
		return fmt.Errorf("stage: factory is required for %s", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[id]; exists {
		return fmt.Errorf("stage: %s already registered", id)
	}
	r.factories[id] = factory
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(id string, factory Factory) {
	if err := r.Register(id, factory); err != nil {
		panic(err)
	}
}

// Resolve constructs a stage by ID. Every failure is a configuration error.
func (r *Registry) Resolve(id string, cfg Config) (Stage, error) {
	r.mu.RLock()
	factory, ok := r.factories[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.Configf(id, "", "unknown stage (registered: %v)", r.IDs())
	}
	st, err := factory(cfg.Clone())
	if err != nil {
		if errors.Is(err, errs.ErrConfiguration) {
			return nil, err
		}
		return nil, &errs.ConfigurationError{Stage: id, Err: err}
	}
	if st == nil {
		return nil, errs.Configf(id, "", "factory returned no stage")
	}
	if err := st.Info().Validate(); err != nil {
		return nil, &errs.ConfigurationError{Stage: id, Err: err}
	}
	return st, nil
}

// IDs returns a sorted list of registered stage identifiers.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
