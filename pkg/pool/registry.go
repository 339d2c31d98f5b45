package pool

import (
	"sort"
	"sync"

	"github.com/helixweb/helix/pkg/helixerrors"
)

// Registry maps kinds to their object factories. A Registry is built by
// the application during startup, passed to New, and owned by the caller;
// there is no process-global registry, so independent pools (per server,
// per tenant, per test) can coexist and be torn down deterministically.
type Registry struct {
	mu        sync.RWMutex
	factories map[Kind]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Kind]Factory)}
}

// Register associates a factory with a kind. Registering the same kind
// twice is a configuration error.
func (r *Registry) Register(kind Kind, factory Factory) error {
	if factory == nil {
		return helixerrors.New(helixerrors.ErrorTypeConfig, "nil factory").
			WithDetail("kind", string(kind))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return helixerrors.New(helixerrors.ErrorTypeConfig, "kind already registered").
			WithDetail("kind", string(kind))
	}
	r.factories[kind] = factory
	return nil
}

// Factory returns the factory for a kind, or false if none is registered.
func (r *Registry) Factory(kind Kind) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[kind]
	return f, ok
}

// Kinds returns all registered kinds in stable order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	kinds := make([]Kind, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	r.mu.RUnlock()

	sortKinds(kinds)
	return kinds
}

// sortKinds orders kinds lexicographically for stable iteration.
func sortKinds(kinds []Kind) {
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
}
