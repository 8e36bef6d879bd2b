// Package registry is a minimal dependency lookup used by the
// composition root. Factories are registered under logical names with a
// lifetime and resolved by name later; nothing depends on how instances
// are built, only on the lookup contract.
package registry

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotRegistered is returned by Resolve for unknown names.
var ErrNotRegistered = errors.New("service not registered")

// Factory builds a service instance.
type Factory func() any

type lifetime int

const (
	lifetimeSingleton lifetime = iota
	lifetimeTransient
	lifetimeInstance
)

type entry struct {
	life     lifetime
	factory  Factory
	instance any
	built    bool
}

// Registry maps logical names to service factories.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// RegisterSingleton registers a factory invoked at most once; the
// result is cached until the registry is cleared.
func (r *Registry) RegisterSingleton(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = &entry{life: lifetimeSingleton, factory: factory}
}

// RegisterTransient registers a factory invoked on every resolution.
func (r *Registry) RegisterTransient(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = &entry{life: lifetimeTransient, factory: factory}
}

// RegisterInstance registers a pre-built value, always returned unchanged.
func (r *Registry) RegisterInstance(name string, instance any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = &entry{life: lifetimeInstance, instance: instance, built: true}
}

// Resolve returns the instance registered under name.
// An unknown name is a wiring bug, not a runtime condition, so the
// error should not be swallowed.
func (r *Registry) Resolve(name string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}

	switch e.life {
	case lifetimeTransient:
		return e.factory(), nil
	default:
		if !e.built {
			e.instance = e.factory()
			e.built = true
		}
		return e.instance, nil
	}
}

// MustResolve resolves name or panics. Intended for startup wiring
// where a missing registration must fail loudly.
func (r *Registry) MustResolve(name string) any {
	v, err := r.Resolve(name)
	if err != nil {
		panic(err)
	}
	return v
}

// TryResolve resolves name, reporting ok=false instead of an error
// when it is not registered.
func (r *Registry) TryResolve(name string) (any, bool) {
	v, err := r.Resolve(name)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Clear drops every registration, including cached singletons.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*entry)
}
