package asr

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the segmentation policies available to the pipeline.
// Selection is explicit: a failing or unknown policy is never replaced by
// another one.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]Policy
	primary  string
}

// NewRegistry creates an empty policy registry.
func NewRegistry() *Registry {
	return &Registry{
		policies: make(map[string]Policy),
	}
}

// Register adds a policy under its own name. The first registered policy
// becomes the primary by default.
func (r *Registry) Register(p Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[p.Name()] = p
	if r.primary == "" {
		r.primary = p.Name()
	}
}

// SetPrimary selects the primary policy by name.
func (r *Registry) SetPrimary(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.policies[name]; !ok {
		return fmt.Errorf("asr: unknown policy %q", name)
	}
	r.primary = name
	return nil
}

// Get returns a policy by name, or false if not found.
func (r *Registry) Get(name string) (Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[name]
	return p, ok
}

// Primary returns the primary policy, or nil if none is registered.
func (r *Registry) Primary() Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.policies[r.primary]
}

// Names returns the registered policy names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
