package memory

import "github.com/aretw0/introspection"

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Keys     int `json:"keys"`
	Watchers int `json:"watchers"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RepositoryState{Keys: len(r.data), Watchers: len(r.watchers)}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "memory"
}

var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)
