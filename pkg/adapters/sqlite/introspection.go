package sqlite

import (
	"context"

	"github.com/aretw0/introspection"
)

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Path     string `json:"path"`
	Keys     int    `json:"keys"`
	Watchers int    `json:"watchers"`
	Polls    int    `json:"polls"`
	OpenConn int    `json:"open_connections"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	keys, _ := r.Keys(context.Background(), "*")
	stats := r.db.Stats()

	r.mu.Lock()
	defer r.mu.Unlock()
	return RepositoryState{
		Path:     r.Path,
		Keys:     len(keys),
		Watchers: r.watchers,
		Polls:    r.polls,
		OpenConn: stats.OpenConnections,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "sqlite"
}

var (
	_ introspection.Introspectable = (*Repository)(nil)
	_ introspection.Component      = (*Repository)(nil)
)
