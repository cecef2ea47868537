package fs

import (
	"context"
	"time"

	"github.com/aretw0/introspection"
)

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Path          string     `json:"path"`
	Ext           string     `json:"ext"`
	ReadOnly      bool       `json:"read_only"`
	Keys          int        `json:"keys"`
	WatcherActive bool       `json:"watcher_active"`
	LastEvent     *time.Time `json:"last_event,omitempty"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	keys, _ := r.Keys(context.Background(), "*")

	r.mu.RLock()
	defer r.mu.RUnlock()
	return RepositoryState{
		Path:          r.Path,
		Ext:           r.config.Ext,
		ReadOnly:      r.config.ReadOnly,
		Keys:          len(keys),
		WatcherActive: r.watcherActive,
		LastEvent:     r.lastEvent,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "fs"
}

var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)

func (r *Repository) setWatcherActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watcherActive = active
}

func (r *Repository) recordEvent(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastEvent = &at
}
