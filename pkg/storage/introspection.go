package storage

import (
	"github.com/aretw0/introspection"
)

// AdapterState exposes internal state for observability.
type AdapterState struct {
	RepositoryType string `json:"repository_type"`
	Subscribers    int    `json:"error_subscribers"`
	Stats          Stats  `json:"stats"`
}

// State implements introspection.Introspectable.
func (a *Adapter) State() any {
	repoType := "unknown"
	if comp, ok := a.repo.(introspection.Component); ok {
		repoType = comp.ComponentType()
	}
	return AdapterState{
		RepositoryType: repoType,
		Subscribers:    a.bus.Len(),
		Stats:          a.Stats(),
	}
}

// ComponentType implements introspection.Component.
func (a *Adapter) ComponentType() string {
	return "storage"
}

var _ introspection.Introspectable = (*Adapter)(nil)
var _ introspection.Component = (*Adapter)(nil)
