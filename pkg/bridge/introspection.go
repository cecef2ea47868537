package bridge

import "github.com/aretw0/introspection"

// BridgeState is the introspection snapshot of a Bridge.
type BridgeState struct {
	Key     string `json:"key"`
	Version int    `json:"version"`
	Notes   int    `json:"notes"`
	Pending bool   `json:"pending"`
	Booted  bool   `json:"booted"`
	Closed  bool   `json:"closed"`
	Stats   Stats  `json:"stats"`
}

var (
	_ introspection.Introspectable = (*Bridge)(nil)
	_ introspection.Component      = (*Bridge)(nil)
)

// State implements introspection.Introspectable.
func (b *Bridge) State() any {
	n := len(b.notes.State().Notes)
	pending := b.writer.Pending()

	b.mu.Lock()
	defer b.mu.Unlock()
	return BridgeState{
		Key:     b.key,
		Version: b.version,
		Notes:   n,
		Pending: pending,
		Booted:  b.booted,
		Closed:  b.closed,
		Stats:   b.stats,
	}
}

// ComponentType implements introspection.Component.
func (b *Bridge) ComponentType() string {
	return "bridge"
}
