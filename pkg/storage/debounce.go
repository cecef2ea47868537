package storage

import (
	"context"
	"sync"
	"time"
)

// DebouncedWriter coalesces rapid writes to one key into a single SetSafe
// issued after the delay has passed without another write (trailing edge).
// Only the last value of a burst is persisted.
type DebouncedWriter struct {
	a     *Adapter
	key   string
	delay time.Duration

	mu         sync.Mutex
	timer      Timer
	gen        uint64
	pending    any
	hasPending bool
}

// DebouncedWriter returns a writer for key with the given quiescence delay.
func (a *Adapter) DebouncedWriter(key string, delay time.Duration) *DebouncedWriter {
	return &DebouncedWriter{a: a, key: key, delay: delay}
}

// Key returns the key the writer persists to.
func (w *DebouncedWriter) Key() string {
	return w.key
}

// Write records value and (re)starts the quiescence timer.
func (w *DebouncedWriter) Write(value any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.gen++
	gen := w.gen
	w.pending = value
	w.hasPending = true
	w.timer = w.a.sched.AfterFunc(w.delay, func() { w.fire(gen) })
}

func (w *DebouncedWriter) fire(gen uint64) {
	w.mu.Lock()
	if gen != w.gen || !w.hasPending {
		w.mu.Unlock()
		return
	}
	value := w.pending
	w.pending = nil
	w.hasPending = false
	w.timer = nil
	w.mu.Unlock()

	w.a.SetSafe(context.Background(), w.key, value)
}

// Pending reports whether a write is waiting for its timer.
func (w *DebouncedWriter) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hasPending
}

// Flush writes the pending value now. It reports false only when a pending
// write failed.
func (w *DebouncedWriter) Flush(ctx context.Context) bool {
	w.mu.Lock()
	if !w.hasPending {
		w.mu.Unlock()
		return true
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.gen++
	value := w.pending
	w.pending = nil
	w.hasPending = false
	w.mu.Unlock()

	return w.a.SetSafe(ctx, w.key, value)
}

// Cancel drops the pending write, if any.
func (w *DebouncedWriter) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.gen++
	w.pending = nil
	w.hasPending = false
}
