package fs

import (
	"sync"
	"time"
)

// debouncer runs the last callback added for a key once the key has been
// quiet for delay.
type debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*debounced
	stopped bool
	wg      sync.WaitGroup
}

type debounced struct {
	timer *time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, pending: make(map[string]*debounced)}
}

func (d *debouncer) add(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if prev, ok := d.pending[key]; ok && prev.timer.Stop() {
		d.wg.Done()
	}

	entry := &debounced{}
	d.pending[key] = entry
	d.wg.Add(1)
	entry.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.mu.Lock()
		if d.pending[key] == entry {
			delete(d.pending, key)
		}
		d.mu.Unlock()
		fn()
	})
}

// stopAndWait drops queued callbacks and waits for running ones. It reports
// false on timeout.
func (d *debouncer) stopAndWait(timeout time.Duration) bool {
	d.mu.Lock()
	d.stopped = true
	for key, entry := range d.pending {
		if entry.timer.Stop() {
			d.wg.Done()
		}
		delete(d.pending, key)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
