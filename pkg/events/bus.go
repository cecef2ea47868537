// Package events carries non-fatal failures from the persistence core to
// whoever renders them (banners, toasts, stderr).
package events

import (
	"log/slog"
	"sync"
	"time"
)

// ErrorEvent is a non-fatal, user-visible failure.
type ErrorEvent struct {
	Message   string    `json:"message"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"ts"`
}

// Handler receives published events.
type Handler func(ErrorEvent)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus fans error events out to every active subscriber.
//
// Events are delivered synchronously, in publish order, exactly once per
// subscriber. A handler may publish, subscribe or unsubscribe; events published
// from inside a handler are queued behind the one being delivered.
type Bus struct {
	mu       sync.Mutex
	subs     []subscription
	nextID   uint64
	queue    []ErrorEvent
	draining bool
	logger   *slog.Logger
	now      func() time.Time
}

// NewBus creates a bus. A nil logger disables logging.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{logger: logger, now: time.Now}
}

// Subscribe registers handler and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Len returns the number of active subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Emit stamps and publishes an event built from message and detail.
func (b *Bus) Emit(message, detail string) {
	b.Publish(ErrorEvent{Message: message, Detail: detail})
}

// Publish delivers ev to all subscribers. A zero Timestamp is filled in.
func (b *Bus) Publish(ev ErrorEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = b.now()
	}
	if b.logger != nil {
		b.logger.Warn(ev.Message, "detail", ev.Detail)
	}

	b.mu.Lock()
	b.queue = append(b.queue, ev)
	if b.draining {
		b.mu.Unlock()
		return
	}
	b.draining = true
	b.mu.Unlock()

	b.drain()
}

func (b *Bus) drain() {
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.draining = false
			b.mu.Unlock()
			return
		}
		ev := b.queue[0]
		b.queue = b.queue[1:]
		subs := make([]subscription, len(b.subs))
		copy(subs, b.subs)
		b.mu.Unlock()

		for _, s := range subs {
			if b.active(s.id) {
				b.deliver(s.handler, ev)
			}
		}
	}
}

func (b *Bus) active(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if s.id == id {
			return true
		}
	}
	return false
}

// deliver isolates the bus from a panicking handler.
func (b *Bus) deliver(h Handler, ev ErrorEvent) {
	defer func() {
		if r := recover(); r != nil && b.logger != nil {
			b.logger.Error("error handler panic", "panic", r)
		}
	}()
	h(ev)
}
