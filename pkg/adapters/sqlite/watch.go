package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"

	"github.com/aretw0/notekeep/pkg/core"
)

// entry is a snapshotted row. Rows are compared by sum.
type entry struct {
	value string
	sum   uint64
}

// Watch reports changes to keys matching pattern until ctx is done, then
// closes the channel. Every commit is seen, including this process's own.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}

	// data_version only moves for commits made by other connections, so
	// the poller holds one of its own.
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("watch: acquire connection: %w", err)
	}
	version, err := dataVersion(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	snapshot, err := r.snapshot(ctx, conn, pattern)
	if err != nil {
		conn.Close()
		return nil, err
	}

	events := make(chan core.Event, 16)
	r.trackWatcher(1)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(events)
		defer r.trackWatcher(-1)
		defer conn.Close()

		ticker := time.NewTicker(r.config.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}

			v, err := dataVersion(ctx, conn)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.config.Logger.Error("poll data_version failed", "error", err)
				continue
			}
			r.countPoll()
			if v == version {
				continue
			}
			version = v

			next, err := r.snapshot(ctx, conn, pattern)
			if err != nil {
				r.config.Logger.Error("snapshot failed", "error", err)
				continue
			}
			for _, e := range diff(snapshot, next) {
				select {
				case events <- e:
				case <-ctx.Done():
					return nil
				}
			}
			snapshot = next
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		r.config.Logger.Error("sqlite watch panic", "error", err)
	}))
	return events, nil
}

func dataVersion(ctx context.Context, conn *sql.Conn) (int64, error) {
	var v int64
	if err := conn.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read data_version: %w", err)
	}
	return v, nil
}

func (r *Repository) snapshot(ctx context.Context, conn *sql.Conn, pattern string) (map[string]entry, error) {
	rows, err := conn.QueryContext(ctx, `SELECT key, value FROM kv`)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	defer rows.Close()

	out := make(map[string]entry)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("snapshot scan: %w", err)
		}
		if match, _ := doublestar.Match(pattern, key); match {
			out[key] = entry{value: value, sum: xxhash.Sum64String(value)}
		}
	}
	return out, rows.Err()
}

// diff returns the events that turn prev into next.
func diff(prev, next map[string]entry) []core.Event {
	now := time.Now()
	var out []core.Event
	for key, n := range next {
		p, ok := prev[key]
		switch {
		case !ok:
			out = append(out, core.Event{Type: core.EventCreate, Key: key, Value: n.value, Timestamp: now})
		case p.sum != n.sum:
			out = append(out, core.Event{Type: core.EventModify, Key: key, Value: n.value, Timestamp: now})
		}
	}
	for key := range prev {
		if _, ok := next[key]; !ok {
			out = append(out, core.Event{Type: core.EventDelete, Key: key, Timestamp: now})
		}
	}
	return out
}

func (r *Repository) trackWatcher(delta int) {
	r.mu.Lock()
	r.watchers += delta
	r.mu.Unlock()
}

func (r *Repository) countPoll() {
	r.mu.Lock()
	r.polls++
	r.mu.Unlock()
}
