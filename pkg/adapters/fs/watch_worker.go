package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/notekeep/pkg/core"
)

type watchWorker struct {
	*worker.BaseWorker
	repo      *Repository
	pattern   string
	events    chan core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc

	// closeOnExit hands ownership of events to the worker.
	closeOnExit bool

	knownMu sync.Mutex
	known   map[string]struct{}
}

func newWatchWorker(repo *Repository, pattern string, events chan core.Event) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("fs-watcher"),
		repo:       repo,
		pattern:    pattern,
		events:     events,
		known:      make(map[string]struct{}),
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(w.repo.Path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.repo.Path, err)
	}

	// Keys present now are modified, not created, when they next change.
	keys, err := w.repo.Keys(ctx, w.pattern)
	if err != nil {
		_ = watcher.Close()
		return err
	}
	for _, k := range keys {
		w.known[k] = struct{}{}
	}

	w.watcher = watcher
	w.debouncer = newDebouncer(w.repo.config.WatchDebounce)
	w.repo.setWatcherActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"pattern":           w.pattern,
		}
	})
}

// processFilesystemEvent filters an fsnotify event and schedules a
// debounced read of the key it touches.
func (w *watchWorker) processFilesystemEvent(ctx context.Context, event fsnotify.Event) bool {
	w.repo.config.Logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	if event.Op == fsnotify.Chmod {
		return false
	}
	key, ok := w.repo.keyOf(filepath.Base(event.Name))
	if !ok {
		return false
	}
	if match, _ := doublestar.Match(w.pattern, key); !match {
		return false
	}

	w.debouncer.add(key, func() { w.emit(ctx, key) })
	return true
}

// emit reads the settled value of key and sends the matching event.
func (w *watchWorker) emit(ctx context.Context, key string) {
	w.knownMu.Lock()
	e, ok := w.settle(key)
	w.knownMu.Unlock()
	if !ok {
		return
	}

	w.repo.recordEvent(e.Timestamp)
	w.sendEvent(ctx, e)
}

// settle must be called with knownMu held.
func (w *watchWorker) settle(key string) (core.Event, bool) {
	_, known := w.known[key]

	e := core.Event{Key: key, Timestamp: time.Now()}
	data, err := os.ReadFile(w.repo.filename(key))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if !known {
			return e, false
		}
		delete(w.known, key)
		e.Type = core.EventDelete
	case err != nil:
		w.repo.reportError(fmt.Errorf("failed to read changed key %q: %w", key, err))
		return e, false
	default:
		e.Type = core.EventModify
		if !known {
			e.Type = core.EventCreate
			w.known[key] = struct{}{}
		}
		e.Value = string(data)
	}
	return e, true
}

// sendEvent delivers e unless the worker is shutting down. A send on the
// closed channel is logged and dropped.
func (w *watchWorker) sendEvent(ctx context.Context, e core.Event) {
	defer func() {
		if recovered := recover(); recovered != nil {
			w.repo.config.Logger.Warn("dropped watch event", "key", e.Key, "type", e.Type, "error", fmt.Sprint(recovered))
			if w.repo.config.Logger.Enabled(ctx, slog.LevelDebug) {
				w.repo.config.Logger.Debug("dropped watch event stack", "stack", string(debug.Stack()))
			}
		}
	}()
	select {
	case w.events <- e:
	case <-ctx.Done():
	}
}

func (w *watchWorker) handleWatcherError(err error) {
	w.repo.reportError(fmt.Errorf("fsnotify: %w", err))
}

// run is the main loop of the worker.
func (w *watchWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if w.repo.config.Logger.Enabled(ctx, slog.LevelDebug) {
				w.repo.config.Logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.repo.config.Logger.Error("watcher panic", "error", err)
			}
		}
		if w.closeOnExit {
			close(w.events)
		}
	}()
	defer w.repo.setWatcherActive(false)
	defer w.watcher.Close()

	err = w.mainEventLoop(ctx)

	// In-flight callbacks may still send; wait for them before closing.
	if !w.debouncer.stopAndWait(5 * time.Second) {
		w.repo.config.Logger.Warn("watcher debouncer did not drain")
	}
	return err
}

func (w *watchWorker) mainEventLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.processFilesystemEvent(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.handleWatcherError(wErr)
		}
	}
}
