package fs

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"

	"github.com/aretw0/notekeep/pkg/core"
)

func TestWatcherSupervisorRestarts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := NewRepository(Config{Path: t.TempDir()})
	if err := repo.Initialize(ctx); err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}

	events := make(chan core.Event)
	created := make(chan *watchWorker, 2)

	spec := supervisor.Spec{
		Name: "fs-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			w := newWatchWorker(repo, "*", events)
			created <- w
			return w, nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      1,
			ResetDuration:   50 * time.Millisecond,
			MaxRestarts:     2,
			MaxDuration:     200 * time.Millisecond,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	}

	sup := supervisor.New("test-watcher", supervisor.StrategyOneForOne, spec)
	if err := sup.Start(ctx); err != nil {
		t.Fatalf("failed to start supervisor: %v", err)
	}

	first := waitForWorker(t, created, "first")
	waitForWatcher(t, repo, true)

	waitForWatcherInit(t, first)
	_ = first.watcher.Close()

	second := waitForWorker(t, created, "second")
	if first == second {
		t.Fatalf("expected supervisor to restart watcher with a new instance")
	}
	waitForWatcher(t, repo, true)
	waitForWatcherInit(t, second)

	// The restarted worker still reports writes made outside this repository.
	if err := os.WriteFile(filepath.Join(repo.Path, "external.json"), []byte(`{"version":1}`), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	select {
	case ev := <-events:
		if ev.Key != "external" || ev.Value != `{"version":1}` {
			t.Fatalf("unexpected event after restart: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("restarted watcher reported nothing")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	if err := sup.Stop(stopCtx); err != nil {
		t.Fatalf("failed to stop supervisor: %v", err)
	}
}

func TestDebouncerCoalescesPerKey(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	calls := make(chan string, 10)

	for i := 0; i < 5; i++ {
		d.add("a", func() { calls <- "a" })
	}
	d.add("b", func() { calls <- "b" })

	time.Sleep(100 * time.Millisecond)
	if !d.stopAndWait(time.Second) {
		t.Fatal("debouncer did not drain")
	}
	close(calls)

	got := map[string]int{}
	for c := range calls {
		got[c]++
	}
	if got["a"] != 1 || got["b"] != 1 {
		t.Fatalf("expected one call per key, got %v", got)
	}

	d.add("a", func() { t.Error("callback after stop") })
	time.Sleep(50 * time.Millisecond)
}

func waitForWorker(t *testing.T, ch <-chan *watchWorker, label string) *watchWorker {
	t.Helper()

	select {
	case w := <-ch:
		return w
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %s worker", label)
		return nil
	}
}

func waitForWatcherInit(t *testing.T, w *watchWorker) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		if w.watcher != nil {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for watcher initialization")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func waitForWatcher(t *testing.T, repo *Repository, expected bool) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		state, ok := repo.State().(RepositoryState)
		if ok && state.WatcherActive == expected {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for watcher state = %v", expected)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSendEventOnClosedChannelIsLogged(t *testing.T) {
	var buf bytes.Buffer
	repo := NewRepository(Config{Path: t.TempDir(), Logger: slog.New(slog.NewTextHandler(&buf, nil))})

	events := make(chan core.Event)
	close(events)
	w := newWatchWorker(repo, "*", events)

	w.sendEvent(context.Background(), core.Event{Type: core.EventModify, Key: "late"})

	if !strings.Contains(buf.String(), "dropped watch event") || !strings.Contains(buf.String(), "key=late") {
		t.Fatalf("expected the dropped event to be logged, got %q", buf.String())
	}
}
