package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notekeep/pkg/adapters/memory"
	"github.com/aretw0/notekeep/pkg/storage"
)

func TestDebouncedWriter_CoalescesBurst(t *testing.T) {
	sched := storage.NewManualScheduler()
	repo := memory.NewRepository()
	a := storage.New(repo, storage.WithScheduler(sched))
	w := a.DebouncedWriter("k", 250*time.Millisecond)

	for i := 1; i <= 10; i++ {
		w.Write(i)
		sched.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, 0, a.Stats().Writes, "no write while calls keep arriving inside the window")
	assert.True(t, w.Pending())

	sched.Advance(150 * time.Millisecond)

	assert.Equal(t, 1, a.Stats().Writes)
	raw, ok := repo.Raw("k")
	require.True(t, ok)
	assert.Equal(t, "10", raw)
	assert.False(t, w.Pending())
	assert.Equal(t, 0, sched.Pending())
}

func TestDebouncedWriter_SeparateWindows(t *testing.T) {
	sched := storage.NewManualScheduler()
	repo := memory.NewRepository()
	a := storage.New(repo, storage.WithScheduler(sched))
	w := a.DebouncedWriter("k", 50*time.Millisecond)

	w.Write("a")
	sched.Advance(50 * time.Millisecond)
	w.Write("b")
	sched.Advance(50 * time.Millisecond)

	assert.Equal(t, 2, a.Stats().Writes)
	raw, _ := repo.Raw("k")
	assert.Equal(t, `"b"`, raw)
}

func TestDebouncedWriter_FlushAndCancel(t *testing.T) {
	ctx := context.Background()
	sched := storage.NewManualScheduler()
	repo := memory.NewRepository()
	a := storage.New(repo, storage.WithScheduler(sched))
	w := a.DebouncedWriter("k", time.Second)

	assert.True(t, w.Flush(ctx), "flush with nothing pending is a no-op")

	w.Write("now")
	assert.True(t, w.Flush(ctx))
	raw, _ := repo.Raw("k")
	assert.Equal(t, `"now"`, raw)

	sched.Advance(time.Second)
	assert.Equal(t, 1, a.Stats().Writes, "the flushed write must not be repeated by the timer")

	w.Write("dropped")
	w.Cancel()
	sched.Advance(time.Second)
	raw, _ = repo.Raw("k")
	assert.Equal(t, `"now"`, raw)
}

func TestDebouncedWriter_RealScheduler(t *testing.T) {
	repo := memory.NewRepository()
	a := storage.New(repo)
	w := a.DebouncedWriter("k", 20*time.Millisecond)

	for i := 0; i < 5; i++ {
		w.Write(i)
	}

	require.Eventually(t, func() bool {
		return a.Stats().Writes == 1
	}, time.Second, 5*time.Millisecond)
	raw, _ := repo.Raw("k")
	assert.Equal(t, "4", raw)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, a.Stats().Writes)
}
