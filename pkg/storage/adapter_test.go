package storage_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notekeep/pkg/adapters/memory"
	"github.com/aretw0/notekeep/pkg/events"
	"github.com/aretw0/notekeep/pkg/storage"
)

var errQuota = errors.New("quota exceeded")

func setup(t *testing.T, opts ...storage.Option) (*memory.Repository, *storage.Adapter, *[]events.ErrorEvent) {
	t.Helper()
	repo := memory.NewRepository()
	a := storage.New(repo, opts...)
	var got []events.ErrorEvent
	a.SubscribeToErrors(func(ev events.ErrorEvent) { got = append(got, ev) })
	return repo, a, &got
}

func TestIsAvailable(t *testing.T) {
	ctx := context.Background()

	t.Run("Healthy Backend", func(t *testing.T) {
		repo, a, got := setup(t)
		assert.True(t, a.IsAvailable(ctx))
		assert.Empty(t, *got)
		_, ok := repo.Raw(storage.SentinelKey)
		assert.False(t, ok, "sentinel must be removed")
	})

	t.Run("Quota Exceeded", func(t *testing.T) {
		repo, a, got := setup(t)
		repo.FailSet(func(string) error { return errQuota })
		assert.False(t, a.IsAvailable(ctx))
		require.Len(t, *got, 1)
		assert.Equal(t, storage.MsgUnavailable, (*got)[0].Message)
		assert.Contains(t, (*got)[0].Detail, "quota")
	})

	t.Run("Remove Fails", func(t *testing.T) {
		repo, a, got := setup(t)
		repo.FailDelete(func(string) error { return errQuota })
		assert.False(t, a.IsAvailable(ctx))
		assert.Len(t, *got, 1)
	})
}

func TestGetSafe(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing Key Returns Default Silently", func(t *testing.T) {
		_, a, got := setup(t)
		v := storage.GetSafe(ctx, a, "k", []string{"def"})
		assert.Equal(t, []string{"def"}, v)
		assert.Empty(t, *got)
	})

	t.Run("Decodes Stored JSON", func(t *testing.T) {
		repo, a, _ := setup(t)
		require.NoError(t, repo.Set(ctx, "k", `{"a":1}`))
		v := storage.GetSafe[map[string]int](ctx, a, "k", nil)
		assert.Equal(t, map[string]int{"a": 1}, v)
	})

	t.Run("Corrupted JSON Returns Default And Emits One Event", func(t *testing.T) {
		repo, a, got := setup(t)
		require.NoError(t, repo.Set(ctx, "k", "{invalid json"))

		v := storage.GetSafe(ctx, a, "k", []any{})

		assert.Equal(t, []any{}, v)
		require.Len(t, *got, 1)
		assert.Contains(t, strings.ToLower((*got)[0].Message), "corrupted")
		raw, ok := repo.Raw("k")
		assert.True(t, ok, "GetSafe must not reset the key")
		assert.Equal(t, "{invalid json", raw)
	})

	t.Run("Read Failure Returns Default", func(t *testing.T) {
		repo, a, got := setup(t)
		repo.FailGet(func(string) error { return errors.New("disabled") })
		v := storage.GetSafe(ctx, a, "k", 42)
		assert.Equal(t, 42, v)
		require.Len(t, *got, 1)
		assert.Equal(t, storage.MsgReadFailed, (*got)[0].Message)
	})
}

func TestGetOrRecover_BacksUpCorruptedValue(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 10, 19, 8, 30, 15, 123_000_000, time.UTC)
	repo, a, got := setup(t, storage.WithClock(func() time.Time { return at }))
	require.NoError(t, repo.Set(ctx, "notes.app.v1", "{broken"))

	v := storage.GetOrRecover[any](ctx, a, "notes.app.v1", nil)

	assert.Nil(t, v)
	_, ok := repo.Raw("notes.app.v1")
	assert.False(t, ok, "primary key must be removed")

	backup, ok := repo.Raw("notes.app.v1.__backup__2026-10-19T08-30-15-123Z")
	require.True(t, ok, "backup key must hold the raw text")
	assert.Equal(t, "{broken", backup)

	require.Len(t, *got, 2)
	assert.Equal(t, storage.MsgCorrupted, (*got)[0].Message)
	assert.Equal(t, storage.MsgResetPerformed, (*got)[1].Message)
}

func TestSetSafe(t *testing.T) {
	ctx := context.Background()

	t.Run("Writes JSON", func(t *testing.T) {
		repo, a, got := setup(t)
		assert.True(t, a.SetSafe(ctx, "k", map[string]int{"x": 1}))
		raw, _ := repo.Raw("k")
		assert.JSONEq(t, `{"x":1}`, raw)
		assert.Empty(t, *got)
		assert.Equal(t, 1, a.Stats().Writes)
	})

	t.Run("Backend Failure", func(t *testing.T) {
		repo, a, got := setup(t)
		repo.FailSet(func(string) error { return errQuota })
		assert.False(t, a.SetSafe(ctx, "k", 1))
		require.Len(t, *got, 1)
		assert.Contains(t, strings.ToLower((*got)[0].Message), "write failed")
	})

	t.Run("Unencodable Value", func(t *testing.T) {
		_, a, got := setup(t)
		assert.False(t, a.SetSafe(ctx, "k", make(chan int)))
		assert.Len(t, *got, 1)
	})
}

func TestBackupAndReset(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC)

	t.Run("Non String Values Are JSON Encoded", func(t *testing.T) {
		repo, a, _ := setup(t, storage.WithClock(func() time.Time { return at }))
		require.NoError(t, repo.Set(ctx, "k", "x"))

		assert.True(t, a.BackupAndReset(ctx, "k", map[string]int{"v": 2}))

		raw, ok := repo.Raw(storage.BackupKey("k", at))
		require.True(t, ok)
		assert.JSONEq(t, `{"v":2}`, raw)
	})

	t.Run("Backup Failure Is Not Fatal", func(t *testing.T) {
		repo, a, got := setup(t, storage.WithClock(func() time.Time { return at }))
		require.NoError(t, repo.Set(ctx, "k", "x"))
		repo.FailSet(func(string) error { return errQuota })

		assert.True(t, a.BackupAndReset(ctx, "k", "x"))

		_, ok := repo.Raw("k")
		assert.False(t, ok)
		require.Len(t, *got, 2)
		assert.Equal(t, storage.MsgBackupFailed, (*got)[0].Message)
		assert.Equal(t, storage.MsgResetPerformed, (*got)[1].Message)
	})

	t.Run("Remove Failure", func(t *testing.T) {
		repo, a, got := setup(t)
		repo.FailDelete(func(string) error { return errQuota })
		assert.False(t, a.BackupAndReset(ctx, "k", "x"))
		assert.Equal(t, storage.MsgResetFailed, (*got)[len(*got)-1].Message)
	})
}

func TestBackupKey(t *testing.T) {
	at := time.Date(2026, 10, 19, 23, 59, 58, 7_000_000, time.FixedZone("X", 3600))
	assert.Equal(t, "k.__backup__2026-10-19T22-59-58-007Z", storage.BackupKey("k", at))
}

func TestBackups(t *testing.T) {
	ctx := context.Background()
	repo, a, _ := setup(t)
	require.NoError(t, repo.Set(ctx, "notes.app.v1", "{}"))
	require.NoError(t, repo.Set(ctx, "notes.app.v1.__backup__2026-01-02T00-00-00-000Z", "a"))
	require.NoError(t, repo.Set(ctx, "notes.app.v1.__backup__2026-01-01T00-00-00-000Z", "b"))
	require.NoError(t, repo.Set(ctx, "other.__backup__2026-01-01T00-00-00-000Z", "c"))

	assert.Equal(t, []string{
		"notes.app.v1.__backup__2026-01-01T00-00-00-000Z",
		"notes.app.v1.__backup__2026-01-02T00-00-00-000Z",
	}, a.Backups(ctx, "notes.app.v1"))
}

func TestBackups_KeyWithPatternCharacters(t *testing.T) {
	ctx := context.Background()
	repo, a, _ := setup(t)
	require.NoError(t, repo.Set(ctx, "notes[v1].__backup__2026-01-01T00-00-00-000Z", "a"))
	require.NoError(t, repo.Set(ctx, "notesv.__backup__2026-01-01T00-00-00-000Z", "b"))

	assert.Equal(t, []string{"notes[v1].__backup__2026-01-01T00-00-00-000Z"}, a.Backups(ctx, "notes[v1]"))
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `notes.app.v1`, storage.EscapeGlob("notes.app.v1"))
	assert.Equal(t, `a\*b\?\[c\]\{d\}\\`, storage.EscapeGlob(`a*b?[c]{d}\`))
}

func TestBackup(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("Keeps Primary Key", func(t *testing.T) {
		repo, a, got := setup(t, storage.WithClock(func() time.Time { return at }))
		require.NoError(t, repo.Set(ctx, "k", `{"v":1}`))

		backupKey, ok := a.Backup(ctx, "k", `{"v":1}`)

		require.True(t, ok)
		assert.Equal(t, storage.BackupKey("k", at), backupKey)
		raw, _ := repo.Raw(backupKey)
		assert.Equal(t, `{"v":1}`, raw)
		_, ok = repo.Raw("k")
		assert.True(t, ok)
		assert.Empty(t, *got)
	})

	t.Run("Failure Is Reported", func(t *testing.T) {
		repo, a, got := setup(t)
		repo.FailSet(func(string) error { return errQuota })

		_, ok := a.Backup(ctx, "k", "x")

		assert.False(t, ok)
		require.Len(t, *got, 1)
		assert.Equal(t, storage.MsgBackupFailed, (*got)[0].Message)
	})
}

func TestGetOrRecoverRaw(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns Stored Text", func(t *testing.T) {
		repo, a, _ := setup(t)
		require.NoError(t, repo.Set(ctx, "k", `{"v": 1}`))

		v, raw := storage.GetOrRecoverRaw[map[string]int](ctx, a, "k", nil)

		assert.Equal(t, map[string]int{"v": 1}, v)
		assert.Equal(t, `{"v": 1}`, raw)
	})

	t.Run("Corrupted Text Is Not Returned", func(t *testing.T) {
		repo, a, _ := setup(t)
		require.NoError(t, repo.Set(ctx, "k", `{broken`))

		v, raw := storage.GetOrRecoverRaw[map[string]int](ctx, a, "k", nil)

		assert.Nil(t, v)
		assert.Empty(t, raw)
		assert.Len(t, a.Backups(ctx, "k"), 1)
	})
}

func TestState(t *testing.T) {
	_, a, _ := setup(t)
	a.SetSafe(context.Background(), "k", 1)

	st, ok := a.State().(storage.AdapterState)
	require.True(t, ok)
	assert.Equal(t, "memory", st.RepositoryType)
	assert.Equal(t, 1, st.Subscribers)
	assert.Equal(t, 1, st.Stats.Writes)
}
