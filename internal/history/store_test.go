package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/pipekeep/internal/plugin"
	"github.com/mattjoyce/pipekeep/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	ref := plugin.Ref{Type: plugin.TypeExtractors, Name: "tap-github"}
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, Entry{Plugin: ref, Variant: "meltanolabs", Path: "/p/a", SHA256: "aa", LockedAt: base}))
	require.NoError(t, store.Record(ctx, Entry{Plugin: ref, Variant: "singer-io", Path: "/p/b", SHA256: "bb", LockedAt: base.Add(500 * time.Millisecond)}))
	require.NoError(t, store.Record(ctx, Entry{
		Plugin:   plugin.Ref{Type: plugin.TypeLoaders, Name: "target-jsonl"},
		Variant:  "andyh1203",
		Path:     "/p/c",
		SHA256:   "cc",
		LockedAt: base.Add(time.Hour),
	}))

	entries, err := store.List(ctx, ref)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "singer-io", entries[0].Variant)
	assert.Equal(t, base.Add(500*time.Millisecond), entries[0].LockedAt)
	assert.Equal(t, "meltanolabs", entries[1].Variant)
	assert.Equal(t, base, entries[1].LockedAt)
	assert.Equal(t, ref, entries[1].Plugin)
	assert.Equal(t, "aa", entries[1].SHA256)
	assert.NotEmpty(t, entries[0].ID)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestRecordFillsDefaults(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	fixed := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	ref := plugin.Ref{Type: plugin.TypeUtilities, Name: "dbt"}

	require.NoError(t, store.Record(ctx, Entry{Plugin: ref, Variant: "core", Path: "/p", SHA256: "x"}))

	entries, err := store.List(ctx, ref)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, fixed, entries[0].LockedAt)
	assert.Len(t, entries[0].ID, 36)
}

func TestRecordRejectsEmptyPlugin(t *testing.T) {
	store := openTestStore(t)
	assert.Error(t, store.Record(context.Background(), Entry{Variant: "x"}))
}

func TestListUnknownPlugin(t *testing.T) {
	entries, err := openTestStore(t).List(context.Background(), plugin.Ref{Type: plugin.TypeMappers, Name: "none"})
	require.NoError(t, err)
	assert.Empty(t, entries)
}
