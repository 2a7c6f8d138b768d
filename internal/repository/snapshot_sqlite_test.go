package repository

import (
	"context"
	"path/filepath"
	"testing"

	"chronolookup-api/internal/cache"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLSnapshotRepository {
	t.Helper()
	repo, err := NewSQLiteSnapshotRepository(filepath.Join(t.TempDir(), "nested", "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteSnapshotRepository_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.LoadSnapshot(ctx, "itemSearchCache")
	assert.ErrorIs(t, err, cache.ErrSnapshotNotFound)

	require.NoError(t, repo.SaveSnapshot(ctx, "itemSearchCache", []byte(`{"v":1}`)))
	require.NoError(t, repo.SaveSnapshot(ctx, "itemSearchCache", []byte(`{"v":2}`)))
	require.NoError(t, repo.SaveSnapshot(ctx, "mobSearchCache", []byte(`{"v":3}`)))

	got, err := repo.LoadSnapshot(ctx, "itemSearchCache")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(got))

	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats["snapshots"])
	assert.Equal(t, "sqlite", stats["backend"])

	require.NoError(t, repo.DeleteSnapshot(ctx, "itemSearchCache"))
	_, err = repo.LoadSnapshot(ctx, "itemSearchCache")
	assert.ErrorIs(t, err, cache.ErrSnapshotNotFound)

	_, err = repo.LoadSnapshot(ctx, "mobSearchCache")
	assert.NoError(t, err)
}

func TestSQLiteSnapshotRepository_BacksPersister(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	src := cache.NewMemoryCache("items", cache.DefaultExpiry)
	require.NoError(t, src.Set(ctx, cache.NamespaceSearch, "power", []byte(`[{"id":"1302000","name":"Power Sword"}]`)))
	require.NoError(t, cache.NewPersister(src, repo, "itemSearchCache", zerolog.Nop()).Persist(ctx))

	dst := cache.NewMemoryCache("items", cache.DefaultExpiry)
	n, err := cache.NewPersister(dst, repo, "itemSearchCache", zerolog.Nop()).Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := dst.Get(ctx, cache.NamespaceSearch, "power")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1302000","name":"Power Sword"}]`, string(got))
}
