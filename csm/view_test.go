package csm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btcrollup/csmnode/storage"
)

// TestStoreViewManifestCacheHit covers that a manifest written through
// PutL1Manifest is served from the in-memory cache without touching the
// database on the next lookup.
func TestStoreViewManifestCacheHit(t *testing.T) {
	db := storage.NewMemoryDatabase()
	view := NewStoreView(db)

	m := L1BlockManifest{Height: 42, BlockID: bid(9)}
	require.NoError(t, view.PutL1Manifest(m))

	kv := db.Family(storage.CFL1Manifest)
	require.NoError(t, kv.Delete(heightKey(42)))

	got, ok, err := view.L1ManifestAtHeight(42)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, m, got)
}

// TestStoreViewManifestMissFillsCache covers that a lookup missing the
// cache falls through to the database and populates the cache for the
// subsequent call.
func TestStoreViewManifestMissFillsCache(t *testing.T) {
	db := storage.NewMemoryDatabase()
	view := NewStoreView(db)

	kv := db.Family(storage.CFL1Manifest)
	want := bid(3)
	require.NoError(t, kv.Put(heightKey(7), want[:]))

	got, ok, err := view.L1ManifestAtHeight(7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(7), got.Height)
	require.Equal(t, [32]byte(want), got.BlockID)

	require.NoError(t, kv.Delete(heightKey(7)))

	cached, ok, err := view.L1ManifestAtHeight(7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, got, cached)
}

func TestStoreViewManifestMissingHeight(t *testing.T) {
	db := storage.NewMemoryDatabase()
	view := NewStoreView(db)

	_, ok, err := view.L1ManifestAtHeight(1000)
	require.NoError(t, err)
	require.False(t, ok)
}
