package csm

import (
	"testing"
	"time"

	"github.com/JekaMas/workerpool"
	"github.com/stretchr/testify/require"

	"github.com/btcrollup/csmnode/engine"
	"github.com/btcrollup/csmnode/storage"
)

func newTestShim(t *testing.T) (*SubmitShim, *Journal, *StateStore) {
	t.Helper()
	db := storage.NewMemoryDatabase()
	journal := NewJournal(db)
	store := NewStateStore(db)
	view := NewStoreView(db)
	require.NoError(t, view.PutL1Manifest(L1BlockManifest{Height: 100}))
	tree := NewTree(BlockID{})
	w := NewWorker(journal, store, tree, view, engine.NopEngine{}, Params{L1FollowDistance: 2})
	require.NoError(t, w.InitClientState(100, 105))
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)

	pool := workerpool.New(2)
	t.Cleanup(pool.Stop)
	shim := NewSubmitShim(journal, w, pool)
	return shim, journal, store
}

// TestSubmitDurableBeforeReturn covers that Submit does not return until
// the event is durably journaled, mirroring the original's submit_event
// contract.
func TestSubmitDurableBeforeReturn(t *testing.T) {
	shim, journal, _ := newTestShim(t)

	idx, err := shim.Submit(L1BlockSeen{Height: 100, BlockID: bid(1)})
	require.NoError(t, err)
	require.Equal(t, uint64(1), idx)

	ev, err := journal.Get(idx)
	require.NoError(t, err)
	require.Equal(t, L1BlockSeen{Height: 100, BlockID: bid(1)}, ev)
}

// TestSubmitAsyncDeliversResult covers the offloaded path: the event is
// durable and the worker notified by the time the returned channel fires.
func TestSubmitAsyncDeliversResult(t *testing.T) {
	shim, journal, store := newTestShim(t)

	ch := shim.SubmitAsync(L1BlockSeen{Height: 100, BlockID: bid(2)})

	select {
	case res := <-ch:
		require.NoError(t, res.Err)
		require.Equal(t, uint64(1), res.Value.(uint64))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for async submit result")
	}

	ev, err := journal.Get(1)
	require.NoError(t, err)
	require.Equal(t, L1BlockSeen{Height: 100, BlockID: bid(2)}, ev)

	require.Eventually(t, func() bool {
		last, err := store.LastIndex()
		return err == nil && last == 1
	}, time.Second, 5*time.Millisecond)
}
