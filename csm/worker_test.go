package csm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/btcrollup/csmnode/engine"
	"github.com/btcrollup/csmnode/storage"
)

func newTestWorker(t *testing.T) (*Worker, *Journal, *StateStore, *StoreView) {
	t.Helper()
	db := storage.NewMemoryDatabase()
	journal := NewJournal(db)
	store := NewStateStore(db)
	view := NewStoreView(db)
	tree := NewTree(BlockID{})
	w := NewWorker(journal, store, tree, view, engine.NopEngine{}, Params{L1FollowDistance: 2})
	return w, journal, store, view
}

// TestStartupEmptyDBNeedsInit covers S1 from the spec.
func TestStartupEmptyDBNeedsInit(t *testing.T) {
	w, _, _, _ := newTestWorker(t)

	needsInit, err := w.CheckNeedsClientInit()
	require.NoError(t, err)
	require.True(t, needsInit)

	require.NoError(t, w.InitClientState(100, 105))

	out, ok, err := w.store.GetOutput(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []ConsensusWrite{InitGenesis{HorizonL1Height: 100, GenesisL1Height: 105}}, out.Writes)

	needsInit, err = w.CheckNeedsClientInit()
	require.NoError(t, err)
	require.False(t, needsInit)
}

// TestTwoEventsInOrder covers S2 from the spec: L1BlockSeen then
// L2BlockReceived, applied in order, with UpdateTip in the second output.
func TestTwoEventsInOrder(t *testing.T) {
	w, journal, store, view := newTestWorker(t)
	require.NoError(t, w.InitClientState(100, 105))

	require.NoError(t, view.PutL1Manifest(L1BlockManifest{Height: 100, BlockID: [32]byte{1}}))

	y := bid(7)
	require.NoError(t, view.PutL2Block(&L2Block{Header: L2BlockHeader{Height: 1}}, y))

	idx1, err := journal.Append(L1BlockSeen{Height: 100, BlockID: [32]byte{1}})
	require.NoError(t, err)
	require.Equal(t, uint64(1), idx1)

	idx2, err := journal.Append(L2BlockReceived{BlockID: y})
	require.NoError(t, err)
	require.Equal(t, uint64(2), idx2)

	require.NoError(t, w.Start())
	defer w.Stop()

	w.Submit(idx2)

	require.Eventually(t, func() bool {
		last, err := store.LastIndex()
		return err == nil && last == 2
	}, time.Second, 5*time.Millisecond)

	out1, ok, err := store.GetOutput(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, out1.Writes, AcceptL1Block{Height: 100, BlockID: [32]byte{1}})

	out2, ok, err := store.GetOutput(2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []SyncAction{UpdateTip{BlockID: y}}, out2.Actions)
}
