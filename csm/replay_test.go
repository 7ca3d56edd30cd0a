package csm

import (
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"

	"github.com/btcrollup/csmnode/engine"
	"github.com/btcrollup/csmnode/storage"
)

// spewConfig disables method dispatch so Sdump always walks struct fields
// directly rather than calling a possibly-stale String()/GoString(), the
// same ConfigState the teacher's own deep-diffing test helpers use.
var spewConfig = spew.ConfigState{DisableMethods: true}

// TestReplayFromPersistedOutputsIsDeterministic covers the
// replay-determinism property: folding every persisted output from the
// bootstrap output at index 0 forward reproduces the exact same
// ConsensusState a live worker run over the journal produced, compared via
// a go-spew dump rather than require.Equal's own formatter so a divergence
// is reported field-by-field.
func TestReplayFromPersistedOutputsIsDeterministic(t *testing.T) {
	db := storage.NewMemoryDatabase()
	journal := NewJournal(db)
	store := NewStateStore(db)
	view := NewStoreView(db)
	tree := NewTree(BlockID{})
	w := NewWorker(journal, store, tree, view, engine.NopEngine{}, Params{L1FollowDistance: 2})
	require.NoError(t, w.InitClientState(100, 105))

	require.NoError(t, view.PutL1Manifest(L1BlockManifest{Height: 100}))
	require.NoError(t, view.PutL1Manifest(L1BlockManifest{Height: 101}))
	y := bid(7)
	require.NoError(t, view.PutL2Block(&L2Block{Header: L2BlockHeader{Height: 1}}, y))

	idx1, err := journal.Append(L1BlockSeen{Height: 100, BlockID: [32]byte{1}})
	require.NoError(t, err)
	idx2, err := journal.Append(L2BlockReceived{BlockID: y})
	require.NoError(t, err)
	idx3, err := journal.Append(L1BlockSeen{Height: 101, BlockID: [32]byte{2}})
	require.NoError(t, err)

	require.NoError(t, w.Start())
	w.Submit(idx3)
	require.Eventually(t, func() bool {
		last, err := store.LastIndex()
		return err == nil && last == idx3
	}, time.Second, 5*time.Millisecond)
	w.Stop()
	live := w.Watch()
	_ = idx1
	_ = idx2

	// Independently fold the same persisted outputs from scratch, the way
	// a freshly-started node recovers state after a restart.
	replayed := ConsensusState{}
	for i := uint64(0); i <= idx3; i++ {
		out, ok, err := store.GetOutput(i)
		require.NoError(t, err)
		require.True(t, ok)
		replayed = Apply(replayed, i, out)
	}

	liveDump := spewConfig.Sdump(live)
	replayedDump := spewConfig.Sdump(replayed)
	require.Equal(t, liveDump, replayedDump)
}
