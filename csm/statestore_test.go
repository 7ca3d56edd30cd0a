package csm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btcrollup/csmnode/storage"
)

func newTestStateStore(t *testing.T) *StateStore {
	t.Helper()
	return NewStateStore(storage.NewMemoryDatabase())
}

func TestStateStoreLastIndexNotBootstrapped(t *testing.T) {
	s := newTestStateStore(t)
	_, err := s.LastIndex()
	require.True(t, IsKind(err, NotBootstrapped))
}

func TestStateStoreWriteOutputBootstrapAtZero(t *testing.T) {
	s := newTestStateStore(t)
	require.NoError(t, s.WriteOutput(0, ConsensusOutput{}))

	last, err := s.LastIndex()
	require.NoError(t, err)
	require.Equal(t, uint64(0), last)
}

func TestStateStoreRejectsOverwrite(t *testing.T) {
	s := newTestStateStore(t)
	require.NoError(t, s.WriteOutput(0, ConsensusOutput{}))

	err := s.WriteOutput(0, ConsensusOutput{})
	require.True(t, IsKind(err, Overwrite))
}

func TestStateStoreRejectsGap(t *testing.T) {
	s := newTestStateStore(t)
	err := s.WriteOutput(1, ConsensusOutput{})
	require.True(t, IsKind(err, Gap))
}

func TestStateStoreSequentialWrites(t *testing.T) {
	s := newTestStateStore(t)
	require.NoError(t, s.WriteOutput(0, ConsensusOutput{}))
	require.NoError(t, s.WriteOutput(1, ConsensusOutput{
		Actions: []SyncAction{UpdateTip{BlockID: BlockID{9}}},
	}))

	out, ok, err := s.GetOutput(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []SyncAction{UpdateTip{BlockID: BlockID{9}}}, out.Actions)

	last, err := s.LastIndex()
	require.NoError(t, err)
	require.Equal(t, uint64(1), last)
}
