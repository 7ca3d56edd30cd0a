package csm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeView struct {
	manifests map[uint64]L1BlockManifest
	l2blocks  map[BlockID]bool
}

func newFakeView() *fakeView {
	return &fakeView{manifests: make(map[uint64]L1BlockManifest), l2blocks: make(map[BlockID]bool)}
}

func (v *fakeView) L1ManifestAtHeight(height uint64) (L1BlockManifest, bool, error) {
	m, ok := v.manifests[height]
	return m, ok, nil
}

func (v *fakeView) HasL2Block(id BlockID) (bool, error) {
	return v.l2blocks[id], nil
}

func TestProcessL1BlockSeenMissingManifest(t *testing.T) {
	view := newFakeView()
	_, err := Process(ConsensusState{}, L1BlockSeen{Height: 10}, view, Params{})
	require.True(t, IsKind(err, MissingL1BlockHeight))
}

func TestProcessL1BlockSeenEmitsAcceptAndBuried(t *testing.T) {
	view := newFakeView()
	view.manifests[100] = L1BlockManifest{Height: 100, BlockID: [32]byte{1}}

	out, err := Process(ConsensusState{}, L1BlockSeen{Height: 100, BlockID: [32]byte{1}}, view,
		Params{L1FollowDistance: 10})
	require.NoError(t, err)
	require.Equal(t, []ConsensusWrite{
		AcceptL1Block{Height: 100, BlockID: [32]byte{1}},
		UpdateBuried{Height: 90},
	}, out.Writes)
}

func TestProcessL1DABatchMissingBlockFails(t *testing.T) {
	view := newFakeView()
	_, err := Process(ConsensusState{}, L1DABatch{L2BlockIDs: []BlockID{bid(1)}}, view, Params{})
	require.True(t, IsKind(err, MissingL2Block))
}

func TestProcessL1DABatchRecordsObservation(t *testing.T) {
	view := newFakeView()
	view.l2blocks[bid(1)] = true
	view.l2blocks[bid(2)] = true

	out, err := Process(ConsensusState{}, L1DABatch{L2BlockIDs: []BlockID{bid(1), bid(2)}}, view, Params{})
	require.NoError(t, err)
	require.Equal(t, []ConsensusWrite{
		ObserveL2Batch{L2BlockIDs: []BlockID{bid(1), bid(2)}},
	}, out.Writes)
}

func TestProcessL2BlockReceivedEmitsUpdateTip(t *testing.T) {
	view := newFakeView()
	view.l2blocks[bid(7)] = true

	out, err := Process(ConsensusState{}, L2BlockReceived{BlockID: bid(7)}, view, Params{})
	require.NoError(t, err)
	require.Equal(t, []SyncAction{UpdateTip{BlockID: bid(7)}}, out.Actions)
}

func TestProcessL2BlockExecutedOkExtendsTip(t *testing.T) {
	out, err := Process(ConsensusState{}, L2BlockExecuted{BlockID: bid(7), OK: true}, nil, Params{})
	require.NoError(t, err)
	require.Equal(t, []SyncAction{ExtendTip{BlockID: bid(7)}}, out.Actions)
}

func TestProcessL2BlockExecutedFailRevertsTip(t *testing.T) {
	out, err := Process(ConsensusState{}, L2BlockExecuted{BlockID: bid(7), OK: false}, nil, Params{})
	require.NoError(t, err)
	require.Equal(t, []SyncAction{RevertTip{BlockID: bid(7)}}, out.Actions)
}

func TestApplyAndProcessAreDeterministic(t *testing.T) {
	view := newFakeView()
	view.manifests[100] = L1BlockManifest{Height: 100}

	state := ConsensusState{}
	out1, err := Process(state, L1BlockSeen{Height: 100}, view, Params{L1FollowDistance: 5})
	require.NoError(t, err)
	out2, err := Process(state, L1BlockSeen{Height: 100}, view, Params{L1FollowDistance: 5})
	require.NoError(t, err)
	require.Equal(t, out1, out2)

	next1 := Apply(state, 1, out1)
	next2 := Apply(state, 1, out2)
	require.Equal(t, next1, next2)
}
