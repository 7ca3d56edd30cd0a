package csm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btcrollup/csmnode/storage"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	return NewJournal(storage.NewMemoryDatabase())
}

func TestJournalAppendAssignsDenseIndicesStartingAt1(t *testing.T) {
	j := newTestJournal(t)

	idx, err := j.Append(L1BlockSeen{Height: 100})
	require.NoError(t, err)
	require.Equal(t, uint64(1), idx)

	idx2, err := j.Append(L2BlockReceived{})
	require.NoError(t, err)
	require.Equal(t, uint64(2), idx2)
}

func TestJournalAppendGetRoundTrip(t *testing.T) {
	j := newTestJournal(t)

	ev := L1BlockSeen{Height: 42, BlockID: [32]byte{1, 2, 3}}
	idx, err := j.Append(ev)
	require.NoError(t, err)

	got, err := j.Get(idx)
	require.NoError(t, err)
	require.Equal(t, ev, got)
}

func TestJournalLastIndexEmpty(t *testing.T) {
	j := newTestJournal(t)
	last, ok, err := j.LastIndex()
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, uint64(0), last)
}

// TestJournalClearRange covers S6 from the spec: inserting 5 events, then
// clear_range(2,4) removes indices 2 and 3 only.
func TestJournalClearRange(t *testing.T) {
	j := newTestJournal(t)
	for i := 0; i < 5; i++ {
		_, err := j.Append(L2BlockReceived{BlockID: BlockID{byte(i)}})
		require.NoError(t, err)
	}

	require.NoError(t, j.ClearRange(2, 4))

	for _, idx := range []uint64{1, 4, 5} {
		ev, err := j.Get(idx)
		require.NoError(t, err)
		require.NotNil(t, ev)
	}
	for _, idx := range []uint64{2, 3} {
		ev, err := j.Get(idx)
		require.NoError(t, err)
		require.Nil(t, ev)
	}

	last, ok, err := j.LastIndex()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(5), last)
}

func TestJournalClearRangeBadRange(t *testing.T) {
	j := newTestJournal(t)
	_, err := j.Append(L2BlockReceived{})
	require.NoError(t, err)

	err = j.ClearRange(3, 3)
	require.True(t, IsKind(err, BadRange))
}

func TestJournalClearRangeBeyondTip(t *testing.T) {
	j := newTestJournal(t)
	_, err := j.Append(L2BlockReceived{})
	require.NoError(t, err)

	err = j.ClearRange(1, 5)
	require.True(t, IsKind(err, BeyondTip))
}

func TestJournalClearRangeEmptyJournal(t *testing.T) {
	j := newTestJournal(t)
	err := j.ClearRange(1, 2)
	require.True(t, IsKind(err, EmptyJournal))
}
