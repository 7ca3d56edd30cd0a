package csm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func bid(b byte) BlockID { return BlockID{b} }

func TestTreeNewEmptyHasRootAsSoleTip(t *testing.T) {
	root := bid(1)
	tr := NewTree(root)

	require.Equal(t, root, tr.FinalizedTip())
	require.Equal(t, []BlockID{root}, tr.Tips())
}

func TestTreeAttachRejectsDuplicate(t *testing.T) {
	root := bid(1)
	tr := NewTree(root)

	a := bid(2)
	_, err := tr.Attach(a, L2BlockHeader{ParentID: root})
	require.NoError(t, err)

	_, err = tr.Attach(a, L2BlockHeader{ParentID: root})
	require.True(t, IsKind(err, BlockAlreadyAttached))
}

func TestTreeAttachRejectsMissingParent(t *testing.T) {
	tr := NewTree(bid(1))
	_, err := tr.Attach(bid(2), L2BlockHeader{ParentID: bid(99)})
	require.True(t, IsKind(err, AttachMissingParent))
}

func TestTreeAttachReportsForkOffNonTip(t *testing.T) {
	root := bid(1)
	tr := NewTree(root)

	a := bid(2)
	createdFork, err := tr.Attach(a, L2BlockHeader{ParentID: root})
	require.NoError(t, err)
	require.False(t, createdFork) // root was the sole tip

	b := bid(3)
	createdFork, err = tr.Attach(b, L2BlockHeader{ParentID: a})
	require.NoError(t, err)
	require.False(t, createdFork) // a was the sole tip

	bPrime := bid(4)
	createdFork, err = tr.Attach(bPrime, L2BlockHeader{ParentID: a})
	require.NoError(t, err)
	require.True(t, createdFork) // a was no longer a tip once b attached
}

func TestTreeFinalizeSingleEntry(t *testing.T) {
	root := bid(1)
	tr := NewTree(root)

	b := bid(2)
	_, err := tr.Attach(b, L2BlockHeader{ParentID: root})
	require.NoError(t, err)

	report, err := tr.FinalizeTip(b)
	require.NoError(t, err)
	require.Equal(t, root, report.PrevTip)
	require.Equal(t, []BlockID{b}, report.Finalized)
	require.Empty(t, report.Rejected)

	require.Equal(t, b, tr.FinalizedTip())
	require.Equal(t, []BlockID{b}, tr.Tips())
}

// TestTreeForkAndFinalize covers S3 from the spec: chain G -> A -> B -> C
// with a competing branch A -> B', attach order A, B, B', C, then
// finalize(C).
func TestTreeForkAndFinalize(t *testing.T) {
	g := bid(1)
	tr := NewTree(g)

	a, b, bPrime, c := bid(2), bid(3), bid(4), bid(5)

	_, err := tr.Attach(a, L2BlockHeader{ParentID: g})
	require.NoError(t, err)
	_, err = tr.Attach(b, L2BlockHeader{ParentID: a})
	require.NoError(t, err)
	_, err = tr.Attach(bPrime, L2BlockHeader{ParentID: a})
	require.NoError(t, err)
	_, err = tr.Attach(c, L2BlockHeader{ParentID: b})
	require.NoError(t, err)

	report, err := tr.FinalizeTip(c)
	require.NoError(t, err)

	require.Equal(t, g, report.PrevTip)
	require.Equal(t, []BlockID{a, b, c}, report.Finalized)
	require.Equal(t, []BlockID{bPrime}, report.Rejected)

	require.Equal(t, c, tr.FinalizedTip())
	require.Equal(t, []BlockID{c}, tr.Tips())
}

func TestTreeFinalizeUnreachableErrorsWithoutMutation(t *testing.T) {
	g := bid(1)
	tr := NewTree(g)

	unrelated := bid(9)
	_, err := tr.FinalizeTip(unrelated)
	require.True(t, IsKind(err, MissingBlock))

	require.Equal(t, g, tr.FinalizedTip())
	require.Equal(t, []BlockID{g}, tr.Tips())
}
