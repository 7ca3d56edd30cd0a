package writer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/btcrollup/csmnode/storage"
)

type fakeBroadcaster struct {
	statuses map[[32]byte]L1TxEntry
	published [][]byte
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{statuses: make(map[[32]byte]L1TxEntry)}
}

func (b *fakeBroadcaster) TxStatus(txid [32]byte) (L1TxEntry, bool, error) {
	e, ok := b.statuses[txid]
	return e, ok, nil
}

func (b *fakeBroadcaster) Publish(raw []byte) ([32]byte, error) {
	b.published = append(b.published, raw)
	return [32]byte{}, nil
}

type fakeSigner struct{ calls int }

func (s *fakeSigner) SignInscription(payload []byte) ([]byte, []byte, [32]byte, [32]byte, error) {
	s.calls++
	commitID := [32]byte{byte(s.calls)}
	revealID := [32]byte{byte(s.calls), byte(s.calls)}
	return []byte("commit"), []byte("reveal"), commitID, revealID, nil
}

func TestDetermineNextStatusTable(t *testing.T) {
	cases := []struct {
		name   string
		commit L1TxEntry
		reveal L1TxEntry
		curr   BlobStatus
		want   BlobStatus
	}{
		{"reveal finalized wins", L1TxEntry{Status: TxUnpublished}, L1TxEntry{Status: TxFinalized}, Unpublished, Finalized},
		{"reveal confirmed wins", L1TxEntry{Status: TxExcluded}, L1TxEntry{Status: TxConfirmed}, Unpublished, Confirmed},
		{"reveal published wins", L1TxEntry{Status: TxUnpublished}, L1TxEntry{Status: TxPublished}, Unpublished, Published},
		{"commit excluded missing inputs needs resign", L1TxEntry{Status: TxExcluded, ExcludeReason: ExcludeMissingInputsOrSpent}, L1TxEntry{Status: TxUnpublished}, Unpublished, NeedsResign},
		{"commit excluded other reason unchanged", L1TxEntry{Status: TxExcluded, ExcludeReason: ExcludeOther}, L1TxEntry{Status: TxUnpublished}, Unpublished, Unpublished},
		{"otherwise unchanged", L1TxEntry{Status: TxUnpublished}, L1TxEntry{Status: TxUnpublished}, Unpublished, Unpublished},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := determineNextStatus(c.commit, c.reveal, c.curr)
			require.Equal(t, c.want, got)
		})
	}
}

func TestDetermineNextStatusIsAPureFunction(t *testing.T) {
	commit := L1TxEntry{Status: TxUnpublished}
	reveal := L1TxEntry{Status: TxConfirmed}
	a := determineNextStatus(commit, reveal, Unpublished)
	b := determineNextStatus(commit, reveal, Unpublished)
	require.Equal(t, a, b)
}

func setupPipeline(t *testing.T) (*Pipeline, storage.Database, *fakeBroadcaster, *fakeSigner) {
	t.Helper()
	db := storage.NewMemoryDatabase()
	bc := newFakeBroadcaster()
	signer := &fakeSigner{}
	p := NewPipeline(db, bc, signer, time.Millisecond)
	return p, db, bc, signer
}

func seedBlob(t *testing.T, db storage.Database, index uint64, entry BlobEntry) {
	t.Helper()
	payload, err := encodeBlobEntry(entry)
	require.NoError(t, err)
	require.NoError(t, db.Family(storage.CFBlobEntry).Put(entry.Commitment[:], payload))
	require.NoError(t, db.Family(storage.CFBlobIndex).Put(encodeUint64(index), entry.Commitment[:]))
}

// TestWriterLifecycle covers S4 from the spec: a blob starting Unsigned
// moves Unsigned -> Unpublished -> Published -> Confirmed -> Finalized
// across four polls.
func TestWriterLifecycle(t *testing.T) {
	p, db, bc, _ := setupPipeline(t)

	commitment := [32]byte{0xaa}
	seedBlob(t, db, 0, BlobEntry{Commitment: commitment, Status: Unsigned, Payload: []byte("data")})

	cursor := p.pollOnce(0)
	require.Equal(t, uint64(0), cursor)
	entry, ok, err := p.loadBlob(commitment)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Unpublished, entry.Status)

	bc.statuses[entry.CommitTxID] = L1TxEntry{Status: TxPublished}
	bc.statuses[entry.RevealTxID] = L1TxEntry{Status: TxPublished}
	cursor = p.pollOnce(cursor)
	require.Equal(t, uint64(0), cursor)
	entry, _, _ = p.loadBlob(commitment)
	require.Equal(t, Published, entry.Status)
	require.Equal(t, entry.RevealTxID, p.Status().LastPublishedTxID)

	bc.statuses[entry.RevealTxID] = L1TxEntry{Status: TxConfirmed}
	cursor = p.pollOnce(cursor)
	require.Equal(t, uint64(1), cursor) // cursor advances on Confirmed
	entry, _, _ = p.loadBlob(commitment)
	require.Equal(t, Confirmed, entry.Status)

	bc.statuses[entry.RevealTxID] = L1TxEntry{Status: TxFinalized}
	// cursor already advanced past this blob's index in a real run; here we
	// poll the same index again directly to observe the Finalized move.
	finalizeCursor := p.pollOnce(0)
	require.Equal(t, uint64(1), finalizeCursor)
	entry, _, _ = p.loadBlob(commitment)
	require.Equal(t, Finalized, entry.Status)
}

// TestWriterExcludedMissingInputsResigns covers S5 from the spec.
func TestWriterExcludedMissingInputsResigns(t *testing.T) {
	p, db, bc, signer := setupPipeline(t)

	commitment := [32]byte{0xbb}
	commitTxID := [32]byte{1}
	revealTxID := [32]byte{2}
	seedBlob(t, db, 0, BlobEntry{
		Commitment: commitment,
		Status:     Unpublished,
		CommitTxID: commitTxID,
		RevealTxID: revealTxID,
		Payload:    []byte("data"),
	})

	bc.statuses[commitTxID] = L1TxEntry{Status: TxExcluded, ExcludeReason: ExcludeMissingInputsOrSpent}
	bc.statuses[revealTxID] = L1TxEntry{Status: TxUnpublished}

	p.pollOnce(0)
	entry, ok, err := p.loadBlob(commitment)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, NeedsResign, entry.Status)

	p.pollOnce(0)
	entry, _, _ = p.loadBlob(commitment)
	require.Equal(t, Unpublished, entry.Status)
	require.Equal(t, 1, signer.calls)
}
