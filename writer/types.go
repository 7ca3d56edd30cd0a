// Package writer implements the per-blob inscription status lifecycle:
// Unsigned/NeedsResign blobs get signed into commit/reveal transactions,
// then promoted through Unpublished/Published/Confirmed/Finalized (or
// Excluded) as the broadcaster observes their L1 confirmation status.
// Grounded on the original's crates/btcio/src/writer/task.rs watcher and
// crates/rocksdb-store/src/broadcaster/db.rs store.
package writer

import uuid "github.com/hashicorp/go-uuid"

// BlobStatus is the lifecycle state of one outbound blob.
type BlobStatus int

const (
	Unsigned BlobStatus = iota
	NeedsResign
	Unpublished
	Published
	Confirmed
	Finalized
	Excluded
)

func (s BlobStatus) String() string {
	switch s {
	case Unsigned:
		return "Unsigned"
	case NeedsResign:
		return "NeedsResign"
	case Unpublished:
		return "Unpublished"
	case Published:
		return "Published"
	case Confirmed:
		return "Confirmed"
	case Finalized:
		return "Finalized"
	case Excluded:
		return "Excluded"
	default:
		return "Unknown"
	}
}

// ExcludeReason qualifies why a transaction was excluded from the mempool
// or a block, the only distinction the status table cares about.
type ExcludeReason int

const (
	ExcludeOther ExcludeReason = iota
	ExcludeMissingInputsOrSpent
)

// BlobEntry is one outbound blob and its current lifecycle state.
// commit_txid/reveal_txid are set iff Status >= Unpublished. DutyID names
// the duty that produced this blob and is stored with the entry; the
// pipeline's log lines and the action bus do not carry it.
type BlobEntry struct {
	Commitment [32]byte
	DutyID     [36]byte
	Payload    []byte
	Status     BlobStatus
	CommitTxID [32]byte
	RevealTxID [32]byte
}

// NewBlobEntry starts a fresh blob's lifecycle at Unsigned, minting a new
// duty id via hashicorp/go-uuid the way the original mints a fresh duty id
// per inscription request.
func NewBlobEntry(commitment [32]byte, payload []byte) (BlobEntry, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return BlobEntry{}, err
	}
	var dutyID [36]byte
	copy(dutyID[:], id)
	return BlobEntry{
		Commitment: commitment,
		DutyID:     dutyID,
		Payload:    payload,
		Status:     Unsigned,
	}, nil
}

// TxStatus is the L1 confirmation status of one transaction as seen by the
// broadcaster.
type TxStatus int

const (
	TxUnpublished TxStatus = iota
	TxPublished
	TxConfirmed
	TxFinalized
	TxExcluded
)

// L1TxEntry is one raw transaction plus its L1Status, with the optional
// height (for Confirmed/Finalized) and reason (for Excluded).
type L1TxEntry struct {
	RawTx         []byte
	Status        TxStatus
	Height        uint64
	ExcludeReason ExcludeReason
}

// L1Status is the single process-wide mutable the writer owns: the sole
// writer task updates it under a reader-writer lock; every other reader
// (RPC, observers) only reads.
type L1Status struct {
	LastPublishedTxID [32]byte
	TipHeight         uint64
}
