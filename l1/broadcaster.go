package l1

import "github.com/btcrollup/csmnode/writer"

// Broadcaster exposes per-transaction L1 confirmation status to the writer
// pipeline and accepts newly-signed inscription transactions for
// publication. A live implementation talks to a Bitcoin node's mempool and
// block-confirmation RPCs; this package only names the shape the writer
// pipeline needs.
type Broadcaster interface {
	TxStatus(txid [32]byte) (writer.L1TxEntry, bool, error)
	Publish(raw []byte) ([32]byte, error)
}

// Signer produces the commit/reveal transaction pair for one blob payload.
type Signer interface {
	SignInscription(payload []byte) (commitTx, revealTx []byte, commitTxID, revealTxID [32]byte, err error)
}
