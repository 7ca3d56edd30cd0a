package csm

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// BlockID identifies an L2 block by the sha3-256 hash of its signed header,
// the Go analogue of the original's L2BlockId newtype.
type BlockID [32]byte

// ZeroBlockID is the sentinel parent of the finalized tip, never a real
// block.
var ZeroBlockID BlockID

func (b BlockID) String() string { return hex.EncodeToString(b[:]) }

func (b BlockID) IsZero() bool { return b == ZeroBlockID }

// HashHeader computes the BlockID of a header the way every block id in
// this package is derived: sha3-256 over its canonical encoding.
func HashHeader(encoded []byte) BlockID {
	return BlockID(sha3.Sum256(encoded))
}

// L2BlockHeader carries just the fields the CSM and fork tree need;
// everything execution-specific lives in the opaque body the engine
// interprets.
type L2BlockHeader struct {
	ParentID BlockID
	Height   uint64
	L1Height uint64
}

// L2Block is the header plus an opaque body: an L1 segment (DA references)
// and an execution segment the engine alone understands.
type L2Block struct {
	Header      L2BlockHeader
	L1Segment   []byte
	ExecSegment []byte
}

// L1BlockManifest is the minimal view of an L1 block the transition
// function needs: its id and height. Bitcoin wire-level details are an
// external collaborator's concern.
type L1BlockManifest struct {
	Height  uint64
	BlockID [32]byte
}
