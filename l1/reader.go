// Package l1 declares the narrow interfaces the node consumes from its two
// Bitcoin-facing collaborators: the L1 reader (block/DA observations) and
// the broadcaster (inscription transaction status). Both are external
// collaborators per the specification; wire-level Bitcoin handling itself
// is out of scope.
package l1

import "github.com/btcrollup/csmnode/csm"

// Reader produces L1BlockSeen observations. A live implementation polls a
// Bitcoin node's RPC surface and feeds the submission shim; this package
// only names the shape the CSM needs.
type Reader interface {
	ManifestAtHeight(height uint64) (csm.L1BlockManifest, bool, error)
	TipHeight() (uint64, error)
}
