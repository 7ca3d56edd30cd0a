// Package engine declares the narrow interface the CSM worker dispatches
// sync actions through. The execution engine itself is an external
// collaborator (out of scope per the specification); this package exists
// only so the worker can depend on an interface rather than a concrete
// client.
package engine

import "github.com/btcrollup/csmnode/csm"

// Engine receives try/extend/revert/update-tip directives from the CSM
// worker. Execution outcomes are not awaited synchronously here; they flow
// back in as L2BlockExecuted sync events through the submission shim.
type Engine interface {
	Dispatch(action csm.SyncAction) error
}

// NopEngine discards every action, useful for nodes running the CSM
// without a live execution engine attached (e.g. read-only mirrors).
type NopEngine struct{}

func (NopEngine) Dispatch(csm.SyncAction) error { return nil }
