package csm

// SyncEvent is the tagged sum of external observations the CSM folds into
// state, the Go analogue of the original's SyncEvent enum in
// crates/state/src/sync_event.rs (there named L1BlockPosted/L2BlockRecv/
// L2BlockExec before the rename to the *Seen/*Received/*Executed forms used
// here). Every variant is an exhaustive closed set: dispatch is by type
// switch, never by adding a virtual method.
type SyncEvent interface {
	isSyncEvent()
}

// L1BlockSeen reports an L1 block observed by the reader at a given height.
type L1BlockSeen struct {
	Height  uint64
	BlockID [32]byte
}

func (L1BlockSeen) isSyncEvent() {}

// L1DABatch reports a set of L2 block ids observed as published to the L1
// data-availability layer.
type L1DABatch struct {
	L2BlockIDs []BlockID
}

func (L1DABatch) isSyncEvent() {}

// L2BlockReceived reports a new L2 block body available locally.
type L2BlockReceived struct {
	BlockID BlockID
}

func (L2BlockReceived) isSyncEvent() {}

// L2BlockExecuted reports the engine's verdict on a previously-received
// block.
type L2BlockExecuted struct {
	BlockID BlockID
	OK      bool
}

func (L2BlockExecuted) isSyncEvent() {}

// EventRecord is one durable journal entry: a strictly increasing index,
// the wall-clock timestamp at append, and the event itself. Immutable once
// written.
type EventRecord struct {
	Index       uint64
	TimestampMs uint64
	Event       SyncEvent
}
