package csm

// ClientState is the deterministic fold of every sync event applied so
// far, opaque to callers outside the CSM but fully serializable for
// durable checkpointing. Field set matches the minimum the spec names:
// horizon/genesis heights, the current L1 view, a SyncState, and
// bookkeeping flags.
type ClientState struct {
	HorizonL1Height uint64
	GenesisL1Height uint64

	L1View L1View

	// HasGenesis is set by the InitGenesis write. Sync is a plain value
	// (never nil); no ConsensusWrite in this package updates it, so it
	// stays zero.
	HasGenesis bool
	Sync       SyncState

	// SeenDABlocks accumulates every L2 id observed via L1DABatch, in
	// observation order, the durable side of the DA-batch observation;
	// entries are never removed.
	SeenDABlocks []BlockID
}

// L1View is the CSM's current picture of the L1 chain: the last-seen
// manifest and the buried (deeply-confirmed) height.
type L1View struct {
	TipHeight    uint64
	TipBlockID   [32]byte
	BuriedHeight uint64
}

// SyncState holds the rollup-specific tip/finalization bookkeeping once
// genesis has occurred.
type SyncState struct {
	TipBlockID       BlockID
	FinalizedBlockID BlockID
}

// ConsensusState is the CSM worker's full in-memory view at a given event
// index: the client state plus the index it was derived from. It is not
// stored itself: the state store keeps one ConsensusOutput per processed
// event index, and this value is rebuilt by folding those outputs with
// Apply.
type ConsensusState struct {
	LastAppliedIndex uint64
	Client           ClientState
}

// Clone returns a deep-enough copy for the transition function to mutate
// without aliasing the caller's state, mirroring the original's
// clone-before-mutate discipline in process_event.
func (c ConsensusState) Clone() ConsensusState {
	cp := c
	cp.Client.SeenDABlocks = append([]BlockID(nil), c.Client.SeenDABlocks...)
	return cp
}
