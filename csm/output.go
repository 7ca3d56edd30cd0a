package csm

// ConsensusWrite is a tagged mutation the transition function emits;
// applying the full ordered slice to a ConsensusState produces the next
// ConsensusState. Closed sum, dispatched by type switch only.
type ConsensusWrite interface {
	isConsensusWrite()
}

// AcceptL1Block records that height/id is now the CSM's view of the L1 tip.
type AcceptL1Block struct {
	Height  uint64
	BlockID [32]byte
}

func (AcceptL1Block) isConsensusWrite() {}

// AcceptL2Block records that a new L2 block body is known locally.
type AcceptL2Block struct {
	BlockID BlockID
}

func (AcceptL2Block) isConsensusWrite() {}

// UpdateBuried advances the L1 buried height once enough confirmations
// have accumulated below the follow distance.
type UpdateBuried struct {
	Height uint64
}

func (UpdateBuried) isConsensusWrite() {}

// ObserveL2Batch records that a DA batch named these L2 ids as accepted,
// independent of whether any chain-level change follows. The source left
// this branch a TODO (process_event emits no write for L1DABatch); this
// write is the explicit fix the design notes call for: a DA observation
// must leave a durable trace of the ids it named even when finalization or
// tip movement is deferred to a later event.
type ObserveL2Batch struct {
	L2BlockIDs []BlockID
}

func (ObserveL2Batch) isConsensusWrite() {}

// InitGenesis is the bootstrap write persisted at index 0, fixing the
// horizon and genesis L1 heights for the lifetime of the node and marking
// HasGenesis true.
type InitGenesis struct {
	HorizonL1Height uint64
	GenesisL1Height uint64
}

func (InitGenesis) isConsensusWrite() {}

// SyncAction is a directive the CSM worker dispatches to external
// components (engine, fork tree) after applying a ConsensusWrite batch.
type SyncAction interface {
	isSyncAction()
}

// TryCheckBlock asks the engine to validate a previously unseen block.
type TryCheckBlock struct{ BlockID BlockID }

func (TryCheckBlock) isSyncAction() {}

// ExtendTip asks the fork tree/engine to extend the current tip with a
// block the engine has validated.
type ExtendTip struct{ BlockID BlockID }

func (ExtendTip) isSyncAction() {}

// RevertTip reports a block the engine rejected. The worker forwards it to
// the engine and the action bus and logs it; the fork tree is left
// unchanged.
type RevertTip struct{ BlockID BlockID }

func (RevertTip) isSyncAction() {}

// UpdateTip asks the fork tree to attach/track a newly received block as a
// tip candidate, subject to fork-tree acceptance.
type UpdateTip struct{ BlockID BlockID }

func (UpdateTip) isSyncAction() {}

// ConsensusOutput is the transition function's full result for one event:
// the writes that advance state, and the actions dispatched externally.
type ConsensusOutput struct {
	Writes  []ConsensusWrite
	Actions []SyncAction
}

// Apply folds writes into state in order, producing the next
// ConsensusState. Pure: never mutates its input.
func Apply(prev ConsensusState, index uint64, out ConsensusOutput) ConsensusState {
	next := prev.Clone()
	next.LastAppliedIndex = index

	for _, w := range out.Writes {
		switch write := w.(type) {
		case AcceptL1Block:
			next.Client.L1View.TipHeight = write.Height
			next.Client.L1View.TipBlockID = write.BlockID
		case AcceptL2Block:
			// Local-body availability bookkeeping lives in the L2 block
			// store itself; no ClientState field changes on accept alone.
		case UpdateBuried:
			next.Client.L1View.BuriedHeight = write.Height
		case ObserveL2Batch:
			next.Client.SeenDABlocks = append(next.Client.SeenDABlocks, write.L2BlockIDs...)
		case InitGenesis:
			next.Client.HorizonL1Height = write.HorizonL1Height
			next.Client.GenesisL1Height = write.GenesisL1Height
			next.Client.HasGenesis = true
		}
	}
	return next
}
