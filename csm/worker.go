package csm

import (
	"sync"
	"sync/atomic"

	"github.com/btcrollup/csmnode/engine"
	"github.com/btcrollup/csmnode/metrics"
	"github.com/btcrollup/csmnode/xlog"
)

var workerLogger = xlog.NewModuleLogger(xlog.Worker)

const (
	workerStopped int32 = iota
	workerRunning
)

// ActionPublisher republishes dispatched actions to an external bus, e.g.
// eventbus.Publisher backed by Kafka. Defined here rather than imported so
// the CSM package stays free of a dependency on its own consumers.
type ActionPublisher interface {
	Publish(index uint64, action SyncAction)
}

// FinalizationRecorder mirrors a finalization report into an external read
// model, e.g. readmodel.Mirror backed by gorm/MySQL.
type FinalizationRecorder interface {
	RecordFinalization(report FinalizeReport, baseHeight uint64) error
}

// EventInput is the message the submission shim posts to the worker: "an
// event was durably journaled at this index, there may be work to do."
type EventInput struct {
	Index uint64
}

// Worker is the single-consumer loop bound to one logical CSM instance,
// grounded on the select-loop shape of the teacher's work/worker.go
// (newWorker/start/stop/handleTxsCh) adapted to this domain's event/state
// pipeline instead of transaction pooling.
type Worker struct {
	journal *Journal
	store   *StateStore
	tree    *Tree
	view    *StoreView
	engine  engine.Engine
	params  Params

	input chan EventInput
	quit  chan struct{}
	wg    sync.WaitGroup

	status int32

	watchMu sync.RWMutex
	watch   ConsensusState

	fatalMu  sync.Mutex
	fatalErr error

	publisher ActionPublisher
	readModel FinalizationRecorder
}

// SetPublisher wires an external action bus into dispatch; nil (the
// default) disables publishing.
func (w *Worker) SetPublisher(p ActionPublisher) { w.publisher = p }

// SetReadModel wires an external finalization mirror into the fork tree's
// finalize path; nil (the default) disables mirroring.
func (w *Worker) SetReadModel(r FinalizationRecorder) { w.readModel = r }

func NewWorker(journal *Journal, store *StateStore, tree *Tree, view *StoreView, eng engine.Engine, params Params) *Worker {
	return &Worker{
		journal: journal,
		store:   store,
		tree:    tree,
		view:    view,
		engine:  eng,
		params:  params,
		input:   make(chan EventInput, 256),
		quit:    make(chan struct{}),
	}
}

// CheckNeedsClientInit reports whether genesis initialization is required:
// true both when no checkpoint exists yet and when checkpoints exist but
// their fold has no genesis recorded — the two "no checkpoint" / "no
// genesis block" cases the original's check_needs_client_init distinguishes
// are folded into the same answer here. InitClientState always writes
// index 0, so in the second case it fails with Overwrite rather than
// re-initializing.
func (w *Worker) CheckNeedsClientInit() (bool, error) {
	last, err := w.store.LastIndex()
	if IsKind(err, NotBootstrapped) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	state, ok, err := w.loadState(last)
	if err != nil {
		return false, err
	}
	if !ok || !state.Client.HasGenesis {
		return true, nil
	}
	return false, nil
}

// InitClientState writes the bootstrap checkpoint at index 0, the
// analogue of init_client_state in the S1 scenario: horizon and genesis
// heights are fixed for the lifetime of the node.
func (w *Worker) InitClientState(horizon, genesis uint64) error {
	out := ConsensusOutput{
		Writes: []ConsensusWrite{InitGenesis{HorizonL1Height: horizon, GenesisL1Height: genesis}},
	}
	return w.store.WriteOutput(0, out)
}

// loadState reconstructs the ConsensusState current as of index by reading
// every persisted output from 0 through index and refolding them with
// Apply. The state store keeps each event's ConsensusOutput (its writes and
// actions), not a full state snapshot, so every call walks the whole
// prefix; it reports ok=false if any output in that prefix is absent.
func (w *Worker) loadState(index uint64) (ConsensusState, bool, error) {
	state := ConsensusState{}
	for i := uint64(0); i <= index; i++ {
		out, ok, err := w.store.GetOutput(i)
		if err != nil {
			return ConsensusState{}, false, err
		}
		if !ok {
			return ConsensusState{}, false, nil
		}
		state = Apply(state, i, out)
	}
	return state, true, nil
}

// Start loads the last applied index from the state store and begins the
// event loop.
func (w *Worker) Start() error {
	if !atomic.CompareAndSwapInt32(&w.status, workerStopped, workerRunning) {
		return nil
	}

	last, err := w.store.LastIndex()
	if IsKind(err, NotBootstrapped) {
		last = 0
	} else if err != nil {
		return err
	}

	state, ok, err := w.loadState(last)
	if err != nil {
		return err
	}
	if ok {
		w.publish(state)
	}

	w.wg.Add(1)
	go w.loop(state)
	return nil
}

func (w *Worker) Stop() {
	if !atomic.CompareAndSwapInt32(&w.status, workerRunning, workerStopped) {
		return
	}
	close(w.quit)
	w.wg.Wait()
}

// Submit posts idx to the worker queue. If the worker has already stopped,
// logs a warning — the event is durable in the journal regardless and will
// be picked up on the next start, per the submission shim's contract.
func (w *Worker) Submit(idx uint64) {
	select {
	case <-w.quit:
		workerLogger.Warn("worker stopped, event remains durably journaled", "index", idx)
		return
	default:
	}
	select {
	case w.input <- EventInput{Index: idx}:
	case <-w.quit:
		workerLogger.Warn("worker stopped, event remains durably journaled", "index", idx)
	}
}

// Watch returns the most recently published ConsensusState.
func (w *Worker) Watch() ConsensusState {
	w.watchMu.RLock()
	defer w.watchMu.RUnlock()
	return w.watch
}

// FatalErr returns the error that halted the worker loop, if any.
func (w *Worker) FatalErr() error {
	w.fatalMu.Lock()
	defer w.fatalMu.Unlock()
	return w.fatalErr
}

func (w *Worker) publish(state ConsensusState) {
	w.watchMu.Lock()
	w.watch = state
	w.watchMu.Unlock()
}

func (w *Worker) loop(state ConsensusState) {
	defer w.wg.Done()
	for {
		select {
		case <-w.quit:
			return
		case in := <-w.input:
			if in.Index <= state.LastAppliedIndex {
				continue
			}
			for j := state.LastAppliedIndex + 1; j <= in.Index; j++ {
				next, err := w.applyOne(state, j)
				if err != nil {
					w.fail(err, j)
					return
				}
				state = next
				w.publish(state)
			}
		}
	}
}

// applyOne advances state by exactly one event index: load, transition,
// persist, dispatch.
func (w *Worker) applyOne(state ConsensusState, index uint64) (ConsensusState, error) {
	ev, err := w.journal.Get(index)
	if err != nil {
		return state, err
	}
	if ev == nil {
		return state, newErr(MissingEvent, index)
	}

	out, err := Process(state, ev, w.view, w.params)
	if err != nil {
		return state, err
	}

	if err := w.store.WriteOutput(index, out); err != nil {
		return state, err
	}

	next := Apply(state, index, out)
	metrics.RecordEventApplied()

	w.dispatch(index, out.Actions)

	return next, nil
}

// dispatch sends each action to the engine and, for tip-affecting actions,
// to the fork tree, in emission order; each action is also republished to
// the external bus when one is wired in. Engine failures are logged, not
// fatal: the next event re-derives the correct tip (§4.E failure
// semantics).
func (w *Worker) dispatch(index uint64, actions []SyncAction) {
	for _, a := range actions {
		if err := w.engine.Dispatch(a); err != nil {
			workerLogger.Warn("engine dispatch failed", "action", a, "err", err)
		}
		if w.publisher != nil {
			w.publisher.Publish(index, a)
		}

		switch act := a.(type) {
		case UpdateTip:
			w.handleUpdateTip(act.BlockID)
		case ExtendTip:
			w.handleExtendTip(act.BlockID)
		case RevertTip:
			workerLogger.Info("tip reverted by engine", "block", act.BlockID)
		}
	}
}

// handleUpdateTip attaches a newly-received block to the fork tree, the
// §4.E "attach" half of tip-affecting dispatch. The block body was already
// persisted by the collaborator that emitted L2BlockReceived, so its header
// is recovered from the view rather than threaded through the action.
func (w *Worker) handleUpdateTip(id BlockID) {
	block, ok, err := w.view.GetL2Block(id)
	if err != nil {
		workerLogger.Warn("failed to load block for tree attach", "block", id, "err", err)
		return
	}
	if !ok {
		workerLogger.Warn("block missing from view, cannot attach to tree", "block", id)
		return
	}
	if _, err := w.tree.Attach(id, block.Header); err != nil && !IsKind(err, BlockAlreadyAttached) {
		workerLogger.Warn("failed to attach block to tree", "block", id, "err", err)
	}
}

// handleExtendTip finalizes the fork tree up to id — the §4.E "finalize"
// half of tip-affecting dispatch — and, when a read model is wired in,
// mirrors the newly finalized path keyed off the height of the block that
// was finalized before it.
func (w *Worker) handleExtendTip(id BlockID) {
	report, err := w.tree.FinalizeTip(id)
	if err != nil {
		workerLogger.Debug("extend tip did not finalize", "block", id, "err", err)
		return
	}
	metrics.BlocksFinalized.Inc(int64(len(report.Finalized)))
	metrics.ForksRejected.Inc(int64(len(report.Rejected)))
	for _, rejected := range report.Rejected {
		workerLogger.Info("evicted rejected fork block", "block", rejected)
	}

	if w.readModel == nil || len(report.Finalized) == 0 {
		return
	}
	baseHeight, err := w.heightOf(report.PrevTip)
	if err != nil {
		workerLogger.Warn("failed to resolve base height for finalization mirror", "block", report.PrevTip, "err", err)
		return
	}
	if err := w.readModel.RecordFinalization(report, baseHeight); err != nil {
		workerLogger.Warn("failed to record finalization in read model", "err", err)
	}
}

// heightOf returns the height of id's block, or 0 for the zero block id
// (the tree's root before any block has been finalized).
func (w *Worker) heightOf(id BlockID) (uint64, error) {
	if id.IsZero() {
		return 0, nil
	}
	block, ok, err := w.view.GetL2Block(id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return block.Header.Height, nil
}

func (w *Worker) fail(err error, index uint64) {
	workerLogger.Crit("fatal error applying event, halting worker", "index", index, "err", err)
	w.fatalMu.Lock()
	w.fatalErr = err
	w.fatalMu.Unlock()
}
