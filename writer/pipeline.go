package writer

import (
	"sync"
	"time"

	"github.com/btcrollup/csmnode/l1"
	"github.com/btcrollup/csmnode/metrics"
	"github.com/btcrollup/csmnode/storage"
	"github.com/btcrollup/csmnode/xlog"
)

var pipelineLogger = xlog.NewModuleLogger(xlog.Writer)

// StatusMirror mirrors L1Status to an external cache after each status
// transition, e.g. statuscache.Cache backed by Redis. Defined here rather
// than imported so the writer package stays free of a dependency on its
// own consumers.
type StatusMirror interface {
	Set(status L1Status)
}

// Pipeline polls a contiguous range of blobs at a fixed interval and
// advances each one's lifecycle status, grounded on the original's
// watcher_task / get_next_blobidx_to_watch / determine_blob_next_status in
// crates/btcio/src/writer/task.rs.
type Pipeline struct {
	db          storage.Database
	broadcaster l1.Broadcaster
	signer      l1.Signer

	pollInterval time.Duration

	statusMu sync.RWMutex
	status   L1Status

	statusCache StatusMirror

	quit chan struct{}
	wg   sync.WaitGroup
}

// SetStatusCache wires an external L1Status mirror; nil (the default)
// disables mirroring.
func (p *Pipeline) SetStatusCache(c StatusMirror) { p.statusCache = c }

func NewPipeline(db storage.Database, broadcaster l1.Broadcaster, signer l1.Signer, pollInterval time.Duration) *Pipeline {
	return &Pipeline{
		db:           db,
		broadcaster:  broadcaster,
		signer:       signer,
		pollInterval: pollInterval,
		quit:         make(chan struct{}),
	}
}

// Status returns a copy of the current L1Status, the one process-wide
// mutable the pipeline owns; RPC and observers call this as read-only
// consumers.
func (p *Pipeline) Status() L1Status {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	return p.status
}

// Start launches the polling loop in a background goroutine, computing the
// initial watch cursor by walking backward from the last blob index until
// index 0 or a Finalized entry is found, per the original's
// get_next_blobidx_to_watch.
func (p *Pipeline) Start() error {
	cursor, err := p.initialCursor()
	if err != nil {
		return err
	}

	p.wg.Add(1)
	go p.run(cursor)
	return nil
}

func (p *Pipeline) Stop() {
	close(p.quit)
	p.wg.Wait()
}

func (p *Pipeline) initialCursor() (uint64, error) {
	idx := storage.CFBlobIndex
	kv := p.db.Family(idx)
	it := kv.NewIterator(nil)
	defer it.Release()

	var last uint64
	found := false
	for it.Next() {
		i := decodeUint64(it.Key())
		if !found || i > last {
			last, found = i, true
		}
	}
	if err := it.Error(); err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}

	cursor := last
	for cursor > 0 {
		commitment, ok, err := p.commitmentAtIndex(cursor)
		if err != nil {
			return 0, err
		}
		if !ok {
			cursor--
			continue
		}
		entry, ok, err := p.loadBlob(commitment)
		if err != nil {
			return 0, err
		}
		if ok && entry.Status == Finalized {
			break
		}
		cursor--
	}
	return cursor, nil
}

func (p *Pipeline) run(cursor uint64) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.quit:
			return
		case <-ticker.C:
			cursor = p.pollOnce(cursor)
		}
	}
}

// pollOnce advances the lifecycle of the blob at cursor and returns the
// cursor's next value.
func (p *Pipeline) pollOnce(cursor uint64) uint64 {
	commitment, ok, err := p.commitmentAtIndex(cursor)
	if err != nil {
		pipelineLogger.Error("failed to read blob index", "index", cursor, "err", err)
		return cursor
	}
	if !ok {
		pipelineLogger.Debug("blob not yet written at cursor", "index", cursor)
		return cursor
	}

	entry, ok, err := p.loadBlob(commitment)
	if err != nil {
		pipelineLogger.Error("failed to load blob", "err", err)
		return cursor
	}
	if !ok {
		pipelineLogger.Debug("blob not yet written at cursor", "index", cursor)
		return cursor
	}

	switch entry.Status {
	case Unsigned, NeedsResign:
		if err := p.sign(&entry); err != nil {
			pipelineLogger.Warn("signing failed, will retry next poll", "err", err)
			return cursor
		}
		p.saveBlob(entry)
		return cursor

	case Unpublished, Published, Confirmed:
		advanced, err := p.advance(&entry)
		if err != nil {
			pipelineLogger.Error("failed to advance blob status", "err", err)
			return cursor
		}
		p.saveBlob(entry)
		if advanced {
			return cursor + 1
		}
		return cursor

	case Finalized:
		return cursor + 1

	case Excluded:
		pipelineLogger.Warn("blob excluded, duty may need recreation", "commitment", entry.Commitment)
		return cursor + 1

	default:
		return cursor
	}
}

func (p *Pipeline) sign(entry *BlobEntry) error {
	_, _, commitTxID, revealTxID, err := p.signer.SignInscription(entry.Payload)
	if err != nil {
		return err
	}
	entry.CommitTxID = commitTxID
	entry.RevealTxID = revealTxID
	entry.Status = Unpublished
	return nil
}

// advance derives the blob's next status from the (commit.status,
// reveal.status) pair via determineNextStatus, updates L1Status when the
// new status is Published/Confirmed/Finalized, and reports whether the
// watch cursor should move past this blob (true on Confirmed/Finalized).
func (p *Pipeline) advance(entry *BlobEntry) (bool, error) {
	commit, ok, err := p.broadcaster.TxStatus(entry.CommitTxID)
	if err != nil {
		return false, err
	}
	if !ok {
		pipelineLogger.Error("commit tx missing, waiting", "commitment", entry.Commitment)
		return false, nil
	}
	reveal, ok, err := p.broadcaster.TxStatus(entry.RevealTxID)
	if err != nil {
		return false, err
	}
	if !ok {
		pipelineLogger.Error("reveal tx missing, waiting", "commitment", entry.Commitment)
		return false, nil
	}

	next := determineNextStatus(commit, reveal, entry.Status)
	if next == entry.Status {
		return false, nil
	}

	entry.Status = next
	metrics.SetBlobStatusCount(next.String(), 1)
	switch next {
	case Published, Confirmed, Finalized:
		p.statusMu.Lock()
		p.status.LastPublishedTxID = entry.RevealTxID
		status := p.status
		p.statusMu.Unlock()
		if p.statusCache != nil {
			p.statusCache.Set(status)
		}
	}
	return next == Confirmed || next == Finalized, nil
}

// determineNextStatus implements the status table from §4.G exactly,
// grounded on the original's determine_blob_next_status. The source
// advances curr_blobidx in a branch unreachable under its own condition
// (a dead duplicate of the Confirmed/Finalized test); this Go version
// instead advances the cursor directly from the returned status
// (Confirmed or Finalized) at the call site, per the resolved open
// question in the design notes.
func determineNextStatus(commit, reveal L1TxEntry, curr BlobStatus) BlobStatus {
	switch reveal.Status {
	case TxFinalized:
		return Finalized
	case TxConfirmed:
		return Confirmed
	case TxPublished:
		return Published
	}

	if commit.Status == TxExcluded {
		if commit.ExcludeReason == ExcludeMissingInputsOrSpent {
			return NeedsResign
		}
		pipelineLogger.Warn("commit excluded for unhandled reason", "reason", commit.ExcludeReason)
		return curr
	}

	return curr
}

func (p *Pipeline) commitmentAtIndex(index uint64) ([32]byte, bool, error) {
	kv := p.db.Family(storage.CFBlobIndex)
	raw, err := kv.Get(encodeUint64(index))
	if err == storage.ErrNotFound {
		return [32]byte{}, false, nil
	}
	if err != nil {
		return [32]byte{}, false, err
	}
	var commitment [32]byte
	copy(commitment[:], raw)
	return commitment, true, nil
}

func (p *Pipeline) loadBlob(commitment [32]byte) (BlobEntry, bool, error) {
	kv := p.db.Family(storage.CFBlobEntry)
	raw, err := kv.Get(commitment[:])
	if err == storage.ErrNotFound {
		return BlobEntry{}, false, nil
	}
	if err != nil {
		return BlobEntry{}, false, err
	}
	entry, err := decodeBlobEntry(raw)
	if err != nil {
		return BlobEntry{}, false, err
	}
	return entry, true, nil
}

func (p *Pipeline) saveBlob(entry BlobEntry) {
	kv := p.db.Family(storage.CFBlobEntry)
	payload, err := encodeBlobEntry(entry)
	if err != nil {
		pipelineLogger.Error("failed to encode blob entry", "err", err)
		return
	}
	if err := kv.Put(entry.Commitment[:], payload); err != nil {
		pipelineLogger.Error("failed to persist blob entry", "err", err)
	}
}
