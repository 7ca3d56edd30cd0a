package csm

import (
	"github.com/JekaMas/workerpool"

	"github.com/btcrollup/csmnode/storage"
	"github.com/btcrollup/csmnode/xlog"
)

var shimLogger = xlog.NewModuleLogger(xlog.SubmitShim)

// SubmitShim accepts events from many producers, journals each via the
// threadpool offload, and notifies the worker of the assigned index.
// Grounded on the original's CsmController/SubmitEventShim pair in
// crates/consensus-logic/src/ctl.rs: submit_event (blocking) and
// submit_event_async (offloaded) carry identical durability semantics,
// differing only in which goroutine performs the journal append.
type SubmitShim struct {
	journal *Journal
	worker  *Worker
	append  *storage.Shim
}

// NewSubmitShim wires journal appends through pool so cooperative callers
// never block on journal I/O directly, the Go analogue of wrapping
// SyncEventDb::write_sync_event in an OpShim.
func NewSubmitShim(journal *Journal, worker *Worker, pool *workerpool.WorkerPool) *SubmitShim {
	s := &SubmitShim{journal: journal, worker: worker}
	s.append = storage.NewShim("append_sync_event", pool, func(input interface{}) (interface{}, error) {
		return journal.Append(input.(SyncEvent))
	})
	return s
}

// Submit runs the journal append on the calling goroutine (bypassing the
// pool) and notifies the worker synchronously, the analogue of
// submit_event. Cancellation after the append has begun does not undo it:
// by the time Submit returns, the event is durable regardless of what the
// caller does next.
func (s *SubmitShim) Submit(event SyncEvent) (uint64, error) {
	v, err := s.append.Blocking(event)
	if err != nil {
		return 0, err
	}
	index := v.(uint64)
	s.notifyWorker(index)
	return index, nil
}

// SubmitAsync offloads the journal append to the threadpool and returns a
// channel the caller can await, the analogue of submit_event_async.
func (s *SubmitShim) SubmitAsync(event SyncEvent) <-chan storage.Result {
	raw := s.append.Chan(event)
	out := make(chan storage.Result, 1)
	go func() {
		res := <-raw
		if res.Err == nil {
			s.notifyWorker(res.Value.(uint64))
		}
		out <- res
	}()
	return out
}

func (s *SubmitShim) notifyWorker(index uint64) {
	s.worker.Submit(index)
}
