package storage

import (
	"github.com/JekaMas/workerpool"

	"github.com/btcrollup/csmnode/xlog"
)

var execLogger = xlog.NewModuleLogger(xlog.StorageExec)

// Op is a blocking database operation: take an input, return an output or an
// error. It is the Go analogue of the closure wrapped by the teacher's
// OpShim<T, R> in crates/storage/src/exec.rs.
type Op func(input interface{}) (interface{}, error)

// Result carries the outcome of an operation run through a Shim, delivered
// over a channel to callers that asked for the _chan surface.
type Result struct {
	Value interface{}
	Err   error
}

// Shim offloads a single named operation onto a shared worker pool and
// exposes it through the three surfaces every storage operation needs:
// a blocking call, an awaitable call, and a channel-returning call. This
// mirrors the teacher's OpShim/inst_ops! macro, which generates
// foo_blocking/foo_async/foo_chan trios from one closure.
type Shim struct {
	name string
	pool *workerpool.WorkerPool
	op   Op
}

// NewShim wraps op so it runs on pool under name, the Go equivalent of
// OpShim::wrap(pool, closure).
func NewShim(name string, pool *workerpool.WorkerPool, op Op) *Shim {
	return &Shim{name: name, pool: pool, op: op}
}

// Blocking runs the operation on the caller's goroutine, skipping the pool
// entirely, the analogue of OpShim::exec_blocking.
func (s *Shim) Blocking(input interface{}) (interface{}, error) {
	return s.op(input)
}

// Async submits the operation to the pool and blocks the caller until it
// completes, the analogue of OpShim::exec_async (await on the oneshot).
func (s *Shim) Async(input interface{}) (interface{}, error) {
	res := <-s.Chan(input)
	return res.Value, res.Err
}

// Chan submits the operation to the pool and returns immediately with a
// channel the caller can select on, the analogue of OpShim::exec_chan.
func (s *Shim) Chan(input interface{}) <-chan Result {
	out := make(chan Result, 1)
	s.pool.Submit(func() {
		v, err := s.op(input)
		if err != nil {
			execLogger.Warn("storage op failed", "op", s.name, "err", err)
		}
		out <- Result{Value: v, Err: err}
	})
	return out
}

// NewPool returns a worker pool sized for database offload, shared across
// every Shim the node registers.
func NewPool(size int) *workerpool.WorkerPool {
	if size <= 0 {
		size = 4
	}
	return workerpool.New(size)
}

// TransactWithRetry runs fn against db up to TransactionRetryCount times,
// the Go analogue of rockbound's with_optimistic_txn(TransactionRetry::Count(5), ...)
// used by the teacher's broadcaster store. Retries are plain re-invocations
// of db.Transact rather than MVCC conflict replays, since the embedded
// backends here (LevelDB, Badger, memory) serialize Transact under a single
// mutex instead of exposing row-level conflict detection. The LevelDB and
// Badger Transact already re-run fn up to TransactionRetryCount times, so
// on those backends fn can run up to 25 times.
func TransactWithRetry(db Database, fn func(tx Tx) error) error {
	var lastErr error
	for i := 0; i < TransactionRetryCount; i++ {
		lastErr = db.Transact(fn)
		if lastErr == nil {
			return nil
		}
		execLogger.Warn("transaction attempt failed", "attempt", i+1, "err", lastErr)
	}
	return lastErr
}
