package csm

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/btcrollup/csmnode/storage"
	"github.com/btcrollup/csmnode/xlog"
)

var journalLogger = xlog.NewModuleLogger(xlog.EventJournal)

// Journal is the append-only, index-numbered, timestamped log of sync
// events, directly grounded on the original's SyncEventDB
// (crates/db/src/sync_event/db.rs): dense indices starting at 1, atomic
// append-and-assign, half-open range delete with the same three caller
// error kinds.
type Journal struct {
	db storage.Database
	// mu serializes append, clear_range and last_index against each other;
	// the point reads get/get_timestamp pass straight through to the KV.
	// The original guards its counter with a single RwLock<u64>.
	mu sync.Mutex
}

// NewJournal wraps db's sync_event column family as an event journal.
func NewJournal(db storage.Database) *Journal {
	return &Journal{db: db}
}

func indexKey(index uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], index)
	return k[:]
}

// Append assigns last_index()+1 to event, stores it atomically, and
// returns the new index. Fails with StorageFailure on I/O error.
func (j *Journal) Append(event SyncEvent) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	last, err := j.lastIndexLocked()
	if err != nil {
		return 0, err
	}
	next := last + 1

	rec := EventRecord{Index: next, TimestampMs: uint64(time.Now().UnixMilli()), Event: event}
	payload, err := encodeEventRecord(rec)
	if err != nil {
		return 0, wrapErr(StorageFailure, err, next)
	}

	kv := j.db.Family(storage.CFSyncEvent)
	if err := kv.Put(indexKey(next), payload); err != nil {
		return 0, wrapErr(StorageFailure, err, next)
	}
	return next, nil
}

// Get returns the event at index, or (nil, nil) if absent.
func (j *Journal) Get(index uint64) (SyncEvent, error) {
	rec, ok, err := j.getRecord(index)
	if err != nil || !ok {
		return nil, err
	}
	return rec.Event, nil
}

// GetTimestamp returns the timestamp recorded at index, or (0, false) if
// absent.
func (j *Journal) GetTimestamp(index uint64) (uint64, bool, error) {
	rec, ok, err := j.getRecord(index)
	if err != nil || !ok {
		return 0, false, err
	}
	return rec.TimestampMs, true, nil
}

func (j *Journal) getRecord(index uint64) (EventRecord, bool, error) {
	kv := j.db.Family(storage.CFSyncEvent)
	raw, err := kv.Get(indexKey(index))
	if err == storage.ErrNotFound {
		return EventRecord{}, false, nil
	}
	if err != nil {
		return EventRecord{}, false, wrapErr(StorageFailure, err, index)
	}
	rec, err := decodeEventRecord(index, raw)
	if err != nil {
		return EventRecord{}, false, wrapErr(StorageFailure, err, index)
	}
	return rec, true, nil
}

// LastIndex returns the highest assigned index, or (0, false) if the
// journal is empty.
func (j *Journal) LastIndex() (uint64, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	last, err := j.lastIndexLocked()
	if err != nil {
		return 0, false, err
	}
	return last, last > 0, nil
}

// lastIndexLocked scans every key of the column family for the highest
// present index. The original keeps a counter alongside the column family;
// this node derives the value on demand with a full forward scan instead of
// caching a redundant value, trading a scan linear in the number of stored
// events for one fewer piece of state to keep consistent across crashes.
func (j *Journal) lastIndexLocked() (uint64, error) {
	kv := j.db.Family(storage.CFSyncEvent)
	it := kv.NewIterator(nil)
	defer it.Release()

	var last uint64
	for it.Next() {
		idx := binary.BigEndian.Uint64(it.Key())
		if idx > last {
			last = idx
		}
	}
	if err := it.Error(); err != nil {
		return 0, wrapErr(StorageFailure, err)
	}
	return last, nil
}

// ClearRange deletes indices in [start, end). Fails with BadRange if
// start >= end, BeyondTip if end > last_index, EmptyJournal if the journal
// has no entries — the same three-way caller-error split as the
// original's clear_sync_event.
func (j *Journal) ClearRange(start, end uint64) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if start >= end {
		return newErr(BadRange, start, end)
	}

	last, err := j.lastIndexLocked()
	if err != nil {
		return err
	}
	if last == 0 {
		return newErr(EmptyJournal)
	}
	if end > last {
		return newErr(BeyondTip, end, last)
	}

	kv := j.db.Family(storage.CFSyncEvent)
	batch := kv.NewBatch()
	for i := start; i < end; i++ {
		if err := batch.Delete(indexKey(i)); err != nil {
			return wrapErr(StorageFailure, err, i)
		}
	}
	if err := batch.Write(); err != nil {
		return wrapErr(StorageFailure, err)
	}
	journalLogger.Info("cleared event range", "start", start, "end", end)
	return nil
}
