package csm

import (
	"encoding/binary"
	"sync"

	"github.com/btcrollup/csmnode/storage"
)

// StateStore holds durable checkpoints of ConsensusOutput keyed by event
// index: idempotent overwrite rejection, gap rejection, last-index lookup.
// Grounded on the original's ConsensusStateStore/ConsensusStateProvider
// trait pair in crates/db/src/traits.rs.
type StateStore struct {
	db storage.Database
	mu sync.Mutex
}

func NewStateStore(db storage.Database) *StateStore {
	return &StateStore{db: db}
}

// WriteOutput persists output at index. Fails with Overwrite if index is
// already present, Gap if index > 0 and index-1 is absent. On success,
// last_index advances to index.
func (s *StateStore) WriteOutput(index uint64, output ConsensusOutput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kv := s.db.Family(storage.CFConsensusOutput)

	exists, err := kv.Has(indexKey(index))
	if err != nil {
		return wrapErr(StorageFailure, err, index)
	}
	if exists {
		return newErr(Overwrite, index)
	}

	if index > 0 {
		prevExists, err := kv.Has(indexKey(index - 1))
		if err != nil {
			return wrapErr(StorageFailure, err, index)
		}
		if !prevExists {
			return newErr(Gap, index)
		}
	}

	payload, err := encodeConsensusOutput(output)
	if err != nil {
		return wrapErr(StorageFailure, err, index)
	}
	if err := kv.Put(indexKey(index), payload); err != nil {
		return wrapErr(StorageFailure, err, index)
	}
	return nil
}

// GetOutput returns the output persisted at index, or (output, false) if
// absent.
func (s *StateStore) GetOutput(index uint64) (ConsensusOutput, bool, error) {
	kv := s.db.Family(storage.CFConsensusOutput)
	raw, err := kv.Get(indexKey(index))
	if err == storage.ErrNotFound {
		return ConsensusOutput{}, false, nil
	}
	if err != nil {
		return ConsensusOutput{}, false, wrapErr(StorageFailure, err, index)
	}
	out, err := decodeConsensusOutput(raw)
	if err != nil {
		return ConsensusOutput{}, false, wrapErr(StorageFailure, err, index)
	}
	return out, true, nil
}

// GetActions returns just the actions persisted at index, or nil if the
// index is absent.
func (s *StateStore) GetActions(index uint64) ([]SyncAction, bool, error) {
	out, ok, err := s.GetOutput(index)
	if err != nil || !ok {
		return nil, ok, err
	}
	return out.Actions, true, nil
}

// LastIndex returns the highest index with a persisted output, failing
// with NotBootstrapped if nothing has ever been written.
func (s *StateStore) LastIndex() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kv := s.db.Family(storage.CFConsensusOutput)
	it := kv.NewIterator(nil)
	defer it.Release()

	found := false
	var last uint64
	for it.Next() {
		idx := binary.BigEndian.Uint64(it.Key())
		if !found || idx > last {
			last = idx
			found = true
		}
	}
	if err := it.Error(); err != nil {
		return 0, wrapErr(StorageFailure, err)
	}
	if !found {
		return 0, newErr(NotBootstrapped)
	}
	return last, nil
}
