// Package storage defines the narrow, column-family-oriented key-value
// interface the CSM and Writer pipelines are built on, adapted from the
// teacher's storage/database package (DBManager, DBEntryType).
package storage

import "errors"

// DBType selects the on-disk backend for a column family, mirroring the
// teacher's DBType constants (LevelDB / BadgerDB / MemoryDB).
type DBType string

const (
	LevelDB  DBType = "leveldb"
	BadgerDB DBType = "badger"
	MemoryDB DBType = "memory"
)

// ColumnFamily names every durable entity the node persists, the Go
// analogue of the teacher's DBEntryType enum.
type ColumnFamily string

const (
	CFSyncEvent       ColumnFamily = "sync_event"
	CFConsensusOutput ColumnFamily = "consensus_output"
	CFL2Block         ColumnFamily = "l2_block"
	CFL2BlockByHeight ColumnFamily = "l2_block_by_height"
	CFL1Manifest      ColumnFamily = "l1_manifest"
	CFBlobEntry       ColumnFamily = "blob_entry"
	CFBlobIndex       ColumnFamily = "blob_index"
	CFBroadcastTx     ColumnFamily = "broadcast_tx"
	CFBroadcastIndex  ColumnFamily = "broadcast_index"
)

// AllColumnFamilies is the fixed set of column families every backend must
// open up front, matching the teacher's STORE_COLUMN_FAMILIES convention.
var AllColumnFamilies = []ColumnFamily{
	CFSyncEvent, CFConsensusOutput, CFL2Block, CFL2BlockByHeight,
	CFL1Manifest, CFBlobEntry, CFBlobIndex, CFBroadcastTx, CFBroadcastIndex,
}

// ErrNotFound is returned by Get when the key is absent from the family.
var ErrNotFound = errors.New("storage: key not found")

// KV is a single point-lookup/point-write key-value surface scoped to one
// column family, the per-family slice of the teacher's DBManager interface.
type KV interface {
	Put(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Delete(key []byte) error
	NewIterator(prefix []byte) Iterator
	NewBatch() Batch
}

// Iterator walks, in ascending order, the column family's keys that begin
// with the given prefix (every key for a nil prefix), mirroring the teacher's goleveldb/badger
// iterator wrappers.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Batch stages multiple point writes/deletes for atomic application,
// matching the teacher's Batch interface in storage/database.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Write() error
	Reset()
	ValueSize() int
}

// Database opens and owns one KV per column family plus whole-database
// lifecycle (Close), the Go analogue of the teacher's DBManager.
type Database interface {
	// Family returns the KV surface for a column family. Every family in
	// AllColumnFamilies must be valid to pass here.
	Family(cf ColumnFamily) KV
	// Transact runs fn under a single database-wide lock. The LevelDB and
	// Badger backends re-run fn up to TransactionRetryCount (5) times while
	// it returns an error and then return its last error unchanged; the
	// memory backend runs fn once.
	Transact(fn func(tx Tx) error) error
	Close() error
	Type() DBType
}

// Tx is the view a Transact callback mutates through. Every backend hands
// out the same per-family KVs as Family, so each write takes effect
// immediately; writes are not batched and are not rolled back when fn
// returns an error.
type Tx interface {
	Family(cf ColumnFamily) KV
}

const TransactionRetryCount = 5
