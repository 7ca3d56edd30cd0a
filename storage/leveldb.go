package storage

import (
	"path/filepath"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	lderrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/btcrollup/csmnode/xlog"
)

var levelDBLogger = xlog.NewModuleLogger(xlog.StorageDatabase)

// levelDatabase opens one physical goleveldb handle per column family under
// a shared root directory, directly adapted from the teacher's
// NewLDBDatabase / getLDBOptions in storage/database/leveldb_database.go.
type levelDatabase struct {
	mu  sync.Mutex
	cfs map[ColumnFamily]*levelKV
}

func getLDBOptions(cacheSizeMB, numHandles int) *opt.Options {
	if cacheSizeMB < 16 {
		cacheSizeMB = 16
	}
	if numHandles < 16 {
		numHandles = 16
	}
	return &opt.Options{
		OpenFilesCacheCapacity: numHandles,
		BlockCacheCapacity:     cacheSizeMB / 2 * opt.MiB,
		WriteBuffer:            cacheSizeMB / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	}
}

// NewLevelDBDatabase opens (or creates) a LevelDB-backed Database rooted at
// dir, one subdirectory per column family.
func NewLevelDBDatabase(dir string, cacheSizeMB, numHandles int) (Database, error) {
	db := &levelDatabase{cfs: make(map[ColumnFamily]*levelKV, len(AllColumnFamilies))}
	opts := getLDBOptions(cacheSizeMB, numHandles)

	for _, cf := range AllColumnFamilies {
		path := filepath.Join(dir, string(cf))
		ldb, err := leveldb.OpenFile(path, opts)
		if _, corrupted := err.(*lderrors.ErrCorrupted); corrupted {
			ldb, err = leveldb.RecoverFile(path, nil)
		}
		if err != nil {
			return nil, err
		}
		db.cfs[cf] = &levelKV{db: ldb}
		levelDBLogger.Info("opened leveldb column family", "cf", cf, "path", path)
	}
	return db, nil
}

func (db *levelDatabase) Family(cf ColumnFamily) KV { return db.cfs[cf] }

func (db *levelDatabase) Transact(fn func(tx Tx) error) error {
	// goleveldb has no native optimistic-transaction primitive; the node
	// serializes Transact calls behind a single mutex instead. This gives
	// mutual exclusion between calls, not atomicity across keys: fn writes
	// straight to the column families, and a failed attempt's writes stay.
	db.mu.Lock()
	defer db.mu.Unlock()

	var attempt error
	for i := 0; i < TransactionRetryCount; i++ {
		attempt = fn(levelTx{db})
		if attempt == nil {
			return nil
		}
	}
	return attempt
}

func (db *levelDatabase) Close() error {
	for cf, kv := range db.cfs {
		if err := kv.db.Close(); err != nil {
			levelDBLogger.Error("failed to close column family", "cf", cf, "err", err)
			return err
		}
	}
	return nil
}

func (db *levelDatabase) Type() DBType { return LevelDB }

type levelTx struct{ db *levelDatabase }

func (t levelTx) Family(cf ColumnFamily) KV { return t.db.cfs[cf] }

type levelKV struct {
	db *leveldb.DB
}

func (k *levelKV) Put(key, value []byte) error { return k.db.Put(key, value, nil) }

func (k *levelKV) Get(key []byte) ([]byte, error) {
	v, err := k.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

func (k *levelKV) Has(key []byte) (bool, error) { return k.db.Has(key, nil) }
func (k *levelKV) Delete(key []byte) error      { return k.db.Delete(key, nil) }

func (k *levelKV) NewIterator(prefix []byte) Iterator {
	return &levelIterator{it: k.db.NewIterator(util.BytesPrefix(prefix), nil)}
}

func (k *levelKV) NewBatch() Batch {
	return &levelBatch{db: k.db, batch: new(leveldb.Batch)}
}

type levelIterator struct {
	it iterator
}

// iterator narrows goleveldb's iterator.Iterator to what we consume, kept
// as its own interface so levelIterator doesn't leak the goleveldb type.
type iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

func (l *levelIterator) Next() bool     { return l.it.Next() }
func (l *levelIterator) Key() []byte    { return l.it.Key() }
func (l *levelIterator) Value() []byte  { return l.it.Value() }
func (l *levelIterator) Release()       { l.it.Release() }
func (l *levelIterator) Error() error   { return l.it.Error() }

type levelBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *levelBatch) Put(key, value []byte) error { b.batch.Put(key, value); return nil }
func (b *levelBatch) Delete(key []byte) error      { b.batch.Delete(key); return nil }
func (b *levelBatch) Write() error                 { return b.db.Write(b.batch, nil) }
func (b *levelBatch) Reset()                       { b.batch.Reset() }
func (b *levelBatch) ValueSize() int               { return b.batch.Len() }
