package storage

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger"

	"github.com/btcrollup/csmnode/xlog"
)

var badgerLogger = xlog.NewModuleLogger(xlog.StorageDatabase)

// badgerDatabase opens one badger.DB per column family, adapted from the
// teacher's badgerDB/NewBadgerDB in storage/database/badger_database.go
// (including the background value-log GC ticker).
type badgerDatabase struct {
	mu   sync.Mutex
	cfs  map[ColumnFamily]*badgerKV
	quit chan struct{}
}

// NewBadgerDB opens (or creates) a badger-backed Database rooted at dir, one
// subdirectory per column family, with a periodic value-log GC goroutine per
// family matching the teacher's runValueLogGC.
func NewBadgerDB(dir string) (Database, error) {
	db := &badgerDatabase{
		cfs:  make(map[ColumnFamily]*badgerKV, len(AllColumnFamilies)),
		quit: make(chan struct{}),
	}

	for _, cf := range AllColumnFamilies {
		path := filepath.Join(dir, string(cf))
		opts := badger.DefaultOptions
		opts.Dir = path
		opts.ValueDir = path

		bdb, err := badger.Open(opts)
		if err != nil {
			return nil, err
		}
		kv := &badgerKV{db: bdb}
		db.cfs[cf] = kv
		badgerLogger.Info("opened badger column family", "cf", cf, "path", path)

		go db.runValueLogGC(kv, 10*time.Minute)
	}
	return db, nil
}

// runValueLogGC periodically reclaims badger value-log space, the direct
// analogue of the teacher's ticker-driven RunValueLogGC loop.
func (db *badgerDatabase) runValueLogGC(kv *badgerKV, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		again:
			err := kv.db.RunValueLogGC(0.5)
			if err == nil {
				goto again
			}
		case <-db.quit:
			return
		}
	}
}

func (db *badgerDatabase) Family(cf ColumnFamily) KV { return db.cfs[cf] }

func (db *badgerDatabase) Transact(fn func(tx Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var attempt error
	for i := 0; i < TransactionRetryCount; i++ {
		attempt = fn(badgerTx{db})
		if attempt == nil {
			return nil
		}
	}
	return attempt
}

func (db *badgerDatabase) Close() error {
	close(db.quit)
	for cf, kv := range db.cfs {
		if err := kv.db.Close(); err != nil {
			badgerLogger.Error("failed to close column family", "cf", cf, "err", err)
			return err
		}
	}
	return nil
}

func (db *badgerDatabase) Type() DBType { return BadgerDB }

type badgerTx struct{ db *badgerDatabase }

func (t badgerTx) Family(cf ColumnFamily) KV { return t.db.cfs[cf] }

type badgerKV struct {
	db *badger.DB
}

func (k *badgerKV) Put(key, value []byte) error {
	return k.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (k *badgerKV) Get(key []byte) ([]byte, error) {
	var out []byte
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			out = append([]byte(nil), v...)
			return nil
		})
	})
	return out, err
}

func (k *badgerKV) Has(key []byte) (bool, error) {
	err := k.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	return err == nil, err
}

func (k *badgerKV) Delete(key []byte) error {
	return k.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (k *badgerKV) NewIterator(prefix []byte) Iterator {
	txn := k.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	return &badgerIterator{txn: txn, it: it, prefix: prefix, started: false}
}

func (k *badgerKV) NewBatch() Batch {
	return &badgerBatch{db: k.db, wb: k.db.NewWriteBatch()}
}

type badgerIterator struct {
	txn     *badger.Txn
	it      *badger.Iterator
	prefix  []byte
	started bool
	val     []byte
}

func (it *badgerIterator) Next() bool {
	if !it.started {
		it.it.Seek(it.prefix)
		it.started = true
	} else {
		it.it.Next()
	}
	if !it.it.ValidForPrefix(it.prefix) {
		return false
	}
	val, err := it.it.Item().ValueCopy(nil)
	if err != nil {
		return false
	}
	it.val = val
	return true
}

func (it *badgerIterator) Key() []byte   { return it.it.Item().KeyCopy(nil) }
func (it *badgerIterator) Value() []byte { return it.val }
func (it *badgerIterator) Release()      { it.it.Close(); it.txn.Discard() }
func (it *badgerIterator) Error() error  { return nil }

type badgerBatch struct {
	db   *badger.DB
	wb   *badger.WriteBatch
	size int
	dels [][]byte
}

func (b *badgerBatch) Put(key, value []byte) error {
	b.size += len(key) + len(value)
	return b.wb.Set(append([]byte(nil), key...), append([]byte(nil), value...))
}

func (b *badgerBatch) Delete(key []byte) error {
	b.size += len(key)
	return b.wb.Delete(append([]byte(nil), key...))
}

func (b *badgerBatch) Write() error { return b.wb.Flush() }

func (b *badgerBatch) Reset() {
	b.wb.Cancel()
	b.wb = b.db.NewWriteBatch()
	b.size = 0
}

func (b *badgerBatch) ValueSize() int { return b.size }
