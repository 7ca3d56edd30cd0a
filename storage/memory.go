package storage

import (
	"bytes"
	"sort"
	"sync"
)

// memoryDB is an in-process map-backed Database, the direct analogue of the
// teacher's MemDatabase used throughout storage/database for tests and
// ephemeral nodes.
type memoryDB struct {
	mu   sync.Mutex
	cfs  map[ColumnFamily]*memKV
}

// NewMemoryDatabase returns an in-memory Database, grounded on the teacher's
// NewMemDatabase()/NewMemoryDBManager() helpers.
func NewMemoryDatabase() Database {
	db := &memoryDB{cfs: make(map[ColumnFamily]*memKV)}
	for _, cf := range AllColumnFamilies {
		db.cfs[cf] = newMemKV()
	}
	return db
}

func (db *memoryDB) Family(cf ColumnFamily) KV {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.cfs[cf]
}

func (db *memoryDB) Transact(fn func(tx Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(memTx{db})
}

func (db *memoryDB) Close() error { return nil }
func (db *memoryDB) Type() DBType { return MemoryDB }

type memTx struct{ db *memoryDB }

func (t memTx) Family(cf ColumnFamily) KV { return t.db.cfs[cf] }

type memKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func newMemKV() *memKV { return &memKV{data: make(map[string][]byte)} }

func (m *memKV) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[string(key)] = cp
	return nil
}

func (m *memKV) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (m *memKV) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *memKV) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *memKV) NewIterator(prefix []byte) Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	return &memIterator{kv: m, keys: keys, pos: -1}
}

func (m *memKV) NewBatch() Batch {
	return &memBatch{kv: m}
}

type memIterator struct {
	kv   *memKV
	keys []string
	pos  int
}

func (it *memIterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *memIterator) Key() []byte { return []byte(it.keys[it.pos]) }

func (it *memIterator) Value() []byte {
	it.kv.mu.RLock()
	defer it.kv.mu.RUnlock()
	return it.kv.data[it.keys[it.pos]]
}

func (it *memIterator) Release()     {}
func (it *memIterator) Error() error { return nil }

type memBatch struct {
	kv   *memKV
	ops  []func(*memKV)
	size int
}

func (b *memBatch) Put(key, value []byte) error {
	k, v := append([]byte(nil), key...), append([]byte(nil), value...)
	b.ops = append(b.ops, func(kv *memKV) {
		kv.mu.Lock()
		defer kv.mu.Unlock()
		kv.data[string(k)] = v
	})
	b.size += len(k) + len(v)
	return nil
}

func (b *memBatch) Delete(key []byte) error {
	k := append([]byte(nil), key...)
	b.ops = append(b.ops, func(kv *memKV) {
		kv.mu.Lock()
		defer kv.mu.Unlock()
		delete(kv.data, string(k))
	})
	b.size += len(k)
	return nil
}

func (b *memBatch) Write() error {
	for _, op := range b.ops {
		op(b.kv)
	}
	return nil
}

func (b *memBatch) Reset() {
	b.ops = nil
	b.size = 0
}

func (b *memBatch) ValueSize() int { return b.size }
