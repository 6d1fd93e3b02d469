package storagemgr

import (
	"sync"
)

var _ Storage = (*MemoryStorage)(nil)

type MemoryStorage struct {
	lock sync.RWMutex
	db   map[string][]byte
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{db: make(map[string][]byte)}
}

func (m *MemoryStorage) Get(key []byte) []byte {
	m.lock.RLock()
	defer m.lock.RUnlock()
	v, ok := m.db[string(key)]
	if !ok {
		return nil
	}
	return append([]byte{}, v...)
}

func (m *MemoryStorage) Has(key []byte) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	_, ok := m.db[string(key)]
	return ok
}

func (m *MemoryStorage) Put(key, value []byte) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.put(key, value)
}

func (m *MemoryStorage) put(key, value []byte) {
	if len(value) == 0 {
		delete(m.db, string(key))
		return
	}
	m.db[string(key)] = append([]byte{}, value...)
}

func (m *MemoryStorage) Delete(key []byte) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.db, string(key))
}

func (m *MemoryStorage) NewBatch() Batch {
	return &memoryBatch{db: m}
}

func (m *MemoryStorage) Close() error {
	return nil
}

type memoryOp struct {
	key   []byte
	value []byte
}

type memoryBatch struct {
	db  *MemoryStorage
	ops []memoryOp
}

func (b *memoryBatch) Put(key, value []byte) {
	b.ops = append(b.ops, memoryOp{key: append([]byte{}, key...), value: append([]byte{}, value...)})
}

func (b *memoryBatch) Delete(key []byte) {
	b.ops = append(b.ops, memoryOp{key: append([]byte{}, key...)})
}

func (b *memoryBatch) Commit() {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()
	for _, op := range b.ops {
		b.db.put(op.key, op.value)
	}
	b.ops = nil
}

func (b *memoryBatch) Size() int {
	size := 0
	for _, op := range b.ops {
		size += len(op.key) + len(op.value)
	}
	return size
}

func (b *memoryBatch) Reset() {
	b.ops = nil
}
