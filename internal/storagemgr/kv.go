package storagemgr

// Storage is the byte level key value store backing the state ledger.
// Put with an empty value behaves like Delete.
type Storage interface {
	Get(key []byte) []byte
	Has(key []byte) bool
	Put(key, value []byte)
	Delete(key []byte)
	NewBatch() Batch
	Close() error
}

// Batch buffers writes until Commit applies them atomically
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Commit()
	Size() int
	Reset()
}
