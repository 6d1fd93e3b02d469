package storagemgr

import (
	"github.com/cockroachdb/pebble"
	"github.com/sirupsen/logrus"
)

var _ Storage = (*PebbleStorage)(nil)

type PebbleStorage struct {
	db     *pebble.DB
	wo     *pebble.WriteOptions
	logger logrus.FieldLogger
}

func NewPebble(path string, opts *pebble.Options, wo *pebble.WriteOptions, logger logrus.FieldLogger) (*PebbleStorage, error) {
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, err
	}
	return &PebbleStorage{db: db, wo: wo, logger: logger}, nil
}

func (p *PebbleStorage) Get(key []byte) []byte {
	v, closer, err := p.db.Get(key)
	if err != nil {
		if err != pebble.ErrNotFound {
			p.logger.Errorf("pebble get key %x failed: %v", key, err)
		}
		return nil
	}
	defer closer.Close()
	return append([]byte{}, v...)
}

func (p *PebbleStorage) Has(key []byte) bool {
	return p.Get(key) != nil
}

func (p *PebbleStorage) Put(key, value []byte) {
	if len(value) == 0 {
		p.Delete(key)
		return
	}
	if err := p.db.Set(key, value, p.wo); err != nil {
		panic(err)
	}
}

func (p *PebbleStorage) Delete(key []byte) {
	if err := p.db.Delete(key, p.wo); err != nil {
		panic(err)
	}
}

func (p *PebbleStorage) NewBatch() Batch {
	return &pebbleBatch{batch: p.db.NewBatch(), wo: p.wo}
}

func (p *PebbleStorage) Close() error {
	return p.db.Close()
}

type pebbleBatch struct {
	batch *pebble.Batch
	wo    *pebble.WriteOptions
}

func (b *pebbleBatch) Put(key, value []byte) {
	if len(value) == 0 {
		b.Delete(key)
		return
	}
	if err := b.batch.Set(key, value, nil); err != nil {
		panic(err)
	}
}

func (b *pebbleBatch) Delete(key []byte) {
	if err := b.batch.Delete(key, nil); err != nil {
		panic(err)
	}
}

func (b *pebbleBatch) Commit() {
	if err := b.batch.Commit(b.wo); err != nil {
		panic(err)
	}
}

func (b *pebbleBatch) Size() int {
	return b.batch.Len()
}

func (b *pebbleBatch) Reset() {
	b.batch.Reset()
}
