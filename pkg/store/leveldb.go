package store

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/sanketsaagar/lightchain-l1/pkg/errs"
)

// LevelKV implements KV on top of goleveldb, the same engine the
// tolchain reference storage layer and go-ethereum itself depend on.
type LevelKV struct {
	db *leveldb.DB
}

// OpenLevelKV opens (or creates) a LevelDB database at path.
func OpenLevelKV(path string) (*LevelKV, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open leveldb %q: %v", errs.ErrStore, path, err)
	}
	return &LevelKV{db: db}, nil
}

func (l *LevelKV) Get(key []byte) ([]byte, error) {
	val, err := l.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStore, err)
	}
	return val, nil
}

func (l *LevelKV) NewBatch() Batch { return &levelBatch{b: new(leveldb.Batch)} }

func (l *LevelKV) Write(b Batch) error {
	lb, ok := b.(*levelBatch)
	if !ok {
		return fmt.Errorf("%w: foreign batch type", errs.ErrStore)
	}
	if err := l.db.Write(lb.b, nil); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStore, err)
	}
	return nil
}

func (l *LevelKV) IterPrefix(prefix []byte) Iterator {
	return &levelIterator{it: l.db.NewIterator(util.BytesPrefix(prefix), nil)}
}

func (l *LevelKV) Flush() error { return nil } // goleveldb Write() is already durable on return

func (l *LevelKV) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStore, err)
	}
	return nil
}

type levelBatch struct{ b *leveldb.Batch }

func (b *levelBatch) Put(key, value []byte) { b.b.Put(key, value) }
func (b *levelBatch) Delete(key []byte)     { b.b.Delete(key) }

type levelIterator struct{ it iterator.Iterator }

func (i *levelIterator) Next() bool     { return i.it.Next() }
func (i *levelIterator) Key() []byte    { return i.it.Key() }
func (i *levelIterator) Value() []byte  { return i.it.Value() }
func (i *levelIterator) Release()       { i.it.Release() }
func (i *levelIterator) Error() error   { return i.it.Error() }
