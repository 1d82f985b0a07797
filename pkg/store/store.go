// Package store is the thin typed layer over an ordered byte-keyed KV
// engine: five keyspaces (blocks, heights, validators, last_meta, txs)
// plus atomic batched writes, backed by github.com/syndtr/goleveldb,
// the same KV engine go-ethereum itself depends on.
package store

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sanketsaagar/lightchain-l1/pkg/block"
	"github.com/sanketsaagar/lightchain-l1/pkg/codec"
	"github.com/sanketsaagar/lightchain-l1/pkg/errs"
)

// wrapFatal reports a codec failure on already-persisted bytes as
// errs.ErrStore: by the time the store sees corrupted bytes it is a
// fatal condition, not the recoverable InvalidMessage a fresh wire
// decode failure would be.
func wrapFatal(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", errs.ErrStore, err)
}

// Keyspace prefixes. Each is a distinct, non-overlapping namespace.
var (
	prefixBlocks     = []byte("blocks/")
	prefixHeights    = []byte("heights/")
	prefixValidators = []byte("validators/")
	prefixLastMeta   = []byte("last_meta/")
	prefixTxs        = []byte("txs/")
)

// KV is the ordered byte-keyed key/value engine this package is built
// on: Get, atomic batched Write, prefix iteration, and Flush for
// durability.
type KV interface {
	Get(key []byte) ([]byte, error) // errs.ErrNotFound if absent
	NewBatch() Batch
	Write(b Batch) error
	IterPrefix(prefix []byte) Iterator
	Flush() error
	Close() error
}

// Batch accumulates a set of writes applied atomically by KV.Write.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
}

// Iterator walks key/value pairs in key order within a given prefix.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Store is the typed façade over KV that the Ledger uses.
type Store struct {
	kv KV
}

func New(kv KV) *Store { return &Store{kv: kv} }

func blockKey(hash common.Hash) []byte { return append(append([]byte{}, prefixBlocks...), hash.Bytes()...) }

func heightKey(h block.Height) []byte {
	key := append([]byte{}, prefixHeights...)
	return append(key, codec.EncodeLastMeta(block.LastMeta{Height: h})[:8]...)
}

func txKey(hash common.Hash) []byte { return append(append([]byte{}, prefixTxs...), hash.Bytes()...) }

// GetBlock returns the block stored under hash, or errs.ErrNotFound.
func (s *Store) GetBlock(hash common.Hash) (*block.Block, error) {
	raw, err := s.kv.Get(blockKey(hash))
	if err != nil {
		return nil, err
	}
	b, err := codec.DecodeBlock(raw)
	if err != nil {
		return nil, wrapFatal(err)
	}
	return b, nil
}

// GetHashByHeight returns the hash stored for height h, or errs.ErrNotFound.
func (s *Store) GetHashByHeight(h block.Height) (common.Hash, error) {
	raw, err := s.kv.Get(heightKey(h))
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(raw), nil
}

// GetLastMeta returns the persisted chain tip, or errs.ErrNotFound if
// the store is empty.
func (s *Store) GetLastMeta() (block.LastMeta, error) {
	raw, err := s.kv.Get(prefixLastMeta)
	if err != nil {
		return block.LastMeta{}, err
	}
	return codec.DecodeLastMeta(raw)
}

// GetValidators returns the persisted validator list.
func (s *Store) GetValidators() ([]common.Address, error) {
	raw, err := s.kv.Get(prefixValidators)
	if err != nil {
		return nil, err
	}
	return codec.DecodeValidators(raw)
}

// PutValidators persists the validator list outside of a block commit
// (only used once, at genesis).
func (s *Store) PutValidators(addrs []common.Address) error {
	b := s.kv.NewBatch()
	b.Put(prefixValidators, codec.EncodeValidators(addrs))
	return s.kv.Write(b)
}

// CommitBlock atomically writes blocks/<hash>, heights/<height> and
// last_meta in a single batch: a reader never observes one of these
// three updated without the others.
func (s *Store) CommitBlock(blk *block.Block, hash common.Hash) error {
	raw, err := codec.EncodeBlock(blk)
	if err != nil {
		return wrapFatal(err)
	}
	b := s.kv.NewBatch()
	b.Put(blockKey(hash), raw)
	b.Put(heightKey(blk.Header.Height), hash.Bytes())
	b.Put(prefixLastMeta, codec.EncodeLastMeta(block.LastMeta{Height: blk.Header.Height, Hash: hash}))
	if err := s.kv.Write(b); err != nil {
		return wrapFatal(err)
	}
	return s.kv.Flush()
}

// IterHeights returns an iterator over heights/ in ascending key order,
// used by reload_meta to find the highest contiguous height.
func (s *Store) IterHeights() Iterator { return s.kv.IterPrefix(prefixHeights) }

// PutTx optionally indexes a transaction's raw bytes by hash under the
// txs/ keyspace. Nothing in this tree reads that keyspace back.
func (s *Store) PutTx(hash common.Hash, raw []byte) error {
	b := s.kv.NewBatch()
	b.Put(txKey(hash), raw)
	return s.kv.Write(b)
}

func (s *Store) Close() error { return s.kv.Close() }
