// Package ledger is the in-memory façade over Store: LRU-cached block
// lookups, genesis/append semantics and the reload-on-restart scan.
// The Ledger is the sole owner of the Store handle and the sole writer
// into it.
package ledger

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sanketsaagar/lightchain-l1/pkg/block"
	"github.com/sanketsaagar/lightchain-l1/pkg/codec"
	"github.com/sanketsaagar/lightchain-l1/pkg/errs"
	"github.com/sanketsaagar/lightchain-l1/pkg/store"
	"github.com/sanketsaagar/lightchain-l1/pkg/validators"
)

// DefaultCacheSize is the suggested capacity for both LRU caches.
const DefaultCacheSize = 1024

// Ledger owns the Store and two coherent LRU caches (blocks-by-hash,
// hash-by-height): a write updates both the Store and the caches within
// the same critical section, so a cache hit and a Store read always
// agree.
type Ledger struct {
	mu sync.RWMutex

	st *store.Store

	blocksByHash  *lru.Cache // common.Hash -> *block.Block
	hashByHeight  *lru.Cache // block.Height -> common.Hash
	validatorSet  *validators.Set

	last block.LastMeta
	has  bool // true once any block has been persisted
}

// Open wraps st with fresh LRU caches, sized n (use DefaultCacheSize
// unless a caller has a specific reason not to).
func Open(st *store.Store, n int) (*Ledger, error) {
	if n <= 0 {
		n = DefaultCacheSize
	}
	blocksByHash, err := lru.New(n)
	if err != nil {
		return nil, fmt.Errorf("%w: block cache: %v", errs.ErrStore, err)
	}
	hashByHeight, err := lru.New(n)
	if err != nil {
		return nil, fmt.Errorf("%w: height cache: %v", errs.ErrStore, err)
	}
	l := &Ledger{st: st, blocksByHash: blocksByHash, hashByHeight: hashByHeight}
	if err := l.reloadMeta(); err != nil {
		return nil, err
	}
	if addrs, err := st.GetValidators(); err == nil {
		l.validatorSet = validators.New(addrs)
	} else if err != errs.ErrNotFound {
		return nil, fmt.Errorf("%w: load validators: %v", errs.ErrStore, err)
	}
	return l, nil
}

// reloadMeta scans heights/ in key order for the highest contiguous
// height and sets LastMeta accordingly: a crash between writing
// blocks/<h> and last_meta leaves h orphaned but harmless, and the
// scan simply stops one short of it.
func (l *Ledger) reloadMeta() error {
	it := l.st.IterHeights()
	defer it.Release()

	var highest block.Height
	var highestHash common.Hash
	var seenAny bool
	var expected block.Height

	for it.Next() {
		h, err := heightFromKey(it.Key())
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrStore, err)
		}
		if seenAny && h != expected {
			break // gap: stop at the last contiguous height
		}
		highest = h
		highestHash = common.BytesToHash(it.Value())
		seenAny = true
		expected = h + 1
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStore, err)
	}
	if seenAny {
		l.last = block.LastMeta{Height: highest, Hash: highestHash}
		l.has = true
	}
	return nil
}

func heightFromKey(key []byte) (block.Height, error) {
	// heights/<8-byte BE height>; the prefix length is fixed at 8 ("heights/").
	const prefixLen = 8
	if len(key) != prefixLen+8 {
		return 0, fmt.Errorf("malformed height key of length %d", len(key))
	}
	b := key[prefixLen:]
	var h uint64
	for _, c := range b {
		h = h<<8 | uint64(c)
	}
	return h, nil
}

// AddGenesisBlock persists b at height 0, failing with
// errs.ErrAlreadyInit if any block already exists.
func (l *Ledger) AddGenesisBlock(b *block.Block) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.has {
		return common.Hash{}, errs.ErrAlreadyInit
	}
	if b.Header.Height != 0 {
		return common.Hash{}, errs.ErrBadHeight
	}
	hash := codec.HashBlock(b)
	if err := l.st.CommitBlock(b, hash); err != nil {
		return common.Hash{}, err
	}
	l.blocksByHash.Add(hash, b)
	l.hashByHeight.Add(b.Header.Height, hash)
	l.last = block.LastMeta{Height: 0, Hash: hash}
	l.has = true
	return hash, nil
}

// AddBlock extends the chain with b, failing with errs.ErrBadParent if
// b does not strictly extend the current tip (invariant 1/2).
func (l *Ledger) AddBlock(b *block.Block) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.has {
		return common.Hash{}, errs.ErrBadParent
	}
	if b.Header.ParentHash != l.last.Hash || b.Header.Height != l.last.Height+1 {
		return common.Hash{}, errs.ErrBadParent
	}
	hash := codec.HashBlock(b)
	if err := l.st.CommitBlock(b, hash); err != nil {
		return common.Hash{}, err
	}
	l.blocksByHash.Add(hash, b)
	l.hashByHeight.Add(b.Header.Height, hash)
	l.last = block.LastMeta{Height: b.Header.Height, Hash: hash}
	return hash, nil
}

// GetBlock returns the block with the given hash, cache-first with
// Store fallback; ok is false if absent.
func (l *Ledger) GetBlock(hash common.Hash) (*block.Block, bool) {
	if v, ok := l.blocksByHash.Get(hash); ok {
		return v.(*block.Block), true
	}
	b, err := l.st.GetBlock(hash)
	if err != nil {
		return nil, false
	}
	l.blocksByHash.Add(hash, b)
	return b, true
}

// GetBlockByHeight returns the block at height h, cache-first with
// Store fallback; ok is false if absent.
func (l *Ledger) GetBlockByHeight(h block.Height) (*block.Block, bool) {
	var hash common.Hash
	if v, ok := l.hashByHeight.Get(h); ok {
		hash = v.(common.Hash)
	} else {
		var err error
		hash, err = l.st.GetHashByHeight(h)
		if err != nil {
			return nil, false
		}
		l.hashByHeight.Add(h, hash)
	}
	return l.GetBlock(hash)
}

// LastMeta returns the current chain tip.
func (l *Ledger) LastMeta() (block.LastMeta, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last, l.has
}

// AddValidators persists the (single, chain-lifetime) validator set.
func (l *Ledger) AddValidators(addrs []common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.st.PutValidators(addrs); err != nil {
		return err
	}
	l.validatorSet = validators.New(addrs)
	return nil
}

// ValidatorsAt returns the validator set for height h. The chain uses
// a single validator set for its whole lifetime, so any h at or below
// the tip returns the same set.
func (l *Ledger) ValidatorsAt(h block.Height) (*validators.Set, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.validatorSet == nil {
		return nil, errs.ErrNotFound
	}
	if l.has && h > l.last.Height {
		return nil, errs.ErrBadHeight
	}
	return l.validatorSet, nil
}

func (l *Ledger) Close() error { return l.st.Close() }
