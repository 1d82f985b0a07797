// Package mempool implements the pending transaction pool: admit,
// drain and remove over a priority queue ordered (fee-descending,
// nonce-ascending, arrival-ascending). There is no parallel execution
// engine here; this chain has no smart-contract execution, so the pool
// only ever needs to pick an ordered batch for the next proposal.
package mempool

import (
	"container/heap"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/sanketsaagar/lightchain-l1/pkg/errs"
)

// Config bounds the pool's admission policy.
type Config struct {
	MaxSize int // reject-new once this many transactions are pending
}

func DefaultConfig() *Config { return &Config{MaxSize: 10000} }

// entry wraps a transaction with the metadata the priority order and
// removal bookkeeping need.
type entry struct {
	tx       *types.Transaction
	hash     common.Hash
	from     common.Address
	gasPrice uint64 // wei; taken from tx.GasPrice()
	nonce    uint64
	arrival  uint64 // monotonic admission sequence, used as the final tie-break
	index    int    // heap.Interface bookkeeping
}

// priceHeap is a max-heap ordered by (fee desc, nonce asc, arrival asc).
type priceHeap []*entry

func (h priceHeap) Len() int { return len(h) }

func (h priceHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.gasPrice != b.gasPrice {
		return a.gasPrice > b.gasPrice
	}
	if a.nonce != b.nonce {
		return a.nonce < b.nonce
	}
	return a.arrival < b.arrival
}

func (h priceHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}

func (h *priceHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *priceHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// TxPool is the priority-ordered pending transaction set.
type TxPool struct {
	mu sync.RWMutex

	cfg *Config

	byHash map[common.Hash]*entry
	pq     priceHeap
	seq    uint64
}

func New(cfg *Config) *TxPool {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &TxPool{cfg: cfg, byHash: make(map[common.Hash]*entry)}
}

// Admit verifies tx's signature, rejects duplicates and full pools, and
// enqueues it. Errors are one of errs.ErrInvalidTx, errs.ErrDuplicateTx,
// errs.ErrPoolFull, all transient.
func (p *TxPool) Admit(tx *types.Transaction) error {
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidTx, err)
	}

	hash := tx.Hash()

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byHash[hash]; exists {
		return errs.ErrDuplicateTx
	}
	if len(p.byHash) >= p.cfg.MaxSize {
		return errs.ErrPoolFull
	}

	e := &entry{
		tx:       tx,
		hash:     hash,
		from:     from,
		gasPrice: tx.GasPrice().Uint64(),
		nonce:    tx.Nonce(),
		arrival:  p.seq,
	}
	p.seq++
	p.byHash[hash] = e
	heap.Push(&p.pq, e)
	return nil
}

// Drain removes and returns up to maxCount transactions respecting
// maxGas, in priority order. Remaining transactions stay pooled,
// untouched, for the next height.
func (p *TxPool) Drain(maxCount int, maxGas uint64) []*types.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()

	var (
		out     []*types.Transaction
		gasUsed uint64
		skipped []*entry
	)

	for p.pq.Len() > 0 && len(out) < maxCount {
		e := heap.Pop(&p.pq).(*entry)
		gas := e.tx.Gas()
		if gasUsed+gas > maxGas {
			skipped = append(skipped, e) // doesn't fit this block; try the next candidate
			continue
		}
		out = append(out, e.tx)
		gasUsed += gas
		delete(p.byHash, e.hash)
	}
	for _, e := range skipped {
		heap.Push(&p.pq, e)
	}
	return out
}

// RemoveCommitted purges hashes that were included in a committed
// block, whether or not they were drained from this pool (they may
// have arrived via a proposal from another validator).
func (p *TxPool) RemoveCommitted(hashes []common.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range hashes {
		e, ok := p.byHash[h]
		if !ok {
			continue
		}
		heap.Remove(&p.pq, e.index)
		delete(p.byHash, h)
	}
}

// Len returns the number of pending transactions.
func (p *TxPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byHash)
}

// Has reports whether hash is currently pending.
func (p *TxPool) Has(hash common.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byHash[hash]
	return ok
}
