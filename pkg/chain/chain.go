// Package chain is a thin Ledger wrapper exposing last-block/insert-block
// operations and fanning a BlockCommitted event out over the Bus on
// every successful commit. Chain is the single writer into the Ledger.
package chain

import (
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sanketsaagar/lightchain-l1/pkg/block"
	"github.com/sanketsaagar/lightchain-l1/pkg/bus"
	"github.com/sanketsaagar/lightchain-l1/pkg/codec"
	"github.com/sanketsaagar/lightchain-l1/pkg/errs"
	"github.com/sanketsaagar/lightchain-l1/pkg/ledger"
)

// Chain wraps a Ledger and publishes commit events.
type Chain struct {
	ledger *ledger.Ledger
	bus    *bus.Bus
	log    *log.Logger
}

func New(l *ledger.Ledger, b *bus.Bus, logger *log.Logger) *Chain {
	return &Chain{ledger: l, bus: b, log: logger}
}

// LastBlock returns the current tip, or ok=false if the chain has no
// genesis block yet.
func (c *Chain) LastBlock() (*block.Block, bool) {
	meta, ok := c.ledger.LastMeta()
	if !ok {
		return nil, false
	}
	return c.ledger.GetBlock(meta.Hash)
}

// LastMeta returns the persisted tip's (height, hash) tuple.
func (c *Chain) LastMeta() (block.LastMeta, bool) { return c.ledger.LastMeta() }

// InsertGenesis installs b as height 0. It is only ever called once,
// at node startup, when the store is empty.
func (c *Chain) InsertGenesis(b *block.Block) (common.Hash, error) {
	hash, err := c.ledger.AddGenesisBlock(b)
	if err != nil {
		return common.Hash{}, err
	}
	c.publishCommitted(b)
	return hash, nil
}

// InsertBlock appends b to the chain, failing with errs.ErrBadParent
// if it does not strictly extend the tip. A block older than the tip
// is accepted only in the degenerate already-have case (b IS the
// current tip); anything else is dropped as stale gossip.
func (c *Chain) InsertBlock(b *block.Block) (common.Hash, error) {
	if meta, ok := c.ledger.LastMeta(); ok && b.Header.Height <= meta.Height {
		if b.Header.Height == meta.Height && codec.HashBlock(b) == meta.Hash {
			return meta.Hash, nil // already-have: harmless no-op
		}
		return common.Hash{}, errs.ErrBadParent
	}
	hash, err := c.ledger.AddBlock(b)
	if err != nil {
		if c.log != nil {
			c.log.Printf("[chain] reject block at height %d: %v", b.Header.Height, err)
		}
		return common.Hash{}, err
	}
	c.publishCommitted(b)
	return hash, nil
}

func (c *Chain) publishCommitted(b *block.Block) {
	if c.log != nil {
		c.log.Printf("[chain] committed block %d (%d txs)", b.Header.Height, len(b.Transactions))
	}
	c.bus.Publish(bus.Event{Kind: bus.KindBlockCommitted, Payload: b})
}

// GetBlock / GetBlockByHeight are read-through to the Ledger.
func (c *Chain) GetBlock(hash common.Hash) (*block.Block, bool)        { return c.ledger.GetBlock(hash) }
func (c *Chain) GetBlockByHeight(h block.Height) (*block.Block, bool) { return c.ledger.GetBlockByHeight(h) }

// ValidatorsAt returns the validator set usable at height h.
func (c *Chain) ValidatorsAt(h block.Height) (ValidatorView, error) {
	vs, err := c.ledger.ValidatorsAt(h)
	if err != nil {
		return nil, fmt.Errorf("validators at %d: %w", h, err)
	}
	return vs, nil
}

// ValidatorView is the read surface the consensus core needs from a
// validator set; kept as an interface here so chain doesn't have to
// import the concrete validators type for its own sake.
type ValidatorView interface {
	List() []common.Address
	Len() int
	Contains(common.Address) bool
	F() int
	Quorum() int
	ProposerFor(block.View) (common.Address, bool)
	IsProposerFor(common.Address, block.View) bool
}
