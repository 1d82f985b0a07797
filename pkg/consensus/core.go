// Package consensus implements a PBFT-style state machine:
// pre-prepare/prepare/commit voting per height with round-change
// fallback on a silent or equivocating proposer. The Core owns its
// state from a single goroutine driving a select loop over one inbound
// message channel plus timer, chain-advance and kick channels, with a
// locked-proposal carry-over across rounds and digest-indexed vote
// tallies that reset on every new round.
package consensus

import (
	"context"
	"crypto/ecdsa"
	"log"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sanketsaagar/lightchain-l1/pkg/block"
	"github.com/sanketsaagar/lightchain-l1/pkg/bus"
	"github.com/sanketsaagar/lightchain-l1/pkg/chain"
	"github.com/sanketsaagar/lightchain-l1/pkg/codec"
	"github.com/sanketsaagar/lightchain-l1/pkg/mempool"
)

// Phase is the core's position within a single round.
type Phase int

const (
	PhaseNewRound Phase = iota
	PhasePrePrepared
	PhasePrepared
	PhaseCommitted
)

func (p Phase) String() string {
	switch p {
	case PhaseNewRound:
		return "new-round"
	case PhasePrePrepared:
		return "pre-prepared"
	case PhasePrepared:
		return "prepared"
	case PhaseCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// Transport is the outbound side of the network collaborator: the
// core hands it fully-signed messages to gossip to peers. Inbound
// delivery runs the other way, through Core.Submit.
type Transport interface {
	Broadcast(msg *block.Message)
}

// Config bounds the core's timing and block-assembly behavior.
type Config struct {
	BaseTimeout   time.Duration // round 0 timeout (T0)
	MaxTimeout    time.Duration // cap on the doubling round timer
	ClockDrift    time.Duration // allowed skew (Δ) for a proposal's timestamp
	MaxExtraSize  int           // bound on Header.Extra
	GasLimit      uint64        // per-block gas budget handed to the proposer
	MaxTxPerBlock int           // per-block transaction count cap
	InboxSize     int           // bound on the inbound message channel
}

func DefaultConfig() Config {
	return Config{
		BaseTimeout:   2 * time.Second,
		MaxTimeout:    32 * time.Second,
		ClockDrift:    5 * time.Second,
		MaxExtraSize:  32,
		GasLimit:      8_000_000,
		MaxTxPerBlock: 2000,
		InboxSize:     256,
	}
}

// Core is the single per-node consensus state machine. All state is
// owned by the goroutine running Run; Submit, Kick and
// NotifyChainAdvanced are the only thread-safe entry points, and all
// three merely hand data off through channels.
type Core struct {
	cfg  Config
	priv *ecdsa.PrivateKey
	self common.Address

	chain     *chain.Chain
	pool      *mempool.TxPool
	bus       *bus.Bus
	transport Transport
	log       *log.Logger

	inbox    chan *block.Message
	timerCh  chan timerFire
	notifyCh chan block.Height
	kickCh   chan struct{}

	// --- fields below are only ever touched from the Run goroutine ---

	view       block.View
	phase      Phase
	validators chain.ValidatorView

	lockedProposal *block.Block // sticky across round-changes within a height

	prepares     voteSet
	commits      voteSet
	roundChanges map[block.Round]map[common.Address]struct{}

	timer    *time.Timer
	timerGen uint64

	backlogHeight map[block.Height][]*block.Message
	backlogRound  map[block.Round][]*block.Message

	droppedInvalid uint64
	droppedStale   uint64
	equivocations  uint64
}

// New builds a Core ready to Run. validators must reflect the set
// effective at startHeight; the caller (internal/node) is responsible
// for resolving that from the Ledger/genesis before construction.
func New(cfg Config, priv *ecdsa.PrivateKey, c *chain.Chain, pool *mempool.TxPool, b *bus.Bus, transport Transport, validators chain.ValidatorView, logger *log.Logger) *Core {
	return &Core{
		cfg:           cfg,
		priv:          priv,
		self:          crypto.PubkeyToAddress(priv.PublicKey),
		chain:         c,
		pool:          pool,
		bus:           b,
		transport:     transport,
		log:           logger,
		inbox:         make(chan *block.Message, cfg.InboxSize),
		timerCh:       make(chan timerFire, 1),
		notifyCh:      make(chan block.Height, 1),
		kickCh:        make(chan struct{}, 1),
		validators:    validators,
		backlogHeight: make(map[block.Height][]*block.Message),
		backlogRound:  make(map[block.Round][]*block.Message),
		roundChanges:  make(map[block.Round]map[common.Address]struct{}),
		prepares:      newVoteSet(),
		commits:       newVoteSet(),
	}
}

// Submit enqueues an inbound message for processing. It never blocks
// indefinitely: a full inbox drops the message, a transient condition
// the sender will eventually retransmit or time out into round-change.
func (c *Core) Submit(msg *block.Message) {
	select {
	case c.inbox <- msg:
	default:
		if c.log != nil {
			c.log.Printf("[consensus] inbox full, dropping %s from %s", msg.Kind, msg.Sender)
		}
	}
}

// Kick asks the core to retry proposing for the current view if it is
// this view's proposer and hasn't pre-prepared yet. It exists for the
// Minter's idle-period fallback: an initial propose() can no-op if the
// chain tip wasn't available yet, and Kick gives it another chance
// without waiting for a full round-change timeout.
func (c *Core) Kick() {
	select {
	case c.kickCh <- struct{}{}:
	default:
	}
}

// NotifyChainAdvanced tells the core the Ledger's tip moved to newTip
// via some path outside ordinary consensus (state sync catching the
// node up to peers). If newTip is at or beyond the core's current
// height, the core abandons its in-flight round and resumes at
// newTip+1, round 0 (open question (b)).
func (c *Core) NotifyChainAdvanced(newTip block.Height) {
	select {
	case c.notifyCh <- newTip:
	default:
	}
}

// Run drives the state machine until ctx is canceled. startHeight is
// the first height to enter NewRound for (ordinarily LastMeta height + 1).
func (c *Core) Run(ctx context.Context, startHeight block.Height) {
	c.enterNewRound(block.View{Height: startHeight, Round: 0})
	for {
		select {
		case <-ctx.Done():
			c.stopTimer()
			return
		case msg := <-c.inbox:
			c.handleMessage(msg)
		case fire := <-c.timerCh:
			if fire.token == c.timerGen {
				c.handleTimeout()
			}
		case newTip := <-c.notifyCh:
			if newTip+1 != c.view.Height && newTip+1 >= c.view.Height {
				c.enterNewRound(block.View{Height: newTip + 1, Round: 0})
			}
		case <-c.kickCh:
			if c.phase == PhaseNewRound && c.validators != nil && c.validators.IsProposerFor(c.self, c.view) {
				c.propose()
			}
		}
	}
}

// enterNewRound (re)initializes per-round state, arms the timer, and
// proposes if we are this view's proposer. lockedProposal survives a
// same-height round bump; it is cleared only when the height itself
// advances.
func (c *Core) enterNewRound(v block.View) {
	if v.Height != c.view.Height {
		c.lockedProposal = nil
		c.clearRoundBacklog()
		vs, err := c.chain.ValidatorsAt(v.Height)
		if err == nil {
			c.validators = vs
		} else if c.log != nil {
			c.log.Printf("[consensus] validators at %d: %v (keeping prior set)", v.Height, err)
		}
	}
	c.view = v
	c.phase = PhaseNewRound
	c.prepares = newVoteSet()
	c.commits = newVoteSet()
	c.roundChanges = make(map[block.Round]map[common.Address]struct{})
	c.armTimer()

	if c.validators != nil && c.validators.IsProposerFor(c.self, v) {
		c.propose()
	}

	for _, msg := range c.drainHeightBacklog(v.Height) {
		c.handleMessage(msg)
	}
	for _, msg := range c.takeRoundBacklog(v.Round) {
		c.handleMessage(msg)
	}
}

// propose assembles and broadcasts a PrePrepare for the current view.
// If a proposal is already locked for this height (carried over from
// an earlier round), it is reproposed unchanged rather than rebuilt,
// otherwise two honest proposers in successive rounds could certify
// two different blocks at the same height.
func (c *Core) propose() {
	var b *block.Block
	if c.lockedProposal != nil {
		b = c.lockedProposal
	} else {
		tip, ok := c.chain.LastBlock()
		if !ok {
			if c.log != nil {
				c.log.Printf("[consensus] cannot propose at height %d: no chain tip", c.view.Height)
			}
			return
		}
		txs := c.pool.Drain(c.cfg.MaxTxPerBlock, c.cfg.GasLimit)
		var gasUsed uint64
		var txHashes []byte
		for _, tx := range txs {
			gasUsed += tx.Gas()
			txHashes = append(txHashes, tx.Hash().Bytes()...)
		}
		hdr := &block.Header{
			ParentHash: codec.HashBlock(tip),
			Proposer:   c.self,
			TxRoot:     crypto.Keccak256Hash(txHashes),
			Height:     c.view.Height,
			GasLimit:   c.cfg.GasLimit,
			GasUsed:    gasUsed,
			Time:       time.Now().Unix(),
		}
		b = &block.Block{Header: hdr, Transactions: txs}
	}

	msg := &block.Message{Kind: block.KindPrePrepare, View: c.view, Proposal: b}
	if err := signMessage(c.priv, msg); err != nil {
		if c.log != nil {
			c.log.Printf("[consensus] sign pre-prepare: %v", err)
		}
		return
	}
	c.transport.Broadcast(msg)
	c.handleMessage(msg) // the proposer votes for its own proposal too
}
