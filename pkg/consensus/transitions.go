package consensus

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sanketsaagar/lightchain-l1/pkg/block"
	"github.com/sanketsaagar/lightchain-l1/pkg/codec"
)

// handleMessage authenticates msg, applies the view tie-break rules
// (drop past-height, buffer future-height/round), and dispatches to the
// per-kind handler.
func (c *Core) handleMessage(msg *block.Message) {
	signer, err := recoverSigner(msg)
	if err != nil {
		c.droppedInvalid++
		if c.log != nil {
			c.log.Printf("[consensus] drop invalid %s: %v", msg.Kind, err)
		}
		return
	}
	if c.validators == nil || !c.validators.Contains(signer) {
		c.droppedInvalid++
		return
	}

	switch {
	case msg.View.Height < c.view.Height:
		c.droppedStale++
		return
	case msg.View.Height > c.view.Height:
		c.bufferFutureHeight(msg)
		return
	case msg.View.Round > c.view.Round:
		c.bufferFutureRound(msg)
		if msg.Kind == block.KindRoundChange {
			c.handleRoundChange(msg, signer)
		}
		return
	case msg.View.Round < c.view.Round && msg.Kind != block.KindRoundChange:
		c.droppedStale++
		return
	}

	switch msg.Kind {
	case block.KindPrePrepare:
		c.handlePrePrepare(msg, signer)
	case block.KindPrepare:
		c.handlePrepare(msg, signer)
	case block.KindCommit:
		c.handleCommit(msg, signer)
	case block.KindRoundChange:
		c.handleRoundChange(msg, signer)
	}
}

// handlePrePrepare is transition 2: a structurally-valid proposal from
// the view's proposer, not already locked against a different block,
// moves the core to PrePrepared and broadcasts a matching Prepare.
func (c *Core) handlePrePrepare(msg *block.Message, signer common.Address) {
	if c.phase != PhaseNewRound {
		return // already past pre-prepare for this view; ignore a retransmit
	}
	if !c.validators.IsProposerFor(signer, msg.View) {
		c.droppedInvalid++
		return
	}
	b := msg.Proposal
	if b == nil || b.Header == nil {
		c.droppedInvalid++
		return
	}
	if err := c.validateProposal(b); err != nil {
		c.droppedInvalid++
		if c.log != nil {
			c.log.Printf("[consensus] reject proposal at %s: %v", msg.View, err)
		}
		return
	}
	if c.lockedProposal != nil && codec.HashBlock(c.lockedProposal) != codec.HashBlock(b) {
		c.droppedInvalid++
		return
	}

	c.lockedProposal = b
	c.phase = PhasePrePrepared

	digest := codec.HashBlock(b)
	vote := &block.Message{Kind: block.KindPrepare, View: c.view, Digest: digest}
	if err := signMessage(c.priv, vote); err != nil {
		return
	}
	c.transport.Broadcast(vote)
	c.handleMessage(vote)
}

// validateProposal checks the structural invariants a proposal must
// satisfy before it is ever voted on: correct parent and height, gas
// within budget, timestamp within clock drift, extra
// data within bound.
func (c *Core) validateProposal(b *block.Block) error {
	h := b.Header
	if h.Height != c.view.Height {
		return errBadHeight
	}
	tip, ok := c.chain.LastBlock()
	if ok {
		if h.ParentHash != codec.HashBlock(tip) {
			return errBadParent
		}
	}
	if h.GasUsed > h.GasLimit {
		return errGasOverLimit
	}
	if len(h.Extra) > c.cfg.MaxExtraSize {
		return errExtraTooLarge
	}
	now := time.Now().Unix()
	drift := int64(c.cfg.ClockDrift / time.Second)
	if h.Time > now+drift || h.Time < now-drift {
		return errBadTimestamp
	}
	return nil
}

// handlePrepare is transition 3: tally a Prepare vote; once quorum is
// reached for the digest we're locked on, broadcast our Commit.
func (c *Core) handlePrepare(msg *block.Message, signer common.Address) {
	count, equiv := c.prepares.add(msg.Digest, signer, msg.Signature)
	if equiv {
		c.equivocations++
		return
	}
	if c.phase != PhasePrePrepared {
		return
	}
	if c.lockedProposal == nil || codec.HashBlock(c.lockedProposal) != msg.Digest {
		return
	}
	if count < c.validators.Quorum() {
		return
	}

	c.phase = PhasePrepared

	commit := &block.Message{Kind: block.KindCommit, View: c.view, Digest: msg.Digest}
	if err := signMessage(c.priv, commit); err != nil {
		return
	}
	c.transport.Broadcast(commit)
	c.handleMessage(commit)
}

// handleCommit is transition 4: tally a Commit vote; once quorum is
// reached, seal the locked proposal with the collected signatures and
// insert it into the chain, then advance to the next height.
func (c *Core) handleCommit(msg *block.Message, signer common.Address) {
	count, equiv := c.commits.add(msg.Digest, signer, msg.Signature)
	if equiv {
		c.equivocations++
		return
	}
	if c.phase != PhasePrepared && c.phase != PhasePrePrepared {
		return
	}
	if c.lockedProposal == nil || codec.HashBlock(c.lockedProposal) != msg.Digest {
		return
	}
	if count < c.validators.Quorum() {
		return
	}

	c.phase = PhaseCommitted
	sealed := c.lockedProposal.WithSeal(c.commits.signatures(msg.Digest))
	if _, err := c.chain.InsertBlock(sealed); err != nil {
		if c.log != nil {
			c.log.Printf("[consensus] insert committed block at %d: %v", sealed.Header.Height, err)
		}
		return
	}
	c.stopTimer()
	c.enterNewRound(c.view.NextHeight())
}

// handleTimeout and handleRoundChange both implement transition 5: a
// validator that suspects the current proposer is silent or
// equivocating casts a RoundChange vote for round+1; once some target
// round accumulates quorum votes, every validator jumps there together.
func (c *Core) handleTimeout() {
	c.castRoundChange(c.view.Round + 1)
}

func (c *Core) handleRoundChange(msg *block.Message, signer common.Address) {
	voters, ok := c.roundChanges[msg.View.Round]
	if !ok {
		voters = make(map[common.Address]struct{})
		c.roundChanges[msg.View.Round] = voters
	}
	voters[signer] = struct{}{}

	if msg.View.Round > c.view.Round {
		c.castRoundChange(c.view.Round + 1)
	}

	c.maybeAdvanceRound()
}

// castRoundChange broadcasts our own vote to move to targetRound and
// records it locally.
func (c *Core) castRoundChange(targetRound block.Round) {
	vote := &block.Message{Kind: block.KindRoundChange, View: block.View{Height: c.view.Height, Round: targetRound}}
	if err := signMessage(c.priv, vote); err != nil {
		return
	}
	voters, ok := c.roundChanges[targetRound]
	if !ok {
		voters = make(map[common.Address]struct{})
		c.roundChanges[targetRound] = voters
	}
	voters[c.self] = struct{}{}
	c.transport.Broadcast(vote)
}

// maybeAdvanceRound jumps to the smallest target round at or beyond
// round+1 that has accumulated quorum votes, if any.
func (c *Core) maybeAdvanceRound() {
	quorum := c.validators.Quorum()
	var target block.Round
	found := false
	for r, voters := range c.roundChanges {
		if r <= c.view.Round || len(voters) < quorum {
			continue
		}
		if !found || r < target {
			target = r
			found = true
		}
	}
	if found {
		c.enterNewRound(block.View{Height: c.view.Height, Round: target})
	}
}
