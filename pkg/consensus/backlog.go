package consensus

import "github.com/sanketsaagar/lightchain-l1/pkg/block"

// maxBacklogPerHeight/Round bound the per-key buffer so a flood of
// future-view messages can't grow memory without limit: once full,
// additional messages for that key are dropped (reject-new, not
// evict-old; the oldest buffered message is as likely to matter as a
// new one once the view catches up).
const (
	maxBacklogPerHeight = 64
	maxBacklogPerRound  = 64
)

// bufferFutureHeight stashes a message addressed to a height beyond the
// core's current one, to be replayed once the chain/core reach it.
func (c *Core) bufferFutureHeight(msg *block.Message) {
	q := c.backlogHeight[msg.View.Height]
	if len(q) >= maxBacklogPerHeight {
		return
	}
	c.backlogHeight[msg.View.Height] = append(q, msg)
}

// bufferFutureRound stashes a message addressed to a later round of the
// current height, to be replayed once the core reaches that round.
func (c *Core) bufferFutureRound(msg *block.Message) {
	q := c.backlogRound[msg.View.Round]
	if len(q) >= maxBacklogPerRound {
		return
	}
	c.backlogRound[msg.View.Round] = append(q, msg)
}

// drainHeightBacklog returns and clears every message buffered for h.
func (c *Core) drainHeightBacklog(h block.Height) []*block.Message {
	msgs := c.backlogHeight[h]
	delete(c.backlogHeight, h)
	return msgs
}

// clearRoundBacklog discards every round-buffered message: called on
// each NewRound entry that changes the height, since backlogRound is
// keyed off round numbers that are only meaningful relative to the
// height they were buffered for (they're reset wholesale whenever the
// height changes, and replayed wholesale whenever the targeted round
// arrives).
func (c *Core) clearRoundBacklog() {
	c.backlogRound = make(map[block.Round][]*block.Message)
}

// takeRoundBacklog returns and clears messages buffered for round r.
func (c *Core) takeRoundBacklog(r block.Round) []*block.Message {
	msgs := c.backlogRound[r]
	delete(c.backlogRound, r)
	return msgs
}
