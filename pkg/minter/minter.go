// Package minter implements an idle-block timer: the Consensus Core
// only proposes blocks when it becomes a round's proposer, which could
// otherwise mean an empty mempool produces no blocks at all for long
// stretches. Minter watches the tx pool and the Bus's BlockCommitted
// stream and nudges the core to propose a (possibly empty) block once
// min_block_period has elapsed since the last commit.
package minter

import (
	"context"
	"log"
	"time"

	"github.com/sanketsaagar/lightchain-l1/pkg/bus"
	"github.com/sanketsaagar/lightchain-l1/pkg/mempool"
)

// Proposer is the subset of *consensus.Core the minter needs: a way to
// ask the core to attempt a proposal now rather than wait idle.
type Proposer interface {
	Kick()
}

// Config controls the idle cadence.
type Config struct {
	MinBlockPeriod time.Duration // propose an empty block after this much idle time
	MaxBlockPeriod time.Duration // propose regardless of pool size after this long
}

func DefaultConfig() Config {
	return Config{MinBlockPeriod: 2 * time.Second, MaxBlockPeriod: 10 * time.Second}
}

// Minter drives empty-block production so the chain keeps advancing
// even when the tx pool is idle.
type Minter struct {
	cfg  Config
	pool *mempool.TxPool
	bus  *bus.Bus
	core Proposer
	log  *log.Logger
}

func New(cfg Config, pool *mempool.TxPool, b *bus.Bus, core Proposer, logger *log.Logger) *Minter {
	return &Minter{cfg: cfg, pool: pool, bus: b, core: core, log: logger}
}

// Run blocks until ctx is canceled, resetting its idle timer on every
// BlockCommitted event and kicking the core when the timer fires.
func (m *Minter) Run(ctx context.Context) {
	sub := m.bus.Subscribe()
	defer sub.Unsubscribe()

	timer := time.NewTimer(m.cfg.MinBlockPeriod)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.Events():
			if ev.Kind != bus.KindBlockCommitted {
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(m.period())
		case <-timer.C:
			if m.log != nil {
				m.log.Printf("[minter] idle period elapsed, kicking proposer (pending=%d)", m.pool.Len())
			}
			m.core.Kick()
			timer.Reset(m.period())
		}
	}
}

// period shortens the idle wait when transactions are already pending,
// so a busy pool doesn't have to wait the full min_block_period.
func (m *Minter) period() time.Duration {
	if m.pool.Len() > 0 {
		return m.cfg.MinBlockPeriod
	}
	return m.cfg.MaxBlockPeriod
}
