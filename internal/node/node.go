// Package node assembles and runs a single validator: store, ledger,
// chain, tx pool, bus, consensus core and minter wired together. This
// chain runs one role only, a PBFT validator, so the wiring here is a
// flat assembly rather than a node-type switch.
package node

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sanketsaagar/lightchain-l1/internal/config"
	"github.com/sanketsaagar/lightchain-l1/pkg/block"
	"github.com/sanketsaagar/lightchain-l1/pkg/bus"
	"github.com/sanketsaagar/lightchain-l1/pkg/chain"
	"github.com/sanketsaagar/lightchain-l1/pkg/consensus"
	"github.com/sanketsaagar/lightchain-l1/pkg/genesis"
	"github.com/sanketsaagar/lightchain-l1/pkg/ledger"
	"github.com/sanketsaagar/lightchain-l1/pkg/mempool"
	"github.com/sanketsaagar/lightchain-l1/pkg/minter"
	"github.com/sanketsaagar/lightchain-l1/pkg/store"
)

// Node is a single running validator: every in-process component
// wired together over the Bus and the Chain.
type Node struct {
	cfg    *config.Config
	logger *log.Logger

	store *store.Store
	led   *ledger.Ledger
	chain *chain.Chain
	pool  *mempool.TxPool
	bus   *bus.Bus
	core  *consensus.Core
	mint  *minter.Minter

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New opens the node's store, bootstraps genesis if the ledger is
// empty, and wires every in-process component. transport is the
// external network collaborator responsible for gossiping the
// messages Core.Submit receives and broadcasting whatever Core hands
// to Transport.Broadcast; it is supplied by the caller because this
// chain's scope ends at the transport's interface, not its wire
// protocol.
func New(cfg *config.Config, transport consensus.Transport, logger *log.Logger) (*Node, error) {
	priv, err := crypto.LoadECDSA(cfg.KeystorePath)
	if err != nil {
		return nil, fmt.Errorf("load validator key from %s: %w", cfg.KeystorePath, err)
	}

	kv, err := store.OpenLevelKV(cfg.DataDir + "/chaindata")
	if err != nil {
		return nil, fmt.Errorf("open chaindata: %w", err)
	}
	st := store.New(kv)

	led, err := ledger.Open(st, ledger.DefaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	evBus := bus.New()
	ch := chain.New(led, evBus, logger)

	mpCfg := mempool.DefaultConfig()
	if cfg.Mempool.MaxSize > 0 {
		mpCfg.MaxSize = cfg.Mempool.MaxSize
	}
	pool := mempool.New(mpCfg)

	if _, ok := ch.LastMeta(); !ok {
		g, err := genesis.Load(cfg.GenesisPath)
		if err != nil {
			return nil, fmt.Errorf("load genesis: %w", err)
		}
		if err := led.AddValidators(g.Validators); err != nil {
			return nil, fmt.Errorf("install genesis validators: %w", err)
		}
		if _, err := ch.InsertGenesis(g.Block()); err != nil {
			return nil, fmt.Errorf("install genesis block: %w", err)
		}
		logger.Printf("[node] initialized chain from genesis (%d validators)", len(g.Validators))
	}

	vs, err := ch.ValidatorsAt(0)
	if err != nil {
		return nil, fmt.Errorf("resolve validator set: %w", err)
	}

	ccfg := consensusConfigFrom(cfg.Consensus)
	core := consensus.New(ccfg, priv, ch, pool, evBus, transport, vs, logger)
	mint := minter.New(minter.DefaultConfig(), pool, evBus, core, logger)

	return &Node{
		cfg:    cfg,
		logger: logger,
		store:  st,
		led:    led,
		chain:  ch,
		pool:   pool,
		bus:    evBus,
		core:   core,
		mint:   mint,
	}, nil
}

func consensusConfigFrom(c config.ConsensusConfig) consensus.Config {
	ccfg := consensus.DefaultConfig()
	if c.BaseTimeout > 0 {
		ccfg.BaseTimeout = c.BaseTimeout
	}
	if c.MaxTimeout > 0 {
		ccfg.MaxTimeout = c.MaxTimeout
	}
	if c.ClockDrift > 0 {
		ccfg.ClockDrift = c.ClockDrift
	}
	if c.GasLimit > 0 {
		ccfg.GasLimit = c.GasLimit
	}
	if c.MaxTxPerBlock > 0 {
		ccfg.MaxTxPerBlock = c.MaxTxPerBlock
	}
	return ccfg
}

// Start launches the consensus core and minter goroutines, resuming
// the core at the height following the current chain tip.
func (n *Node) Start(ctx context.Context) error {
	ctx, n.cancel = context.WithCancel(ctx)

	meta, _ := n.chain.LastMeta()

	n.wg.Add(2)
	go func() {
		defer n.wg.Done()
		n.core.Run(ctx, meta.Height+1)
	}()
	go func() {
		defer n.wg.Done()
		n.mint.Run(ctx)
	}()

	n.logger.Printf("[node] started at height %d", meta.Height)
	return nil
}

// Stop cancels the running goroutines and closes the store.
func (n *Node) Stop() error {
	if n.cancel != nil {
		n.cancel()
	}
	n.wg.Wait()
	return n.led.Close()
}

// SubmitMessage delivers an inbound consensus message from the
// transport layer into the core.
func (n *Node) SubmitMessage(msg *block.Message) { n.core.Submit(msg) }

// Chain exposes the read-only chain surface for diagnostics/CLI use.
func (n *Node) Chain() *chain.Chain { return n.chain }

// Pool exposes the tx pool for diagnostics/CLI use.
func (n *Node) Pool() *mempool.TxPool { return n.pool }

// Bus exposes the event bus so external collaborators (a transport,
// metrics exporter) can subscribe without reaching into the Node.
func (n *Node) Bus() *bus.Bus { return n.bus }
