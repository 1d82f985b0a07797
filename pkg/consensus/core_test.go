package consensus

import (
	"context"
	"crypto/ecdsa"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sanketsaagar/lightchain-l1/pkg/block"
	"github.com/sanketsaagar/lightchain-l1/pkg/bus"
	"github.com/sanketsaagar/lightchain-l1/pkg/chain"
	"github.com/sanketsaagar/lightchain-l1/pkg/ledger"
	"github.com/sanketsaagar/lightchain-l1/pkg/mempool"
	"github.com/sanketsaagar/lightchain-l1/pkg/store"
	"github.com/sanketsaagar/lightchain-l1/pkg/validators"
)

// fanoutTransport delivers every broadcast message to every registered
// core's inbox, including the sender's own (mirroring a gossip network
// that can echo a node's own message back to it).
type fanoutTransport struct {
	cores []*Core
}

func (f *fanoutTransport) Broadcast(msg *block.Message) {
	for _, c := range f.cores {
		c.Submit(msg)
	}
}

func testGenesis() *block.Block {
	return &block.Block{Header: &block.Header{
		Height:   0,
		GasLimit: 8_000_000,
		Time:     1_700_000_000,
	}}
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.BaseTimeout = 80 * time.Millisecond
	cfg.MaxTimeout = 500 * time.Millisecond
	cfg.ClockDrift = 30 * time.Second
	return cfg
}

// buildNetwork wires n cores sharing one genesis/validator set, each
// with its own store/ledger/chain/bus/mempool, connected by a shared
// fanoutTransport that is filled in once every core exists.
func buildNetwork(t *testing.T, n int) ([]*Core, []*bus.Bus, []common.Address) {
	t.Helper()
	privs := make([]*ecdsa.PrivateKey, n)
	addrs := make([]common.Address, n)
	for i := 0; i < n; i++ {
		priv, err := crypto.GenerateKey()
		if err != nil {
			t.Fatalf("GenerateKey: %v", err)
		}
		privs[i] = priv
		addrs[i] = crypto.PubkeyToAddress(priv.PublicKey)
	}

	transport := &fanoutTransport{}
	cores := make([]*Core, n)
	buses := make([]*bus.Bus, n)

	for i := 0; i < n; i++ {
		kv, err := store.OpenLevelKV(t.TempDir())
		if err != nil {
			t.Fatalf("OpenLevelKV: %v", err)
		}
		t.Cleanup(func() { _ = kv.Close() })
		led, err := ledger.Open(store.New(kv), ledger.DefaultCacheSize)
		if err != nil {
			t.Fatalf("ledger.Open: %v", err)
		}
		if err := led.AddValidators(addrs); err != nil {
			t.Fatalf("AddValidators: %v", err)
		}
		b := bus.New()
		ch := chain.New(led, b, nil)
		if _, err := ch.InsertGenesis(testGenesis()); err != nil {
			t.Fatalf("InsertGenesis: %v", err)
		}
		vs, err := ch.ValidatorsAt(0)
		if err != nil {
			t.Fatalf("ValidatorsAt(0): %v", err)
		}
		pool := mempool.New(mempool.DefaultConfig())
		core := New(fastConfig(), privs[i], ch, pool, b, transport, vs, nil)
		cores[i] = core
		buses[i] = b
	}
	transport.cores = cores
	return cores, buses, addrs
}

func waitForCommit(t *testing.T, sub *bus.Subscription, height block.Height, timeout time.Duration) *block.Block {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-sub.Events():
			if ev.Kind != bus.KindBlockCommitted {
				continue
			}
			blk := ev.Payload.(*block.Block)
			if blk.Header.Height == height {
				return blk
			}
		case <-deadline:
			t.Fatalf("timed out waiting for height %d to commit", height)
			return nil
		}
	}
}

func TestHappyPathReachesQuorumCommit(t *testing.T) {
	cores, buses, _ := buildNetwork(t, 4)

	sub := buses[0].Subscribe()
	defer sub.Unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for _, c := range cores {
		go c.Run(ctx, 1)
	}

	blk := waitForCommit(t, sub, 1, 2*time.Second)
	if len(blk.Header.SealVotes) < 3 {
		t.Fatalf("expected at least quorum (3) seal votes, got %d", len(blk.Header.SealVotes))
	}
}

func TestSilentProposerTriggersRoundChange(t *testing.T) {
	cores, buses, addrs := buildNetwork(t, 4)

	set := validators.New(addrs)
	offlineAddr, ok := set.ProposerFor(block.View{Height: 1, Round: 0})
	if !ok {
		t.Fatal("expected a round-0 proposer")
	}

	var liveSub *bus.Subscription
	for i := range cores {
		if addrs[i] == offlineAddr {
			continue
		}
		liveSub = buses[i].Subscribe()
		break
	}
	defer liveSub.Unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for i, c := range cores {
		if addrs[i] == offlineAddr {
			continue // never started: simulates a silent proposer
		}
		go c.Run(ctx, 1)
	}

	blk := waitForCommit(t, liveSub, 1, 3*time.Second)
	if blk.Header.Proposer == offlineAddr {
		t.Fatal("committed block must not have been proposed by the silent validator")
	}
}
