package mempool

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sanketsaagar/lightchain-l1/pkg/errs"
)

var chainID = big.NewInt(1337)

func signedTx(t *testing.T, priv *ecdsa.PrivateKey, nonce uint64, gasPrice int64, gas uint64) *types.Transaction {
	t.Helper()
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: big.NewInt(gasPrice),
		Gas:      gas,
		To:       nil,
		Value:    big.NewInt(0),
	})
	signer := types.LatestSignerForChainID(chainID)
	signed, err := types.SignTx(tx, signer, priv)
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}
	return signed
}

func TestAdmitRejectsDuplicate(t *testing.T) {
	priv, _ := crypto.GenerateKey()
	p := New(DefaultConfig())
	tx := signedTx(t, priv, 0, 10, 21000)

	if err := p.Admit(tx); err != nil {
		t.Fatalf("first Admit: %v", err)
	}
	if err := p.Admit(tx); err != errs.ErrDuplicateTx {
		t.Fatalf("second Admit: got %v, want ErrDuplicateTx", err)
	}
}

func TestAdmitRejectsFull(t *testing.T) {
	priv, _ := crypto.GenerateKey()
	p := New(&Config{MaxSize: 1})
	if err := p.Admit(signedTx(t, priv, 0, 10, 21000)); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if err := p.Admit(signedTx(t, priv, 1, 10, 21000)); err != errs.ErrPoolFull {
		t.Fatalf("got %v, want ErrPoolFull", err)
	}
}

func TestDrainRespectsGasBudget(t *testing.T) {
	priv, _ := crypto.GenerateKey()
	p := New(DefaultConfig())
	for i := uint64(0); i < 10; i++ {
		if err := p.Admit(signedTx(t, priv, i, 10, 10)); err != nil {
			t.Fatalf("Admit %d: %v", i, err)
		}
	}

	drained := p.Drain(100, 100)
	if len(drained) != 10 {
		t.Fatalf("expected to drain exactly 10 gas=10 txs under a gas_limit of 100, got %d", len(drained))
	}
	if p.Len() != 0 {
		t.Fatalf("expected pool empty after full drain, got %d remaining", p.Len())
	}
}

func TestDrainOrdersByGasPriceDescending(t *testing.T) {
	priv, _ := crypto.GenerateKey()
	p := New(DefaultConfig())
	// admit in an order that doesn't match priority, to make sure Drain re-sorts.
	low := signedTx(t, priv, 0, 1, 21000)
	high := signedTx(t, priv, 1, 100, 21000)
	mid := signedTx(t, priv, 2, 50, 21000)
	for _, tx := range []*types.Transaction{low, high, mid} {
		if err := p.Admit(tx); err != nil {
			t.Fatalf("Admit: %v", err)
		}
	}

	drained := p.Drain(3, 1_000_000)
	if len(drained) != 3 {
		t.Fatalf("expected 3 txs, got %d", len(drained))
	}
	if drained[0].Hash() != high.Hash() || drained[1].Hash() != mid.Hash() || drained[2].Hash() != low.Hash() {
		t.Fatalf("expected gas-price-descending order")
	}
}

func TestRemoveCommittedPurgesPending(t *testing.T) {
	priv, _ := crypto.GenerateKey()
	p := New(DefaultConfig())
	tx := signedTx(t, priv, 0, 10, 21000)
	if err := p.Admit(tx); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	p.RemoveCommitted([]common.Hash{tx.Hash()})
	if p.Has(tx.Hash()) {
		t.Fatal("expected tx to be purged")
	}
	if p.Len() != 0 {
		t.Fatalf("expected empty pool, got %d", p.Len())
	}
}
