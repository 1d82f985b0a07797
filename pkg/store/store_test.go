package store

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sanketsaagar/lightchain-l1/pkg/block"
	"github.com/sanketsaagar/lightchain-l1/pkg/errs"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	kv, err := OpenLevelKV(t.TempDir())
	if err != nil {
		t.Fatalf("OpenLevelKV: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	return New(kv)
}

func sampleBlock(height block.Height) *block.Block {
	return &block.Block{
		Header: &block.Header{
			ParentHash: common.HexToHash("0x1"),
			Proposer:   common.HexToAddress("0xabc"),
			Height:     height,
			GasLimit:   1_000_000,
			Time:       1700000000,
		},
	}
}

func TestCommitBlockAtomicTriple(t *testing.T) {
	s := openTestStore(t)
	blk := sampleBlock(1)
	hash := common.HexToHash("0xbeef")

	if err := s.CommitBlock(blk, hash); err != nil {
		t.Fatalf("CommitBlock: %v", err)
	}

	got, err := s.GetBlock(hash)
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	if got.Header.Height != 1 {
		t.Fatalf("height mismatch: %d", got.Header.Height)
	}

	byHeight, err := s.GetHashByHeight(1)
	if err != nil || byHeight != hash {
		t.Fatalf("GetHashByHeight: %v %v", byHeight, err)
	}

	meta, err := s.GetLastMeta()
	if err != nil {
		t.Fatalf("GetLastMeta: %v", err)
	}
	if meta.Height != 1 || meta.Hash != hash {
		t.Fatalf("unexpected last meta: %+v", meta)
	}
}

func TestGetBlockNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetBlock(common.HexToHash("0xdead")); err != errs.ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestValidatorsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	addrs := []common.Address{common.HexToAddress("0x1"), common.HexToAddress("0x2")}
	if err := s.PutValidators(addrs); err != nil {
		t.Fatalf("PutValidators: %v", err)
	}
	got, err := s.GetValidators()
	if err != nil {
		t.Fatalf("GetValidators: %v", err)
	}
	if len(got) != 2 || got[0] != addrs[0] || got[1] != addrs[1] {
		t.Fatalf("mismatch: %v vs %v", got, addrs)
	}
}

func TestIterHeightsAscending(t *testing.T) {
	s := openTestStore(t)
	hashes := []common.Hash{common.HexToHash("0xa1"), common.HexToHash("0xa2"), common.HexToHash("0xa3")}
	for i, hash := range hashes {
		h := block.Height(i + 1)
		if err := s.CommitBlock(sampleBlock(h), hash); err != nil {
			t.Fatalf("CommitBlock %d: %v", h, err)
		}
	}

	it := s.IterHeights()
	defer it.Release()
	count := 0
	for it.Next() {
		count++
	}
	if err := it.Error(); err != nil {
		t.Fatalf("iterator error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 height entries, got %d", count)
	}
}
