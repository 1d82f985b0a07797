package codec

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sanketsaagar/lightchain-l1/pkg/block"
)

func sampleHeader() *block.Header {
	return &block.Header{
		ParentHash:  common.HexToHash("0x1"),
		Proposer:    common.HexToAddress("0xabc"),
		StateRoot:   common.HexToHash("0x2"),
		TxRoot:      common.HexToHash("0x3"),
		ReceiptRoot: common.HexToHash("0x4"),
		Height:      42,
		GasLimit:    8_000_000,
		GasUsed:     21000,
		Time:        1700000000,
		Extra:       []byte("hello"),
		SealVotes:   [][]byte{[]byte("sig1"), []byte("sig2")},
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := sampleHeader()
	encoded := EncodeHeader(h, true)
	decoded, err := DecodeHeader(encoded)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if decoded.Height != h.Height || decoded.GasLimit != h.GasLimit || decoded.GasUsed != h.GasUsed {
		t.Fatalf("mismatch: %+v vs %+v", decoded, h)
	}
	if !bytes.Equal(decoded.Extra, h.Extra) {
		t.Fatalf("extra mismatch: %x vs %x", decoded.Extra, h.Extra)
	}
	if len(decoded.SealVotes) != 2 {
		t.Fatalf("expected 2 seal votes, got %d", len(decoded.SealVotes))
	}
}

func TestHashExcludesSealVotes(t *testing.T) {
	h1 := sampleHeader()
	h2 := sampleHeader()
	h2.SealVotes = [][]byte{[]byte("totally different signature set")}

	if HashHeader(h1) != HashHeader(h2) {
		t.Fatal("header hash must not depend on SealVotes")
	}

	h3 := sampleHeader()
	h3.GasUsed++
	if HashHeader(h1) == HashHeader(h3) {
		t.Fatal("header hash must depend on every other field")
	}
}

func TestDecodeHeaderRejectsTrailingBytes(t *testing.T) {
	h := sampleHeader()
	encoded := append(EncodeHeader(h, true), 0xff)
	if _, err := DecodeHeader(encoded); err == nil {
		t.Fatal("expected error for trailing bytes")
	}
}

func TestDecodeHeaderRejectsTruncated(t *testing.T) {
	h := sampleHeader()
	encoded := EncodeHeader(h, true)
	if _, err := DecodeHeader(encoded[:len(encoded)-4]); err == nil {
		t.Fatal("expected error for truncated input")
	}
}

func TestValidatorsRoundTrip(t *testing.T) {
	addrs := []common.Address{common.HexToAddress("0x1"), common.HexToAddress("0x2")}
	encoded := EncodeValidators(addrs)
	decoded, err := DecodeValidators(encoded)
	if err != nil {
		t.Fatalf("DecodeValidators: %v", err)
	}
	if len(decoded) != 2 || decoded[0] != addrs[0] || decoded[1] != addrs[1] {
		t.Fatalf("mismatch: %v vs %v", decoded, addrs)
	}
}

func TestLastMetaRoundTrip(t *testing.T) {
	m := block.LastMeta{Height: 100, Hash: common.HexToHash("0xdead")}
	decoded, err := DecodeLastMeta(EncodeLastMeta(m))
	if err != nil {
		t.Fatalf("DecodeLastMeta: %v", err)
	}
	if decoded != m {
		t.Fatalf("mismatch: %+v vs %+v", decoded, m)
	}
}

func TestSigningDigestVariesByView(t *testing.T) {
	payload := common.HexToHash("0xabc")
	d1 := SigningDigest(block.KindPrepare, block.View{Height: 1, Round: 0}, payload)
	d2 := SigningDigest(block.KindPrepare, block.View{Height: 1, Round: 1}, payload)
	if d1 == d2 {
		t.Fatal("signing digest must depend on round")
	}
	d3 := SigningDigest(block.KindCommit, block.View{Height: 1, Round: 0}, payload)
	if d1 == d3 {
		t.Fatal("signing digest must depend on message kind")
	}
}
