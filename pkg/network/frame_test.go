package network

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sanketsaagar/lightchain-l1/pkg/block"
)

func TestMessageFrameRoundTrip(t *testing.T) {
	msg := &block.Message{
		Kind:      block.KindPrepare,
		View:      block.View{Height: 3, Round: 1},
		Digest:    common.HexToHash("0xabc"),
		Sender:    common.HexToAddress("0x1"),
		Signature: []byte{1, 2, 3},
	}

	data, err := EncodeMessageFrame(msg)
	if err != nil {
		t.Fatalf("EncodeMessageFrame: %v", err)
	}
	decoded, err := DecodeMessageFrame(data)
	if err != nil {
		t.Fatalf("DecodeMessageFrame: %v", err)
	}
	if decoded.Kind != msg.Kind || decoded.View != msg.View || decoded.Digest != msg.Digest {
		t.Fatalf("mismatch: %+v vs %+v", decoded, msg)
	}
}

func TestDecodeMessageFrameRejectsGarbage(t *testing.T) {
	if _, err := DecodeMessageFrame([]byte("not json")); err == nil {
		t.Fatal("expected an error decoding garbage")
	}
}

func TestTxFrameRoundTrip(t *testing.T) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    0,
		GasPrice: big.NewInt(1),
		Gas:      21000,
		Value:    big.NewInt(0),
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(1337)), priv)
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}

	data, err := EncodeTxFrame(signed)
	if err != nil {
		t.Fatalf("EncodeTxFrame: %v", err)
	}
	decoded, err := DecodeTxFrame(data)
	if err != nil {
		t.Fatalf("DecodeTxFrame: %v", err)
	}
	if decoded.Hash() != signed.Hash() {
		t.Fatal("decoded transaction hash mismatch")
	}
}

func TestDecodeTxFrameRejectsGarbage(t *testing.T) {
	if _, err := DecodeTxFrame([]byte{0xff, 0x00, 0x01}); err == nil {
		t.Fatal("expected an error decoding a garbage tx frame")
	}
}
