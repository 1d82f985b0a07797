package consensus

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sanketsaagar/lightchain-l1/pkg/block"
	"github.com/sanketsaagar/lightchain-l1/pkg/codec"
	"github.com/sanketsaagar/lightchain-l1/pkg/errs"
)

// payloadOf returns the hash a message's signature is computed over:
// the proposal hash for PrePrepare, the vote digest otherwise.
func payloadOf(msg *block.Message) common.Hash {
	if msg.Kind == block.KindPrePrepare {
		return codec.HashBlock(msg.Proposal)
	}
	return msg.Digest
}

// signMessage signs msg in place with priv, setting Sender and Signature.
func signMessage(priv *ecdsa.PrivateKey, msg *block.Message) error {
	digest := codec.SigningDigest(msg.Kind, msg.View, payloadOf(msg))
	sig, err := crypto.Sign(digest.Bytes(), priv)
	if err != nil {
		return fmt.Errorf("sign %s: %w", msg.Kind, err)
	}
	msg.Sender = crypto.PubkeyToAddress(priv.PublicKey)
	msg.Signature = sig
	return nil
}

// recoverSigner recovers the address that produced msg.Signature and
// confirms it matches the claimed Sender field, rejecting a spoofed
// sender. Returns errs.ErrInvalidMessage on any malformed signature.
func recoverSigner(msg *block.Message) (common.Address, error) {
	digest := codec.SigningDigest(msg.Kind, msg.View, payloadOf(msg))
	pub, err := crypto.SigToPub(digest.Bytes(), msg.Signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: recover signer: %v", errs.ErrInvalidMessage, err)
	}
	addr := crypto.PubkeyToAddress(*pub)
	if addr != msg.Sender {
		return common.Address{}, fmt.Errorf("%w: signature does not match claimed sender", errs.ErrInvalidMessage)
	}
	return addr, nil
}
