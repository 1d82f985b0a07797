// Package network defines the wire contract a transport must honor to
// participate in consensus: how a signed block.Message is framed for
// the wire and how a raw transaction is framed for gossip. The actual
// socket/peer-discovery layer is a separate collaborator; this package
// stops at the frame.
package network

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/sanketsaagar/lightchain-l1/pkg/block"
	"github.com/sanketsaagar/lightchain-l1/pkg/errs"
)

// EncodeMessageFrame serializes a signed consensus message for gossip.
func EncodeMessageFrame(msg *block.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message frame: %w", err)
	}
	return data, nil
}

// DecodeMessageFrame parses a frame produced by EncodeMessageFrame.
// The caller is still responsible for authenticating the result
// (consensus.Core.Submit does this internally before acting on it);
// a frame arriving over the wire is untrusted input.
func DecodeMessageFrame(data []byte) (*block.Message, error) {
	var msg block.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: decode message frame: %v", errs.ErrInvalidMessage, err)
	}
	return &msg, nil
}

// EncodeTxFrame serializes a transaction for gossip using
// go-ethereum's typed-transaction binary encoding, the same form the
// codec package uses when persisting a committed block's body.
func EncodeTxFrame(tx *types.Transaction) ([]byte, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode tx frame: %w", err)
	}
	return raw, nil
}

// DecodeTxFrame parses a frame produced by EncodeTxFrame.
func DecodeTxFrame(data []byte) (*types.Transaction, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: decode tx frame: %v", errs.ErrInvalidTx, err)
	}
	return tx, nil
}

// Handler is what a transport calls into on every inbound message
// frame; it is satisfied by *internal/node.Node (SubmitMessage), and
// TxHandler below by *mempool.TxPool (Admit). Both are interfaces here
// so this package never has to import either.
type Handler interface {
	SubmitMessage(msg *block.Message)
}

// TxHandler is the transaction-gossip counterpart of Handler.
type TxHandler interface {
	Admit(tx *types.Transaction) error
}
