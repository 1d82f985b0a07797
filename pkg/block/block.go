// Package block is the consensus data model: heights, views, headers,
// blocks and the persisted last-meta tuple. It has no dependency on the
// store, codec or consensus packages so that all of them can depend on
// it without an import cycle.
package block

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Height is a monotonically increasing block index; genesis is height 0.
type Height = uint64

// Round resets to 0 at each new height and increases on view change.
type Round = uint64

// View totally orders consensus attempts by height then round.
type View struct {
	Height Height
	Round  Round
}

// Less reports whether v precedes o in the (height, round) total order.
func (v View) Less(o View) bool {
	if v.Height != o.Height {
		return v.Height < o.Height
	}
	return v.Round < o.Round
}

func (v View) Equal(o View) bool { return v.Height == o.Height && v.Round == o.Round }

func (v View) String() string { return fmt.Sprintf("(h=%d,r=%d)", v.Height, v.Round) }

// NextRound returns the view (Height, Round+1).
func (v View) NextRound() View { return View{Height: v.Height, Round: v.Round + 1} }

// NextHeight returns the view (Height+1, 0), the start of the next height.
func (v View) NextHeight() View { return View{Height: v.Height + 1, Round: 0} }

const maxExtraSize = 32

// Header carries everything about a block except its body. SealVotes is
// excluded from the canonical/hashed form: the seal signs the header
// hash, so including it in that hash would be circular.
type Header struct {
	ParentHash  common.Hash
	Proposer    common.Address
	StateRoot   common.Hash
	TxRoot      common.Hash
	ReceiptRoot common.Hash
	Height      Height
	GasLimit    uint64
	GasUsed     uint64
	Time        int64
	Extra       []byte

	// SealVotes holds the commit signatures proving quorum. Populated
	// only after the Consensus Core reaches Committed; never part of
	// the hashed/canonical header.
	SealVotes [][]byte
}

// Block is a Header plus its ordered transaction list.
type Block struct {
	Header       *Header
	Transactions []*types.Transaction
}

// View returns the (height, 0) identity most callers need when a block
// is being discussed as a past commit rather than a live proposal.
func (b *Block) View() View { return View{Height: b.Header.Height} }

// WithSeal returns a copy of the block with SealVotes set to sigs. The
// original block (and its Header) are left untouched, since the digest
// that validators signed is computed from the unsealed header.
func (b *Block) WithSeal(sigs [][]byte) *Block {
	h := *b.Header
	h.SealVotes = append([][]byte(nil), sigs...)
	return &Block{Header: &h, Transactions: b.Transactions}
}

// LastMeta is the persisted tip of the chain: its height and hash.
type LastMeta struct {
	Height Height
	Hash   common.Hash
}

func (m LastMeta) IsZero() bool { return m.Hash == (common.Hash{}) && m.Height == 0 }
