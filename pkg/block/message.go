package block

import "github.com/ethereum/go-ethereum/common"

// Vote is a signed (view, digest) pair. It is well-formed only once its
// signature has been recovered to a known validator and its digest
// checked against the proposal hash at that view; callers in the
// consensus package do that verification, this struct is just the wire
// shape.
type Vote struct {
	View      View
	Digest    common.Hash
	Signature []byte
}

// MessageKind discriminates the ConsensusMessage tagged union.
type MessageKind uint8

const (
	KindPrePrepare MessageKind = iota + 1
	KindPrepare
	KindCommit
	KindRoundChange
)

func (k MessageKind) String() string {
	switch k {
	case KindPrePrepare:
		return "PrePrepare"
	case KindPrepare:
		return "Prepare"
	case KindCommit:
		return "Commit"
	case KindRoundChange:
		return "RoundChange"
	default:
		return "Unknown"
	}
}

// Message is the single wire envelope for every consensus message kind.
// Every message carries its view and a signature authenticating the
// sender; Proposal is populated only for PrePrepare, Digest only for
// Prepare/Commit.
type Message struct {
	Kind      MessageKind
	View      View
	Proposal  *Block      // PrePrepare only
	Digest    common.Hash // Prepare/Commit only
	Sender    common.Address
	Signature []byte
}
