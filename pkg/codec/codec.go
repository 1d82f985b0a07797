// Package codec implements the canonical, deterministic byte encoding
// used for everything that is persisted or hashed: headers, blocks,
// validator lists and the last-meta tuple. Votes and consensus messages
// have no canonical byte encoding here; only the digest their
// signatures cover is computed (SigningDigest).
//
// The encoding is a hand-rolled, length-prefixed concatenation in the
// style used throughout the reference chains in this codebase (see
// e.g. Block.HeaderForSigning in the wider corpus): fixed 8-byte
// big-endian integers for heights/rounds/gas/time, length-prefixed
// byte slices for everything variable-sized. It is not meant to be a
// general-purpose serialization format, only a stable one.
package codec

import (
	"bytes"
	"encoding/binary"
	"io"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sanketsaagar/lightchain-l1/pkg/block"
	"github.com/sanketsaagar/lightchain-l1/pkg/errs"
)

func putU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func putBytes(buf *bytes.Buffer, b []byte) {
	putU64(buf, uint64(len(b)))
	buf.Write(b)
}

func readU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrCorruptedBytes, err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// maxFieldLen bounds a single length-prefixed field so a corrupted or
// adversarial length prefix can't force an enormous allocation.
const maxFieldLen = 16 << 20

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readU64(r)
	if err != nil {
		return nil, err
	}
	if n > maxFieldLen || uint64(r.Len()) < n {
		return nil, fmt.Errorf("%w: field length %d exceeds remaining %d", errs.ErrCorruptedBytes, n, r.Len())
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrCorruptedBytes, err)
	}
	return b, nil
}

// EncodeHeader returns the canonical encoding of h. When withSeal is
// false (the form that gets hashed and signed), SealVotes is omitted
// entirely, so attaching the seal after quorum never changes the hash
// votes were cast against.
func EncodeHeader(h *block.Header, withSeal bool) []byte {
	var buf bytes.Buffer
	buf.Write(h.ParentHash.Bytes())
	buf.Write(h.Proposer.Bytes())
	buf.Write(h.StateRoot.Bytes())
	buf.Write(h.TxRoot.Bytes())
	buf.Write(h.ReceiptRoot.Bytes())
	putU64(&buf, h.Height)
	putU64(&buf, h.GasLimit)
	putU64(&buf, h.GasUsed)
	putU64(&buf, uint64(h.Time))
	putBytes(&buf, h.Extra)
	if withSeal {
		putU64(&buf, uint64(len(h.SealVotes)))
		for _, sig := range h.SealVotes {
			putBytes(&buf, sig)
		}
	}
	return buf.Bytes()
}

// DecodeHeader parses the encoding produced by EncodeHeader(h, true).
func DecodeHeader(data []byte) (*block.Header, error) {
	r := bytes.NewReader(data)
	h := &block.Header{}

	var raw [32]byte
	readHash := func() (common.Hash, error) {
		if _, err := io.ReadFull(r, raw[:]); err != nil {
			return common.Hash{}, fmt.Errorf("%w: %v", errs.ErrCorruptedBytes, err)
		}
		return common.BytesToHash(raw[:]), nil
	}
	var rawAddr [20]byte
	readAddr := func() (common.Address, error) {
		if _, err := io.ReadFull(r, rawAddr[:]); err != nil {
			return common.Address{}, fmt.Errorf("%w: %v", errs.ErrCorruptedBytes, err)
		}
		return common.BytesToAddress(rawAddr[:]), nil
	}

	var err error
	if h.ParentHash, err = readHash(); err != nil {
		return nil, err
	}
	if h.Proposer, err = readAddr(); err != nil {
		return nil, err
	}
	if h.StateRoot, err = readHash(); err != nil {
		return nil, err
	}
	if h.TxRoot, err = readHash(); err != nil {
		return nil, err
	}
	if h.ReceiptRoot, err = readHash(); err != nil {
		return nil, err
	}
	if h.Height, err = readU64(r); err != nil {
		return nil, err
	}
	if h.GasLimit, err = readU64(r); err != nil {
		return nil, err
	}
	if h.GasUsed, err = readU64(r); err != nil {
		return nil, err
	}
	t, err := readU64(r)
	if err != nil {
		return nil, err
	}
	h.Time = int64(t)
	if h.Extra, err = readBytes(r); err != nil {
		return nil, err
	}
	sealCount, err := readU64(r)
	if err != nil {
		return nil, err
	}
	h.SealVotes = make([][]byte, sealCount)
	for i := range h.SealVotes {
		if h.SealVotes[i], err = readBytes(r); err != nil {
			return nil, err
		}
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", errs.ErrCorruptedBytes, r.Len())
	}
	return h, nil
}

// HashHeader returns the canonicalized-and-hashed form of h: Keccak256
// over the encoding that excludes seal votes.
func HashHeader(h *block.Header) common.Hash {
	return crypto.Keccak256Hash(EncodeHeader(h, false))
}

// EncodeBlock serializes a full block: header (with seal) followed by
// its transactions in go-ethereum's typed-transaction binary form.
func EncodeBlock(b *block.Block) ([]byte, error) {
	var buf bytes.Buffer
	hdr := EncodeHeader(b.Header, true)
	putBytes(&buf, hdr)
	putU64(&buf, uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		raw, err := tx.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("encode tx: %w", err)
		}
		putBytes(&buf, raw)
	}
	return buf.Bytes(), nil
}

// DecodeBlock is the inverse of EncodeBlock.
func DecodeBlock(data []byte) (*block.Block, error) {
	r := bytes.NewReader(data)
	hdrBytes, err := readBytes(r)
	if err != nil {
		return nil, err
	}
	hdr, err := DecodeHeader(hdrBytes)
	if err != nil {
		return nil, err
	}
	n, err := readU64(r)
	if err != nil {
		return nil, err
	}
	txs := make([]*types.Transaction, n)
	for i := range txs {
		raw, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		tx := new(types.Transaction)
		if err := tx.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("%w: decode tx: %v", errs.ErrCorruptedBytes, err)
		}
		txs[i] = tx
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", errs.ErrCorruptedBytes, r.Len())
	}
	return &block.Block{Header: hdr, Transactions: txs}, nil
}

// HashBlock hashes a block by its header alone (transactions are
// covered indirectly through TxRoot, which the block assembler sets to
// the Keccak256 of the concatenated transaction hashes).
func HashBlock(b *block.Block) common.Hash { return HashHeader(b.Header) }

// EncodeLastMeta/DecodeLastMeta encode the persisted chain-tip tuple.
func EncodeLastMeta(m block.LastMeta) []byte {
	var buf bytes.Buffer
	putU64(&buf, m.Height)
	buf.Write(m.Hash.Bytes())
	return buf.Bytes()
}

func DecodeLastMeta(data []byte) (block.LastMeta, error) {
	r := bytes.NewReader(data)
	h, err := readU64(r)
	if err != nil {
		return block.LastMeta{}, err
	}
	var raw [32]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return block.LastMeta{}, fmt.Errorf("%w: %v", errs.ErrCorruptedBytes, err)
	}
	return block.LastMeta{Height: h, Hash: common.BytesToHash(raw[:])}, nil
}

// EncodeValidators/DecodeValidators encode an ordered validator list.
func EncodeValidators(addrs []common.Address) []byte {
	var buf bytes.Buffer
	putU64(&buf, uint64(len(addrs)))
	for _, a := range addrs {
		buf.Write(a.Bytes())
	}
	return buf.Bytes()
}

func DecodeValidators(data []byte) ([]common.Address, error) {
	r := bytes.NewReader(data)
	n, err := readU64(r)
	if err != nil {
		return nil, err
	}
	out := make([]common.Address, n)
	var raw [20]byte
	for i := range out {
		if _, err := io.ReadFull(r, raw[:]); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrCorruptedBytes, err)
		}
		out[i] = common.BytesToAddress(raw[:])
	}
	return out, nil
}

// SigningDigest returns Keccak256(kind || height || round || payload),
// the bytes a consensus message's signature authenticates. payload is
// the proposal hash for PrePrepare, the vote digest for Prepare/Commit,
// and the zero hash for RoundChange, which carries no digest.
func SigningDigest(kind block.MessageKind, view block.View, payload common.Hash) common.Hash {
	var buf bytes.Buffer
	buf.WriteByte(byte(kind))
	putU64(&buf, view.Height)
	putU64(&buf, view.Round)
	buf.Write(payload.Bytes())
	return crypto.Keccak256Hash(buf.Bytes())
}

