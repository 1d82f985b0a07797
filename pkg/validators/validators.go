// Package validators implements the proposer-selection policy and
// quorum arithmetic over an ordered, immutable validator set: a single
// round-robin set for the chain's lifetime, with no stake weighting or
// runtime reconfiguration.
package validators

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sanketsaagar/lightchain-l1/pkg/block"
)

// Set is an ordered list of validator addresses. Membership and order
// are invariant at a given height; Set itself is safe for concurrent
// reads while being swapped wholesale under Store (e.g. on reload).
type Set struct {
	mu   sync.RWMutex
	list []common.Address
	idx  map[common.Address]int
}

// New builds a Set from an ordered address list. The order is
// significant: it drives round-robin proposer selection.
func New(addrs []common.Address) *Set {
	s := &Set{list: append([]common.Address(nil), addrs...), idx: make(map[common.Address]int, len(addrs))}
	for i, a := range s.list {
		s.idx[a] = i
	}
	return s
}

// List returns a defensive copy of the ordered validator addresses.
func (s *Set) List() []common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.Address, len(s.list))
	copy(out, s.list)
	return out
}

// Len returns n, the number of validators.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.list)
}

// Contains reports whether addr is a member of the set.
func (s *Set) Contains(addr common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.idx[addr]
	return ok
}

// F returns f = floor((n-1)/3), the maximum number of Byzantine
// validators this set can tolerate.
func (s *Set) F() int {
	n := s.Len()
	if n == 0 {
		return 0
	}
	return (n - 1) / 3
}

// Quorum returns 2f+1, the minimum number of agreeing honest
// signatures required to make progress.
func (s *Set) Quorum() int { return 2*s.F() + 1 }

// ProposerFor returns the deterministic round-robin proposer for view
// v: validators[(height+round) mod n]. All honest nodes compute the
// same answer from the same validator set, with no extra messages.
func (s *Set) ProposerFor(v block.View) (common.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.list)
	if n == 0 {
		return common.Address{}, false
	}
	idx := int((v.Height + v.Round) % uint64(n))
	return s.list[idx], true
}

// IsProposerFor reports whether addr is the computed proposer for v.
func (s *Set) IsProposerFor(addr common.Address, v block.View) bool {
	p, ok := s.ProposerFor(v)
	return ok && p == addr
}
