package consensus

import "github.com/ethereum/go-ethereum/common"

// voteSet tallies signed votes for a single role (Prepare or Commit) at
// the core's current view, indexed by the digest being voted for, then
// by voter. A validator appearing under two different digests in the
// same set is equivocating (invariant: at most one vote per validator
// per view for a given role).
type voteSet map[common.Hash]map[common.Address][]byte

func newVoteSet() voteSet { return make(voteSet) }

// add records voter's signature for digest. It reports the digest's
// vote count after adding, and whether voter was already on record for
// a *different* digest in this set (equivocation).
func (v voteSet) add(digest common.Hash, voter common.Address, sig []byte) (count int, equivocated bool) {
	for d, voters := range v {
		if d == digest {
			continue
		}
		if _, ok := voters[voter]; ok {
			return len(v[digest]), true
		}
	}
	byVoter, ok := v[digest]
	if !ok {
		byVoter = make(map[common.Address][]byte)
		v[digest] = byVoter
	}
	byVoter[voter] = sig
	return len(byVoter), false
}

func (v voteSet) count(digest common.Hash) int { return len(v[digest]) }

func (v voteSet) signatures(digest common.Hash) [][]byte {
	byVoter := v[digest]
	out := make([][]byte, 0, len(byVoter))
	for _, sig := range byVoter {
		out = append(out, sig)
	}
	return out
}
