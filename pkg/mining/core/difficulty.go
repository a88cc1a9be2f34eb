package core

import (
	"encoding/binary"
	"math"
)

// DifficultyFunc decides whether a claimed solution meets a target
// difficulty. The policy is injected into the job loop rather than
// hard-coded, so callers can supply chain-specific acceptance rules.
type DifficultyFunc func(sol *Solution, target uint64) bool

// ProofDifficulty derives the achieved difficulty of a solution: the maximum
// uint64 divided by the big-endian uint64 prefix of the solution hash,
// saturating to the maximum when the prefix is zero. Smaller hash prefixes
// therefore mean higher difficulty.
func ProofDifficulty(sol *Solution) uint64 {
	h := sol.Hash()
	prefix := binary.BigEndian.Uint64(h[:8])
	if prefix == 0 {
		return math.MaxUint64
	}
	return math.MaxUint64 / prefix
}

// MeetsDifficulty is the default acceptance policy: a solution is accepted
// iff its achieved difficulty is at least the target. Targets of 0 or 1
// accept every structurally complete solution.
func MeetsDifficulty(sol *Solution, target uint64) bool {
	return ProofDifficulty(sol) >= target
}
