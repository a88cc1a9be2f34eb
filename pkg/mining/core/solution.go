package core

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	// CycleLength is the fixed number of edges in a claimed cycle. Kept
	// static so the host can hand the plugin a caller-allocated array
	// without negotiating sizes across the ABI.
	CycleLength = 42

	// NonceSize is the byte width of the big-endian nonce identifier that
	// links a solution back to the header that produced it.
	NonceSize = 8

	// DigestSize is the byte width of a candidate header digest.
	DigestSize = 32
)

// Solution holds one claimed cycle as reported by a plugin, along with the
// nonce that generated the candidate header. The host enforces no arithmetic
// relationship between the cycle nonces; it only applies a difficulty filter.
type Solution struct {
	Nonces [CycleLength]uint32 `json:"nonces"`
	Nonce  [NonceSize]byte     `json:"nonce"`
}

// NonceUint64 returns the identifying nonce as a uint64.
func (s *Solution) NonceUint64() uint64 {
	return binary.BigEndian.Uint64(s.Nonce[:])
}

// SetNonce stores n big-endian into the solution's nonce field.
func (s *Solution) SetNonce(n uint64) {
	binary.BigEndian.PutUint64(s.Nonce[:], n)
}

// Hash returns the blake2b-256 digest of the cycle nonces, each encoded
// big-endian in order. This is the value the difficulty policy evaluates.
func (s *Solution) Hash() [DigestSize]byte {
	h, _ := blake2b.New256(nil)
	var buf [4]byte
	for _, n := range s.Nonces {
		binary.BigEndian.PutUint32(buf[:], n)
		h.Write(buf[:])
	}
	var ret [DigestSize]byte
	copy(ret[:], h.Sum(nil))
	return ret
}

func (s Solution) String() string {
	parts := make([]string, 0, CycleLength)
	for _, n := range s.Nonces {
		parts = append(parts, fmt.Sprintf("0x%X", n))
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}
