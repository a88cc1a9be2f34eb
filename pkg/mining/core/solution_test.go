package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSolutionNonceAccessors(t *testing.T) {
	var sol Solution
	sol.SetNonce(0x0102030405060708)

	if sol.Nonce != [NonceSize]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08} {
		t.Errorf("SetNonce stored %v, expected big-endian bytes", sol.Nonce)
	}
	if sol.NonceUint64() != 0x0102030405060708 {
		t.Errorf("NonceUint64 returned %#x", sol.NonceUint64())
	}
}

func TestSolutionHash(t *testing.T) {
	var a, b Solution
	for i := range a.Nonces {
		a.Nonces[i] = uint32(i)
		b.Nonces[i] = uint32(i)
	}

	if a.Hash() != b.Hash() {
		t.Error("Identical cycles should hash identically")
	}

	b.Nonces[0] = 99
	if a.Hash() == b.Hash() {
		t.Error("Different cycles should hash differently")
	}

	// The identifying nonce is not part of the proof hash.
	a.SetNonce(1)
	b.Nonces[0] = 0
	b.SetNonce(2)
	if a.Hash() != b.Hash() {
		t.Error("Hash should cover cycle nonces only, not the header nonce")
	}
}

func TestSolutionString(t *testing.T) {
	var sol Solution
	sol.Nonces[0] = 0xAB

	s := sol.String()
	if !strings.HasPrefix(s, "[0xAB, ") {
		t.Errorf("Unexpected String prefix: %s", s)
	}
	if strings.Count(s, ",") != CycleLength-1 {
		t.Errorf("Expected %d entries in %s", CycleLength, s)
	}
}

func TestSolutionJSONRoundTrip(t *testing.T) {
	var sol Solution
	sol.Nonces[0] = 7
	sol.Nonces[CycleLength-1] = 13
	sol.SetNonce(0xdeadbeef)

	data, err := json.Marshal(sol)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var back Solution
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back != sol {
		t.Errorf("JSON round-trip mismatch: %+v vs %+v", back, sol)
	}
}
