package core

import (
	"math"
	"testing"
)

func TestMeetsDifficultyLowTargets(t *testing.T) {
	var sol Solution
	for i := range sol.Nonces {
		sol.Nonces[i] = uint32(i * 3)
	}

	// Targets 0 and 1 accept every solution: achieved difficulty is at
	// least 1 by construction.
	if !MeetsDifficulty(&sol, 0) {
		t.Error("Target 0 should accept every solution")
	}
	if !MeetsDifficulty(&sol, 1) {
		t.Error("Target 1 should accept every solution")
	}
}

func TestMeetsDifficultyThreshold(t *testing.T) {
	var sol Solution
	for i := range sol.Nonces {
		sol.Nonces[i] = uint32(i)
	}

	achieved := ProofDifficulty(&sol)
	if achieved == 0 {
		t.Fatal("Achieved difficulty should never be zero")
	}

	if !MeetsDifficulty(&sol, achieved) {
		t.Error("Solution should meet a target equal to its achieved difficulty")
	}
	if achieved < math.MaxUint64 && MeetsDifficulty(&sol, achieved+1) {
		t.Error("Solution should not meet a target above its achieved difficulty")
	}
}

func TestProofDifficultyDeterministic(t *testing.T) {
	var a, b Solution
	for i := range a.Nonces {
		a.Nonces[i] = uint32(i * 7)
		b.Nonces[i] = uint32(i * 7)
	}
	if ProofDifficulty(&a) != ProofDifficulty(&b) {
		t.Error("ProofDifficulty should be a pure function of the cycle")
	}
}
