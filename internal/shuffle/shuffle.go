// Package shuffle produces the per-student question order for an exam.
//
// The permutation is fully deterministic: the same (exam, student) pair
// always yields the same order, so a page reload mid-attempt never
// reshuffles, while two students sitting the same exam see different orders.
// No external randomness source is consulted.
package shuffle

import (
	"github.com/google/uuid"

	"github.com/edustack/securexam-backend/internal/model"
)

// lcg constants (numerical recipes); period 2^32.
const (
	lcgMultiplier = 1664525
	lcgIncrement  = 1013904223
	lcgModulus    = 1 << 32
)

// hashSeed derives an integer seed from a string using a djb2-style rolling
// hash with int32 wraparound. The exact function is not load-bearing; only
// its determinism and spread matter.
func hashSeed(input string) uint32 {
	var h int32
	for _, c := range []byte(input) {
		h = (h << 5) - h + int32(c)
	}
	if h < 0 {
		h = -h
	}
	return uint32(h)
}

// Questions returns a seeded Fisher-Yates permutation of the exam's
// questions keyed on the (exam, student) pair. Zero or one question is
// returned as-is.
func Questions(examID uuid.UUID, studentID string, questions []model.Question) []model.Question {
	out := append([]model.Question(nil), questions...)
	if len(out) < 2 {
		return out
	}

	state := uint64(hashSeed(examID.String() + "_" + studentID))
	for i := len(out) - 1; i > 0; i-- {
		state = (state*lcgMultiplier + lcgIncrement) % lcgModulus
		j := int(state % uint64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}
