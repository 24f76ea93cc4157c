// Package prng derives a reproducible *math/rand.Rand for one event
// execution from that execution's ExtendedTime. No example repo in the
// retrieval pack wraps math/rand for this purpose — DESIGN.md records why
// the standard library is used here unmodified rather than a pack
// dependency: this is a deterministic reseed from two uint64s, not a
// cryptographic or high-volume generation concern any of the pack's
// libraries address.
package prng

import "math/rand"

// Seeded returns a *rand.Rand whose entire future output is a pure function
// of (hi, lo) — typically an event's TimeId split into halves. Two
// executions of the same event at the same ExtendedTime therefore draw the
// same sequence of random values, which is what re-execution after an
// upstream edit requires.
func Seeded(hi, lo uint64) *rand.Rand {
	// Fold both halves into the single int64 seed math/rand accepts; the
	// fold is order-sensitive and deterministic, not cryptographic.
	seed := int64(hi ^ (lo * 0x9E3779B97F4A7C15))
	return rand.New(rand.NewSource(seed))
}
