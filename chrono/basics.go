// Copyright 2024 The Erigon Authors
// (original work)
// Copyright 2026 The Chronosteward Authors
// (modifications)
// This file is part of Chronosteward.
//
// Chronosteward is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Chronosteward is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Chronosteward. If not, see <http://www.gnu.org/licenses/>.

package chrono

// Basics is the host-supplied identity of one simulation: its BaseTime type
// (as the T type parameter wherever it appears), its Constants payload (K),
// and a handful of tuning knobs. Two stewards constructed from equal Basics
// values are expected to behave identically given identical inputs; the
// dispatch-table cache in chrono/registry (BuildCached) keys its
// memoization on a caller-supplied string naming the Basics, not on the
// value itself.
type Basics interface {
	// MaxIteration bounds how many events may share one BaseTime; deriving a
	// predicted event past it (an infinite same-instant cascade) is reported
	// as ErrInvalidInput. Zero means DefaultMaxIteration.
	MaxIteration() IterationType

	// AllowFloatsUnsafe opts into storing floating-point field values that
	// may be NaN. See SPEC_FULL.md's Open Questions decisions and
	// chrono/columns.Float64.
	AllowFloatsUnsafe() bool

	// AuditUnsafeNow opts into re-running each predictor invocation that
	// observed UnsafeNow a second time, at an infinitesimally later clock
	// reading, and panicking with a CorruptionError if its prediction
	// disagrees. Off by default: it doubles predictor cost.
	AuditUnsafeNow() bool
}

// ResolveMaxIteration applies the DefaultMaxIteration fallback spec §9
// describes for a zero MaxIteration.
func ResolveMaxIteration(b Basics) IterationType {
	if m := b.MaxIteration(); m != 0 {
		return m
	}
	return DefaultMaxIteration
}

// DefaultBasics is an embeddable zero-value Basics a host can compose into
// its own Constants type to get the conservative defaults (bounded
// iteration, no unsafe floats, no audit) without repeating the boilerplate.
type DefaultBasics struct{}

func (DefaultBasics) MaxIteration() IterationType { return DefaultMaxIteration }
func (DefaultBasics) AllowFloatsUnsafe() bool      { return false }
func (DefaultBasics) AuditUnsafeNow() bool         { return false }


// Event is a host-defined state transition: given a Mutator positioned at
// the event's own ExtendedTime, it reads and writes fields. T is the host's
// BaseTime type, K its Constants type. Implementations must be deterministic
// functions of the fields they read and the Constants — see spec §2's
// determinism invariant.
type Event[T Ordered[T], K any] interface {
	// EventID identifies which host-registered Event type this is; the
	// registry uses it to find this type's Execute method on replay.
	EventID() EventId

	// Execute runs the event against m. It must call m.Set/m.Delete only for
	// fields it is prepared to declare as dependencies by having read (or
	// unconditionally written) them — see Mutator's documentation.
	Execute(m Mutator[T, K])
}

// Predictor is a host-defined pure function from one row's current and
// historical field values to a Prediction of what will next happen to
// (typically) that same row. See spec §4.1.
type Predictor[T Ordered[T], K any] interface {
	PredictorID() PredictorId

	// Predict reads fields through pa (recording dependencies as it goes)
	// and calls pa.PredictAtTime / pa.PredictImmediately at most once.
	Predict(pa PredictorAccessor[T, K], row RowId)
}
