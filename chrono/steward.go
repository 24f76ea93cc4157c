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

// TimeSteward is the engine façade spec §4.7 describes: a retroactively
// mutable discrete-event simulation that lazily re-derives only the state
// an edit can actually affect. chrono/amortized, chrono/memoizedflat, and
// chrono/crossverified all implement it; a host only ever depends on this
// interface, never on a concrete engine, so swapping the conformance
// baseline in for property testing requires no change to calling code.
type TimeSteward[T Ordered[T], K any] interface {
	// Constants returns the fixed configuration this steward was built with.
	Constants() K

	// ValidSince reports the oldest time this steward still accepts edits
	// and snapshot requests at. Only ever moves forward; see spec §3 and
	// SPEC_FULL.md's decision on rewinding.
	ValidSince() ValidSince[T]

	// InsertFiatEvent schedules a caller-driven event at time, distinguished
	// from any other fiat event at the same time by distinguisher. Returns
	// ErrInvalidTime if time is at or before ValidSince(), ErrInvalidInput
	// if distinguisher collides with an already-inserted fiat event at the
	// same time.
	InsertFiatEvent(time T, distinguisher DeterministicId, event Event[T, K]) error

	// RemoveFiatEvent undoes a prior InsertFiatEvent naming the same time
	// and distinguisher. Returns ErrInvalidTime / ErrInvalidInput under the
	// same conditions as InsertFiatEvent, plus ErrInvalidInput if no such
	// fiat event is currently scheduled.
	RemoveFiatEvent(time T, distinguisher DeterministicId) error

	// SnapshotBefore returns a frozen view of every field as of the instant
	// immediately before time, running whatever re-derivation is needed to
	// make that view accurate. Returns ErrInvalidTime if time is at or
	// before ValidSince().
	SnapshotBefore(time T) (Snapshot[T], error)

	// UpdatedUntilBefore reports the BaseTime up to which this steward's
	// internal state is currently known-correct without further
	// computation — a progress indicator, not a correctness boundary;
	// SnapshotBefore remains correct for any time, it may just have more
	// work to do first.
	UpdatedUntilBefore() (T, bool)

	// Step performs one bounded unit of reconciliation work (executing or
	// un-executing one event, or resolving one predictor's dependency
	// range) and reports whether there was any work to perform. Hosts that
	// want to run the steward incrementally (e.g. one step per UI frame)
	// call this in a loop instead of requesting a snapshot far in the
	// future up front. Returns ErrInvalidInput (wrapped) when deriving a
	// predicted event would exceed Basics.MaxIteration — a host-recoverable
	// condition (a runaway same-instant cascade), not engine corruption.
	Step() (bool, error)
}

// FromConstants builder functions a concrete engine package exposes share
// this shape: construct an empty steward bound to a host's Basics/Columns/
// Events/Predictors registration and its Constants payload.
type FromConstants[T Ordered[T], K any] func(constants K) TimeSteward[T, K]

// FromSnapshot builder functions reconstruct a steward from a previously
// serialized Snapshot, per spec §6. cmd/chronosteward's replay subcommand
// calls amortized.FromSnapshot directly rather than a value of this type.
type FromSnapshot[T Ordered[T], K any] func(snapshot Snapshot[T], constants K) TimeSteward[T, K]
