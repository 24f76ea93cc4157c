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

import "math/rand"

// Accessor is the read side every view into the steward's state shares:
// Snapshot, Mutator, and PredictorAccessor all embed it. Field values are
// stored type-erased (as any) because Go columns are distinguished at
// runtime by ColumnId rather than by a per-column associated type; the
// generic Get function below recovers the static type at each call site.
type Accessor[T Ordered[T]] interface {
	// GetRaw returns the current value stored at (column, row), and the
	// ExtendedTime it was last changed at. ok is false if the field has
	// never been written (equivalently, is conceptually absent).
	GetRaw(column ColumnId, row RowId) (value any, changed ExtendedTime[T], ok bool)

	// UnsafeNow returns the BaseTime this accessor is positioned at without
	// recording it as a read dependency. Only safe to call where the caller
	// does not need to be re-invoked if "now" itself changes; see spec §4.1
	// and Basics.AuditUnsafeNow.
	UnsafeNow() T
}

// MomentaryAccessor adds a safe Now(): for Snapshot and Mutator, reading the
// current time cannot itself go stale, because both are only ever valid at
// one fixed instant. PredictorAccessor intentionally does not implement
// this — a prediction covers a range of times starting at MadeAt rather
// than one instant, so only UnsafeNow is offered.
type MomentaryAccessor[T Ordered[T]] interface {
	Accessor[T]
	Now() T
}

// Mutator is the view an Event.Execute runs against: it can read and write
// fields, mint new deterministic row ids, and draw from the step's seeded
// PRNG. Every field it writes becomes a dependency edge for predictors that
// later read that field; every field it reads (via Get) becomes a
// dependency edge for this event's own re-execution should an earlier edit
// change that field's value.
type Mutator[T Ordered[T], K any] interface {
	MomentaryAccessor[T]

	// Constants returns the steward's fixed configuration payload.
	Constants() K

	// ExtendedNow returns the full ExtendedTime (base, iteration, id) this
	// event is executing at — needed to mint child RowIds deterministically.
	ExtendedNow() ExtendedTime[T]

	// SetRaw stores value at (column, row); value == nil deletes the field.
	SetRaw(column ColumnId, row RowId, value any)

	// GenID mints a fresh RowId, deterministic in (ExtendedNow, call index)
	// so that re-executing this event after an unrelated upstream edit
	// produces the same child ids it produced the first time.
	GenID() RowId

	// Rng returns this execution's seeded PRNG. Like GenID, reproducible
	// across re-executions of the same event at the same ExtendedTime.
	Rng() *rand.Rand
}

// PredictorAccessor is the view a Predictor.Predict runs against: it can
// read fields (recording dependencies) and must call exactly one of
// PredictAtTime / PredictImmediately to report its prediction, or neither to
// report "nothing will happen".
type PredictorAccessor[T Ordered[T], K any] interface {
	Accessor[T]

	// Constants returns the steward's fixed configuration payload.
	Constants() K

	// MadeAt is the lower bound this prediction is valid from: the
	// predictor promises nothing changes the outcome before this time. It is
	// the base time of the floor the engine runs the predictor from, and it
	// stays fixed for the whole run: GetRaw reads never move it.
	MadeAt() T

	// PredictAtTime reports that, absent an intervening edit, what will
	// occur at time t. A t already in the past relative to MadeAt() is a
	// valid answer meaning nothing will happen — the engine discards it.
	PredictAtTime(t T, what Event[T, K])

	// PredictImmediately reports a prediction whose time equals MadeAt(): a
	// zero-duration reaction to becoming valid at all.
	PredictImmediately(what Event[T, K])
}

// Get recovers a typed field value from a's type-erased storage. V must be
// the same static type the host registered column with; a mismatch is a
// registry bug, not a recoverable runtime condition, so Get panics rather
// than returning an error — mirroring how a corrupted column registration
// is treated throughout this package (see CorruptionError).
func Get[T Ordered[T], V any](a Accessor[T], column ColumnId, row RowId) (V, ExtendedTime[T], bool) {
	raw, changed, ok := a.GetRaw(column, row)
	if !ok {
		var zero V
		return zero, changed, false
	}
	v, isV := raw.(V)
	if !isV {
		panic(NewCorruptionErrorf("chrono: column %s row %s: stored value has type %T, not %T", column, row, raw, v))
	}
	return v, changed, true
}

// LastChange reports only the ExtendedTime a field was last written at.
func LastChange[T Ordered[T]](a Accessor[T], column ColumnId, row RowId) (ExtendedTime[T], bool) {
	_, changed, ok := a.GetRaw(column, row)
	return changed, ok
}

// Set stores a typed value through m, boxing it into the any-typed storage.
func Set[T Ordered[T], K any, V any](m Mutator[T, K], column ColumnId, row RowId, value V) {
	m.SetRaw(column, row, value)
}

// Delete removes a field's value through m.
func Delete[T Ordered[T], K any](m Mutator[T, K], column ColumnId, row RowId) {
	m.SetRaw(column, row, nil)
}
