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

// Package chrono defines the host-facing surface of the time steward: the
// identifier and time primitives, the Column/Event/Predictor contracts a
// host implements, and the TimeSteward façade itself. The engines that
// implement TimeSteward live in the amortized, memoizedflat, and
// crossverified subpackages.
package chrono

import "fmt"

// ReservedIDWindow is the smallest 64-bit identifier a host may assign to a
// Column, Event, or Predictor. Smaller values are reserved for the engine's
// own internal bookkeeping.
const ReservedIDWindow = 9000

// ColumnId identifies a host-defined Column type. Must be a constant >=
// ReservedIDWindow, unique among all registered columns.
type ColumnId uint64

// EventId identifies a host-defined Event type.
type EventId uint64

// PredictorId identifies a host-defined Predictor type.
type PredictorId uint64

func (c ColumnId) String() string    { return fmt.Sprintf("ColumnId(0x%016x)", uint64(c)) }
func (e EventId) String() string     { return fmt.Sprintf("EventId(0x%016x)", uint64(e)) }
func (p PredictorId) String() string { return fmt.Sprintf("PredictorId(0x%016x)", uint64(p)) }

// DeterministicId is a 128-bit identifier produced by a keyed, deterministic
// hash (see internal/idhash). It backs RowId, TimeId, and fiat-event
// distinguishers.
type DeterministicId struct {
	Hi, Lo uint64
}

// RowId names one simulated entity. Constructed deterministically from
// caller-supplied seed data so that two stewards fed the same inputs agree
// on row identity without coordination.
type RowId = DeterministicId

// TimeId is the final tie-break component of an ExtendedTime.
type TimeId = DeterministicId

func (d DeterministicId) String() string {
	return fmt.Sprintf("%016x%016x", d.Hi, d.Lo)
}

// Compare gives DeterministicId a total order, used both as the final
// ExtendedTime tie-break and for canonical iteration order elsewhere.
func (d DeterministicId) Compare(other DeterministicId) int {
	if d.Hi != other.Hi {
		if d.Hi < other.Hi {
			return -1
		}
		return 1
	}
	if d.Lo != other.Lo {
		if d.Lo < other.Lo {
			return -1
		}
		return 1
	}
	return 0
}

// IsZero reports whether d is the zero identifier (never a valid generated id).
func (d DeterministicId) IsZero() bool { return d.Hi == 0 && d.Lo == 0 }

// FieldId names one typed slot on one entity: the row and the column on it.
type FieldId struct {
	Row    RowId
	Column ColumnId
}

func NewFieldId(row RowId, column ColumnId) FieldId {
	return FieldId{Row: row, Column: column}
}

func (f FieldId) String() string {
	return fmt.Sprintf("FieldId{%s, %s}", f.Row, f.Column)
}

// Compare orders FieldIds first by row, then by column; used for canonical
// snapshot iteration and persistent-set indexing.
func (f FieldId) Compare(other FieldId) int {
	if c := f.Row.Compare(other.Row); c != 0 {
		return c
	}
	if f.Column != other.Column {
		if f.Column < other.Column {
			return -1
		}
		return 1
	}
	return 0
}
