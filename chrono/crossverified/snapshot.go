// Copyright 2026 The Chronosteward Authors
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

package crossverified

import (
	"github.com/chronosteward/chronosteward/chrono"
	"github.com/chronosteward/chronosteward/chrono/registry"
)

// Snapshot pairs the two engines' own snapshots. Reads are served from the
// amortized side (Steward0 in the original); the constructor that produced
// this value has already asserted the two sides agree field-for-field, so
// which one answers subsequent reads is immaterial to correctness.
type Snapshot[T chrono.Ordered[T]] struct {
	a chrono.Snapshot[T]
	b chrono.Snapshot[T]
}

func (s *Snapshot[T]) Now() T {
	na, nb := s.a.UnsafeNow(), s.b.UnsafeNow()
	if na != nb {
		chrono.PanicCorruptionf("crossverified: snapshots disagree on now: Steward0=%v Steward1=%v", na, nb)
	}
	return na
}

func (s *Snapshot[T]) UnsafeNow() T { return s.Now() }

func (s *Snapshot[T]) GetRaw(column chrono.ColumnId, row chrono.RowId) (any, chrono.ExtendedTime[T], bool) {
	return s.a.GetRaw(column, row)
}

func (s *Snapshot[T]) NumFields() int { return s.a.NumFields() }

func (s *Snapshot[T]) Fields(yield func(id chrono.FieldId, value any, changed chrono.ExtendedTime[T]) bool) {
	s.a.Fields(yield)
}

// compareSnapshots implements the original's IntoIterator-based
// cross-check: every field present in one snapshot must be present in the
// other with an identical last-change time and, per the column's
// registered equality function, an identical value.
func compareSnapshots[T chrono.Ordered[T], K any](tables *registry.Tables[T, K], a, b chrono.Snapshot[T]) {
	seenInA := make(map[chrono.FieldId]struct{})
	a.Fields(func(id chrono.FieldId, valueA any, changedA chrono.ExtendedTime[T]) bool {
		seenInA[id] = struct{}{}
		valueB, changedB, ok := b.GetRaw(id.Column, id.Row)
		if !ok {
			chrono.PanicCorruptionf("crossverified: field %s existed in Steward0's snapshot but not Steward1's", id)
		}
		assertFieldsMatch(tables, id, valueA, changedA, valueB, changedB)
		return true
	})

	var countB int
	b.Fields(func(id chrono.FieldId, valueB any, changedB chrono.ExtendedTime[T]) bool {
		countB++
		if _, ok := seenInA[id]; !ok {
			chrono.PanicCorruptionf("crossverified: field %s existed in Steward1's snapshot but not Steward0's", id)
		}
		return true
	})
	if countB != len(seenInA) {
		chrono.PanicCorruptionf("crossverified: snapshots disagree on field count: Steward0=%d Steward1=%d", len(seenInA), countB)
	}
}

func assertFieldsMatch[T chrono.Ordered[T], K any](tables *registry.Tables[T, K], id chrono.FieldId, valueA any, changedA chrono.ExtendedTime[T], valueB any, changedB chrono.ExtendedTime[T]) {
	if changedA.Compare(changedB) != 0 {
		chrono.PanicCorruptionf("crossverified: field %s: snapshots disagree on last-change time: Steward0=%s Steward1=%s", id, changedA, changedB)
	}
	col, ok := tables.Columns[id.Column]
	if !ok {
		chrono.PanicCorruptionf("crossverified: field %s: column not registered", id)
	}
	if !col.Equal(valueA, valueB) {
		chrono.PanicCorruptionf("crossverified: field %s: snapshots agree on last-change time %s but disagree on value: Steward0=%v Steward1=%v", id, changedA, valueA, valueB)
	}
}
