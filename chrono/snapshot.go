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

import "fmt"

// Snapshot is a read-only, time-frozen view of every field that existed at
// one BaseTime: spec §3's Snapshot<B>. It is a MomentaryAccessor plus
// enumeration, because the persistence format (spec §6) and the
// determinism property tests need to walk every existing field, not just
// look one up.
type Snapshot[T Ordered[T]] interface {
	MomentaryAccessor[T]

	// NumFields reports how many fields exist in this snapshot.
	NumFields() int

	// Fields iterates every (FieldId, value, last-changed) triple that
	// exists in this snapshot, in FieldId.Compare order — the canonical
	// order spec §6 requires of the persistence format.
	Fields(yield func(id FieldId, value any, changed ExtendedTime[T]) bool)
}

// fieldEntry is one row of a FiatSnapshot's map.
type fieldEntry[T Ordered[T]] struct {
	value   any
	changed ExtendedTime[T]
}

// FiatSnapshot is a plain in-memory Snapshot: a frozen copy of every field
// that existed at construction time, keyed by FieldId. chrono/amortized and
// chrono/memoizedflat each hand back their own lighter Snapshot
// implementation from SnapshotBefore; FiatSnapshot is instead the
// wire-level shape the persistence codec below serializes into and
// deserializes out of, and what FromSnapshot reconstructs a steward from
// after a round trip — ported from api.rs's FiatSnapshot<B>.
type FiatSnapshot[T Ordered[T]] struct {
	now    T
	fields map[FieldId]fieldEntry[T]
}

// NewFiatSnapshot builds an empty FiatSnapshot positioned at now; callers
// populate it with Put before handing it to a caller as a Snapshot.
func NewFiatSnapshot[T Ordered[T]](now T) *FiatSnapshot[T] {
	return &FiatSnapshot[T]{now: now, fields: make(map[FieldId]fieldEntry[T])}
}

// Put records one field's value into the snapshot. Not part of the
// Snapshot interface: only the engine populates a FiatSnapshot, callers
// only ever read it.
func (s *FiatSnapshot[T]) Put(id FieldId, value any, changed ExtendedTime[T]) {
	s.fields[id] = fieldEntry[T]{value: value, changed: changed}
}

func (s *FiatSnapshot[T]) Now() T         { return s.now }
func (s *FiatSnapshot[T]) UnsafeNow() T   { return s.now }
func (s *FiatSnapshot[T]) NumFields() int { return len(s.fields) }

func (s *FiatSnapshot[T]) GetRaw(column ColumnId, row RowId) (any, ExtendedTime[T], bool) {
	e, ok := s.fields[NewFieldId(row, column)]
	if !ok {
		var zero ExtendedTime[T]
		return nil, zero, false
	}
	return e.value, e.changed, true
}

func (s *FiatSnapshot[T]) Fields(yield func(id FieldId, value any, changed ExtendedTime[T]) bool) {
	ids := make([]FieldId, 0, len(s.fields))
	for id := range s.fields {
		ids = append(ids, id)
	}
	sortFieldIds(ids)
	for _, id := range ids {
		e := s.fields[id]
		if !yield(id, e.value, e.changed) {
			return
		}
	}
}

func sortFieldIds(ids []FieldId) {
	// Insertion sort is adequate here: snapshots are serialized and diffed
	// far less often than fields are written, and field counts in the
	// scenarios this engine targets are small. A larger host can replace
	// this with a dedicated persistent-index structure without changing
	// the Snapshot contract.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1].Compare(ids[j]) > 0; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

func (e fieldEntry[T]) String() string {
	return fmt.Sprintf("{%v @ %s}", e.value, e.changed)
}
