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

package memoizedflat

import (
	"sort"

	"github.com/chronosteward/chronosteward/chrono"
)

// Snapshot is this engine's chrono.Snapshot: the field table a replay pass
// left behind, frozen by the fact that nothing mutates it afterward (a
// fresh fieldTable is allocated on every SnapshotBefore call).
type Snapshot[T chrono.Ordered[T]] struct {
	now    T
	fields fieldTable[T]
}

func (s *Snapshot[T]) Now() T       { return s.now }
func (s *Snapshot[T]) UnsafeNow() T { return s.now }

func (s *Snapshot[T]) NumFields() int {
	n := 0
	for _, fs := range s.fields {
		if fs.value != nil {
			n++
		}
	}
	return n
}

func (s *Snapshot[T]) GetRaw(column chrono.ColumnId, row chrono.RowId) (any, chrono.ExtendedTime[T], bool) {
	return s.fields.get(chrono.NewFieldId(row, column))
}

func (s *Snapshot[T]) Fields(yield func(id chrono.FieldId, value any, changed chrono.ExtendedTime[T]) bool) {
	ids := make([]chrono.FieldId, 0, len(s.fields))
	for id := range s.fields {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	for _, id := range ids {
		fs := s.fields[id]
		if fs.value == nil {
			continue
		}
		if !yield(id, fs.value, fs.changed) {
			return
		}
	}
}

// Release is a no-op: this engine holds no structural-sharing state that a
// released snapshot would need to unpin.
func (s *Snapshot[T]) Release() {}
