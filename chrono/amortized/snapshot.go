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

package amortized

import "github.com/chronosteward/chronosteward/chrono"

// Snapshot adapts one storeSnapshot to the chrono.Snapshot contract.
// Releasing it (via its Release method) is the caller's responsibility, same
// as the original: nothing here frees itself on garbage collection, since
// the store must be told to stop protecting it.
type Snapshot[T chrono.Ordered[T]] struct {
	store *Store[T]
	snap  *storeSnapshot[T]
}

func (s *Snapshot[T]) Now() T       { return s.snap.now }
func (s *Snapshot[T]) UnsafeNow() T { return s.snap.now }

func (s *Snapshot[T]) NumFields() int {
	n := 0
	s.Fields(func(chrono.FieldId, any, chrono.ExtendedTime[T]) bool {
		n++
		return true
	})
	return n
}

func (s *Snapshot[T]) GetRaw(column chrono.ColumnId, row chrono.RowId) (any, chrono.ExtendedTime[T], bool) {
	return s.snap.read(s.store, chrono.NewFieldId(row, column))
}

func (s *Snapshot[T]) Fields(yield func(id chrono.FieldId, value any, changed chrono.ExtendedTime[T]) bool) {
	ids := make([]chrono.FieldId, 0, s.snap.existent.Len())
	s.snap.existent.All(func(id chrono.FieldId) bool {
		ids = append(ids, id)
		return true
	})
	for _, id := range ids {
		value, changed, ok := s.snap.read(s.store, id)
		if !ok {
			continue
		}
		if !yield(id, value, changed) {
			return
		}
	}
}

// Release unregisters this snapshot from its backing Store, freeing any
// copy-on-write entries held only for it. A host must call this once it no
// longer needs the snapshot; forgetting to is a (bounded) memory leak, not
// a correctness bug.
func (s *Snapshot[T]) Release() {
	s.store.Release(s.snap)
}
