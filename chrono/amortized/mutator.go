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

import (
	"math/rand"

	"github.com/chronosteward/chronosteward/chrono"
	"github.com/chronosteward/chronosteward/chrono/registry"
	"github.com/chronosteward/chronosteward/internal/idhash"
	"github.com/chronosteward/chronosteward/internal/prng"
)

// writtenField is one SetRaw call the mutator recorded, plus whether it
// actually changed the field's value-or-existence — spec §4.5's "a write
// that does not change the value-or-existence still counts as a write for
// dependency purposes but must not cascade invalidation."
type writtenField[T chrono.Ordered[T]] struct {
	id      chrono.FieldId
	changed bool
}

// mutator is the chrono.Mutator an Event.Execute runs against: it records
// every read and write so the executor can install a new EventState.execution
// and propagate invalidations (spec §4.5 step 3).
type mutator[T chrono.Ordered[T], K any] struct {
	store     *Store[T]
	tables    *registry.Tables[T, K]
	constants K
	now       chrono.ExtendedTime[T]
	rng       *rand.Rand
	genIDCall int

	readSet map[chrono.FieldId]struct{}
	writes  []writtenField[T]
}

func newMutator[T chrono.Ordered[T], K any](store *Store[T], tables *registry.Tables[T, K], constants K, now chrono.ExtendedTime[T]) *mutator[T, K] {
	return &mutator[T, K]{
		store:     store,
		tables:    tables,
		constants: constants,
		now:       now,
		// Iteration is mixed in alongside the TimeId: same-base chained
		// events (an event predicted at its own predecessor's instant)
		// share a TimeId and differ only in iteration, and each link of
		// the chain must draw fresh randomness.
		rng:     prng.Seeded(now.Id.Hi, now.Id.Lo^uint64(now.Iteration)*0x9E3779B97F4A7C15),
		readSet: make(map[chrono.FieldId]struct{}),
	}
}

func (m *mutator[T, K]) readFields() []chrono.FieldId {
	out := make([]chrono.FieldId, 0, len(m.readSet))
	for id := range m.readSet {
		out = append(out, id)
	}
	return out
}

func (m *mutator[T, K]) GetRaw(column chrono.ColumnId, row chrono.RowId) (any, chrono.ExtendedTime[T], bool) {
	id := chrono.NewFieldId(row, column)
	m.readSet[id] = struct{}{}
	return m.store.Read(id, m.now, true)
}

func (m *mutator[T, K]) UnsafeNow() T { return m.now.Base }
func (m *mutator[T, K]) Now() T       { return m.now.Base }

func (m *mutator[T, K]) Constants() K                           { return m.constants }
func (m *mutator[T, K]) ExtendedNow() chrono.ExtendedTime[T]     { return m.now }

func (m *mutator[T, K]) SetRaw(column chrono.ColumnId, row chrono.RowId, value any) {
	id := chrono.NewFieldId(row, column)
	old, _, oldOK := m.store.Read(id, m.now, true)
	newOK := value != nil
	changed := oldOK != newOK
	if !changed && oldOK {
		if ct, ok := m.tables.Columns[column]; ok {
			changed = !ct.Equal(old, value)
		} else {
			chrono.PanicCorruptionf("amortized: column %s not registered", column)
		}
	}
	// An equal-value write leaves no trace in the history: recording it
	// would move the field's last-change time and ripple through validity
	// bounds downstream, which is exactly the cascade spec §4.5 says a
	// no-op write must not cause. It still counts for the event's
	// dependency record (reconcileEvent registers it as a dependency on the
	// field) and for its checksum.
	if changed {
		m.store.Write(id, m.now, value)
	}
	m.writes = append(m.writes, writtenField[T]{id: id, changed: changed})
}

// GenID mints a RowId deterministic in (ExtendedNow, call index), per spec
// §6's Mutator.gen_id: re-executing this event after an unrelated upstream
// edit must mint the same child ids it minted the first time.
func (m *mutator[T, K]) GenID() chrono.RowId {
	h := idhash.New("row")
	h.WriteUint64(m.now.Id.Hi).WriteUint64(m.now.Id.Lo).WriteUint64(uint64(m.now.Iteration)).WriteUint64(uint64(m.genIDCall))
	m.genIDCall++
	sum := h.Sum()
	return chrono.DeterministicId{Hi: sum.Hi, Lo: sum.Lo}
}

func (m *mutator[T, K]) Rng() *rand.Rand { return m.rng }
