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

// Package memoizedflat implements a second, much simpler TimeSteward: on
// every SnapshotBefore call it replays the full known fiat-event history
// from scratch, in canonical order, keeping no amortized bookkeeping
// between calls. It exists to give chrono/crossverified an independent
// implementation to run chrono/amortized against.
package memoizedflat

import (
	"math/rand"

	"github.com/chronosteward/chronosteward/chrono"
	"github.com/chronosteward/chronosteward/chrono/registry"
	"github.com/chronosteward/chronosteward/internal/idhash"
	"github.com/chronosteward/chronosteward/internal/prng"
)

// fieldState is this engine's entire storage model for one field: just its
// current value and last-change time. There is no historical index because
// a replay only ever reads "now" while moving strictly forward through
// canonical time.
type fieldState[T chrono.Ordered[T]] struct {
	value   any
	changed chrono.ExtendedTime[T]
}

type fieldTable[T chrono.Ordered[T]] map[chrono.FieldId]fieldState[T]

func (ft fieldTable[T]) get(id chrono.FieldId) (any, chrono.ExtendedTime[T], bool) {
	fs, ok := ft[id]
	if !ok || fs.value == nil {
		var zero chrono.ExtendedTime[T]
		return nil, zero, false
	}
	return fs.value, fs.changed, true
}

func (ft fieldTable[T]) set(id chrono.FieldId, at chrono.ExtendedTime[T], value any) {
	ft[id] = fieldState[T]{value: value, changed: at}
}

// rowPredictor names one (row, predictor) pair, same identity amortized's
// scheduler keys a PredictionHistory by.
type rowPredictor struct {
	row       chrono.RowId
	predictor chrono.PredictorId
}

// predictedCall is the event a predictor run has asked to schedule.
type predictedCall[T chrono.Ordered[T], K any] struct {
	atBase T
	event  chrono.Event[T, K]
}

// writtenFlat is one SetRaw call, plus whether it actually changed the
// field's value-or-existence — equal-value writes must not re-trigger
// predictors, matching chrono/amortized's invalidation rule.
type writtenFlat struct {
	id      chrono.FieldId
	changed bool
}

// flatMutator is the chrono.Mutator an Event.Execute runs against during a
// replay pass.
type flatMutator[T chrono.Ordered[T], K any] struct {
	fields    fieldTable[T]
	tables    *registry.Tables[T, K]
	constants K
	now       chrono.ExtendedTime[T]
	rng       *rand.Rand
	genIDCall int
	written   []writtenFlat
}

func newFlatMutator[T chrono.Ordered[T], K any](fields fieldTable[T], tables *registry.Tables[T, K], constants K, now chrono.ExtendedTime[T]) *flatMutator[T, K] {
	return &flatMutator[T, K]{
		fields:    fields,
		tables:    tables,
		constants: constants,
		now:       now,
		// Same seeding rule as chrono/amortized's mutator: iteration mixed
		// in alongside the TimeId, so same-base chained events draw fresh
		// randomness.
		rng: prng.Seeded(now.Id.Hi, now.Id.Lo^uint64(now.Iteration)*0x9E3779B97F4A7C15),
	}
}

func (m *flatMutator[T, K]) GetRaw(column chrono.ColumnId, row chrono.RowId) (any, chrono.ExtendedTime[T], bool) {
	return m.fields.get(chrono.NewFieldId(row, column))
}

func (m *flatMutator[T, K]) UnsafeNow() T { return m.now.Base }
func (m *flatMutator[T, K]) Now() T       { return m.now.Base }

func (m *flatMutator[T, K]) Constants() K                       { return m.constants }
func (m *flatMutator[T, K]) ExtendedNow() chrono.ExtendedTime[T] { return m.now }

func (m *flatMutator[T, K]) SetRaw(column chrono.ColumnId, row chrono.RowId, value any) {
	id := chrono.NewFieldId(row, column)
	old, _, oldOK := m.fields.get(id)
	newOK := value != nil
	changed := oldOK != newOK
	if !changed && oldOK {
		ct, ok := m.tables.Columns[column]
		if !ok {
			chrono.PanicCorruptionf("memoizedflat: column %s not registered", column)
		}
		changed = !ct.Equal(old, value)
	}
	// Equal-value writes leave no trace, matching chrono/amortized's
	// mutator: the field's last-change time must not move for a no-op.
	if changed {
		m.fields.set(id, m.now, value)
	}
	m.written = append(m.written, writtenFlat{id: id, changed: changed})
}

// GenID mirrors chrono/amortized's mutator.GenID: deterministic in
// (ExtendedNow, call index), so replaying the same fiat-event history twice
// mints identical child ids.
func (m *flatMutator[T, K]) GenID() chrono.RowId {
	h := idhash.New("row")
	h.WriteUint64(m.now.Id.Hi).WriteUint64(m.now.Id.Lo).WriteUint64(uint64(m.now.Iteration)).WriteUint64(uint64(m.genIDCall))
	m.genIDCall++
	sum := h.Sum()
	return chrono.DeterministicId{Hi: sum.Hi, Lo: sum.Lo}
}

func (m *flatMutator[T, K]) Rng() *rand.Rand { return m.rng }

// flatPredictorAccessor is the chrono.PredictorAccessor a Predictor.Predict
// runs against during a replay pass. Unlike amortized's predictorAccessor,
// it tracks no validity window: this engine never needs to know when a
// prediction has become stale, since it recomputes every prediction fresh,
// immediately, whenever a write touches a column a predictor watches.
type flatPredictorAccessor[T chrono.Ordered[T], K any] struct {
	fields    fieldTable[T]
	constants K
	row       chrono.RowId
	madeAt    chrono.ExtendedTime[T]

	readSet   map[chrono.FieldId]struct{}
	predicted *predictedCall[T, K]
}

func newFlatPredictorAccessor[T chrono.Ordered[T], K any](fields fieldTable[T], constants K, madeAt chrono.ExtendedTime[T], row chrono.RowId) *flatPredictorAccessor[T, K] {
	return &flatPredictorAccessor[T, K]{
		fields:    fields,
		constants: constants,
		row:       row,
		madeAt:    madeAt,
		readSet:   make(map[chrono.FieldId]struct{}),
	}
}

func (pa *flatPredictorAccessor[T, K]) readFields() []chrono.FieldId {
	out := make([]chrono.FieldId, 0, len(pa.readSet))
	for id := range pa.readSet {
		out = append(out, id)
	}
	return out
}

func (pa *flatPredictorAccessor[T, K]) GetRaw(column chrono.ColumnId, row chrono.RowId) (any, chrono.ExtendedTime[T], bool) {
	id := chrono.NewFieldId(row, column)
	pa.readSet[id] = struct{}{}
	return pa.fields.get(id)
}

func (pa *flatPredictorAccessor[T, K]) UnsafeNow() T { return pa.madeAt.Base }
func (pa *flatPredictorAccessor[T, K]) Constants() K { return pa.constants }
func (pa *flatPredictorAccessor[T, K]) MadeAt() T    { return pa.madeAt.Base }

// PredictAtTime keeps only the earliest call across one run, matching
// chrono/amortized's predictorAccessor; a candidate naming an
// already-passed moment is discarded by the replay loop.
func (pa *flatPredictorAccessor[T, K]) PredictAtTime(t T, what chrono.Event[T, K]) {
	if pa.predicted != nil && pa.predicted.atBase.Compare(t) <= 0 {
		return
	}
	pa.predicted = &predictedCall[T, K]{atBase: t, event: what}
}

func (pa *flatPredictorAccessor[T, K]) PredictImmediately(what chrono.Event[T, K]) {
	pa.PredictAtTime(pa.madeAt.Base, what)
}
