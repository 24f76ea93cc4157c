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
	"fmt"

	"github.com/google/btree"

	"github.com/chronosteward/chronosteward/chrono"
	"github.com/chronosteward/chronosteward/chrono/registry"
	"github.com/chronosteward/chronosteward/internal/timeid"
)

func extendedTimeLess[T chrono.Ordered[T]](a, b chrono.ExtendedTime[T]) bool {
	return a.Compare(b) < 0
}

// replay runs spec §4's scheduling algorithm once, start to finish, over a
// fixed set of fiat events and an initial field table, with no memoization
// across separate replay calls — the whole point of this baseline.
type replay[T chrono.Ordered[T], K any] struct {
	tables    *registry.Tables[T, K]
	basics    chrono.Basics
	constants K
	encode    func(T) []byte
	fields    fieldTable[T]

	pending map[chrono.ExtendedTime[T]]chrono.Event[T, K]
	order   *btree.BTreeG[chrono.ExtendedTime[T]]

	// candidateOf tracks each (row, predictor)'s single currently-scheduled
	// predicted event, so a fresh prediction can evict the stale one it
	// supersedes; scheduledBy is its inverse, so the main loop can tell
	// which prediction an event it just executed came from and re-run that
	// predictor — a prediction expires the moment its own event fires,
	// whether or not the event changed the watched field.
	candidateOf map[rowPredictor]chrono.ExtendedTime[T]
	scheduledBy map[chrono.ExtendedTime[T]]rowPredictor
}

func newReplay[T chrono.Ordered[T], K any](tables *registry.Tables[T, K], basics chrono.Basics, constants K, encode func(T) []byte, fields fieldTable[T]) (*replay[T, K], error) {
	r := &replay[T, K]{
		tables:      tables,
		basics:      basics,
		constants:   constants,
		encode:      encode,
		fields:      fields,
		pending:     make(map[chrono.ExtendedTime[T]]chrono.Event[T, K]),
		order:       btree.NewG(32, extendedTimeLess[T]),
		candidateOf: make(map[rowPredictor]chrono.ExtendedTime[T]),
		scheduledBy: make(map[chrono.ExtendedTime[T]]rowPredictor),
	}
	for id, fs := range fields {
		if err := r.bootstrapPredictorsFor(id, fs.changed); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *replay[T, K]) scheduleFiat(at chrono.ExtendedTime[T], event chrono.Event[T, K]) {
	r.insert(at, event)
}

func (r *replay[T, K]) insert(at chrono.ExtendedTime[T], event chrono.Event[T, K]) {
	r.pending[at] = event
	r.order.ReplaceOrInsert(at)
}

func (r *replay[T, K]) remove(at chrono.ExtendedTime[T]) {
	delete(r.pending, at)
	r.order.Delete(at)
}

// bootstrapPredictorsFor schedules a fresh prediction for every predictor
// watching id's column, as if id had just been written at `at` — used both
// for fields seeded from a prior snapshot and, during the main loop, for
// fields an event just wrote.
func (r *replay[T, K]) bootstrapPredictorsFor(id chrono.FieldId, at chrono.ExtendedTime[T]) error {
	for _, pid := range r.tables.PredictorsByColumn[id.Column] {
		if err := r.runPredictor(rowPredictor{row: id.Row, predictor: pid}, at); err != nil {
			return err
		}
	}
	return nil
}

// runPredictor re-runs one (row, predictor)'s prediction floor-forward from
// at, replacing whatever it had previously scheduled. The only error is
// ErrInvalidInput for a MaxIteration overrun, same as chrono/amortized's
// deriveEventTime.
func (r *replay[T, K]) runPredictor(rp rowPredictor, floor chrono.ExtendedTime[T]) error {
	if old, ok := r.candidateOf[rp]; ok {
		r.remove(old)
		delete(r.scheduledBy, old)
		delete(r.candidateOf, rp)
	}
	predictor, ok := r.tables.Predictors[rp.predictor]
	if !ok {
		chrono.PanicCorruptionf("memoizedflat: predictor %s not registered", rp.predictor)
	}
	pa := newFlatPredictorAccessor[T, K](r.fields, r.constants, floor, rp.row)
	predictor.Predict(pa, rp.row)
	if pa.predicted == nil || pa.predicted.atBase.Compare(floor.Base) < 0 {
		// A prediction naming an already-passed moment means nothing will
		// happen, same as chrono/amortized's executor.
		return nil
	}
	dep := timeid.DependencyHash(pa.readFields())
	var iteration chrono.IterationType
	if pa.predicted.atBase.Compare(floor.Base) == 0 {
		if floor.Iteration >= chrono.ResolveMaxIteration(r.basics) {
			return fmt.Errorf("%w: max_iteration exceeded deriving a predicted event for predictor %s row %s at base %v", chrono.ErrInvalidInput, rp.predictor, rp.row, pa.predicted.atBase)
		}
		iteration = floor.Iteration + 1
	}
	id := timeid.Derive(rp.predictor, rp.row, dep, r.encode(pa.predicted.atBase))
	et := chrono.ExtendedTime[T]{Base: pa.predicted.atBase, Iteration: iteration, Id: id}
	r.candidateOf[rp] = et
	r.scheduledBy[et] = rp
	r.insert(et, pa.predicted.event)
	return nil
}

// runUntil executes every pending event strictly before t, in canonical
// order, re-running predictors whenever a write changes a watched column's
// field — and whenever a prediction's own event has just fired, since that
// expires the prediction even if every write was a no-op.
func (r *replay[T, K]) runUntil(t T) error {
	cutoff := chrono.ExtendedTime[T]{Base: t}
	for {
		min, ok := r.order.Min()
		if !ok || min.Compare(cutoff) >= 0 {
			return nil
		}
		event := r.pending[min]
		r.remove(min)

		m := newFlatMutator[T, K](r.fields, r.tables, r.constants, min)
		event.Execute(m)

		if rp, predicted := r.scheduledBy[min]; predicted {
			delete(r.scheduledBy, min)
			delete(r.candidateOf, rp)
			if err := r.runPredictor(rp, min); err != nil {
				return err
			}
		}
		for _, w := range m.written {
			if w.changed {
				if err := r.bootstrapPredictorsFor(w.id, min); err != nil {
					return err
				}
			}
		}
	}
}
