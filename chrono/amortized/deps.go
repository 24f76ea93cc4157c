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
	"github.com/google/btree"

	"github.com/chronosteward/chronosteward/chrono"
)

// rowPredictor names one (row, predictor) pair: the identity a
// PredictionHistory is keyed by in spec §3.
type rowPredictor struct {
	row       chrono.RowId
	predictor chrono.PredictorId
}

func (a rowPredictor) compare(b rowPredictor) int {
	if c := a.row.Compare(b.row); c != 0 {
		return c
	}
	if a.predictor != b.predictor {
		if a.predictor < b.predictor {
			return -1
		}
		return 1
	}
	return 0
}

// predKey orders a prediction's scheduler/dependency entry first by the
// time it is filed under (a bounded prediction's valid_until, or the
// scheduler's next_needed floor), then by (row, predictor) identity, so
// distinct predictions sharing a time never collide as btree keys.
type predKey[T chrono.Ordered[T]] struct {
	at chrono.ExtendedTime[T]
	rp rowPredictor
}

func predKeyLess[T chrono.Ordered[T]](a, b predKey[T]) bool {
	if c := a.at.Compare(b.at); c != 0 {
		return c < 0
	}
	return a.rp.compare(b.rp) < 0
}

func extendedTimeLess[T chrono.Ordered[T]](a, b chrono.ExtendedTime[T]) bool {
	return a.Compare(b) < 0
}

// fieldDeps is spec §3's Dependencies: every event and prediction whose
// last execution or run read this field, kept ordered so a write can find
// exactly the ones strictly after (or not surviving) the change time
// (spec §4.3).
type fieldDeps[T chrono.Ordered[T]] struct {
	events               *btree.BTreeG[chrono.ExtendedTime[T]]
	unboundedPredictions map[rowPredictor]struct{}
	boundedPredictions   *btree.BTreeG[predKey[T]]
}

func newFieldDeps[T chrono.Ordered[T]]() *fieldDeps[T] {
	return &fieldDeps[T]{
		events:               btree.NewG(32, extendedTimeLess[T]),
		unboundedPredictions: make(map[rowPredictor]struct{}),
		boundedPredictions:   btree.NewG(32, predKeyLess[T]),
	}
}

func (d *fieldDeps[T]) empty() bool {
	return d.events.Len() == 0 && len(d.unboundedPredictions) == 0 && d.boundedPredictions.Len() == 0
}

// DepGraph is the full dependency graph of spec §4.3, keyed by FieldId.
type DepGraph[T chrono.Ordered[T]] struct {
	byField map[chrono.FieldId]*fieldDeps[T]
}

func NewDepGraph[T chrono.Ordered[T]]() *DepGraph[T] {
	return &DepGraph[T]{byField: make(map[chrono.FieldId]*fieldDeps[T])}
}

func (g *DepGraph[T]) forField(id chrono.FieldId) *fieldDeps[T] {
	d, ok := g.byField[id]
	if !ok {
		d = newFieldDeps[T]()
		g.byField[id] = d
	}
	return d
}

func (g *DepGraph[T]) gcIfEmpty(id chrono.FieldId, d *fieldDeps[T]) {
	if d.empty() {
		delete(g.byField, id)
	}
}

// AddEventDependency records that the event at `at` read id during its
// last execution.
func (g *DepGraph[T]) AddEventDependency(id chrono.FieldId, at chrono.ExtendedTime[T]) {
	g.forField(id).events.ReplaceOrInsert(at)
}

// RemoveEventDependency reverses AddEventDependency, called when an event
// is undone or re-executed with a different read set.
func (g *DepGraph[T]) RemoveEventDependency(id chrono.FieldId, at chrono.ExtendedTime[T]) {
	d, ok := g.byField[id]
	if !ok {
		return
	}
	d.events.Delete(at)
	g.gcIfEmpty(id, d)
}

// AddPredictionDependency records that the prediction rp read id during
// its last run, filed in the bounded or unbounded bucket per spec §4.3.
func (g *DepGraph[T]) AddPredictionDependency(id chrono.FieldId, rp rowPredictor, validUntil chrono.ExtendedTime[T], bounded bool) {
	d := g.forField(id)
	if !bounded {
		d.unboundedPredictions[rp] = struct{}{}
		return
	}
	d.boundedPredictions.ReplaceOrInsert(predKey[T]{at: validUntil, rp: rp})
}

// RemovePredictionDependencies reverses AddPredictionDependency across
// every field a prediction's last run accessed.
func (g *DepGraph[T]) RemovePredictionDependencies(fields []chrono.FieldId, rp rowPredictor, validUntil chrono.ExtendedTime[T], bounded bool) {
	for _, id := range fields {
		d, ok := g.byField[id]
		if !ok {
			continue
		}
		if bounded {
			d.boundedPredictions.Delete(predKey[T]{at: validUntil, rp: rp})
		} else {
			delete(d.unboundedPredictions, rp)
		}
		g.gcIfEmpty(id, d)
	}
}

// Invalidated reports every event time and (row, predictor) pair that must
// be reconsidered because id changed at changeTime: events strictly after
// changeTime, and predictions whose recorded validity does not survive it
// (spec §4.3).
func (g *DepGraph[T]) Invalidated(id chrono.FieldId, changeTime chrono.ExtendedTime[T]) (events []chrono.ExtendedTime[T], predictions []rowPredictor) {
	d, ok := g.byField[id]
	if !ok {
		return nil, nil
	}
	d.events.AscendGreaterOrEqual(changeTime, func(t chrono.ExtendedTime[T]) bool {
		if t.Compare(changeTime) > 0 {
			events = append(events, t)
		}
		return true
	})
	for rp := range d.unboundedPredictions {
		predictions = append(predictions, rp)
	}
	var zeroRP rowPredictor
	d.boundedPredictions.AscendGreaterOrEqual(predKey[T]{at: changeTime, rp: zeroRP}, func(k predKey[T]) bool {
		if k.at.Compare(changeTime) > 0 {
			predictions = append(predictions, k.rp)
		}
		return true
	})
	return events, predictions
}
