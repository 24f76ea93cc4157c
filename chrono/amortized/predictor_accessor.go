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
	"github.com/chronosteward/chronosteward/chrono"
	"github.com/chronosteward/chronosteward/chrono/registry"
)

// predictedCall is the event a predictor has, so far, asked to schedule:
// recorded so PredictAtTime can keep "the earliest wins" (spec §4.6.3.b)
// across repeated calls within one run.
type predictedCall[T chrono.Ordered[T], K any] struct {
	atBase T
	event  chrono.Event[T, K]
}

// predictorAccessor is the chrono.PredictorAccessor a Predictor.Predict
// runs against: it records every read's FieldId and the exclusive upper
// bound of that read's validity (spec §4.6 step 3a), and accepts at most
// one predicted event.
type predictorAccessor[T chrono.Ordered[T], K any] struct {
	store     *Store[T]
	tables    *registry.Tables[T, K]
	constants K
	row       chrono.RowId
	madeAt    chrono.ExtendedTime[T]

	readSet    map[chrono.FieldId]struct{}
	upperBound *chrono.ExtendedTime[T]
	predicted  *predictedCall[T, K]
	usedUnsafeNow bool
}

func newPredictorAccessor[T chrono.Ordered[T], K any](store *Store[T], tables *registry.Tables[T, K], constants K, madeAt chrono.ExtendedTime[T], row chrono.RowId) *predictorAccessor[T, K] {
	return &predictorAccessor[T, K]{
		store:     store,
		tables:    tables,
		constants: constants,
		row:       row,
		madeAt:    madeAt,
		readSet:   make(map[chrono.FieldId]struct{}),
	}
}

func (pa *predictorAccessor[T, K]) readFields() []chrono.FieldId {
	out := make([]chrono.FieldId, 0, len(pa.readSet))
	for id := range pa.readSet {
		out = append(out, id)
	}
	return out
}

func (pa *predictorAccessor[T, K]) narrow(t chrono.ExtendedTime[T]) {
	if pa.upperBound == nil || t.Compare(*pa.upperBound) < 0 {
		bound := t
		pa.upperBound = &bound
	}
}

func (pa *predictorAccessor[T, K]) GetRaw(column chrono.ColumnId, row chrono.RowId) (any, chrono.ExtendedTime[T], bool) {
	id := chrono.NewFieldId(row, column)
	pa.readSet[id] = struct{}{}
	value, changed, ok, next, hasNext := pa.store.ReadWithNext(id, pa.madeAt, true)
	if hasNext {
		pa.narrow(next)
	}
	return value, changed, ok
}

// UnsafeNow returns the predictor's current floor without recording a
// field dependency. Per spec §4.6.3.c, using it sets a flag that —
// unless the predictor itself predicts a later event — bounds the
// resulting Prediction to expire at the very next instant, because the
// predictor's output may depend on "now" in a way no field read captures.
// A bound from a field read takes precedence over this flag: when any read
// is bounded, the Prediction expires at that read's bound, whether it lies
// before or after the next instant.
func (pa *predictorAccessor[T, K]) UnsafeNow() T {
	pa.usedUnsafeNow = true
	return pa.madeAt.Base
}

func (pa *predictorAccessor[T, K]) Constants() K { return pa.constants }
func (pa *predictorAccessor[T, K]) MadeAt() T    { return pa.madeAt.Base }

// PredictAtTime records a candidate predicted event; only the
// earliest-in-base-time call across one run is kept (spec §4.6.3.b). A
// candidate whose time ends up before the prediction's floor is recorded
// here but discarded by the executor: a predictor may name a moment that
// has already passed, and the answer is that nothing will happen.
func (pa *predictorAccessor[T, K]) PredictAtTime(t T, what chrono.Event[T, K]) {
	if pa.predicted != nil && pa.predicted.atBase.Compare(t) <= 0 {
		return
	}
	pa.predicted = &predictedCall[T, K]{atBase: t, event: what}
}

func (pa *predictorAccessor[T, K]) PredictImmediately(what chrono.Event[T, K]) {
	pa.PredictAtTime(pa.madeAt.Base, what)
}

// immediatelyAfter is the smallest ExtendedTime strictly greater than t
// representable without changing its Base, used to bound a prediction
// that used UnsafeNow and did not itself predict a later event (spec
// §4.6.3.c).
func immediatelyAfter[T chrono.Ordered[T]](t chrono.ExtendedTime[T]) chrono.ExtendedTime[T] {
	return chrono.ExtendedTime[T]{Base: t.Base, Iteration: t.Iteration + 1, Id: t.Id}
}

// finalizeValidity computes the part of spec §4.6 step 4's valid_until
// this accessor alone can determine: the minimum upper bound among every
// field it read, falling back to "immediately after madeAt" if UnsafeNow
// was used, no read bounded it, and no event at a later base time was
// predicted. The executor takes the min of this
// result against the predicted event's own derived time, once that time
// is known (it cannot be computed until the dependency hash of the full
// read set, including reads made after the predicted call, is final).
// Returns bounded=false only when neither applies, meaning the prediction
// holds until some field it read changes (an unbounded dependency).
func (pa *predictorAccessor[T, K]) finalizeValidity() (validUntil chrono.ExtendedTime[T], bounded bool) {
	if pa.upperBound != nil {
		return *pa.upperBound, true
	}
	if pa.usedUnsafeNow && (pa.predicted == nil || pa.predicted.atBase.Compare(pa.madeAt.Base) <= 0) {
		return immediatelyAfter(pa.madeAt), true
	}
	return validUntil, false
}
