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

// eventExecution is spec §3's EventState.execution: what the last run of
// one event actually did, kept so it can be undone (spec §4.5 step 1)
// before the event is re-run.
type eventExecution[T chrono.Ordered[T]] struct {
	fieldsRead    []chrono.FieldId
	fieldsChanged []chrono.FieldId
	checksum      uint64
}

// eventState is spec §3's EventState.
type eventState[T chrono.Ordered[T], K any] struct {
	time        chrono.ExtendedTime[T]
	scheduled   chrono.Event[T, K]
	scheduledBy *rowPredictor
	exec        *eventExecution[T]
}

// prediction is spec §3's Prediction.
type prediction[T chrono.Ordered[T], K any] struct {
	accessed   []chrono.FieldId
	madeAt     chrono.ExtendedTime[T]
	validUntil chrono.ExtendedTime[T]
	bounded    bool
	hasWhat    bool
	whatAt     chrono.ExtendedTime[T]
	whatEvent  chrono.Event[T, K]
}

// predictionHistory is spec §3's PredictionHistory.
type predictionHistory[T chrono.Ordered[T], K any] struct {
	nextNeeded *chrono.ExtendedTime[T]
	preds      []*prediction[T, K]
}

// scheduler is spec §4.4: the two ordered work queues plus the lookup
// tables the executor needs to turn a queue entry back into live state.
type scheduler[T chrono.Ordered[T], K any] struct {
	eventsNeedingAttention   *btree.BTreeG[chrono.ExtendedTime[T]]
	predictionsMissingByTime *btree.BTreeG[predKey[T]]

	events              map[chrono.ExtendedTime[T]]*eventState[T, K]
	predictionHistories map[rowPredictor]*predictionHistory[T, K]

	// fiatIndex maps a fiat event's (BaseTime, distinguisher) identity to
	// the ExtendedTime it was scheduled at, per spec §6's "Fiat-event
	// identity: (BaseTime, 128-bit distinguisher)".
	fiatIndex map[fiatKey[T]]chrono.ExtendedTime[T]
}

type fiatKey[T chrono.Ordered[T]] struct {
	base          T
	distinguisher chrono.DeterministicId
}

func newScheduler[T chrono.Ordered[T], K any]() *scheduler[T, K] {
	return &scheduler[T, K]{
		eventsNeedingAttention:   btree.NewG(32, extendedTimeLess[T]),
		predictionsMissingByTime: btree.NewG(32, predKeyLess[T]),
		events:                   make(map[chrono.ExtendedTime[T]]*eventState[T, K]),
		predictionHistories:      make(map[rowPredictor]*predictionHistory[T, K]),
		fiatIndex:                make(map[fiatKey[T]]chrono.ExtendedTime[T]),
	}
}

func (s *scheduler[T, K]) markEventNeedsAttention(t chrono.ExtendedTime[T]) {
	s.eventsNeedingAttention.ReplaceOrInsert(t)
}

func (s *scheduler[T, K]) clearEventNeedsAttention(t chrono.ExtendedTime[T]) {
	s.eventsNeedingAttention.Delete(t)
}

func (s *scheduler[T, K]) markPredictionMissing(rp rowPredictor, at chrono.ExtendedTime[T]) {
	s.predictionsMissingByTime.ReplaceOrInsert(predKey[T]{at: at, rp: rp})
}

func (s *scheduler[T, K]) clearPredictionMissing(rp rowPredictor, at chrono.ExtendedTime[T]) {
	s.predictionsMissingByTime.Delete(predKey[T]{at: at, rp: rp})
}

// ensureState returns (creating if absent) the eventState tracked for t.
func (s *scheduler[T, K]) ensureState(t chrono.ExtendedTime[T]) *eventState[T, K] {
	st, ok := s.events[t]
	if !ok {
		st = &eventState[T, K]{time: t}
		s.events[t] = st
	}
	return st
}

// deleteState removes t's eventState entirely, per spec §4.5 step 2 ("if
// the event is no longer scheduled, drop EventState"). Callers must only
// call this once the event has no execution and no schedule left.
func (s *scheduler[T, K]) deleteState(t chrono.ExtendedTime[T]) {
	delete(s.events, t)
}

// ensureHistory returns (creating if absent) the predictionHistory tracked
// for rp, enrolling it as immediately missing at floor if newly created.
func (s *scheduler[T, K]) ensureHistory(rp rowPredictor, floor chrono.ExtendedTime[T]) *predictionHistory[T, K] {
	ph, ok := s.predictionHistories[rp]
	if !ok {
		f := floor
		ph = &predictionHistory[T, K]{nextNeeded: &f}
		s.predictionHistories[rp] = ph
		s.markPredictionMissing(rp, floor)
	}
	return ph
}

// workKind discriminates the two units of work a step() may perform.
type workKind int

const (
	workEvent workKind = iota
	workPrediction
)

type workItem[T chrono.Ordered[T]] struct {
	kind      workKind
	eventTime chrono.ExtendedTime[T]
	predRP    rowPredictor
	predAt    chrono.ExtendedTime[T]
}

// peek implements spec §4.4's "pick the smaller of the two queue tops",
// returning ok=false when both queues are empty (the steward has no known
// pending work).
func (s *scheduler[T, K]) peek() (workItem[T], bool) {
	evT, evOK := s.eventsNeedingAttention.Min()
	prK, prOK := s.predictionsMissingByTime.Min()
	switch {
	case evOK && prOK:
		if evT.Compare(prK.at) <= 0 {
			return workItem[T]{kind: workEvent, eventTime: evT}, true
		}
		return workItem[T]{kind: workPrediction, predRP: prK.rp, predAt: prK.at}, true
	case evOK:
		return workItem[T]{kind: workEvent, eventTime: evT}, true
	case prOK:
		return workItem[T]{kind: workPrediction, predRP: prK.rp, predAt: prK.at}, true
	default:
		return workItem[T]{}, false
	}
}
