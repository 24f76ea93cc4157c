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
	"fmt"

	"github.com/chronosteward/chronosteward/chrono"
	"github.com/chronosteward/chronosteward/chrono/registry"
	"github.com/chronosteward/chronosteward/internal/tslog"
)

// TimeEncoder turns a host's BaseTime into canonical bytes for the keyed
// hash behind spec §4.1's predicted-event id — the one piece of hashing
// the registry's persistence codec doesn't already need to do up front,
// since a snapshot only has to encode the times that actually occur in it,
// while the scheduler needs to encode every base time a predictor ever
// predicts at.
type TimeEncoder[T chrono.Ordered[T]] func(T) []byte

// Steward is the amortized chrono.TimeSteward: spec §4's scheduler and
// executor, wired to a Store and DepGraph, behind the façade in spec §4.7.
type Steward[T chrono.Ordered[T], K any] struct {
	tables    *registry.Tables[T, K]
	basics    chrono.Basics
	constants K
	encode    TimeEncoder[T]
	log       *tslog.Logger

	store *Store[T]
	deps  *DepGraph[T]
	sched *scheduler[T, K]

	validSince chrono.ValidSince[T]
}

// New constructs an empty Steward, starting at the beginning of time, per
// spec §4.7's from_constants.
func New[T chrono.Ordered[T], K any](tables *registry.Tables[T, K], basics chrono.Basics, constants K, encode TimeEncoder[T], log *tslog.Logger) *Steward[T, K] {
	if log == nil {
		log = tslog.Nop()
	}
	st := &Steward[T, K]{
		tables:     tables,
		basics:     basics,
		constants:  constants,
		encode:     encode,
		log:        log,
		store:      NewStore[T](0xC0FFEE),
		deps:       NewDepGraph[T](),
		sched:      newScheduler[T, K](),
		validSince: chrono.Beginning[T](),
	}
	log.Info("amortized steward constructed", "valid_since", "TheBeginning")
	return st
}

// FromSnapshot reconstructs a Steward from a previously taken Snapshot,
// per spec §4.7: valid_since starts at Before(snapshot.Now()), and every
// field the snapshot observed is re-seeded at its recorded last-change
// time with no further history beneath it — consistent with spec §8's
// replay-equivalence property, since nothing before valid_since is ever
// queried or re-derived again.
func FromSnapshot[T chrono.Ordered[T], K any](tables *registry.Tables[T, K], basics chrono.Basics, constants K, encode TimeEncoder[T], snap chrono.Snapshot[T], log *tslog.Logger) *Steward[T, K] {
	st := New[T, K](tables, basics, constants, encode, log)
	snap.Fields(func(id chrono.FieldId, value any, changed chrono.ExtendedTime[T]) bool {
		st.store.Write(id, changed, value)
		// Re-enroll every predictor watching this column, floored at the
		// field's recorded last change: the prediction it re-derives is
		// made at the same floor the original steward's was, so the
		// predicted event's ExtendedTime comes out identical (spec §8's
		// replay-equivalence property).
		for _, pid := range tables.PredictorsByColumn[id.Column] {
			st.sched.ensureHistory(rowPredictor{row: id.Row, predictor: pid}, changed)
		}
		return true
	})
	st.validSince = chrono.Before(snap.Now())
	st.log.Info("amortized steward reconstructed from snapshot", "valid_since", st.validSince.String())
	return st
}

func (st *Steward[T, K]) Constants() K                    { return st.constants }
func (st *Steward[T, K]) ValidSince() chrono.ValidSince[T] { return st.validSince }

// InsertFiatEvent implements spec §4.7's insert_fiat_event.
func (st *Steward[T, K]) InsertFiatEvent(t T, distinguisher chrono.DeterministicId, event chrono.Event[T, K]) error {
	if st.validSince.CompareTime(t) >= 0 {
		return fmt.Errorf("%w: insert_fiat_event(%v): at or before valid_since %s", chrono.ErrInvalidTime, t, st.validSince)
	}
	key := fiatKey[T]{base: t, distinguisher: distinguisher}
	if _, dup := st.sched.fiatIndex[key]; dup {
		return fmt.Errorf("%w: insert_fiat_event(%v, %s): duplicate fiat event", chrono.ErrInvalidInput, t, distinguisher)
	}
	et := chrono.NewFiatExtendedTime(t, distinguisher)
	st.sched.fiatIndex[key] = et
	st.scheduleEvent(et, event, nil)
	st.log.Debug("inserted fiat event", "time", et)
	return nil
}

// RemoveFiatEvent implements spec §4.7's remove_fiat_event.
func (st *Steward[T, K]) RemoveFiatEvent(t T, distinguisher chrono.DeterministicId) error {
	if st.validSince.CompareTime(t) >= 0 {
		return fmt.Errorf("%w: remove_fiat_event(%v): at or before valid_since %s", chrono.ErrInvalidTime, t, st.validSince)
	}
	key := fiatKey[T]{base: t, distinguisher: distinguisher}
	et, ok := st.sched.fiatIndex[key]
	if !ok {
		return fmt.Errorf("%w: remove_fiat_event(%v, %s): no such fiat event", chrono.ErrInvalidInput, t, distinguisher)
	}
	delete(st.sched.fiatIndex, key)
	es, ok := st.sched.events[et]
	if ok {
		es.scheduled = nil
		es.scheduledBy = nil
		st.sched.markEventNeedsAttention(et)
	}
	st.log.Debug("removed fiat event", "time", et)
	return nil
}

// UpdatedUntilBefore implements spec §4.4's updated_until_before.
func (st *Steward[T, K]) UpdatedUntilBefore() (T, bool) {
	work, ok := st.sched.peek()
	if !ok {
		var zero T
		return zero, false
	}
	if work.kind == workEvent {
		return work.eventTime.Base, true
	}
	return work.predAt.Base, true
}

// Step implements spec §4.4's suspension contract: exactly one unit of
// work, reconciling one event or resolving one missing prediction. The
// only error is ErrInvalidInput for a MaxIteration overrun (spec §7).
func (st *Steward[T, K]) Step() (bool, error) {
	work, ok := st.sched.peek()
	if !ok {
		return false, nil
	}
	switch work.kind {
	case workEvent:
		st.reconcileEvent(work.eventTime)
	case workPrediction:
		if err := st.reconcilePrediction(work.predRP, work.predAt); err != nil {
			return false, err
		}
	}
	return true, nil
}

// SnapshotBefore implements spec §4.7's snapshot_before: steps the
// scheduler until its known-good horizon covers t, then freezes a
// COW view.
func (st *Steward[T, K]) SnapshotBefore(t T) (chrono.Snapshot[T], error) {
	if st.validSince.CompareTime(t) >= 0 {
		return nil, fmt.Errorf("%w: snapshot_before(%v): at or before valid_since %s", chrono.ErrInvalidTime, t, st.validSince)
	}
	for {
		updated, ok := st.UpdatedUntilBefore()
		if !ok || updated.Compare(t) >= 0 {
			break
		}
		progressed, err := st.Step()
		if err != nil {
			return nil, err
		}
		if !progressed {
			break
		}
	}
	snap := st.store.NewSnapshot(t)
	return &Snapshot[T]{store: st.store, snap: snap}, nil
}
