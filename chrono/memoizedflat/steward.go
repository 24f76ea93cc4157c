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

	"github.com/chronosteward/chronosteward/chrono"
	"github.com/chronosteward/chronosteward/chrono/registry"
	"github.com/chronosteward/chronosteward/internal/tslog"
)

// TimeEncoder turns a host's BaseTime into canonical bytes for the keyed
// hash behind a predicted event's id, mirroring chrono/amortized.TimeEncoder.
type TimeEncoder[T chrono.Ordered[T]] func(T) []byte

type fiatKey[T chrono.Ordered[T]] struct {
	base          T
	distinguisher chrono.DeterministicId
}

// Steward is chrono.TimeSteward's flat baseline implementation. It keeps no
// amortized bookkeeping at all: every SnapshotBefore call replays the whole
// known fiat-event history from TheBeginning (or from the snapshot it was
// constructed from), discarding and re-deriving all state. It exists to
// give chrono/crossverified a second, independently-written implementation
// to check chrono/amortized against.
type Steward[T chrono.Ordered[T], K any] struct {
	tables    *registry.Tables[T, K]
	basics    chrono.Basics
	constants K
	encode    TimeEncoder[T]
	log       *tslog.Logger

	fiat       map[fiatKey[T]]chrono.ExtendedTime[T]
	fiatEvents map[chrono.ExtendedTime[T]]chrono.Event[T, K]

	initial    fieldTable[T]
	validSince chrono.ValidSince[T]
}

// New constructs an empty Steward, starting at the beginning of time.
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
		fiat:       make(map[fiatKey[T]]chrono.ExtendedTime[T]),
		fiatEvents: make(map[chrono.ExtendedTime[T]]chrono.Event[T, K]),
		initial:    make(fieldTable[T]),
		validSince: chrono.Beginning[T](),
	}
	log.Info("memoizedflat steward constructed", "valid_since", "TheBeginning")
	return st
}

// FromSnapshot reconstructs a Steward whose replays start from snap's field
// table instead of TheBeginning; fiat events at or before snap.Now() are no
// longer representable, matching valid_since's new floor.
func FromSnapshot[T chrono.Ordered[T], K any](tables *registry.Tables[T, K], basics chrono.Basics, constants K, encode TimeEncoder[T], snap chrono.Snapshot[T], log *tslog.Logger) *Steward[T, K] {
	st := New[T, K](tables, basics, constants, encode, log)
	snap.Fields(func(id chrono.FieldId, value any, changed chrono.ExtendedTime[T]) bool {
		st.initial.set(id, changed, value)
		return true
	})
	st.validSince = chrono.Before(snap.Now())
	st.log.Info("memoizedflat steward reconstructed from snapshot", "valid_since", st.validSince.String())
	return st
}

func (st *Steward[T, K]) Constants() K                     { return st.constants }
func (st *Steward[T, K]) ValidSince() chrono.ValidSince[T] { return st.validSince }

func (st *Steward[T, K]) InsertFiatEvent(t T, distinguisher chrono.DeterministicId, event chrono.Event[T, K]) error {
	if st.validSince.CompareTime(t) >= 0 {
		return fmt.Errorf("%w: insert_fiat_event(%v): at or before valid_since %s", chrono.ErrInvalidTime, t, st.validSince)
	}
	key := fiatKey[T]{base: t, distinguisher: distinguisher}
	if _, dup := st.fiat[key]; dup {
		return fmt.Errorf("%w: insert_fiat_event(%v, %s): duplicate fiat event", chrono.ErrInvalidInput, t, distinguisher)
	}
	et := chrono.NewFiatExtendedTime(t, distinguisher)
	st.fiat[key] = et
	st.fiatEvents[et] = event
	st.log.Debug("inserted fiat event", "time", et)
	return nil
}

func (st *Steward[T, K]) RemoveFiatEvent(t T, distinguisher chrono.DeterministicId) error {
	if st.validSince.CompareTime(t) >= 0 {
		return fmt.Errorf("%w: remove_fiat_event(%v): at or before valid_since %s", chrono.ErrInvalidTime, t, st.validSince)
	}
	key := fiatKey[T]{base: t, distinguisher: distinguisher}
	et, ok := st.fiat[key]
	if !ok {
		return fmt.Errorf("%w: remove_fiat_event(%v, %s): no such fiat event", chrono.ErrInvalidInput, t, distinguisher)
	}
	delete(st.fiat, key)
	delete(st.fiatEvents, et)
	st.log.Debug("removed fiat event", "time", et)
	return nil
}

// UpdatedUntilBefore reports "nothing pending": this engine never suspends
// mid-computation, so there is no partial frontier to report.
func (st *Steward[T, K]) UpdatedUntilBefore() (t T, ok bool) { return t, false }

// Step is a no-op: all work happens inside SnapshotBefore's replay.
func (st *Steward[T, K]) Step() (bool, error) { return false, nil }

// SnapshotBefore runs spec §4's scheduling algorithm from scratch, over
// every currently-known fiat event, up to t, and freezes the resulting
// field table as a Snapshot.
func (st *Steward[T, K]) SnapshotBefore(t T) (chrono.Snapshot[T], error) {
	if st.validSince.CompareTime(t) >= 0 {
		return nil, fmt.Errorf("%w: snapshot_before(%v): at or before valid_since %s", chrono.ErrInvalidTime, t, st.validSince)
	}
	fields := make(fieldTable[T], len(st.initial))
	for id, fs := range st.initial {
		fields[id] = fs
	}
	r, err := newReplay[T, K](st.tables, st.basics, st.constants, st.encode, fields)
	if err != nil {
		return nil, err
	}
	for et, event := range st.fiatEvents {
		r.scheduleFiat(et, event)
	}
	if err := r.runUntil(t); err != nil {
		return nil, err
	}
	st.log.Debug("memoizedflat replayed", "until", t, "fields", len(fields))
	return &Snapshot[T]{now: t, fields: fields}, nil
}
