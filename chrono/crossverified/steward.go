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

// Package crossverified wraps an amortized.Steward and a memoizedflat.Steward
// bound to the same Basics and feeds them identical operations, panicking
// with a chrono.CorruptionError the moment the two disagree. It is ported
// from stewards/crossverified.rs (see SPEC_FULL.md's supplemented-features
// section): the amortized engine is "the core" this repository implements,
// and memoizedflat is the independently-derived baseline that gives this
// wrapper something to check it against — spec §8's testable property 1
// ("determinism") and the handshakes S3 scenario are both exercised through
// this package rather than by trusting one engine's self-consistency.
package crossverified

import (
	"errors"
	"fmt"

	"github.com/chronosteward/chronosteward/chrono"
	"github.com/chronosteward/chronosteward/chrono/amortized"
	"github.com/chronosteward/chronosteward/chrono/memoizedflat"
	"github.com/chronosteward/chronosteward/chrono/registry"
	"github.com/chronosteward/chronosteward/internal/tslog"
)

// Steward cross-checks an amortized.Steward (Steward0 in the original) and
// a memoizedflat.Steward (Steward1) on every operation. It implements
// chrono.TimeSteward itself, so a host can swap it in for either engine
// alone during development and testing without changing call sites.
type Steward[T chrono.Ordered[T], K any] struct {
	tables *registry.Tables[T, K]
	log    *tslog.Logger
	a      *amortized.Steward[T, K]
	b      *memoizedflat.Steward[T, K]
}

// New constructs a Steward0/Steward1 pair from the beginning of time, per
// the original's TimeStewardFromConstants impl.
func New[T chrono.Ordered[T], K any](
	tables *registry.Tables[T, K],
	basics chrono.Basics,
	constants K,
	encodeA amortized.TimeEncoder[T],
	encodeB memoizedflat.TimeEncoder[T],
	log *tslog.Logger,
) *Steward[T, K] {
	if log == nil {
		log = tslog.Nop()
	}
	a := amortized.New[T, K](tables, basics, constants, encodeA, log)
	b := memoizedflat.New[T, K](tables, basics, constants, encodeB, log)
	mustBeginning(a.ValidSince(), "Steward0")
	mustBeginning(b.ValidSince(), "Steward1")
	return &Steward[T, K]{tables: tables, log: log, a: a, b: b}
}

// FromSnapshot reconstructs both engines from the same snapshot, per the
// original's TimeStewardFromSnapshot impl.
func FromSnapshot[T chrono.Ordered[T], K any](
	tables *registry.Tables[T, K],
	basics chrono.Basics,
	constants K,
	encodeA amortized.TimeEncoder[T],
	encodeB memoizedflat.TimeEncoder[T],
	snap chrono.Snapshot[T],
	log *tslog.Logger,
) *Steward[T, K] {
	if log == nil {
		log = tslog.Nop()
	}
	a := amortized.FromSnapshot[T, K](tables, basics, constants, encodeA, snap, log)
	b := memoizedflat.FromSnapshot[T, K](tables, basics, constants, encodeB, snap, log)
	want := chrono.Before(snap.Now())
	mustEqualValidSince(a.ValidSince(), want, "Steward0")
	mustEqualValidSince(b.ValidSince(), want, "Steward1")
	return &Steward[T, K]{tables: tables, log: log, a: a, b: b}
}

func mustBeginning[T chrono.Ordered[T]](v chrono.ValidSince[T], who string) {
	if !v.IsBeginning() {
		chrono.PanicCorruptionf("crossverified: %s broke the valid_since rules: expected TheBeginning, got %s", who, v)
	}
}

func mustEqualValidSince[T chrono.Ordered[T]](got, want chrono.ValidSince[T], who string) {
	if got.Compare(want) != 0 {
		chrono.PanicCorruptionf("crossverified: %s broke the valid_since rules: expected %s, got %s", who, want, got)
	}
}

func (s *Steward[T, K]) Constants() K { return s.a.Constants() }

// ValidSince reports the max of the two engines' valid_since, matching the
// original's `max(self.0.valid_since(), self.1.valid_since())`.
func (s *Steward[T, K]) ValidSince() chrono.ValidSince[T] {
	va, vb := s.a.ValidSince(), s.b.ValidSince()
	if va.Compare(vb) >= 0 {
		return va
	}
	return vb
}

// InsertFiatEvent feeds both engines and requires their results to agree;
// any disagreement other than both returning InvalidInput is a
// CorruptionError, per the original's reasoning that it "cannot be caused
// by invalid input" alone.
func (s *Steward[T, K]) InsertFiatEvent(t T, distinguisher chrono.DeterministicId, event chrono.Event[T, K]) error {
	if s.ValidSince().CompareTime(t) >= 0 {
		return fmt.Errorf("%w: insert_fiat_event(%v) at or before valid_since %s", chrono.ErrInvalidTime, t, s.ValidSince())
	}
	beforeA, beforeB := s.a.ValidSince(), s.b.ValidSince()
	errA := s.a.InsertFiatEvent(t, distinguisher, event)
	errB := s.b.InsertFiatEvent(t, distinguisher, event)
	result := s.reconcileErr("insert_fiat_event", errA, errB)
	s.assertValidSinceUnchanged(beforeA, beforeB, "insert_fiat_event")
	return result
}

// RemoveFiatEvent is InsertFiatEvent's symmetric counterpart.
func (s *Steward[T, K]) RemoveFiatEvent(t T, distinguisher chrono.DeterministicId) error {
	if s.ValidSince().CompareTime(t) >= 0 {
		return fmt.Errorf("%w: remove_fiat_event(%v) at or before valid_since %s", chrono.ErrInvalidTime, t, s.ValidSince())
	}
	beforeA, beforeB := s.a.ValidSince(), s.b.ValidSince()
	errA := s.a.RemoveFiatEvent(t, distinguisher)
	errB := s.b.RemoveFiatEvent(t, distinguisher)
	result := s.reconcileErr("remove_fiat_event", errA, errB)
	s.assertValidSinceUnchanged(beforeA, beforeB, "remove_fiat_event")
	return result
}

func (s *Steward[T, K]) assertValidSinceUnchanged(beforeA, beforeB chrono.ValidSince[T], op string) {
	if s.a.ValidSince().Compare(beforeA) != 0 {
		chrono.PanicCorruptionf("crossverified: %s: Steward0 moved valid_since", op)
	}
	if s.b.ValidSince().Compare(beforeB) != 0 {
		chrono.PanicCorruptionf("crossverified: %s: Steward1 moved valid_since", op)
	}
}

// reconcileErr implements the original's match over (result0, result1): an
// InvalidTime past a steward's own ValidSince is always this engine's bug
// (never the caller's), so it panics; two InvalidInputs agree and pass
// through; anything else that disagrees is also a bug.
func (s *Steward[T, K]) reconcileErr(op string, errA, errB error) error {
	switch {
	case errA == nil && errB == nil:
		return nil
	case errors.Is(errA, chrono.ErrInvalidTime):
		chrono.PanicCorruptionf("crossverified: %s: Steward0 returned InvalidTime after its own valid_since (%v)", op, errA)
	case errors.Is(errB, chrono.ErrInvalidTime):
		chrono.PanicCorruptionf("crossverified: %s: Steward1 returned InvalidTime after its own valid_since (%v)", op, errB)
	case errors.Is(errA, chrono.ErrInvalidInput) && errors.Is(errB, chrono.ErrInvalidInput):
		return errA
	default:
		chrono.PanicCorruptionf("crossverified: %s: stewards disagreed (a=%v, b=%v); this is always a steward bug, never caller-invalid input", op, errA, errB)
	}
	panic("unreachable")
}

// SnapshotBefore runs both engines to t, asserts every field they report
// agrees exactly (value, per the column's registered equality, and
// last-change time), and returns a combined Snapshot.
func (s *Steward[T, K]) SnapshotBefore(t T) (chrono.Snapshot[T], error) {
	if s.ValidSince().CompareTime(t) >= 0 {
		return nil, fmt.Errorf("%w: snapshot_before(%v): at or before valid_since %s", chrono.ErrInvalidTime, t, s.ValidSince())
	}
	snapA, errA := s.a.SnapshotBefore(t)
	snapB, errB := s.b.SnapshotBefore(t)
	switch {
	case errA != nil && errB != nil:
		return nil, errA
	case errA != nil:
		chrono.PanicCorruptionf("crossverified: snapshot_before(%v): Steward0 failed to return a snapshot it claims to be valid: %v", t, errA)
	case errB != nil:
		chrono.PanicCorruptionf("crossverified: snapshot_before(%v): Steward1 failed to return a snapshot it claims to be valid: %v", t, errB)
	}
	compareSnapshots[T, K](s.tables, snapA, snapB)
	return &Snapshot[T]{a: snapA, b: snapB}, nil
}

// UpdatedUntilBefore reports the earlier of the two engines' progress
// frontiers (memoizedflat's is always "nothing pending", so in practice
// this always reflects the amortized engine).
func (s *Steward[T, K]) UpdatedUntilBefore() (T, bool) {
	ta, okA := s.a.UpdatedUntilBefore()
	tb, okB := s.b.UpdatedUntilBefore()
	switch {
	case !okA && !okB:
		var zero T
		return zero, false
	case okA && !okB:
		return ta, true
	case !okA && okB:
		return tb, true
	default:
		if ta.Compare(tb) <= 0 {
			return ta, true
		}
		return tb, true
	}
}

// Step advances whichever engine is furthest behind, mirroring the
// original's IncrementalTimeSteward impl; since memoizedflat never reports
// pending work, this always steps the amortized engine in practice. An
// ErrInvalidInput from the stepped engine (a MaxIteration overrun, spec
// §7) passes through to the caller.
func (s *Steward[T, K]) Step() (bool, error) {
	ta, okA := s.a.UpdatedUntilBefore()
	tb, okB := s.b.UpdatedUntilBefore()
	if okA && (!okB || ta.Compare(tb) < 0) {
		return s.a.Step()
	}
	if okB {
		return s.b.Step()
	}
	return false, nil
}

// Checksum exposes the amortized engine's running checksum (spec §4.5),
// used by the handshakes S3 scenario to compare two independently driven
// crossverified stewards fed identical fiat inserts.
func (s *Steward[T, K]) Checksum() uint64 { return s.a.Checksum() }

// DebugDump exposes the amortized engine's scheduling-state dump for
// postmortem logging when a divergence is detected elsewhere (e.g. an S3
// checksum mismatch between two separate crossverified instances).
func (s *Steward[T, K]) DebugDump() string { return s.a.DebugDump() }

// Release releases both engines' snapshot resources (memoizedflat's is a
// no-op; amortized's frees copy-on-write state).
func (s *Snapshot[T]) Release() {
	if r, ok := s.a.(interface{ Release() }); ok {
		r.Release()
	}
	if r, ok := s.b.(interface{ Release() }); ok {
		r.Release()
	}
}
