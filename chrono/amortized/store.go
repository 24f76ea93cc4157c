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

// Package amortized implements the full incremental time steward: spec
// §4.2-§4.7's field-history store, dependency graph, scheduler, and
// executor, wired together behind the chrono.TimeSteward façade. This is
// "the core" SPEC_FULL.md's purpose section describes — everything else in
// this repository exists to exercise or verify it.
package amortized

import (
	"sort"

	"github.com/chronosteward/chronosteward/chrono"
	"github.com/chronosteward/chronosteward/internal/pset"
)

// fieldRecord is spec §3's Field: a value (nil meaning deleted) as of one
// ExtendedTime. FieldType values are always stored boxed in an any, so a
// genuinely absent field and a field whose column stores Go's nil are
// indistinguishable; hosts should not register a column whose FieldType's
// zero value is a nil interface/pointer if "present but nil" must be
// representable.
type fieldRecord[T chrono.Ordered[T]] struct {
	changed chrono.ExtendedTime[T]
	value   any
}

// fieldHistory is spec §3's FieldHistory: a strictly-increasing sequence of
// changes to one field, plus spec §4.2's first_snapshot_not_updated
// watermark. Every snapshot below the watermark is settled for this field:
// taken before the field existed (it reads absent), already holding a
// copy-on-write override (the override answers its reads), or released.
// The snapshot walks skip below it and advance it as snapshots settle.
type fieldHistory[T chrono.Ordered[T]] struct {
	changes                 []fieldRecord[T]
	firstSnapshotNotUpdated int
}

// search returns the index of the greatest entry with changed <= at
// (inclusive) or changed < at (!inclusive), or -1 if none qualifies.
func (fh *fieldHistory[T]) search(at chrono.ExtendedTime[T], inclusive bool) int {
	return sort.Search(len(fh.changes), func(i int) bool {
		c := fh.changes[i].changed.Compare(at)
		if inclusive {
			return c > 0
		}
		return c >= 0
	}) - 1
}

// read implements spec §4.2's read(field, at, inclusive): the Field with
// greatest last_change <= at (or < at), plus the next change time after it
// if any, for a predictor's validity-window bookkeeping.
func (fh *fieldHistory[T]) read(at chrono.ExtendedTime[T], inclusive bool) (rec fieldRecord[T], next chrono.ExtendedTime[T], hasNext bool, ok bool) {
	idx := fh.search(at, inclusive)
	if idx < 0 {
		if len(fh.changes) > 0 {
			next, hasNext = fh.changes[0].changed, true
		}
		return rec, next, hasNext, false
	}
	rec = fh.changes[idx]
	if idx+1 < len(fh.changes) {
		next, hasNext = fh.changes[idx+1].changed, true
	}
	return rec, next, hasNext, true
}

// beforeCutoff builds the ExtendedTime used to query "the state immediately
// before base time t": the smallest possible ExtendedTime at base t, so
// that a strict-less comparison excludes every entry whose Base equals t
// (those belong to events scheduled exactly at t, not yet "before" it) and
// includes every entry with Base < t regardless of its iteration or id.
func beforeCutoff[T chrono.Ordered[T]](t T) chrono.ExtendedTime[T] {
	return chrono.ExtendedTime[T]{Base: t}
}

// overrideEntry is one field's copy-on-write value held by a live snapshot:
// the value the field had immediately before a later write or truncation
// overwrote it, captured by updateSnapshots.
type overrideEntry[T chrono.Ordered[T]] struct {
	rec     fieldRecord[T]
	existed bool
}

// storeSnapshot is the amortized engine's concrete backing for a
// chrono.Snapshot: spec §3's Snapshot — a COW map plus the persistent
// existent-field set captured at creation, both described in spec §4.2.
type storeSnapshot[T chrono.Ordered[T]] struct {
	index     int
	now       T
	existent  pset.Set[chrono.FieldId]
	overrides map[chrono.FieldId]overrideEntry[T]
}

// Store is spec §4.2's field-history store: one fieldHistory per FieldId,
// the persistent existent-field set, and the live snapshots that share
// structural ownership of historical entries until they're released.
type Store[T chrono.Ordered[T]] struct {
	fields          map[chrono.FieldId]*fieldHistory[T]
	existent        pset.Set[chrono.FieldId]
	nextSnapshotIdx int
	live            map[int]*storeSnapshot[T]
}

func NewStore[T chrono.Ordered[T]](pcgSeed int64) *Store[T] {
	return &Store[T]{
		fields:   make(map[chrono.FieldId]*fieldHistory[T]),
		existent: pset.New[chrono.FieldId](pcgSeed),
		live:     make(map[int]*storeSnapshot[T]),
	}
}

// Read returns the value and last-change time of id as of at, and whether
// it is currently present (a stored nil/never-written field is reported
// identically as "absent", per spec §3's Field.value: Option<Opaque>).
func (s *Store[T]) Read(id chrono.FieldId, at chrono.ExtendedTime[T], inclusive bool) (any, chrono.ExtendedTime[T], bool) {
	fh, ok := s.fields[id]
	if !ok {
		var zero chrono.ExtendedTime[T]
		return nil, zero, false
	}
	rec, _, _, found := fh.read(at, inclusive)
	if !found {
		var zero chrono.ExtendedTime[T]
		return nil, zero, false
	}
	return rec.value, rec.changed, rec.value != nil
}

// LastRecordAt returns the time of the latest history entry at or before
// at, whether or not that entry still holds a value — a deletion entry
// counts. Used by the executor to pick the floor re-predictions restart
// from after a retroactive removal.
func (s *Store[T]) LastRecordAt(id chrono.FieldId, at chrono.ExtendedTime[T]) (chrono.ExtendedTime[T], bool) {
	fh, ok := s.fields[id]
	if !ok {
		var zero chrono.ExtendedTime[T]
		return zero, false
	}
	rec, _, _, found := fh.read(at, true)
	if !found {
		var zero chrono.ExtendedTime[T]
		return zero, false
	}
	return rec.changed, true
}

// ReadWithNext is Read plus the next recorded change time after at, which a
// predictor's accessor uses to narrow its prediction's validity window
// (spec §4.6.3.a).
func (s *Store[T]) ReadWithNext(id chrono.FieldId, at chrono.ExtendedTime[T], inclusive bool) (value any, changed chrono.ExtendedTime[T], ok bool, next chrono.ExtendedTime[T], hasNext bool) {
	fh, present := s.fields[id]
	if !present {
		return nil, changed, false, next, false
	}
	rec, nextT, hasNextT, found := fh.read(at, inclusive)
	if !found {
		return nil, changed, false, nextT, hasNextT
	}
	return rec.value, rec.changed, rec.value != nil, nextT, hasNextT
}

// Write implements spec §4.2's write(field, at, value): appends a new
// change, or replaces one already recorded at exactly at (the case of
// re-executing an event at an ExtendedTime it previously wrote at),
// protecting any live snapshot whose frozen view the mutation would
// otherwise change.
func (s *Store[T]) Write(id chrono.FieldId, at chrono.ExtendedTime[T], value any) {
	fh, existed := s.fields[id]
	wasEmpty := !existed || len(fh.changes) == 0
	if !existed {
		fh = &fieldHistory[T]{firstSnapshotNotUpdated: s.nextSnapshotIdx}
		s.fields[id] = fh
	}
	idx := sort.Search(len(fh.changes), func(i int) bool { return fh.changes[i].changed.Compare(at) >= 0 })
	if idx < len(fh.changes) && fh.changes[idx].changed.Compare(at) == 0 {
		s.updateSnapshots(fh, id, fh.changes[idx])
		fh.changes[idx].value = value
	} else {
		s.preserveViewsBeforeInsert(fh, id, at)
		fh.changes = append(fh.changes, fieldRecord[T]{})
		copy(fh.changes[idx+1:], fh.changes[idx:])
		fh.changes[idx] = fieldRecord[T]{changed: at, value: value}
	}
	if wasEmpty {
		s.existent = s.existent.Insert(id)
	}
}

// RemoveAt deletes the single entry at exactly `at`, used by the executor
// to undo one event's prior writes before re-executing it (spec §4.5 step
// 1). It is a programmer error to call this for a time with no recorded
// entry; the executor only ever calls it for times it itself recorded in
// an EventState's fields_changed.
func (s *Store[T]) RemoveAt(id chrono.FieldId, at chrono.ExtendedTime[T]) {
	fh, ok := s.fields[id]
	if !ok {
		chrono.PanicCorruptionf("amortized: RemoveAt(%s, %s): no field history", id, at)
	}
	idx := sort.Search(len(fh.changes), func(i int) bool { return fh.changes[i].changed.Compare(at) >= 0 })
	if idx >= len(fh.changes) || fh.changes[idx].changed.Compare(at) != 0 {
		chrono.PanicCorruptionf("amortized: RemoveAt(%s, %s): no entry at that exact time", id, at)
	}
	s.updateSnapshots(fh, id, fh.changes[idx])
	fh.changes = append(fh.changes[:idx], fh.changes[idx+1:]...)
	if len(fh.changes) == 0 {
		s.existent = s.existent.Remove(id)
		delete(s.fields, id)
	}
}

// Truncate implements spec §4.2's truncate(field, from): drops every entry
// at or after from, protecting live snapshots for each dropped entry.
func (s *Store[T]) Truncate(id chrono.FieldId, from chrono.ExtendedTime[T]) {
	fh, ok := s.fields[id]
	if !ok {
		return
	}
	idx := sort.Search(len(fh.changes), func(i int) bool { return fh.changes[i].changed.Compare(from) >= 0 })
	for i := len(fh.changes) - 1; i >= idx; i-- {
		s.updateSnapshots(fh, id, fh.changes[i])
	}
	fh.changes = fh.changes[:idx]
	if len(fh.changes) == 0 {
		s.existent = s.existent.Remove(id)
		delete(s.fields, id)
	}
}

// updateSnapshots is spec §4.2's update_snapshots(field): before an entry
// is overwritten or dropped, every live snapshot that was taken after the
// field existed, could actually see the entry (its change time falls
// before the snapshot's cutoff), and has no override for the field yet
// gets the pre-change value copied in. Once a snapshot holds an override
// for a field, its view of that field is final.
func (s *Store[T]) updateSnapshots(fh *fieldHistory[T], id chrono.FieldId, old fieldRecord[T]) {
	for idx, snap := range s.live {
		if idx < fh.firstSnapshotNotUpdated {
			continue
		}
		if _, have := snap.overrides[id]; have {
			continue
		}
		if old.changed.Compare(beforeCutoff(snap.now)) >= 0 {
			continue
		}
		snap.overrides[id] = overrideEntry[T]{rec: old, existed: true}
	}
	s.advanceSnapshotWatermark(fh, id)
}

// preserveViewsBeforeInsert is updateSnapshots' counterpart for retroactive
// insertion: a brand-new entry appearing inside a snapshot's past would
// change what the snapshot reads out of the shared history, so each
// affected snapshot's current view — including "absent", which is a view —
// is frozen into its override map first.
func (s *Store[T]) preserveViewsBeforeInsert(fh *fieldHistory[T], id chrono.FieldId, at chrono.ExtendedTime[T]) {
	for idx, snap := range s.live {
		if idx < fh.firstSnapshotNotUpdated {
			continue
		}
		if _, have := snap.overrides[id]; have {
			continue
		}
		if at.Compare(beforeCutoff(snap.now)) >= 0 {
			continue
		}
		rec, _, _, found := fh.read(beforeCutoff(snap.now), false)
		snap.overrides[id] = overrideEntry[T]{rec: rec, existed: found}
	}
	s.advanceSnapshotWatermark(fh, id)
}

// advanceSnapshotWatermark is the "advance first_snapshot_not_updated past
// the newest" half of spec §4.2's update_snapshots: after a walk, move the
// watermark past the contiguous run of snapshot indices that are settled —
// released, or holding an override for this field — so future walks skip
// them. It must stop at the first live snapshot still reading the shared
// history: skipping one of those would make its reads fall into the
// created-after-snapshot branch and report the field absent.
func (s *Store[T]) advanceSnapshotWatermark(fh *fieldHistory[T], id chrono.FieldId) {
	for fh.firstSnapshotNotUpdated < s.nextSnapshotIdx {
		if snap, live := s.live[fh.firstSnapshotNotUpdated]; live {
			if _, have := snap.overrides[id]; !have {
				return
			}
		}
		fh.firstSnapshotNotUpdated++
	}
}

// NewSnapshot registers and returns a fresh storeSnapshot positioned at now,
// sharing the store's current existent-field set by value (pset's
// structural sharing makes this O(1)).
func (s *Store[T]) NewSnapshot(now T) *storeSnapshot[T] {
	idx := s.nextSnapshotIdx
	s.nextSnapshotIdx++
	snap := &storeSnapshot[T]{
		index:     idx,
		now:       now,
		existent:  s.existent,
		overrides: make(map[chrono.FieldId]overrideEntry[T]),
	}
	s.live[idx] = snap
	return snap
}

// Release unregisters snap; any COW entries it alone held become
// unreachable and are freed by the garbage collector, matching spec §5's
// "dropping a snapshot unregisters its index ... pending COW copies ...
// are freed."
func (s *Store[T]) Release(snap *storeSnapshot[T]) {
	delete(s.live, snap.index)
}

// read resolves one field as seen through snap: its own COW override if
// present, else the store's live history filtered by the
// first_snapshot_not_updated rule from spec §4.2.
func (snap *storeSnapshot[T]) read(store *Store[T], id chrono.FieldId) (any, chrono.ExtendedTime[T], bool) {
	if ov, ok := snap.overrides[id]; ok {
		if !ov.existed {
			var zero chrono.ExtendedTime[T]
			return nil, zero, false
		}
		return ov.rec.value, ov.rec.changed, ov.rec.value != nil
	}
	fh, ok := store.fields[id]
	if !ok || fh.firstSnapshotNotUpdated > snap.index {
		var zero chrono.ExtendedTime[T]
		return nil, zero, false
	}
	rec, _, _, found := fh.read(beforeCutoff(snap.now), false)
	if !found {
		var zero chrono.ExtendedTime[T]
		return nil, zero, false
	}
	return rec.value, rec.changed, rec.value != nil
}
