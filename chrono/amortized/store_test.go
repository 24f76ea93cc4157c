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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chronosteward/chronosteward/chrono"
)

type stamp int64

func (s stamp) Compare(other stamp) int {
	switch {
	case s < other:
		return -1
	case s > other:
		return 1
	default:
		return 0
	}
}

func at(base stamp, lo uint64) chrono.ExtendedTime[stamp] {
	return chrono.ExtendedTime[stamp]{Base: base, Id: chrono.DeterministicId{Lo: lo}}
}

func testField(n uint64) chrono.FieldId {
	return chrono.NewFieldId(chrono.DeterministicId{Hi: 1, Lo: n}, 9100)
}

func TestStoreReadInclusiveExclusive(t *testing.T) {
	s := NewStore[stamp](1)
	f := testField(1)
	s.Write(f, at(10, 1), "a")
	s.Write(f, at(20, 2), "b")

	v, changed, ok := s.Read(f, at(20, 2), true)
	require.True(t, ok)
	require.Equal(t, "b", v)
	require.Equal(t, stamp(20), changed.Base)

	v, changed, ok = s.Read(f, at(20, 2), false)
	require.True(t, ok)
	require.Equal(t, "a", v)
	require.Equal(t, stamp(10), changed.Base)

	_, _, ok = s.Read(f, at(5, 0), true)
	require.False(t, ok)
}

func TestStoreReadWithNextReportsUpperBound(t *testing.T) {
	s := NewStore[stamp](1)
	f := testField(1)
	s.Write(f, at(10, 1), "a")
	s.Write(f, at(30, 2), "b")

	v, _, ok, next, hasNext := s.ReadWithNext(f, at(15, 0), true)
	require.True(t, ok)
	require.Equal(t, "a", v)
	require.True(t, hasNext)
	require.Equal(t, stamp(30), next.Base)

	_, _, ok, _, hasNext = s.ReadWithNext(f, at(40, 0), true)
	require.True(t, ok)
	require.False(t, hasNext)
}

func TestStoreLastRecordAtSeesDeletions(t *testing.T) {
	s := NewStore[stamp](1)
	f := testField(1)
	s.Write(f, at(10, 1), "a")
	s.Write(f, at(20, 2), nil)

	// Read reports the field as absent, but the deletion entry is still a
	// record with a time.
	_, _, ok := s.Read(f, at(25, 0), true)
	require.False(t, ok)

	last, found := s.LastRecordAt(f, at(25, 0))
	require.True(t, found)
	require.Equal(t, stamp(20), last.Base)
}

func TestStoreSnapshotCopyOnWrite(t *testing.T) {
	s := NewStore[stamp](1)
	f := testField(1)
	s.Write(f, at(10, 1), "old")

	snap := s.NewSnapshot(50)

	// Overwriting the entry the snapshot can still see must stash the old
	// value into the snapshot first.
	s.Write(f, at(10, 1), "new")

	v, changed, ok := snap.read(s, f)
	require.True(t, ok)
	require.Equal(t, "old", v)
	require.Equal(t, stamp(10), changed.Base)

	// The live store sees the replacement.
	v, _, ok = s.Read(f, at(50, 0), true)
	require.True(t, ok)
	require.Equal(t, "new", v)

	s.Release(snap)
}

func TestStoreTruncateProtectsSnapshots(t *testing.T) {
	s := NewStore[stamp](1)
	f := testField(1)
	s.Write(f, at(10, 1), "a")
	s.Write(f, at(20, 2), "b")
	s.Write(f, at(30, 3), "c")

	snap := s.NewSnapshot(100)
	s.Truncate(f, at(20, 2))

	// Snapshot still sees the newest pre-truncation state.
	v, changed, ok := snap.read(s, f)
	require.True(t, ok)
	require.Equal(t, "c", v)
	require.Equal(t, stamp(30), changed.Base)

	// Live store only keeps the survivor.
	v, changed, ok = s.Read(f, at(100, 0), true)
	require.True(t, ok)
	require.Equal(t, "a", v)
	require.Equal(t, stamp(10), changed.Base)

	s.Release(snap)
}

func TestStoreRetroactiveInsertDoesNotAlterSnapshot(t *testing.T) {
	s := NewStore[stamp](1)
	f := testField(1)
	s.Write(f, at(10, 1), "a")

	snap := s.NewSnapshot(50)

	// Insert a new entry inside the snapshot's past; its frozen view must
	// keep reporting the original value.
	s.Write(f, at(20, 2), "b")

	v, changed, ok := snap.read(s, f)
	require.True(t, ok)
	require.Equal(t, "a", v)
	require.Equal(t, stamp(10), changed.Base)

	// The live store sees the insertion.
	v, changed, ok = s.Read(f, at(50, 0), true)
	require.True(t, ok)
	require.Equal(t, "b", v)
	require.Equal(t, stamp(20), changed.Base)

	s.Release(snap)
}

func TestStoreDropBeyondSnapshotCutoffKeepsEarlierView(t *testing.T) {
	s := NewStore[stamp](1)
	f := testField(1)
	s.Write(f, at(10, 1), "a")
	s.Write(f, at(30, 2), "b")

	// Snapshot positioned between the two entries: it sees "a" and must
	// keep seeing "a" even after the later entry — which it never saw —
	// is dropped and the earlier one replaced.
	snap := s.NewSnapshot(25)
	s.Truncate(f, at(30, 2))
	s.Write(f, at(10, 1), "c")

	v, changed, ok := snap.read(s, f)
	require.True(t, ok)
	require.Equal(t, "a", v)
	require.Equal(t, stamp(10), changed.Base)

	s.Release(snap)
}

func TestStoreFieldCreatedAfterSnapshotIsInvisible(t *testing.T) {
	s := NewStore[stamp](1)
	f := testField(1)

	snap := s.NewSnapshot(50)
	s.Write(f, at(10, 1), "late")

	// The field was created after the snapshot; even though its change
	// time predates the snapshot's now, the snapshot must treat it as
	// absent.
	_, _, ok := snap.read(s, f)
	require.False(t, ok)

	s.Release(snap)
}

func TestStoreRemoveAtDropsFieldWhenHistoryEmpties(t *testing.T) {
	s := NewStore[stamp](1)
	f := testField(1)
	s.Write(f, at(10, 1), "only")
	require.Equal(t, 1, s.existent.Len())

	s.RemoveAt(f, at(10, 1))
	require.Equal(t, 0, s.existent.Len())
	_, _, ok := s.Read(f, at(50, 0), true)
	require.False(t, ok)
}
