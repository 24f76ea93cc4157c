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

package amortized_test

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chronosteward/chronosteward/chrono"
	"github.com/chronosteward/chronosteward/chrono/amortized"
	"github.com/chronosteward/chronosteward/chrono/registry"
)

// tick is the test simulation's BaseTime.
type tick int64

func (t tick) Compare(other tick) int {
	switch {
	case t < other:
		return -1
	case t > other:
		return 1
	default:
		return 0
	}
}

func encodeTick(t tick) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(t))
	return b[:]
}

func decodeTick(data []byte) (tick, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("tick encoding is %d bytes, want 8", len(data))
	}
	return tick(binary.LittleEndian.Uint64(data)), nil
}

type noConstants struct{}

const (
	counterColumnID chrono.ColumnId    = 9100
	setEventID      chrono.EventId     = 9200
	copyEventID     chrono.EventId     = 9300
	bumpEventID     chrono.EventId     = 9400
	watcherID       chrono.PredictorId = 9600
	chainID         chrono.PredictorId = 9700
)

// setEvent unconditionally writes value into row's counter.
type setEvent struct {
	row   chrono.RowId
	value int64
}

func (setEvent) EventID() chrono.EventId { return setEventID }

func (e setEvent) Execute(m chrono.Mutator[tick, noConstants]) {
	chrono.Set(m, counterColumnID, e.row, e.value)
}

// copyEvent reads from's counter and writes it into to's, so that a
// retroactive change to from must re-execute this event.
type copyEvent struct {
	from, to chrono.RowId
}

func (copyEvent) EventID() chrono.EventId { return copyEventID }

func (e copyEvent) Execute(m chrono.Mutator[tick, noConstants]) {
	v, _, ok := chrono.Get[tick, int64](m, counterColumnID, e.from)
	if !ok {
		v = 0
	}
	chrono.Set(m, counterColumnID, e.to, v)
}

// watcher counts its own invocations and never predicts anything, so the
// count observes exactly when the engine decides a re-prediction is needed.
type watcher struct {
	runs *int
}

func (watcher) PredictorID() chrono.PredictorId { return watcherID }

func (w watcher) Predict(pa chrono.PredictorAccessor[tick, noConstants], row chrono.RowId) {
	*w.runs = *w.runs + 1
	chrono.Get[tick, int64](pa, counterColumnID, row)
}

func buildTestTables(t *testing.T, runs *int) *registry.Tables[tick, noConstants] {
	t.Helper()
	b := registry.NewBuilder[tick, noConstants]()
	b.AddColumn(registry.RegisterColumn[tick, int64](
		counterColumnID, "counter",
		func(a, b int64) bool { return a == b },
		func(v int64) ([]byte, error) {
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], uint64(v))
			return buf[:], nil
		},
		func(data []byte) (int64, error) {
			if len(data) != 8 {
				return 0, fmt.Errorf("counter encoding is %d bytes, want 8", len(data))
			}
			return int64(binary.LittleEndian.Uint64(data)), nil
		},
	))
	b.AddEvent(registry.EventType[tick, noConstants]{ID: setEventID, Name: "set"})
	b.AddEvent(registry.EventType[tick, noConstants]{ID: copyEventID, Name: "copy"})
	b.AddPredictor(counterColumnID, watcher{runs: runs})
	tables, err := b.Build()
	require.NoError(t, err)
	return tables
}

func rowID(n uint64) chrono.RowId {
	return chrono.DeterministicId{Hi: 0xf00d, Lo: n}
}

func distinguisher(n uint64) chrono.DeterministicId {
	return chrono.DeterministicId{Hi: 0xd15, Lo: n}
}

// TestEqualValueWriteDoesNotInvalidate: a second event writing the value a
// field already holds must neither re-run the watching predictor nor move
// the field's last-change time.
func TestEqualValueWriteDoesNotInvalidate(t *testing.T) {
	var runs int
	tables := buildTestTables(t, &runs)
	st := amortized.New[tick, noConstants](tables, chrono.DefaultBasics{}, noConstants{}, encodeTick, nil)

	row := rowID(1)
	require.NoError(t, st.InsertFiatEvent(10, distinguisher(1), setEvent{row: row, value: 5}))

	snap, err := st.SnapshotBefore(100)
	require.NoError(t, err)
	v, changed, ok := snap.GetRaw(counterColumnID, row)
	require.True(t, ok)
	require.Equal(t, int64(5), v)
	require.Equal(t, tick(10), changed.Base)
	runsAfterFirst := runs
	require.Greater(t, runsAfterFirst, 0)

	require.NoError(t, st.InsertFiatEvent(20, distinguisher(2), setEvent{row: row, value: 5}))

	snap, err = st.SnapshotBefore(100)
	require.NoError(t, err)
	v, changed, ok = snap.GetRaw(counterColumnID, row)
	require.True(t, ok)
	require.Equal(t, int64(5), v)
	require.Equal(t, tick(10), changed.Base, "a no-op write must not move the last-change time")
	require.Equal(t, runsAfterFirst, runs, "a no-op write must not re-run the predictor")
}

// TestRetroactiveEditReExecutesDependentEvents: an event that read a field
// must be re-executed when a fiat event inserted into its past changes
// that field.
func TestRetroactiveEditReExecutesDependentEvents(t *testing.T) {
	var runs int
	tables := buildTestTables(t, &runs)
	st := amortized.New[tick, noConstants](tables, chrono.DefaultBasics{}, noConstants{}, encodeTick, nil)

	src, dst := rowID(1), rowID(2)
	require.NoError(t, st.InsertFiatEvent(10, distinguisher(1), setEvent{row: src, value: 1}))
	require.NoError(t, st.InsertFiatEvent(30, distinguisher(2), copyEvent{from: src, to: dst}))

	snap, err := st.SnapshotBefore(100)
	require.NoError(t, err)
	v, _, ok := snap.GetRaw(counterColumnID, dst)
	require.True(t, ok)
	require.Equal(t, int64(1), v)

	// Change the source in the past of the already-executed copy.
	require.NoError(t, st.InsertFiatEvent(20, distinguisher(3), setEvent{row: src, value: 7}))

	snap, err = st.SnapshotBefore(100)
	require.NoError(t, err)
	v, _, ok = snap.GetRaw(counterColumnID, dst)
	require.True(t, ok)
	require.Equal(t, int64(7), v, "the copy event did not re-execute after its input changed")

	// And removing the retroactive edit restores the original derivation.
	require.NoError(t, st.RemoveFiatEvent(20, distinguisher(3)))
	snap, err = st.SnapshotBefore(100)
	require.NoError(t, err)
	v, _, ok = snap.GetRaw(counterColumnID, dst)
	require.True(t, ok)
	require.Equal(t, int64(1), v, "the copy event did not re-execute after the edit was removed")
}

// TestSnapshotDropOrder: two snapshots straddling a retroactive edit stay
// individually consistent no matter which is released first.
func TestSnapshotDropOrder(t *testing.T) {
	var runs int
	tables := buildTestTables(t, &runs)
	st := amortized.New[tick, noConstants](tables, chrono.DefaultBasics{}, noConstants{}, encodeTick, nil)

	row := rowID(1)
	require.NoError(t, st.InsertFiatEvent(10, distinguisher(1), setEvent{row: row, value: 1}))
	require.NoError(t, st.InsertFiatEvent(30, distinguisher(2), setEvent{row: row, value: 2}))

	first, err := st.SnapshotBefore(50)
	require.NoError(t, err)

	// Retroactive edit between the two snapshots.
	require.NoError(t, st.RemoveFiatEvent(30, distinguisher(2)))

	second, err := st.SnapshotBefore(100)
	require.NoError(t, err)

	v, changed, ok := second.GetRaw(counterColumnID, row)
	require.True(t, ok)
	require.Equal(t, int64(1), v)
	require.Equal(t, tick(10), changed.Base)

	// Release the newer snapshot first; the older one must still see the
	// pre-edit world it was taken in.
	second.(*amortized.Snapshot[tick]).Release()

	v, changed, ok = first.GetRaw(counterColumnID, row)
	require.True(t, ok)
	require.Equal(t, int64(2), v, "older snapshot lost its pre-edit value")
	require.Equal(t, tick(30), changed.Base)

	first.(*amortized.Snapshot[tick]).Release()
}

// tinyIterationBasics caps same-instant cascades almost immediately, so a
// runaway chain trips the MaxIteration bound within a few steps.
type tinyIterationBasics struct {
	chrono.DefaultBasics
}

func (tinyIterationBasics) MaxIteration() chrono.IterationType { return 4 }

// bumpEvent increments row's counter in place, at the instant it runs.
type bumpEvent struct {
	row chrono.RowId
}

func (bumpEvent) EventID() chrono.EventId { return bumpEventID }

func (e bumpEvent) Execute(m chrono.Mutator[tick, noConstants]) {
	v, _, _ := chrono.Get[tick, int64](m, counterColumnID, e.row)
	chrono.Set(m, counterColumnID, e.row, v+1)
}

// chainPredictor always reacts immediately, so every bump schedules the
// next: an intentionally unbounded same-instant cascade.
type chainPredictor struct{}

func (chainPredictor) PredictorID() chrono.PredictorId { return chainID }

func (chainPredictor) Predict(pa chrono.PredictorAccessor[tick, noConstants], row chrono.RowId) {
	if _, _, ok := chrono.Get[tick, int64](pa, counterColumnID, row); !ok {
		return
	}
	pa.PredictImmediately(bumpEvent{row: row})
}

// TestMaxIterationOverrunSurfacesAsInvalidInput: a same-instant cascade
// past Basics.MaxIteration must come back through the façade as
// ErrInvalidInput, not crash the process.
func TestMaxIterationOverrunSurfacesAsInvalidInput(t *testing.T) {
	b := registry.NewBuilder[tick, noConstants]()
	b.AddColumn(registry.RegisterColumn[tick, int64](
		counterColumnID, "counter",
		func(a, b int64) bool { return a == b },
		func(v int64) ([]byte, error) {
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], uint64(v))
			return buf[:], nil
		},
		func(data []byte) (int64, error) {
			return int64(binary.LittleEndian.Uint64(data)), nil
		},
	))
	b.AddEvent(registry.EventType[tick, noConstants]{ID: setEventID, Name: "set"})
	b.AddEvent(registry.EventType[tick, noConstants]{ID: bumpEventID, Name: "bump"})
	b.AddPredictor(counterColumnID, chainPredictor{})
	tables, err := b.Build()
	require.NoError(t, err)

	st := amortized.New[tick, noConstants](tables, tinyIterationBasics{}, noConstants{}, encodeTick, nil)
	require.NoError(t, st.InsertFiatEvent(10, distinguisher(1), setEvent{row: rowID(1), value: 1}))

	_, err = st.SnapshotBefore(100)
	require.ErrorIs(t, err, chrono.ErrInvalidInput)

	// The condition is sticky, not corrupting: stepping again reports the
	// same recoverable error.
	_, err = st.Step()
	require.ErrorIs(t, err, chrono.ErrInvalidInput)
}

// TestStepIsBounded: Step performs work one unit at a time and reports
// exhaustion, and UpdatedUntilBefore tracks the pending frontier.
func TestStepIsBounded(t *testing.T) {
	var runs int
	tables := buildTestTables(t, &runs)
	st := amortized.New[tick, noConstants](tables, chrono.DefaultBasics{}, noConstants{}, encodeTick, nil)

	progressed, err := st.Step()
	require.NoError(t, err)
	require.False(t, progressed, "an empty steward has no work")
	_, pending := st.UpdatedUntilBefore()
	require.False(t, pending)

	require.NoError(t, st.InsertFiatEvent(10, distinguisher(1), setEvent{row: rowID(1), value: 1}))
	frontier, pending := st.UpdatedUntilBefore()
	require.True(t, pending)
	require.Equal(t, tick(10), frontier)

	steps := 0
	for {
		progressed, err := st.Step()
		require.NoError(t, err)
		if !progressed {
			break
		}
		steps++
		require.Less(t, steps, 1000, "steward failed to drain a finite workload")
	}
	_, pending = st.UpdatedUntilBefore()
	require.False(t, pending)
	require.Greater(t, steps, 0)
}
