package registry

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chronosteward/chronosteward/chrono"
)

type regTime int64

func (t regTime) Compare(other regTime) int {
	switch {
	case t < other:
		return -1
	case t > other:
		return 1
	default:
		return 0
	}
}

type regConstants struct{}

func intEqual(a, b int) bool { return a == b }

func encodeInt(v int) ([]byte, error) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	return b[:], nil
}

func decodeInt(b []byte) (int, error) {
	return int(binary.LittleEndian.Uint64(b)), nil
}

type noopEvent struct{}

func (noopEvent) EventID() chrono.EventId                         { return 9500 }
func (noopEvent) Execute(m chrono.Mutator[regTime, regConstants]) {}

type noopPredictor struct{ id chrono.PredictorId }

func (p noopPredictor) PredictorID() chrono.PredictorId { return p.id }
func (noopPredictor) Predict(pa chrono.PredictorAccessor[regTime, regConstants], row chrono.RowId) {
}

func TestBuildSucceedsWithDistinctIds(t *testing.T) {
	b := NewBuilder[regTime, regConstants]()
	b.AddColumn(RegisterColumn[regTime, int](9000, "counter", intEqual, encodeInt, decodeInt))
	b.AddEvent(EventType[regTime, regConstants]{ID: 9500, Name: "noop", Decode: func([]byte) (chrono.Event[regTime, regConstants], error) { return noopEvent{}, nil }})
	b.AddPredictor(9000, noopPredictor{id: 9600})

	tables, err := b.Build()
	require.NoError(t, err)
	require.Contains(t, tables.Columns, chrono.ColumnId(9000))
	require.Contains(t, tables.Events, chrono.EventId(9500))
	require.Contains(t, tables.Predictors, chrono.PredictorId(9600))
	require.Equal(t, []chrono.PredictorId{9600}, tables.PredictorsByColumn[9000])
}

func TestBuildRejectsColumnBelowReservedWindow(t *testing.T) {
	b := NewBuilder[regTime, regConstants]()
	b.AddColumn(RegisterColumn[regTime, int](42, "too-low", intEqual, encodeInt, decodeInt))

	_, err := b.Build()
	require.Error(t, err)
}

func TestBuildRejectsDuplicateColumnId(t *testing.T) {
	b := NewBuilder[regTime, regConstants]()
	b.AddColumn(RegisterColumn[regTime, int](9000, "a", intEqual, encodeInt, decodeInt))
	b.AddColumn(RegisterColumn[regTime, int](9000, "b", intEqual, encodeInt, decodeInt))

	_, err := b.Build()
	require.Error(t, err)
}

func TestBuildRejectsDuplicatePredictorId(t *testing.T) {
	b := NewBuilder[regTime, regConstants]()
	b.AddColumn(RegisterColumn[regTime, int](9000, "counter", intEqual, encodeInt, decodeInt))
	b.AddPredictor(9000, noopPredictor{id: 9600})
	b.AddPredictor(9000, noopPredictor{id: 9600})

	_, err := b.Build()
	require.Error(t, err)
}

func TestColumnTypeEqualRoundTrips(t *testing.T) {
	col := RegisterColumn[regTime, int](9000, "counter", intEqual, encodeInt, decodeInt)
	require.True(t, col.Equal(5, 5))
	require.False(t, col.Equal(5, 6))

	data, err := col.Encode(7)
	require.NoError(t, err)
	back, err := col.Decode(data)
	require.NoError(t, err)
	require.Equal(t, 7, back)
}

func TestBuildCachedReturnsSameInstance(t *testing.T) {
	calls := 0
	build := func() (*Tables[regTime, regConstants], error) {
		calls++
		b := NewBuilder[regTime, regConstants]()
		b.AddColumn(RegisterColumn[regTime, int](9001, "counter", intEqual, encodeInt, decodeInt))
		return b.Build()
	}
	key := "registry-test-cache-key"
	first, err := BuildCached[regTime, regConstants](key, build)
	require.NoError(t, err)
	second, err := BuildCached[regTime, regConstants](key, build)
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 1, calls, "build should only run once per cache key")
}
