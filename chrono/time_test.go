package chrono

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testTime int64

func (t testTime) Compare(other testTime) int {
	switch {
	case t < other:
		return -1
	case t > other:
		return 1
	default:
		return 0
	}
}

func TestExtendedTimeOrdering(t *testing.T) {
	low := ExtendedTime[testTime]{Base: 1, Iteration: 0, Id: DeterministicId{Lo: 1}}
	sameBaseHigherIter := ExtendedTime[testTime]{Base: 1, Iteration: 1, Id: DeterministicId{Lo: 1}}
	sameBaseSameIterHigherID := ExtendedTime[testTime]{Base: 1, Iteration: 0, Id: DeterministicId{Lo: 2}}
	higherBase := ExtendedTime[testTime]{Base: 2, Iteration: 0, Id: DeterministicId{Lo: 1}}

	require.Negative(t, low.Compare(sameBaseHigherIter))
	require.Negative(t, low.Compare(sameBaseSameIterHigherID))
	require.Negative(t, low.Compare(higherBase))
	require.Positive(t, higherBase.Compare(low))
	require.Zero(t, low.Compare(low))
}

func TestValidSinceOrdering(t *testing.T) {
	beginning := Beginning[testTime]()
	before5 := Before[testTime](5)
	after5 := After[testTime](5)
	before6 := Before[testTime](6)

	require.True(t, beginning.Compare(before5) < 0)
	require.True(t, beginning.Compare(after5) < 0)

	// Before(t) sorts below After(t) for equal anchors, per the accepted
	// peculiarity that After(2) < Before(3).
	require.True(t, before5.Compare(after5) < 0)
	require.True(t, after5.Compare(before5) > 0)

	require.True(t, after5.Compare(before6) < 0)
}

func TestValidSinceCompareTime(t *testing.T) {
	require.Equal(t, -1, Beginning[testTime]().CompareTime(0))

	before5 := Before[testTime](5)
	require.Equal(t, -1, before5.CompareTime(5))
	require.Equal(t, 1, before5.CompareTime(4))
	require.Equal(t, -1, before5.CompareTime(6))

	after5 := After[testTime](5)
	require.Equal(t, -1, after5.CompareTime(6))
	require.Equal(t, 1, after5.CompareTime(5))
}

func TestValidSinceIsBeginningAndAt(t *testing.T) {
	beginning := Beginning[testTime]()
	require.True(t, beginning.IsBeginning())
	_, ok := beginning.At()
	require.False(t, ok)

	before5 := Before[testTime](5)
	require.False(t, before5.IsBeginning())
	at, ok := before5.At()
	require.True(t, ok)
	require.Equal(t, testTime(5), at)
}

func TestDeterministicIdOrderingAndZero(t *testing.T) {
	a := DeterministicId{Hi: 1, Lo: 2}
	b := DeterministicId{Hi: 1, Lo: 3}
	c := DeterministicId{Hi: 2, Lo: 0}

	require.Negative(t, a.Compare(b))
	require.Negative(t, b.Compare(c))
	require.Zero(t, a.Compare(a))
	require.True(t, DeterministicId{}.IsZero())
	require.False(t, a.IsZero())
}

func TestFieldIdOrdering(t *testing.T) {
	row1 := RowId{Lo: 1}
	row2 := RowId{Lo: 2}

	f1 := NewFieldId(row1, ColumnId(9000))
	f2 := NewFieldId(row1, ColumnId(9001))
	f3 := NewFieldId(row2, ColumnId(9000))

	require.Negative(t, f1.Compare(f2))
	require.Negative(t, f1.Compare(f3))
	require.Zero(t, f1.Compare(NewFieldId(row1, ColumnId(9000))))
}
