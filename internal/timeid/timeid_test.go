package timeid

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chronosteward/chronosteward/chrono"
)

func field(rowLo uint64, col chrono.ColumnId) chrono.FieldId {
	return chrono.NewFieldId(chrono.RowId{Lo: rowLo}, col)
}

func TestDependencyHashOrderIndependent(t *testing.T) {
	a := []chrono.FieldId{field(1, 9000), field(2, 9001), field(3, 9000)}
	b := []chrono.FieldId{field(3, 9000), field(1, 9000), field(2, 9001)}
	require.Equal(t, DependencyHash(a), DependencyHash(b))
}

func TestDependencyHashSensitiveToMembership(t *testing.T) {
	a := []chrono.FieldId{field(1, 9000)}
	b := []chrono.FieldId{field(1, 9000), field(2, 9000)}
	require.NotEqual(t, DependencyHash(a), DependencyHash(b))
}

func TestDependencyHashDoesNotMutateInput(t *testing.T) {
	original := []chrono.FieldId{field(3, 9000), field(1, 9000), field(2, 9000)}
	snapshot := append([]chrono.FieldId(nil), original...)
	DependencyHash(original)
	require.Equal(t, snapshot, original)
}

func TestDeriveIsDeterministic(t *testing.T) {
	dep := DependencyHash([]chrono.FieldId{field(1, 9000)})
	row := chrono.RowId{Lo: 42}
	baseBytes := []byte{1, 2, 3, 4}

	a := Derive(chrono.PredictorId(1), row, dep, baseBytes)
	b := Derive(chrono.PredictorId(1), row, dep, baseBytes)
	require.Equal(t, a, b)
}

func TestDeriveSensitiveToEachArgument(t *testing.T) {
	dep := DependencyHash([]chrono.FieldId{field(1, 9000)})
	row := chrono.RowId{Lo: 42}
	baseBytes := []byte{1, 2, 3, 4}
	base := Derive(chrono.PredictorId(1), row, dep, baseBytes)

	require.NotEqual(t, base, Derive(chrono.PredictorId(2), row, dep, baseBytes))
	require.NotEqual(t, base, Derive(chrono.PredictorId(1), chrono.RowId{Lo: 43}, dep, baseBytes))
	require.NotEqual(t, base, Derive(chrono.PredictorId(1), row, dep, []byte{1, 2, 3, 5}))
}
