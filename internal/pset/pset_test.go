package pset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type intKey int

func (k intKey) Compare(other intKey) int {
	switch {
	case k < other:
		return -1
	case k > other:
		return 1
	default:
		return 0
	}
}

func collect(s Set[intKey]) []intKey {
	var out []intKey
	s.All(func(k intKey) bool {
		out = append(out, k)
		return true
	})
	return out
}

func TestEmptySet(t *testing.T) {
	s := New[intKey](1)
	require.Equal(t, 0, s.Len())
	require.False(t, s.Contains(0))
	require.Empty(t, collect(s))
}

func TestInsertAndContains(t *testing.T) {
	s := New[intKey](1)
	s = s.Insert(3)
	s = s.Insert(1)
	s = s.Insert(2)

	require.Equal(t, 3, s.Len())
	require.True(t, s.Contains(1))
	require.True(t, s.Contains(2))
	require.True(t, s.Contains(3))
	require.False(t, s.Contains(4))
	require.Equal(t, []intKey{1, 2, 3}, collect(s))
}

func TestInsertDuplicateIsNoop(t *testing.T) {
	s := New[intKey](1)
	s = s.Insert(5)
	again := s.Insert(5)
	require.Equal(t, 1, again.Len())
	require.Equal(t, []intKey{5}, collect(again))
}

func TestRemove(t *testing.T) {
	s := New[intKey](1)
	s = s.Insert(1).Insert(2).Insert(3)
	s = s.Remove(2)

	require.Equal(t, 2, s.Len())
	require.False(t, s.Contains(2))
	require.Equal(t, []intKey{1, 3}, collect(s))
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	s := New[intKey](1)
	s = s.Insert(1)
	after := s.Remove(99)
	require.Equal(t, 1, after.Len())
	require.Equal(t, []intKey{1}, collect(after))
}

// TestOlderSnapshotSurvivesLaterEdits is the property pset exists for: an
// earlier Set value must remain valid and unaffected by inserts/removes
// performed on a Set derived from it.
func TestOlderSnapshotSurvivesLaterEdits(t *testing.T) {
	s1 := New[intKey](1)
	s1 = s1.Insert(1).Insert(2)

	s2 := s1.Insert(3)
	s2 = s2.Remove(1)

	require.Equal(t, []intKey{1, 2}, collect(s1))
	require.Equal(t, []intKey{2, 3}, collect(s2))
}
