package chrono

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type strictBasics struct{ DefaultBasics }

func (strictBasics) AllowFloatsUnsafe() bool { return false }

type permissiveBasics struct{ DefaultBasics }

func (permissiveBasics) AllowFloatsUnsafe() bool { return true }

func TestNewFloat64RejectsNaNByDefault(t *testing.T) {
	_, err := NewFloat64(strictBasics{}, math.NaN())
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewFloat64AllowsNaNWhenUnsafe(t *testing.T) {
	f, err := NewFloat64(permissiveBasics{}, math.NaN())
	require.NoError(t, err)
	require.True(t, math.IsNaN(f.Value))
}

func TestFloat64EqualTreatsNaNAsEqualToItself(t *testing.T) {
	a, err := NewFloat64(permissiveBasics{}, math.NaN())
	require.NoError(t, err)
	b, err := NewFloat64(permissiveBasics{}, math.NaN())
	require.NoError(t, err)
	require.True(t, a.Equal(b))
}

func TestFloat64EqualOrdinaryValues(t *testing.T) {
	a, err := NewFloat64(strictBasics{}, 1.5)
	require.NoError(t, err)
	b, err := NewFloat64(strictBasics{}, 1.5)
	require.NoError(t, err)
	c, err := NewFloat64(strictBasics{}, 2.5)
	require.NoError(t, err)

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}
