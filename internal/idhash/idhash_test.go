package idhash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSameInputsProduceSameID(t *testing.T) {
	a := New("row").WriteUint64(1).WriteUint64(2).Sum()
	b := New("row").WriteUint64(1).WriteUint64(2).Sum()
	require.Equal(t, a, b)
}

func TestDifferentPurposeProducesDifferentID(t *testing.T) {
	a := New("row").WriteUint64(1).Sum()
	b := New("time").WriteUint64(1).Sum()
	require.NotEqual(t, a, b)
}

func TestDifferentInputProducesDifferentID(t *testing.T) {
	a := New("row").WriteUint64(1).Sum()
	b := New("row").WriteUint64(2).Sum()
	require.NotEqual(t, a, b)
}

func TestWriteBytesLengthPrefixPreventsAmbiguity(t *testing.T) {
	a := New("x").WriteBytes([]byte("ab")).WriteBytes([]byte("c")).Sum()
	b := New("x").WriteBytes([]byte("a")).WriteBytes([]byte("bc")).Sum()
	require.NotEqual(t, a, b, "length-prefixed writes must not alias across boundaries")
}

func TestWriteStringDelegatesToWriteBytes(t *testing.T) {
	a := New("x").WriteString("hello").Sum()
	b := New("x").WriteBytes([]byte("hello")).Sum()
	require.Equal(t, a, b)
}
