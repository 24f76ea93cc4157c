package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chronosteward/chronosteward/chrono"
)

func regTimeCodec() TimeCodec[regTime] {
	return TimeCodec[regTime]{
		Encode: func(t regTime) ([]byte, error) { return encodeInt(int(t)) },
		Decode: func(b []byte) (regTime, error) {
			v, err := decodeInt(b)
			return regTime(v), err
		},
	}
}

func regConstantsCodec() ConstantsCodec[regConstants] {
	return ConstantsCodec[regConstants]{
		Encode: func(regConstants) ([]byte, error) { return nil, nil },
		Decode: func([]byte) (regConstants, error) { return regConstants{}, nil },
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	b := NewBuilder[regTime, regConstants]()
	b.AddColumn(RegisterColumn[regTime, int](9000, "counter", intEqual, encodeInt, decodeInt))
	tables, err := b.Build()
	require.NoError(t, err)

	snap := chrono.NewFiatSnapshot[regTime](42)
	rowA := chrono.DeterministicId{Hi: 1, Lo: 1}
	rowB := chrono.DeterministicId{Hi: 1, Lo: 2}
	snap.Put(chrono.NewFieldId(rowA, 9000), 7, chrono.ExtendedTime[regTime]{Base: 10, Id: chrono.DeterministicId{Lo: 0xaa}})
	snap.Put(chrono.NewFieldId(rowB, 9000), -3, chrono.ExtendedTime[regTime]{Base: 20, Iteration: 2, Id: chrono.DeterministicId{Hi: 0xbb}})

	data, err := Serialize[regTime, regConstants](tables, regTimeCodec(), regConstantsCodec(), regConstants{}, snap)
	require.NoError(t, err)

	restored, constants, err := Deserialize[regTime, regConstants](tables, regTimeCodec(), regConstantsCodec(), data)
	require.NoError(t, err)
	require.Equal(t, regConstants{}, constants)
	require.Equal(t, regTime(42), restored.Now())

	count := 0
	snap.Fields(func(id chrono.FieldId, value any, changed chrono.ExtendedTime[regTime]) bool {
		count++
		gotValue, gotChanged, ok := restored.GetRaw(id.Column, id.Row)
		require.True(t, ok, "field %s missing after round trip", id)
		require.Equal(t, value, gotValue)
		require.Zero(t, changed.Compare(gotChanged))
		return true
	})
	require.Equal(t, 2, count)
}

func TestDeserializeRejectsUnregisteredColumn(t *testing.T) {
	b := NewBuilder[regTime, regConstants]()
	b.AddColumn(RegisterColumn[regTime, int](9000, "counter", intEqual, encodeInt, decodeInt))
	tables, err := b.Build()
	require.NoError(t, err)

	snap := chrono.NewFiatSnapshot[regTime](1)
	snap.Put(chrono.NewFieldId(chrono.DeterministicId{Lo: 1}, 9000), 7, chrono.ExtendedTime[regTime]{Base: 1})
	data, err := Serialize[regTime, regConstants](tables, regTimeCodec(), regConstantsCodec(), regConstants{}, snap)
	require.NoError(t, err)

	empty := NewBuilder[regTime, regConstants]()
	bare, err := empty.Build()
	require.NoError(t, err)

	_, _, err = Deserialize[regTime, regConstants](bare, regTimeCodec(), regConstantsCodec(), data)
	require.Error(t, err)
}
