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

package registry

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/chronosteward/chronosteward/chrono"
)

// TimeCodec supplies the (de)serialization a host's BaseTime type needs to
// participate in the persistence format of spec §6; BaseTime is the one
// piece of a Snapshot this package cannot encode generically, since it
// carries no column id to dispatch on.
type TimeCodec[T chrono.Ordered[T]] struct {
	Encode func(T) ([]byte, error)
	Decode func([]byte) (T, error)
}

// ConstantsCodec is TimeCodec's counterpart for the host's Constants
// payload, which the wire format carries between the snapshot time and the
// field count.
type ConstantsCodec[K any] struct {
	Encode func(K) ([]byte, error)
	Decode func([]byte) (K, error)
}

// Serialize writes snap to the wire format spec §6 describes — base time,
// constants, field count, then every field that exists in canonical
// FieldId order — self-describing via each field's registered ColumnType
// codec so a Tables built from a superset of the original registration can
// still read it back.
func Serialize[T chrono.Ordered[T], K any](tables *Tables[T, K], tc TimeCodec[T], kc ConstantsCodec[K], constants K, snap chrono.Snapshot[T]) ([]byte, error) {
	var buf bytes.Buffer

	nowBytes, err := tc.Encode(snap.Now())
	if err != nil {
		return nil, fmt.Errorf("registry: encode snapshot time: %w", err)
	}
	writeBlob(&buf, nowBytes)

	constantsBytes, err := kc.Encode(constants)
	if err != nil {
		return nil, fmt.Errorf("registry: encode snapshot constants: %w", err)
	}
	writeBlob(&buf, constantsBytes)

	var writeErr error
	var rows [][]byte
	snap.Fields(func(id chrono.FieldId, value any, changed chrono.ExtendedTime[T]) bool {
		col, ok := tables.Columns[id.Column]
		if !ok {
			writeErr = fmt.Errorf("registry: serialize: column %s not registered", id.Column)
			return false
		}
		valueBytes, err := col.Encode(value)
		if err != nil {
			writeErr = fmt.Errorf("registry: encode field %s: %w", id, err)
			return false
		}
		changedBaseBytes, err := tc.Encode(changed.Base)
		if err != nil {
			writeErr = fmt.Errorf("registry: encode field %s change time: %w", id, err)
			return false
		}

		var row bytes.Buffer
		writeUint64(&row, id.Row.Hi)
		writeUint64(&row, id.Row.Lo)
		writeUint64(&row, uint64(id.Column))
		writeBlob(&row, changedBaseBytes)
		writeUint32(&row, changed.Iteration)
		writeUint64(&row, changed.Id.Hi)
		writeUint64(&row, changed.Id.Lo)
		writeBlob(&row, valueBytes)
		rows = append(rows, row.Bytes())
		return true
	})
	if writeErr != nil {
		return nil, writeErr
	}

	writeUint64(&buf, uint64(len(rows)))
	for _, r := range rows {
		buf.Write(r)
	}
	return buf.Bytes(), nil
}

// Deserialize reverses Serialize, producing a populated FiatSnapshot and
// the Constants the snapshot was taken under.
func Deserialize[T chrono.Ordered[T], K any](tables *Tables[T, K], tc TimeCodec[T], kc ConstantsCodec[K], data []byte) (*chrono.FiatSnapshot[T], K, error) {
	var constants K
	r := bytes.NewReader(data)

	nowBytes, err := readBlob(r)
	if err != nil {
		return nil, constants, fmt.Errorf("registry: read snapshot time: %w", err)
	}
	now, err := tc.Decode(nowBytes)
	if err != nil {
		return nil, constants, fmt.Errorf("registry: decode snapshot time: %w", err)
	}
	snap := chrono.NewFiatSnapshot[T](now)

	constantsBytes, err := readBlob(r)
	if err != nil {
		return nil, constants, fmt.Errorf("registry: read snapshot constants: %w", err)
	}
	constants, err = kc.Decode(constantsBytes)
	if err != nil {
		return nil, constants, fmt.Errorf("registry: decode snapshot constants: %w", err)
	}

	count, err := readUint64(r)
	if err != nil {
		return nil, constants, fmt.Errorf("registry: read field count: %w", err)
	}
	for i := uint64(0); i < count; i++ {
		rowHi, err := readUint64(r)
		if err != nil {
			return nil, constants, err
		}
		rowLo, err := readUint64(r)
		if err != nil {
			return nil, constants, err
		}
		columnRaw, err := readUint64(r)
		if err != nil {
			return nil, constants, err
		}
		column := chrono.ColumnId(columnRaw)
		col, ok := tables.Columns[column]
		if !ok {
			return nil, constants, fmt.Errorf("registry: deserialize: column %s not registered", column)
		}

		changedBaseBytes, err := readBlob(r)
		if err != nil {
			return nil, constants, err
		}
		changedBase, err := tc.Decode(changedBaseBytes)
		if err != nil {
			return nil, constants, fmt.Errorf("registry: decode field change time: %w", err)
		}
		iteration, err := readUint32(r)
		if err != nil {
			return nil, constants, err
		}
		idHi, err := readUint64(r)
		if err != nil {
			return nil, constants, err
		}
		idLo, err := readUint64(r)
		if err != nil {
			return nil, constants, err
		}
		valueBytes, err := readBlob(r)
		if err != nil {
			return nil, constants, err
		}
		value, err := col.Decode(valueBytes)
		if err != nil {
			return nil, constants, fmt.Errorf("registry: decode field value: %w", err)
		}

		id := chrono.NewFieldId(chrono.DeterministicId{Hi: rowHi, Lo: rowLo}, column)
		changed := chrono.ExtendedTime[T]{
			Base:      changedBase,
			Iteration: iteration,
			Id:        chrono.DeterministicId{Hi: idHi, Lo: idLo},
		}
		snap.Put(id, value, changed)
	}
	return snap, constants, nil
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeBlob(buf *bytes.Buffer, b []byte) {
	writeUint64(buf, uint64(len(b)))
	buf.Write(b)
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readBlob(r *bytes.Reader) ([]byte, error) {
	n, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if n == 0 {
		return b, nil
	}
	if _, err := r.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
