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

package chrono

import (
	"fmt"
	"math"
)

// Float64 wraps a float64 field value so that constructing one with a NaN
// payload is a deliberate, auditable act rather than silent corruption —
// see SPEC_FULL.md's Open Questions decision on NaN/non-deterministic
// equality. Hosts that store floating-point fields should use this type (or
// one shaped like it) as the column's FieldType instead of a bare float64.
type Float64 struct {
	Value float64
}

// NewFloat64 constructs a Float64, refusing a NaN payload unless
// basics.AllowFloatsUnsafe() is true.
func NewFloat64(basics Basics, value float64) (Float64, error) {
	if math.IsNaN(value) && !basics.AllowFloatsUnsafe() {
		return Float64{}, fmt.Errorf("%w: NaN float field value rejected; set Basics.AllowFloatsUnsafe to allow it", ErrInvalidInput)
	}
	return Float64{Value: value}, nil
}

// Equal reports whether two Float64 values are bit-identical, treating NaN
// as equal to itself — unlike IEEE 754 float equality — so that a field
// holding NaN does not appear to change on every read, which would make the
// dependency graph churn forever.
func (f Float64) Equal(other Float64) bool {
	return math.Float64bits(f.Value) == math.Float64bits(other.Value)
}
