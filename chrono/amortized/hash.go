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

package amortized

import (
	"github.com/chronosteward/chronosteward/chrono"
	"github.com/chronosteward/chronosteward/internal/idhash"
	"github.com/chronosteward/chronosteward/internal/timeid"
)

// dependencyHash and deriveTimeID delegate to internal/timeid, which both
// this engine and chrono/memoizedflat share — see that package's doc
// comment for why the derivation must not be engine-specific.
func dependencyHash[T chrono.Ordered[T]](fields []chrono.FieldId) idhash.ID {
	return timeid.DependencyHash(fields)
}

func deriveTimeID[T chrono.Ordered[T]](predictor chrono.PredictorId, row chrono.RowId, dep idhash.ID, baseBytes []byte) chrono.DeterministicId {
	return timeid.Derive(predictor, row, dep, baseBytes)
}
