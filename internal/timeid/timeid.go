// Package timeid computes spec §4.1's predicted-event identity: the
// order-independent dependency hash of a prediction's read set, and the
// TimeId derived from it. It is factored out of chrono/amortized so that
// chrono/memoizedflat derives byte-identical ids for the same logical
// prediction — chrono/crossverified's divergence check depends on two
// independently-written engines agreeing on event identity, not just on
// the field values those events produce.
package timeid

import (
	"sort"

	"github.com/chronosteward/chronosteward/chrono"
	"github.com/chronosteward/chronosteward/internal/idhash"
)

// DependencyHash folds a prediction's read set into one order-independent
// 128-bit digest, the "dependency_hash" spec §4.1's H(p, r, dependency_hash,
// t) takes as an argument. Sorting first makes it independent of map or
// btree iteration order, which two engines observing the same logical read
// set might otherwise traverse differently.
func DependencyHash(fields []chrono.FieldId) idhash.ID {
	sorted := make([]chrono.FieldId, len(fields))
	copy(sorted, fields)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Compare(sorted[j]) < 0 })
	h := idhash.New("dependency-hash")
	h.WriteUint64(uint64(len(sorted)))
	for _, f := range sorted {
		h.WriteUint64(f.Row.Hi).WriteUint64(f.Row.Lo).WriteUint64(uint64(f.Column))
	}
	return h.Sum()
}

// Derive computes spec §4.1's id = H(predictor, row, dependency_hash,
// base-time-bytes) for a predicted event's TimeId.
func Derive(predictor chrono.PredictorId, row chrono.RowId, dep idhash.ID, baseBytes []byte) chrono.DeterministicId {
	h := idhash.New("predicted-event-id")
	h.WriteUint64(uint64(predictor))
	h.WriteUint64(row.Hi).WriteUint64(row.Lo)
	h.WriteUint64(dep.Hi).WriteUint64(dep.Lo)
	h.WriteBytes(baseBytes)
	sum := h.Sum()
	return chrono.DeterministicId{Hi: sum.Hi, Lo: sum.Lo}
}
