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
	"fmt"
	"sort"

	"github.com/chronosteward/chronosteward/chrono"
)

// accumulateChecksum folds one (FieldId, write value) pair into a running
// 64-bit commitment, per spec §4.5's "accumulates a running 64-bit
// checksum over (RowId, write_value) pairs for later cross-verification."
// FNV-1a over the field id (row and column) and the value's %v
// formatting: cheap, and stable
// across a process as long as the value's Stringer/format output is
// itself deterministic, which every column in this repository's examples
// guarantees.
func accumulateChecksum(acc uint64, id chrono.FieldId, value any) uint64 {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h := acc ^ offset
	mix := func(b byte) {
		h ^= uint64(b)
		h *= prime
	}
	for _, b := range []byte(fmt.Sprintf("%016x%016x/%d/%v", id.Row.Hi, id.Row.Lo, id.Column, value)) {
		mix(b)
	}
	return acc ^ h
}

// Checksum folds every currently-recorded event execution's checksum, in
// canonical ExtendedTime order, into one value — the
// SimpleSynchronizableTimeSteward.checksum hook SPEC_FULL.md's
// supplemented-features section describes, used by chrono/crossverified
// and the S3 handshake scenario to detect divergence between two stewards
// fed identical inputs.
func (st *Steward[T, K]) Checksum() uint64 {
	times := make([]chrono.ExtendedTime[T], 0, len(st.sched.events))
	for t, es := range st.sched.events {
		if es.exec != nil {
			times = append(times, t)
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Compare(times[j]) < 0 })

	var acc uint64
	for _, t := range times {
		acc = acc*31 + st.sched.events[t].exec.checksum
	}
	return acc
}

// DebugDump renders every currently-known event's scheduling state, for
// the BeginChecks/DebugDump style diagnostics that chrono/crossverified
// exposes through its own DebugDump method.
func (st *Steward[T, K]) DebugDump() string {
	times := make([]chrono.ExtendedTime[T], 0, len(st.sched.events))
	for t := range st.sched.events {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Compare(times[j]) < 0 })

	out := ""
	for _, t := range times {
		es := st.sched.events[t]
		scheduled := es.scheduled != nil
		executed := es.exec != nil
		out += fmt.Sprintf("%s: scheduled=%v executed=%v\n", t, scheduled, executed)
	}
	return out
}
