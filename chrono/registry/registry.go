// Copyright 2024 The Erigon Authors
// (original work)
// Copyright 2026 The Chronosteward Authors
// (modifications)
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

// Package registry replaces the compile-time IncludedTypes type list the
// original implementation requires (a Rust trait with one associated type
// per Column/Event/Predictor, enumerated at compile time). Go has no
// equivalent of that trait machinery, so spec §9 directs that "the registry
// is a builder the host populates explicitly before constructing the
// steward" — that builder, and the dispatch tables it produces, live here.
package registry

import (
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/chronosteward/chronosteward/chrono"
)

// ColumnType is everything the engine needs to know about one host column
// without knowing its FieldType statically: how to compare two stored
// values for equality (to decide whether a write actually changed
// anything) and how to encode/decode it for the persistence format.
type ColumnType[T chrono.Ordered[T]] struct {
	ID     chrono.ColumnId
	Name   string
	Equal  func(a, b any) bool
	Encode func(value any) ([]byte, error)
	Decode func(data []byte) (any, error)
}

// RegisterColumn builds a ColumnType for FieldType V from ordinary typed
// functions, erasing V at the boundary so the rest of the engine can store
// ColumnTypes of differing FieldTypes in one slice.
func RegisterColumn[T chrono.Ordered[T], V any](
	id chrono.ColumnId,
	name string,
	equal func(a, b V) bool,
	encode func(V) ([]byte, error),
	decode func([]byte) (V, error),
) ColumnType[T] {
	return ColumnType[T]{
		ID:   id,
		Name: name,
		Equal: func(a, b any) bool {
			return equal(a.(V), b.(V))
		},
		Encode: func(value any) ([]byte, error) {
			return encode(value.(V))
		},
		Decode: func(data []byte) (any, error) {
			return decode(data)
		},
	}
}

// EventType records how to decode a persisted fiat event of one EventId
// back into a live chrono.Event[T,K].
type EventType[T chrono.Ordered[T], K any] struct {
	ID     chrono.EventId
	Name   string
	Decode func(data []byte) (chrono.Event[T, K], error)
}

// Tables is the built, immutable dispatch table a steward consults by id.
// Builder.Build produces one of these after auditing for collisions; it is
// safe for concurrent read access from multiple stewards sharing one
// Basics, which is exactly what the dispatch cache below is for.
type Tables[T chrono.Ordered[T], K any] struct {
	Columns    map[chrono.ColumnId]ColumnType[T]
	Events     map[chrono.EventId]EventType[T, K]
	Predictors map[chrono.PredictorId]chrono.Predictor[T, K]

	// PredictorsByColumn indexes predictors by the column of the row they
	// predict on, in ascending PredictorId order, for the scheduler's "which
	// predictors might care that this field changed" lookup (spec §4.3).
	PredictorsByColumn map[chrono.ColumnId][]chrono.PredictorId
}

// Builder accumulates a host's Column/Event/Predictor registrations. Build
// it once per distinct Basics configuration and reuse the result; see
// BuildCached.
type Builder[T chrono.Ordered[T], K any] struct {
	columns           []ColumnType[T]
	events            []EventType[T, K]
	predictors        []chrono.Predictor[T, K]
	predictorColumnOf map[chrono.PredictorId]chrono.ColumnId
}

func NewBuilder[T chrono.Ordered[T], K any]() *Builder[T, K] {
	return &Builder[T, K]{predictorColumnOf: make(map[chrono.PredictorId]chrono.ColumnId)}
}

func (b *Builder[T, K]) AddColumn(c ColumnType[T]) *Builder[T, K] {
	b.columns = append(b.columns, c)
	return b
}

func (b *Builder[T, K]) AddEvent(e EventType[T, K]) *Builder[T, K] {
	b.events = append(b.events, e)
	return b
}

// AddPredictor registers p, which predicts over rows in column.
func (b *Builder[T, K]) AddPredictor(column chrono.ColumnId, p chrono.Predictor[T, K]) *Builder[T, K] {
	b.predictors = append(b.predictors, p)
	b.predictorColumnOf[p.PredictorID()] = column
	return b
}

// Build audits all registrations for id collisions and reserved-window
// violations (spec §9: ids below chrono.ReservedIDWindow are reserved for
// the engine), then freezes the registration into a Tables.
func (b *Builder[T, K]) Build() (*Tables[T, K], error) {
	t := &Tables[T, K]{
		Columns:            make(map[chrono.ColumnId]ColumnType[T], len(b.columns)),
		Events:             make(map[chrono.EventId]EventType[T, K], len(b.events)),
		Predictors:         make(map[chrono.PredictorId]chrono.Predictor[T, K], len(b.predictors)),
		PredictorsByColumn: make(map[chrono.ColumnId][]chrono.PredictorId),
	}

	for _, c := range b.columns {
		if uint64(c.ID) < chrono.ReservedIDWindow {
			return nil, fmt.Errorf("registry: column %q id %s is below the reserved window", c.Name, c.ID)
		}
		if _, dup := t.Columns[c.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate column id %s", c.ID)
		}
		t.Columns[c.ID] = c
	}

	for _, e := range b.events {
		if uint64(e.ID) < chrono.ReservedIDWindow {
			return nil, fmt.Errorf("registry: event %q id %s is below the reserved window", e.Name, e.ID)
		}
		if _, dup := t.Events[e.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate event id %s", e.ID)
		}
		t.Events[e.ID] = e
	}

	for _, p := range b.predictors {
		id := p.PredictorID()
		if uint64(id) < chrono.ReservedIDWindow {
			return nil, fmt.Errorf("registry: predictor id %s is below the reserved window", id)
		}
		if _, dup := t.Predictors[id]; dup {
			return nil, fmt.Errorf("registry: duplicate predictor id %s", id)
		}
		t.Predictors[id] = p
		col := b.predictorColumnOf[id]
		t.PredictorsByColumn[col] = append(t.PredictorsByColumn[col], id)
	}
	for col := range t.PredictorsByColumn {
		ids := t.PredictorsByColumn[col]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}

	return t, nil
}

// sharedCache is the process-wide dispatch-table memoization SPEC_FULL.md's
// domain stack section describes: constructing many stewards bound to the
// same Basics identity (as the replay-chain property test does) should not
// repeatedly re-walk registration and re-run the collision audit. Keyed by
// a caller-supplied string identity rather than reflect.Type because two
// Basics values of the same Go type but different tuning knobs (e.g.
// MaxIteration) must not share a Tables.
var (
	sharedCacheOnce sync.Once
	sharedCache     *lru.Cache[string, any]
)

func cache() *lru.Cache[string, any] {
	sharedCacheOnce.Do(func() {
		c, err := lru.New[string, any](64)
		if err != nil {
			panic(err)
		}
		sharedCache = c
	})
	return sharedCache
}

// BuildCached runs build() at most once per key for the lifetime of the
// process (bounded to the 64 most recently used keys), returning the cached
// Tables on subsequent calls with the same key.
func BuildCached[T chrono.Ordered[T], K any](key string, build func() (*Tables[T, K], error)) (*Tables[T, K], error) {
	if v, ok := cache().Get(key); ok {
		tables, ok := v.(*Tables[T, K])
		if !ok {
			panic(chrono.NewCorruptionErrorf("registry: dispatch cache key %q reused across incompatible T/K instantiations", key))
		}
		return tables, nil
	}
	tables, err := build()
	if err != nil {
		return nil, err
	}
	cache().Add(key, tables)
	return tables, nil
}
