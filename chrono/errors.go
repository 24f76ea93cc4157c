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

package chrono

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// ErrInvalidTime is returned (wrapped, with %w) when a caller asks the
// steward to act at or before its current ValidSince — an insert, remove,
// or snapshot request that arrives too late to honor. See spec §7.
var ErrInvalidTime = errors.New("chrono: time is no longer valid")

// ErrInvalidInput is returned (wrapped, with %w) when a caller's request is
// self-inconsistent independent of timing — inserting two fiat events with
// the same base time and distinguisher, removing one that was never
// inserted, or a same-instant cascade that exceeds Basics.MaxIteration.
var ErrInvalidInput = errors.New("chrono: invalid input")

// CorruptionError marks a violated internal invariant: a dependency graph
// pointing at a field that no longer exists, a registry miss for a type id
// that was supposed to be registered, a divergence caught by
// chrono/crossverified. These are never returned as errors — the condition
// means the engine's own bookkeeping is wrong, not that the caller did
// something invalid — so they are only ever panicked, carrying a captured
// stack trace (via github.com/pkg/errors) for postmortem logging.
type CorruptionError struct {
	cause error
}

func (c *CorruptionError) Error() string { return c.cause.Error() }
func (c *CorruptionError) Unwrap() error { return c.cause }

// NewCorruptionErrorf builds a CorruptionError from a formatted message,
// capturing a stack trace at the call site.
func NewCorruptionErrorf(format string, args ...any) *CorruptionError {
	return &CorruptionError{cause: pkgerrors.WithStack(fmt.Errorf(format, args...))}
}

// PanicCorruptionf is shorthand for panic(NewCorruptionErrorf(...)).
func PanicCorruptionf(format string, args ...any) {
	panic(NewCorruptionErrorf(format, args...))
}
