package chrono

import "fmt"

// Ordered is the constraint a host's BaseTime type must satisfy: a total
// order usable as a map key. Rust's Basics::Time also required Hash and
// Serialize; here those fall out of Go's comparable and the host's own
// (de)serialization hooks passed to the snapshot codec.
type Ordered[T any] interface {
	comparable
	// Compare returns <0, 0, >0 as the receiver is less than, equal to, or
	// greater than other.
	Compare(other T) int
}

// IterationType bounds the number of simultaneous events sharing one
// BaseTime. 65535 matches the original implementation's default.
type IterationType = uint32

const DefaultMaxIteration IterationType = 65535

// ExtendedTime refines a BaseTime with an iteration counter and a
// tie-break id into the total order every event and prediction is
// scheduled under. See spec §4.1.
type ExtendedTime[T Ordered[T]] struct {
	Base      T
	Iteration IterationType
	Id        TimeId
}

// NewFiatExtendedTime builds the ExtendedTime assigned to a fiat event: its
// iteration is always 0 and its id is the caller-chosen distinguisher.
func NewFiatExtendedTime[T Ordered[T]](base T, distinguisher DeterministicId) ExtendedTime[T] {
	return ExtendedTime[T]{Base: base, Iteration: 0, Id: distinguisher}
}

// Compare implements the canonical lexicographic order: base, then
// iteration, then id.
func (e ExtendedTime[T]) Compare(other ExtendedTime[T]) int {
	if c := e.Base.Compare(other.Base); c != 0 {
		return c
	}
	if e.Iteration != other.Iteration {
		if e.Iteration < other.Iteration {
			return -1
		}
		return 1
	}
	return e.Id.Compare(other.Id)
}

func (e ExtendedTime[T]) String() string {
	return fmt.Sprintf("ExtendedTime{base: %v, iteration: %d, id: %s}", e.Base, e.Iteration, e.Id)
}

// validSinceKind discriminates the three ValidSince states. It is
// unexported; code outside this package uses the Compare/CompareTime/String
// helpers instead.
type validSinceKind uint8

const (
	validSinceBeginning validSinceKind = iota
	validSinceBefore
	validSinceAfter
)

// ValidSince represents the oldest time a steward still accepts retroactive
// edits and snapshot requests: spec §3's ValidSince<T>. It is intentionally
// not a plain T, because After(t) and Before(t) must compare distinctly
// from t itself, and Beginning must compare below every possible Before(t).
type ValidSince[T Ordered[T]] struct {
	kind validSinceKind
	at   T
}

func Beginning[T Ordered[T]]() ValidSince[T] {
	return ValidSince[T]{kind: validSinceBeginning}
}

func Before[T Ordered[T]](t T) ValidSince[T] {
	return ValidSince[T]{kind: validSinceBefore, at: t}
}

func After[T Ordered[T]](t T) ValidSince[T] {
	return ValidSince[T]{kind: validSinceAfter, at: t}
}

func (v ValidSince[T]) String() string {
	switch v.kind {
	case validSinceBeginning:
		return "TheBeginning"
	case validSinceBefore:
		return fmt.Sprintf("Before(%v)", v.at)
	default:
		return fmt.Sprintf("After(%v)", v.at)
	}
}

// Compare totally orders ValidSince values. TheBeginning sorts below
// everything; for equal anchor times, Before(t) sorts below After(t); it is
// an accepted peculiarity (per the original design) that After(2) < Before(3).
func (v ValidSince[T]) Compare(other ValidSince[T]) int {
	if v.kind == validSinceBeginning && other.kind == validSinceBeginning {
		return 0
	}
	if v.kind == validSinceBeginning {
		return -1
	}
	if other.kind == validSinceBeginning {
		return 1
	}
	switch {
	case v.kind == validSinceBefore && other.kind == validSinceBefore:
		return v.at.Compare(other.at)
	case v.kind == validSinceAfter && other.kind == validSinceAfter:
		return v.at.Compare(other.at)
	case v.kind == validSinceBefore && other.kind == validSinceAfter:
		if v.at.Compare(other.at) <= 0 {
			return -1
		}
		return 1
	default: // After vs Before
		if v.at.Compare(other.at) < 0 {
			return -1
		}
		return 1
	}
}

// CompareTime reports how v compares against a plain BaseTime t, matching
// the original's PartialOrd<T> for ValidSince<T>.
func (v ValidSince[T]) CompareTime(t T) int {
	switch v.kind {
	case validSinceBeginning:
		return -1
	case validSinceBefore:
		if v.at.Compare(t) <= 0 {
			return -1
		}
		return 1
	default:
		if v.at.Compare(t) < 0 {
			return -1
		}
		return 1
	}
}

// IsBeginning reports whether v is the TheBeginning sentinel.
func (v ValidSince[T]) IsBeginning() bool { return v.kind == validSinceBeginning }

// At returns the anchor time for Before/After, and ok=false for TheBeginning.
func (v ValidSince[T]) At() (t T, ok bool) {
	if v.kind == validSinceBeginning {
		return t, false
	}
	return v.at, true
}
