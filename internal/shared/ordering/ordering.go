// Package ordering provides the priority value attached to every item loader.
//
// Lower ranks run earlier. Two ranks are predefined:
//   - Structural: rank 0, for loaders that establish the on-disk layout
//   - Generic: the maximum int, for catch-all fallback loaders
//
// Example Usage:
//
//	o, err := ordering.Of(10)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(o.Order()) // 10
package ordering

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRank is returned when constructing an Ordering from a negative rank.
var ErrInvalidRank = errors.New("invalid rank")

// Ordering is an immutable, non-negative loader rank.
type Ordering struct {
	rank int
}

var (
	// Structural runs before every other loader.
	Structural = Ordering{rank: 0}
	// Generic runs after every other loader.
	Generic = Ordering{rank: math.MaxInt}
)

// Of creates an Ordering with the given rank.
func Of(rank int) (Ordering, error) {
	if rank < 0 {
		return Ordering{}, fmt.Errorf("%w: %d is negative", ErrInvalidRank, rank)
	}
	return Ordering{rank: rank}, nil
}

// MustOf is like Of but panics on a negative rank. Intended for static registration tables.
func MustOf(rank int) Ordering {
	o, err := Of(rank)
	if err != nil {
		panic(err)
	}
	return o
}

// Order returns the rank.
func (o Ordering) Order() int {
	return o.rank
}

// Before reports whether o runs strictly before other.
func (o Ordering) Before(other Ordering) bool {
	return o.rank < other.rank
}

// String returns the rank, or its well-known name.
func (o Ordering) String() string {
	switch o.rank {
	case Structural.rank:
		return "structural"
	case Generic.rank:
		return "generic"
	default:
		return fmt.Sprintf("%d", o.rank)
	}
}

// Compare returns -1, 0 or +1 depending on whether a runs before, together with, or after b.
func Compare(a, b Ordering) int {
	switch {
	case a.rank < b.rank:
		return -1
	case a.rank > b.rank:
		return 1
	default:
		return 0
	}
}
