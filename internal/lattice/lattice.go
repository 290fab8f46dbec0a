// Package lattice implements the row-major 2-D lattice addressing and
// distance metric used by the overlay validator's path_len check (spec §4.D,
// §4.C).
package lattice

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/squint-run/squint/internal/ir"
)

// Coord is a lattice position.
type Coord struct {
	X, Y int
}

var reQubitRef = regexp.MustCompile(`^\w+\[(\d+)\]$`)

// CoordOf maps a qubit reference like "q[3]" to its lattice coordinate,
// row-major: x = i mod cols, y = i div cols (spec §4.D, §9 "iteration
// determinism" — the formula itself is fixed by §4.D, not iteration order).
func CoordOf(qubitRef string, l ir.Lattice) (Coord, error) {
	m := reQubitRef.FindStringSubmatch(qubitRef)
	if m == nil {
		return Coord{}, fmt.Errorf("not a qubit reference: %q", qubitRef)
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return Coord{}, fmt.Errorf("malformed qubit index in %q: %w", qubitRef, err)
	}
	if l.Cols <= 0 {
		return Coord{}, fmt.Errorf("lattice has non-positive column count %d", l.Cols)
	}
	return Coord{X: idx % l.Cols, Y: idx / l.Cols}, nil
}

// Manhattan returns the L1 distance between two coordinates.
func Manhattan(a, b Coord) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
