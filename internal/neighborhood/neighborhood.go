// Package neighborhood defines which cells a voxel listens to.
package neighborhood

import (
	"fmt"
	"strings"

	"voxelnet/internal/model"
)

var ErrUnknownPolicy = fmt.Errorf("%w: unknown neighborhood policy", model.ErrConfiguration)

type Policy int

const (
	None Policy = iota
	VonNeumann
	Moore
	All
)

func (p Policy) String() string {
	switch p {
	case None:
		return "none"
	case VonNeumann:
		return "neumann"
	case Moore:
		return "moore"
	case All:
		return "all"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

func Parse(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none":
		return None, nil
	case "neumann", "vonneumann", "von_neumann":
		return VonNeumann, nil
	case "moore":
		return Moore, nil
	case "all":
		return All, nil
	default:
		return None, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

var (
	vonNeumannOffsets = []model.Cell{{X: 0, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: -1}, {X: -1, Y: 0}}
	mooreOffsets      = []model.Cell{
		{X: -1, Y: 1}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0},
		{X: 1, Y: -1}, {X: 0, Y: -1}, {X: -1, Y: -1}, {X: -1, Y: 0},
	}
)

// Neighbors returns the ordered neighbour list of c. Coordinates may be out of
// bounds or unoccupied; readers treat those as silent.
func (p Policy) Neighbors(c model.Cell, body model.Body) []model.Cell {
	switch p {
	case VonNeumann:
		return offset(c, vonNeumannOffsets)
	case Moore:
		return offset(c, mooreOffsets)
	case All:
		return body.Cells()
	default:
		return nil
	}
}

// Count is the number of neighbour slots each cell reads.
func (p Policy) Count(body model.Body) int {
	switch p {
	case VonNeumann:
		return len(vonNeumannOffsets)
	case Moore:
		return len(mooreOffsets)
	case All:
		return body.Count()
	default:
		return 0
	}
}

func offset(c model.Cell, offsets []model.Cell) []model.Cell {
	out := make([]model.Cell, len(offsets))
	for i, o := range offsets {
		out[i] = model.Cell{X: c.X + o.X, Y: c.Y + o.Y}
	}
	return out
}
