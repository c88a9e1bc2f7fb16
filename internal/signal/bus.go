// Package signal holds the double-buffered inter-voxel message grid.
package signal

import (
	"voxelnet/internal/model"
)

// Bus keeps the signals published in the previous round apart from the ones
// being staged in the current round. Readers only ever see previous; writers
// only ever touch their own staging slot, so a round can run cells in any
// order or in parallel.
type Bus struct {
	body     model.Body
	width    int
	previous model.Grid[[]float64]
	staging  model.Grid[[]float64]
	zero     []float64
}

func NewBus(body model.Body, width int) *Bus {
	if width < 0 {
		width = 0
	}
	b := &Bus{body: body, width: width, zero: make([]float64, width)}
	b.previous = b.fresh()
	b.staging = b.fresh()
	return b
}

func (b *Bus) Width() int { return b.width }

func (b *Bus) fresh() model.Grid[[]float64] {
	return model.NewGridFunc(b.body.W(), b.body.H(), func(x, y int) []float64 {
		if !b.body.Occupied(x, y) {
			return nil
		}
		return make([]float64, b.width)
	})
}

// Last returns the signal c published last round. Missing, unoccupied and
// out-of-bounds cells read as a zero vector. The result must not be mutated.
func (b *Bus) Last(c model.Cell) []float64 {
	v := b.previous.Get(c.X, c.Y)
	if v == nil {
		return b.zero
	}
	return v
}

// Gather concatenates Last for every neighbour in order.
func (b *Bus) Gather(neighbors []model.Cell) []float64 {
	out := make([]float64, 0, len(neighbors)*b.width)
	for _, n := range neighbors {
		out = append(out, b.Last(n)...)
	}
	return out
}

// Stage writes c's outgoing signal for the current round. Values beyond the
// bus width are ignored and missing values stay zero.
func (b *Bus) Stage(c model.Cell, values []float64) {
	slot := b.staging.Get(c.X, c.Y)
	if slot == nil {
		return
	}
	copy(slot, values)
}

// Swap publishes the staged round and starts a fresh zeroed staging buffer.
func (b *Bus) Swap() {
	b.previous = b.staging
	b.staging = b.fresh()
}

func (b *Bus) Reset() {
	b.previous = b.fresh()
	b.staging = b.fresh()
}

// Staged returns a copy of every signal staged this round in scan order.
func (b *Bus) Staged() [][]float64 {
	cells := b.body.Cells()
	out := make([][]float64, len(cells))
	for i, c := range cells {
		out[i] = append([]float64(nil), b.staging.Get(c.X, c.Y)...)
	}
	return out
}

// Discard drops everything staged this round.
func (b *Bus) Discard() {
	b.staging = b.fresh()
}
