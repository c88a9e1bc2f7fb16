package transform

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"voxelnet/internal/nn"
)

// Downsampler shrinks an encoded rows×din matrix by averaging contiguous
// groups of Scale rows, then zero-pads or truncates to Rows rows.
type Downsampler struct {
	Scale int
	Rows  int
}

func (d Downsampler) Enabled() bool {
	return d.Scale > 1 || d.Rows > 0
}

func (d Downsampler) Validate() error {
	if d.Scale < 0 || d.Rows < 0 {
		return fmt.Errorf("%w: downsampler scale=%d rows=%d", nn.ErrDimensionMismatch, d.Scale, d.Rows)
	}
	return nil
}

// OutputRows is the row count Apply produces from an input of rows rows.
func (d Downsampler) OutputRows(rows int) int {
	if d.Rows > 0 {
		return d.Rows
	}
	scale := max(d.Scale, 1)
	return (rows + scale - 1) / scale
}

func (d Downsampler) Apply(encoded []float64, din int) ([]float64, error) {
	if din <= 0 || len(encoded)%din != 0 {
		return nil, fmt.Errorf("%w: downsample %d values into rows of %d", nn.ErrDimensionMismatch, len(encoded), din)
	}
	rows := len(encoded) / din
	scale := max(d.Scale, 1)
	out := make([]float64, d.OutputRows(rows)*din)
	for g, r := 0, 0; r < rows && (g+1)*din <= len(out); g, r = g+1, r+scale {
		end := min(r+scale, rows)
		dst := out[g*din : (g+1)*din]
		for k := r; k < end; k++ {
			floats.Add(dst, encoded[k*din:(k+1)*din])
		}
		floats.Scale(1/float64(end-r), dst)
	}
	return out, nil
}
