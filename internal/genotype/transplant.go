package genotype

import (
	"fmt"

	"voxelnet/internal/transform"
)

// TransplantDownsampler makes a body with more cells feed an attention block
// evolved on sourceCells cells: encoded rows are averaged in groups of scale
// and padded or truncated to sourceCells rows.
func TransplantDownsampler(scale, sourceCells int) (transform.Downsampler, error) {
	if scale < 1 || sourceCells < 1 {
		return transform.Downsampler{}, fmt.Errorf("%w: transplant scale=%d source cells=%d", ErrInvalidConfig, scale, sourceCells)
	}
	return transform.Downsampler{Scale: scale, Rows: sourceCells}, nil
}

// TransplantScale is the smallest group size that folds targetCells rows
// into at most sourceCells rows.
func TransplantScale(sourceCells, targetCells int) int {
	if sourceCells <= 0 || targetCells <= sourceCells {
		return 1
	}
	return (targetCells + sourceCells - 1) / sourceCells
}

// SharedAttention returns the attention parameters every cell of a source
// genotype uses. A heterogeneous source contributes the block of cell 0.
func SharedAttention(genes []float64, layout Layout) ([]float64, error) {
	if err := layout.Check(genes); err != nil {
		return nil, err
	}
	if layout.AttentionSize == 0 {
		return nil, fmt.Errorf("%w: source genotype has no attention block", ErrInvalidConfig)
	}
	return append([]float64(nil), layout.AttentionBlock(0).Slice(genes)...), nil
}
