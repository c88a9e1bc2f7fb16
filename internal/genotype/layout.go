package genotype

import (
	"fmt"
	"strings"

	"voxelnet/internal/model"
)

var ErrGenotypeLength = fmt.Errorf("%w: genotype length mismatch", model.ErrConfiguration)

// Block is a contiguous range of genes.
type Block struct {
	Offset int
	Length int
}

func (b Block) End() int { return b.Offset + b.Length }

// Slice returns the block's view of genes without copying.
func (b Block) Slice(genes []float64) []float64 {
	return genes[b.Offset:b.End()]
}

// Layout decomposes a genotype into the attention region followed by the
// downstream region. A homogeneous region holds one shared block; a
// heterogeneous one holds Cells blocks in scan order.
type Layout struct {
	Cells          int
	AttentionSize  int
	DownstreamSize int
	Attention      Distribution
	Downstream     Distribution
}

func (l Layout) regionLength(size int, d Distribution) int {
	if d == Heterogeneous {
		return size * l.Cells
	}
	return size
}

func (l Layout) AttentionRegion() Block {
	return Block{Offset: 0, Length: l.regionLength(l.AttentionSize, l.Attention)}
}

func (l Layout) DownstreamRegion() Block {
	return Block{Offset: l.AttentionRegion().End(), Length: l.regionLength(l.DownstreamSize, l.Downstream)}
}

func (l Layout) Size() int {
	return l.DownstreamRegion().End()
}

// AttentionBlock is cell i's attention parameters.
func (l Layout) AttentionBlock(i int) Block {
	return l.block(l.AttentionRegion(), l.AttentionSize, l.Attention, i)
}

// DownstreamBlock is cell i's downstream parameters.
func (l Layout) DownstreamBlock(i int) Block {
	return l.block(l.DownstreamRegion(), l.DownstreamSize, l.Downstream, i)
}

func (l Layout) block(region Block, size int, d Distribution, i int) Block {
	if d == Homogeneous {
		return region
	}
	return Block{Offset: region.Offset + i*size, Length: size}
}

// Check rejects genotypes whose length differs from Size.
func (l Layout) Check(genes []float64) error {
	if len(genes) != l.Size() {
		return fmt.Errorf("%w: got=%d want=%d", ErrGenotypeLength, len(genes), l.Size())
	}
	return nil
}

// CellParams assembles cell i's full parameter vector as a fresh slice.
func (l Layout) CellParams(genes []float64, i int) []float64 {
	out := make([]float64, 0, l.AttentionSize+l.DownstreamSize)
	out = append(out, l.AttentionBlock(i).Slice(genes)...)
	return append(out, l.DownstreamBlock(i).Slice(genes)...)
}

func (l Layout) Summary() model.LayoutSummary {
	return model.LayoutSummary{
		Cells:          l.Cells,
		AttentionSize:  l.AttentionSize,
		DownstreamSize: l.DownstreamSize,
		Distribution:   l.Attention.String() + "|" + l.Downstream.String(),
		Size:           l.Size(),
	}
}

// LayoutFromSummary restores a layout persisted with Summary.
func LayoutFromSummary(s model.LayoutSummary) (Layout, error) {
	l := Layout{Cells: s.Cells, AttentionSize: s.AttentionSize, DownstreamSize: s.DownstreamSize}
	att, down, ok := strings.Cut(s.Distribution, "|")
	if !ok {
		return Layout{}, fmt.Errorf("%w: %q", ErrUnknownDistribution, s.Distribution)
	}
	var err error
	if l.Attention, err = ParseDistribution(att); err != nil {
		return Layout{}, err
	}
	if l.Downstream, err = ParseDistribution(down); err != nil {
		return Layout{}, err
	}
	if l.Size() != s.Size {
		return Layout{}, fmt.Errorf("%w: summary size %d does not match layout %d", ErrGenotypeLength, s.Size, l.Size())
	}
	return l, nil
}
