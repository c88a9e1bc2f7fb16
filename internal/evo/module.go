package evo

import (
	"fmt"
	"math/rand"

	"voxelnet/internal/genotype"
)

// ModuleCrossover keeps the first parent's attention region and rebuilds the
// downstream region by geometric crossover of both parents followed by
// Gaussian mutation.
type ModuleCrossover struct {
	Layout genotype.Layout
	Lower  float64
	Upper  float64
	Sigma  float64
}

func (ModuleCrossover) Name() string { return "module_crossover" }

func (c ModuleCrossover) Recombine(rng *rand.Rand, a, b []float64) ([]float64, error) {
	if err := c.Layout.Check(a); err != nil {
		return nil, err
	}
	if err := c.Layout.Check(b); err != nil {
		return nil, err
	}
	down := c.Layout.DownstreamRegion()
	mixed, err := GeometricCrossover{Lower: c.Lower, Upper: c.Upper}.Recombine(rng, down.Slice(a), down.Slice(b))
	if err != nil {
		return nil, err
	}
	mutated, err := GaussianMutation{Sigma: c.Sigma}.Mutate(rng, mixed)
	if err != nil {
		return nil, err
	}
	child := append([]float64(nil), a...)
	copy(down.Slice(child), mutated)
	return child, nil
}

// BlockSwapCrossover picks each whole region from either parent with equal odds.
type BlockSwapCrossover struct {
	Layout genotype.Layout
}

func (BlockSwapCrossover) Name() string { return "block_swap" }

func (c BlockSwapCrossover) Recombine(rng *rand.Rand, a, b []float64) ([]float64, error) {
	if err := requireRand(rng); err != nil {
		return nil, err
	}
	if err := c.Layout.Check(a); err != nil {
		return nil, err
	}
	if err := c.Layout.Check(b); err != nil {
		return nil, err
	}
	child := make([]float64, len(a))
	for _, region := range []genotype.Block{c.Layout.AttentionRegion(), c.Layout.DownstreamRegion()} {
		src := a
		if rng.Intn(2) == 1 {
			src = b
		}
		copy(region.Slice(child), region.Slice(src))
	}
	return child, nil
}

// ModuleMutation perturbs only the Target region.
type ModuleMutation struct {
	Layout genotype.Layout
	Sigma  float64
	Target Region
}

func (ModuleMutation) Name() string { return "module_mutation" }

func (m ModuleMutation) Mutate(rng *rand.Rand, g []float64) ([]float64, error) {
	if err := m.Layout.Check(g); err != nil {
		return nil, err
	}
	region := m.Target.block(m.Layout)
	mutated, err := GaussianMutation{Sigma: m.Sigma}.Mutate(rng, region.Slice(g))
	if err != nil {
		return nil, err
	}
	out := append([]float64(nil), g...)
	copy(region.Slice(out), mutated)
	return out, nil
}

// ModuleFactory builds genotypes whose attention blocks are copies of a fixed
// prototype while the rest comes from Inner.
type ModuleFactory struct {
	Layout    genotype.Layout
	Prototype []float64
	Inner     Factory
}

func (ModuleFactory) Name() string { return "module_factory" }

func (f ModuleFactory) Build(rng *rand.Rand) ([]float64, error) {
	if len(f.Prototype) != f.Layout.AttentionSize {
		return nil, fmt.Errorf("%w: prototype got=%d want=%d", genotype.ErrGenotypeLength, len(f.Prototype), f.Layout.AttentionSize)
	}
	inner := f.Inner
	if inner == nil {
		inner = UniformFactory{Size: f.Layout.Size(), Lower: -1, Upper: 1}
	}
	g, err := inner.Build(rng)
	if err != nil {
		return nil, err
	}
	if err := f.Layout.Check(g); err != nil {
		return nil, err
	}
	for i := 0; i < f.blocks(); i++ {
		copy(f.Layout.AttentionBlock(i).Slice(g), f.Prototype)
	}
	return g, nil
}

func (f ModuleFactory) blocks() int {
	if f.Layout.Attention == genotype.Heterogeneous {
		return f.Layout.Cells
	}
	return 1
}

// Transplant seeds a factory for target with the attention parameters of a
// genotype evolved under source. The downstream region stays random.
func Transplant(genes []float64, source, target genotype.Layout, lower, upper float64) (ModuleFactory, error) {
	shared, err := genotype.SharedAttention(genes, source)
	if err != nil {
		return ModuleFactory{}, err
	}
	if len(shared) != target.AttentionSize {
		return ModuleFactory{}, fmt.Errorf("%w: source attention block %d does not fit target block %d",
			genotype.ErrGenotypeLength, len(shared), target.AttentionSize)
	}
	return ModuleFactory{
		Layout:    target,
		Prototype: shared,
		Inner:     UniformFactory{Size: target.Size(), Lower: lower, Upper: upper},
	}, nil
}
