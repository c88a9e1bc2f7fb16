// Package evo holds structure-aware genetic operators over flat genotypes.
package evo

import (
	"fmt"
	"math/rand"

	"voxelnet/internal/genotype"
)

type Operator interface {
	Name() string
}

// Crossover produces one child from two parents of equal length.
type Crossover interface {
	Operator
	Recombine(rng *rand.Rand, a, b []float64) ([]float64, error)
}

// Mutation returns a perturbed copy of g.
type Mutation interface {
	Operator
	Mutate(rng *rand.Rand, g []float64) ([]float64, error)
}

// Factory creates a fresh genotype.
type Factory interface {
	Operator
	Build(rng *rand.Rand) ([]float64, error)
}

// Region selects one of the two parameter regions of a layout.
type Region int

const (
	Downstream Region = iota
	Attention
)

func (r Region) String() string {
	if r == Attention {
		return "attention"
	}
	return "downstream"
}

func ParseRegion(name string) (Region, error) {
	switch name {
	case "", "downstream", "down":
		return Downstream, nil
	case "attention", "att":
		return Attention, nil
	default:
		return Downstream, fmt.Errorf("%w: region %q", genotype.ErrInvalidConfig, name)
	}
}

func (r Region) block(l genotype.Layout) genotype.Block {
	if r == Attention {
		return l.AttentionRegion()
	}
	return l.DownstreamRegion()
}

func checkLength(g []float64, want int) error {
	if len(g) != want {
		return fmt.Errorf("%w: got=%d want=%d", genotype.ErrGenotypeLength, len(g), want)
	}
	return nil
}

func requireRand(rng *rand.Rand) error {
	if rng == nil {
		return fmt.Errorf("%w: random source is required", genotype.ErrInvalidConfig)
	}
	return nil
}
