package evo

import (
	"fmt"
	"math/rand"

	"voxelnet/internal/genotype"
)

// GaussianMutation adds N(0, Sigma) noise to every gene.
type GaussianMutation struct {
	Sigma float64
}

func (GaussianMutation) Name() string { return "gaussian" }

func (m GaussianMutation) Mutate(rng *rand.Rand, g []float64) ([]float64, error) {
	if err := requireRand(rng); err != nil {
		return nil, err
	}
	if m.Sigma < 0 {
		return nil, fmt.Errorf("%w: sigma must be >= 0", genotype.ErrInvalidConfig)
	}
	out := make([]float64, len(g))
	for i, v := range g {
		out[i] = v + rng.NormFloat64()*m.Sigma
	}
	return out, nil
}

// GeometricCrossover interpolates each gene as a + α(b−a) with α drawn per
// gene from [Lower, Upper].
type GeometricCrossover struct {
	Lower float64
	Upper float64
}

func (GeometricCrossover) Name() string { return "geometric" }

func (c GeometricCrossover) Recombine(rng *rand.Rand, a, b []float64) ([]float64, error) {
	if err := requireRand(rng); err != nil {
		return nil, err
	}
	if err := checkLength(b, len(a)); err != nil {
		return nil, err
	}
	if c.Upper < c.Lower {
		return nil, fmt.Errorf("%w: crossover range [%f, %f]", genotype.ErrInvalidConfig, c.Lower, c.Upper)
	}
	out := make([]float64, len(a))
	for i := range a {
		alpha := c.Lower + rng.Float64()*(c.Upper-c.Lower)
		out[i] = a[i] + alpha*(b[i]-a[i])
	}
	return out, nil
}

// UniformFactory draws every gene from [Lower, Upper].
type UniformFactory struct {
	Size  int
	Lower float64
	Upper float64
}

func (UniformFactory) Name() string { return "uniform" }

func (f UniformFactory) Build(rng *rand.Rand) ([]float64, error) {
	if err := requireRand(rng); err != nil {
		return nil, err
	}
	if f.Size < 0 || f.Upper < f.Lower {
		return nil, fmt.Errorf("%w: uniform factory size=%d range [%f, %f]", genotype.ErrInvalidConfig, f.Size, f.Lower, f.Upper)
	}
	out := make([]float64, f.Size)
	for i := range out {
		out[i] = f.Lower + rng.Float64()*(f.Upper-f.Lower)
	}
	return out, nil
}
