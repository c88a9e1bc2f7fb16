// Package genotype maps flat real-valued genotypes onto distributed controllers.
package genotype

import (
	"fmt"
	"strconv"
	"strings"

	"voxelnet/internal/model"
	"voxelnet/internal/neighborhood"
	"voxelnet/internal/transform"
)

var (
	ErrUnknownDistribution = fmt.Errorf("%w: unknown distribution", model.ErrConfiguration)
	ErrInvalidConfig       = fmt.Errorf("%w: invalid controller config", model.ErrConfiguration)
)

// Distribution says whether a parameter block is shared by every cell or
// repeated once per cell.
type Distribution int

const (
	Homogeneous Distribution = iota
	Heterogeneous
)

func (d Distribution) String() string {
	if d == Heterogeneous {
		return "hetero"
	}
	return "homo"
}

func ParseDistribution(name string) (Distribution, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "homo", "homogeneous":
		return Homogeneous, nil
	case "hetero", "heterogeneous":
		return Heterogeneous, nil
	default:
		return Homogeneous, fmt.Errorf("%w: %q", ErrUnknownDistribution, name)
	}
}

// Variant holds the strategy choices that are not part of the config string.
// One build uses one variant for every cell.
type Variant struct {
	Projection    transform.Projection
	Normalizer    transform.Normalizer
	Encoding      transform.Encoding
	DecoderHidden []int
}

// Config is the parsed form of a controller config string.
type Config struct {
	Kind       transform.Kind
	Policy     neighborhood.Policy
	Din        int
	Dk         int
	Dv         int
	Hidden     int
	Window     int
	Attention  Distribution
	Downstream Distribution
	Variant    Variant
}

// ParseConfig reads one of
//
//	attention:   <policy>-<din>-<dk>-<dv>[-<att>|<down>]
//	feedforward: <policy>-<homo|hetero>
//	recurrent:   <policy>-<hidden>-<window>[-<homo|hetero>]
//
// Omitted distributions default to homo.
func ParseConfig(kind transform.Kind, s string) (Config, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	policy, err := neighborhood.Parse(parts[0])
	if err != nil {
		return Config{}, err
	}
	cfg := Config{Kind: kind, Policy: policy}

	switch kind {
	case transform.KindSelfAttention:
		if len(parts) != 4 && len(parts) != 5 {
			return Config{}, fmt.Errorf("%w: %q, want <policy>-<din>-<dk>-<dv>[-<att>|<down>]", ErrInvalidConfig, s)
		}
		dims, err := positiveInts(s, parts[1:4])
		if err != nil {
			return Config{}, err
		}
		cfg.Din, cfg.Dk, cfg.Dv = dims[0], dims[1], dims[2]
		if len(parts) == 5 {
			att, down, ok := strings.Cut(parts[4], "|")
			if !ok {
				return Config{}, fmt.Errorf("%w: %q, distributions must be <att>|<down>", ErrInvalidConfig, s)
			}
			if cfg.Attention, err = ParseDistribution(att); err != nil {
				return Config{}, err
			}
			if cfg.Downstream, err = ParseDistribution(down); err != nil {
				return Config{}, err
			}
		}
	case transform.KindFeedForward:
		if len(parts) != 2 {
			return Config{}, fmt.Errorf("%w: %q, want <policy>-<homo|hetero>", ErrInvalidConfig, s)
		}
		if cfg.Downstream, err = ParseDistribution(parts[1]); err != nil {
			return Config{}, err
		}
	case transform.KindRecurrent:
		if len(parts) != 3 && len(parts) != 4 {
			return Config{}, fmt.Errorf("%w: %q, want <policy>-<hidden>-<window>[-<homo|hetero>]", ErrInvalidConfig, s)
		}
		dims, err := positiveInts(s, parts[1:3])
		if err != nil {
			return Config{}, err
		}
		cfg.Hidden, cfg.Window = dims[0], dims[1]
		if len(parts) == 4 {
			if cfg.Downstream, err = ParseDistribution(parts[3]); err != nil {
				return Config{}, err
			}
		}
	default:
		return Config{}, fmt.Errorf("%w: kind %q", transform.ErrUnknownVariant, kind)
	}
	return cfg, nil
}

func (c Config) String() string {
	switch c.Kind {
	case transform.KindSelfAttention:
		return fmt.Sprintf("%s-%d-%d-%d-%s|%s", c.Policy, c.Din, c.Dk, c.Dv, c.Attention, c.Downstream)
	case transform.KindRecurrent:
		return fmt.Sprintf("%s-%d-%d-%s", c.Policy, c.Hidden, c.Window, c.Downstream)
	default:
		return fmt.Sprintf("%s-%s", c.Policy, c.Downstream)
	}
}

func positiveInts(s string, parts []string) ([]int, error) {
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("%w: %q has non-positive dimension %q", ErrInvalidConfig, s, p)
		}
		out[i] = v
	}
	return out, nil
}
