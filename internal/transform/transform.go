// Package transform implements the per-cell learned functions a distributed
// controller runs every tick.
package transform

import (
	"fmt"
	"strings"

	"voxelnet/internal/model"
	"voxelnet/internal/nn"
)

var ErrUnknownVariant = fmt.Errorf("%w: unknown transform variant", model.ErrConfiguration)

type Kind string

const (
	KindFeedForward   Kind = "feedforward"
	KindSelfAttention Kind = "attention"
	KindRecurrent     Kind = "recurrent"
)

func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "feedforward", "mlp", "ff":
		return KindFeedForward, nil
	case "attention", "selfattention", "self_attention":
		return KindSelfAttention, nil
	case "recurrent", "rnn":
		return KindRecurrent, nil
	default:
		return "", fmt.Errorf("%w: kind %q", ErrUnknownVariant, name)
	}
}

// Transform is the closed set of per-cell functions. Parameters are laid out
// as the attention block (empty for non-attention kinds) followed by the
// downstream block.
type Transform interface {
	Kind() Kind
	InputDim() int
	OutputDim() int
	Apply(t float64, in []float64) ([]float64, error)
	Params() []float64
	SetParams(params []float64) error
	ParamCount() int
	AttentionParamCount() int
	Reset()
}

func checkParams(kind Kind, got, want int) error {
	if got != want {
		return fmt.Errorf("%w: %s params got=%d want=%d", nn.ErrDimensionMismatch, kind, got, want)
	}
	return nil
}
