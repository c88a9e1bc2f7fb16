package transform

import (
	"fmt"
	"math"
	"strings"
)

// Encoding turns a cell's raw input into the matrix an attention block reads.
type Encoding int

const (
	// Identity passes the input through unchanged.
	Identity Encoding = iota
	// OneHot scatters the input into row i of an otherwise zero rows×len(in) matrix.
	OneHot
	// Sinusoidal takes the outer product of a cosine position code with the input.
	// Row j scales the input by cos(i / 10000^(2j/len(in))).
	Sinusoidal
)

func (e Encoding) String() string {
	switch e {
	case OneHot:
		return "onehot"
	case Sinusoidal:
		return "sinusoidal"
	default:
		return "identity"
	}
}

func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "identity", "none", "local":
		return Identity, nil
	case "onehot", "one_hot", "positional":
		return OneHot, nil
	case "sinusoidal", "cosine", "frequency":
		return Sinusoidal, nil
	default:
		return Identity, fmt.Errorf("%w: encoding %q", ErrUnknownVariant, name)
	}
}

// Expansion is the factor by which Encode grows an input for a body of n cells.
func (e Encoding) Expansion(n int) int {
	if e == Identity {
		return 1
	}
	return n
}

// Encode returns the row-major encoded vector for the cell at scan index i.
func (e Encoding) Encode(i, rows int, in []float64) []float64 {
	switch e {
	case OneHot:
		out := make([]float64, rows*len(in))
		if i >= 0 && i < rows {
			copy(out[i*len(in):], in)
		}
		return out
	case Sinusoidal:
		out := make([]float64, 0, rows*len(in))
		for j := 0; j < rows; j++ {
			pos := math.Cos(float64(i) / math.Pow(10000, 2*float64(j)/float64(len(in))))
			for _, v := range in {
				out = append(out, pos*v)
			}
		}
		return out
	default:
		return append([]float64(nil), in...)
	}
}
