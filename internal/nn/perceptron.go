package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Perceptron is a fully connected feed-forward network. Every layer stores,
// per output neuron, a bias followed by one weight per input.
type Perceptron struct {
	sizes      []int
	activation string
	fn         ActivationFunc
	weights    []float64
}

// CountWeights is the parameter count of a perceptron with the given shape.
func CountWeights(inputs int, hidden []int, outputs int) int {
	total := 0
	prev := inputs
	for _, size := range append(append([]int(nil), hidden...), outputs) {
		total += (prev + 1) * size
		prev = size
	}
	return total
}

func NewPerceptron(inputs int, hidden []int, outputs int, activation string) (*Perceptron, error) {
	if inputs <= 0 || outputs <= 0 {
		return nil, fmt.Errorf("%w: perceptron inputs=%d outputs=%d", ErrDimensionMismatch, inputs, outputs)
	}
	for _, size := range hidden {
		if size <= 0 {
			return nil, fmt.Errorf("%w: hidden layer size %d", ErrDimensionMismatch, size)
		}
	}
	if activation == "" {
		activation = "tanh"
	}
	fn, err := GetActivation(activation)
	if err != nil {
		return nil, err
	}
	sizes := make([]int, 0, len(hidden)+2)
	sizes = append(sizes, inputs)
	sizes = append(sizes, hidden...)
	sizes = append(sizes, outputs)
	return &Perceptron{
		sizes:      sizes,
		activation: activation,
		fn:         fn,
		weights:    make([]float64, CountWeights(inputs, hidden, outputs)),
	}, nil
}

func (p *Perceptron) InputDim() int      { return p.sizes[0] }
func (p *Perceptron) OutputDim() int     { return p.sizes[len(p.sizes)-1] }
func (p *Perceptron) ParamCount() int    { return len(p.weights) }
func (p *Perceptron) Activation() string { return p.activation }

func (p *Perceptron) Hidden() []int {
	return append([]int(nil), p.sizes[1:len(p.sizes)-1]...)
}

func (p *Perceptron) Params() []float64 {
	return append([]float64(nil), p.weights...)
}

func (p *Perceptron) SetParams(params []float64) error {
	if len(params) != len(p.weights) {
		return fmt.Errorf("%w: perceptron params got=%d want=%d", ErrDimensionMismatch, len(params), len(p.weights))
	}
	copy(p.weights, params)
	return nil
}

// Apply runs one forward pass. Every layer, including the last, goes through
// the activation function.
func (p *Perceptron) Apply(in []float64) ([]float64, error) {
	if len(in) != p.InputDim() {
		return nil, fmt.Errorf("%w: perceptron input got=%d want=%d", ErrDimensionMismatch, len(in), p.InputDim())
	}
	values := in
	offset := 0
	for l := 1; l < len(p.sizes); l++ {
		nIn, nOut := p.sizes[l-1], p.sizes[l]
		block := p.weights[offset : offset+(nIn+1)*nOut]
		offset += len(block)

		x := make([]float64, nIn+1)
		x[0] = 1
		copy(x[1:], values)

		var out mat.VecDense
		out.MulVec(mat.NewDense(nOut, nIn+1, block), mat.NewVecDense(nIn+1, x))

		next := make([]float64, nOut)
		for i := range next {
			next[i] = p.fn(out.AtVec(i))
		}
		values = next
	}
	return values, nil
}
