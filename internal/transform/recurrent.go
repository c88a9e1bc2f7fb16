package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"voxelnet/internal/nn"
)

// RecurrentCountWeights is in·h + h + h·h + h·out + out.
func RecurrentCountWeights(inputs, hidden, outputs int) int {
	return inputs*hidden + hidden + hidden*hidden + hidden*outputs + outputs
}

// Recurrent is an Elman network unrolled over a sliding window of past
// inputs on every call. Slots not yet filled hold zero inputs. Parameters are
// the input gate, the hidden×hidden recurrence matrix, then the output gate.
type Recurrent struct {
	hidden int
	window int
	input  *nn.Perceptron
	output *nn.Perceptron
	rec    []float64
	memory [][]float64
	state  []float64
}

func NewRecurrent(inputs, hidden, outputs, window int) (*Recurrent, error) {
	if hidden <= 0 || window <= 0 {
		return nil, fmt.Errorf("%w: recurrent hidden=%d window=%d", nn.ErrDimensionMismatch, hidden, window)
	}
	input, err := nn.NewPerceptron(inputs, nil, hidden, "identity")
	if err != nil {
		return nil, err
	}
	output, err := nn.NewPerceptron(hidden, nil, outputs, "tanh")
	if err != nil {
		return nil, err
	}
	return &Recurrent{
		hidden: hidden,
		window: window,
		input:  input,
		output: output,
		rec:    make([]float64, hidden*hidden),
		state:  make([]float64, hidden),
	}, nil
}

func (r *Recurrent) Kind() Kind               { return KindRecurrent }
func (r *Recurrent) InputDim() int            { return r.input.InputDim() }
func (r *Recurrent) OutputDim() int           { return r.output.OutputDim() }
func (r *Recurrent) AttentionParamCount() int { return 0 }
func (r *Recurrent) Window() int              { return r.window }

func (r *Recurrent) ParamCount() int {
	return r.input.ParamCount() + len(r.rec) + r.output.ParamCount()
}

func (r *Recurrent) Params() []float64 {
	out := r.input.Params()
	out = append(out, r.rec...)
	return append(out, r.output.Params()...)
}

func (r *Recurrent) SetParams(params []float64) error {
	if err := checkParams(KindRecurrent, len(params), r.ParamCount()); err != nil {
		return err
	}
	nIn := r.input.ParamCount()
	if err := r.input.SetParams(params[:nIn]); err != nil {
		return err
	}
	copy(r.rec, params[nIn:nIn+len(r.rec)])
	return r.output.SetParams(params[nIn+len(r.rec):])
}

// Reset clears the input window and the hidden state.
func (r *Recurrent) Reset() {
	r.memory = r.memory[:0]
	clear(r.state)
}

// State returns a copy of the hidden state after the last Apply.
func (r *Recurrent) State() []float64 {
	return append([]float64(nil), r.state...)
}

func (r *Recurrent) Apply(_ float64, in []float64) ([]float64, error) {
	if len(in) != r.InputDim() {
		return nil, fmt.Errorf("%w: recurrent input got=%d want=%d", nn.ErrDimensionMismatch, len(in), r.InputDim())
	}
	r.memory = append(r.memory, append([]float64(nil), in...))
	if len(r.memory) > r.window {
		r.memory = r.memory[len(r.memory)-r.window:]
	}

	w := mat.NewDense(r.hidden, r.hidden, r.rec)
	h := mat.NewVecDense(r.hidden, nil)
	zero := make([]float64, r.InputDim())
	for slot := 0; slot < r.window; slot++ {
		x := zero
		if pad := r.window - len(r.memory); slot >= pad {
			x = r.memory[slot-pad]
		}
		gate, err := r.input.Apply(x)
		if err != nil {
			return nil, err
		}
		var next mat.VecDense
		next.MulVec(w, h)
		for i := 0; i < r.hidden; i++ {
			h.SetVec(i, math.Tanh(gate[i]+next.AtVec(i)))
		}
	}
	copy(r.state, h.RawVector().Data)
	return r.output.Apply(r.state)
}
