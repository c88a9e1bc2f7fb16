package transform

import (
	"voxelnet/internal/nn"
)

// FeedForward is the plain perceptron baseline.
type FeedForward struct {
	net *nn.Perceptron
}

func NewFeedForward(inputs int, hidden []int, outputs int, activation string) (*FeedForward, error) {
	net, err := nn.NewPerceptron(inputs, hidden, outputs, activation)
	if err != nil {
		return nil, err
	}
	return &FeedForward{net: net}, nil
}

func (f *FeedForward) Kind() Kind               { return KindFeedForward }
func (f *FeedForward) InputDim() int            { return f.net.InputDim() }
func (f *FeedForward) OutputDim() int           { return f.net.OutputDim() }
func (f *FeedForward) ParamCount() int          { return f.net.ParamCount() }
func (f *FeedForward) AttentionParamCount() int { return 0 }
func (f *FeedForward) Params() []float64        { return f.net.Params() }
func (f *FeedForward) Reset()                   {}

func (f *FeedForward) SetParams(params []float64) error {
	if err := checkParams(KindFeedForward, len(params), f.net.ParamCount()); err != nil {
		return err
	}
	return f.net.SetParams(params)
}

func (f *FeedForward) Apply(_ float64, in []float64) ([]float64, error) {
	return f.net.Apply(in)
}
