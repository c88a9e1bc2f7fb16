package nn

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"voxelnet/internal/model"
)

func TestCountWeights(t *testing.T) {
	cases := []struct {
		inputs  int
		hidden  []int
		outputs int
		want    int
	}{
		{inputs: 2, outputs: 1, want: 3},
		{inputs: 20, outputs: 2, want: 42},
		{inputs: 3, hidden: []int{4}, outputs: 2, want: 16 + 10},
		{inputs: 1, hidden: []int{2, 2}, outputs: 1, want: 4 + 6 + 3},
	}
	for _, tc := range cases {
		if got := CountWeights(tc.inputs, tc.hidden, tc.outputs); got != tc.want {
			t.Fatalf("unexpected weight count for %d/%v/%d: got=%d want=%d", tc.inputs, tc.hidden, tc.outputs, got, tc.want)
		}
	}
}

func TestPerceptronApplyBiasFirstLayout(t *testing.T) {
	p, err := NewPerceptron(2, nil, 2, "identity")
	if err != nil {
		t.Fatalf("new perceptron: %v", err)
	}
	// neuron 0: 0.5 + 1*x0 + 2*x1; neuron 1: -1 + 0*x0 + 1*x1
	if err := p.SetParams([]float64{0.5, 1, 2, -1, 0, 1}); err != nil {
		t.Fatalf("set params: %v", err)
	}
	out, err := p.Apply([]float64{1, 3})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out[0] != 7.5 || out[1] != 2 {
		t.Fatalf("unexpected output: got=%v want=[7.5 2]", out)
	}
}

func TestPerceptronDefaultsToTanh(t *testing.T) {
	p, err := NewPerceptron(1, []int{1}, 1, "")
	if err != nil {
		t.Fatalf("new perceptron: %v", err)
	}
	if err := p.SetParams([]float64{0, 1, 0, 1}); err != nil {
		t.Fatalf("set params: %v", err)
	}
	out, err := p.Apply([]float64{0.5})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := math.Tanh(math.Tanh(0.5))
	if math.Abs(out[0]-want) > 1e-12 {
		t.Fatalf("unexpected output: got=%f want=%f", out[0], want)
	}
}

func TestPerceptronRejectsBadDimensions(t *testing.T) {
	if _, err := NewPerceptron(0, nil, 1, "tanh"); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error, got: %v", err)
	}
	if _, err := NewPerceptron(1, nil, 1, "nope"); !errors.Is(err, ErrActivationNotFound) {
		t.Fatalf("expected ErrActivationNotFound, got: %v", err)
	}
	p, _ := NewPerceptron(2, nil, 1, "tanh")
	if err := p.SetParams([]float64{1}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got: %v", err)
	}
	if _, err := p.Apply([]float64{1}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got: %v", err)
	}
}

func TestParamsIsACopy(t *testing.T) {
	p, _ := NewPerceptron(1, nil, 1, "identity")
	params := p.Params()
	params[0] = 9
	if p.Params()[0] != 0 {
		t.Fatal("expected Params to return a copy")
	}
}

func TestSoftmaxRows(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{0, 0, 1, 1})
	SoftmaxRows(m)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if got := m.At(i, j); math.Abs(got-0.5) > 1e-12 {
				t.Fatalf("unexpected softmax entry (%d,%d): got=%f want=0.5", i, j, got)
			}
		}
	}
}

func TestFromRowsRejectsRagged(t *testing.T) {
	if _, err := FromRows([][]float64{{1, 2}, {3}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got: %v", err)
	}
	m, err := FromRows([][]float64{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("from rows: %v", err)
	}
	AddRowVector(m, []float64{1, 1})
	if got := Flatten(m); got[0] != 2 || got[3] != 5 {
		t.Fatalf("unexpected matrix: got=%v", got)
	}
	if got := Rows(m); len(got) != 2 || got[1][0] != 4 {
		t.Fatalf("unexpected rows: got=%v", got)
	}
}
