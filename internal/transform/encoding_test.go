package transform

import (
	"errors"
	"math"
	"testing"

	"voxelnet/internal/model"
)

func TestOneHotScattersIntoRow(t *testing.T) {
	got := OneHot.Encode(2, 3, []float64{7, 8})
	want := []float64{0, 0, 0, 0, 7, 8}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected one-hot encoding: got=%v want=%v", got, want)
		}
	}
	if got := OneHot.Expansion(10); got != 10 {
		t.Fatalf("unexpected expansion: got=%d want=10", got)
	}
}

func TestSinusoidalEncoding(t *testing.T) {
	got := Sinusoidal.Encode(0, 2, []float64{1, -2})
	want := []float64{1, -2, 1, -2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index 0 should have a unit position code: got=%v want=%v", got, want)
		}
	}
	got = Sinusoidal.Encode(3, 2, []float64{1})
	if math.Abs(got[0]-math.Cos(3)) > 1e-12 || math.Abs(got[1]-math.Cos(3.0/1e8)) > 1e-12 {
		t.Fatalf("unexpected position code: got=%v", got)
	}

	got = Sinusoidal.Encode(3, 4, []float64{1, 1})
	for j := 0; j < 4; j++ {
		want := math.Cos(3 / math.Pow(10000, float64(j)))
		if math.Abs(got[2*j]-want) > 1e-12 || got[2*j] != got[2*j+1] {
			t.Fatalf("row %d scales by input length: got=%v want=%v", j, got[2*j:2*j+2], want)
		}
	}
}

func TestIdentityCopies(t *testing.T) {
	in := []float64{1, 2}
	got := Identity.Encode(5, 9, in)
	got[0] = 3
	if in[0] != 1 || len(got) != 2 {
		t.Fatalf("identity encoding must copy: in=%v got=%v", in, got)
	}
}

func TestDownsampler(t *testing.T) {
	encoded := []float64{1, 10, 3, 30, 5, 50, 7, 70}
	cases := []struct {
		name string
		d    Downsampler
		want []float64
	}{
		{name: "halve", d: Downsampler{Scale: 2}, want: []float64{2, 20, 6, 60}},
		{name: "pad", d: Downsampler{Scale: 2, Rows: 3}, want: []float64{2, 20, 6, 60, 0, 0}},
		{name: "truncate", d: Downsampler{Scale: 2, Rows: 1}, want: []float64{2, 20}},
		{name: "ragged tail", d: Downsampler{Scale: 3}, want: []float64{3, 30, 7, 70}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.d.Apply(encoded, 2)
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("unexpected length: got=%v want=%v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("unexpected output: got=%v want=%v", got, tc.want)
				}
			}
		})
	}
	if _, err := (Downsampler{Scale: 2}).Apply([]float64{1, 2, 3}, 2); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error, got: %v", err)
	}
}
