package genotype

import (
	"context"
	"errors"
	"math"
	"testing"

	"voxelnet/internal/controller"
	"voxelnet/internal/model"
	"voxelnet/internal/transform"
)

func TestCentralizedGenotypeSizes(t *testing.T) {
	body, err := model.ParseShape("11")
	if err != nil {
		t.Fatalf("parse shape: %v", err)
	}
	cases := []struct {
		config string
		want   int
	}{
		{config: "2-1-1-baseline", want: 30},
		{config: "2-1-1", want: 15},
		{config: "2-1-1-softmax", want: 15},
		{config: "2-1-1-tanh", want: 22},
	}
	for _, tc := range cases {
		m, err := ParseCentralized(body, tc.config)
		if err != nil {
			t.Fatalf("%s: parse: %v", tc.config, err)
		}
		got, err := m.GenotypeSize()
		if err != nil {
			t.Fatalf("%s: size: %v", tc.config, err)
		}
		if got != tc.want {
			t.Fatalf("%s: unexpected genotype size: got=%d want=%d", tc.config, got, tc.want)
		}
	}
}

func TestCentralizedMapRuns(t *testing.T) {
	body, err := model.ParseShape("biped-4x3")
	if err != nil {
		t.Fatalf("parse shape: %v", err)
	}
	m, err := ParseCentralized(body, "2-2-1-softmax")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m.Interval = 0.33
	size, err := m.GenotypeSize()
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	genes := make([]float64, size)
	for i := range genes {
		genes[i] = math.Sin(float64(i))
	}
	run := func(ctrl *controller.Centralized) []float64 {
		var out []float64
		for tick := 0; tick < 4; tick++ {
			sensors := model.NewGrid[[]float64](body.W(), body.H())
			for i, c := range body.Cells() {
				sensors.Set(c.X, c.Y, []float64{math.Cos(float64(tick + i)), 0.5})
			}
			act, err := ctrl.Compute(context.Background(), float64(tick)*0.4, sensors)
			if err != nil {
				t.Fatalf("compute: %v", err)
			}
			for _, c := range body.Cells() {
				v := act.Get(c.X, c.Y)
				if v < -1 || v > 1 {
					t.Fatalf("actuation out of range at %s: %f", c, v)
				}
				out = append(out, v)
			}
		}
		return out
	}
	first, err := m.Map(genes)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	a := run(first)
	scores, ok := first.Scores()
	if !ok || len(scores) != body.Count() || len(scores[0]) != body.Count() {
		t.Fatalf("expected a body-wide score matrix: ok=%v rows=%d", ok, len(scores))
	}
	second, err := m.Map(genes)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	b := run(second)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic actuation at %d: got=%f want=%f", i, b[i], a[i])
		}
	}
	if got := first.Ticks(); got != 4 {
		t.Fatalf("unexpected rounds: got=%d want=4", got)
	}
}

func TestCentralizedRejects(t *testing.T) {
	body, err := model.ParseShape("11")
	if err != nil {
		t.Fatalf("parse shape: %v", err)
	}
	for _, config := range []string{"2-1", "2-0-1", "2-1-1-sparse", "2-1-1-tanh-x"} {
		if _, err := ParseCentralized(body, config); !errors.Is(err, model.ErrConfiguration) {
			t.Fatalf("%s: expected configuration error, got: %v", config, err)
		}
	}
	m, err := ParseCentralized(body, "2-1-1-baseline")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := m.Map(make([]float64, 29)); !errors.Is(err, ErrGenotypeLength) {
		t.Fatalf("expected ErrGenotypeLength, got: %v", err)
	}
	ctrl, err := m.Map(make([]float64, 30))
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if ctrl.Transform().Kind() != transform.KindFeedForward {
		t.Fatalf("baseline must be a perceptron: got=%s", ctrl.Transform().Kind())
	}
	sensors := model.NewGrid[[]float64](body.W(), body.H())
	sensors.Set(0, 0, []float64{1, 2})
	sensors.Set(1, 0, []float64{1})
	if _, err := ctrl.Compute(context.Background(), 0, sensors); !errors.Is(err, controller.ErrSensorGrid) {
		t.Fatalf("expected ErrSensorGrid, got: %v", err)
	}
}
