package controller

import (
	"context"
	"errors"
	"testing"

	"voxelnet/internal/model"
)

func TestCentralizedConcatenatesReadings(t *testing.T) {
	body := mustBody(t, "11")
	tr := &scripted{in: 4, out: 2, emit: constant(0.3, -0.6)}
	ctrl, err := NewCentralized(body, tr, 0, nil)
	if err != nil {
		t.Fatalf("new centralized: %v", err)
	}
	sensors := sensorGrid(body, func(i int) []float64 { return []float64{float64(i), float64(10 + i)} })
	act, err := ctrl.Compute(context.Background(), 0, sensors)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	want := []float64{0, 10, 1, 11}
	for i, v := range want {
		if tr.inputs[0][i] != v {
			t.Fatalf("unexpected input order: got=%v want=%v", tr.inputs[0], want)
		}
	}
	if act.Get(0, 0) != 0.3 || act.Get(1, 0) != -0.6 {
		t.Fatalf("unexpected actuation: got=%f,%f", act.Get(0, 0), act.Get(1, 0))
	}

	ctrl.Reset()
	if tr.resets != 1 || ctrl.Ticks() != 0 || ctrl.Actuation().Get(0, 0) != 0 {
		t.Fatalf("reset left state: resets=%d ticks=%d", tr.resets, ctrl.Ticks())
	}
	if _, ok := ctrl.Scores(); ok {
		t.Fatalf("scripted transform has no scores")
	}
}

func TestCentralizedConfigurationErrors(t *testing.T) {
	body := mustBody(t, "11")
	if _, err := NewCentralized(body, &scripted{in: 3, out: 2}, 0, nil); !errors.Is(err, ErrSensorGrid) {
		t.Fatalf("expected ErrSensorGrid, got: %v", err)
	}
	if _, err := NewCentralized(body, &scripted{in: 4, out: 3}, 0, nil); !errors.Is(err, ErrOutputWidth) {
		t.Fatalf("expected ErrOutputWidth, got: %v", err)
	}
	if _, err := NewCentralized(body, nil, 0, nil); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error, got: %v", err)
	}
}
