package io

import (
	"context"
	"math"

	"voxelnet/internal/model"
)

const (
	SinusoidSensorName = "sinusoid"
	ConstantSensorName = "constant"
	PulseSensorName    = "pulse"
)

// SinusoidSensor gives cell i, channel j the reading sin(Freq·t + Phase·i + j),
// so neighbouring cells see the same wave slightly shifted.
type SinusoidSensor struct {
	Channels int
	Freq     float64
	Phase    float64
}

func (s SinusoidSensor) Name() string { return SinusoidSensorName }
func (s SinusoidSensor) Width() int   { return s.Channels }

func (s SinusoidSensor) Read(ctx context.Context, t float64, body model.Body) (model.Grid[[]float64], error) {
	return readCells(ctx, body, s.Channels, func(i, j int) float64 {
		return math.Sin(s.Freq*t + s.Phase*float64(i) + float64(j))
	})
}

type ConstantSensor struct {
	Channels int
	Value    float64
}

func (s ConstantSensor) Name() string { return ConstantSensorName }
func (s ConstantSensor) Width() int   { return s.Channels }

func (s ConstantSensor) Read(ctx context.Context, _ float64, body model.Body) (model.Grid[[]float64], error) {
	return readCells(ctx, body, s.Channels, func(int, int) float64 { return s.Value })
}

// PulseSensor drives only the first cell in scan order with a square wave of
// the given period; every other reading is zero. Anything the rest of the body
// does has to arrive through signals.
type PulseSensor struct {
	Channels int
	Period   float64
}

func (s PulseSensor) Name() string { return PulseSensorName }
func (s PulseSensor) Width() int   { return s.Channels }

func (s PulseSensor) Read(ctx context.Context, t float64, body model.Body) (model.Grid[[]float64], error) {
	high := s.Period <= 0 || math.Mod(t, s.Period) < s.Period/2
	return readCells(ctx, body, s.Channels, func(i, _ int) float64 {
		if i == 0 && high {
			return 1
		}
		return 0
	})
}

func readCells(ctx context.Context, body model.Body, width int, value func(i, j int) float64) (model.Grid[[]float64], error) {
	if err := ctx.Err(); err != nil {
		return model.Grid[[]float64]{}, err
	}
	grid := model.NewGrid[[]float64](body.W(), body.H())
	for i, cell := range body.Cells() {
		reading := make([]float64, width)
		for j := range reading {
			reading[j] = value(i, j)
		}
		grid.Set(cell.X, cell.Y, reading)
	}
	return grid, nil
}
