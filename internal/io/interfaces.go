// Package io holds the sensor sources that feed a controller and the
// actuators that consume its output grid.
package io

import (
	"context"

	"voxelnet/internal/model"
)

// Sensor produces one reading vector per occupied cell at time t. Every
// vector has Width values.
type Sensor interface {
	Name() string
	Width() int
	Read(ctx context.Context, t float64, body model.Body) (model.Grid[[]float64], error)
}

type Actuator interface {
	Name() string
	Write(ctx context.Context, t float64, actuation model.Grid[float64]) error
}

// SnapshotActuator is an optional actuator capability for callers that
// inspect the most recent actuation grid.
type SnapshotActuator interface {
	Last() model.Grid[float64]
}
