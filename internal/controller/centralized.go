package controller

import (
	"context"
	"fmt"
	"log/slog"

	"voxelnet/internal/logging"
	"voxelnet/internal/model"
	"voxelnet/internal/transform"
)

// Centralized drives every voxel from one transform that reads the sensors of
// the whole body at once. There is no signal bus.
type Centralized struct {
	body      model.Body
	cells     []model.Cell
	tr        transform.Transform
	din       int
	interval  float64
	actuation model.Grid[float64]
	ticks     int
	lastT     float64
	logger    *slog.Logger
}

// NewCentralized wires tr to body. tr must read N·din values and emit one
// actuation per occupied cell.
func NewCentralized(body model.Body, tr transform.Transform, interval float64, logger *slog.Logger) (*Centralized, error) {
	n := body.Count()
	if tr == nil {
		return nil, fmt.Errorf("%w: centralized transform is nil", ErrTransformCount)
	}
	if n == 0 || tr.InputDim()%n != 0 {
		return nil, fmt.Errorf("%w: input %d is not a multiple of %d cells", ErrSensorGrid, tr.InputDim(), n)
	}
	if tr.OutputDim() != n {
		return nil, fmt.Errorf("%w: got=%d want=%d", ErrOutputWidth, tr.OutputDim(), n)
	}
	c := &Centralized{
		body:      body,
		cells:     body.Cells(),
		tr:        tr,
		din:       tr.InputDim() / n,
		interval:  interval,
		actuation: model.NewGrid[float64](body.W(), body.H()),
		logger:    logging.OrDiscard(logger),
	}
	c.logger.Debug("centralized controller ready", "cells", n, "din", c.din, "kind", string(tr.Kind()))
	return c, nil
}

func (c *Centralized) Body() model.Body               { return c.body }
func (c *Centralized) Ticks() int                     { return c.ticks }
func (c *Centralized) Transform() transform.Transform { return c.tr }

// Compute concatenates the readings in scan order, runs the transform once
// and spreads its outputs back over the cells.
func (c *Centralized) Compute(ctx context.Context, t float64, sensors model.Grid[[]float64]) (model.Grid[float64], error) {
	if err := ctx.Err(); err != nil {
		return model.Grid[float64]{}, err
	}
	if !model.SameShape(sensors, c.actuation) {
		return model.Grid[float64]{}, fmt.Errorf("%w: got=%dx%d want=%dx%d",
			ErrSensorGrid, sensors.W(), sensors.H(), c.body.W(), c.body.H())
	}
	if c.ticks > 0 && c.interval > 0 && t-c.lastT < c.interval {
		return c.Actuation(), nil
	}

	in := make([]float64, 0, len(c.cells)*c.din)
	for _, cell := range c.cells {
		reading := sensors.Get(cell.X, cell.Y)
		if len(reading) != c.din {
			return model.Grid[float64]{}, fmt.Errorf("%w: cell %s sensor length got=%d want=%d",
				ErrSensorGrid, cell, len(reading), c.din)
		}
		in = append(in, reading...)
	}
	out, err := c.tr.Apply(t, in)
	if err != nil {
		return model.Grid[float64]{}, err
	}
	if len(out) != len(c.cells) {
		return model.Grid[float64]{}, fmt.Errorf("%w: got=%d want=%d", ErrOutputWidth, len(out), len(c.cells))
	}
	for i, cell := range c.cells {
		c.actuation.Set(cell.X, cell.Y, out[i])
	}
	c.ticks++
	c.lastT = t

	logging.Trace(ctx, c.logger, "centralized round complete", "t", t, "tick", c.ticks)
	return c.Actuation(), nil
}

func (c *Centralized) Actuation() model.Grid[float64] {
	return c.actuation.Clone()
}

func (c *Centralized) Reset() {
	c.tr.Reset()
	c.actuation = model.NewGrid[float64](c.body.W(), c.body.H())
	c.ticks = 0
	c.lastT = 0
}

// Scores returns the body-wide attention matrix when the transform is attention.
func (c *Centralized) Scores() ([][]float64, bool) {
	a, ok := c.tr.(*transform.SelfAttention)
	if !ok {
		return nil, false
	}
	scores := a.Scores()
	return scores, scores != nil
}
