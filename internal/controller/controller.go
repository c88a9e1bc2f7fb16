// Package controller runs one transform per occupied voxel in synchronous
// message-passing rounds.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"voxelnet/internal/logging"
	"voxelnet/internal/model"
	"voxelnet/internal/neighborhood"
	"voxelnet/internal/signal"
	"voxelnet/internal/transform"
)

const UniformityBins = 25

var (
	ErrTransformCount = fmt.Errorf("%w: transform count does not match occupied cells", model.ErrConfiguration)
	ErrOutputWidth    = fmt.Errorf("%w: transform output does not match 1+signal width", model.ErrConfiguration)
	ErrSensorGrid     = fmt.Errorf("%w: sensor grid does not match body", model.ErrConfiguration)
)

type Options struct {
	Policy      neighborhood.Policy
	SignalWidth int
	Encoding    transform.Encoding
	Downsampler transform.Downsampler
	// RowWidth is the width of one encoded row when downsampling; zero means
	// the whole raw input is one row.
	RowWidth int
	// Workers bounds per-tick parallelism; zero means GOMAXPROCS.
	Workers int
	// Interval skips rounds requested less than Interval after the last one.
	Interval float64
	Logger   *slog.Logger
}

type Controller struct {
	body       model.Body
	opts       Options
	cells      []model.Cell
	neighbors  [][]model.Cell
	transforms []transform.Transform
	bus        *signal.Bus
	actuation  model.Grid[float64]
	staged     model.Grid[float64]
	sensorDims []int
	histogram  [UniformityBins]int
	binned     int
	ticks      int
	lastT      float64
	logger     *slog.Logger
}

func New(body model.Body, opts Options, transforms []transform.Transform) (*Controller, error) {
	if len(transforms) != body.Count() {
		return nil, fmt.Errorf("%w: got=%d want=%d", ErrTransformCount, len(transforms), body.Count())
	}
	if opts.SignalWidth < 0 {
		return nil, fmt.Errorf("%w: signal width %d", model.ErrConfiguration, opts.SignalWidth)
	}
	if err := opts.Downsampler.Validate(); err != nil {
		return nil, err
	}
	for i, tr := range transforms {
		if tr == nil {
			return nil, fmt.Errorf("%w: transform %d is nil", ErrTransformCount, i)
		}
		if tr.OutputDim() != 1+opts.SignalWidth {
			return nil, fmt.Errorf("%w: cell %d got=%d want=%d", ErrOutputWidth, i, tr.OutputDim(), 1+opts.SignalWidth)
		}
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	c := &Controller{
		body:       body,
		opts:       opts,
		cells:      body.Cells(),
		transforms: append([]transform.Transform(nil), transforms...),
		bus:        signal.NewBus(body, opts.SignalWidth),
		actuation:  model.NewGrid[float64](body.W(), body.H()),
		staged:     model.NewGrid[float64](body.W(), body.H()),
		sensorDims: make([]int, body.Count()),
		logger:     logging.OrDiscard(opts.Logger),
	}
	c.neighbors = make([][]model.Cell, len(c.cells))
	for i, cell := range c.cells {
		c.neighbors[i] = opts.Policy.Neighbors(cell, body)
	}
	c.resetSensorDims()

	c.logger.Debug("controller ready",
		"cells", body.Count(),
		"policy", opts.Policy.String(),
		"signal_width", opts.SignalWidth,
		"encoding", opts.Encoding.String(),
		"workers", opts.Workers,
	)
	return c, nil
}

func (c *Controller) Body() model.Body { return c.body }
func (c *Controller) Options() Options { return c.opts }
func (c *Controller) Ticks() int       { return c.ticks }
func (c *Controller) Bus() *signal.Bus { return c.bus }

// Compute runs one synchronous round at time t and returns the actuation grid.
// Every cell reads only signals published by the previous round.
func (c *Controller) Compute(ctx context.Context, t float64, sensors model.Grid[[]float64]) (model.Grid[float64], error) {
	if err := ctx.Err(); err != nil {
		return model.Grid[float64]{}, err
	}
	if !model.SameShape(sensors, c.actuation) {
		return model.Grid[float64]{}, fmt.Errorf("%w: got=%dx%d want=%dx%d",
			ErrSensorGrid, sensors.W(), sensors.H(), c.body.W(), c.body.H())
	}
	if c.ticks > 0 && c.opts.Interval > 0 && t-c.lastT < c.opts.Interval {
		return c.Actuation(), nil
	}

	var g errgroup.Group
	g.SetLimit(c.opts.Workers)
	for i := range c.cells {
		g.Go(func() error { return c.step(i, t, sensors) })
	}
	if err := g.Wait(); err != nil {
		c.bus.Discard()
		return model.Grid[float64]{}, err
	}

	c.accumulate(c.bus.Staged())
	c.bus.Swap()
	c.actuation, c.staged = c.staged, c.actuation
	c.ticks++
	c.lastT = t

	logging.Trace(ctx, c.logger, "round complete", "t", t, "tick", c.ticks, "uniformity", c.MessageUniformity())
	return c.Actuation(), nil
}

// step touches only cell i's signal slot, staged actuation and transform.
// Nothing it writes is visible until the whole round succeeds.
func (c *Controller) step(i int, t float64, sensors model.Grid[[]float64]) error {
	cell := c.cells[i]
	reading := sensors.Get(cell.X, cell.Y)
	if c.sensorDims[i] < 0 {
		c.sensorDims[i] = len(reading)
	} else if c.sensorDims[i] != len(reading) {
		return fmt.Errorf("%w: cell %s sensor length got=%d want=%d", ErrSensorGrid, cell, len(reading), c.sensorDims[i])
	}

	in := make([]float64, 0, len(reading)+len(c.neighbors[i])*c.opts.SignalWidth)
	in = append(in, reading...)
	in = append(in, c.bus.Gather(c.neighbors[i])...)

	encoded := c.opts.Encoding.Encode(i, c.body.Count(), in)
	if c.opts.Downsampler.Enabled() {
		var err error
		width := c.opts.RowWidth
		if width <= 0 || c.opts.Encoding != transform.Identity {
			width = len(in)
		}
		if encoded, err = c.opts.Downsampler.Apply(encoded, width); err != nil {
			return fmt.Errorf("cell %s: %w", cell, err)
		}
	}

	out, err := c.transforms[i].Apply(t, encoded)
	if err != nil {
		return fmt.Errorf("cell %s: %w", cell, err)
	}
	if len(out) != 1+c.opts.SignalWidth {
		return fmt.Errorf("%w: cell %s got=%d", ErrOutputWidth, cell, len(out))
	}
	c.staged.Set(cell.X, cell.Y, out[0])
	c.bus.Stage(cell, out[1:])
	return nil
}

func (c *Controller) accumulate(signals [][]float64) {
	for _, values := range signals {
		for _, v := range values {
			if bin, ok := uniformityBin(v); ok {
				c.histogram[bin]++
				c.binned++
			}
		}
	}
}

// uniformityBin puts v in the first bin whose upper edge -1+(i+1)·2/25 is not
// below v. Values above 1 fall outside every bin.
func uniformityBin(v float64) (int, bool) {
	for i := 0; i < UniformityBins; i++ {
		if v <= -1+float64(i+1)*2/UniformityBins {
			return i, true
		}
	}
	return 0, false
}

// MessageUniformity is 1 when every emitted signal landed in one bin and 0
// when they are spread evenly over all bins. It is 0 before any signal.
func (c *Controller) MessageUniformity() float64 {
	if c.binned == 0 {
		return 0
	}
	sum := 0.0
	for _, n := range c.histogram {
		f := float64(n) / float64(c.binned)
		sum += f * f
	}
	root := math.Sqrt(UniformityBins)
	return (math.Sqrt(sum*UniformityBins) - 1) / (root - 1)
}

// Histogram returns the accumulated per-bin message counts.
func (c *Controller) Histogram() []int {
	return append([]int(nil), c.histogram[:]...)
}

// Reset returns the controller to its pre-episode state.
func (c *Controller) Reset() {
	c.bus.Reset()
	for _, tr := range c.transforms {
		tr.Reset()
	}
	c.actuation = model.NewGrid[float64](c.body.W(), c.body.H())
	c.staged = model.NewGrid[float64](c.body.W(), c.body.H())
	c.histogram = [UniformityBins]int{}
	c.binned = 0
	c.ticks = 0
	c.lastT = 0
	c.resetSensorDims()
}

func (c *Controller) resetSensorDims() {
	for i := range c.sensorDims {
		c.sensorDims[i] = -1
	}
}

func (c *Controller) Actuation() model.Grid[float64] {
	return c.actuation.Clone()
}

// Transform returns the transform driving cell.
func (c *Controller) Transform(cell model.Cell) (transform.Transform, bool) {
	i, ok := c.body.Index(cell)
	if !ok {
		return nil, false
	}
	return c.transforms[i], true
}

// Scores returns cell's cached attention matrix when it runs self-attention.
func (c *Controller) Scores(cell model.Cell) ([][]float64, bool) {
	tr, ok := c.Transform(cell)
	if !ok {
		return nil, false
	}
	a, ok := tr.(*transform.SelfAttention)
	if !ok {
		return nil, false
	}
	scores := a.Scores()
	return scores, scores != nil
}

// Freeze freezes every self-attention transform and reports how many there were.
func (c *Controller) Freeze() int {
	n := 0
	for _, tr := range c.transforms {
		if a, ok := tr.(*transform.SelfAttention); ok {
			a.Freeze()
			n++
		}
	}
	return n
}
