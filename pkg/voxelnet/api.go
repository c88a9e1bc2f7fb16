// Package voxelnet is the public entry point for building, evolving and
// running distributed voxel controllers.
package voxelnet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"voxelnet/internal/evo"
	"voxelnet/internal/genotype"
	voxelio "voxelnet/internal/io"
	"voxelnet/internal/logging"
	"voxelnet/internal/model"
	"voxelnet/internal/stats"
	"voxelnet/internal/storage"
	"voxelnet/internal/transform"
)

const (
	defaultStoreKind = "memory"
	defaultTicks     = 50
	defaultDt        = 0.1
	defaultSigma     = 0.35
)

var ErrGenotypeNotFound = errors.New("genotype not found")

type Options struct {
	StoreKind string
	DBPath    string
	// Workers and Interval are passed to every controller the client builds.
	Workers  int
	Interval float64
	Logger   *slog.Logger
	Now      func() time.Time
}

type Client struct {
	store    storage.Store
	workers  int
	interval float64
	logger   *slog.Logger
	now      func() time.Time
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = defaultStoreKind
	}
	store, err := storage.NewStore(storeKind, opts.DBPath)
	if err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		store:    store,
		workers:  opts.Workers,
		interval: opts.Interval,
		logger:   logging.OrDiscard(opts.Logger),
		now:      now,
	}, nil
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// LayoutInfo describes the genotype a controller spec needs.
type LayoutInfo struct {
	Spec             model.ControllerSpec
	Cells            int
	InputDim         int
	OutputDim        int
	EncodedRows      int
	NeighborCount    int
	AttentionParams  int
	DownstreamParams int
	Layout           model.LayoutSummary
}

func Describe(spec model.ControllerSpec) (LayoutInfo, error) {
	m, err := genotype.NewMapper(spec, 0, 0, nil)
	if err != nil {
		return LayoutInfo{}, err
	}
	layout, err := m.Layout()
	if err != nil {
		return LayoutInfo{}, err
	}
	info := LayoutInfo{
		Spec:             spec,
		Cells:            m.Body.Count(),
		InputDim:         m.InputDim(),
		OutputDim:        m.OutputDim(),
		NeighborCount:    m.Config.Policy.Count(m.Body),
		AttentionParams:  layout.AttentionSize,
		DownstreamParams: layout.DownstreamSize,
		Layout:           layout.Summary(),
	}
	if m.Config.Kind == transform.KindSelfAttention {
		if info.EncodedRows, err = m.EncodedRows(); err != nil {
			return LayoutInfo{}, err
		}
	}
	return info, nil
}

type SeedRequest struct {
	Spec  model.ControllerSpec
	Seed  int64
	Lower float64
	Upper float64
}

// Seed draws a fresh uniform genotype for spec and stores it.
func (c *Client) Seed(ctx context.Context, req SeedRequest) (model.GenotypeRecord, error) {
	_, layout, err := c.mapper(req.Spec)
	if err != nil {
		return model.GenotypeRecord{}, err
	}
	lower, upper := bounds(req.Lower, req.Upper)
	factory := evo.UniformFactory{Size: layout.Size(), Lower: lower, Upper: upper}
	genes, err := factory.Build(rand.New(rand.NewSource(req.Seed)))
	if err != nil {
		return model.GenotypeRecord{}, err
	}
	return c.save(ctx, req.Spec, layout, genes, factory.Name())
}

type TransplantRequest struct {
	SourceID string
	Target   model.ControllerSpec
	Seed     int64
	Lower    float64
	Upper    float64
}

// Transplant seeds a genotype for Target whose attention block comes from the
// stored source genotype. Bodies with more cells than the source get a row
// downsampler when the target encoding grows with the cell count.
func (c *Client) Transplant(ctx context.Context, req TransplantRequest) (model.GenotypeRecord, error) {
	source, err := c.genotype(ctx, req.SourceID)
	if err != nil {
		return model.GenotypeRecord{}, err
	}
	_, sourceLayout, err := c.mapper(source.Spec)
	if err != nil {
		return model.GenotypeRecord{}, err
	}

	target := req.Target
	targetMapper, _, err := c.mapper(target)
	if err != nil {
		return model.GenotypeRecord{}, err
	}
	if targetMapper.Config.Variant.Encoding != transform.Identity && target.Scale == 0 && target.Rows == 0 {
		scale := genotype.TransplantScale(sourceLayout.Cells, targetMapper.Body.Count())
		ds, err := genotype.TransplantDownsampler(scale, sourceLayout.Cells)
		if err != nil {
			return model.GenotypeRecord{}, err
		}
		target.Scale, target.Rows = ds.Scale, ds.Rows
	}
	_, targetLayout, err := c.mapper(target)
	if err != nil {
		return model.GenotypeRecord{}, err
	}

	lower, upper := bounds(req.Lower, req.Upper)
	factory, err := evo.Transplant(source.Genes, sourceLayout, targetLayout, lower, upper)
	if err != nil {
		return model.GenotypeRecord{}, err
	}
	genes, err := factory.Build(rand.New(rand.NewSource(req.Seed)))
	if err != nil {
		return model.GenotypeRecord{}, err
	}
	c.logger.Info("transplanted attention",
		"source", source.ID,
		"source_cells", sourceLayout.Cells,
		"target_cells", targetLayout.Cells,
		"scale", target.Scale,
	)
	return c.save(ctx, target, targetLayout, genes, "transplant", source.ID)
}

type MutateRequest struct {
	ID       string
	Operator string
	// Target is "downstream" or "attention" for module_mutation.
	Target string
	Sigma  float64
	Seed   int64
}

func (c *Client) Mutate(ctx context.Context, req MutateRequest) (model.GenotypeRecord, error) {
	parent, err := c.genotype(ctx, req.ID)
	if err != nil {
		return model.GenotypeRecord{}, err
	}
	_, layout, err := c.mapper(parent.Spec)
	if err != nil {
		return model.GenotypeRecord{}, err
	}
	target, err := evo.ParseRegion(req.Target)
	if err != nil {
		return model.GenotypeRecord{}, err
	}
	name := req.Operator
	if name == "" {
		name = "module_mutation"
	}
	op, err := evo.ResolveOperator(name, parent.VersionedRecord, evo.Params{
		Layout: layout,
		Sigma:  sigmaOrDefault(req.Sigma),
		Target: target,
	})
	if err != nil {
		return model.GenotypeRecord{}, err
	}
	mutation, ok := op.(evo.Mutation)
	if !ok {
		return model.GenotypeRecord{}, fmt.Errorf("%w: %s is not a mutation", evo.ErrOperatorNotFound, name)
	}
	genes, err := mutation.Mutate(rand.New(rand.NewSource(req.Seed)), parent.Genes)
	if err != nil {
		return model.GenotypeRecord{}, err
	}
	return c.save(ctx, parent.Spec, layout, genes, mutation.Name(), parent.ID)
}

type CrossoverRequest struct {
	ParentA  string
	ParentB  string
	Operator string
	Sigma    float64
	Lower    float64
	Upper    float64
	Seed     int64
}

// Crossover recombines two stored genotypes that share a layout.
func (c *Client) Crossover(ctx context.Context, req CrossoverRequest) (model.GenotypeRecord, error) {
	a, err := c.genotype(ctx, req.ParentA)
	if err != nil {
		return model.GenotypeRecord{}, err
	}
	b, err := c.genotype(ctx, req.ParentB)
	if err != nil {
		return model.GenotypeRecord{}, err
	}
	if a.Layout != b.Layout {
		return model.GenotypeRecord{}, fmt.Errorf("%w: parents %s and %s have different layouts",
			genotype.ErrGenotypeLength, a.ID, b.ID)
	}
	_, layout, err := c.mapper(a.Spec)
	if err != nil {
		return model.GenotypeRecord{}, err
	}
	name := req.Operator
	if name == "" {
		name = "module_crossover"
	}
	lower, upper := req.Lower, req.Upper
	if lower == 0 && upper == 0 {
		lower, upper = 0, 1
	}
	op, err := evo.ResolveOperator(name, a.VersionedRecord, evo.Params{
		Layout: layout,
		Sigma:  sigmaOrDefault(req.Sigma),
		Lower:  lower,
		Upper:  upper,
	})
	if err != nil {
		return model.GenotypeRecord{}, err
	}
	crossover, ok := op.(evo.Crossover)
	if !ok {
		return model.GenotypeRecord{}, fmt.Errorf("%w: %s is not a crossover", evo.ErrOperatorNotFound, name)
	}
	genes, err := crossover.Recombine(rand.New(rand.NewSource(req.Seed)), a.Genes, b.Genes)
	if err != nil {
		return model.GenotypeRecord{}, err
	}
	return c.save(ctx, a.Spec, layout, genes, crossover.Name(), a.ID, b.ID)
}

type RolloutRequest struct {
	ID    string
	Ticks int
	Dt    float64
	// Sensors names a registered sensor source; empty means sinusoid.
	Sensors string
	// FreezeAfter freezes every attention block once this many ticks ran.
	// Zero never freezes.
	FreezeAfter int
	Save        bool
}

type RolloutSummary struct {
	Record      model.RolloutRecord
	Histogram   []int
	FrozenCells int
	// Scores holds the last attention matrix of the first cell, if any.
	Scores [][]float64
}

// Rollout drives the controller of a stored genotype with a deterministic
// sensor source and records the final actuation grid.
func (c *Client) Rollout(ctx context.Context, req RolloutRequest) (RolloutSummary, error) {
	record, err := c.genotype(ctx, req.ID)
	if err != nil {
		return RolloutSummary{}, err
	}
	m, _, err := c.mapper(record.Spec)
	if err != nil {
		return RolloutSummary{}, err
	}
	ctrl, err := m.Map(record.Genes)
	if err != nil {
		return RolloutSummary{}, err
	}
	ticks := req.Ticks
	if ticks <= 0 {
		ticks = defaultTicks
	}
	dt := req.Dt
	if dt <= 0 {
		dt = defaultDt
	}

	sensorName := req.Sensors
	if sensorName == "" {
		sensorName = voxelio.SinusoidSensorName
	}
	sensor, err := voxelio.ResolveSensor(sensorName, m.SensorCount)
	if err != nil {
		return RolloutSummary{}, err
	}
	recorder := voxelio.NewRecorderActuator()

	var summary RolloutSummary
	for k := 0; k < ticks; k++ {
		t := float64(k) * dt
		readings, err := sensor.Read(ctx, t, m.Body)
		if err != nil {
			return RolloutSummary{}, fmt.Errorf("tick %d: %w", k, err)
		}
		actuation, err := ctrl.Compute(ctx, t, readings)
		if err != nil {
			return RolloutSummary{}, fmt.Errorf("tick %d: %w", k, err)
		}
		if err := recorder.Write(ctx, t, actuation); err != nil {
			return RolloutSummary{}, err
		}
		if req.FreezeAfter > 0 && k+1 == req.FreezeAfter {
			summary.FrozenCells = ctrl.Freeze()
		}
	}

	rollout := storage.NewRolloutRecord(record.ID, c.now())
	rollout.Ticks = ctrl.Ticks()
	rollout.Sensors = sensor.Name()
	rollout.Actuation = gridRows(recorder.Last())
	rollout.Uniformity = ctrl.MessageUniformity()
	summary.Record = rollout
	summary.Histogram = ctrl.Histogram()
	if cells := m.Body.Cells(); len(cells) > 0 {
		summary.Scores, _ = ctrl.Scores(cells[0])
	}

	if req.Save {
		if err := c.store.SaveRollout(ctx, rollout); err != nil {
			return RolloutSummary{}, err
		}
	}
	c.logger.Info("rollout complete",
		"genotype", record.ID,
		"ticks", rollout.Ticks,
		"uniformity", rollout.Uniformity,
		"frozen", summary.FrozenCells,
	)
	return summary, nil
}

func (c *Client) Genotype(ctx context.Context, id string) (model.GenotypeRecord, error) {
	return c.genotype(ctx, id)
}

func (c *Client) Genotypes(ctx context.Context) ([]model.GenotypeRecord, error) {
	return c.store.ListGenotypes(ctx)
}

func (c *Client) DeleteGenotype(ctx context.Context, id string) error {
	return c.store.DeleteGenotype(ctx, id)
}

func (c *Client) Rollouts(ctx context.Context, genotypeID string) ([]model.RolloutRecord, error) {
	return c.store.ListRollouts(ctx, genotypeID)
}

// Report summarises the stored rollouts of genotypeID, or of every genotype
// when it is empty. A non-empty exportDir also writes the report there.
func (c *Client) Report(ctx context.Context, genotypeID, exportDir string) (stats.Report, error) {
	records, err := c.store.ListRollouts(ctx, genotypeID)
	if err != nil {
		return stats.Report{}, err
	}
	report := stats.Report{
		ID:           uuid.NewString(),
		CreatedAtUTC: c.now().UTC().Format(time.RFC3339),
		RolloutIDs:   make([]string, len(records)),
		Stats:        stats.SummarizeRollouts(genotypeID, records),
	}
	for i, r := range records {
		report.RolloutIDs[i] = r.ID
	}
	if exportDir != "" {
		if err := stats.WriteReport(exportDir, report); err != nil {
			return stats.Report{}, err
		}
	}
	return report, nil
}

func (c *Client) mapper(spec model.ControllerSpec) (genotype.Mapper, genotype.Layout, error) {
	m, err := genotype.NewMapper(spec, c.workers, c.interval, c.logger)
	if err != nil {
		return genotype.Mapper{}, genotype.Layout{}, err
	}
	layout, err := m.Layout()
	if err != nil {
		return genotype.Mapper{}, genotype.Layout{}, err
	}
	return m, layout, nil
}

func (c *Client) genotype(ctx context.Context, id string) (model.GenotypeRecord, error) {
	record, ok, err := c.store.GetGenotype(ctx, id)
	if err != nil {
		return model.GenotypeRecord{}, err
	}
	if !ok {
		return model.GenotypeRecord{}, fmt.Errorf("%w: %s", ErrGenotypeNotFound, id)
	}
	return record, nil
}

func (c *Client) save(ctx context.Context, spec model.ControllerSpec, layout genotype.Layout, genes []float64, operator string, parents ...string) (model.GenotypeRecord, error) {
	record := storage.NewGenotypeRecord(c.now())
	record.Spec = spec
	record.Layout = layout.Summary()
	record.Genes = genes
	record.Operator = operator
	record.ParentIDs = parents
	if err := c.store.SaveGenotype(ctx, record); err != nil {
		return model.GenotypeRecord{}, err
	}
	c.logger.Debug("saved genotype", "id", record.ID, "operator", operator, "genes", len(genes))
	return record, nil
}

func gridRows(g model.Grid[float64]) [][]float64 {
	rows := make([][]float64, g.H())
	for y := range rows {
		rows[y] = make([]float64, g.W())
		for x := range rows[y] {
			rows[y][x] = g.Get(x, y)
		}
	}
	return rows
}

func bounds(lower, upper float64) (float64, float64) {
	if lower == 0 && upper == 0 {
		return -1, 1
	}
	return lower, upper
}

func sigmaOrDefault(sigma float64) float64 {
	if sigma <= 0 {
		return defaultSigma
	}
	return sigma
}
