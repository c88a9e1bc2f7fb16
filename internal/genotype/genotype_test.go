package genotype

import (
	"context"
	"errors"
	"testing"

	"voxelnet/internal/model"
	"voxelnet/internal/neighborhood"
	"voxelnet/internal/transform"
)

func mustBody(t *testing.T, spec string) model.Body {
	t.Helper()
	body, err := model.ParseShape(spec)
	if err != nil {
		t.Fatalf("parse shape %q: %v", spec, err)
	}
	return body
}

func mustConfig(t *testing.T, kind transform.Kind, s string) Config {
	t.Helper()
	cfg, err := ParseConfig(kind, s)
	if err != nil {
		t.Fatalf("parse config %q: %v", s, err)
	}
	return cfg
}

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i%17)/17 - 0.5
	}
	return out
}

func TestParseConfig(t *testing.T) {
	cfg := mustConfig(t, transform.KindSelfAttention, "neumann-5-2-2-homo|hetero")
	if cfg.Policy != neighborhood.VonNeumann || cfg.Din != 5 || cfg.Dk != 2 || cfg.Dv != 2 {
		t.Fatalf("unexpected attention config: %+v", cfg)
	}
	if cfg.Attention != Homogeneous || cfg.Downstream != Heterogeneous {
		t.Fatalf("unexpected distributions: %s|%s", cfg.Attention, cfg.Downstream)
	}
	if got := cfg.String(); got != "neumann-5-2-2-homo|hetero" {
		t.Fatalf("unexpected rendering: got=%s", got)
	}

	cfg = mustConfig(t, transform.KindSelfAttention, "all-14-2-2")
	if cfg.Attention != Homogeneous || cfg.Downstream != Homogeneous {
		t.Fatalf("expected homo|homo default, got %s|%s", cfg.Attention, cfg.Downstream)
	}

	cfg = mustConfig(t, transform.KindFeedForward, "moore-hetero")
	if cfg.Policy != neighborhood.Moore || cfg.Downstream != Heterogeneous {
		t.Fatalf("unexpected feed-forward config: %+v", cfg)
	}

	cfg = mustConfig(t, transform.KindRecurrent, "none-8-3")
	if cfg.Hidden != 8 || cfg.Window != 3 || cfg.Downstream != Homogeneous {
		t.Fatalf("unexpected recurrent config: %+v", cfg)
	}
}

func TestParseConfigRejects(t *testing.T) {
	cases := []struct {
		kind transform.Kind
		s    string
	}{
		{transform.KindSelfAttention, "hex-5-2-2"},
		{transform.KindSelfAttention, "neumann-5-2"},
		{transform.KindSelfAttention, "neumann-5-0-2"},
		{transform.KindSelfAttention, "neumann-5-2-2-homo"},
		{transform.KindSelfAttention, "neumann-5-2-2-homo|mixed"},
		{transform.KindFeedForward, "moore-5"},
		{transform.KindRecurrent, "moore-x-3"},
		{transform.Kind("cnn"), "moore-homo"},
	}
	for _, tc := range cases {
		if _, err := ParseConfig(tc.kind, tc.s); !errors.Is(err, model.ErrConfiguration) {
			t.Fatalf("expected configuration error for %s %q, got: %v", tc.kind, tc.s, err)
		}
	}
}

func TestLayoutLengthInvariant(t *testing.T) {
	body := mustBody(t, "biped-4x3")
	// 1 sensor + 4 neighbours × 1 signal = din 5 with identity encoding: one row.
	base := Mapper{Body: body, SensorCount: 1, SignalWidth: 1}
	const attention = 2*(5*2+2) + 5*2 + 2
	const downstream = (1*2 + 1) * 2

	cases := []struct {
		config string
		want   int
	}{
		{config: "neumann-5-2-2-homo|homo", want: attention + downstream},
		{config: "neumann-5-2-2-hetero|hetero", want: body.Count() * (attention + downstream)},
		{config: "neumann-5-2-2-homo|hetero", want: attention + body.Count()*downstream},
		{config: "neumann-5-2-2-hetero|homo", want: body.Count()*attention + downstream},
	}
	for _, tc := range cases {
		t.Run(tc.config, func(t *testing.T) {
			m := base
			m.Config = mustConfig(t, transform.KindSelfAttention, tc.config)
			layout, err := m.Layout()
			if err != nil {
				t.Fatalf("layout: %v", err)
			}
			if layout.AttentionSize != attention || layout.DownstreamSize != downstream {
				t.Fatalf("unexpected block sizes: got=%d/%d want=%d/%d",
					layout.AttentionSize, layout.DownstreamSize, attention, downstream)
			}
			if got := layout.Size(); got != tc.want {
				t.Fatalf("unexpected genotype length: got=%d want=%d", got, tc.want)
			}
			if got := layout.DownstreamRegion().End(); got != layout.Size() {
				t.Fatalf("regions do not tile the genotype: end=%d size=%d", got, layout.Size())
			}
		})
	}
}

func TestLayoutMatchesWholeGridAttention(t *testing.T) {
	// all-14-2-2 on biped-4x3: 4 sensors + 10 neighbours × 1 signal.
	m := Mapper{
		Body:        mustBody(t, "biped-4x3"),
		Config:      mustConfig(t, transform.KindSelfAttention, "all-14-2-2"),
		SensorCount: 4,
		SignalWidth: 1,
	}
	m.Config.Variant.Encoding = transform.OneHot
	layout, err := m.Layout()
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if layout.AttentionSize != 90 || layout.DownstreamSize != 42 {
		t.Fatalf("unexpected block sizes: got=%d/%d want=90/42", layout.AttentionSize, layout.DownstreamSize)
	}
}

func TestHomogeneousRoundTrip(t *testing.T) {
	body := mustBody(t, "comb-7x2")
	for _, kind := range []struct {
		kind   transform.Kind
		config string
	}{
		{transform.KindSelfAttention, "neumann-5-2-2-homo|homo"},
		{transform.KindFeedForward, "neumann-homo"},
		{transform.KindRecurrent, "neumann-3-2-homo"},
	} {
		t.Run(string(kind.kind), func(t *testing.T) {
			m := Mapper{Body: body, Config: mustConfig(t, kind.kind, kind.config), SensorCount: 1, SignalWidth: 1, Workers: 2}
			layout, err := m.Layout()
			if err != nil {
				t.Fatalf("layout: %v", err)
			}
			genes := ramp(layout.Size())
			ctrl, err := m.Map(genes)
			if err != nil {
				t.Fatalf("map: %v", err)
			}
			want := layout.CellParams(genes, 0)
			for i := 0; i < body.Count(); i++ {
				got, err := CellParams(ctrl, i)
				if err != nil {
					t.Fatalf("cell params: %v", err)
				}
				if len(got) != len(want) {
					t.Fatalf("cell %d param length: got=%d want=%d", i, len(got), len(want))
				}
				for j := range want {
					if got[j] != want[j] {
						t.Fatalf("cell %d param %d: got=%f want=%f", i, j, got[j], want[j])
					}
				}
			}

			// The controller must not alias the genotype.
			genes[0] += 10
			got, _ := CellParams(ctrl, 0)
			if got[0] == genes[0] {
				t.Fatal("controller aliases genotype storage")
			}
		})
	}
}

func TestHeterogeneousCellsGetDistinctBlocks(t *testing.T) {
	body := mustBody(t, "box-2x1")
	m := Mapper{Body: body, Config: mustConfig(t, transform.KindFeedForward, "none-hetero"), SensorCount: 2}
	layout, err := m.Layout()
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if layout.Size() != 2*3 {
		t.Fatalf("unexpected size: got=%d want=6", layout.Size())
	}
	ctrl, err := m.Map([]float64{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	second, _ := CellParams(ctrl, 1)
	if second[0] != 4 || second[2] != 6 {
		t.Fatalf("unexpected second cell params: %v", second)
	}
	if _, err := CellParams(ctrl, 2); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected out-of-range error, got: %v", err)
	}
}

func TestMapRejectsWrongLength(t *testing.T) {
	m := Mapper{Body: mustBody(t, "box-2x2"), Config: mustConfig(t, transform.KindFeedForward, "none-homo"), SensorCount: 2}
	if _, err := m.Map(make([]float64, 4)); !errors.Is(err, ErrGenotypeLength) {
		t.Fatalf("expected ErrGenotypeLength, got: %v", err)
	}
}

func TestMapperRejectsBadDimensions(t *testing.T) {
	body := mustBody(t, "box-2x2")
	m := Mapper{Body: body, Config: mustConfig(t, transform.KindSelfAttention, "neumann-4-2-2"), SensorCount: 1, SignalWidth: 1}
	if _, err := m.Layout(); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error for indivisible din, got: %v", err)
	}
	m.Config.Variant.Encoding = transform.OneHot
	if _, err := m.Layout(); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error for one-hot din mismatch, got: %v", err)
	}
	ff := Mapper{Body: body, Config: mustConfig(t, transform.KindFeedForward, "none-homo"), SensorCount: 1}
	ff.Config.Variant.Encoding = transform.OneHot
	if _, err := ff.Layout(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got: %v", err)
	}
}

func TestMappedControllerRuns(t *testing.T) {
	body := mustBody(t, "worm-3x1")
	m := Mapper{Body: body, Config: mustConfig(t, transform.KindSelfAttention, "moore-9-2-2-homo|hetero"), SensorCount: 1, SignalWidth: 1}
	layout, err := m.Layout()
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	ctrl, err := m.Map(ramp(layout.Size()))
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	sensors := model.NewGrid[[]float64](body.W(), body.H())
	for _, c := range body.Cells() {
		sensors.Set(c.X, c.Y, []float64{0.25 * float64(c.X)})
	}
	for tick := 0; tick < 3; tick++ {
		if _, err := ctrl.Compute(context.Background(), float64(tick), sensors); err != nil {
			t.Fatalf("compute: %v", err)
		}
	}
	if _, ok := ctrl.Scores(model.Cell{X: 1, Y: 0}); !ok {
		t.Fatal("expected attention scores after a round")
	}
}

func TestLayoutSummaryRoundTrip(t *testing.T) {
	l := Layout{Cells: 4, AttentionSize: 8, DownstreamSize: 3, Attention: Heterogeneous, Downstream: Homogeneous}
	got, err := LayoutFromSummary(l.Summary())
	if err != nil {
		t.Fatalf("layout from summary: %v", err)
	}
	if got != l {
		t.Fatalf("unexpected layout: got=%+v want=%+v", got, l)
	}
	bad := l.Summary()
	bad.Size++
	if _, err := LayoutFromSummary(bad); !errors.Is(err, ErrGenotypeLength) {
		t.Fatalf("expected ErrGenotypeLength, got: %v", err)
	}
}

func TestTransplantHelpers(t *testing.T) {
	if got := TransplantScale(10, 11); got != 2 {
		t.Fatalf("unexpected scale: got=%d want=2", got)
	}
	if got := TransplantScale(10, 4); got != 1 {
		t.Fatalf("unexpected scale for smaller target: got=%d want=1", got)
	}
	ds, err := TransplantDownsampler(2, 10)
	if err != nil {
		t.Fatalf("downsampler: %v", err)
	}
	if ds.Rows != 10 || ds.Scale != 2 {
		t.Fatalf("unexpected downsampler: %+v", ds)
	}
	if _, err := TransplantDownsampler(0, 10); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error, got: %v", err)
	}

	l := Layout{Cells: 2, AttentionSize: 2, DownstreamSize: 1, Attention: Heterogeneous}
	shared, err := SharedAttention([]float64{1, 2, 3, 4, 5}, l)
	if err != nil {
		t.Fatalf("shared attention: %v", err)
	}
	if len(shared) != 2 || shared[0] != 1 || shared[1] != 2 {
		t.Fatalf("unexpected shared attention: %v", shared)
	}
}
