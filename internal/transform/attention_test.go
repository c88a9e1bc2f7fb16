package transform

import (
	"errors"
	"math"
	"testing"

	"voxelnet/internal/model"
)

func sinParams(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(float64(i)+1)
	}
	return out
}

func TestAttentionParamCounts(t *testing.T) {
	cases := []struct {
		name      string
		cfg       AttentionConfig
		attention int
		decoder   int
	}{
		{
			name:      "per_row all-14-2-2 on ten cells",
			cfg:       AttentionConfig{Rows: 10, Din: 14, Dk: 2, Dv: 2, Outputs: 2},
			attention: 90,
			decoder:   42,
		},
		{
			name:      "collapsed",
			cfg:       AttentionConfig{Rows: 10, Din: 14, Dk: 2, Projection: Collapsed, Outputs: 2},
			attention: 8,
			decoder:   (140 + 1) * 2,
		},
		{
			name:      "per_row with hidden decoder",
			cfg:       AttentionConfig{Rows: 4, Din: 5, Dk: 2, Dv: 2, Hidden: []int{3}, Outputs: 2},
			attention: 2*(10+2) + 10 + 2,
			decoder:   9*3 + 4*2,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := NewSelfAttention(tc.cfg)
			if err != nil {
				t.Fatalf("new attention: %v", err)
			}
			if got := a.AttentionParamCount(); got != tc.attention {
				t.Fatalf("unexpected attention params: got=%d want=%d", got, tc.attention)
			}
			if got := a.ParamCount() - a.AttentionParamCount(); got != tc.decoder {
				t.Fatalf("unexpected decoder params: got=%d want=%d", got, tc.decoder)
			}
		})
	}
}

func TestAttentionRejectsBadConfig(t *testing.T) {
	bad := []AttentionConfig{
		{Rows: 0, Din: 2, Dk: 2, Dv: 2, Outputs: 1},
		{Rows: 2, Din: 2, Dk: 0, Dv: 2, Outputs: 1},
		{Rows: 2, Din: 2, Dk: 2, Dv: 0, Outputs: 1},
		{Rows: 2, Din: 2, Dk: 2, Dv: 2, Outputs: 1, Hidden: []int{2, 2}},
	}
	for _, cfg := range bad {
		if _, err := NewSelfAttention(cfg); !errors.Is(err, model.ErrConfiguration) {
			t.Fatalf("expected configuration error for %+v, got: %v", cfg, err)
		}
	}
	a, err := NewSelfAttention(AttentionConfig{Rows: 2, Din: 2, Dk: 2, Dv: 2, Outputs: 1})
	if err != nil {
		t.Fatalf("new attention: %v", err)
	}
	if _, err := a.Apply(0, []float64{1, 2, 3}); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error on short input, got: %v", err)
	}
}

func TestAttentionFrozenScoresAreReused(t *testing.T) {
	for _, norm := range []Normalizer{Tanh, Softmax} {
		t.Run(norm.String(), func(t *testing.T) {
			a, err := NewSelfAttention(AttentionConfig{Rows: 3, Din: 2, Dk: 2, Dv: 2, Normalizer: norm, Outputs: 2})
			if err != nil {
				t.Fatalf("new attention: %v", err)
			}
			if err := a.SetParams(sinParams(a.ParamCount())); err != nil {
				t.Fatalf("set params: %v", err)
			}
			if _, err := a.Apply(0, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}); err != nil {
				t.Fatalf("apply: %v", err)
			}
			a.Freeze()
			want := a.Scores()

			outputs := make(map[float64]bool)
			for k := 1; k <= 5; k++ {
				in := []float64{float64(k), -0.2 * float64(k), 0.3, 0.1 * float64(k), -0.5, 0.6}
				out, err := a.Apply(float64(k), in)
				if err != nil {
					t.Fatalf("apply tick %d: %v", k, err)
				}
				outputs[out[0]] = true
				got := a.Scores()
				for i := range want {
					for j := range want[i] {
						if got[i][j] != want[i][j] {
							t.Fatalf("score (%d,%d) changed at tick %d: got=%f want=%f", i, j, k, got[i][j], want[i][j])
						}
					}
				}
			}
			if len(outputs) < 2 {
				t.Fatalf("expected decoder output to vary with inputs, got: %v", outputs)
			}

			a.Unfreeze()
			if _, err := a.Apply(6, []float64{1, 0, 0, 1, 1, 1}); err != nil {
				t.Fatalf("apply unfrozen: %v", err)
			}
			if a.Scores()[0][0] == want[0][0] && a.Scores()[1][2] == want[1][2] {
				t.Fatal("expected scores to be recomputed after unfreeze")
			}
		})
	}
}

func TestAttentionSetScoresValidatesShape(t *testing.T) {
	a, _ := NewSelfAttention(AttentionConfig{Rows: 2, Din: 3, Dk: 1, Dv: 1, Outputs: 1})
	if err := a.SetScores([][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error, got: %v", err)
	}
	if err := a.SetScores([][]float64{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("set scores: %v", err)
	}
	a.Freeze()
	if _, err := a.Apply(0, []float64{1, 2, 3, 4, 5, 6}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := a.Scores(); got[0][0] != 1 || got[0][1] != 0 {
		t.Fatalf("expected installed scores to be reused, got: %v", got)
	}
}

func TestCollapsedUsesFirstNonZeroRow(t *testing.T) {
	a, err := NewSelfAttention(AttentionConfig{Rows: 3, Din: 2, Dk: 1, Projection: Collapsed, Outputs: 1})
	if err != nil {
		t.Fatalf("new attention: %v", err)
	}
	params := make([]float64, a.ParamCount())
	copy(params, []float64{0.5, 0.1, -0.3, 0.2})
	if err := a.SetParams(params); err != nil {
		t.Fatalf("set params: %v", err)
	}

	// rows: [0 0], [1 2], [3 4]; both later rows are non-zero, row 1 must win.
	if _, err := a.Apply(0, []float64{0, 0, 1, 2, 3, 4}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	r := []float64{1, 2}
	q := []float64{r[0]*0.5 + 0.1, r[1]*0.5 + 0.1}
	k := []float64{r[0]*-0.3 + 0.2, r[1]*-0.3 + 0.2}
	got := a.Scores()
	for i := range q {
		for j := range k {
			want := math.Tanh(q[i] * k[j])
			if math.Abs(got[i][j]-want) > 1e-12 {
				t.Fatalf("score (%d,%d): got=%f want=%f", i, j, got[i][j], want)
			}
		}
	}

	if _, err := a.Apply(1, []float64{0, 0, 0, 0, 0, 0}); err != nil {
		t.Fatalf("apply zero input: %v", err)
	}
	zeroWant := math.Tanh(0.1 * 0.2)
	if got := a.Scores(); math.Abs(got[0][0]-zeroWant) > 1e-12 {
		t.Fatalf("all-zero input should fall back to row 0: got=%f want=%f", got[0][0], zeroWant)
	}
}

func TestParseVariants(t *testing.T) {
	if p, err := ParseProjection("collapsed"); err != nil || p != Collapsed {
		t.Fatalf("parse projection: got=%v err=%v", p, err)
	}
	if n, err := ParseNormalizer("softmax"); err != nil || n != Softmax {
		t.Fatalf("parse normalizer: got=%v err=%v", n, err)
	}
	if k, err := ParseKind("rnn"); err != nil || k != KindRecurrent {
		t.Fatalf("parse kind: got=%v err=%v", k, err)
	}
	for _, fn := range []func() error{
		func() error { _, err := ParseProjection("diagonal"); return err },
		func() error { _, err := ParseNormalizer("relu"); return err },
		func() error { _, err := ParseEncoding("fourier"); return err },
		func() error { _, err := ParseKind("cnn"); return err },
	} {
		if err := fn(); !errors.Is(err, model.ErrConfiguration) {
			t.Fatalf("expected configuration error, got: %v", err)
		}
	}
}
