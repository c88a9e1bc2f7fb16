package transform

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"voxelnet/internal/nn"
)

// Projection selects how queries and keys are built.
type Projection int

const (
	// PerRow projects every input row with din×dk matrices and uses learned values.
	PerRow Projection = iota
	// Collapsed projects the first non-zero input row with 1×dk matrices and
	// uses the raw rows as values.
	Collapsed
)

func (p Projection) String() string {
	if p == Collapsed {
		return "collapsed"
	}
	return "per_row"
}

func ParseProjection(name string) (Projection, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "per_row", "perrow", "full":
		return PerRow, nil
	case "collapsed", "row":
		return Collapsed, nil
	default:
		return PerRow, fmt.Errorf("%w: projection %q", ErrUnknownVariant, name)
	}
}

// Normalizer is applied row by row to the raw score matrix.
type Normalizer int

const (
	Tanh Normalizer = iota
	Softmax
)

func (n Normalizer) String() string {
	if n == Softmax {
		return "softmax"
	}
	return "tanh"
}

func ParseNormalizer(name string) (Normalizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "tanh":
		return Tanh, nil
	case "softmax":
		return Softmax, nil
	default:
		return Tanh, fmt.Errorf("%w: normalizer %q", ErrUnknownVariant, name)
	}
}

func (n Normalizer) apply(m *mat.Dense) {
	if n == Softmax {
		nn.SoftmaxRows(m)
		return
	}
	nn.TanhRows(m)
}

type AttentionConfig struct {
	Rows       int
	Din        int
	Dk         int
	Dv         int
	Projection Projection
	Normalizer Normalizer
	Hidden     []int
	Outputs    int
}

// AttentionParamCount is the size of the projection block alone.
func (c AttentionConfig) AttentionParamCount() int {
	if c.Projection == Collapsed {
		return 4 * c.Dk
	}
	return 2*(c.Din*c.Dk+c.Dk) + c.Din*c.Dv + c.Dv
}

// DecoderInputs is the flattened length of the attention output.
func (c AttentionConfig) DecoderInputs() int {
	if c.Projection == Collapsed {
		return c.Din * c.Rows
	}
	return c.Rows * c.Dv
}

func (c AttentionConfig) DecoderParamCount() int {
	return nn.CountWeights(c.DecoderInputs(), c.Hidden, c.Outputs)
}

func (c AttentionConfig) validate() error {
	if c.Rows <= 0 || c.Din <= 0 || c.Dk <= 0 || c.Outputs <= 0 {
		return fmt.Errorf("%w: attention rows=%d din=%d dk=%d outputs=%d", nn.ErrDimensionMismatch, c.Rows, c.Din, c.Dk, c.Outputs)
	}
	if c.Projection == PerRow && c.Dv <= 0 {
		return fmt.Errorf("%w: attention dv=%d", nn.ErrDimensionMismatch, c.Dv)
	}
	if len(c.Hidden) > 1 {
		return fmt.Errorf("%w: attention decoder supports at most one hidden layer, got %d", nn.ErrDimensionMismatch, len(c.Hidden))
	}
	return nil
}

// SelfAttention is a scaled dot-product attention block feeding a tanh decoder.
type SelfAttention struct {
	cfg     AttentionConfig
	attn    []float64
	decoder *nn.Perceptron
	frozen  bool
	scores  *mat.Dense
}

func NewSelfAttention(cfg AttentionConfig) (*SelfAttention, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	decoder, err := nn.NewPerceptron(cfg.DecoderInputs(), cfg.Hidden, cfg.Outputs, "tanh")
	if err != nil {
		return nil, err
	}
	cfg.Hidden = append([]int(nil), cfg.Hidden...)
	return &SelfAttention{
		cfg:     cfg,
		attn:    make([]float64, cfg.AttentionParamCount()),
		decoder: decoder,
	}, nil
}

func (a *SelfAttention) Kind() Kind                 { return KindSelfAttention }
func (a *SelfAttention) Config() AttentionConfig    { return a.cfg }
func (a *SelfAttention) InputDim() int              { return a.cfg.Rows * a.cfg.Din }
func (a *SelfAttention) OutputDim() int             { return a.cfg.Outputs }
func (a *SelfAttention) AttentionParamCount() int   { return len(a.attn) }
func (a *SelfAttention) ParamCount() int            { return len(a.attn) + a.decoder.ParamCount() }
func (a *SelfAttention) Frozen() bool               { return a.frozen }
func (a *SelfAttention) Unfreeze()                  { a.frozen = false }
func (a *SelfAttention) DecoderParams() []float64   { return a.decoder.Params() }
func (a *SelfAttention) AttentionParams() []float64 { return append([]float64(nil), a.attn...) }

// Freeze makes every later Apply reuse the cached score matrix.
func (a *SelfAttention) Freeze() { a.frozen = true }

func (a *SelfAttention) Params() []float64 {
	return append(a.AttentionParams(), a.decoder.Params()...)
}

func (a *SelfAttention) SetParams(params []float64) error {
	if err := checkParams(KindSelfAttention, len(params), a.ParamCount()); err != nil {
		return err
	}
	copy(a.attn, params[:len(a.attn)])
	return a.decoder.SetParams(params[len(a.attn):])
}

// Reset drops the cached scores unless the block is frozen.
func (a *SelfAttention) Reset() {
	if !a.frozen {
		a.scores = nil
	}
}

// Scores returns a copy of the most recent normalized score matrix, or nil
// before the first Apply.
func (a *SelfAttention) Scores() [][]float64 {
	if a.scores == nil {
		return nil
	}
	return nn.Rows(a.scores)
}

// SetScores installs a score matrix, typically together with Freeze.
func (a *SelfAttention) SetScores(rows [][]float64) error {
	m, err := nn.FromRows(rows)
	if err != nil {
		return err
	}
	side := a.scoreSide()
	if r, c := m.Dims(); r != side || c != side {
		return fmt.Errorf("%w: scores %dx%d want %dx%d", nn.ErrDimensionMismatch, r, c, side, side)
	}
	a.scores = m
	return nil
}

func (a *SelfAttention) scoreSide() int {
	if a.cfg.Projection == Collapsed {
		return a.cfg.Din
	}
	return a.cfg.Rows
}

func (a *SelfAttention) Apply(_ float64, in []float64) ([]float64, error) {
	if len(in) != a.InputDim() {
		return nil, fmt.Errorf("%w: attention input got=%d want=%d", nn.ErrDimensionMismatch, len(in), a.InputDim())
	}
	x := mat.NewDense(a.cfg.Rows, a.cfg.Din, append([]float64(nil), in...))

	var out mat.Dense
	if a.cfg.Projection == Collapsed {
		if !a.frozen || a.scores == nil {
			a.scores = a.collapsedScores(x)
		}
		out.Mul(a.scores, x.T())
	} else {
		p := a.perRow()
		if !a.frozen || a.scores == nil {
			a.scores = a.perRowScores(x, p)
		}
		var v mat.Dense
		v.Mul(x, p.wv)
		nn.AddRowVector(&v, p.bv)
		out.Mul(a.scores, &v)
	}
	return a.decoder.Apply(nn.Flatten(&out))
}

type perRowParams struct {
	wq, wk, wv *mat.Dense
	bq, bk, bv []float64
}

// perRow slices the attention block as Wq, bq, Wk, bk, Wv, bv.
func (a *SelfAttention) perRow() perRowParams {
	din, dk, dv := a.cfg.Din, a.cfg.Dk, a.cfg.Dv
	off := 0
	take := func(n int) []float64 {
		s := a.attn[off : off+n]
		off += n
		return s
	}
	var p perRowParams
	p.wq = mat.NewDense(din, dk, take(din*dk))
	p.bq = take(dk)
	p.wk = mat.NewDense(din, dk, take(din*dk))
	p.bk = take(dk)
	p.wv = mat.NewDense(din, dv, take(din*dv))
	p.bv = take(dv)
	return p
}

func (a *SelfAttention) perRowScores(x *mat.Dense, p perRowParams) *mat.Dense {
	var q, k mat.Dense
	q.Mul(x, p.wq)
	nn.AddRowVector(&q, p.bq)
	k.Mul(x, p.wk)
	nn.AddRowVector(&k, p.bk)
	return a.normalizedScores(&q, &k)
}

// collapsedScores builds din×dk queries and keys from the first non-zero row
// of x. Row 0 is used when every row is zero.
func (a *SelfAttention) collapsedScores(x *mat.Dense) *mat.Dense {
	dk := a.cfg.Dk
	row := FirstNonZeroRow(x)
	col := mat.NewDense(a.cfg.Din, 1, append([]float64(nil), x.RawRowView(row)...))

	wq := mat.NewDense(1, dk, a.attn[0:dk])
	bq := a.attn[dk : 2*dk]
	wk := mat.NewDense(1, dk, a.attn[2*dk:3*dk])
	bk := a.attn[3*dk : 4*dk]

	var q, k mat.Dense
	q.Mul(col, wq)
	nn.AddRowVector(&q, bq)
	k.Mul(col, wk)
	nn.AddRowVector(&k, bk)
	return a.normalizedScores(&q, &k)
}

func (a *SelfAttention) normalizedScores(q, k *mat.Dense) *mat.Dense {
	var s mat.Dense
	s.Mul(q, k.T())
	s.Scale(1/math.Sqrt(float64(a.cfg.Dk)), &s)
	a.cfg.Normalizer.apply(&s)
	return &s
}

// FirstNonZeroRow returns the index of the first row holding any non-zero
// value, or 0 when none does.
func FirstNonZeroRow(m mat.Matrix) int {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(i, j) != 0 {
				return i
			}
		}
	}
	return 0
}
