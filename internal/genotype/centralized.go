package genotype

import (
	"fmt"
	"log/slog"
	"strings"

	"voxelnet/internal/controller"
	"voxelnet/internal/model"
	"voxelnet/internal/transform"
)

// CentralizedVariant picks the single body-wide network.
type CentralizedVariant string

const (
	// CentralizedSoftmax is one attention block over the N×din body matrix.
	CentralizedSoftmax CentralizedVariant = "softmax"
	// CentralizedTanh is the same block with tanh scores and dv forced to din.
	CentralizedTanh CentralizedVariant = "tanh"
	// CentralizedBaseline is a perceptron N·din -> N·din -> N.
	CentralizedBaseline CentralizedVariant = "baseline"
)

// CentralizedMapper builds one controller for the whole body, the
// non-distributed reference point for the per-voxel mappers.
type CentralizedMapper struct {
	Body     model.Body
	Din      int
	Dk       int
	Dv       int
	Variant  CentralizedVariant
	Interval float64
	Logger   *slog.Logger
}

// ParseCentralized reads "<din>-<dk>-<dv>[-softmax|tanh|baseline]".
func ParseCentralized(body model.Body, s string) (CentralizedMapper, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 && len(parts) != 4 {
		return CentralizedMapper{}, fmt.Errorf("%w: %q, want <din>-<dk>-<dv>[-softmax|tanh|baseline]", ErrInvalidConfig, s)
	}
	dims, err := positiveInts(s, parts[:3])
	if err != nil {
		return CentralizedMapper{}, err
	}
	m := CentralizedMapper{Body: body, Din: dims[0], Dk: dims[1], Dv: dims[2], Variant: CentralizedSoftmax}
	if len(parts) == 4 {
		switch v := CentralizedVariant(strings.ToLower(parts[3])); v {
		case CentralizedSoftmax, CentralizedTanh, CentralizedBaseline:
			m.Variant = v
		default:
			return CentralizedMapper{}, fmt.Errorf("%w: centralized variant %q", transform.ErrUnknownVariant, parts[3])
		}
	}
	return m, nil
}

func (m CentralizedMapper) NewTransform() (transform.Transform, error) {
	n := m.Body.Count()
	if n == 0 {
		return nil, fmt.Errorf("%w: body has no cells", ErrInvalidConfig)
	}
	switch m.Variant {
	case CentralizedBaseline:
		return transform.NewFeedForward(n*m.Din, []int{n * m.Din}, n, "tanh")
	case CentralizedTanh:
		return transform.NewSelfAttention(transform.AttentionConfig{
			Rows: n, Din: m.Din, Dk: m.Dk, Dv: m.Din,
			Normalizer: transform.Tanh, Outputs: n,
		})
	case CentralizedSoftmax, "":
		return transform.NewSelfAttention(transform.AttentionConfig{
			Rows: n, Din: m.Din, Dk: m.Dk, Dv: m.Dv,
			Normalizer: transform.Softmax, Outputs: n,
		})
	default:
		return nil, fmt.Errorf("%w: centralized variant %q", transform.ErrUnknownVariant, m.Variant)
	}
}

// GenotypeSize is the length of the single shared parameter vector.
func (m CentralizedMapper) GenotypeSize() (int, error) {
	tr, err := m.NewTransform()
	if err != nil {
		return 0, err
	}
	return tr.ParamCount(), nil
}

func (m CentralizedMapper) Map(genes []float64) (*controller.Centralized, error) {
	tr, err := m.NewTransform()
	if err != nil {
		return nil, err
	}
	if len(genes) != tr.ParamCount() {
		return nil, fmt.Errorf("%w: got=%d want=%d", ErrGenotypeLength, len(genes), tr.ParamCount())
	}
	if err := tr.SetParams(append([]float64(nil), genes...)); err != nil {
		return nil, err
	}
	return controller.NewCentralized(m.Body, tr, m.Interval, m.Logger)
}
