package genotype

import (
	"fmt"
	"log/slog"

	"voxelnet/internal/controller"
	"voxelnet/internal/model"
	"voxelnet/internal/nn"
	"voxelnet/internal/transform"
)

// Mapper turns genotypes into controllers for one body and one config.
type Mapper struct {
	Body        model.Body
	Config      Config
	SensorCount int
	SignalWidth int
	Downsampler transform.Downsampler
	Workers     int
	Interval    float64
	Logger      *slog.Logger
}

// InputDim is the raw per-cell input length: sensors then neighbour signals.
func (m Mapper) InputDim() int {
	return m.SensorCount + m.Config.Policy.Count(m.Body)*m.SignalWidth
}

func (m Mapper) OutputDim() int {
	return 1 + m.SignalWidth
}

// EncodedRows is the row count the attention block sees after encoding and
// optional downsampling.
func (m Mapper) EncodedRows() (int, error) {
	in, din := m.InputDim(), m.Config.Din
	var rows int
	switch m.Config.Variant.Encoding {
	case transform.Identity:
		if in%din != 0 {
			return 0, fmt.Errorf("%w: input length %d is not a multiple of din=%d", nn.ErrDimensionMismatch, in, din)
		}
		rows = in / din
	default:
		if in != din {
			return 0, fmt.Errorf("%w: input length %d must equal din=%d for %s encoding",
				nn.ErrDimensionMismatch, in, din, m.Config.Variant.Encoding)
		}
		rows = m.Body.Count()
	}
	if m.Downsampler.Enabled() {
		rows = m.Downsampler.OutputRows(rows)
	}
	return rows, nil
}

func (m Mapper) validate() error {
	if m.SensorCount < 0 || m.SignalWidth < 0 {
		return fmt.Errorf("%w: sensors=%d signal width=%d", ErrInvalidConfig, m.SensorCount, m.SignalWidth)
	}
	if m.InputDim() == 0 {
		return fmt.Errorf("%w: cells have no inputs", ErrInvalidConfig)
	}
	if m.Config.Kind != transform.KindSelfAttention {
		if m.Downsampler.Enabled() {
			return fmt.Errorf("%w: downsampling needs an attention controller", ErrInvalidConfig)
		}
		if m.Config.Variant.Encoding != transform.Identity {
			return fmt.Errorf("%w: %s encoding needs an attention controller", ErrInvalidConfig, m.Config.Variant.Encoding)
		}
	}
	return nil
}

// NewTransform builds one zero-initialised transform for a single cell.
func (m Mapper) NewTransform() (transform.Transform, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	switch m.Config.Kind {
	case transform.KindSelfAttention:
		rows, err := m.EncodedRows()
		if err != nil {
			return nil, err
		}
		return transform.NewSelfAttention(m.attentionConfig(rows))
	case transform.KindFeedForward:
		return transform.NewFeedForward(m.InputDim(), m.Config.Variant.DecoderHidden, m.OutputDim(), "tanh")
	case transform.KindRecurrent:
		return transform.NewRecurrent(m.InputDim(), m.Config.Hidden, m.OutputDim(), m.Config.Window)
	default:
		return nil, fmt.Errorf("%w: kind %q", transform.ErrUnknownVariant, m.Config.Kind)
	}
}

func (m Mapper) attentionConfig(rows int) transform.AttentionConfig {
	return transform.AttentionConfig{
		Rows:       rows,
		Din:        m.Config.Din,
		Dk:         m.Config.Dk,
		Dv:         m.Config.Dv,
		Projection: m.Config.Variant.Projection,
		Normalizer: m.Config.Variant.Normalizer,
		Hidden:     m.Config.Variant.DecoderHidden,
		Outputs:    m.OutputDim(),
	}
}

// Layout computes the genotype decomposition for this mapper.
func (m Mapper) Layout() (Layout, error) {
	tr, err := m.NewTransform()
	if err != nil {
		return Layout{}, err
	}
	return Layout{
		Cells:          m.Body.Count(),
		AttentionSize:  tr.AttentionParamCount(),
		DownstreamSize: tr.ParamCount() - tr.AttentionParamCount(),
		Attention:      m.Config.Attention,
		Downstream:     m.Config.Downstream,
	}, nil
}

// Map builds a controller whose cells hold copies of their genotype blocks.
func (m Mapper) Map(genes []float64) (*controller.Controller, error) {
	layout, err := m.Layout()
	if err != nil {
		return nil, err
	}
	if err := layout.Check(genes); err != nil {
		return nil, err
	}
	transforms := make([]transform.Transform, m.Body.Count())
	for i := range transforms {
		tr, err := m.NewTransform()
		if err != nil {
			return nil, err
		}
		if err := tr.SetParams(layout.CellParams(genes, i)); err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}
		transforms[i] = tr
	}
	return controller.New(m.Body, controller.Options{
		Policy:      m.Config.Policy,
		SignalWidth: m.SignalWidth,
		Encoding:    m.Config.Variant.Encoding,
		Downsampler: m.Downsampler,
		RowWidth:    m.Config.Din,
		Workers:     m.Workers,
		Interval:    m.Interval,
		Logger:      m.Logger,
	}, transforms)
}

// CellParams reads back the effective parameters of cell i.
func CellParams(ctrl *controller.Controller, i int) ([]float64, error) {
	cells := ctrl.Body().Cells()
	if i < 0 || i >= len(cells) {
		return nil, fmt.Errorf("%w: cell index %d out of range", model.ErrConfiguration, i)
	}
	tr, _ := ctrl.Transform(cells[i])
	return tr.Params(), nil
}
