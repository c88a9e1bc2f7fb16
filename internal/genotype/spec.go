package genotype

import (
	"log/slog"

	"voxelnet/internal/model"
	"voxelnet/internal/transform"
)

// NewMapper resolves every name in spec and returns the mapper it describes.
func NewMapper(spec model.ControllerSpec, workers int, interval float64, logger *slog.Logger) (Mapper, error) {
	kind, err := transform.ParseKind(spec.Kind)
	if err != nil {
		return Mapper{}, err
	}
	cfg, err := ParseConfig(kind, spec.Config)
	if err != nil {
		return Mapper{}, err
	}
	body, err := model.ParseShape(spec.Shape)
	if err != nil {
		return Mapper{}, err
	}
	if cfg.Variant.Projection, err = transform.ParseProjection(spec.Projection); err != nil {
		return Mapper{}, err
	}
	if cfg.Variant.Normalizer, err = transform.ParseNormalizer(spec.Normalizer); err != nil {
		return Mapper{}, err
	}
	if cfg.Variant.Encoding, err = transform.ParseEncoding(spec.Encoding); err != nil {
		return Mapper{}, err
	}
	cfg.Variant.DecoderHidden = append([]int(nil), spec.Hidden...)

	m := Mapper{
		Body:        body,
		Config:      cfg,
		SensorCount: spec.Sensors,
		SignalWidth: spec.SignalWidth,
		Downsampler: transform.Downsampler{Scale: spec.Scale, Rows: spec.Rows},
		Workers:     workers,
		Interval:    interval,
		Logger:      logger,
	}
	if err := m.Downsampler.Validate(); err != nil {
		return Mapper{}, err
	}
	if err := m.validate(); err != nil {
		return Mapper{}, err
	}
	return m, nil
}
