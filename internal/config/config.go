// Package config loads voxelnet settings from defaults, a YAML file and
// VOXELNET_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"voxelnet/internal/genotype"
	"voxelnet/internal/model"
	"voxelnet/internal/transform"
)

var ErrInvalid = fmt.Errorf("%w: invalid settings", model.ErrConfiguration)

type Config struct {
	Controller ControllerConfig `json:"controller" yaml:"controller"`
	Evolution  EvolutionConfig  `json:"evolution" yaml:"evolution"`
	Store      StoreConfig      `json:"store" yaml:"store"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
}

// ControllerConfig describes the body and the per-cell controller built on it.
type ControllerConfig struct {
	// Kind is "attention", "feedforward" or "recurrent".
	Kind string `json:"kind" yaml:"kind"`
	// Config is the kind's config string, e.g. "neumann-5-2-2-homo|hetero".
	Config      string  `json:"config" yaml:"config"`
	Shape       string  `json:"shape" yaml:"shape"`
	Sensors     int     `json:"sensors" yaml:"sensors"`
	SignalWidth int     `json:"signal_width" yaml:"signal_width"`
	Projection  string  `json:"projection" yaml:"projection"`
	Normalizer  string  `json:"normalizer" yaml:"normalizer"`
	Encoding    string  `json:"encoding" yaml:"encoding"`
	Hidden      []int   `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Scale       int     `json:"scale,omitempty" yaml:"scale,omitempty"`
	Rows        int     `json:"rows,omitempty" yaml:"rows,omitempty"`
	Interval    float64 `json:"interval" yaml:"interval"`
	Workers     int     `json:"workers" yaml:"workers"`
}

type EvolutionConfig struct {
	Sigma float64 `json:"sigma" yaml:"sigma"`
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
	Seed  int64   `json:"seed" yaml:"seed"`
}

type StoreConfig struct {
	// Kind is "memory", "file" or "sqlite".
	Kind   string `json:"kind" yaml:"kind"`
	DBPath string `json:"db_path" yaml:"db_path"`
}

type LoggingConfig struct {
	// Level is "info", "debug" or "trace".
	Level string `json:"level" yaml:"level"`
}

func Default() *Config {
	return &Config{
		Controller: ControllerConfig{
			Kind:        string(transform.KindSelfAttention),
			Config:      "neumann-5-2-2-homo|hetero",
			Shape:       "biped-4x3",
			Sensors:     1,
			SignalWidth: 1,
			Projection:  transform.PerRow.String(),
			Normalizer:  transform.Tanh.String(),
			Encoding:    transform.Identity.String(),
			Interval:    0,
		},
		Evolution: EvolutionConfig{
			Sigma: 0.35,
			Lower: -1,
			Upper: 1,
			Seed:  1,
		},
		Store: StoreConfig{
			Kind:   "file",
			DBPath: ".voxelnet",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load applies path (when not empty) and environment overrides on top of the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileConfig, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML file over the defaults. Unknown keys are rejected.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Spec is the persisted description of the configured controller.
func (c ControllerConfig) Spec() model.ControllerSpec {
	return model.ControllerSpec{
		Kind:        c.Kind,
		Config:      c.Config,
		Shape:       c.Shape,
		Sensors:     c.Sensors,
		SignalWidth: c.SignalWidth,
		Projection:  c.Projection,
		Normalizer:  c.Normalizer,
		Encoding:    c.Encoding,
		Hidden:      append([]int(nil), c.Hidden...),
		Scale:       c.Scale,
		Rows:        c.Rows,
	}
}

// Validate resolves every name the config carries and checks that the
// controller it describes can be built.
func (c *Config) Validate() error {
	ctl := c.Controller
	if ctl.Workers < 0 || ctl.Interval < 0 {
		return fmt.Errorf("%w: workers and interval must be non-negative", ErrInvalid)
	}
	m, err := genotype.NewMapper(ctl.Spec(), ctl.Workers, ctl.Interval, nil)
	if err != nil {
		return err
	}
	if _, err := m.Layout(); err != nil {
		return err
	}
	if c.Evolution.Sigma < 0 {
		return fmt.Errorf("%w: sigma must be non-negative, got %v", ErrInvalid, c.Evolution.Sigma)
	}
	if c.Evolution.Lower > c.Evolution.Upper {
		return fmt.Errorf("%w: lower %v exceeds upper %v", ErrInvalid, c.Evolution.Lower, c.Evolution.Upper)
	}
	switch c.Store.Kind {
	case "", "memory", "file", "sqlite":
	default:
		return fmt.Errorf("%w: store kind %q (valid: memory, file, sqlite)", ErrInvalid, c.Store.Kind)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "info", "debug", "trace":
	default:
		return fmt.Errorf("%w: log level %q (valid: info, debug, trace)", ErrInvalid, c.Logging.Level)
	}
	return nil
}

// Variant resolves the attention strategy names.
func (c *Config) Variant() (genotype.Variant, error) {
	projection, err := transform.ParseProjection(c.Controller.Projection)
	if err != nil {
		return genotype.Variant{}, err
	}
	normalizer, err := transform.ParseNormalizer(c.Controller.Normalizer)
	if err != nil {
		return genotype.Variant{}, err
	}
	encoding, err := transform.ParseEncoding(c.Controller.Encoding)
	if err != nil {
		return genotype.Variant{}, err
	}
	return genotype.Variant{
		Projection:    projection,
		Normalizer:    normalizer,
		Encoding:      encoding,
		DecoderHidden: append([]int(nil), c.Controller.Hidden...),
	}, nil
}

func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"VOXELNET_KIND":       &cfg.Controller.Kind,
		"VOXELNET_CONFIG":     &cfg.Controller.Config,
		"VOXELNET_SHAPE":      &cfg.Controller.Shape,
		"VOXELNET_PROJECTION": &cfg.Controller.Projection,
		"VOXELNET_NORMALIZER": &cfg.Controller.Normalizer,
		"VOXELNET_ENCODING":   &cfg.Controller.Encoding,
		"VOXELNET_STORE":      &cfg.Store.Kind,
		"VOXELNET_DB_PATH":    &cfg.Store.DBPath,
		"VOXELNET_LOG_LEVEL":  &cfg.Logging.Level,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"VOXELNET_SENSORS":      &cfg.Controller.Sensors,
		"VOXELNET_SIGNAL_WIDTH": &cfg.Controller.SignalWidth,
		"VOXELNET_WORKERS":      &cfg.Controller.Workers,
		"VOXELNET_SCALE":        &cfg.Controller.Scale,
		"VOXELNET_ROWS":         &cfg.Controller.Rows,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s=%q", ErrInvalid, key, v)
			}
			*dst = n
		}
	}

	floatVars := map[string]*float64{
		"VOXELNET_INTERVAL": &cfg.Controller.Interval,
		"VOXELNET_SIGMA":    &cfg.Evolution.Sigma,
		"VOXELNET_LOWER":    &cfg.Evolution.Lower,
		"VOXELNET_UPPER":    &cfg.Evolution.Upper,
	}
	for key, dst := range floatVars {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%w: %s=%q", ErrInvalid, key, v)
			}
			*dst = f
		}
	}

	if v := os.Getenv("VOXELNET_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: VOXELNET_SEED=%q", ErrInvalid, v)
		}
		cfg.Evolution.Seed = seed
	}
	return nil
}
