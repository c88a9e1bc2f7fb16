package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"voxelnet/internal/model"
	"voxelnet/internal/transform"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxelnet.yaml")
	body := `controller:
  kind: attention
  config: moore-9-4-3-hetero|homo
  shape: worm-5x1
  normalizer: softmax
  projection: collapsed
evolution:
  sigma: 0.1
store:
  kind: memory
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Controller.Config != "moore-9-4-3-hetero|homo" || cfg.Controller.Shape != "worm-5x1" {
		t.Fatalf("unexpected controller: %+v", cfg.Controller)
	}
	if cfg.Evolution.Sigma != 0.1 || cfg.Evolution.Upper != 1 {
		t.Fatalf("unexpected evolution: %+v", cfg.Evolution)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("default logging level lost: got=%q", cfg.Logging.Level)
	}
	v, err := cfg.Variant()
	if err != nil {
		t.Fatalf("variant: %v", err)
	}
	if v.Projection != transform.Collapsed || v.Normalizer != transform.Softmax {
		t.Fatalf("unexpected variant: %+v", v)
	}
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("controller:\n  colour: red\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VOXELNET_SHAPE", "box-3x3")
	t.Setenv("VOXELNET_SIGNAL_WIDTH", "2")
	t.Setenv("VOXELNET_SIGMA", "0.05")
	t.Setenv("VOXELNET_SEED", "42")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Controller.Shape != "box-3x3" || cfg.Controller.SignalWidth != 2 {
		t.Fatalf("controller overrides: %+v", cfg.Controller)
	}
	if cfg.Evolution.Sigma != 0.05 || cfg.Evolution.Seed != 42 {
		t.Fatalf("evolution overrides: %+v", cfg.Evolution)
	}

	t.Setenv("VOXELNET_WORKERS", "many")
	if _, err := Load(""); !errors.Is(err, ErrInvalid) {
		t.Fatalf("bad int: got=%v want=%v", err, ErrInvalid)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"kind", func(c *Config) { c.Controller.Kind = "lstm" }},
		{"config", func(c *Config) { c.Controller.Config = "hex-5-2-2" }},
		{"shape", func(c *Config) { c.Controller.Shape = "blob-2x2" }},
		{"encoding", func(c *Config) { c.Controller.Encoding = "fourier" }},
		{"bounds", func(c *Config) { c.Evolution.Lower = 2 }},
		{"sigma", func(c *Config) { c.Evolution.Sigma = -1 }},
		{"store", func(c *Config) { c.Store.Kind = "redis" }},
		{"level", func(c *Config) { c.Logging.Level = "loud" }},
		{"sensors", func(c *Config) { c.Controller.Sensors = -1 }},
		{"din", func(c *Config) { c.Controller.Config = "neumann-3-2-2" }},
		{"workers", func(c *Config) { c.Controller.Workers = -2 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, model.ErrConfiguration) {
				t.Fatalf("got=%v want=%v", err, model.ErrConfiguration)
			}
		})
	}
}
