package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/maowise/go-engine/internal/params"
)

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Optimize.Weights.AlphaErr != 0.4 {
		t.Fatalf("alpha weight = %g, want 0.4", cfg.Optimize.Weights.AlphaErr)
	}
	if cfg.Optimize.Engine.Population != 32 || cfg.Optimize.Engine.Generations != 10 {
		t.Fatalf("engine defaults = %+v", cfg.Optimize.Engine)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Optimize.Bounds) == 0 {
		t.Fatal("expected default bounds")
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
optimize:
  bounds:
    voltage_V: [250, 450]
    current_density_A_dm2: [2, 20]
    frequency_Hz: [300, 1200]
    duty_cycle_pct: [10, 50]
    time_min: [5, 90]
  uniformity:
    soft_margin: 0.12
  engine:
    backend: random
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b := cfg.Optimize.Bounds[params.KeyVoltage]; b != [2]float64{250, 450} {
		t.Fatalf("voltage bound = %v", b)
	}
	if cfg.Optimize.Uniformity.SoftMargin != 0.12 {
		t.Fatalf("soft margin = %g, want 0.12", cfg.Optimize.Uniformity.SoftMargin)
	}
	// Sections the file omits keep defaults.
	if cfg.Optimize.Uniformity.BipolarBonus != 0.15 {
		t.Fatalf("bipolar bonus = %g, want default 0.15", cfg.Optimize.Uniformity.BipolarBonus)
	}
	if cfg.Optimize.Weights.MassProxy != 0.15 {
		t.Fatalf("mass weight = %g, want default 0.15", cfg.Optimize.Weights.MassProxy)
	}
	if cfg.Optimize.Engine.Backend != "random" {
		t.Fatalf("backend = %q, want random", cfg.Optimize.Engine.Backend)
	}
	if cfg.Optimize.Engine.Population != 32 {
		t.Fatalf("population = %d, want default 32", cfg.Optimize.Engine.Population)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\tnot yaml {{{"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSpaceFatalOnEmptyBounds(t *testing.T) {
	cfg := Default()
	cfg.Optimize.Bounds = nil
	if _, err := cfg.Space(); err == nil {
		t.Fatal("expected error for missing bound table")
	}
}

func TestSpaceFromDefaults(t *testing.T) {
	space, err := Default().Space()
	if err != nil {
		t.Fatalf("space: %v", err)
	}
	b, ok := space.Bound(params.KeyFrequency)
	if !ok {
		t.Fatal("frequency bound missing")
	}
	if b.Lo != 200 || b.Hi != 1500 {
		t.Fatalf("frequency bound = [%g, %g]", b.Lo, b.Hi)
	}
}
