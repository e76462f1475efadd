package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/maowise/go-engine/internal/params"
)

// #region types

// Window is a recommended [lo, hi] operating window for one parameter.
type Window [2]float64

// SystemWindows holds the recommended pulse windows for one electrolyte system.
type SystemWindows struct {
	FrequencyHz  Window `yaml:"frequency_Hz"`
	DutyCyclePct Window `yaml:"duty_cycle_pct"`
}

// MassProxy configures the charge-density based thickness/mass estimate.
type MassProxy struct {
	KChargeToThickness map[string]float64 `yaml:"k_charge_to_thickness"`
	ChargeLimits       Window             `yaml:"charge_limits"`
	DensityGCm3        map[string]float64 `yaml:"density_g_cm3"`
}

// Uniformity configures the triangular window penalty.
type Uniformity struct {
	Windows      map[string]SystemWindows `yaml:"windows"`
	SoftMargin   float64                  `yaml:"soft_margin"`
	FreqWeight   float64                  `yaml:"freq_weight"`
	DutyWeight   float64                  `yaml:"duty_weight"`
	BipolarBonus float64                  `yaml:"bipolar_bonus"`
}

// Weights configures the scalarization of the four objectives.
type Weights struct {
	AlphaErr   float64 `yaml:"alpha_err"`
	EpsilonErr float64 `yaml:"epsilon_err"`
	MassProxy  float64 `yaml:"mass_proxy"`
	Uniformity float64 `yaml:"uniformity"`
	ErrScale   float64 `yaml:"err_scale"`
}

// Engine configures the candidate search backend.
type Engine struct {
	Backend     string `yaml:"backend"` // "nsga2" or "random"
	Population  int    `yaml:"population"`
	Generations int    `yaml:"generations"`
}

// Optimize is the engine section of the config file.
type Optimize struct {
	Bounds     map[string][2]float64 `yaml:"bounds"`
	MassProxy  MassProxy             `yaml:"mass_proxy"`
	Uniformity Uniformity            `yaml:"uniformity"`
	Weights    Weights               `yaml:"weights"`
	Engine     Engine                `yaml:"engine"`
}

// Config is the root of the engine configuration.
type Config struct {
	Optimize Optimize `yaml:"optimize"`
}

// #endregion types

// #region defaults

// Default returns the built-in configuration. Every section the file omits
// falls back to these values; only the bound table is load-fatal.
func Default() Config {
	return Config{
		Optimize: Optimize{
			Bounds: map[string][2]float64{
				params.KeyVoltage:        {180, 550},
				params.KeyCurrentDensity: {1, 30},
				params.KeyFrequency:      {200, 1500},
				params.KeyDutyCycle:      {5, 60},
				params.KeyTime:           {2, 120},
			},
			MassProxy: MassProxy{
				KChargeToThickness: map[string]float64{
					string(params.SystemSilicate):  0.015,
					string(params.SystemZirconate): 0.012,
				},
				ChargeLimits: Window{0, 100},
				DensityGCm3: map[string]float64{
					string(params.SystemSilicate):  3.21,
					string(params.SystemZirconate): 5.68,
				},
			},
			Uniformity: Uniformity{
				Windows: map[string]SystemWindows{
					string(params.SystemSilicate): {
						FrequencyHz:  Window{700, 1100},
						DutyCyclePct: Window{20, 35},
					},
					string(params.SystemZirconate): {
						FrequencyHz:  Window{600, 1000},
						DutyCyclePct: Window{18, 32},
					},
				},
				SoftMargin:   0.08,
				FreqWeight:   0.6,
				DutyWeight:   0.4,
				BipolarBonus: 0.15,
			},
			Weights: Weights{
				AlphaErr:   0.4,
				EpsilonErr: 0.4,
				MassProxy:  0.15,
				Uniformity: 0.05,
				ErrScale:   0.1,
			},
			Engine: Engine{
				Backend:     "nsga2",
				Population:  32,
				Generations: 10,
			},
		},
	}
}

// #endregion defaults

// #region load

// Load reads the YAML config at path and merges it over the built-in
// defaults. An empty path or a missing file yields the defaults unchanged.
// A file that exists but cannot be parsed is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	merge(&cfg, file)
	return cfg, nil
}

// merge overlays non-empty file sections onto the defaults. Scalar fields
// inside a present section replace the default wholesale; absent sections
// keep the defaults.
func merge(cfg *Config, file Config) {
	if len(file.Optimize.Bounds) > 0 {
		cfg.Optimize.Bounds = file.Optimize.Bounds
	}
	if len(file.Optimize.MassProxy.KChargeToThickness) > 0 {
		cfg.Optimize.MassProxy.KChargeToThickness = file.Optimize.MassProxy.KChargeToThickness
	}
	if file.Optimize.MassProxy.ChargeLimits != (Window{}) {
		cfg.Optimize.MassProxy.ChargeLimits = file.Optimize.MassProxy.ChargeLimits
	}
	if len(file.Optimize.MassProxy.DensityGCm3) > 0 {
		cfg.Optimize.MassProxy.DensityGCm3 = file.Optimize.MassProxy.DensityGCm3
	}
	if len(file.Optimize.Uniformity.Windows) > 0 {
		cfg.Optimize.Uniformity.Windows = file.Optimize.Uniformity.Windows
	}
	if file.Optimize.Uniformity.SoftMargin > 0 {
		cfg.Optimize.Uniformity.SoftMargin = file.Optimize.Uniformity.SoftMargin
	}
	if file.Optimize.Uniformity.FreqWeight > 0 {
		cfg.Optimize.Uniformity.FreqWeight = file.Optimize.Uniformity.FreqWeight
	}
	if file.Optimize.Uniformity.DutyWeight > 0 {
		cfg.Optimize.Uniformity.DutyWeight = file.Optimize.Uniformity.DutyWeight
	}
	if file.Optimize.Uniformity.BipolarBonus > 0 {
		cfg.Optimize.Uniformity.BipolarBonus = file.Optimize.Uniformity.BipolarBonus
	}
	if w := file.Optimize.Weights; w != (Weights{}) {
		cfg.Optimize.Weights = w
	}
	if file.Optimize.Engine.Backend != "" {
		cfg.Optimize.Engine.Backend = file.Optimize.Engine.Backend
	}
	if file.Optimize.Engine.Population > 0 {
		cfg.Optimize.Engine.Population = file.Optimize.Engine.Population
	}
	if file.Optimize.Engine.Generations > 0 {
		cfg.Optimize.Engine.Generations = file.Optimize.Engine.Generations
	}
}

// #endregion load

// #region space

// Space builds the parameter space from the configured bound table.
// This is the one load-fatal path: an empty bound table means search
// cannot proceed.
func (c Config) Space() (*params.Space, error) {
	bounds := make(map[string]params.Bound, len(c.Optimize.Bounds))
	for k, b := range c.Optimize.Bounds {
		bounds[k] = params.Bound{Lo: b[0], Hi: b[1]}
	}
	space, err := params.NewSpace(bounds)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return space, nil
}

// #endregion space
