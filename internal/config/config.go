// Package config provides the sweep configuration surface: defaults, YAML
// file loading, and validation. The defaults reproduce the reference study
// (a down-quark string swept over 5, 20 and 100 GeV with a 100-bin rapidity
// histogram over [-10, 10)).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hepsim/stringsweep/internal/plot"
)

// HistogramConfig defines the shared histogram geometry.
type HistogramConfig struct {
	// Lo and Hi bound the accumulated rapidity range [lo, hi).
	Lo float64 `yaml:"lo"`
	Hi float64 `yaml:"hi"`

	// Bins is the number of equal-width bins.
	Bins int `yaml:"bins"`
}

// LoggingConfig configures operational logging.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or
	// "trace". At trace level every failed trial is reported.
	Level string `yaml:"level"`
}

// Config contains all sweep settings.
type Config struct {
	// Masses are the invariant string masses in GeV, in sweep order.
	Masses []float64 `yaml:"masses"`

	// Colors are the per-mass series colors; the list is cycled when
	// shorter than the mass list.
	Colors []string `yaml:"colors"`

	// Events is the trial budget per mass. Failed trials consume a slot.
	Events int `yaml:"events"`

	// QuarkID is the PDG id of the seeded quark: 1 down, 2 up,
	// 3 strange, 4 charm, 5 bottom, 6 top.
	QuarkID int `yaml:"quark_id"`

	// MasslessQuarks seeds the q-qbar pair with zero rest mass.
	MasslessQuarks bool `yaml:"massless_quarks"`

	// PTSmearing keeps transverse-momentum smearing on; off restricts
	// fragmentation to 1+1 dimensions.
	PTSmearing bool `yaml:"pt_smearing"`

	// Histogram is the shared accumulation geometry.
	Histogram HistogramConfig `yaml:"histogram"`

	// Seed is the base random seed; each setting derives its own stream
	// from it.
	Seed int64 `yaml:"seed"`

	// Parallel runs settings concurrently. Output order is unaffected.
	Parallel bool `yaml:"parallel"`

	// ProgressEvery logs progress every that many trials; 0 disables.
	ProgressEvery int `yaml:"progress_every"`

	// Output is the plot artifact path; the extension picks the format.
	Output string `yaml:"output"`

	// Database is the optional run-store path; empty disables
	// persistence.
	Database string `yaml:"database"`

	// Logging configures operational logging.
	Logging LoggingConfig `yaml:"logging"`
}

// Default returns the reference sweep configuration.
func Default() *Config {
	return &Config{
		Masses:         []float64{5, 20, 100},
		Colors:         []string{"steelblue", "seagreen", "indianred"},
		Events:         1000000,
		QuarkID:        1,
		MasslessQuarks: true,
		PTSmearing:     false,
		Histogram:      HistogramConfig{Lo: -10, Hi: 10, Bins: 100},
		Seed:           1,
		ProgressEvery:  100000,
		Output:         "rapidityplot.png",
		Logging:        LoggingConfig{Level: "info"},
	}
}

// Load loads configuration from path when it is non-empty, otherwise
// returns the defaults. Environment variables are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file, on top of the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration describes a runnable sweep.
func (c *Config) Validate() error {
	if len(c.Masses) == 0 {
		return fmt.Errorf("masses must not be empty")
	}
	for i, m := range c.Masses {
		if m <= 0 {
			return fmt.Errorf("masses[%d] must be positive, got %v", i, m)
		}
	}
	if len(c.Colors) == 0 {
		return fmt.Errorf("colors must not be empty")
	}
	for i, name := range c.Colors {
		if !plot.KnownColor(name) {
			return fmt.Errorf("colors[%d]: unknown color %q (known: %v)", i, name, plot.ColorNames())
		}
	}
	if c.Events <= 0 {
		return fmt.Errorf("events must be positive, got %d", c.Events)
	}
	if c.QuarkID < 1 || c.QuarkID > 6 {
		return fmt.Errorf("quark_id must be 1-6, got %d", c.QuarkID)
	}
	if c.Histogram.Lo >= c.Histogram.Hi {
		return fmt.Errorf("histogram lo %v must be below hi %v", c.Histogram.Lo, c.Histogram.Hi)
	}
	if c.Histogram.Bins <= 0 {
		return fmt.Errorf("histogram bins must be positive, got %d", c.Histogram.Bins)
	}
	if c.ProgressEvery < 0 {
		return fmt.Errorf("progress_every must not be negative, got %d", c.ProgressEvery)
	}
	if c.Output == "" {
		return fmt.Errorf("output must not be empty")
	}
	return nil
}

// Color returns the series color for sweep position i, cycling the
// configured list.
func (c *Config) Color(i int) string {
	return c.Colors[i%len(c.Colors)]
}

// Marshal returns the configuration as YAML, for storing alongside a run.
func (c *Config) Marshal() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	return string(out), nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STRINGSWEEP_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("STRINGSWEEP_DATABASE"); v != "" {
		cfg.Database = v
	}
}
