package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"portfolioStress/internal/finance"
)

// EnvPrefix namespaces every environment override, e.g. STRESS_SIMULATION_NUM_SIMS.
const EnvPrefix = "STRESS"

// Config represents the complete application configuration
type Config struct {
	Data       DataConfig       `yaml:"data"`
	Simulation SimulationConfig `yaml:"simulation"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
	Generator  GeneratorConfig  `yaml:"generator"`
}

// DataConfig locates the historical price table
type DataConfig struct {
	Source string `yaml:"source" validate:"oneof=csv xlsx sqlite"`
	Path   string `yaml:"path" validate:"required"`
	Sheet  string `yaml:"sheet"`
}

// SimulationConfig contains the stress test parameters
type SimulationConfig struct {
	Weights        []float64 `yaml:"weights"`
	Allocation     string    `yaml:"allocation"`
	InitialCapital float64   `yaml:"initial_capital" split_words:"true" validate:"gt=0"`
	FutureDays     int       `yaml:"future_days" split_words:"true" validate:"gte=0"`
	NumSims        int       `yaml:"num_sims" split_words:"true" validate:"gte=1"`
	Percentile     float64   `yaml:"percentile" validate:"gte=0,lte=100"`
	Seed           uint64    `yaml:"seed"`
}

// OutputConfig selects the optional artefacts. Empty names are skipped.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	Chart       string `yaml:"chart"`
	Workbook    string `yaml:"workbook"`
	JSON        string `yaml:"json"`
	MetricsFile string `yaml:"metrics_file" split_words:"true"`
	ChartPaths  int    `yaml:"chart_paths" split_words:"true" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Format      string `yaml:"format" validate:"oneof=json console"`
	Development bool   `yaml:"development"`
}

// GeneratorConfig drives the synthetic market generator
type GeneratorConfig struct {
	Days   int    `yaml:"days" validate:"gte=2"`
	Seed   uint64 `yaml:"seed"`
	Output string `yaml:"output" validate:"required"`
	Format string `yaml:"format" validate:"oneof=csv sqlite"`
}

// Default returns the configuration used when neither a file nor the
// environment says otherwise.
func Default() Config {
	return Config{
		Data: DataConfig{
			Source: "csv",
			Path:   "market_history.csv",
		},
		Simulation: SimulationConfig{
			Weights:        []float64{0.5, 0.3, 0.2},
			InitialCapital: 100000,
			FutureDays:     252,
			NumSims:        1000,
			Percentile:     finance.DefaultPercentile,
		},
		Output: OutputConfig{
			Dir:        ".",
			Chart:      "stress_test_result.png",
			ChartPaths: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Generator: GeneratorConfig{
			Days:   730,
			Output: "market_history.csv",
			Format: "csv",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then STRESS_* environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file keep
// their current value.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// Validate checks field ranges and the weights/allocation pair.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("%s: failed %q (value %v)", first.Namespace(), first.Tag(), first.Value())
		}
		return err
	}
	if c.Simulation.Allocation != "" {
		if _, err := finance.ParseAllocation(c.Simulation.Allocation); err != nil {
			return fmt.Errorf("simulation.allocation: %w", err)
		}
	}
	return nil
}

// RunParams converts the simulation section into pipeline parameters. A
// non-empty allocation string takes precedence over the positional weights.
func (s SimulationConfig) RunParams() (finance.RunParams, error) {
	params := finance.RunParams{
		InitialCapital: s.InitialCapital,
		FutureDays:     s.FutureDays,
		NumSims:        s.NumSims,
		Percentile:     s.Percentile,
		Seed:           s.Seed,
	}
	if s.Allocation != "" {
		alloc, err := finance.ParseAllocation(s.Allocation)
		if err != nil {
			return finance.RunParams{}, err
		}
		params.Allocation = alloc
		return params, nil
	}
	if len(s.Weights) > 0 {
		params.Weights = append(finance.PortfolioWeights(nil), s.Weights...)
	}
	return params, nil
}
