package app

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Output formats for reports.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Config holds all the necessary configuration for an App instance to run.
// Fields tagged with env can be preset from the environment; flags override
// them.
type Config struct {
	ModelPath     string `env:"LOOPGRID_MODEL"`     // hcl files
	ScenariosPath string `env:"LOOPGRID_SCENARIOS"` // yaml file
	// Scenarios filters the scenario file by name. Empty means all.
	Scenarios []string
	// Overrides is an ad-hoc scenario given on the command line.
	Overrides map[string]float64

	MaxIterations int     `env:"LOOPGRID_MAX_ITERATIONS" envDefault:"10"`
	Tolerance     float64 `env:"LOOPGRID_TOLERANCE"      envDefault:"0.01"`
	Workers       int     `env:"LOOPGRID_WORKERS"        envDefault:"4"`
	Stabilize     bool    `env:"LOOPGRID_STABILIZE"`

	LogFormat       string `env:"LOOPGRID_LOG_FORMAT" envDefault:"text"`
	LogLevel        string `env:"LOOPGRID_LOG_LEVEL"  envDefault:"info"`
	Output          string `env:"LOOPGRID_OUTPUT"     envDefault:"text"`
	Strict          bool   `env:"LOOPGRID_STRICT"`
	HealthcheckPort int    `env:"LOOPGRID_HEALTHCHECK_PORT"`
}

// ConfigFromEnv returns a Config with defaults and environment values applied.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// NewConfig validates cfg and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("ModelPath is a required configuration field and cannot be empty")
	}
	if cfg.MaxIterations <= 0 {
		return nil, fmt.Errorf("max-iterations must be positive, got %d", cfg.MaxIterations)
	}
	if cfg.Tolerance <= 0 {
		return nil, fmt.Errorf("tolerance must be positive, got %g", cfg.Tolerance)
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	switch cfg.Output {
	case OutputText, OutputJSON:
	default:
		return nil, fmt.Errorf("invalid output %q: must be 'text' or 'json'", cfg.Output)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck-port %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
