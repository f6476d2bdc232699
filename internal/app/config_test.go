package app

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		ModelPath:     "model.hcl",
		MaxIterations: 10,
		Tolerance:     0.01,
		Workers:       1,
		LogFormat:     "text",
		LogLevel:      "info",
		Output:        OutputText,
	}
}

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing model", func(c *Config) { c.ModelPath = "" }, "ModelPath is a required"},
		{"zero iterations", func(c *Config) { c.MaxIterations = 0 }, "max-iterations"},
		{"negative tolerance", func(c *Config) { c.Tolerance = -1 }, "tolerance"},
		{"no workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log-format"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "log-level"},
		{"bad output", func(c *Config) { c.Output = "yaml" }, "output"},
		{"bad port", func(c *Config) { c.HealthcheckPort = 70000 }, "healthcheck-port"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			got, err := NewConfig(cfg)
			if tc.errMsg == "" {
				require.NoError(t, err)
				assert.Equal(t, cfg, *got)
				return
			}
			assert.ErrorContains(t, err, tc.errMsg)
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOOPGRID_MODEL", "m.hcl")
	t.Setenv("LOOPGRID_TOLERANCE", "0.001")
	t.Setenv("LOOPGRID_STRICT", "true")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "m.hcl", cfg.ModelPath)
	assert.Equal(t, 0.001, cfg.Tolerance)
	assert.True(t, cfg.Strict)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "text", cfg.Output)
}

func TestConfigFromEnv_BadValue(t *testing.T) {
	t.Setenv("LOOPGRID_WORKERS", "many")
	_, err := ConfigFromEnv()
	assert.ErrorContains(t, err, "parse env")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelInfo, parseLevel("chatty"))
}
