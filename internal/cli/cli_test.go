package cli

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/loopgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pricingModel = filepath.Join("..", "..", "models", "pricing_loop")

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &testutil.SafeBuffer{}
	err := Execute(context.Background(), args, out, &testutil.SafeBuffer{})
	return out.String(), err
}

func requireExitCode(t *testing.T, err error, code int) *ExitError {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected *ExitError, got %T: %v", err, err)
	assert.Equal(t, code, exitErr.Code, exitErr.Message)
	return exitErr
}

func TestExecute_Help(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "run")
	assert.Contains(t, out, "graph")
	assert.Contains(t, out, "validate")
}

func TestExecute_RunWithoutModelPrintsUsage(t *testing.T) {
	out, err := execute(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "--max-iterations")
}

func TestExecute_UsageErrors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		msg  string
	}{
		{"unknown flag", []string{"run", "--this-is-not-a-valid-flag"}, "unknown flag"},
		{"unknown command", []string{"fly"}, "unknown command"},
		{"too many args", []string{"run", "a", "b"}, "accepts at most 1 arg"},
		{"bad override", []string{"run", pricingModel, "--set", "energy_price"}, "want id=value"},
		{"non-numeric override", []string{"run", pricingModel, "--set", "energy_price=high"}, "invalid --set"},
		{"infinite override", []string{"run", pricingModel, "--set", "energy_price=Inf"}, "must be finite"},
		{"bad log level", []string{"run", pricingModel, "--log-level", "trace"}, "log-level"},
		{"bad output", []string{"graph", pricingModel, "-o", "yaml"}, "output"},
		{"bad tolerance", []string{"run", pricingModel, "--tolerance", "0"}, "tolerance"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, tc.args...)
			exitErr := requireExitCode(t, err, ExitUsage)
			assert.Contains(t, exitErr.Message, tc.msg)
		})
	}
}

func TestExecute_Run(t *testing.T) {
	out, err := execute(t, "run", "-m", pricingModel,
		"--scenarios", filepath.Join(pricingModel, "scenarios.yaml"),
		"--set", "energy_price=0.2",
		"--workers", "2",
		"--log-level", "ERROR")
	require.NoError(t, err)
	assert.Contains(t, out, "== base ==")
	assert.Contains(t, out, "== energy_spike ==")
	assert.Contains(t, out, "== custom ==")
	assert.Contains(t, out, "overrides: energy_price=0.2")
}

func TestExecute_StrictNonConvergence(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{"model.hcl": `
block "loop" {
  derived "a" {
    expression = b * 2
    seed       = 1
  }
  derived "b" {
    expression = a * 2
    seed       = 1
  }
}
`})

	_, err := execute(t, "run", dir, "--max-iterations", "5")
	require.NoError(t, err)

	_, err = execute(t, "run", dir, "--max-iterations", "5", "--strict")
	requireExitCode(t, err, ExitNotConverged)
}

func TestExecute_ModelErrors(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{"model.hcl": `
block "b" {
  derived "y" {
    expression = missing + 1
  }
}
`})
	_, err := execute(t, "validate", dir)
	exitErr := requireExitCode(t, err, ExitFailure)
	assert.Contains(t, exitErr.Message, "unknown dependency")
}

func TestExecute_GraphAndValidate(t *testing.T) {
	out, err := execute(t, "validate", pricingModel)
	require.NoError(t, err)
	assert.Contains(t, out, "Model OK")

	out, err = execute(t, "graph", "--model", pricingModel)
	require.NoError(t, err)
	assert.Contains(t, out, "Acyclic order:")
	assert.Contains(t, out, "[demand selling_price unit_cost volume]")
}

func TestParseOverrides(t *testing.T) {
	got, err := parseOverrides([]string{"a=1", " b = -2.5 ", "a=3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a": 3, "b": -2.5}, got)

	got, err = parseOverrides(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseOverrides([]string{"=1"})
	assert.Error(t, err)
}
