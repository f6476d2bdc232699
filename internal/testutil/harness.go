// Package testutil provides shared helpers for tests that drive the
// application end to end.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/loopgrid/internal/app"
	"github.com/specialistvlad/loopgrid/internal/formula"
	"github.com/specialistvlad/loopgrid/internal/hcl_adapter"
	"github.com/stretchr/testify/require"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Output    string
	LogOutput string
	Err       error
	App       *app.App
}

// WriteFiles writes files, keyed by relative path, under a fresh temporary
// directory and returns that directory.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// Config returns a valid debug-level config for the model at modelPath.
func Config(modelPath string) app.Config {
	return app.Config{
		ModelPath:     modelPath,
		MaxIterations: 10,
		Tolerance:     0.01,
		Workers:       2,
		LogFormat:     "text",
		LogLevel:      "debug",
		Output:        app.OutputText,
	}
}

// RunApp builds an app from cfg with the HCL loader and runs it. Startup and
// run errors are both reported through Err.
func RunApp(ctx context.Context, t *testing.T, cfg app.Config, modules ...formula.Module) *HarnessResult {
	t.Helper()

	out := &SafeBuffer{}
	logs := &SafeBuffer{}

	validated, err := app.NewConfig(cfg)
	if err != nil {
		return &HarnessResult{Err: err}
	}
	a, err := app.NewApp(out, logs, validated, hcl_adapter.NewLoader(), modules...)
	if err != nil {
		return &HarnessResult{LogOutput: logs.String(), Err: err}
	}
	runErr := a.Run(ctx)

	if os.Getenv("LOOPGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
	}

	return &HarnessResult{
		Output:    out.String(),
		LogOutput: logs.String(),
		Err:       runErr,
		App:       a,
	}
}
