package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/specialistvlad/loopgrid/internal/ctxlog"
	"github.com/specialistvlad/loopgrid/internal/scenario"
	"golang.org/x/sync/errgroup"
)

// ErrNotConverged is returned by Run in strict mode when some cyclic group
// did not converge in some evaluation.
var ErrNotConverged = errors.New("evaluation did not converge")

// Reserved scenario names: the baseline, and the overrides passed directly
// in Config.
const (
	baseScenario  = "base"
	adHocScenario = "custom"
)

// Run evaluates the base model and every selected scenario, then writes the
// report.
func (a *App) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := a.logger.With("run_id", runID)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		if _, err := a.startHealthcheckServer(ctx); err != nil {
			return err
		}
		defer a.closeHealthCheckServer(ctx)
	}

	scenarios, err := a.scenarios()
	if err != nil {
		return err
	}

	logger.Info("🚀 Evaluating model...", "scenarios", len(scenarios), "workers", a.config.Workers)
	report, err := a.evaluate(ctx, scenarios)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	report.RunID = runID
	logger.Info("🏁 Evaluation finished.", "converged", report.Converged())

	if err := a.writeReport(report); err != nil {
		return err
	}
	if a.config.Strict && !report.Converged() {
		return ErrNotConverged
	}
	logger.Debug("App.Run method finished.")
	return nil
}

// scenarios returns the scenarios selected by the configuration: the
// filtered scenario file followed by the ad-hoc overrides, if any.
func (a *App) scenarios() ([]scenario.Scenario, error) {
	var all []scenario.Scenario
	if a.config.ScenariosPath != "" {
		loaded, err := scenario.LoadFile(a.config.ScenariosPath)
		if err != nil {
			return nil, err
		}
		all = loaded
	}
	selected, err := scenario.Filter(all, a.config.Scenarios)
	if err != nil {
		return nil, err
	}
	for _, sc := range selected {
		if sc.Name == baseScenario || (sc.Name == adHocScenario && len(a.config.Overrides) > 0) {
			return nil, fmt.Errorf("scenario name %q is reserved", sc.Name)
		}
	}
	if len(a.config.Overrides) > 0 {
		selected = append(selected, scenario.Scenario{
			Name:        adHocScenario,
			Description: "overrides from the command line",
			Overrides:   a.config.Overrides,
		})
	}
	return selected, nil
}

// evaluate runs the baseline and then all scenarios concurrently. Each
// scenario gets its own context, so they never interfere.
func (a *App) evaluate(ctx context.Context, scenarios []scenario.Scenario) (*Report, error) {
	base, err := a.evaluator.Base(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Model:     a.config.ModelPath,
		Base:      base,
		Scenarios: make([]ScenarioReport, len(scenarios)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Workers)
	for i, sc := range scenarios {
		g.Go(func() error {
			res, err := a.evaluator.Scenario(gctx, sc.Name, sc.Overrides)
			if err != nil {
				return fmt.Errorf("scenario %q: %w", sc.Name, err)
			}
			report.Scenarios[i] = ScenarioReport{
				Scenario: sc,
				Result:   res,
				Diffs:    scenario.Compare(base.Values, res.Values),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}
