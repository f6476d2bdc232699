package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/loopgrid/internal/attrstore"
	"github.com/specialistvlad/loopgrid/internal/config"
	"github.com/specialistvlad/loopgrid/internal/ctxlog"
	"github.com/specialistvlad/loopgrid/internal/evaluator"
	"github.com/specialistvlad/loopgrid/internal/formula"
	"github.com/specialistvlad/loopgrid/internal/metrics"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	config    *Config
	registry  *formula.Registry
	model     *config.Model
	store     *attrstore.Store
	evaluator *evaluator.Evaluator

	metricsRegistry *prometheus.Registry
	httpServer      *http.Server
}

// NewApp is the constructor for the main application. Reports go to outW and
// logs to logW. The model is loaded and defined here, so a returned App is
// ready to evaluate. With no modules the built-in formula modules are used.
func NewApp(outW, logW io.Writer, cfg *Config, loader config.Loader, modules ...formula.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	if len(model.Blocks) == 0 {
		return nil, fmt.Errorf("no model blocks found at %s", cfg.ModelPath)
	}
	logger.Debug("Model loaded and translated into unified model.")

	if len(modules) == 0 {
		modules = coreModules
	}
	reg := formula.NewRegistry(modules...)
	logger.Debug("All formula modules registered.", "count", len(modules), "functions", reg.Names())

	store := attrstore.New()
	if err := model.Define(ctx, store, reg); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}

	promReg := prometheus.NewRegistry()
	collector, err := metrics.New(promReg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	opts := evaluator.DefaultOptions()
	opts.MaxIterations = cfg.MaxIterations
	opts.Tolerance = cfg.Tolerance
	opts.Workers = cfg.Workers
	opts.StabilizeOscillation = cfg.Stabilize
	opts.Observer = collector

	logger.Info("Model ready.", "blocks", len(store.Blocks()), "attributes", store.Len())
	return &App{
		outW:            outW,
		logger:          logger,
		config:          cfg,
		registry:        reg,
		model:           model,
		store:           store,
		evaluator:       evaluator.New(store, opts),
		metricsRegistry: promReg,
	}, nil
}

// Store returns the attribute store. This is primarily for testing.
func (a *App) Store() *attrstore.Store {
	return a.store
}

// Registry returns the formula registry. This is primarily for testing.
func (a *App) Registry() *formula.Registry {
	return a.registry
}
