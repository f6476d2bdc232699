package evaluator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/loopgrid/internal/attribute"
	"github.com/specialistvlad/loopgrid/internal/attrstore"
	"github.com/specialistvlad/loopgrid/internal/ctxlog"
	"github.com/specialistvlad/loopgrid/internal/depgraph"
	"github.com/specialistvlad/loopgrid/internal/scenario"
)

// Evaluator resolves every attribute of a store for a given scenario
// context. It never writes to the store and is safe for concurrent use: each
// call to Evaluate works on its own value table.
type Evaluator struct {
	store    *attrstore.Store
	scenario *scenario.Manager
	opts     Options

	mu       sync.Mutex
	compiled *compiled
}

// compiled is the structure derived from one revision of the definitions.
type compiled struct {
	graph *depgraph.Graph
	plan  *depgraph.Plan
	attrs map[string]attribute.Attribute
}

// New creates an evaluator over store. Zero option fields take defaults.
func New(store *attrstore.Store, opts Options) *Evaluator {
	return &Evaluator{
		store:    store,
		scenario: scenario.NewManager(store),
		opts:     opts.withDefaults(),
	}
}

// Options returns the effective options.
func (e *Evaluator) Options() Options {
	return e.opts
}

// Graph returns the dependency graph for the current definitions.
func (e *Evaluator) Graph(ctx context.Context) (*depgraph.Graph, error) {
	c, err := e.compile(ctx)
	if err != nil {
		return nil, err
	}
	return c.graph, nil
}

// compile returns the cached structure, rebuilding it when definitions have
// been added since it was built.
func (e *Evaluator) compile(ctx context.Context) (*compiled, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.compiled != nil && !e.compiled.graph.Stale(e.store) {
		return e.compiled, nil
	}

	graph, err := depgraph.FromStore(ctx, e.store)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}
	plan, err := graph.Plan()
	if err != nil {
		return nil, err
	}
	attrs := make(map[string]attribute.Attribute, graph.Len())
	for _, a := range e.store.Attributes() {
		attrs[a.ID] = a
	}
	e.compiled = &compiled{graph: graph, plan: plan, attrs: attrs}
	ctxlog.FromContext(ctx).Debug("Evaluation plan compiled.", "units", len(plan.Units), "cycles", len(plan.Cycles()))
	return e.compiled, nil
}

// Base evaluates the store's own values with no overrides.
func (e *Evaluator) Base(ctx context.Context) (*Result, error) {
	return e.Scenario(ctx, "base", nil)
}

// Scenario applies overrides to a fresh snapshot of the store and evaluates
// the resulting context.
func (e *Evaluator) Scenario(ctx context.Context, name string, overrides map[string]float64) (*Result, error) {
	sc, err := e.scenario.Apply(ctx, name, e.store.Snapshot(), overrides)
	if err != nil {
		e.opts.Observer.EvaluationStarted(name)
		e.opts.Observer.EvaluationFinished(name, nil, err)
		return nil, err
	}
	return e.Evaluate(ctx, sc)
}

// Evaluate resolves every attribute starting from sc.
//
// A formula failure aborts the whole request and returns no result. A group
// that does not converge is not an error: its last values are kept and its
// record says so. If ctx is cancelled the partial result computed so far is
// returned together with an error wrapping ctx.Err().
func (e *Evaluator) Evaluate(ctx context.Context, sc *scenario.Context) (*Result, error) {
	ctx, logger := ctxlog.With(ctx, "scenario", sc.Name())
	e.opts.Observer.EvaluationStarted(sc.Name())
	start := time.Now()

	res, err := e.evaluate(ctx, sc)
	if res != nil {
		res.Duration = time.Since(start)
	}
	e.opts.Observer.EvaluationFinished(sc.Name(), res, err)

	if err != nil {
		logger.Debug("Evaluation failed.", "error", err)
	} else {
		logger.Debug("Evaluation finished.", "cycles", len(res.Cycles), "converged", res.Converged(), "duration", res.Duration)
	}
	return res, err
}

func (e *Evaluator) evaluate(ctx context.Context, sc *scenario.Context) (*Result, error) {
	c, err := e.compile(ctx)
	if err != nil {
		return nil, err
	}

	r := &run{
		name:   sc.Name(),
		opts:   e.opts,
		plan:   c.plan,
		attrs:  c.attrs,
		values: newValueTable(sc.Values().Map()),
		cycles: make(map[int]ConvergenceRecord),
	}
	runErr := r.execute(ctx)

	if runErr != nil && ctx.Err() == nil {
		// Formula and seed failures discard everything.
		return nil, runErr
	}

	res := &Result{
		Scenario:  sc.Name(),
		Values:    attrstore.NewSnapshot(r.values.snapshot()),
		Order:     r.order,
		Overrides: sc.Overrides(),
		Complete:  runErr == nil,
		blocks:    len(e.store.Blocks()),
		edges:     c.graph.Edges(),
	}
	for _, a := range c.attrs {
		if a.Kind == attribute.Input {
			res.inputs++
		} else {
			res.derived++
		}
	}
	for _, u := range c.plan.Units {
		if rec, ok := r.cycles[u.Index]; ok {
			res.Cycles = append(res.Cycles, rec)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			return res, fmt.Errorf("evaluation of scenario %q interrupted: %w", sc.Name(), runErr)
		}
		return nil, runErr
	}
	return res, nil
}
