package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/specialistvlad/loopgrid/internal/attribute"
	"github.com/specialistvlad/loopgrid/internal/attrstore"
	"github.com/specialistvlad/loopgrid/internal/evaluator"
	"github.com/specialistvlad/loopgrid/internal/formula"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err, "second registration must collide")
}

func TestCollector_ObservesEvaluations(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	s := attrstore.New()
	require.NoError(t, s.Define(context.Background(),
		attribute.NewInput("k", 0.5),
		attribute.NewDerived("x", formula.Func(func(in formula.Inputs) (float64, error) {
			return in.Value("k")*in.Value("x") + 1, nil
		}), "k", "x").WithSeed(0),
	))
	ev := evaluator.New(s, evaluator.Options{Observer: c, MaxIterations: 50})

	_, err = ev.Base(context.Background())
	require.NoError(t, err)
	_, err = ev.Scenario(context.Background(), "bad", map[string]float64{"x": 1})
	require.Error(t, err, "overriding a derived attribute is rejected before evaluation")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.evaluations.WithLabelValues("base")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.evaluations.WithLabelValues("bad")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.failures.WithLabelValues("override")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cycles.WithLabelValues("converged")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.inFlight))
	assert.Equal(t, 1, testutil.CollectAndCount(c.iterations))
}

func TestCollector_CountsFailures(t *testing.T) {
	c, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	c.EvaluationStarted("s")
	c.EvaluationFinished("s", nil, &attribute.Error{Kind: attribute.ErrFormula, ID: "x", Err: errors.New("boom")})
	c.EvaluationStarted("s")
	c.EvaluationFinished("s", nil, fmt.Errorf("wrapped: %w", context.Canceled))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.failures.WithLabelValues("formula")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.failures.WithLabelValues("other")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.inFlight))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "converged", outcome(evaluator.ConvergenceRecord{Converged: true}))
	assert.Equal(t, "interrupted", outcome(evaluator.ConvergenceRecord{Interrupted: true}))
	assert.Equal(t, "stabilized", outcome(evaluator.ConvergenceRecord{Oscillating: true, Stabilized: true}))
	assert.Equal(t, "oscillating", outcome(evaluator.ConvergenceRecord{Oscillating: true}))
	assert.Equal(t, "exhausted", outcome(evaluator.ConvergenceRecord{}))
}
