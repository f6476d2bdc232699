// Package metrics exposes evaluation activity as Prometheus metrics.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/loopgrid/internal/attribute"
	"github.com/specialistvlad/loopgrid/internal/evaluator"
)

const namespace = "loopgrid"

// Collector implements evaluator.Observer on top of a set of Prometheus
// collectors.
type Collector struct {
	evaluations *prometheus.CounterVec
	failures    *prometheus.CounterVec
	inFlight    prometheus.Gauge
	duration    *prometheus.HistogramVec
	iterations  prometheus.Histogram
	cycles      *prometheus.CounterVec
}

var _ evaluator.Observer = (*Collector)(nil)

// New creates a collector and registers it with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Total number of evaluation requests, by scenario.",
		}, []string{"scenario"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_failures_total",
			Help:      "Total number of failed evaluation requests, by failure kind.",
		}, []string{"kind"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "evaluations_in_flight",
			Help:      "Number of evaluations currently running.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Wall time of successful evaluations.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"scenario"}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_iterations",
			Help:      "Rounds spent resolving one cyclic group.",
			Buckets:   prometheus.LinearBuckets(1, 1, 20),
		}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_resolved_total",
			Help:      "Cyclic groups resolved, by outcome.",
		}, []string{"outcome"}),
	}

	for _, col := range []prometheus.Collector{c.evaluations, c.failures, c.inFlight, c.duration, c.iterations, c.cycles} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// EvaluationStarted implements evaluator.Observer.
func (c *Collector) EvaluationStarted(scenario string) {
	c.evaluations.WithLabelValues(scenario).Inc()
	c.inFlight.Inc()
}

// CycleResolved implements evaluator.Observer.
func (c *Collector) CycleResolved(_ string, rec evaluator.ConvergenceRecord) {
	c.iterations.Observe(float64(rec.Iterations))
	c.cycles.WithLabelValues(outcome(rec)).Inc()
}

// EvaluationFinished implements evaluator.Observer.
func (c *Collector) EvaluationFinished(scenario string, res *evaluator.Result, err error) {
	c.inFlight.Dec()
	if err != nil {
		c.failures.WithLabelValues(failureKind(err)).Inc()
		return
	}
	c.duration.WithLabelValues(scenario).Observe(res.Duration.Seconds())
}

func outcome(rec evaluator.ConvergenceRecord) string {
	switch {
	case rec.Converged:
		return "converged"
	case rec.Interrupted:
		return "interrupted"
	case rec.Stabilized:
		return "stabilized"
	case rec.Oscillating:
		return "oscillating"
	default:
		return "exhausted"
	}
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, attribute.ErrFormula):
		return "formula"
	case errors.Is(err, attribute.ErrMissingSeed):
		return "missing_seed"
	case errors.Is(err, attribute.ErrMissingValue):
		return "missing_value"
	case errors.Is(err, attribute.ErrUnknownAttribute), errors.Is(err, attribute.ErrNotAnInput):
		return "override"
	case errors.Is(err, attribute.ErrCyclicGraph):
		return "graph"
	default:
		return "other"
	}
}
