package evaluator

// Default evaluation parameters. They are empirical and meant to be tuned
// per model.
const (
	DefaultMaxIterations        = 10
	DefaultTolerance            = 0.01
	DefaultEpsilon              = 1e-9
	DefaultWorkers              = 1
	DefaultOscillationThreshold = 0.1
)

// Options configures an Evaluator.
type Options struct {
	// MaxIterations bounds the rounds spent on one cyclic group.
	MaxIterations int
	// Tolerance is the relative change below which a member counts as stable.
	Tolerance float64
	// Epsilon is the floor for the denominator of the relative change.
	Epsilon float64
	// Workers is the number of goroutines evaluating independent units.
	Workers int
	// DefaultSeed is used for a cycle member with neither a current value
	// nor a seed of its own. Nil means such a member is an error.
	DefaultSeed *float64
	// OscillationThreshold is the absolute band used to detect a group
	// bouncing between two points. Zero disables detection.
	OscillationThreshold float64
	// StabilizeOscillation replaces an oscillating group's values with the
	// mean of its last four rounds and stops iterating.
	StabilizeOscillation bool
	// Observer, if set, is told about every evaluation.
	Observer Observer
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		MaxIterations:        DefaultMaxIterations,
		Tolerance:            DefaultTolerance,
		Epsilon:              DefaultEpsilon,
		Workers:              DefaultWorkers,
		OscillationThreshold: DefaultOscillationThreshold,
	}
}

// withDefaults fills every non-positive numeric field that has a default.
func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.Epsilon <= 0 {
		o.Epsilon = DefaultEpsilon
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.OscillationThreshold < 0 {
		o.OscillationThreshold = 0
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	return o
}

// Observer receives evaluation events. Implementations must be safe for
// concurrent use; events from concurrent evaluations interleave.
type Observer interface {
	EvaluationStarted(scenario string)
	CycleResolved(scenario string, rec ConvergenceRecord)
	EvaluationFinished(scenario string, res *Result, err error)
}

type nopObserver struct{}

func (nopObserver) EvaluationStarted(string)                  {}
func (nopObserver) CycleResolved(string, ConvergenceRecord)   {}
func (nopObserver) EvaluationFinished(string, *Result, error) {}
