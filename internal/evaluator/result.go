package evaluator

import (
	"time"

	"github.com/specialistvlad/loopgrid/internal/attrstore"
)

// ConvergenceRecord reports how one cyclic group was resolved.
type ConvergenceRecord struct {
	// Members is the sorted member list of the group.
	Members []string
	// Iterations is the number of completed rounds.
	Iterations int
	// Converged is true when every member passed the tolerance test in the
	// same round.
	Converged bool
	// Deltas holds each member's relative change in the final round.
	Deltas map[string]float64
	// MaxDelta is the largest entry of Deltas.
	MaxDelta float64
	// Oscillating is set when the group was seen bouncing between two points.
	Oscillating bool
	// Stabilized is set when oscillating values were replaced by their mean.
	Stabilized bool
	// Interrupted is set when the caller cancelled between rounds.
	Interrupted bool
}

// Result is the outcome of one evaluation request.
type Result struct {
	// Scenario is the name of the context that was evaluated.
	Scenario string
	// Values holds the final value of every attribute.
	Values attrstore.Snapshot
	// Cycles holds one record per cyclic group, in plan order.
	Cycles []ConvergenceRecord
	// Order lists attribute ids in the order their values were finalized.
	Order []string
	// Overrides are the scenario overrides the evaluation started from.
	Overrides map[string]float64
	// Complete is false when the evaluation was cancelled part way.
	Complete bool
	// Duration is the wall time spent evaluating.
	Duration time.Duration

	inputs  int
	derived int
	blocks  int
	edges   int
}

// Get returns the final value of id.
func (r *Result) Get(id string) (float64, bool) {
	return r.Values.Get(id)
}

// Converged reports whether every cyclic group converged.
func (r *Result) Converged() bool {
	for _, c := range r.Cycles {
		if !c.Converged {
			return false
		}
	}
	return true
}

// Cycle returns the record of the group containing id.
func (r *Result) Cycle(id string) (ConvergenceRecord, bool) {
	for _, c := range r.Cycles {
		for _, m := range c.Members {
			if m == id {
				return c, true
			}
		}
	}
	return ConvergenceRecord{}, false
}

// Summary is a compact overview of an evaluation.
type Summary struct {
	Scenario        string        `json:"scenario"`
	Attributes      int           `json:"attributes"`
	Inputs          int           `json:"inputs"`
	Derived         int           `json:"derived"`
	Blocks          int           `json:"blocks"`
	Edges           int           `json:"dependency_relationships"`
	CyclicGroups    int           `json:"cyclic_groups"`
	ConvergedGroups int           `json:"converged_groups"`
	Overrides       int           `json:"overrides"`
	Complete        bool          `json:"complete"`
	Duration        time.Duration `json:"duration_ns"`
}

// Summary returns totals for the evaluation.
func (r *Result) Summary() Summary {
	s := Summary{
		Scenario:     r.Scenario,
		Attributes:   r.inputs + r.derived,
		Inputs:       r.inputs,
		Derived:      r.derived,
		Blocks:       r.blocks,
		Edges:        r.edges,
		CyclicGroups: len(r.Cycles),
		Overrides:    len(r.Overrides),
		Complete:     r.Complete,
		Duration:     r.Duration,
	}
	for _, c := range r.Cycles {
		if c.Converged {
			s.ConvergedGroups++
		}
	}
	return s
}
