package evaluator

import (
	"context"
	"fmt"
	"math"

	"github.com/specialistvlad/loopgrid/internal/attribute"
	"github.com/specialistvlad/loopgrid/internal/ctxlog"
	"github.com/specialistvlad/loopgrid/internal/depgraph"
	"github.com/specialistvlad/loopgrid/internal/formula"
)

// evaluateSingle finalizes one acyclic attribute. All of its dependencies
// have already been finalized by the time the unit is released.
func (r *run) evaluateSingle(ctx context.Context, id string) error {
	a := r.attrs[id]
	if a.Kind == attribute.Input {
		if _, ok := r.values.get(id); !ok {
			return &attribute.Error{Kind: attribute.ErrMissingValue, ID: id}
		}
		r.finish(id)
		return nil
	}

	in := make(map[string]float64, len(a.Dependencies))
	for _, dep := range a.Dependencies {
		v, ok := r.values.get(dep)
		if !ok {
			return &attribute.Error{Kind: attribute.ErrMissingValue, ID: dep, Ref: id}
		}
		in[dep] = v
	}
	v, err := call(a, in)
	if err != nil {
		return err
	}
	r.values.set(id, v)
	r.finish(id)
	ctxlog.FromContext(ctx).Debug("Attribute evaluated.", "id", id, "value", v)
	return nil
}

// resolveCycle runs Jacobi rounds over a cyclic group: every member is
// recomputed from the previous round's values, and the new values replace
// the old ones only once the whole round is done.
func (r *run) resolveCycle(ctx context.Context, u *depgraph.Unit) error {
	logger := ctxlog.FromContext(ctx).With("cycle", u.Members)
	inGroup := make(map[string]struct{}, len(u.Members))
	for _, id := range u.Members {
		inGroup[id] = struct{}{}
	}

	prev := make(map[string]float64, len(u.Members))
	for _, id := range u.Members {
		seed, err := r.seed(id)
		if err != nil {
			return err
		}
		prev[id] = seed
	}

	rec := ConvergenceRecord{
		Members: u.Members,
		Deltas:  make(map[string]float64, len(u.Members)),
	}
	history := make(map[string][]float64, len(u.Members))

	for round := 1; round <= r.opts.MaxIterations; round++ {
		if err := ctx.Err(); err != nil {
			rec.Interrupted = true
			r.commitCycle(u, prev, rec)
			logger.Warn("Cycle resolution interrupted.", "iterations", rec.Iterations)
			return err
		}

		next := make(map[string]float64, len(u.Members))
		for _, id := range u.Members {
			a := r.attrs[id]
			in := make(map[string]float64, len(a.Dependencies))
			for _, dep := range a.Dependencies {
				if _, ok := inGroup[dep]; ok {
					in[dep] = prev[dep]
					continue
				}
				v, ok := r.values.get(dep)
				if !ok {
					return &attribute.Error{Kind: attribute.ErrMissingValue, ID: dep, Ref: id}
				}
				in[dep] = v
			}
			v, err := call(a, in)
			if err != nil {
				return err
			}
			next[id] = v
		}

		converged := true
		rec.MaxDelta = 0
		for _, id := range u.Members {
			d := math.Abs(next[id]-prev[id]) / math.Max(math.Abs(prev[id]), r.opts.Epsilon)
			rec.Deltas[id] = d
			rec.MaxDelta = math.Max(rec.MaxDelta, d)
			if d >= r.opts.Tolerance {
				converged = false
			}
			history[id] = append(history[id], next[id])
		}
		prev = next
		rec.Iterations = round
		logger.Debug("Cycle round finished.", "round", round, "maxDelta", rec.MaxDelta)

		if converged {
			rec.Converged = true
			break
		}
		if r.opts.OscillationThreshold > 0 && !rec.Oscillating && oscillating(history, r.opts.OscillationThreshold) {
			rec.Oscillating = true
			logger.Warn("Cycle is oscillating.", "round", round)
			if r.opts.StabilizeOscillation {
				for id, h := range history {
					prev[id] = (h[len(h)-1] + h[len(h)-2] + h[len(h)-3] + h[len(h)-4]) / 4
				}
				rec.Stabilized = true
				break
			}
		}
	}

	r.commitCycle(u, prev, rec)
	if rec.Converged {
		logger.Debug("Cycle converged.", "iterations", rec.Iterations)
	} else {
		logger.Warn("Cycle did not converge.", "iterations", rec.Iterations, "maxDelta", rec.MaxDelta)
	}
	return nil
}

// commitCycle publishes the group's values and its record.
func (r *run) commitCycle(u *depgraph.Unit, values map[string]float64, rec ConvergenceRecord) {
	for _, id := range u.Members {
		r.values.set(id, values[id])
	}
	r.mu.Lock()
	r.cycles[u.Index] = rec
	r.order = append(r.order, u.Members...)
	r.mu.Unlock()
	r.opts.Observer.CycleResolved(r.name, rec)
}

// seed picks the starting value of a cycle member: the value already in the
// context, then the attribute's own seed, then the configured default.
func (r *run) seed(id string) (float64, error) {
	if v, ok := r.values.get(id); ok {
		return v, nil
	}
	if s := r.attrs[id].Seed; s != nil {
		return *s, nil
	}
	if r.opts.DefaultSeed != nil {
		return *r.opts.DefaultSeed, nil
	}
	return 0, &attribute.Error{Kind: attribute.ErrMissingSeed, ID: id}
}

// oscillating reports whether any member has been alternating between two
// distinct points for its last four rounds.
func oscillating(history map[string][]float64, threshold float64) bool {
	for _, h := range history {
		n := len(h)
		if n < 4 {
			return false
		}
		if math.Abs(h[n-4]-h[n-2]) < threshold &&
			math.Abs(h[n-3]-h[n-1]) < threshold &&
			math.Abs(h[n-1]-h[n-2]) >= threshold {
			return true
		}
	}
	return false
}

// call invokes a's formula, turning errors, panics and non-finite results
// into ErrFormula.
func call(a attribute.Attribute, values map[string]float64) (v float64, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &attribute.Error{Kind: attribute.ErrFormula, ID: a.ID, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	v, err = a.Formula.Eval(formula.NewInputs(values, a.Params))
	if err != nil {
		return 0, &attribute.Error{Kind: attribute.ErrFormula, ID: a.ID, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &attribute.Error{Kind: attribute.ErrFormula, ID: a.ID, Err: fmt.Errorf("non-finite result %v", v)}
	}
	return v, nil
}
