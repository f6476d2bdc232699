package evaluator

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/loopgrid/internal/attribute"
	"github.com/specialistvlad/loopgrid/internal/ctxlog"
	"github.com/specialistvlad/loopgrid/internal/depgraph"
	"golang.org/x/sync/errgroup"
)

// run holds the state of a single evaluation request.
type run struct {
	name   string
	opts   Options
	plan   *depgraph.Plan
	attrs  map[string]attribute.Attribute
	values *valueTable

	// mu guards order and cycles.
	mu     sync.Mutex
	order  []string
	cycles map[int]ConvergenceRecord
}

// execute schedules every unit of the plan onto a bounded pool of workers.
// A unit is released once all units it depends on have finished.
func (r *run) execute(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	units := r.plan.Units
	if len(units) == 0 {
		return nil
	}

	depCount := make([]atomic.Int32, len(units))
	readyChan := make(chan *depgraph.Unit, len(units))
	for _, u := range units {
		depCount[u.Index].Store(int32(len(u.Deps)))
		if len(u.Deps) == 0 {
			readyChan <- u
		}
	}

	var remaining atomic.Int32
	remaining.Store(int32(len(units)))

	g, gctx := errgroup.WithContext(ctx)
	for workerID := 0; workerID < r.opts.Workers; workerID++ {
		g.Go(func() error {
			return r.worker(gctx, readyChan, depCount, &remaining, workerID)
		})
	}
	logger.Debug("Workers started.", "workers", r.opts.Workers, "units", len(units))
	return g.Wait()
}

// worker is the processing loop for a single concurrent worker.
func (r *run) worker(ctx context.Context, readyChan chan *depgraph.Unit, depCount []atomic.Int32, remaining *atomic.Int32, workerID int) error {
	ctx, logger := ctxlog.With(ctx, "workerID", workerID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-readyChan:
			if !ok {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			var err error
			if u.Cyclic {
				err = r.resolveCycle(ctx, u)
			} else {
				err = r.evaluateSingle(ctx, u.Members[0])
			}
			if err != nil {
				logger.Debug("Unit failed.", "members", u.Members, "error", err)
				return err
			}

			// Unlock dependents whose last dependency just finished.
			for _, d := range u.Dependents {
				if depCount[d].Add(-1) == 0 {
					readyChan <- r.plan.Units[d]
				}
			}
			if remaining.Add(-1) == 0 {
				close(readyChan)
			}
		}
	}
}

// finish records that ids have their final values.
func (r *run) finish(ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, ids...)
}

// valueTable is the shared value mapping of one evaluation. Each attribute
// id is written by exactly one unit; the lock serializes those writes
// against concurrent reads from other units.
type valueTable struct {
	mu     sync.RWMutex
	values map[string]float64
}

func newValueTable(seed map[string]float64) *valueTable {
	return &valueTable{values: seed}
}

func (t *valueTable) get(id string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.values[id]
	return v, ok
}

func (t *valueTable) set(id string, v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values[id] = v
}

func (t *valueTable) snapshot() map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]float64, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}
