package scenario

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/loopgrid/internal/attribute"
	"github.com/specialistvlad/loopgrid/internal/attrstore"
	"github.com/specialistvlad/loopgrid/internal/ctxlog"
)

// Definitions is the read-only view of the model the manager validates
// overrides against. *attrstore.Store satisfies it.
type Definitions interface {
	Attribute(id string) (attribute.Attribute, bool)
}

// Manager layers scenario overrides on top of base values.
type Manager struct {
	defs Definitions
}

// NewManager creates a manager validating against defs.
func NewManager(defs Definitions) *Manager {
	return &Manager{defs: defs}
}

// Context is the starting point of one evaluation request: the base values
// with the scenario's overrides applied. It is owned by a single request.
type Context struct {
	name      string
	values    map[string]float64
	overrides map[string]float64
}

// Apply returns a new context equal to base with overrides layered on top.
// Overrides may only target Input attributes. base is never modified, so the
// same snapshot can seed any number of scenarios.
func (m *Manager) Apply(ctx context.Context, name string, base attrstore.Snapshot, overrides map[string]float64) (*Context, error) {
	ids := make([]string, 0, len(overrides))
	for id := range overrides {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		a, ok := m.defs.Attribute(id)
		if !ok {
			return nil, &attribute.Error{Kind: attribute.ErrUnknownAttribute, ID: id, Err: fmt.Errorf("override in scenario %q", name)}
		}
		if a.Kind != attribute.Input {
			return nil, &attribute.Error{Kind: attribute.ErrNotAnInput, ID: id, Err: fmt.Errorf("override in scenario %q targets a %s attribute", name, a.Kind)}
		}
	}

	c := &Context{
		name:      name,
		values:    base.Map(),
		overrides: make(map[string]float64, len(overrides)),
	}
	for _, id := range ids {
		c.values[id] = overrides[id]
		c.overrides[id] = overrides[id]
	}

	ctxlog.FromContext(ctx).Debug("Scenario context built.", "scenario", name, "overrides", len(ids))
	return c, nil
}

// Name returns the scenario name the context was built for.
func (c *Context) Name() string {
	return c.name
}

// Get returns the value of id in this context.
func (c *Context) Get(id string) (float64, bool) {
	v, ok := c.values[id]
	return v, ok
}

// Values returns an immutable copy of all values.
func (c *Context) Values() attrstore.Snapshot {
	return attrstore.NewSnapshot(c.values)
}

// Overrides returns a copy of the overrides applied to the base.
func (c *Context) Overrides() map[string]float64 {
	out := make(map[string]float64, len(c.overrides))
	for k, v := range c.overrides {
		out[k] = v
	}
	return out
}
