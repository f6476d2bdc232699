package formula

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Module is implemented by packages that contribute Go formula functions.
type Module interface {
	Register(r *Registry)
}

// Named is a registered Go function bound to the name it was looked up by.
type Named struct {
	Name string
	Fn   Func
}

// Eval calls the underlying function.
func (n *Named) Eval(in Inputs) (float64, error) {
	return n.Fn(in)
}

// Registry maps function names used in model files to compiled Go formulas.
// Names are resolved when a model is loaded, never during evaluation.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry creates a registry and registers every given module into it.
func NewRegistry(modules ...Module) *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Register adds a function under name. Registering the same name twice is a
// programmer error and panics.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[name]; exists {
		panic(fmt.Sprintf("formula function with name '%s' already registered", name))
	}
	slog.Debug("Registering formula function.", "name", name)
	r.funcs[name] = fn
}

// Resolve returns the named formula, or an error naming the unknown function.
func (r *Registry) Resolve(name string) (*Named, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("formula function %q is not registered", name)
	}
	return &Named{Name: name, Fn: fn}, nil
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
