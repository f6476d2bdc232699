package formula

import (
	"fmt"
	"sort"
)

// Formula computes a derived attribute from the values of its dependencies.
// Implementations must be pure: the same Inputs always yield the same result.
type Formula interface {
	Eval(in Inputs) (float64, error)
}

// Func adapts an ordinary Go function to the Formula interface.
type Func func(in Inputs) (float64, error)

// Eval calls f.
func (f Func) Eval(in Inputs) (float64, error) {
	return f(in)
}

// Constant is a formula with no dependencies.
type Constant float64

// Eval returns the constant.
func (c Constant) Eval(Inputs) (float64, error) {
	return float64(c), nil
}

// Inputs is the read-only view a formula gets of its dependencies and params.
type Inputs struct {
	values map[string]float64
	params map[string]float64
}

// NewInputs wraps the given maps. The maps are not copied; callers hand over
// ownership for the duration of the call.
func NewInputs(values, params map[string]float64) Inputs {
	return Inputs{values: values, params: params}
}

// Value returns the value of dependency id, or zero if it was not supplied.
func (in Inputs) Value(id string) float64 {
	return in.values[id]
}

// Lookup returns the value of dependency id and whether it was supplied.
func (in Inputs) Lookup(id string) (float64, bool) {
	v, ok := in.values[id]
	return v, ok
}

// Param returns the named param, or def when the attribute has none.
func (in Inputs) Param(name string, def float64) float64 {
	if v, ok := in.params[name]; ok {
		return v
	}
	return def
}

// Names returns the supplied dependency ids in sorted order.
func (in Inputs) Names() []string {
	names := make([]string, 0, len(in.values))
	for k := range in.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Params returns a copy of the params map.
func (in Inputs) Params() map[string]float64 {
	out := make(map[string]float64, len(in.params))
	for k, v := range in.params {
		out[k] = v
	}
	return out
}

// Describe returns a short label for a formula, used in logs.
func Describe(f Formula) string {
	switch v := f.(type) {
	case nil:
		return "none"
	case Constant:
		return fmt.Sprintf("constant(%g)", float64(v))
	case *Expression:
		return "expression(" + v.Source() + ")"
	case *Named:
		return "function(" + v.Name + ")"
	default:
		return fmt.Sprintf("%T", f)
	}
}
