package formula

import (
	"fmt"
	"math"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ParamsRoot is the variable root under which an expression reads its params,
// e.g. `param.energy_per_unit`.
const ParamsRoot = "param"

// functions is the fixed numeric function table available to expressions.
var functions = map[string]function.Function{
	"abs":    stdlib.AbsoluteFunc,
	"ceil":   stdlib.CeilFunc,
	"floor":  stdlib.FloorFunc,
	"log":    stdlib.LogFunc,
	"max":    stdlib.MaxFunc,
	"min":    stdlib.MinFunc,
	"pow":    stdlib.PowFunc,
	"signum": stdlib.SignumFunc,
}

// Expression is a formula written as an HCL expression over dependency ids.
type Expression struct {
	expr hcl.Expression
	src  string
}

// NewExpression wraps an already-parsed HCL expression. src is kept for logs.
func NewExpression(expr hcl.Expression, src string) *Expression {
	return &Expression{expr: expr, src: src}
}

// ParseExpression parses src as a native-syntax HCL expression.
func ParseExpression(src string) (*Expression, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "formula.hcl", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse expression %q: %w", src, diags)
	}
	return NewExpression(expr, src), nil
}

// Source returns the expression text.
func (e *Expression) Source() string {
	return e.src
}

// Variables returns the attribute ids the expression references, in order of
// first appearance. References under ParamsRoot are not attributes and are
// skipped.
func (e *Expression) Variables() []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, traversal := range e.expr.Variables() {
		root := traversal.RootName()
		if root == ParamsRoot {
			continue
		}
		if _, ok := seen[root]; ok {
			continue
		}
		seen[root] = struct{}{}
		ids = append(ids, root)
	}
	return ids
}

// Eval evaluates the expression with each dependency bound as a top-level
// number variable and the params bound as an object under ParamsRoot.
func (e *Expression) Eval(in Inputs) (float64, error) {
	vars := make(map[string]cty.Value, len(in.values)+1)
	for id, v := range in.values {
		if math.IsNaN(v) {
			return 0, fmt.Errorf("expression %q: input %q is NaN", e.src, id)
		}
		vars[id] = cty.NumberFloatVal(v)
	}

	params := make(map[string]cty.Value, len(in.params))
	names := make([]string, 0, len(in.params))
	for name := range in.params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		params[name] = cty.NumberFloatVal(in.params[name])
	}
	vars[ParamsRoot] = cty.ObjectVal(params)

	evalCtx := &hcl.EvalContext{
		Variables: vars,
		Functions: functions,
	}

	val, diags := e.expr.Value(evalCtx)
	if diags.HasErrors() {
		return 0, fmt.Errorf("expression %q: %w", e.src, diags)
	}
	if val.IsNull() || !val.IsKnown() {
		return 0, fmt.Errorf("expression %q produced no value", e.src)
	}
	if !val.Type().Equals(cty.Number) {
		return 0, fmt.Errorf("expression %q produced %s, want number", e.src, val.Type().FriendlyName())
	}

	var out float64
	if err := gocty.FromCtyValue(val, &out); err != nil {
		return 0, fmt.Errorf("expression %q: %w", e.src, err)
	}
	return out, nil
}
