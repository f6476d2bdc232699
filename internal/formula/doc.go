// Package formula provides the calculation side of a derived attribute.
//
// A formula is one of a small closed set of shapes:
//   - Constant: a fixed number, for derived attributes with no dependencies.
//   - *Expression: an HCL expression such as `unit_cost * 1.2`, where every
//     top-level variable is a dependency id and `param.x` reads a param.
//   - *Named: a Go function registered in a Registry and looked up by name
//     when the model is loaded.
//   - Func: any Go function, for callers building models in code.
//
// All shapes are pure with respect to their Inputs.
package formula
