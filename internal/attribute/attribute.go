package attribute

import (
	"fmt"

	"github.com/specialistvlad/loopgrid/internal/formula"
)

// Kind distinguishes exogenous inputs from formula-backed attributes.
type Kind int

const (
	// Input is an exogenous value with no formula and no dependencies.
	Input Kind = iota
	// Derived is computed from a formula over other attributes.
	Derived
)

// String returns the lower-case name used in logs and reports.
func (k Kind) String() string {
	switch k {
	case Input:
		return "input"
	case Derived:
		return "derived"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Attribute is a single named numeric value in the model.
//
// An Attribute is immutable once it has been defined in a store; values
// live in the store and in evaluation contexts, never on the definition.
type Attribute struct {
	// ID is the unique, stable identifier of the attribute.
	ID string
	// Name is an optional human-readable label.
	Name string
	// Kind is either Input or Derived.
	Kind Kind
	// Dependencies lists, in declaration order, the attribute ids the
	// formula reads. Always empty for inputs.
	Dependencies []string
	// Formula computes a Derived attribute. Nil for inputs.
	Formula formula.Formula
	// Params holds per-attribute constants handed to the formula.
	Params map[string]float64
	// Value is the initial value: the exogenous value for an input, an
	// optional starting value for a derived attribute.
	Value *float64
	// Seed is the caller-supplied starting value used when the attribute
	// is a member of a cycle and has no current value.
	Seed *float64
}

// NewInput returns an input attribute holding value.
func NewInput(id string, value float64) Attribute {
	return Attribute{ID: id, Kind: Input, Value: Float(value)}
}

// NewDerived returns a derived attribute reading deps through f.
func NewDerived(id string, f formula.Formula, deps ...string) Attribute {
	return Attribute{ID: id, Kind: Derived, Formula: f, Dependencies: deps}
}

// WithSeed returns a copy of a carrying the given cycle seed.
func (a Attribute) WithSeed(seed float64) Attribute {
	a.Seed = Float(seed)
	return a
}

// WithParams returns a copy of a carrying the given formula params.
func (a Attribute) WithParams(params map[string]float64) Attribute {
	a.Params = params
	return a
}

// Validate checks the structural invariants of a single definition. It does
// not look at other attributes; reference checks belong to the store.
func (a Attribute) Validate() error {
	if a.ID == "" {
		return &Error{Kind: ErrInvalidDefinition, Err: fmt.Errorf("attribute id must not be empty")}
	}
	if a.ID == formula.ParamsRoot {
		return &Error{Kind: ErrInvalidDefinition, ID: a.ID, Err: fmt.Errorf("%q is reserved for formula params", formula.ParamsRoot)}
	}
	switch a.Kind {
	case Input:
		if len(a.Dependencies) > 0 {
			return &Error{Kind: ErrInvalidDefinition, ID: a.ID, Err: fmt.Errorf("input attributes cannot declare dependencies")}
		}
		if a.Formula != nil {
			return &Error{Kind: ErrInvalidDefinition, ID: a.ID, Err: fmt.Errorf("input attributes cannot carry a formula")}
		}
	case Derived:
		if a.Formula == nil {
			return &Error{Kind: ErrInvalidDefinition, ID: a.ID, Err: fmt.Errorf("derived attributes require a formula")}
		}
		seen := make(map[string]struct{}, len(a.Dependencies))
		for _, dep := range a.Dependencies {
			if _, dup := seen[dep]; dup {
				return &Error{Kind: ErrInvalidDefinition, ID: a.ID, Ref: dep, Err: fmt.Errorf("dependency listed twice")}
			}
			seen[dep] = struct{}{}
		}
	default:
		return &Error{Kind: ErrInvalidDefinition, ID: a.ID, Err: fmt.Errorf("unknown kind %s", a.Kind)}
	}
	return nil
}

// Clone returns a deep copy so callers cannot alias stored slices and maps.
func (a Attribute) Clone() Attribute {
	c := a
	if a.Dependencies != nil {
		c.Dependencies = append([]string(nil), a.Dependencies...)
	}
	if a.Params != nil {
		c.Params = make(map[string]float64, len(a.Params))
		for k, v := range a.Params {
			c.Params[k] = v
		}
	}
	if a.Value != nil {
		c.Value = Float(*a.Value)
	}
	if a.Seed != nil {
		c.Seed = Float(*a.Seed)
	}
	return c
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Block is an organizational grouping of attributes. It carries no
// evaluation semantics; the dependency graph spans all blocks.
type Block struct {
	ID          string
	Name        string
	Description string
	// Attributes lists the ids owned by the block, in order.
	Attributes []string
}
