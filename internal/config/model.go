package config

import (
	"context"
	"fmt"

	"github.com/specialistvlad/loopgrid/internal/attribute"
	"github.com/specialistvlad/loopgrid/internal/attrstore"
	"github.com/specialistvlad/loopgrid/internal/ctxlog"
	"github.com/specialistvlad/loopgrid/internal/formula"
)

// Model is the unified, format-agnostic representation of a model
// definition: its blocks and the attributes they own.
type Model struct {
	Blocks []*Block
}

// Block is the format-agnostic representation of a `block` definition.
type Block struct {
	ID          string
	Name        string
	Description string
	Attributes  []*Attribute
	// Origin names where the block was defined, e.g. "model.hcl:3,1-17".
	Origin string
}

// Attribute is the format-agnostic representation of an `input` or
// `derived` definition.
type Attribute struct {
	ID   string
	Name string
	Kind attribute.Kind
	// Value is the exogenous value of an input, or the starting value of a
	// derived attribute.
	Value *float64
	Seed  *float64
	// Expression is set for derived attributes written inline.
	Expression *formula.Expression
	// Function names a registered Go formula.
	Function  string
	DependsOn []string
	Params    map[string]float64
	Origin    string
}

// Attributes returns every attribute of every block, in definition order.
func (m *Model) Attributes() []*Attribute {
	var out []*Attribute
	for _, b := range m.Blocks {
		out = append(out, b.Attributes...)
	}
	return out
}

// Dependencies returns the explicit depends_on list followed by the
// variables read by the expression that are not already listed.
func (a *Attribute) Dependencies() []string {
	deps := append([]string(nil), a.DependsOn...)
	if a.Expression == nil {
		return deps
	}
	seen := make(map[string]struct{}, len(deps))
	for _, d := range deps {
		seen[d] = struct{}{}
	}
	for _, v := range a.Expression.Variables() {
		if _, ok := seen[v]; !ok {
			deps = append(deps, v)
			seen[v] = struct{}{}
		}
	}
	return deps
}

// Resolve turns the definition into an attribute, looking up named
// functions in reg.
func (a *Attribute) Resolve(reg *formula.Registry) (attribute.Attribute, error) {
	out := attribute.Attribute{
		ID:     a.ID,
		Name:   a.Name,
		Kind:   a.Kind,
		Params: a.Params,
		Value:  a.Value,
		Seed:   a.Seed,
	}
	if a.Kind == attribute.Input {
		return out, nil
	}

	switch {
	case a.Expression != nil && a.Function != "":
		return out, &attribute.Error{Kind: attribute.ErrInvalidDefinition, ID: a.ID, Err: fmt.Errorf("%s: expression and function are mutually exclusive", a.Origin)}
	case a.Expression != nil:
		out.Formula = a.Expression
	case a.Function != "":
		fn, err := reg.Resolve(a.Function)
		if err != nil {
			return out, &attribute.Error{Kind: attribute.ErrInvalidDefinition, ID: a.ID, Err: fmt.Errorf("%s: %w", a.Origin, err)}
		}
		out.Formula = fn
	default:
		return out, &attribute.Error{Kind: attribute.ErrInvalidDefinition, ID: a.ID, Err: fmt.Errorf("%s: derived attribute needs an expression or a function", a.Origin)}
	}
	out.Dependencies = a.Dependencies()
	return out, nil
}

// Define registers the whole model in store. All attributes go in as one
// batch, so feedback loops may cross block boundaries; blocks are then
// registered over the defined ids.
func (m *Model) Define(ctx context.Context, store *attrstore.Store, reg *formula.Registry) error {
	logger := ctxlog.FromContext(ctx)

	var attrs []attribute.Attribute
	for _, a := range m.Attributes() {
		def, err := a.Resolve(reg)
		if err != nil {
			return err
		}
		attrs = append(attrs, def)
	}
	if err := store.Define(ctx, attrs...); err != nil {
		return fmt.Errorf("failed to define attributes: %w", err)
	}

	for _, b := range m.Blocks {
		ids := make([]string, 0, len(b.Attributes))
		for _, a := range b.Attributes {
			ids = append(ids, a.ID)
		}
		block := attribute.Block{ID: b.ID, Name: b.Name, Description: b.Description, Attributes: ids}
		if err := store.DefineBlock(ctx, block); err != nil {
			return fmt.Errorf("failed to define block %q: %w", b.ID, err)
		}
	}

	logger.Debug("Model defined.", "blocks", len(m.Blocks), "attributes", len(attrs))
	return nil
}
