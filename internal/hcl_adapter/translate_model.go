// This file contains the logic for translating HCL schema structs into the
// format-agnostic model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/specialistvlad/loopgrid/internal/attribute"
	"github.com/specialistvlad/loopgrid/internal/config"
	"github.com/specialistvlad/loopgrid/internal/ctxlog"
	"github.com/specialistvlad/loopgrid/internal/formula"
)

// translateBlock converts the HCL-specific block schema into the agnostic model.
func (l *Loader) translateBlock(ctx context.Context, file string, src []byte, b *Block) (*config.Block, error) {
	logger := ctxlog.FromContext(ctx).With("block", b.ID)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Translating HCL block to internal config model.", "inputs", len(b.Inputs), "derived", len(b.Derived))

	out := &config.Block{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		Origin:      fmt.Sprintf("%s: block %q", file, b.ID),
	}
	for _, in := range b.Inputs {
		out.Attributes = append(out.Attributes, &config.Attribute{
			ID:     in.ID,
			Name:   in.Name,
			Kind:   attribute.Input,
			Value:  in.Value,
			Origin: fmt.Sprintf("%s: input %q", file, in.ID),
		})
	}
	for _, d := range b.Derived {
		attr, err := l.translateDerived(ctx, file, src, d)
		if err != nil {
			return nil, err
		}
		out.Attributes = append(out.Attributes, attr)
	}
	return out, nil
}

// translateDerived converts a `derived` block, compiling its expression.
func (l *Loader) translateDerived(ctx context.Context, file string, src []byte, d *Derived) (*config.Attribute, error) {
	attr := &config.Attribute{
		ID:        d.ID,
		Name:      d.Name,
		Kind:      attribute.Derived,
		Value:     d.Value,
		Seed:      d.Seed,
		Function:  d.Function,
		DependsOn: d.DependsOn,
		Params:    d.Params,
		Origin:    fmt.Sprintf("%s: derived %q", file, d.ID),
	}
	if isExprDefined(ctx, d.Expression, "expression") {
		text := sourceOf(src, d.Expression.Range())
		if text == "" {
			return nil, fmt.Errorf("%s: cannot read expression source", attr.Origin)
		}
		attr.Expression = formula.NewExpression(d.Expression, text)
		ctxlog.FromContext(ctx).Debug("Derived attribute uses an expression.", "id", d.ID, "variables", attr.Expression.Variables())
	}
	return attr, nil
}
