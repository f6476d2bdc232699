package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/specialistvlad/loopgrid/internal/ctxlog"
	"github.com/specialistvlad/loopgrid/internal/formula"
)

// graphNode describes one attribute in the graph listing.
type graphNode struct {
	ID           string   `json:"id"`
	Kind         string   `json:"kind"`
	Dependencies []string `json:"dependencies,omitempty"`
	Formula      string   `json:"formula,omitempty"`
}

type graphListing struct {
	Order  []graphNode `json:"order"`
	Cycles [][]string  `json:"cycles"`
}

// Graph writes the partition of the model: the acyclic attributes in
// dependency order and the cyclic groups.
func (a *App) Graph(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	graph, err := a.evaluator.Graph(ctx)
	if err != nil {
		return err
	}
	part, err := graph.Partition()
	if err != nil {
		return err
	}

	listing := graphListing{Cycles: part.Cycles}
	if listing.Cycles == nil {
		listing.Cycles = [][]string{}
	}
	for _, id := range part.Acyclic {
		attr, _ := a.store.Attribute(id)
		node := graphNode{ID: id, Kind: attr.Kind.String(), Dependencies: attr.Dependencies}
		if attr.Formula != nil {
			node.Formula = formula.Describe(attr.Formula)
		}
		listing.Order = append(listing.Order, node)
	}

	if a.config.Output == OutputJSON {
		enc := json.NewEncoder(a.outW)
		enc.SetIndent("", "  ")
		return enc.Encode(listing)
	}

	var sb strings.Builder
	sb.WriteString("Acyclic order:\n")
	for i, n := range listing.Order {
		fmt.Fprintf(&sb, "  %d. %s (%s)", i+1, n.ID, n.Kind)
		if len(n.Dependencies) > 0 {
			fmt.Fprintf(&sb, " <- %s", strings.Join(n.Dependencies, ", "))
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Cyclic groups: %d\n", len(listing.Cycles))
	for _, c := range listing.Cycles {
		fmt.Fprintf(&sb, "  [%s]\n", strings.Join(c, " "))
	}
	_, err = fmt.Fprint(a.outW, sb.String())
	return err
}

// Validate checks that the model's dependency graph can be planned. Loading
// and definition errors are already reported by NewApp.
func (a *App) Validate(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	graph, err := a.evaluator.Graph(ctx)
	if err != nil {
		return err
	}
	plan, err := graph.Plan()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.outW, "Model OK: %d attributes in %d blocks, %d cyclic groups.\n",
		a.store.Len(), len(a.store.Blocks()), len(plan.Cycles()))
	return err
}
