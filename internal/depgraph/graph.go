package depgraph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/loopgrid/internal/attribute"
	"github.com/specialistvlad/loopgrid/internal/attrstore"
	"github.com/specialistvlad/loopgrid/internal/ctxlog"
)

// Build constructs the graph from attrs. The edge set is exactly the union of
// the declared dependencies of every derived attribute; an edge A -> B means
// B's formula reads A.
func Build(ctx context.Context, attrs []attribute.Attribute) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.", "attribute_count", len(attrs))

	g := &Graph{nodes: make(map[string]*node, len(attrs))}

	// First pass: create all nodes.
	for _, a := range attrs {
		if _, exists := g.nodes[a.ID]; exists {
			return nil, &attribute.Error{Kind: attribute.ErrDuplicateID, ID: a.ID}
		}
		g.nodes[a.ID] = &node{id: a.ID}
		g.ids = append(g.ids, a.ID)
	}
	sort.Strings(g.ids)

	// Second pass: link dependencies.
	edges := 0
	for _, a := range attrs {
		if a.Kind != attribute.Derived {
			continue
		}
		to := g.nodes[a.ID]
		for _, dep := range a.Dependencies {
			from, ok := g.nodes[dep]
			if !ok {
				return nil, &attribute.Error{Kind: attribute.ErrUnknownDependency, ID: a.ID, Ref: dep}
			}
			to.deps = append(to.deps, dep)
			from.dependents = append(from.dependents, a.ID)
			edges++
		}
	}
	for _, n := range g.nodes {
		sort.Strings(n.deps)
		sort.Strings(n.dependents)
	}

	g.edges = edges
	logger.Debug("Build: Graph construction successful.", "node_count", len(g.ids), "edge_count", edges)
	return g, nil
}

// FromStore builds the graph from the current definitions of s and remembers
// the store revision it reflects.
func FromStore(ctx context.Context, s *attrstore.Store) (*Graph, error) {
	rev := s.Revision()
	g, err := Build(ctx, s.Attributes())
	if err != nil {
		return nil, err
	}
	g.revision = rev
	return g, nil
}

// Stale reports whether definitions were added to s after g was built from it.
func (g *Graph) Stale(s *attrstore.Store) bool {
	return g.revision != s.Revision()
}

// Nodes returns every node id, sorted.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.ids...)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.ids)
}

// Edges returns the number of dependency relationships.
func (g *Graph) Edges() int {
	return g.edges
}

// Dependencies returns the ids the given node reads, sorted.
func (g *Graph) Dependencies(id string) ([]string, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, &attribute.Error{Kind: attribute.ErrUnknownAttribute, ID: id}
	}
	return append([]string(nil), n.deps...), nil
}

// Dependents returns the ids that read the given node, sorted.
func (g *Graph) Dependents(id string) ([]string, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, &attribute.Error{Kind: attribute.ErrUnknownAttribute, ID: id}
	}
	return append([]string(nil), n.dependents...), nil
}

// selfLoop reports whether id reads itself.
func (g *Graph) selfLoop(id string) bool {
	n := g.nodes[id]
	i := sort.SearchStrings(n.deps, id)
	return i < len(n.deps) && n.deps[i] == id
}

// TopologicalOrder returns every node not in exclude such that each node
// appears after all of its non-excluded dependencies. Ties are broken by id,
// so the order is stable for a given graph. It fails with ErrCyclicGraph if
// the remaining nodes still contain a cycle.
func (g *Graph) TopologicalOrder(exclude map[string]struct{}) ([]string, error) {
	inDegree := make(map[string]int, len(g.ids))
	var ready []string
	for _, id := range g.ids {
		if _, skip := exclude[id]; skip {
			continue
		}
		count := 0
		for _, dep := range g.nodes[id].deps {
			if _, skip := exclude[dep]; !skip {
				count++
			}
		}
		inDegree[id] = count
		if count == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(inDegree))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		for _, dependent := range g.nodes[id].dependents {
			if _, skip := exclude[dependent]; skip {
				continue
			}
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = insertSorted(ready, dependent)
			}
		}
	}

	if len(order) != len(inDegree) {
		var remaining []string
		for id, d := range inDegree {
			if d > 0 {
				remaining = append(remaining, id)
			}
		}
		sort.Strings(remaining)
		return nil, &attribute.Error{
			Kind: attribute.ErrCyclicGraph,
			ID:   remaining[0],
			Err:  fmt.Errorf("unordered nodes: %s", strings.Join(remaining, ", ")),
		}
	}
	return order, nil
}

// Partition splits the graph into its acyclic order and its cyclic groups.
func (g *Graph) Partition() (*Partition, error) {
	cycles := g.FindCycles()
	exclude := make(map[string]struct{})
	for _, c := range cycles {
		for _, id := range c {
			exclude[id] = struct{}{}
		}
	}
	order, err := g.TopologicalOrder(exclude)
	if err != nil {
		return nil, fmt.Errorf("error ordering acyclic attributes: %w", err)
	}
	return &Partition{Acyclic: order, Cycles: cycles}, nil
}

// insertSorted inserts id into the sorted slice s.
func insertSorted(s []string, id string) []string {
	i := sort.SearchStrings(s, id)
	s = append(s, "")
	copy(s[i+1:], s[i:])
	s[i] = id
	return s
}
