package depgraph

import (
	"fmt"
	"sort"
)

// Plan builds the condensation of the graph: one unit per strongly connected
// component, in topological order. Among units that are ready at the same
// time the one with the smallest first member comes first.
func (g *Graph) Plan() (*Plan, error) {
	comps := g.components()
	sort.Slice(comps, func(i, j int) bool { return comps[i][0] < comps[j][0] })

	compOf := make(map[string]int, len(g.ids))
	for i, comp := range comps {
		for _, id := range comp {
			compOf[id] = i
		}
	}

	// Condensation edges, deduplicated.
	deps := make([]map[int]struct{}, len(comps))
	dependents := make([]map[int]struct{}, len(comps))
	for i := range comps {
		deps[i] = make(map[int]struct{})
		dependents[i] = make(map[int]struct{})
	}
	for _, id := range g.ids {
		to := compOf[id]
		for _, dep := range g.nodes[id].deps {
			from := compOf[dep]
			if from == to {
				continue
			}
			deps[to][from] = struct{}{}
			dependents[from][to] = struct{}{}
		}
	}

	// Kahn's algorithm over components; comps are sorted by first member, so
	// ordering the ready set by component index is ordering by first member.
	inDegree := make([]int, len(comps))
	var ready []int
	for i := range comps {
		inDegree[i] = len(deps[i])
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}
	var order []int
	for len(ready) > 0 {
		c := ready[0]
		ready = ready[1:]
		order = append(order, c)
		for _, d := range sortedKeys(dependents[c]) {
			inDegree[d]--
			if inDegree[d] == 0 {
				i := sort.SearchInts(ready, d)
				ready = append(ready, 0)
				copy(ready[i+1:], ready[i:])
				ready[i] = d
			}
		}
	}
	if len(order) != len(comps) {
		// The condensation of any graph is acyclic; reaching this is a bug.
		return nil, fmt.Errorf("internal error: condensation ordered %d of %d components", len(order), len(comps))
	}

	position := make([]int, len(comps))
	for pos, c := range order {
		position[c] = pos
	}

	plan := &Plan{
		Units:  make([]*Unit, len(order)),
		unitOf: make(map[string]int, len(g.ids)),
	}
	for pos, c := range order {
		members := comps[c]
		u := &Unit{
			Index:   pos,
			Members: members,
			Cyclic:  len(members) > 1 || g.selfLoop(members[0]),
		}
		for _, d := range sortedKeys(deps[c]) {
			u.Deps = append(u.Deps, position[d])
		}
		for _, d := range sortedKeys(dependents[c]) {
			u.Dependents = append(u.Dependents, position[d])
		}
		sort.Ints(u.Deps)
		sort.Ints(u.Dependents)
		for _, id := range members {
			plan.unitOf[id] = pos
		}
		plan.Units[pos] = u
	}
	return plan, nil
}

func sortedKeys(m map[int]struct{}) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
