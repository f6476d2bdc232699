package depgraph

import (
	"sort"
)

// FindCycles returns every strongly connected component with more than one
// member, plus every single node that reads itself. Members of each group are
// sorted by id and groups are ordered by their first member.
func (g *Graph) FindCycles() [][]string {
	var cycles [][]string
	for _, comp := range g.components() {
		if len(comp) > 1 || g.selfLoop(comp[0]) {
			cycles = append(cycles, comp)
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

// components runs Tarjan's algorithm and returns all strongly connected
// components, each sorted by id. It uses an explicit call stack so deep
// dependency chains cannot overflow the goroutine stack.
func (g *Graph) components() [][]string {
	index := 0
	indexOf := make(map[string]int, len(g.ids))
	lowLink := make(map[string]int, len(g.ids))
	onStack := make(map[string]bool, len(g.ids))
	var stack []string
	var comps [][]string

	type frame struct {
		id   string
		next int // next dependent to visit
	}

	visit := func(id string) {
		indexOf[id] = index
		lowLink[id] = index
		index++
		stack = append(stack, id)
		onStack[id] = true
	}

	for _, start := range g.ids {
		if _, seen := indexOf[start]; seen {
			continue
		}
		visit(start)
		callStack := []frame{{id: start}}

		for len(callStack) > 0 {
			top := &callStack[len(callStack)-1]
			n := g.nodes[top.id]

			if top.next < len(n.dependents) {
				w := n.dependents[top.next]
				top.next++
				if _, seen := indexOf[w]; !seen {
					visit(w)
					callStack = append(callStack, frame{id: w})
				} else if onStack[w] {
					lowLink[top.id] = min(lowLink[top.id], indexOf[w])
				}
				continue
			}

			// Every edge of v is done: pop the frame and propagate low-link.
			v := top.id
			callStack = callStack[:len(callStack)-1]
			if len(callStack) > 0 {
				parent := callStack[len(callStack)-1].id
				lowLink[parent] = min(lowLink[parent], lowLink[v])
			}

			if lowLink[v] == indexOf[v] {
				var comp []string
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					comp = append(comp, w)
					if w == v {
						break
					}
				}
				sort.Strings(comp)
				comps = append(comps, comp)
			}
		}
	}
	return comps
}
