package depgraph

// Graph is the dependency structure derived from a set of attribute
// definitions. It is immutable once built, so it is safe for concurrent reads.
type Graph struct {
	// nodes stores all nodes in the graph, keyed by attribute id.
	nodes map[string]*node
	// ids holds every node id, sorted, for deterministic iteration.
	ids []string
	// edges is the number of dependency relationships.
	edges int
	// revision is the store revision the graph was built from, if any.
	revision uint64
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string IDs).
type node struct {
	id string
	// deps holds the ids this node reads, sorted.
	deps []string
	// dependents holds the ids that read this node, sorted.
	dependents []string
}

// Partition splits the node set into the acyclic part, in dependency order,
// and the cyclic groups. Every node appears in exactly one of the two.
type Partition struct {
	Acyclic []string
	Cycles  [][]string
}

// Unit is one vertex of the condensation: either a single acyclic attribute
// or a whole cyclic group, which is evaluated as one piece of work.
type Unit struct {
	// Index is the position of the unit in Plan.Units.
	Index int
	// Members is the sorted member list; length one for acyclic units.
	Members []string
	// Cyclic is true for strongly connected groups, including self-loops.
	Cyclic bool
	// Deps are the indexes of units this unit reads from.
	Deps []int
	// Dependents are the indexes of units that read from this unit.
	Dependents []int
}

// Plan is the condensation of the graph in topological order: every unit
// appears after all the units it depends on.
type Plan struct {
	Units []*Unit
	// unitOf maps an attribute id to the index of its unit.
	unitOf map[string]int
}

// UnitOf returns the index of the unit containing id.
func (p *Plan) UnitOf(id string) (int, bool) {
	i, ok := p.unitOf[id]
	return i, ok
}

// Cycles returns the member lists of all cyclic units, in plan order.
func (p *Plan) Cycles() [][]string {
	var out [][]string
	for _, u := range p.Units {
		if u.Cyclic {
			out = append(out, u.Members)
		}
	}
	return out
}
