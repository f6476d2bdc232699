// Package depgraph derives the dependency structure of a model and answers
// ordering questions about it.
//
// Edges point from a dependency to its dependent. Unlike a plain DAG, the
// graph may contain cycles: FindCycles reports them as strongly connected
// components (Tarjan, linear time), TopologicalOrder orders whatever is left
// once they are excluded, and Plan returns the condensation that the
// evaluator schedules, with each cycle collapsed into a single unit.
//
// All orderings are deterministic for a given set of definitions.
package depgraph
