// Package evaluator resolves a model to a complete value mapping.
//
// The dependency graph is condensed into units, single attributes or whole
// cyclic groups, and the units are executed by a small worker pool as soon
// as everything they read is final. A cyclic group is solved by fixed-point
// iteration with simultaneous (Jacobi) updates until every member's relative
// change drops below the tolerance in the same round, or the round budget is
// spent. Each group yields a ConvergenceRecord.
package evaluator
