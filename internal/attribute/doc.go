// Package attribute defines the data model shared by every layer of the
// engine: attribute definitions, blocks, and the error taxonomy.
//
// Definitions are plain values. A store owns them once defined and hands out
// clones, so nothing downstream can mutate a definition after the fact.
package attribute
