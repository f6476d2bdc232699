// Package attrstore provides the thread-safe, in-memory attribute store.
//
// # Lifecycle
//
// The store is populated once, from code or from a loaded model, and is then
// read-only for the lifetime of any evaluation. Many scenarios may read the
// same store concurrently without coordination, because each evaluation
// starts from a Snapshot: a private copy of the base values.
//
// # Definition order
//
// Definitions are append-only. A dependency must already be defined, or be
// defined in the same Define call. Batches are what make feedback loops
// expressible: the members of a cycle are introduced together.
package attrstore
