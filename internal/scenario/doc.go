// Package scenario builds per-request evaluation contexts by layering input
// overrides on a base snapshot, and reads named scenarios from YAML files.
package scenario
