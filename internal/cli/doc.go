// Package cli maps the loopgrid command line onto app.Config and turns
// application failures into process exit codes.
package cli
