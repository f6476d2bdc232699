// Package app wires a model, the evaluator and the scenario files into one
// run: it loads definitions through a config.Loader, evaluates the baseline
// and every selected scenario, and renders the report.
package app
