// Package config defines the format-agnostic model definition and the
// Loader interface that produces it.
//
// The `config.Model` is the single source of truth for the attribute store:
// Define turns it into attribute and block definitions, resolving named
// formula functions against a registry. Concrete loaders, such as the HCL
// one, live in separate packages.
package config
