// Package hcl_adapter loads model definitions written in HCL and translates
// them into the format-agnostic config.Model.
//
// A model file holds `block` definitions, each with `input` and `derived`
// children. A derived attribute is either an inline `expression`, whose
// variables become its dependencies, or a registered Go `function` with an
// explicit `depends_on` list.
package hcl_adapter
