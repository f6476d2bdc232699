package hcl_adapter

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot is used to decode the top-level blocks of a file. Anything else
// at the top level is rejected.
type fileRoot struct {
	Blocks []*Block `hcl:"block,block"`
}

// Block represents a `block` from a model file: a named group of
// attributes.
type Block struct {
	ID          string     `hcl:"id,label"`
	Name        string     `hcl:"name,optional"`
	Description string     `hcl:"description,optional"`
	Inputs      []*Input   `hcl:"input,block"`
	Derived     []*Derived `hcl:"derived,block"`
}

// Input represents an `input` block: an exogenous value.
type Input struct {
	ID    string   `hcl:"id,label"`
	Name  string   `hcl:"name,optional"`
	Value *float64 `hcl:"value,optional"`
}

// Derived represents a `derived` block. Exactly one of Expression and
// Function must be set.
type Derived struct {
	ID         string             `hcl:"id,label"`
	Name       string             `hcl:"name,optional"`
	Expression hcl.Expression     `hcl:"expression,optional"`
	Function   string             `hcl:"function,optional"`
	DependsOn  []string           `hcl:"depends_on,optional"`
	Params     map[string]float64 `hcl:"params,optional"`
	Seed       *float64           `hcl:"seed,optional"`
	Value      *float64           `hcl:"value,optional"`
}
