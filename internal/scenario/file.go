package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Scenario is a named set of hypothetical input values.
type Scenario struct {
	Name        string             `yaml:"name" toml:"name"`
	Description string             `yaml:"description,omitempty" toml:"description"`
	Overrides   map[string]float64 `yaml:"overrides" toml:"overrides"`
}

// file is the on-disk layout of a scenario file.
type file struct {
	Scenarios []Scenario `yaml:"scenarios" toml:"scenarios"`
}

// LoadFile reads scenarios from a YAML file, or a TOML file when the name
// ends in .toml.
func LoadFile(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	parse := Parse
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		parse = ParseTOML
	}
	scenarios, err := parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("scenario file %s: %w", path, err)
	}
	return scenarios, nil
}

// Parse decodes scenarios from YAML. Names must be present and unique.
func Parse(r io.Reader) ([]Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode scenarios: %w", err)
	}
	return validate(f)
}

// ParseTOML decodes scenarios from TOML, one [[scenarios]] table each.
func ParseTOML(r io.Reader) ([]Scenario, error) {
	var f file
	md, err := toml.NewDecoder(r).Decode(&f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode scenarios: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("failed to decode scenarios: unknown key %q", undecoded[0].String())
	}
	return validate(f)
}

func validate(f file) ([]Scenario, error) {
	seen := make(map[string]struct{}, len(f.Scenarios))
	for i, s := range f.Scenarios {
		if s.Name == "" {
			return nil, fmt.Errorf("scenario #%d has no name", i+1)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("scenario %q is defined more than once", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return f.Scenarios, nil
}

// Filter returns the scenarios whose names are listed, in file order. An
// empty names list keeps everything. Unknown names are an error.
func Filter(all []Scenario, names []string) ([]Scenario, error) {
	if len(names) == 0 {
		return all, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = false
	}
	var out []Scenario
	for _, s := range all {
		if _, ok := want[s.Name]; ok {
			want[s.Name] = true
			out = append(out, s)
		}
	}
	for _, n := range names {
		if !want[n] {
			return nil, fmt.Errorf("scenario %q not found", n)
		}
	}
	return out, nil
}
