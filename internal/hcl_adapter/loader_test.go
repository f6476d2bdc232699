package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/loopgrid/internal/attribute"
	"github.com/specialistvlad/loopgrid/internal/attrstore"
	"github.com/specialistvlad/loopgrid/internal/formula"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_LoadsBlocks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.hcl", `
block "inputs" {
  name        = "Inputs"
  description = "Exogenous values"

  input "price" {
    name  = "Price"
    value = 2.5
  }
  input "volume" {
    value = 10
  }
}
`)
	writeFile(t, dir, "nested/b.hcl", `
block "derived" {
  derived "revenue" {
    expression = price * volume * param.factor
    params     = { factor = 2 }
  }
  derived "echo" {
    function   = "echo"
    depends_on = ["revenue"]
    seed       = 1
  }
}
`)
	writeFile(t, dir, "ignored.txt", `not hcl`)

	model, err := NewLoader().Load(context.Background(), dir, filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.Len(t, model.Blocks, 2)

	inputs := model.Blocks[0]
	assert.Equal(t, "inputs", inputs.ID)
	assert.Equal(t, "Inputs", inputs.Name)
	assert.Equal(t, "Exogenous values", inputs.Description)
	require.Len(t, inputs.Attributes, 2)
	assert.Equal(t, attribute.Input, inputs.Attributes[0].Kind)
	assert.Equal(t, "Price", inputs.Attributes[0].Name)
	require.NotNil(t, inputs.Attributes[0].Value)
	assert.Equal(t, 2.5, *inputs.Attributes[0].Value)

	derived := model.Blocks[1].Attributes
	require.Len(t, derived, 2)
	revenue := derived[0]
	require.NotNil(t, revenue.Expression)
	assert.Equal(t, "price * volume * param.factor", revenue.Expression.Source())
	assert.Equal(t, []string{"price", "volume"}, revenue.Dependencies())
	assert.Equal(t, map[string]float64{"factor": 2}, revenue.Params)
	assert.Nil(t, revenue.Seed)

	echo := derived[1]
	assert.Nil(t, echo.Expression)
	assert.Equal(t, "echo", echo.Function)
	assert.Equal(t, []string{"revenue"}, echo.DependsOn)
	require.NotNil(t, echo.Seed)
	assert.Equal(t, 1.0, *echo.Seed)

	reg := formula.NewRegistry()
	reg.Register("echo", func(in formula.Inputs) (float64, error) { return in.Value("revenue"), nil })
	store := attrstore.New()
	require.NoError(t, model.Define(context.Background(), store, reg))
	assert.Equal(t, 4, store.Len())
}

func TestLoader_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "model.hcl", `
block "b" {
  input "x" {
    value = 1
  }
}
`)
	model, err := NewLoader().Load(context.Background(), path, path)
	require.NoError(t, err)
	assert.Len(t, model.Blocks, 1, "the same file is loaded once")
}

func TestLoader_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"syntax error", `block "b" {`},
		{"unknown block type", `widget "w" {}`},
		{"unknown attribute", `
block "b" {
  input "x" {
    value = 1
    color = "red"
  }
}`},
		{"bad value type", `
block "b" {
  input "x" {
    value = "ten"
  }
}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "model.hcl", tc.content)
			_, err := NewLoader().Load(context.Background(), dir)
			assert.Error(t, err)
		})
	}
}

func TestLoader_ExampleModels(t *testing.T) {
	for _, dir := range []string{"production", "pricing_loop"} {
		t.Run(dir, func(t *testing.T) {
			model, err := NewLoader().Load(context.Background(), filepath.Join("..", "..", "models", dir))
			require.NoError(t, err)
			assert.NotEmpty(t, model.Blocks)
		})
	}
}
