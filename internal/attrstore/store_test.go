package attrstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/specialistvlad/loopgrid/internal/attribute"
	"github.com/specialistvlad/loopgrid/internal/formula"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(deps ...string) formula.Func {
	return func(in formula.Inputs) (float64, error) {
		var total float64
		for _, d := range deps {
			total += in.Value(d)
		}
		return total, nil
	}
}

func TestDefineAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Define(ctx, attribute.NewInput("a", 10)))
	require.NoError(t, s.Define(ctx, attribute.NewDerived("b", sum("a"), "a")))

	v, ok, err := s.Get("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 10.0, v)

	// Derived attributes have no value until something sets one.
	_, ok, err = s.Get("b")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("b", 3))
	v, ok, err = s.Get("b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)

	assert.Equal(t, 2, s.Len())
}

func TestGet_UnknownAttribute(t *testing.T) {
	s := New()

	_, _, err := s.Get("ghost")
	require.ErrorIs(t, err, attribute.ErrUnknownAttribute)

	err = s.Set("ghost", 1)
	require.ErrorIs(t, err, attribute.ErrUnknownAttribute)
}

func TestDefine_DuplicateID(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Define(ctx, attribute.NewInput("a", 1)))
	err := s.Define(ctx, attribute.NewInput("a", 2))
	require.ErrorIs(t, err, attribute.ErrDuplicateID)

	id, ok := attribute.AttributeID(err)
	require.True(t, ok)
	assert.Equal(t, "a", id)

	// The original value is untouched.
	v, _, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
}

func TestDefine_UnknownDependencyLeavesStoreUnchanged(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Define(ctx, attribute.NewInput("a", 1)))
	rev := s.Revision()

	err := s.Define(ctx,
		attribute.NewInput("b", 2),
		attribute.NewDerived("c", sum("a", "later"), "a", "later"),
	)
	require.ErrorIs(t, err, attribute.ErrUnknownDependency)

	var ae *attribute.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "c", ae.ID)
	assert.Equal(t, "later", ae.Ref)

	// Nothing from the failed batch was registered.
	assert.Equal(t, 1, s.Len())
	_, ok := s.Attribute("b")
	assert.False(t, ok)
	assert.Equal(t, rev, s.Revision())
}

func TestDefine_CycleInOneBatch(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Define(ctx,
		attribute.NewDerived("x", sum("y"), "y"),
		attribute.NewDerived("y", sum("x"), "x"),
	)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestDefine_InvalidShapes(t *testing.T) {
	s := New()
	ctx := context.Background()

	testCases := []struct {
		name string
		attr attribute.Attribute
	}{
		{"empty id", attribute.NewInput("", 1)},
		{"reserved id", attribute.NewInput("param", 1)},
		{"input with deps", attribute.Attribute{ID: "i", Kind: attribute.Input, Dependencies: []string{"x"}}},
		{"input with formula", attribute.Attribute{ID: "i", Kind: attribute.Input, Formula: formula.Constant(1)}},
		{"derived without formula", attribute.Attribute{ID: "d", Kind: attribute.Derived}},
		{"repeated dependency", attribute.NewDerived("d", formula.Constant(1), "d0", "d0")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Define(ctx, tc.attr)
			require.ErrorIs(t, err, attribute.ErrInvalidDefinition)
		})
	}
	assert.Equal(t, 0, s.Len())
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Define(ctx, attribute.NewInput("a", 1)))

	snap := s.Snapshot()
	require.NoError(t, s.Set("a", 99))

	v, ok := snap.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	m := snap.Map()
	m["a"] = 42
	v, _ = snap.Get("a")
	assert.Equal(t, 1.0, v)
}

func TestAttributes_ReturnsClonesInOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Define(ctx,
		attribute.NewInput("first", 1),
		attribute.NewDerived("second", sum("first"), "first"),
	))

	attrs := s.Attributes()
	require.Len(t, attrs, 2)
	assert.Equal(t, "first", attrs[0].ID)
	assert.Equal(t, "second", attrs[1].ID)

	attrs[1].Dependencies[0] = "mutated"
	again, ok := s.Attribute("second")
	require.True(t, ok)
	assert.Equal(t, []string{"first"}, again.Dependencies)
}

func TestDefineBlock(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Define(ctx, attribute.NewInput("shared", 1)))
	err := s.DefineBlock(ctx,
		attribute.Block{ID: "supply", Name: "Supply Chain", Attributes: []string{"shared"}},
		attribute.NewInput("material_cost", 25000),
		attribute.NewInput("labor_cost", 15000),
	)
	require.NoError(t, err)

	b, ok := s.Block("supply")
	require.True(t, ok)
	assert.Equal(t, []string{"shared", "material_cost", "labor_cost"}, b.Attributes)

	err = s.DefineBlock(ctx, attribute.Block{ID: "supply"})
	require.ErrorIs(t, err, attribute.ErrDuplicateID)

	err = s.DefineBlock(ctx, attribute.Block{ID: "bad", Attributes: []string{"nowhere"}}, attribute.NewInput("z", 0))
	require.ErrorIs(t, err, attribute.ErrUnknownAttribute)
	_, ok = s.Attribute("z")
	assert.False(t, ok, "failed block must not register its attributes")

	assert.Len(t, s.Blocks(), 1)
}

func TestSetAll(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Define(ctx, attribute.NewInput("a", 1), attribute.NewInput("b", 2)))

	require.NoError(t, s.SetAll(NewSnapshot(map[string]float64{"a": 5})))
	v, _, _ := s.Get("a")
	assert.Equal(t, 5.0, v)

	err := s.SetAll(NewSnapshot(map[string]float64{"a": 7, "nope": 1}))
	require.ErrorIs(t, err, attribute.ErrUnknownAttribute)
	v, _, _ = s.Get("a")
	assert.Equal(t, 5.0, v)
}

func TestConcurrentReads(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Define(ctx, attribute.NewInput("a", 1)))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap := s.Snapshot()
			v, ok := snap.Get("a")
			assert.True(t, ok)
			assert.Equal(t, 1.0, v)
			_ = s.Attributes()
		}()
	}
	wg.Wait()
}
