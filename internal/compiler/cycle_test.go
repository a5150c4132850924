package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jowpereira/LOS/internal/ir"
)

func TestBindingOrder_DependenciesFirst(t *testing.T) {
	m, err := Compile(`
set Cheap = {p in Products where cost[p] < 10}
param cost[Products]
set Products = {A, B}
param pick[Cheap]
minimize: 0
`)
	require.NoError(t, err)

	pos := func(node string) int {
		for i, n := range m.Order {
			if n == node {
				return i
			}
		}
		t.Fatalf("%s missing from order %v", node, m.Order)
		return -1
	}
	assert.Less(t, pos("set:Products"), pos("param:cost"))
	assert.Less(t, pos("param:cost"), pos("set:Cheap"))
	assert.Less(t, pos("set:Cheap"), pos("param:pick"))
	assert.Len(t, m.Order, 4)
}

func TestBindingOrder_SelfLoop(t *testing.T) {
	m := &ir.Model{Sets: []*ir.Set{{
		Name:   "S",
		Source: ir.SetFiltered,
		Filter: &ir.SetFilter{Var: "s", Of: "S", Cond: &ir.Literal{Value: ir.Bool(true)}},
	}}}
	m.Reindex()

	order, cycles := BindingOrder(m)
	assert.Empty(t, order)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"set:S", "set:S"}, cycles[0].Path)
}

func TestBindingOrder_NoDeclarations(t *testing.T) {
	order, cycles := BindingOrder(&ir.Model{})
	assert.Empty(t, order)
	assert.Empty(t, cycles)
}

func TestBindingOrder_IgnoresUnknownDependencies(t *testing.T) {
	m := &ir.Model{Params: []*ir.Parameter{{Name: "c", Index: []string{"Missing"}}}}
	m.Reindex()
	order, cycles := BindingOrder(m)
	assert.Equal(t, []string{"param:c"}, order)
	assert.Empty(t, cycles)
}
