package binding

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jowpereira/LOS/internal/compiler"
	"github.com/jowpereira/LOS/internal/ir"
)

func newService(t *testing.T) *Service {
	t.Helper()
	return NewService(slog.New(slog.DiscardHandler), t.TempDir())
}

func compile(t *testing.T, src string) *ir.Model {
	t.Helper()
	m, err := compiler.Compile(src)
	require.NoError(t, err)
	return m
}

func table(t *testing.T, name string, cols []string, rows ...[]any) *Table {
	t.Helper()
	tb := NewTable(name, cols...)
	for _, r := range rows {
		cells := make([]ir.Value, len(r))
		for i, x := range r {
			v, err := ir.FromAny(x)
			require.NoError(t, err)
			cells[i] = v
		}
		require.NoError(t, tb.Append(cells...))
	}
	return tb
}

func bindCodes(t *testing.T, err error) []string {
	t.Helper()
	var errs BindErrors
	require.True(t, errors.As(err, &errs), "want BindErrors, got %v", err)
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func value(t *testing.T, m *ir.Model, param string, idx ...any) ir.Value {
	t.Helper()
	p := m.Param(param)
	require.NotNil(t, p)
	tup := make(ir.Tuple, len(idx))
	for i, x := range idx {
		v, err := ir.FromAny(x)
		require.NoError(t, err)
		tup[i] = v
	}
	v, ok := p.Lookup(tup)
	require.True(t, ok, "%s%s has no value", param, tup)
	return v
}

const productModel = `
set Products = {A, B, C}
param Cost[Products]
var qty[Products] >= 0
minimize: sum(Cost[p] * qty[p] for p in Products)
`

func TestBindIndexedParameter(t *testing.T) {
	m := compile(t, productModel)
	costs := table(t, "costs", []string{"Products", "Cost"},
		[]any{"A", 10}, []any{"B", 20.5}, []any{"C", 3})

	out, err := newService(t).Bind(context.Background(), m, Sources{"costs": costs}, nil)
	require.NoError(t, err)

	assert.Equal(t, ir.StageBound, out.Stage)
	assert.Equal(t, ir.StageBuilt, m.Stage, "input model is not modified")
	assert.Equal(t, ir.Int(10), value(t, out, "Cost", "A"))
	assert.Equal(t, ir.Float(20.5), value(t, out, "Cost", "B"))
	assert.Equal(t, 3, out.Param("Cost").Data.Len())
	assert.True(t, out.Set("Products").Bound)
}

func TestBindFuzzyColumnNames(t *testing.T) {
	m := compile(t, "set Products = {A, B}\nparam Stock[Products]")
	src := table(t, "inventory", []string{" products", " Stock "}, []any{"A", 5}, []any{"B", 7})

	out, err := newService(t).Bind(context.Background(), m, Sources{"inventory": src}, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(7), value(t, out, "Stock", "B"))
}

func TestBindAmbiguousFuzzyColumns(t *testing.T) {
	m := compile(t, "set Products = {A}\nparam Stock[Products]")
	src := table(t, "inventory", []string{"Products", "stock", "STOCK "}, []any{"A", 1, 2})

	_, err := newService(t).Bind(context.Background(), m, Sources{"inventory": src}, nil)
	assert.Equal(t, []string{ErrAmbiguous}, bindCodes(t, err))
}

func TestBindMissingKeyColumn(t *testing.T) {
	m := compile(t, productModel)
	costs := table(t, "costs", []string{"Prod", "Cost"}, []any{"A", 10}, []any{"B", 20})

	_, err := newService(t).Bind(context.Background(), m, Sources{"costs": costs}, nil)
	require.Error(t, err)
	assert.Equal(t, []string{ErrNoSource}, bindCodes(t, err))
	assert.Contains(t, err.Error(), `key column for index set "Products"`)
	assert.Contains(t, err.Error(), "columns: Prod, Cost")
}

func TestBindRejectsDisjointSource(t *testing.T) {
	m := compile(t, productModel)
	other := table(t, "other", []string{"Products", "Cost"}, []any{"X", 1}, []any{"Y", 2})

	_, err := newService(t).Bind(context.Background(), m, Sources{"other": other}, nil)
	assert.Equal(t, []string{ErrDisjoint}, bindCodes(t, err))
}

func TestBindPrefersIntersectingSource(t *testing.T) {
	m := compile(t, "set Products = {A, B}\nparam Cost[Products]")
	sources := Sources{
		"legacy": table(t, "legacy", []string{"Products", "Cost"}, []any{"X", 1}),
		"prices": table(t, "prices", []string{"Products", "Cost"}, []any{"A", 4}, []any{"B", 5}, []any{"Z", 9}),
	}

	out, err := newService(t).Bind(context.Background(), m, sources, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(4), value(t, out, "Cost", "A"))
	assert.Equal(t, 2, out.Param("Cost").Data.Len(), "row Z is outside the index set")
}

func TestBindMissingIndexWithoutDefault(t *testing.T) {
	m := compile(t, productModel)
	costs := table(t, "costs", []string{"Products", "Cost"}, []any{"A", 10}, []any{"B", 20})

	_, err := newService(t).Bind(context.Background(), m, Sources{"costs": costs}, nil)
	var errs BindErrors
	require.ErrorAs(t, err, &errs)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrMissingIndex, errs[0].Code)
	assert.Equal(t, "Cost", errs[0].Target)
	assert.Equal(t, "[C]", errs[0].Index)
}

func TestBindDefaultFillsGaps(t *testing.T) {
	m := compile(t, "set Products = {A, B, C}\nparam Cost[Products] = 7\nparam Rate = 0.5")
	costs := table(t, "costs", []string{"Products", "Cost"}, []any{"A", 10})

	out, err := newService(t).Bind(context.Background(), m, Sources{"costs": costs}, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(10), value(t, out, "Cost", "A"))
	assert.Equal(t, ir.Int(7), value(t, out, "Cost", "C"))
	assert.Equal(t, ir.Float(0.5), value(t, out, "Rate"))
}

func TestBindConflictingRows(t *testing.T) {
	m := compile(t, "set Products = {A}\nparam Cost[Products]")
	costs := table(t, "costs", []string{"Products", "Cost"}, []any{"A", 1}, []any{"A", 2})

	_, err := newService(t).Bind(context.Background(), m, Sources{"costs": costs}, nil)
	assert.Equal(t, []string{ErrAmbiguous}, bindCodes(t, err))
}

func TestBindRepeatedRowsWithSameValue(t *testing.T) {
	m := compile(t, "set Products = {A}\nparam Cost[Products]")
	costs := table(t, "costs", []string{"Products", "Cost"}, []any{"A", 1}, []any{"A", 1.0})

	out, err := newService(t).Bind(context.Background(), m, Sources{"costs": costs}, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(1), value(t, out, "Cost", "A"))
}

func TestBindImportedSets(t *testing.T) {
	m := compile(t, `
set Customers
param demand[Customers, Plants]
`)
	sources := Sources{
		"customers": table(t, "customers", []string{"id"}, []any{"c1"}, []any{"c2"}),
		"routes": table(t, "routes", []string{"Customers", "Plants", "demand"},
			[]any{"c1", "p1", 3}, []any{"c1", "p2", 4}, []any{"c2", "p1", 5}, []any{"c2", "p2", 6}),
	}

	out, err := newService(t).Bind(context.Background(), m, sources, nil)
	require.NoError(t, err)
	assert.Equal(t, []ir.Value{ir.String("c1"), ir.String("c2")}, out.Set("Customers").Members(),
		"source named like the set contributes its first column")
	assert.Equal(t, []ir.Value{ir.String("p1"), ir.String("p2")}, out.Set("Plants").Members())
	assert.Equal(t, ir.Int(6), value(t, out, "demand", "c2", "p2"))
}

func TestBindRepeatedIndexSet(t *testing.T) {
	m := compile(t, "set Nodes = {a, b}\nparam dist[Nodes, Nodes]")
	src := table(t, "arcs", []string{"Nodes", "Nodes", "dist"},
		[]any{"a", "a", 0}, []any{"a", "b", 2}, []any{"b", "a", 3}, []any{"b", "b", 0})

	out, err := newService(t).Bind(context.Background(), m, Sources{"arcs": src}, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(3), value(t, out, "dist", "b", "a"))
}

func TestBindMissingSetSource(t *testing.T) {
	m := compile(t, "set Depots\nparam cap[Depots]")

	_, err := newService(t).Bind(context.Background(), m, nil, nil)
	var errs BindErrors
	require.ErrorAs(t, err, &errs)
	require.Len(t, errs, 1, "parameters over an unbound set are not reported again")
	assert.Equal(t, ErrNoSource, errs[0].Code)
	assert.Equal(t, "Depots", errs[0].Target)
}

func TestBindScalarParameter(t *testing.T) {
	m := compile(t, "param Budget\nparam Rate")
	settings := table(t, "settings", []string{"Budget", "Rate"}, []any{100, 0.1}, []any{"", 0.2})

	_, err := newService(t).Bind(context.Background(), m, Sources{"settings": settings}, nil)
	var errs BindErrors
	require.ErrorAs(t, err, &errs)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrAmbiguous, errs[0].Code)
	assert.Equal(t, "Rate", errs[0].Target)

	m = compile(t, "param Budget")
	out, err := newService(t).Bind(context.Background(), m, Sources{"settings": settings}, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(100), value(t, out, "Budget"))
}

func TestBindFilteredSet(t *testing.T) {
	m := compile(t, `
set Products = {A, B, C}
set Cheap = {p in Products where Cost[p] < 10}
param Cost[Products]
`)
	costs := table(t, "costs", []string{"Products", "Cost"}, []any{"A", 5}, []any{"B", 15}, []any{"C", 9.5})

	out, err := newService(t).Bind(context.Background(), m, Sources{"costs": costs}, nil)
	require.NoError(t, err)
	assert.Equal(t, []ir.Value{ir.String("A"), ir.String("C")}, out.Set("Cheap").Members())
}

func TestBindOverrides(t *testing.T) {
	m := compile(t, `
set Products
param Cost[Products]
param Budget
param dist[Products, Products] = 0
`)
	out, err := newService(t).Bind(context.Background(), m, nil, map[string]any{
		"Products": []string{"A", "B"},
		"Cost":     map[string]float64{"A": 1.5, "B": 2},
		"Budget":   50,
		"dist":     map[string]any{"A": map[string]any{"B": 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Set("Products").Len())
	assert.Equal(t, ir.Float(2), value(t, out, "Cost", "B"))
	assert.Equal(t, ir.Int(50), value(t, out, "Budget"))
	assert.Equal(t, ir.Int(4), value(t, out, "dist", "A", "B"))
	assert.Equal(t, ir.Int(0), value(t, out, "dist", "B", "A"))
}

func TestBindOverrideTakesPrecedenceOverSource(t *testing.T) {
	m := compile(t, "set Products = {A}\nparam Cost[Products]")
	costs := table(t, "costs", []string{"Products", "Cost"}, []any{"A", 10})

	out, err := newService(t).Bind(context.Background(), m, Sources{"costs": costs},
		map[string]any{"Cost": map[string]any{"A": 99}})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(99), value(t, out, "Cost", "A"))
}

func TestBindInvalidOverrides(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
	}{
		{"unknown target", map[string]any{"Nope": 1}},
		{"key outside set", map[string]any{"Cost": map[string]float64{"Z": 1}}},
		{"bad set shape", map[string]any{"Products": 42}},
		{"bad scalar", map[string]any{"Budget": []int{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := compile(t, "set Products = {A}\nparam Cost[Products] = 1\nparam Budget = 0")
			_, err := newService(t).Bind(context.Background(), m, nil, tt.overrides)
			assert.Contains(t, bindCodes(t, err), ErrInvalidOverride)
		})
	}
}

func TestBindRequiresBuiltStage(t *testing.T) {
	m := compile(t, "set P = {A}").WithStage(ir.StageBound)
	_, err := newService(t).Bind(context.Background(), m, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want built")
}

func TestBindHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newService(t).Bind(ctx, compile(t, "set P = {A}"), nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
