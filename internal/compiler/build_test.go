package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jowpereira/LOS/internal/ir"
)

func buildErrors(t *testing.T, err error) BuildErrors {
	t.Helper()
	var errs BuildErrors
	require.ErrorAs(t, err, &errs)
	return errs
}

func codes[E interface{ ~[]T }, T any](es E, code func(T) string) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = code(e)
	}
	return out
}

func TestCompileScenarioModel(t *testing.T) {
	m, err := Compile(`
set Products = {A, B}
param Cost[Products]
var qty[Products] >= 0
minimize: sum(qty[p] * Cost[p] for p in Products)
subject to:
  qty[A] + qty[B] >= 1
`)
	require.NoError(t, err)
	assert.Equal(t, ir.StageBuilt, m.Stage)

	products := m.Set("Products")
	require.NotNil(t, products)
	assert.Equal(t, ir.SetLiteral, products.Source)
	assert.Equal(t, []ir.Value{ir.String("A"), ir.String("B")}, products.Literal)

	qty := m.Var("qty")
	require.NotNil(t, qty)
	assert.Equal(t, ir.DomainContinuous, qty.Domain)
	assert.Equal(t, 0.0, qty.Lower)

	agg := m.Objective.Expr.(*ir.Aggregate)
	body := agg.Body.(*ir.Binary)
	assert.IsType(t, &ir.VarRef{}, body.Left)
	assert.IsType(t, &ir.ParamRef{}, body.Right)
	assert.IsType(t, &ir.Ident{}, body.Left.(*ir.VarRef).Index[0])

	require.Len(t, m.Constraints, 1)
	c := m.Constraints[0]
	assert.Equal(t, "c1", c.Name)
	assert.True(t, c.Auto)
	assert.Equal(t, ir.OpGe, c.Rel)
	lhs := c.Left.(*ir.Binary)
	idx := lhs.Left.(*ir.VarRef).Index[0].(*ir.Literal)
	assert.Equal(t, ir.String("A"), idx.Value, "bare index word is a member literal")

	assert.Equal(t, []string{"set:Products", "param:Cost"}, m.Order)
}

func TestBuildIsolatedBetweenCalls(t *testing.T) {
	_, err := Compile("set P = {A}\nvar x[P]\nminimize: sum(x[p] for p in P)")
	require.NoError(t, err)

	// A second compile that declares the same names must not see the first.
	m, err := Compile("set P = {B}\nvar x[P]\nminimize: sum(x[p] for p in P)")
	require.NoError(t, err)
	assert.Equal(t, []ir.Value{ir.String("B")}, m.Set("P").Literal)
}

func TestBuildDuplicateDeclarations(t *testing.T) {
	_, err := Compile(`
set P = {A}
set P = {B}
param P
var x
var x
minimize: x
`)
	errs := buildErrors(t, err)
	assert.Equal(t, []string{ErrDuplicateDecl, ErrDuplicateDecl, ErrDuplicateDecl},
		codes(errs, func(e *BuildError) string { return e.Code }))
	assert.Equal(t, 3, errs[0].Line)
}

func TestBuildMultipleObjectives(t *testing.T) {
	_, err := Compile("var x\nminimize: x\nmaximize: x")
	errs := buildErrors(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrMultipleObjectives, errs[0].Code)
	assert.Equal(t, 3, errs[0].Line)
}

func TestBuildSetDefinitions(t *testing.T) {
	m, err := Compile(`
set T = 1..10 step 4
set N = -2..1
set Big = -9007199254740993..-9007199254740993
set Mixed = {1, "two", 3.0}
set Imported
minimize: 0
`)
	require.NoError(t, err)
	assert.Equal(t, ir.Range{From: 1, To: 10, Step: 4}, *m.Set("T").Range)
	assert.Equal(t, ir.Range{From: -2, To: 1, Step: 1}, *m.Set("N").Range)
	assert.Equal(t, ir.Range{From: -9007199254740993, To: -9007199254740993, Step: 1}, *m.Set("Big").Range)
	assert.Equal(t, []ir.Value{ir.Int(1), ir.String("two"), ir.Int(3)}, m.Set("Mixed").Literal)
	assert.Equal(t, ir.SetImported, m.Set("Imported").Source)
	assert.False(t, m.Set("Imported").Implicit)
}

func TestBuildSetErrors(t *testing.T) {
	_, err := Compile(`
set A = {x, y, x}
set R = 1..5 step 0
set F = 1.5..3
set H = 1..9000000000000000000
minimize: 0
`)
	errs := buildErrors(t, err)
	assert.Equal(t, []string{ErrDuplicateMember, ErrInvalidRange, ErrInvalidRange, ErrInvalidRange},
		codes(errs, func(e *BuildError) string { return e.Code }))
}

func TestBuildImplicitSets(t *testing.T) {
	m, err := Compile(`
param demand[Customers]
var x[Customers, Plants]
minimize: sum(x[c, p] for c in Customers, p in Plants)
`)
	require.NoError(t, err)
	for _, name := range []string{"Customers", "Plants"} {
		s := m.Set(name)
		require.NotNil(t, s, name)
		assert.True(t, s.Implicit)
		assert.Equal(t, ir.SetImported, s.Source)
	}
}

func TestBuildVariableDomainsAndBounds(t *testing.T) {
	m, err := Compile(`
var a : int >= -3 <= 7
var b : binary
var c : inteiro
var d <= 10
minimize: a + b + c + d
`)
	require.NoError(t, err)
	a := m.Var("a")
	assert.Equal(t, ir.DomainInteger, a.Domain)
	assert.Equal(t, -3.0, a.Lower)
	assert.Equal(t, 7.0, a.Upper)
	assert.Equal(t, ir.DomainBinary, m.Var("b").Domain)
	assert.Equal(t, 1.0, m.Var("b").Upper)
	assert.Equal(t, ir.DomainInteger, m.Var("c").Domain)
	assert.Equal(t, 10.0, m.Var("d").Upper)
	assert.Equal(t, 0.0, m.Var("d").Lower)
}

func TestBuildUnknownDomain(t *testing.T) {
	_, err := Compile("var a : complex\nminimize: a")
	errs := buildErrors(t, err)
	assert.Equal(t, ErrInvalidDomain, errs[0].Code)
}

func TestBuildParamDefault(t *testing.T) {
	m, err := Compile("set P = {A}\nparam c[P] = -2.5\nparam k = 2 ^ 3\nminimize: 0")
	require.NoError(t, err)
	assert.Equal(t, ir.Float(-2.5), *m.Param("c").Default)
	assert.Equal(t, ir.Int(8), *m.Param("k").Default)

	_, err = Compile("set P = {A}\nparam c[P] = k\nparam k\nminimize: 0")
	errs := buildErrors(t, err)
	assert.Equal(t, ErrNonConstant, errs[0].Code)
}

func TestBuildNamedConstraints(t *testing.T) {
	m, err := Compile(`
set P = {A, B}
var x[P]
minimize: sum(x[p] for p in P)
st:
  limit[p]: x[p] <= 5 for p in P
  x[A] >= 1
  bad[q]: x[p] >= 0 for p in P
`)
	errs := buildErrors(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrNameIndex, errs[0].Code)
	assert.Nil(t, m)
}

func TestBuildAutoNamesCountAllConstraints(t *testing.T) {
	m, err := Compile("var x\nminimize: x\nst:\n  x >= 1\n  named: x <= 4\n  x != 2")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "named", "c3"},
		[]string{m.Constraints[0].Name, m.Constraints[1].Name, m.Constraints[2].Name})
	assert.Equal(t, ir.OpNe, m.Constraints[2].Rel)
}

func TestBuildCyclicDeclarations(t *testing.T) {
	_, err := Compile(`
set P = {A, B}
set S = {p in P where c[p] > 0}
param c[S]
minimize: 0
`)
	errs := buildErrors(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDeclarationCycle, errs[0].Code)
	assert.Contains(t, errs[0].Message, "set:S -> param:c -> set:S")
}

func TestBuildDuplicateImportNames(t *testing.T) {
	_, err := Compile(`import "a/data.csv"
import "b/data.json"
minimize: 0`)
	errs := buildErrors(t, err)
	assert.Equal(t, ErrDuplicateImport, errs[0].Code)
}

func TestImportName(t *testing.T) {
	assert.Equal(t, "products", ImportName("data/products.csv", ""))
	assert.Equal(t, "p", ImportName("data/products.csv", "p"))
	assert.Equal(t, "costs", ImportName(`dir\costs.xlsx`, ""))
}

func TestBuildErrorsUnwrap(t *testing.T) {
	_, err := Compile("var x\nvar x\nminimize: x")
	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, ErrDuplicateDecl, be.Code)
}
