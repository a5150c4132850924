package eval

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jowpereira/LOS/internal/ir"
)

func lit(v ir.Value) *ir.Literal { return &ir.Literal{Value: v} }

func num(f float64) *ir.Literal { return lit(ir.Float(f).Normalize()) }

func testModel() *ir.Model {
	p := (&ir.Set{Name: "P"}).WithMembers([]ir.Value{ir.String("A"), ir.String("B"), ir.String("C")})
	cost := &ir.Parameter{Name: "cost", Index: []string{"P"}, Data: ir.NewParamData(), Bound: true}
	cost.Data.Put(ir.Tuple{ir.String("A")}, ir.Int(10))
	cost.Data.Put(ir.Tuple{ir.String("B")}, ir.Int(20))
	def := ir.Int(5)
	cost.Default = &def
	m := &ir.Model{Sets: []*ir.Set{p}, Params: []*ir.Parameter{cost}, Vars: []*ir.Variable{{Name: "x"}}}
	m.Reindex()
	return m
}

func TestProductOdometerOrder(t *testing.T) {
	a := (&ir.Set{Name: "A"}).WithMembers([]ir.Value{ir.Int(1), ir.Int(2)})
	b := (&ir.Set{Name: "B"}).WithMembers([]ir.Value{ir.String("x"), ir.String("y"), ir.String("z")})

	var got []string
	for tup := range Product([]*ir.Set{a, b}) {
		got = append(got, tup.String())
	}
	assert.Equal(t, []string{"[1,x]", "[1,y]", "[1,z]", "[2,x]", "[2,y]", "[2,z]"}, got)
}

func TestProductReusesTuple(t *testing.T) {
	a := (&ir.Set{Name: "A"}).WithMembers([]ir.Value{ir.Int(1), ir.Int(2), ir.Int(3)})
	var first *ir.Value
	n := 0
	for tup := range Product([]*ir.Set{a}) {
		if first == nil {
			first = &tup[0]
		}
		assert.Same(t, first, &tup[0], "the same backing tuple is advanced in place")
		n++
	}
	assert.Equal(t, 3, n)
}

func TestProductEdgeCases(t *testing.T) {
	n := 0
	for range Product(nil) {
		n++
	}
	assert.Equal(t, 1, n, "no sets yields one empty combination")

	empty := (&ir.Set{Name: "E"}).WithMembers(nil)
	for range Product([]*ir.Set{empty}) {
		t.Fatal("empty set yields nothing")
	}
}

func TestProductStopsEarly(t *testing.T) {
	a := (&ir.Set{Name: "A"}).WithMembers([]ir.Value{ir.Int(1), ir.Int(2), ir.Int(3)})
	n := 0
	for range Product([]*ir.Set{a}) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestEvalArithmetic(t *testing.T) {
	ev := &Evaluator{Model: testModel()}
	tests := []struct {
		name string
		expr ir.Expr
		want ir.Value
	}{
		{"power", &ir.Binary{Op: ir.OpPow, Left: num(2), Right: num(10)}, ir.Int(1024)},
		{"neg power", &ir.Binary{Op: ir.OpPow, Left: &ir.Unary{Op: ir.OpNeg, X: num(2)}, Right: num(2)}, ir.Int(4)},
		{"division", &ir.Binary{Op: ir.OpDiv, Left: num(1), Right: num(4)}, ir.Float(0.25)},
		{"modulo", &ir.Binary{Op: ir.OpMod, Left: num(7), Right: num(3)}, ir.Int(1)},
		{"max", &ir.Call{Func: "max", Args: []ir.Expr{num(3), num(9), num(1)}}, ir.Int(9)},
		{"abs", &ir.Call{Func: "abs", Args: []ir.Expr{num(-2.5)}}, ir.Float(2.5)},
		{"sqrt", &ir.Call{Func: "sqrt", Args: []ir.Expr{num(16)}}, ir.Int(4)},
		{"if", &ir.Cond{Cond: lit(ir.Bool(false)), Then: num(1), Else: num(2)}, ir.Int(2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Eval(tt.expr, &Env{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalParamLookupAndAggregate(t *testing.T) {
	ev := &Evaluator{Model: testModel()}
	p := &ir.Ident{Name: "p"}
	cost := &ir.ParamRef{Name: "cost", Index: []ir.Expr{p}}

	// C falls back to the default of 5.
	total, err := ev.Eval(&ir.Aggregate{Body: cost, Iters: []ir.Iterator{{Var: "p", Set: "P"}}}, &Env{})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(35), total)

	filtered, err := ev.Eval(&ir.Aggregate{
		Body:   cost,
		Iters:  []ir.Iterator{{Var: "p", Set: "P"}},
		Filter: &ir.Binary{Op: ir.OpNe, Left: p, Right: lit(ir.String("B"))},
	}, &Env{})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(15), filtered)
}

func TestEvalComparisonsAndLogic(t *testing.T) {
	ev := &Evaluator{Model: testModel()}
	env := &Env{}
	env.Push("p", ir.String("A"))

	ok, err := ev.Truth(&ir.Binary{
		Op:    ir.OpAnd,
		Left:  &ir.Membership{Elem: &ir.Ident{Name: "p"}, Set: "P"},
		Right: &ir.Binary{Op: ir.OpLt, Left: lit(ir.String("A")), Right: lit(ir.String("B"))},
	}, env)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ev.Truth(&ir.Binary{Op: ir.OpEq, Left: num(2), Right: lit(ir.Float(2.0))}, env)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = ev.Eval(&ir.Binary{Op: ir.OpLt, Left: num(1), Right: lit(ir.String("A"))}, env)
	assert.ErrorContains(t, err, "cannot compare")
}

func TestEvalRejectsVariables(t *testing.T) {
	ev := &Evaluator{Model: testModel()}
	_, err := ev.Eval(&ir.Binary{Op: ir.OpAdd, Left: &ir.VarRef{Name: "x"}, Right: num(1)}, &Env{})
	assert.True(t, errors.Is(err, ErrNotConstant))
}

func TestEvalErrors(t *testing.T) {
	ev := &Evaluator{Model: testModel()}
	for name, e := range map[string]ir.Expr{
		"div zero":   &ir.Binary{Op: ir.OpDiv, Left: num(1), Right: num(0)},
		"string add": &ir.Binary{Op: ir.OpAdd, Left: lit(ir.String("a")), Right: num(1)},
		"unbound":    &ir.Ident{Name: "q"},
		"sqrt neg":   &ir.Call{Func: "sqrt", Args: []ir.Expr{num(-1)}},
	} {
		_, err := ev.Eval(e, &Env{})
		assert.Error(t, err, name)
	}
}

func TestEnvShadowing(t *testing.T) {
	env := &Env{}
	env.Push("i", ir.Int(1))
	env.Push("i", ir.Int(2))
	v, _ := env.Lookup("i")
	assert.Equal(t, ir.Int(2), v)
	env.Pop(1)
	v, _ = env.Lookup("i")
	assert.Equal(t, ir.Int(1), v)
}
