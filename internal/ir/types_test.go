package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetWithMembersDeduplicatesInOrder(t *testing.T) {
	s := &Set{Name: "P", Source: SetImported}
	bound := s.WithMembers([]Value{String("B"), String("A"), String("B"), Float(1), Int(1)})

	assert.False(t, s.Bound, "original must not change")
	assert.True(t, bound.Bound)
	assert.Equal(t, []Value{String("B"), String("A"), Int(1)}, bound.Members())
	assert.True(t, bound.Contains(Float(1.0)))
	assert.False(t, bound.Contains(String("C")))
}

func TestRangeMembers(t *testing.T) {
	assert.Equal(t, []Value{Int(1), Int(3), Int(5)}, Range{From: 1, To: 6, Step: 2}.Members())
	assert.Empty(t, Range{From: 3, To: 1, Step: 1}.Members())

	ends := Range{From: math.MaxInt64 - 2, To: math.MaxInt64, Step: 2}
	assert.Equal(t, []Value{Int(math.MaxInt64 - 2), Int(math.MaxInt64)}, ends.Members())

	huge := Range{From: math.MinInt64, To: math.MaxInt64, Step: 1}
	assert.Equal(t, uint64(math.MaxUint64), huge.Len())
	assert.Nil(t, huge.Members())
}

func TestParamDataPutIsGuarded(t *testing.T) {
	d := NewParamData()
	require.True(t, d.Put(Tuple{String("A")}, Int(10)))
	assert.False(t, d.Put(Tuple{String("A")}, Int(99)))

	v, ok := d.Get(Tuple{String("A")})
	require.True(t, ok)
	assert.Equal(t, Int(10), v)
	assert.Equal(t, 1, d.Len())
}

func TestParameterLookupFallsBackToDefault(t *testing.T) {
	def := Int(5)
	p := &Parameter{Name: "c", Index: []string{"P"}, Default: &def, Data: NewParamData()}
	p.Data.Put(Tuple{String("A")}, Int(1))

	v, ok := p.Lookup(Tuple{String("A")})
	require.True(t, ok)
	assert.Equal(t, Int(1), v)

	v, ok = p.Lookup(Tuple{String("Z")})
	require.True(t, ok)
	assert.Equal(t, Int(5), v)
}

func TestModelCloneIsIndependent(t *testing.T) {
	m := &Model{Sets: []*Set{{Name: "P"}}, Stage: StageBuilt}
	m.Reindex()

	c := m.Clone()
	c.ReplaceSet(m.Set("P").WithMembers([]Value{String("A")}))

	assert.False(t, m.Set("P").Bound)
	assert.True(t, c.Set("P").Bound)
	assert.Equal(t, StageValidated, m.WithStage(StageValidated).Stage)
	assert.Equal(t, StageBuilt, m.Stage)
}

func TestDefaultBounds(t *testing.T) {
	lo, hi := DefaultBounds(DomainBinary)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
	lo, hi = DefaultBounds(DomainContinuous)
	assert.Equal(t, 0.0, lo)
	assert.True(t, math.IsInf(hi, 1))
}

func TestWalkVisitsNestedNodes(t *testing.T) {
	e := &Aggregate{
		Body:   &Binary{Op: OpMul, Left: &VarRef{Name: "x", Index: []Expr{&Ident{Name: "p"}}}, Right: &ParamRef{Name: "c", Index: []Expr{&Ident{Name: "p"}}}},
		Iters:  []Iterator{{Var: "p", Set: "P"}},
		Filter: &Binary{Op: OpGt, Left: &ParamRef{Name: "c", Index: []Expr{&Ident{Name: "p"}}}, Right: &Literal{Value: Int(0)}},
	}
	var names []string
	Walk(e, func(n Expr) bool {
		switch r := n.(type) {
		case *VarRef:
			names = append(names, r.Name)
		case *ParamRef:
			names = append(names, r.Name)
		}
		return true
	})
	assert.Equal(t, []string{"x", "c", "c"}, names)
	assert.Equal(t, "sum((x[p] * c[p]) for p in P where (c[p] > 0))", e.String())
}
