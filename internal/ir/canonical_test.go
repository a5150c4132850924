package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalSortsKeysAndNormalizes(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"b": int64(1),
		"a": []any{"café", 2.5, true},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":["café",2.5,true],"b":1}`, string(got))
}

func TestMarshalCanonicalRejectsNonFinite(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": 1.0 / zero()})
	assert.Error(t, err)
}

func zero() float64 { return 0 }

func TestFingerprintStable(t *testing.T) {
	build := func() *Model {
		m := &Model{
			Sets: []*Set{(&Set{Name: "P", Source: SetLiteral}).WithMembers([]Value{String("A"), String("B")})},
			Vars: []*Variable{{Name: "x", Index: []string{"P"}, Domain: DomainContinuous}},
			Objective: &Objective{
				Sense: Minimize,
				Expr:  &VarRef{Name: "x", Index: []Expr{&Literal{Value: String("A")}}},
			},
		}
		m.Reindex()
		return m
	}

	a, err := Fingerprint(build())
	require.NoError(t, err)
	b, err := Fingerprint(build())
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	other := build()
	other.Objective.Sense = Maximize
	c, err := Fingerprint(other)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
