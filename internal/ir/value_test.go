package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueNormalizeIntegralFloat(t *testing.T) {
	assert.Equal(t, Int(2), Float(2.0).Normalize())
	assert.Equal(t, Float(2.5), Float(2.5).Normalize())
	assert.True(t, Float(3).Equal(Int(3)))
	assert.False(t, String("3").Equal(Int(3)))
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		raw  string
		want Value
	}{
		{"42", Int(42)},
		{" 7 ", Int(7)},
		{"2.5", Float(2.5)},
		{"A", String("A")},
		{"  North ", String("North")},
		{"NaN", String("NaN")},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCell(tt.raw))
		})
	}
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(3)
	require.NoError(t, err)
	assert.Equal(t, Int(3), v)

	v, err = FromAny("x")
	require.NoError(t, err)
	assert.Equal(t, String("x"), v)

	_, err = FromAny([]int{1})
	assert.Error(t, err)
}

func TestTupleKeyDistinguishesKinds(t *testing.T) {
	a := Tuple{String("1"), Int(2)}
	b := Tuple{Int(1), Int(2)}
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, Tuple{Float(1), Int(2)}.Key(), b.Key())
	assert.Equal(t, "[1,2]", b.String())
}

func TestTupleKeyNoSeparatorCollision(t *testing.T) {
	a := Tuple{String("a"), String("b")}
	b := Tuple{String("a\x1fsb")}
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestValueText(t *testing.T) {
	assert.Equal(t, "A", String("A").Text())
	assert.Equal(t, `"A"`, String("A").String())
	assert.Equal(t, "0.5", Float(0.5).Text())
	assert.Equal(t, "true", Bool(true).Text())
}

func TestValueInterface(t *testing.T) {
	assert.Equal(t, int64(3), Int(3).Interface())
	assert.Equal(t, 2.5, Float(2.5).Interface())
	assert.Equal(t, "A", String("A").Interface())
	assert.Equal(t, true, Bool(true).Interface())
	assert.Nil(t, Value{}.Interface())
}
