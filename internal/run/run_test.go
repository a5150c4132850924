package run

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jowpereira/LOS/internal/binding"
	"github.com/jowpereira/LOS/internal/compiler"
	"github.com/jowpereira/LOS/internal/ir"
	"github.com/jowpereira/LOS/internal/solver"
	"github.com/jowpereira/LOS/internal/translate"
)

var discard = slog.New(slog.DiscardHandler)

func artifact(t *testing.T, src string, data map[string]any) *translate.Artifact {
	t.Helper()
	m, err := compiler.Compile(src)
	require.NoError(t, err)
	m, err = binding.NewService(discard, t.TempDir()).Bind(context.Background(), m, nil, data)
	require.NoError(t, err)
	m, err = compiler.Validate(m)
	require.NoError(t, err)
	art, err := translate.Lower(m, discard)
	require.NoError(t, err)
	return art
}

func values(res *SolveResult, name string) map[string]float64 {
	out := map[string]float64{}
	for _, v := range res.Values[name] {
		out[v.Index.String()] = v.Value
	}
	return out
}

func TestExecuteOptimal(t *testing.T) {
	art := artifact(t, `
set Products = {A, B}
param Cost[Products]
var qty[Products] >= 0
minimize: sum(qty[p]*Cost[p] for p in Products)
st:
  qty[A] + qty[B] >= 1
`, map[string]any{"Cost": map[string]float64{"A": 10, "B": 20}})

	res := Execute(context.Background(), art, Options{Logger: discard})
	require.Equal(t, solver.StatusOptimal, res.Status, res.Message)
	assert.True(t, res.HasSolution)
	assert.InDelta(t, 10.0, res.Objective, 1e-9)
	assert.InDelta(t, 1.0, values(res, "qty")["[A]"], 1e-9)
	assert.InDelta(t, 0.0, values(res, "qty")["[B]"], 1e-9)
	assert.Equal(t, ir.Tuple{ir.String("A")}, res.Values["qty"][0].Index)
}

func TestExecuteInfeasibleNormalisesObjective(t *testing.T) {
	art := artifact(t, `
var x >= 0
minimize: x
st:
  x >= 10
  x <= 5
`, nil)

	res := Execute(context.Background(), art, Options{Logger: discard})
	assert.Equal(t, solver.StatusInfeasible, res.Status)
	assert.False(t, res.HasSolution)
	assert.Equal(t, 0.0, res.Objective)
	assert.Empty(t, res.Values)
}

func TestExecuteMixedInteger(t *testing.T) {
	art := artifact(t, `
set Items = {gold, silver, bronze}
param value[Items]
param weight[Items]
var take[Items]: binary
var spare: integer >= 0 <= 3
maximize: sum(value[i] * take[i] for i in Items) + 0.5 * spare
st:
  capacity: sum(weight[i] * take[i] for i in Items) + 2 * spare <= 5
`, map[string]any{
		"value":  map[string]any{"gold": 5, "silver": 4, "bronze": 3},
		"weight": map[string]any{"gold": 2, "silver": 3, "bronze": 1},
	})

	res := Execute(context.Background(), art, Options{Logger: discard})
	require.Equal(t, solver.StatusOptimal, res.Status, res.Message)
	assert.InDelta(t, 9.0, res.Objective, 1e-6)
	take := values(res, "take")
	assert.Equal(t, 1.0, take["[gold]"])
	assert.Equal(t, 1.0, take["[silver]"])
	assert.Equal(t, 0.0, take["[bronze]"])
	assert.Equal(t, 0.0, values(res, "spare")["[]"])
}

func TestExecuteFeasibilityOnlyModel(t *testing.T) {
	art := artifact(t, "var x >= 0\nminimize: 0\nst:\n  x >= 2", nil)
	res := Execute(context.Background(), art, Options{Logger: discard})
	require.Equal(t, solver.StatusOptimal, res.Status)
	assert.Equal(t, 0.0, res.Objective)
	assert.GreaterOrEqual(t, values(res, "x")["[]"], 2.0-1e-9)
}

func TestExecuteTimeout(t *testing.T) {
	art := artifact(t, "var x >= 0\nminimize: x\nst:\n  x >= 1", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := Execute(ctx, art, Options{Logger: discard})
	assert.Equal(t, solver.StatusTimeout, res.Status)
	assert.Equal(t, 0.0, res.Objective)
}
