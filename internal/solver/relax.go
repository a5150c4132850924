package solver

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// ineq is one row of G·x <= h over the active columns.
type ineq struct {
	coef map[int]float64 // active column -> coefficient
	rhs  float64
}

// relaxation is the LP relaxation of a Problem in minimisation form,
// restricted to the columns that appear in at least one row.
type relaxation struct {
	active []int     // active position -> problem column
	pos    map[int]int // problem column -> active position
	c      []float64 // minimisation costs per active column
	rows   []ineq
	tol    float64
}

type lpOutcome struct {
	status Status
	x      []float64 // per problem column; only active entries are set
	obj    float64   // c·x over active columns
	err    error
}

func newRelaxation(p *Problem, tol float64) *relaxation {
	r := &relaxation{pos: make(map[int]int), tol: tol}
	for _, row := range p.rows {
		for _, t := range row.Terms {
			if _, ok := r.pos[t.Col]; !ok {
				r.pos[t.Col] = -1
			}
		}
	}
	for col := range p.cols {
		if _, ok := r.pos[col]; ok {
			r.pos[col] = len(r.active)
			r.active = append(r.active, col)
		}
	}

	sign := 1.0
	if p.sense == Maximize {
		sign = -1
	}
	r.c = make([]float64, len(r.active))
	for _, t := range p.objective {
		if i, ok := r.pos[t.Col]; ok {
			r.c[i] = sign * t.Coef
		}
	}

	for _, row := range p.rows {
		if len(row.Terms) == 0 {
			continue
		}
		le := ineq{coef: make(map[int]float64, len(row.Terms)), rhs: row.RHS}
		for _, t := range row.Terms {
			le.coef[r.pos[t.Col]] = t.Coef
		}
		switch row.Rel {
		case LessEq:
			r.rows = append(r.rows, le)
		case GreaterEq:
			r.rows = append(r.rows, le.negate())
		case Equal:
			r.rows = append(r.rows, le, le.negate())
		}
	}
	return r
}

func (q ineq) negate() ineq {
	out := ineq{coef: make(map[int]float64, len(q.coef)), rhs: -q.rhs}
	for k, v := range q.coef {
		out.coef[k] = -v
	}
	return out
}

// solve runs the simplex method with the given column bounds, indexed by
// problem column.
func (r *relaxation) solve(lower, upper []float64) lpOutcome {
	n := len(r.active)
	x := make([]float64, len(lower))
	if n == 0 {
		return lpOutcome{status: StatusOptimal, x: x}
	}

	var g []float64
	var h []float64
	addRow := func(coef map[int]float64, rhs float64) {
		row := make([]float64, n)
		for k, v := range coef {
			row[k] = v
		}
		g = append(g, row...)
		h = append(h, rhs)
	}
	for _, q := range r.rows {
		addRow(q.coef, q.rhs)
	}
	for i, col := range r.active {
		if lower[col] > upper[col] {
			return lpOutcome{status: StatusInfeasible, x: x}
		}
		if !math.IsInf(lower[col], -1) {
			addRow(map[int]float64{i: -1}, -lower[col])
		}
		if !math.IsInf(upper[col], 1) {
			addRow(map[int]float64{i: 1}, upper[col])
		}
	}

	G := mat.NewDense(len(h), n, g)
	cNew, aNew, bNew := lp.Convert(r.c, G, h, nil, nil)
	obj, sol, err := lp.Simplex(cNew, aNew, bNew, r.tol, nil)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return lpOutcome{status: StatusInfeasible, x: x}
	case errors.Is(err, lp.ErrUnbounded):
		return lpOutcome{status: StatusUnbounded, x: x}
	case err != nil:
		return lpOutcome{status: StatusError, x: x, err: err}
	}
	for i, col := range r.active {
		x[col] = sol[i] - sol[n+i]
	}
	return lpOutcome{status: StatusOptimal, x: x, obj: obj}
}
