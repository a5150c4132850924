package solver

import (
	"fmt"
	"math"
	"slices"
)

// Relation is the comparison of a constraint row.
type Relation int

const (
	LessEq Relation = iota + 1
	GreaterEq
	Equal
)

func (r Relation) String() string {
	switch r {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "="
	default:
		return fmt.Sprintf("Relation(%d)", int(r))
	}
}

// Sense is the optimisation direction.
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

// Term is a coefficient on a column.
type Term struct {
	Col  int
	Coef float64
}

// Column is one decision variable instance.
type Column struct {
	Name    string // solver-safe name
	Label   string // display name, e.g. qty[A]
	Lower   float64
	Upper   float64
	Integer bool
}

// Binary reports whether c is an integer column bounded to [0, 1].
func (c Column) Binary() bool {
	return c.Integer && c.Lower == 0 && c.Upper == 1
}

// Row is one constraint instance.
type Row struct {
	Name  string
	Label string
	Terms []Term
	Rel   Relation
	RHS   float64
}

// Problem is a linear program under construction.
type Problem struct {
	Name      string
	cols      []Column
	rows      []Row
	sense     Sense
	objective []Term
	objConst  float64
}

// NewProblem creates an empty minimisation problem.
func NewProblem(name string) *Problem {
	return &Problem{Name: name}
}

// AddColumn appends a column and returns its index.
func (p *Problem) AddColumn(c Column) int {
	if c.Label == "" {
		c.Label = c.Name
	}
	p.cols = append(p.cols, c)
	return len(p.cols) - 1
}

// AddRow appends a constraint row and returns its index. Terms on the
// same column are summed and zero coefficients dropped.
func (p *Problem) AddRow(r Row) (int, error) {
	terms, err := p.merge(r.Terms)
	if err != nil {
		return -1, fmt.Errorf("row %s: %w", r.Name, err)
	}
	if r.Rel < LessEq || r.Rel > Equal {
		return -1, fmt.Errorf("row %s: invalid relation %d", r.Name, r.Rel)
	}
	if math.IsNaN(r.RHS) || math.IsInf(r.RHS, 0) {
		return -1, fmt.Errorf("row %s: right-hand side %v is not finite", r.Name, r.RHS)
	}
	r.Terms = terms
	if r.Label == "" {
		r.Label = r.Name
	}
	p.rows = append(p.rows, r)
	return len(p.rows) - 1, nil
}

// SetObjective replaces the objective.
func (p *Problem) SetObjective(sense Sense, terms []Term, constant float64) error {
	merged, err := p.merge(terms)
	if err != nil {
		return fmt.Errorf("objective: %w", err)
	}
	p.sense, p.objective, p.objConst = sense, merged, constant
	return nil
}

func (p *Problem) merge(terms []Term) ([]Term, error) {
	sum := make(map[int]float64, len(terms))
	for _, t := range terms {
		if t.Col < 0 || t.Col >= len(p.cols) {
			return nil, fmt.Errorf("column %d out of range", t.Col)
		}
		if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
			return nil, fmt.Errorf("coefficient %v on %s is not finite", t.Coef, p.cols[t.Col].Name)
		}
		sum[t.Col] += t.Coef
	}
	out := make([]Term, 0, len(sum))
	for col, coef := range sum {
		if coef != 0 {
			out = append(out, Term{Col: col, Coef: coef})
		}
	}
	slices.SortFunc(out, func(a, b Term) int { return a.Col - b.Col })
	return out, nil
}

// NumColumns returns the number of columns.
func (p *Problem) NumColumns() int { return len(p.cols) }

// NumRows returns the number of rows.
func (p *Problem) NumRows() int { return len(p.rows) }

// Column returns column i.
func (p *Problem) Column(i int) Column { return p.cols[i] }

// Row returns row i.
func (p *Problem) Row(i int) Row { return p.rows[i] }

// Objective returns the objective sense, terms and constant.
func (p *Problem) Objective() (Sense, []Term, float64) {
	return p.sense, p.objective, p.objConst
}
