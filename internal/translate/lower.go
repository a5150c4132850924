package translate

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/jowpereira/LOS/internal/eval"
	"github.com/jowpereira/LOS/internal/ir"
	"github.com/jowpereira/LOS/internal/solver"
)

// Artifact is a lowered model ready for execution.
type Artifact struct {
	Model   *ir.Model
	Problem *solver.Problem
	Vars    []*VarColumns // declaration order
	byName  map[string]*VarColumns
}

// Var returns the columns of the named variable.
func (a *Artifact) Var(name string) *VarColumns {
	return a.byName[name]
}

// VarColumns maps the index tuples of one variable to solver columns.
type VarColumns struct {
	Var    *ir.Variable
	Tuples []ir.Tuple // expansion order
	Cols   []int      // parallel to Tuples
	byKey  map[string]int
}

// Column returns the solver column of index tuple t.
func (v *VarColumns) Column(t ir.Tuple) (int, bool) {
	col, ok := v.byKey[t.Key()]
	return col, ok
}

// Lower translates a validated model. logger may be nil.
func Lower(m *ir.Model, logger *slog.Logger) (*Artifact, error) {
	if m.Stage != ir.StageValidated {
		return nil, fmt.Errorf("lower: model is %s, want %s", m.Stage, ir.StageValidated)
	}
	if logger == nil {
		logger = slog.Default()
	}
	l := &lowerer{
		ev:      &eval.Evaluator{Model: m},
		art:     &Artifact{Model: m, Problem: solver.NewProblem("los"), byName: make(map[string]*VarColumns)},
		hasVar:  make(map[ir.Expr]bool),
		colName: newNamer(),
		rowName: newNamer(),
	}
	if err := l.columns(); err != nil {
		return nil, err
	}
	if err := l.objective(); err != nil {
		return nil, err
	}
	for _, c := range m.Constraints {
		if err := l.constraint(c); err != nil {
			return nil, err
		}
	}
	p := l.art.Problem
	logger.Debug("model lowered", "columns", p.NumColumns(), "rows", p.NumRows())
	return l.art, nil
}

type lowerer struct {
	ev      *eval.Evaluator
	art     *Artifact
	hasVar  map[ir.Expr]bool
	colName *namer
	rowName *namer
	context string
}

func (l *lowerer) columns() error {
	for _, v := range l.art.Model.Vars {
		sets := make([]*ir.Set, len(v.Index))
		for i, name := range v.Index {
			if sets[i] = l.art.Model.Set(name); sets[i] == nil {
				return &TranslationError{Pos: v.Pos, Context: "variable " + v.Name, Message: fmt.Sprintf("unknown index set %q", name)}
			}
		}
		vc := &VarColumns{Var: v, byKey: make(map[string]int)}
		integer := v.Domain == ir.DomainInteger || v.Domain == ir.DomainBinary
		for t := range eval.Product(sets) {
			col := l.art.Problem.AddColumn(solver.Column{
				Name:    l.colName.unique(InstanceName(v.Name, t)),
				Label:   Label(v.Name, t),
				Lower:   v.Lower,
				Upper:   v.Upper,
				Integer: integer,
			})
			vc.Tuples = append(vc.Tuples, t.Clone())
			vc.Cols = append(vc.Cols, col)
			vc.byKey[t.Key()] = col
		}
		l.art.Vars = append(l.art.Vars, vc)
		l.art.byName[v.Name] = vc
	}
	return nil
}

func (l *lowerer) objective() error {
	obj := l.art.Model.Objective
	if obj == nil {
		return l.art.Problem.SetObjective(solver.Minimize, nil, 0)
	}
	l.context = "objective"
	acc := newAffine()
	if err := l.add(acc, obj.Expr, 1, &eval.Env{}); err != nil {
		return err
	}
	sense := solver.Minimize
	if obj.Sense == ir.Maximize {
		sense = solver.Maximize
	}
	return l.art.Problem.SetObjective(sense, acc.terms(), acc.konst)
}

func (l *lowerer) constraint(c *ir.Constraint) error {
	rel, err := relation(c)
	if err != nil {
		return err
	}
	env := &eval.Env{}
	emit := func(idx ir.Tuple) error {
		suffix := idx
		if len(c.NameIndex) > 0 {
			suffix = make(ir.Tuple, len(c.NameIndex))
			for i, n := range c.NameIndex {
				suffix[i], _ = env.Lookup(n)
			}
		}
		label := Label(c.Name, suffix)
		l.context = "constraint " + label

		acc := newAffine()
		if err := l.add(acc, c.Left, 1, env); err != nil {
			return err
		}
		if err := l.add(acc, c.Right, -1, env); err != nil {
			return err
		}
		_, err := l.art.Problem.AddRow(solver.Row{
			Name:  l.rowName.unique(InstanceName(c.Name, suffix)),
			Label: label,
			Terms: acc.terms(),
			Rel:   rel,
			RHS:   -acc.konst,
		})
		return err
	}
	if len(c.Iters) == 0 {
		return l.wrap(emit(nil), c.Pos)
	}
	return l.wrap(l.ev.Each(c.Iters, c.Filter, env, emit), c.Pos)
}

func relation(c *ir.Constraint) (solver.Relation, error) {
	switch c.Rel {
	case ir.OpLe, ir.OpLt:
		return solver.LessEq, nil
	case ir.OpGe, ir.OpGt:
		return solver.GreaterEq, nil
	case ir.OpEq:
		return solver.Equal, nil
	}
	return 0, &TranslationError{Pos: c.Pos, Context: "constraint " + c.Name, Message: fmt.Sprintf("relation %s cannot be lowered", c.Rel)}
}

// wrap turns evaluation failures into translation errors; errors that
// already are translation errors pass through.
func (l *lowerer) wrap(err error, pos ir.Pos) error {
	if err == nil {
		return nil
	}
	var te *TranslationError
	if errors.As(err, &te) {
		return err
	}
	var ee *eval.Error
	if errors.As(err, &ee) {
		pos = ee.Pos
	}
	return &TranslationError{Pos: pos, Context: l.context, Message: err.Error(), Err: err}
}

func (l *lowerer) nonlinear(e ir.Expr, what string) error {
	return &TranslationError{Pos: e.Position(), Context: l.context, Message: fmt.Sprintf("%s in %s is not linear", what, e)}
}

// mentionsVar reports whether e references a decision variable. Results
// are memoised per node since constraint bodies are lowered once per
// instance.
func (l *lowerer) mentionsVar(e ir.Expr) bool {
	if v, ok := l.hasVar[e]; ok {
		return v
	}
	found := false
	ir.Walk(e, func(n ir.Expr) bool {
		if _, ok := n.(*ir.VarRef); ok {
			found = true
		}
		return !found
	})
	l.hasVar[e] = found
	return found
}

func (l *lowerer) constant(e ir.Expr, env *eval.Env) (float64, error) {
	x, err := l.ev.Number(e, env)
	return x, l.wrap(err, e.Position())
}

// add accumulates scale*e into acc.
func (l *lowerer) add(acc *affine, e ir.Expr, scale float64, env *eval.Env) error {
	if !l.mentionsVar(e) {
		x, err := l.constant(e, env)
		if err != nil {
			return err
		}
		acc.konst += scale * x
		return nil
	}

	switch n := e.(type) {
	case *ir.VarRef:
		idx, err := l.ev.Index(n.Index, env)
		if err != nil {
			return l.wrap(err, n.Pos)
		}
		vc := l.art.byName[n.Name]
		if vc == nil {
			return &TranslationError{Pos: n.Pos, Context: l.context, Message: fmt.Sprintf("unknown variable %q", n.Name)}
		}
		col, ok := vc.Column(idx)
		if !ok {
			return &TranslationError{Pos: n.Pos, Context: l.context, Message: fmt.Sprintf("%s%s is outside the variable's index domain", n.Name, idx)}
		}
		acc.addTerm(col, scale)
		return nil

	case *ir.Unary:
		switch n.Op {
		case ir.OpNeg:
			return l.add(acc, n.X, -scale, env)
		case ir.OpPos:
			return l.add(acc, n.X, scale, env)
		}
		return l.nonlinear(n, "logical operator")

	case *ir.Binary:
		return l.binary(acc, n, scale, env)

	case *ir.Aggregate:
		err := l.ev.Each(n.Iters, n.Filter, env, func(ir.Tuple) error {
			return l.add(acc, n.Body, scale, env)
		})
		return l.wrap(err, n.Pos)

	case *ir.Cond:
		if l.mentionsVar(n.Cond) {
			return l.nonlinear(n, "condition on a variable")
		}
		ok, err := l.ev.Truth(n.Cond, env)
		if err != nil {
			return l.wrap(err, n.Pos)
		}
		if ok {
			return l.add(acc, n.Then, scale, env)
		}
		return l.add(acc, n.Else, scale, env)

	case *ir.Call:
		if n.Func != "sum" {
			return l.nonlinear(n, n.Func)
		}
		for _, a := range n.Args {
			if err := l.add(acc, a, scale, env); err != nil {
				return err
			}
		}
		return nil

	default:
		return l.nonlinear(e, "expression")
	}
}

func (l *lowerer) binary(acc *affine, n *ir.Binary, scale float64, env *eval.Env) error {
	switch n.Op {
	case ir.OpAdd:
		if err := l.add(acc, n.Left, scale, env); err != nil {
			return err
		}
		return l.add(acc, n.Right, scale, env)
	case ir.OpSub:
		if err := l.add(acc, n.Left, scale, env); err != nil {
			return err
		}
		return l.add(acc, n.Right, -scale, env)
	case ir.OpMul:
		switch {
		case !l.mentionsVar(n.Left):
			k, err := l.constant(n.Left, env)
			if err != nil {
				return err
			}
			return l.add(acc, n.Right, scale*k, env)
		case !l.mentionsVar(n.Right):
			k, err := l.constant(n.Right, env)
			if err != nil {
				return err
			}
			return l.add(acc, n.Left, scale*k, env)
		}
		return l.nonlinear(n, "product of variables")
	case ir.OpDiv:
		if l.mentionsVar(n.Right) {
			return l.nonlinear(n, "division by a variable")
		}
		k, err := l.constant(n.Right, env)
		if err != nil {
			return err
		}
		if k == 0 {
			return &TranslationError{Pos: n.Pos, Context: l.context, Message: "division by zero"}
		}
		return l.add(acc, n.Left, scale/k, env)
	case ir.OpPow:
		if l.mentionsVar(n.Right) {
			return l.nonlinear(n, "variable exponent")
		}
		k, err := l.constant(n.Right, env)
		if err != nil {
			return err
		}
		switch k {
		case 1:
			return l.add(acc, n.Left, scale, env)
		case 0:
			acc.konst += scale
			return nil
		}
		return l.nonlinear(n, "power of a variable")
	}
	return l.nonlinear(n, "operator "+string(n.Op))
}

// affine accumulates sum(coef*col) + konst.
type affine struct {
	coef  map[int]float64
	order []int
	konst float64
}

func newAffine() *affine {
	return &affine{coef: make(map[int]float64)}
}

func (a *affine) addTerm(col int, c float64) {
	if _, ok := a.coef[col]; !ok {
		a.order = append(a.order, col)
	}
	a.coef[col] += c
}

func (a *affine) terms() []solver.Term {
	out := make([]solver.Term, 0, len(a.order))
	for _, col := range a.order {
		if c := a.coef[col]; c != 0 && !math.IsNaN(c) {
			out = append(out, solver.Term{Col: col, Coef: c})
		}
	}
	return out
}
