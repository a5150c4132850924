package eval

import (
	"errors"
	"fmt"
	"math"

	"github.com/jowpereira/LOS/internal/ir"
)

// ErrNotConstant is returned when an expression references a decision
// variable and therefore has no value before solving.
var ErrNotConstant = errors.New("expression depends on a decision variable")

// Error reports an expression that cannot be evaluated.
type Error struct {
	Pos     ir.Pos
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

func errorf(pos ir.Pos, format string, args ...any) *Error {
	return &Error{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// Evaluator computes constant values over a model whose sets and
// parameters are bound.
type Evaluator struct {
	Model *ir.Model
}

// Sets resolves the iterator sources of iters.
func (ev *Evaluator) Sets(iters []ir.Iterator) ([]*ir.Set, error) {
	sets := make([]*ir.Set, len(iters))
	for i, it := range iters {
		s := ev.Model.Set(it.Set)
		if s == nil {
			return nil, errorf(it.Pos, "unknown set %q", it.Set)
		}
		sets[i] = s
	}
	return sets, nil
}

// Each calls fn once per combination of iters that satisfies filter, with
// the iterator names bound in env. A nil filter accepts everything.
func (ev *Evaluator) Each(iters []ir.Iterator, filter ir.Expr, env *Env, fn func(ir.Tuple) error) error {
	sets, err := ev.Sets(iters)
	if err != nil {
		return err
	}
	for tuple := range Product(sets) {
		for i, it := range iters {
			env.Push(it.Var, tuple[i])
		}
		keep := true
		if filter != nil {
			keep, err = ev.Truth(filter, env)
		}
		if err == nil && keep {
			err = fn(tuple)
		}
		env.Pop(len(iters))
		if err != nil {
			return err
		}
	}
	return nil
}

// Truth evaluates e as a condition.
func (ev *Evaluator) Truth(e ir.Expr, env *Env) (bool, error) {
	v, err := ev.Eval(e, env)
	if err != nil {
		return false, err
	}
	return v.Truth(), nil
}

// Number evaluates e and requires a numeric result.
func (ev *Evaluator) Number(e ir.Expr, env *Env) (float64, error) {
	v, err := ev.Eval(e, env)
	if err != nil {
		return 0, err
	}
	x, ok := v.Number()
	if !ok {
		return 0, errorf(e.Position(), "%s is %s, not a number", e, v)
	}
	return x, nil
}

// Index evaluates each index expression into a tuple.
func (ev *Evaluator) Index(index []ir.Expr, env *Env) (ir.Tuple, error) {
	t := make(ir.Tuple, len(index))
	for i, x := range index {
		v, err := ev.Eval(x, env)
		if err != nil {
			return nil, err
		}
		t[i] = v.Normalize()
	}
	return t, nil
}

// Param looks up a parameter reference.
func (ev *Evaluator) Param(n *ir.ParamRef, env *Env) (ir.Value, error) {
	p := ev.Model.Param(n.Name)
	if p == nil {
		return ir.Value{}, errorf(n.Pos, "undefined parameter %q", n.Name)
	}
	t, err := ev.Index(n.Index, env)
	if err != nil {
		return ir.Value{}, err
	}
	v, ok := p.Lookup(t)
	if !ok {
		return ir.Value{}, errorf(n.Pos, "param %s has no value for %s", n.Name, t)
	}
	return v, nil
}

// Eval computes the value of a constant expression.
func (ev *Evaluator) Eval(e ir.Expr, env *Env) (ir.Value, error) {
	switch n := e.(type) {
	case *ir.Literal:
		return n.Value, nil
	case *ir.Ident:
		if v, ok := env.Lookup(n.Name); ok {
			return v, nil
		}
		return ir.Value{}, errorf(n.Pos, "undefined identifier %q", n.Name)
	case *ir.ParamRef:
		return ev.Param(n, env)
	case *ir.VarRef:
		return ir.Value{}, &Error{Pos: n.Pos, Message: fmt.Sprintf("%s is a decision variable", n.Name), Err: ErrNotConstant}
	case *ir.Unary:
		x, err := ev.Eval(n.X, env)
		if err != nil {
			return ir.Value{}, err
		}
		if n.Op == ir.OpNot {
			return ir.Bool(!x.Truth()), nil
		}
		f, ok := x.Number()
		if !ok {
			return ir.Value{}, errorf(n.Pos, "cannot negate %s", x)
		}
		if n.Op == ir.OpNeg {
			f = -f
		}
		return numberValue(f), nil
	case *ir.Binary:
		return ev.binary(n, env)
	case *ir.Call:
		return ev.call(n, env)
	case *ir.Aggregate:
		total := 0.0
		err := ev.Each(n.Iters, n.Filter, env, func(ir.Tuple) error {
			x, err := ev.Number(n.Body, env)
			total += x
			return err
		})
		if err != nil {
			return ir.Value{}, err
		}
		return numberValue(total), nil
	case *ir.Cond:
		c, err := ev.Truth(n.Cond, env)
		if err != nil {
			return ir.Value{}, err
		}
		if c {
			return ev.Eval(n.Then, env)
		}
		return ev.Eval(n.Else, env)
	case *ir.Membership:
		s := ev.Model.Set(n.Set)
		if s == nil {
			return ir.Value{}, errorf(n.Pos, "unknown set %q", n.Set)
		}
		x, err := ev.Eval(n.Elem, env)
		if err != nil {
			return ir.Value{}, err
		}
		return ir.Bool(s.Contains(x) != n.Negate), nil
	default:
		panic(fmt.Sprintf("eval: unhandled expression %T", e))
	}
}

// numberValue keeps integral results as ints so they can index sets.
func numberValue(f float64) ir.Value {
	return ir.Float(f).Normalize()
}

func (ev *Evaluator) binary(n *ir.Binary, env *Env) (ir.Value, error) {
	switch n.Op {
	case ir.OpAnd, ir.OpOr:
		l, err := ev.Truth(n.Left, env)
		if err != nil {
			return ir.Value{}, err
		}
		if n.Op == ir.OpAnd && !l {
			return ir.Bool(false), nil
		}
		if n.Op == ir.OpOr && l {
			return ir.Bool(true), nil
		}
		r, err := ev.Truth(n.Right, env)
		if err != nil {
			return ir.Value{}, err
		}
		return ir.Bool(r), nil
	}

	l, err := ev.Eval(n.Left, env)
	if err != nil {
		return ir.Value{}, err
	}
	r, err := ev.Eval(n.Right, env)
	if err != nil {
		return ir.Value{}, err
	}
	if n.Op.IsRelational() {
		return compare(n, l, r)
	}

	x, okl := l.Number()
	y, okr := r.Number()
	if !okl || !okr || l.Kind() == ir.KindString || r.Kind() == ir.KindString {
		return ir.Value{}, errorf(n.Pos, "operator %s needs numbers, got %s and %s", n.Op, l, r)
	}
	return Arith(n.Op, x, y, n.Pos)
}

// Arith applies an arithmetic operator to two numbers.
func Arith(op ir.Op, x, y float64, pos ir.Pos) (ir.Value, error) {
	switch op {
	case ir.OpAdd:
		return numberValue(x + y), nil
	case ir.OpSub:
		return numberValue(x - y), nil
	case ir.OpMul:
		return numberValue(x * y), nil
	case ir.OpDiv:
		if y == 0 {
			return ir.Value{}, errorf(pos, "division by zero")
		}
		return numberValue(x / y), nil
	case ir.OpMod:
		if y == 0 {
			return ir.Value{}, errorf(pos, "modulo by zero")
		}
		return numberValue(math.Mod(x, y)), nil
	case ir.OpPow:
		r := math.Pow(x, y)
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return ir.Value{}, errorf(pos, "%g ^ %g is not a finite number", x, y)
		}
		return numberValue(r), nil
	}
	return ir.Value{}, errorf(pos, "unsupported operator %s", op)
}

func compare(n *ir.Binary, l, r ir.Value) (ir.Value, error) {
	if n.Op == ir.OpEq || n.Op == ir.OpNe {
		eq := l.Equal(r)
		if x, ok := l.Number(); ok && l.Kind() != ir.KindString {
			if y, ok := r.Number(); ok && r.Kind() != ir.KindString {
				eq = x == y
			}
		}
		return ir.Bool(eq == (n.Op == ir.OpEq)), nil
	}

	var c int
	switch {
	case l.Kind() == ir.KindString && r.Kind() == ir.KindString:
		switch {
		case l.Text() < r.Text():
			c = -1
		case l.Text() > r.Text():
			c = 1
		}
	case l.Kind() != ir.KindString && r.Kind() != ir.KindString:
		x, _ := l.Number()
		y, _ := r.Number()
		switch {
		case x < y:
			c = -1
		case x > y:
			c = 1
		}
	default:
		return ir.Value{}, errorf(n.Pos, "cannot compare %s with %s", l, r)
	}

	var ok bool
	switch n.Op {
	case ir.OpLt:
		ok = c < 0
	case ir.OpLe:
		ok = c <= 0
	case ir.OpGt:
		ok = c > 0
	case ir.OpGe:
		ok = c >= 0
	}
	return ir.Bool(ok), nil
}

func (ev *Evaluator) call(n *ir.Call, env *Env) (ir.Value, error) {
	args := make([]float64, len(n.Args))
	for i, a := range n.Args {
		x, err := ev.Number(a, env)
		if err != nil {
			return ir.Value{}, err
		}
		args[i] = x
	}
	return Apply(n.Func, args, n.Pos)
}

// Apply evaluates a whitelisted function over numeric arguments.
func Apply(fn string, args []float64, pos ir.Pos) (ir.Value, error) {
	if len(args) == 0 {
		return ir.Value{}, errorf(pos, "%s: no arguments", fn)
	}
	switch fn {
	case "abs":
		return numberValue(math.Abs(args[0])), nil
	case "sqrt":
		if args[0] < 0 {
			return ir.Value{}, errorf(pos, "sqrt of negative number %g", args[0])
		}
		return numberValue(math.Sqrt(args[0])), nil
	case "min":
		m := args[0]
		for _, a := range args[1:] {
			m = math.Min(m, a)
		}
		return numberValue(m), nil
	case "max":
		m := args[0]
		for _, a := range args[1:] {
			m = math.Max(m, a)
		}
		return numberValue(m), nil
	case "sum":
		total := 0.0
		for _, a := range args {
			total += a
		}
		return numberValue(total), nil
	}
	return ir.Value{}, errorf(pos, "unknown function %q", fn)
}
