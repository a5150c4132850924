package compiler

import (
	"fmt"
	"strings"

	"github.com/jowpereira/LOS/internal/ir"
)

// Validation error codes (V001-V099).
const (
	ErrUndefinedIdentifier = "V001" // name resolves to nothing in scope
	ErrArityMismatch       = "V002" // index count differs from declaration
	ErrEmptyDomain         = "V003" // iterator set has no members
	ErrNonBooleanFilter    = "V004" // where/if condition is not a predicate
	ErrObjectiveCount      = "V005" // model has no objective
	ErrNotASet             = "V006" // iterator/index/membership names a non-set
	ErrIndexOutOfDomain    = "V007" // literal index not a member of its set
	ErrUnknownFunction     = "V008" // function outside the whitelist
	ErrFunctionArity       = "V009" // wrong argument count
	ErrUnsupportedRelation = "V010" // != in a constraint
	ErrShadowedIterator    = "V011" // iterator reuses a declared or enclosing name
	ErrUnbound             = "V012" // set/param has no data
	ErrInvalidBounds       = "V013" // lower > upper, or binary outside [0,1]
	ErrSetAsValue          = "V014" // set name used where a value is expected
)

// ValidationError is one semantic problem found in a bound model.
type ValidationError struct {
	Rule    string `json:"rule"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d:%d: %s", e.Rule, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Rule, e.Message)
}

// ValidationErrors is every problem found by one validation pass.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("validation failed with %d error(s):\n  %s", len(es), strings.Join(msgs, "\n  "))
}

// Unwrap exposes the individual errors to errors.As.
func (es ValidationErrors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// Validate checks a bound model and returns it marked StageValidated.
func Validate(m *ir.Model) (*ir.Model, error) {
	if m.Stage != ir.StageBound {
		return nil, fmt.Errorf("validate: model is %s, want %s", m.Stage, ir.StageBound)
	}
	if errs := Check(m); len(errs) > 0 {
		return nil, errs
	}
	return m.WithStage(ir.StageValidated), nil
}

// Check runs every rule over m and returns all errors found (does not
// fail fast).
func Check(m *ir.Model) ValidationErrors {
	v := &validator{model: m}
	v.checkDeclarations()
	if m.Objective == nil {
		v.errorf(ErrObjectiveCount, ir.Pos{}, "model has no objective")
	} else {
		v.expr(m.Objective.Expr)
	}
	for _, c := range m.Constraints {
		v.checkConstraint(c)
	}
	return v.errs
}

type validator struct {
	model *ir.Model
	scope []string
	errs  ValidationErrors
}

func (v *validator) errorf(rule string, pos ir.Pos, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		Rule:    rule,
		Line:    pos.Line,
		Column:  pos.Column,
		Message: fmt.Sprintf(format, args...),
	})
}

// kindOf describes what name resolves to among declarations.
func (v *validator) kindOf(name string) string {
	switch {
	case v.model.Set(name) != nil:
		return "set"
	case v.model.Param(name) != nil:
		return "param"
	case v.model.Var(name) != nil:
		return "var"
	}
	return ""
}

func (v *validator) checkIndexSets(owner string, index []string, pos ir.Pos) {
	for _, name := range index {
		if k := v.kindOf(name); k != "set" {
			v.errorf(ErrNotASet, pos, "%s is indexed by %q, which is %s", owner, name, describe(k))
		}
	}
}

func describe(kind string) string {
	if kind == "" {
		return "undefined"
	}
	return "a " + kind
}

func (v *validator) checkDeclarations() {
	for _, s := range v.model.Sets {
		if !s.Bound {
			v.errorf(ErrUnbound, s.Pos, "set %s has no members bound", s.Name)
		}
		if s.Filter != nil {
			v.withIterators([]ir.Iterator{{Var: s.Filter.Var, Set: s.Filter.Of, Pos: s.Pos}}, false, func() {
				v.predicate(s.Filter.Cond, "set "+s.Name+" filter")
			})
		}
	}
	for _, p := range v.model.Params {
		v.checkIndexSets("param "+p.Name, p.Index, p.Pos)
		if !p.Bound {
			v.errorf(ErrUnbound, p.Pos, "param %s is not bound", p.Name)
		}
	}
	for _, x := range v.model.Vars {
		v.checkIndexSets("var "+x.Name, x.Index, x.Pos)
		if x.Lower > x.Upper {
			v.errorf(ErrInvalidBounds, x.Pos, "var %s: lower bound %g exceeds upper bound %g", x.Name, x.Lower, x.Upper)
		}
		if x.Domain == ir.DomainBinary && (x.Lower < 0 || x.Upper > 1) {
			v.errorf(ErrInvalidBounds, x.Pos, "var %s: binary bounds must lie within [0, 1]", x.Name)
		}
	}
}

func (v *validator) checkConstraint(c *ir.Constraint) {
	if c.Rel == ir.OpNe {
		v.errorf(ErrUnsupportedRelation, c.Pos, "constraint %s: '!=' cannot be expressed as a linear constraint", c.Name)
	}
	v.withIterators(c.Iters, true, func() {
		v.expr(c.Left)
		v.expr(c.Right)
		if c.Filter != nil {
			v.predicate(c.Filter, "constraint "+c.Name+" where clause")
		}
	})
}

// withIterators validates iterator sources, pushes their names for the
// duration of fn, and pops them again.
func (v *validator) withIterators(iters []ir.Iterator, requireMembers bool, fn func()) {
	mark := len(v.scope)
	for _, it := range iters {
		switch k := v.kindOf(it.Set); k {
		case "set":
			if s := v.model.Set(it.Set); requireMembers && s.Bound && s.Len() == 0 {
				v.errorf(ErrEmptyDomain, it.Pos, "iterator %s ranges over empty set %s", it.Var, it.Set)
			}
		default:
			v.errorf(ErrNotASet, it.Pos, "iterator %s ranges over %q, which is %s", it.Var, it.Set, describe(k))
		}
		if k := v.kindOf(it.Var); k != "" {
			v.errorf(ErrShadowedIterator, it.Pos, "iterator %s shadows %s %s", it.Var, k, it.Var)
		} else if v.inScope(it.Var) {
			v.errorf(ErrShadowedIterator, it.Pos, "iterator %s shadows an enclosing iterator", it.Var)
		}
		v.scope = append(v.scope, it.Var)
	}
	fn()
	v.scope = v.scope[:mark]
}

func (v *validator) inScope(name string) bool {
	for _, s := range v.scope {
		if s == name {
			return true
		}
	}
	return false
}

// IsPredicate reports whether e produces a boolean: a comparison, a
// logical composition, a membership test or a boolean literal.
func IsPredicate(e ir.Expr) bool {
	switch n := e.(type) {
	case *ir.Binary:
		return n.Op.IsRelational() || n.Op.IsLogical()
	case *ir.Unary:
		return n.Op == ir.OpNot
	case *ir.Membership:
		return true
	case *ir.Literal:
		return n.Value.Kind() == ir.KindBool
	}
	return false
}

func (v *validator) predicate(e ir.Expr, what string) {
	if !IsPredicate(e) {
		v.errorf(ErrNonBooleanFilter, e.Position(), "%s must be a comparison or logical expression, got %s", what, e)
	}
	v.expr(e)
}

var functionArity = map[string]struct{ min, max int }{
	"abs":  {1, 1},
	"sqrt": {1, 1},
	"min":  {1, -1},
	"max":  {1, -1},
	"sum":  {1, -1},
}

func (v *validator) expr(e ir.Expr) {
	switch n := e.(type) {
	case *ir.Literal:
	case *ir.Ident:
		if v.inScope(n.Name) {
			return
		}
		if v.kindOf(n.Name) == "set" {
			v.errorf(ErrSetAsValue, n.Pos, "set %s cannot be used as a value", n.Name)
			return
		}
		v.errorf(ErrUndefinedIdentifier, n.Pos, "undefined identifier %q", n.Name)
	case *ir.VarRef:
		x := v.model.Var(n.Name)
		if x == nil {
			v.errorf(ErrUndefinedIdentifier, n.Pos, "undefined variable %q", n.Name)
			return
		}
		v.indexed(n.Name, x.Index, n.Index, n.Pos)
	case *ir.ParamRef:
		p := v.model.Param(n.Name)
		if p == nil {
			if k := v.kindOf(n.Name); k == "set" {
				v.errorf(ErrSetAsValue, n.Pos, "set %s cannot be indexed", n.Name)
			} else {
				v.errorf(ErrUndefinedIdentifier, n.Pos, "undefined identifier %q", n.Name)
			}
			for _, x := range n.Index {
				v.expr(x)
			}
			return
		}
		v.indexed(n.Name, p.Index, n.Index, n.Pos)
	case *ir.Unary:
		v.expr(n.X)
	case *ir.Binary:
		v.expr(n.Left)
		v.expr(n.Right)
	case *ir.Call:
		ar, ok := functionArity[n.Func]
		if !ok {
			v.errorf(ErrUnknownFunction, n.Pos, "unknown function %q (allowed: abs, max, min, sqrt, sum)", n.Func)
		} else if len(n.Args) < ar.min || (ar.max >= 0 && len(n.Args) > ar.max) {
			v.errorf(ErrFunctionArity, n.Pos, "%s: wrong number of arguments (%d)", n.Func, len(n.Args))
		}
		for _, a := range n.Args {
			v.expr(a)
		}
	case *ir.Aggregate:
		v.withIterators(n.Iters, true, func() {
			v.expr(n.Body)
			if n.Filter != nil {
				v.predicate(n.Filter, "sum where clause")
			}
		})
	case *ir.Cond:
		v.predicate(n.Cond, "if condition")
		v.expr(n.Then)
		v.expr(n.Else)
	case *ir.Membership:
		if k := v.kindOf(n.Set); k != "set" {
			if k == "" {
				v.errorf(ErrUndefinedIdentifier, n.Pos, "undefined set %q", n.Set)
			} else {
				v.errorf(ErrNotASet, n.Pos, "membership test against %q, which is %s", n.Set, describe(k))
			}
		}
		v.expr(n.Elem)
	default:
		panic(fmt.Sprintf("compiler: unhandled expression %T", e))
	}
}

// indexed checks arity and literal index membership at a reference site.
func (v *validator) indexed(name string, decl []string, index []ir.Expr, pos ir.Pos) {
	if len(index) != len(decl) {
		v.errorf(ErrArityMismatch, pos, "%s expects %d index(es), got %d", name, len(decl), len(index))
	}
	for i, x := range index {
		v.expr(x)
		lit, ok := x.(*ir.Literal)
		if !ok || i >= len(decl) {
			continue
		}
		if s := v.model.Set(decl[i]); s != nil && s.Bound && !s.Contains(lit.Value) {
			v.errorf(ErrIndexOutOfDomain, lit.Pos, "%s: index %s is not a member of %s", name, lit.Value.Text(), s.Name)
		}
	}
}
