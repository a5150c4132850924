package ir

import (
	"fmt"
	"strings"
)

// Pos is a 1-based source location.
type Pos struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

// Op is an operator symbol shared by unary, binary and relational nodes.
type Op string

const (
	OpAdd Op = "+"
	OpSub Op = "-"
	OpMul Op = "*"
	OpDiv Op = "/"
	OpMod Op = "%"
	OpPow Op = "^"
	OpNeg Op = "neg"
	OpPos Op = "pos"
	OpNot Op = "not"
	OpAnd Op = "and"
	OpOr  Op = "or"
	OpEq  Op = "=="
	OpNe  Op = "!="
	OpLt  Op = "<"
	OpLe  Op = "<="
	OpGt  Op = ">"
	OpGe  Op = ">="
)

// IsRelational reports whether op compares two operands.
func (op Op) IsRelational() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// IsLogical reports whether op combines boolean operands.
func (op Op) IsLogical() bool {
	return op == OpAnd || op == OpOr || op == OpNot
}

// Expr is a sealed interface over expression nodes.
// Only the node types in this file implement it.
type Expr interface {
	exprNode()
	Position() Pos
	String() string
}

// Literal is a number, string or boolean constant.
type Literal struct {
	Value Value
	Pos   Pos
}

// VarRef references a decision variable, indexed or scalar.
type VarRef struct {
	Name  string
	Index []Expr
	Pos   Pos
}

// ParamRef references a parameter, indexed or scalar.
type ParamRef struct {
	Name  string
	Index []Expr
	Pos   Pos
}

// Ident is a bare name: an iterator bound by an enclosing aggregation or
// constraint, or a set used on the right of `in`.
type Ident struct {
	Name string
	Pos  Pos
}

// Unary applies OpNeg, OpPos or OpNot.
type Unary struct {
	Op  Op
	X   Expr
	Pos Pos
}

// Binary applies an arithmetic, logical or relational operator.
type Binary struct {
	Op    Op
	Left  Expr
	Right Expr
	Pos   Pos
}

// Call is a whitelisted function application (abs, min, max, sqrt, sum).
type Call struct {
	Func string
	Args []Expr
	Pos  Pos
}

// Iterator binds Var to each member of Set in turn.
type Iterator struct {
	Var string
	Set string
	Pos Pos
}

// Aggregate is sum(body for i in I, j in J where filter).
type Aggregate struct {
	Body   Expr
	Iters  []Iterator
	Filter Expr
	Pos    Pos
}

// Cond is if(cond, then, else).
type Cond struct {
	Cond Expr
	Then Expr
	Else Expr
	Pos  Pos
}

// Membership tests whether Elem belongs to Set.
type Membership struct {
	Elem   Expr
	Set    string
	Negate bool
	Pos    Pos
}

func (*Literal) exprNode()    {}
func (*VarRef) exprNode()     {}
func (*ParamRef) exprNode()   {}
func (*Ident) exprNode()      {}
func (*Unary) exprNode()      {}
func (*Binary) exprNode()     {}
func (*Call) exprNode()       {}
func (*Aggregate) exprNode()  {}
func (*Cond) exprNode()       {}
func (*Membership) exprNode() {}

func (e *Literal) Position() Pos    { return e.Pos }
func (e *VarRef) Position() Pos     { return e.Pos }
func (e *ParamRef) Position() Pos   { return e.Pos }
func (e *Ident) Position() Pos      { return e.Pos }
func (e *Unary) Position() Pos      { return e.Pos }
func (e *Binary) Position() Pos     { return e.Pos }
func (e *Call) Position() Pos       { return e.Pos }
func (e *Aggregate) Position() Pos  { return e.Pos }
func (e *Cond) Position() Pos       { return e.Pos }
func (e *Membership) Position() Pos { return e.Pos }

func (e *Literal) String() string { return e.Value.String() }

func (e *VarRef) String() string   { return e.Name + formatIndex(e.Index) }
func (e *ParamRef) String() string { return e.Name + formatIndex(e.Index) }
func (e *Ident) String() string    { return e.Name }

func (e *Unary) String() string {
	switch e.Op {
	case OpNeg:
		return "-" + e.X.String()
	case OpPos:
		return "+" + e.X.String()
	default:
		return "not " + e.X.String()
	}
}

func (e *Binary) String() string {
	return "(" + e.Left.String() + " " + string(e.Op) + " " + e.Right.String() + ")"
}

func (e *Call) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return e.Func + "(" + strings.Join(args, ", ") + ")"
}

func (e *Aggregate) String() string {
	s := "sum(" + e.Body.String() + " for " + FormatIterators(e.Iters)
	if e.Filter != nil {
		s += " where " + e.Filter.String()
	}
	return s + ")"
}

func (e *Cond) String() string {
	return "if(" + e.Cond.String() + ", " + e.Then.String() + ", " + e.Else.String() + ")"
}

func (e *Membership) String() string {
	if e.Negate {
		return e.Elem.String() + " not in " + e.Set
	}
	return e.Elem.String() + " in " + e.Set
}

// FormatIterators renders "i in I, j in J".
func FormatIterators(iters []Iterator) string {
	parts := make([]string, len(iters))
	for i, it := range iters {
		parts[i] = it.Var + " in " + it.Set
	}
	return strings.Join(parts, ", ")
}

func formatIndex(idx []Expr) string {
	if len(idx) == 0 {
		return ""
	}
	parts := make([]string, len(idx))
	for i, e := range idx {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Walk calls fn for e and every sub-expression in depth-first order.
// Returning false from fn skips the node's children.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *Literal, *Ident:
	case *VarRef:
		for _, x := range n.Index {
			Walk(x, fn)
		}
	case *ParamRef:
		for _, x := range n.Index {
			Walk(x, fn)
		}
	case *Unary:
		Walk(n.X, fn)
	case *Binary:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Call:
		for _, x := range n.Args {
			Walk(x, fn)
		}
	case *Aggregate:
		Walk(n.Body, fn)
		Walk(n.Filter, fn)
	case *Cond:
		Walk(n.Cond, fn)
		Walk(n.Then, fn)
		Walk(n.Else, fn)
	case *Membership:
		Walk(n.Elem, fn)
	default:
		panic(fmt.Sprintf("ir.Walk: unhandled expression %T", e))
	}
}
