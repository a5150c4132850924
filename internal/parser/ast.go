package parser

import "github.com/jowpereira/LOS/internal/ir"

// File is the concrete syntax tree of one source text.
type File struct {
	Stmts []Stmt
}

// Stmt is a sealed interface over top-level statements.
type Stmt interface {
	stmtNode()
	Position() ir.Pos
}

// Expr is a sealed interface over CST expressions.
type Expr interface {
	exprNode()
	Position() ir.Pos
}

// SetDef is a sealed interface over set definitions.
type SetDef interface {
	setDefNode()
}

// Name is an identifier occurrence.
type Name struct {
	Name string
	Pos  ir.Pos
}

// ImportStmt is `import "path" [as alias]`.
type ImportStmt struct {
	Path  string
	Alias string
	Pos   ir.Pos
}

// SetStmt is `set S [= def]`. Def is nil for an imported set.
type SetStmt struct {
	Name Name
	Def  SetDef
	Pos  ir.Pos
}

// SetLiteral is `{A, B, 3}`.
type SetLiteral struct {
	Members []Expr
}

// SetRange is `a..b [step k]`.
type SetRange struct {
	From Expr
	To   Expr
	Step Expr
}

// SetComprehension is `{p in P where cond}`.
type SetComprehension struct {
	Var  Name
	Of   Name
	Cond Expr
}

// ParamStmt is `param p[I,J] [= default]`.
type ParamStmt struct {
	Name    Name
	Index   []Name
	Default Expr
	Pos     ir.Pos
}

// Bound is one `>= n` or `<= n` clause on a variable.
type Bound struct {
	Op    TokenKind
	Value Expr
}

// VarStmt is `var x[I] [: domain] {bound}`.
type VarStmt struct {
	Name   Name
	Index  []Name
	Domain Name
	Bounds []Bound
	Pos    ir.Pos
}

// ObjectiveStmt is `minimize: expr` or `maximize: expr`.
type ObjectiveStmt struct {
	Maximize bool
	Expr     Expr
	Pos      ir.Pos
}

// ConstraintBlock is `subject to:` followed by constraints.
type ConstraintBlock struct {
	Constraints []*ConstraintStmt
	Pos         ir.Pos
}

// ConstraintStmt is `[name[i]:] expr [for iterators [where cond]]`.
type ConstraintStmt struct {
	Name      *Name
	NameIndex []Name
	Expr      Expr
	Iters     []IterClause
	Where     Expr
	Pos       ir.Pos
}

// IterClause is `i in I`.
type IterClause struct {
	Var Name
	Set Name
}

func (*ImportStmt) stmtNode()      {}
func (*SetStmt) stmtNode()         {}
func (*ParamStmt) stmtNode()       {}
func (*VarStmt) stmtNode()         {}
func (*ObjectiveStmt) stmtNode()   {}
func (*ConstraintBlock) stmtNode() {}

func (s *ImportStmt) Position() ir.Pos      { return s.Pos }
func (s *SetStmt) Position() ir.Pos         { return s.Pos }
func (s *ParamStmt) Position() ir.Pos       { return s.Pos }
func (s *VarStmt) Position() ir.Pos         { return s.Pos }
func (s *ObjectiveStmt) Position() ir.Pos   { return s.Pos }
func (s *ConstraintBlock) Position() ir.Pos { return s.Pos }

func (*SetLiteral) setDefNode()       {}
func (*SetRange) setDefNode()         {}
func (*SetComprehension) setDefNode() {}

// NumberLit keeps the literal text; the builder decides int or float.
type NumberLit struct {
	Text    string
	IsFloat bool
	Pos     ir.Pos
}

// StringLit holds a decoded string.
type StringLit struct {
	Value string
	Pos   ir.Pos
}

// BoolLit is true or false.
type BoolLit struct {
	Value bool
	Pos   ir.Pos
}

// NameExpr is an identifier, optionally indexed: x, x[i], cost[p, 'A'].
type NameExpr struct {
	Name    string
	Index   []Expr
	Indexed bool
	Pos     ir.Pos
}

// UnaryExpr is -x, +x or not x.
type UnaryExpr struct {
	Op  TokenKind
	X   Expr
	Pos ir.Pos
}

// BinaryExpr is an arithmetic, logical or relational operation.
type BinaryExpr struct {
	Op    TokenKind
	Left  Expr
	Right Expr
	Pos   ir.Pos
}

// CallExpr is f(a, b).
type CallExpr struct {
	Func string
	Args []Expr
	Pos  ir.Pos
}

// SumExpr is sum(body for i in I [where cond]).
type SumExpr struct {
	Body  Expr
	Iters []IterClause
	Where Expr
	Pos   ir.Pos
}

// IfExpr is if(cond, then, else).
type IfExpr struct {
	Cond Expr
	Then Expr
	Else Expr
	Pos  ir.Pos
}

// InExpr is `e in S` or `e not in S`.
type InExpr struct {
	Elem   Expr
	Set    Name
	Negate bool
	Pos    ir.Pos
}

// ParenExpr keeps explicit grouping.
type ParenExpr struct {
	X   Expr
	Pos ir.Pos
}

func (*NumberLit) exprNode()  {}
func (*StringLit) exprNode()  {}
func (*BoolLit) exprNode()    {}
func (*NameExpr) exprNode()   {}
func (*UnaryExpr) exprNode()  {}
func (*BinaryExpr) exprNode() {}
func (*CallExpr) exprNode()   {}
func (*SumExpr) exprNode()    {}
func (*IfExpr) exprNode()     {}
func (*InExpr) exprNode()     {}
func (*ParenExpr) exprNode()  {}

func (e *NumberLit) Position() ir.Pos  { return e.Pos }
func (e *StringLit) Position() ir.Pos  { return e.Pos }
func (e *BoolLit) Position() ir.Pos    { return e.Pos }
func (e *NameExpr) Position() ir.Pos   { return e.Pos }
func (e *UnaryExpr) Position() ir.Pos  { return e.Pos }
func (e *BinaryExpr) Position() ir.Pos { return e.Pos }
func (e *CallExpr) Position() ir.Pos   { return e.Pos }
func (e *SumExpr) Position() ir.Pos    { return e.Pos }
func (e *IfExpr) Position() ir.Pos     { return e.Pos }
func (e *InExpr) Position() ir.Pos     { return e.Pos }
func (e *ParenExpr) Position() ir.Pos  { return e.Pos }
