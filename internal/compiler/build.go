package compiler

import (
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/jowpereira/LOS/internal/ir"
	"github.com/jowpereira/LOS/internal/parser"
)

// Build converts a concrete syntax tree into a Model at StageBuilt.
//
// Every call allocates its own symbol table; nothing survives between
// builds. All build errors are collected and returned as BuildErrors.
func Build(f *parser.File) (*ir.Model, error) {
	b := &builder{
		model:   &ir.Model{Stage: ir.StageBuilt},
		symbols: make(map[string]symbol),
	}
	b.declare(f)
	b.convert(f)
	b.model.Reindex()
	if len(b.errs) == 0 {
		order, cycles := BindingOrder(b.model)
		for _, c := range cycles {
			b.errorf(ErrDeclarationCycle, c.Pos, "%s", c.Message)
		}
		b.model.Order = order
	}
	if len(b.errs) > 0 {
		return nil, b.errs
	}
	return b.model, nil
}

// Compile parses and builds src.
func Compile(src string) (*ir.Model, error) {
	f, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	return Build(f)
}

type symbolKind int

const (
	symSet symbolKind = iota + 1
	symParam
	symVar
)

func (k symbolKind) String() string {
	switch k {
	case symSet:
		return "set"
	case symParam:
		return "param"
	default:
		return "var"
	}
}

type symbol struct {
	kind symbolKind
	pos  ir.Pos
}

type builder struct {
	model   *ir.Model
	symbols map[string]symbol
	errs    BuildErrors
	// scope holds the iterator names bound at the current point.
	scope []string
	auto  int
}

func (b *builder) errorf(code string, pos ir.Pos, format string, args ...any) {
	b.errs = append(b.errs, &BuildError{
		Code:    code,
		Line:    pos.Line,
		Column:  pos.Column,
		Message: fmt.Sprintf(format, args...),
	})
}

// declare registers every top-level name before any expression is
// converted, so references may appear before declarations.
func (b *builder) declare(f *parser.File) {
	aliases := make(map[string]ir.Pos)
	for _, stmt := range f.Stmts {
		var name parser.Name
		var kind symbolKind
		switch s := stmt.(type) {
		case *parser.ImportStmt:
			logical := ImportName(s.Path, s.Alias)
			if prev, dup := aliases[logical]; dup {
				b.errorf(ErrDuplicateImport, s.Pos, "import name %q already used at %s", logical, prev)
			}
			aliases[logical] = s.Pos
			continue
		case *parser.SetStmt:
			name, kind = s.Name, symSet
		case *parser.ParamStmt:
			name, kind = s.Name, symParam
		case *parser.VarStmt:
			name, kind = s.Name, symVar
		default:
			continue
		}
		if prev, dup := b.symbols[name.Name]; dup {
			b.errorf(ErrDuplicateDecl, name.Pos, "%s %q already declared as %s at %s", kind, name.Name, prev.kind, prev.pos)
			continue
		}
		b.symbols[name.Name] = symbol{kind: kind, pos: name.Pos}
	}
}

// ImportName returns the logical source name of an import: the alias
// when given, otherwise the file name without extension.
func ImportName(p, alias string) string {
	if alias != "" {
		return alias
	}
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

func (b *builder) convert(f *parser.File) {
	seen := make(map[string]bool)
	for _, stmt := range f.Stmts {
		switch s := stmt.(type) {
		case *parser.ImportStmt:
			b.model.Imports = append(b.model.Imports, ir.Import{Path: s.Path, Alias: s.Alias, Pos: s.Pos})
		case *parser.SetStmt:
			if b.firstDecl(s.Name, symSet, seen) {
				b.buildSet(s)
			}
		case *parser.ParamStmt:
			if b.firstDecl(s.Name, symParam, seen) {
				b.buildParam(s)
			}
		case *parser.VarStmt:
			if b.firstDecl(s.Name, symVar, seen) {
				b.buildVar(s)
			}
		case *parser.ObjectiveStmt:
			b.buildObjective(s)
		case *parser.ConstraintBlock:
			for _, c := range s.Constraints {
				b.buildConstraint(c)
			}
		default:
			panic(fmt.Sprintf("compiler: unhandled statement %T", stmt))
		}
	}
}

// firstDecl reports whether this statement is the declaration that won
// the symbol table entry; duplicates were already reported.
func (b *builder) firstDecl(n parser.Name, kind symbolKind, seen map[string]bool) bool {
	if seen[n.Name] {
		return false
	}
	sym := b.symbols[n.Name]
	if sym.kind != kind || sym.pos != n.Pos {
		return false
	}
	seen[n.Name] = true
	return true
}

// useSet returns name, declaring an implicit imported set when the name
// is unknown. Names of other kinds are returned unchanged; validation
// reports them.
func (b *builder) useSet(n parser.Name) string {
	if _, ok := b.symbols[n.Name]; !ok {
		b.symbols[n.Name] = symbol{kind: symSet, pos: n.Pos}
		b.model.Sets = append(b.model.Sets, &ir.Set{
			Name:     n.Name,
			Source:   ir.SetImported,
			Implicit: true,
			Pos:      n.Pos,
		})
	}
	return n.Name
}

func (b *builder) buildSet(s *parser.SetStmt) {
	set := &ir.Set{Name: s.Name.Name, Source: ir.SetImported, Pos: s.Pos}
	switch def := s.Def.(type) {
	case nil:
	case *parser.SetLiteral:
		set.Source = ir.SetLiteral
		seen := make(map[string]bool)
		for _, m := range def.Members {
			v, ok := memberValue(m)
			if !ok {
				b.errorf(ErrNonConstant, m.Position(), "set %s: member must be a constant", set.Name)
				continue
			}
			if seen[v.Key()] {
				b.errorf(ErrDuplicateMember, m.Position(), "set %s: duplicate member %s", set.Name, v.Text())
				continue
			}
			seen[v.Key()] = true
			set.Literal = append(set.Literal, v)
		}
	case *parser.SetRange:
		set.Source = ir.SetRange
		r := ir.Range{Step: 1}
		var ok bool
		if r.From, ok = b.constInt(def.From, set.Name); !ok {
			break
		}
		if r.To, ok = b.constInt(def.To, set.Name); !ok {
			break
		}
		if def.Step != nil {
			if r.Step, ok = b.constInt(def.Step, set.Name); !ok {
				break
			}
			if r.Step <= 0 {
				b.errorf(ErrInvalidRange, def.Step.Position(), "set %s: step must be positive, got %d", set.Name, r.Step)
				break
			}
		}
		if n := r.Len(); n > ir.MaxRangeMembers {
			b.errorf(ErrInvalidRange, def.From.Position(), "set %s: range has %d members, limit is %d", set.Name, n, ir.MaxRangeMembers)
			break
		}
		set.Range = &r
	case *parser.SetComprehension:
		set.Source = ir.SetFiltered
		of := b.useSet(def.Of)
		b.scope = append(b.scope, def.Var.Name)
		cond := b.expr(def.Cond)
		b.scope = b.scope[:len(b.scope)-1]
		set.Filter = &ir.SetFilter{Var: def.Var.Name, Of: of, Cond: cond}
	default:
		panic(fmt.Sprintf("compiler: unhandled set definition %T", def))
	}
	b.model.Sets = append(b.model.Sets, set)
}

func (b *builder) constInt(e parser.Expr, set string) (int64, bool) {
	v, ok := constValue(e)
	if ok {
		v = v.Normalize()
	}
	if !ok || v.Kind() != ir.KindInt {
		b.errorf(ErrInvalidRange, e.Position(), "set %s: range bounds and step must be integer constants", set)
		return 0, false
	}
	n, _ := v.Int()
	return n, true
}

func memberValue(e parser.Expr) (ir.Value, bool) {
	if n, ok := e.(*parser.NameExpr); ok && !n.Indexed {
		return ir.String(n.Name), true
	}
	v, ok := constValue(e)
	if ok {
		v = v.Normalize()
	}
	return v, ok
}

// constValue folds literal arithmetic. It reports false for anything that
// depends on a symbol.
func constValue(e parser.Expr) (ir.Value, bool) {
	switch n := e.(type) {
	case *parser.NumberLit:
		return numberValue(n)
	case *parser.StringLit:
		return ir.String(n.Value), true
	case *parser.BoolLit:
		return ir.Bool(n.Value), true
	case *parser.ParenExpr:
		return constValue(n.X)
	case *parser.UnaryExpr:
		v, ok := constValue(n.X)
		if !ok || !v.IsNumeric() {
			return ir.Value{}, false
		}
		switch n.Op {
		case parser.MINUS:
			if x, ok := v.Int(); ok && x != math.MinInt64 {
				return ir.Int(-x), true
			}
			x, _ := v.Number()
			return ir.Float(-x), true
		case parser.PLUS:
			return v, true
		}
	case *parser.BinaryExpr:
		l, ok1 := constValue(n.Left)
		r, ok2 := constValue(n.Right)
		if !ok1 || !ok2 || !l.IsNumeric() || !r.IsNumeric() {
			return ir.Value{}, false
		}
		x, _ := l.Number()
		y, _ := r.Number()
		switch n.Op {
		case parser.PLUS:
			return ir.Float(x + y).Normalize(), true
		case parser.MINUS:
			return ir.Float(x - y).Normalize(), true
		case parser.STAR:
			return ir.Float(x * y).Normalize(), true
		case parser.SLASH:
			if y != 0 {
				return ir.Float(x / y), true
			}
		case parser.POW:
			return ir.Float(math.Pow(x, y)).Normalize(), true
		}
	}
	return ir.Value{}, false
}

func numberValue(n *parser.NumberLit) (ir.Value, bool) {
	if !n.IsFloat {
		if i, err := strconv.ParseInt(n.Text, 10, 64); err == nil {
			return ir.Int(i), true
		}
	}
	f, err := strconv.ParseFloat(n.Text, 64)
	if err != nil {
		return ir.Value{}, false
	}
	return ir.Float(f), true
}

func (b *builder) indexSets(names []parser.Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = b.useSet(n)
	}
	return out
}

func (b *builder) buildParam(s *parser.ParamStmt) {
	p := &ir.Parameter{Name: s.Name.Name, Index: b.indexSets(s.Index), Pos: s.Pos}
	if s.Default != nil {
		v, ok := constValue(s.Default)
		if !ok {
			b.errorf(ErrNonConstant, s.Default.Position(), "param %s: default must be a constant", p.Name)
		} else {
			p.Default = &v
		}
	}
	b.model.Params = append(b.model.Params, p)
}

var domains = map[string]ir.Domain{
	"cont": ir.DomainContinuous, "continuous": ir.DomainContinuous, "real": ir.DomainContinuous, "continuo": ir.DomainContinuous,
	"int": ir.DomainInteger, "integer": ir.DomainInteger, "inteiro": ir.DomainInteger,
	"bin": ir.DomainBinary, "binary": ir.DomainBinary, "binario": ir.DomainBinary,
}

func (b *builder) buildVar(s *parser.VarStmt) {
	v := &ir.Variable{Name: s.Name.Name, Index: b.indexSets(s.Index), Domain: ir.DomainContinuous, Pos: s.Pos}
	if s.Domain.Name != "" {
		d, ok := domains[s.Domain.Name]
		if !ok {
			b.errorf(ErrInvalidDomain, s.Domain.Pos, "var %s: unknown domain %q", v.Name, s.Domain.Name)
		}
		if ok {
			v.Domain = d
		}
	}
	v.Lower, v.Upper = ir.DefaultBounds(v.Domain)
	for _, bound := range s.Bounds {
		c, ok := constValue(bound.Value)
		x, num := c.Number()
		if !ok || !num || c.Kind() == ir.KindBool {
			b.errorf(ErrNonConstant, bound.Value.Position(), "var %s: bound must be a numeric constant", v.Name)
			continue
		}
		if bound.Op == parser.GE {
			v.Lower = x
		} else {
			v.Upper = x
		}
	}
	b.model.Vars = append(b.model.Vars, v)
}

func (b *builder) buildObjective(s *parser.ObjectiveStmt) {
	if b.model.Objective != nil {
		b.errorf(ErrMultipleObjectives, s.Pos, "only one objective is allowed (first at %s)", b.model.Objective.Pos)
		return
	}
	sense := ir.Minimize
	if s.Maximize {
		sense = ir.Maximize
	}
	b.model.Objective = &ir.Objective{Sense: sense, Expr: b.expr(s.Expr), Pos: s.Pos}
}

func (b *builder) iterators(clauses []parser.IterClause) []ir.Iterator {
	out := make([]ir.Iterator, len(clauses))
	for i, c := range clauses {
		out[i] = ir.Iterator{Var: c.Var.Name, Set: b.useSet(c.Set), Pos: c.Var.Pos}
	}
	return out
}

func (b *builder) pushIterators(iters []ir.Iterator) int {
	mark := len(b.scope)
	for _, it := range iters {
		b.scope = append(b.scope, it.Var)
	}
	return mark
}

func (b *builder) buildConstraint(s *parser.ConstraintStmt) {
	b.auto++
	c := &ir.Constraint{Pos: s.Pos, Iters: b.iterators(s.Iters)}
	if s.Name != nil {
		c.Name = s.Name.Name
	} else {
		c.Name = fmt.Sprintf("c%d", b.auto)
		c.Auto = true
	}
	for _, n := range s.NameIndex {
		found := false
		for _, it := range c.Iters {
			found = found || it.Var == n.Name
		}
		if !found {
			b.errorf(ErrNameIndex, n.Pos, "constraint %s: name index %q is not bound by its for clause", c.Name, n.Name)
		}
		c.NameIndex = append(c.NameIndex, n.Name)
	}

	mark := b.pushIterators(c.Iters)
	defer func() { b.scope = b.scope[:mark] }()

	rel := s.Expr.(*parser.BinaryExpr)
	c.Rel = relOp(rel.Op)
	c.Left = b.expr(rel.Left)
	c.Right = b.expr(rel.Right)
	if s.Where != nil {
		c.Filter = b.expr(s.Where)
	}
	b.model.Constraints = append(b.model.Constraints, c)
}

func (b *builder) inScope(name string) bool {
	for i := len(b.scope) - 1; i >= 0; i-- {
		if b.scope[i] == name {
			return true
		}
	}
	return false
}

func relOp(k parser.TokenKind) ir.Op {
	switch k {
	case parser.EQ, parser.ASSIGN:
		return ir.OpEq
	case parser.NE:
		return ir.OpNe
	case parser.LT:
		return ir.OpLt
	case parser.LE:
		return ir.OpLe
	case parser.GT:
		return ir.OpGt
	case parser.GE:
		return ir.OpGe
	}
	panic(fmt.Sprintf("compiler: %s is not relational", k))
}

var binaryOps = map[parser.TokenKind]ir.Op{
	parser.PLUS: ir.OpAdd, parser.MINUS: ir.OpSub, parser.STAR: ir.OpMul, parser.SLASH: ir.OpDiv,
	parser.PERCENT: ir.OpMod, parser.POW: ir.OpPow, parser.AND: ir.OpAnd, parser.OR: ir.OpOr,
}

// expr maps one CST expression onto its IR constructor.
func (b *builder) expr(e parser.Expr) ir.Expr {
	switch n := e.(type) {
	case *parser.NumberLit:
		v, ok := numberValue(n)
		if !ok {
			b.errorf(ErrNonConstant, n.Pos, "invalid number %q", n.Text)
		}
		return &ir.Literal{Value: v, Pos: n.Pos}
	case *parser.StringLit:
		return &ir.Literal{Value: ir.String(n.Value), Pos: n.Pos}
	case *parser.BoolLit:
		return &ir.Literal{Value: ir.Bool(n.Value), Pos: n.Pos}
	case *parser.ParenExpr:
		return b.expr(n.X)
	case *parser.NameExpr:
		return b.name(n)
	case *parser.UnaryExpr:
		op := ir.OpNeg
		switch n.Op {
		case parser.PLUS:
			op = ir.OpPos
		case parser.NOT:
			op = ir.OpNot
		}
		return &ir.Unary{Op: op, X: b.expr(n.X), Pos: n.Pos}
	case *parser.BinaryExpr:
		op, ok := binaryOps[n.Op]
		if !ok {
			op = relOp(n.Op)
		}
		return &ir.Binary{Op: op, Left: b.expr(n.Left), Right: b.expr(n.Right), Pos: n.Pos}
	case *parser.CallExpr:
		args := make([]ir.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = b.expr(a)
		}
		return &ir.Call{Func: n.Func, Args: args, Pos: n.Pos}
	case *parser.SumExpr:
		agg := &ir.Aggregate{Iters: b.iterators(n.Iters), Pos: n.Pos}
		mark := b.pushIterators(agg.Iters)
		agg.Body = b.expr(n.Body)
		if n.Where != nil {
			agg.Filter = b.expr(n.Where)
		}
		b.scope = b.scope[:mark]
		return agg
	case *parser.IfExpr:
		return &ir.Cond{Cond: b.expr(n.Cond), Then: b.expr(n.Then), Else: b.expr(n.Else), Pos: n.Pos}
	case *parser.InExpr:
		return &ir.Membership{Elem: b.expr(n.Elem), Set: n.Set.Name, Negate: n.Negate, Pos: n.Pos}
	default:
		panic(fmt.Sprintf("compiler: unhandled expression %T", e))
	}
}

func (b *builder) name(n *parser.NameExpr) ir.Expr {
	if !n.Indexed && b.inScope(n.Name) {
		return &ir.Ident{Name: n.Name, Pos: n.Pos}
	}
	sym, declared := b.symbols[n.Name]
	var index []ir.Expr
	for _, x := range n.Index {
		index = append(index, b.indexExpr(x))
	}
	switch {
	case declared && sym.kind == symVar:
		return &ir.VarRef{Name: n.Name, Index: index, Pos: n.Pos}
	case declared && sym.kind == symParam, n.Indexed:
		return &ir.ParamRef{Name: n.Name, Index: index, Pos: n.Pos}
	}
	return &ir.Ident{Name: n.Name, Pos: n.Pos}
}

// indexExpr converts an index position. A bare word that is neither an
// iterator in scope nor a declared symbol is a set member: qty[A].
func (b *builder) indexExpr(e parser.Expr) ir.Expr {
	if n, ok := e.(*parser.NameExpr); ok && !n.Indexed && !b.inScope(n.Name) {
		if _, declared := b.symbols[n.Name]; !declared {
			return &ir.Literal{Value: ir.String(n.Name), Pos: n.Pos}
		}
	}
	return b.expr(e)
}
