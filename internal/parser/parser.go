package parser

import (
	"fmt"
	"strings"

	"github.com/jowpereira/LOS/internal/ir"
)

// Parse parses src into a concrete syntax tree.
//
// Parsing stops at the first error, returned as *ParseError.
func Parse(src string) (*File, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	return p.parseFile()
}

// Parser is a recursive-descent parser over a token slice.
//
// Precedence, loosest first: or, and, not, relational (non-associative,
// including `in`), additive, multiplicative, power (right-associative),
// unary.
type Parser struct {
	toks []Token
	pos  int
}

// PeekToken returns the current token without consuming it.
func (p *Parser) PeekToken() Token { return p.peekN(0) }

func (p *Parser) peekN(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

// Advance consumes and returns the current token.
func (p *Parser) Advance() Token {
	tok := p.PeekToken()
	if tok.Kind != EOF {
		p.pos++
	}
	return tok
}

// AdvanceIf consumes the current token if it is one of kinds.
func (p *Parser) AdvanceIf(kinds ...TokenKind) (Token, bool) {
	tok := p.PeekToken()
	for _, k := range kinds {
		if tok.Kind == k {
			p.pos++
			return tok, true
		}
	}
	return tok, false
}

// Expect consumes a token of one of kinds or fails.
func (p *Parser) Expect(kinds ...TokenKind) (Token, error) {
	if tok, ok := p.AdvanceIf(kinds...); ok {
		return tok, nil
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	if len(kinds) == 1 {
		return Token{}, p.Errorf("expected %s, found %s", names[0], p.PeekToken().Kind)
	}
	return Token{}, p.Errorf("expected one of [%s], found %s", strings.Join(names, ", "), p.PeekToken().Kind)
}

// Errorf builds a ParseError located at the current token.
func (p *Parser) Errorf(format string, args ...any) error {
	tok := p.PeekToken()
	return &ParseError{
		Line:    tok.Pos.Line,
		Column:  tok.Pos.Column,
		Text:    tok.Text,
		Message: fmt.Sprintf(format, args...),
	}
}

// isWord reports whether the token at offset n is the contextual word w.
func (p *Parser) isWord(n int, words ...string) bool {
	tok := p.peekN(n)
	if tok.Kind != IDENT {
		return false
	}
	for _, w := range words {
		if tok.Text == w {
			return true
		}
	}
	return false
}

// blockHeader returns the number of tokens in a constraint block header
// (st:, subject to:, sujeito a:) at the current position, or 0.
func (p *Parser) blockHeader() int {
	switch {
	case p.isWord(0, "st") && p.peekN(1).Kind == COLON:
		return 2
	case p.isWord(0, "subject") && p.isWord(1, "to") && p.peekN(2).Kind == COLON:
		return 3
	case p.isWord(0, "sujeito") && p.isWord(1, "a") && p.peekN(2).Kind == COLON:
		return 3
	}
	return 0
}

func (p *Parser) atObjective() bool {
	switch p.PeekToken().Kind {
	case MINIMIZE, MAXIMIZE:
		return true
	case IDENT:
		return p.isWord(0, "min", "max") && p.peekN(1).Kind == COLON
	}
	return false
}

// atStatement reports whether a new top-level statement starts here.
func (p *Parser) atStatement() bool {
	switch p.PeekToken().Kind {
	case EOF, IMPORT, SET, PARAM, VAR:
		return true
	}
	return p.atObjective() || p.blockHeader() > 0
}

func (p *Parser) parseFile() (*File, error) {
	f := &File{}
	for p.PeekToken().Kind != EOF {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		f.Stmts = append(f.Stmts, stmt)
	}
	return f, nil
}

func (p *Parser) parseStmt() (Stmt, error) {
	tok := p.PeekToken()
	switch tok.Kind {
	case IMPORT:
		return p.parseImport()
	case SET:
		return p.parseSet()
	case PARAM:
		return p.parseParam()
	case VAR:
		return p.parseVar()
	}
	if p.atObjective() {
		return p.parseObjective()
	}
	if n := p.blockHeader(); n > 0 {
		p.pos += n
		return p.parseConstraintBlock(tok.Pos)
	}
	return nil, p.Errorf("expected 'import', 'set', 'param', 'var', an objective or a constraint block, found %s", tok.Kind)
}

func (p *Parser) parseName() (Name, error) {
	tok, err := p.Expect(IDENT)
	if err != nil {
		return Name{}, err
	}
	return Name{Name: tok.Text, Pos: tok.Pos}, nil
}

func (p *Parser) parseImport() (Stmt, error) {
	kw := p.Advance()
	path, err := p.Expect(STRING)
	if err != nil {
		return nil, err
	}
	stmt := &ImportStmt{Path: path.Text, Pos: kw.Pos}
	if p.isWord(0, "as", "como") {
		p.Advance()
		alias, err := p.parseName()
		if err != nil {
			return nil, err
		}
		stmt.Alias = alias.Name
	}
	return stmt, nil
}

func (p *Parser) parseSet() (Stmt, error) {
	kw := p.Advance()
	name, err := p.parseName()
	if err != nil {
		return nil, err
	}
	stmt := &SetStmt{Name: name, Pos: kw.Pos}
	if _, ok := p.AdvanceIf(ASSIGN); !ok {
		return stmt, nil
	}
	if p.PeekToken().Kind == LBRACE {
		stmt.Def, err = p.parseSetBraces()
	} else {
		stmt.Def, err = p.parseSetRange()
	}
	if err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseSetBraces() (SetDef, error) {
	p.Advance() // {
	if p.PeekToken().Kind == IDENT && p.peekN(1).Kind == IN {
		v, _ := p.parseName()
		p.Advance() // in
		of, err := p.parseName()
		if err != nil {
			return nil, err
		}
		if _, err := p.Expect(WHERE, COLON); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.Expect(RBRACE); err != nil {
			return nil, err
		}
		return &SetComprehension{Var: v, Of: of, Cond: cond}, nil
	}

	def := &SetLiteral{}
	if _, ok := p.AdvanceIf(RBRACE); ok {
		return def, nil
	}
	for {
		m, err := p.parseSetMember()
		if err != nil {
			return nil, err
		}
		def.Members = append(def.Members, m)
		if _, ok := p.AdvanceIf(COMMA); !ok {
			break
		}
	}
	if _, err := p.Expect(RBRACE); err != nil {
		return nil, err
	}
	return def, nil
}

func (p *Parser) parseSetMember() (Expr, error) {
	tok := p.PeekToken()
	switch tok.Kind {
	case IDENT:
		p.Advance()
		return &NameExpr{Name: tok.Text, Pos: tok.Pos}, nil
	case STRING:
		p.Advance()
		return &StringLit{Value: tok.Text, Pos: tok.Pos}, nil
	default:
		return p.parseSignedNumber()
	}
}

func (p *Parser) parseSetRange() (SetDef, error) {
	from, err := p.parseSignedNumber()
	if err != nil {
		return nil, err
	}
	if _, err := p.Expect(DOTDOT); err != nil {
		return nil, err
	}
	to, err := p.parseSignedNumber()
	if err != nil {
		return nil, err
	}
	def := &SetRange{From: from, To: to}
	if p.isWord(0, "step", "passo") {
		p.Advance()
		if def.Step, err = p.parseSignedNumber(); err != nil {
			return nil, err
		}
	}
	return def, nil
}

// parseSignedNumber accepts an optional '-' before a numeric literal. The
// sign becomes a unary node; the literal token itself is never signed.
func (p *Parser) parseSignedNumber() (Expr, error) {
	if minus, ok := p.AdvanceIf(MINUS); ok {
		x, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: MINUS, X: x, Pos: minus.Pos}, nil
	}
	return p.parseNumber()
}

func (p *Parser) parseNumber() (Expr, error) {
	tok, err := p.Expect(INT, FLOAT)
	if err != nil {
		return nil, err
	}
	return &NumberLit{Text: tok.Text, IsFloat: tok.Kind == FLOAT, Pos: tok.Pos}, nil
}

func (p *Parser) parseIndexNames() ([]Name, error) {
	if _, ok := p.AdvanceIf(LBRACK); !ok {
		return nil, nil
	}
	var names []Name
	for {
		n, err := p.parseName()
		if err != nil {
			return nil, err
		}
		names = append(names, n)
		if _, ok := p.AdvanceIf(COMMA); !ok {
			break
		}
	}
	if _, err := p.Expect(RBRACK); err != nil {
		return nil, err
	}
	return names, nil
}

func (p *Parser) parseParam() (Stmt, error) {
	kw := p.Advance()
	name, err := p.parseName()
	if err != nil {
		return nil, err
	}
	stmt := &ParamStmt{Name: name, Pos: kw.Pos}
	if stmt.Index, err = p.parseIndexNames(); err != nil {
		return nil, err
	}
	if _, ok := p.AdvanceIf(ASSIGN); ok {
		if stmt.Default, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseVar() (Stmt, error) {
	kw := p.Advance()
	name, err := p.parseName()
	if err != nil {
		return nil, err
	}
	stmt := &VarStmt{Name: name, Pos: kw.Pos}
	if stmt.Index, err = p.parseIndexNames(); err != nil {
		return nil, err
	}
	if _, ok := p.AdvanceIf(COLON); ok {
		if stmt.Domain, err = p.parseName(); err != nil {
			return nil, err
		}
	}
	for {
		op, ok := p.AdvanceIf(GE, LE)
		if !ok {
			break
		}
		v, err := p.parseSignedNumber()
		if err != nil {
			return nil, err
		}
		stmt.Bounds = append(stmt.Bounds, Bound{Op: op.Kind, Value: v})
	}
	return stmt, nil
}

func (p *Parser) parseObjective() (Stmt, error) {
	tok := p.Advance()
	maximize := tok.Kind == MAXIMIZE || tok.Text == "max"
	if _, err := p.Expect(COLON); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ObjectiveStmt{Maximize: maximize, Expr: e, Pos: tok.Pos}, nil
}

func (p *Parser) parseConstraintBlock(pos ir.Pos) (Stmt, error) {
	block := &ConstraintBlock{Pos: pos}
	for !p.atStatement() {
		c, err := p.parseConstraint()
		if err != nil {
			return nil, err
		}
		block.Constraints = append(block.Constraints, c)
	}
	return block, nil
}

// namedConstraintAhead reports whether the tokens at the current position
// are `name:` or `name[...]:`.
func (p *Parser) namedConstraintAhead() bool {
	if p.PeekToken().Kind != IDENT {
		return false
	}
	switch p.peekN(1).Kind {
	case COLON:
		return true
	case LBRACK:
		depth := 0
		for i := 1; ; i++ {
			switch p.peekN(i).Kind {
			case LBRACK:
				depth++
			case RBRACK:
				depth--
				if depth == 0 {
					return p.peekN(i+1).Kind == COLON
				}
			case EOF:
				return false
			}
		}
	}
	return false
}

func (p *Parser) parseConstraint() (*ConstraintStmt, error) {
	c := &ConstraintStmt{Pos: p.PeekToken().Pos}
	if p.namedConstraintAhead() {
		name, _ := p.parseName()
		c.Name = &name
		var err error
		if c.NameIndex, err = p.parseIndexNames(); err != nil {
			return nil, err
		}
		p.Advance() // :
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	bin, ok := e.(*BinaryExpr)
	if !ok || !isRelational(bin.Op) {
		return nil, &ParseError{
			Line: e.Position().Line, Column: e.Position().Column,
			Message: "constraint must compare two expressions",
		}
	}
	c.Expr = e
	if _, ok := p.AdvanceIf(FOR); ok {
		if c.Iters, err = p.parseIterators(); err != nil {
			return nil, err
		}
		if _, ok := p.AdvanceIf(WHERE); ok {
			if c.Where, err = p.parseExpr(); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// parseIterators parses `i in I {, j in J}` after a 'for'.
func (p *Parser) parseIterators() ([]IterClause, error) {
	var iters []IterClause
	for {
		v, err := p.parseName()
		if err != nil {
			return nil, err
		}
		if _, err := p.Expect(IN); err != nil {
			return nil, err
		}
		set, err := p.parseName()
		if err != nil {
			return nil, err
		}
		iters = append(iters, IterClause{Var: v, Set: set})
		if p.PeekToken().Kind == COMMA && p.peekN(1).Kind == IDENT && p.peekN(2).Kind == IN {
			p.Advance()
			continue
		}
		return iters, nil
	}
}

func isRelational(k TokenKind) bool {
	switch k {
	case EQ, NE, LT, LE, GT, GE, ASSIGN:
		return true
	}
	return false
}

func (p *Parser) parseExpr() (Expr, error) { return p.parseOr() }

func (p *Parser) parseBinary(next func() (Expr, error), ops ...TokenKind) (Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.AdvanceIf(ops...)
		if !ok {
			return left, nil
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op.Kind, Left: left, Right: right, Pos: op.Pos}
	}
}

func (p *Parser) parseOr() (Expr, error)  { return p.parseBinary(p.parseAnd, OR) }
func (p *Parser) parseAnd() (Expr, error) { return p.parseBinary(p.parseNot, AND) }

func (p *Parser) parseNot() (Expr, error) {
	if tok, ok := p.AdvanceIf(NOT); ok {
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: NOT, X: x, Pos: tok.Pos}, nil
	}
	return p.parseRel()
}

// parseRel parses at most one comparison; chains are rejected.
func (p *Parser) parseRel() (Expr, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	tok := p.PeekToken()
	switch {
	case tok.Kind == IN || (tok.Kind == NOT && p.peekN(1).Kind == IN):
		negate := tok.Kind == NOT
		p.Advance()
		if negate {
			p.Advance()
		}
		set, err := p.parseName()
		if err != nil {
			return nil, err
		}
		return &InExpr{Elem: left, Set: set, Negate: negate, Pos: tok.Pos}, nil
	case isRelational(tok.Kind):
		p.Advance()
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		if isRelational(p.PeekToken().Kind) {
			return nil, p.Errorf("comparison operators cannot be chained")
		}
		op := tok.Kind
		if op == ASSIGN {
			op = EQ
		}
		return &BinaryExpr{Op: op, Left: left, Right: right, Pos: tok.Pos}, nil
	}
	return left, nil
}

func (p *Parser) parseAdd() (Expr, error) { return p.parseBinary(p.parseMul, PLUS, MINUS) }
func (p *Parser) parseMul() (Expr, error) {
	return p.parseBinary(p.parsePow, STAR, SLASH, PERCENT)
}

// parsePow is right-associative: 2^3^2 is 2^(3^2).
func (p *Parser) parsePow() (Expr, error) {
	base, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	op, ok := p.AdvanceIf(POW)
	if !ok {
		return base, nil
	}
	exp, err := p.parsePow()
	if err != nil {
		return nil, err
	}
	return &BinaryExpr{Op: POW, Left: base, Right: exp, Pos: op.Pos}, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if tok, ok := p.AdvanceIf(MINUS, PLUS); ok {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: tok.Kind, X: x, Pos: tok.Pos}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.PeekToken()
	switch tok.Kind {
	case INT, FLOAT:
		return p.parseNumber()
	case STRING:
		p.Advance()
		return &StringLit{Value: tok.Text, Pos: tok.Pos}, nil
	case TRUE, FALSE:
		p.Advance()
		return &BoolLit{Value: tok.Kind == TRUE, Pos: tok.Pos}, nil
	case LPAREN:
		p.Advance()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.Expect(RPAREN); err != nil {
			return nil, err
		}
		return &ParenExpr{X: x, Pos: tok.Pos}, nil
	case IF:
		return p.parseIf()
	case IDENT:
		p.Advance()
		switch p.PeekToken().Kind {
		case LPAREN:
			return p.parseCall(tok)
		case LBRACK:
			return p.parseIndexed(tok)
		}
		return &NameExpr{Name: tok.Text, Pos: tok.Pos}, nil
	}
	return nil, p.Errorf("expected expression, found %s", tok.Kind)
}

func (p *Parser) parseIf() (Expr, error) {
	kw := p.Advance()
	if _, err := p.Expect(LPAREN); err != nil {
		return nil, err
	}
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	if len(args) != 3 {
		return nil, &ParseError{Line: kw.Pos.Line, Column: kw.Pos.Column, Text: kw.Text,
			Message: fmt.Sprintf("if expects 3 arguments (condition, then, else), got %d", len(args))}
	}
	return &IfExpr{Cond: args[0], Then: args[1], Else: args[2], Pos: kw.Pos}, nil
}

// funcAliases maps alternate spellings onto whitelisted function names.
var funcAliases = map[string]string{"soma": "sum", "raiz": "sqrt"}

func (p *Parser) parseCall(name Token) (Expr, error) {
	p.Advance() // (
	fn := name.Text
	if alias, ok := funcAliases[fn]; ok {
		fn = alias
	}
	if fn == "sum" {
		body, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, ok := p.AdvanceIf(FOR); ok {
			return p.finishSum(body, name.Pos)
		}
		call := &CallExpr{Func: fn, Args: []Expr{body}, Pos: name.Pos}
		if _, ok := p.AdvanceIf(COMMA); ok {
			rest, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, rest...)
			return call, nil
		}
		if _, err := p.Expect(RPAREN); err != nil {
			return nil, err
		}
		return call, nil
	}
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	return &CallExpr{Func: fn, Args: args, Pos: name.Pos}, nil
}

func (p *Parser) finishSum(body Expr, pos ir.Pos) (Expr, error) {
	iters, err := p.parseIterators()
	if err != nil {
		return nil, err
	}
	sum := &SumExpr{Body: body, Iters: iters, Pos: pos}
	if _, ok := p.AdvanceIf(WHERE); ok {
		if sum.Where, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if _, err := p.Expect(RPAREN); err != nil {
		return nil, err
	}
	return sum, nil
}

// parseArgs parses a comma-separated list through the closing ')'.
func (p *Parser) parseArgs() ([]Expr, error) {
	var args []Expr
	if _, ok := p.AdvanceIf(RPAREN); ok {
		return args, nil
	}
	for {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if _, ok := p.AdvanceIf(COMMA); !ok {
			break
		}
	}
	if _, err := p.Expect(RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parseIndexed(name Token) (Expr, error) {
	p.Advance() // [
	e := &NameExpr{Name: name.Text, Indexed: true, Pos: name.Pos}
	for {
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		e.Index = append(e.Index, x)
		if _, ok := p.AdvanceIf(COMMA); !ok {
			break
		}
	}
	if _, err := p.Expect(RBRACK); err != nil {
		return nil, err
	}
	return e, nil
}
