package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jowpereira/LOS/internal/ir"
)

const eof = -1

// Lexer turns source text into tokens, tracking 1-based line and
// rune-based column positions.
type Lexer struct {
	src  string
	off  int
	line int
	col  int

	buf strings.Builder

	tokStart ir.Pos
	tokOff   int
}

// NewLexer creates a lexer over src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

// Tokenize lexes the whole input. The returned slice always ends with EOF.
func Tokenize(src string) ([]Token, error) {
	l := NewLexer(src)
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) peekN(n int) rune {
	off := l.off
	for i := 0; ; i++ {
		if off >= len(l.src) {
			return eof
		}
		r, w := utf8.DecodeRuneInString(l.src[off:])
		if i == n {
			return r
		}
		off += w
	}
}

func (l *Lexer) peek() rune { return l.peekN(0) }

func (l *Lexer) read() rune {
	if l.off >= len(l.src) {
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.src[l.off:])
	l.off += w
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) errorf(text, msg string) *ParseError {
	return &ParseError{Line: l.tokStart.Line, Column: l.tokStart.Column, Text: text, Message: msg}
}

// skipWhitespace consumes blanks and '#' line comments.
func (l *Lexer) skipWhitespace() {
	for {
		r := l.peek()
		switch {
		case r == '#':
			for r := l.peek(); r != eof && r != '\n'; r = l.peek() {
				l.read()
			}
		case r != eof && unicode.IsSpace(r):
			l.read()
		default:
			return
		}
	}
}

func (l *Lexer) token(kind TokenKind, text string) Token {
	return Token{Kind: kind, Text: text, Pos: l.tokStart}
}

// Next returns the next token.
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespace()
	l.tokStart = ir.Pos{Line: l.line, Column: l.col}
	l.tokOff = l.off

	r := l.peek()
	switch {
	case r == eof:
		return l.token(EOF, ""), nil
	case r == '_' || unicode.IsLetter(r):
		return l.scanIdentifierOrKeyword(), nil
	case unicode.IsDigit(r):
		return l.scanNumber(), nil
	case r == '.' && unicode.IsDigit(l.peekN(1)):
		return l.scanNumber(), nil
	case r == '"' || r == '\'':
		return l.scanString()
	}
	return l.scanOperator()
}

// scanIdentifierOrKeyword reads a whole identifier before looking it up,
// so a keyword never matches the prefix of a longer name.
func (l *Lexer) scanIdentifierOrKeyword() Token {
	for r := l.peek(); r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r); r = l.peek() {
		l.read()
	}
	text := l.src[l.tokOff:l.off]
	if kind, ok := keywords[text]; ok {
		return l.token(kind, text)
	}
	return l.token(IDENT, text)
}

// scanNumber reads an unsigned literal. A '.' is only part of the number
// when a digit follows, so 1..5 lexes as INT DOTDOT INT.
func (l *Lexer) scanNumber() Token {
	isFloat := false
	for r := l.peek(); unicode.IsDigit(r); r = l.peek() {
		l.read()
	}
	if l.peek() == '.' && unicode.IsDigit(l.peekN(1)) {
		isFloat = true
		l.read()
		for r := l.peek(); unicode.IsDigit(r); r = l.peek() {
			l.read()
		}
	}
	if r := l.peek(); r == 'e' || r == 'E' {
		next := l.peekN(1)
		if unicode.IsDigit(next) || ((next == '+' || next == '-') && unicode.IsDigit(l.peekN(2))) {
			isFloat = true
			l.read()
			if next == '+' || next == '-' {
				l.read()
			}
			for r := l.peek(); unicode.IsDigit(r); r = l.peek() {
				l.read()
			}
		}
	}
	text := l.src[l.tokOff:l.off]
	if isFloat {
		return l.token(FLOAT, text)
	}
	return l.token(INT, text)
}

// scanString decodes a quoted literal, interpreting escapes one at a time.
func (l *Lexer) scanString() (Token, error) {
	quote := l.read()
	l.buf.Reset()
	for {
		r := l.read()
		switch r {
		case eof, '\n':
			return Token{}, l.errorf(l.src[l.tokOff:l.off], "unterminated string literal")
		case quote:
			return l.token(STRING, l.buf.String()), nil
		case '\\':
			esc := l.read()
			switch esc {
			case 'n':
				l.buf.WriteRune('\n')
			case 't':
				l.buf.WriteRune('\t')
			case 'r':
				l.buf.WriteRune('\r')
			case '\\', '"', '\'':
				l.buf.WriteRune(esc)
			case eof:
				return Token{}, l.errorf(l.src[l.tokOff:l.off], "unterminated string literal after escape")
			default:
				return Token{}, l.errorf(l.src[l.tokOff:l.off], "invalid escape sequence \\"+string(esc))
			}
		default:
			l.buf.WriteRune(r)
		}
	}
}

var twoCharOps = map[string]TokenKind{
	"..": DOTDOT, "**": POW, "==": EQ, "!=": NE, "<=": LE, ">=": GE,
}

var oneCharOps = map[rune]TokenKind{
	'(': LPAREN, ')': RPAREN, '[': LBRACK, ']': RBRACK, '{': LBRACE, '}': RBRACE,
	',': COMMA, ':': COLON, '+': PLUS, '-': MINUS, '*': STAR, '/': SLASH,
	'%': PERCENT, '^': POW, '=': ASSIGN, '<': LT, '>': GT,
}

func (l *Lexer) scanOperator() (Token, error) {
	if r0, r1 := l.peek(), l.peekN(1); r1 != eof {
		two := string([]rune{r0, r1})
		if kind, ok := twoCharOps[two]; ok {
			l.read()
			l.read()
			return l.token(kind, two), nil
		}
	}
	r := l.read()
	if kind, ok := oneCharOps[r]; ok {
		return l.token(kind, string(r)), nil
	}
	return Token{}, l.errorf(string(r), "unexpected character")
}
