package parser

import (
	"fmt"

	"github.com/jowpereira/LOS/internal/ir"
)

// TokenKind identifies a lexical token class.
type TokenKind int

const (
	EOF TokenKind = iota
	IDENT
	INT
	FLOAT
	STRING

	// Reserved words.
	IMPORT
	SET
	PARAM
	VAR
	MINIMIZE
	MAXIMIZE
	FOR
	IN
	WHERE
	IF
	AND
	OR
	NOT
	TRUE
	FALSE

	// Punctuation and operators.
	LPAREN
	RPAREN
	LBRACK
	RBRACK
	LBRACE
	RBRACE
	COMMA
	COLON
	DOTDOT
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	POW
	ASSIGN
	EQ
	NE
	LT
	LE
	GT
	GE
)

var tokenNames = map[TokenKind]string{
	EOF: "end of input", IDENT: "identifier", INT: "integer", FLOAT: "number", STRING: "string",
	IMPORT: "'import'", SET: "'set'", PARAM: "'param'", VAR: "'var'",
	MINIMIZE: "'minimize'", MAXIMIZE: "'maximize'", FOR: "'for'", IN: "'in'", WHERE: "'where'",
	IF: "'if'", AND: "'and'", OR: "'or'", NOT: "'not'", TRUE: "'true'", FALSE: "'false'",
	LPAREN: "'('", RPAREN: "')'", LBRACK: "'['", RBRACK: "']'", LBRACE: "'{'", RBRACE: "'}'",
	COMMA: "','", COLON: "':'", DOTDOT: "'..'", PLUS: "'+'", MINUS: "'-'", STAR: "'*'",
	SLASH: "'/'", PERCENT: "'%'", POW: "'^'", ASSIGN: "'='", EQ: "'=='", NE: "'!='",
	LT: "'<'", LE: "'<='", GT: "'>'", GE: "'>='",
}

func (k TokenKind) String() string {
	if s, ok := tokenNames[k]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(k))
}

// keywords maps reserved words, including their Portuguese spellings, to
// token kinds. Words such as min, max, sum, st and step are contextual and
// stay identifiers.
var keywords = map[string]TokenKind{
	"import":    IMPORT,
	"importar":  IMPORT,
	"set":       SET,
	"conjunto":  SET,
	"conj":      SET,
	"param":     PARAM,
	"var":       VAR,
	"minimize":  MINIMIZE,
	"minimizar": MINIMIZE,
	"maximize":  MAXIMIZE,
	"maximizar": MAXIMIZE,
	"for":       FOR,
	"para":      FOR,
	"in":        IN,
	"em":        IN,
	"where":     WHERE,
	"onde":      WHERE,
	"if":        IF,
	"se":        IF,
	"and":       AND,
	"e":         AND,
	"or":        OR,
	"ou":        OR,
	"not":       NOT,
	"nao":       NOT,
	"true":      TRUE,
	"false":     FALSE,
}

// Token is a lexed token. For STRING tokens Text holds the decoded value.
type Token struct {
	Kind TokenKind
	Text string
	Pos  ir.Pos
}

func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return t.Kind.String()
	case STRING:
		return fmt.Sprintf("%q", t.Text)
	default:
		return t.Text
	}
}
