package token

type Type int

const (
	EOF Type = iota
	Ident
	Number
	CharLit
	Int
	Char
	Return
	If
	Else
	While
	For
	Sizeof
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semi
	Comma
	Eq
	EqEq
	Neq
	Lt
	Gt
	Lte
	Gte
	Plus
	Minus
	Star
	Slash
	And
)

var KeywordMap = map[string]Type{
	"int":    Int,
	"char":   Char,
	"return": Return,
	"if":     If,
	"else":   Else,
	"while":  While,
	"for":    For,
	"sizeof": Sizeof,
}

var operatorStrings = map[Type]string{
	EOF:      "end of input",
	LParen:   "(",
	RParen:   ")",
	LBrace:   "{",
	RBrace:   "}",
	LBracket: "[",
	RBracket: "]",
	Semi:     ";",
	Comma:    ",",
	Eq:       "=",
	EqEq:     "==",
	Neq:      "!=",
	Lt:       "<",
	Gt:       ">",
	Lte:      "<=",
	Gte:      ">=",
	Plus:     "+",
	Minus:    "-",
	Star:     "*",
	Slash:    "/",
	And:      "&",
}

// TypeStrings maps a token type back to its source spelling, for diagnostics.
var TypeStrings = make(map[Type]string)

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for typ, str := range operatorStrings {
		TypeStrings[typ] = str
	}
}

// Token is one lexeme of the source text. Value holds the identifier name
// for Ident tokens and the decoded decimal value for Number and CharLit
// tokens. Tokens are produced once by the lexer and never mutated.
type Token struct {
	Type   Type
	Value  string
	Line   int
	Column int
	Pos    int
	Len    int
}

// Text returns a printable form of the token for error messages.
func (t Token) Text() string {
	if t.Type == Ident || t.Type == Number || t.Type == CharLit {
		return t.Value
	}
	if s, ok := TypeStrings[t.Type]; ok {
		return s
	}
	return t.Value
}
