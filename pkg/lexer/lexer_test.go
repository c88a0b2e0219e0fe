package lexer

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/tinaxd/tc2/pkg/token"
	"github.com/tinaxd/tc2/pkg/util"
)

func tokenTypes(toks []token.Token) []token.Type {
	types := make([]token.Type, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	return types
}

func TestTokenizeReturnStatement(t *testing.T) {
	toks, err := Tokenize("int main() { return 42; }")
	be.Err(t, err, nil)
	be.Equal(t, tokenTypes(toks), []token.Type{
		token.Int, token.Ident, token.LParen, token.RParen, token.LBrace,
		token.Return, token.Number, token.Semi, token.RBrace, token.EOF,
	})
	be.Equal(t, toks[1].Value, "main")
	be.Equal(t, toks[6].Value, "42")
}

func TestTokenizeOperators(t *testing.T) {
	toks, err := Tokenize("= == != < <= > >= + - * / & [ ]")
	be.Err(t, err, nil)
	be.Equal(t, tokenTypes(toks), []token.Type{
		token.Eq, token.EqEq, token.Neq, token.Lt, token.Lte, token.Gt,
		token.Gte, token.Plus, token.Minus, token.Star, token.Slash,
		token.And, token.LBracket, token.RBracket, token.EOF,
	})
}

func TestKeywordBoundary(t *testing.T) {
	// A keyword followed by more word characters is a plain identifier.
	toks, err := Tokenize("interest in2 return")
	be.Err(t, err, nil)
	be.Equal(t, tokenTypes(toks), []token.Type{token.Ident, token.Ident, token.Return, token.EOF})
	be.Equal(t, toks[0].Value, "interest")
	be.Equal(t, toks[1].Value, "in2")
}

func TestCharLiteral(t *testing.T) {
	toks, err := Tokenize("'A'")
	be.Err(t, err, nil)
	be.Equal(t, toks[0].Type, token.CharLit)
	be.Equal(t, toks[0].Value, "65")
}

func TestCharLiteralNulEscape(t *testing.T) {
	toks, err := Tokenize("'\\0'")
	be.Err(t, err, nil)
	be.Equal(t, toks[0].Value, "0")
}

func TestCharLiteralErrors(t *testing.T) {
	for _, src := range []string{"'", "''", "'a", "'\\n'"} {
		_, err := Tokenize(src)
		be.Err(t, err)
		kind, ok := util.KindOf(err)
		be.True(t, ok)
		be.Equal(t, kind, util.LexError)
	}
}

func TestUnknownCharacter(t *testing.T) {
	_, err := Tokenize("int x; @")
	be.Err(t, err, "cannot tokenize")
	kind, ok := util.KindOf(err)
	be.True(t, ok)
	be.Equal(t, kind, util.LexError)
}

func TestLoneBangIsError(t *testing.T) {
	_, err := Tokenize("!x")
	be.Err(t, err)
}

func TestLineAndColumnTracking(t *testing.T) {
	toks, err := Tokenize("int a;\n  a = 1;")
	be.Err(t, err, nil)
	// "a" on the second line starts at column 3.
	be.Equal(t, toks[3].Line, 2)
	be.Equal(t, toks[3].Column, 3)
}

func TestIdentifierRangeQuirk(t *testing.T) {
	// '_' falls inside the accepted identifier start range.
	toks, err := Tokenize("_x")
	be.Err(t, err, nil)
	be.Equal(t, toks[0].Type, token.Ident)
}
