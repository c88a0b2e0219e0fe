// Package lexer converts source text into a finite token sequence in a
// single forward scan. It either completes or fails with a lexical error
// carrying the unconsumed remainder of the input.
package lexer

import (
	"strconv"

	"github.com/tinaxd/tc2/pkg/token"
	"github.com/tinaxd/tc2/pkg/util"
)

type Lexer struct {
	source []rune
	pos    int
	line   int
	column int
}

func NewLexer(source []rune) *Lexer {
	return &Lexer{source: source, line: 1, column: 1}
}

// Tokenize scans the whole input. The returned sequence always ends with
// an EOF token.
func Tokenize(source string) ([]token.Token, error) {
	l := NewLexer([]rune(source))
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks, nil
		}
	}
}

// Next scans one token. Operators are matched before identifiers, and
// two-character operators before single-character ones.
func (l *Lexer) Next() (token.Token, error) {
	l.skipWhitespace()
	startPos, startCol, startLine := l.pos, l.column, l.line

	if l.isAtEnd() {
		return l.makeToken(token.EOF, "", startPos, startCol, startLine), nil
	}

	ch := l.peek()
	if tok, ok := l.operator(ch, startPos, startCol, startLine); ok {
		return tok, nil
	}
	if ch == '\'' {
		l.advance()
		return l.charLiteral(startPos, startCol, startLine)
	}
	if isDigit(ch) {
		return l.numberLiteral(startPos, startCol, startLine), nil
	}
	// The identifier start predicate admits the whole ASCII range from
	// 'A' to 'z', which besides letters includes \ ^ _ and backquote.
	// '[' and ']' fall in the range too but are consumed as operators
	// above.
	if ch >= 'A' && ch <= 'z' {
		l.advance()
		return l.identifierOrKeyword(startPos, startCol, startLine), nil
	}

	tok := l.makeToken(token.EOF, "", startPos, startCol, startLine)
	return tok, util.Errorf(util.LexError, tok, "cannot tokenize: %s", string(l.source[startPos:]))
}

func (l *Lexer) operator(ch rune, sPos, sCol, sLine int) (token.Token, bool) {
	switch ch {
	case '(':
		l.advance()
		return l.makeToken(token.LParen, "", sPos, sCol, sLine), true
	case ')':
		l.advance()
		return l.makeToken(token.RParen, "", sPos, sCol, sLine), true
	case '{':
		l.advance()
		return l.makeToken(token.LBrace, "", sPos, sCol, sLine), true
	case '}':
		l.advance()
		return l.makeToken(token.RBrace, "", sPos, sCol, sLine), true
	case '[':
		l.advance()
		return l.makeToken(token.LBracket, "", sPos, sCol, sLine), true
	case ']':
		l.advance()
		return l.makeToken(token.RBracket, "", sPos, sCol, sLine), true
	case ';':
		l.advance()
		return l.makeToken(token.Semi, "", sPos, sCol, sLine), true
	case ',':
		l.advance()
		return l.makeToken(token.Comma, "", sPos, sCol, sLine), true
	case '+':
		l.advance()
		return l.makeToken(token.Plus, "", sPos, sCol, sLine), true
	case '-':
		l.advance()
		return l.makeToken(token.Minus, "", sPos, sCol, sLine), true
	case '*':
		l.advance()
		return l.makeToken(token.Star, "", sPos, sCol, sLine), true
	case '/':
		l.advance()
		return l.makeToken(token.Slash, "", sPos, sCol, sLine), true
	case '&':
		l.advance()
		return l.makeToken(token.And, "", sPos, sCol, sLine), true
	case '=':
		l.advance()
		return l.matchThen('=', token.EqEq, token.Eq, sPos, sCol, sLine), true
	case '<':
		l.advance()
		return l.matchThen('=', token.Lte, token.Lt, sPos, sCol, sLine), true
	case '>':
		l.advance()
		return l.matchThen('=', token.Gte, token.Gt, sPos, sCol, sLine), true
	case '!':
		if l.peekNext() == '=' {
			l.advance()
			l.advance()
			return l.makeToken(token.Neq, "", sPos, sCol, sLine), true
		}
	}
	return token.Token{}, false
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value, Pos: startPos,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) matchThen(expected rune, thenType, elseType token.Type, sPos, sCol, sLine int) token.Token {
	if l.match(expected) {
		return l.makeToken(thenType, "", sPos, sCol, sLine)
	}
	return l.makeToken(elseType, "", sPos, sCol, sLine)
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.peek() {
		case ' ', '\t', '\n', '\r':
			l.advance()
		default:
			return
		}
	}
}

// identifierOrKeyword scans a maximal word and classifies it. Keywords are
// recognized via the map only after the full word is consumed, so a
// keyword immediately followed by an alphanumeric ("interest") stays an
// identifier.
func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for isAlnum(l.peek()) {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])
	tok := l.makeToken(token.Ident, value, startPos, startCol, startLine)

	if tokType, isKeyword := token.KeywordMap[value]; isKeyword {
		tok.Type = tokType
		tok.Value = ""
	}
	return tok
}

// numberLiteral scans a maximal digit run and decodes it.
func (l *Lexer) numberLiteral(startPos, startCol, startLine int) token.Token {
	for isDigit(l.peek()) {
		l.advance()
	}
	valueStr := string(l.source[startPos:l.pos])
	tok := l.makeToken(token.Number, "", startPos, startCol, startLine)
	val, _ := strconv.ParseInt(valueStr, 10, 64)
	tok.Value = strconv.FormatInt(val, 10)
	return tok
}

// charLiteral scans the body of 'x'. The only supported escape is \0,
// decoding to NUL.
func (l *Lexer) charLiteral(startPos, startCol, startLine int) (token.Token, error) {
	errTok := l.makeToken(token.CharLit, "", startPos, startCol, startLine)
	if l.isAtEnd() {
		return errTok, util.Errorf(util.LexError, errTok, "unterminated character literal")
	}

	var val int64
	switch c := l.advance(); c {
	case '\\':
		esc := l.advance()
		if esc != '0' {
			return errTok, util.Errorf(util.LexError, errTok, "unsupported escape sequence '\\%c'", esc)
		}
	case '\'':
		return errTok, util.Errorf(util.LexError, errTok, "empty character literal")
	default:
		val = int64(c)
	}

	tok := l.makeToken(token.CharLit, "", startPos, startCol, startLine)
	if !l.match('\'') {
		return tok, util.Errorf(util.LexError, tok, "unterminated character literal")
	}
	tok = l.makeToken(token.CharLit, "", startPos, startCol, startLine)
	tok.Value = strconv.FormatInt(val, 10)
	return tok, nil
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }

func isAlnum(c rune) bool {
	return isDigit(c) || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
