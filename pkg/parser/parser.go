// Package parser turns the token sequence into function-definition AST
// roots while incrementally populating a per-function local-variable
// table. Parsing is fail-fast: the first violation aborts the whole run
// with no partial AST.
package parser

import (
	"strconv"
	"strings"

	"github.com/tinaxd/tc2/pkg/ast"
	"github.com/tinaxd/tc2/pkg/symtab"
	"github.com/tinaxd/tc2/pkg/token"
	"github.com/tinaxd/tc2/pkg/types"
	"github.com/tinaxd/tc2/pkg/util"
)

// MaxArgs is the number of register-passed arguments the calling
// convention supports.
const MaxArgs = 6

type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	table    *symtab.Table
}

// funcCtx is the parsing context of the function definition currently
// being built. It is threaded explicitly through the recursive descent so
// identifier resolution never depends on hidden parser-wide state.
type funcCtx struct {
	name string
}

func NewParser(tokens []token.Token) *Parser {
	p := &Parser{tokens: tokens, table: symtab.NewTable()}
	if len(tokens) > 0 {
		p.current = p.tokens[0]
	}
	return p
}

// Parse consumes the whole token sequence and returns the program's
// function definitions in declaration order together with the completed
// symbol table.
func (p *Parser) Parse() ([]*ast.Node, *symtab.Table, error) {
	var funcs []*ast.Node
	for !p.check(token.EOF) {
		def, err := p.definition()
		if err != nil {
			return nil, nil, err
		}
		funcs = append(funcs, def)
	}
	return funcs, p.table, nil
}

// Table exposes the symbol table built so far (complete after Parse).
func (p *Parser) Table() *symtab.Table { return p.table }

func (p *Parser) advance() {
	if p.pos < len(p.tokens) {
		p.previous = p.current
		p.pos++
		if p.pos < len(p.tokens) {
			p.current = p.tokens[p.pos]
		}
	}
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, what string) error {
	if p.check(tokType) {
		p.advance()
		return nil
	}
	return util.Errorf(util.SyntaxError, p.current, "expected %s, found '%s'", what, p.current.Text())
}

func (p *Parser) expectIdent() (token.Token, error) {
	if !p.check(token.Ident) {
		return p.current, util.Errorf(util.SyntaxError, p.current, "expected an identifier, found '%s'", p.current.Text())
	}
	tok := p.current
	p.advance()
	return tok, nil
}

func (p *Parser) expectNumber() (int64, error) {
	if !p.check(token.Number) {
		return 0, util.Errorf(util.SyntaxError, p.current, "expected a number, found '%s'", p.current.Text())
	}
	val, _ := strconv.ParseInt(p.current.Value, 10, 64)
	p.advance()
	return val, nil
}

// parseType parses a base type (int or char) followed by at most one '*'.
// A second pointer level is recognized but not implemented.
func (p *Parser) parseType() (*types.Type, token.Token, error) {
	tok := p.current
	var ty *types.Type
	switch {
	case p.match(token.Int):
		ty = types.TypeInt
	case p.match(token.Char):
		ty = types.TypeChar
	default:
		return nil, tok, util.Errorf(util.SyntaxError, tok, "expected a type name, found '%s'", tok.Text())
	}
	if p.match(token.Star) {
		ty = types.PointerTo(ty)
		if p.check(token.Star) {
			return nil, p.current, util.Errorf(util.UnsupportedError, p.current, "multi-level pointer declarations are not supported")
		}
	}
	return ty, tok, nil
}

func (p *Parser) definition() (*ast.Node, error) {
	if _, _, err := p.parseType(); err != nil {
		return nil, err
	}
	fnTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	fc := &funcCtx{name: fnTok.Value}
	p.table.DeclareFunc(fc.name)

	if err := p.expect(token.LParen, "'('"); err != nil {
		return nil, err
	}
	var params []*symtab.LocalVar
	if !p.match(token.RParen) {
		for {
			ty, tyTok, err := p.parseType()
			if err != nil {
				return nil, err
			}
			if ty.Kind == types.KindChar {
				return nil, util.Errorf(util.UnsupportedError, tyTok, "parameters of type char are not supported")
			}
			idTok, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			if len(params) == MaxArgs {
				return nil, util.Errorf(util.UnsupportedError, idTok, "functions with more than %d parameters are not supported", MaxArgs)
			}
			lv, err := p.table.Declare(fc.name, idTok.Value, ty, true)
			if err != nil {
				return nil, util.Errorf(util.SemanticError, idTok, "%s", err)
			}
			params = append(params, lv)
			if !p.match(token.Comma) {
				break
			}
		}
		if err := p.expect(token.RParen, "')'"); err != nil {
			return nil, err
		}
	}

	if err := p.expect(token.LBrace, "'{'"); err != nil {
		return nil, err
	}
	bodyTok := p.previous
	var stmts []*ast.Node
	for !p.match(token.RBrace) {
		if p.check(token.EOF) {
			return nil, util.Errorf(util.SyntaxError, p.current, "expected '}' before end of input")
		}
		s, err := p.stmt(fc)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}

	return ast.NewFuncDef(fnTok, fc.name, params, ast.NewBlock(bodyTok, stmts)), nil
}

func (p *Parser) stmt(fc *funcCtx) (*ast.Node, error) {
	tok := p.current
	switch {
	case p.match(token.Return):
		expr, err := p.expr(fc)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.Semi, "';'"); err != nil {
			return nil, err
		}
		return ast.NewReturn(tok, expr), nil

	case p.check(token.Int) || p.check(token.Char):
		return p.declaration(fc)

	case p.match(token.If):
		if err := p.expect(token.LParen, "'('"); err != nil {
			return nil, err
		}
		cond, err := p.expr(fc)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RParen, "')'"); err != nil {
			return nil, err
		}
		then, err := p.stmt(fc)
		if err != nil {
			return nil, err
		}
		var els *ast.Node
		if p.match(token.Else) {
			if els, err = p.stmt(fc); err != nil {
				return nil, err
			}
		}
		return ast.NewIf(tok, cond, then, els), nil

	case p.match(token.While):
		if err := p.expect(token.LParen, "'('"); err != nil {
			return nil, err
		}
		cond, err := p.expr(fc)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RParen, "')'"); err != nil {
			return nil, err
		}
		body, err := p.stmt(fc)
		if err != nil {
			return nil, err
		}
		return ast.NewWhile(tok, cond, body), nil

	case p.match(token.For):
		return p.forStmt(fc, tok)

	case p.match(token.LBrace):
		var stmts []*ast.Node
		for !p.match(token.RBrace) {
			if p.check(token.EOF) {
				return nil, util.Errorf(util.SyntaxError, p.current, "expected '}' before end of input")
			}
			s, err := p.stmt(fc)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, s)
		}
		return ast.NewBlock(tok, stmts), nil

	default:
		expr, err := p.expr(fc)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.Semi, "';'"); err != nil {
			return nil, err
		}
		return expr, nil
	}
}

// declaration registers a local variable and yields an Empty node; it
// produces nothing evaluable.
func (p *Parser) declaration(fc *funcCtx) (*ast.Node, error) {
	ty, tyTok, err := p.parseType()
	if err != nil {
		return nil, err
	}
	idTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if p.match(token.LBracket) {
		n, err := p.expectNumber()
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, util.Errorf(util.SyntaxError, p.previous, "array length must be non-negative")
		}
		if err := p.expect(token.RBracket, "']'"); err != nil {
			return nil, err
		}
		ty = types.ArrayOf(ty, int(n))
	}
	if err := p.expect(token.Semi, "';'"); err != nil {
		return nil, err
	}
	if _, err := p.table.Declare(fc.name, idTok.Value, ty, false); err != nil {
		return nil, util.Errorf(util.SemanticError, idTok, "%s", err)
	}
	return ast.NewEmpty(tyTok), nil
}

func (p *Parser) forStmt(fc *funcCtx, tok token.Token) (*ast.Node, error) {
	if err := p.expect(token.LParen, "'('"); err != nil {
		return nil, err
	}
	var init, cond, step *ast.Node
	var err error
	if !p.match(token.Semi) {
		if init, err = p.expr(fc); err != nil {
			return nil, err
		}
		if err := p.expect(token.Semi, "';'"); err != nil {
			return nil, err
		}
	}
	if !p.match(token.Semi) {
		if cond, err = p.expr(fc); err != nil {
			return nil, err
		}
		if err := p.expect(token.Semi, "';'"); err != nil {
			return nil, err
		}
	}
	if !p.match(token.RParen) {
		if step, err = p.expr(fc); err != nil {
			return nil, err
		}
		if err := p.expect(token.RParen, "')'"); err != nil {
			return nil, err
		}
	}
	body, err := p.stmt(fc)
	if err != nil {
		return nil, err
	}
	return ast.NewFor(tok, init, cond, step, body), nil
}

func (p *Parser) expr(fc *funcCtx) (*ast.Node, error) {
	return p.assign(fc)
}

// assign is right-associative; the whole assignment is itself an
// expression yielding the assigned value.
func (p *Parser) assign(fc *funcCtx) (*ast.Node, error) {
	node, err := p.equality(fc)
	if err != nil {
		return nil, err
	}
	if p.check(token.Eq) {
		opTok := p.current
		p.advance()
		rhs, err := p.assign(fc)
		if err != nil {
			return nil, err
		}
		return ast.NewBinary(opTok, token.Eq, node, rhs), nil
	}
	return node, nil
}

func (p *Parser) equality(fc *funcCtx) (*ast.Node, error) {
	node, err := p.relational(fc)
	if err != nil {
		return nil, err
	}
	for {
		opTok := p.current
		switch {
		case p.match(token.EqEq):
			rhs, err := p.relational(fc)
			if err != nil {
				return nil, err
			}
			node = ast.NewBinary(opTok, token.EqEq, node, rhs)
		case p.match(token.Neq):
			rhs, err := p.relational(fc)
			if err != nil {
				return nil, err
			}
			node = ast.NewBinary(opTok, token.Neq, node, rhs)
		default:
			return node, nil
		}
	}
}

// relational normalizes '>' and '>=' into '<' and '<=' by swapping the
// operand order, so the generator only ever sees the less-than forms.
func (p *Parser) relational(fc *funcCtx) (*ast.Node, error) {
	node, err := p.add(fc)
	if err != nil {
		return nil, err
	}
	for {
		opTok := p.current
		switch {
		case p.match(token.Lt):
			rhs, err := p.add(fc)
			if err != nil {
				return nil, err
			}
			node = ast.NewBinary(opTok, token.Lt, node, rhs)
		case p.match(token.Lte):
			rhs, err := p.add(fc)
			if err != nil {
				return nil, err
			}
			node = ast.NewBinary(opTok, token.Lte, node, rhs)
		case p.match(token.Gt):
			rhs, err := p.add(fc)
			if err != nil {
				return nil, err
			}
			node = ast.NewBinary(opTok, token.Lt, rhs, node)
		case p.match(token.Gte):
			rhs, err := p.add(fc)
			if err != nil {
				return nil, err
			}
			node = ast.NewBinary(opTok, token.Lte, rhs, node)
		default:
			return node, nil
		}
	}
}

func (p *Parser) add(fc *funcCtx) (*ast.Node, error) {
	node, err := p.mul(fc)
	if err != nil {
		return nil, err
	}
	for {
		opTok := p.current
		switch {
		case p.match(token.Plus):
			rhs, err := p.mul(fc)
			if err != nil {
				return nil, err
			}
			if err := checkPointerOperands(opTok, node, rhs); err != nil {
				return nil, err
			}
			node = ast.NewBinary(opTok, token.Plus, node, rhs)
		case p.match(token.Minus):
			rhs, err := p.mul(fc)
			if err != nil {
				return nil, err
			}
			if err := checkPointerOperands(opTok, node, rhs); err != nil {
				return nil, err
			}
			node = ast.NewBinary(opTok, token.Minus, node, rhs)
		default:
			return node, nil
		}
	}
}

func (p *Parser) mul(fc *funcCtx) (*ast.Node, error) {
	node, err := p.unary(fc)
	if err != nil {
		return nil, err
	}
	for {
		opTok := p.current
		switch {
		case p.match(token.Star):
			rhs, err := p.unary(fc)
			if err != nil {
				return nil, err
			}
			node = ast.NewBinary(opTok, token.Star, node, rhs)
		case p.match(token.Slash):
			rhs, err := p.unary(fc)
			if err != nil {
				return nil, err
			}
			node = ast.NewBinary(opTok, token.Slash, node, rhs)
		default:
			return node, nil
		}
	}
}

func (p *Parser) unary(fc *funcCtx) (*ast.Node, error) {
	tok := p.current
	switch {
	case p.match(token.Plus):
		return p.subscript(fc)
	case p.match(token.Minus):
		node, err := p.subscript(fc)
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(tok, ast.Negate, node), nil
	case p.match(token.Star):
		node, err := p.unary(fc)
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(tok, ast.Deref, node), nil
	case p.match(token.And):
		node, err := p.unary(fc)
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(tok, ast.Addr, node), nil
	case p.match(token.Sizeof):
		return nil, util.Errorf(util.UnsupportedError, tok, "sizeof is not supported")
	}
	return p.subscript(fc)
}

// subscript desugars a[i] into *(a + i).
func (p *Parser) subscript(fc *funcCtx) (*ast.Node, error) {
	node, err := p.primary(fc)
	if err != nil {
		return nil, err
	}
	if p.check(token.LBracket) {
		opTok := p.current
		p.advance()
		index, err := p.expr(fc)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RBracket, "']'"); err != nil {
			return nil, err
		}
		if err := checkPointerOperands(opTok, node, index); err != nil {
			return nil, err
		}
		sum := ast.NewBinary(opTok, token.Plus, node, index)
		return ast.NewUnary(opTok, ast.Deref, sum), nil
	}
	return node, nil
}

func (p *Parser) primary(fc *funcCtx) (*ast.Node, error) {
	tok := p.current
	switch {
	case p.match(token.LParen):
		node, err := p.expr(fc)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RParen, "')'"); err != nil {
			return nil, err
		}
		return node, nil

	case p.match(token.Number), p.match(token.CharLit):
		val, _ := strconv.ParseInt(p.previous.Value, 10, 64)
		return ast.NewNumber(tok, val), nil

	case p.match(token.Ident):
		name := p.previous.Value
		if p.match(token.LParen) {
			return p.callArgs(fc, tok, name)
		}
		v, ok := p.table.Lookup(fc.name, name)
		if !ok {
			known := p.table.Names(fc.name)
			return nil, util.Errorf(util.SemanticError, tok,
				"local variable '%s' is not defined (known variables: %s)",
				name, strings.Join(known, ", "))
		}
		return ast.NewVarRef(tok, v), nil
	}
	return nil, util.Errorf(util.SyntaxError, tok, "expected an expression, found '%s'", tok.Text())
}

// callArgs parses a call's argument list. A name followed by '(' is always
// a call; whether the callee is defined here is not checked.
func (p *Parser) callArgs(fc *funcCtx, tok token.Token, name string) (*ast.Node, error) {
	var args []*ast.Node
	if !p.match(token.RParen) {
		for {
			arg, err := p.expr(fc)
			if err != nil {
				return nil, err
			}
			if len(args) == MaxArgs {
				return nil, util.Errorf(util.UnsupportedError, p.current, "calls with more than %d arguments are not supported", MaxArgs)
			}
			args = append(args, arg)
			if !p.match(token.Comma) {
				break
			}
		}
		if err := p.expect(token.RParen, "')'"); err != nil {
			return nil, err
		}
	}
	return ast.NewFuncCall(tok, name, args), nil
}

// checkPointerOperands rejects '+'/'-' where both operands are of pointer
// or array type; scaling needs exactly one non-pointer side.
func checkPointerOperands(opTok token.Token, lhs, rhs *ast.Node) error {
	lty, err := ast.TypeOf(lhs)
	if err != nil {
		return err
	}
	rty, err := ast.TypeOf(rhs)
	if err != nil {
		return err
	}
	if lty.IsPointerLike() && rty.IsPointerLike() {
		return util.Errorf(util.SemanticError, opTok,
			"invalid operands to '%s': both '%s' and '%s' are pointer types", opTok.Text(), lty, rty)
	}
	return nil
}
