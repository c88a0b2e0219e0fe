// Package ast defines the abstract syntax tree: a tagged union of node
// kinds with typed payloads, built once by the parser and read-only
// afterwards.
package ast

import (
	"github.com/tinaxd/tc2/pkg/symtab"
	"github.com/tinaxd/tc2/pkg/token"
	"github.com/tinaxd/tc2/pkg/types"
	"github.com/tinaxd/tc2/pkg/util"
)

type Kind int

const (
	// Expressions
	Number Kind = iota
	VarRef
	Unary
	Binary
	FuncCall

	// Statements
	Block
	If
	While
	For
	Return
	FuncDef
	// Empty is the placeholder a bare declaration statement yields.
	Empty
)

type UnaryOp int

const (
	Deref UnaryOp = iota
	Addr
	Negate
)

// Node is one AST node. Data holds the payload struct for the node's Kind.
// Binary operators reuse the lexer's token types; the parser normalizes
// '>' and '>=' into '<' and '<=' by swapping operands, so those two never
// appear here.
type Node struct {
	Kind Kind
	Tok  token.Token
	Data interface{}
}

type NumberNode struct{ Value int64 }
type VarRefNode struct{ Var *symtab.LocalVar }
type UnaryNode struct {
	Op   UnaryOp
	Expr *Node
}
type BinaryNode struct {
	Op          token.Type
	Left, Right *Node
}
type FuncCallNode struct {
	Name string
	Args []*Node
}
type BlockNode struct{ Stmts []*Node }
type IfNode struct{ Cond, Then, Else *Node }
type WhileNode struct{ Cond, Body *Node }
type ForNode struct{ Init, Cond, Step, Body *Node }
type ReturnNode struct{ Expr *Node }
type FuncDefNode struct {
	Name   string
	Params []*symtab.LocalVar
	Body   *Node
}
type EmptyNode struct{}

func newNode(tok token.Token, kind Kind, data interface{}) *Node {
	return &Node{Kind: kind, Tok: tok, Data: data}
}

func NewNumber(tok token.Token, value int64) *Node {
	return newNode(tok, Number, NumberNode{Value: value})
}
func NewVarRef(tok token.Token, v *symtab.LocalVar) *Node {
	return newNode(tok, VarRef, VarRefNode{Var: v})
}
func NewUnary(tok token.Token, op UnaryOp, expr *Node) *Node {
	return newNode(tok, Unary, UnaryNode{Op: op, Expr: expr})
}
func NewBinary(tok token.Token, op token.Type, left, right *Node) *Node {
	return newNode(tok, Binary, BinaryNode{Op: op, Left: left, Right: right})
}
func NewFuncCall(tok token.Token, name string, args []*Node) *Node {
	return newNode(tok, FuncCall, FuncCallNode{Name: name, Args: args})
}
func NewBlock(tok token.Token, stmts []*Node) *Node {
	return newNode(tok, Block, BlockNode{Stmts: stmts})
}
func NewIf(tok token.Token, cond, then, els *Node) *Node {
	return newNode(tok, If, IfNode{Cond: cond, Then: then, Else: els})
}
func NewWhile(tok token.Token, cond, body *Node) *Node {
	return newNode(tok, While, WhileNode{Cond: cond, Body: body})
}
func NewFor(tok token.Token, init, cond, step, body *Node) *Node {
	return newNode(tok, For, ForNode{Init: init, Cond: cond, Step: step, Body: body})
}
func NewReturn(tok token.Token, expr *Node) *Node {
	return newNode(tok, Return, ReturnNode{Expr: expr})
}
func NewFuncDef(tok token.Token, name string, params []*symtab.LocalVar, body *Node) *Node {
	return newNode(tok, FuncDef, FuncDefNode{Name: name, Params: params, Body: body})
}
func NewEmpty(tok token.Token) *Node {
	return newNode(tok, Empty, EmptyNode{})
}

// TypeOf derives an expression node's type from its operands. It is
// computed on demand; nothing is cached because the tree never mutates.
func TypeOf(n *Node) (*types.Type, error) {
	switch d := n.Data.(type) {
	case NumberNode:
		return types.TypeInt, nil
	case VarRefNode:
		return d.Var.Type, nil
	case UnaryNode:
		ty, err := TypeOf(d.Expr)
		if err != nil {
			return nil, err
		}
		switch d.Op {
		case Deref:
			if !ty.IsPointerLike() {
				return nil, util.Errorf(util.SemanticError, n.Tok, "cannot dereference non-pointer type %s", ty)
			}
			return ty.Base, nil
		case Addr:
			return types.PointerTo(ty), nil
		case Negate:
			return ty, nil
		}
	case BinaryNode:
		lty, err := TypeOf(d.Left)
		if err != nil {
			return nil, err
		}
		switch d.Op {
		case token.Plus, token.Minus:
			rty, err := TypeOf(d.Right)
			if err != nil {
				return nil, err
			}
			// Exactly one pointer-or-array operand; two is rejected at
			// parse time.
			if lty.IsPointerLike() {
				return lty.Decay(), nil
			}
			if rty.IsPointerLike() {
				return rty.Decay(), nil
			}
			return lty, nil
		case token.Lt, token.Lte, token.EqEq, token.Neq:
			return types.TypeInt, nil
		default:
			// Star, Slash, Eq: the left operand's type.
			return lty, nil
		}
	case FuncCallNode:
		return types.TypeInt, nil
	}
	return nil, util.Errorf(util.GenError, n.Tok, "node is not an expression")
}
