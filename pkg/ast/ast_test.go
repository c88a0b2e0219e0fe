package ast

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/tinaxd/tc2/pkg/symtab"
	"github.com/tinaxd/tc2/pkg/token"
	"github.com/tinaxd/tc2/pkg/types"
	"github.com/tinaxd/tc2/pkg/util"
)

func local(name string, ty *types.Type) *symtab.LocalVar {
	return &symtab.LocalVar{Name: name, Type: ty}
}

var tok = token.Token{Line: 1, Column: 1}

func TestTypeOfLeaves(t *testing.T) {
	ty, err := TypeOf(NewNumber(tok, 7))
	be.Err(t, err, nil)
	be.True(t, ty.Equal(types.TypeInt))

	ty, err = TypeOf(NewVarRef(tok, local("p", types.PointerTo(types.TypeChar))))
	be.Err(t, err, nil)
	be.True(t, ty.Equal(types.PointerTo(types.TypeChar)))

	ty, err = TypeOf(NewFuncCall(tok, "f", nil))
	be.Err(t, err, nil)
	be.True(t, ty.Equal(types.TypeInt))
}

func TestTypeOfUnary(t *testing.T) {
	p := NewVarRef(tok, local("p", types.PointerTo(types.TypeInt)))

	ty, err := TypeOf(NewUnary(tok, Deref, p))
	be.Err(t, err, nil)
	be.True(t, ty.Equal(types.TypeInt))

	ty, err = TypeOf(NewUnary(tok, Addr, p))
	be.Err(t, err, nil)
	be.True(t, ty.Equal(types.PointerTo(types.PointerTo(types.TypeInt))))

	ty, err = TypeOf(NewUnary(tok, Negate, NewNumber(tok, 3)))
	be.Err(t, err, nil)
	be.True(t, ty.Equal(types.TypeInt))
}

func TestTypeOfDerefNonPointer(t *testing.T) {
	n := NewVarRef(tok, local("x", types.TypeInt))
	_, err := TypeOf(NewUnary(tok, Deref, n))
	be.Err(t, err)
	kind, ok := util.KindOf(err)
	be.True(t, ok)
	be.Equal(t, kind, util.SemanticError)
}

func TestTypeOfDerefArrayYieldsElement(t *testing.T) {
	a := NewVarRef(tok, local("a", types.ArrayOf(types.TypeChar, 4)))
	ty, err := TypeOf(NewUnary(tok, Deref, a))
	be.Err(t, err, nil)
	be.True(t, ty.Equal(types.TypeChar))
}

func TestTypeOfPointerArithmetic(t *testing.T) {
	p := NewVarRef(tok, local("p", types.PointerTo(types.TypeInt)))
	one := NewNumber(tok, 1)

	ty, err := TypeOf(NewBinary(tok, token.Plus, p, one))
	be.Err(t, err, nil)
	be.True(t, ty.Equal(types.PointerTo(types.TypeInt)))

	// The pointer side wins regardless of position.
	ty, err = TypeOf(NewBinary(tok, token.Plus, one, p))
	be.Err(t, err, nil)
	be.True(t, ty.Equal(types.PointerTo(types.TypeInt)))

	// An array operand decays to a pointer to its element.
	a := NewVarRef(tok, local("a", types.ArrayOf(types.TypeInt, 8)))
	ty, err = TypeOf(NewBinary(tok, token.Minus, a, one))
	be.Err(t, err, nil)
	be.Equal(t, ty.Kind, types.KindPtr)
	be.True(t, ty.Base.Equal(types.TypeInt))
}

func TestTypeOfComparisonsAreInt(t *testing.T) {
	p := NewVarRef(tok, local("p", types.PointerTo(types.TypeInt)))
	for _, op := range []token.Type{token.Lt, token.Lte, token.EqEq, token.Neq} {
		ty, err := TypeOf(NewBinary(tok, op, p, p))
		be.Err(t, err, nil)
		be.True(t, ty.Equal(types.TypeInt))
	}
}

func TestTypeOfAssignmentIsLeftType(t *testing.T) {
	c := NewVarRef(tok, local("c", types.TypeChar))
	ty, err := TypeOf(NewBinary(tok, token.Eq, c, NewNumber(tok, 65)))
	be.Err(t, err, nil)
	be.True(t, ty.Equal(types.TypeChar))
}

func TestTypeOfNonExpression(t *testing.T) {
	_, err := TypeOf(NewReturn(tok, NewNumber(tok, 0)))
	be.Err(t, err)
	kind, _ := util.KindOf(err)
	be.Equal(t, kind, util.GenError)
}
