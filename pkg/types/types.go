// Package types describes the value types of the source language: int,
// char, pointers and fixed-size arrays. Size and alignment are derived
// from the structure, never stored.
package types

import "fmt"

type Kind int

const (
	KindInt Kind = iota
	KindChar
	KindPtr
	KindArray
)

type Type struct {
	Kind Kind
	// Base is the pointee type for KindPtr and the element type for
	// KindArray; nil otherwise.
	Base *Type
	// ArrayLen is the element count for KindArray.
	ArrayLen int
}

var (
	TypeInt  = &Type{Kind: KindInt}
	TypeChar = &Type{Kind: KindChar}
)

func PointerTo(base *Type) *Type {
	return &Type{Kind: KindPtr, Base: base}
}

func ArrayOf(elem *Type, n int) *Type {
	return &Type{Kind: KindArray, Base: elem, ArrayLen: n}
}

// Size returns the byte size of a value of this type.
func (t *Type) Size() int {
	switch t.Kind {
	case KindInt:
		return 4
	case KindChar:
		return 1
	case KindPtr:
		return 8
	case KindArray:
		return t.ArrayLen * t.Base.Size()
	}
	return 0
}

// Align returns the required alignment. Arrays align like their elements.
func (t *Type) Align() int {
	if t.Kind == KindArray {
		return t.Base.Align()
	}
	if t.Kind == KindPtr {
		return 8
	}
	return t.Size()
}

// Equal reports structural equality: same kind, same nested type, same
// array length.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind || t.ArrayLen != o.ArrayLen {
		return false
	}
	if t.Base == nil || o.Base == nil {
		return t.Base == o.Base
	}
	return t.Base.Equal(o.Base)
}

// IsPointerLike reports whether the type participates in pointer
// arithmetic, i.e. is a pointer or decays to one.
func (t *Type) IsPointerLike() bool {
	return t.Kind == KindPtr || t.Kind == KindArray
}

// Decay converts an array type to a pointer to its element type,
// discarding the length. Other types are returned unchanged.
func (t *Type) Decay() *Type {
	if t.Kind == KindArray {
		return PointerTo(t.Base)
	}
	return t
}

func (t *Type) String() string {
	switch t.Kind {
	case KindInt:
		return "int"
	case KindChar:
		return "char"
	case KindPtr:
		return t.Base.String() + "*"
	case KindArray:
		return fmt.Sprintf("%s[%d]", t.Base, t.ArrayLen)
	}
	return "?"
}
