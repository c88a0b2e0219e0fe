// Package symtab holds the per-function local-variable tables built during
// parsing and derives the stack-frame layout the code generator uses.
package symtab

import (
	"fmt"

	"github.com/tinaxd/tc2/pkg/types"
)

// LocalVar is one named slot in a function's frame. Parameters are
// registered first, in declaration order, followed by body-declared locals.
type LocalVar struct {
	Name    string
	Type    *types.Type
	IsParam bool
}

// Placement is a variable's resolved position: Offset is the distance below
// the frame pointer of the slot's base address.
type Placement struct {
	Name   string
	Offset int
	Size   int
}

// StackLayout is the complete frame layout of one function.
type StackLayout struct {
	Vars []Placement
}

// Table maps function names to their ordered local variables. A function's
// entry grows while its definition is being parsed and is never mutated
// afterwards.
type Table struct {
	funcs map[string][]*LocalVar
	order []string
}

func NewTable() *Table {
	return &Table{funcs: make(map[string][]*LocalVar)}
}

// DeclareFunc creates the (empty) variable list for a function.
func (t *Table) DeclareFunc(fn string) {
	if _, ok := t.funcs[fn]; !ok {
		t.order = append(t.order, fn)
	}
	t.funcs[fn] = nil
}

// Declare registers a variable at the end of fn's list. Names are unique
// within a function; a duplicate is an error at the point of declaration.
func (t *Table) Declare(fn, name string, ty *types.Type, isParam bool) (*LocalVar, error) {
	for _, v := range t.funcs[fn] {
		if v.Name == name {
			return nil, fmt.Errorf("variable '%s' is already declared in function '%s'", name, fn)
		}
	}
	lv := &LocalVar{Name: name, Type: ty, IsParam: isParam}
	t.funcs[fn] = append(t.funcs[fn], lv)
	return lv, nil
}

// Lookup resolves name against fn's table only; there are no nested scopes.
func (t *Table) Lookup(fn, name string) (*LocalVar, bool) {
	for _, v := range t.funcs[fn] {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Vars returns fn's variables in declaration order.
func (t *Table) Vars(fn string) []*LocalVar { return t.funcs[fn] }

// Names returns the declared variable names of fn, for diagnostics.
func (t *Table) Names(fn string) []string {
	names := make([]string, 0, len(t.funcs[fn]))
	for _, v := range t.funcs[fn] {
		names = append(names, v.Name)
	}
	return names
}

// HasFunc reports whether fn was defined.
func (t *Table) HasFunc(fn string) bool {
	_, ok := t.funcs[fn]
	return ok
}

// Layout computes fn's frame layout. Offsets accumulate in declaration
// order; each variable's offset is padded up to its own alignment. The
// result is a pure function of the table state.
func (t *Table) Layout(fn string) StackLayout {
	var layout StackLayout
	offset := 0
	for _, v := range t.funcs[fn] {
		size := v.Type.Size()
		offset = alignUp(offset+size, v.Type.Align())
		layout.Vars = append(layout.Vars, Placement{Name: v.Name, Offset: offset, Size: size})
	}
	return layout
}

// FrameSize returns the raw stack-allocation size for fn: the final
// accumulated offset of its layout.
func (t *Table) FrameSize(fn string) int {
	vars := t.Layout(fn).Vars
	if len(vars) == 0 {
		return 0
	}
	return vars[len(vars)-1].Offset
}

// Offset returns the frame-pointer-relative offset of a variable of fn.
func (t *Table) Offset(fn, name string) (int, bool) {
	for _, p := range t.Layout(fn).Vars {
		if p.Name == name {
			return p.Offset, true
		}
	}
	return 0, false
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}
