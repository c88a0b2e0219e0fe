// Package codegen lowers the parsed program to GNU-as Intel-syntax x86-64
// text. Values travel on an implicit evaluation stack: generating any
// expression nets exactly one pushed word, and every composite generator
// pops exactly the operands it consumes.
package codegen

import (
	"fmt"

	"github.com/tinaxd/tc2/pkg/ast"
	"github.com/tinaxd/tc2/pkg/config"
	"github.com/tinaxd/tc2/pkg/symtab"
	"github.com/tinaxd/tc2/pkg/token"
	"github.com/tinaxd/tc2/pkg/types"
	"github.com/tinaxd/tc2/pkg/util"
)

// Sink receives the emitted assembly one line at a time.
type Sink interface {
	Emit(line string)
}

// Emitter generates code for a whole program. The label counter is never
// reset between functions, so labels are globally unique; identical source
// constructs still get fresh labels each occurrence.
type Emitter struct {
	cfg         *config.Config
	table       *symtab.Table
	sink        Sink
	labelCount  int
	currentFunc string
}

func New(cfg *config.Config, table *symtab.Table, sink Sink) *Emitter {
	return &Emitter{cfg: cfg, table: table, sink: sink}
}

// StackLayout returns the frame layout of a named function, derived from
// the parser's symbol table.
func (e *Emitter) StackLayout(fn string) symtab.StackLayout { return e.table.Layout(fn) }

// FrameSize returns the raw stack-allocation size for a named function.
func (e *Emitter) FrameSize(fn string) int { return e.table.FrameSize(fn) }

func (e *Emitter) emit(line string) { e.sink.Emit(line) }

func (e *Emitter) emitf(format string, args ...interface{}) {
	e.sink.Emit(fmt.Sprintf(format, args...))
}

func (e *Emitter) newLabel() string {
	s := fmt.Sprintf(".L%d", e.labelCount)
	e.labelCount++
	return s
}

// Generate emits the whole program in declaration order. On error no
// partial output is valid; the sink's content must be discarded.
func (e *Emitter) Generate(funcs []*ast.Node) error {
	e.emit(".intel_syntax noprefix")
	e.emit(".globl main")
	for _, fn := range funcs {
		if fn.Kind != ast.FuncDef {
			return util.Errorf(util.GenError, fn.Tok, "top-level node is not a function definition")
		}
		if err := e.genFunc(fn); err != nil {
			return err
		}
	}
	e.emit("")
	return nil
}

func (e *Emitter) genFunc(fn *ast.Node) error {
	d := fn.Data.(ast.FuncDefNode)
	e.currentFunc = d.Name

	e.emitf("%s:", d.Name)
	e.emit("push rbp")
	e.emit("mov rbp, rsp")
	e.emitf("sub rsp, %d", e.table.FrameSize(d.Name))

	for i, param := range d.Params {
		off, ok := e.table.Offset(d.Name, param.Name)
		if !ok {
			return util.Errorf(util.GenError, fn.Tok, "parameter '%s' has no frame slot", param.Name)
		}
		reg, err := argRegister(i, param.Type)
		if err != nil {
			return util.Errorf(util.GenError, fn.Tok, "%s", err)
		}
		e.emitf("mov %s [rbp-%d], %s", memOperand(param.Type), off, reg)
	}

	body := d.Body.Data.(ast.BlockNode)
	if len(body.Stmts) == 0 || body.Stmts[len(body.Stmts)-1].Kind != ast.Return {
		util.Warn(e.cfg, config.WarnMissingReturn, fn.Tok,
			"function '%s' may fall off its end without an explicit return", d.Name)
	}

	if err := e.genStmt(d.Body); err != nil {
		return err
	}

	// Fallthrough path: whatever the last evaluated statement left on the
	// stack becomes the return value.
	e.emit("pop rax")
	e.emit("mov rsp, rbp")
	e.emit("pop rbp")
	e.emit("ret")
	return nil
}

func (e *Emitter) genStmt(n *ast.Node) error {
	switch d := n.Data.(type) {
	case ast.BlockNode:
		for _, stmt := range d.Stmts {
			if err := e.genStmt(stmt); err != nil {
				return err
			}
		}
		return nil

	case ast.EmptyNode:
		return nil

	case ast.ReturnNode:
		if err := e.genExpr(d.Expr); err != nil {
			return err
		}
		e.emit("pop rax")
		e.emit("mov rsp, rbp")
		e.emit("pop rbp")
		e.emit("ret")
		return nil

	case ast.IfNode:
		return e.genIf(d)

	case ast.WhileNode:
		return e.genWhile(d)

	case ast.ForNode:
		return e.genFor(d)

	case ast.FuncDefNode:
		return util.Errorf(util.GenError, n.Tok, "nested function definition")

	default:
		// An expression statement: its value stays pushed. The residue is
		// what the fallthrough epilogue pops.
		return e.genExpr(n)
	}
}

func (e *Emitter) genIf(d ast.IfNode) error {
	if err := e.genExpr(d.Cond); err != nil {
		return err
	}
	e.emit("pop rax")
	e.emit("cmp rax, 0")
	endLabel := e.newLabel()
	if d.Else == nil {
		e.emitf("je %s", endLabel)
		if err := e.genStmt(d.Then); err != nil {
			return err
		}
		e.emitf("%s:", endLabel)
		return nil
	}
	elseLabel := e.newLabel()
	e.emitf("je %s", elseLabel)
	if err := e.genStmt(d.Then); err != nil {
		return err
	}
	e.emitf("jmp %s", endLabel)
	e.emitf("%s:", elseLabel)
	if err := e.genStmt(d.Else); err != nil {
		return err
	}
	e.emitf("%s:", endLabel)
	return nil
}

func (e *Emitter) genWhile(d ast.WhileNode) error {
	beginLabel := e.newLabel()
	endLabel := e.newLabel()
	e.emitf("%s:", beginLabel)
	if err := e.genExpr(d.Cond); err != nil {
		return err
	}
	e.emit("pop rax")
	e.emit("cmp rax, 0")
	e.emitf("je %s", endLabel)
	if err := e.genStmt(d.Body); err != nil {
		return err
	}
	e.emitf("jmp %s", beginLabel)
	e.emitf("%s:", endLabel)
	return nil
}

func (e *Emitter) genFor(d ast.ForNode) error {
	beginLabel := e.newLabel()
	endLabel := e.newLabel()
	if d.Init != nil {
		if err := e.genExpr(d.Init); err != nil {
			return err
		}
	}
	e.emitf("%s:", beginLabel)
	if d.Cond != nil {
		if err := e.genExpr(d.Cond); err != nil {
			return err
		}
	} else {
		// An absent condition is always true.
		e.emit("mov rax, 1")
		e.emit("push rax")
	}
	e.emit("pop rax")
	e.emit("cmp rax, 0")
	e.emitf("je %s", endLabel)
	if err := e.genStmt(d.Body); err != nil {
		return err
	}
	if d.Step != nil {
		if err := e.genExpr(d.Step); err != nil {
			return err
		}
		e.emit("pop rax")
	}
	e.emitf("jmp %s", beginLabel)
	e.emitf("%s:", endLabel)
	return nil
}

// genExpr emits code that nets exactly one pushed word: the expression's
// value.
func (e *Emitter) genExpr(n *ast.Node) error {
	switch d := n.Data.(type) {
	case ast.NumberNode:
		e.emitf("push %d", d.Value)
		return nil

	case ast.VarRefNode:
		if err := e.genAddr(n); err != nil {
			return err
		}
		return e.loadValue(n, d.Var.Type)

	case ast.UnaryNode:
		switch d.Op {
		case ast.Addr:
			return e.genAddr(d.Expr)
		case ast.Deref:
			if err := e.genExpr(d.Expr); err != nil {
				return err
			}
			ty, err := ast.TypeOf(n)
			if err != nil {
				return err
			}
			return e.loadValue(n, ty)
		case ast.Negate:
			if err := e.genExpr(d.Expr); err != nil {
				return err
			}
			e.emit("pop rax")
			e.emit("neg rax")
			e.emit("push rax")
			return nil
		}
		return util.Errorf(util.GenError, n.Tok, "unknown unary operator")

	case ast.BinaryNode:
		if d.Op == token.Eq {
			return e.genAssign(n, d)
		}
		return e.genBinary(n, d)

	case ast.FuncCallNode:
		return e.genCall(n, d)
	}
	return util.Errorf(util.GenError, n.Tok, "node cannot produce a value")
}

// genAddr pushes the address of an lvalue. Nodes without an address path
// are fatal here.
func (e *Emitter) genAddr(n *ast.Node) error {
	switch d := n.Data.(type) {
	case ast.VarRefNode:
		off, ok := e.table.Offset(e.currentFunc, d.Var.Name)
		if !ok {
			return util.Errorf(util.GenError, n.Tok, "variable '%s' has no frame slot in '%s'", d.Var.Name, e.currentFunc)
		}
		e.emit("mov rax, rbp")
		e.emitf("sub rax, %d", off)
		e.emit("push rax")
		return nil

	case ast.UnaryNode:
		if d.Op == ast.Deref {
			return e.genExpr(d.Expr)
		}
	}
	return util.Errorf(util.GenError, n.Tok, "expression is not assignable")
}

// loadValue pops an address and pushes the value stored there, using the
// width of ty. An array is not loaded: it evaluates to its own base
// address, which implements array-to-pointer decay.
func (e *Emitter) loadValue(n *ast.Node, ty *types.Type) error {
	if ty == nil {
		return util.Errorf(util.GenError, n.Tok, "expression has no type")
	}
	if ty.Kind == types.KindArray {
		return nil
	}
	e.emit("pop rax")
	switch ty.Kind {
	case types.KindInt:
		e.emit("mov eax, DWORD PTR [rax]")
	case types.KindChar:
		e.emit("movzx eax, BYTE PTR [rax]")
	case types.KindPtr:
		e.emit("mov rax, QWORD PTR [rax]")
	}
	e.emit("push rax")
	return nil
}

func (e *Emitter) genAssign(n *ast.Node, d ast.BinaryNode) error {
	if err := e.genAddr(d.Left); err != nil {
		return err
	}
	if err := e.genExpr(d.Right); err != nil {
		return err
	}
	e.emit("pop rdi")
	e.emit("pop rax")

	ty, err := ast.TypeOf(d.Left)
	if err != nil {
		return err
	}
	switch ty.Kind {
	case types.KindInt:
		e.emit("mov DWORD PTR [rax], edi")
	case types.KindChar:
		e.emit("mov BYTE PTR [rax], dil")
	case types.KindPtr:
		e.emit("mov QWORD PTR [rax], rdi")
	default:
		return util.Errorf(util.UnsupportedError, n.Tok, "cannot assign to a value of type %s", ty)
	}
	e.emit("push rdi")
	return nil
}

func (e *Emitter) genBinary(n *ast.Node, d ast.BinaryNode) error {
	if err := e.genExpr(d.Left); err != nil {
		return err
	}
	if err := e.genExpr(d.Right); err != nil {
		return err
	}
	e.emit("pop rdi")
	e.emit("pop rax")

	if d.Op == token.Plus || d.Op == token.Minus {
		if err := e.scalePointerOperand(d); err != nil {
			return err
		}
	}

	switch d.Op {
	case token.Plus:
		e.emit("add rax, rdi")
	case token.Minus:
		e.emit("sub rax, rdi")
	case token.Star:
		e.emit("imul rax, rdi")
	case token.Slash:
		e.emit("cqo")
		e.emit("idiv rdi")
	case token.Lt:
		e.emit("cmp rax, rdi")
		e.emit("setl al")
		e.emit("movzx rax, al")
	case token.Lte:
		e.emit("cmp rax, rdi")
		e.emit("setle al")
		e.emit("movzx rax, al")
	case token.EqEq:
		e.emit("cmp rax, rdi")
		e.emit("sete al")
		e.emit("movzx rax, al")
	case token.Neq:
		e.emit("cmp rax, rdi")
		e.emit("setne al")
		e.emit("movzx rax, al")
	default:
		return util.Errorf(util.GenError, n.Tok, "unknown binary operator '%s'", n.Tok.Text())
	}
	e.emit("push rax")
	return nil
}

// scalePointerOperand multiplies the non-pointer side of a '+'/'-' by the
// pointee size when exactly one operand is of pointer or array type. The
// both-pointer case was rejected by the parser. Operands are already
// popped: left in rax, right in rdi.
func (e *Emitter) scalePointerOperand(d ast.BinaryNode) error {
	lty, err := ast.TypeOf(d.Left)
	if err != nil {
		return err
	}
	rty, err := ast.TypeOf(d.Right)
	if err != nil {
		return err
	}
	if lty.IsPointerLike() {
		e.emitf("imul rdi, %d", lty.Decay().Base.Size())
	} else if rty.IsPointerLike() {
		e.emitf("imul rax, %d", rty.Decay().Base.Size())
	}
	return nil
}

// genCall evaluates the arguments left to right, each pushing one value,
// then pops them in reverse so register assignment matches the calling
// convention while evaluation order stays visible to side effects.
func (e *Emitter) genCall(n *ast.Node, d ast.FuncCallNode) error {
	if !e.table.HasFunc(d.Name) {
		util.Warn(e.cfg, config.WarnImplicitDecl, n.Tok, "implicit declaration of function '%s'", d.Name)
	}
	for _, arg := range d.Args {
		if err := e.genExpr(arg); err != nil {
			return err
		}
	}
	for i := len(d.Args) - 1; i >= 0; i-- {
		e.emitf("pop %s", argRegs64[i])
	}
	e.emitf("call %s", d.Name)
	e.emit("push rax")
	return nil
}
