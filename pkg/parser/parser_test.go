package parser

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/tinaxd/tc2/pkg/ast"
	"github.com/tinaxd/tc2/pkg/lexer"
	"github.com/tinaxd/tc2/pkg/symtab"
	"github.com/tinaxd/tc2/pkg/token"
	"github.com/tinaxd/tc2/pkg/types"
	"github.com/tinaxd/tc2/pkg/util"
)

func parse(t *testing.T, source string) ([]*ast.Node, *symtab.Table) {
	t.Helper()
	toks, err := lexer.Tokenize(source)
	be.Err(t, err, nil)
	funcs, table, err := NewParser(toks).Parse()
	be.Err(t, err, nil)
	return funcs, table
}

func parseErr(t *testing.T, source string) error {
	t.Helper()
	toks, err := lexer.Tokenize(source)
	be.Err(t, err, nil)
	_, _, err = NewParser(toks).Parse()
	be.Err(t, err)
	return err
}

// firstStmt returns the first statement of the first function's body.
func firstStmt(t *testing.T, funcs []*ast.Node) *ast.Node {
	t.Helper()
	body := funcs[0].Data.(ast.FuncDefNode).Body.Data.(ast.BlockNode)
	be.True(t, len(body.Stmts) > 0)
	return body.Stmts[0]
}

func TestParseMinimalFunction(t *testing.T) {
	funcs, _ := parse(t, "int main() { return 42; }")
	be.Equal(t, len(funcs), 1)
	def := funcs[0].Data.(ast.FuncDefNode)
	be.Equal(t, def.Name, "main")
	be.Equal(t, len(def.Params), 0)

	ret := firstStmt(t, funcs)
	be.Equal(t, ret.Kind, ast.Return)
	num := ret.Data.(ast.ReturnNode).Expr.Data.(ast.NumberNode)
	be.Equal(t, num.Value, int64(42))
}

func TestPrecedence(t *testing.T) {
	funcs, _ := parse(t, "int main() { return 5 + 6 * 7; }")
	expr := firstStmt(t, funcs).Data.(ast.ReturnNode).Expr
	// The root must be the addition, with the multiplication nested right.
	add := expr.Data.(ast.BinaryNode)
	be.Equal(t, add.Op, token.Plus)
	mul := add.Right.Data.(ast.BinaryNode)
	be.Equal(t, mul.Op, token.Star)
}

func TestAssignmentIsRightAssociative(t *testing.T) {
	funcs, _ := parse(t, "int main() { int a; int b; a = b = 2; }")
	body := funcs[0].Data.(ast.FuncDefNode).Body.Data.(ast.BlockNode)
	outer := body.Stmts[2].Data.(ast.BinaryNode)
	be.Equal(t, outer.Op, token.Eq)
	inner := outer.Right.Data.(ast.BinaryNode)
	be.Equal(t, inner.Op, token.Eq)
}

func TestRelationalSwap(t *testing.T) {
	funcs, _ := parse(t, "int main() { int a; return a > 3; }")
	expr := firstStmtAt(t, funcs, 1).Data.(ast.ReturnNode).Expr
	// 'a > 3' becomes '3 < a'.
	cmp := expr.Data.(ast.BinaryNode)
	be.Equal(t, cmp.Op, token.Lt)
	be.Equal(t, cmp.Left.Kind, ast.Number)
	be.Equal(t, cmp.Right.Kind, ast.VarRef)

	funcs, _ = parse(t, "int main() { int a; return a >= 3; }")
	expr = firstStmtAt(t, funcs, 1).Data.(ast.ReturnNode).Expr
	cmp = expr.Data.(ast.BinaryNode)
	be.Equal(t, cmp.Op, token.Lte)
	be.Equal(t, cmp.Left.Kind, ast.Number)
}

func firstStmtAt(t *testing.T, funcs []*ast.Node, i int) *ast.Node {
	t.Helper()
	body := funcs[0].Data.(ast.FuncDefNode).Body.Data.(ast.BlockNode)
	be.True(t, len(body.Stmts) > i)
	return body.Stmts[i]
}

func TestSubscriptDesugarsToDeref(t *testing.T) {
	funcs, _ := parse(t, "int main() { int a[4]; return a[2]; }")
	expr := firstStmtAt(t, funcs, 1).Data.(ast.ReturnNode).Expr
	deref := expr.Data.(ast.UnaryNode)
	be.Equal(t, deref.Op, ast.Deref)
	sum := deref.Expr.Data.(ast.BinaryNode)
	be.Equal(t, sum.Op, token.Plus)
	be.Equal(t, sum.Left.Kind, ast.VarRef)
	be.Equal(t, sum.Right.Kind, ast.Number)
}

func TestUnaryMinus(t *testing.T) {
	funcs, _ := parse(t, "int main() { return -5; }")
	expr := firstStmt(t, funcs).Data.(ast.ReturnNode).Expr
	neg := expr.Data.(ast.UnaryNode)
	be.Equal(t, neg.Op, ast.Negate)
	be.Equal(t, neg.Expr.Data.(ast.NumberNode).Value, int64(5))
}

func TestDeclarationsPopulateTable(t *testing.T) {
	_, table := parse(t, "int main() { int x; char c; int *p; int a[3]; }")
	x, ok := table.Lookup("main", "x")
	be.True(t, ok)
	be.True(t, x.Type.Equal(types.TypeInt))
	c, _ := table.Lookup("main", "c")
	be.True(t, c.Type.Equal(types.TypeChar))
	p, _ := table.Lookup("main", "p")
	be.True(t, p.Type.Equal(types.PointerTo(types.TypeInt)))
	a, _ := table.Lookup("main", "a")
	be.True(t, a.Type.Equal(types.ArrayOf(types.TypeInt, 3)))
}

func TestParametersAreDeclaredFirst(t *testing.T) {
	funcs, table := parse(t, "int add(int a, int b) { return a + b; }")
	def := funcs[0].Data.(ast.FuncDefNode)
	be.Equal(t, len(def.Params), 2)
	be.True(t, def.Params[0].IsParam)
	be.Equal(t, table.Names("add"), []string{"a", "b"})
}

func TestCharLiteralBecomesNumber(t *testing.T) {
	funcs, _ := parse(t, "int main() { return 'A'; }")
	expr := firstStmt(t, funcs).Data.(ast.ReturnNode).Expr
	be.Equal(t, expr.Kind, ast.Number)
	be.Equal(t, expr.Data.(ast.NumberNode).Value, int64(65))
}

func TestUndeclaredVariable(t *testing.T) {
	err := parseErr(t, "int main() { int a; int b; return nope; }")
	kind, ok := util.KindOf(err)
	be.True(t, ok)
	be.Equal(t, kind, util.SemanticError)
	be.Err(t, err, "known variables: a, b")
}

func TestDuplicateVariable(t *testing.T) {
	err := parseErr(t, "int main() { int a; int a; }")
	kind, _ := util.KindOf(err)
	be.Equal(t, kind, util.SemanticError)
}

func TestPointerPlusPointer(t *testing.T) {
	err := parseErr(t, "int main() { int *p; int *q; return p + q; }")
	kind, _ := util.KindOf(err)
	be.Equal(t, kind, util.SemanticError)
	be.Err(t, err, "pointer")
}

func TestArrayPlusArrayRejected(t *testing.T) {
	err := parseErr(t, "int main() { int a[2]; int b[2]; return a + b; }")
	kind, _ := util.KindOf(err)
	be.Equal(t, kind, util.SemanticError)
}

func TestUnsupportedConstructs(t *testing.T) {
	cases := map[string]string{
		"sizeof":             "int main() { int a; return sizeof(a); }",
		"multi-level ptr":    "int main() { int **p; }",
		"char parameter":     "int f(char c) { return c; }",
		"too many params":    "int f(int a, int b, int c, int d, int e, int f, int g) { return 0; }",
		"too many call args": "int main() { return f(1, 2, 3, 4, 5, 6, 7); }",
	}
	for name, src := range cases {
		err := parseErr(t, src)
		kind, ok := util.KindOf(err)
		be.True(t, ok)
		if kind != util.UnsupportedError {
			t.Errorf("%s: got %v, want unsupported construct", name, kind)
		}
	}
}

func TestSyntaxErrors(t *testing.T) {
	for _, src := range []string{
		"int main() { return 1 }",
		"int main() { if (1) return 1; ",
		"int main() { int a[-1]; }",
		"int 5() { }",
	} {
		err := parseErr(t, src)
		kind, ok := util.KindOf(err)
		be.True(t, ok)
		be.Equal(t, kind, util.SyntaxError)
	}
}

func TestEmptyForHeader(t *testing.T) {
	funcs, _ := parse(t, "int main() { for (;;) return 1; }")
	f := firstStmt(t, funcs).Data.(ast.ForNode)
	be.True(t, f.Init == nil)
	be.True(t, f.Cond == nil)
	be.True(t, f.Step == nil)
	be.Equal(t, f.Body.Kind, ast.Return)
}
