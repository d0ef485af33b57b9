package wave

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSource(t *testing.T, source string) []TopLevel {
	t.Helper()
	tokens, err := NewLexer(source).Tokenize()
	require.NoError(t, err)
	items, err := NewParser(tokens).ParseProgram()
	require.NoError(t, err)
	return items
}

func parseExprFrom(t *testing.T, expr string) Expression {
	t.Helper()
	items := parseSource(t, fmt.Sprintf("fun f() { %s; }", expr))
	fn := items[0].(*FunctionDecl)
	require.Len(t, fn.Body, 1)
	switch stmt := fn.Body[0].(type) {
	case *ExprStmt:
		return stmt.E
	case *AssignStmt:
		return NewAssign(stmt.Target, stmt.Value, stmt.Line())
	default:
		t.Fatalf("statement is not an expression: %T", stmt)
		return nil
	}
}

func parseError(t *testing.T, source string) *CompilerError {
	t.Helper()
	tokens, err := NewLexer(source).Tokenize()
	require.NoError(t, err)
	_, err = NewParser(tokens).ParseProgram()
	require.Error(t, err)
	return err.(*CompilerError)
}

func TestParseFunctionShape(t *testing.T) {
	items := parseSource(t, "fun add(a: i32, b: i32) -> i32 { return a + b; }")
	require.Len(t, items, 1)
	fn := items[0].(*FunctionDecl)
	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, IntType{Bits: 32}, fn.Params[0].Type)
	assert.Equal(t, IntType{Bits: 32}, fn.ReturnType)
	require.Len(t, fn.Body, 1)
}

func TestParseVoidReturnTypeDefault(t *testing.T) {
	items := parseSource(t, "fun noop() {}")
	fn := items[0].(*FunctionDecl)
	assert.Equal(t, VoidType{}, fn.ReturnType)
}

func TestParseDuplicateParameter(t *testing.T) {
	err := parseError(t, "fun f(a: i32, a: i32) {}")
	assert.Contains(t, err.Message, "declared multiple times")
}

// For any `a op1 b op2 c` with prec(op1) < prec(op2) the tree groups
// as `a op1 (b op2 c)`.
func TestParsePrecedenceGroupsTighterRight(t *testing.T) {
	tests := []struct {
		input string
		outer BinaryOp
		inner BinaryOp
	}{
		{"a + b * c", OpAdd, OpMul},
		{"a || b && c", OpLogicalOr, OpLogicalAnd},
		{"a | b ^ c", OpBitwiseOr, OpBitwiseXor},
		{"a ^ b & c", OpBitwiseXor, OpBitwiseAnd},
		{"a & b == c", OpBitwiseAnd, OpEqual},
		{"a == b < c", OpEqual, OpLess},
		{"a < b << c", OpLess, OpShl},
		{"a << b + c", OpShl, OpAdd},
		{"a - b / c", OpSub, OpDiv},
	}
	for _, tt := range tests {
		e := parseExprFrom(t, tt.input)
		bin := e.(*Binary)
		require.Equal(t, tt.outer, bin.Op, tt.input)
		_, leftIsVar := bin.Left.(*VarRef)
		assert.True(t, leftIsVar, tt.input)
		inner := bin.Right.(*Binary)
		assert.Equal(t, tt.inner, inner.Op, tt.input)
	}
}

func TestParseEqualPrecedenceIsLeftAssociative(t *testing.T) {
	e := parseExprFrom(t, "a - b - c")
	outer := e.(*Binary)
	require.Equal(t, OpSub, outer.Op)
	inner := outer.Left.(*Binary)
	assert.Equal(t, OpSub, inner.Op)
	_, rightIsVar := outer.Right.(*VarRef)
	assert.True(t, rightIsVar)
}

func TestParseAssignmentIsRightAssociative(t *testing.T) {
	e := parseExprFrom(t, "a = b = c")
	outer := e.(*Assign)
	inner := outer.Value.(*Assign)
	assert.Equal(t, "b", inner.Target.(*VarRef).Name)
}

func TestParseCompoundAssignOperators(t *testing.T) {
	for text, op := range map[string]AssignOperator{
		"a += b": AssignAdd,
		"a -= b": AssignSub,
		"a *= b": AssignMul,
		"a /= b": AssignDiv,
		"a %= b": AssignRem,
	} {
		e := parseExprFrom(t, text)
		assert.Equal(t, op, e.(*AssignOp).Op, text)
	}
}

func TestParseAssignmentTargetMustBeLvalue(t *testing.T) {
	err := parseError(t, "fun f() { 1 + 2 = 3; }")
	assert.Equal(t, ErrInvalidAssignment, err.Kind)
}

func TestParseIncDecRequiresLvalue(t *testing.T) {
	for _, src := range []string{
		"fun f() { ++5; }",
		"fun f() { (a + b)++; }",
	} {
		tokens, err := NewLexer(src).Tokenize()
		require.NoError(t, err)
		_, err = NewParser(tokens).ParseProgram()
		require.Error(t, err, src)
	}
}

func TestParseIncDecOnLvalues(t *testing.T) {
	assert.Equal(t, PreInc, parseExprFrom(t, "++a").(*IncDec).Kind)
	assert.Equal(t, PostDec, parseExprFrom(t, "a--").(*IncDec).Kind)
	assert.Equal(t, PostInc, parseExprFrom(t, "(a)++").(*IncDec).Kind)
}

func TestParsePostfixChain(t *testing.T) {
	e := parseExprFrom(t, "p.inner[2].value")
	field := e.(*FieldAccess)
	assert.Equal(t, "value", field.Field)
	index := field.Object.(*IndexAccess)
	inner := index.Target.(*FieldAccess)
	assert.Equal(t, "inner", inner.Field)
}

func TestParseMethodCallVsFieldAccess(t *testing.T) {
	m := parseExprFrom(t, "p.area()").(*MethodCall)
	assert.Equal(t, "area", m.Name)
	assert.Empty(t, m.Args)

	f := parseExprFrom(t, "p.area").(*FieldAccess)
	assert.Equal(t, "area", f.Field)
}

func TestParseUnaryMinusFoldsLiterals(t *testing.T) {
	lit := parseExprFrom(t, "-42").(*IntLit)
	assert.Equal(t, "-42", lit.Text)

	f := parseExprFrom(t, "-2.5").(*FloatLit)
	assert.Equal(t, -2.5, f.Value)

	neg := parseExprFrom(t, "-a").(*Unary)
	assert.Equal(t, UnaryNeg, neg.Op)
}

func TestParseUnaryPlusIsDropped(t *testing.T) {
	_, isVar := parseExprFrom(t, "+a").(*VarRef)
	assert.True(t, isVar)
}

func TestParseDerefAndAddressOf(t *testing.T) {
	d := parseExprFrom(t, "deref p").(*DerefExpr)
	_, isVar := d.Operand.(*VarRef)
	assert.True(t, isVar)

	a := parseExprFrom(t, "&x").(*AddressOf)
	_, isVar = a.Operand.(*VarRef)
	assert.True(t, isVar)
}

func TestParseStructLiteral(t *testing.T) {
	e := parseExprFrom(t, "P{x: 3, y: 4}").(*StructLit)
	assert.Equal(t, "P", e.Name)
	require.Len(t, e.Fields, 2)
	assert.Equal(t, "x", e.Fields[0].Name)
	assert.Equal(t, "y", e.Fields[1].Name)
}

func TestParseArrayLiteral(t *testing.T) {
	e := parseExprFrom(t, "[1, 2, 3]").(*ArrayLit)
	assert.Len(t, e.Elems, 3)
}

func TestParseVariableDeclarations(t *testing.T) {
	items := parseSource(t, `
fun f() {
    var a: i32 = 1;
    let b: i32 = 2;
    let mut c: i32 = 3;
    const d: i32 = 4;
    let e: i64;
}`)
	fn := items[0].(*FunctionDecl)
	muts := []Mutability{MutVar, MutLet, MutLetMut, MutConst}
	for i, mut := range muts {
		decl := fn.Body[i].(*VariableDecl)
		assert.Equal(t, mut, decl.Mut, decl.Name)
	}
	noInit := fn.Body[4].(*VariableDecl)
	assert.Nil(t, noInit.Init)
}

func TestParseGenericTypes(t *testing.T) {
	items := parseSource(t, `
fun f() {
    let p: ptr<i32>;
    let a: array<i32, 3>;
    let n: array<ptr<u8>, 4>;
    let q: ptr<ptr<u8>>;
}`)
	fn := items[0].(*FunctionDecl)
	assert.Equal(t, PointerType{Inner: IntType{Bits: 32}}, fn.Body[0].(*VariableDecl).Type)
	assert.Equal(t, ArrayType{Inner: IntType{Bits: 32}, Size: 3}, fn.Body[1].(*VariableDecl).Type)
	assert.Equal(t,
		ArrayType{Inner: PointerType{Inner: UintType{Bits: 8}}, Size: 4},
		fn.Body[2].(*VariableDecl).Type)
	assert.Equal(t,
		PointerType{Inner: PointerType{Inner: UintType{Bits: 8}}},
		fn.Body[3].(*VariableDecl).Type)
}

func TestParseArrayLengthMismatch(t *testing.T) {
	err := parseError(t, "fun f() { let a: array<i32, 3> = [1, 2]; }")
	assert.Equal(t, ErrTypeMismatch, err.Kind)
}

func TestParseIfElseChain(t *testing.T) {
	items := parseSource(t, `
fun f(x: i32) {
    if (x < 0) { return; }
    else if (x == 0) { return; }
    else if (x == 1) { return; }
    else { return; }
}`)
	fn := items[0].(*FunctionDecl)
	stmt := fn.Body[0].(*IfStmt)
	assert.Len(t, stmt.ElseIfs, 2)
	assert.NotNil(t, stmt.Else)
}

func TestParseWhileBreakContinue(t *testing.T) {
	items := parseSource(t, `
fun f() {
    while (true) {
        break;
        continue;
    }
}`)
	fn := items[0].(*FunctionDecl)
	loop := fn.Body[0].(*WhileStmt)
	require.Len(t, loop.Body, 2)
	_, isBreak := loop.Body[0].(*BreakStmt)
	_, isCont := loop.Body[1].(*ContinueStmt)
	assert.True(t, isBreak)
	assert.True(t, isCont)
}

func TestParseForIsPlaceholder(t *testing.T) {
	items := parseSource(t, `
fun f() {
    for (var i: i32 = 0; i < 10; i++) { }
}`)
	fn := items[0].(*FunctionDecl)
	loop := fn.Body[0].(*ForStmt)
	assert.NotNil(t, loop.Init)
	assert.NotNil(t, loop.Cond)
	assert.NotNil(t, loop.Post)
}

func TestParsePrintForms(t *testing.T) {
	items := parseSource(t, `
fun f() {
    println("plain");
    print("no newline");
    println("value {}", 42);
    input("{}", &x);
}`)
	fn := items[0].(*FunctionDecl)

	plain := fn.Body[0].(*PrintStmt)
	assert.Equal(t, "plain\n", plain.Text)

	noNl := fn.Body[1].(*PrintStmt)
	assert.Equal(t, "no newline", noNl.Text)

	formatted := fn.Body[2].(*PrintFormatStmt)
	assert.Equal(t, "value {}\n", formatted.Format)
	assert.Len(t, formatted.Args, 1)

	in := fn.Body[3].(*InputStmt)
	assert.Len(t, in.Args, 1)
}

func TestParsePrintPlaceholderCountMismatch(t *testing.T) {
	err := parseError(t, `fun f() { println("{} {}", 1); }`)
	assert.Contains(t, err.Message, "2 arguments")
}

func TestParseStructDecl(t *testing.T) {
	items := parseSource(t, `
struct Point {
    x: i32;
    y: i32;
    fun magnitude(self: Point) -> i32 { return self.x; }
}`)
	s := items[0].(*StructDecl)
	assert.Equal(t, "Point", s.Name)
	require.Len(t, s.Fields, 2)
	assert.Equal(t, "x", s.Fields[0].Name)
	assert.Equal(t, "y", s.Fields[1].Name)
	require.Len(t, s.Methods, 1)
	assert.Equal(t, "magnitude", s.Methods[0].Name)
}

func TestParseProtoDecl(t *testing.T) {
	items := parseSource(t, `
proto Point {
    fun scale(self: Point, by: i32) -> i32 { return by; }
    fun reset(self: Point) { }
}`)
	p := items[0].(*ProtoImpl)
	assert.Equal(t, "Point", p.Target)
	require.Len(t, p.Methods, 2)
	assert.Equal(t, VoidType{}, p.Methods[1].ReturnType)
}

func TestParseEnumDecl(t *testing.T) {
	items := parseSource(t, "enum Color { Red, Green = 5, Blue }")
	e := items[0].(*EnumDecl)
	require.Len(t, e.Variants, 3)
	assert.Equal(t, int64(0), e.Variants[0].Value)
	assert.Equal(t, int64(5), e.Variants[1].Value)
	assert.Equal(t, int64(6), e.Variants[2].Value)
}

func TestParseExternDecl(t *testing.T) {
	items := parseSource(t, "extern(c) fun malloc(size: u64) -> ptr<u8>;")
	e := items[0].(*ExternFunction)
	assert.Equal(t, "c", e.ABI)
	assert.Equal(t, "malloc", e.Name)
	assert.Equal(t, PointerType{Inner: UintType{Bits: 8}}, e.ReturnType)
}

func TestParseExternKeepsUnknownABIForValidator(t *testing.T) {
	items := parseSource(t, "extern(rust) fun f() -> i32;")
	e := items[0].(*ExternFunction)
	assert.Equal(t, "rust", e.ABI)
}

func TestParseTopLevelConst(t *testing.T) {
	items := parseSource(t, "const K: i32 = 10;")
	c := items[0].(*VariableDecl)
	assert.Equal(t, MutConst, c.Mut)
	assert.Equal(t, "10", c.Init.(*IntLit).Text)
}

func TestParseConstRequiresLiteral(t *testing.T) {
	err := parseError(t, "const K: i32 = 1 + 2;")
	assert.Equal(t, ErrInvalidStatement, err.Kind)
}

func TestParseImportDecl(t *testing.T) {
	items := parseSource(t, `import("std::io::format");`)
	imp := items[0].(*ImportDecl)
	assert.Equal(t, "std::io::format", imp.Path)
}

func TestParseAsmStatement(t *testing.T) {
	items := parseSource(t, `
fun f() {
    asm {
        "mov rax, 60"
        "syscall"
        in("rdi") code
        out("rax") result
        clobber("rcx", "r11")
    }
}`)
	fn := items[0].(*FunctionDecl)
	stmt := fn.Body[0].(*AsmStmt)
	assert.Equal(t, []string{"mov rax, 60", "syscall"}, stmt.Instructions)
	require.Len(t, stmt.Inputs, 1)
	assert.Equal(t, "rdi", stmt.Inputs[0].Reg)
	require.Len(t, stmt.Outputs, 1)
	assert.Equal(t, "rax", stmt.Outputs[0].Reg)
	assert.Equal(t, []string{"rcx", "r11"}, stmt.Clobbers)
}

func TestParseAsmExpressionRequiresOneOut(t *testing.T) {
	err := parseError(t, `fun f() { let x: i64 = asm { "rdtsc" }; }`)
	assert.Contains(t, err.Message, "exactly one `out`")

	items := parseSource(t, `
fun f() {
    var r: i64;
    r = asm { "rdtsc" out("rax") r };
}`)
	fn := items[0].(*FunctionDecl)
	assign := fn.Body[1].(*AssignStmt)
	_, isAsm := assign.Value.(*AsmExpr)
	assert.True(t, isAsm)
}

func TestParseErrorCarriesLine(t *testing.T) {
	err := parseError(t, "fun f() {\n    let x i32;\n}")
	assert.Equal(t, 2, err.Line)
}
