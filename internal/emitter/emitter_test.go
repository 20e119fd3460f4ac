package emitter

import (
	"testing"

	"github.com/jordyorel/orus-lang-sub009/internal/ast"
	"github.com/jordyorel/orus-lang-sub009/internal/interp"
	"github.com/jordyorel/orus-lang-sub009/internal/optimizer"
	"github.com/jordyorel/orus-lang-sub009/internal/regfile"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

// TestEmitProgramGlobalArithmetic compiles `let x = 10; let y = 32;
// let z = x + y` and checks the resulting global holds 42, exercising
// VarDecl-as-global, identifier lookup, and generic binary arithmetic.
func TestEmitProgramGlobalArithmetic(t *testing.T) {
	xDecl := ast.VarDecl("x", ast.Literal(value.I64Val(10)))
	yDecl := ast.VarDecl("y", ast.Literal(value.I64Val(32)))
	sum := ast.Binary(ast.OpAdd,
		ast.Identifier("x", value.I64, false),
		ast.Identifier("y", value.I64, false),
		value.I64, true)
	zDecl := ast.VarDecl("z", sum)
	program := ast.Program(xDecl, yDecl, zDecl)

	e := NewProgramEmitter("arith.orus", nil)
	chunk, err := e.EmitProgram(program)
	if err != nil {
		t.Fatalf("emit error: %v", err)
	}

	m := interp.New(interp.DefaultOptions())
	if rerr := m.Run(chunk, "main"); rerr != nil {
		t.Fatalf("runtime error: %v", rerr)
	}

	zID := e.globalID("z")
	got := m.Regs.Get(regfile.RegID(regfile.TierGlobal, int(zID))).AsI64()
	if got != 42 {
		t.Fatalf("expected z == 42, got %d", got)
	}
}

// TestEmitProgramForRangeSum compiles a counted loop summing 0..999 into a
// global accumulator, the same scenario interp_test.go's hand-encoded
// TestTightCountedLoopSum exercises, but built from an AST instead of
// hand-written bytecode, proving emitForRange's lowering matches.
func TestEmitProgramForRangeSum(t *testing.T) {
	sumDecl := ast.VarDecl("sum", ast.Literal(value.I64Val(0)))
	addToSum := ast.Assign("sum", ast.Binary(ast.OpAdd,
		ast.Identifier("sum", value.I64, false),
		ast.Identifier("i", value.I64, false),
		value.I64, true))
	loop := ast.ForRange("i",
		ast.Literal(value.I64Val(0)),
		ast.Literal(value.I64Val(1000)),
		nil, false,
		[]*ast.Node{addToSum})
	program := ast.Program(sumDecl, loop)

	e := NewProgramEmitter("loop.orus", nil)
	chunk, err := e.EmitProgram(program)
	if err != nil {
		t.Fatalf("emit error: %v", err)
	}

	m := interp.New(interp.DefaultOptions())
	if rerr := m.Run(chunk, "main"); rerr != nil {
		t.Fatalf("runtime error: %v", rerr)
	}

	sumID := e.globalID("sum")
	got := m.Regs.Get(regfile.RegID(regfile.TierGlobal, int(sumID))).AsI64()
	if got != 499500 {
		t.Fatalf("expected sum == 499500, got %d", got)
	}
}

// TestEmitProgramWhileWithResidencyHoist builds `while i < limit { i = i +
// 1 }` alongside a ResidencyPlan marking the guard's right operand
// (limit) as loop-invariant, and checks the loop still terminates at the
// right value — exercising emitWhile's hoist path, not just its fallback.
func TestEmitProgramWhileWithResidencyHoist(t *testing.T) {
	iDecl := ast.VarDecl("i", ast.Literal(value.I64Val(0)))
	limitDecl := ast.VarDecl("limit", ast.Literal(value.I64Val(5)))

	limitRef := ast.Identifier("limit", value.I64, false)
	cond := ast.Binary(ast.OpLt,
		ast.Identifier("i", value.I64, false),
		limitRef,
		value.Bool, true)
	body := []*ast.Node{
		ast.Assign("i", ast.Binary(ast.OpAdd,
			ast.Identifier("i", value.I64, false),
			ast.Literal(value.I64Val(1)),
			value.I64, true)),
	}
	loop := ast.While(cond, body)
	program := ast.Program(iDecl, limitDecl, loop)

	ctx := optimizer.NewContext()
	ctx.AddPlan(&optimizer.ResidencyPlan{
		Loop: loop,
		Entries: []optimizer.ResidencyEntry{
			{Node: limitRef, PrefersTyped: true, RequiresResidency: true},
		},
	})

	e := NewProgramEmitter("while.orus", ctx)
	chunk, err := e.EmitProgram(program)
	if err != nil {
		t.Fatalf("emit error: %v", err)
	}

	m := interp.New(interp.DefaultOptions())
	if rerr := m.Run(chunk, "main"); rerr != nil {
		t.Fatalf("runtime error: %v", rerr)
	}

	iID := e.globalID("i")
	got := m.Regs.Get(regfile.RegID(regfile.TierGlobal, int(iID))).AsI64()
	if got != 5 {
		t.Fatalf("expected i == 5, got %d", got)
	}
}

// TestEmitFunctionCallRoundTrip compiles a two-parameter add function with
// EmitFunction, wires the resulting value.Obj into a calling program as a
// constant, and checks CALL/RETURN hand off arguments and result the same
// way interp_test.go's hand-built TestCallPassesArgumentsAndReturnsValue
// does.
func TestEmitFunctionCallRoundTrip(t *testing.T) {
	e := NewProgramEmitter("call.orus", nil)

	returnSum := ast.Binary(ast.OpAdd,
		ast.Identifier("a", value.I64, false),
		ast.Identifier("b", value.I64, false),
		value.I64, true)

	fnObj, err := e.EmitFunction("add", []string{"a", "b"}, []*ast.Node{returnSum})
	if err != nil {
		t.Fatalf("emit function error: %v", err)
	}

	callExpr := &ast.Node{
		Kind:   ast.KindCall,
		Callee: ast.Literal(value.ObjVal(fnObj)),
		Args: []*ast.Node{
			ast.Literal(value.I64Val(7)),
			ast.Literal(value.I64Val(35)),
		},
	}
	resultDecl := ast.VarDecl("result", callExpr)
	program := ast.Program(resultDecl)

	chunk, err := e.EmitProgram(program)
	if err != nil {
		t.Fatalf("emit program error: %v", err)
	}

	m := interp.New(interp.DefaultOptions())
	if rerr := m.Run(chunk, "main"); rerr != nil {
		t.Fatalf("runtime error: %v", rerr)
	}

	resultID := e.globalID("result")
	got := m.Regs.Get(regfile.RegID(regfile.TierGlobal, int(resultID))).AsI64()
	if got != 42 {
		t.Fatalf("expected result == 42, got %d", got)
	}
}
