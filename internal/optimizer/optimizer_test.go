package optimizer

import (
	"testing"

	"github.com/jordyorel/orus-lang-sub009/internal/ast"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

// TestTightCountedLoopAffinity mirrors spec scenario 1: "for i in
// 0..1000: sum = sum + i" produces a binding with
// is_range_loop, prefer_typed_registers=true, proven_numeric_bounds=true,
// step_is_positive=true, loop_depth=0.
func TestTightCountedLoopAffinity(t *testing.T) {
	sumAssign := ast.Assign("sum", ast.Binary(ast.OpAdd,
		ast.Identifier("sum", value.I64, false),
		ast.Identifier("i", value.I64, false),
		value.I64, true))
	loop := ast.ForRange("i",
		ast.Literal(value.I64Val(0)),
		ast.Literal(value.I64Val(1000)),
		nil, false, []*ast.Node{sumAssign})

	ctx := NewContext()
	RunAffinity(loop, ctx)

	binding, ok := ctx.Binding(loop.LoopBindingID)
	if !ok {
		t.Fatalf("expected a binding id to be written back onto the loop node")
	}
	if binding.Kind != LoopRange {
		t.Fatalf("expected a range-loop binding")
	}
	if !binding.ProvenNumericBounds {
		t.Fatalf("expected proven numeric bounds for literal 0..1000")
	}
	if binding.StepSign != 1 {
		t.Fatalf("expected default step sign +1, got %d", binding.StepSign)
	}
	if binding.LoopDepth != 0 {
		t.Fatalf("expected loop depth 0 at top level, got %d", binding.LoopDepth)
	}
	if !loop.PreferTypedRegister {
		t.Fatalf("expected PreferTypedRegister written back onto the loop node")
	}
}

// TestWhileWithInvariantBoundResidency mirrors spec scenario 2: "n = 100;
// i = 0; while i < n: i = i + 1" marks n as prefers_typed,
// requires_residency since n is never written in the loop body.
func TestWhileWithInvariantBoundResidency(t *testing.T) {
	n := ast.Identifier("n", value.I64, false)
	i := ast.Identifier("i", value.I64, false)
	cond := ast.Binary(ast.OpLt, i, n, value.Bool, true)
	incr := ast.Assign("i", ast.Binary(ast.OpAdd, ast.Identifier("i", value.I64, false), ast.Literal(value.I64Val(1)), value.I64, true))
	loop := ast.While(cond, []*ast.Node{incr})

	ctx := NewContext()
	RunResidency(loop, ctx)

	plan, ok := ctx.PlanForLoop(loop)
	if !ok {
		t.Fatalf("expected a residency plan for the while loop")
	}
	var found bool
	for _, e := range plan.Entries {
		if e.Node == n {
			found = true
			if !e.PrefersTyped || !e.RequiresResidency {
				t.Fatalf("expected n to prefer typed registers and require residency")
			}
		}
	}
	if !found {
		t.Fatalf("expected the right-hand guard operand n to qualify for residency")
	}
}

// TestWhileWithMutatedBoundDisqualifiesResidency mirrors spec scenario 3:
// mutating n within the loop body must disqualify it from residency even
// though the mutation assigns a type-compatible value.
func TestWhileWithMutatedBoundDisqualifiesResidency(t *testing.T) {
	n := ast.Identifier("n", value.I64, false)
	i := ast.Identifier("i", value.I64, false)
	cond := ast.Binary(ast.OpLt, i, n, value.Bool, true)
	incrI := ast.Assign("i", ast.Binary(ast.OpAdd, ast.Identifier("i", value.I64, false), ast.Literal(value.I64Val(1)), value.I64, true))
	decrN := ast.Assign("n", ast.Binary(ast.OpSub, ast.Identifier("n", value.I64, false), ast.Literal(value.I64Val(1)), value.I64, true))
	loop := ast.While(cond, []*ast.Node{incrI, decrN})

	ctx := NewContext()
	RunResidency(loop, ctx)

	if plan, ok := ctx.PlanForLoop(loop); ok {
		for _, e := range plan.Entries {
			if e.Node == n {
				t.Fatalf("expected mutated identifier n to be disqualified from residency")
			}
		}
	}
}

func TestAffinityPassIsIdempotent(t *testing.T) {
	loop := ast.ForRange("i", ast.Literal(value.I64Val(0)), ast.Literal(value.I64Val(10)), nil, false, nil)
	ctx := NewContext()

	RunAffinity(loop, ctx)
	first, _ := ctx.Binding(loop.LoopBindingID)
	firstCopy := *first

	RunAffinity(loop, ctx)
	second, _ := ctx.Binding(loop.LoopBindingID)

	if firstCopy.ProvenNumericBounds != second.ProvenNumericBounds || firstCopy.StepSign != second.StepSign {
		t.Fatalf("expected running the affinity pass twice to yield identical bindings")
	}
}
