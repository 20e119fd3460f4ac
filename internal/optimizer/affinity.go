package optimizer

import (
	"github.com/jordyorel/orus-lang-sub009/internal/ast"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

// RunAffinity is the C7 contract of spec §4.5: "run(typed_ast, ctx) clears
// prior bindings and visits the tree pre-/post-order. On entering a loop
// node (range, while, iterator), create a LoopAffinityBinding; on exit,
// decrement loop depth."
func RunAffinity(root *ast.Node, ctx *Context) {
	ctx.Clear()
	depth := 0
	visitAffinity(root, ctx, &depth)
}

func visitAffinity(n *ast.Node, ctx *Context, depth *int) {
	if n == nil {
		return
	}
	if n.IsLoop() {
		ctx.Stats.LoopsVisited++
		binding := buildBinding(n, *depth)
		id := ctx.AddBinding(binding)
		n.LoopBindingID = id
		n.PreferTypedRegister = bindingPrefersTyped(binding)
		n.RequiresLoopResidency = bindingRequiresResidency(binding)
		*depth++
	}

	switch n.Kind {
	case ast.KindForRange:
		visitAffinity(n.Start, ctx, depth)
		visitAffinity(n.End, ctx, depth)
		visitAffinity(n.Step, ctx, depth)
		for _, s := range n.Body {
			visitAffinity(s, ctx, depth)
		}
	case ast.KindForIter:
		visitAffinity(n.Iterable, ctx, depth)
		for _, s := range n.Body {
			visitAffinity(s, ctx, depth)
		}
	case ast.KindWhile:
		visitAffinity(n.Cond, ctx, depth)
		for _, s := range n.Body {
			visitAffinity(s, ctx, depth)
		}
	case ast.KindBinary:
		visitAffinity(n.Left, ctx, depth)
		visitAffinity(n.Right, ctx, depth)
	case ast.KindUnary, ast.KindAssign, ast.KindVarDecl:
		visitAffinity(n.Operand, ctx, depth)
	case ast.KindMemberAssign, ast.KindArrayAssign:
		visitAffinity(n.Base, ctx, depth)
		visitAffinity(n.Index, ctx, depth)
		visitAffinity(n.Value, ctx, depth)
	case ast.KindCall:
		visitAffinity(n.Callee, ctx, depth)
		for _, a := range n.Args {
			visitAffinity(a, ctx, depth)
		}
	case ast.KindProgram, ast.KindBlock:
		for _, s := range n.Statements {
			visitAffinity(s, ctx, depth)
		}
	}

	if n.IsLoop() {
		*depth--
	}
}

func buildBinding(loop *ast.Node, depth int) *AffinityBinding {
	switch loop.Kind {
	case ast.KindForRange:
		return buildRangeBinding(loop, depth)
	case ast.KindWhile:
		return buildWhileBinding(loop, depth)
	default:
		// Iterator analysis stub (spec §4.5: "A for-iterator loop
		// currently records nothing (stub); this is explicit because
		// pointer lifetime after earlier folding is unverified").
		return &AffinityBinding{Kind: LoopIterator, LoopDepth: depth}
	}
}

func buildRangeBinding(loop *ast.Node, depth int) *AffinityBinding {
	b := &AffinityBinding{Kind: LoopRange, LoopDepth: depth, Inclusive: loop.Inclusive}
	b.Start, b.End, b.Step = loop.Start, loop.End, loop.Step

	b.StartFlags = operandFlags(loop.Start)
	b.EndFlags = operandFlags(loop.End)
	if loop.Step != nil {
		b.StepFlags = operandFlags(loop.Step)
		b.StepSign = constantStepSign(loop.Step)
	} else {
		// Default step is +1 when absent, treated as constant-positive
		// (spec §4.5).
		b.StepFlags = OperandFlags{PrefersTyped: false, RequiresResidency: false, IsConstant: true}
		b.StepSign = 1
	}

	// Candidate type is start ?? end ?? step; a loop is proven numeric
	// when start and end both resolve to a numeric/boolean type and the
	// candidate type is numeric (spec §4.5). Step-only candidates are
	// allowed but never prove numeric bounds (tie-break rule).
	candidate, hasCandidate := candidateType(loop.Start, loop.End, loop.Step)
	startEndNumeric := ast.IsNumericType(loop.Start.ResolvedType, loop.Start.HasType) &&
		ast.IsNumericType(loop.End.ResolvedType, loop.End.HasType)
	b.ProvenNumericBounds = startEndNumeric && hasCandidate && ast.IsNumericType(candidate, hasCandidate)

	return b
}

func buildWhileBinding(loop *ast.Node, depth int) *AffinityBinding {
	b := &AffinityBinding{Kind: LoopWhile, LoopDepth: depth}
	cond := loop.Cond
	if cond == nil || cond.Kind != ast.KindBinary || !cond.Op.IsComparison() {
		// guard is not a recognized comparison shape; record nothing
		// beyond the depth, matching the stub treatment for
		// unsupported guard shapes.
		return b
	}
	b.GuardLeft, b.GuardRight = cond.Left, cond.Right
	b.LeftFlags = operandFlags(cond.Left)
	b.RightFlags = operandFlags(cond.Right)
	b.GuardIsNumeric = ast.IsNumericType(cond.Left.ResolvedType, cond.Left.HasType) &&
		ast.IsNumericType(cond.Right.ResolvedType, cond.Right.HasType)
	return b
}

func operandFlags(n *ast.Node) OperandFlags {
	if n == nil {
		return OperandFlags{}
	}
	numeric := ast.IsNumericType(n.ResolvedType, n.HasType)
	return OperandFlags{
		PrefersTyped: numeric,
		// Residency is required when an operand is numeric and *not*
		// effectively constant (spec §3).
		RequiresResidency: numeric && !n.IsConstant,
		IsConstant:        n.IsConstant,
	}
}

// constantStepSign derives the step's numeric sign when the step
// expression is a constant integer literal; non-constant steps report 0
// (unknown sign, conservatively treated as non-proving).
func constantStepSign(step *ast.Node) int {
	if step == nil || step.Kind != ast.KindLiteral {
		return 0
	}
	v := step.LiteralValue
	if !v.Tag.IsNumeric() {
		return 0
	}
	var f float64
	switch v.Tag {
	case value.I32:
		f = float64(v.AsI32())
	case value.I64:
		f = float64(v.AsI64())
	case value.U32:
		f = float64(v.AsU32())
	case value.U64:
		f = float64(v.AsU64())
	case value.F64:
		f = v.AsF64()
	default:
		return 0
	}
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	default:
		return 0
	}
}

func bindingPrefersTyped(b *AffinityBinding) bool {
	switch b.Kind {
	case LoopRange:
		return b.ProvenNumericBounds
	case LoopWhile:
		return b.GuardIsNumeric
	default:
		return false
	}
}

func bindingRequiresResidency(b *AffinityBinding) bool {
	switch b.Kind {
	case LoopRange:
		return b.EndFlags.RequiresResidency || b.StepFlags.RequiresResidency
	case LoopWhile:
		return b.LeftFlags.RequiresResidency || b.RightFlags.RequiresResidency
	default:
		return false
	}
}
