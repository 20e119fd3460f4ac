package optimizer

import (
	"github.com/jordyorel/orus-lang-sub009/internal/ast"
)

// RunResidency is the C8 contract of spec §4.6: "run(typed_ast, ctx)
// clears prior plans and, for each supported loop form, examines the
// operand subtrees other than the induction variable itself."
//
// RunResidency assumes RunAffinity has already run over the same tree in
// the same ctx.Clear() generation if both passes' outputs are needed
// together; it only clears the plan list, not the affinity bindings,
// since the two lists are independent dynamic arrays per spec §6.
func RunResidency(root *ast.Node, ctx *Context) {
	ctx.plans = ctx.plans[:0]
	visitResidency(root, ctx)
}

func visitResidency(n *ast.Node, ctx *Context) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.KindForRange:
		planRangeResidency(n, ctx)
		visitResidency(n.Start, ctx)
		visitResidency(n.End, ctx)
		visitResidency(n.Step, ctx)
		for _, s := range n.Body {
			visitResidency(s, ctx)
		}
	case ast.KindForIter:
		visitResidency(n.Iterable, ctx)
		for _, s := range n.Body {
			visitResidency(s, ctx)
		}
	case ast.KindWhile:
		planWhileResidency(n, ctx)
		visitResidency(n.Cond, ctx)
		for _, s := range n.Body {
			visitResidency(s, ctx)
		}
	case ast.KindBinary:
		visitResidency(n.Left, ctx)
		visitResidency(n.Right, ctx)
	case ast.KindUnary, ast.KindAssign, ast.KindVarDecl:
		visitResidency(n.Operand, ctx)
	case ast.KindMemberAssign, ast.KindArrayAssign:
		visitResidency(n.Base, ctx)
		visitResidency(n.Index, ctx)
		visitResidency(n.Value, ctx)
	case ast.KindCall:
		visitResidency(n.Callee, ctx)
		for _, a := range n.Args {
			visitResidency(a, ctx)
		}
	case ast.KindProgram, ast.KindBlock:
		for _, s := range n.Statements {
			visitResidency(s, ctx)
		}
	}
}

func planRangeResidency(loop *ast.Node, ctx *Context) {
	mutated := mutatedIdentifiers(loop.Body)
	var entries []ResidencyEntry
	for _, candidate := range []*ast.Node{loop.End, loop.Step} {
		if e, ok := qualify(candidate, mutated); ok {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return
	}
	ctx.AddPlan(&ResidencyPlan{Loop: loop, Entries: entries})
	ctx.Stats.ResidentOperands += len(entries)
}

func planWhileResidency(loop *ast.Node, ctx *Context) {
	cond := loop.Cond
	if cond == nil || cond.Kind != ast.KindBinary || !cond.Op.IsComparison() {
		return
	}
	mutated := mutatedIdentifiers(loop.Body)
	var entries []ResidencyEntry
	for _, candidate := range []*ast.Node{cond.Left, cond.Right} {
		if e, ok := qualify(candidate, mutated); ok {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return
	}
	ctx.AddPlan(&ResidencyPlan{Loop: loop, Entries: entries})
	ctx.Stats.ResidentOperands += len(entries)
}

// qualify applies spec §4.6's three qualification rules to a candidate
// operand subtree:
//  1. its resolved type supports typed registers;
//  2. every identifier it references has a known resolved type;
//  3. none of those identifiers is mutated anywhere within the loop body.
//     Residency caches a register's value across iterations, so any
//     reassignment inside the body — even one that keeps the same
//     resolved type — invalidates that cached value and disqualifies the
//     identifier; there is no type-compatible exception.
func qualify(candidate *ast.Node, mutated map[string]struct{}) (ResidencyEntry, bool) {
	if candidate == nil {
		return ResidencyEntry{}, false
	}
	if !ast.IsNumericType(candidate.ResolvedType, candidate.HasType) {
		return ResidencyEntry{}, false
	}
	idents := collectIdentifiers(candidate)
	for _, id := range idents {
		if !id.HasType {
			return ResidencyEntry{}, false
		}
		if _, isMutated := mutated[id.Name]; isMutated {
			return ResidencyEntry{}, false
		}
	}
	return ResidencyEntry{
		Node:              candidate,
		PrefersTyped:      true,
		RequiresResidency: !candidate.IsConstant,
	}, true
}

func collectIdentifiers(n *ast.Node) []*ast.Node {
	var out []*ast.Node
	ast.Walk(n, func(child *ast.Node) {
		if child.Kind == ast.KindIdentifier {
			out = append(out, child)
		}
	})
	return out
}

// mutatedIdentifiers walks a loop body looking for assignment targets,
// declarations, nested for-range/for-iterator induction variables, and
// member/array assignments whose base references an identifier — the
// mutation surface spec §4.6 enumerates. The result is a set: any
// reassignment disqualifies the name from residency, regardless of
// whether the new value's type matches the old one.
func mutatedIdentifiers(body []*ast.Node) map[string]struct{} {
	result := make(map[string]struct{})

	var walkStmt func(n *ast.Node)
	walkStmt = func(n *ast.Node) {
		if n == nil {
			return
		}
		switch n.Kind {
		case ast.KindAssign:
			recordMutation(result, n.Name)
			walkStmt(n.Operand)
		case ast.KindVarDecl:
			recordMutation(result, n.Name)
			walkStmt(n.Operand)
		case ast.KindForRange:
			recordMutation(result, n.Name)
			for _, s := range n.Body {
				walkStmt(s)
			}
		case ast.KindForIter:
			recordMutation(result, n.Name)
			for _, s := range n.Body {
				walkStmt(s)
			}
		case ast.KindMemberAssign, ast.KindArrayAssign:
			for _, base := range []*ast.Node{n.Base} {
				ast.Walk(base, func(child *ast.Node) {
					if child.Kind == ast.KindIdentifier {
						recordMutation(result, child.Name)
					}
				})
			}
		case ast.KindWhile:
			walkStmt(n.Cond)
			for _, s := range n.Body {
				walkStmt(s)
			}
		case ast.KindBlock, ast.KindProgram:
			for _, s := range n.Statements {
				walkStmt(s)
			}
		}
	}
	for _, s := range body {
		walkStmt(s)
	}
	return result
}

func recordMutation(result map[string]struct{}, name string) {
	result[name] = struct{}{}
}
