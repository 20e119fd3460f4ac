package emitter

import (
	"github.com/jordyorel/orus-lang-sub009/internal/ast"
	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

// emitStmt compiles one statement node. Every expression-producing Kind is
// also legal here (an expression used as a statement): its result register
// is simply freed afterward, the same as compileExpressionStmt.
func (e *Emitter) emitStmt(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.KindVarDecl:
		e.emitVarDecl(n)
	case ast.KindForRange:
		e.emitForRange(n)
	case ast.KindForIter:
		e.emitForIter(n)
	case ast.KindWhile:
		e.emitWhile(n)
	case ast.KindArrayAssign:
		e.emitArrayAssignStmt(n)
	case ast.KindMemberAssign:
		e.emitMemberAssignStmt(n)
	case ast.KindBlock:
		e.pushScope()
		for _, s := range n.Statements {
			e.emitStmt(s)
		}
		e.popScope()
	case ast.KindProgram:
		for _, s := range n.Statements {
			e.emitStmt(s)
		}
	default:
		r := e.emitExpr(n)
		e.alloc.Free(r)
	}
}

// emitVarDecl implements `let name = init`. A top-level declaration (scope
// depth 0) becomes a true global; any nested declaration becomes a
// frame-tier local, matching compregister's compileLetStmt split.
func (e *Emitter) emitVarDecl(n *ast.Node) {
	if e.scopeDepth == 0 {
		id := e.globalID(n.Name)
		v := e.emitExpr(n.Operand)
		e.op(bytecode.OP_SET_GLOBAL)
		e.short(id)
		e.reg(e.frameReg(v))
		e.alloc.Free(v)
		return
	}
	init := e.emitExpr(n.Operand)
	local := e.defineLocal(n.Name)
	if init != local {
		e.op(bytecode.OP_MOVE)
		e.reg(e.frameReg(local))
		e.reg(e.frameReg(init))
		e.alloc.Free(init)
	}
}

func (e *Emitter) arrayAssignCore(n *ast.Node) {
	base := e.emitExpr(n.Base)
	baseLocked := e.alloc.locked[base]
	e.alloc.Lock(base)
	idx := e.emitExpr(n.Index)
	idxLocked := e.alloc.locked[idx]
	e.alloc.Lock(idx)
	val := e.emitExpr(n.Value)

	e.op(bytecode.OP_ARRAY_SET)
	e.reg(e.frameReg(base))
	e.reg(e.frameReg(idx))
	e.reg(e.frameReg(val))

	e.alloc.Free(val)
	if !idxLocked {
		e.alloc.Unlock(idx)
		e.alloc.Free(idx)
	}
	if !baseLocked {
		e.alloc.Unlock(base)
		e.alloc.Free(base)
	}
}

func (e *Emitter) emitArrayAssignStmt(n *ast.Node) { e.arrayAssignCore(n) }

// emitMemberAssignStmt lowers `base.field = value` onto the same ARRAY_SET
// opcode as index assignment: the value model (internal/value) has no
// struct/record object kind, only arrays, strings, buffers and iterators,
// so a named-field target is treated as an indexed one. See DESIGN.md's
// Open Questions for the reasoning.
func (e *Emitter) emitMemberAssignStmt(n *ast.Node) { e.arrayAssignCore(n) }

// emitForRange lowers `for name in start..end [step s] { body }` to a
// counted loop in the style of the hand-written test fixtures: bounds are
// evaluated once before the loop (this is exactly the residency-pass
// optimization spec §4.6 describes — a loop-invariant bound is computed
// once, not on every iteration), the induction variable lives in its own
// frame register for the duration of the loop body, and the backward edge
// uses OP_LOOP_BACK_L so the profiler can recognize the loop (spec §6).
func (e *Emitter) emitForRange(n *ast.Node) {
	start := e.emitExpr(n.Start)
	e.alloc.Lock(start)
	end := e.emitExpr(n.End)
	e.alloc.Lock(end)
	var step int
	if n.Step != nil {
		step = e.emitExpr(n.Step)
	} else {
		step = e.alloc.Alloc()
		one := e.chunk.AddConstant(value.I64Val(1))
		e.op(bytecode.OP_LOAD_CONST)
		e.reg(e.frameReg(step))
		e.short(uint16(one))
	}
	e.alloc.Lock(step)

	e.pushScope()
	induction := e.defineLocal(n.Name)
	e.op(bytecode.OP_MOVE)
	e.reg(e.frameReg(induction))
	e.reg(e.frameReg(start))
	e.alloc.Unlock(start)
	e.alloc.Free(start)

	loopStart := len(e.chunk.Code)

	cmp := bytecode.OP_LT_R
	if n.Inclusive {
		cmp = bytecode.OP_LE_R
	}
	cond := e.alloc.Alloc()
	e.op(cmp)
	e.reg(e.frameReg(cond))
	e.reg(e.frameReg(induction))
	e.reg(e.frameReg(end))

	e.op(bytecode.OP_JMP_IF_FALSE_L)
	e.reg(e.frameReg(cond))
	exitPatch := e.chunk.OpenPatch(emitLine, emitCol, e.file)
	e.alloc.Free(cond)

	e.pushScope()
	for _, s := range n.Body {
		e.emitStmt(s)
	}
	e.popScope()

	e.op(bytecode.OP_ADD_R)
	e.reg(e.frameReg(induction))
	e.reg(e.frameReg(induction))
	e.reg(e.frameReg(step))

	e.emitLoopBack(loopStart)
	e.chunk.ClosePatch(exitPatch)

	e.alloc.Unlock(end)
	e.alloc.Free(end)
	e.alloc.Unlock(step)
	e.alloc.Free(step)
	e.popScope()
}

// emitLoopBack emits OP_LOOP_BACK_L with a hand-computed backward delta,
// the same relative-to-next-instruction convention ClosePatch uses for
// forward patches (spec §3's "relative to the instruction that follows").
func (e *Emitter) emitLoopBack(target int) {
	e.op(bytecode.OP_LOOP_BACK_L)
	operand := len(e.chunk.Code)
	e.short(0)
	delta := target - (operand + 2)
	e.chunk.Code[operand] = byte(uint16(delta) >> 8)
	e.chunk.Code[operand+1] = byte(uint16(delta))
}

// emitWhile lowers `while cond { body }`. When a residency plan for this
// loop (spec §4.6) marks the guard's right-hand operand as loop-invariant,
// that operand is hoisted: evaluated once before the loop instead of once
// per iteration, and the hoisted register is reused on every re-check of
// the guard — the residency pass exists precisely to identify this
// opportunity.
func (e *Emitter) emitWhile(n *ast.Node) {
	hoistedRight := -1
	cond := n.Cond
	if e.ctx != nil && cond != nil && cond.Kind == ast.KindBinary {
		if plan, ok := e.ctx.PlanForLoop(n); ok {
			for _, entry := range plan.Entries {
				if entry.Node == cond.Right && entry.RequiresResidency {
					hoistedRight = e.emitExpr(cond.Right)
					e.alloc.Lock(hoistedRight)
				}
			}
		}
	}

	loopStart := len(e.chunk.Code)
	condReg := e.emitWhileGuard(cond, hoistedRight)

	e.op(bytecode.OP_JMP_IF_FALSE_L)
	e.reg(e.frameReg(condReg))
	exitPatch := e.chunk.OpenPatch(emitLine, emitCol, e.file)
	e.alloc.Free(condReg)

	e.pushScope()
	for _, s := range n.Body {
		e.emitStmt(s)
	}
	e.popScope()

	e.emitLoopBack(loopStart)
	e.chunk.ClosePatch(exitPatch)

	if hoistedRight >= 0 {
		e.alloc.Unlock(hoistedRight)
		e.alloc.Free(hoistedRight)
	}
}

// emitWhileGuard evaluates the while condition, reusing a hoisted
// right-hand register when one was computed outside the loop.
func (e *Emitter) emitWhileGuard(cond *ast.Node, hoistedRight int) int {
	if hoistedRight >= 0 && cond.Kind == ast.KindBinary {
		op, ok := binaryArithOp(cond.Op)
		if ok {
			left := e.emitExpr(cond.Left)
			dst := e.alloc.Alloc()
			e.op(op)
			e.reg(e.frameReg(dst))
			e.reg(e.frameReg(left))
			e.reg(e.frameReg(hoistedRight))
			if !e.alloc.locked[left] {
				e.alloc.Free(left)
			}
			return dst
		}
	}
	return e.emitExpr(cond)
}

// emitForIter lowers `for name in iterable { body }` onto
// ITER_OPEN_ARRAY/ITER_NEXT, the shape those opcodes exist for (spec §10's
// iterator object contract). The done-offset is a single unpatched byte
// since ITER_NEXT's operand is 8 bits wide, so it is hand-patched the same
// way the backward loop edge is rather than through OpenPatch/ClosePatch
// (which only reserve 16-bit placeholders).
func (e *Emitter) emitForIter(n *ast.Node) {
	arr := e.emitExpr(n.Iterable)
	iter := e.alloc.Alloc()
	e.op(bytecode.OP_ITER_OPEN_ARRAY)
	e.reg(e.frameReg(iter))
	e.reg(e.frameReg(arr))
	e.alloc.Free(arr)

	e.pushScope()
	elem := e.defineLocal(n.Name)

	loopStart := len(e.chunk.Code)
	e.op(bytecode.OP_ITER_NEXT)
	e.reg(e.frameReg(iter))
	e.reg(e.frameReg(elem))
	doneOperand := len(e.chunk.Code)
	e.byte(0)

	e.pushScope()
	for _, s := range n.Body {
		e.emitStmt(s)
	}
	e.popScope()

	e.emitLoopBack(loopStart)

	doneDelta := len(e.chunk.Code) - (doneOperand + 1)
	e.chunk.Code[doneOperand] = byte(doneDelta)

	e.popScope()
	e.alloc.Free(iter)
}
