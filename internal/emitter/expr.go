package emitter

import (
	"github.com/jordyorel/orus-lang-sub009/internal/ast"
	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

// binaryArithOp/binaryCompareOp map an ast.BinaryOp to the generic register
// opcode the baseline chunk emits. The emitter only ever targets the
// generic _R family; internal/specialize is the stage that later rewrites a
// hot function's baseline into typed opcodes, so nothing here needs to
// consult a resolved type to pick an opcode.
func binaryArithOp(op ast.BinaryOp) (bytecode.OpCode, bool) {
	switch op {
	case ast.OpAdd:
		return bytecode.OP_ADD_R, true
	case ast.OpSub:
		return bytecode.OP_SUB_R, true
	case ast.OpMul:
		return bytecode.OP_MUL_R, true
	case ast.OpDiv:
		return bytecode.OP_DIV_R, true
	case ast.OpMod:
		return bytecode.OP_MOD_R, true
	case ast.OpLt:
		return bytecode.OP_LT_R, true
	case ast.OpLe:
		return bytecode.OP_LE_R, true
	case ast.OpGt:
		return bytecode.OP_GT_R, true
	case ast.OpGe:
		return bytecode.OP_GE_R, true
	case ast.OpEq:
		return bytecode.OP_EQ_R, true
	case ast.OpNe:
		return bytecode.OP_NE_R, true
	case ast.OpAnd:
		return bytecode.OP_AND, true
	case ast.OpOr:
		return bytecode.OP_OR, true
	default:
		return 0, false
	}
}

// emitExpr compiles n and returns the frame-tier index holding its result.
// Named locals and function parameters are returned directly (their
// register is locked, so a later Free on it is a no-op): reading a
// variable never copies it.
func (e *Emitter) emitExpr(n *ast.Node) int {
	if n == nil {
		e.errorf("emitter: nil expression node")
		return e.alloc.Alloc()
	}
	switch n.Kind {
	case ast.KindLiteral:
		return e.emitLiteral(n)
	case ast.KindIdentifier:
		return e.emitIdentifier(n)
	case ast.KindBinary:
		return e.emitBinary(n)
	case ast.KindUnary:
		return e.emitUnary(n)
	case ast.KindAssign:
		return e.emitAssign(n)
	case ast.KindCall:
		return e.emitCall(n)
	case ast.KindArrayAssign:
		e.emitArrayAssignStmt(n)
		return e.emitExprOfValue(n)
	default:
		e.errorf("emitter: %v is not a valid expression", n.Kind)
		return e.alloc.Alloc()
	}
}

// emitExprOfValue re-evaluates the stored value of an ArrayAssign/MemberAssign
// node so it can be used as an expression result (assignment-as-expression,
// the same convention compileAssignmentExpr follows).
func (e *Emitter) emitExprOfValue(n *ast.Node) int {
	return e.emitExpr(n.Value)
}

func (e *Emitter) emitLiteral(n *ast.Node) int {
	reg := e.alloc.Alloc()
	v := n.LiteralValue
	switch v.Tag {
	case value.Nil:
		e.op(bytecode.OP_LOAD_NIL)
		e.reg(e.frameReg(reg))
	case value.Bool:
		e.op(bytecode.OP_LOAD_BOOL)
		e.reg(e.frameReg(reg))
		if v.AsBool() {
			e.byte(1)
		} else {
			e.byte(0)
		}
	default:
		k := e.chunk.AddConstant(v)
		e.op(bytecode.OP_LOAD_CONST)
		e.reg(e.frameReg(reg))
		e.short(uint16(k))
	}
	return reg
}

func (e *Emitter) emitIdentifier(n *ast.Node) int {
	if r, ok := e.resolveLocal(n.Name); ok {
		return r
	}
	reg := e.alloc.Alloc()
	id := e.globalID(n.Name)
	e.op(bytecode.OP_GET_GLOBAL)
	e.reg(e.frameReg(reg))
	e.short(id)
	return reg
}

// emitBinary mirrors compileBinary: the left operand's register is locked
// while the right operand is compiled so a nested binary on the right can
// never clobber it, then freed again unless it was already a named local.
func (e *Emitter) emitBinary(n *ast.Node) int {
	op, ok := binaryArithOp(n.Op)
	if !ok {
		e.errorf("emitter: unknown binary operator %v", n.Op)
		return e.alloc.Alloc()
	}

	left := e.emitExpr(n.Left)
	leftWasLocked := e.alloc.locked[left]
	e.alloc.Lock(left)
	right := e.emitExpr(n.Right)
	if !leftWasLocked {
		e.alloc.Unlock(left)
	}

	dst := e.alloc.Alloc()
	e.op(op)
	e.reg(e.frameReg(dst))
	e.reg(e.frameReg(left))
	e.reg(e.frameReg(right))

	if !leftWasLocked {
		e.alloc.Free(left)
	}
	e.alloc.Free(right)
	return dst
}

// emitUnary implements the sole unary form the AST carries: boolean
// negation (there is no separate unary-operator field on ast.Node, and no
// numeric-negate opcode in the bytecode set, so OP_NOT is the only shape
// available here).
func (e *Emitter) emitUnary(n *ast.Node) int {
	operand := e.emitExpr(n.Operand)
	dst := e.alloc.Alloc()
	e.op(bytecode.OP_NOT)
	e.reg(e.frameReg(dst))
	e.reg(e.frameReg(operand))
	e.alloc.Free(operand)
	return dst
}

// emitAssign implements x = value as an expression, returning the assigned
// value's register so it can be used inline (e.g. `y = (x = 1)`).
func (e *Emitter) emitAssign(n *ast.Node) int {
	if local, ok := e.resolveLocal(n.Name); ok {
		v := e.emitExpr(n.Operand)
		if v != local {
			e.op(bytecode.OP_MOVE)
			e.reg(e.frameReg(local))
			e.reg(e.frameReg(v))
			e.alloc.Free(v)
		}
		return local
	}
	v := e.emitExpr(n.Operand)
	id := e.globalID(n.Name)
	e.op(bytecode.OP_SET_GLOBAL)
	e.short(id)
	e.reg(e.frameReg(v))
	return v
}

// emitCall stages argument values into the fixed CALL calling convention
// (temp-tier registers [0, argc)) and issues CALL, matching handleCall's
// contract. Arguments are first evaluated into ordinary frame-tier
// registers and locked, then moved into the temp-tier slots once every
// argument (and the callee) has been evaluated, so evaluating argument N
// can never clobber an already-computed argument N-1.
func (e *Emitter) emitCall(n *ast.Node) int {
	argRegs := make([]int, len(n.Args))
	for i, a := range n.Args {
		argRegs[i] = e.emitExpr(a)
		e.alloc.Lock(argRegs[i])
	}
	callee := e.emitExpr(n.Callee)

	for i, r := range argRegs {
		e.op(bytecode.OP_MOVE)
		e.reg(e.tempReg(i))
		e.reg(e.frameReg(r))
		e.alloc.Unlock(r)
		e.alloc.Free(r)
	}

	dst := e.alloc.Alloc()
	e.op(bytecode.OP_CALL)
	e.reg(e.frameReg(dst))
	e.reg(e.frameReg(callee))
	if len(n.Args) > 255 {
		e.errorf("emitter: call %s has %d arguments, more than the 8-bit argc operand can encode", n.Name, len(n.Args))
	}
	e.byte(byte(len(n.Args)))
	e.alloc.Free(callee)
	return dst
}
