// Package bytecode implements the chunk format and opcode set consumed by
// the interpreter (spec components C4/C5's instruction encoding).
//
// Instruction encoding is variable-width: the decoder knows a fixed operand
// width per opcode. Shapes used here: three-register (dst, a, b),
// register+immediate-offset (reg, offset), and branch (signed offset,
// short or long).
package bytecode

// OpCode identifies one instruction kind.
type OpCode byte

const (
	// ------------------------------------------------------------------
	// Arithmetic: generic, tag-dispatched (_R) opcodes, which the emitter
	// always targets, plus one typed (_TYPED) variant per numeric kind that
	// the specialization stage rewrites them into.
	// ------------------------------------------------------------------
	OP_ADD_R OpCode = iota // ADD_R   dst, a, b   R(dst) = R(a) + R(b)  (generic, tag-dispatched)
	OP_SUB_R
	OP_MUL_R
	OP_DIV_R
	OP_MOD_R

	OP_ADD_I32_TYPED // ADD_I32_TYPED dst, a, b   typed-shadow fast path
	OP_SUB_I32_TYPED
	OP_MUL_I32_TYPED
	OP_DIV_I32_TYPED
	OP_MOD_I32_TYPED

	OP_ADD_I64_TYPED
	OP_SUB_I64_TYPED
	OP_MUL_I64_TYPED
	OP_DIV_I64_TYPED
	OP_MOD_I64_TYPED

	OP_ADD_F64_TYPED
	OP_SUB_F64_TYPED
	OP_MUL_F64_TYPED
	OP_DIV_F64_TYPED
	OP_MOD_F64_TYPED

	// ------------------------------------------------------------------
	// Comparison: generic and typed variants, per spec §4.3.
	// ------------------------------------------------------------------
	OP_LT_R
	OP_LE_R
	OP_GT_R
	OP_GE_R
	OP_EQ_R
	OP_NE_R

	OP_LT_I32_TYPED
	OP_LE_I32_TYPED
	OP_GT_I32_TYPED
	OP_GE_I32_TYPED
	OP_EQ_I32_TYPED
	OP_NE_I32_TYPED

	OP_LT_I64_TYPED
	OP_LE_I64_TYPED
	OP_GT_I64_TYPED
	OP_GE_I64_TYPED
	OP_EQ_I64_TYPED
	OP_NE_I64_TYPED

	OP_LT_F64_TYPED
	OP_LE_F64_TYPED
	OP_GT_F64_TYPED
	OP_GE_F64_TYPED
	OP_EQ_F64_TYPED
	OP_NE_F64_TYPED

	// ------------------------------------------------------------------
	// Logical / bitwise
	// ------------------------------------------------------------------
	OP_NOT
	OP_AND
	OP_OR
	OP_BAND
	OP_BOR
	OP_BXOR
	OP_SHL
	OP_SHR

	// ------------------------------------------------------------------
	// Moves and constants
	// ------------------------------------------------------------------
	OP_MOVE       // MOVE dst, src              R(dst) = R(src); invalidates typed shadow
	OP_MOVE_I32   // MOVE_I32 dst, src          typed move, i32 shadow; deopt trigger in a guard prologue
	OP_MOVE_I64   // MOVE_I64 dst, src          typed move, i64 shadow
	OP_MOVE_F64   // MOVE_F64 dst, src          typed move, f64 shadow
	OP_LOAD_CONST // LOAD_CONST dst, Kidx(16-bit)
	OP_LOAD_NIL
	OP_LOAD_BOOL // LOAD_BOOL dst, 0|1

	// ------------------------------------------------------------------
	// Globals
	// ------------------------------------------------------------------
	OP_GET_GLOBAL // GET_GLOBAL dst, globalID(16-bit)
	OP_SET_GLOBAL // SET_GLOBAL globalID(16-bit), src

	// ------------------------------------------------------------------
	// Control flow. Short branches carry a signed 8-bit delta; long
	// branches a signed 16-bit delta. Backward loop edges are distinct
	// opcodes so the decoder (and the profiler) can recognize them without
	// inspecting the sign of the operand.
	// ------------------------------------------------------------------
	OP_JMP_SHORT      // unconditional, forward or backward, 8-bit delta
	OP_JMP_LONG       // unconditional, 16-bit delta
	OP_JMP_IF_TRUE    // cond reg, 8-bit delta
	OP_JMP_IF_FALSE   // cond reg, 8-bit delta
	OP_JMP_IF_TRUE_L  // cond reg, 16-bit delta
	OP_JMP_IF_FALSE_L // cond reg, 16-bit delta
	OP_LOOP_BACK      // backward edge, 8-bit delta (profiled as a loop back-edge)
	OP_LOOP_BACK_L    // backward edge, 16-bit delta

	// ------------------------------------------------------------------
	// Calls
	// ------------------------------------------------------------------
	OP_CALL   // CALL dst, fnReg, argc
	OP_RETURN // RETURN src

	// ------------------------------------------------------------------
	// Iterators
	// ------------------------------------------------------------------
	OP_ITER_OPEN_RANGE // ITER_OPEN_RANGE dst, startReg, endReg
	OP_ITER_OPEN_ARRAY // ITER_OPEN_ARRAY dst, arrReg
	OP_ITER_NEXT       // ITER_NEXT iterReg, valueReg, shortOffsetIfDone

	// ------------------------------------------------------------------
	// Array operations
	// ------------------------------------------------------------------
	OP_NEW_ARRAY  // NEW_ARRAY dst, capacityHint(16-bit)
	OP_ARRAY_GET  // ARRAY_GET dst, arrReg, idxReg
	OP_ARRAY_SET  // ARRAY_SET arrReg, idxReg, valReg
	OP_ARRAY_LEN  // ARRAY_LEN dst, arrReg
	OP_ARRAY_PUSH // ARRAY_PUSH arrReg, valReg

	// ------------------------------------------------------------------
	// Checked increment/decrement (spec §4.3 fast path)
	// ------------------------------------------------------------------
	OP_INC_CHECKED // INC_CHECKED reg — typed fast path with overflow demotion
	OP_DEC_CHECKED

	// ------------------------------------------------------------------
	// Exception handling
	// ------------------------------------------------------------------
	OP_TRY_BEGIN // TRY_BEGIN handlerOffset(16-bit)
	OP_TRY_END

	// ------------------------------------------------------------------
	// Misc
	// ------------------------------------------------------------------
	OP_PRINT
	OP_ASSERT
	OP_HALT
)

// Width returns the number of operand bytes (excluding the opcode byte
// itself) that follow an instruction of this kind, matching spec §4.3's
// "decoder knows a fixed width per opcode (1-4 bytes)" generalized to
// register operands that are each the full 16-bit logical id spec §3
// requires ("addressed by a single 16-bit logical id"), rather than a
// single byte — every register operand below therefore costs 2 bytes,
// and 8-bit immediates (short-branch deltas, argc, the done-offset of
// ITER_NEXT) cost 1.
func (op OpCode) Width() int {
	switch op {
	case OP_HALT, OP_TRY_END:
		return 0

	// One 16-bit register operand.
	case OP_LOAD_NIL, OP_INC_CHECKED, OP_DEC_CHECKED, OP_PRINT, OP_ASSERT, OP_RETURN:
		return 2

	// One 16-bit register + one 8-bit immediate.
	case OP_LOAD_BOOL:
		return 3

	// Two 16-bit register operands.
	case OP_MOVE, OP_MOVE_I32, OP_MOVE_I64, OP_MOVE_F64,
		OP_ARRAY_LEN, OP_ARRAY_PUSH, OP_ITER_OPEN_ARRAY, OP_NOT:
		return 4

	// One 16-bit register + one 16-bit immediate (constant/global index,
	// capacity hint), or two 16-bit immediates (globalID + src register).
	case OP_LOAD_CONST, OP_GET_GLOBAL, OP_SET_GLOBAL, OP_NEW_ARRAY:
		return 4

	// One 16-bit immediate only.
	case OP_JMP_LONG, OP_TRY_BEGIN, OP_LOOP_BACK_L:
		return 2

	// One 8-bit immediate only.
	case OP_JMP_SHORT, OP_LOOP_BACK:
		return 1

	// One 16-bit register + one 8-bit delta.
	case OP_JMP_IF_TRUE, OP_JMP_IF_FALSE:
		return 3

	// One 16-bit register + one 16-bit delta.
	case OP_JMP_IF_TRUE_L, OP_JMP_IF_FALSE_L:
		return 4

	// dst, fnReg (16-bit each) + 8-bit argc.
	case OP_CALL:
		return 5

	// iterReg, valueReg (16-bit each) + 8-bit done-offset.
	case OP_ITER_NEXT:
		return 5

	// Three 16-bit register operands.
	case OP_ITER_OPEN_RANGE, OP_ARRAY_GET, OP_ARRAY_SET:
		return 6

	default:
		// Every arithmetic/comparison/logical family opcode (generic and
		// typed) is three-register (dst, a, b), 16 bits each.
		return 6
	}
}

// IsGenericArith reports whether op is a generic arithmetic or comparison
// opcode the specialization stage (C9) knows how to promote to a typed
// variant.
func (op OpCode) IsGenericArith() bool {
	switch op {
	case OP_ADD_R, OP_SUB_R, OP_MUL_R, OP_DIV_R, OP_MOD_R,
		OP_LT_R, OP_LE_R, OP_GT_R, OP_GE_R, OP_EQ_R, OP_NE_R:
		return true
	default:
		return false
	}
}

// GuardKind is the typed shadow kind a guard move at a specialized chunk's
// prologue checks for.
type GuardKind uint8

const (
	GuardI32 GuardKind = iota
	GuardI64
	GuardF64
)

// TypedVariant returns the typed opcode op becomes when specialized under
// the given guard kind, and whether a mapping exists at all (spec §4.7
// step 2: "a mappable typed variant").
func (op OpCode) TypedVariant(kind GuardKind) (OpCode, bool) {
	table := map[OpCode][3]OpCode{
		OP_ADD_R: {OP_ADD_I32_TYPED, OP_ADD_I64_TYPED, OP_ADD_F64_TYPED},
		OP_SUB_R: {OP_SUB_I32_TYPED, OP_SUB_I64_TYPED, OP_SUB_F64_TYPED},
		OP_MUL_R: {OP_MUL_I32_TYPED, OP_MUL_I64_TYPED, OP_MUL_F64_TYPED},
		OP_DIV_R: {OP_DIV_I32_TYPED, OP_DIV_I64_TYPED, OP_DIV_F64_TYPED},
		OP_MOD_R: {OP_MOD_I32_TYPED, OP_MOD_I64_TYPED, OP_MOD_F64_TYPED},
		OP_LT_R:  {OP_LT_I32_TYPED, OP_LT_I64_TYPED, OP_LT_F64_TYPED},
		OP_LE_R:  {OP_LE_I32_TYPED, OP_LE_I64_TYPED, OP_LE_F64_TYPED},
		OP_GT_R:  {OP_GT_I32_TYPED, OP_GT_I64_TYPED, OP_GT_F64_TYPED},
		OP_GE_R:  {OP_GE_I32_TYPED, OP_GE_I64_TYPED, OP_GE_F64_TYPED},
		OP_EQ_R:  {OP_EQ_I32_TYPED, OP_EQ_I64_TYPED, OP_EQ_F64_TYPED},
		OP_NE_R:  {OP_NE_I32_TYPED, OP_NE_I64_TYPED, OP_NE_F64_TYPED},
	}
	variants, ok := table[op]
	if !ok {
		return 0, false
	}
	return variants[kind], true
}

// MoveFor returns the typed move opcode used in a specialized chunk's
// guard prologue for the given guard kind.
func MoveFor(kind GuardKind) OpCode {
	switch kind {
	case GuardI32:
		return OP_MOVE_I32
	case GuardI64:
		return OP_MOVE_I64
	default:
		return OP_MOVE_F64
	}
}
