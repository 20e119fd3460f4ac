package interp

import (
	"math"

	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
	"github.com/jordyorel/orus-lang-sub009/internal/vmerr"
)

// Run pushes a top-level frame for entry and executes until the frame
// stack drains, a halt is reached, or an unhandled runtime error
// propagates past every try region (spec §7: "if none exists, execution
// halts and the error is reported through the embedder").
func (m *Machine) Run(entry *bytecode.Chunk, functionName string) *vmerr.RuntimeError {
	if err := m.pushFrame(Frame{Chunk: entry, FunctionName: functionName}, entry.MaxRegisters, entry.MaxRegisters); err != nil {
		return err
	}
	for len(m.Frames) > 0 {
		sig := m.step()
		switch sig {
		case SignalHalt:
			return nil
		case SignalRuntimeError:
			if !m.unwindToHandler() {
				return m.LastError
			}
		case SignalCallPopped:
			if len(m.Frames) == 0 {
				return nil
			}
		}
	}
	return nil
}

// step executes exactly one instruction of the current frame's active
// chunk and returns its continuation signal. Per-instruction cycle: read
// opcode, increment instruction pointer, invoke handler (spec §4.8).
// Loop back-edge profile samples are taken by the LOOP_BACK handlers, not
// here, and nothing is polled between instructions: GC is
// threshold-triggered inside allocation, and internal/jit (whose
// AnalyzeLoop always declines, spec §1's explicit JIT-codegen non-goal) is
// not consulted.
func (m *Machine) step() Signal {
	frame := m.currentFrame()
	chunk := frame.ActiveChunk()
	code := chunk.Code

	if frame.IP >= len(code) {
		return SignalHalt
	}
	op := bytecode.OpCode(code[frame.IP])
	handler, ok := dispatchTable[op]
	if !ok {
		span := m.spanAt(chunk, frame.IP)
		return m.raise(vmerr.New(vmerr.TypeMismatch, "unknown opcode", span))
	}
	return handler(m, frame, chunk, code)
}

// handlerFn is the Handler signature spec §4.8 describes in spirit:
// given the machine, current frame, and active chunk, execute one
// instruction and report its continuation. The handler owns advancing
// frame.IP; this lets branch handlers set IP directly instead of the
// dispatcher always adding instrSize.
type handlerFn func(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal

var dispatchTable map[bytecode.OpCode]handlerFn

func init() {
	dispatchTable = map[bytecode.OpCode]handlerFn{
		bytecode.OP_ADD_R: genericArith(func(a, b value.Value) (value.Value, *vmerr.RuntimeError) { return arithAdd(a, b) }),
		bytecode.OP_SUB_R: genericArith(arithSub),
		bytecode.OP_MUL_R: genericArith(arithMul),
		bytecode.OP_DIV_R: genericArith(arithDiv),
		bytecode.OP_MOD_R: genericArith(arithMod),

		bytecode.OP_ADD_I32_TYPED: typedArithI32(func(a, b int32) (int64, bool) { return int64(a) + int64(b), true }),
		bytecode.OP_SUB_I32_TYPED: typedArithI32(func(a, b int32) (int64, bool) { return int64(a) - int64(b), true }),
		bytecode.OP_MUL_I32_TYPED: typedArithI32(func(a, b int32) (int64, bool) { return int64(a) * int64(b), true }),
		bytecode.OP_DIV_I32_TYPED: typedArithI32(func(a, b int32) (int64, bool) {
			if b == 0 {
				return 0, false
			}
			return int64(a) / int64(b), true
		}),
		bytecode.OP_MOD_I32_TYPED: typedArithI32(func(a, b int32) (int64, bool) {
			if b == 0 {
				return 0, false
			}
			return int64(a) % int64(b), true
		}),

		bytecode.OP_ADD_I64_TYPED: typedArithI64(func(a, b int64) (int64, bool) { return addOverflowsI64(a, b) }),
		bytecode.OP_SUB_I64_TYPED: typedArithI64(func(a, b int64) (int64, bool) { return subOverflowsI64(a, b) }),
		bytecode.OP_MUL_I64_TYPED: typedArithI64(func(a, b int64) (int64, bool) { return mulOverflowsI64(a, b) }),
		bytecode.OP_DIV_I64_TYPED: typedArithI64(func(a, b int64) (int64, bool) {
			if b == 0 {
				return 0, false
			}
			return a / b, true
		}),
		bytecode.OP_MOD_I64_TYPED: typedArithI64(func(a, b int64) (int64, bool) {
			if b == 0 {
				return 0, false
			}
			return a % b, true
		}),

		bytecode.OP_ADD_F64_TYPED: typedArithF64(func(a, b float64) float64 { return a + b }),
		bytecode.OP_SUB_F64_TYPED: typedArithF64(func(a, b float64) float64 { return a - b }),
		bytecode.OP_MUL_F64_TYPED: typedArithF64(func(a, b float64) float64 { return a * b }),
		bytecode.OP_DIV_F64_TYPED: typedArithF64(func(a, b float64) float64 { return a / b }),
		bytecode.OP_MOD_F64_TYPED: typedArithF64(func(a, b float64) float64 { return math.Mod(a, b) }),

		bytecode.OP_LT_I32_TYPED: typedCompareI32(func(a, b int32) bool { return a < b }),
		bytecode.OP_LE_I32_TYPED: typedCompareI32(func(a, b int32) bool { return a <= b }),
		bytecode.OP_GT_I32_TYPED: typedCompareI32(func(a, b int32) bool { return a > b }),
		bytecode.OP_GE_I32_TYPED: typedCompareI32(func(a, b int32) bool { return a >= b }),
		bytecode.OP_EQ_I32_TYPED: typedCompareI32(func(a, b int32) bool { return a == b }),
		bytecode.OP_NE_I32_TYPED: typedCompareI32(func(a, b int32) bool { return a != b }),

		bytecode.OP_LT_I64_TYPED: typedCompareI64(func(a, b int64) bool { return a < b }),
		bytecode.OP_LE_I64_TYPED: typedCompareI64(func(a, b int64) bool { return a <= b }),
		bytecode.OP_GT_I64_TYPED: typedCompareI64(func(a, b int64) bool { return a > b }),
		bytecode.OP_GE_I64_TYPED: typedCompareI64(func(a, b int64) bool { return a >= b }),
		bytecode.OP_EQ_I64_TYPED: typedCompareI64(func(a, b int64) bool { return a == b }),
		bytecode.OP_NE_I64_TYPED: typedCompareI64(func(a, b int64) bool { return a != b }),

		bytecode.OP_LT_F64_TYPED: typedCompareF64(func(a, b float64) bool { return a < b }),
		bytecode.OP_LE_F64_TYPED: typedCompareF64(func(a, b float64) bool { return a <= b }),
		bytecode.OP_GT_F64_TYPED: typedCompareF64(func(a, b float64) bool { return a > b }),
		bytecode.OP_GE_F64_TYPED: typedCompareF64(func(a, b float64) bool { return a >= b }),
		bytecode.OP_EQ_F64_TYPED: typedCompareF64(func(a, b float64) bool { return a == b }),
		bytecode.OP_NE_F64_TYPED: typedCompareF64(func(a, b float64) bool { return a != b }),

		bytecode.OP_LT_R: genericCompare(func(a, b value.Value) (bool, *vmerr.RuntimeError) { return compareLess(a, b) }),
		bytecode.OP_LE_R: genericCompare(compareLessEqual),
		bytecode.OP_GT_R: genericCompare(compareGreater),
		bytecode.OP_GE_R: genericCompare(compareGreaterEqual),
		bytecode.OP_EQ_R: genericCompare(func(a, b value.Value) (bool, *vmerr.RuntimeError) { return value.Equal(a, b), nil }),
		bytecode.OP_NE_R: genericCompare(func(a, b value.Value) (bool, *vmerr.RuntimeError) { return !value.Equal(a, b), nil }),

		bytecode.OP_AND:  logicalBool(func(a, b bool) bool { return a && b }),
		bytecode.OP_OR:   logicalBool(func(a, b bool) bool { return a || b }),
		bytecode.OP_BAND: bitwise(func(a, b int64) int64 { return a & b }),
		bytecode.OP_BOR:  bitwise(func(a, b int64) int64 { return a | b }),
		bytecode.OP_BXOR: bitwise(func(a, b int64) int64 { return a ^ b }),
		bytecode.OP_SHL:  bitwise(func(a, b int64) int64 { return a << uint64(b) }),
		bytecode.OP_SHR:  bitwise(func(a, b int64) int64 { return a >> uint64(b) }),

		bytecode.OP_MOVE:     handleMove,
		bytecode.OP_MOVE_I32: handleMoveTyped(bytecode.GuardI32),
		bytecode.OP_MOVE_I64: handleMoveTyped(bytecode.GuardI64),
		bytecode.OP_MOVE_F64: handleMoveTyped(bytecode.GuardF64),

		bytecode.OP_LOAD_CONST: handleLoadConst,
		bytecode.OP_LOAD_NIL:   handleLoadNil,
		bytecode.OP_LOAD_BOOL:  handleLoadBool,

		bytecode.OP_GET_GLOBAL: handleGetGlobal,
		bytecode.OP_SET_GLOBAL: handleSetGlobal,

		bytecode.OP_JMP_SHORT:      handleJmpShort,
		bytecode.OP_JMP_LONG:       handleJmpLong,
		bytecode.OP_JMP_IF_TRUE:    handleJmpIfShort(true),
		bytecode.OP_JMP_IF_FALSE:   handleJmpIfShort(false),
		bytecode.OP_JMP_IF_TRUE_L:  handleJmpIfLong(true),
		bytecode.OP_JMP_IF_FALSE_L: handleJmpIfLong(false),
		bytecode.OP_LOOP_BACK:      handleLoopBackShort,
		bytecode.OP_LOOP_BACK_L:    handleLoopBackLong,

		bytecode.OP_CALL:   handleCall,
		bytecode.OP_RETURN: handleReturn,

		bytecode.OP_ITER_OPEN_RANGE: handleIterOpenRange,
		bytecode.OP_ITER_OPEN_ARRAY: handleIterOpenArray,
		bytecode.OP_ITER_NEXT:       handleIterNext,

		bytecode.OP_NEW_ARRAY:  handleNewArray,
		bytecode.OP_ARRAY_GET:  handleArrayGet,
		bytecode.OP_ARRAY_SET:  handleArraySet,
		bytecode.OP_ARRAY_LEN:  handleArrayLen,
		bytecode.OP_ARRAY_PUSH: handleArrayPush,

		bytecode.OP_INC_CHECKED: handleIncChecked,
		bytecode.OP_DEC_CHECKED: handleDecChecked,

		bytecode.OP_TRY_BEGIN: handleTryBegin,
		bytecode.OP_TRY_END:   handleTryEnd,

		bytecode.OP_PRINT:  handlePrint,
		bytecode.OP_ASSERT: handleAssert,
		bytecode.OP_HALT:   handleHalt,
		bytecode.OP_NOT:    handleNot,
	}
}
