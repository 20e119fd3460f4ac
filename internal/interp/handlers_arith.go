package interp

import (
	"math"

	"golang.org/x/exp/constraints"

	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
	"github.com/jordyorel/orus-lang-sub009/internal/regfile"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
	"github.com/jordyorel/orus-lang-sub009/internal/vmerr"
)

// threeRegOperands decodes the common (dst, a, b) instruction shape.
func threeRegOperands(code []byte, ip int) (dst, a, b uint16) {
	return readShort(code, ip+1), readShort(code, ip+3), readShort(code, ip+5)
}

// genericArith builds a tag-dispatched handler for a generic (_R)
// arithmetic opcode: it reads both boxed operands, applies fn, and
// writes the boxed result, matching spec §4.3's generic arithmetic
// family.
func genericArith(fn func(a, b value.Value) (value.Value, *vmerr.RuntimeError)) handlerFn {
	return func(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
		dst, aReg, bReg := threeRegOperands(code, f.IP)
		a, b := m.Cache.Get(aReg), m.Cache.Get(bReg)
		result, err := fn(a, b)
		if err != nil {
			err.Location = m.spanAt(chunk, f.IP)
			return m.raise(err)
		}
		m.Cache.Set(dst, result)
		f.IP += instrSize(bytecode.OP_ADD_R)
		return SignalAdvance
	}
}

func genericCompare(fn func(a, b value.Value) (bool, *vmerr.RuntimeError)) handlerFn {
	return func(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
		dst, aReg, bReg := threeRegOperands(code, f.IP)
		a, b := m.Cache.Get(aReg), m.Cache.Get(bReg)
		result, err := fn(a, b)
		if err != nil {
			err.Location = m.spanAt(chunk, f.IP)
			return m.raise(err)
		}
		m.Cache.Set(dst, value.Boolean(result))
		f.IP += instrSize(bytecode.OP_LT_R)
		return SignalAdvance
	}
}

func numericMismatch(loc func() vmerr.SourceSpan, a, b value.Value) *vmerr.RuntimeError {
	return vmerr.TypeMismatchf(vmerr.SourceSpan{}, "expected matching numeric operands, got %s and %s", a.Tag, b.Tag)
}

func arithAdd(a, b value.Value) (value.Value, *vmerr.RuntimeError) { return numericOp(a, b, '+') }
func arithSub(a, b value.Value) (value.Value, *vmerr.RuntimeError) { return numericOp(a, b, '-') }
func arithMul(a, b value.Value) (value.Value, *vmerr.RuntimeError) { return numericOp(a, b, '*') }
func arithDiv(a, b value.Value) (value.Value, *vmerr.RuntimeError) { return numericOp(a, b, '/') }
func arithMod(a, b value.Value) (value.Value, *vmerr.RuntimeError) { return numericOp(a, b, '%') }

// numericOp implements the generic (boxed, tag-dispatched) arithmetic
// family. Orus never coerces across numeric tags implicitly, so both
// operands must already share a tag.
func numericOp(a, b value.Value, op byte) (value.Value, *vmerr.RuntimeError) {
	if a.Tag != b.Tag || !a.Tag.IsNumeric() {
		return value.NilValue, numericMismatch(nil, a, b)
	}
	switch a.Tag {
	case value.I32:
		x, y := a.AsI32(), b.AsI32()
		r, err := applyOpI64(int64(x), int64(y), op)
		if err != nil {
			return value.NilValue, err
		}
		return value.I32Val(int32(r)), nil
	case value.I64:
		r, err := applyOpI64(a.AsI64(), b.AsI64(), op)
		if err != nil {
			return value.NilValue, err
		}
		return value.I64Val(r), nil
	case value.U32:
		r, err := applyOpU64(uint64(a.AsU32()), uint64(b.AsU32()), op)
		if err != nil {
			return value.NilValue, err
		}
		return value.U32Val(uint32(r)), nil
	case value.U64:
		r, err := applyOpU64(a.AsU64(), b.AsU64(), op)
		if err != nil {
			return value.NilValue, err
		}
		return value.U64Val(r), nil
	case value.F64:
		r, err := applyOpF64(a.AsF64(), b.AsF64(), op)
		if err != nil {
			return value.NilValue, err
		}
		return value.F64Val(r), nil
	default:
		return value.NilValue, numericMismatch(nil, a, b)
	}
}

// applyIntOp is the one generic integer arithmetic body the i32/i64/u32/u64
// boxed paths all share, constrained to constraints.Integer (signed and
// unsigned integers of any width), rather than four hand-copied per-width
// switches.
func applyIntOp[T constraints.Integer](a, b T, op byte) (T, *vmerr.RuntimeError) {
	switch op {
	case '+':
		return a + b, nil
	case '-':
		return a - b, nil
	case '*':
		return a * b, nil
	case '/':
		if b == 0 {
			return 0, vmerr.New(vmerr.DivisionByZero, "division by zero", vmerr.SourceSpan{})
		}
		return a / b, nil
	case '%':
		if b == 0 {
			return 0, vmerr.New(vmerr.DivisionByZero, "modulo by zero", vmerr.SourceSpan{})
		}
		return a % b, nil
	default:
		return 0, vmerr.New(vmerr.TypeMismatch, "unsupported operator", vmerr.SourceSpan{})
	}
}

func applyOpI64(a, b int64, op byte) (int64, *vmerr.RuntimeError)   { return applyIntOp(a, b, op) }
func applyOpU64(a, b uint64, op byte) (uint64, *vmerr.RuntimeError) { return applyIntOp(a, b, op) }

func applyOpF64(a, b float64, op byte) (float64, *vmerr.RuntimeError) {
	switch op {
	case '+':
		return a + b, nil
	case '-':
		return a - b, nil
	case '*':
		return a * b, nil
	case '/':
		return a / b, nil
	case '%':
		return math.Mod(a, b), nil
	default:
		return 0, vmerr.New(vmerr.TypeMismatch, "unsupported operator", vmerr.SourceSpan{})
	}
}

// addOverflowsI64/subOverflowsI64/mulOverflowsI64 implement spec §4.3's
// "Overflow is detected with a saturating compare against the type's
// max; it is never silent" for the i64 typed fast path.
func addOverflowsI64(a, b int64) (int64, bool) {
	r := a + b
	if (b > 0 && r < a) || (b < 0 && r > a) {
		return 0, false
	}
	return r, true
}

func subOverflowsI64(a, b int64) (int64, bool) {
	r := a - b
	if (b < 0 && r < a) || (b > 0 && r > a) {
		return 0, false
	}
	return r, true
}

func mulOverflowsI64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	r := a * b
	if r/b != a || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return r, true
}

// typedArithI32 builds a typed i32 fast-path handler (spec §4.3): reads
// both operands' i32 shadow directly when the tag matches; on mismatch
// or overflow, demotes the destination register and falls back to the
// boxed path instead of raising an error, matching the demotion
// contract of spec §4.2 ("must demote the tag to HEAP when they observe
// a type mismatch or overflow").
func typedArithI32(fn func(a, b int32) (int64, bool)) handlerFn {
	return func(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
		dst, aReg, bReg := threeRegOperands(code, f.IP)
		if m.Regs.ShadowTagOf(aReg) == regfile.ShadowI32 && m.Regs.ShadowTagOf(bReg) == regfile.ShadowI32 {
			a := int32(m.Regs.TypedI64(aReg))
			b := int32(m.Regs.TypedI64(bReg))
			result, ok := fn(a, b)
			if ok && result >= math.MinInt32 && result <= math.MaxInt32 {
				m.Regs.SetTypedI64(dst, result, value.I32)
				f.IP += instrSize(bytecode.OP_ADD_I32_TYPED)
				return SignalAdvance
			}
			m.Regs.Demote(dst)
		}
		// Fall through to the generic boxed path.
		av, bv := m.Cache.Get(aReg), m.Cache.Get(bReg)
		result, err := numericOp(av, bv, genericOpFor(code[f.IP]))
		if err != nil {
			err.Location = m.spanAt(chunk, f.IP)
			return m.raise(err)
		}
		m.Cache.Set(dst, result)
		f.IP += instrSize(bytecode.OP_ADD_I32_TYPED)
		return SignalAdvance
	}
}

func typedArithI64(fn func(a, b int64) (int64, bool)) handlerFn {
	return func(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
		dst, aReg, bReg := threeRegOperands(code, f.IP)
		if m.Regs.ShadowTagOf(aReg) == regfile.ShadowI64 && m.Regs.ShadowTagOf(bReg) == regfile.ShadowI64 {
			a, b := m.Regs.TypedI64(aReg), m.Regs.TypedI64(bReg)
			if result, ok := fn(a, b); ok {
				m.Regs.SetTypedI64(dst, result, value.I64)
				f.IP += instrSize(bytecode.OP_ADD_I64_TYPED)
				return SignalAdvance
			}
			m.Regs.Demote(dst)
		}
		av, bv := m.Cache.Get(aReg), m.Cache.Get(bReg)
		result, err := numericOp(av, bv, genericOpFor(code[f.IP]))
		if err != nil {
			err.Location = m.spanAt(chunk, f.IP)
			return m.raise(err)
		}
		m.Cache.Set(dst, result)
		f.IP += instrSize(bytecode.OP_ADD_I64_TYPED)
		return SignalAdvance
	}
}

func typedArithF64(fn func(a, b float64) float64) handlerFn {
	return func(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
		dst, aReg, bReg := threeRegOperands(code, f.IP)
		if m.Regs.ShadowTagOf(aReg) == regfile.ShadowF64 && m.Regs.ShadowTagOf(bReg) == regfile.ShadowF64 {
			a, b := m.Regs.TypedF64(aReg), m.Regs.TypedF64(bReg)
			m.Regs.SetTypedF64(dst, fn(a, b))
			f.IP += instrSize(bytecode.OP_ADD_F64_TYPED)
			return SignalAdvance
		}
		av, bv := m.Cache.Get(aReg), m.Cache.Get(bReg)
		result, err := numericOp(av, bv, genericOpFor(code[f.IP]))
		if err != nil {
			err.Location = m.spanAt(chunk, f.IP)
			return m.raise(err)
		}
		m.Cache.Set(dst, result)
		f.IP += instrSize(bytecode.OP_ADD_F64_TYPED)
		return SignalAdvance
	}
}

// genericOpFor maps a typed opcode byte back to the arithmetic operator
// character used by numericOp's fallback path.
func genericOpFor(opByte byte) byte {
	switch bytecode.OpCode(opByte) {
	case bytecode.OP_ADD_I32_TYPED, bytecode.OP_ADD_I64_TYPED, bytecode.OP_ADD_F64_TYPED:
		return '+'
	case bytecode.OP_SUB_I32_TYPED, bytecode.OP_SUB_I64_TYPED, bytecode.OP_SUB_F64_TYPED:
		return '-'
	case bytecode.OP_MUL_I32_TYPED, bytecode.OP_MUL_I64_TYPED, bytecode.OP_MUL_F64_TYPED:
		return '*'
	case bytecode.OP_DIV_I32_TYPED, bytecode.OP_DIV_I64_TYPED, bytecode.OP_DIV_F64_TYPED:
		return '/'
	default:
		return '%'
	}
}

// typedCompareI32/I64/F64 build the typed comparison family: when both
// operands' shadow tags match, compare the unboxed cells directly;
// otherwise fall back to the generic boxed comparison, matching the
// generic-opcode-recovery path typedArithI32/I64/F64 use for arithmetic.
func typedCompareI32(fn func(a, b int32) bool) handlerFn {
	return func(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
		dst, aReg, bReg := threeRegOperands(code, f.IP)
		if m.Regs.ShadowTagOf(aReg) == regfile.ShadowI32 && m.Regs.ShadowTagOf(bReg) == regfile.ShadowI32 {
			a := int32(m.Regs.TypedI64(aReg))
			b := int32(m.Regs.TypedI64(bReg))
			m.Cache.Set(dst, value.Boolean(fn(a, b)))
			f.IP += instrSize(bytecode.OP_LT_I32_TYPED)
			return SignalAdvance
		}
		return fallbackCompare(m, f, chunk, code, dst, aReg, bReg, bytecode.OP_LT_I32_TYPED)
	}
}

func typedCompareI64(fn func(a, b int64) bool) handlerFn {
	return func(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
		dst, aReg, bReg := threeRegOperands(code, f.IP)
		if m.Regs.ShadowTagOf(aReg) == regfile.ShadowI64 && m.Regs.ShadowTagOf(bReg) == regfile.ShadowI64 {
			m.Cache.Set(dst, value.Boolean(fn(m.Regs.TypedI64(aReg), m.Regs.TypedI64(bReg))))
			f.IP += instrSize(bytecode.OP_LT_I64_TYPED)
			return SignalAdvance
		}
		return fallbackCompare(m, f, chunk, code, dst, aReg, bReg, bytecode.OP_LT_I64_TYPED)
	}
}

func typedCompareF64(fn func(a, b float64) bool) handlerFn {
	return func(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
		dst, aReg, bReg := threeRegOperands(code, f.IP)
		if m.Regs.ShadowTagOf(aReg) == regfile.ShadowF64 && m.Regs.ShadowTagOf(bReg) == regfile.ShadowF64 {
			m.Cache.Set(dst, value.Boolean(fn(m.Regs.TypedF64(aReg), m.Regs.TypedF64(bReg))))
			f.IP += instrSize(bytecode.OP_LT_F64_TYPED)
			return SignalAdvance
		}
		return fallbackCompare(m, f, chunk, code, dst, aReg, bReg, bytecode.OP_LT_F64_TYPED)
	}
}

// fallbackCompare reuses the generic boxed comparison when a typed
// comparison's operand shadows don't both match the expected kind. Unlike
// arithmetic, a comparison never overflows, so there is nothing to demote
// here — the operands simply weren't in the expected shadow state (e.g.
// freshly demoted by a prior generic write).
func fallbackCompare(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte, dst, aReg, bReg uint16, sizeOf bytecode.OpCode) Signal {
	av, bv := m.Cache.Get(aReg), m.Cache.Get(bReg)
	op := bytecode.OpCode(code[f.IP])
	if op == eqVariantOf(sizeOf) {
		m.Cache.Set(dst, value.Boolean(value.Equal(av, bv)))
		f.IP += instrSize(sizeOf)
		return SignalAdvance
	}
	if op == neVariantOf(sizeOf) {
		m.Cache.Set(dst, value.Boolean(!value.Equal(av, bv)))
		f.IP += instrSize(sizeOf)
		return SignalAdvance
	}
	result, err := compareOp(av, bv, genericCompareOpFor(op))
	if err != nil {
		err.Location = m.spanAt(chunk, f.IP)
		return m.raise(err)
	}
	m.Cache.Set(dst, value.Boolean(result))
	f.IP += instrSize(sizeOf)
	return SignalAdvance
}

// eqVariantOf/neVariantOf map a typed comparison family's representative
// opcode (its "<" member, passed in as sizeOf) to that family's "=="/"!="
// member, since EQ/NE compare by value equality rather than ordering.
func eqVariantOf(ltOp bytecode.OpCode) bytecode.OpCode {
	switch ltOp {
	case bytecode.OP_LT_I32_TYPED:
		return bytecode.OP_EQ_I32_TYPED
	case bytecode.OP_LT_I64_TYPED:
		return bytecode.OP_EQ_I64_TYPED
	default:
		return bytecode.OP_EQ_F64_TYPED
	}
}

func neVariantOf(ltOp bytecode.OpCode) bytecode.OpCode {
	switch ltOp {
	case bytecode.OP_LT_I32_TYPED:
		return bytecode.OP_NE_I32_TYPED
	case bytecode.OP_LT_I64_TYPED:
		return bytecode.OP_NE_I64_TYPED
	default:
		return bytecode.OP_NE_F64_TYPED
	}
}

func genericCompareOpFor(op bytecode.OpCode) byte {
	switch op {
	case bytecode.OP_LT_I32_TYPED, bytecode.OP_LT_I64_TYPED, bytecode.OP_LT_F64_TYPED:
		return '<'
	case bytecode.OP_LE_I32_TYPED, bytecode.OP_LE_I64_TYPED, bytecode.OP_LE_F64_TYPED:
		return 'l'
	case bytecode.OP_GT_I32_TYPED, bytecode.OP_GT_I64_TYPED, bytecode.OP_GT_F64_TYPED:
		return '>'
	default:
		return 'g'
	}
}

func compareLess(a, b value.Value) (bool, *vmerr.RuntimeError)         { return compareOp(a, b, '<') }
func compareLessEqual(a, b value.Value) (bool, *vmerr.RuntimeError)    { return compareOp(a, b, 'l') }
func compareGreater(a, b value.Value) (bool, *vmerr.RuntimeError)      { return compareOp(a, b, '>') }
func compareGreaterEqual(a, b value.Value) (bool, *vmerr.RuntimeError) { return compareOp(a, b, 'g') }

func compareOp(a, b value.Value, op byte) (bool, *vmerr.RuntimeError) {
	if a.Tag != b.Tag || !a.Tag.IsNumeric() {
		return false, numericMismatch(nil, a, b)
	}
	var af, bf float64
	switch a.Tag {
	case value.I32:
		af, bf = float64(a.AsI32()), float64(b.AsI32())
	case value.I64:
		af, bf = float64(a.AsI64()), float64(b.AsI64())
	case value.U32:
		af, bf = float64(a.AsU32()), float64(b.AsU32())
	case value.U64:
		af, bf = float64(a.AsU64()), float64(b.AsU64())
	case value.F64:
		af, bf = a.AsF64(), b.AsF64()
	}
	switch op {
	case '<':
		return af < bf, nil
	case 'l':
		return af <= bf, nil
	case '>':
		return af > bf, nil
	case 'g':
		return af >= bf, nil
	default:
		return false, nil
	}
}
