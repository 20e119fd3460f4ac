package interp

import (
	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
	"github.com/jordyorel/orus-lang-sub009/internal/vmerr"
)

// logicalBool builds AND/OR's handler: both operands must be Bool.
func logicalBool(fn func(a, b bool) bool) handlerFn {
	return func(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
		dst, aReg, bReg := threeRegOperands(code, f.IP)
		a, b := m.Cache.Get(aReg), m.Cache.Get(bReg)
		if a.Tag != value.Bool || b.Tag != value.Bool {
			loc := m.spanAt(chunk, f.IP)
			return m.raise(vmerr.TypeMismatchf(loc, "expected bool operands, got %s and %s", a.Tag, b.Tag))
		}
		m.Cache.Set(dst, value.Boolean(fn(a.AsBool(), b.AsBool())))
		f.IP += instrSize(bytecode.OP_AND)
		return SignalAdvance
	}
}

// bitwise builds BAND/BOR/BXOR/SHL/SHR's handler: both operands must share
// an integer tag (i32/i64/u32/u64), matching the generic arithmetic
// family's "never coerce across numeric tags implicitly" rule.
func bitwise(fn func(a, b int64) int64) handlerFn {
	return func(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
		dst, aReg, bReg := threeRegOperands(code, f.IP)
		a, b := m.Cache.Get(aReg), m.Cache.Get(bReg)
		loc := m.spanAt(chunk, f.IP)
		if a.Tag != b.Tag {
			return m.raise(vmerr.TypeMismatchf(loc, "expected matching integer operands, got %s and %s", a.Tag, b.Tag))
		}
		switch a.Tag {
		case value.I32:
			m.Cache.Set(dst, value.I32Val(int32(fn(int64(a.AsI32()), int64(b.AsI32())))))
		case value.I64:
			m.Cache.Set(dst, value.I64Val(fn(a.AsI64(), b.AsI64())))
		case value.U32:
			m.Cache.Set(dst, value.U32Val(uint32(fn(int64(a.AsU32()), int64(b.AsU32())))))
		case value.U64:
			m.Cache.Set(dst, value.U64Val(uint64(fn(int64(a.AsU64()), int64(b.AsU64())))))
		default:
			return m.raise(vmerr.TypeMismatchf(loc, "expected integer operands, got %s", a.Tag))
		}
		f.IP += instrSize(bytecode.OP_BAND)
		return SignalAdvance
	}
}
