package interp

import (
	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

// handleMove implements MOVE dst, src: a plain boxed copy that invalidates
// any typed shadow on dst (spec §3: "Writing through the generic setter
// invalidates the shadow").
func handleMove(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	dst, src := readShort(code, f.IP+1), readShort(code, f.IP+3)
	m.Cache.Set(dst, m.Cache.Get(src))
	f.IP += instrSize(bytecode.OP_MOVE)
	return SignalAdvance
}

// valueTagFor maps a guard kind to the boxed value.Tag a guard move checks
// the current value at src against (spec §4.7: the guard coerces "the
// current value at r" based on the boxed value's type, not a pre-existing
// shadow — a freshly-written register, e.g. a call argument staged through
// Cache.Set, has no shadow at all yet it must still pass a matching guard).
func valueTagFor(kind bytecode.GuardKind) value.Tag {
	switch kind {
	case bytecode.GuardI32:
		return value.I32
	case bytecode.GuardI64:
		return value.I64
	default:
		return value.F64
	}
}

// handleMoveTyped builds the MOVE_I32/MOVE_I64/MOVE_F64 handler. Outside a
// specialization guard prologue this is an ordinary typed copy: when src's
// boxed value already carries kind's tag, it establishes dst's unboxed
// shadow from that value; otherwise it demotes and falls back to a boxed
// copy.
//
// Inside a guard prologue (f.IP < f.PrologueLen on the active specialized
// chunk) the same boxed-tag check is the guard itself (spec §4.7): a match
// coerces the value into dst's typed shadow, a mismatch triggers deopt —
// the frame drops back to its generic chunk and resumes at the equivalent
// offset.
func handleMoveTyped(kind bytecode.GuardKind) handlerFn {
	want := valueTagFor(kind)
	return func(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
		dst, src := readShort(code, f.IP+1), readShort(code, f.IP+3)
		inPrologue := f.Specialized != nil && chunk == f.Specialized && f.IP < f.PrologueLen

		v := m.Cache.Get(src)
		if v.Tag == want {
			switch kind {
			case bytecode.GuardI32:
				m.Regs.SetTypedI64(dst, int64(v.AsI32()), value.I32)
			case bytecode.GuardI64:
				m.Regs.SetTypedI64(dst, v.AsI64(), value.I64)
			default:
				m.Regs.SetTypedF64(dst, v.AsF64())
			}
			// SetTypedI64/SetTypedF64 already wrote dst's boxed copy
			// directly; routing through Cache.Set here would re-invalidate
			// the shadow it just established. Drop any stale cache slot
			// instead so the next Get re-reads the File.
			m.Cache.Invalidate(dst)
			f.IP += instrSize(bytecode.OP_MOVE_I32)
			return SignalAdvance
		}

		if inPrologue {
			resumeIP := f.IP - f.PrologueLen
			if resumeIP < 0 {
				resumeIP = 0
			}
			f.Specialized = nil
			f.IP = resumeIP
			return SignalBranch
		}

		m.Regs.Demote(dst)
		m.Cache.Set(dst, v)
		f.IP += instrSize(bytecode.OP_MOVE_I32)
		return SignalAdvance
	}
}

func handleLoadConst(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	dst := readShort(code, f.IP+1)
	idx := readShort(code, f.IP+3)
	m.Cache.Set(dst, chunk.Constants[idx])
	f.IP += instrSize(bytecode.OP_LOAD_CONST)
	return SignalAdvance
}

func handleLoadNil(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	dst := readShort(code, f.IP+1)
	m.Cache.Set(dst, value.NilValue)
	f.IP += instrSize(bytecode.OP_LOAD_NIL)
	return SignalAdvance
}

func handleLoadBool(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	dst := readShort(code, f.IP+1)
	b := readByte(code, f.IP+3) != 0
	m.Cache.Set(dst, value.Boolean(b))
	f.IP += instrSize(bytecode.OP_LOAD_BOOL)
	return SignalAdvance
}

func handleNot(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	dst, src := readShort(code, f.IP+1), readShort(code, f.IP+3)
	v := m.Cache.Get(src)
	m.Cache.Set(dst, value.Boolean(!v.AsBool()))
	f.IP += instrSize(bytecode.OP_NOT)
	return SignalAdvance
}
