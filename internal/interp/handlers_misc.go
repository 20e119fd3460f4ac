package interp

import (
	"fmt"

	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
	"github.com/jordyorel/orus-lang-sub009/internal/regfile"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
	"github.com/jordyorel/orus-lang-sub009/internal/vmerr"
)

// handleIncChecked/handleDecChecked implement the checked increment/
// decrement fast path (spec §4.3): when the register's shadow is
// authoritative, step the unboxed i32/i64 cell directly and demote on
// overflow; otherwise step the boxed value by tag.
func handleIncChecked(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	return stepChecked(m, f, chunk, code, bytecode.OP_INC_CHECKED, 1)
}

func handleDecChecked(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	return stepChecked(m, f, chunk, code, bytecode.OP_DEC_CHECKED, -1)
}

func stepChecked(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte, op bytecode.OpCode, delta int64) Signal {
	reg := readShort(code, f.IP+1)
	switch m.Regs.ShadowTagOf(reg) {
	case regfile.ShadowI32:
		cur := int32(m.Regs.TypedI64(reg))
		next := int64(cur) + delta
		if next >= -(1<<31) && next <= (1<<31)-1 {
			m.Regs.SetTypedI64(reg, next, value.I32)
			f.IP += instrSize(op)
			return SignalAdvance
		}
		m.Regs.Demote(reg)
	case regfile.ShadowI64:
		cur := m.Regs.TypedI64(reg)
		if next, ok := addOverflowsI64(cur, delta); ok {
			m.Regs.SetTypedI64(reg, next, value.I64)
			f.IP += instrSize(op)
			return SignalAdvance
		}
		m.Regs.Demote(reg)
	}

	loc := m.spanAt(chunk, f.IP)
	cur := m.Cache.Get(reg)
	result, err := numericOp(cur, matchTag(cur.Tag, delta), '+')
	if err != nil {
		err.Location = loc
		return m.raise(err)
	}
	m.Cache.Set(reg, result)
	f.IP += instrSize(op)
	return SignalAdvance
}

// matchTag produces a ±1 numeric literal matching v's tag, so the boxed
// fallback path of stepChecked can reuse numericOp's same-tag requirement.
func matchTag(tag value.Tag, delta int64) value.Value {
	switch tag {
	case value.I32:
		return value.I32Val(int32(delta))
	case value.U32:
		return value.U32Val(uint32(delta))
	case value.U64:
		return value.U64Val(uint64(delta))
	case value.F64:
		return value.F64Val(float64(delta))
	default:
		return value.I64Val(delta)
	}
}

// handleTryBegin implements TRY_BEGIN handlerOffset(16-bit): pushes an
// unwind record naming this frame and the handler's absolute bytecode
// offset, relative to the byte following the instruction (spec §9:
// "model them as explicit unwind records (frame + offset), never as
// language-native exception types").
func handleTryBegin(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	offset := int(readShort(code, f.IP+1))
	size := instrSize(bytecode.OP_TRY_BEGIN)
	handlerPC := f.IP + size + offset
	m.TryStack = append(m.TryStack, TryFrame{FrameIndex: len(m.Frames) - 1, HandlerPC: handlerPC})
	f.IP += size
	return SignalAdvance
}

// handleTryEnd implements TRY_END: closes the innermost try region
// entered by the current frame.
func handleTryEnd(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	if n := len(m.TryStack); n > 0 {
		m.TryStack = m.TryStack[:n-1]
	}
	f.IP += instrSize(bytecode.OP_TRY_END)
	return SignalAdvance
}

// unwindToHandler implements spec §7's runtime-error propagation: "if a
// try/begin region is active, unwind to its handler ... otherwise
// propagate to the caller; if none exists, execution halts and the error
// is reported through the embedder." Frames above the handler's frame are
// popped (and their register windows released) until the handler's frame
// is current, then execution resumes at the handler's bytecode offset. It
// reports whether a handler was found.
func (m *Machine) unwindToHandler() bool {
	if len(m.TryStack) == 0 {
		return false
	}
	n := len(m.TryStack)
	handler := m.TryStack[n-1]
	m.TryStack = m.TryStack[:n-1]

	for len(m.Frames)-1 > handler.FrameIndex {
		m.popFrame()
		if len(m.returnTargets) > 0 {
			m.returnTargets = m.returnTargets[:len(m.returnTargets)-1]
		}
	}
	if len(m.Frames) == 0 {
		return false
	}
	frame := m.currentFrame()
	frame.Specialized = nil
	frame.IP = handler.HandlerPC
	return true
}

func handlePrint(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	reg := readShort(code, f.IP+1)
	fmt.Fprintln(m.Out, m.Cache.Get(reg).String())
	f.IP += instrSize(bytecode.OP_PRINT)
	return SignalAdvance
}

func handleAssert(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	reg := readShort(code, f.IP+1)
	v := m.Cache.Get(reg)
	if !v.AsBool() {
		loc := m.spanAt(chunk, f.IP)
		return m.raise(vmerr.New(vmerr.AssertionFailed, "assertion failed", loc))
	}
	f.IP += instrSize(bytecode.OP_ASSERT)
	return SignalAdvance
}

func handleHalt(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	return SignalHalt
}
