package interp

import (
	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
)

// handleJmpShort/handleJmpLong implement unconditional branches with a
// signed 8-bit/16-bit delta (spec §4.3): the delta is relative to the byte
// immediately following the instruction, matching ClosePatch's convention.

func handleJmpShort(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	delta := int(readSigned8(code, f.IP+1))
	f.IP += instrSize(bytecode.OP_JMP_SHORT) + delta
	return SignalBranch
}

func handleJmpLong(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	delta := int(readSigned16(code, f.IP+1))
	f.IP += instrSize(bytecode.OP_JMP_LONG) + delta
	return SignalBranch
}

// handleJmpIfShort/handleJmpIfLong build the conditional-branch family:
// JMP_IF_TRUE/JMP_IF_FALSE (8-bit delta) and their _L 16-bit counterparts.
// taken reports which boolean value of the condition register triggers the
// branch.
func handleJmpIfShort(taken bool) handlerFn {
	return func(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
		cond := readShort(code, f.IP+1)
		delta := int(readSigned8(code, f.IP+3))
		size := instrSize(bytecode.OP_JMP_IF_TRUE)
		if m.Cache.Get(cond).AsBool() == taken {
			f.IP += size + delta
		} else {
			f.IP += size
		}
		return SignalBranch
	}
}

func handleJmpIfLong(taken bool) handlerFn {
	return func(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
		cond := readShort(code, f.IP+1)
		delta := int(readSigned16(code, f.IP+3))
		size := instrSize(bytecode.OP_JMP_IF_TRUE_L)
		if m.Cache.Get(cond).AsBool() == taken {
			f.IP += size + delta
		} else {
			f.IP += size
		}
		return SignalBranch
	}
}

// handleLoopBackShort/handleLoopBackLong implement the backward loop edge.
// They are distinct opcodes from JMP_SHORT/JMP_LONG precisely so the
// profiler can recognize a loop iteration without inspecting the sign of
// the operand (spec §4.3's comment on OP_LOOP_BACK/_L).
func handleLoopBackShort(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	delta := int(readSigned8(code, f.IP+1))
	m.Profiler.ProfileHotPath(f.FunctionIndex, f.IP, 1)
	f.IP += instrSize(bytecode.OP_LOOP_BACK) + delta
	return SignalBranch
}

func handleLoopBackLong(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	delta := int(readSigned16(code, f.IP+1))
	m.Profiler.ProfileHotPath(f.FunctionIndex, f.IP, 1)
	f.IP += instrSize(bytecode.OP_LOOP_BACK_L) + delta
	return SignalBranch
}
