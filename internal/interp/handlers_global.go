package interp

import (
	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
	"github.com/jordyorel/orus-lang-sub009/internal/regfile"
	"github.com/jordyorel/orus-lang-sub009/internal/vmerr"
)

func handleGetGlobal(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	dst := readShort(code, f.IP+1)
	id := readShort(code, f.IP+3)
	if !m.definedGlobals[id] {
		loc := m.spanAt(chunk, f.IP)
		return m.raise(vmerr.UndefinedGlobalf(loc, "global %d is not defined", id))
	}
	m.Cache.Set(dst, m.Cache.Get(regfile.RegID(regfile.TierGlobal, int(id))))
	f.IP += instrSize(bytecode.OP_GET_GLOBAL)
	return SignalAdvance
}

func handleSetGlobal(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	id := readShort(code, f.IP+1)
	src := readShort(code, f.IP+3)
	if m.definedGlobals == nil {
		m.definedGlobals = map[uint16]bool{}
	}
	m.definedGlobals[id] = true
	m.Cache.Set(regfile.RegID(regfile.TierGlobal, int(id)), m.Cache.Get(src))
	f.IP += instrSize(bytecode.OP_SET_GLOBAL)
	return SignalAdvance
}
