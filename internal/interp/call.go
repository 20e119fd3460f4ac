package interp

import (
	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
	"github.com/jordyorel/orus-lang-sub009/internal/profiler"
	"github.com/jordyorel/orus-lang-sub009/internal/regfile"
	"github.com/jordyorel/orus-lang-sub009/internal/specialize"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
	"github.com/jordyorel/orus-lang-sub009/internal/vmerr"
)

// callReturnTarget records, for one pending call, which register in the
// caller's frame tier receives the callee's return value.
type callReturnTarget struct {
	dstReg uint16
}

// handleCall implements CALL dst, fnReg, argc (spec §4.3). The callee
// may be running a specialized chunk; frame.ActiveChunk picks it up
// automatically. Argument registers are read from the caller's temp tier
// starting at temp index 0, matching the emitter's convention of moving
// call arguments into consecutive temporaries before CALL.
func handleCall(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	dst := readShort(code, f.IP+1)
	fnReg := readShort(code, f.IP+3)
	argc := int(code[f.IP+5])

	loc := m.spanAt(chunk, f.IP)
	fnVal := m.Cache.Get(fnReg)
	if fnVal.Tag != value.Object || fnVal.AsObj() == nil || fnVal.AsObj().Kind != value.KindFunction {
		return m.raise(vmerr.TypeMismatchf(loc, "call target is not a function"))
	}
	fnObj := fnVal.AsObj().Payload.(*value.FunctionObj)
	if fnObj.Arity != argc {
		return m.raise(vmerr.ArityMismatchf(loc, "%s expects %d arguments, got %d", fnObj.Name, fnObj.Arity, argc))
	}

	args := make([]value.Value, argc)
	for i := 0; i < argc; i++ {
		args[i] = m.Cache.Get(regfile.RegID(regfile.TierTemp, i))
	}

	genericChunk, _ := fnObj.Chunk.(*bytecode.Chunk)
	if genericChunk == nil {
		return m.raise(vmerr.TypeMismatchf(loc, "function %s has no compiled body", fnObj.Name))
	}

	f.IP += instrSize(bytecode.OP_CALL)

	index := m.callIndexOf(fnObj)
	m.Profiler.RegisterFunction(index, fnObj.Name, fnObj.Arity)
	m.Profiler.RecordCall(index)
	maybeSpecialize(m, fnObj, index, genericChunk)

	var specializedChunk *bytecode.Chunk
	var prologueLen int
	if sc, ok := fnObj.Specialized.(*specialize.SpecializedChunk); ok && sc != nil {
		specializedChunk = sc.Chunk
		prologueLen = sc.PrologueLen
	}

	maxRegs := fnObj.MaxRegisters
	if err := m.pushFrame(Frame{
		Chunk:         genericChunk,
		Specialized:   specializedChunk,
		PrologueLen:   prologueLen,
		Arity:         argc,
		FunctionName:  fnObj.Name,
		FunctionIndex: index,
	}, maxRegs, maxRegs); err != nil {
		return m.raise(err)
	}

	for i, a := range args {
		m.Cache.Set(regfile.RegID(regfile.TierFrame, i), a)
	}
	m.returnTargets = append(m.returnTargets, callReturnTarget{dstReg: dst})

	return SignalCallPushed
}

// maybeSpecialize promotes fn to a specialized chunk the first time its
// call-entry hit count reaches the profiler's eligibility threshold (spec
// §3/§4.7: "Eligibility threshold is a named constant"). Once specialized,
// fn.Specialized is reused by every later call; a failed guard
// (handleMoveTyped's deopt path in handlers_move.go) drops only the
// current frame back to the generic chunk and leaves fn.Specialized set.
func maybeSpecialize(m *Machine, fn *value.FunctionObj, index int, chunk *bytecode.Chunk) {
	if fn.Specialized != nil {
		return
	}
	if m.Profiler.GetFunctionHitCount(index, false) < profiler.EligibilityThreshold {
		return
	}
	sc, ok := specialize.Specialize(chunk)
	if !ok {
		return
	}
	fn.Specialized = sc
}

// callIndexOf assigns a stable, dense profiler index to each function
// prototype on first call, scoped to this machine. A real emitter would
// assign these up front as part of a function table; nothing in this
// repository builds one yet, so the interpreter assigns indices lazily the
// first time each function is invoked.
func (m *Machine) callIndexOf(fn *value.FunctionObj) int {
	if m.functionIndices == nil {
		m.functionIndices = map[*value.FunctionObj]int{}
	}
	if idx, ok := m.functionIndices[fn]; ok {
		return idx
	}
	idx := len(m.functionIndices)
	m.functionIndices[fn] = idx
	return idx
}

// handleReturn implements RETURN src (spec §4.3/§4.8): pops the current
// frame, reinstates the caller's register window, and writes the return
// value into the caller-side destination register recorded by handleCall.
// Every RETURN carries a register operand — a function with no explicit
// return value has its emitter load nil into a temporary and return that,
// rather than needing a distinct "no value" encoding (every bit pattern
// of a 16-bit logical register id is already a valid address, so none is
// free to repurpose as a sentinel).
func handleReturn(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	srcReg := readShort(code, f.IP+1)
	result := m.Cache.Get(srcReg)

	m.popFrame()

	if len(m.returnTargets) == 0 {
		// Returning from the top-level entry frame: nothing left to
		// resume, signal halt-equivalent completion.
		return SignalHalt
	}
	target := m.returnTargets[len(m.returnTargets)-1]
	m.returnTargets = m.returnTargets[:len(m.returnTargets)-1]

	if len(m.Frames) > 0 {
		m.Cache.Set(target.dstReg, result)
	}

	if len(m.Frames) == 0 {
		return SignalHalt
	}
	return SignalCallPopped
}
