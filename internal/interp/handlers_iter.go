package interp

import (
	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
	"github.com/jordyorel/orus-lang-sub009/internal/vmerr"
)

// handleIterOpenRange implements ITER_OPEN_RANGE dst, startReg, endReg:
// allocates a RangeIteratorObj. The instruction carries no step or
// inclusivity operand: the step is +1, or -1 when start > end, and the end
// bound is always exclusive. The emitter lowers range loops to counted
// loops and does not emit this opcode.
func handleIterOpenRange(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	dst, startReg, endReg := threeRegOperands(code, f.IP)
	start := m.Cache.Get(startReg)
	end := m.Cache.Get(endReg)
	loc := m.spanAt(chunk, f.IP)
	if !start.Tag.IsNumeric() || !end.Tag.IsNumeric() {
		return m.raise(vmerr.TypeMismatchf(loc, "range bounds must be numeric, got %s and %s", start.Tag, end.Tag))
	}
	startI, endI := asI64(start), asI64(end)
	step := int64(1)
	if startI > endI {
		step = -1
	}
	obj := m.Heap.Alloc(value.KindRangeIterator, m, func(reused *value.Obj) *value.Obj {
		return value.NewRangeIterator(startI, endI, step, false)
	})
	m.Cache.Set(dst, value.ObjVal(obj))
	f.IP += instrSize(bytecode.OP_ITER_OPEN_RANGE)
	return SignalAdvance
}

// handleIterOpenArray implements ITER_OPEN_ARRAY dst, arrReg.
func handleIterOpenArray(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	dst, arrReg := readShort(code, f.IP+1), readShort(code, f.IP+3)
	arrVal := m.Cache.Get(arrReg)
	loc := m.spanAt(chunk, f.IP)
	if arrVal.Tag != value.Object || arrVal.AsObj() == nil || arrVal.AsObj().Kind != value.KindArray {
		return m.raise(vmerr.TypeMismatchf(loc, "iterator source is not an array"))
	}
	arr := arrVal.AsObj().Payload.(*value.ArrayObj)
	obj := m.Heap.Alloc(value.KindArrayIterator, m, func(reused *value.Obj) *value.Obj {
		return value.NewArrayIterator(arr)
	})
	m.Cache.Set(dst, value.ObjVal(obj))
	f.IP += instrSize(bytecode.OP_ITER_OPEN_ARRAY)
	return SignalAdvance
}

// handleIterNext implements ITER_NEXT iterReg, valueReg, shortOffsetIfDone:
// advances the iterator; on exhaustion it branches forward by the 8-bit
// done-offset instead of writing a value, letting the emitter place the
// loop-exit target directly after the instruction plus that offset.
func handleIterNext(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	iterReg, valueReg := readShort(code, f.IP+1), readShort(code, f.IP+3)
	doneOffset := int(readByte(code, f.IP+5))
	size := instrSize(bytecode.OP_ITER_NEXT)

	iterVal := m.Cache.Get(iterReg)
	loc := m.spanAt(chunk, f.IP)
	if iterVal.Tag != value.Object || iterVal.AsObj() == nil {
		return m.raise(vmerr.TypeMismatchf(loc, "iterator register does not hold an iterator"))
	}

	var next value.Value
	var ok bool
	switch iterVal.AsObj().Kind {
	case value.KindRangeIterator:
		next, ok = iterVal.AsObj().Payload.(*value.RangeIteratorObj).Next()
	case value.KindArrayIterator:
		next, ok = iterVal.AsObj().Payload.(*value.ArrayIteratorObj).Next()
	default:
		return m.raise(vmerr.TypeMismatchf(loc, "unsupported iterator kind"))
	}

	if !ok {
		f.IP += size + doneOffset
		return SignalBranch
	}
	m.Cache.Set(valueReg, next)
	f.IP += size
	return SignalAdvance
}

func asI64(v value.Value) int64 {
	switch v.Tag {
	case value.I32:
		return int64(v.AsI32())
	case value.I64:
		return v.AsI64()
	case value.U32:
		return int64(v.AsU32())
	case value.U64:
		return int64(v.AsU64())
	case value.F64:
		return int64(v.AsF64())
	default:
		return 0
	}
}
