package interp

import (
	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
	"github.com/jordyorel/orus-lang-sub009/internal/vmerr"
)

func handleNewArray(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	dst := readShort(code, f.IP+1)
	capHint := int(readShort(code, f.IP+3))
	obj := m.Heap.Alloc(value.KindArray, m, func(reused *value.Obj) *value.Obj {
		return value.NewArray(make([]value.Value, 0, capHint))
	})
	m.Cache.Set(dst, value.ObjVal(obj))
	f.IP += instrSize(bytecode.OP_NEW_ARRAY)
	return SignalAdvance
}

func arrayAt(m *Machine, loc vmerr.SourceSpan, v value.Value) (*value.ArrayObj, *vmerr.RuntimeError) {
	if v.Tag != value.Object || v.AsObj() == nil || v.AsObj().Kind != value.KindArray {
		return nil, vmerr.TypeMismatchf(loc, "expected an array")
	}
	return v.AsObj().Payload.(*value.ArrayObj), nil
}

func handleArrayGet(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	dst, arrReg, idxReg := threeRegOperands(code, f.IP)
	loc := m.spanAt(chunk, f.IP)
	arr, err := arrayAt(m, loc, m.Cache.Get(arrReg))
	if err != nil {
		return m.raise(err)
	}
	idx := int(asI64(m.Cache.Get(idxReg)))
	if idx < 0 || idx >= len(arr.Elements) {
		return m.raise(vmerr.IndexOutOfBoundsf(loc, "index %d out of bounds for array of length %d", idx, len(arr.Elements)))
	}
	m.Cache.Set(dst, arr.Elements[idx])
	f.IP += instrSize(bytecode.OP_ARRAY_GET)
	return SignalAdvance
}

func handleArraySet(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	arrReg, idxReg, valReg := threeRegOperands(code, f.IP)
	loc := m.spanAt(chunk, f.IP)
	arr, err := arrayAt(m, loc, m.Cache.Get(arrReg))
	if err != nil {
		return m.raise(err)
	}
	idx := int(asI64(m.Cache.Get(idxReg)))
	if idx < 0 || idx >= len(arr.Elements) {
		return m.raise(vmerr.IndexOutOfBoundsf(loc, "index %d out of bounds for array of length %d", idx, len(arr.Elements)))
	}
	arr.Elements[idx] = m.Cache.Get(valReg)
	f.IP += instrSize(bytecode.OP_ARRAY_SET)
	return SignalAdvance
}

func handleArrayLen(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	dst, arrReg := readShort(code, f.IP+1), readShort(code, f.IP+3)
	loc := m.spanAt(chunk, f.IP)
	arr, err := arrayAt(m, loc, m.Cache.Get(arrReg))
	if err != nil {
		return m.raise(err)
	}
	m.Cache.Set(dst, value.I64Val(int64(len(arr.Elements))))
	f.IP += instrSize(bytecode.OP_ARRAY_LEN)
	return SignalAdvance
}

func handleArrayPush(m *Machine, f *Frame, chunk *bytecode.Chunk, code []byte) Signal {
	arrReg, valReg := readShort(code, f.IP+1), readShort(code, f.IP+3)
	loc := m.spanAt(chunk, f.IP)
	arr, err := arrayAt(m, loc, m.Cache.Get(arrReg))
	if err != nil {
		return m.raise(err)
	}
	before := cap(arr.Elements)
	arr.Elements = append(arr.Elements, m.Cache.Get(valReg))
	if cap(arr.Elements) != before {
		m.Heap.Reallocate(16)
	}
	f.IP += instrSize(bytecode.OP_ARRAY_PUSH)
	return SignalAdvance
}
