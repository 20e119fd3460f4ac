package value

import (
	"fmt"
	"strings"
)

// ObjKind enumerates the heap object shapes named in spec §3: string, array,
// byte buffer, error, range iterator, array iterator, file handle, function,
// enum. Strings are usually interned and carried inline in Value.Str, but an
// Obj-backed StringObj exists for large/concatenated strings that the
// allocator, not the interner, owns.
type ObjKind uint8

const (
	KindString ObjKind = iota
	KindArray
	KindByteBuffer
	KindError
	KindRangeIterator
	KindArrayIterator
	KindFileHandle
	KindFunction
	KindEnum
)

// Obj is the common header every heap object embeds. The mark bit and the
// intrusive Next pointer let the collector (package gc) walk one global
// singly-linked object list without a side table.
type Obj struct {
	Kind   ObjKind
	Marked bool
	Next   *Obj

	// Payload holds the kind-specific struct (*StringObj, *ArrayObj, ...),
	// selected by Kind. Keeping it behind one interface{} field gives every
	// object the same header shape for the allocator's per-type free lists
	// (spec §4.1).
	Payload interface{}
}

func (o *Obj) String() string {
	if o == nil {
		return "nil"
	}
	switch o.Kind {
	case KindString:
		return o.Payload.(*StringObj).Data
	case KindArray:
		a := o.Payload.(*ArrayObj)
		parts := make([]string, len(a.Elements))
		for i, e := range a.Elements {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindByteBuffer:
		return fmt.Sprintf("<bytes len=%d>", len(o.Payload.(*ByteBufferObj).Data))
	case KindError:
		return "error: " + o.Payload.(*ErrorObj).Message.String()
	case KindRangeIterator:
		return "<range-iterator>"
	case KindArrayIterator:
		return "<array-iterator>"
	case KindFileHandle:
		return fmt.Sprintf("<file %s>", o.Payload.(*FileHandleObj).Path)
	case KindFunction:
		return "<fn " + o.Payload.(*FunctionObj).Name + ">"
	case KindEnum:
		return o.Payload.(*EnumObj).Variant
	default:
		return "<object>"
	}
}

// StringObj backs heap-allocated strings (built by concatenation, slicing,
// or formatting) as opposed to interned literal strings carried by Value.Str.
type StringObj struct {
	Data string
	Hash uint64
}

// ArrayObj is a growable element vector.
type ArrayObj struct {
	Elements []Value
}

// ByteBufferObj backs `bytebuffer` values used by file/IO and binary
// builtins.
type ByteBufferObj struct {
	Data []byte
}

// ErrorObj mirrors the runtime error shape of spec §7: a kind, a message,
// and a source span, boxed so it can be returned as a Value and stored in
// vm.last_error.
type ErrorObj struct {
	Kind     string
	Message  Value // string Value
	File     string
	Line     int
	Column   int
}

// RangeIteratorObj drives `for i in a..b` loops.
type RangeIteratorObj struct {
	Current, End, Step int64
	Inclusive          bool
}

// Next advances the range iterator, returning the next value and whether
// iteration may continue.
func (r *RangeIteratorObj) Next() (Value, bool) {
	if r.Step > 0 {
		if (r.Inclusive && r.Current > r.End) || (!r.Inclusive && r.Current >= r.End) {
			return NilValue, false
		}
	} else if r.Step < 0 {
		if (r.Inclusive && r.Current < r.End) || (!r.Inclusive && r.Current <= r.End) {
			return NilValue, false
		}
	} else {
		return NilValue, false
	}
	v := I64Val(r.Current)
	r.Current += r.Step
	return v, true
}

// ArrayIteratorObj drives `for x in arr` loops.
type ArrayIteratorObj struct {
	Array *ArrayObj
	Index int
}

func (it *ArrayIteratorObj) Next() (Value, bool) {
	if it.Index >= len(it.Array.Elements) {
		return NilValue, false
	}
	v := it.Array.Elements[it.Index]
	it.Index++
	return v, true
}

// FileHandleObj wraps an OS file (or, for the db_* intrinsics, a database
// connection). Closed records that the handle has been closed; db_close
// sets it and treats a second close as a no-op. Handle is not cleared.
type FileHandleObj struct {
	Path       string
	Handle     interface{} // *os.File, kept as interface{} to avoid importing os here
	OwnsHandle bool
	Closed     bool
}

// FunctionObj is a compiled function prototype: its generic chunk plus,
// once profiling promotes it, a specialized chunk and deopt stub. The
// chunk type lives in package bytecode and the specialized-chunk type in
// package specialize; both packages depend on value, so FunctionObj stores
// them as interface{} to avoid an import cycle.
type FunctionObj struct {
	Name         string
	Arity        int
	MaxRegisters int
	Chunk        interface{} // *bytecode.Chunk
	Specialized  interface{} // *specialize.SpecializedChunk, nil until specialized
}

// EnumObj is a resolved enum variant value (tag name plus optional payload
// values for variants with associated data).
type EnumObj struct {
	TypeName string
	Variant  string
	Fields   []Value
}

func newObj(kind ObjKind, payload interface{}) *Obj {
	return &Obj{Kind: kind, Payload: payload}
}

// NewString, NewArray, ... are thin constructors used by the allocator
// (package gc) once it has obtained backing memory for the header; they do
// not themselves allocate through the tracked allocator so tests can build
// object graphs without a VM.
func NewString(s string, hash uint64) *Obj   { return newObj(KindString, &StringObj{Data: s, Hash: hash}) }
func NewArray(elems []Value) *Obj            { return newObj(KindArray, &ArrayObj{Elements: elems}) }
func NewByteBuffer(data []byte) *Obj         { return newObj(KindByteBuffer, &ByteBufferObj{Data: data}) }
func NewError(kind string, msg Value, file string, line, col int) *Obj {
	return newObj(KindError, &ErrorObj{Kind: kind, Message: msg, File: file, Line: line, Column: col})
}
func NewRangeIterator(start, end, step int64, inclusive bool) *Obj {
	return newObj(KindRangeIterator, &RangeIteratorObj{Current: start, End: end, Step: step, Inclusive: inclusive})
}
func NewArrayIterator(arr *ArrayObj) *Obj { return newObj(KindArrayIterator, &ArrayIteratorObj{Array: arr}) }
func NewFileHandle(path string, handle interface{}, owns bool) *Obj {
	return newObj(KindFileHandle, &FileHandleObj{Path: path, Handle: handle, OwnsHandle: owns})
}
func NewFunction(name string, arity, maxRegs int, chunk interface{}) *Obj {
	return newObj(KindFunction, &FunctionObj{Name: name, Arity: arity, MaxRegisters: maxRegs, Chunk: chunk})
}
func NewEnum(typeName, variant string, fields []Value) *Obj {
	return newObj(KindEnum, &EnumObj{TypeName: typeName, Variant: variant, Fields: fields})
}

// Mark and children visitation support the mark phase of the collector
// (spec §4.1: "arrays mark elements, error objects mark their message
// string"). MarkChildren returns the Values and nested Objs reachable
// directly from o, which the collector recurses into.
func (o *Obj) MarkChildren() (values []Value, objs []*Obj) {
	switch o.Kind {
	case KindArray:
		return o.Payload.(*ArrayObj).Elements, nil
	case KindError:
		return []Value{o.Payload.(*ErrorObj).Message}, nil
	case KindArrayIterator:
		it := o.Payload.(*ArrayIteratorObj)
		if it.Array != nil {
			return it.Array.Elements, nil
		}
		return nil, nil
	case KindEnum:
		return o.Payload.(*EnumObj).Fields, nil
	default:
		return nil, nil
	}
}
