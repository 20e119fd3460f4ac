// Package value implements the VM's tagged value union and heap object
// model (spec component C1).
//
// A Value is a small tagged struct rather than a NaN-boxed word: Orus is
// statically typed, so the tag is almost always known at the call site and
// the extra verification NaN-boxing buys a dynamically typed host is not
// needed here: a single flat value type that is cheap to copy and to store
// in a register slot, plus a heap object header carrying a mark bit and an
// intrusive next-pointer for the collector (see package gc).
package value

import "fmt"

// Tag identifies the active member of a Value.
type Tag uint8

const (
	Nil Tag = iota
	Bool
	I32
	I64
	U32
	U64
	F64
	Str    // interned string reference
	Object // heap object reference (array, buffer, error, iterator, file, enum, function)
)

func (t Tag) String() string {
	switch t {
	case Nil:
		return "nil"
	case Bool:
		return "bool"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case F64:
		return "f64"
	case Str:
		return "string"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether t is one of the numeric shadow-eligible tags.
func (t Tag) IsNumeric() bool {
	switch t {
	case I32, I64, U32, U64, F64:
		return true
	default:
		return false
	}
}

// Value is a tagged union over Orus's runtime value shapes. Numeric tags
// are distinct and conversions between them are never implicit: arithmetic
// handlers (C5) check the operand tags before touching the payload.
type Value struct {
	Tag Tag
	num uint64  // bit pattern for Bool/I32/I64/U32/U64 (via AsXxx helpers)
	f   float64 // payload for F64
	str string  // payload for Str (interned string)
	obj *Obj    // payload for Object
}

// NilValue is the canonical absence-of-value.
var NilValue = Value{Tag: Nil}

func Boolean(b bool) Value {
	var n uint64
	if b {
		n = 1
	}
	return Value{Tag: Bool, num: n}
}

func I32Val(n int32) Value { return Value{Tag: I32, num: uint64(uint32(n))} }
func I64Val(n int64) Value { return Value{Tag: I64, num: uint64(n)} }
func U32Val(n uint32) Value { return Value{Tag: U32, num: uint64(n)} }
func U64Val(n uint64) Value { return Value{Tag: U64, num: n} }
func F64Val(f float64) Value { return Value{Tag: F64, f: f} }
func StrVal(s string) Value { return Value{Tag: Str, str: s} }
func ObjVal(o *Obj) Value {
	if o == nil {
		return NilValue
	}
	return Value{Tag: Object, obj: o}
}

func (v Value) AsBool() bool   { return v.num != 0 }
func (v Value) AsI32() int32   { return int32(uint32(v.num)) }
func (v Value) AsI64() int64   { return int64(v.num) }
func (v Value) AsU32() uint32  { return uint32(v.num) }
func (v Value) AsU64() uint64  { return v.num }
func (v Value) AsF64() float64 { return v.f }
func (v Value) AsStr() string  { return v.str }
func (v Value) AsObj() *Obj    { return v.obj }

// IsNil reports whether v is the nil value (or a nil object reference).
func (v Value) IsNil() bool {
	return v.Tag == Nil || (v.Tag == Object && v.obj == nil)
}

// Equal implements value equality for the EQ/NE opcode family. Numeric tags
// must match exactly — Orus never compares across numeric kinds implicitly.
func Equal(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case Nil:
		return true
	case Bool, I32, I64, U32, U64:
		return a.num == b.num
	case F64:
		return a.f == b.f
	case Str:
		return a.str == b.str
	case Object:
		return a.obj == b.obj
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Tag {
	case Nil:
		return "nil"
	case Bool:
		return fmt.Sprintf("%t", v.AsBool())
	case I32:
		return fmt.Sprintf("%d", v.AsI32())
	case I64:
		return fmt.Sprintf("%d", v.AsI64())
	case U32:
		return fmt.Sprintf("%d", v.AsU32())
	case U64:
		return fmt.Sprintf("%d", v.AsU64())
	case F64:
		return fmt.Sprintf("%g", v.AsF64())
	case Str:
		return v.str
	case Object:
		if v.obj == nil {
			return "nil"
		}
		return v.obj.String()
	default:
		return "<invalid>"
	}
}
