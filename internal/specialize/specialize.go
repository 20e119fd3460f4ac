// Package specialize implements the profile-guided specialization stage
// (spec component C9): cloning a hot function's generic bytecode chunk,
// rewriting qualifying opcodes to typed variants, and prepending a guard
// prologue.
package specialize

import (
	"github.com/google/uuid"

	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
)

// GuardRequirement is a deduplicated per-register guard plan entry (spec
// §4.7 step 2): "add a GuardRequirement to a deduplicated plan (first
// guard kind wins; guards are never downgraded)".
type GuardRequirement struct {
	Register uint16
	Kind     bytecode.GuardKind
}

// transform records one opcode rewrite: byte offset, new opcode, and the
// guard kind it implies.
type transform struct {
	offset  int
	newOp   bytecode.OpCode
	operands [2]uint16
	kind    bytecode.GuardKind
}

// DeoptStub is the tiny per-specialized-chunk record (spec §3/§4.7): an id
// and, in Arity, the number of guarded registers. The interpreter's deopt
// path (handleMoveTyped) does not read it; it resumes the generic chunk
// directly.
type DeoptStub struct {
	ID    uuid.UUID
	Arity int
}

// SpecializedChunk is spec §3's SpecializedChunk: "a byte-wise clone of a
// generic chunk with (a) qualifying opcodes rewritten to typed variants
// and (b) a guard prologue of typed moves inserted at offset 0."
type SpecializedChunk struct {
	ID     uuid.UUID
	Chunk  *bytecode.Chunk
	Stub   *DeoptStub
	// PrologueLen is the number of bytes the guard prologue occupies at
	// offset 0; deoptimization subtracts this to find the equivalent
	// program point in the generic chunk (spec §4.7's typed-move
	// semantics: "resumes from an equivalent program point").
	PrologueLen int
}

// guardRegistersFromPlan lists each guard register and its kind, in map
// iteration order; Specialize hands the result to buildPrologue, which
// emits the prologue's MOVE_T instructions.
func guardRegistersFromPlan(plan map[uint16]bytecode.GuardKind) []GuardRequirement {
	out := make([]GuardRequirement, 0, len(plan))
	for reg, kind := range plan {
		out = append(out, GuardRequirement{Register: reg, Kind: kind})
	}
	return out
}

// decodedInstr is a lightweight decode result used only within this
// package to walk a chunk's instruction stream without importing the
// interpreter.
type decodedInstr struct {
	offset int
	op     bytecode.OpCode
	operands []uint16
}

func decode(chunk *bytecode.Chunk) []decodedInstr {
	var out []decodedInstr
	code := chunk.Code
	i := 0
	for i < len(code) {
		op := bytecode.OpCode(code[i])
		width := op.Width()
		start := i
		i++
		var operands []uint16
		// Registers and 16-bit operands are read two bytes at a time for
		// the three-register and branch/const shapes this package cares
		// about; single-byte operand opcodes are skipped since they are
		// never arithmetic/comparison.
		remaining := width
		for remaining >= 2 && i+1 < len(code) {
			hi, lo := code[i], code[i+1]
			operands = append(operands, uint16(hi)<<8|uint16(lo))
			i += 2
			remaining -= 2
		}
		i += remaining
		out = append(out, decodedInstr{offset: start, op: op, operands: operands})
	}
	return out
}

// Specialize performs the full C9 procedure of spec §4.7 against a
// function's baseline chunk. It returns (nil, false) when no transform
// was found, matching "Failure semantics: if no transform was found,
// discard the clone (the generic chunk is authoritative)."
func Specialize(baseline *bytecode.Chunk) (*SpecializedChunk, bool) {
	clone := baseline.Clone()

	decoded := decode(clone)
	var transforms []transform
	guardPlan := make(map[uint16]bytecode.GuardKind)

	for _, instr := range decoded {
		if !instr.op.IsGenericArith() {
			continue
		}
		// Operand registers for a three-register instruction are
		// (dst, a, b) packed as three 16-bit operands in this chunk's
		// encoding (bytecode.OpCode.Width gives these opcodes 6 operand
		// bytes, which the decoder above reads as three big-endian
		// pairs).
		if len(instr.operands) < 1 {
			continue
		}
		kind := bytecode.GuardI64 // conservative default; emitter-provided type info would refine this
		newOp, ok := instr.op.TypedVariant(kind)
		if !ok {
			continue
		}
		transforms = append(transforms, transform{offset: instr.offset, newOp: newOp, kind: kind})
		for _, reg := range instr.operands {
			if _, seen := guardPlan[reg]; !seen {
				guardPlan[reg] = kind
			}
			// "guards are never downgraded": once a kind is recorded for
			// a register, later transforms referencing it must not
			// overwrite it with a different kind except by explicit
			// promotion logic (not modeled further here since this
			// package's decode pass cannot see emitter type info beyond
			// GuardI64's conservative default).
		}
	}

	if len(transforms) == 0 {
		clone.Free()
		return nil, false
	}

	for _, tr := range transforms {
		clone.Code[tr.offset] = byte(tr.newOp)
	}

	reqs := guardRegistersFromPlan(guardPlan)
	prologue := buildPrologue(reqs)
	prependPrologue(clone, prologue)

	stub := &DeoptStub{ID: uuid.New(), Arity: len(reqs)}
	return &SpecializedChunk{
		ID:          uuid.New(),
		Chunk:       clone,
		Stub:        stub,
		PrologueLen: len(prologue),
	}, true
}

// buildPrologue builds the `{MOVE_T, r, r}` sequence spec §4.7 step 3
// describes: "Build a prologue of typed moves {MOVE_T, r, r} — one per
// guard — and prepend it to the chunk." MOVE_I32/I64/F64 are full
// two-register instructions (dst, src as two 16-bit operands, matching
// handleMoveTyped's decode and OpCode.Width()), so each guard move encodes
// dst==src==r across both operand pairs rather than a single register.
func buildPrologue(reqs []GuardRequirement) []byte {
	var out []byte
	for _, req := range reqs {
		op := bytecode.MoveFor(req.Kind)
		hi, lo := byte(req.Register>>8), byte(req.Register)
		out = append(out, byte(op), hi, lo, hi, lo)
	}
	return out
}

// prependPrologue inserts prologue bytes at offset 0, shifting the
// source-location arrays by the prologue length; new prologue bytes get
// "unknown" source metadata (spec §4.7 step 3).
func prependPrologue(c *bytecode.Chunk, prologue []byte) {
	n := len(prologue)
	if n == 0 {
		return
	}
	newCode := make([]byte, 0, n+len(c.Code))
	newCode = append(newCode, prologue...)
	newCode = append(newCode, c.Code...)

	unknownFile := uint16(len(c.Files))
	c.Files = append(c.Files, "<specialized-prologue>")

	newLines := make([]int, 0, n+len(c.Lines))
	newCols := make([]int, 0, n+len(c.Columns))
	newFileIdx := make([]uint16, 0, n+len(c.FileIdx))
	for i := 0; i < n; i++ {
		newLines = append(newLines, 0)
		newCols = append(newCols, 0)
		newFileIdx = append(newFileIdx, unknownFile)
	}
	newLines = append(newLines, c.Lines...)
	newCols = append(newCols, c.Columns...)
	newFileIdx = append(newFileIdx, c.FileIdx...)

	c.Code = newCode
	c.Lines = newLines
	c.Columns = newCols
	c.FileIdx = newFileIdx
}
