package bytecode

import (
	"testing"

	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

func TestPatchClosureFillsForwardOffset(t *testing.T) {
	c := NewChunk()
	c.AppendOp(OP_JMP_IF_FALSE_L, 1, 1, "t.orus")
	h := c.OpenPatch(1, 1, "t.orus")
	c.AppendOp(OP_LOAD_NIL, 2, 1, "t.orus")
	c.AppendShort(0, 2, 1, "t.orus")
	c.ClosePatch(h)

	if got := c.OpenPatches(); got != 0 {
		t.Fatalf("expected patch list empty after close, got %d open", got)
	}
	hi, lo := c.Code[1], c.Code[2]
	delta := int(uint16(hi)<<8 | uint16(lo))
	if delta != 3 {
		t.Fatalf("expected forward delta of 3 bytes (OP_LOAD_NIL opcode + 2-byte operand), got %d", delta)
	}
}

func TestCloneIsDeepAndIndependent(t *testing.T) {
	c := NewChunk()
	c.AppendOp(OP_HALT, 1, 1, "a.orus")
	c.AddConstant(value.I64Val(42))

	clone := c.Clone()
	clone.Code[0] = byte(OP_RETURN)
	clone.Constants[0] = value.I64Val(7)

	if c.Code[0] != byte(OP_HALT) {
		t.Fatalf("mutating the clone must not affect the original chunk's code")
	}
	if !value.Equal(c.Constants[0], value.I64Val(42)) {
		t.Fatalf("mutating the clone must not affect the original chunk's constants")
	}
}

func TestFreeClearsInstructionAndLocationArrays(t *testing.T) {
	c := NewChunk()
	c.AppendOp(OP_HALT, 1, 1, "a.orus")
	c.Free()
	if len(c.Code) != 0 || len(c.Lines) != 0 || len(c.Columns) != 0 || c.OpenPatches() != 0 {
		t.Fatalf("Free must release instructions, location arrays, and the patch list")
	}
}
