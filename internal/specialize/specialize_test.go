package specialize

import (
	"testing"

	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
)

func chunkWithAdd(dst, a, b uint16) *bytecode.Chunk {
	c := bytecode.NewChunk()
	c.AppendOp(bytecode.OP_ADD_R, 1, 1, "f.orus")
	c.AppendShort(dst, 1, 1, "f.orus")
	c.AppendShort(a, 1, 1, "f.orus")
	c.AppendShort(b, 1, 1, "f.orus")
	c.AppendOp(bytecode.OP_RETURN, 2, 1, "f.orus")
	c.AppendShort(dst, 2, 1, "f.orus")
	return c
}

// TestSpecializeRewritesGenericArithAndPrependsGuardPrologue mirrors spec
// scenario 4: a hot function's ADD_R instructions become typed, and a
// MOVE_T guard prologue is prepended per guarded register.
func TestSpecializeRewritesGenericArithAndPrependsGuardPrologue(t *testing.T) {
	baseline := chunkWithAdd(2, 0, 1)

	spec, ok := Specialize(baseline)
	if !ok {
		t.Fatalf("expected specialization to find a transform")
	}
	if spec.PrologueLen == 0 {
		t.Fatalf("expected a non-empty guard prologue")
	}
	if spec.Chunk.Code[0] == byte(bytecode.OP_ADD_R) {
		t.Fatalf("expected the prologue to occupy offset 0, not the original opcode")
	}

	// Baseline must be untouched (the clone is a separate chunk).
	if baseline.Code[0] != byte(bytecode.OP_ADD_R) {
		t.Fatalf("specialization must not mutate the baseline chunk")
	}
}

func TestSpecializeDiscardsCloneWhenNoTransformFound(t *testing.T) {
	c := bytecode.NewChunk()
	c.AppendOp(bytecode.OP_HALT, 1, 1, "f.orus")

	_, ok := Specialize(c)
	if ok {
		t.Fatalf("expected no transform to be found for a chunk with no generic arithmetic")
	}
}
