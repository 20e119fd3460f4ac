package interp

import (
	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
)

// Frame is one call activation: spec §4.8's "a contiguous array of
// frames, each referencing a chunk, a saved instruction pointer, a
// register window base, and an arity." The "register window base" here
// is implicit: internal/regfile.File.PushFrame allocates a brand new
// frame tier per activation, so frame-tier register ids are always
// relative to the current activation and no explicit base offset is
// needed.
type Frame struct {
	Chunk         *bytecode.Chunk
	IP            int
	Arity         int
	FunctionIndex int
	FunctionName  string

	// Specialized, when non-nil, is the specialized chunk this frame is
	// actually executing (spec §4.8/§4.7); Chunk still refers to the
	// generic baseline so a deopt can resume there.
	Specialized *bytecode.Chunk
	// PrologueLen is the specialized chunk's guard-prologue length, used
	// to compute the generic-chunk resume offset on deopt (spec §4.7).
	PrologueLen int
}

// ActiveChunk returns whichever chunk (specialized or generic) this frame
// is currently executing.
func (f *Frame) ActiveChunk() *bytecode.Chunk {
	if f.Specialized != nil {
		return f.Specialized
	}
	return f.Chunk
}

// TryFrame is the explicit unwind record spec §9's design notes mandate
// ("model them as explicit unwind records (frame + offset), never as
// language-native exception types"): a try/begin region bracket.
type TryFrame struct {
	FrameIndex int // index into the call-frame stack this try region belongs to
	HandlerPC  int // offset of the handler named by TRY_BEGIN within that frame's chunk
}
