package bytecode

import "github.com/jordyorel/orus-lang-sub009/internal/value"

// Chunk is the bytecode container of spec §3: parallel arrays of equal
// length {code, lines, columns, files} plus a constant pool. "Equal length"
// here means code, lines, and columns grow one entry per emitted byte;
// Files is a separate de-duplicated table with a per-byte index so a chunk
// compiled from many source files (inlined module functions) does not pay a
// full string per byte.
type Chunk struct {
	Code    []byte
	Lines   []int
	Columns []int
	FileIdx []uint16 // index into Files, one per byte in Code
	Files   []string

	Constants []value.Value

	// patches is the open forward-jump list (spec §3 invariant: empty once
	// emission closes). Each entry records the byte offset of a 16-bit
	// placeholder operand; ClosePatch does not check that the jump delta
	// fits in 16 bits.
	patches []patch

	// MaxRegisters is the number of registers a frame running this chunk
	// needs (spec §10 "Register-window sizing per call").
	MaxRegisters int
}

type patch struct {
	operandOffset int // offset of the first byte of the 16-bit placeholder
	closed        bool
}

// PatchHandle identifies one still-open forward jump.
type PatchHandle int

func NewChunk() *Chunk {
	return &Chunk{}
}

func (c *Chunk) fileIndex(file string) uint16 {
	for i, f := range c.Files {
		if f == file {
			return uint16(i)
		}
	}
	c.Files = append(c.Files, file)
	return uint16(len(c.Files) - 1)
}

// AppendByte appends one byte of instruction stream, recording the source
// location spec §3 requires alongside every byte.
func (c *Chunk) AppendByte(b byte, line, col int, file string) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
	c.Columns = append(c.Columns, col)
	c.FileIdx = append(c.FileIdx, c.fileIndex(file))
}

// AppendShort appends a 16-bit big-endian operand across two bytes, both
// tagged with the same source location.
func (c *Chunk) AppendShort(v uint16, line, col int, file string) {
	c.AppendByte(byte(v>>8), line, col, file)
	c.AppendByte(byte(v), line, col, file)
}

// AppendOp appends an opcode byte.
func (c *Chunk) AppendOp(op OpCode, line, col int, file string) {
	c.AppendByte(byte(op), line, col, file)
}

// AddConstant interns v into the constant pool, returning its index.
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// OpenPatch reserves a 16-bit placeholder operand for a forward jump and
// returns a handle to it, per spec §3/§6 ("open forward-patch (returns a
// patch handle)"). The caller has already emitted the opcode byte(s); this
// call emits the placeholder operand.
func (c *Chunk) OpenPatch(line, col int, file string) PatchHandle {
	offset := len(c.Code)
	c.AppendShort(0, line, col, file)
	c.patches = append(c.patches, patch{operandOffset: offset})
	return PatchHandle(len(c.patches) - 1)
}

// ClosePatch writes the current code length, relative to the instruction
// that follows the placeholder, back into the reserved operand.
func (c *Chunk) ClosePatch(h PatchHandle) {
	p := c.patches[h]
	target := len(c.Code)
	delta := target - (p.operandOffset + 2)
	c.Code[p.operandOffset] = byte(uint16(delta) >> 8)
	c.Code[p.operandOffset+1] = byte(uint16(delta))
	// Mark closed in place, so every other handle keeps pointing at its own
	// entry whatever order handles are closed in (spec §8 "Patch closure").
	c.patches[h].closed = true
}

// OpenPatches reports how many forward jumps are still unpatched. A
// non-zero count after compilation finishes is a compiler bug (spec §8).
func (c *Chunk) OpenPatches() int {
	open := 0
	for _, p := range c.patches {
		if !p.closed {
			open++
		}
	}
	return open
}

// LocationAt returns the source location recorded for byte offset ip.
func (c *Chunk) LocationAt(ip int) (file string, line, col int) {
	if ip < 0 || ip >= len(c.Code) {
		return "", 0, 0
	}
	idx := c.FileIdx[ip]
	f := "<unknown>"
	if int(idx) < len(c.Files) {
		f = c.Files[idx]
	}
	return f, c.Lines[ip], c.Columns[ip]
}

// Clone deep-copies a chunk so the specialization stage (C9) can rewrite a
// copy without mutating the generic baseline. The patch list of the clone
// starts empty, matching spec §4.7 step 1: emission against the generic
// chunk has already closed, so there is nothing to carry over.
func (c *Chunk) Clone() *Chunk {
	clone := &Chunk{
		Code:         append([]byte(nil), c.Code...),
		Lines:        append([]int(nil), c.Lines...),
		Columns:      append([]int(nil), c.Columns...),
		FileIdx:      append([]uint16(nil), c.FileIdx...),
		Files:        append([]string(nil), c.Files...),
		Constants:    append([]value.Value(nil), c.Constants...),
		MaxRegisters: c.MaxRegisters,
	}
	return clone
}

// Free releases a chunk's instruction/location arrays and patch list. Go's
// GC would reclaim these anyway; Free exists so callers that explicitly
// discard a failed clone (spec §4.7 "Failure semantics") have a single,
// obviously-named place to do it rather than relying on scope exit.
func (c *Chunk) Free() {
	c.Code = nil
	c.Lines = nil
	c.Columns = nil
	c.FileIdx = nil
	c.Files = nil
	c.Constants = nil
	c.patches = nil
}
