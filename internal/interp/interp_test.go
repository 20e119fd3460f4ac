package interp

import (
	"bytes"
	"testing"

	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
	"github.com/jordyorel/orus-lang-sub009/internal/regfile"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
	"github.com/jordyorel/orus-lang-sub009/internal/vmerr"
)

const testFile = "test.orus"

func emitOp(c *bytecode.Chunk, op bytecode.OpCode) {
	c.AppendOp(op, 1, 1, testFile)
}

func emitReg(c *bytecode.Chunk, r uint16) {
	c.AppendShort(r, 1, 1, testFile)
}

// TestTightCountedLoopSum mirrors spec scenario 1: summing 0..999 via a
// counted loop reaches 499500, the closed-form sum of the first 1000
// naturals.
func TestTightCountedLoopSum(t *testing.T) {
	c := bytecode.NewChunk()
	kZero := c.AddConstant(value.I64Val(0))
	kOne := c.AddConstant(value.I64Val(1))
	kLimit := c.AddConstant(value.I64Val(1000))

	rI := regfile.RegID(regfile.TierFrame, 0)
	rSum := regfile.RegID(regfile.TierFrame, 1)
	rLimit := regfile.RegID(regfile.TierFrame, 2)
	rOne := regfile.RegID(regfile.TierFrame, 3)
	rCond := regfile.RegID(regfile.TierFrame, 4)

	loadConst := func(dst uint16, k int) {
		emitOp(c, bytecode.OP_LOAD_CONST)
		emitReg(c, dst)
		c.AppendShort(uint16(k), 1, 1, testFile)
	}
	loadConst(rI, kZero)
	loadConst(rSum, kZero)
	loadConst(rLimit, kLimit)
	loadConst(rOne, kOne)

	loopStart := len(c.Code)
	emitOp(c, bytecode.OP_LT_R)
	emitReg(c, rCond)
	emitReg(c, rI)
	emitReg(c, rLimit)

	emitOp(c, bytecode.OP_JMP_IF_FALSE_L)
	emitReg(c, rCond)
	exitPatch := c.OpenPatch(1, 1, testFile)

	emitOp(c, bytecode.OP_ADD_R)
	emitReg(c, rSum)
	emitReg(c, rSum)
	emitReg(c, rI)

	emitOp(c, bytecode.OP_ADD_R)
	emitReg(c, rI)
	emitReg(c, rI)
	emitReg(c, rOne)

	emitOp(c, bytecode.OP_LOOP_BACK_L)
	backOperand := len(c.Code)
	c.AppendShort(0, 1, 1, testFile)
	backDelta := loopStart - (backOperand + 2)
	c.Code[backOperand] = byte(uint16(backDelta) >> 8)
	c.Code[backOperand+1] = byte(uint16(backDelta))

	c.ClosePatch(exitPatch)

	emitOp(c, bytecode.OP_RETURN)
	emitReg(c, rSum)

	c.MaxRegisters = 8

	m := New(DefaultOptions())
	if err := m.Run(c, "sum"); err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if got := m.Cache.Get(rSum).AsI64(); got != 499500 {
		t.Fatalf("expected sum 499500, got %d", got)
	}
}

func buildCallee(t *testing.T) *value.Obj {
	t.Helper()
	body := bytecode.NewChunk()
	rA := regfile.RegID(regfile.TierFrame, 0)
	rB := regfile.RegID(regfile.TierFrame, 1)
	rResult := regfile.RegID(regfile.TierFrame, 2)
	emitOp(body, bytecode.OP_ADD_R)
	emitReg(body, rResult)
	emitReg(body, rA)
	emitReg(body, rB)
	emitOp(body, bytecode.OP_RETURN)
	emitReg(body, rResult)
	body.MaxRegisters = 4
	return value.NewFunction("add", 2, 4, body)
}

// TestCallPassesArgumentsAndReturnsValue exercises CALL/RETURN end to end:
// arguments staged in the caller's temp tier land in the callee's frame
// tier, and the callee's result lands back in the caller's destination
// register.
func TestCallPassesArgumentsAndReturnsValue(t *testing.T) {
	fn := buildCallee(t)

	c := bytecode.NewChunk()
	kFn := c.AddConstant(value.ObjVal(fn))
	kA := c.AddConstant(value.I64Val(7))
	kB := c.AddConstant(value.I64Val(35))

	rFn := regfile.RegID(regfile.TierFrame, 0)
	rArg0 := regfile.RegID(regfile.TierTemp, 0)
	rArg1 := regfile.RegID(regfile.TierTemp, 1)
	rDst := regfile.RegID(regfile.TierFrame, 1)

	loadConst := func(dst uint16, k int) {
		emitOp(c, bytecode.OP_LOAD_CONST)
		emitReg(c, dst)
		c.AppendShort(uint16(k), 1, 1, testFile)
	}
	loadConst(rFn, kFn)
	loadConst(rArg0, kA)
	loadConst(rArg1, kB)

	emitOp(c, bytecode.OP_CALL)
	emitReg(c, rDst)
	emitReg(c, rFn)
	c.AppendByte(2, 1, 1, testFile)

	emitOp(c, bytecode.OP_RETURN)
	emitReg(c, rDst)
	c.MaxRegisters = 8

	m := New(DefaultOptions())
	if err := m.Run(c, "main"); err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if got := m.Cache.Get(rDst).AsI64(); got != 42 {
		t.Fatalf("expected call result 42, got %d", got)
	}
}

// TestRepeatedCallsTriggerSpecialization calls the same function past the
// profiler's eligibility threshold and checks that the callee has a
// specialized chunk afterwards, and that results stay correct both before and
// after the crossing.
func TestRepeatedCallsTriggerSpecialization(t *testing.T) {
	fn := buildCallee(t)
	fnObj := fn.Payload.(*value.FunctionObj)

	c := bytecode.NewChunk()
	kFn := c.AddConstant(value.ObjVal(fn))
	kA := c.AddConstant(value.I64Val(7))
	kB := c.AddConstant(value.I64Val(35))

	rFn := regfile.RegID(regfile.TierFrame, 0)
	rArg0 := regfile.RegID(regfile.TierTemp, 0)
	rArg1 := regfile.RegID(regfile.TierTemp, 1)
	rDst := regfile.RegID(regfile.TierFrame, 1)

	loadConst := func(dst uint16, k int) {
		emitOp(c, bytecode.OP_LOAD_CONST)
		emitReg(c, dst)
		c.AppendShort(uint16(k), 1, 1, testFile)
	}
	loadConst(rFn, kFn)
	loadConst(rArg0, kA)
	loadConst(rArg1, kB)

	emitOp(c, bytecode.OP_CALL)
	emitReg(c, rDst)
	emitReg(c, rFn)
	c.AppendByte(2, 1, 1, testFile)

	emitOp(c, bytecode.OP_RETURN)
	emitReg(c, rDst)
	c.MaxRegisters = 8

	m := New(DefaultOptions())
	for i := 0; i < 60; i++ {
		if err := m.Run(c, "main"); err != nil {
			t.Fatalf("unexpected runtime error on call %d: %v", i, err)
		}
		if got := m.Cache.Get(rDst).AsI64(); got != 42 {
			t.Fatalf("call %d: expected result 42, got %d", i, got)
		}
	}
	if fnObj.Specialized == nil {
		t.Fatalf("expected the callee to be specialized after crossing the eligibility threshold")
	}
}

// TestTryBeginUnwindsToHandlerOnRuntimeError mirrors spec §7/§9's unwind
// contract: a division by zero inside a try region branches execution to
// the handler instead of halting the machine.
func TestTryBeginUnwindsToHandlerOnRuntimeError(t *testing.T) {
	c := bytecode.NewChunk()
	kOne := c.AddConstant(value.I64Val(1))
	kZero := c.AddConstant(value.I64Val(0))
	kCaught := c.AddConstant(value.I64Val(-1))

	rA := regfile.RegID(regfile.TierFrame, 0)
	rB := regfile.RegID(regfile.TierFrame, 1)
	rResult := regfile.RegID(regfile.TierFrame, 2)

	loadConst := func(dst uint16, k int) {
		emitOp(c, bytecode.OP_LOAD_CONST)
		emitReg(c, dst)
		c.AppendShort(uint16(k), 1, 1, testFile)
	}
	loadConst(rA, kOne)
	loadConst(rB, kZero)
	loadConst(rResult, kCaught)

	emitOp(c, bytecode.OP_TRY_BEGIN)
	tryPatch := c.OpenPatch(1, 1, testFile)

	emitOp(c, bytecode.OP_DIV_R)
	emitReg(c, rResult)
	emitReg(c, rA)
	emitReg(c, rB)

	emitOp(c, bytecode.OP_TRY_END)

	emitOp(c, bytecode.OP_JMP_SHORT)
	skipHandlerOperand := len(c.Code)
	c.AppendByte(0, 1, 1, testFile)

	c.ClosePatch(tryPatch)
	// Handler: leave rResult as the sentinel loaded above and return.
	emitOp(c, bytecode.OP_RETURN)
	emitReg(c, rResult)

	skipDelta := len(c.Code) - (skipHandlerOperand + 1)
	c.Code[skipHandlerOperand] = byte(int8(skipDelta))

	emitOp(c, bytecode.OP_RETURN)
	emitReg(c, rResult)
	c.MaxRegisters = 8

	m := New(DefaultOptions())
	if err := m.Run(c, "main"); err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if got := m.Cache.Get(rResult).AsI64(); got != -1 {
		t.Fatalf("expected handler sentinel -1, got %d", got)
	}
}

func TestPrintWritesValueToMachineOut(t *testing.T) {
	c := bytecode.NewChunk()
	k := c.AddConstant(value.I64Val(99))
	r := regfile.RegID(regfile.TierFrame, 0)

	emitOp(c, bytecode.OP_LOAD_CONST)
	emitReg(c, r)
	c.AppendShort(uint16(k), 1, 1, testFile)

	emitOp(c, bytecode.OP_PRINT)
	emitReg(c, r)

	emitOp(c, bytecode.OP_HALT)
	c.MaxRegisters = 4

	var out bytes.Buffer
	opts := DefaultOptions()
	opts.Out = &out
	m := New(opts)
	if err := m.Run(c, "main"); err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if out.String() != "99\n" {
		t.Fatalf("expected printed output %q, got %q", "99\n", out.String())
	}
}

func TestAssertFailureRaisesAssertionFailed(t *testing.T) {
	c := bytecode.NewChunk()
	r := regfile.RegID(regfile.TierFrame, 0)
	emitOp(c, bytecode.OP_LOAD_BOOL)
	emitReg(c, r)
	c.AppendByte(0, 1, 1, testFile)

	emitOp(c, bytecode.OP_ASSERT)
	emitReg(c, r)
	c.MaxRegisters = 2

	m := New(DefaultOptions())
	err := m.Run(c, "main")
	if err == nil {
		t.Fatalf("expected an assertion failure")
	}
	if err.Kind != vmerr.AssertionFailed {
		t.Fatalf("expected AssertionFailed, got %v", err.Kind)
	}
}
