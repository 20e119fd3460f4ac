// Package jit is the hot-loop compilation stub spec §1/§4.8 name as an
// explicit non-goal: "AnalyzeLoop always reports TEMPLATE_UNKNOWN; no
// native code is ever generated." It exists so the interpreter's
// specialization path (internal/specialize, C9) and a future real JIT
// share one hand-off shape, built against this VM's value.FunctionObj and
// bytecode.Chunk types.
package jit

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

// CompilationTier names the escalating compilation tiers a hot function
// would move through were code generation implemented.
type CompilationTier int

const (
	TierInterpreted CompilationTier = iota
	TierQuickJIT
	TierOptimized
)

// TemplateType names the loop shapes AnalyzeLoop recognizes. Only
// TemplateUnknown is ever actually returned (spec §1's non-goal); the
// others are named so a future implementation has somewhere to grow into
// without changing the enum's shape.
type TemplateType int

const (
	TemplateUnknown TemplateType = iota
	TemplateCounter
	TemplateSum
	TemplateAccumulate
)

// Profiler counts calls per function prototype, the same role
// internal/profiler.Profiler plays for the specialization stage — kept
// separate here because a real JIT's tiering thresholds (100/1000 calls)
// are independent of C9's specialization eligibility count.
type Profiler struct {
	callCounts map[*value.FunctionObj]int
}

func NewProfiler() *Profiler {
	return &Profiler{callCounts: make(map[*value.FunctionObj]int)}
}

// RecordCall increments fn's call count and reports whether that count
// just crossed a tiering threshold, and which tier.
func (p *Profiler) RecordCall(fn *value.FunctionObj) (bool, CompilationTier) {
	p.callCounts[fn]++
	switch p.callCounts[fn] {
	case 100:
		return true, TierQuickJIT
	case 1000:
		return true, TierOptimized
	default:
		return false, TierInterpreted
	}
}

// CompiledFunction is the hand-off record a real code generator would
// populate. Module is a genuine *ir.Module (github.com/llir/llvm) rather
// than an interface{} or byte slice, so the C11/JIT boundary has a
// concrete Go type even though nothing here ever emits LLVM IR into it
// (SPEC_FULL.md §11): Compile below always returns a module with a single
// empty function body.
type CompiledFunction struct {
	Module *ir.Module
	Entry  *ir.Func
}

// Compiler turns a hot FunctionObj into a CompiledFunction. Compile is a
// stub: it builds the trivial module shape described above and never
// actually translates chunk bytecode to IR instructions.
type Compiler struct {
	profiler *Profiler
}

func NewCompiler(profiler *Profiler) *Compiler {
	return &Compiler{profiler: profiler}
}

func (c *Compiler) Compile(fn *value.FunctionObj, tier CompilationTier) (*CompiledFunction, error) {
	m := ir.NewModule()
	entry := m.NewFunc(fn.Name+"_jit_stub", types.Void)
	entry.NewBlock("entry").NewRet(nil)
	return &CompiledFunction{Module: m, Entry: entry}, nil
}

// LoopAnalysis is the result AnalyzeLoop reports for one candidate loop
// region of a chunk.
type LoopAnalysis struct {
	MatchedTemplate TemplateType
	StartPC         int
	EndPC           int
	CounterReg      uint16
	LimitReg        uint16
	StepReg         uint16
	AccumReg        uint16
}

// AnalyzeLoop inspects chunk's bytecode between startPC and endPC for one
// of the recognized loop templates. It always returns TemplateUnknown: the
// pattern matching a real implementation would do (recognize a counted
// sum/accumulate shape and hand it to ExecuteNative) is exactly the
// JIT-codegen surface spec §1 places out of scope. internal/interp does
// not call it; only this package's tests do.
func AnalyzeLoop(chunk *bytecode.Chunk, startPC, endPC int) *LoopAnalysis {
	return &LoopAnalysis{
		MatchedTemplate: TemplateUnknown,
		StartPC:         startPC,
		EndPC:           endPC,
	}
}

// ExecuteNative would run a matched template's generated code directly,
// bypassing the interpreter loop. It always reports false (no native path
// taken, fall back to the interpreter), since AnalyzeLoop never matches a
// template.
func ExecuteNative(analysis *LoopAnalysis) bool {
	return false
}
