package jit

import (
	"testing"

	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

func TestRecordCallTiers(t *testing.T) {
	fn := value.NewFunction("hot", 1, 4, bytecode.NewChunk()).Payload.(*value.FunctionObj)
	p := NewProfiler()

	var lastTier CompilationTier
	var crossed bool
	for i := 0; i < 100; i++ {
		crossed, lastTier = p.RecordCall(fn)
	}
	if !crossed || lastTier != TierQuickJIT {
		t.Fatalf("expected a TierQuickJIT crossing at call 100, got crossed=%v tier=%v", crossed, lastTier)
	}
}

func TestAnalyzeLoopAlwaysDeclines(t *testing.T) {
	chunk := bytecode.NewChunk()
	analysis := AnalyzeLoop(chunk, 0, 10)
	if analysis.MatchedTemplate != TemplateUnknown {
		t.Fatalf("expected TemplateUnknown, got %v", analysis.MatchedTemplate)
	}
	if ExecuteNative(analysis) {
		t.Fatalf("expected ExecuteNative to always decline")
	}
}

func TestCompileProducesStubModule(t *testing.T) {
	fn := value.NewFunction("add", 2, 4, bytecode.NewChunk()).Payload.(*value.FunctionObj)
	c := NewCompiler(NewProfiler())
	compiled, err := c.Compile(fn, TierQuickJIT)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if compiled.Module == nil || compiled.Entry == nil {
		t.Fatalf("expected a populated stub module and entry function")
	}
}
