package profiler

import "testing"

func TestCallCountsRequireBothActiveAndFlag(t *testing.T) {
	p := New()
	p.RegisterFunction(0, "fib", 1)

	p.RecordCall(0) // inactive, flag unset: ignored
	if got := p.GetFunctionHitCount(0, false); got != 0 {
		t.Fatalf("expected 0 hits while inactive, got %d", got)
	}

	p.SetActive(true)
	p.SetEnabledFlags(EnableCallCounts)
	for i := 0; i < EligibilityThreshold; i++ {
		p.RecordCall(0)
	}

	fb := p.Snapshot()[0]
	if !fb.Eligible {
		t.Fatalf("expected function to become eligible at the threshold, got hits=%d", fb.HitCount)
	}
}

func TestGetFunctionHitCountResetAfterRead(t *testing.T) {
	p := New()
	p.RegisterFunction(1, "loop", 0)
	p.SetActive(true)
	p.SetEnabledFlags(EnableCallCounts)
	p.RecordCall(1)
	p.RecordCall(1)

	if got := p.GetFunctionHitCount(1, true); got != 2 {
		t.Fatalf("expected 2 hits, got %d", got)
	}
	if got := p.GetFunctionHitCount(1, false); got != 0 {
		t.Fatalf("expected counter reset after resetAfterRead read, got %d", got)
	}
}

func TestHotPathSamplesAccumulatePerAddress(t *testing.T) {
	p := New()
	p.SetActive(true)
	p.SetEnabledFlags(EnableLoopSamples)

	p.ProfileHotPath(0, 42, 100)
	p.ProfileHotPath(0, 42, 50)
	p.ProfileHotPath(0, 99, 1)

	if got := p.HotPathSamples(0, 42); got != 150 {
		t.Fatalf("expected accumulated samples of 150 at address 42, got %d", got)
	}
	if got := p.HotPathSamples(0, 99); got != 1 {
		t.Fatalf("expected 1 sample at address 99, got %d", got)
	}
}
