package regfile

import (
	"testing"

	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

func TestSetInvalidatesShadow(t *testing.T) {
	f := New(4, 0)
	id := RegID(TierGlobal, 0)

	f.SetTypedI64(id, 41, value.I64)
	if f.ShadowTagOf(id) != ShadowI64 {
		t.Fatalf("expected i64 shadow after typed set")
	}

	f.Set(id, value.I64Val(42))
	if f.ShadowTagOf(id) != Boxed {
		t.Fatalf("generic Set must invalidate the typed shadow")
	}
	if got := f.Get(id); !value.Equal(got, value.I64Val(42)) {
		t.Fatalf("expected boxed value 42, got %v", got)
	}
}

func TestPushFramePopFrameRestoresCallerWindow(t *testing.T) {
	f := New(2, 0)
	callerReg := RegID(TierFrame, 0)
	f.Set(callerReg, value.I32Val(7))

	f.PushFrame(4, 4)
	calleeReg := RegID(TierFrame, 0)
	f.Set(calleeReg, value.I32Val(99))
	if got := f.Get(calleeReg); !value.Equal(got, value.I32Val(99)) {
		t.Fatalf("expected callee frame register 99, got %v", got)
	}

	f.PopFrame()
	if got := f.Get(callerReg); !value.Equal(got, value.I32Val(7)) {
		t.Fatalf("expected caller frame register restored to 7, got %v", got)
	}
}

func TestShouldCacheExcludesTempTier(t *testing.T) {
	if ShouldCache(RegID(TierTemp, 3)) {
		t.Fatalf("temp-tier registers must not be cache candidates")
	}
	if !ShouldCache(RegID(TierGlobal, 3)) || !ShouldCache(RegID(TierFrame, 3)) {
		t.Fatalf("global and frame registers must be cache candidates")
	}
}

func TestWalkRootsVisitsAllTiersAndSavedFrames(t *testing.T) {
	f := New(1, 1)
	f.Set(RegID(TierGlobal, 0), value.I64Val(1))
	f.Set(RegID(TierModule, 0), value.I64Val(2))
	f.PushFrame(1, 1)
	f.Set(RegID(TierFrame, 0), value.I64Val(3))
	f.PushFrame(1, 1)
	f.Set(RegID(TierFrame, 0), value.I64Val(4))

	var seen []value.Value
	f.WalkRoots(func(v value.Value) { seen = append(seen, v) })

	var sum int64
	for _, v := range seen {
		if v.Tag == value.I64 {
			sum += v.AsI64()
		}
	}
	if sum != 1+2+3+4 {
		t.Fatalf("expected WalkRoots to visit both saved frame tiers, sum=%d", sum)
	}
}

func TestCacheWriteThroughStaysConsistentWithFile(t *testing.T) {
	f := New(16, 0)
	c := NewCache(f)
	id := RegID(TierGlobal, 2)

	c.Set(id, value.I64Val(10))
	if got := f.Get(id); !value.Equal(got, value.I64Val(10)) {
		t.Fatalf("cache Set must write through to the backing file, got %v", got)
	}
	if got := c.Get(id); !value.Equal(got, value.I64Val(10)) {
		t.Fatalf("cache Get must return the written value, got %v", got)
	}
}

func TestCacheInvalidateDropsL1AndL2Copies(t *testing.T) {
	f := New(16, 0)
	c := NewCache(f)
	id := RegID(TierGlobal, 1)

	c.Set(id, value.I64Val(5))
	c.Invalidate(id)
	f.Set(id, value.I64Val(9))

	if got := c.Get(id); !value.Equal(got, value.I64Val(9)) {
		t.Fatalf("after invalidate, cache must read through to the updated file value, got %v", got)
	}
}

func TestAdaptiveDisableBelowTwentyPercentHitRate(t *testing.T) {
	f := New(l1Slots*4, 0)
	c := NewCache(f)

	// Force an all-miss window by invalidating each id just before reading
	// it: every Get is a cold miss against the backing file.
	for i := 0; i < adaptiveWindow; i++ {
		id := RegID(TierGlobal, i%(l1Slots*4))
		c.Invalidate(id)
		c.Get(id)
	}
	if c.Enabled() {
		t.Fatalf("expected cache to disable itself after a window of near-zero hit rate")
	}
}
