package gc

import (
	"testing"

	"github.com/kr/pretty"

	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

// rootSet is a minimal Roots implementation for tests.
type rootSet struct {
	vals []value.Value
}

func (r *rootSet) WalkRoots(visit func(value.Value)) {
	for _, v := range r.vals {
		visit(v)
	}
}

func TestCollectReclaimsUnreachableArrays(t *testing.T) {
	h := New(DefaultOptions())
	roots := &rootSet{}

	keep := h.Alloc(value.KindString, roots, func(*value.Obj) *value.Obj {
		return value.NewString("kept", 1)
	})
	roots.vals = append(roots.vals, value.ObjVal(keep))

	h.Alloc(value.KindArray, roots, func(*value.Obj) *value.Obj {
		return value.NewArray([]value.Value{value.I64Val(1), value.I64Val(2)})
	})

	before := h.Stats().LiveObjects
	if before != 2 {
		t.Fatalf("expected 2 live objects before collection, got %d", before)
	}

	h.Collect(roots)

	after := h.Stats()
	if after.LiveObjects != 1 {
		t.Fatalf("expected 1 live object after collection, got %d", after.LiveObjects)
	}
	if keep.Marked {
		t.Fatalf("survivors must have their mark bit cleared after sweep")
	}
}

func TestThresholdGrowsAfterCollection(t *testing.T) {
	h := New(Options{InitialThreshold: 64, GrowFactor: 2.0})
	roots := &rootSet{}

	for i := 0; i < 8; i++ {
		h.Alloc(value.KindString, roots, func(*value.Obj) *value.Obj {
			return value.NewString("x", uint64(i))
		})
	}

	stats := h.Stats()
	if stats.Collections == 0 {
		t.Fatalf("expected at least one collection once allocations exceeded the threshold")
	}
	if stats.Threshold < 64 {
		t.Fatalf("threshold should never shrink below the initial threshold, got %d", stats.Threshold)
	}
}

func TestPauseSuppressesCollection(t *testing.T) {
	h := New(Options{InitialThreshold: 1, GrowFactor: 1.5})
	roots := &rootSet{}

	h.Pause()
	for i := 0; i < 5; i++ {
		h.Alloc(value.KindString, roots, func(*value.Obj) *value.Obj {
			return value.NewString("x", uint64(i))
		})
	}
	if h.Stats().Collections != 0 {
		t.Fatalf("paused heap must not collect, got %d collections", h.Stats().Collections)
	}
	h.Resume()

	h.Alloc(value.KindString, roots, func(*value.Obj) *value.Obj {
		return value.NewString("y", 99)
	})
	if h.Stats().Collections == 0 {
		t.Fatalf("expected a collection once resumed and over threshold")
	}
}

// TestCollectLeavesThresholdAndCountersConsistent diffs the Stats snapshot
// before and after a collection structurally, rather than asserting on one
// field at a time, to catch any counter a future change leaves inconsistent
// with the rest of the snapshot.
func TestCollectLeavesThresholdAndCountersConsistent(t *testing.T) {
	h := New(Options{InitialThreshold: 32, GrowFactor: 2.0})
	roots := &rootSet{}

	for i := 0; i < 4; i++ {
		h.Alloc(value.KindString, roots, func(*value.Obj) *value.Obj {
			return value.NewString("x", uint64(i))
		})
	}
	before := h.Stats()

	h.Alloc(value.KindString, roots, func(*value.Obj) *value.Obj {
		return value.NewString("trigger", 0)
	})
	after := h.Stats()

	if diff := pretty.Diff(before, after); len(diff) == 0 {
		t.Fatalf("expected Stats to change across an allocation that triggers a collection, got identical snapshots")
	}
	if after.Collections <= before.Collections {
		t.Fatalf("collection count must increase, diff: %v", pretty.Diff(before, after))
	}
}

func TestFinalizeFreesEverythingOutright(t *testing.T) {
	h := New(DefaultOptions())
	roots := &rootSet{}
	obj := h.Alloc(value.KindArray, roots, func(*value.Obj) *value.Obj {
		return value.NewArray(nil)
	})
	roots.vals = append(roots.vals, value.ObjVal(obj))

	h.Finalize()
	if got := h.Stats().LiveObjects; got != 0 {
		t.Fatalf("Finalize must free all objects regardless of reachability, got %d live", got)
	}
}
