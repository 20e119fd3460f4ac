// Package gc implements the VM's tracked allocator and generational-free
// mark-and-sweep collector (spec component C2).
//
// The collector is "generational-free" in the sense spec §4.1 describes:
// there is one generation, but reclaimed objects return to a per-type free
// list during normal operation instead of being handed back to Go's
// allocator; Alloc pops a header from that list and offers it to its build
// callback, which may reuse it or return a fresh object. Final teardown
// bypasses the free lists entirely.
package gc

import (
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ncruces/go-strftime"

	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

// Options carries the named constants spec §4.1 calls out as design
// constants rather than literals buried in a function body.
type Options struct {
	// InitialThreshold is the bytes_allocated level that triggers the first
	// collection.
	InitialThreshold uint64
	// GrowFactor multiplies bytes_allocated after a collection to compute
	// the next threshold. Must be >= 1.5 per spec §4.1.
	GrowFactor float64
	// Log, if non-nil, receives one line per collection and per teardown.
	Log *log.Logger
}

// DefaultOptions matches the concrete scenario in spec §8.6: a 1 MiB
// initial threshold and a 1.5x grow factor.
func DefaultOptions() Options {
	return Options{
		InitialThreshold: 1 << 20,
		GrowFactor:       1.5,
	}
}

// Roots is implemented by whatever owns the register file, globals, and
// vm.last_error — in this repo, internal/interp.Machine. The collector
// never reaches into those structures directly; it only ever walks Roots.
type Roots interface {
	// WalkRoots invokes visit once for every root Value: every slot of
	// every register tier, every global, and vm.last_error (spec §4.1).
	WalkRoots(visit func(value.Value))
}

// Stats is a point-in-time snapshot of collector bookkeeping, useful for
// tests and for the ambient diagnostics logger.
type Stats struct {
	Collections    int
	BytesAllocated uint64
	BytesFreed     uint64
	Threshold      uint64
	LiveObjects    int
}

// Heap owns every heap object the VM allocates. It is not safe for
// concurrent use — per spec §5 the interpreter is single-threaded
// cooperative and so is its heap.
type Heap struct {
	opts Options

	bytesAllocated uint64
	threshold      uint64

	objects  *value.Obj
	freeList map[value.ObjKind][]*value.Obj

	pauseDepth int
	finalizing bool

	collections int
	bytesFreed  uint64
	pageSize    int
}

// New creates a heap with the given options, defaulting zero-valued fields
// from DefaultOptions.
func New(opts Options) *Heap {
	def := DefaultOptions()
	if opts.InitialThreshold == 0 {
		opts.InitialThreshold = def.InitialThreshold
	}
	if opts.GrowFactor < 1.5 {
		opts.GrowFactor = def.GrowFactor
	}
	return &Heap{
		opts:      opts,
		threshold: opts.InitialThreshold,
		freeList:  make(map[value.ObjKind][]*value.Obj),
		pageSize:  osPageSize(),
	}
}

// Pause suppresses collection for the duration of a section that must not
// observe half-constructed objects (spec §4.1, §5): object initialization
// and bytecode emission. Pause/Resume nest.
func (h *Heap) Pause() { h.pauseDepth++ }

// Resume undoes one Pause call.
func (h *Heap) Resume() {
	if h.pauseDepth > 0 {
		h.pauseDepth--
	}
}

func (h *Heap) Paused() bool { return h.pauseDepth > 0 }

func (h *Heap) BytesAllocated() uint64 { return h.bytesAllocated }
func (h *Heap) Threshold() uint64      { return h.threshold }
func (h *Heap) PageSize() int          { return h.pageSize }

// objectSize is a coarse, fixed per-kind accounting size. It need not be
// exact — only proportionate enough that the threshold/grow-factor policy
// in spec §4.1 behaves sensibly — so it is a table, not a reflect-based
// sizer.
func objectSize(kind value.ObjKind) uint64 {
	switch kind {
	case value.KindString:
		return 48
	case value.KindArray:
		return 56
	case value.KindByteBuffer:
		return 56
	case value.KindError:
		return 64
	case value.KindRangeIterator:
		return 40
	case value.KindArrayIterator:
		return 32
	case value.KindFileHandle:
		return 48
	case value.KindFunction:
		return 96
	case value.KindEnum:
		return 48
	default:
		return 32
	}
}

// Alloc allocates a heap object of the given kind. If bytes_allocated would
// exceed the threshold and the collector is not paused, a collection runs
// first (spec §4.1: "may trigger collection when bytes_allocated >
// gc_threshold and GC is not paused"). build is invoked to populate the new
// object's payload; the header (kind, mark bit, free-list recycling) is
// owned by Alloc.
func (h *Heap) Alloc(kind value.ObjKind, roots Roots, build func(reused *value.Obj) *value.Obj) *value.Obj {
	size := objectSize(kind)
	if !h.Paused() && h.bytesAllocated+size > h.threshold {
		h.Collect(roots)
	}

	var reused *value.Obj
	if list := h.freeList[kind]; len(list) > 0 {
		reused = list[len(list)-1]
		h.freeList[kind] = list[:len(list)-1]
	}

	obj := build(reused)
	obj.Kind = kind
	obj.Marked = false
	// sweep unlinks a header before free-listing it, so the object is linked
	// in here whether build reused that header or returned a fresh one.
	obj.Next = h.objects
	h.objects = obj

	h.bytesAllocated += size
	return obj
}

// Reallocate adjusts the accounted byte counter directly, for callers (e.g.
// a byte buffer growing in place) that resize a payload without going
// through Alloc. A negative delta models a free.
func (h *Heap) Reallocate(delta int64) {
	if delta >= 0 {
		h.bytesAllocated += uint64(delta)
		return
	}
	shrink := uint64(-delta)
	if shrink > h.bytesAllocated {
		h.bytesAllocated = 0
		return
	}
	h.bytesAllocated -= shrink
}

// Collect runs one mark-sweep pass. Roots are walked recursively per spec
// §4.1: arrays mark their elements, error objects mark their message
// string, and nested objects are marked transitively via
// value.Obj.MarkChildren.
func (h *Heap) Collect(roots Roots) {
	if h.Paused() {
		return
	}
	h.collections++

	var stack []*value.Obj
	markValue := func(v value.Value) {
		if v.Tag == value.Object {
			if o := v.AsObj(); o != nil && !o.Marked {
				o.Marked = true
				stack = append(stack, o)
			}
		}
	}
	roots.WalkRoots(markValue)
	for len(stack) > 0 {
		o := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		vals, objs := o.MarkChildren()
		for _, v := range vals {
			markValue(v)
		}
		for _, child := range objs {
			if child != nil && !child.Marked {
				child.Marked = true
				stack = append(stack, child)
			}
		}
	}

	h.sweep()

	newThreshold := uint64(float64(h.bytesAllocated) * h.opts.GrowFactor)
	if newThreshold < h.opts.InitialThreshold {
		newThreshold = h.opts.InitialThreshold
	}
	h.threshold = newThreshold

	if h.opts.Log != nil {
		h.opts.Log.Printf("gc: collection #%d live=%s threshold=%s at=%s",
			h.collections, humanize.Bytes(h.bytesAllocated), humanize.Bytes(h.threshold), stamp())
	}
}

// stamp formats the current wall-clock time the way collection and teardown
// log lines report it, a fixed %Y-%m-%dT%H:%M:%S directive string rather
// than Go's reference-time layout.
func stamp() string {
	return strftime.Format("%Y-%m-%dT%H:%M:%S", time.Now())
}

// sweep walks the intrusive object list, reclaiming unmarked objects to
// their per-type free list (or, during Finalize, freeing them outright) and
// clearing the mark bit on survivors.
func (h *Heap) sweep() {
	var prev *value.Obj
	cur := h.objects
	for cur != nil {
		next := cur.Next
		if cur.Marked {
			cur.Marked = false
			prev = cur
			cur = next
			continue
		}

		// Unlink.
		if prev == nil {
			h.objects = next
		} else {
			prev.Next = next
		}
		h.bytesFreed += objectSize(cur.Kind)
		h.Reallocate(-int64(objectSize(cur.Kind)))

		if h.finalizing {
			cur.Payload = nil
		} else {
			cur.Payload = nil
			cur.Next = nil
			h.freeList[cur.Kind] = append(h.freeList[cur.Kind], cur)
		}
		cur = next
	}
}

// Finalize runs a final sweep that frees every object outright instead of
// recycling it to a free list (spec §4.1: "teardown must not retain
// memory"). No roots are walked — everything is unreachable by definition
// at teardown.
func (h *Heap) Finalize() {
	h.finalizing = true
	for _, o := range h.liveObjects() {
		o.Marked = false
	}
	h.sweep()
	h.freeList = make(map[value.ObjKind][]*value.Obj)
	if h.opts.Log != nil {
		h.opts.Log.Printf("gc: finalized, freed=%s at=%s", humanize.Bytes(h.bytesFreed), stamp())
	}
}

func (h *Heap) liveObjects() []*value.Obj {
	var out []*value.Obj
	for o := h.objects; o != nil; o = o.Next {
		out = append(out, o)
	}
	return out
}

// Stats reports a point-in-time snapshot for tests and diagnostics.
func (h *Heap) Stats() Stats {
	return Stats{
		Collections:    h.collections,
		BytesAllocated: h.bytesAllocated,
		BytesFreed:     h.bytesFreed,
		Threshold:      h.threshold,
		LiveObjects:    len(h.liveObjects()),
	}
}
