// Package regfile implements the VM's hierarchical register file and its
// write-through cache (spec component C3).
//
// A logical register id is 16 bits. The top bits select a tier (global,
// frame, temp, module); the low bits index within that tier. Each tier
// additionally carries a shadow typed pane — an optional unboxed i32/i64/f64/
// bool copy plus a one-byte authority tag — matching spec §3's "Each tier
// carries a shadow typed pane".
package regfile

import (
	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

// Tier identifies which of the four logical register spaces an id selects.
type Tier uint8

const (
	TierGlobal Tier = iota
	TierFrame
	TierTemp
	TierModule
)

const (
	tierShift = 14
	tierMask  = 0x3
	idxMask   = 0x3FFF // 14 bits of within-tier index
)

// RegID packs a tier and a within-tier index into the single 16-bit logical
// id spec §3 describes.
func RegID(tier Tier, idx int) uint16 {
	return uint16(tier&tierMask)<<tierShift | uint16(idx&idxMask)
}

func splitID(id uint16) (Tier, int) {
	return Tier((id >> tierShift) & tierMask), int(id & idxMask)
}

// ShadowTag names the authoritative typed-shadow kind for a register, or
// Boxed when the generic (boxed) value is authoritative.
type ShadowTag uint8

const (
	Boxed ShadowTag = iota
	ShadowI32
	ShadowI64
	ShadowF64
	ShadowBool
)

// typedCell is a register's optional unboxed shadow storage. Exactly one of
// the numeric fields is meaningful, selected by the owning tier's tag
// slice — kept this way (rather than an interface{}) so tiers can be plain
// slices with no per-register heap allocation.
type typedCell struct {
	i64 int64
	f64 float64
	b   bool
}

// tier is one of the four logical register spaces: a boxed-value slice plus
// a parallel typed-shadow slice and tag slice of equal length.
type tier struct {
	boxed  []value.Value
	shadow []typedCell
	tags   []ShadowTag
}

func newTier(size int) *tier {
	return &tier{
		boxed:  make([]value.Value, size),
		shadow: make([]typedCell, size),
		tags:   make([]ShadowTag, size),
	}
}

func (t *tier) grow(minSize int) {
	if minSize <= len(t.boxed) {
		return
	}
	boxed := make([]value.Value, minSize)
	shadow := make([]typedCell, minSize)
	tags := make([]ShadowTag, minSize)
	copy(boxed, t.boxed)
	copy(shadow, t.shadow)
	copy(tags, t.tags)
	t.boxed, t.shadow, t.tags = boxed, shadow, tags
}

// File is the whole four-tier register space for one VM (the global and
// module tiers) plus, per call frame, a frame tier and temp tier installed
// by PushFrame and restored by PopFrame.
type File struct {
	global *tier
	module *tier
	// frame and temp are allocated fresh per active call frame; callers
	// (internal/interp) swap them on call/return via PushFrame/PopFrame.
	frame *tier
	temp  *tier

	frameStack []*tier
	tempStack  []*tier
}

// New creates a register file with the given global and module tier sizes.
// Frame/temp tiers start empty; PushFrame allocates one per activation.
func New(globalSize, moduleSize int) *File {
	return &File{
		global: newTier(globalSize),
		module: newTier(moduleSize),
		frame:  newTier(0),
		temp:   newTier(0),
	}
}

func (f *File) tierFor(t Tier) *tier {
	switch t {
	case TierGlobal:
		return f.global
	case TierFrame:
		return f.frame
	case TierTemp:
		return f.temp
	case TierModule:
		return f.module
	default:
		return f.global
	}
}

// Get reads the boxed value of a register, regardless of tier.
func (f *File) Get(id uint16) value.Value {
	tr, idx := splitID(id)
	t := f.tierFor(tr)
	if idx >= len(t.boxed) {
		return value.NilValue
	}
	return t.boxed[idx]
}

// Set writes the boxed value of a register and invalidates its typed
// shadow, per spec §3: "Writing through the generic setter invalidates the
// shadow".
func (f *File) Set(id uint16, v value.Value) {
	tr, idx := splitID(id)
	t := f.tierFor(tr)
	t.grow(idx + 1)
	t.boxed[idx] = v
	t.tags[idx] = Boxed
}

// ShadowTagOf reports the authoritative shadow tag of a register.
func (f *File) ShadowTagOf(id uint16) ShadowTag {
	tr, idx := splitID(id)
	t := f.tierFor(tr)
	if idx >= len(t.tags) {
		return Boxed
	}
	return t.tags[idx]
}

// SetTypedI64/SetTypedF64/SetTypedBool write through a typed setter: both
// the shadow and the boxed copy are updated, keeping the invariant spec §4.2
// states: "if reg_types[r] == T then the value last stored at r is of type
// T". i32/u32/u64 all route through SetTypedI64 with the matching Value tag;
// only the boxed Value.Tag distinguishes i32 from i64 from u32/u64, the
// shadow storage is the same 64-bit cell for all integer kinds.
func (f *File) SetTypedI64(id uint16, n int64, tag value.Tag) {
	tr, idx := splitID(id)
	t := f.tierFor(tr)
	t.grow(idx + 1)
	t.shadow[idx].i64 = n
	switch tag {
	case value.I32:
		t.boxed[idx] = value.I32Val(int32(n))
		t.tags[idx] = ShadowI32
	case value.U32:
		t.boxed[idx] = value.U32Val(uint32(n))
		t.tags[idx] = ShadowI32
	case value.U64:
		t.boxed[idx] = value.U64Val(uint64(n))
		t.tags[idx] = ShadowI64
	default:
		t.boxed[idx] = value.I64Val(n)
		t.tags[idx] = ShadowI64
	}
}

func (f *File) SetTypedF64(id uint16, x float64) {
	tr, idx := splitID(id)
	t := f.tierFor(tr)
	t.grow(idx + 1)
	t.shadow[idx].f64 = x
	t.boxed[idx] = value.F64Val(x)
	t.tags[idx] = ShadowF64
}

func (f *File) SetTypedBool(id uint16, b bool) {
	tr, idx := splitID(id)
	t := f.tierFor(tr)
	t.grow(idx + 1)
	t.shadow[idx].b = b
	t.boxed[idx] = value.Boolean(b)
	t.tags[idx] = ShadowBool
}

// TypedI64 reads the i64 shadow cell directly, for a typed handler that has
// already checked ShadowTagOf. Overflow/mismatch handling is the handler's
// job (spec §4.3: "must demote the tag to HEAP when they observe a type
// mismatch or overflow").
func (f *File) TypedI64(id uint16) int64 {
	tr, idx := splitID(id)
	return f.tierFor(tr).shadow[idx].i64
}

func (f *File) TypedF64(id uint16) float64 {
	tr, idx := splitID(id)
	return f.tierFor(tr).shadow[idx].f64
}

func (f *File) TypedBool(id uint16) bool {
	tr, idx := splitID(id)
	return f.tierFor(tr).shadow[idx].b
}

// Demote clears a register's shadow authority, forcing subsequent typed
// reads back through the boxed path. Called by a typed handler on overflow
// or a mismatched operand (spec §4.3).
func (f *File) Demote(id uint16) {
	tr, idx := splitID(id)
	t := f.tierFor(tr)
	if idx < len(t.tags) {
		t.tags[idx] = Boxed
	}
}

// PushFrame allocates a fresh frame tier and temp tier for a new call
// activation, sized to the callee's declared register-window requirement,
// and saves the caller's tiers to restore on PopFrame.
func (f *File) PushFrame(frameSize, tempSize int) {
	f.frameStack = append(f.frameStack, f.frame)
	f.tempStack = append(f.tempStack, f.temp)
	f.frame = newTier(frameSize)
	f.temp = newTier(tempSize)
}

// PopFrame restores the caller's frame/temp tiers.
func (f *File) PopFrame() {
	n := len(f.frameStack)
	if n == 0 {
		f.frame = newTier(0)
		f.temp = newTier(0)
		return
	}
	f.frame = f.frameStack[n-1]
	f.temp = f.tempStack[n-1]
	f.frameStack = f.frameStack[:n-1]
	f.tempStack = f.tempStack[:n-1]
}

// WalkRoots visits every slot of every tier, across every saved frame on
// the call stack, satisfying gc.Roots's register-file contribution (spec
// §4.1: "every slot of every register tier").
func (f *File) WalkRoots(visit func(value.Value)) {
	walkTier := func(t *tier) {
		for _, v := range t.boxed {
			visit(v)
		}
	}
	walkTier(f.global)
	walkTier(f.module)
	walkTier(f.frame)
	walkTier(f.temp)
	for _, t := range f.frameStack {
		walkTier(t)
	}
	for _, t := range f.tempStack {
		walkTier(t)
	}
}

// GlobalSize/ModuleSize report tier capacities, used by tests and by the
// emitter when it needs to grow a tier ahead of time.
func (f *File) GlobalSize() int { return len(f.global.boxed) }
func (f *File) ModuleSize() int { return len(f.module.boxed) }

// ShouldCache reports whether a register id is a caching candidate for the
// register cache (package regfile, cache.go): spec §4.2 makes globals and
// frame registers cacheable, and temps/spills not, because temps have very
// short lifetimes and would pollute the cache.
func ShouldCache(id uint16) bool {
	tr, _ := splitID(id)
	return tr == TierGlobal || tr == TierFrame
}
