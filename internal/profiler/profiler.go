// Package profiler tracks per-function hit counts and loop back-edge
// samples (spec component C6), feeding the specialization stage
// (internal/specialize) its eligibility decisions.
package profiler

import "sync/atomic"

// EligibilityThreshold is the named constant spec §3/§4.7 requires:
// "Eligibility threshold is a named constant (e.g. 50)".
const EligibilityThreshold = 50

// EnableFlags gates which profiling categories run, per spec §4.4's
// "enabledFlags bitfield gates categories".
type EnableFlags uint8

const (
	EnableCallCounts EnableFlags = 1 << iota
	EnableLoopSamples
	EnableInstructionTiers
)

// Profiler is the mutable counters owned by one VM instance. Call-count
// reads and writes happen on the single interpreter goroutine per spec §5
// ("single-threaded cooperative"). Each counter is an atomic, but the maps
// holding them are plain Go maps that RegisterFunction, RecordCall and
// ProfileHotPath insert into on first use of an index or address, so
// reading them from another goroutine while the interpreter runs is not
// synchronized.
type Profiler struct {
	isActive     atomic.Bool
	enabledFlags atomic.Uint32

	hitCounts map[int]*atomic.Uint64
	names     map[int]string
	arities   map[int]int

	loopSamples map[uint64]*atomic.Uint64 // keyed by (functionIndex<<32 | address)
}

// New creates a disabled profiler; call SetActive(true) to begin tracking.
func New() *Profiler {
	return &Profiler{
		hitCounts:   make(map[int]*atomic.Uint64),
		names:       make(map[int]string),
		arities:     make(map[int]int),
		loopSamples: make(map[uint64]*atomic.Uint64),
	}
}

func (p *Profiler) SetActive(active bool) { p.isActive.Store(active) }
func (p *Profiler) IsActive() bool        { return p.isActive.Load() }

func (p *Profiler) SetEnabledFlags(flags EnableFlags) { p.enabledFlags.Store(uint32(flags)) }
func (p *Profiler) HasFlag(flag EnableFlags) bool {
	return EnableFlags(p.enabledFlags.Load())&flag != 0
}

// RegisterFunction declares a function index's name and arity so later
// snapshots (Feedback) can report them without the caller re-supplying
// them each time.
func (p *Profiler) RegisterFunction(index int, name string, arity int) {
	p.names[index] = name
	p.arities[index] = arity
	if _, ok := p.hitCounts[index]; !ok {
		p.hitCounts[index] = new(atomic.Uint64)
	}
}

// RecordCall increments a function's call-entry hit count, the "function
// hit counts (call entry)" category of spec §4.4.
func (p *Profiler) RecordCall(index int) {
	if !p.isActive.Load() || !p.HasFlag(EnableCallCounts) {
		return
	}
	counter, ok := p.hitCounts[index]
	if !ok {
		counter = new(atomic.Uint64)
		p.hitCounts[index] = counter
	}
	counter.Add(1)
}

// ProfileHotPath records a loop back-edge sample, spec §4.4's "hot-path
// samples (loop back-edges)" and the profiling interface's
// profileHotPath(address, iteration_count).
func (p *Profiler) ProfileHotPath(functionIndex int, address int, iterationCount uint64) {
	if !p.isActive.Load() || !p.HasFlag(EnableLoopSamples) {
		return
	}
	key := uint64(functionIndex)<<32 | uint64(uint32(address))
	counter, ok := p.loopSamples[key]
	if !ok {
		counter = new(atomic.Uint64)
		p.loopSamples[key] = counter
	}
	counter.Add(iterationCount)
}

// GetFunctionHitCount is the profiling interface's
// getFunctionHitCount(fn, resetAfterRead).
func (p *Profiler) GetFunctionHitCount(index int, resetAfterRead bool) uint64 {
	counter, ok := p.hitCounts[index]
	if !ok {
		return 0
	}
	n := counter.Load()
	if resetAfterRead {
		counter.Store(0)
	}
	return n
}

// HotPathSamples reports the accumulated iteration count for a given
// function/address loop back-edge.
func (p *Profiler) HotPathSamples(functionIndex, address int) uint64 {
	key := uint64(functionIndex)<<32 | uint64(uint32(address))
	if counter, ok := p.loopSamples[key]; ok {
		return counter.Load()
	}
	return 0
}

// Feedback is one function's entry in a ProfilingFeedback snapshot (spec
// §3): "{hit_count, arity, eligible}".
type Feedback struct {
	Index    int
	Name     string
	HitCount uint64
	Arity    int
	Eligible bool
}

// Snapshot takes a ProfilingFeedback snapshot: one Feedback entry per
// function index that has a counter, keyed by index. Each entry also
// carries the function's name; SnapshotByName gives the by-name view.
func (p *Profiler) Snapshot() map[int]Feedback {
	out := make(map[int]Feedback, len(p.hitCounts))
	for idx, counter := range p.hitCounts {
		hits := counter.Load()
		out[idx] = Feedback{
			Index:    idx,
			Name:     p.names[idx],
			HitCount: hits,
			Arity:    p.arities[idx],
			Eligible: hits >= EligibilityThreshold,
		}
	}
	return out
}

// SnapshotByName mirrors Snapshot but keyed by function name, for callers
// that only have a symbolic reference.
func (p *Profiler) SnapshotByName() map[string]Feedback {
	byIndex := p.Snapshot()
	out := make(map[string]Feedback, len(byIndex))
	for _, fb := range byIndex {
		out[fb.Name] = fb
	}
	return out
}
