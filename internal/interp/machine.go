package interp

import (
	"io"
	"os"

	"github.com/jordyorel/orus-lang-sub009/internal/bytecode"
	"github.com/jordyorel/orus-lang-sub009/internal/gc"
	"github.com/jordyorel/orus-lang-sub009/internal/profiler"
	"github.com/jordyorel/orus-lang-sub009/internal/regfile"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
	"github.com/jordyorel/orus-lang-sub009/internal/vmerr"
)

// NativeFn is the runtime shape of an intrinsic, per spec §6's intrinsic
// signature table: "The VM resolves at runtime to a NativeFn = (argc,
// argv) -> Value."
type NativeFn func(args []value.Value) (value.Value, error)

// Machine is the single process-wide `vm` aggregate spec §9 describes,
// threaded as an explicit receiver here rather than read through a global
// (spec §9's recommended re-architecture: "a VM context value threaded
// through handlers; globals become fields"). The single-threaded contract
// of spec §5 lets every handler take *Machine as a plain mutably-borrowed
// receiver with no locking.
type Machine struct {
	Heap    *gc.Heap
	Regs    *regfile.File
	Cache   *regfile.Cache
	Profiler *profiler.Profiler

	Frames    []Frame
	TryStack  []TryFrame
	LastError *vmerr.RuntimeError

	// returnTargets mirrors the call-frame stack one-for-one: each CALL
	// pushes the caller-side destination register the eventual RETURN
	// must write its value into.
	returnTargets []callReturnTarget

	// functionIndices assigns dense profiler indices to function
	// prototypes the first time each is called (see callIndexOf).
	functionIndices map[*value.FunctionObj]int

	// definedGlobals tracks which global slots SET_GLOBAL has written at
	// least once, so GET_GLOBAL can raise UndefinedGlobal (spec §7) rather
	// than silently reading a zero-valued slot.
	definedGlobals map[uint16]bool

	Natives map[string]NativeFn

	Out io.Writer

	// MaxFrameDepth bounds the call-frame stack (spec §7's "stack/frame
	// depth exceeded" error kind).
	MaxFrameDepth int

	halted bool
}

// Options configures a new Machine.
type Options struct {
	GC            gc.Options
	GlobalSize    int
	ModuleSize    int
	MaxFrameDepth int
	Out           io.Writer
}

func DefaultOptions() Options {
	return Options{
		GC:            gc.DefaultOptions(),
		GlobalSize:    256,
		ModuleSize:    64,
		MaxFrameDepth: 256,
		Out:           os.Stdout,
	}
}

func New(opts Options) *Machine {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.MaxFrameDepth == 0 {
		opts.MaxFrameDepth = 256
	}
	regs := regfile.New(opts.GlobalSize, opts.ModuleSize)
	prof := profiler.New()
	prof.SetActive(true)
	prof.SetEnabledFlags(profiler.EnableCallCounts | profiler.EnableLoopSamples)
	m := &Machine{
		Regs:          regs,
		Profiler:      prof,
		Natives:       make(map[string]NativeFn),
		Out:           opts.Out,
		MaxFrameDepth: opts.MaxFrameDepth,
	}
	m.Cache = regfile.NewCache(regs)
	m.Heap = gc.New(opts.GC)
	return m
}

// WalkRoots implements gc.Roots: spec §4.1's roots are "(a) every slot of
// every register tier, (b) every global, (c) vm.last_error." Globals are
// already covered by the register file's global tier; last_error
// contributes its message, an ordinary string Value with no heap object
// behind it.
func (m *Machine) WalkRoots(visit func(value.Value)) {
	m.Regs.WalkRoots(visit)
	if m.LastError != nil {
		visit(m.LastError.MessageValue())
	}
}

// RegisterNative installs an intrinsic in Natives under its symbol.
// handleCall accepts only function objects as call targets and does not
// look this table up.
func (m *Machine) RegisterNative(symbol string, fn NativeFn) {
	m.Natives[symbol] = fn
}

func (m *Machine) pushFrame(fr Frame, frameSize, tempSize int) *vmerr.RuntimeError {
	if len(m.Frames) >= m.MaxFrameDepth {
		return vmerr.New(vmerr.StackDepthExceeded, "call stack depth exceeded", vmerr.SourceSpan{})
	}
	m.Regs.PushFrame(frameSize, tempSize)
	m.Frames = append(m.Frames, fr)
	return nil
}

func (m *Machine) popFrame() {
	m.Regs.PopFrame()
	m.Frames = m.Frames[:len(m.Frames)-1]
}

func (m *Machine) currentFrame() *Frame {
	return &m.Frames[len(m.Frames)-1]
}

// raise sets LastError and returns SignalRuntimeError, the handler-level
// equivalent of spec §7's "handlers signal failure by returning a
// runtime_error continuation with vm.last_error set".
func (m *Machine) raise(err *vmerr.RuntimeError) Signal {
	m.LastError = err
	return SignalRuntimeError
}

// spanAt decodes the chunk's tracked debug location at ip into a
// SourceSpan, so handlers can attach a source span to an error.
func (m *Machine) spanAt(chunk *bytecode.Chunk, ip int) vmerr.SourceSpan {
	file, line, col := chunk.LocationAt(ip)
	return vmerr.SourceSpan{File: file, Line: line, Column: col}
}
