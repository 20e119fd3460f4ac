package interp

// Signal is the continuation a handler returns, per spec §4.8: "Handlers
// return a continuation signal: normal advance, branch taken, call frame
// pushed/popped, halt, runtime error." Spec §9's design notes call out
// that handlers must return this value rather than falling through a
// switch, "because the dispatcher composes tail actions (profiling, GC
// checks) between instructions" — this package follows that: every
// handler returns a Signal and the interpreter loop reads it explicitly.
type Signal uint8

const (
	SignalAdvance Signal = iota
	SignalBranch
	SignalCallPushed
	SignalCallPopped
	SignalHalt
	SignalRuntimeError
)
