// Package optimizer implements the loop-centric typed optimization passes
// that run over the typed AST before bytecode emission: loop type-affinity
// (C7) and loop type-residency (C8).
package optimizer

import (
	"github.com/jordyorel/orus-lang-sub009/internal/ast"
	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

// LoopKind names the loop form an affinity binding describes.
type LoopKind uint8

const (
	LoopRange LoopKind = iota
	LoopWhile
	LoopIterator
)

// OperandFlags are the per-operand flags spec §3 attaches to a
// LoopAffinityBinding's start/end/step or guard-left/guard-right nodes.
type OperandFlags struct {
	PrefersTyped      bool
	RequiresResidency bool
	IsConstant        bool
}

// AffinityBinding is one LoopAffinityBinding (spec §3): a per-loop record
// of which operands should prefer typed registers.
type AffinityBinding struct {
	Kind LoopKind

	// Range-loop fields.
	Start, End, Step *ast.Node
	StartFlags       OperandFlags
	EndFlags         OperandFlags
	StepFlags        OperandFlags
	StepSign         int // -1, 0, +1; default step is +1 when absent
	Inclusive        bool

	// While-loop fields.
	GuardLeft, GuardRight *ast.Node
	LeftFlags             OperandFlags
	RightFlags            OperandFlags
	GuardIsNumeric        bool

	ProvenNumericBounds bool
	LoopDepth           int
}

// ResidencyEntry is one qualifying operand subtree of a
// LoopResidencyPlan.
type ResidencyEntry struct {
	Node              *ast.Node
	PrefersTyped      bool
	RequiresResidency bool
}

// ResidencyPlan is one LoopResidencyPlan (spec §3): per-loop, the operand
// subtrees found loop-invariant by the residency pass.
type ResidencyPlan struct {
	Loop    *ast.Node
	Entries []ResidencyEntry
}

// Stats accumulates the counters spec §6's optimization-context interface
// says passes increment and the emitter reads.
type Stats struct {
	LoopsVisited      int
	BindingsCreated   int
	PlansCreated      int
	ResidentOperands  int
	AllocationFailures int
}

// Context is the OptimizationContext of spec §6: "Owns a dynamic array of
// affinity bindings and a dynamic array of residency plans, each with
// clear/add operations returning an integer id or -1 on allocation
// failure."
//
// A Go slice append never fails the way a fixed-capacity native array
// might, so AddBinding/AddPlan only ever return -1 if called with a nil
// receiver. No caller in this repository checks for -1.
type Context struct {
	bindings []*AffinityBinding
	plans    []*ResidencyPlan
	Stats    Stats
}

func NewContext() *Context {
	return &Context{}
}

// Clear resets both dynamic arrays and the Stats counters (loop depth is
// tracked inside RunAffinity, not here), per spec §4.5: "run(typed_ast, ctx) clears prior bindings".
func (c *Context) Clear() {
	c.bindings = c.bindings[:0]
	c.plans = c.plans[:0]
	c.Stats = Stats{}
}

func (c *Context) AddBinding(b *AffinityBinding) int {
	if c == nil {
		return -1
	}
	c.bindings = append(c.bindings, b)
	c.Stats.BindingsCreated++
	return len(c.bindings) - 1
}

func (c *Context) AddPlan(p *ResidencyPlan) int {
	if c == nil {
		return -1
	}
	c.plans = append(c.plans, p)
	c.Stats.PlansCreated++
	return len(c.plans) - 1
}

func (c *Context) Binding(id int) (*AffinityBinding, bool) {
	if id < 0 || id >= len(c.bindings) {
		return nil, false
	}
	return c.bindings[id], true
}

func (c *Context) Bindings() []*AffinityBinding { return c.bindings }

// PlanForLoop looks a residency plan up by loop node reference, per spec
// §4.6: "their ids are not propagated back onto nodes (the emitter looks
// up by loop reference)".
func (c *Context) PlanForLoop(loop *ast.Node) (*ResidencyPlan, bool) {
	for _, p := range c.plans {
		if p.Loop == loop {
			return p, true
		}
	}
	return nil, false
}

func (c *Context) Plans() []*ResidencyPlan { return c.plans }

func candidateType(nodes ...*ast.Node) (value.Tag, bool) {
	for _, n := range nodes {
		if n != nil && n.HasType {
			return n.ResolvedType, true
		}
	}
	return 0, false
}
