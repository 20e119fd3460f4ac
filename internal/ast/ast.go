// Package ast defines the typed abstract syntax tree consumed by the
// optimization passes (internal/optimizer) and the bytecode emitter
// (internal/emitter). Construction of this tree from source text is out of
// scope here; it is produced upstream and handed in already type-resolved,
// matching spec §1's "surface parser/lexer ... out of scope".
package ast

import "github.com/jordyorel/orus-lang-sub009/internal/value"

// Kind names the syntactic form of a Node, spec §6's "original kind
// (literal, identifier, binary, unary, assign, var-decl, for-range,
// for-iter, while, member-assign, array-assign, program, ...)".
type Kind uint8

const (
	KindLiteral Kind = iota
	KindIdentifier
	KindBinary
	KindUnary
	KindAssign
	KindVarDecl
	KindForRange
	KindForIter
	KindWhile
	KindMemberAssign
	KindArrayAssign
	KindCall
	KindProgram
	KindBlock
)

// BinaryOp enumerates the operators a KindBinary node may carry. Only the
// comparison subset matters to the optimizer (spec §4.5's "binary
// comparison in {<,<=,>,>=}"); the rest round-trip through unchanged.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpAnd
	OpOr
)

func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpLt, OpLe, OpGt, OpGe:
		return true
	default:
		return false
	}
}

// Node is one AST node. Every node carries the three fields spec §6 says
// every node carries (Kind, ResolvedType, IsConstant) plus kind-specific
// children reached through the typed accessor fields below; only the
// fields relevant to a given Kind are populated: a single node struct
// carries every shape's payload rather than using a Go interface
// hierarchy, so back-pointers
// (spec §9 "raw back-pointers to the original node") stay simple *Node
// fields instead of an arena index — a deliberate deviation from the
// recommended re-architecture in §9.
type Node struct {
	Kind         Kind
	ResolvedType value.Tag
	HasType      bool // false when ResolvedType is unresolved (the "may be null" case)
	IsConstant   bool

	// Literal
	LiteralValue value.Value

	// Identifier
	Name string

	// Binary
	Op          BinaryOp
	Left, Right *Node

	// Unary / Assign / VarDecl
	Operand *Node // unary operand, assign RHS, var-decl initializer

	// ForRange: for Name in Start..End step Step { Body }
	Start, End, Step *Node
	Inclusive        bool

	// ForIter: for Name in Iterable { Body }
	Iterable *Node

	// While: while Cond { Body }
	Cond *Node

	Body []*Node

	// MemberAssign / ArrayAssign
	Base, Index, Value *Node

	// Call
	Callee *Node
	Args   []*Node

	// Program / Block
	Statements []*Node

	// Loop-pass write-back fields (spec §6: "The pass writes back
	// preferTypedRegister, requiresLoopResidency, and loopBindingId on
	// loop nodes only"). Zero value means "not yet analyzed".
	PreferTypedRegister  bool
	RequiresLoopResidency bool
	LoopBindingID        int
}

// IsLoop reports whether n is one of the three loop forms the optimizer
// recognizes.
func (n *Node) IsLoop() bool {
	switch n.Kind {
	case KindForRange, KindForIter, KindWhile:
		return true
	default:
		return false
	}
}

// IsNumericType reports whether t is one of the numeric/boolean types
// eligible for typed register residency (spec §4.5/§4.6's "the
// numeric/boolean set above": i32, i64, u32, u64, f64, bool).
func IsNumericType(t value.Tag, has bool) bool {
	if !has {
		return false
	}
	switch t {
	case value.Bool, value.I32, value.I64, value.U32, value.U64, value.F64:
		return true
	default:
		return false
	}
}

// Walk visits n and every descendant in a fixed traversal order, calling
// visit on each. It is the shared traversal primitive both optimizer
// passes (C7, C8) build on: a single recursive visitor rather than a
// generated double-dispatch Visitor interface.
func Walk(n *Node, visit func(*Node)) {
	if n == nil {
		return
	}
	visit(n)
	switch n.Kind {
	case KindBinary:
		Walk(n.Left, visit)
		Walk(n.Right, visit)
	case KindUnary, KindAssign, KindVarDecl:
		Walk(n.Operand, visit)
	case KindForRange:
		Walk(n.Start, visit)
		Walk(n.End, visit)
		Walk(n.Step, visit)
		for _, s := range n.Body {
			Walk(s, visit)
		}
	case KindForIter:
		Walk(n.Iterable, visit)
		for _, s := range n.Body {
			Walk(s, visit)
		}
	case KindWhile:
		Walk(n.Cond, visit)
		for _, s := range n.Body {
			Walk(s, visit)
		}
	case KindMemberAssign, KindArrayAssign:
		Walk(n.Base, visit)
		Walk(n.Index, visit)
		Walk(n.Value, visit)
	case KindCall:
		Walk(n.Callee, visit)
		for _, a := range n.Args {
			Walk(a, visit)
		}
	case KindProgram, KindBlock:
		for _, s := range n.Statements {
			Walk(s, visit)
		}
	}
}
