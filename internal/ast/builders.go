package ast

import "github.com/jordyorel/orus-lang-sub009/internal/value"

// The constructors below build already-typed nodes, standing in for what
// the (out-of-scope) type checker would hand the optimizer. Tests and the
// cmd/orus demo driver use these directly since no surface parser exists
// in this repository.

func Literal(v value.Value) *Node {
	return &Node{Kind: KindLiteral, LiteralValue: v, ResolvedType: v.Tag, HasType: true, IsConstant: true}
}

func Identifier(name string, t value.Tag, constant bool) *Node {
	return &Node{Kind: KindIdentifier, Name: name, ResolvedType: t, HasType: true, IsConstant: constant}
}

func Binary(op BinaryOp, left, right *Node, t value.Tag, has bool) *Node {
	return &Node{Kind: KindBinary, Op: op, Left: left, Right: right, ResolvedType: t, HasType: has}
}

func Assign(name string, operand *Node) *Node {
	return &Node{Kind: KindAssign, Name: name, Operand: operand, ResolvedType: operand.ResolvedType, HasType: operand.HasType}
}

func VarDecl(name string, operand *Node) *Node {
	return &Node{Kind: KindVarDecl, Name: name, Operand: operand, ResolvedType: operand.ResolvedType, HasType: operand.HasType}
}

func ForRange(induction string, start, end, step *Node, inclusive bool, body []*Node) *Node {
	return &Node{
		Kind: KindForRange, Name: induction,
		Start: start, End: end, Step: step, Inclusive: inclusive,
		Body: body, LoopBindingID: -1,
	}
}

func ForIter(induction string, iterable *Node, body []*Node) *Node {
	return &Node{Kind: KindForIter, Name: induction, Iterable: iterable, Body: body, LoopBindingID: -1}
}

func While(cond *Node, body []*Node) *Node {
	return &Node{Kind: KindWhile, Cond: cond, Body: body, LoopBindingID: -1}
}

func Program(statements ...*Node) *Node {
	return &Node{Kind: KindProgram, Statements: statements}
}
