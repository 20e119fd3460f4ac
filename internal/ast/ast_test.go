package ast

import (
	"testing"

	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

func TestWalkVisitsForRangeChildrenInOrder(t *testing.T) {
	sum := Assign("sum", Binary(OpAdd, Identifier("sum", value.I64, false), Identifier("i", value.I64, false), value.I64, true))
	loop := ForRange("i", Literal(value.I64Val(0)), Literal(value.I64Val(1000)), nil, false, []*Node{sum})

	var kinds []Kind
	Walk(loop, func(n *Node) { kinds = append(kinds, n.Kind) })

	if kinds[0] != KindForRange {
		t.Fatalf("expected root to be visited first, got %v", kinds[0])
	}
	if kinds[len(kinds)-1] != KindIdentifier {
		t.Fatalf("expected traversal to end inside the loop body, got %v", kinds[len(kinds)-1])
	}
}

func TestIsNumericTypeRejectsUnresolvedAndStringTypes(t *testing.T) {
	if IsNumericType(value.I32, false) {
		t.Fatalf("an unresolved type must never be considered numeric")
	}
	if IsNumericType(value.Str, true) {
		t.Fatalf("string is not in the typed-register-eligible set")
	}
	if !IsNumericType(value.F64, true) {
		t.Fatalf("f64 must be numeric-eligible")
	}
}
