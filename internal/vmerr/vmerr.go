// Package vmerr defines the runtime error kinds and formatting the
// interpreter surfaces, covering the kinds the register VM actually
// raises.
package vmerr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/jordyorel/orus-lang-sub009/internal/value"
)

// Kind enumerates the runtime error kinds spec §7 names: "type mismatch
// ..., arithmetic overflow ..., index out of bounds ..., undefined
// global, call arity mismatch, I/O failure, stack/frame depth exceeded,
// allocation failure". Compile-time kinds are a separate, unspecified
// registry per spec §7 and are not modeled here.
type Kind uint8

const (
	TypeMismatch Kind = iota
	ArithmeticOverflow
	DivisionByZero
	IndexOutOfBounds
	UndefinedGlobal
	ArityMismatch
	IOFailure
	StackDepthExceeded
	AllocationFailure
	AssertionFailed
)

// category and code implement spec §7's user-visible formatting: "domain
// category (RUNTIME PANIC / TYPE MISMATCH / ...) + numeric code +
// message + single source span".
func (k Kind) category() string {
	switch k {
	case TypeMismatch:
		return "TYPE MISMATCH"
	case ArithmeticOverflow:
		return "ARITHMETIC OVERFLOW"
	case DivisionByZero:
		return "DIVISION BY ZERO"
	case IndexOutOfBounds:
		return "INDEX OUT OF BOUNDS"
	case UndefinedGlobal:
		return "UNDEFINED GLOBAL"
	case ArityMismatch:
		return "ARITY MISMATCH"
	case IOFailure:
		return "I/O FAILURE"
	case StackDepthExceeded:
		return "STACK DEPTH EXCEEDED"
	case AllocationFailure:
		return "RUNTIME PANIC"
	case AssertionFailed:
		return "ASSERTION FAILED"
	default:
		return "RUNTIME PANIC"
	}
}

func (k Kind) code() int {
	return 1000 + int(k)
}

// SourceSpan is the single source span spec §7's formatting requires.
type SourceSpan struct {
	File   string
	Line   int
	Column int
}

func (s SourceSpan) String() string {
	if s.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// RuntimeError is the `{kind, message, source_location}` error object
// spec §7 describes, stored at `vm.last_error` and unwound to the
// handler of the innermost active try region.
type RuntimeError struct {
	Kind     Kind
	Message  string
	Location SourceSpan

	// cause, when set, is the underlying Go error this RuntimeError
	// wraps (e.g. an *os.PathError from an I/O intrinsic), preserved via
	// pkg/errors so callers can still Unwrap/Cause through to it.
	cause error
}

func New(kind Kind, message string, loc SourceSpan) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: message, Location: loc}
}

// MessageValue returns the error's message as a value.Value, for GC
// rooting purposes (spec §4.1's "(c) vm.last_error" root): the message
// string is an ordinary Str value here, not a heap object, so the
// allocator never needs to retain it separately from the RuntimeError
// itself, but exposing it as a Value keeps WalkRoots uniform over
// whatever a future error-object payload (e.g. a heap-allocated error
// object) turns out to need.
func (e *RuntimeError) MessageValue() value.Value {
	return value.StrVal(e.Message)
}

// Wrap builds a RuntimeError of the given kind whose message is cause's
// text and whose Unwrap/Cause return cause with a stack attached.
func Wrap(kind Kind, cause error, loc SourceSpan) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: cause.Error(), Location: loc, cause: errors.WithStack(cause)}
}

func (e *RuntimeError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.category())
	sb.WriteString(fmt.Sprintf(" [E%d]: %s", e.Kind.code(), e.Message))
	if span := e.Location.String(); span != "" {
		sb.WriteString(" (")
		sb.WriteString(span)
		sb.WriteString(")")
	}
	return sb.String()
}

// Unwrap lets errors.Is/errors.As (stdlib or pkg/errors) reach the
// wrapped Go-level cause, if any.
func (e *RuntimeError) Unwrap() error { return e.cause }

// Cause implements the pkg/errors causer interface for callers still
// using errors.Cause rather than the stdlib Unwrap chain.
func (e *RuntimeError) Cause() error { return e.cause }

func TypeMismatchf(loc SourceSpan, format string, args ...interface{}) *RuntimeError {
	return New(TypeMismatch, fmt.Sprintf(format, args...), loc)
}

func IndexOutOfBoundsf(loc SourceSpan, format string, args ...interface{}) *RuntimeError {
	return New(IndexOutOfBounds, fmt.Sprintf(format, args...), loc)
}

func ArityMismatchf(loc SourceSpan, format string, args ...interface{}) *RuntimeError {
	return New(ArityMismatch, fmt.Sprintf(format, args...), loc)
}

func UndefinedGlobalf(loc SourceSpan, format string, args ...interface{}) *RuntimeError {
	return New(UndefinedGlobal, fmt.Sprintf(format, args...), loc)
}
