package vmerr

import (
	"strings"
	"testing"

	goerrors "errors"
)

func TestErrorFormattingIncludesCategoryCodeMessageAndSpan(t *testing.T) {
	e := TypeMismatchf(SourceSpan{File: "main.orus", Line: 4, Column: 9}, "expected i32, got %s", "string")
	msg := e.Error()

	if !strings.Contains(msg, "TYPE MISMATCH") {
		t.Fatalf("expected category in message, got %q", msg)
	}
	if !strings.Contains(msg, "main.orus:4:9") {
		t.Fatalf("expected single source span in message, got %q", msg)
	}
	if !strings.Contains(msg, "expected i32, got string") {
		t.Fatalf("expected formatted message, got %q", msg)
	}
}

func TestWrapPreservesUnderlyingCause(t *testing.T) {
	cause := goerrors.New("file not found")
	e := Wrap(IOFailure, cause, SourceSpan{})

	if goerrors.Unwrap(e).Error() != "file not found" {
		t.Fatalf("expected Unwrap to reach the wrapped cause")
	}
}
