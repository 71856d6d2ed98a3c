package invariant_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/opal-lang/hyperscript/core/invariant"
)

// expectPanic runs fn and returns the recovered panic message.
func expectPanic(t *testing.T, fn func()) (msg string) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		msg = fmt.Sprintf("%v", r)
	}()
	fn()
	return ""
}

func TestPreconditionPass(t *testing.T) {
	invariant.Precondition(true, "this should pass")
	invariant.Precondition(len("add") > 0, "command name not empty")
}

func TestPreconditionFail(t *testing.T) {
	msg := expectPanic(t, func() {
		invariant.Precondition(false, "command name must not be empty")
	})
	if !strings.Contains(msg, "PRECONDITION VIOLATION") {
		t.Errorf("expected PRECONDITION VIOLATION, got: %s", msg)
	}
	if !strings.Contains(msg, "command name must not be empty") {
		t.Errorf("expected custom message, got: %s", msg)
	}
	if !strings.Contains(msg, "invariant_test.go:") {
		t.Errorf("expected call site, got: %s", msg)
	}
}

func TestPostconditionFail(t *testing.T) {
	msg := expectPanic(t, func() {
		invariant.Postcondition(false, "result must hold a node")
	})
	if !strings.Contains(msg, "POSTCONDITION VIOLATION") {
		t.Errorf("expected POSTCONDITION VIOLATION, got: %s", msg)
	}
}

func TestInvariantFormatted(t *testing.T) {
	msg := expectPanic(t, func() {
		invariant.Invariant(false, "parser stuck at token %d (%s)", 42, "EOF")
	})
	if !strings.Contains(msg, "INVARIANT VIOLATION: parser stuck at token 42 (EOF)") {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestNotNil(t *testing.T) {
	s := "me"
	invariant.NotNil(&s, "ptr")
	invariant.NotNil([]int{1}, "slice")

	tests := []struct {
		name  string
		value any
	}{
		{"untyped nil", nil},
		{"typed nil pointer", (*string)(nil)},
		{"nil map", map[string]any(nil)},
		{"nil func", (func())(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := expectPanic(t, func() { invariant.NotNil(tt.value, "node") })
			if !strings.Contains(msg, "node must not be nil") {
				t.Errorf("unexpected message: %s", msg)
			}
		})
	}
}

func TestExpectNoError(t *testing.T) {
	invariant.ExpectNoError(nil, "encode")

	msg := expectPanic(t, func() { invariant.ExpectNoError(errors.New("boom"), "encode") })
	if !strings.Contains(msg, "encode must not fail: boom") {
		t.Errorf("unexpected message: %s", msg)
	}
}
