// Package flow models how a command finishes. Commands return a Completion:
// a normal result, one of the control-flow signals break, continue, halt and
// return, or a failure. Every component that runs nested commands handles
// the kinds it owns and passes the rest up unchanged.
package flow

import (
	"errors"
	"fmt"
)

// Kind discriminates completions.
type Kind uint8

const (
	KindNormal Kind = iota
	KindBreak
	KindContinue
	KindHalt
	KindReturn
	KindFailure
)

var kindNames = [...]string{"normal", "break", "continue", "halt", "return", "failure"}

func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return fmt.Sprintf("!(BAD KIND: %d)", k)
	}
	return kindNames[k]
}

// IsSignal reports the four control-flow kinds.
func (k Kind) IsSignal() bool {
	return k >= KindBreak && k <= KindReturn
}

// Completion is the outcome of running a command or a command list.
type Completion struct {
	Kind  Kind
	Value any   // result for KindNormal, returned value for KindReturn
	Err   error // set for KindFailure only
}

// Normal completes with a value.
func Normal(v any) Completion { return Completion{Kind: KindNormal, Value: v} }

// Break leaves the innermost loop.
func Break() Completion { return Completion{Kind: KindBreak} }

// Continue skips to the next iteration of the innermost loop.
func Continue() Completion { return Completion{Kind: KindContinue} }

// Halt stops the whole handler.
func Halt() Completion { return Completion{Kind: KindHalt} }

// Return leaves the enclosing function with v.
func Return(v any) Completion { return Completion{Kind: KindReturn, Value: v} }

// Fail completes with an ordinary error. A nil error completes normally.
func Fail(err error) Completion {
	if err == nil {
		return Normal(nil)
	}
	return FromError(err)
}

// Abrupt reports anything other than a normal completion.
func (c Completion) Abrupt() bool { return c.Kind != KindNormal }

// Failed reports an ordinary failure.
func (c Completion) Failed() bool { return c.Kind == KindFailure }

// AsError converts c for APIs that speak error: nil when normal, a *Signal
// for control flow, the failure itself otherwise.
func (c Completion) AsError() error {
	switch {
	case c.Kind == KindNormal:
		return nil
	case c.Kind == KindFailure:
		return c.Err
	}
	return &Signal{Kind: c.Kind, Value: c.Value}
}

func (c Completion) String() string {
	switch c.Kind {
	case KindNormal, KindReturn:
		return fmt.Sprintf("%s(%v)", c.Kind, c.Value)
	case KindFailure:
		return fmt.Sprintf("failure(%v)", c.Err)
	}
	return c.Kind.String()
}

// FromError is the inverse of AsError. Signals wrapped anywhere in err's
// chain become their completion kind.
func FromError(err error) Completion {
	if err == nil {
		return Normal(nil)
	}
	var sig *Signal
	if errors.As(err, &sig) {
		return Completion{Kind: sig.Kind, Value: sig.Value}
	}
	return Completion{Kind: KindFailure, Err: err}
}

// Loop applies the loop rules to one iteration's completion. continue moves
// on to the next iteration; break ends the loop normally; anything else
// abrupt ends the loop and propagates unchanged. done reports whether the
// loop must stop, and out is what the loop completes with when it does.
func Loop(c Completion) (out Completion, done bool) {
	switch c.Kind {
	case KindNormal, KindContinue:
		return Normal(c.Value), false
	case KindBreak:
		return Normal(nil), true
	}
	return c, true
}

// Function turns a return into a normal completion carrying the value.
// Break and continue cannot cross a function boundary and become failures.
func Function(c Completion) Completion {
	switch c.Kind {
	case KindReturn:
		return Normal(c.Value)
	case KindBreak, KindContinue:
		return Completion{Kind: KindFailure, Err: fmt.Errorf("%s outside of a loop", c.Kind)}
	}
	return c
}

// Handler is the outermost boundary: an event handler that halts or returns
// simply finishes.
func Handler(c Completion) Completion {
	switch c.Kind {
	case KindHalt:
		return Normal(nil)
	case KindReturn:
		return Normal(c.Value)
	case KindBreak, KindContinue:
		return Function(c)
	}
	return c
}
