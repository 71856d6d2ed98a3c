package flow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalDiscriminators(t *testing.T) {
	tests := []struct {
		c    Completion
		msg  string
		pick func(*Signal) bool
	}{
		{Break(), MsgBreak, (*Signal).IsBreak},
		{Continue(), MsgContinue, (*Signal).IsContinue},
		{Halt(), MsgHalt, (*Signal).IsHalt},
		{Return(42), MsgReturn, (*Signal).IsReturn},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := tt.c.AsError()
			require.Error(t, err)
			assert.Equal(t, tt.msg, err.Error())
			assert.True(t, IsSignal(err))

			var sig *Signal
			require.ErrorAs(t, err, &sig)
			assert.True(t, tt.pick(sig))

			hits := 0
			for _, is := range []func(*Signal) bool{(*Signal).IsBreak, (*Signal).IsContinue, (*Signal).IsHalt, (*Signal).IsReturn} {
				if is(sig) {
					hits++
				}
			}
			assert.Equal(t, 1, hits, "exactly one discriminator is set")
		})
	}
}

func TestErrorRoundTrip(t *testing.T) {
	wrapped := fmt.Errorf("in tell: %w", Return("done").AsError())
	c := FromError(wrapped)
	assert.Equal(t, KindReturn, c.Kind)
	assert.Equal(t, "done", c.Value)

	boom := errors.New("boom")
	c = FromError(boom)
	assert.True(t, c.Failed())
	assert.Same(t, boom, c.Err)
	assert.False(t, IsSignal(boom))

	assert.Equal(t, Normal(nil), FromError(nil))
	assert.Equal(t, Normal(nil), Fail(nil))
	assert.NoError(t, Normal(1).AsError())
}

func TestLoop(t *testing.T) {
	out, done := Loop(Continue())
	assert.False(t, done)
	assert.False(t, out.Abrupt())

	out, done = Loop(Break())
	assert.True(t, done)
	assert.Equal(t, Normal(nil), out)

	for _, c := range []Completion{Halt(), Return(1), Fail(errors.New("x"))} {
		out, done = Loop(c)
		assert.True(t, done, c.String())
		assert.Equal(t, c, out, "loops pass %s through unchanged", c)
	}
}

func TestBoundaries(t *testing.T) {
	assert.Equal(t, Normal(7), Function(Return(7)))
	assert.Equal(t, Halt(), Function(Halt()))
	assert.True(t, Function(Break()).Failed())

	assert.Equal(t, Normal(nil), Handler(Halt()))
	assert.Equal(t, Normal("v"), Handler(Return("v")))
	assert.True(t, Handler(Continue()).Failed())
	assert.Contains(t, Handler(Continue()).Err.Error(), "continue outside of a loop")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "halt", KindHalt.String())
	assert.True(t, KindReturn.IsSignal())
	assert.False(t, KindFailure.IsSignal())
	assert.Equal(t, "failure(boom)", Fail(errors.New("boom")).String())
}
