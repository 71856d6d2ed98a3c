package commands

import (
	"errors"
	"time"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/runtime/command"
	"github.com/opal-lang/hyperscript/runtime/dom"
	"github.com/opal-lang/hyperscript/runtime/eval"
	"github.com/opal-lang/hyperscript/runtime/execution"
	"github.com/opal-lang/hyperscript/runtime/flow"
)

// ErrNoSink is returned by send and trigger when the context has nowhere to
// deliver events.
var ErrNoSink = errors.New("no event sink")

type sendInput struct {
	Event   string
	Detail  any
	Targets []dom.Element
}

// Send dispatches a named event to the targets, me by default.
func Send() command.Command { return sender("send", "to") }

// Trigger is send with `on` for the target.
func Trigger() command.Command { return sender("trigger", "on") }

func sender(name, targetKeyword string) command.Command {
	return command.Define(command.Metadata{
		Name:        name,
		Category:    command.CategoryEvents,
		Summary:     "Dispatch an event",
		Syntax:      []string{name + " <event> [with <detail>] [" + targetKeyword + " <target>]"},
		Examples:    []string{name + " refresh " + targetKeyword + " #list", name + " saved with {id: 4}"},
		SideEffects: []string{"event dispatched"},
	},
		func(raw command.Raw, ev execution.Evaluator, c *execution.Context) (sendInput, error) {
			var in sendInput
			switch arg := raw.Arg(0); {
			case arg == nil:
				return in, command.Inputf(name, "missing event name")
			case arg.Is(ast.TypeIdentifier) && !arg.IsError():
				in.Event = arg.Str("name")
			case arg.Is(ast.TypeLiteral):
				s, ok := arg.Value("value").(string)
				if !ok || s == "" {
					return in, command.Inputf(name, "event name must be a non-empty string")
				}
				in.Event = s
			default:
				return in, command.Inputf(name, "expected an event name, got %s", arg.Type)
			}

			detail, err := command.Eval(ev, c, raw.Modifier("with"))
			if err != nil {
				return in, err
			}
			in.Detail = detail
			in.Targets, err = targets(name, ev, c, raw.Modifier(targetKeyword))
			return in, err
		},
		func(in sendInput, c *execution.Context) flow.Completion {
			if c.Sink == nil {
				return flow.Fail(ErrNoSink)
			}
			for _, el := range in.Targets {
				if err := c.Sink.Dispatch(el, dom.NewEvent(in.Event, el, in.Detail)); err != nil {
					return flow.Fail(err)
				}
			}
			return passThrough(c)
		},
	)
}

type waitInput struct {
	Millis float64 `json:"ms"`
}

// MaxWait bounds a single wait.
const MaxWait = time.Hour

// Wait pauses the script. It returns early with the context's error when
// the invocation is cancelled.
func Wait() command.Command {
	return command.Define(command.Metadata{
		Name:     "wait",
		Category: command.CategoryAsync,
		Summary:  "Pause for a duration",
		Syntax:   []string{"wait <duration>"},
		Examples: []string{"wait 200ms", "add .flash then wait 1s then remove .flash"},
		Schema: map[string]any{
			"type":     "object",
			"required": []any{"ms"},
			"properties": map[string]any{
				"ms": map[string]any{"type": "number", "minimum": 0},
			},
		},
	},
		func(raw command.Raw, ev execution.Evaluator, c *execution.Context) (waitInput, error) {
			if raw.Arg(0) == nil {
				return waitInput{}, command.Inputf("wait", "missing duration")
			}
			v, err := ev.Evaluate(c, raw.Arg(0))
			if err != nil {
				return waitInput{}, err
			}
			ms, err := eval.ToNumber(v)
			if err != nil {
				return waitInput{}, command.Inputf("wait", "%v", err)
			}
			return waitInput{Millis: ms}, nil
		},
		func(in waitInput, c *execution.Context) flow.Completion {
			d := time.Duration(in.Millis * float64(time.Millisecond))
			if d <= 0 {
				return passThrough(c)
			}
			timer := time.NewTimer(min(d, MaxWait))
			defer timer.Stop()
			select {
			case <-c.Done():
				return flow.Fail(c.Err())
			case <-timer.C:
				return passThrough(c)
			}
		},
	).WithCheck(func(in waitInput) error {
		if in.Millis < 0 {
			return command.Inputf("wait", "duration must not be negative")
		}
		if time.Duration(in.Millis*float64(time.Millisecond)) > MaxWait {
			return command.Inputf("wait", "duration exceeds %s", MaxWait)
		}
		return nil
	})
}
