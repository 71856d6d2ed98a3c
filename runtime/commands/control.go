package commands

import (
	"math"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/runtime/command"
	"github.com/opal-lang/hyperscript/runtime/dom"
	"github.com/opal-lang/hyperscript/runtime/eval"
	"github.com/opal-lang/hyperscript/runtime/execution"
	"github.com/opal-lang/hyperscript/runtime/flow"
)

type branchInput struct {
	Body *ast.Node
}

// If runs its then-body when the condition is truthy, else its else-body.
func If() command.Command { return branch("if", false) }

// Unless is If with the condition negated.
func Unless() command.Command { return branch("unless", true) }

func branch(name string, negate bool) command.Command {
	return command.Define(command.Metadata{
		Name:     name,
		Category: command.CategoryControl,
		Summary:  "Run commands conditionally",
		Syntax:   []string{name + " <condition> [then] <commands> [else <commands>] end"},
		Examples: []string{name + " I match .active then remove .active else add .active end"},
	},
		func(raw command.Raw, ev execution.Evaluator, c *execution.Context) (branchInput, error) {
			if raw.Arg(0) == nil {
				return branchInput{}, command.Inputf(name, "missing condition")
			}
			v, err := ev.Evaluate(c, raw.Arg(0))
			if err != nil {
				return branchInput{}, err
			}
			if eval.Truthy(v) != negate {
				return branchInput{Body: raw.Modifier("then")}, nil
			}
			return branchInput{Body: raw.Modifier("else")}, nil
		},
		func(in branchInput, c *execution.Context) flow.Completion {
			if in.Body == nil {
				return passThrough(c)
			}
			return c.RunNode(in.Body)
		},
	)
}

type loopMode int

const (
	loopTimes loopMode = iota
	loopWhile
	loopUntil
	loopForever
	loopEach
)

type loopInput struct {
	Mode  loopMode
	Times int
	Cond  *ast.Node
	Var   string
	Items []any
	Body  *ast.Node
}

// Repeat is the general loop: N times, while, until, forever, or over a
// collection.
func Repeat() command.Command {
	return command.Define(command.Metadata{
		Name:     "repeat",
		Category: command.CategoryControl,
		Summary:  "Run commands in a loop",
		Syntax: []string{
			"repeat <n> times <commands> end",
			"repeat while|until <condition> <commands> end",
			"repeat for <name> in <collection> <commands> end",
			"repeat forever <commands> end",
		},
		Examples: []string{"repeat 3 times add .tick then wait 1s end"},
	}, parseRepeat, runLoop)
}

func parseRepeat(raw command.Raw, ev execution.Evaluator, c *execution.Context) (loopInput, error) {
	in := loopInput{Body: raw.Modifier("body")}
	if in.Body == nil {
		return in, command.Inputf("repeat", "missing loop body")
	}

	switch {
	case raw.Has("forever"):
		in.Mode = loopForever
	case raw.Has("while"):
		in.Mode, in.Cond = loopWhile, raw.Modifier("while")
	case raw.Has("until"):
		in.Mode, in.Cond = loopUntil, raw.Modifier("until")
	case raw.Has("in"):
		return eachInput("repeat", raw, ev, c, in)
	case raw.Has("times"):
		v, err := command.Eval(ev, c, raw.Arg(0))
		if err != nil {
			return in, err
		}
		n, err := eval.ToNumber(v)
		if err != nil || math.IsNaN(n) {
			return in, command.Inputf("repeat", "repeat count must be a number, got %s", eval.TypeName(v))
		}
		in.Mode, in.Times = loopTimes, int(max(n, 0))
	default:
		return in, command.Inputf("repeat", "expected times, while, until, for, in or forever")
	}
	return in, nil
}

// For iterates a collection, binding each item to a local name.
func For() command.Command {
	return command.Define(command.Metadata{
		Name:     "for",
		Category: command.CategoryControl,
		Summary:  "Run commands for each item of a collection",
		Syntax:   []string{"for [each] <name> in <collection> <commands> end"},
		Examples: []string{"for item in .todo add .done to item end"},
	},
		func(raw command.Raw, ev execution.Evaluator, c *execution.Context) (loopInput, error) {
			in := loopInput{Body: raw.Modifier("body")}
			if in.Body == nil {
				return in, command.Inputf("for", "missing loop body")
			}
			return eachInput("for", raw, ev, c, in)
		},
		runLoop,
	)
}

// eachInput evaluates the collection once. The loop variable is optional
// for repeat; without it each item becomes it.
func eachInput(name string, raw command.Raw, ev execution.Evaluator, c *execution.Context, in loopInput) (loopInput, error) {
	in.Mode = loopEach
	if v := raw.Arg(0); v != nil {
		if !v.Is(ast.TypeIdentifier) || v.IsError() {
			return in, command.Inputf(name, "loop variable must be a name")
		}
		in.Var = v.Str("name")
	}
	coll, err := command.Eval(ev, c, raw.Modifier("in"))
	if err != nil {
		return in, err
	}
	in.Items = items(coll)
	return in, nil
}

func runLoop(in loopInput, c *execution.Context) flow.Completion {
	for i := 0; ; i++ {
		if err := c.Err(); err != nil {
			return flow.Fail(err)
		}

		switch in.Mode {
		case loopTimes:
			if i >= in.Times {
				return passThrough(c)
			}
		case loopEach:
			if i >= len(in.Items) {
				return passThrough(c)
			}
			if err := bind(c, in.Var, in.Items[i]); err != nil {
				return flow.Fail(err)
			}
		case loopWhile, loopUntil:
			v, err := c.Evaluate(in.Cond)
			if err != nil {
				return flow.FromError(err)
			}
			if eval.Truthy(v) != (in.Mode == loopWhile) {
				return passThrough(c)
			}
		}

		out, stop := flow.Loop(c.RunNode(in.Body))
		if stop {
			if out.Kind == flow.KindNormal {
				return passThrough(c)
			}
			return out
		}
	}
}

func bind(c *execution.Context, name string, item any) error {
	if name == "" {
		c.It = item
		return nil
	}
	return c.Locals.Set(name, item)
}

type noInput struct{}

func parseNothing(command.Raw, execution.Evaluator, *execution.Context) (noInput, error) {
	return noInput{}, nil
}

// Break leaves the innermost loop.
func Break() command.Command {
	return command.Define(command.Metadata{
		Name:     "break",
		Category: command.CategoryControl,
		Summary:  "Leave the innermost loop",
		Syntax:   []string{"break"},
		Examples: []string{"repeat forever if done break end end"},
	}, parseNothing, func(noInput, *execution.Context) flow.Completion { return flow.Break() })
}

// Continue skips to the next iteration of the innermost loop.
func Continue() command.Command {
	return command.Define(command.Metadata{
		Name:     "continue",
		Category: command.CategoryControl,
		Summary:  "Skip to the next loop iteration",
		Syntax:   []string{"continue"},
		Examples: []string{"for x in items if x is empty continue end log x end"},
	}, parseNothing, func(noInput, *execution.Context) flow.Completion { return flow.Continue() })
}

type haltInput struct {
	Target   any
	Explicit bool
}

// Halt has two behaviors. Given a target that can be halted like an event
// (`halt the event`), it suppresses the event's default and propagation
// and the script carries on. Otherwise it stops the script; a plain `halt`
// also suppresses the triggering event when there is one.
func Halt() command.Command {
	return command.Define(command.Metadata{
		Name:        "halt",
		Category:    command.CategoryControl,
		Summary:     "Suppress an event, or stop the script",
		Syntax:      []string{"halt", "halt the event"},
		Examples:    []string{"on submit halt the event then send save"},
		SideEffects: []string{"event default prevented", "event propagation stopped"},
	},
		func(raw command.Raw, ev execution.Evaluator, c *execution.Context) (haltInput, error) {
			if raw.Arg(0) == nil {
				return haltInput{}, nil
			}
			v, err := ev.Evaluate(c, raw.Arg(0))
			return haltInput{Target: v, Explicit: true}, err
		},
		func(in haltInput, c *execution.Context) flow.Completion {
			if in.Explicit {
				if dom.IsEvent(in.Target) {
					suppress(in.Target.(dom.Suppressor))
					return passThrough(c)
				}
				return flow.Halt()
			}
			if c.Event != nil {
				suppress(c.Event)
			}
			return flow.Halt()
		},
	)
}

func suppress(s dom.Suppressor) {
	s.PreventDefault()
	s.StopPropagation()
}

// Return leaves the enclosing function or handler with a value.
func Return() command.Command {
	return command.Define(command.Metadata{
		Name:     "return",
		Category: command.CategoryControl,
		Summary:  "Return a value from a function",
		Syntax:   []string{"return [<value>]"},
		Examples: []string{"def double(n) return n * 2 end"},
	},
		func(raw command.Raw, ev execution.Evaluator, c *execution.Context) (any, error) {
			return command.Eval(ev, c, raw.Arg(0))
		},
		func(v any, _ *execution.Context) flow.Completion { return flow.Return(v) },
	)
}

// Exit leaves the enclosing function or handler without a value.
func Exit() command.Command {
	return command.Define(command.Metadata{
		Name:     "exit",
		Category: command.CategoryControl,
		Summary:  "Leave the function or handler",
		Syntax:   []string{"exit"},
		Examples: []string{"on click if I match .busy exit end add .busy"},
	}, parseNothing, func(noInput, *execution.Context) flow.Completion { return flow.Return(nil) })
}

type tellInput struct {
	Targets []dom.Element
	Body    *ast.Node
}

// Tell runs its body once per target with me and you bound to it. Locals
// stay shared with the enclosing script.
func Tell() command.Command {
	return command.Define(command.Metadata{
		Name:     "tell",
		Category: command.CategoryControl,
		Summary:  "Run commands against other elements",
		Syntax:   []string{"tell <target> <commands> end"},
		Examples: []string{"tell <li/> in #list add .seen end"},
	},
		func(raw command.Raw, ev execution.Evaluator, c *execution.Context) (tellInput, error) {
			if raw.Arg(0) == nil {
				return tellInput{}, command.Inputf("tell", "missing target")
			}
			els, err := targets("tell", ev, c, raw.Arg(0))
			return tellInput{Targets: els, Body: raw.Modifier("body")}, err
		},
		func(in tellInput, c *execution.Context) flow.Completion {
			for _, el := range in.Targets {
				if done := c.Derive(el, el).RunNode(in.Body); done.Abrupt() {
					return done
				}
			}
			return passThrough(c)
		},
	)
}
