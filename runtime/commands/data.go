package commands

import (
	"errors"
	"strings"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/runtime/command"
	"github.com/opal-lang/hyperscript/runtime/dom"
	"github.com/opal-lang/hyperscript/runtime/eval"
	"github.com/opal-lang/hyperscript/runtime/execution"
	"github.com/opal-lang/hyperscript/runtime/flow"
)

type setInput struct {
	Place eval.Place
	Value any
}

// Set assigns a variable, property or attribute.
func Set() command.Command {
	return command.Define(command.Metadata{
		Name:        "set",
		Category:    command.CategoryData,
		Summary:     "Assign a variable, property or attribute",
		Syntax:      []string{"set <target> to <value>"},
		Examples:    []string{"set $count to 0", "set #out's textContent to 'done'", "set @aria-busy to true"},
		SideEffects: []string{"variable written", "element mutated"},
	},
		func(raw command.Raw, ev execution.Evaluator, c *execution.Context) (setInput, error) {
			if !raw.Has("to") {
				return setInput{}, command.Inputf("set", "missing 'to <value>'")
			}
			place, err := eval.Locate(ev, c, raw.Arg(0))
			if err != nil {
				return setInput{}, command.Inputf("set", "%v", err)
			}
			v, err := ev.Evaluate(c, raw.Modifier("to"))
			return setInput{Place: place, Value: v}, err
		},
		func(in setInput, c *execution.Context) flow.Completion {
			if err := in.Place(in.Value); err != nil {
				return flow.Fail(err)
			}
			return flow.Normal(in.Value)
		},
	)
}

type putInput struct {
	Value    any
	Position string
	Elements []dom.Element
	Place    eval.Place
}

// Put writes a value into an element's content, next to an element, or
// into a variable or property.
func Put() command.Command {
	return command.Define(command.Metadata{
		Name:     "put",
		Category: command.CategoryData,
		Summary:  "Put a value into, before or after a target",
		Syntax:   []string{"put <value> into|before|after <target>"},
		Examples: []string{
			"put 'Saved' into #status",
			"put '<li>new</li>' after the last <li/> in #list",
			"put my value into $draft",
		},
		SideEffects: []string{"element mutated", "variable written"},
	}, parsePut, runPut)
}

func parsePut(raw command.Raw, ev execution.Evaluator, c *execution.Context) (putInput, error) {
	var in putInput
	for _, pos := range []string{"into", "before", "after"} {
		if raw.Has(pos) {
			in.Position = pos
			break
		}
	}
	if in.Position == "" {
		return in, command.Inputf("put", "expected into, before or after")
	}

	v, err := command.Eval(ev, c, raw.Arg(0))
	if err != nil {
		return in, err
	}
	in.Value = v

	target := raw.Modifier(in.Position)
	if in.Position == "into" && !target.Is(ast.TypeSelector) && !target.Is(ast.TypeIdentifier) {
		in.Place, err = eval.Locate(ev, c, target)
		if err != nil {
			return in, command.Inputf("put", "%v", err)
		}
		return in, nil
	}

	if in.Position == "into" && target.Is(ast.TypeIdentifier) {
		// A name holding an element means that element's content;
		// anything else is a variable.
		current, err := ev.Evaluate(c, target)
		if err != nil {
			return in, err
		}
		if _, ok := eval.Unwrap(current).(dom.Element); !ok {
			in.Place, err = eval.Locate(ev, c, target)
			if err != nil {
				return in, command.Inputf("put", "%v", err)
			}
			return in, nil
		}
		in.Elements, err = eval.Elements(eval.Unwrap(current))
		return in, err
	}

	in.Elements, err = targets("put", ev, c, target)
	return in, err
}

func runPut(in putInput, c *execution.Context) flow.Completion {
	if in.Place != nil {
		if err := in.Place(in.Value); err != nil {
			return flow.Fail(err)
		}
		return flow.Normal(in.Value)
	}
	markup := eval.ToString(in.Value)
	for _, el := range in.Elements {
		var err error
		if in.Position == "into" {
			err = el.SetHTML(markup)
		} else {
			err = el.Insert(in.Position, markup)
		}
		if err != nil {
			return flow.Fail(err)
		}
	}
	return flow.Normal(in.Value)
}

type stepInput struct {
	Place eval.Place
	Value float64
}

// Increment adds to a numeric variable or property. Unset targets count
// as zero.
func Increment() command.Command { return step("increment", 1) }

// Decrement subtracts from a numeric variable or property.
func Decrement() command.Command { return step("decrement", -1) }

func step(name string, sign float64) command.Command {
	return command.Define(command.Metadata{
		Name:        name,
		Category:    command.CategoryData,
		Summary:     strings.ToUpper(name[:1]) + name[1:] + " a number",
		Syntax:      []string{name + " <target> [by <amount>]"},
		Examples:    []string{name + " $count", name + " my value by 5"},
		SideEffects: []string{"variable written"},
	},
		func(raw command.Raw, ev execution.Evaluator, c *execution.Context) (stepInput, error) {
			target := raw.Arg(0)
			if target == nil {
				return stepInput{}, command.Inputf(name, "missing target")
			}
			current, place, err := eval.LocateValue(ev, c, target)
			if err != nil {
				var located *eval.Error
				if flow.IsSignal(err) || errors.As(err, &located) {
					return stepInput{}, err
				}
				return stepInput{}, command.Inputf(name, "%v", err)
			}
			base := 0.0
			if !eval.IsNull(current) {
				if base, err = eval.ToNumber(current); err != nil {
					return stepInput{}, command.Inputf(name, "%v", err)
				}
			}

			by := 1.0
			if raw.Has("by") {
				amount, err := ev.Evaluate(c, raw.Modifier("by"))
				if err != nil {
					return stepInput{}, err
				}
				if by, err = eval.ToNumber(amount); err != nil {
					return stepInput{}, command.Inputf(name, "by: %v", err)
				}
			}

			return stepInput{Place: place, Value: base + sign*by}, nil
		},
		func(in stepInput, _ *execution.Context) flow.Completion {
			if err := in.Place(in.Value); err != nil {
				return flow.Fail(err)
			}
			return flow.Normal(in.Value)
		},
	)
}

// Log writes its arguments to the context logger at info level.
func Log() command.Command {
	return command.Define(command.Metadata{
		Name:        "log",
		Category:    command.CategoryUtility,
		Summary:     "Log values",
		Syntax:      []string{"log <value> [, <value> ...]"},
		Examples:    []string{"log 'clicked', event.type"},
		SideEffects: []string{"log output"},
	},
		func(raw command.Raw, ev execution.Evaluator, c *execution.Context) ([]any, error) {
			vals := make([]any, 0, len(raw.Args))
			for _, arg := range raw.Args {
				v, err := ev.Evaluate(c, arg)
				if err != nil {
					return nil, err
				}
				vals = append(vals, v)
			}
			return vals, nil
		},
		func(vals []any, c *execution.Context) flow.Completion {
			parts := make([]string, len(vals))
			for i, v := range vals {
				parts[i] = eval.ToString(v)
			}
			c.Logger.Info(strings.Join(parts, " "), "source", "script")
			return passThrough(c)
		},
	)
}

// Call evaluates an expression for its result, which becomes it.
func Call() command.Command { return valueCommand("call", "Call a function and keep the result", "call save(me)") }

// Get is Call under another name.
func Get() command.Command { return valueCommand("get", "Evaluate an expression into it", "get #input's value") }

func valueCommand(name, summary, example string) command.Command {
	return command.Define(command.Metadata{
		Name:     name,
		Category: command.CategoryData,
		Summary:  summary,
		Syntax:   []string{name + " <expression>"},
		Examples: []string{example},
	},
		func(raw command.Raw, ev execution.Evaluator, c *execution.Context) (any, error) {
			if raw.Arg(0) == nil {
				return nil, command.Inputf(name, "missing expression")
			}
			return ev.Evaluate(c, raw.Arg(0))
		},
		func(v any, _ *execution.Context) flow.Completion { return flow.Normal(v) },
	)
}
