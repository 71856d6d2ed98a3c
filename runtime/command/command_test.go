package command

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/runtime/dom"
	"github.com/opal-lang/hyperscript/runtime/eval"
	"github.com/opal-lang/hyperscript/runtime/execution"
	"github.com/opal-lang/hyperscript/runtime/flow"
	"github.com/opal-lang/hyperscript/runtime/parser"
)

// emit evaluates its first argument and outputs it.
func emit(name string) Command {
	return Define(Metadata{Name: name, Category: CategoryUtility},
		func(raw Raw, ev execution.Evaluator, c *execution.Context) (any, error) {
			return Eval(ev, c, raw.Arg(0))
		},
		func(in any, _ *execution.Context) flow.Completion { return flow.Normal(in) },
	)
}

func signal(name string, done flow.Completion) Command {
	return Define(Metadata{Name: name, Category: CategoryControl},
		func(Raw, execution.Evaluator, *execution.Context) (struct{}, error) { return struct{}{}, nil },
		func(struct{}, *execution.Context) flow.Completion { return done },
	)
}

func returns() Command {
	return Define(Metadata{Name: "return", Category: CategoryControl},
		func(raw Raw, ev execution.Evaluator, c *execution.Context) (any, error) {
			return Eval(ev, c, raw.Arg(0))
		},
		func(in any, _ *execution.Context) flow.Completion { return flow.Return(in) },
	)
}

func cmdNode(name string, args ...*ast.Node) *ast.Node {
	return ast.Command(name, args, nil, false)
}

func lit(v any) *ast.Node { return ast.Literal(v, "") }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(emit("toggle"), emit("add"), emit("remove"))

	assert.Equal(t, []string{"add", "remove", "toggle"}, r.Names())
	assert.Error(t, r.Register(emit("add")))
	assert.Panics(t, func() { r.MustRegister(emit("add")) })

	r.Replace(emit("add"))
	_, ok := r.Lookup("add")
	assert.True(t, ok)

	assert.Equal(t, "toggle", r.Suggest("togle"))
	assert.Equal(t, "remove", r.Suggest("rmove"))
	assert.Equal(t, "add", r.Suggest("ad"))
	assert.Equal(t, "", r.Suggest("xyzzy"))
}

func TestUnknownCommand(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(emit("toggle"))
	var logs bytes.Buffer
	d := NewDispatcher(r, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	c := d.NewContext(t.Context())

	done := d.Dispatch(c, cmdNode("togle").At(0, 5, 2, 3))
	require.True(t, done.Failed())

	var unknown *UnknownCommandError
	require.ErrorAs(t, done.Err, &unknown)
	assert.Equal(t, "toggle", unknown.Suggestion)
	assert.EqualError(t, unknown, `unknown command "togle" (did you mean "toggle"?)`)

	var located *Error
	require.ErrorAs(t, done.Err, &located)
	assert.Equal(t, 2, located.Line)
	assert.Equal(t, 3, located.Column)
	assert.Contains(t, logs.String(), "unknown command")
}

// countingEvaluator records how often each node is evaluated from outside
// the evaluator.
type countingEvaluator struct {
	inner execution.Evaluator
	calls map[*ast.Node]int
}

func (e *countingEvaluator) Evaluate(c *execution.Context, n *ast.Node) (any, error) {
	e.calls[n]++
	return e.inner.Evaluate(c, n)
}

func TestParseInputEvaluatesEachArgumentOnce(t *testing.T) {
	type sumInput struct{ Values []float64 }
	sum := Define(Metadata{Name: "sum"},
		func(raw Raw, ev execution.Evaluator, c *execution.Context) (sumInput, error) {
			var in sumInput
			nodes := append([]*ast.Node{}, raw.Args...)
			if by := raw.Modifier("by"); by != nil {
				nodes = append(nodes, by)
			}
			for _, n := range nodes {
				v, err := Eval(ev, c, n)
				if err != nil {
					return in, err
				}
				f, err := eval.ToNumber(v)
				if err != nil {
					return in, Inputf("sum", "%v", err)
				}
				in.Values = append(in.Values, f)
			}
			return in, nil
		},
		func(in sumInput, _ *execution.Context) flow.Completion {
			total := 0.0
			for _, v := range in.Values {
				total += v
			}
			return flow.Normal(total)
		},
	)

	r := NewRegistry()
	r.MustRegister(sum)
	counter := &countingEvaluator{inner: eval.New(), calls: map[*ast.Node]int{}}
	d := NewDispatcher(r, WithEvaluator(counter))
	c := d.NewContext(t.Context())

	a := lit(1.0)
	b := ast.Binary("+", lit(2.0), lit(3.0))
	by := lit(4.0)
	n := ast.Command("sum", []*ast.Node{a, b}, ast.Modifiers(ast.F("by", by)), false)

	done := d.Dispatch(c, n)
	require.False(t, done.Abrupt(), done.String())
	assert.Equal(t, 10.0, done.Value)
	assert.Equal(t, map[*ast.Node]int{a: 1, b: 1, by: 1}, counter.calls)
}

func TestSequenceThreadsIt(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(emit("emit"), emit("echo"))
	d := NewDispatcher(r)
	c := d.NewContext(t.Context())

	seq := ast.Sequence([]*ast.Node{
		cmdNode("emit", lit(5.0)),
		cmdNode("echo", ast.Binary("*", ast.Identifier("it"), lit(2.0))),
	})
	done := d.Run(c, seq)
	require.False(t, done.Abrupt(), done.String())
	assert.Equal(t, 10.0, done.Value)
	assert.Equal(t, 10.0, c.It)
}

func TestSequenceStopsAtSignal(t *testing.T) {
	r := NewRegistry()
	var ran []float64
	r.MustRegister(
		signal("halt", flow.Halt()),
		Define(Metadata{Name: "mark"},
			func(raw Raw, ev execution.Evaluator, c *execution.Context) (float64, error) {
				v, err := Eval(ev, c, raw.Arg(0))
				return v.(float64), err
			},
			func(in float64, _ *execution.Context) flow.Completion {
				ran = append(ran, in)
				return flow.Normal(nil)
			},
		),
	)
	d := NewDispatcher(r)

	done := d.Run(d.NewContext(t.Context()), ast.Sequence([]*ast.Node{
		cmdNode("mark", lit(1.0)),
		cmdNode("halt"),
		cmdNode("mark", lit(2.0)),
	}))
	assert.Equal(t, flow.KindHalt, done.Kind)
	assert.Equal(t, []float64{1}, ran)
}

func TestSequenceHonoursCancellation(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(emit("emit"))
	d := NewDispatcher(r)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	done := d.Run(d.NewContext(ctx), ast.Sequence([]*ast.Node{cmdNode("emit", lit(1.0))}))
	require.True(t, done.Failed())
	assert.ErrorIs(t, done.Err, context.Canceled)
}

func TestParseFailureIsLocated(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(emit("emit"))
	d := NewDispatcher(r)

	n := cmdNode("emit", ast.Binary("-", lit(1.0), lit("abc"))).At(10, 20, 4, 7)
	done := d.Dispatch(d.NewContext(t.Context()), n)
	require.True(t, done.Failed())

	var located *Error
	require.ErrorAs(t, done.Err, &located)
	assert.Equal(t, "emit", located.Command)
	assert.Equal(t, 4, located.Line)
}

func TestInputErrorNamesCommandOnce(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Define(Metadata{Name: "toggle"},
		func(Raw, execution.Evaluator, *execution.Context) (any, error) {
			return nil, Inputf("toggle", "expected a class or attribute")
		},
		func(any, *execution.Context) flow.Completion { return flow.Normal(nil) },
	))
	d := NewDispatcher(r)

	done := d.Dispatch(d.NewContext(t.Context()), cmdNode("toggle").At(0, 6, 1, 1))
	require.True(t, done.Failed())
	assert.EqualError(t, done.Err, "1:1: toggle: expected a class or attribute")
}

func TestDeprecation(t *testing.T) {
	old := Define(Metadata{
		Name:        "old",
		Deprecation: &Deprecation{Since: "0.2.0", RemovedIn: "1.0.0", Replacement: "new"},
	},
		func(Raw, execution.Evaluator, *execution.Context) (any, error) { return nil, nil },
		func(any, *execution.Context) flow.Completion { return flow.Normal("ran") },
	)
	r := NewRegistry()
	r.MustRegister(old)

	t.Run("before deprecation", func(t *testing.T) {
		var logs bytes.Buffer
		d := NewDispatcher(r, WithRuntimeVersion("0.1.0"), WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
		done := d.Dispatch(d.NewContext(t.Context()), cmdNode("old"))
		assert.Equal(t, flow.Normal("ran"), done)
		assert.NotContains(t, logs.String(), "deprecated")
	})

	t.Run("deprecated warns once", func(t *testing.T) {
		var logs bytes.Buffer
		d := NewDispatcher(r, WithRuntimeVersion("v0.5.0"), WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
		c := d.NewContext(t.Context())
		d.Dispatch(c, cmdNode("old"))
		done := d.Dispatch(c, cmdNode("old"))
		assert.Equal(t, flow.Normal("ran"), done)
		assert.Equal(t, 1, strings.Count(logs.String(), "deprecated command"))
	})

	t.Run("removed", func(t *testing.T) {
		d := NewDispatcher(r, WithRuntimeVersion("1.2.0"))
		done := d.Dispatch(d.NewContext(t.Context()), cmdNode("old"))
		require.True(t, done.Failed())
		assert.ErrorIs(t, done.Err, ErrRemoved)
	})
}

type delayInput struct {
	Millis float64 `json:"ms"`
}

func delayCommand() *Adapter[delayInput] {
	return Define(Metadata{
		Name: "delay",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"ms": map[string]any{"type": "number", "minimum": 0}},
			"required":   []any{"ms"},
		},
	},
		func(raw Raw, ev execution.Evaluator, c *execution.Context) (delayInput, error) {
			v, err := Eval(ev, c, raw.Arg(0))
			if err != nil {
				return delayInput{}, err
			}
			ms, _ := v.(float64)
			return delayInput{Millis: ms}, nil
		},
		func(in delayInput, _ *execution.Context) flow.Completion { return flow.Normal(in.Millis) },
	).WithCheck(func(in delayInput) error {
		if in.Millis > 60000 {
			return Inputf("delay", "at most a minute")
		}
		return nil
	})
}

func TestSchemaValidation(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(delayCommand())

	plain := NewDispatcher(r)
	done := plain.Dispatch(plain.NewContext(t.Context()), cmdNode("delay", lit(-5.0)))
	assert.Equal(t, flow.Normal(-5.0), done, "validation is off by default")

	strict := NewDispatcher(r, WithSchemaValidation())
	done = strict.Dispatch(strict.NewContext(t.Context()), cmdNode("delay", lit(-5.0)))
	require.True(t, done.Failed())
	var input *InputError
	assert.ErrorAs(t, done.Err, &input)

	done = strict.Dispatch(strict.NewContext(t.Context()), cmdNode("delay", lit(50.0)))
	assert.Equal(t, flow.Normal(50.0), done)
}

func TestValidateIsSeparatelyCallable(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(delayCommand())
	d := NewDispatcher(r)

	assert.NoError(t, d.Validate("delay", delayInput{Millis: 10}))
	assert.Error(t, d.Validate("delay", delayInput{Millis: -1}), "schema")
	assert.Error(t, d.Validate("delay", delayInput{Millis: 120000}), "check hook")
	assert.Error(t, d.Validate("delay", "not an input"))

	var unknown *UnknownCommandError
	assert.ErrorAs(t, d.Validate("dealy", nil), &unknown)
}

func TestAdapterRejectsForeignInput(t *testing.T) {
	done := delayCommand().Execute("wrong", execution.New(t.Context()))
	require.True(t, done.Failed())
	var input *InputError
	assert.ErrorAs(t, done.Err, &input)
}

func TestDefinedFunctionsAreCallable(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(returns())
	d := NewDispatcher(r)
	c := d.NewContext(t.Context())

	prog := parser.Parse("def double(n) return n * 2 end")
	require.True(t, prog.Success, prog.Error)
	require.False(t, d.Run(c, prog.Node).Abrupt())

	call := parser.Parse("double(4)")
	require.True(t, call.Success, call.Error)
	v, err := c.Evaluate(call.Node)
	require.NoError(t, err)
	assert.Equal(t, 8.0, v)

	_, inScope := c.Lookup("double")
	assert.False(t, inScope, "definitions live in the dispatcher, not in a scope")
}

func TestHandlers(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(signal("halt", flow.Halt()), emit("log"))
	d := NewDispatcher(r)

	res := parser.Parse("on click halt on keyup log event.type behavior B on click log 1 end end")
	require.True(t, res.Success, res.Error)
	handlers := Handlers(res.Node)
	require.Len(t, handlers, 2)
	assert.Equal(t, "click", handlers[0].Str("event"))
	assert.Equal(t, "keyup", handlers[1].Str("event"))

	doc := dom.MustParseHTML(`<button id="b"></button>`)
	c := d.NewContext(t.Context(), execution.WithMe(doc.ByID("b")))

	done := d.HandleEvent(c, handlers[0], dom.NewEvent("click", doc.ByID("b"), nil))
	assert.Equal(t, flow.KindNormal, done.Kind, "halt ends the handler normally")

	done = d.HandleEvent(c, handlers[1], dom.NewEvent("keyup", doc.ByID("b"), nil))
	assert.Equal(t, flow.Normal("keyup"), done)
	assert.Nil(t, c.Event, "the invocation context is separate")
}

func TestRunExpressionsAndErrors(t *testing.T) {
	d := NewDispatcher(NewRegistry())
	c := d.NewContext(t.Context())

	res := parser.Parse("1 + 2")
	require.True(t, res.Success)
	assert.Equal(t, flow.Normal(3.0), d.Run(c, res.Node))

	done := d.Run(c, ast.ErrorNode().At(3, 4, 1, 4))
	require.True(t, done.Failed())
	assert.True(t, strings.Contains(done.Err.Error(), "unparseable"))
	assert.False(t, errors.Is(done.Err, ErrRemoved))
}
