package eval

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/runtime/dom"
	"github.com/opal-lang/hyperscript/runtime/execution"
	"github.com/opal-lang/hyperscript/runtime/flow"
	"github.com/opal-lang/hyperscript/runtime/parser"
)

const page = `
<div id="box" class="card">
  <ul id="list">
    <li id="one" class="item">one</li>
    <li id="two" class="item sel">two</li>
    <li id="three" class="item">three</li>
  </ul>
  <form id="form">
    <input id="name" name="name" value="ada">
    <input type="checkbox" name="agree" value="yes" checked>
    <input type="checkbox" name="spam" value="yes">
    <input name="tag" value="a">
    <input name="tag" value="b">
  </form>
</div>`

func newContext(t *testing.T, opts ...execution.Option) *execution.Context {
	t.Helper()
	base := []execution.Option{execution.WithEvaluator(New())}
	return execution.New(t.Context(), append(base, opts...)...)
}

func evaluate(t *testing.T, c *execution.Context, source string) any {
	t.Helper()
	res := parser.Parse(source)
	require.True(t, res.Success, "parse %q: %v", source, res.Error)
	v, err := c.Evaluate(res.Node)
	require.NoError(t, err, source)
	return v
}

func evaluateErr(t *testing.T, c *execution.Context, source string) error {
	t.Helper()
	res := parser.Parse(source)
	require.True(t, res.Success, "parse %q: %v", source, res.Error)
	_, err := c.Evaluate(res.Node)
	require.Error(t, err, source)
	return err
}

func TestOperators(t *testing.T) {
	tests := []struct {
		source string
		want   any
	}{
		{"2 + 3 * 4", 14.0},
		{"(2 + 3) * 4", 20.0},
		{"'a' + 1", "a1"},
		{"'5' - 2", 3.0},
		{"10 mod 4", 2.0},
		{"7 / 2", 3.5},
		{"1 < 2 and 3 >= 3", true},
		{"'b' > 'a'", true},
		{"1 == '1'", true},
		{"1 === '1'", false},
		{"1 is 1", true},
		{"1 is not 2", true},
		{"null or 'fallback'", "fallback"},
		{"0 and 1", 0.0},
		{"not true", false},
		{"-(-3)", 3.0},
		{"'3.9' as Int", 3.0},
		{"'2.5' as Float", 2.5},
		{"12 as String", "12"},
		{"[1, 2] as JSON", "[1,2]"},
		{`'{"a": 1}' as JSON`, map[string]any{"a": 1.0}},
		{"[1, 2, 3] contains 2", true},
		{"2 in [1, 2]", true},
		{"2 is in [1, 2]", true},
		{"3 is not in [1, 2]", true},
		{`"abc"'s length`, 3.0},
		{"'hello' contains 'ell'", true},
		{"'hello' does not contain 'z'", true},
		{"'abc' matches '^a'", true},
		{"[1, 2, 3][1]", 2.0},
		{"(if 2 > 1 then 'big' else 'small')", "big"},
		{"[] is empty", true},
		{"'x' is not empty", true},
		{"null exists", false},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, evaluate(t, newContext(t), tt.source))
		})
	}
}

func TestUnboundIdentifierIsNotFound(t *testing.T) {
	c := newContext(t)
	v := evaluate(t, c, "missing")
	assert.True(t, IsNotFound(v))
	assert.Equal(t, false, evaluate(t, c, "missing exists"))
	assert.Equal(t, true, evaluate(t, c, "no missing"))

	require.NoError(t, c.Assign("n", 0.0))
	assert.Equal(t, true, evaluate(t, c, "n exists"), "falsy but set")
}

func TestVariablesAndAssignment(t *testing.T) {
	c := newContext(t)
	require.NoError(t, c.Assign("items", []any{1.0, 2.0, 3.0}))

	assert.Equal(t, 3.0, evaluate(t, c, "items.length"))
	assert.Equal(t, 6.0, evaluate(t, c, "x = items.length * 2"))

	x, ok := c.Locals.Get("x")
	require.True(t, ok)
	assert.Equal(t, 6.0, x)

	evaluate(t, c, "$total = 10")
	g, ok := c.Globals.Get("total")
	require.True(t, ok)
	assert.Equal(t, 10.0, g)

	evaluate(t, c, "items[0] = 'first'")
	assert.Equal(t, "first", evaluate(t, c, "items[0]"))
}

func TestSelectors(t *testing.T) {
	doc := dom.MustParseHTML(page)
	c := newContext(t, execution.WithDocument(doc))

	box := evaluate(t, c, "#box")
	assert.Same(t, doc.ByID("box"), box)

	items := evaluate(t, c, ".item")
	require.IsType(t, []dom.Element{}, items)
	assert.Len(t, items, 3)
	assert.True(t, IsCollection(items))

	assert.Nil(t, evaluate(t, c, "#missing"))
	assert.Equal(t, []dom.Element{}, evaluate(t, c, "<table/>"))
	assert.Equal(t, false, evaluate(t, c, "<table/> exists"))
	assert.Equal(t, true, evaluate(t, c, ".sel exists"))
}

func TestSelectorWithoutDocument(t *testing.T) {
	err := evaluateErr(t, newContext(t), "#box")
	var located *Error
	require.ErrorAs(t, err, &located)
	assert.Equal(t, ast.TypeSelector, located.Type)
	assert.Equal(t, 1, located.Line)
}

func TestProperties(t *testing.T) {
	doc := dom.MustParseHTML(page)
	c := newContext(t, execution.WithDocument(doc), execution.WithMe(doc.ByID("two")))

	assert.Equal(t, "box", evaluate(t, c, "#box's id"))
	assert.Equal(t, "card", evaluate(t, c, "#box's @class"))
	assert.Equal(t, "ada", evaluate(t, c, "the value of #name"))
	assert.Equal(t, "two", evaluate(t, c, "my id"))
	assert.Equal(t, "item sel", evaluate(t, c, "@class"))
	assert.Equal(t, []any{"one", "two", "three"}, evaluate(t, c, ".item's id"))

	evaluate(t, c, "#name's value = 'bob'")
	v, _ := doc.ByID("name").Property("value")
	assert.Equal(t, "bob", v)

	evaluate(t, c, "@data-state = 'open'")
	state, _ := doc.ByID("two").Attr("data-state")
	assert.Equal(t, "open", state)
}

func TestNavigation(t *testing.T) {
	doc := dom.MustParseHTML(page)
	c := newContext(t, execution.WithDocument(doc), execution.WithMe(doc.ByID("two")))

	tests := []struct {
		source string
		wantID string
	}{
		{"next .item", "three"},
		{"previous .item", "one"},
		{"closest <div/>", "box"},
		{"closest <li/>", "two"},
		{"first <li/> in #list", "one"},
		{"last .item", "three"},
		{"first(.item)", "one"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			el, ok := evaluate(t, c, tt.source).(dom.Element)
			require.True(t, ok)
			assert.Equal(t, tt.wantID, el.ID())
		})
	}

	assert.Nil(t, evaluate(t, c, "next <table/>"))
	assert.Equal(t, 1.0, evaluate(t, c, "first([1, 2])"))
	assert.Nil(t, evaluate(t, c, "last([])"))
}

func TestMatchesAndContains(t *testing.T) {
	doc := dom.MustParseHTML(page)
	c := newContext(t, execution.WithDocument(doc), execution.WithMe(doc.ByID("two")))

	assert.Equal(t, true, evaluate(t, c, "me matches .sel"))
	assert.Equal(t, false, evaluate(t, c, "me matches .missing"))
	assert.Equal(t, true, evaluate(t, c, "I match .sel"))
	assert.Equal(t, true, evaluate(t, c, ".item matches <li/>"))
	assert.Equal(t, true, evaluate(t, c, "#list contains me"))
	assert.Equal(t, false, evaluate(t, c, "#form contains me"))
}

func TestValuesConversion(t *testing.T) {
	doc := dom.MustParseHTML(page)
	c := newContext(t, execution.WithDocument(doc))

	got := evaluate(t, c, "#form as Values")
	assert.Equal(t, map[string]any{
		"name":  "ada",
		"agree": "yes",
		"tag":   []any{"a", "b"},
	}, got)
}

func TestCustomConversion(t *testing.T) {
	c := execution.New(t.Context(), execution.WithEvaluator(New(
		WithConversion("Upper", func(v any) (any, error) { return "UP:" + ToString(v), nil }),
	)))
	assert.Equal(t, "UP:x", evaluate(t, c, "'x' as Upper"))

	err := evaluateErr(t, c, "'x' as Nope")
	assert.ErrorContains(t, err, `unknown conversion "Nope"`)
}

func TestScriptFunctions(t *testing.T) {
	double := &execution.Function{Name: "double", Params: []string{"n"}}
	run := func(c *execution.Context, _ *ast.Node) flow.Completion {
		n, _ := c.Lookup("n")
		return flow.Return(n.(float64) * 2)
	}
	c := newContext(t, execution.WithRunner(run))
	require.NoError(t, c.Assign("double", double))

	assert.Equal(t, 42.0, evaluate(t, c, "double(21)"))
	_, leaked := c.Locals.Get("n")
	assert.False(t, leaked, "parameters bind in the call's own locals")
}

func TestScriptFunctionCompletions(t *testing.T) {
	fn := &execution.Function{Name: "f"}

	c := newContext(t, execution.WithRunner(func(*execution.Context, *ast.Node) flow.Completion {
		return flow.Normal("last value")
	}))
	require.NoError(t, c.Assign("f", fn))
	assert.Nil(t, evaluate(t, c, "f()"), "only return produces a value")

	c = newContext(t, execution.WithRunner(func(*execution.Context, *ast.Node) flow.Completion {
		return flow.Halt()
	}))
	require.NoError(t, c.Assign("f", fn))
	err := evaluateErr(t, c, "f()")
	var sig *flow.Signal
	require.ErrorAs(t, err, &sig)
	assert.True(t, sig.IsHalt())

	c = newContext(t, execution.WithRunner(func(*execution.Context, *ast.Node) flow.Completion {
		return flow.Break()
	}))
	require.NoError(t, c.Assign("f", fn))
	err = evaluateErr(t, c, "f()")
	assert.False(t, flow.IsSignal(err), "break cannot leave a function")
}

func TestHostFunctions(t *testing.T) {
	calls := 0
	c := execution.New(t.Context(), execution.WithEvaluator(New(
		WithFunction("join", func(_ *execution.Context, args []any) (any, error) {
			calls++
			return ToString(args[0]) + "-" + ToString(args[1]), nil
		}),
	)))

	assert.Equal(t, "a-b", evaluate(t, c, "join('a', 'b')"))
	assert.Equal(t, 1, calls)

	err := evaluateErr(t, c, "nope(1)")
	assert.ErrorContains(t, err, "nope is not defined")
}

func TestArithmeticErrorsCarryPosition(t *testing.T) {
	err := evaluateErr(t, newContext(t), "1 - 'abc'")
	var located *Error
	require.True(t, errors.As(err, &located))
	assert.Equal(t, ast.TypeBinary, located.Type)
	assert.ErrorContains(t, err, `cannot convert "abc" to a number`)
}

func TestUnparseableInput(t *testing.T) {
	c := newContext(t)
	_, err := c.Evaluate(ast.ErrorNode())
	assert.ErrorContains(t, err, "unparseable")
}

func TestValueRules(t *testing.T) {
	doc := dom.MustParseHTML(page)
	one := doc.ByID("one")

	t.Run("truthy", func(t *testing.T) {
		for _, v := range []any{nil, NotFound, false, 0.0, math.NaN(), "", []any{}, []dom.Element{}} {
			assert.False(t, Truthy(v), "%#v", v)
		}
		for _, v := range []any{true, 1.0, "0", []any{nil}, one, map[string]any{}} {
			assert.True(t, Truthy(v), "%#v", v)
		}
	})

	t.Run("unwrap", func(t *testing.T) {
		assert.Same(t, one, Unwrap([]dom.Element{one}))
		assert.Equal(t, 1.0, Unwrap([]any{1.0}))
		assert.Equal(t, []any{1.0, 2.0}, Unwrap([]any{1.0, 2.0}))
		assert.Equal(t, "x", Unwrap("x"))
	})

	t.Run("equality", func(t *testing.T) {
		assert.True(t, LooseEqual(nil, NotFound))
		assert.True(t, LooseEqual(2.0, "2"))
		assert.True(t, LooseEqual([]dom.Element{one}, one))
		assert.False(t, StrictEqual(2.0, "2"))
		assert.True(t, StrictEqual(one, doc.ByID("one")))
	})

	t.Run("elements", func(t *testing.T) {
		els, err := Elements(nil)
		require.NoError(t, err)
		assert.Empty(t, els)

		_, err = Elements([]any{one, "x"})
		assert.ErrorContains(t, err, "item 1 is string")
	})

	t.Run("strings", func(t *testing.T) {
		assert.Equal(t, "3", ToString(3.0))
		assert.Equal(t, "1.5", ToString(1.5))
		assert.Equal(t, "null", ToString(nil))
		assert.Equal(t, "a,1", ToString([]any{"a", 1.0}))
	})
}
