package execution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/runtime/dom"
	"github.com/opal-lang/hyperscript/runtime/flow"
)

func TestAssignUpdatesLocalsBeforeGlobals(t *testing.T) {
	globals := NewMapScope()
	require.NoError(t, globals.Set("x", "global"))
	c := New(context.Background(), WithGlobals(globals))
	require.NoError(t, c.Locals.Set("x", "local"))

	require.NoError(t, c.Assign("x", "updated"))

	v, _ := c.Locals.Get("x")
	assert.Equal(t, "updated", v)
	g, _ := globals.Get("x")
	assert.Equal(t, "global", g, "globals are untouched")
}

func TestAssignCreatesInLocals(t *testing.T) {
	globals := NewMapScope()
	c := New(context.Background(), WithGlobals(globals))

	require.NoError(t, c.Assign("fresh", 1.0))

	_, inLocals := c.Locals.Get("fresh")
	_, inGlobals := globals.Get("fresh")
	assert.True(t, inLocals)
	assert.False(t, inGlobals)
}

func TestAssignExistingGlobal(t *testing.T) {
	globals := NewMapScope()
	require.NoError(t, globals.Set("count", 1.0))
	c := New(context.Background(), WithGlobals(globals))

	require.NoError(t, c.Assign("count", 2.0))
	v, _ := globals.Get("count")
	assert.Equal(t, 2.0, v)
	assert.Empty(t, c.Locals.Names())
}

func TestSigils(t *testing.T) {
	c := New(context.Background())
	require.NoError(t, c.Assign("$g", "G"))
	require.NoError(t, c.Assign(":l", "L"))

	v, ok := c.Lookup("$g")
	require.True(t, ok)
	assert.Equal(t, "G", v)

	_, ok = c.Lookup(":g")
	assert.False(t, ok, ":g only searches locals")

	v, ok = c.Lookup("l")
	require.True(t, ok)
	assert.Equal(t, "L", v)

	_, ok = c.Lookup("missing")
	assert.False(t, ok)
}

func TestImplicitReferences(t *testing.T) {
	doc := dom.MustParseHTML(`<div id="a"></div><div id="b"></div>`)
	a, b := doc.ByID("a"), doc.ByID("b")
	ev := dom.NewEvent("click", b, "payload")

	c := New(context.Background(), WithMe(a), WithEvent(ev), WithDocument(doc))
	c.It = 42.0

	for ref, want := range map[string]any{
		"me": a, "I": a, "it": 42.0, "result": 42.0,
		"target": b, "detail": "payload", "event": ev,
	} {
		got, ok := c.Lookup(ref)
		require.True(t, ok, ref)
		assert.Equal(t, want, got, ref)
	}

	you, ok := c.Lookup("you")
	require.True(t, ok)
	assert.Nil(t, you, "unset you is a plain nil")

	require.NoError(t, c.Assign("it", "next"))
	assert.Equal(t, "next", c.It)
	assert.ErrorIs(t, c.Assign("me", b), ErrReadOnly)
}

func TestDeriveSharesScopes(t *testing.T) {
	doc := dom.MustParseHTML(`<p id="a"></p><p id="b"></p>`)
	outer := New(context.Background(), WithMe(doc.ByID("a")))

	inner := outer.Derive(doc.ByID("b"), doc.ByID("b"))
	require.NoError(t, inner.Assign("seen", true))

	v, ok := outer.Lookup("seen")
	require.True(t, ok)
	assert.Equal(t, true, v)
	assert.Equal(t, "a", outer.Me.ID())
	assert.Equal(t, "b", inner.Me.ID())
	assert.Nil(t, outer.You)
}

func TestCallHasFreshLocals(t *testing.T) {
	c := New(context.Background())
	require.NoError(t, c.Assign("x", 1.0))
	require.NoError(t, c.Assign("$g", 1.0))

	fn := c.Call()
	_, ok := fn.Lookup("x")
	assert.False(t, ok)
	_, ok = fn.Lookup("g")
	assert.True(t, ok)
}

type fixedEvaluator struct{ value any }

func (f fixedEvaluator) Evaluate(*Context, *ast.Node) (any, error) { return f.value, nil }

func TestHandles(t *testing.T) {
	c := New(context.Background())
	_, err := c.Evaluate(ast.Identifier("x"))
	assert.Error(t, err)
	assert.True(t, c.RunNode(ast.Identifier("x")).Failed())

	c = New(context.Background(),
		WithEvaluator(fixedEvaluator{value: 7.0}),
		WithRunner(func(*Context, *ast.Node) flow.Completion { return flow.Normal("ran") }),
	)
	v, err := c.Evaluate(ast.Identifier("x"))
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)
	assert.Equal(t, flow.Normal("ran"), c.RunNode(ast.Identifier("x")))
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		ref  string
		name string
		q    Qualifier
	}{
		{"x", "x", Unqualified},
		{":x", "x", Local},
		{"$x", "x", Global},
		{"$", "$", Unqualified},
	}
	for _, tt := range tests {
		name, q := SplitName(tt.ref)
		assert.Equal(t, tt.name, name, tt.ref)
		assert.Equal(t, tt.q, q, tt.ref)
	}
}
