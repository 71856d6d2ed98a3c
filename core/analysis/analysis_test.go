package analysis

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/runtime/parser"
)

func parse(t *testing.T, src string) *ast.Node {
	t.Helper()
	res := parser.Parse(src)
	require.True(t, res.Success, "parse %q: %v", src, res.Error)
	return res.Node
}

func TestMeasure(t *testing.T) {
	root := parse(t, "on click if x then add .a else if y then add .b end "+
		"then repeat 3 times if z and w then log 1 end end")

	got := Measure(root)
	want := Complexity{Cyclomatic: 6, Cognitive: 7, MaxNesting: 2}
	assert.Equal(t, want, got)

	assert.Equal(t, Complexity{Cyclomatic: 1}, Measure(parse(t, "log 1")))
}

func TestMeasureFeatures(t *testing.T) {
	root := parse(t, "on click log 1\ndef f() if x then log 2 end end")

	got := MeasureFeatures(root)
	require.Len(t, got, 2)
	assert.Equal(t, ast.TypeEventHandler, got[0].Kind)
	assert.Equal(t, "click", got[0].Name)
	assert.Equal(t, 1, got[0].Cyclomatic)
	assert.Equal(t, ast.TypeFunction, got[1].Kind)
	assert.Equal(t, "f", got[1].Name)
	assert.Equal(t, 2, got[1].Line)
	assert.Equal(t, 2, got[1].Cyclomatic)
}

func smellKinds(smells []Smell) []string {
	var kinds []string
	for _, s := range smells {
		kinds = append(kinds, s.Kind)
	}
	return kinds
}

func TestSmells(t *testing.T) {
	tests := []struct {
		name string
		src  string
		opts []SmellOpt
		want []string
	}{
		{"clean", "on click add .a then wait 1s then remove .a", nil, nil},
		{"unreachable after halt", "on click halt then log 1", nil, []string{SmellUnreachable}},
		{"halt the event continues", "on click halt the event then log 1", nil, nil},
		{"unreachable after return", "def f() return 1 then log 2 end", nil, []string{SmellUnreachable}},
		{"empty if", "if x then end", nil, []string{SmellEmptyBlock}},
		{"empty handler", "on click", nil, []string{SmellEmptyBlock}},
		{"duplicate handler", "on click log 1\non click log 2", nil, []string{SmellDuplicateHandler}},
		{"different sources are distinct", "on click log 1\non click from #b log 2", nil, nil},
		{
			"deep nesting", "if a then if b then log 1 end end",
			[]SmellOpt{WithMaxNesting(1)}, []string{SmellDeepNesting},
		},
		{
			"long sequence", "on click log 1 then log 2 then log 3",
			[]SmellOpt{WithMaxSequence(2)}, []string{SmellLongSequence},
		},
		{
			"high complexity", "on click if x then log 1 end",
			[]SmellOpt{WithMaxComplexity(1)}, []string{SmellHighComplexity},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := smellKinds(Smells(parse(t, tt.src), tt.opts...))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("smells mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSmellsOnDegradedTree(t *testing.T) {
	res := parser.Parse("add .a to ~")
	require.False(t, res.Success)

	smells := Smells(res.Node)
	require.Contains(t, smellKinds(smells), SmellParseError)
	assert.Equal(t, 1, smells[0].Line)
	assert.Equal(t, 11, smells[0].Column)
}

func TestSmellPosition(t *testing.T) {
	smells := Smells(parse(t, "on click log 1\non click log 2"))
	require.Len(t, smells, 1)
	assert.Equal(t, "2:1: duplicate-handler: another handler for \"click\" is declared earlier", smells[0].String())
}

func TestExtractDependencies(t *testing.T) {
	root := parse(t, "on click send change to #panel then call save()\n"+
		"on change from #panel put \"x\" into <div.out/>\n"+
		"def save() log 1 end")

	d := ExtractDependencies(root)
	assert.Equal(t, []string{"#panel", "<div.out/>"}, d.Selectors)
	assert.Equal(t, []string{"change", "click"}, d.Events)
	assert.Equal(t, []string{"change"}, d.SentEvents)
	assert.Equal(t, []string{"save"}, d.Calls)
	assert.Equal(t, []string{"save"}, d.Definitions)
	assert.Equal(t, []string{"call", "log", "put", "send"}, d.Commands)
	assert.Empty(t, d.Undefined())

	want := []Edge{
		{From: "change", To: "on change", Kind: EdgeTriggers},
		{From: "on change", To: "#panel", Kind: EdgeUses},
		{From: "on change", To: "<div.out/>", Kind: EdgeUses},
		{From: "on click", To: "save", Kind: EdgeCalls},
		{From: "on click", To: "change", Kind: EdgeSends},
		{From: "on click", To: "#panel", Kind: EdgeUses},
	}
	if diff := cmp.Diff(want, d.Edges); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestNavigationIsNotACall(t *testing.T) {
	d := ExtractDependencies(parse(t, "log closest .card then call missing()"))
	assert.Equal(t, []string{"missing"}, d.Calls)
	assert.Equal(t, []string{"missing"}, d.Undefined())
}

func TestVariableUsage(t *testing.T) {
	root := parse(t, "def f(a, b) set :x to a then for item in items log item end "+
		"then put :x into y then increment $n end")

	u := VariableUsage(root)
	assert.Equal(t, []string{"$n", ":x", "a", "b", "item", "items", "y"}, u.Names())
	assert.Equal(t, []string{"b", "y"}, u.Unused())
	assert.Equal(t, []string{"items"}, u.Undefined())

	assert.Equal(t, ScopeParam, u.Variables["a"].Scope)
	assert.Equal(t, ScopeLoop, u.Variables["item"].Scope)
	assert.Equal(t, ScopeGlobal, u.Variables["$n"].Scope)
	assert.Equal(t, ScopeLocal, u.Variables[":x"].Scope)

	n := u.Variables["$n"]
	assert.Len(t, n.Reads, 1, "increment reads its target")
	assert.Len(t, n.Writes, 1)
}

func TestVariableUsageIgnoresNonVariables(t *testing.T) {
	u := VariableUsage(parse(t, "log me.value then log x as Int then send done then call f()"))
	assert.Equal(t, []string{"x"}, u.Names())
}

func TestMatchText(t *testing.T) {
	root := parse(t, "on click add .a to me then remove .b then add .c")

	matches := MatchText(root, regexp.MustCompile(`^add \.`))
	require.Len(t, matches, 2)
	assert.Equal(t, "add .a to me", matches[0].Text)
	assert.Equal(t, "add .c", matches[1].Text)

	handlers := MatchText(root, regexp.MustCompile(`^on click`), ast.TypeEventHandler)
	assert.Len(t, handlers, 1)
}

func TestMatchShape(t *testing.T) {
	root := parse(t, "on click add .a to me then add .b to you then add .c to me")
	pattern := parse(t, "add _ to me")

	got := MatchShape(root, pattern)
	require.Len(t, got, 2)
	assert.Equal(t, ".a", got[0].Children("args")[0].Str("value"))
	assert.Equal(t, ".c", got[1].Children("args")[0].Str("value"))

	assert.Empty(t, MatchShape(root, parse(t, "remove _")))
}

func TestPassesDoNotMutate(t *testing.T) {
	root := parse(t, "on click if x then set y to x + 1 end then send done")
	snapshot := root.Clone()

	Measure(root)
	Smells(root)
	ExtractDependencies(root)
	VariableUsage(root)
	MatchText(root, regexp.MustCompile("."))

	if diff := cmp.Diff(snapshot, root); diff != "" {
		t.Errorf("analysis mutated the tree (-before +after):\n%s", diff)
	}
}
