package cache

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/runtime/parser"
)

func TestHitReturnsEqualCopy(t *testing.T) {
	p := New()
	src := "on click add .active to me then wait 1s"

	first := p.Parse(src)
	second := p.Parse(src)
	require.True(t, first.Success)

	if diff := cmp.Diff(first.Node, second.Node); diff != "" {
		t.Errorf("cached tree differs (-first +second):\n%s", diff)
	}
	assert.NotSame(t, first.Node, second.Node)
	assert.Equal(t, Stats{Hits: 1, Misses: 1, Entries: 1}, p.Stats())

	fresh := parser.Parse(src)
	if diff := cmp.Diff(fresh.Node, second.Node); diff != "" {
		t.Errorf("cached tree differs from a fresh parse:\n%s", diff)
	}
}

func TestCallersCannotCorruptTheCache(t *testing.T) {
	p := New()
	src := "set x to 1"

	got := p.Parse(src)
	got.Node.Set("name", "mutated")
	got.Tokens[0].Value = "mutated"

	again := p.Parse(src)
	assert.Equal(t, "set", again.Node.Str("name"))
	assert.Equal(t, "set", again.Tokens[0].Value)
}

func TestFailuresAreCached(t *testing.T) {
	p := New()
	first := p.Parse("add .a to")
	second := p.Parse("add .a to")

	require.False(t, first.Success)
	require.NotNil(t, second.Error)
	assert.NotSame(t, first.Error, second.Error)
	assert.Equal(t, first.Error.Error(), second.Error.Error())
	assert.Equal(t, 1, p.Stats().Hits)
}

func TestEviction(t *testing.T) {
	p := New(WithMaxEntries(2))
	p.Parse("log 1")
	p.Parse("log 2")
	p.Parse("log 3")
	assert.Equal(t, 1, p.Stats().Entries)

	p.Reset()
	assert.Equal(t, Stats{}, p.Stats())
}

func TestParserOptionsApply(t *testing.T) {
	p := New(WithParserOptions(parser.WithTelemetryBasic()))
	res := p.Parse("log 1")
	require.NotNil(t, res.Telemetry)
	assert.Positive(t, res.Telemetry.TokenCount)
}

func TestConcurrentUse(t *testing.T) {
	p := New()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src := "log 1"
			if i%2 == 0 {
				src = "log 2"
			}
			res := p.Parse(src)
			assert.True(t, res.Node.Is(ast.TypeCommand))
		}()
	}
	wg.Wait()
	s := p.Stats()
	assert.Equal(t, 16, s.Hits+s.Misses)
	assert.Equal(t, 2, s.Entries)
}
