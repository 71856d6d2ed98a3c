package astfmt

import (
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
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

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sources := []string{
		"on click add .active to me then wait 200ms",
		"if x > 1 then log \"big\" else log null end",
		"def f(a, b) return a + b end",
		"set x to {a: [1, 2], b: my value}",
		"on click log 1\non keyup log 2",
	}
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			orig := parse(t, src)

			data, err := Encode(orig)
			require.NoError(t, err)

			got, err := Decode(data)
			require.NoError(t, err)

			if diff := cmp.Diff(orig, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch (-orig +decoded):\n%s", diff)
			}
		})
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	root := parse(t, "on click toggle .open on #menu then send opened to #log")

	first, err := Encode(root)
	require.NoError(t, err)
	for range 10 {
		again, err := Encode(root.Clone())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDigestIgnoresLayout(t *testing.T) {
	a, err := Digest(parse(t, "on click add .a to me"))
	require.NoError(t, err)
	b, err := Digest(parse(t, "on click\n    add .a   to me"))
	require.NoError(t, err)
	c, err := Digest(parse(t, "on click add .b to me"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "blake2b:"))
	assert.Len(t, a, len("blake2b:")+64)
}

func TestUnsupportedValue(t *testing.T) {
	n := ast.New("custom", ast.F("count", 3))
	_, err := Encode(n)
	require.ErrorIs(t, err, ErrUnsupportedValue)
	assert.Contains(t, err.Error(), "custom.count")

	_, err = Canonicalize(nil)
	assert.Error(t, err)
}

func TestDecodeRejectsBadInput(t *testing.T) {
	_, err := Decode([]byte{0xff, 0x00})
	assert.Error(t, err)

	data, err := cbor.Marshal(CanonicalTree{Version: Version + 1, Root: CanonicalNode{Type: "program"}})
	require.NoError(t, err)
	_, err = Decode(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported canonical version")
}

func TestSourceDigest(t *testing.T) {
	assert.Equal(t, SourceDigest("log 1"), SourceDigest("log 1"))
	assert.NotEqual(t, SourceDigest("log 1"), SourceDigest("log 2"))
}
