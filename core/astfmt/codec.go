package astfmt

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/opal-lang/hyperscript/core/ast"
)

// Encode serializes n, ranges included.
func Encode(n *ast.Node) ([]byte, error) {
	ct, err := Canonicalize(n, WithRanges())
	if err != nil {
		return nil, err
	}
	return ct.MarshalBinary()
}

// Decode parses data produced by Encode.
func Decode(data []byte) (*ast.Node, error) {
	var ct CanonicalTree
	if err := cbor.Unmarshal(data, &ct); err != nil {
		return nil, fmt.Errorf("CBOR decoding failed: %w", err)
	}
	if ct.Version != Version {
		return nil, fmt.Errorf("unsupported canonical version %d (want %d)", ct.Version, Version)
	}
	return ct.Tree(), nil
}

// Digest hashes the structure of n with BLAKE2b-256. Source ranges are
// left out, so reformatting a script keeps its digest.
// Returns a hex string: "blake2b:a3f8b2c1..."
func Digest(n *ast.Node) (string, error) {
	ct, err := Canonicalize(n)
	if err != nil {
		return "", err
	}
	data, err := ct.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize tree for digest: %w", err)
	}
	sum := blake2b.Sum256(data)
	return fmt.Sprintf("blake2b:%x", sum), nil
}

// SourceDigest hashes raw script text.
func SourceDigest(source string) string {
	sum := blake2b.Sum256([]byte(source))
	return fmt.Sprintf("blake2b:%x", sum)
}
