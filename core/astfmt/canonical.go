// Package astfmt is the binary form of syntax trees: a canonical CBOR
// encoding that round-trips through Decode, and BLAKE2b digests over it.
package astfmt

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/opal-lang/hyperscript/core/ast"
)

// Version of the canonical format. Bump on any change to the encoding.
const Version uint8 = 1

// Field value kinds.
const (
	KindNull uint8 = iota
	KindString
	KindNumber
	KindBool
	KindNode
	KindNodes
	KindStrings
)

// ErrUnsupportedValue is returned for field values outside the node value
// model (string, float64, bool, nil, []string, *Node, []*Node).
var ErrUnsupportedValue = errors.New("unsupported field value")

// CanonicalTree is the encoded document.
type CanonicalTree struct {
	Version uint8         `cbor:"1,keyasint"`
	Root    CanonicalNode `cbor:"2,keyasint"`
}

// CanonicalNode mirrors ast.Node with typed field slots.
type CanonicalNode struct {
	Type   string           `cbor:"1,keyasint"`
	Fields []CanonicalField `cbor:"2,keyasint,omitempty"`
	Range  []int            `cbor:"3,keyasint,omitempty"` // start, end, line, column
}

// CanonicalField holds one field. Exactly one value slot is set, chosen by
// Kind.
type CanonicalField struct {
	Name  string          `cbor:"1,keyasint"`
	Kind  uint8           `cbor:"2,keyasint"`
	Str   string          `cbor:"3,keyasint,omitempty"`
	Num   float64         `cbor:"4,keyasint,omitempty"`
	Bool  bool            `cbor:"5,keyasint,omitempty"`
	Node  *CanonicalNode  `cbor:"6,keyasint,omitempty"`
	Nodes []CanonicalNode `cbor:"7,keyasint,omitempty"`
	Strs  []string        `cbor:"8,keyasint,omitempty"`
}

type options struct {
	ranges bool
}

// Option configures canonicalization.
type Option func(*options)

// WithRanges keeps source ranges in the canonical form. Without it two
// trees that differ only in layout canonicalize identically.
func WithRanges() Option {
	return func(o *options) { o.ranges = true }
}

// Canonicalize converts n into its canonical form.
func Canonicalize(n *ast.Node, opts ...Option) (*CanonicalTree, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if n == nil {
		return nil, errors.New("canonicalize: nil node")
	}
	root, err := canonicalNode(n, &o)
	if err != nil {
		return nil, err
	}
	return &CanonicalTree{Version: Version, Root: root}, nil
}

func canonicalNode(n *ast.Node, o *options) (CanonicalNode, error) {
	cn := CanonicalNode{Type: n.Type}
	if o.ranges {
		cn.Range = []int{n.Start, n.End, n.Line, n.Column}
	}
	if len(n.Fields) > 0 {
		cn.Fields = make([]CanonicalField, 0, len(n.Fields))
	}
	for _, f := range n.Fields {
		cf, err := canonicalField(f, o)
		if err != nil {
			return CanonicalNode{}, fmt.Errorf("%s.%s: %w", n.Type, f.Name, err)
		}
		cn.Fields = append(cn.Fields, cf)
	}
	return cn, nil
}

func canonicalField(f ast.Field, o *options) (CanonicalField, error) {
	cf := CanonicalField{Name: f.Name}
	switch v := f.Value.(type) {
	case nil:
		cf.Kind = KindNull
	case string:
		cf.Kind, cf.Str = KindString, v
	case float64:
		cf.Kind, cf.Num = KindNumber, v
	case bool:
		cf.Kind, cf.Bool = KindBool, v
	case []string:
		cf.Kind, cf.Strs = KindStrings, v
	case *ast.Node:
		if v == nil {
			cf.Kind = KindNull
			break
		}
		child, err := canonicalNode(v, o)
		if err != nil {
			return cf, err
		}
		cf.Kind, cf.Node = KindNode, &child
	case []*ast.Node:
		cf.Kind = KindNodes
		cf.Nodes = make([]CanonicalNode, 0, len(v))
		for i, c := range v {
			if c == nil {
				continue
			}
			child, err := canonicalNode(c, o)
			if err != nil {
				return cf, fmt.Errorf("[%d]: %w", i, err)
			}
			cf.Nodes = append(cf.Nodes, child)
		}
	default:
		return cf, fmt.Errorf("%w: %T", ErrUnsupportedValue, f.Value)
	}
	return cf, nil
}

// MarshalBinary produces deterministic CBOR of the canonical tree.
func (ct *CanonicalTree) MarshalBinary() ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}

	// Alias so the encoder does not recurse into MarshalBinary.
	type canonicalTreeAlias CanonicalTree
	data, err := encMode.Marshal((*canonicalTreeAlias)(ct))
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}
	return data, nil
}

// Tree converts the canonical form back into a node tree.
func (ct *CanonicalTree) Tree() *ast.Node {
	return ct.Root.node()
}

func (cn *CanonicalNode) node() *ast.Node {
	n := &ast.Node{Type: cn.Type}
	if len(cn.Range) == 4 {
		n.Start, n.End, n.Line, n.Column = cn.Range[0], cn.Range[1], cn.Range[2], cn.Range[3]
	}
	for i := range cn.Fields {
		cf := &cn.Fields[i]
		var v any
		switch cf.Kind {
		case KindString:
			v = cf.Str
		case KindNumber:
			v = cf.Num
		case KindBool:
			v = cf.Bool
		case KindStrings:
			v = append([]string(nil), cf.Strs...)
		case KindNode:
			if cf.Node != nil {
				v = cf.Node.node()
			}
		case KindNodes:
			var nodes []*ast.Node
			for j := range cf.Nodes {
				nodes = append(nodes, cf.Nodes[j].node())
			}
			v = nodes
		}
		n.Fields = append(n.Fields, ast.Field{Name: cf.Name, Value: v})
	}
	return n
}
