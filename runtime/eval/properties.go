package eval

import (
	"fmt"
	"math"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/runtime/dom"
	"github.com/opal-lang/hyperscript/runtime/execution"
)

// Resolve turns a selector literal into elements. An id selector yields
// one element or nil; every other kind yields a (possibly empty)
// collection.
func Resolve(c *execution.Context, kind, selector string) (any, error) {
	if c.Document == nil {
		return nil, fmt.Errorf("no document to resolve %s against", selector)
	}
	if kind == ast.SelectorID {
		el := c.Document.ByID(selector[1:])
		if el == nil {
			return nil, nil
		}
		return el, nil
	}
	els, err := c.Document.QueryAll(selector)
	if err != nil {
		return nil, err
	}
	if els == nil {
		els = []dom.Element{}
	}
	return els, nil
}

// Get reads a property. Reading through null yields nil rather than an
// error, and reading from a collection maps over its items.
func Get(obj any, key any) any {
	if idx, ok := index(key); ok {
		return item(obj, idx)
	}
	name := ToString(key)

	switch v := obj.(type) {
	case nil, notFound:
		return nil
	case dom.Element:
		return elementProperty(v, name)
	case dom.Event:
		return eventProperty(v, name)
	case []dom.Element:
		if isLength(name) {
			return float64(len(v))
		}
		out := make([]any, len(v))
		for i, el := range v {
			out[i] = elementProperty(el, name)
		}
		return out
	case []any:
		if isLength(name) {
			return float64(len(v))
		}
		return nil
	case map[string]any:
		return v[name]
	case string:
		if isLength(name) {
			return float64(len([]rune(v)))
		}
	}
	return nil
}

// Set writes a property. Writing to a collection writes every item.
func Set(obj any, key any, value any) error {
	switch v := obj.(type) {
	case nil, notFound:
		return fmt.Errorf("cannot set %s of %s", ToString(key), TypeName(obj))
	case dom.Element:
		v.SetProperty(ToString(key), value)
		return nil
	case []dom.Element:
		if idx, ok := index(key); ok {
			return fmt.Errorf("cannot replace item %d of an element collection", idx)
		}
		for _, el := range v {
			el.SetProperty(ToString(key), value)
		}
		return nil
	case []any:
		idx, ok := index(key)
		if !ok || idx < 0 || idx >= len(v) {
			return fmt.Errorf("index %s out of range", ToString(key))
		}
		v[idx] = value
		return nil
	case map[string]any:
		v[ToString(key)] = value
		return nil
	}
	return fmt.Errorf("cannot set %s of %s", ToString(key), TypeName(obj))
}

func isLength(name string) bool {
	return name == "length" || name == "size" || name == "count"
}

func index(key any) (int, bool) {
	f, ok := key.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func item(obj any, idx int) any {
	switch v := obj.(type) {
	case []dom.Element:
		if idx >= 0 && idx < len(v) {
			return v[idx]
		}
	case []any:
		if idx >= 0 && idx < len(v) {
			return v[idx]
		}
	case string:
		r := []rune(v)
		if idx >= 0 && idx < len(r) {
			return string(r[idx])
		}
	}
	return nil
}

func elementProperty(el dom.Element, name string) any {
	switch name {
	case "parent", "parentElement":
		return orNil(el.Parent())
	case "children":
		return el.Children()
	case "next", "nextElementSibling":
		return orNil(el.Next())
	case "previous", "previousElementSibling":
		return orNil(el.Previous())
	case "classes", "classList":
		classes := el.Classes()
		out := make([]any, len(classes))
		for i, c := range classes {
			out[i] = c
		}
		return out
	}
	if v, ok := el.Property(name); ok {
		return v
	}
	return nil
}

func eventProperty(ev dom.Event, name string) any {
	switch name {
	case "type":
		return ev.Type()
	case "target":
		return orNil(ev.Target())
	case "detail":
		return ev.Detail()
	case "defaultPrevented":
		return ev.DefaultPrevented()
	}
	return nil
}

func orNil(el dom.Element) any {
	if el == nil {
		return nil
	}
	return el
}

func attribute(el dom.Element, name string) any {
	if v, ok := el.Attr(name); ok {
		return v
	}
	return nil
}

// attributeOf reads @name from an element, or from each element of a
// collection.
func attributeOf(obj any, name string) (any, error) {
	switch v := obj.(type) {
	case nil, notFound:
		return nil, nil
	case dom.Element:
		return attribute(v, name), nil
	case []dom.Element:
		out := make([]any, len(v))
		for i, el := range v {
			out[i] = attribute(el, name)
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot read @%s of %s", name, TypeName(obj))
}

func setAttributeOf(obj any, name string, value any) error {
	els, err := Elements(obj)
	if err != nil {
		return fmt.Errorf("cannot set @%s: %w", name, err)
	}
	for _, el := range els {
		if value == nil {
			el.RemoveAttr(name)
			continue
		}
		el.SetAttr(name, ToString(value))
	}
	return nil
}
