package eval

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/opal-lang/hyperscript/runtime/dom"
)

type notFound struct{}

func (notFound) String() string { return "<not found>" }

// NotFound is the value of an identifier bound in no scope. It is distinct
// from nil so existence checks can tell "unset" from "null".
var NotFound any = notFound{}

// IsNotFound reports whether v is the NotFound sentinel.
func IsNotFound(v any) bool {
	_, ok := v.(notFound)
	return ok
}

// IsNull reports nil and NotFound.
func IsNull(v any) bool {
	return v == nil || IsNotFound(v)
}

// IsCollection reports element lists and plain lists.
func IsCollection(v any) bool {
	switch v.(type) {
	case []dom.Element, []any:
		return true
	}
	return false
}

// Unwrap returns the only element of a one-element collection, and v
// unchanged otherwise.
func Unwrap(v any) any {
	switch c := v.(type) {
	case []dom.Element:
		if len(c) == 1 {
			return c[0]
		}
	case []any:
		if len(c) == 1 {
			return c[0]
		}
	}
	return v
}

// Elements flattens v into elements. Null yields none; anything that is
// not an element fails.
func Elements(v any) ([]dom.Element, error) {
	switch val := v.(type) {
	case nil, notFound:
		return nil, nil
	case dom.Element:
		return []dom.Element{val}, nil
	case []dom.Element:
		return val, nil
	case []any:
		out := make([]dom.Element, 0, len(val))
		for i, item := range val {
			el, ok := item.(dom.Element)
			if !ok {
				return nil, fmt.Errorf("item %d is %s, not an element", i, TypeName(item))
			}
			out = append(out, el)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s is not an element", TypeName(v))
}

// Length returns the size of strings and collections, and -1 otherwise.
func Length(v any) int {
	switch val := v.(type) {
	case string:
		return len([]rune(val))
	case []dom.Element:
		return len(val)
	case []any:
		return len(val)
	case map[string]any:
		return len(val)
	}
	return -1
}

// Truthy follows script truthiness: null, false, 0, NaN, "" and empty
// collections are false.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil, notFound:
		return false
	case bool:
		return val
	case float64:
		return val != 0 && !math.IsNaN(val)
	case int:
		return val != 0
	case string:
		return val != ""
	case []dom.Element:
		return len(val) > 0
	case []any:
		return len(val) > 0
	}
	return true
}

// IsEmpty backs `is empty` and `no`.
func IsEmpty(v any) bool {
	if IsNull(v) {
		return true
	}
	if n := Length(v); n >= 0 {
		return n == 0
	}
	return false
}

// ToNumber coerces v. Strings must parse completely.
func ToNumber(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case nil, notFound:
		return 0, nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to a number", val)
		}
		return f, nil
	}
	return 0, fmt.Errorf("cannot convert %s to a number", TypeName(v))
}

// isNumeric reports values that take part in arithmetic without coercion.
func isNumeric(v any) bool {
	switch v.(type) {
	case float64, int, int64, bool:
		return true
	}
	return false
}

// ToString renders v the way put and log show it.
func ToString(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case notFound:
		return "undefined"
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = ToString(item)
		}
		return strings.Join(parts, ",")
	case dom.Element:
		return val.Text()
	}
	return fmt.Sprint(v)
}

// TypeName names v's script type for messages.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case notFound:
		return "undefined"
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case bool:
		return "boolean"
	case dom.Element:
		return "element"
	case []dom.Element:
		return "element collection"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case dom.Event:
		return "event"
	}
	return fmt.Sprintf("%T", v)
}

// LooseEqual compares the way `==` and `is` do: numbers and numeric strings
// compare by value, null equals NotFound, and a single-element collection
// equals its element.
func LooseEqual(a, b any) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	a, b = Unwrap(a), Unwrap(b)
	if isNumeric(a) || isNumeric(b) {
		x, errA := ToNumber(a)
		y, errB := ToNumber(b)
		if errA == nil && errB == nil {
			return x == y
		}
	}
	return StrictEqual(a, b)
}

// StrictEqual compares the way `===` does: same type and value. Elements
// compare by identity.
func StrictEqual(a, b any) bool {
	switch x := a.(type) {
	case dom.Element:
		y, ok := b.(dom.Element)
		return ok && x == y
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return reflect.DeepEqual(a, b)
}
