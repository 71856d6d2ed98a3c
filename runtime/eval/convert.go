package eval

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/runtime/dom"
	"github.com/opal-lang/hyperscript/runtime/execution"
)

// Conversion implements one `as` target.
type Conversion func(v any) (any, error)

var builtinConversions = map[string]Conversion{
	"Int":     toInt,
	"Float":   toFloat,
	"Number":  toFloat,
	"String":  func(v any) (any, error) { return ToString(v), nil },
	"Boolean": func(v any) (any, error) { return Truthy(v), nil },
	"JSON":    toJSON,
	"Values":  formValues,
	"Array":   toArray,
}

func (e *Evaluator) convert(c *execution.Context, value, target *ast.Node) (any, error) {
	v, err := e.Evaluate(c, value)
	if err != nil {
		return nil, err
	}
	name := target.Str("name")
	conv, ok := e.conversions[name]
	if !ok {
		return nil, fmt.Errorf("unknown conversion %q", name)
	}
	out, err := conv(v)
	if err != nil {
		return nil, fmt.Errorf("as %s: %w", name, err)
	}
	return out, nil
}

func toFloat(v any) (any, error) {
	return ToNumber(Unwrap(v))
}

func toInt(v any) (any, error) {
	f, err := ToNumber(Unwrap(v))
	if err != nil {
		return nil, err
	}
	return math.Trunc(f), nil
}

// toJSON parses strings and encodes everything else.
func toJSON(v any) (any, error) {
	if s, ok := v.(string); ok {
		var out any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	b, err := json.Marshal(plain(v))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// plain replaces elements with their text so values encode.
func plain(v any) any {
	switch val := v.(type) {
	case notFound:
		return nil
	case dom.Element:
		return val.Text()
	case []dom.Element:
		out := make([]any, len(val))
		for i, el := range val {
			out[i] = el.Text()
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = plain(item)
		}
		return out
	}
	return v
}

func toArray(v any) (any, error) {
	switch val := v.(type) {
	case nil, notFound:
		return []any{}, nil
	case []any:
		return val, nil
	case []dom.Element:
		return toAny(val), nil
	}
	return []any{v}, nil
}

// formValues collects named inputs under the given elements. Unchecked
// checkboxes and radios are skipped; repeated names gather into a list.
func formValues(v any) (any, error) {
	roots, err := Elements(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	for _, root := range roots {
		fields := []dom.Element{root}
		nested, err := root.QueryAll("input[name], select[name], textarea[name]")
		if err != nil {
			return nil, err
		}
		fields = append(fields, nested...)
		for _, field := range fields {
			collectField(out, field)
		}
	}
	return out, nil
}

func collectField(out map[string]any, field dom.Element) {
	name, ok := field.Attr("name")
	if !ok || name == "" {
		return
	}
	switch field.TagName() {
	case "input", "select", "textarea":
	default:
		return
	}
	if kind, _ := field.Attr("type"); kind == "checkbox" || kind == "radio" {
		if checked, _ := field.Property("checked"); checked != true {
			return
		}
	}
	value, _ := field.Property("value")
	if field.TagName() == "textarea" && value == nil {
		value = field.Text()
	}
	if value == nil {
		value = ""
	}
	switch prev := out[name].(type) {
	case nil:
		out[name] = value
	case []any:
		out[name] = append(prev, value)
	default:
		out[name] = []any{prev, value}
	}
}
