package commands

import (
	"github.com/opal-lang/hyperscript/runtime/command"
	"github.com/opal-lang/hyperscript/runtime/dom"
	"github.com/opal-lang/hyperscript/runtime/eval"
	"github.com/opal-lang/hyperscript/runtime/execution"
	"github.com/opal-lang/hyperscript/runtime/flow"
)

type mutationInput struct {
	Classes []string      `json:"classes,omitempty"`
	Attrs   []attrSpec    `json:"attributes,omitempty"`
	Targets []dom.Element `json:"-"`
}

const classPattern = `^-?[_a-zA-Z][-_a-zA-Z0-9]*$`

var mutationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"classes": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string", "pattern": classPattern},
		},
		"attributes": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"Name"},
				"properties": map[string]any{
					"Name": map[string]any{"type": "string", "minLength": 1},
				},
			},
		},
	},
}

// Add adds classes or attributes to the targets, me by default.
func Add() command.Command {
	return mutation(command.Metadata{
		Name:        "add",
		Category:    command.CategoryDOM,
		Summary:     "Add classes or attributes",
		Syntax:      []string{"add <.class|[@attr=value]|@attr> ... [to <target>]"},
		Examples:    []string{"add .active", "add .open .visible to #menu", "add [@disabled] to <button/>"},
		SideEffects: []string{"element mutated"},
		Schema:      mutationSchema,
	}, "to", func(el dom.Element, in mutationInput) {
		for _, cls := range in.Classes {
			el.AddClass(cls)
		}
		for _, a := range in.Attrs {
			el.SetAttr(a.Name, a.Value)
		}
	})
}

// Remove removes classes or attributes from the targets.
func Remove() command.Command {
	return mutation(command.Metadata{
		Name:        "remove",
		Category:    command.CategoryDOM,
		Summary:     "Remove classes or attributes",
		Syntax:      []string{"remove <.class|[@attr]|@attr> ... [from <target>]"},
		Examples:    []string{"remove .active from .tab", "remove @disabled from #save"},
		SideEffects: []string{"element mutated"},
		Schema:      mutationSchema,
	}, "from", func(el dom.Element, in mutationInput) {
		for _, cls := range in.Classes {
			el.RemoveClass(cls)
		}
		for _, a := range in.Attrs {
			el.RemoveAttr(a.Name)
		}
	})
}

// Toggle flips classes or attributes on the targets.
func Toggle() command.Command {
	return mutation(command.Metadata{
		Name:        "toggle",
		Category:    command.CategoryDOM,
		Summary:     "Toggle classes or attributes",
		Syntax:      []string{"toggle <.class|[@attr=value]|@attr> ... [on <target>]"},
		Examples:    []string{"toggle .open on #menu", "toggle [@aria-expanded=true]"},
		SideEffects: []string{"element mutated"},
		Schema:      mutationSchema,
	}, "on", func(el dom.Element, in mutationInput) {
		for _, cls := range in.Classes {
			el.ToggleClass(cls)
		}
		for _, a := range in.Attrs {
			if _, ok := el.Attr(a.Name); ok {
				el.RemoveAttr(a.Name)
			} else {
				el.SetAttr(a.Name, a.Value)
			}
		}
	})
}

func mutation(meta command.Metadata, targetKeyword string, apply func(dom.Element, mutationInput)) command.Command {
	name := meta.Name
	return command.Define(meta,
		func(raw command.Raw, ev execution.Evaluator, c *execution.Context) (mutationInput, error) {
			var in mutationInput
			for _, arg := range raw.Args {
				if classes, ok := classNames(arg); ok {
					in.Classes = append(in.Classes, classes...)
					continue
				}
				if a, ok := attrSpecOf(arg); ok {
					in.Attrs = append(in.Attrs, a)
					continue
				}
				return in, command.Inputf(name, "expected a class or attribute, got %s", arg.Type)
			}
			if len(in.Classes) == 0 && len(in.Attrs) == 0 {
				return in, command.Inputf(name, "nothing to %s", name)
			}
			var err error
			in.Targets, err = targets(name, ev, c, raw.Modifier(targetKeyword))
			return in, err
		},
		func(in mutationInput, c *execution.Context) flow.Completion {
			for _, el := range in.Targets {
				apply(el, in)
			}
			return passThrough(c)
		},
	)
}

type displayInput struct {
	Display string
	Targets []dom.Element
}

// Show makes the targets visible. `with <display>` picks the display
// value; otherwise the inline display is cleared.
func Show() command.Command {
	return command.Define(command.Metadata{
		Name:        "show",
		Category:    command.CategoryDOM,
		Summary:     "Show elements",
		Syntax:      []string{"show [<target>] [with <display>]"},
		Examples:    []string{"show #dialog", "show .row with 'flex'"},
		SideEffects: []string{"element mutated"},
	},
		func(raw command.Raw, ev execution.Evaluator, c *execution.Context) (displayInput, error) {
			var in displayInput
			if raw.Has("with") {
				v, err := ev.Evaluate(c, raw.Modifier("with"))
				if err != nil {
					return in, err
				}
				if !eval.IsNull(v) {
					in.Display = eval.ToString(v)
				}
			}
			var err error
			in.Targets, err = targets("show", ev, c, raw.Arg(0))
			return in, err
		},
		setDisplay,
	)
}

// Hide sets display: none on the targets.
func Hide() command.Command {
	return command.Define(command.Metadata{
		Name:        "hide",
		Category:    command.CategoryDOM,
		Summary:     "Hide elements",
		Syntax:      []string{"hide [<target>]"},
		Examples:    []string{"hide me", "hide .toast"},
		SideEffects: []string{"element mutated"},
	},
		func(raw command.Raw, ev execution.Evaluator, c *execution.Context) (displayInput, error) {
			els, err := targets("hide", ev, c, raw.Arg(0))
			return displayInput{Display: "none", Targets: els}, err
		},
		setDisplay,
	)
}

func setDisplay(in displayInput, c *execution.Context) flow.Completion {
	for _, el := range in.Targets {
		el.SetStyle("display", in.Display)
	}
	return passThrough(c)
}
