// Package command defines the contract every script command implements and
// the dispatcher that runs command nodes.
//
// A command runs in two phases. ParseInput receives the node's unevaluated
// arguments and modifiers, does all keyword scanning and defaulting, and
// evaluates each expression exactly once. Execute receives the typed result
// and performs only the side effect. The split lets Execute be tested
// without syntax and lets tooling validate inputs produced elsewhere.
package command

import (
	"reflect"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/runtime/execution"
	"github.com/opal-lang/hyperscript/runtime/flow"
)

// Raw is a command node's unevaluated syntax.
type Raw struct {
	Name      string
	Args      []*ast.Node
	Modifiers map[string]*ast.Node
	Node      *ast.Node
}

// RawFrom splits a command node.
func RawFrom(n *ast.Node) Raw {
	return Raw{
		Name:      n.Str("name"),
		Args:      n.Children("args"),
		Modifiers: n.ModifierMap(),
		Node:      n,
	}
}

// Arg returns positional argument i, or nil.
func (r Raw) Arg(i int) *ast.Node {
	if i < 0 || i >= len(r.Args) {
		return nil
	}
	return r.Args[i]
}

// Modifier returns the expression after keyword, or nil.
func (r Raw) Modifier(keyword string) *ast.Node {
	return r.Modifiers[keyword]
}

// Has reports whether keyword was given.
func (r Raw) Has(keyword string) bool {
	_, ok := r.Modifiers[keyword]
	return ok
}

// Eval evaluates n, treating a missing node as nil.
func Eval(ev execution.Evaluator, c *execution.Context, n *ast.Node) (any, error) {
	if n == nil {
		return nil, nil
	}
	return ev.Evaluate(c, n)
}

// Command is the contract every command implements.
type Command interface {
	Metadata() Metadata
	ParseInput(raw Raw, ev execution.Evaluator, c *execution.Context) (any, error)
	Execute(input any, c *execution.Context) flow.Completion
}

// Validator is implemented by commands that can check an input they did not
// parse themselves. Dispatch never calls it.
type Validator interface {
	Validate(input any) error
}

// Category groups commands in documentation.
type Category string

const (
	CategoryControl Category = "control-flow"
	CategoryDOM     Category = "dom"
	CategoryData    Category = "data"
	CategoryEvents  Category = "events"
	CategoryAsync   Category = "async"
	CategoryUtility Category = "utility"
)

// Metadata describes a command for registries, tooling and docs.
type Metadata struct {
	Name        string
	Category    Category
	Summary     string
	Syntax      []string
	Examples    []string
	SideEffects []string

	// Schema is an optional JSON schema the parsed input must satisfy when
	// schema validation is enabled.
	Schema map[string]any

	Deprecation *Deprecation
}

// Deprecation marks a command as on its way out. Versions are semver, with
// or without the leading "v".
type Deprecation struct {
	Since       string
	RemovedIn   string
	Replacement string
}

// Deprecated reports whether the command is deprecated at version.
func (d *Deprecation) Deprecated(version string) bool {
	return d != nil && d.Since != "" && semver.Compare(canonical(version), canonical(d.Since)) >= 0
}

// Removed reports whether the command no longer runs at version.
func (d *Deprecation) Removed(version string) bool {
	return d != nil && d.RemovedIn != "" && semver.Compare(canonical(version), canonical(d.RemovedIn)) >= 0
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// ParseFunc is the typed first phase.
type ParseFunc[In any] func(raw Raw, ev execution.Evaluator, c *execution.Context) (In, error)

// ExecFunc is the typed second phase.
type ExecFunc[In any] func(in In, c *execution.Context) flow.Completion

// Adapter turns typed phase functions into a Command.
type Adapter[In any] struct {
	Meta  Metadata
	Parse ParseFunc[In]
	Exec  ExecFunc[In]
	Check func(in In) error
}

// Define builds a Command from typed phases.
func Define[In any](meta Metadata, parse ParseFunc[In], exec ExecFunc[In]) *Adapter[In] {
	return &Adapter[In]{Meta: meta, Parse: parse, Exec: exec}
}

// WithCheck sets the Validate hook.
func (a *Adapter[In]) WithCheck(check func(in In) error) *Adapter[In] {
	a.Check = check
	return a
}

func (a *Adapter[In]) Metadata() Metadata { return a.Meta }

func (a *Adapter[In]) ParseInput(raw Raw, ev execution.Evaluator, c *execution.Context) (any, error) {
	return a.Parse(raw, ev, c)
}

func (a *Adapter[In]) Execute(input any, c *execution.Context) flow.Completion {
	in, ok := typed[In](input)
	if !ok {
		return flow.Fail(Inputf(a.Meta.Name, "unexpected input %T", input))
	}
	return a.Exec(in, c)
}

func (a *Adapter[In]) Validate(input any) error {
	in, ok := typed[In](input)
	if !ok {
		return Inputf(a.Meta.Name, "unexpected input %T", input)
	}
	if a.Check == nil {
		return nil
	}
	return a.Check(in)
}

// typed asserts input to In. A nil input is the zero value when In is an
// interface type such as any.
func typed[In any](input any) (In, bool) {
	if input == nil {
		var zero In
		return zero, reflect.TypeFor[In]().Kind() == reflect.Interface
	}
	in, ok := input.(In)
	return in, ok
}
