// Package execution holds the per-invocation state scripts run with: the
// implicit references (me, it, you, event), the local and global variable
// scopes, and handles back into the evaluator and the dispatcher.
package execution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/runtime/dom"
	"github.com/opal-lang/hyperscript/runtime/flow"
)

// Evaluator turns expression nodes into values.
type Evaluator interface {
	Evaluate(c *Context, n *ast.Node) (any, error)
}

// Runner runs a command, command sequence or feature node. The dispatcher
// installs itself here so commands can run nested bodies without importing
// it.
type Runner func(c *Context, n *ast.Node) flow.Completion

// Function is a `def` bound as a variable.
type Function struct {
	Name   string
	Params []string
	Body   []*ast.Node
}

// ErrReadOnly is returned when a script assigns to an implicit reference
// that cannot be rebound.
var ErrReadOnly = errors.New("read-only reference")

// Context is the state of one script invocation. It is owned by the
// invocation and is not safe for concurrent use; Globals may be shared with
// other invocations and must synchronize itself.
type Context struct {
	context.Context // cancellation for blocking commands

	Me  dom.Element
	It  any
	You dom.Element

	Event  dom.Event
	Target dom.Element
	Detail any

	Locals  Scope
	Globals Scope

	Document dom.Document
	Sink     dom.EventSink

	Evaluator Evaluator
	Run       Runner
	Logger    *slog.Logger
}

// Option configures a new Context.
type Option func(*Context)

// WithMe sets the element the invocation belongs to.
func WithMe(me dom.Element) Option {
	return func(c *Context) { c.Me = me }
}

// WithEvent sets the triggering event along with its target and detail.
func WithEvent(ev dom.Event) Option {
	return func(c *Context) {
		c.Event = ev
		if ev != nil {
			c.Target = ev.Target()
			c.Detail = ev.Detail()
		}
	}
}

// WithGlobals shares a global scope. Without it each Context gets a private
// MapScope, which only suits tests and one-shot scripts.
func WithGlobals(globals Scope) Option {
	return func(c *Context) { c.Globals = globals }
}

// WithDocument sets the document selectors resolve against.
func WithDocument(doc dom.Document) Option {
	return func(c *Context) { c.Document = doc }
}

// WithSink sets where send and trigger deliver events.
func WithSink(sink dom.EventSink) Option {
	return func(c *Context) { c.Sink = sink }
}

// WithLogger sets the logger used by commands such as log.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) { c.Logger = logger }
}

// WithEvaluator installs the expression evaluator.
func WithEvaluator(ev Evaluator) Option {
	return func(c *Context) { c.Evaluator = ev }
}

// WithRunner installs the nested-dispatch callback.
func WithRunner(run Runner) Option {
	return func(c *Context) { c.Run = run }
}

// New creates a Context with fresh locals.
func New(parent context.Context, opts ...Option) *Context {
	if parent == nil {
		parent = context.Background()
	}
	c := &Context{Context: parent, Locals: NewMapScope()}
	for _, opt := range opts {
		opt(c)
	}
	if c.Globals == nil {
		c.Globals = NewMapScope()
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Derive returns a shallow copy with me and you rebound. Locals and globals
// stay shared, so writes inside the derived context are seen outside.
func (c *Context) Derive(me, you dom.Element) *Context {
	cp := *c
	cp.Me = me
	cp.You = you
	return &cp
}

// Call returns a copy with fresh locals for a function body. Implicit
// references and globals carry over.
func (c *Context) Call() *Context {
	cp := *c
	cp.Locals = NewMapScope()
	return &cp
}

// WithContext returns a copy bound to a different Go context.
func (c *Context) WithContext(ctx context.Context) *Context {
	cp := *c
	cp.Context = ctx
	return &cp
}

// Lookup resolves a variable reference. Implicit references come first,
// then locals, then globals; sigils restrict the search to one scope.
func (c *Context) Lookup(ref string) (any, bool) {
	name, q := SplitName(ref)
	if q == Unqualified {
		if v, ok := c.implicit(name); ok {
			return v, true
		}
	}
	if q != Global {
		if v, ok := c.Locals.Get(name); ok {
			return v, true
		}
	}
	if q != Local {
		if v, ok := c.Globals.Get(name); ok {
			return v, true
		}
	}
	return nil, false
}

func (c *Context) implicit(name string) (any, bool) {
	switch name {
	case "me", "I", "my":
		return elementOrNil(c.Me), true
	case "it", "its", "result":
		return c.It, true
	case "you", "your":
		return elementOrNil(c.You), true
	case "event":
		if c.Event == nil {
			return nil, true
		}
		return c.Event, true
	case "target":
		return elementOrNil(c.Target), true
	case "detail":
		return c.Detail, true
	case "body":
		if c.Document == nil {
			return nil, false
		}
		if b, ok := c.Document.(interface{ Body() dom.Element }); ok {
			return elementOrNil(b.Body()), true
		}
		return elementOrNil(c.Document.Root()), true
	}
	return nil, false
}

// elementOrNil keeps a nil Element from becoming a non-nil interface value.
func elementOrNil(el dom.Element) any {
	if el == nil {
		return nil
	}
	return el
}

// Assign writes a variable. `$x` goes to globals and `:x` to locals. A
// plain name updates locals when it exists there, else globals when it
// exists there, else it is created in locals.
func (c *Context) Assign(ref string, value any) error {
	name, q := SplitName(ref)
	switch q {
	case Global:
		return c.Globals.Set(name, value)
	case Local:
		return c.Locals.Set(name, value)
	}

	switch name {
	case "it", "result":
		c.It = value
		return nil
	case "me", "I", "you", "event", "target", "detail", "body":
		return fmt.Errorf("cannot assign to %q: %w", name, ErrReadOnly)
	}

	if _, ok := c.Locals.Get(name); ok {
		return c.Locals.Set(name, value)
	}
	if _, ok := c.Globals.Get(name); ok {
		return c.Globals.Set(name, value)
	}
	return c.Locals.Set(name, value)
}

// Evaluate evaluates n with the installed evaluator.
func (c *Context) Evaluate(n *ast.Node) (any, error) {
	if c.Evaluator == nil {
		return nil, errors.New("no evaluator installed in context")
	}
	return c.Evaluator.Evaluate(c, n)
}

// RunNode runs a nested node through the installed runner.
func (c *Context) RunNode(n *ast.Node) flow.Completion {
	if c.Run == nil {
		return flow.Fail(errors.New("no runner installed in context"))
	}
	return c.Run(c, n)
}
