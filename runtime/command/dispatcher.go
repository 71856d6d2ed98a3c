package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/core/invariant"
	"github.com/opal-lang/hyperscript/core/visit"
	"github.com/opal-lang/hyperscript/runtime/dom"
	"github.com/opal-lang/hyperscript/runtime/eval"
	"github.com/opal-lang/hyperscript/runtime/execution"
	"github.com/opal-lang/hyperscript/runtime/flow"
)

// RuntimeVersion is the version deprecations are checked against unless
// WithRuntimeVersion overrides it.
const RuntimeVersion = "v0.1.0"

// Dispatcher runs command nodes through the registry. It is the Runner
// installed in every Context it creates, so commands reach nested bodies
// through the Context without importing this package's Dispatcher.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
	version  string

	evalOpts  []eval.Option
	evaluator execution.Evaluator

	validateOnDispatch bool
	schemas            *SchemaValidator

	mu        sync.RWMutex
	functions map[string]*execution.Function
	warned    map[string]bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatch logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithSchemaValidation checks every parsed input against its command's
// schema before Execute runs. Off by default.
func WithSchemaValidation() Option {
	return func(d *Dispatcher) { d.validateOnDispatch = true }
}

// WithRuntimeVersion sets the version deprecations are checked against.
func WithRuntimeVersion(version string) Option {
	return func(d *Dispatcher) { d.version = version }
}

// WithEvalOptions configures the evaluator the dispatcher builds.
func WithEvalOptions(opts ...eval.Option) Option {
	return func(d *Dispatcher) { d.evalOpts = append(d.evalOpts, opts...) }
}

// WithEvaluator replaces the evaluator entirely.
func WithEvaluator(ev execution.Evaluator) Option {
	return func(d *Dispatcher) { d.evaluator = ev }
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry, opts ...Option) *Dispatcher {
	invariant.NotNil(registry, "registry")
	d := &Dispatcher{
		registry:  registry,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		version:   RuntimeVersion,
		schemas:   NewSchemaValidator(),
		functions: make(map[string]*execution.Function),
		warned:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.evaluator == nil {
		base := []eval.Option{eval.WithLogger(d.logger), eval.WithResolver(d.function)}
		d.evaluator = eval.New(append(base, d.evalOpts...)...)
	}
	return d
}

// Registry returns the registry commands are looked up in.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// NewContext creates a Context wired to this dispatcher and its evaluator.
func (d *Dispatcher) NewContext(parent context.Context, opts ...execution.Option) *execution.Context {
	base := []execution.Option{
		execution.WithEvaluator(d.evaluator),
		execution.WithRunner(d.Run),
		execution.WithLogger(d.logger),
	}
	return execution.New(parent, append(base, opts...)...)
}

// Run runs any executable node: a command, a sequence, a program, an init
// block or a function definition. A bare expression evaluates to its value.
func (d *Dispatcher) Run(c *execution.Context, n *ast.Node) flow.Completion {
	if n == nil {
		return flow.Normal(nil)
	}
	switch n.Type {
	case ast.TypeCommand:
		return d.Dispatch(c, n)
	case ast.TypeCommandSequence:
		return d.sequence(c, n.Children("commands"))
	case ast.TypeProgram:
		for _, feature := range n.Children("body") {
			if done := d.Run(c, feature); done.Abrupt() {
				return done
			}
		}
		return flow.Normal(c.It)
	case ast.TypeInit:
		return flow.Handler(d.sequence(c, n.Children("body")))
	case ast.TypeFunction:
		d.Define(n)
		return flow.Normal(nil)
	case ast.TypeEventHandler, ast.TypeBehavior:
		// Installed by the host; see Handlers and HandleEvent.
		return flow.Normal(nil)
	}
	if n.IsError() {
		return flow.Fail(fmt.Errorf("%d:%d: cannot run unparseable input", n.Line, n.Column))
	}
	v, err := c.Evaluate(n)
	if err != nil {
		return flow.FromError(err)
	}
	return flow.Normal(v)
}

// sequence runs commands strictly in order. Each output becomes it before
// the next command parses its input.
func (d *Dispatcher) sequence(c *execution.Context, cmds []*ast.Node) flow.Completion {
	for _, cmd := range cmds {
		if err := c.Err(); err != nil {
			return flow.Fail(err)
		}
		done := d.Run(c, cmd)
		if done.Abrupt() {
			return done
		}
		c.It = done.Value
	}
	return flow.Normal(c.It)
}

// Dispatch runs one command node: lookup, ParseInput, then Execute.
func (d *Dispatcher) Dispatch(c *execution.Context, n *ast.Node) flow.Completion {
	invariant.Precondition(n.Is(ast.TypeCommand), "dispatch needs a command node, got %s", n.Type)
	name := n.Str("name")
	d.logger.Debug("dispatch", "command", name, "line", n.Line)

	cmd, ok := d.registry.Lookup(name)
	if !ok {
		err := &UnknownCommandError{Name: name, Suggestion: d.registry.Suggest(name)}
		d.logger.Warn("unknown command", "command", name, "line", n.Line, "suggestion", err.Suggestion)
		return flow.Fail(locate(n, err))
	}

	meta := cmd.Metadata()
	if err := d.checkVersion(meta); err != nil {
		return flow.Fail(locate(n, err))
	}

	input, err := cmd.ParseInput(RawFrom(n), c.Evaluator, c)
	if err != nil {
		return located(n, flow.FromError(err))
	}
	if d.validateOnDispatch {
		if err := d.schemas.Validate(meta, input); err != nil {
			return flow.Fail(locate(n, err))
		}
	}
	return located(n, cmd.Execute(input, c))
}

// Validate checks an input for the named command with the command's own
// Validate hook and its schema. It is never part of dispatch.
func (d *Dispatcher) Validate(name string, input any) error {
	cmd, ok := d.registry.Lookup(name)
	if !ok {
		return &UnknownCommandError{Name: name, Suggestion: d.registry.Suggest(name)}
	}
	if v, ok := cmd.(Validator); ok {
		if err := v.Validate(input); err != nil {
			return err
		}
	}
	return d.schemas.Validate(cmd.Metadata(), input)
}

func (d *Dispatcher) checkVersion(meta Metadata) error {
	dep := meta.Deprecation
	if dep.Removed(d.version) {
		return fmt.Errorf("%w in %s; use %s", ErrRemoved, dep.RemovedIn, dep.Replacement)
	}
	if dep.Deprecated(d.version) {
		d.mu.Lock()
		first := !d.warned[meta.Name]
		d.warned[meta.Name] = true
		d.mu.Unlock()
		if first {
			d.logger.Warn("deprecated command", "command", meta.Name,
				"since", dep.Since, "replacement", dep.Replacement)
		}
	}
	return nil
}

// Define binds a `def` node as a callable function.
func (d *Dispatcher) Define(n *ast.Node) *execution.Function {
	invariant.Precondition(n.Is(ast.TypeFunction), "define needs a function node, got %s", n.Type)
	fn := &execution.Function{Name: n.Str("name"), Body: n.Children("body")}
	for _, p := range n.Children("params") {
		fn.Params = append(fn.Params, p.Str("name"))
	}
	d.mu.Lock()
	d.functions[fn.Name] = fn
	d.mu.Unlock()
	d.logger.Debug("define", "function", fn.Name, "params", len(fn.Params))
	return fn
}

func (d *Dispatcher) function(name string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn, ok := d.functions[name]
	return fn, ok
}

// Handlers lists the top-level event handlers of a parsed script. Handlers
// inside behaviors belong to the behavior and are not listed.
func Handlers(root *ast.Node) []*ast.Node {
	var out []*ast.Node
	visit.Inspect(root, func(n *ast.Node) bool {
		switch n.Type {
		case ast.TypeBehavior:
			return false
		case ast.TypeEventHandler:
			out = append(out, n)
			return false
		}
		return true
	})
	return out
}

// HandleEvent runs one handler invocation for ev with fresh locals. Halt
// and return end the invocation normally.
func (d *Dispatcher) HandleEvent(c *execution.Context, handler *ast.Node, ev dom.Event) flow.Completion {
	invariant.Precondition(handler.Is(ast.TypeEventHandler), "handler node required, got %s", handler.Type)
	hc := c.Call()
	hc.Event = ev
	if ev != nil {
		hc.Target = ev.Target()
		hc.Detail = ev.Detail()
	}
	hc.It = nil
	done := flow.Handler(d.sequence(hc, handler.Children("commands")))
	if done.Failed() {
		d.logger.Debug("handler failed", "event", handler.Str("event"), "error", done.Err)
	}
	return done
}

func locate(n *ast.Node, err error) error {
	var already *Error
	if errors.As(err, &already) {
		return err
	}
	return &Error{Command: n.Str("name"), Line: n.Line, Column: n.Column, Err: err}
}

// located adds the command position to failures. Signals pass unchanged.
func located(n *ast.Node, done flow.Completion) flow.Completion {
	if !done.Failed() {
		return done
	}
	return flow.Fail(locate(n, done.Err))
}
