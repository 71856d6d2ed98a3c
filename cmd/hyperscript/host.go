package main

import (
	"fmt"
	"log/slog"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/runtime/cache"
	"github.com/opal-lang/hyperscript/runtime/command"
	"github.com/opal-lang/hyperscript/runtime/dom"
	"github.com/opal-lang/hyperscript/runtime/eval"
	"github.com/opal-lang/hyperscript/runtime/execution"
)

// scriptAttrs are the attributes a page carries scripts in, in lookup
// order.
var scriptAttrs = []string{"_", "data-script"}

// maxDispatchDepth bounds events sent from inside handlers.
const maxDispatchDepth = 32

type binding struct {
	owner   dom.Element
	handler *ast.Node
}

// host binds the scripts of a page to its elements and delivers events to
// them. It is the EventSink send and trigger dispatch through.
type host struct {
	d        *command.Dispatcher
	base     *execution.Context
	parses   *cache.Parser
	logger   *slog.Logger
	bindings map[dom.Element][]binding
	depth    int
}

func newHost(d *command.Dispatcher, parses *cache.Parser, logger *slog.Logger) *host {
	return &host{d: d, parses: parses, logger: logger, bindings: map[dom.Element][]binding{}}
}

// install loads the script of every element that has one.
func (h *host) install(doc dom.Document) error {
	els, err := doc.QueryAll("[_], [data-script]")
	if err != nil {
		return err
	}
	for _, el := range els {
		for _, name := range scriptAttrs {
			src, ok := el.Attr(name)
			if !ok {
				continue
			}
			res := h.parses.Parse(src)
			if !res.Success {
				return fmt.Errorf("script on %v: %w", el, res.Error)
			}
			if err := h.load(el, res.Node); err != nil {
				return fmt.Errorf("script on %v: %w", el, err)
			}
			break
		}
	}
	return nil
}

// load defines functions, runs init blocks and binds handlers for one
// element's script. A handler with `from` listens on the elements its
// selector finds.
func (h *host) load(el dom.Element, root *ast.Node) error {
	c := h.base.Derive(el, nil)
	for _, f := range root.Children("body") {
		if f.Is(ast.TypeFunction) || f.Is(ast.TypeInit) {
			if done := h.d.Run(c, f); done.Failed() {
				return done.Err
			}
		}
	}
	for _, handler := range command.Handlers(root) {
		sources := []dom.Element{el}
		if sel := handler.Child("selector"); sel != nil {
			v, err := c.Evaluate(sel)
			if err != nil {
				return err
			}
			if sources, err = eval.Elements(v); err != nil {
				return fmt.Errorf("on %s from: %w", handler.Str("event"), err)
			}
		}
		for _, src := range sources {
			h.bindings[src] = append(h.bindings[src], binding{owner: el, handler: handler})
		}
		h.logger.Debug("bound handler", "event", handler.Str("event"), "element", fmt.Sprint(el), "sources", len(sources))
	}
	return nil
}

// Dispatch runs the handlers for ev on target, then on its ancestors until
// one stops propagation.
func (h *host) Dispatch(target dom.Element, ev dom.Event) error {
	if h.depth >= maxDispatchDepth {
		return fmt.Errorf("event %q: dispatch nested deeper than %d", ev.Type(), maxDispatchDepth)
	}
	h.depth++
	defer func() { h.depth-- }()

	for el := target; el != nil; el = el.Parent() {
		for _, b := range h.bindings[el] {
			if b.handler.Str("event") != ev.Type() {
				continue
			}
			h.logger.Debug("dispatch", "event", ev.Type(), "element", fmt.Sprint(el))
			if done := h.d.HandleEvent(h.base.Derive(b.owner, nil), b.handler, ev); done.Failed() {
				return done.Err
			}
		}
		if ev.PropagationStopped() {
			break
		}
	}
	return nil
}
