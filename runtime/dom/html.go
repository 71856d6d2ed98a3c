package dom

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLDocument is a Document over a parsed HTML tree.
type HTMLDocument struct {
	root *html.Node

	mu        sync.Mutex
	elements  map[*html.Node]*HTMLElement
	selectors map[string]cascadia.Selector
}

// ParseHTML parses a full document.
func ParseHTML(r io.Reader) (*HTMLDocument, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &HTMLDocument{
		root:      root,
		elements:  map[*html.Node]*HTMLElement{},
		selectors: map[string]cascadia.Selector{},
	}, nil
}

// MustParseHTML parses markup and panics on failure. Intended for tests.
func MustParseHTML(markup string) *HTMLDocument {
	doc, err := ParseHTML(strings.NewReader(markup))
	if err != nil {
		panic(err)
	}
	return doc
}

// Root returns the <html> element.
func (d *HTMLDocument) Root() Element {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return d.wrap(c)
		}
	}
	return nil
}

// Body returns the <body> element, or nil.
func (d *HTMLDocument) Body() Element {
	n := findFirst(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Body })
	if n == nil {
		return nil
	}
	return d.wrap(n)
}

func (d *HTMLDocument) ByID(id string) Element {
	n := findFirst(d.root, func(n *html.Node) bool { return attr(n, "id") == id })
	if n == nil {
		return nil
	}
	return d.wrap(n)
}

func (d *HTMLDocument) QueryAll(selector string) ([]Element, error) {
	return d.queryAll(d.root, selector)
}

// Render writes the document as HTML.
func (d *HTMLDocument) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

func (d *HTMLDocument) compile(selector string) (cascadia.Selector, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sel, ok := d.selectors[selector]; ok {
		return sel, nil
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	d.selectors[selector] = sel
	return sel, nil
}

func (d *HTMLDocument) queryAll(from *html.Node, selector string) ([]Element, error) {
	sel, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	var out []Element
	walk(from, func(n *html.Node) {
		if n != from && n.Type == html.ElementNode && sel.Match(n) {
			out = append(out, d.wrap(n))
		}
	})
	return out, nil
}

// wrap returns the single wrapper of n, so wrappers compare by identity.
func (d *HTMLDocument) wrap(n *html.Node) *HTMLElement {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.elements[n]; ok {
		return el
	}
	el := &HTMLElement{node: n, doc: d}
	d.elements[n] = el
	return el
}

// HTMLElement is an Element backed by an html.Node.
type HTMLElement struct {
	node  *html.Node
	doc   *HTMLDocument
	props map[string]any
}

// Node exposes the underlying node.
func (e *HTMLElement) Node() *html.Node { return e.node }

func (e *HTMLElement) TagName() string { return e.node.Data }
func (e *HTMLElement) ID() string      { return attr(e.node, "id") }

func (e *HTMLElement) Classes() []string {
	return strings.Fields(attr(e.node, "class"))
}

func (e *HTMLElement) HasClass(name string) bool {
	return slices.Contains(e.Classes(), name)
}

func (e *HTMLElement) AddClass(name string) {
	if e.HasClass(name) {
		return
	}
	e.SetAttr("class", strings.Join(append(e.Classes(), name), " "))
}

func (e *HTMLElement) RemoveClass(name string) {
	classes := slices.DeleteFunc(e.Classes(), func(c string) bool { return c == name })
	if len(classes) == 0 {
		e.RemoveAttr("class")
		return
	}
	e.SetAttr("class", strings.Join(classes, " "))
}

// ToggleClass flips a class and reports whether it is now present.
func (e *HTMLElement) ToggleClass(name string) bool {
	if e.HasClass(name) {
		e.RemoveClass(name)
		return false
	}
	e.AddClass(name)
	return true
}

func (e *HTMLElement) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (e *HTMLElement) SetAttr(name, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

func (e *HTMLElement) RemoveAttr(name string) {
	e.node.Attr = slices.DeleteFunc(e.node.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == name
	})
}

func (e *HTMLElement) Text() string {
	var b strings.Builder
	walk(e.node, func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
	})
	return b.String()
}

func (e *HTMLElement) SetText(text string) {
	removeChildren(e.node)
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// HTML renders the element's children.
func (e *HTMLElement) HTML() string {
	var b strings.Builder
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

func (e *HTMLElement) SetHTML(markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.node)
	if err != nil {
		return fmt.Errorf("parse fragment: %w", err)
	}
	removeChildren(e.node)
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	return nil
}

func (e *HTMLElement) Insert(position, markup string) error {
	context := e.node
	if (position == "before" || position == "after") && e.node.Parent != nil {
		context = e.node.Parent
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return fmt.Errorf("parse fragment: %w", err)
	}

	switch position {
	case "before":
		if e.node.Parent == nil {
			return fmt.Errorf("insert before: element has no parent")
		}
		for _, n := range nodes {
			e.node.Parent.InsertBefore(n, e.node)
		}
	case "after":
		if e.node.Parent == nil {
			return fmt.Errorf("insert after: element has no parent")
		}
		next := e.node.NextSibling
		for _, n := range nodes {
			e.node.Parent.InsertBefore(n, next)
		}
	case "start":
		first := e.node.FirstChild
		for _, n := range nodes {
			e.node.InsertBefore(n, first)
		}
	case "end":
		for _, n := range nodes {
			e.node.AppendChild(n)
		}
	default:
		return fmt.Errorf("unknown insert position %q", position)
	}
	return nil
}

func (e *HTMLElement) Style(name string) string {
	for _, decl := range styleDecls(attr(e.node, "style")) {
		if decl[0] == name {
			return decl[1]
		}
	}
	return ""
}

func (e *HTMLElement) SetStyle(name, value string) {
	decls := styleDecls(attr(e.node, "style"))
	found := false
	for i := range decls {
		if decls[i][0] == name {
			decls[i][1] = value
			found = true
		}
	}
	if !found {
		decls = append(decls, [2]string{name, value})
	}
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		if d[1] != "" {
			parts = append(parts, d[0]+": "+d[1])
		}
	}
	if len(parts) == 0 {
		e.RemoveAttr("style")
		return
	}
	e.SetAttr("style", strings.Join(parts, "; "))
}

func styleDecls(style string) [][2]string {
	var out [][2]string
	for _, part := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		out = append(out, [2]string{strings.TrimSpace(name), strings.TrimSpace(value)})
	}
	return out
}

// booleanAttrs are exposed as bool properties.
var booleanAttrs = map[string]bool{
	"checked": true, "disabled": true, "hidden": true, "selected": true, "required": true, "readonly": true,
}

func (e *HTMLElement) Property(name string) (any, bool) {
	switch name {
	case "id":
		return e.ID(), true
	case "tagName":
		return e.TagName(), true
	case "className":
		return attr(e.node, "class"), true
	case "textContent", "innerText":
		return e.Text(), true
	case "innerHTML":
		return e.HTML(), true
	}
	if v, ok := e.props[name]; ok {
		return v, true
	}
	if booleanAttrs[name] {
		_, ok := e.Attr(name)
		return ok, true
	}
	if v, ok := e.Attr(name); ok {
		return v, true
	}
	return nil, false
}

func (e *HTMLElement) SetProperty(name string, value any) {
	switch name {
	case "id":
		e.SetAttr("id", fmt.Sprint(value))
		return
	case "className":
		e.SetAttr("class", fmt.Sprint(value))
		return
	case "textContent", "innerText":
		e.SetText(fmt.Sprint(value))
		return
	case "innerHTML":
		if err := e.SetHTML(fmt.Sprint(value)); err == nil {
			return
		}
	}
	if booleanAttrs[name] {
		if b, ok := value.(bool); ok {
			if b {
				e.SetAttr(name, "")
			} else {
				e.RemoveAttr(name)
			}
			return
		}
	}
	if e.props == nil {
		e.props = map[string]any{}
	}
	e.props[name] = value
}

func (e *HTMLElement) Matches(selector string) (bool, error) {
	sel, err := e.doc.compile(selector)
	if err != nil {
		return false, err
	}
	return sel.Match(e.node), nil
}

// Closest returns the nearest ancestor, or the element itself, matching
// selector. It returns nil without error when none matches.
func (e *HTMLElement) Closest(selector string) (Element, error) {
	sel, err := e.doc.compile(selector)
	if err != nil {
		return nil, err
	}
	for n := e.node; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if sel.Match(n) {
			return e.doc.wrap(n), nil
		}
	}
	return nil, nil
}

func (e *HTMLElement) QueryAll(selector string) ([]Element, error) {
	return e.doc.queryAll(e.node, selector)
}

func (e *HTMLElement) Parent() Element {
	if p := e.node.Parent; p != nil && p.Type == html.ElementNode {
		return e.doc.wrap(p)
	}
	return nil
}

func (e *HTMLElement) Children() []Element {
	var out []Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out
}

func (e *HTMLElement) Next() Element {
	for s := e.node.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return e.doc.wrap(s)
		}
	}
	return nil
}

func (e *HTMLElement) Previous() Element {
	for s := e.node.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return e.doc.wrap(s)
		}
	}
	return nil
}

func (e *HTMLElement) String() string {
	var b strings.Builder
	b.WriteString("<" + e.node.Data)
	if id := e.ID(); id != "" {
		b.WriteString("#" + id)
	}
	for _, c := range e.Classes() {
		b.WriteString("." + c)
	}
	b.WriteString(">")
	return b.String()
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val
		}
	}
	return ""
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}
