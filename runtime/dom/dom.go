// Package dom is the element model scripts run against. Element, Document
// and Event are interfaces so hosts can bind a live tree; ParseHTML provides
// an implementation over golang.org/x/net/html for tests and tooling.
package dom

// Element is one node of the interface tree.
type Element interface {
	TagName() string
	ID() string

	Classes() []string
	HasClass(name string) bool
	AddClass(name string)
	RemoveClass(name string)
	ToggleClass(name string) bool

	Attr(name string) (string, bool)
	SetAttr(name, value string)
	RemoveAttr(name string)

	Text() string
	SetText(text string)
	// SetHTML replaces the children with parsed markup.
	SetHTML(markup string) error
	// Insert parses markup and places it relative to the element: "before",
	// "after", "start" (first child) or "end" (last child).
	Insert(position, markup string) error

	Style(name string) string
	SetStyle(name, value string)

	// Property reads script-visible properties such as value or checked.
	Property(name string) (any, bool)
	SetProperty(name string, value any)

	Matches(selector string) (bool, error)
	Closest(selector string) (Element, error)
	QueryAll(selector string) ([]Element, error)

	Parent() Element
	Children() []Element
	Next() Element
	Previous() Element
}

// Document is the root of a tree.
type Document interface {
	Root() Element
	ByID(id string) Element
	QueryAll(selector string) ([]Element, error)
}

// Event is a dispatched event.
type Event interface {
	Type() string
	Target() Element
	Detail() any
	PreventDefault()
	StopPropagation()
	DefaultPrevented() bool
	PropagationStopped() bool
}

// Suppressor is what `halt the event` needs from a value.
type Suppressor interface {
	PreventDefault()
	StopPropagation()
}

// IsEvent reports whether v can be halted like an event. The check is
// structural: any value with PreventDefault and StopPropagation qualifies.
func IsEvent(v any) bool {
	_, ok := v.(Suppressor)
	return ok
}

// EventSink receives events sent by scripts.
type EventSink interface {
	Dispatch(target Element, ev Event) error
}

// BasicEvent is a plain Event value.
type BasicEvent struct {
	typ       string
	target    Element
	detail    any
	prevented bool
	stopped   bool
}

// NewEvent creates an event.
func NewEvent(typ string, target Element, detail any) *BasicEvent {
	return &BasicEvent{typ: typ, target: target, detail: detail}
}

func (e *BasicEvent) Type() string             { return e.typ }
func (e *BasicEvent) Target() Element          { return e.target }
func (e *BasicEvent) Detail() any              { return e.detail }
func (e *BasicEvent) PreventDefault()          { e.prevented = true }
func (e *BasicEvent) StopPropagation()         { e.stopped = true }
func (e *BasicEvent) DefaultPrevented() bool   { return e.prevented }
func (e *BasicEvent) PropagationStopped() bool { return e.stopped }

// Recorder is an EventSink that keeps what it receives.
type Recorder struct {
	Events  []Event
	Targets []Element
}

func (r *Recorder) Dispatch(target Element, ev Event) error {
	r.Events = append(r.Events, ev)
	r.Targets = append(r.Targets, target)
	return nil
}
