package org

// EventKind marks the opening or closing of an element.
type EventKind int

const (
	Start EventKind = iota
	End
)

// Element is a node of the flattened stream: *Headline or *Clock.
type Element interface {
	element()
}

func (*Headline) element() {}
func (*Clock) element()    {}

// Event is one step of a document walk.
type Event struct {
	Kind    EventKind
	Element Element
}

// Events flattens the document in order: each headline opens, then the
// CLOCK entries of its own section, then its children, then it closes.
func (d *Document) Events() []Event {
	var out []Event
	for _, c := range d.Clocks {
		out = append(out, Event{Start, c}, Event{End, c})
	}
	for _, h := range d.Headlines {
		out = appendHeadline(out, h)
	}
	return out
}

func appendHeadline(out []Event, h *Headline) []Event {
	out = append(out, Event{Start, h})
	for _, c := range h.Clocks {
		out = append(out, Event{Start, c}, Event{End, c})
	}
	for _, child := range h.Children {
		out = appendHeadline(out, child)
	}
	return append(out, Event{End, h})
}
