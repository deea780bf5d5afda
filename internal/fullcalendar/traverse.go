package fullcalendar

import (
	"fmt"
	"strings"

	appLog "orgcal/internal/log"
	"orgcal/internal/model"
	"orgcal/internal/org"
)

// Mode selects which entries of a document become events.
type Mode string

const (
	// ModePlanning emits DEADLINE and SCHEDULED entries.
	ModePlanning Mode = "plan"
	// ModeClock emits closed CLOCK entries.
	ModeClock Mode = "clock"
	// ModeAll emits planning events followed by clock events.
	ModeAll Mode = "all"
)

// ParseMode accepts the Mode names plus a few aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "plan", "planning", "agenda":
		return ModePlanning, nil
	case "clock", "log", "logbook":
		return ModeClock, nil
	case "all":
		return ModeAll, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Options are fixed for one traversal.
type Options struct {
	// BeforeDays drops entries starting this many whole days before Now.
	// Zero or less disables the bound.
	BeforeDays int
	// AfterDays drops entries starting this many whole days after Now.
	// Zero or less disables the bound.
	AfterDays int
	// FilePath is stamped on every event; empty omits it.
	FilePath string
	// Now is the reference time of the window.
	Now model.PointInTime
}

func (o Options) admit(start model.PointInTime) bool {
	return Included(start, o.BeforeDays, o.AfterDays, o.Now)
}

// Events runs the traversal selected by mode.
func Events(doc *org.Document, mode Mode, opts Options) []model.Event {
	switch mode {
	case ModeClock:
		return ClockEvents(doc, opts)
	case ModeAll:
		return append(PlanningEvents(doc, opts), ClockEvents(doc, opts)...)
	default:
		return PlanningEvents(doc, opts)
	}
}

// PlanningEvents emits, in document order, the deadline and then the
// scheduled event of every heading that has them.
func PlanningEvents(doc *org.Document, opts Options) []model.Event {
	events := make([]model.Event, 0)
	for _, ev := range doc.Events() {
		if ev.Kind != org.Start {
			continue
		}
		h, ok := ev.Element.(*org.Headline)
		if !ok || h.Title.Planning == nil {
			continue
		}
		title := h.Title
		if ts := title.Planning.Deadline; ts != nil && ts.Active && opts.admit(ts.Start) {
			warnNegativeRange(title, *ts)
			events = append(events, DeadlineEvent(title, *ts, opts.FilePath))
		}
		if ts := title.Planning.Scheduled; ts != nil && ts.Active && opts.admit(ts.Start) {
			warnNegativeRange(title, *ts)
			events = append(events, ScheduledEvent(title, *ts, opts.FilePath))
		}
	}
	return events
}

// ClockEvents emits one event per closed CLOCK entry, attributed to the
// nearest preceding heading. Running clocks are skipped.
func ClockEvents(doc *org.Document, opts Options) []model.Event {
	events := make([]model.Event, 0)
	current := model.Heading{}
	for _, ev := range doc.Events() {
		if ev.Kind != org.Start {
			continue
		}
		switch el := ev.Element.(type) {
		case *org.Headline:
			current = el.Title
		case *org.Clock:
			if !el.Closed() || !opts.admit(el.Start) {
				continue
			}
			r := el.Range()
			if r.End.Time().Before(r.Start.Time()) {
				appLog.Warn("clock ends before it starts", "heading", current.Raw, "start", r.Start, "end", r.End)
			}
			events = append(events, ClockEvent(current, r, opts.FilePath))
		}
	}
	return events
}

func warnNegativeRange(h model.Heading, ts model.Timestamp) {
	if ts.End != nil && ts.End.Time().Before(ts.Start.Time()) {
		appLog.Warn("timestamp range ends before it starts", "heading", h.Raw, "start", ts.Start, "end", *ts.End)
	}
}
