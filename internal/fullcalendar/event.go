package fullcalendar

import (
	"github.com/AlekSi/pointer"

	"orgcal/internal/model"
)

const (
	DeadlinePrefix  = "DL: "
	ScheduledPrefix = "SCL: "
)

// DeadlineEvent builds the event for a heading's DEADLINE timestamp.
func DeadlineEvent(h model.Heading, ts model.Timestamp, filePath string) model.Event {
	return planningEvent(h, ts, DeadlinePrefix, filePath)
}

// ScheduledEvent builds the event for a heading's SCHEDULED timestamp.
func ScheduledEvent(h model.Heading, ts model.Timestamp, filePath string) model.Event {
	return planningEvent(h, ts, ScheduledPrefix, filePath)
}

func planningEvent(h model.Heading, ts model.Timestamp, prefix, filePath string) model.Event {
	if ts.IsRange() {
		return rangeEvent(h, ts.Start, *ts.End, ts.Repeater, prefix, filePath)
	}
	return pointEvent(h, ts.Start, ts.Repeater, prefix, filePath)
}

// pointEvent keeps the start's form, so date-only entries render as
// all-day events.
func pointEvent(h model.Heading, start model.PointInTime, repeater *model.Repeater, prefix, filePath string) model.Event {
	ev := model.Event{
		Title: TitleWithKeyword(h, prefix),
		Start: start,
		RRule: MakeRRule(start, repeater),
	}
	decorate(&ev, h, filePath)
	return ev
}

// rangeEvent forces both ends into date-time form. The duration is only
// needed by FullCalendar for recurring events, so it is set only then.
func rangeEvent(h model.Heading, start, end model.PointInTime, repeater *model.Repeater, prefix, filePath string) model.Event {
	endDT := end.AsDateTime()
	ev := model.Event{
		Title: TitleWithKeyword(h, prefix),
		Start: start.AsDateTime(),
		End:   &endDT,
		RRule: MakeRRule(start, repeater),
	}
	if ev.RRule != nil {
		ev.Duration = pointer.ToString(FormatDuration(start, end))
	}
	decorate(&ev, h, filePath)
	return ev
}

// ClockEvent builds the event for a closed CLOCK interval.
func ClockEvent(h model.Heading, r model.TimeRange, filePath string) model.Event {
	end := r.End.AsDateTime()
	ev := model.Event{
		Title:    TitleWithoutKeyword(h, ""),
		Start:    r.Start.AsDateTime(),
		End:      &end,
		Duration: pointer.ToString(FormatDuration(r.Start, r.End)),
	}
	decorate(&ev, h, filePath)
	return ev
}

func decorate(ev *model.Event, h model.Heading, filePath string) {
	// Description is always present, even when empty; the rest are
	// omitted when empty.
	ev.Description = pointer.ToString(Description(h))
	ev.Color = pointer.ToStringOrNil(Color(h))
	ev.TextColor = pointer.ToStringOrNil(TextColor(h))
	ev.FilePath = pointer.ToStringOrNil(filePath)
}
