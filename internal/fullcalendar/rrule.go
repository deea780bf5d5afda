package fullcalendar

import (
	"github.com/teambition/rrule-go"

	"orgcal/internal/model"
)

// frequencies maps Org repeater units to RFC 5545 frequencies and the
// lowercase names the FullCalendar rrule plugin expects.
var frequencies = map[model.TimeUnit]struct {
	freq rrule.Frequency
	name string
}{
	model.Year:  {rrule.YEARLY, "yearly"},
	model.Month: {rrule.MONTHLY, "monthly"},
	model.Week:  {rrule.WEEKLY, "weekly"},
	model.Day:   {rrule.DAILY, "daily"},
	model.Hour:  {rrule.HOURLY, "hourly"},
}

// MakeRRule translates a repeater into an rrule anchored at start. It
// returns nil when there is no repeater.
func MakeRRule(start model.PointInTime, repeater *model.Repeater) *model.RRule {
	if repeater == nil {
		return nil
	}
	f, ok := frequencies[repeater.Unit]
	if !ok {
		return nil
	}
	return &model.RRule{
		DTStart:  start,
		Freq:     f.name,
		Interval: repeater.Interval,
	}
}

// ROption converts an event's rrule into rrule-go options for expansion
// and RRULE serialization.
func ROption(r *model.RRule) (rrule.ROption, bool) {
	if r == nil {
		return rrule.ROption{}, false
	}
	for _, f := range frequencies {
		if f.name == r.Freq {
			return rrule.ROption{
				Freq:     f.freq,
				Interval: r.Interval,
				Dtstart:  r.DTStart.Time(),
			}, true
		}
	}
	return rrule.ROption{}, false
}
