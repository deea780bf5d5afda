// Package expand turns recurring calendar events into concrete
// occurrences inside a time window.
package expand

import (
	"errors"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	"orgcal/internal/fullcalendar"
	appLog "orgcal/internal/log"
	"orgcal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// Config controls how recurrence expansion is performed.
type Config struct {
	// RangeStart / RangeEnd define the inclusive window for occurrences.
	RangeStart model.PointInTime
	RangeEnd   model.PointInTime

	// MaxOccurrencesPerEvent caps a single rule. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// Result wraps the expanded events and the titles of events whose
// expansion hit the cap.
type Result struct {
	Events          []model.Event
	TruncatedEvents []string
}

// Occurrences expands every event carrying an rrule into one
// non-recurring event per occurrence in the window. Events without an
// rrule are kept when they overlap the window. The result is ordered by
// start, ties keeping input order.
func Occurrences(events []model.Event, cfg Config) (Result, error) {
	var result Result

	if cfg.RangeEnd.Time().Before(cfg.RangeStart.Time()) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.RRule == nil {
			if overlaps(ev, cfg) {
				out = append(out, ev)
			}
			continue
		}
		occ, hitCap := expandRecurring(ev, cfg)
		if hitCap {
			result.TruncatedEvents = append(result.TruncatedEvents, ev.Title)
			appLog.Error("expand: truncated occurrences due to cap",
				errors.New("max occurrences reached"),
				"title", ev.Title,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
		out = append(out, occ...)
	}

	slices.SortStableFunc(out, func(a, b model.Event) int {
		return a.Start.Time().Compare(b.Start.Time())
	})
	result.Events = out
	return result, nil
}

func expandRecurring(ev model.Event, cfg Config) ([]model.Event, bool) {
	out := make([]model.Event, 0)

	opt, ok := fullcalendar.ROption(ev.RRule)
	if !ok {
		appLog.Warn("expand: unsupported rrule frequency", "title", ev.Title, "freq", ev.RRule.Freq)
		return out, false
	}
	r, err := rrule.NewRRule(opt)
	if err != nil {
		appLog.Error("expand: failed to build rrule", err, "title", ev.Title, "freq", ev.RRule.Freq)
		return out, false
	}

	span := eventSpan(ev)
	// An occurrence starting before the window still counts while it runs.
	rangeStart := cfg.RangeStart.Time()
	if span > 0 {
		rangeStart = rangeStart.Add(-span)
	}
	occTimes := r.Between(rangeStart, cfg.RangeEnd.Time(), true)

	hitCap := false
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	for _, t := range occTimes {
		occ := ev
		occ.RRule = nil
		occ.Duration = nil
		occ.Start = shape(t, ev.Start.HasTime())
		occ.End = nil
		if span > 0 {
			end := occ.Start.AsDateTime().Add(span)
			occ.End = &end
		}
		out = append(out, occ)
	}
	return out, hitCap
}

// eventSpan is the length of one occurrence, taken from the duration
// field. Unparseable or negative durations count as zero.
func eventSpan(ev model.Event) time.Duration {
	if ev.Duration == nil {
		return 0
	}
	d, err := fullcalendar.ParseDuration(*ev.Duration)
	if err != nil {
		appLog.Warn("expand: ignoring bad duration", "title", ev.Title, "duration", *ev.Duration)
		return 0
	}
	return max(d, 0)
}

func shape(t time.Time, hasTime bool) model.PointInTime {
	if hasTime {
		return model.FromTime(t)
	}
	return model.Date(t.Year(), t.Month(), t.Day())
}

func overlaps(ev model.Event, cfg Config) bool {
	start := ev.Start.Time()
	end := start
	if ev.End != nil && ev.End.Time().After(start) {
		end = ev.End.Time()
	}
	if end.Before(cfg.RangeStart.Time()) {
		return false
	}
	if cfg.RangeEnd.Time().Before(start) {
		return false
	}
	return true
}
