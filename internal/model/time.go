package model

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
)

// PointInTime is a naive wall-clock calendar date, optionally refined with
// a time of day. Whether a time is present is fixed at construction.
type PointInTime struct {
	t       time.Time
	hasTime bool
}

// Date returns a date-only PointInTime.
func Date(year int, month time.Month, day int) PointInTime {
	return PointInTime{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateTime returns a PointInTime carrying a time of day.
func DateTime(year int, month time.Month, day, hour, minute, second int) PointInTime {
	return PointInTime{
		t:       time.Date(year, month, day, hour, minute, second, 0, time.UTC),
		hasTime: true,
	}
}

// FromTime takes the wall-clock fields of t, dropping its location.
func FromTime(t time.Time) PointInTime {
	return DateTime(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// HasTime reports whether p carries a time of day.
func (p PointInTime) HasTime() bool { return p.hasTime }

// IsZero reports whether p was never set.
func (p PointInTime) IsZero() bool { return p.t.IsZero() }

// Time returns the naive value as a time.Time in UTC. Only meant for
// arithmetic between PointInTime values.
func (p PointInTime) Time() time.Time { return p.t }

// AsDateTime returns p in date-time form. Date-only values become midnight.
func (p PointInTime) AsDateTime() PointInTime {
	return PointInTime{t: p.t, hasTime: true}
}

// Sub returns p - q.
func (p PointInTime) Sub(q PointInTime) time.Duration {
	return p.t.Sub(q.t)
}

// Add returns p shifted by d, keeping its form.
func (p PointInTime) Add(d time.Duration) PointInTime {
	return PointInTime{t: p.t.Add(d), hasTime: p.hasTime}
}

// Equal compares value and form.
func (p PointInTime) Equal(q PointInTime) bool {
	return p.hasTime == q.hasTime && p.t.Equal(q.t)
}

// String renders YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS.
func (p PointInTime) String() string {
	if p.hasTime {
		return p.t.Format(dateTimeLayout)
	}
	return p.t.Format(dateLayout)
}

func (p PointInTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *PointInTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePointInTime(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePointInTime parses the two String forms.
func ParsePointInTime(s string) (PointInTime, error) {
	if t, err := time.Parse(dateTimeLayout, s); err == nil {
		return PointInTime{t: t, hasTime: true}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return PointInTime{}, fmt.Errorf("invalid point in time %q", s)
	}
	return PointInTime{t: t}, nil
}

// TimeUnit is the unit of a Repeater.
type TimeUnit int

const (
	Hour TimeUnit = iota
	Day
	Week
	Month
	Year
)

func (u TimeUnit) String() string {
	switch u {
	case Hour:
		return "hour"
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	default:
		return fmt.Sprintf("TimeUnit(%d)", int(u))
	}
}

// RepeaterKind distinguishes Org's cumulate (+), catch-up (++) and restart
// (.+) repeaters. The calendar output treats them alike.
type RepeaterKind int

const (
	Cumulate RepeaterKind = iota
	CatchUp
	Restart
)

// Repeater is a recurrence specification attached to a timestamp.
type Repeater struct {
	Kind     RepeaterKind
	Unit     TimeUnit
	Interval int
}

// Timestamp is an Org timestamp: a point, or a range when End is set.
type Timestamp struct {
	Active   bool
	Start    PointInTime
	End      *PointInTime
	Repeater *Repeater
}

// IsRange reports whether ts has an end point.
func (ts Timestamp) IsRange() bool { return ts.End != nil }

// TimeRange is a closed interval, such as a CLOCK entry.
type TimeRange struct {
	Start PointInTime
	End   PointInTime
}
