// Package ics renders calendar events as an iCalendar document.
package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"orgcal/internal/fullcalendar"
	appLog "orgcal/internal/log"
	"orgcal/internal/model"
)

const (
	dateLayout     = "20060102"
	dateTimeLayout = "20060102T150405"

	propertyFile     ical.ComponentProperty = "X-ORGCAL-FILE"
	propertyColor    ical.ComponentProperty = "COLOR"
	propertyDuration ical.ComponentProperty = "DURATION"
)

// uidNamespace scopes the name-based UIDs of exported events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:orgcal"))

// Options controls calendar-level properties.
type Options struct {
	// Name becomes X-WR-CALNAME when set.
	Name string
	// Stamp is written as DTSTAMP on every event. Zero means now.
	Stamp time.Time
}

// Export renders events as one VEVENT each. Times are floating, since
// Org timestamps carry no zone.
func Export(events []model.Event, opts Options) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//orgcal//orgcal//EN")
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	seen := make(map[string]int, len(events))
	for _, ev := range events {
		uid := UID(ev)
		// Identical entries in one file still need distinct UIDs.
		if n := seen[uid]; n > 0 {
			seen[uid] = n + 1
			uid = fmt.Sprintf("%s-%d", uid, n)
		} else {
			seen[uid] = 1
		}
		addEvent(cal, uid, ev, stamp)
	}
	return cal.Serialize()
}

// UID derives a stable identifier from the title, start and file path.
func UID(ev model.Event) string {
	var b strings.Builder
	b.WriteString(ev.Title)
	b.WriteByte(0)
	b.WriteString(ev.Start.String())
	if ev.FilePath != nil {
		b.WriteByte(0)
		b.WriteString(*ev.FilePath)
	}
	return uuid.NewSHA1(uidNamespace, []byte(b.String())).String() + "@orgcal"
}

func addEvent(cal *ical.Calendar, uid string, ev model.Event, stamp time.Time) {
	vev := cal.AddEvent(uid)
	vev.SetDtStampTime(stamp)
	vev.SetSummary(ev.Title)
	setPoint(vev, ical.ComponentPropertyDtStart, ev.Start)

	if ev.End != nil {
		if ev.End.Time().Before(ev.Start.Time()) {
			appLog.Warn("ics: dropping end before start", "title", ev.Title, "start", ev.Start, "end", *ev.End)
		} else {
			setPoint(vev, ical.ComponentPropertyDtEnd, *ev.End)
		}
	}

	if opt, ok := fullcalendar.ROption(ev.RRule); ok {
		vev.AddRrule(opt.RRuleString())
		if ev.Duration != nil {
			if d, err := fullcalendar.ParseDuration(*ev.Duration); err == nil && d > 0 {
				vev.SetProperty(propertyDuration, isoDuration(d))
			}
		}
	}

	if ev.Description != nil && *ev.Description != "" {
		desc := strings.TrimSuffix(strings.ReplaceAll(*ev.Description, "<br>", "\n"), "\n")
		vev.SetDescription(desc)
	}
	if ev.Color != nil {
		vev.SetProperty(propertyColor, *ev.Color)
	}
	if ev.FilePath != nil {
		vev.SetProperty(propertyFile, *ev.FilePath)
	}
}

func setPoint(vev *ical.VEvent, prop ical.ComponentProperty, p model.PointInTime) {
	if !p.HasTime() {
		vev.SetProperty(prop, p.Time().Format(dateLayout), &ical.KeyValues{
			Key:   string(ical.ParameterValue),
			Value: []string{"DATE"},
		})
		return
	}
	vev.SetProperty(prop, p.Time().Format(dateTimeLayout))
}

// isoDuration renders d as an RFC 5545 dur-time, e.g. PT1H30M.
func isoDuration(d time.Duration) string {
	h := int64(d / time.Hour)
	m := int64((d % time.Hour) / time.Minute)
	var b strings.Builder
	b.WriteString("PT")
	if h > 0 {
		fmt.Fprintf(&b, "%dH", h)
	}
	if m > 0 || h == 0 {
		fmt.Fprintf(&b, "%dM", m)
	}
	return b.String()
}
