package org

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"orgcal/internal/model"
)

// innerPattern matches the text between the brackets of one timestamp:
// date, optional day name, optional time or time span, then any repeater
// and delay cookies.
var innerPattern = regexp.MustCompile(
	`^(\d{4})-(\d{2})-(\d{2})` +
		`(?:\s+[^\s\d+.\-][^\s]*)?` +
		`(?:\s+(\d{1,2}):(\d{2})(?:-(\d{1,2}):(\d{2}))?)?` +
		`((?:\s+(?:\+\+|\.\+|\+|--|-)\d+[hdwmy])*)\s*$`)

var cookiePattern = regexp.MustCompile(`(\+\+|\.\+|\+|--|-)(\d+)([hdwmy])`)

// ParseTimestamp parses an Org timestamp such as "<2022-07-26 Tue 10:00-11:00 +1w>"
// or "[2022-07-18 Mon 15:54]--[2022-07-18 Mon 17:07]".
func ParseTimestamp(s string) (model.Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Timestamp{}, fmt.Errorf("empty timestamp")
	}

	var active bool
	var closing string
	switch s[0] {
	case '<':
		active, closing = true, ">"
	case '[':
		active, closing = false, "]"
	default:
		return model.Timestamp{}, fmt.Errorf("timestamp %q: missing opening bracket", s)
	}

	first, rest, found := strings.Cut(s[1:], closing)
	if !found {
		return model.Timestamp{}, fmt.Errorf("timestamp %q: missing closing bracket", s)
	}

	ts, err := parseInner(first)
	if err != nil {
		return model.Timestamp{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	ts.Active = active

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return ts, nil
	}

	// <a>--<b>: the range runs from a's start to b's start.
	if !strings.HasPrefix(rest, "--") {
		return model.Timestamp{}, fmt.Errorf("timestamp %q: unexpected trailing text", s)
	}
	second := strings.TrimPrefix(rest, "--")
	if len(second) < 2 || second[:1] != s[:1] || !strings.HasSuffix(second, closing) {
		return model.Timestamp{}, fmt.Errorf("timestamp %q: malformed range end", s)
	}
	endTs, err := parseInner(second[1 : len(second)-1])
	if err != nil {
		return model.Timestamp{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	end := endTs.Start
	ts.End = &end
	return ts, nil
}

func parseInner(s string) (model.Timestamp, error) {
	m := innerPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return model.Timestamp{}, fmt.Errorf("unrecognized timestamp body %q", s)
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if !validDate(year, month, day) {
		return model.Timestamp{}, fmt.Errorf("invalid date %s-%s-%s", m[1], m[2], m[3])
	}

	var ts model.Timestamp
	if m[4] == "" {
		ts.Start = model.Date(year, time.Month(month), day)
	} else {
		hour, minute, err := clockTime(m[4], m[5])
		if err != nil {
			return model.Timestamp{}, err
		}
		ts.Start = model.DateTime(year, time.Month(month), day, hour, minute, 0)

		if m[6] != "" {
			endHour, endMinute, err := clockTime(m[6], m[7])
			if err != nil {
				return model.Timestamp{}, err
			}
			end := model.DateTime(year, time.Month(month), day, endHour, endMinute, 0)
			ts.End = &end
		}
	}

	for _, c := range cookiePattern.FindAllStringSubmatch(m[8], -1) {
		var kind model.RepeaterKind
		switch c[1] {
		case "+":
			kind = model.Cumulate
		case "++":
			kind = model.CatchUp
		case ".+":
			kind = model.Restart
		default:
			// warning delay, not relevant to calendar output
			continue
		}
		n, err := strconv.Atoi(c[2])
		if err != nil || n <= 0 {
			return model.Timestamp{}, fmt.Errorf("invalid repeater interval %q", c[2])
		}
		if ts.Repeater == nil {
			ts.Repeater = &model.Repeater{Kind: kind, Unit: unitOf(c[3]), Interval: n}
		}
	}

	return ts, nil
}

func clockTime(h, m string) (int, int, error) {
	hour, _ := strconv.Atoi(h)
	minute, _ := strconv.Atoi(m)
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time %s:%s", h, m)
	}
	return hour, minute, nil
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Day() == day && int(t.Month()) == month
}

func unitOf(c string) model.TimeUnit {
	switch c {
	case "h":
		return model.Hour
	case "d":
		return model.Day
	case "w":
		return model.Week
	case "m":
		return model.Month
	default:
		return model.Year
	}
}
