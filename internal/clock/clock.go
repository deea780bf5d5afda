package clock

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"orgcal/internal/model"
)

var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Now returns the local wall clock as a naive PointInTime.
func Now() model.PointInTime {
	return Naive(time.Now())
}

// Naive keeps the wall-clock fields of t in its own location.
func Naive(t time.Time) model.PointInTime {
	return model.FromTime(t)
}

// Parse reads a reference time given on the command line. Fixed layouts
// are tried first, then natural language ("yesterday 9am", "next monday")
// relative to ref.
func Parse(s string, ref time.Time) (model.PointInTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.PointInTime{}, errors.New("empty time")
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, ref.Location()); err == nil {
			return Naive(t), nil
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(s, ref)
	if err != nil {
		return model.PointInTime{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	if r == nil {
		return model.PointInTime{}, fmt.Errorf("parse time %q: not a recognizable time", s)
	}
	return Naive(r.Time), nil
}
