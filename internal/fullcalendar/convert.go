package fullcalendar

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"orgcal/internal/model"
	"orgcal/internal/org"
)

// Convert parses an Org document and runs the traversal for mode. A zero
// opts.Now means the local wall clock.
func Convert(text string, mode Mode, opts Options, parseOpts ...org.Option) ([]model.Event, error) {
	doc, err := org.Parse(text, parseOpts...)
	if err != nil {
		return nil, err
	}
	if opts.Now.IsZero() {
		opts.Now = model.FromTime(time.Now())
	}
	return Events(doc, mode, opts), nil
}

// OrgToEvents converts the DEADLINE/SCHEDULED entries of a document.
func OrgToEvents(text string, opts Options, parseOpts ...org.Option) ([]model.Event, error) {
	return Convert(text, ModePlanning, opts, parseOpts...)
}

// OrgToClockEvents converts the closed CLOCK entries of a document.
func OrgToClockEvents(text string, opts Options, parseOpts ...org.Option) ([]model.Event, error) {
	return Convert(text, ModeClock, opts, parseOpts...)
}

// OrgToJSON is OrgToEvents followed by MarshalJSON.
func OrgToJSON(text string, opts Options, parseOpts ...org.Option) (string, error) {
	events, err := OrgToEvents(text, opts, parseOpts...)
	if err != nil {
		return "", err
	}
	data, err := MarshalJSON(events)
	return string(data), err
}

// OrgToClockJSON is OrgToClockEvents followed by MarshalJSON.
func OrgToClockJSON(text string, opts Options, parseOpts ...org.Option) (string, error) {
	events, err := OrgToClockEvents(text, opts, parseOpts...)
	if err != nil {
		return "", err
	}
	data, err := MarshalJSON(events)
	return string(data), err
}

// MarshalJSON renders events as an indented JSON array without a trailing
// newline. HTML characters are left unescaped so "<br>" stays readable.
func MarshalJSON(events []model.Event) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, events); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// EncodeJSON writes events as an indented JSON array followed by a newline.
func EncodeJSON(w io.Writer, events []model.Event) error {
	if events == nil {
		events = []model.Event{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(events)
}
