package org

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"orgcal/internal/model"
)

var (
	ErrInvalidUTF8 = errors.New("org: document is not valid UTF-8")
	ErrBinary      = errors.New("org: document contains NUL bytes")
)

var defaultTodoKeywords = []string{"TODO", "DONE"}

var (
	headlinePattern = regexp.MustCompile(`^(\*+)[ \t]+(.*)$`)
	tagsPattern     = regexp.MustCompile(`\s+(:[\p{L}\p{N}_@#%:]+:)\s*$`)
	priorityPattern = regexp.MustCompile(`^\[#([A-Za-z0-9])\]\s*`)
	planningPattern = regexp.MustCompile(`(DEADLINE|SCHEDULED|CLOSED):\s*(<[^>]*>(?:--<[^>]*>)?|\[[^\]]*\](?:--\[[^\]]*\])?)`)
	clockPattern    = regexp.MustCompile(`^CLOCK:\s*(\[[^\]]*\](?:--\[[^\]]*\])?)(?:\s*=>\s*(\S+))?`)
	propertyPattern = regexp.MustCompile(`^:([^:\s]+):(?:\s+(.*))?$`)
)

// Headline is a heading node with the CLOCK entries of its own section and
// its child headings.
type Headline struct {
	Title    model.Heading
	Clocks   []*Clock
	Children []*Headline
}

// Clock is a CLOCK line. End is nil while the clock is still running.
type Clock struct {
	Start    model.PointInTime
	End      *model.PointInTime
	Duration string // the "=> H:MM" cookie as written, if any
}

// Closed reports whether the clock has an end point.
func (c *Clock) Closed() bool { return c.End != nil }

// Range returns the clocked interval. Only meaningful when Closed.
func (c *Clock) Range() model.TimeRange {
	return model.TimeRange{Start: c.Start, End: *c.End}
}

// Document is a parsed Org file.
type Document struct {
	// Clocks found before the first headline.
	Clocks    []*Clock
	Headlines []*Headline
}

type parser struct {
	keywords map[string]bool
}

// Option configures Parse.
type Option func(*parser)

// WithTodoKeywords replaces the default TODO/DONE keyword set.
func WithTodoKeywords(keywords ...string) Option {
	return func(p *parser) {
		if len(keywords) == 0 {
			return
		}
		p.keywords = make(map[string]bool, len(keywords))
		for _, k := range keywords {
			p.keywords[k] = true
		}
	}
}

// Parse reads the headlines, planning lines, property drawers and CLOCK
// lines of an Org document. Everything else is skipped. Malformed
// timestamps are treated as plain text.
func Parse(text string, opts ...Option) (*Document, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidUTF8
	}
	if strings.ContainsRune(text, 0) {
		return nil, ErrBinary
	}

	p := &parser{}
	WithTodoKeywords(defaultTodoKeywords...)(p)
	for _, opt := range opts {
		opt(p)
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	doc := &Document{}
	var stack []*Headline

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if isBlockStart(trimmed) {
			i = skipBlock(lines, i)
			continue
		}

		if m := headlinePattern.FindStringSubmatch(line); m != nil {
			h := &Headline{Title: p.parseTitle(len(m[1]), m[2])}
			i = parseHeadlineMeta(lines, i, &h.Title)

			for len(stack) > 0 && stack[len(stack)-1].Title.Level >= h.Title.Level {
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				doc.Headlines = append(doc.Headlines, h)
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, h)
			}
			stack = append(stack, h)
			continue
		}

		if c, ok := parseClock(trimmed); ok {
			if len(stack) == 0 {
				doc.Clocks = append(doc.Clocks, c)
			} else {
				top := stack[len(stack)-1]
				top.Clocks = append(top.Clocks, c)
			}
		}
	}

	return doc, nil
}

func (p *parser) parseTitle(level int, text string) model.Heading {
	h := model.Heading{Level: level}

	if m := tagsPattern.FindStringSubmatchIndex(text); m != nil {
		tags := text[m[2]:m[3]]
		for _, t := range strings.Split(strings.Trim(tags, ":"), ":") {
			if t != "" {
				h.Tags = append(h.Tags, t)
			}
		}
		text = text[:m[0]]
	}

	if word, rest, _ := strings.Cut(text, " "); p.keywords[word] {
		h.Keyword = word
		text = rest
	} else if p.keywords[strings.TrimSpace(text)] {
		h.Keyword = strings.TrimSpace(text)
		text = ""
	}

	text = strings.TrimLeft(text, " \t")
	if m := priorityPattern.FindStringSubmatch(text); m != nil {
		h.Priority = m[1]
		text = text[len(m[0]):]
	}

	h.Raw = strings.TrimSpace(text)
	return h
}

// parseHeadlineMeta consumes the planning line and property drawer that
// may directly follow the headline at index i. It returns the index of the
// last consumed line.
func parseHeadlineMeta(lines []string, i int, h *model.Heading) int {
	if i+1 < len(lines) {
		if planning, ok := parsePlanning(strings.TrimSpace(lines[i+1])); ok {
			h.Planning = planning
			i++
		}
	}

	if i+1 >= len(lines) || !strings.EqualFold(strings.TrimSpace(lines[i+1]), ":PROPERTIES:") {
		return i
	}

	var props model.Properties
	for j := i + 2; j < len(lines); j++ {
		trimmed := strings.TrimSpace(lines[j])
		if strings.EqualFold(trimmed, ":END:") {
			h.Properties = props
			return j
		}
		if headlinePattern.MatchString(lines[j]) {
			break
		}
		m := propertyPattern.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		props = append(props, model.Property{
			Key:   strings.TrimSuffix(m[1], "+"),
			Value: strings.TrimSpace(m[2]),
		})
	}

	// Unterminated drawer: not a property drawer.
	return i
}

// parsePlanning consumes any line led by a planning keyword. Entries whose
// timestamp does not parse are left nil.
func parsePlanning(line string) (*model.Planning, bool) {
	if !strings.HasPrefix(line, "DEADLINE:") &&
		!strings.HasPrefix(line, "SCHEDULED:") &&
		!strings.HasPrefix(line, "CLOSED:") {
		return nil, false
	}

	planning := &model.Planning{}
	for _, m := range planningPattern.FindAllStringSubmatch(line, -1) {
		ts, err := ParseTimestamp(m[2])
		if err != nil {
			continue
		}
		switch m[1] {
		case "DEADLINE":
			planning.Deadline = &ts
		case "SCHEDULED":
			planning.Scheduled = &ts
		case "CLOSED":
			planning.Closed = &ts
		}
	}
	return planning, true
}

func parseClock(line string) (*Clock, bool) {
	m := clockPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	ts, err := ParseTimestamp(m[1])
	if err != nil {
		return nil, false
	}
	c := &Clock{Start: ts.Start, Duration: m[2]}
	// A lone timestamp with a time span ("[d 10:00-11:00]") is not a
	// closed clock in Org; only the "--" form is.
	if strings.Contains(m[1], "]--[") {
		c.End = ts.End
	}
	return c, true
}

func isBlockStart(line string) bool {
	return strings.HasPrefix(strings.ToLower(line), "#+begin_")
}

func skipBlock(lines []string, i int) int {
	for j := i + 1; j < len(lines); j++ {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(lines[j])), "#+end_") {
			return j
		}
	}
	// Unterminated block: treat the opening line as plain text.
	return i
}
