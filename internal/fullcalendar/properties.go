package fullcalendar

import (
	"strings"

	"orgcal/internal/model"
)

const (
	descriptionKey = "DESCRIPTION"
	bgColorKey     = "FC_BG_COLOR"
	textColorKey   = "FC_TXT_COLOR"

	lineBreak = "<br>"
)

// Description joins every DESCRIPTION property, each followed by <br>.
// Without one, the heading's title (keyword included) is used.
func Description(h model.Heading) string {
	var b strings.Builder
	found := false
	for _, p := range h.Properties {
		if p.Key == descriptionKey {
			found = true
			b.WriteString(p.Value)
			b.WriteString(lineBreak)
		}
	}
	if !found {
		return TitleWithKeyword(h, "")
	}
	return b.String()
}

// Color is the last FC_BG_COLOR value; "" means unset.
func Color(h model.Heading) string {
	color := ""
	for _, p := range h.Properties {
		if p.Key == bgColorKey {
			color = p.Value
		}
	}
	return color
}

// TextColor is the last FC_TXT_COLOR value; "" means unset.
func TextColor(h model.Heading) string {
	color := ""
	for _, p := range h.Properties {
		if p.Key == textColorKey {
			color = p.Value
		}
	}
	return color
}

// TitleWithKeyword renders prefix, the TODO keyword if any, then the raw title.
func TitleWithKeyword(h model.Heading, prefix string) string {
	if h.Keyword == "" {
		return prefix + h.Raw
	}
	return prefix + h.Keyword + " " + h.Raw
}

// TitleWithoutKeyword renders prefix and the raw title.
func TitleWithoutKeyword(h model.Heading, prefix string) string {
	return prefix + h.Raw
}
