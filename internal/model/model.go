package model

// Event is a FullCalendar event object. Optional fields are pointers and
// are omitted from JSON when nil.
type Event struct {
	Title string `json:"title"`
	RRule *RRule `json:"rrule,omitempty"`

	// Start is date-only for all-day entries.
	Start PointInTime  `json:"start"`
	End   *PointInTime `json:"end,omitempty"`

	// Duration is "H:MM:00"; FullCalendar uses it for recurring events.
	Duration    *string `json:"duration,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	TextColor   *string `json:"textColor,omitempty"`
	FilePath    *string `json:"filePath,omitempty"`
}

// RRule is the FullCalendar rrule plugin's object form.
type RRule struct {
	DTStart  PointInTime `json:"dtstart"`
	Freq     string      `json:"freq"`
	Interval int         `json:"interval"`
}
