package model

// Property is one entry of a heading's property drawer.
type Property struct {
	Key   string
	Value string
}

// Properties is an ordered multimap. A key may repeat; continuation lines
// (":KEY+:") are stored as further entries under the base key.
type Properties []Property

// Planning holds the timestamps of a heading's planning line.
type Planning struct {
	Deadline  *Timestamp
	Scheduled *Timestamp
	Closed    *Timestamp
}

// Heading is the context events are synthesized against.
type Heading struct {
	Level    int
	Keyword  string // empty when the heading has no TODO keyword
	Priority string
	Raw      string
	Tags     []string

	Planning   *Planning
	Properties Properties
}
