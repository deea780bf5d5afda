package fullcalendar

import (
	"fmt"
	"time"

	"orgcal/internal/model"
)

// FormatDuration renders end - start as "H:MM:00". Hours are not wrapped
// into days. A negative span is formatted by the same floor arithmetic.
func FormatDuration(start, end model.PointInTime) string {
	total := int64(end.Sub(start).Seconds())
	hours := floorDiv(total, 3600)
	minutes := floorDiv(total-hours*3600, 60)
	return fmt.Sprintf("%d:%02d:00", hours, minutes)
}

// ParseDuration reads a value produced by FormatDuration.
func ParseDuration(s string) (time.Duration, error) {
	var hours, minutes, seconds int64
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &hours, &minutes, &seconds); err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("parse duration %q: field out of range", s)
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second, nil
}
