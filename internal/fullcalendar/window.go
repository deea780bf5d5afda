package fullcalendar

import "orgcal/internal/model"

const secondsPerDay = 24 * 60 * 60

// Included reports whether p lies inside the window of beforeDays in the
// past and afterDays in the future, measured in whole elapsed days from
// now. A bound <= 0 disables that side of the window.
func Included(p model.PointInTime, beforeDays, afterDays int, now model.PointInTime) bool {
	return !isDaysBefore(p, beforeDays, now) && !isDaysAfter(p, afterDays, now)
}

func isDaysBefore(p model.PointInTime, days int, now model.PointInTime) bool {
	if days <= 0 {
		return false
	}
	elapsed := int64(now.Sub(p).Seconds())
	return floorDiv(elapsed, secondsPerDay) >= int64(days)
}

func isDaysAfter(p model.PointInTime, days int, now model.PointInTime) bool {
	if days <= 0 {
		return false
	}
	ahead := int64(p.Sub(now).Seconds())
	return floorDiv(ahead, secondsPerDay) >= int64(days)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
