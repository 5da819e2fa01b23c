package schedule

import "time"

// dayKeyFormat keys the per-run occupancy map and is the canonical wire
// format for visual dates.
const dayKeyFormat = "2006-01-02"

// DayOf strips a timestamp down to its calendar day (UTC midnight).
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayKey formats a day for map keys and API payloads.
func DayKey(t time.Time) string {
	return DayOf(t).Format(dayKeyFormat)
}

// nextBusinessDay returns the first weekday strictly after d.
func nextBusinessDay(d time.Time) time.Time {
	d = DayOf(d).AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// MondayOf returns the Monday of the week containing d.
func MondayOf(d time.Time) time.Time {
	d = DayOf(d)
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	return d.AddDate(0, 0, -offset)
}

// wholeWeeks returns the floored number of whole weeks between two days.
// Negative when to precedes from.
func wholeWeeks(from, to time.Time) int {
	days := int(DayOf(to).Sub(DayOf(from)) / (24 * time.Hour))
	if days < 0 {
		return -((-days + 6) / 7)
	}
	return days / 7
}
