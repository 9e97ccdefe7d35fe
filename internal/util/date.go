package util

import "time"

// AddMonthsClamped adds calendar months, clamping day-of-month overflow
// to the last day of the target month (Jan 31 + 1 month = Feb 28/29,
// never Mar 3).
func AddMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	// Day 0 of the month after the target is the target's last day
	target := time.Date(year, month+time.Month(months)+1, 0, 0, 0, 0, 0, t.Location())
	if day > target.Day() {
		day = target.Day()
	}
	return time.Date(year, month+time.Month(months), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// StartOfDay truncates to midnight in the time's location.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two instants fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
