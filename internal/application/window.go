// Package application contains use-case orchestration services.
package application

import "time"

// Named recency windows accepted by ResolveWindow.
const (
	WindowLastDay     = "last day"
	WindowLastWeek    = "last week"
	WindowLastMonth   = "last month"
	WindowLast3Months = "last 3 months"
	WindowLast6Months = "last 6 months"
)

// ResolveWindow translates a named interval into a concrete cutoff timestamp
// relative to now. Day and week windows are fixed hour offsets; month windows
// follow the calendar. An unrecognized name resolves to "no cutoff": bounded
// is false and callers filter nothing.
//
// Boundary policy, relied on by both sync and aggregation: an event is inside
// the window iff its timestamp is strictly after the cutoff. An event at
// exactly the cutoff is outside.
func ResolveWindow(name string, now time.Time) (cutoff time.Time, bounded bool) {
	switch name {
	case WindowLastDay:
		return now.Add(-24 * time.Hour), true
	case WindowLastWeek:
		return now.Add(-168 * time.Hour), true
	case WindowLastMonth:
		return now.AddDate(0, -1, 0), true
	case WindowLast3Months:
		return now.AddDate(0, -3, 0), true
	case WindowLast6Months:
		return now.AddDate(0, -6, 0), true
	default:
		return time.Time{}, false
	}
}
