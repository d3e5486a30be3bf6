// Package availability decides whether a resort can still be reserved on a
// given calendar date, based on the closed/unavailable date sets returned by
// the reservation platform.
package availability

import "time"

type Status int

const (
	// Open means neither set contains the date: a slot exists.
	Open Status = iota
	// Unavailable means reservations run on that date but are currently full.
	Unavailable
	// Closed means the resort will never take reservations for that date.
	Closed
)

func (s Status) String() string {
	switch s {
	case Open:
		return "open"
	case Unavailable:
		return "unavailable"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// MidnightUTC strips the time-of-day component. All date comparisons happen on
// midnight-UTC values; the platform mixes wall-clock strings and epoch millis,
// so both sides get normalized before any equality check.
func MidnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Classify reports the reservation status of date for one resort. Post-season
// boundary dates have been observed in both upstream sets at once; closed is
// checked first and wins the tie.
func Classify(date time.Time, closed, unavailable []time.Time) Status {
	d := MidnightUTC(date)
	if containsDay(closed, d) {
		return Closed
	}
	if containsDay(unavailable, d) {
		return Unavailable
	}
	return Open
}

func containsDay(days []time.Time, want time.Time) bool {
	for _, d := range days {
		if MidnightUTC(d).Equal(want) {
			return true
		}
	}
	return false
}
