// Package clock provides the tracker's notion of "today". Daily PnL rows are
// keyed by the day boundary in a fixed UTC−8 offset, deliberately not a named
// zone: applying DST would shift the boundary twice a year and split or merge
// trading days.
package clock

import "time"

// RefZone is the fixed reference timezone for day boundaries.
var RefZone = time.FixedZone("UTC-8", -8*60*60)

// Clock abstracts the current instant so tests can pin it.
type Clock interface {
	Now() time.Time
}

// System is the real wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed is a Clock frozen at a single instant, for tests.
type Fixed struct {
	Instant time.Time
}

func (f Fixed) Now() time.Time { return f.Instant }

// DayStart returns midnight of the day containing t in the reference zone.
func DayStart(t time.Time) time.Time {
	local := t.In(RefZone)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, RefZone)
}

// DayEnd returns the last nanosecond of the day containing t in the
// reference zone.
func DayEnd(t time.Time) time.Time {
	return DayStart(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// SameDay reports whether a and b fall on the same reference-zone day.
func SameDay(a, b time.Time) bool {
	return DayStart(a).Equal(DayStart(b))
}
