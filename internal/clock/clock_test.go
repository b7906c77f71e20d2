package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayStartUsesReferenceZone(t *testing.T) {
	// 06:30 UTC on Mar 10 is 22:30 Mar 9 in UTC-8.
	instant := time.Date(2025, 3, 10, 6, 30, 0, 0, time.UTC)

	start := DayStart(instant)
	assert.Equal(t, 2025, start.Year())
	assert.Equal(t, time.March, start.Month())
	assert.Equal(t, 9, start.Day())
	assert.Equal(t, 0, start.Hour())

	_, offset := start.Zone()
	assert.Equal(t, -8*60*60, offset)
}

func TestDayStartIgnoresDST(t *testing.T) {
	// US DST began 2025-03-09; a named Pacific zone would shift to UTC-7.
	before := time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)
	after := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)

	_, offBefore := DayStart(before).Zone()
	_, offAfter := DayStart(after).Zone()
	assert.Equal(t, offBefore, offAfter)
}

func TestDayEndIsLastInstant(t *testing.T) {
	instant := time.Date(2025, 6, 1, 15, 0, 0, 0, RefZone)

	end := DayEnd(instant)
	require.True(t, end.After(instant))
	assert.True(t, SameDay(instant, end))
	assert.False(t, SameDay(instant, end.Add(time.Nanosecond)))
}

func TestDayBoundaryMillisecond(t *testing.T) {
	start := DayStart(time.Date(2025, 6, 1, 12, 0, 0, 0, RefZone))

	assert.False(t, SameDay(start.Add(-time.Millisecond), start))
	assert.True(t, SameDay(start.Add(time.Millisecond), start))
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	var c Clock = Fixed{Instant: at}
	assert.Equal(t, at, c.Now())
}
