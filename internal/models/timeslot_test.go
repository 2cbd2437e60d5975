package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/planner/internal/apperr"
)

func wall(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestTimeSlot_Validate(t *testing.T) {
	ok := TimeSlot{Start: wall(2024, 6, 10, 9, 0), End: wall(2024, 6, 10, 10, 0), Timezone: "Europe/Berlin"}
	assert.NoError(t, ok.Validate())

	reversed := ok
	reversed.End = reversed.Start
	assert.True(t, errors.Is(reversed.Validate(), apperr.ErrInvalidTimeSlot))

	badZone := ok
	badZone.Timezone = "Mars/Olympus"
	assert.True(t, errors.Is(badZone.Validate(), apperr.ErrInvalidTimeSlot))
}

func TestTimeSlot_ConvertZoneKeepsInstant(t *testing.T) {
	slot := TimeSlot{Start: wall(2024, 6, 10, 9, 0), End: wall(2024, 6, 10, 10, 30), Timezone: "Europe/Berlin"}

	converted, err := slot.ConvertZone("Asia/Tokyo")
	require.NoError(t, err)

	assert.Equal(t, "Asia/Tokyo", converted.Timezone)
	assert.Equal(t, wall(2024, 6, 10, 16, 0), converted.Start)
	assert.Equal(t, wall(2024, 6, 10, 17, 30), converted.End)

	wantStart, wantEnd, err := slot.Instants()
	require.NoError(t, err)
	gotStart, gotEnd, err := converted.Instants()
	require.NoError(t, err)
	assert.True(t, wantStart.Equal(gotStart))
	assert.True(t, wantEnd.Equal(gotEnd))
}

func TestTimeSlot_ConvertZoneCrossesDate(t *testing.T) {
	slot := TimeSlot{Start: wall(2024, 1, 15, 23, 0), End: wall(2024, 1, 16, 0, 30), Timezone: "UTC"}

	converted, err := slot.ConvertZone("America/New_York")
	require.NoError(t, err)

	assert.Equal(t, wall(2024, 1, 15, 18, 0), converted.Start)
	assert.Equal(t, wall(2024, 1, 15, 19, 30), converted.End)
}

func TestTimeSlot_ConvertZoneRejectsAmbiguousWallClock(t *testing.T) {
	// 06:10Z is 01:10 EST, a reading New York also shows at 05:10Z
	fallBack := TimeSlot{Start: wall(2024, 11, 3, 5, 30), End: wall(2024, 11, 3, 6, 10), Timezone: "UTC"}

	_, err := fallBack.ConvertZone("America/New_York")
	assert.True(t, errors.Is(err, apperr.ErrInvalidTimeSlot))

	afterShift := TimeSlot{Start: wall(2024, 11, 3, 7, 0), End: wall(2024, 11, 3, 8, 0), Timezone: "UTC"}
	converted, err := afterShift.ConvertZone("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, wall(2024, 11, 3, 2, 0), converted.Start)
	assert.Equal(t, wall(2024, 11, 3, 3, 0), converted.End)
}

func TestTimeSlot_ConvertZoneRejectsUnknown(t *testing.T) {
	slot := TimeSlot{Start: wall(2024, 1, 15, 9, 0), End: wall(2024, 1, 15, 10, 0), Timezone: "UTC"}

	_, err := slot.ConvertZone("Not/AZone")
	assert.True(t, errors.Is(err, apperr.ErrInvalidTimezone))
}

func TestTimeSlot_OverlapsAcrossZones(t *testing.T) {
	berlin := TimeSlot{Start: wall(2024, 6, 10, 9, 0), End: wall(2024, 6, 10, 10, 0), Timezone: "Europe/Berlin"}
	utc := TimeSlot{Start: wall(2024, 6, 10, 7, 30), End: wall(2024, 6, 10, 8, 0), Timezone: "UTC"}
	later := TimeSlot{Start: wall(2024, 6, 10, 8, 0), End: wall(2024, 6, 10, 9, 0), Timezone: "UTC"}

	assert.True(t, berlin.Overlaps(utc))
	assert.False(t, berlin.Overlaps(later))
}

func TestAllDaySlot(t *testing.T) {
	slot := AllDaySlot(time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC), "UTC")

	assert.Equal(t, wall(2024, 3, 5, 0, 0), slot.Start)
	assert.Equal(t, wall(2024, 3, 6, 0, 0), slot.End)
	assert.Equal(t, 24*time.Hour, slot.Duration())
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("07:05")
	require.NoError(t, err)
	assert.Equal(t, ClockTime(7*60+5), c)
	assert.Equal(t, "07:05", c.String())

	for _, bad := range []string{"7:05", "24:00", "12:60", "noon", "", "12:00:00"} {
		_, err := ParseClock(bad)
		assert.True(t, errors.Is(err, apperr.ErrInvalidTimeFormat), "%q", bad)
	}
}

func TestClockTime_JSON(t *testing.T) {
	var r TimeRange
	require.NoError(t, json.Unmarshal([]byte(`{"start_time":"23:00","end_time":"07:00"}`), &r))
	assert.Equal(t, "23:00-07:00", r.String())

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start_time":"23:00","end_time":"07:00"}`, string(out))
}

func TestParseTimeRange(t *testing.T) {
	_, err := ParseTimeRange("08:00", "08:00")
	assert.True(t, errors.Is(err, apperr.ErrInvalidTimeRange))

	_, err = ParseTimeRange("8am", "09:00")
	assert.True(t, errors.Is(err, apperr.ErrInvalidTimeFormat))
}

func TestTimeRange_Wrapping(t *testing.T) {
	night, err := ParseTimeRange("23:00", "07:00")
	require.NoError(t, err)

	assert.True(t, night.Wraps())
	assert.Equal(t, 8*60, night.DurationMinutes())
	assert.True(t, night.Contains(ClockTime(23*60+30)))
	assert.True(t, night.Contains(ClockTime(6*60)))
	assert.False(t, night.Contains(ClockTime(7*60)))
	assert.False(t, night.Contains(ClockTime(12*60)))

	nap, err := ParseTimeRange("13:00", "14:00")
	require.NoError(t, err)
	assert.False(t, nap.Wraps())
	assert.False(t, night.Overlaps(nap))

	early, err := ParseTimeRange("06:00", "08:00")
	require.NoError(t, err)
	assert.True(t, night.Overlaps(early))
}

func TestLoadZone(t *testing.T) {
	loc, err := LoadZone("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = LoadZone("Local")
	assert.True(t, errors.Is(err, apperr.ErrInvalidTimezone))
}
