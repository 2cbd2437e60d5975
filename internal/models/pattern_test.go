package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/planner/internal/apperr"
)

func TestParseRecurringPattern(t *testing.T) {
	p := ParseRecurringPattern([]string{"friday", " MONDAY", "Funday", "monday", "SUNDAY"})

	assert.Equal(t, []time.Weekday{time.Monday, time.Friday, time.Sunday}, p.DaysOfWeek)
	assert.Equal(t, []string{"MONDAY", "FRIDAY", "SUNDAY"}, p.DayNames())
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO,FR,SU", p.RRule())
	assert.True(t, p.Includes(time.Friday))
	assert.False(t, p.Includes(time.Tuesday))
}

func TestParseRecurringPattern_DefaultsToMonday(t *testing.T) {
	assert.Equal(t, []time.Weekday{time.Monday}, ParseRecurringPattern(nil).DaysOfWeek)
	assert.Equal(t, []time.Weekday{time.Monday}, ParseRecurringPattern([]string{"someday"}).DaysOfWeek)
}

func TestRecurringPattern_Occurrences(t *testing.T) {
	// Monday 2024-01-01, 07:00-08:00
	slot := TimeSlot{Start: wall(2024, 1, 1, 7, 0), End: wall(2024, 1, 1, 8, 0), Timezone: "Europe/Berlin"}
	p := ParseRecurringPattern([]string{"MONDAY", "WEDNESDAY"})

	occ, err := p.Occurrences(slot, wall(2024, 1, 8, 0, 0), wall(2024, 1, 15, 0, 0))
	require.NoError(t, err)

	require.Len(t, occ, 2)
	assert.Equal(t, wall(2024, 1, 8, 7, 0), occ[0].Start)
	assert.Equal(t, wall(2024, 1, 8, 8, 0), occ[0].End)
	assert.Equal(t, wall(2024, 1, 10, 7, 0), occ[1].Start)
	assert.Equal(t, "Europe/Berlin", occ[1].Timezone)
}

func TestRecurringPattern_OccurrencesNotBeforeStart(t *testing.T) {
	slot := TimeSlot{Start: wall(2024, 1, 10, 7, 0), End: wall(2024, 1, 10, 8, 0), Timezone: "UTC"}
	p := ParseRecurringPattern([]string{"MONDAY", "WEDNESDAY"})

	occ, err := p.Occurrences(slot, wall(2024, 1, 1, 0, 0), wall(2024, 1, 16, 0, 0))
	require.NoError(t, err)

	require.Len(t, occ, 2)
	assert.Equal(t, wall(2024, 1, 10, 7, 0), occ[0].Start)
	assert.Equal(t, wall(2024, 1, 15, 7, 0), occ[1].Start)
}

func TestValidateDayMonth(t *testing.T) {
	assert.NoError(t, ValidateDayMonth(29, 2))
	assert.NoError(t, ValidateDayMonth(31, 12))

	for _, c := range [][2]int{{30, 2}, {31, 4}, {0, 1}, {32, 1}, {1, 0}, {1, 13}} {
		err := ValidateDayMonth(c[0], c[1])
		assert.True(t, errors.Is(err, apperr.ErrInvalidDate), "day %d month %d", c[0], c[1])
	}
}

func TestMemorableEvent_OccurrenceDateClampsLeapDay(t *testing.T) {
	e := &MemorableEvent{Day: 29, Month: 2}

	assert.Equal(t, date(2024, time.February, 29), e.OccurrenceDate(2024))
	assert.Equal(t, date(2025, time.February, 28), e.OccurrenceDate(2025))
	assert.Equal(t, date(2028, time.February, 29), e.OccurrenceDate(2028))
}

func TestCalendarItem_CloneIsDeep(t *testing.T) {
	slot := TimeSlot{Start: wall(2024, 1, 1, 7, 0), End: wall(2024, 1, 1, 8, 0), Timezone: "UTC"}
	item := &CalendarItem{
		Type:     ItemTypeEvent,
		TimeSlot: &slot,
		Event:    &EventDetails{Attendees: []string{"a@example.com"}},
	}

	c := item.Clone()
	c.TimeSlot.Timezone = "Asia/Tokyo"
	c.Event.Attendees[0] = "b@example.com"

	assert.Equal(t, "UTC", item.TimeSlot.Timezone)
	assert.Equal(t, "a@example.com", item.Event.Attendees[0])
}

func TestParseItemType(t *testing.T) {
	for _, s := range []string{"TASK", "ROUTINE", "EVENT"} {
		got, err := ParseItemType(s)
		require.NoError(t, err)
		assert.Equal(t, ItemType(s), got)
	}

	for _, s := range []string{"MEMORABLE_EVENT", "", "MEETING"} {
		_, err := ParseItemType(s)
		assert.True(t, errors.Is(err, apperr.ErrInvalidItemType), "%q", s)
	}
}
