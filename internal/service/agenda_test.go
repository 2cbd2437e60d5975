package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/planner/internal/apperr"
)

func TestAgendaView_Range(t *testing.T) {
	wed := time.Date(2024, time.January, 17, 15, 0, 0, 0, time.UTC)

	from, to := ViewWeek.Range(wed)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC), to)

	from, to = ViewMonth.Range(wed)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), to)

	from, to = ViewDay.Range(wed)
	assert.Equal(t, 24*time.Hour, to.Sub(from))

	_, err := ParseAgendaView("fortnight")
	assert.ErrorIs(t, err, apperr.ErrInvalidView)
}

func TestGetAgenda_ExpandsRoutines(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	cal := setupCalendar(t, svc, testUser)

	gymID, err := svc.CreateCalendarItem(ctx, testUser, CreateItemRequest{
		Type: "ROUTINE", CalendarID: cal.ID, Name: "Gym",
		TimeSlot:   slotAt(2024, time.January, 1, 7, 0, 60, "UTC"),
		DaysOfWeek: []string{"MONDAY", "WEDNESDAY"},
	})
	require.NoError(t, err)
	taskID, err := svc.CreateCalendarItem(ctx, testUser, CreateItemRequest{
		Type: "TASK", CalendarID: cal.ID, Name: "Report",
		TimeSlot: slotAt(2024, time.January, 16, 9, 0, 60, "UTC"),
	})
	require.NoError(t, err)
	_, err = svc.CreateCalendarItem(ctx, testUser, CreateItemRequest{Type: "TASK", CalendarID: cal.ID, Name: "Someday"})
	require.NoError(t, err)

	entries, err := svc.GetAgenda(ctx, testUser, "week", time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, gymID, entries[0].ItemID)
	assert.True(t, entries[0].Recurring)
	assert.Equal(t, time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC), entries[0].TimeSlot.Start)
	assert.Equal(t, taskID, entries[1].ItemID)
	assert.False(t, entries[1].Recurring)
	assert.Equal(t, time.Date(2024, 1, 17, 7, 0, 0, 0, time.UTC), entries[2].TimeSlot.Start)

	entries, err = svc.GetAgenda(ctx, testUser, "DAY", time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, taskID, entries[0].ItemID)

	_, err = svc.GetAgenda(ctx, testUser, "DECADE", time.Now())
	assert.ErrorIs(t, err, apperr.ErrInvalidView)
}

func TestExportICS(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	cal := setupCalendar(t, svc, testUser)

	gymID, err := svc.CreateCalendarItem(ctx, testUser, CreateItemRequest{
		Type: "ROUTINE", CalendarID: cal.ID, Name: "Gym",
		TimeSlot:   slotAt(2024, time.January, 1, 7, 0, 60, "Europe/Berlin"),
		DaysOfWeek: []string{"MONDAY", "WEDNESDAY"},
	})
	require.NoError(t, err)
	_, err = svc.CreateCalendarItem(ctx, testUser, CreateItemRequest{
		Type: "EVENT", CalendarID: cal.ID, Name: "Concert", Location: "Arena",
		TimeSlot: slotAt(2024, time.January, 20, 20, 0, 120, "UTC"),
	})
	require.NoError(t, err)
	_, err = svc.CreateCalendarItem(ctx, testUser, CreateItemRequest{Type: "TASK", CalendarID: cal.ID, Name: "Unplanned"})
	require.NoError(t, err)
	_, err = svc.CreateOrUpdateBirthday(ctx, testUser, 3, 5)
	require.NoError(t, err)

	feed, err := svc.ExportICS(ctx, testUser)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(feed, "BEGIN:VCALENDAR"))
	assert.Equal(t, 2+5, strings.Count(feed, "BEGIN:VEVENT"))
	assert.Contains(t, feed, "SUMMARY:Gym")
	assert.Contains(t, feed, "RRULE:FREQ=WEEKLY;BYDAY=MO")
	assert.Contains(t, feed, "LOCATION:Arena")
	assert.Contains(t, feed, "20240503")
	assert.Contains(t, feed, fmt.Sprintf("item-%d@planner", gymID))
	assert.NotContains(t, feed, "Unplanned")
}
