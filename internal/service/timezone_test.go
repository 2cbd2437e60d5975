package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/planner/internal/apperr"
)

func TestConvertUserTimezone(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	cal := setupCalendar(t, svc, testUser)

	scheduled, err := svc.CreateCalendarItem(ctx, testUser, CreateItemRequest{
		Type:       "TASK",
		CalendarID: cal.ID,
		Name:       "Standup",
		TimeSlot:   slotAt(2024, time.June, 10, 9, 0, 30, "Europe/Berlin"),
	})
	require.NoError(t, err)
	unscheduled, err := svc.CreateCalendarItem(ctx, testUser, CreateItemRequest{Type: "TASK", CalendarID: cal.ID, Name: "Someday"})
	require.NoError(t, err)

	before, err := svc.GetCalendarItem(ctx, testUser, scheduled)
	require.NoError(t, err)
	wantStart, wantEnd, err := before.TimeSlot.Instants()
	require.NoError(t, err)

	converted, err := svc.ConvertUserTimezone(ctx, testUser, "Europe/Berlin", "Asia/Tokyo")
	require.NoError(t, err)
	assert.Equal(t, 1, converted)

	after, err := svc.GetCalendarItem(ctx, testUser, scheduled)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", after.TimeSlot.Timezone)
	assert.Equal(t, time.Date(2024, time.June, 10, 16, 0, 0, 0, time.UTC), after.TimeSlot.Start)

	gotStart, gotEnd, err := after.TimeSlot.Instants()
	require.NoError(t, err)
	assert.True(t, wantStart.Equal(gotStart))
	assert.True(t, wantEnd.Equal(gotEnd))

	untouched, err := svc.GetCalendarItem(ctx, testUser, unscheduled)
	require.NoError(t, err)
	assert.Nil(t, untouched.TimeSlot)
}

func TestConvertUserTimezone_RejectsFallBackAmbiguity(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	cal := setupCalendar(t, svc, testUser)

	clean, err := svc.CreateCalendarItem(ctx, testUser, CreateItemRequest{
		Type:       "TASK",
		CalendarID: cal.ID,
		Name:       "Review",
		TimeSlot:   slotAt(2024, time.November, 4, 15, 0, 60, "UTC"),
	})
	require.NoError(t, err)
	ambiguous, err := svc.CreateCalendarItem(ctx, testUser, CreateItemRequest{
		Type:       "EVENT",
		CalendarID: cal.ID,
		Name:       "Late call",
		TimeSlot:   slotAt(2024, time.November, 3, 5, 30, 40, "UTC"),
	})
	require.NoError(t, err)

	converted, err := svc.ConvertUserTimezone(ctx, testUser, "UTC", "America/New_York")
	assert.ErrorIs(t, err, apperr.ErrInvalidTimeSlot)
	assert.Zero(t, converted)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	require.Len(t, appErr.Details, 1)
	assert.Contains(t, appErr.Details[0], "Late call")

	// nothing is written when any item is rejected
	for _, id := range []int64{clean, ambiguous} {
		item, err := svc.GetCalendarItem(ctx, testUser, id)
		require.NoError(t, err)
		assert.Equal(t, "UTC", item.TimeSlot.Timezone)
	}
}

func TestConvertUserTimezone_InvalidZones(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ConvertUserTimezone(ctx, testUser, "Europe/Berlin", "Atlantis/Capital")
	assert.ErrorIs(t, err, apperr.ErrInvalidTimezone)

	_, err = svc.ConvertUserTimezone(ctx, testUser, "", "UTC")
	assert.ErrorIs(t, err, apperr.ErrInvalidTimezone)
}

func TestConvertUserTimezone_NoItems(t *testing.T) {
	svc, _, _ := newTestService(t)

	converted, err := svc.ConvertUserTimezone(context.Background(), testUser, "UTC", "America/New_York")
	require.NoError(t, err)
	assert.Zero(t, converted)
}
