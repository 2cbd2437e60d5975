package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/planner/internal/apperr"
	"github.com/Kerhoff/planner/internal/models"
)

func violationKinds(t *testing.T, err error) []string {
	t.Helper()
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr), "expected a multierror, got %v", err)

	kinds := make([]string, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		var v *Violation
		require.True(t, errors.As(e, &v))
		kinds = append(kinds, v.Kind)
	}
	return kinds
}

func TestGetUserConstraints_DefaultsAreNotStored(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.GetUserConstraints(ctx, testUser)
	require.NoError(t, err)
	assert.False(t, c.DailyLimitEnabled)
	assert.Empty(t, c.SleepHours)
	assert.Equal(t, models.DefaultDailyLimitHours, c.LimitFor(models.ItemTypeTask))
	assert.Equal(t, models.DefaultDailyLimitHours, c.LimitFor(models.ItemTypeRoutine))

	stored, err := store.Repos().Constraints.GetByUser(ctx, testUser)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestUpdateSleepHours(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.UpdateSleepHours(ctx, testUser, []SleepHoursInput{
		{StartTime: "23:00", EndTime: "07:00"},
		{StartTime: "13:30", EndTime: "14:00"},
	})
	require.NoError(t, err)
	require.Len(t, c.SleepHours, 2)
	assert.Equal(t, "23:00-07:00", c.SleepHours[0].String())

	_, err = svc.UpdateSleepHours(ctx, testUser, []SleepHoursInput{{StartTime: "25:00", EndTime: "07:00"}})
	assert.ErrorIs(t, err, apperr.ErrInvalidTimeFormat)

	_, err = svc.UpdateSleepHours(ctx, testUser, []SleepHoursInput{{StartTime: "07:00", EndTime: "07:00"}})
	assert.ErrorIs(t, err, apperr.ErrInvalidTimeRange)

	c, err = svc.GetUserConstraints(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, c.SleepHours, 2)

	c, err = svc.UpdateSleepHours(ctx, testUser, nil)
	require.NoError(t, err)
	assert.Empty(t, c.SleepHours)
}

func TestUpdateDailyLimits(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.UpdateDailyLimits(ctx, testUser, true, map[string]int{"task": 2})
	require.NoError(t, err)
	assert.True(t, c.DailyLimitEnabled)
	assert.Equal(t, 2, c.LimitFor(models.ItemTypeTask))
	assert.Equal(t, models.DefaultDailyLimitHours, c.LimitFor(models.ItemTypeRoutine))

	_, err = svc.UpdateDailyLimits(ctx, testUser, true, map[string]int{"EVENT": 1})
	assert.ErrorIs(t, err, apperr.ErrInvalidItemType)

	_, err = svc.UpdateDailyLimits(ctx, testUser, true, map[string]int{"ROUTINE": 25})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	c, err = svc.UpdateDailyLimits(ctx, testUser, false, nil)
	require.NoError(t, err)
	assert.False(t, c.DailyLimitEnabled)
	assert.Equal(t, 2, c.LimitFor(models.ItemTypeTask))
}

func TestValidateConstraints(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	cal := setupCalendar(t, svc, testUser)

	_, err := svc.UpdateSleepHours(ctx, testUser, []SleepHoursInput{{StartTime: "23:00", EndTime: "07:00"}})
	require.NoError(t, err)
	_, err = svc.UpdateDailyLimits(ctx, testUser, true, map[string]int{"TASK": 2})
	require.NoError(t, err)

	_, err = svc.CreateCalendarItem(ctx, testUser, CreateItemRequest{
		Type: "TASK", CalendarID: cal.ID, Name: "Deep work",
		TimeSlot: slotAt(2024, time.January, 16, 9, 0, 90, "UTC"),
	})
	require.NoError(t, err)
	_, err = svc.CreateCalendarItem(ctx, testUser, CreateItemRequest{
		Type: "ROUTINE", CalendarID: cal.ID, Name: "Gym",
		TimeSlot:   slotAt(2024, time.January, 1, 7, 0, 60, "UTC"),
		DaysOfWeek: []string{"MONDAY", "WEDNESDAY"},
	})
	require.NoError(t, err)
	// all-day occurrences never conflict
	_, err = svc.CreateOrUpdateBirthday(ctx, testUser, 16, 1)
	require.NoError(t, err)

	tests := []struct {
		name     string
		slot     *models.TimeSlot
		itemType models.ItemType
		want     []string
	}{
		{"overlap and limit", slotAt(2024, time.January, 16, 10, 0, 60, "UTC"), models.ItemTypeTask, []string{ViolationOverlap, ViolationDailyLimit}},
		{"sleep only", slotAt(2024, time.January, 16, 6, 0, 30, "UTC"), models.ItemTypeTask, []string{ViolationSleepHours}},
		{"free slot", slotAt(2024, time.January, 16, 12, 0, 30, "UTC"), models.ItemTypeEvent, nil},
		{"routine occurrence", slotAt(2024, time.January, 22, 7, 30, 60, "UTC"), models.ItemTypeEvent, []string{ViolationOverlap}},
		{"routine off day", slotAt(2024, time.January, 23, 7, 30, 60, "UTC"), models.ItemTypeEvent, nil},
		{"type name case", slotAt(2024, time.January, 16, 10, 0, 60, "UTC"), " task ", []string{ViolationOverlap, ViolationDailyLimit}},
		{"sleep across zones", slotAt(2024, time.January, 17, 23, 30, 30, "Asia/Tokyo"), models.ItemTypeEvent, []string{ViolationSleepHours}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ValidateConstraints(ctx, testUser, *tt.slot, tt.itemType)
			assert.Equal(t, tt.want, violationKinds(t, err))
		})
	}

	bad := slotAt(2024, time.January, 16, 10, 0, 0, "UTC")
	assert.ErrorIs(t, svc.ValidateConstraints(ctx, testUser, *bad, models.ItemTypeTask), apperr.ErrInvalidTimeSlot)
}
