package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/repository"
)

var itemColumnNames = []string{
	"id", "user_id", "calendar_id", "month_plan_id", "week_plan_id", "item_type", "name", "note", "color", "status",
	"start_time", "end_time", "time_zone", "parent_big_task_id", "estimated_hours", "due_date", "days_of_week",
	"location", "is_all_day", "attendees", "memorable_event_id", "created_at", "updated_at",
}

func TestCalendarItemRepository_CreateEvent(t *testing.T) {
	db, mock := newMock(t)
	created := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	start := time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	weekPlanID := int64(4)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO calendar_items")).
		WithArgs(
			int64(42), int64(1), nil, weekPlanID, "EVENT", "Kickoff", "", "", "INCOMPLETE",
			start, end, "Europe/Berlin",
			nil, nil, nil, nil,
			"Room 2", false, pq.Array([]string{"ann", "bob"}), nil,
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(17), created, created))

	item, err := NewCalendarItemRepository(db).Create(context.Background(), &models.CalendarItem{
		UserID:     42,
		CalendarID: 1,
		WeekPlanID: &weekPlanID,
		Type:       models.ItemTypeEvent,
		Name:       "Kickoff",
		Status:     models.ItemStatusIncomplete,
		TimeSlot:   &models.TimeSlot{Start: start, End: end, Timezone: "Europe/Berlin"},
		Event:      &models.EventDetails{Location: "Room 2", Attendees: []string{"ann", "bob"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(17), item.ID)
	assert.Equal(t, created, item.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarItemRepository_CreateUnscheduledRoutine(t *testing.T) {
	db, mock := newMock(t)
	planID := int64(3)

	// no slot and no pattern: both stored as NULL
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO calendar_items")).
		WithArgs(
			int64(42), int64(1), planID, nil, "ROUTINE", "Gym", "", "", "INCOMPLETE",
			nil, nil, nil,
			nil, nil, nil, nil,
			"", false, pq.Array([]string{}), nil,
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(18), time.Now(), time.Now()))

	_, err := NewCalendarItemRepository(db).Create(context.Background(), &models.CalendarItem{
		UserID:      42,
		CalendarID:  1,
		MonthPlanID: &planID,
		Type:        models.ItemTypeRoutine,
		Name:        "Gym",
		Status:      models.ItemStatusIncomplete,
		Routine:     &models.RoutineDetails{},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarItemRepository_ListByUserScansEveryVariant(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	start := time.Date(2024, 1, 16, 7, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	due := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	birthday := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(itemColumnNames).
		AddRow(int64(1), int64(42), int64(1), int64(3), nil, "TASK", "Design", "Wireframes", "", "INCOMPLETE",
			nil, nil, nil, int64(5), int64(4), due, nil,
			"", false, "{}", nil, now, now).
		AddRow(int64(2), int64(42), int64(1), int64(3), nil, "ROUTINE", "Gym", "", "", "INCOMPLETE",
			start, end, "Europe/Berlin", nil, nil, nil, "{MONDAY,WEDNESDAY}",
			"", false, "{}", nil, now, now).
		AddRow(int64(3), int64(42), int64(1), int64(3), nil, "ROUTINE", "Read", "", "", "INCOMPLETE",
			nil, nil, nil, nil, nil, nil, nil,
			"", false, "{}", nil, now, now).
		AddRow(int64(4), int64(42), int64(1), nil, int64(9), "EVENT", "Kickoff", "", "", "COMPLETE",
			start, end, "UTC", nil, nil, nil, nil,
			"Room 2", false, "{ann,bob}", nil, now, now).
		AddRow(int64(5), int64(42), int64(1), nil, nil, "MEMORABLE_EVENT", "My Birthday", "", "#FF6B9D", "INCOMPLETE",
			birthday, birthday.AddDate(0, 0, 1), "UTC", nil, nil, nil, nil,
			"", true, "{}", int64(11), now, now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM calendar_items WHERE user_id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(rows)

	items, err := NewCalendarItemRepository(db).ListByUser(context.Background(), 42, repository.ItemFilters{})
	require.NoError(t, err)
	require.Len(t, items, 5)

	task := items[0]
	require.NotNil(t, task.Task)
	assert.Nil(t, task.TimeSlot)
	assert.Equal(t, int64(3), *task.MonthPlanID)
	assert.Nil(t, task.WeekPlanID)
	assert.Equal(t, int64(5), *task.Task.ParentBigTaskID)
	assert.Equal(t, 4, *task.Task.EstimatedHours)
	assert.Equal(t, due, *task.Task.DueDate)
	assert.Equal(t, "Wireframes", task.Note)

	scheduled := items[1]
	require.NotNil(t, scheduled.Routine)
	require.NotNil(t, scheduled.Routine.Pattern)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday}, scheduled.Routine.Pattern.DaysOfWeek)
	require.NotNil(t, scheduled.TimeSlot)
	assert.Equal(t, start, scheduled.TimeSlot.Start)
	assert.Equal(t, "Europe/Berlin", scheduled.TimeSlot.Timezone)

	unscheduled := items[2]
	require.NotNil(t, unscheduled.Routine)
	assert.Nil(t, unscheduled.Routine.Pattern)
	assert.Nil(t, unscheduled.TimeSlot)

	event := items[3]
	require.NotNil(t, event.Event)
	assert.Equal(t, "Room 2", event.Event.Location)
	assert.Equal(t, []string{"ann", "bob"}, event.Event.Attendees)
	assert.Equal(t, models.ItemStatusComplete, event.Status)
	assert.Equal(t, int64(9), *event.WeekPlanID)

	memorable := items[4]
	require.NotNil(t, memorable.Memorable)
	assert.Equal(t, int64(11), memorable.Memorable.MemorableEventID)
	assert.Equal(t, models.ItemTypeMemorable, memorable.Type)
	assert.Equal(t, "#FF6B9D", memorable.Color)

	for _, item := range items {
		set := 0
		for _, variant := range []bool{item.Task != nil, item.Routine != nil, item.Event != nil, item.Memorable != nil} {
			if variant {
				set++
			}
		}
		assert.Equal(t, 1, set, "item %d carries exactly one variant", item.ID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarItemRepository_ListByUserFilters(t *testing.T) {
	db, mock := newMock(t)
	itemType := models.ItemTypeRoutine
	calendarID := int64(1)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND item_type = $2 AND calendar_id = $3 AND start_time IS NOT NULL")).
		WithArgs(int64(42), "ROUTINE", int64(1)).
		WillReturnRows(sqlmock.NewRows(itemColumnNames))

	items, err := NewCalendarItemRepository(db).ListByUser(context.Background(), 42, repository.ItemFilters{
		Type:          &itemType,
		CalendarID:    &calendarID,
		ScheduledOnly: true,
	})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarItemRepository_UpdateTimeSlots(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCalendarItemRepository(db)

	// nothing to prepare for an empty batch
	require.NoError(t, repo.UpdateTimeSlots(context.Background(), nil))

	first := &models.CalendarItem{ID: 3, TimeSlot: &models.TimeSlot{
		Start:    time.Date(2024, 6, 10, 16, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 6, 10, 17, 0, 0, 0, time.UTC),
		Timezone: "Asia/Tokyo",
	}}
	second := &models.CalendarItem{ID: 5, TimeSlot: &models.TimeSlot{
		Start:    time.Date(2024, 6, 11, 9, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 6, 12, 9, 0, 0, 0, time.UTC),
		Timezone: "Asia/Tokyo",
	}}

	prepared := mock.ExpectPrepare(regexp.QuoteMeta("SET start_time = $2, end_time = $3, time_zone = $4, updated_at = $5"))
	prepared.ExpectExec().
		WithArgs(int64(3), first.TimeSlot.Start, first.TimeSlot.End, "Asia/Tokyo", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prepared.ExpectExec().
		WithArgs(int64(5), second.TimeSlot.Start, second.TimeSlot.End, "Asia/Tokyo", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prepared.WillBeClosed()

	require.NoError(t, repo.UpdateTimeSlots(context.Background(), []*models.CalendarItem{first, second}))
	assert.False(t, first.UpdatedAt.IsZero())
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarItemRepository_UpdateTimeSlotsStopsOnError(t *testing.T) {
	db, mock := newMock(t)

	item := &models.CalendarItem{ID: 3, TimeSlot: &models.TimeSlot{
		Start:    time.Date(2024, 11, 3, 1, 30, 0, 0, time.UTC),
		End:      time.Date(2024, 11, 3, 1, 10, 0, 0, time.UTC),
		Timezone: "America/New_York",
	}}

	prepared := mock.ExpectPrepare(regexp.QuoteMeta("UPDATE calendar_items"))
	prepared.ExpectExec().
		WithArgs(int64(3), sqlmock.AnyArg(), sqlmock.AnyArg(), "America/New_York", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23514", Message: "violates check constraint"})

	err := NewCalendarItemRepository(db).UpdateTimeSlots(context.Background(), []*models.CalendarItem{item})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 3")
	assert.True(t, item.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemorableEventRepository_CreateBatchAssignsIDs(t *testing.T) {
	db, mock := newMock(t)
	created := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO memorable_events")).
		WithArgs(int64(42), "My Birthday", 3, 5, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), created))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO memorable_events")).
		WithArgs(int64(42), "Anniversary", 29, 2, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(12), created))

	events := []*models.MemorableEvent{
		{UserID: 42, Title: "My Birthday", Day: 3, Month: 5},
		{UserID: 42, Title: "Anniversary", Day: 29, Month: 2},
	}
	require.NoError(t, NewMemorableEventRepository(db).CreateBatch(context.Background(), events))
	assert.Equal(t, int64(11), events[0].ID)
	assert.Equal(t, int64(12), events[1].ID)
	assert.Equal(t, created, events[1].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var monthPlanColumns = []string{"id", "user_id", "year", "month", "status", "approved_routine_names", "created_at", "updated_at"}

func TestMonthPlanRepository_GetByPeriod(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMonthPlanRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND year = $2 AND month = $3")).
		WithArgs(int64(42), 2024, 1).
		WillReturnRows(sqlmock.NewRows(monthPlanColumns).AddRow(int64(7), int64(42), 2024, 1, "DRAFT", "{Gym,Read}", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND year = $2 AND month = $3")).
		WithArgs(int64(42), 2024, 2).
		WillReturnRows(sqlmock.NewRows(monthPlanColumns))

	plan, err := repo.GetByPeriod(context.Background(), 42, models.YearMonth{Year: 2024, Month: time.January})
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, int64(7), plan.ID)
	assert.Equal(t, models.PlanStatusDraft, plan.Status)
	assert.Equal(t, []string{"Gym", "Read"}, plan.ApprovedRoutineNames)

	missing, err := repo.GetByPeriod(context.Background(), 42, models.YearMonth{Year: 2024, Month: time.February})
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMonthPlanRepository_Update(t *testing.T) {
	db, mock := newMock(t)
	updated := time.Date(2024, 1, 20, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE month_plans")).
		WithArgs(int64(7), "ACTIVE", pq.Array([]string{"Gym"}), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(updated))

	plan, err := NewMonthPlanRepository(db).Update(context.Background(), &models.MonthPlan{
		ID:                   7,
		Status:               models.PlanStatusActive,
		ApprovedRoutineNames: []string{"Gym"},
	})
	require.NoError(t, err)
	assert.Equal(t, updated, plan.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
