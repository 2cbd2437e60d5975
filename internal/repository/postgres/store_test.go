package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/planner/internal/apperr"
	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/repository"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var calendarColumns = []string{"id", "user_id", "name", "description", "calendar_type", "is_visible", "is_pinned", "created_at", "updated_at"}

func TestCalendarRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	created := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO calendars")).
		WithArgs(int64(42), "My Calendar", "", models.CalendarTypePersonal, true, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(9), created, created))

	cal, err := NewCalendarRepository(db).Create(context.Background(), &models.Calendar{
		UserID:    42,
		Name:      "My Calendar",
		Type:      models.CalendarTypePersonal,
		IsVisible: true,
		IsPinned:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), cal.ID)
	assert.Equal(t, created, cal.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarRepository_GetByIDMissing(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM calendars")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(calendarColumns))

	cal, err := NewCalendarRepository(db).GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, cal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarRepository_ListByUser(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(calendarColumns).
			AddRow(int64(1), int64(42), "My Calendar", "", "PERSONAL", true, true, now, now).
			AddRow(int64(2), int64(42), "Work", "", "SHARED", true, false, now, now))

	calendars, err := NewCalendarRepository(db).ListByUser(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, calendars, 2)
	assert.True(t, calendars[0].IsPersonal())
	assert.Equal(t, "Work", calendars[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarItemRepository_DeleteByIDs(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCalendarItemRepository(db)

	// no statement for an empty set
	require.NoError(t, repo.DeleteByIDs(context.Background(), nil))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM calendar_items WHERE id = ANY($1)")).
		WithArgs(pq.Array([]int64{3, 5})).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.DeleteByIDs(context.Background(), []int64{3, 5}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMonthPlanRepository_CreateDuplicate(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO month_plans")).
		WillReturnError(&pq.Error{Code: uniqueViolation, Message: "duplicate key value violates unique constraint"})

	_, err := NewMonthPlanRepository(db).Create(context.Background(), &models.MonthPlan{
		UserID: 42, Year: 2024, Month: 1, Status: models.PlanStatusDraft,
	})
	assert.ErrorIs(t, err, apperr.ErrDuplicatePlan)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserConstraintsRepository_GetByUser(t *testing.T) {
	db, mock := newMock(t)
	columns := []string{"user_id", "sleep_starts", "sleep_ends", "daily_limit_enabled", "task_limit_hours", "routine_limit_hours", "updated_at"}

	mock.ExpectQuery(regexp.QuoteMeta("FROM user_constraints")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(42), "{23:00}", "{07:00}", true, 4, 2, time.Now()))

	c, err := NewUserConstraintsRepository(db).GetByUser(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, c.SleepHours, 1)
	assert.Equal(t, "23:00-07:00", c.SleepHours[0].String())
	assert.True(t, c.DailyLimitEnabled)
	assert.Equal(t, 4, c.LimitFor(models.ItemTypeTask))
	assert.Equal(t, 2, c.LimitFor(models.ItemTypeRoutine))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTxCommits(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := NewStore(db).WithinTx(context.Background(), func(ctx context.Context, repos repository.Repositories) error {
		return repos.Locks.LockUser(ctx, 42)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	db, mock := newMock(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := NewStore(db).WithinTx(context.Background(), func(context.Context, repository.Repositories) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ReadTxWrapsReads(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM calendars")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(calendarColumns))
	mock.ExpectQuery(regexp.QuoteMeta("FROM memorable_events")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "day", "month", "created_at"}))
	mock.ExpectCommit()

	err := NewStore(db).ReadTx(context.Background(), func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Calendars.ListByUser(ctx, 42); err != nil {
			return err
		}
		_, err := repos.Memorables.ListByUser(ctx, 42)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
