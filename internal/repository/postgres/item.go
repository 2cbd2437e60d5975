package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/repository"
)

const itemColumns = `id, user_id, calendar_id, month_plan_id, week_plan_id, item_type, name, note, color, status,
		start_time, end_time, time_zone, parent_big_task_id, estimated_hours, due_date, days_of_week,
		location, is_all_day, attendees, memorable_event_id, created_at, updated_at`

type calendarItemRepository struct {
	db querier
}

// NewCalendarItemRepository creates a new calendar item repository
func NewCalendarItemRepository(db querier) repository.CalendarItemRepository {
	return &calendarItemRepository{db: db}
}

func (r *calendarItemRepository) Create(ctx context.Context, item *models.CalendarItem) (*models.CalendarItem, error) {
	query := `
		INSERT INTO calendar_items (user_id, calendar_id, month_plan_id, week_plan_id, item_type, name, note, color, status,
			start_time, end_time, time_zone, parent_big_task_id, estimated_hours, due_date, days_of_week,
			location, is_all_day, attendees, memorable_event_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	start, end, tz := slotArgs(item.TimeSlot)
	v := variantArgs(item)

	err := r.db.QueryRowContext(ctx, query,
		item.UserID,
		item.CalendarID,
		item.MonthPlanID,
		item.WeekPlanID,
		item.Type,
		item.Name,
		item.Note,
		item.Color,
		item.Status,
		start,
		end,
		tz,
		v.parentBigTaskID,
		v.estimatedHours,
		v.dueDate,
		v.daysOfWeek,
		v.location,
		v.isAllDay,
		v.attendees,
		v.memorableEventID,
		item.CreatedAt,
		item.UpdatedAt,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create calendar item: %w", err)
	}

	return item, nil
}

func (r *calendarItemRepository) CreateBatch(ctx context.Context, items []*models.CalendarItem) error {
	for _, item := range items {
		if _, err := r.Create(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (r *calendarItemRepository) GetByID(ctx context.Context, id int64) (*models.CalendarItem, error) {
	query := `SELECT ` + itemColumns + ` FROM calendar_items WHERE id = $1`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get calendar item: %w", err)
	}

	return item, nil
}

func (r *calendarItemRepository) ListByUser(ctx context.Context, userID int64, filters repository.ItemFilters) ([]*models.CalendarItem, error) {
	query := `SELECT ` + itemColumns + ` FROM calendar_items WHERE user_id = $1`
	args := []interface{}{userID}
	argIdx := 2

	if filters.Type != nil {
		query += fmt.Sprintf(" AND item_type = $%d", argIdx)
		args = append(args, *filters.Type)
		argIdx++
	}
	if filters.CalendarID != nil {
		query += fmt.Sprintf(" AND calendar_id = $%d", argIdx)
		args = append(args, *filters.CalendarID)
	}
	if filters.ScheduledOnly {
		query += " AND start_time IS NOT NULL"
	}

	query += " ORDER BY start_time ASC NULLS LAST, id ASC"

	return r.list(ctx, query, args...)
}

func (r *calendarItemRepository) ListByMonthPlan(ctx context.Context, monthPlanID int64) ([]*models.CalendarItem, error) {
	query := `SELECT ` + itemColumns + ` FROM calendar_items WHERE month_plan_id = $1 ORDER BY id ASC`
	return r.list(ctx, query, monthPlanID)
}

func (r *calendarItemRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.CalendarItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar items: %w", err)
	}
	defer rows.Close()

	var items []*models.CalendarItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calendar item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *calendarItemRepository) Update(ctx context.Context, item *models.CalendarItem) (*models.CalendarItem, error) {
	query := `
		UPDATE calendar_items
		SET name = $2, note = $3, color = $4, status = $5, start_time = $6, end_time = $7, time_zone = $8,
			week_plan_id = $9, parent_big_task_id = $10, estimated_hours = $11, due_date = $12, days_of_week = $13,
			location = $14, is_all_day = $15, attendees = $16, updated_at = $17
		WHERE id = $1
		RETURNING updated_at`

	item.UpdatedAt = time.Now()

	start, end, tz := slotArgs(item.TimeSlot)
	v := variantArgs(item)

	err := r.db.QueryRowContext(ctx, query,
		item.ID,
		item.Name,
		item.Note,
		item.Color,
		item.Status,
		start,
		end,
		tz,
		item.WeekPlanID,
		v.parentBigTaskID,
		v.estimatedHours,
		v.dueDate,
		v.daysOfWeek,
		v.location,
		v.isAllDay,
		v.attendees,
		item.UpdatedAt,
	).Scan(&item.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to update calendar item: %w", err)
	}

	return item, nil
}

func (r *calendarItemRepository) UpdateTimeSlots(ctx context.Context, items []*models.CalendarItem) error {
	if len(items) == 0 {
		return nil
	}

	stmt, err := r.db.PrepareContext(ctx, `
		UPDATE calendar_items
		SET start_time = $2, end_time = $3, time_zone = $4, updated_at = $5
		WHERE id = $1`)
	if err != nil {
		return fmt.Errorf("failed to prepare time slot update: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, item := range items {
		start, end, tz := slotArgs(item.TimeSlot)
		if _, err := stmt.ExecContext(ctx, item.ID, start, end, tz, now); err != nil {
			return fmt.Errorf("failed to update time slot of item %d: %w", item.ID, err)
		}
		item.UpdatedAt = now
	}

	return nil
}

func (r *calendarItemRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM calendar_items WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete calendar item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("calendar item with ID %d not found", id)
	}

	return nil
}

func (r *calendarItemRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM calendar_items WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to delete calendar items: %w", err)
	}
	return nil
}

func (r *calendarItemRepository) DeleteByMemorableEventIDs(ctx context.Context, memorableEventIDs []int64) error {
	if len(memorableEventIDs) == 0 {
		return nil
	}
	query := `DELETE FROM calendar_items WHERE memorable_event_id = ANY($1)`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(memorableEventIDs)); err != nil {
		return fmt.Errorf("failed to delete memorable calendar items: %w", err)
	}
	return nil
}

func slotArgs(slot *models.TimeSlot) (interface{}, interface{}, interface{}) {
	if slot == nil {
		return nil, nil, nil
	}
	return slot.Start, slot.End, slot.Timezone
}

type variantColumns struct {
	parentBigTaskID  *int64
	estimatedHours   *int
	dueDate          *time.Time
	daysOfWeek       interface{}
	location         string
	isAllDay         bool
	attendees        interface{}
	memorableEventID *int64
}

func variantArgs(item *models.CalendarItem) variantColumns {
	v := variantColumns{attendees: pq.Array([]string{})}
	switch {
	case item.Task != nil:
		v.parentBigTaskID = item.Task.ParentBigTaskID
		v.estimatedHours = item.Task.EstimatedHours
		v.dueDate = item.Task.DueDate
	case item.Routine != nil:
		if item.Routine.Pattern != nil {
			v.daysOfWeek = pq.Array(item.Routine.Pattern.DayNames())
		}
	case item.Event != nil:
		v.location = item.Event.Location
		v.isAllDay = item.Event.IsAllDay
		if item.Event.Attendees != nil {
			v.attendees = pq.Array(item.Event.Attendees)
		}
	case item.Memorable != nil:
		id := item.Memorable.MemorableEventID
		v.memorableEventID = &id
		v.isAllDay = true
	}
	return v
}

func scanItem(row scanner) (*models.CalendarItem, error) {
	var (
		item                  models.CalendarItem
		monthPlanID, weekPlan sql.NullInt64
		start, end            sql.NullTime
		tz                    sql.NullString
		parentID, hours       sql.NullInt64
		dueDate               sql.NullTime
		daysOfWeek            pq.StringArray
		location              string
		isAllDay              bool
		attendees             pq.StringArray
		memorableID           sql.NullInt64
	)

	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.CalendarID,
		&monthPlanID,
		&weekPlan,
		&item.Type,
		&item.Name,
		&item.Note,
		&item.Color,
		&item.Status,
		&start,
		&end,
		&tz,
		&parentID,
		&hours,
		&dueDate,
		&daysOfWeek,
		&location,
		&isAllDay,
		&attendees,
		&memorableID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.MonthPlanID = nullInt64(monthPlanID)
	item.WeekPlanID = nullInt64(weekPlan)
	if start.Valid && end.Valid {
		item.TimeSlot = &models.TimeSlot{
			Start:    models.Wall(start.Time),
			End:      models.Wall(end.Time),
			Timezone: tz.String,
		}
	}

	switch item.Type {
	case models.ItemTypeTask:
		task := &models.TaskDetails{ParentBigTaskID: nullInt64(parentID)}
		if hours.Valid {
			h := int(hours.Int64)
			task.EstimatedHours = &h
		}
		if dueDate.Valid {
			d := dateOnly(dueDate.Time)
			task.DueDate = &d
		}
		item.Task = task
	case models.ItemTypeRoutine:
		routine := &models.RoutineDetails{}
		if daysOfWeek != nil {
			routine.Pattern = models.ParseRecurringPattern(daysOfWeek)
		}
		item.Routine = routine
	case models.ItemTypeEvent:
		item.Event = &models.EventDetails{
			Location:  location,
			IsAllDay:  isAllDay,
			Attendees: []string(attendees),
		}
	case models.ItemTypeMemorable:
		item.Memorable = &models.MemorableDetails{MemorableEventID: memorableID.Int64}
	}

	return &item, nil
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
