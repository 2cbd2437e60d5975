package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/repository"
)

type calendarRepository struct {
	db querier
}

// NewCalendarRepository creates a new calendar repository
func NewCalendarRepository(db querier) repository.CalendarRepository {
	return &calendarRepository{db: db}
}

func (r *calendarRepository) Create(ctx context.Context, calendar *models.Calendar) (*models.Calendar, error) {
	query := `
		INSERT INTO calendars (user_id, name, description, calendar_type, is_visible, is_pinned, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	calendar.CreatedAt = now
	calendar.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, query,
		calendar.UserID,
		calendar.Name,
		calendar.Description,
		calendar.Type,
		calendar.IsVisible,
		calendar.IsPinned,
		calendar.CreatedAt,
		calendar.UpdatedAt,
	).Scan(&calendar.ID, &calendar.CreatedAt, &calendar.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create calendar: %w", err)
	}

	return calendar, nil
}

func (r *calendarRepository) GetByID(ctx context.Context, id int64) (*models.Calendar, error) {
	query := `
		SELECT id, user_id, name, description, calendar_type, is_visible, is_pinned, created_at, updated_at
		FROM calendars
		WHERE id = $1`

	calendar, err := scanCalendar(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get calendar: %w", err)
	}

	return calendar, nil
}

func (r *calendarRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Calendar, error) {
	query := `
		SELECT id, user_id, name, description, calendar_type, is_visible, is_pinned, created_at, updated_at
		FROM calendars
		WHERE user_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendars: %w", err)
	}
	defer rows.Close()

	var calendars []*models.Calendar
	for rows.Next() {
		calendar, err := scanCalendar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calendar: %w", err)
		}
		calendars = append(calendars, calendar)
	}

	return calendars, rows.Err()
}

func scanCalendar(row scanner) (*models.Calendar, error) {
	calendar := &models.Calendar{}
	err := row.Scan(
		&calendar.ID,
		&calendar.UserID,
		&calendar.Name,
		&calendar.Description,
		&calendar.Type,
		&calendar.IsVisible,
		&calendar.IsPinned,
		&calendar.CreatedAt,
		&calendar.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return calendar, nil
}
