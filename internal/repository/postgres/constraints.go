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

type userConstraintsRepository struct {
	db querier
}

// NewUserConstraintsRepository creates a new user constraints repository
func NewUserConstraintsRepository(db querier) repository.UserConstraintsRepository {
	return &userConstraintsRepository{db: db}
}

func (r *userConstraintsRepository) GetByUser(ctx context.Context, userID int64) (*models.UserConstraints, error) {
	query := `
		SELECT user_id, sleep_starts, sleep_ends, daily_limit_enabled, task_limit_hours, routine_limit_hours, updated_at
		FROM user_constraints
		WHERE user_id = $1`

	var (
		c                       models.UserConstraints
		starts, ends            pq.StringArray
		taskHours, routineHours int
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&c.UserID,
		&starts,
		&ends,
		&c.DailyLimitEnabled,
		&taskHours,
		&routineHours,
		&c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user constraints: %w", err)
	}

	if len(starts) != len(ends) {
		return nil, fmt.Errorf("corrupt sleep hours for user %d: %d starts, %d ends", userID, len(starts), len(ends))
	}
	c.SleepHours = make([]models.TimeRange, 0, len(starts))
	for i := range starts {
		tr, err := models.ParseTimeRange(starts[i], ends[i])
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored sleep hours: %w", err)
		}
		c.SleepHours = append(c.SleepHours, tr)
	}
	c.DailyLimits = map[models.ItemType]int{
		models.ItemTypeTask:    taskHours,
		models.ItemTypeRoutine: routineHours,
	}

	return &c, nil
}

func (r *userConstraintsRepository) Upsert(ctx context.Context, c *models.UserConstraints) (*models.UserConstraints, error) {
	query := `
		INSERT INTO user_constraints (user_id, sleep_starts, sleep_ends, daily_limit_enabled, task_limit_hours, routine_limit_hours, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET sleep_starts = EXCLUDED.sleep_starts,
			sleep_ends = EXCLUDED.sleep_ends,
			daily_limit_enabled = EXCLUDED.daily_limit_enabled,
			task_limit_hours = EXCLUDED.task_limit_hours,
			routine_limit_hours = EXCLUDED.routine_limit_hours,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at`

	starts := make([]string, 0, len(c.SleepHours))
	ends := make([]string, 0, len(c.SleepHours))
	for _, tr := range c.SleepHours {
		starts = append(starts, tr.Start.String())
		ends = append(ends, tr.End.String())
	}

	c.UpdatedAt = time.Now()

	err := r.db.QueryRowContext(ctx, query,
		c.UserID,
		pq.Array(starts),
		pq.Array(ends),
		c.DailyLimitEnabled,
		c.LimitFor(models.ItemTypeTask),
		c.LimitFor(models.ItemTypeRoutine),
		c.UpdatedAt,
	).Scan(&c.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to upsert user constraints: %w", err)
	}

	return c, nil
}
