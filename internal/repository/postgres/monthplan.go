package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Kerhoff/planner/internal/apperr"
	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/repository"
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures
const uniqueViolation = "23505"

type monthPlanRepository struct {
	db querier
}

// NewMonthPlanRepository creates a new month plan repository
func NewMonthPlanRepository(db querier) repository.MonthPlanRepository {
	return &monthPlanRepository{db: db}
}

func (r *monthPlanRepository) Create(ctx context.Context, plan *models.MonthPlan) (*models.MonthPlan, error) {
	query := `
		INSERT INTO month_plans (user_id, year, month, status, approved_routine_names, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	if plan.ApprovedRoutineNames == nil {
		plan.ApprovedRoutineNames = []string{}
	}

	err := r.db.QueryRowContext(ctx, query,
		plan.UserID,
		plan.Year,
		plan.Month,
		plan.Status,
		pq.Array(plan.ApprovedRoutineNames),
		plan.CreatedAt,
		plan.UpdatedAt,
	).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, apperr.New(apperr.CodeDuplicatePlan, "month plan for %d-%02d already exists", plan.Year, plan.Month)
		}
		return nil, fmt.Errorf("failed to create month plan: %w", err)
	}

	return plan, nil
}

func (r *monthPlanRepository) GetByID(ctx context.Context, id int64) (*models.MonthPlan, error) {
	query := `
		SELECT id, user_id, year, month, status, approved_routine_names, created_at, updated_at
		FROM month_plans
		WHERE id = $1`

	plan, err := scanMonthPlan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get month plan: %w", err)
	}

	return plan, nil
}

func (r *monthPlanRepository) GetByPeriod(ctx context.Context, userID int64, ym models.YearMonth) (*models.MonthPlan, error) {
	query := `
		SELECT id, user_id, year, month, status, approved_routine_names, created_at, updated_at
		FROM month_plans
		WHERE user_id = $1 AND year = $2 AND month = $3`

	plan, err := scanMonthPlan(r.db.QueryRowContext(ctx, query, userID, ym.Year, int(ym.Month)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get month plan by period: %w", err)
	}

	return plan, nil
}

func (r *monthPlanRepository) Update(ctx context.Context, plan *models.MonthPlan) (*models.MonthPlan, error) {
	query := `
		UPDATE month_plans
		SET status = $2, approved_routine_names = $3, updated_at = $4
		WHERE id = $1
		RETURNING updated_at`

	plan.UpdatedAt = time.Now()

	err := r.db.QueryRowContext(ctx, query,
		plan.ID,
		plan.Status,
		pq.Array(plan.ApprovedRoutineNames),
		plan.UpdatedAt,
	).Scan(&plan.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to update month plan: %w", err)
	}

	return plan, nil
}

func scanMonthPlan(row scanner) (*models.MonthPlan, error) {
	plan := &models.MonthPlan{}
	err := row.Scan(
		&plan.ID,
		&plan.UserID,
		&plan.Year,
		&plan.Month,
		&plan.Status,
		pq.Array(&plan.ApprovedRoutineNames),
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if plan.ApprovedRoutineNames == nil {
		plan.ApprovedRoutineNames = []string{}
	}
	return plan, nil
}

type weekPlanRepository struct {
	db querier
}

// NewWeekPlanRepository creates a new week plan repository
func NewWeekPlanRepository(db querier) repository.WeekPlanRepository {
	return &weekPlanRepository{db: db}
}

func (r *weekPlanRepository) CreateBatch(ctx context.Context, weeks []*models.WeekPlan) error {
	query := `
		INSERT INTO week_plans (month_plan_id, week_number, start_date, end_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	now := time.Now()
	for _, week := range weeks {
		week.CreatedAt = now
		err := r.db.QueryRowContext(ctx, query,
			week.MonthPlanID,
			week.WeekNumber,
			week.StartDate,
			week.EndDate,
			week.Status,
			week.CreatedAt,
		).Scan(&week.ID, &week.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create week plan %d: %w", week.WeekNumber, err)
		}
	}

	return nil
}

func (r *weekPlanRepository) ListByMonthPlan(ctx context.Context, monthPlanID int64) ([]*models.WeekPlan, error) {
	query := `
		SELECT id, month_plan_id, week_number, start_date, end_date, status, created_at
		FROM week_plans
		WHERE month_plan_id = $1
		ORDER BY week_number ASC`

	rows, err := r.db.QueryContext(ctx, query, monthPlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query week plans: %w", err)
	}
	defer rows.Close()

	var weeks []*models.WeekPlan
	for rows.Next() {
		week := &models.WeekPlan{}
		if err := rows.Scan(
			&week.ID,
			&week.MonthPlanID,
			&week.WeekNumber,
			&week.StartDate,
			&week.EndDate,
			&week.Status,
			&week.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan week plan: %w", err)
		}
		week.StartDate = dateOnly(week.StartDate)
		week.EndDate = dateOnly(week.EndDate)
		weeks = append(weeks, week)
	}

	return weeks, rows.Err()
}
