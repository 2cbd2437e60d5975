package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/repository"
)

type bigTaskRepository struct {
	db querier
}

// NewBigTaskRepository creates a new big task repository
func NewBigTaskRepository(db querier) repository.BigTaskRepository {
	return &bigTaskRepository{db: db}
}

func (r *bigTaskRepository) Create(ctx context.Context, task *models.BigTask) (*models.BigTask, error) {
	query := `
		INSERT INTO big_tasks (month_plan_id, user_id, name, description, estimated_start_date, estimated_end_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	task.CreatedAt = time.Now()

	err := r.db.QueryRowContext(ctx, query,
		task.MonthPlanID,
		task.UserID,
		task.Name,
		task.Description,
		task.EstimatedStartDate,
		task.EstimatedEndDate,
		task.CreatedAt,
	).Scan(&task.ID, &task.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create big task: %w", err)
	}

	return task, nil
}

func (r *bigTaskRepository) GetByID(ctx context.Context, id int64) (*models.BigTask, error) {
	query := `
		SELECT id, month_plan_id, user_id, name, description, estimated_start_date, estimated_end_date, created_at
		FROM big_tasks
		WHERE id = $1`

	task, err := scanBigTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get big task: %w", err)
	}

	return task, nil
}

func (r *bigTaskRepository) ListByMonthPlan(ctx context.Context, monthPlanID int64) ([]*models.BigTask, error) {
	query := `
		SELECT id, month_plan_id, user_id, name, description, estimated_start_date, estimated_end_date, created_at
		FROM big_tasks
		WHERE month_plan_id = $1
		ORDER BY estimated_start_date ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, monthPlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query big tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.BigTask
	for rows.Next() {
		task, err := scanBigTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan big task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

func (r *bigTaskRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM big_tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete big task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("big task with ID %d not found", id)
	}

	return nil
}

func scanBigTask(row scanner) (*models.BigTask, error) {
	task := &models.BigTask{}
	err := row.Scan(
		&task.ID,
		&task.MonthPlanID,
		&task.UserID,
		&task.Name,
		&task.Description,
		&task.EstimatedStartDate,
		&task.EstimatedEndDate,
		&task.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	task.EstimatedStartDate = dateOnly(task.EstimatedStartDate)
	task.EstimatedEndDate = dateOnly(task.EstimatedEndDate)
	return task, nil
}
