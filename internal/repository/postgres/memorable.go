package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/repository"
)

type memorableEventRepository struct {
	db querier
}

// NewMemorableEventRepository creates a new memorable event repository
func NewMemorableEventRepository(db querier) repository.MemorableEventRepository {
	return &memorableEventRepository{db: db}
}

func (r *memorableEventRepository) ListByUser(ctx context.Context, userID int64) ([]*models.MemorableEvent, error) {
	query := `
		SELECT id, user_id, title, day, month, created_at
		FROM memorable_events
		WHERE user_id = $1
		ORDER BY month ASC, day ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query memorable events: %w", err)
	}
	defer rows.Close()

	var events []*models.MemorableEvent
	for rows.Next() {
		event := &models.MemorableEvent{}
		if err := rows.Scan(
			&event.ID,
			&event.UserID,
			&event.Title,
			&event.Day,
			&event.Month,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan memorable event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

func (r *memorableEventRepository) CreateBatch(ctx context.Context, events []*models.MemorableEvent) error {
	query := `
		INSERT INTO memorable_events (user_id, title, day, month, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	now := time.Now()
	for _, event := range events {
		event.CreatedAt = now
		err := r.db.QueryRowContext(ctx, query,
			event.UserID,
			event.Title,
			event.Day,
			event.Month,
			event.CreatedAt,
		).Scan(&event.ID, &event.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create memorable event: %w", err)
		}
	}

	return nil
}

func (r *memorableEventRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM memorable_events WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to delete memorable events: %w", err)
	}
	return nil
}

func (r *memorableEventRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM memorable_events ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query memorable event owners: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
