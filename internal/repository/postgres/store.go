package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kerhoff/planner/internal/repository"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// Store is the PostgreSQL implementation of repository.Store
type Store struct {
	db *sql.DB
}

// NewStore creates a new store backed by db
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Repos returns repositories that run each statement on its own
func (s *Store) Repos() repository.Repositories {
	return newRepositories(s.db)
}

// WithinTx runs fn inside one database transaction
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return s.run(ctx, nil, fn)
}

// ReadTx runs fn inside a read-only repeatable read transaction, so every
// query sees the same snapshot
func (s *Store) ReadTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return s.run(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, fn)
}

func (s *Store) run(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, repos repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction: %v (cause: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func newRepositories(db querier) repository.Repositories {
	return repository.Repositories{
		Calendars:   NewCalendarRepository(db),
		Items:       NewCalendarItemRepository(db),
		MonthPlans:  NewMonthPlanRepository(db),
		WeekPlans:   NewWeekPlanRepository(db),
		BigTasks:    NewBigTaskRepository(db),
		Memorables:  NewMemorableEventRepository(db),
		Constraints: NewUserConstraintsRepository(db),
		Locks:       &advisoryLocker{db: db},
	}
}

// advisoryLocker takes transaction-scoped advisory locks keyed by user id
type advisoryLocker struct {
	db querier
}

func (l *advisoryLocker) LockUser(ctx context.Context, userID int64) error {
	if _, err := l.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, userID); err != nil {
		return fmt.Errorf("failed to lock user %d: %w", userID, err)
	}
	return nil
}

// dateOnly drops the clock and location of a DATE column value
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
