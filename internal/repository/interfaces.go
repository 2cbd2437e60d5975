package repository

import (
	"context"

	"github.com/Kerhoff/planner/internal/models"
)

// CalendarRepository defines the interface for calendar data operations
type CalendarRepository interface {
	Create(ctx context.Context, calendar *models.Calendar) (*models.Calendar, error)
	GetByID(ctx context.Context, id int64) (*models.Calendar, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Calendar, error)
}

// CalendarItemRepository defines the interface for calendar item operations
type CalendarItemRepository interface {
	Create(ctx context.Context, item *models.CalendarItem) (*models.CalendarItem, error)
	CreateBatch(ctx context.Context, items []*models.CalendarItem) error
	GetByID(ctx context.Context, id int64) (*models.CalendarItem, error)
	ListByUser(ctx context.Context, userID int64, filters ItemFilters) ([]*models.CalendarItem, error)
	ListByMonthPlan(ctx context.Context, monthPlanID int64) ([]*models.CalendarItem, error)
	Update(ctx context.Context, item *models.CalendarItem) (*models.CalendarItem, error)
	UpdateTimeSlots(ctx context.Context, items []*models.CalendarItem) error
	Delete(ctx context.Context, id int64) error
	DeleteByIDs(ctx context.Context, ids []int64) error
	DeleteByMemorableEventIDs(ctx context.Context, memorableEventIDs []int64) error
}

// MonthPlanRepository defines the interface for month plan operations
type MonthPlanRepository interface {
	Create(ctx context.Context, plan *models.MonthPlan) (*models.MonthPlan, error)
	GetByID(ctx context.Context, id int64) (*models.MonthPlan, error)
	GetByPeriod(ctx context.Context, userID int64, ym models.YearMonth) (*models.MonthPlan, error)
	Update(ctx context.Context, plan *models.MonthPlan) (*models.MonthPlan, error)
}

// WeekPlanRepository defines the interface for week plan operations
type WeekPlanRepository interface {
	CreateBatch(ctx context.Context, weeks []*models.WeekPlan) error
	ListByMonthPlan(ctx context.Context, monthPlanID int64) ([]*models.WeekPlan, error)
}

// BigTaskRepository defines the interface for big task snapshots
type BigTaskRepository interface {
	Create(ctx context.Context, task *models.BigTask) (*models.BigTask, error)
	GetByID(ctx context.Context, id int64) (*models.BigTask, error)
	ListByMonthPlan(ctx context.Context, monthPlanID int64) ([]*models.BigTask, error)
	Delete(ctx context.Context, id int64) error
}

// MemorableEventRepository defines the interface for memorable event definitions
type MemorableEventRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]*models.MemorableEvent, error)
	CreateBatch(ctx context.Context, events []*models.MemorableEvent) error
	DeleteByIDs(ctx context.Context, ids []int64) error
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// UserConstraintsRepository defines the interface for user constraints
type UserConstraintsRepository interface {
	GetByUser(ctx context.Context, userID int64) (*models.UserConstraints, error)
	Upsert(ctx context.Context, constraints *models.UserConstraints) (*models.UserConstraints, error)
}

// Locker serializes work on one user's data for the rest of a transaction
type Locker interface {
	LockUser(ctx context.Context, userID int64) error
}

// Repositories groups the repositories bound to one unit of work
type Repositories struct {
	Calendars   CalendarRepository
	Items       CalendarItemRepository
	MonthPlans  MonthPlanRepository
	WeekPlans   WeekPlanRepository
	BigTasks    BigTaskRepository
	Memorables  MemorableEventRepository
	Constraints UserConstraintsRepository
	Locks       Locker
}

// Store hands out repositories and runs transactions
type Store interface {
	Repos() Repositories
	// WithinTx runs fn against repositories bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	// ReadTx runs fn against one consistent read-only snapshot.
	ReadTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// ItemFilters represents filters for querying calendar items
type ItemFilters struct {
	Type          *models.ItemType
	ScheduledOnly bool
	CalendarID    *int64
}
