package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/repository"
)

// OwnershipChecker answers whether a user owns a calendar. Item creation
// depends on it as a precondition.
type OwnershipChecker interface {
	IsCalendarOwner(ctx context.Context, userID, calendarID int64) (bool, error)
}

// Service is the central business logic layer. Every mutating operation runs
// in one store transaction.
type Service struct {
	store       repository.Store
	logger      *logrus.Logger
	metrics     *Metrics
	owners      OwnershipChecker
	now         func() time.Time
	defaultZone string
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDefaultTimezone sets the zone label of system generated all-day slots.
func WithDefaultTimezone(tz string) Option {
	return func(s *Service) { s.defaultZone = tz }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithOwnershipChecker replaces the store-backed calendar ownership check.
func WithOwnershipChecker(c OwnershipChecker) Option {
	return func(s *Service) { s.owners = c }
}

// New creates a new Service with all required dependencies.
func New(store repository.Store, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		store:       store,
		logger:      logger,
		now:         time.Now,
		defaultZone: "UTC",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	if s.owners == nil {
		s.owners = s
	}
	return s
}

// requireMonthPlan loads a plan and checks it belongs to userID.
func requireMonthPlan(ctx context.Context, repos repository.Repositories, userID, monthPlanID int64) (*models.MonthPlan, error) {
	plan, err := repos.MonthPlans.GetByID(ctx, monthPlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup month plan %d: %w", monthPlanID, err)
	}
	if plan == nil || plan.UserID != userID {
		return nil, errMonthPlanNotFound(monthPlanID)
	}
	return plan, nil
}
