package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/planner/internal/apperr"
	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/repository"
)

// CreateDefaultCalendar provisions the user's personal calendar. It is a
// no-op returning the first existing calendar when the user already has one.
func (s *Service) CreateDefaultCalendar(ctx context.Context, userID int64) (*models.Calendar, error) {
	var (
		calendar *models.Calendar
		created  bool
	)

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Locks.LockUser(ctx, userID); err != nil {
			return err
		}

		existing, err := repos.Calendars.ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to lookup calendars (user_id=%d): %w", userID, err)
		}
		if len(existing) > 0 {
			calendar = existing[0]
			return nil
		}

		calendar, err = repos.Calendars.Create(ctx, &models.Calendar{
			UserID:    userID,
			Name:      models.DefaultCalendarName,
			Type:      models.CalendarTypePersonal,
			IsVisible: true,
			IsPinned:  true,
		})
		if err != nil {
			return fmt.Errorf("failed to create default calendar (user_id=%d): %w", userID, err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.logger.WithFields(logrus.Fields{
			"user_id":     userID,
			"calendar_id": calendar.ID,
		}).Info("Created default calendar")
	}
	return calendar, nil
}

// IsCalendarOwner reports whether calendarID exists and belongs to userID.
func (s *Service) IsCalendarOwner(ctx context.Context, userID, calendarID int64) (bool, error) {
	calendar, err := s.store.Repos().Calendars.GetByID(ctx, calendarID)
	if err != nil {
		return false, fmt.Errorf("failed to lookup calendar %d: %w", calendarID, err)
	}
	return calendar != nil && calendar.UserID == userID, nil
}

// ListCalendars returns the user's calendars in creation order.
func (s *Service) ListCalendars(ctx context.Context, userID int64) ([]*models.Calendar, error) {
	calendars, err := s.store.Repos().Calendars.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars (user_id=%d): %w", userID, err)
	}
	if calendars == nil {
		calendars = []*models.Calendar{}
	}
	return calendars, nil
}

func personalCalendar(ctx context.Context, repos repository.Repositories, userID int64) (*models.Calendar, error) {
	calendars, err := repos.Calendars.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup calendars (user_id=%d): %w", userID, err)
	}
	for _, c := range calendars {
		if c.IsPersonal() {
			return c, nil
		}
	}
	return nil, apperr.New(apperr.CodeNoPersonalCalendar, "user %d has no personal calendar", userID)
}

// firstCalendar is where month-plan generated items land.
func firstCalendar(ctx context.Context, repos repository.Repositories, userID int64) (*models.Calendar, error) {
	calendars, err := repos.Calendars.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup calendars (user_id=%d): %w", userID, err)
	}
	if len(calendars) == 0 {
		return nil, apperr.New(apperr.CodeCalendarNotFound, "user %d has no calendar", userID)
	}
	return calendars[0], nil
}
