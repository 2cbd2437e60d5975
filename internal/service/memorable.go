package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/planner/internal/apperr"
	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/repository"
)

// MemorableEventInput defines one annual date.
type MemorableEventInput struct {
	Title string `json:"title"`
	Day   int    `json:"day"`
	Month int    `json:"month"`
}

// regeneration is the complete new memorable state of one user, computed
// before anything is written.
type regeneration struct {
	userID      int64
	replace     func(*models.MemorableEvent) bool
	definitions []*models.MemorableEvent
	// keep reuses the replaced definitions instead of inserting new ones
	keep bool
}

// UpdateMemorableEvents replaces all of the user's memorable events,
// including the birthday, and regenerates their occurrences.
func (s *Service) UpdateMemorableEvents(ctx context.Context, userID int64, defs []MemorableEventInput) ([]*models.MemorableEvent, error) {
	definitions := make([]*models.MemorableEvent, 0, len(defs))
	for _, d := range defs {
		title := strings.TrimSpace(d.Title)
		if title == "" {
			return nil, apperr.New(apperr.CodeInvalidInput, "memorable event title is required")
		}
		if err := models.ValidateDayMonth(d.Day, d.Month); err != nil {
			return nil, err
		}
		definitions = append(definitions, &models.MemorableEvent{UserID: userID, Title: title, Day: d.Day, Month: d.Month})
	}

	err := s.regenerate(ctx, regeneration{
		userID:      userID,
		replace:     func(*models.MemorableEvent) bool { return true },
		definitions: definitions,
	}, "update")
	if err != nil {
		return nil, err
	}
	return definitions, nil
}

// CreateOrUpdateBirthday replaces the user's birthday definition.
func (s *Service) CreateOrUpdateBirthday(ctx context.Context, userID int64, day, month int) (*models.MemorableEvent, error) {
	if err := models.ValidateDayMonth(day, month); err != nil {
		return nil, err
	}

	birthday := &models.MemorableEvent{UserID: userID, Title: models.BirthdayTitle, Day: day, Month: month}
	err := s.regenerate(ctx, regeneration{
		userID:      userID,
		replace:     func(e *models.MemorableEvent) bool { return e.Title == models.BirthdayTitle },
		definitions: []*models.MemorableEvent{birthday},
	}, "birthday")
	if err != nil {
		return nil, err
	}
	return birthday, nil
}

// GetMemorableEvents lists the user's definitions.
func (s *Service) GetMemorableEvents(ctx context.Context, userID int64) ([]*models.MemorableEvent, error) {
	events, err := s.store.Repos().Memorables.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memorable events (user_id=%d): %w", userID, err)
	}
	if events == nil {
		events = []*models.MemorableEvent{}
	}
	return events, nil
}

// RefreshMemorableHorizons regenerates the occurrences of every user with
// definitions so the window starts at the current year. Failures are logged
// per user and do not stop the run.
func (s *Service) RefreshMemorableHorizons(ctx context.Context) (int, error) {
	userIDs, err := s.store.Repos().Memorables.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list memorable event owners: %w", err)
	}

	refreshed := 0
	for _, userID := range userIDs {
		err := s.regenerate(ctx, regeneration{
			userID:  userID,
			replace: func(*models.MemorableEvent) bool { return true },
			keep:    true,
		}, "refresh")
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Error("Failed to refresh memorable events")
			continue
		}
		refreshed++
	}

	s.logger.WithFields(logrus.Fields{"users": len(userIDs), "refreshed": refreshed}).Info("Memorable event horizons refreshed")
	return refreshed, nil
}

// regenerate swaps the matching definitions and their occurrences for the
// new ones in a single transaction under the user's lock.
func (s *Service) regenerate(ctx context.Context, r regeneration, trigger string) error {
	firstYear := s.now().Year()
	var generated int

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Locks.LockUser(ctx, r.userID); err != nil {
			return err
		}
		calendar, err := personalCalendar(ctx, repos, r.userID)
		if err != nil {
			return err
		}

		existing, err := repos.Memorables.ListByUser(ctx, r.userID)
		if err != nil {
			return fmt.Errorf("failed to list memorable events (user_id=%d): %w", r.userID, err)
		}
		var oldIDs []int64
		var kept []*models.MemorableEvent
		for _, e := range existing {
			if r.replace(e) {
				oldIDs = append(oldIDs, e.ID)
				kept = append(kept, e)
			}
		}

		if err := repos.Items.DeleteByMemorableEventIDs(ctx, oldIDs); err != nil {
			return err
		}

		definitions := r.definitions
		if r.keep {
			definitions = kept
		} else {
			if err := repos.Memorables.DeleteByIDs(ctx, oldIDs); err != nil {
				return err
			}
			if err := repos.Memorables.CreateBatch(ctx, definitions); err != nil {
				return err
			}
		}

		items := make([]*models.CalendarItem, 0, len(definitions)*models.MemorableHorizonYears)
		for _, def := range definitions {
			items = append(items, s.memorableOccurrences(def, calendar.ID, firstYear)...)
		}
		if err := repos.Items.CreateBatch(ctx, items); err != nil {
			return err
		}
		generated = len(items)
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.MemorableRegenerations.WithLabelValues(trigger).Inc()
	s.logger.WithFields(logrus.Fields{
		"user_id": r.userID,
		"trigger": trigger,
		"items":   generated,
	}).Info("Memorable events regenerated")
	return nil
}

// memorableOccurrences builds one all-day item per year of the horizon.
func (s *Service) memorableOccurrences(def *models.MemorableEvent, calendarID int64, firstYear int) []*models.CalendarItem {
	items := make([]*models.CalendarItem, 0, models.MemorableHorizonYears)
	for offset := 0; offset < models.MemorableHorizonYears; offset++ {
		slot := models.AllDaySlot(def.OccurrenceDate(firstYear+offset), s.defaultZone)
		items = append(items, &models.CalendarItem{
			UserID:     def.UserID,
			CalendarID: calendarID,
			Type:       models.ItemTypeMemorable,
			Name:       def.Title,
			Color:      models.MemorableColor,
			Status:     models.ItemStatusIncomplete,
			TimeSlot:   &slot,
			Memorable:  &models.MemorableDetails{MemorableEventID: def.ID},
		})
	}
	return items
}

// HorizonRefresher runs RefreshMemorableHorizons on a cron schedule.
type HorizonRefresher struct {
	svc    *Service
	cron   *cron.Cron
	logger *logrus.Logger
}

// NewHorizonRefresher schedules the refresh with a standard five-field spec.
func NewHorizonRefresher(svc *Service, spec string, logger *logrus.Logger) (*HorizonRefresher, error) {
	c := cron.New(cron.WithLocation(svc.now().Location()))
	h := &HorizonRefresher{svc: svc, cron: c, logger: logger}

	if _, err := c.AddFunc(spec, h.run); err != nil {
		return nil, fmt.Errorf("invalid horizon refresh schedule %q: %w", spec, err)
	}
	return h, nil
}

func (h *HorizonRefresher) run() {
	if _, err := h.svc.RefreshMemorableHorizons(context.Background()); err != nil {
		h.logger.WithError(err).Error("Memorable horizon refresh failed")
	}
}

// Start launches the scheduler in its own goroutine.
func (h *HorizonRefresher) Start() {
	h.cron.Start()
	h.logger.Info("Memorable horizon refresher started")
}

// Stop halts the scheduler and waits for a running refresh to finish.
func (h *HorizonRefresher) Stop() {
	<-h.cron.Stop().Done()
	h.logger.Info("Memorable horizon refresher stopped")
}
