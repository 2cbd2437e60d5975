package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/planner/internal/apperr"
	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/repository"
)

// CreateItemRequest carries the common fields plus the fields of every
// variant; only those matching Type are used.
type CreateItemRequest struct {
	Type        string           `json:"type"`
	CalendarID  int64            `json:"calendar_id"`
	MonthPlanID *int64           `json:"month_plan_id,omitempty"`
	Name        string           `json:"name"`
	Note        string           `json:"note,omitempty"`
	Color       string           `json:"color,omitempty"`
	TimeSlot    *models.TimeSlot `json:"time_slot,omitempty"`

	// Task
	ParentBigTaskID *int64     `json:"parent_big_task_id,omitempty"`
	EstimatedHours  *int       `json:"estimated_hours,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`

	// Routine
	DaysOfWeek []string `json:"days_of_week,omitempty"`

	// Event
	Location  string   `json:"location,omitempty"`
	IsAllDay  bool     `json:"is_all_day,omitempty"`
	Attendees []string `json:"attendees,omitempty"`
}

// CreateCalendarItem validates req and persists a new item with status
// INCOMPLETE, returning its id.
func (s *Service) CreateCalendarItem(ctx context.Context, userID int64, req CreateItemRequest) (int64, error) {
	log := s.logger.WithFields(logrus.Fields{"user_id": userID, "type": req.Type})

	itemType, err := models.ParseItemType(req.Type)
	if err != nil {
		log.Warn("Rejected calendar item with invalid type")
		return 0, err
	}

	owner, err := s.owners.IsCalendarOwner(ctx, userID, req.CalendarID)
	if err != nil {
		return 0, fmt.Errorf("failed to check calendar ownership: %w", err)
	}
	if !owner {
		log.WithField("calendar_id", req.CalendarID).Warn("Rejected calendar item for foreign calendar")
		return 0, errCalendarNotFound(req.CalendarID)
	}

	slot, err := normalizeSlot(req.TimeSlot)
	if err != nil {
		log.WithError(err).Warn("Rejected calendar item with invalid time slot")
		return 0, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return 0, apperr.New(apperr.CodeInvalidInput, "name is required")
	}

	item := &models.CalendarItem{
		UserID:      userID,
		CalendarID:  req.CalendarID,
		MonthPlanID: req.MonthPlanID,
		Type:        itemType,
		Name:        name,
		Note:        strings.TrimSpace(req.Note),
		Color:       strings.TrimSpace(req.Color),
		Status:      models.ItemStatusIncomplete,
		TimeSlot:    slot,
	}
	applyVariant(item, req)

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if req.MonthPlanID != nil {
			if _, err := requireMonthPlan(ctx, repos, userID, *req.MonthPlanID); err != nil {
				return err
			}
		}
		_, err := repos.Items.Create(ctx, item)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.metrics.ItemsCreated.WithLabelValues(string(itemType)).Inc()
	log.WithField("item_id", item.ID).Info("Calendar item created")
	return item.ID, nil
}

// applyVariant fills the payload selected by the item's discriminant.
func applyVariant(item *models.CalendarItem, req CreateItemRequest) {
	switch item.Type {
	case models.ItemTypeTask:
		item.Task = &models.TaskDetails{
			ParentBigTaskID: req.ParentBigTaskID,
			EstimatedHours:  req.EstimatedHours,
			DueDate:         dateOf(req.DueDate),
		}
	case models.ItemTypeRoutine:
		item.Routine = &models.RoutineDetails{
			Pattern: models.ParseRecurringPattern(req.DaysOfWeek),
		}
	case models.ItemTypeEvent:
		item.Event = &models.EventDetails{
			Location:  strings.TrimSpace(req.Location),
			IsAllDay:  req.IsAllDay,
			Attendees: append([]string{}, req.Attendees...),
		}
	}
}

func normalizeSlot(in *models.TimeSlot) (*models.TimeSlot, error) {
	if in == nil {
		return nil, nil
	}
	slot := models.NewTimeSlot(in.Start, in.End, strings.TrimSpace(in.Timezone))
	if err := slot.Validate(); err != nil {
		return nil, err
	}
	return &slot, nil
}

func dateOf(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

// GetCalendarItem returns one of the user's items.
func (s *Service) GetCalendarItem(ctx context.Context, userID, itemID int64) (*models.CalendarItem, error) {
	return ownedItem(ctx, s.store.Repos(), userID, itemID)
}

func ownedItem(ctx context.Context, repos repository.Repositories, userID, itemID int64) (*models.CalendarItem, error) {
	item, err := repos.Items.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup calendar item %d: %w", itemID, err)
	}
	if item == nil || item.UserID != userID {
		return nil, errItemNotFound(itemID)
	}
	return item, nil
}

// UpdateItemStatus marks an item complete or incomplete.
func (s *Service) UpdateItemStatus(ctx context.Context, userID, itemID int64, status string) (*models.CalendarItem, error) {
	st, err := models.ParseItemStatus(status)
	if err != nil {
		return nil, err
	}

	var item *models.CalendarItem
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		if item, err = ownedItem(ctx, repos, userID, itemID); err != nil {
			return err
		}
		item.Status = st
		_, err = repos.Items.Update(ctx, item)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": userID, "item_id": itemID, "status": st}).Info("Calendar item status updated")
	return item, nil
}

// RescheduleItem replaces the item's time slot. A nil slot unschedules it.
// Memorable occurrences are managed by the generator and cannot be moved.
func (s *Service) RescheduleItem(ctx context.Context, userID, itemID int64, slot *models.TimeSlot) (*models.CalendarItem, error) {
	normalized, err := normalizeSlot(slot)
	if err != nil {
		return nil, err
	}

	var item *models.CalendarItem
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		if item, err = ownedItem(ctx, repos, userID, itemID); err != nil {
			return err
		}
		if item.Type == models.ItemTypeMemorable {
			return apperr.New(apperr.CodeInvalidItemType, "memorable event occurrences cannot be rescheduled")
		}
		item.TimeSlot = normalized
		_, err = repos.Items.Update(ctx, item)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": userID, "item_id": itemID}).Info("Calendar item rescheduled")
	return item, nil
}

// DeleteCalendarItem removes a user-created item.
func (s *Service) DeleteCalendarItem(ctx context.Context, userID, itemID int64) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		item, err := ownedItem(ctx, repos, userID, itemID)
		if err != nil {
			return err
		}
		if item.Type == models.ItemTypeMemorable {
			return apperr.New(apperr.CodeInvalidItemType, "memorable event occurrences are removed by updating the memorable events")
		}
		return repos.Items.Delete(ctx, itemID)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{"user_id": userID, "item_id": itemID}).Info("Calendar item deleted")
	return nil
}
