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

// ConvertUserTimezone reinterprets every scheduled item of the user as wall
// clock values in oldTZ and rewrites it in newTZ at the same instants. Items
// without a slot are untouched. It returns the number of converted items.
func (s *Service) ConvertUserTimezone(ctx context.Context, userID int64, oldTZ, newTZ string) (int, error) {
	oldTZ, newTZ = strings.TrimSpace(oldTZ), strings.TrimSpace(newTZ)
	from, err := requireZone(oldTZ)
	if err != nil {
		return 0, err
	}
	to, err := requireZone(newTZ)
	if err != nil {
		return 0, err
	}

	var converted int
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Locks.LockUser(ctx, userID); err != nil {
			return err
		}
		items, err := repos.Items.ListByUser(ctx, userID, repository.ItemFilters{ScheduledOnly: true})
		if err != nil {
			return fmt.Errorf("failed to list scheduled items (user_id=%d): %w", userID, err)
		}
		var rejected []string
		for _, item := range items {
			slot, err := item.TimeSlot.Reinterpret(from, to, newTZ)
			if err != nil {
				rejected = append(rejected, fmt.Sprintf("item %d %q: %v", item.ID, item.Name, err))
				continue
			}
			item.TimeSlot = &slot
		}
		if len(rejected) > 0 {
			return &apperr.Error{
				Code:    apperr.CodeInvalidTimeSlot,
				Message: fmt.Sprintf("%d item(s) cannot be moved to %s without changing their time", len(rejected), newTZ),
				Details: rejected,
			}
		}
		if err := repos.Items.UpdateTimeSlots(ctx, items); err != nil {
			return err
		}
		converted = len(items)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.metrics.ItemsConverted.Add(float64(converted))
	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"from":    oldTZ,
		"to":      newTZ,
		"items":   converted,
	}).Info("User timezone converted")
	return converted, nil
}

func requireZone(name string) (*time.Location, error) {
	if name == "" {
		return nil, apperr.New(apperr.CodeInvalidTimezone, "timezone is required")
	}
	return models.LoadZone(name)
}
