package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/planner/internal/apperr"
	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/repository"
)

// SleepHoursInput is one sleep window in HH:mm form.
type SleepHoursInput struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// GetUserConstraints returns the stored constraints, or the defaults when the
// user never wrote any. Reading never creates a record.
func (s *Service) GetUserConstraints(ctx context.Context, userID int64) (*models.UserConstraints, error) {
	return getOrDefaultConstraints(ctx, s.store.Repos(), userID)
}

func getOrDefaultConstraints(ctx context.Context, repos repository.Repositories, userID int64) (*models.UserConstraints, error) {
	c, err := repos.Constraints.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup constraints (user_id=%d): %w", userID, err)
	}
	if c == nil {
		return models.DefaultUserConstraints(userID), nil
	}
	return c, nil
}

// UpdateSleepHours replaces the whole sleep-hours list.
func (s *Service) UpdateSleepHours(ctx context.Context, userID int64, ranges []SleepHoursInput) (*models.UserConstraints, error) {
	parsed := make([]models.TimeRange, 0, len(ranges))
	for _, r := range ranges {
		tr, err := models.ParseTimeRange(strings.TrimSpace(r.StartTime), strings.TrimSpace(r.EndTime))
		if err != nil {
			s.logger.WithFields(logrus.Fields{"user_id": userID}).WithError(err).Warn("Rejected sleep hours")
			return nil, err
		}
		parsed = append(parsed, tr)
	}

	var out *models.UserConstraints
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		c, err := getOrDefaultConstraints(ctx, repos, userID)
		if err != nil {
			return err
		}
		c.SleepHours = parsed
		out, err = repos.Constraints.Upsert(ctx, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": userID, "ranges": len(parsed)}).Info("Sleep hours updated")
	return out, nil
}

// UpdateDailyLimits sets the enable flag and the ceilings named in limits.
// Types not mentioned keep their previous ceiling.
func (s *Service) UpdateDailyLimits(ctx context.Context, userID int64, enabled bool, limits map[string]int) (*models.UserConstraints, error) {
	parsed := make(map[models.ItemType]int, len(limits))
	for key, hours := range limits {
		t := models.ItemType(strings.ToUpper(strings.TrimSpace(key)))
		if !models.IsLimitedItemType(t) {
			s.logger.WithFields(logrus.Fields{"user_id": userID, "type": key}).Warn("Rejected daily limit for unknown item type")
			return nil, apperr.New(apperr.CodeInvalidItemType, "invalid item type %q (use TASK or ROUTINE)", key)
		}
		if hours < 0 || hours > 24 {
			return nil, apperr.New(apperr.CodeInvalidInput, "daily limit for %s must be between 0 and 24 hours", t)
		}
		parsed[t] = hours
	}

	var out *models.UserConstraints
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		c, err := getOrDefaultConstraints(ctx, repos, userID)
		if err != nil {
			return err
		}
		c.DailyLimitEnabled = enabled
		for t, h := range parsed {
			c.DailyLimits[t] = h
		}
		out, err = repos.Constraints.Upsert(ctx, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": userID, "enabled": enabled}).Info("Daily limits updated")
	return out, nil
}

// Violation kinds.
const (
	ViolationOverlap    = "overlap"
	ViolationSleepHours = "sleep_hours"
	ViolationDailyLimit = "daily_limit"
)

// Violation is one way a proposed slot breaks the user's constraints.
type Violation struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (v *Violation) Error() string {
	return v.Message
}

// ValidateConstraints checks a proposed slot against the user's scheduled
// items, sleep hours and daily limits. It returns nil or a *multierror.Error
// holding one *Violation per problem. Nothing is written.
func (s *Service) ValidateConstraints(ctx context.Context, userID int64, slot models.TimeSlot, itemType models.ItemType) error {
	if err := slot.Validate(); err != nil {
		return err
	}
	itemType = models.ItemType(strings.ToUpper(strings.TrimSpace(string(itemType))))

	var violations []*Violation
	err := s.store.ReadTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		violations, err = s.findViolations(ctx, repos, userID, slot, itemType)
		return err
	})
	if err != nil {
		return err
	}

	var result *multierror.Error
	for _, v := range violations {
		result = multierror.Append(result, v)
	}
	return result.ErrorOrNil()
}

func (s *Service) findViolations(ctx context.Context, repos repository.Repositories, userID int64, slot models.TimeSlot, itemType models.ItemType) ([]*Violation, error) {
	c, err := getOrDefaultConstraints(ctx, repos, userID)
	if err != nil {
		return nil, err
	}
	items, err := repos.Items.ListByUser(ctx, userID, repository.ItemFilters{ScheduledOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled items (user_id=%d): %w", userID, err)
	}

	var violations []*Violation

	dayStart := slot.Date()
	dayEnd := dayStart.AddDate(0, 0, 1)
	var sameTypeMinutes int
	for _, item := range items {
		if item.IsAllDay() {
			continue
		}
		occurrences, err := occurrencesAround(item, slot, dayStart, dayEnd)
		if err != nil {
			return nil, err
		}
		for _, occ := range occurrences {
			if occ.Overlaps(slot) {
				violations = append(violations, &Violation{
					Kind:    ViolationOverlap,
					Message: fmt.Sprintf("overlaps with %q (%s-%s)", item.Name, models.ClockOf(occ.Start), models.ClockOf(occ.End)),
				})
			}
			if item.Type == itemType && occ.Start.Before(dayEnd) && !occ.Start.Before(dayStart) {
				sameTypeMinutes += int(occ.Duration() / time.Minute)
			}
		}
	}

	for _, tr := range c.SleepHours {
		if sleepConflict(tr, slot) {
			violations = append(violations, &Violation{
				Kind:    ViolationSleepHours,
				Message: fmt.Sprintf("conflicts with sleep hours %s", tr),
			})
		}
	}

	if c.DailyLimitEnabled && models.IsLimitedItemType(itemType) {
		limit := c.LimitFor(itemType)
		total := sameTypeMinutes + int(slot.Duration()/time.Minute)
		if total > limit*60 {
			violations = append(violations, &Violation{
				Kind: ViolationDailyLimit,
				Message: fmt.Sprintf("daily limit for %s exceeded: %.1fh scheduled, limit %dh",
					itemType, float64(total)/60, limit),
			})
		}
	}

	for _, v := range violations {
		s.metrics.ConstraintViolations.WithLabelValues(v.Kind).Inc()
	}
	return violations, nil
}

// occurrencesAround returns the item's slots that may touch the proposed slot
// or its day. Routines are expanded into their weekly occurrences.
func occurrencesAround(item *models.CalendarItem, slot models.TimeSlot, dayStart, dayEnd time.Time) ([]models.TimeSlot, error) {
	pattern := item.Pattern()
	if item.Type != models.ItemTypeRoutine || pattern == nil {
		return []models.TimeSlot{*item.TimeSlot}, nil
	}
	from := dayStart
	if slot.Start.Before(from) {
		from = slot.Start
	}
	to := dayEnd
	if slot.End.After(to) {
		to = slot.End
	}
	occ, err := pattern.Occurrences(*item.TimeSlot, from.Add(-item.TimeSlot.Duration()), to)
	if err != nil {
		return nil, fmt.Errorf("failed to expand routine %d: %w", item.ID, err)
	}
	return occ, nil
}

// sleepConflict reports whether the slot's wall clock span intersects any
// daily occurrence of the sleep window.
func sleepConflict(tr models.TimeRange, slot models.TimeSlot) bool {
	first := slot.Date().AddDate(0, 0, -1)
	last := models.Wall(slot.End)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		start := day.Add(time.Duration(tr.Start) * time.Minute)
		end := day.Add(time.Duration(tr.End) * time.Minute)
		if tr.Wraps() {
			end = end.AddDate(0, 0, 1)
		}
		if slot.Start.Before(end) && slot.End.After(start) {
			return true
		}
	}
	return false
}

func violationError(violations []*Violation) error {
	details := make([]string, 0, len(violations))
	for _, v := range violations {
		details = append(details, v.Message)
	}
	return &apperr.Error{
		Code:    apperr.CodeConstraints,
		Message: fmt.Sprintf("%d constraint violation(s): %s", len(violations), strings.Join(details, "; ")),
		Details: details,
	}
}
