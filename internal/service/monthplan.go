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

// MonthPlanDetails is a month plan with its weeks, big tasks and events.
type MonthPlanDetails struct {
	Plan      *models.MonthPlan      `json:"plan"`
	WeekPlans []*models.WeekPlan     `json:"week_plans"`
	BigTasks  []BigTaskSummary       `json:"big_tasks"`
	Events    []*models.CalendarItem `json:"events"`
}

// BigTaskSummary reports progress on the tasks derived from a big task.
type BigTaskSummary struct {
	*models.BigTask
	TotalTasks        int `json:"total_tasks"`
	CompletedTasks    int `json:"completed_tasks"`
	CompletionPercent int `json:"completion_percent"`
}

// CreateMonthPlan creates the plan for (year, month) with its full weeks. The
// approved routine names are copied from the previous month's plan.
func (s *Service) CreateMonthPlan(ctx context.Context, userID int64, year, month int) (*MonthPlanDetails, error) {
	log := s.logger.WithFields(logrus.Fields{"user_id": userID, "year": year, "month": month})

	ym, err := models.NewYearMonth(year, month)
	if err != nil {
		log.Warn("Rejected month plan with invalid period")
		return nil, err
	}

	details := &MonthPlanDetails{BigTasks: []BigTaskSummary{}, Events: []*models.CalendarItem{}}
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Locks.LockUser(ctx, userID); err != nil {
			return err
		}

		existing, err := repos.MonthPlans.GetByPeriod(ctx, userID, ym)
		if err != nil {
			return fmt.Errorf("failed to lookup month plan %s: %w", ym, err)
		}
		if existing != nil {
			return apperr.New(apperr.CodeDuplicatePlan, "month plan for %s already exists", ym)
		}

		approved := []string{}
		prev, err := repos.MonthPlans.GetByPeriod(ctx, userID, ym.Prev())
		if err != nil {
			return fmt.Errorf("failed to lookup month plan %s: %w", ym.Prev(), err)
		}
		if prev != nil {
			approved = append(approved, prev.ApprovedRoutineNames...)
		}

		plan, err := repos.MonthPlans.Create(ctx, &models.MonthPlan{
			UserID:               userID,
			Year:                 ym.Year,
			Month:                int(ym.Month),
			Status:               models.PlanStatusDraft,
			ApprovedRoutineNames: approved,
		})
		if err != nil {
			return err
		}

		spans := models.GenerateWeeks(ym)
		weeks := make([]*models.WeekPlan, 0, len(spans))
		for _, span := range spans {
			weeks = append(weeks, &models.WeekPlan{
				MonthPlanID: plan.ID,
				WeekNumber:  span.Number,
				StartDate:   span.Start,
				EndDate:     span.End,
				Status:      models.PlanStatusDraft,
			})
		}
		if err := repos.WeekPlans.CreateBatch(ctx, weeks); err != nil {
			return err
		}

		details.Plan = plan
		details.WeekPlans = weeks
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			log.Warn("Month plan already exists")
		}
		return nil, err
	}

	s.metrics.MonthPlansCreated.Inc()
	log.WithFields(logrus.Fields{
		"month_plan_id": details.Plan.ID,
		"weeks":         len(details.WeekPlans),
		"routines":      len(details.Plan.ApprovedRoutineNames),
	}).Info("Month plan created")
	return details, nil
}

// GetMonthPlan returns the plan with its weeks, big task progress and events.
func (s *Service) GetMonthPlan(ctx context.Context, userID, monthPlanID int64) (*MonthPlanDetails, error) {
	var details *MonthPlanDetails
	err := s.store.ReadTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		plan, err := requireMonthPlan(ctx, repos, userID, monthPlanID)
		if err != nil {
			return err
		}
		details, err = loadPlanDetails(ctx, repos, plan)
		return err
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}

// GetMonthPlanByPeriod is GetMonthPlan addressed by year and month.
func (s *Service) GetMonthPlanByPeriod(ctx context.Context, userID int64, year, month int) (*MonthPlanDetails, error) {
	ym, err := models.NewYearMonth(year, month)
	if err != nil {
		return nil, err
	}

	var details *MonthPlanDetails
	err = s.store.ReadTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		plan, err := repos.MonthPlans.GetByPeriod(ctx, userID, ym)
		if err != nil {
			return fmt.Errorf("failed to lookup month plan %s: %w", ym, err)
		}
		if plan == nil {
			return apperr.New(apperr.CodeMonthPlanNotFound, "no month plan for %s", ym)
		}
		details, err = loadPlanDetails(ctx, repos, plan)
		return err
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}

func loadPlanDetails(ctx context.Context, repos repository.Repositories, plan *models.MonthPlan) (*MonthPlanDetails, error) {
	weeks, err := repos.WeekPlans.ListByMonthPlan(ctx, plan.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list week plans of plan %d: %w", plan.ID, err)
	}
	bigTasks, err := repos.BigTasks.ListByMonthPlan(ctx, plan.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list big tasks of plan %d: %w", plan.ID, err)
	}
	items, err := repos.Items.ListByMonthPlan(ctx, plan.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items of plan %d: %w", plan.ID, err)
	}

	details := &MonthPlanDetails{
		Plan:      plan,
		WeekPlans: weeks,
		BigTasks:  make([]BigTaskSummary, 0, len(bigTasks)),
		Events:    []*models.CalendarItem{},
	}
	if details.WeekPlans == nil {
		details.WeekPlans = []*models.WeekPlan{}
	}

	total := make(map[int64]int)
	done := make(map[int64]int)
	for _, item := range items {
		switch item.Type {
		case models.ItemTypeEvent:
			details.Events = append(details.Events, item)
		case models.ItemTypeTask:
			if parent := item.ParentBigTaskID(); parent != nil {
				total[*parent]++
				if item.Status == models.ItemStatusComplete {
					done[*parent]++
				}
			}
		}
	}

	for _, bt := range bigTasks {
		summary := BigTaskSummary{BigTask: bt, TotalTasks: total[bt.ID], CompletedTasks: done[bt.ID]}
		if summary.TotalTasks > 0 {
			summary.CompletionPercent = summary.CompletedTasks * 100 / summary.TotalTasks
		}
		details.BigTasks = append(details.BigTasks, summary)
	}
	return details, nil
}

// RoutineListChange reports which routine names an update added and removed.
type RoutineListChange struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// UpdateRoutineList replaces the plan's approved routine names. Routines of
// removed names are deleted from the plan; added names get an unscheduled
// routine in the user's first calendar.
func (s *Service) UpdateRoutineList(ctx context.Context, userID, monthPlanID int64, names []string) (*RoutineListChange, error) {
	normalized := normalizeNames(names)
	change := &RoutineListChange{Added: []string{}, Removed: []string{}}

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Locks.LockUser(ctx, userID); err != nil {
			return err
		}
		plan, err := requireMonthPlan(ctx, repos, userID, monthPlanID)
		if err != nil {
			return err
		}

		oldSet := toSet(plan.ApprovedRoutineNames)
		newSet := toSet(normalized)
		for _, n := range plan.ApprovedRoutineNames {
			if !newSet[n] {
				change.Removed = append(change.Removed, n)
			}
		}
		for _, n := range normalized {
			if !oldSet[n] {
				change.Added = append(change.Added, n)
			}
		}

		if len(change.Removed) > 0 {
			items, err := repos.Items.ListByMonthPlan(ctx, plan.ID)
			if err != nil {
				return fmt.Errorf("failed to list items of plan %d: %w", plan.ID, err)
			}
			removed := toSet(change.Removed)
			var ids []int64
			for _, item := range items {
				if item.Type == models.ItemTypeRoutine && removed[item.Name] {
					ids = append(ids, item.ID)
				}
			}
			if err := repos.Items.DeleteByIDs(ctx, ids); err != nil {
				return err
			}
		}

		if len(change.Added) > 0 {
			calendar, err := firstCalendar(ctx, repos, userID)
			if err != nil {
				return err
			}
			routines := make([]*models.CalendarItem, 0, len(change.Added))
			for _, n := range change.Added {
				planID := plan.ID
				routines = append(routines, &models.CalendarItem{
					UserID:      userID,
					CalendarID:  calendar.ID,
					MonthPlanID: &planID,
					Type:        models.ItemTypeRoutine,
					Name:        n,
					Status:      models.ItemStatusIncomplete,
					Routine:     &models.RoutineDetails{},
				})
			}
			if err := repos.Items.CreateBatch(ctx, routines); err != nil {
				return err
			}
		}

		plan.ApprovedRoutineNames = normalized
		_, err = repos.MonthPlans.Update(ctx, plan)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":       userID,
		"month_plan_id": monthPlanID,
		"added":         len(change.Added),
		"removed":       len(change.Removed),
	}).Info("Routine list updated")
	return change, nil
}

// DerivedTaskRequest describes one task split out of a big task.
type DerivedTaskRequest struct {
	Name           string `json:"name"`
	Note           string `json:"note,omitempty"`
	EstimatedHours *int   `json:"estimated_hours,omitempty"`
}

// AddBigTaskRequest is the snapshot of a big task from the project system.
type AddBigTaskRequest struct {
	Name               string               `json:"name"`
	Description        string               `json:"description,omitempty"`
	EstimatedStartDate time.Time            `json:"estimated_start_date"`
	EstimatedEndDate   time.Time            `json:"estimated_end_date"`
	Tasks              []DerivedTaskRequest `json:"tasks"`
}

// BigTaskResult is returned by AddBigTask.
type BigTaskResult struct {
	BigTask             *models.BigTask `json:"big_task"`
	TaskIDs             []int64         `json:"task_ids"`
	AffectedWeekPlanIDs []int64         `json:"affected_week_plan_ids"`
}

// AddBigTask stores a big task snapshot in the plan together with its derived,
// unscheduled tasks.
func (s *Service) AddBigTask(ctx context.Context, userID, monthPlanID int64, req AddBigTaskRequest) (*BigTaskResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "big task name is required")
	}
	start := *dateOf(&req.EstimatedStartDate)
	end := *dateOf(&req.EstimatedEndDate)
	if end.Before(start) {
		return nil, apperr.New(apperr.CodeInvalidDate, "estimated end date %s is before start date %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	for i, t := range req.Tasks {
		if strings.TrimSpace(t.Name) == "" {
			return nil, apperr.New(apperr.CodeInvalidInput, "task %d has no name", i+1)
		}
		if t.EstimatedHours != nil && *t.EstimatedHours <= 0 {
			return nil, apperr.New(apperr.CodeInvalidInput, "task %q has a non-positive estimate", t.Name)
		}
	}

	result := &BigTaskResult{TaskIDs: []int64{}, AffectedWeekPlanIDs: []int64{}}
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		plan, err := requireMonthPlan(ctx, repos, userID, monthPlanID)
		if err != nil {
			return err
		}
		ym := plan.Period()
		if !ym.Contains(start) || !ym.Contains(end) {
			return apperr.New(apperr.CodeInvalidDate, "big task dates must lie within %s", ym)
		}

		calendar, err := firstCalendar(ctx, repos, userID)
		if err != nil {
			return err
		}

		bt, err := repos.BigTasks.Create(ctx, &models.BigTask{
			MonthPlanID:        plan.ID,
			UserID:             userID,
			Name:               name,
			Description:        strings.TrimSpace(req.Description),
			EstimatedStartDate: start,
			EstimatedEndDate:   end,
		})
		if err != nil {
			return err
		}
		result.BigTask = bt

		tasks := make([]*models.CalendarItem, 0, len(req.Tasks))
		for _, t := range req.Tasks {
			planID, parentID, due := plan.ID, bt.ID, end
			tasks = append(tasks, &models.CalendarItem{
				UserID:      userID,
				CalendarID:  calendar.ID,
				MonthPlanID: &planID,
				Type:        models.ItemTypeTask,
				Name:        strings.TrimSpace(t.Name),
				Note:        strings.TrimSpace(t.Note),
				Status:      models.ItemStatusIncomplete,
				Task: &models.TaskDetails{
					ParentBigTaskID: &parentID,
					EstimatedHours:  t.EstimatedHours,
					DueDate:         &due,
				},
			})
		}
		if err := repos.Items.CreateBatch(ctx, tasks); err != nil {
			return err
		}
		for _, t := range tasks {
			result.TaskIDs = append(result.TaskIDs, t.ID)
		}

		weeks, err := repos.WeekPlans.ListByMonthPlan(ctx, plan.ID)
		if err != nil {
			return fmt.Errorf("failed to list week plans of plan %d: %w", plan.ID, err)
		}
		for _, w := range weeks {
			if bt.Overlaps(w) {
				result.AffectedWeekPlanIDs = append(result.AffectedWeekPlanIDs, w.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ItemsCreated.WithLabelValues(string(models.ItemTypeTask)).Add(float64(len(result.TaskIDs)))
	s.logger.WithFields(logrus.Fields{
		"user_id":       userID,
		"month_plan_id": monthPlanID,
		"big_task_id":   result.BigTask.ID,
		"tasks":         len(result.TaskIDs),
	}).Info("Big task added")
	return result, nil
}

// DeleteBigTask removes a big task and every task derived from it.
func (s *Service) DeleteBigTask(ctx context.Context, userID, bigTaskID int64) error {
	var removed int
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		bt, err := repos.BigTasks.GetByID(ctx, bigTaskID)
		if err != nil {
			return fmt.Errorf("failed to lookup big task %d: %w", bigTaskID, err)
		}
		if bt == nil || bt.UserID != userID {
			return apperr.New(apperr.CodeBigTaskNotFound, "big task %d not found", bigTaskID)
		}

		items, err := repos.Items.ListByMonthPlan(ctx, bt.MonthPlanID)
		if err != nil {
			return fmt.Errorf("failed to list items of plan %d: %w", bt.MonthPlanID, err)
		}
		var ids []int64
		for _, item := range items {
			if parent := item.ParentBigTaskID(); parent != nil && *parent == bt.ID {
				ids = append(ids, item.ID)
			}
		}
		if err := repos.Items.DeleteByIDs(ctx, ids); err != nil {
			return err
		}
		removed = len(ids)
		return repos.BigTasks.Delete(ctx, bt.ID)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":     userID,
		"big_task_id": bigTaskID,
		"tasks":       removed,
	}).Info("Big task deleted")
	return nil
}

// AddEventRequest places an event on one day of a month plan.
type AddEventRequest struct {
	CalendarID int64     `json:"calendar_id"`
	Name       string    `json:"name"`
	Note       string    `json:"note,omitempty"`
	Color      string    `json:"color,omitempty"`
	Location   string    `json:"location,omitempty"`
	Date       time.Time `json:"date"`
	StartTime  string    `json:"start_time,omitempty"`
	EndTime    string    `json:"end_time,omitempty"`
	Timezone   string    `json:"timezone,omitempty"`
	IsAllDay   bool      `json:"is_all_day,omitempty"`
	Attendees  []string  `json:"attendees,omitempty"`
}

// AddEvent creates an event inside one of the plan's weeks. The event must
// pass constraint validation.
func (s *Service) AddEvent(ctx context.Context, userID, monthPlanID int64, req AddEventRequest) (*models.CalendarItem, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "event name is required")
	}

	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = s.defaultZone
	}
	if _, err := models.LoadZone(tz); err != nil {
		return nil, err
	}

	day := *dateOf(&req.Date)
	var slot models.TimeSlot
	if req.IsAllDay {
		slot = models.AllDaySlot(day, tz)
	} else {
		start, err := models.ParseClock(req.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := models.ParseClock(req.EndTime)
		if err != nil {
			return nil, err
		}
		if end <= start {
			return nil, apperr.New(apperr.CodeInvalidTimeRange, "end time %s must be after start time %s", end, start)
		}
		slot = models.TimeSlot{
			Start:    day.Add(time.Duration(start) * time.Minute),
			End:      day.Add(time.Duration(end) * time.Minute),
			Timezone: tz,
		}
	}

	owner, err := s.owners.IsCalendarOwner(ctx, userID, req.CalendarID)
	if err != nil {
		return nil, fmt.Errorf("failed to check calendar ownership: %w", err)
	}
	if !owner {
		return nil, errCalendarNotFound(req.CalendarID)
	}

	var item *models.CalendarItem
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		plan, err := requireMonthPlan(ctx, repos, userID, monthPlanID)
		if err != nil {
			return err
		}
		if !plan.Period().Contains(day) {
			return apperr.New(apperr.CodeInvalidDate, "date %s is outside %s", day.Format(time.DateOnly), plan.Period())
		}

		weeks, err := repos.WeekPlans.ListByMonthPlan(ctx, plan.ID)
		if err != nil {
			return fmt.Errorf("failed to list week plans of plan %d: %w", plan.ID, err)
		}
		var week *models.WeekPlan
		for _, w := range weeks {
			if w.Covers(day) {
				week = w
				break
			}
		}
		if week == nil {
			return apperr.New(apperr.CodeWeekPlanNotFound, "no week plan covers %s", day.Format(time.DateOnly))
		}

		if !req.IsAllDay {
			violations, err := s.findViolations(ctx, repos, userID, slot, models.ItemTypeEvent)
			if err != nil {
				return err
			}
			if len(violations) > 0 {
				return violationError(violations)
			}
		}

		planID, weekID := plan.ID, week.ID
		item = &models.CalendarItem{
			UserID:      userID,
			CalendarID:  req.CalendarID,
			MonthPlanID: &planID,
			WeekPlanID:  &weekID,
			Type:        models.ItemTypeEvent,
			Name:        name,
			Note:        strings.TrimSpace(req.Note),
			Color:       strings.TrimSpace(req.Color),
			Status:      models.ItemStatusIncomplete,
			TimeSlot:    &slot,
			Event: &models.EventDetails{
				Location:  strings.TrimSpace(req.Location),
				IsAllDay:  req.IsAllDay,
				Attendees: append([]string{}, req.Attendees...),
			},
		}
		_, err = repos.Items.Create(ctx, item)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ItemsCreated.WithLabelValues(string(models.ItemTypeEvent)).Inc()
	s.logger.WithFields(logrus.Fields{
		"user_id":       userID,
		"month_plan_id": monthPlanID,
		"item_id":       item.ID,
	}).Info("Event added to month plan")
	return item, nil
}

func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
