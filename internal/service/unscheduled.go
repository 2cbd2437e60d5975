package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/repository"
)

// unscheduledWindowMonths is how many months, starting at the current one,
// the resolver looks at.
const unscheduledWindowMonths = 6

// UnscheduledMonthGroup collects what is still to be placed in one month.
type UnscheduledMonthGroup struct {
	Year        int                  `json:"year"`
	Month       int                  `json:"month"`
	MonthPlanID int64                `json:"month_plan_id"`
	Routines    []UnscheduledRoutine `json:"routines"`
	Tasks       []BigTaskGroup       `json:"tasks"`
}

// UnscheduledRoutine is a routine of the plan that has no slot yet.
type UnscheduledRoutine struct {
	ID                   int64           `json:"id"`
	Name                 string          `json:"name"`
	Note                 string          `json:"note,omitempty"`
	Color                string          `json:"color,omitempty"`
	CanUsePreviousTiming bool            `json:"can_use_previous_timing"`
	PreviousTiming       *PreviousTiming `json:"previous_timing,omitempty"`
}

// PreviousTiming is the slot a same-named routine had last month.
type PreviousTiming struct {
	StartTime  string   `json:"start_time"`
	EndTime    string   `json:"end_time"`
	Timezone   string   `json:"timezone"`
	DaysOfWeek []string `json:"days_of_week"`
}

// BigTaskGroup lists the unscheduled derived tasks of one big task.
type BigTaskGroup struct {
	BigTaskID          int64              `json:"big_task_id"`
	Name               string             `json:"name"`
	EstimatedStartDate time.Time          `json:"estimated_start_date"`
	EstimatedEndDate   time.Time          `json:"estimated_end_date"`
	SuggestedSubtasks  []SuggestedSubtask `json:"suggested_subtasks"`
}

// SuggestedSubtask is a derived task waiting for a slot.
type SuggestedSubtask struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description,omitempty"`
	EstimatedHours *string `json:"estimated_hours"`
}

// GetUnscheduledItems groups the user's unscheduled routines and derived
// tasks by month for the current month and the five after it. Months
// without a plan are left out.
func (s *Service) GetUnscheduledItems(ctx context.Context, userID int64) ([]UnscheduledMonthGroup, error) {
	current := models.YearMonthOf(s.now())

	groups := make([]UnscheduledMonthGroup, 0, unscheduledWindowMonths)
	err := s.store.ReadTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		for offset := 0; offset < unscheduledWindowMonths; offset++ {
			ym := current.AddMonths(offset)
			plan, err := repos.MonthPlans.GetByPeriod(ctx, userID, ym)
			if err != nil {
				return fmt.Errorf("failed to lookup month plan (user_id=%d, period=%s): %w", userID, ym, err)
			}
			if plan == nil {
				continue
			}

			items, err := repos.Items.ListByMonthPlan(ctx, plan.ID)
			if err != nil {
				return fmt.Errorf("failed to list month plan items (month_plan_id=%d): %w", plan.ID, err)
			}

			routines, err := unscheduledRoutines(ctx, repos, userID, plan, items)
			if err != nil {
				return err
			}
			tasks, err := bigTaskGroups(ctx, repos, plan, items)
			if err != nil {
				return err
			}

			groups = append(groups, UnscheduledMonthGroup{
				Year:        ym.Year,
				Month:       int(ym.Month),
				MonthPlanID: plan.ID,
				Routines:    routines,
				Tasks:       tasks,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func unscheduledRoutines(ctx context.Context, repos repository.Repositories, userID int64, plan *models.MonthPlan, items []*models.CalendarItem) ([]UnscheduledRoutine, error) {
	out := []UnscheduledRoutine{}
	if len(plan.ApprovedRoutineNames) == 0 {
		return out, nil
	}

	scheduled := make(map[string]bool)
	for _, item := range items {
		if item.Type == models.ItemTypeRoutine && item.IsScheduled() {
			scheduled[item.Name] = true
		}
	}

	var previous map[string]*models.CalendarItem
	for _, item := range items {
		if item.Type != models.ItemTypeRoutine || item.IsScheduled() || scheduled[item.Name] {
			continue
		}

		if previous == nil {
			var err error
			previous, err = previousRoutines(ctx, repos, userID, plan.Period().Prev())
			if err != nil {
				return nil, err
			}
		}

		r := UnscheduledRoutine{ID: item.ID, Name: item.Name, Note: item.Note, Color: item.Color}
		if prev, ok := previous[item.Name]; ok {
			r.CanUsePreviousTiming = true
			r.PreviousTiming = &PreviousTiming{
				StartTime:  models.ClockOf(prev.TimeSlot.Start).String(),
				EndTime:    models.ClockOf(prev.TimeSlot.End).String(),
				Timezone:   prev.TimeSlot.Timezone,
				DaysOfWeek: prev.Pattern().DayNames(),
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// previousRoutines maps routine names to the first scheduled routine with a
// pattern in the plan of ym. The map is empty, never nil, when there is none.
func previousRoutines(ctx context.Context, repos repository.Repositories, userID int64, ym models.YearMonth) (map[string]*models.CalendarItem, error) {
	out := make(map[string]*models.CalendarItem)
	plan, err := repos.MonthPlans.GetByPeriod(ctx, userID, ym)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup month plan (user_id=%d, period=%s): %w", userID, ym, err)
	}
	if plan == nil {
		return out, nil
	}
	items, err := repos.Items.ListByMonthPlan(ctx, plan.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list month plan items (month_plan_id=%d): %w", plan.ID, err)
	}
	for _, item := range items {
		if item.Type != models.ItemTypeRoutine || !item.IsScheduled() || item.Pattern() == nil {
			continue
		}
		if _, seen := out[item.Name]; !seen {
			out[item.Name] = item
		}
	}
	return out, nil
}

func bigTaskGroups(ctx context.Context, repos repository.Repositories, plan *models.MonthPlan, items []*models.CalendarItem) ([]BigTaskGroup, error) {
	bigTasks, err := repos.BigTasks.ListByMonthPlan(ctx, plan.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list big tasks (month_plan_id=%d): %w", plan.ID, err)
	}

	byParent := make(map[int64][]SuggestedSubtask)
	for _, item := range items {
		parent := item.ParentBigTaskID()
		if item.Type != models.ItemTypeTask || parent == nil || item.IsScheduled() {
			continue
		}
		byParent[*parent] = append(byParent[*parent], SuggestedSubtask{
			ID:             item.ID,
			Name:           item.Name,
			Description:    item.Note,
			EstimatedHours: hoursLabel(item.Task.EstimatedHours),
		})
	}

	groups := make([]BigTaskGroup, 0, len(bigTasks))
	for _, bt := range bigTasks {
		subtasks := byParent[bt.ID]
		if subtasks == nil {
			subtasks = []SuggestedSubtask{}
		}
		groups = append(groups, BigTaskGroup{
			BigTaskID:          bt.ID,
			Name:               bt.Name,
			EstimatedStartDate: bt.EstimatedStartDate,
			EstimatedEndDate:   bt.EstimatedEndDate,
			SuggestedSubtasks:  subtasks,
		})
	}
	return groups, nil
}

func hoursLabel(hours *int) *string {
	if hours == nil {
		return nil
	}
	label := strconv.Itoa(*hours) + "h"
	return &label
}
