package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Kerhoff/planner/internal/apperr"
	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/repository"
)

type calendarRepository struct{ s *session }

func (r *calendarRepository) Create(_ context.Context, calendar *models.Calendar) (*models.Calendar, error) {
	err := r.s.do(func(d *data) error {
		now := r.s.now()
		calendar.ID = d.id()
		calendar.CreatedAt = now
		calendar.UpdatedAt = now
		stored := *calendar
		d.calendars[calendar.ID] = &stored
		return nil
	})
	return calendar, err
}

func (r *calendarRepository) GetByID(_ context.Context, id int64) (*models.Calendar, error) {
	var out *models.Calendar
	err := r.s.do(func(d *data) error {
		if c, ok := d.calendars[id]; ok {
			cp := *c
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *calendarRepository) ListByUser(_ context.Context, userID int64) ([]*models.Calendar, error) {
	var out []*models.Calendar
	err := r.s.do(func(d *data) error {
		for _, c := range d.calendars {
			if c.UserID == userID {
				cp := *c
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

type itemRepository struct{ s *session }

func (r *itemRepository) Create(_ context.Context, item *models.CalendarItem) (*models.CalendarItem, error) {
	err := r.s.do(func(d *data) error {
		insertItem(d, item, r.s.now)
		return nil
	})
	return item, err
}

func insertItem(d *data, item *models.CalendarItem, now func() time.Time) {
	t := now()
	item.ID = d.id()
	item.CreatedAt = t
	item.UpdatedAt = t
	d.items[item.ID] = item.Clone()
}

func (r *itemRepository) CreateBatch(_ context.Context, items []*models.CalendarItem) error {
	return r.s.do(func(d *data) error {
		for _, item := range items {
			insertItem(d, item, r.s.now)
		}
		return nil
	})
}

func (r *itemRepository) GetByID(_ context.Context, id int64) (*models.CalendarItem, error) {
	var out *models.CalendarItem
	err := r.s.do(func(d *data) error {
		if item, ok := d.items[id]; ok {
			out = item.Clone()
		}
		return nil
	})
	return out, err
}

func (r *itemRepository) ListByUser(_ context.Context, userID int64, filters repository.ItemFilters) ([]*models.CalendarItem, error) {
	out, err := r.filter(func(item *models.CalendarItem) bool {
		if item.UserID != userID {
			return false
		}
		if filters.Type != nil && item.Type != *filters.Type {
			return false
		}
		if filters.CalendarID != nil && item.CalendarID != *filters.CalendarID {
			return false
		}
		return !filters.ScheduledOnly || item.TimeSlot != nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].TimeSlot, out[j].TimeSlot
		switch {
		case a != nil && b != nil && !a.Start.Equal(b.Start):
			return a.Start.Before(b.Start)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *itemRepository) ListByMonthPlan(_ context.Context, monthPlanID int64) ([]*models.CalendarItem, error) {
	out, err := r.filter(func(item *models.CalendarItem) bool {
		return item.MonthPlanID != nil && *item.MonthPlanID == monthPlanID
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *itemRepository) filter(keep func(*models.CalendarItem) bool) ([]*models.CalendarItem, error) {
	var out []*models.CalendarItem
	err := r.s.do(func(d *data) error {
		for _, item := range d.items {
			if keep(item) {
				out = append(out, item.Clone())
			}
		}
		return nil
	})
	return out, err
}

func (r *itemRepository) Update(_ context.Context, item *models.CalendarItem) (*models.CalendarItem, error) {
	err := r.s.do(func(d *data) error {
		stored, ok := d.items[item.ID]
		if !ok {
			return fmt.Errorf("calendar item with ID %d not found", item.ID)
		}
		item.UpdatedAt = r.s.now()
		updated := item.Clone()
		// ownership and linkage are fixed at creation
		updated.UserID = stored.UserID
		updated.CalendarID = stored.CalendarID
		updated.MonthPlanID = stored.MonthPlanID
		updated.Type = stored.Type
		updated.CreatedAt = stored.CreatedAt
		d.items[item.ID] = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *itemRepository) UpdateTimeSlots(_ context.Context, items []*models.CalendarItem) error {
	return r.s.do(func(d *data) error {
		now := r.s.now()
		for _, item := range items {
			stored, ok := d.items[item.ID]
			if !ok {
				return fmt.Errorf("calendar item with ID %d not found", item.ID)
			}
			if item.TimeSlot == nil {
				stored.TimeSlot = nil
			} else {
				slot := *item.TimeSlot
				stored.TimeSlot = &slot
			}
			stored.UpdatedAt = now
			item.UpdatedAt = now
		}
		return nil
	})
}

func (r *itemRepository) Delete(_ context.Context, id int64) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.items[id]; !ok {
			return fmt.Errorf("calendar item with ID %d not found", id)
		}
		delete(d.items, id)
		return nil
	})
}

func (r *itemRepository) DeleteByIDs(_ context.Context, ids []int64) error {
	return r.s.do(func(d *data) error {
		for _, id := range ids {
			delete(d.items, id)
		}
		return nil
	})
}

func (r *itemRepository) DeleteByMemorableEventIDs(_ context.Context, memorableEventIDs []int64) error {
	targets := make(map[int64]bool, len(memorableEventIDs))
	for _, id := range memorableEventIDs {
		targets[id] = true
	}
	return r.s.do(func(d *data) error {
		for id, item := range d.items {
			if item.Memorable != nil && targets[item.Memorable.MemorableEventID] {
				delete(d.items, id)
			}
		}
		return nil
	})
}

type monthPlanRepository struct{ s *session }

func (r *monthPlanRepository) Create(_ context.Context, plan *models.MonthPlan) (*models.MonthPlan, error) {
	err := r.s.do(func(d *data) error {
		for _, p := range d.monthPlans {
			if p.UserID == plan.UserID && p.Year == plan.Year && p.Month == plan.Month {
				return apperr.New(apperr.CodeDuplicatePlan, "month plan for %d-%02d already exists", plan.Year, plan.Month)
			}
		}
		now := r.s.now()
		plan.ID = d.id()
		plan.CreatedAt = now
		plan.UpdatedAt = now
		if plan.ApprovedRoutineNames == nil {
			plan.ApprovedRoutineNames = []string{}
		}
		d.monthPlans[plan.ID] = plan.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *monthPlanRepository) GetByID(_ context.Context, id int64) (*models.MonthPlan, error) {
	var out *models.MonthPlan
	err := r.s.do(func(d *data) error {
		if p, ok := d.monthPlans[id]; ok {
			out = p.Clone()
		}
		return nil
	})
	return out, err
}

func (r *monthPlanRepository) GetByPeriod(_ context.Context, userID int64, ym models.YearMonth) (*models.MonthPlan, error) {
	var out *models.MonthPlan
	err := r.s.do(func(d *data) error {
		for _, p := range d.monthPlans {
			if p.UserID == userID && p.Year == ym.Year && p.Month == int(ym.Month) {
				out = p.Clone()
				break
			}
		}
		return nil
	})
	return out, err
}

func (r *monthPlanRepository) Update(_ context.Context, plan *models.MonthPlan) (*models.MonthPlan, error) {
	err := r.s.do(func(d *data) error {
		stored, ok := d.monthPlans[plan.ID]
		if !ok {
			return fmt.Errorf("month plan with ID %d not found", plan.ID)
		}
		plan.UpdatedAt = r.s.now()
		stored.Status = plan.Status
		stored.ApprovedRoutineNames = append([]string{}, plan.ApprovedRoutineNames...)
		stored.UpdatedAt = plan.UpdatedAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

type weekPlanRepository struct{ s *session }

func (r *weekPlanRepository) CreateBatch(_ context.Context, weeks []*models.WeekPlan) error {
	return r.s.do(func(d *data) error {
		now := r.s.now()
		for _, w := range weeks {
			w.ID = d.id()
			w.CreatedAt = now
			stored := *w
			d.weekPlans[w.ID] = &stored
		}
		return nil
	})
}

func (r *weekPlanRepository) ListByMonthPlan(_ context.Context, monthPlanID int64) ([]*models.WeekPlan, error) {
	var out []*models.WeekPlan
	err := r.s.do(func(d *data) error {
		for _, w := range d.weekPlans {
			if w.MonthPlanID == monthPlanID {
				cp := *w
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].WeekNumber < out[j].WeekNumber })
	return out, err
}

type bigTaskRepository struct{ s *session }

func (r *bigTaskRepository) Create(_ context.Context, task *models.BigTask) (*models.BigTask, error) {
	err := r.s.do(func(d *data) error {
		task.ID = d.id()
		task.CreatedAt = r.s.now()
		stored := *task
		d.bigTasks[task.ID] = &stored
		return nil
	})
	return task, err
}

func (r *bigTaskRepository) GetByID(_ context.Context, id int64) (*models.BigTask, error) {
	var out *models.BigTask
	err := r.s.do(func(d *data) error {
		if b, ok := d.bigTasks[id]; ok {
			cp := *b
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *bigTaskRepository) ListByMonthPlan(_ context.Context, monthPlanID int64) ([]*models.BigTask, error) {
	var out []*models.BigTask
	err := r.s.do(func(d *data) error {
		for _, b := range d.bigTasks {
			if b.MonthPlanID == monthPlanID {
				cp := *b
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EstimatedStartDate.Equal(out[j].EstimatedStartDate) {
			return out[i].EstimatedStartDate.Before(out[j].EstimatedStartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *bigTaskRepository) Delete(_ context.Context, id int64) error {
	return r.s.do(func(d *data) error {
		if _, ok := d.bigTasks[id]; !ok {
			return fmt.Errorf("big task with ID %d not found", id)
		}
		delete(d.bigTasks, id)
		return nil
	})
}

type memorableRepository struct{ s *session }

func (r *memorableRepository) ListByUser(_ context.Context, userID int64) ([]*models.MemorableEvent, error) {
	var out []*models.MemorableEvent
	err := r.s.do(func(d *data) error {
		for _, m := range d.memorables {
			if m.UserID == userID {
				cp := *m
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.ID < b.ID
	})
	return out, err
}

func (r *memorableRepository) CreateBatch(_ context.Context, events []*models.MemorableEvent) error {
	return r.s.do(func(d *data) error {
		now := r.s.now()
		for _, m := range events {
			m.ID = d.id()
			m.CreatedAt = now
			stored := *m
			d.memorables[m.ID] = &stored
		}
		return nil
	})
}

func (r *memorableRepository) DeleteByIDs(_ context.Context, ids []int64) error {
	return r.s.do(func(d *data) error {
		for _, id := range ids {
			delete(d.memorables, id)
		}
		return nil
	})
}

func (r *memorableRepository) ListUserIDs(_ context.Context) ([]int64, error) {
	seen := make(map[int64]bool)
	var out []int64
	err := r.s.do(func(d *data) error {
		for _, m := range d.memorables {
			if !seen[m.UserID] {
				seen[m.UserID] = true
				out = append(out, m.UserID)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, err
}

type constraintsRepository struct{ s *session }

func (r *constraintsRepository) GetByUser(_ context.Context, userID int64) (*models.UserConstraints, error) {
	var out *models.UserConstraints
	err := r.s.do(func(d *data) error {
		if c, ok := d.constraints[userID]; ok {
			out = c.Clone()
		}
		return nil
	})
	return out, err
}

func (r *constraintsRepository) Upsert(_ context.Context, c *models.UserConstraints) (*models.UserConstraints, error) {
	err := r.s.do(func(d *data) error {
		c.UpdatedAt = r.s.now()
		d.constraints[c.UserID] = c.Clone()
		return nil
	})
	return c, err
}
