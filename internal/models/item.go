package models

import (
	"strings"
	"time"

	"github.com/Kerhoff/planner/internal/apperr"
)

// ItemType is the discriminant of a calendar item.
type ItemType string

const (
	ItemTypeTask      ItemType = "TASK"
	ItemTypeRoutine   ItemType = "ROUTINE"
	ItemTypeEvent     ItemType = "EVENT"
	ItemTypeMemorable ItemType = "MEMORABLE_EVENT"
)

// ParseItemType accepts the user-creatable item types.
func ParseItemType(s string) (ItemType, error) {
	switch t := ItemType(strings.ToUpper(strings.TrimSpace(s))); t {
	case ItemTypeTask, ItemTypeRoutine, ItemTypeEvent:
		return t, nil
	default:
		return "", apperr.New(apperr.CodeInvalidItemType, "invalid item type %q", s)
	}
}

// ItemStatus tracks completion.
type ItemStatus string

const (
	ItemStatusIncomplete ItemStatus = "INCOMPLETE"
	ItemStatusComplete   ItemStatus = "COMPLETE"
)

// ParseItemStatus validates a status name.
func ParseItemStatus(s string) (ItemStatus, error) {
	switch st := ItemStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case ItemStatusIncomplete, ItemStatusComplete:
		return st, nil
	default:
		return "", apperr.New(apperr.CodeInvalidInput, "invalid status %q", s)
	}
}

// TaskDetails is the Task payload.
type TaskDetails struct {
	ParentBigTaskID *int64     `json:"parent_big_task_id,omitempty"`
	EstimatedHours  *int       `json:"estimated_hours,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
}

// RoutineDetails is the Routine payload. Pattern is nil for routines created
// from a month plan's routine list and not yet scheduled.
type RoutineDetails struct {
	Pattern *RecurringPattern `json:"pattern,omitempty"`
}

// EventDetails is the Event payload.
type EventDetails struct {
	Location  string   `json:"location,omitempty"`
	IsAllDay  bool     `json:"is_all_day"`
	Attendees []string `json:"attendees,omitempty"`
}

// MemorableDetails links a generated occurrence to its definition.
type MemorableDetails struct {
	MemorableEventID int64 `json:"memorable_event_id"`
}

// CalendarItem is the shared record of every item kind. Exactly one of the
// variant payloads is set and it matches Type.
type CalendarItem struct {
	ID          int64      `json:"id" db:"id"`
	UserID      int64      `json:"user_id" db:"user_id"`
	CalendarID  int64      `json:"calendar_id" db:"calendar_id"`
	MonthPlanID *int64     `json:"month_plan_id,omitempty" db:"month_plan_id"`
	WeekPlanID  *int64     `json:"week_plan_id,omitempty" db:"week_plan_id"`
	Type        ItemType   `json:"type" db:"item_type"`
	Name        string     `json:"name" db:"name"`
	Note        string     `json:"note,omitempty" db:"note"`
	Color       string     `json:"color,omitempty" db:"color"`
	Status      ItemStatus `json:"status" db:"status"`
	TimeSlot    *TimeSlot  `json:"time_slot,omitempty"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`

	Task      *TaskDetails      `json:"task,omitempty"`
	Routine   *RoutineDetails   `json:"routine,omitempty"`
	Event     *EventDetails     `json:"event,omitempty"`
	Memorable *MemorableDetails `json:"memorable,omitempty"`
}

// IsScheduled reports whether the item has a concrete time slot.
func (i *CalendarItem) IsScheduled() bool {
	return i.TimeSlot != nil
}

// IsAllDay is true for memorable occurrences and all-day events.
func (i *CalendarItem) IsAllDay() bool {
	switch i.Type {
	case ItemTypeMemorable:
		return true
	case ItemTypeEvent:
		return i.Event != nil && i.Event.IsAllDay
	}
	return false
}

// Pattern returns the routine pattern, or nil.
func (i *CalendarItem) Pattern() *RecurringPattern {
	if i.Routine == nil {
		return nil
	}
	return i.Routine.Pattern
}

// ParentBigTaskID returns the parent big task of a derived task, or nil.
func (i *CalendarItem) ParentBigTaskID() *int64 {
	if i.Task == nil {
		return nil
	}
	return i.Task.ParentBigTaskID
}

// Clone returns a deep copy.
func (i *CalendarItem) Clone() *CalendarItem {
	c := *i
	c.MonthPlanID = cloneInt64(i.MonthPlanID)
	c.WeekPlanID = cloneInt64(i.WeekPlanID)
	if i.TimeSlot != nil {
		slot := *i.TimeSlot
		c.TimeSlot = &slot
	}
	if i.Task != nil {
		t := *i.Task
		t.ParentBigTaskID = cloneInt64(i.Task.ParentBigTaskID)
		if i.Task.EstimatedHours != nil {
			h := *i.Task.EstimatedHours
			t.EstimatedHours = &h
		}
		if i.Task.DueDate != nil {
			d := *i.Task.DueDate
			t.DueDate = &d
		}
		c.Task = &t
	}
	if i.Routine != nil {
		r := RoutineDetails{}
		if i.Routine.Pattern != nil {
			r.Pattern = &RecurringPattern{DaysOfWeek: append([]time.Weekday(nil), i.Routine.Pattern.DaysOfWeek...)}
		}
		c.Routine = &r
	}
	if i.Event != nil {
		e := *i.Event
		e.Attendees = append([]string(nil), i.Event.Attendees...)
		c.Event = &e
	}
	if i.Memorable != nil {
		m := *i.Memorable
		c.Memorable = &m
	}
	return &c
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
