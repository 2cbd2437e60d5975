package models

import (
	"fmt"
	"time"

	"github.com/Kerhoff/planner/internal/apperr"
)

// PlanStatus is the lifecycle state of month and week plans.
type PlanStatus string

const (
	PlanStatusDraft     PlanStatus = "DRAFT"
	PlanStatusActive    PlanStatus = "ACTIVE"
	PlanStatusCompleted PlanStatus = "COMPLETED"
)

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// NewYearMonth validates month in 1..12.
func NewYearMonth(year, month int) (YearMonth, error) {
	if month < 1 || month > 12 {
		return YearMonth{}, apperr.New(apperr.CodeInvalidDate, "month must be between 1 and 12, got %d", month)
	}
	if year < 1 || year > 9999 {
		return YearMonth{}, apperr.New(apperr.CodeInvalidDate, "year out of range: %d", year)
	}
	return YearMonth{Year: year, Month: time.Month(month)}, nil
}

// YearMonthOf returns the month containing t.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// AddMonths moves n months forward (or back for negative n) with year rollover.
func (ym YearMonth) AddMonths(n int) YearMonth {
	idx := ym.Year*12 + int(ym.Month-1) + n
	y := idx / 12
	m := idx % 12
	if m < 0 {
		m += 12
		y--
	}
	return YearMonth{Year: y, Month: time.Month(m + 1)}
}

func (ym YearMonth) Prev() YearMonth { return ym.AddMonths(-1) }

func (ym YearMonth) Next() YearMonth { return ym.AddMonths(1) }

// FirstDay returns day 1 at midnight UTC.
func (ym YearMonth) FirstDay() time.Time {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
}

// LastDay returns the last day of the month at midnight UTC.
func (ym YearMonth) LastDay() time.Time {
	return ym.FirstDay().AddDate(0, 1, -1)
}

// Contains reports whether the date of t falls in the month.
func (ym YearMonth) Contains(t time.Time) bool {
	return t.Year() == ym.Year && t.Month() == ym.Month
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// WeekSpan is one generated Monday..Sunday week.
type WeekSpan struct {
	Number int
	Start  time.Time
	End    time.Time
}

// GenerateWeeks returns the full Monday..Sunday weeks whose Sunday lies in the
// month. Days before the first such Monday, and a trailing partial week, are
// not covered.
func GenerateWeeks(ym YearMonth) []WeekSpan {
	first := ym.FirstDay()
	last := ym.LastDay()

	back := (int(first.Weekday()) + 6) % 7
	weekStart := first.AddDate(0, 0, -back)

	var weeks []WeekSpan
	for n := 1; ; n++ {
		weekEnd := weekStart.AddDate(0, 0, 6)
		if weekEnd.After(last) {
			break
		}
		weeks = append(weeks, WeekSpan{Number: n, Start: weekStart, End: weekEnd})
		weekStart = weekStart.AddDate(0, 0, 7)
	}
	return weeks
}

// MonthPlan is the planning container for one user and month.
type MonthPlan struct {
	ID                   int64      `json:"id" db:"id"`
	UserID               int64      `json:"user_id" db:"user_id"`
	Year                 int        `json:"year" db:"year"`
	Month                int        `json:"month" db:"month"`
	Status               PlanStatus `json:"status" db:"status"`
	ApprovedRoutineNames []string   `json:"approved_routine_names" db:"approved_routine_names"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// Period returns the plan's month.
func (p *MonthPlan) Period() YearMonth {
	return YearMonth{Year: p.Year, Month: time.Month(p.Month)}
}

// IsRoutineApproved reports whether name is on the approved list.
func (p *MonthPlan) IsRoutineApproved(name string) bool {
	for _, n := range p.ApprovedRoutineNames {
		if n == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (p *MonthPlan) Clone() *MonthPlan {
	c := *p
	c.ApprovedRoutineNames = append([]string{}, p.ApprovedRoutineNames...)
	return &c
}

// WeekPlan is a full week inside a month plan.
type WeekPlan struct {
	ID          int64      `json:"id" db:"id"`
	MonthPlanID int64      `json:"month_plan_id" db:"month_plan_id"`
	WeekNumber  int        `json:"week_number" db:"week_number"`
	StartDate   time.Time  `json:"start_date" db:"start_date"`
	EndDate     time.Time  `json:"end_date" db:"end_date"`
	Status      PlanStatus `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Covers reports whether day falls within the week, inclusive.
func (w *WeekPlan) Covers(day time.Time) bool {
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(w.StartDate) && !d.After(w.EndDate)
}

// BigTask is a denormalized snapshot of a larger unit of work owned by an
// external project system.
type BigTask struct {
	ID                 int64     `json:"id" db:"id"`
	MonthPlanID        int64     `json:"month_plan_id" db:"month_plan_id"`
	UserID             int64     `json:"user_id" db:"user_id"`
	Name               string    `json:"name" db:"name"`
	Description        string    `json:"description,omitempty" db:"description"`
	EstimatedStartDate time.Time `json:"estimated_start_date" db:"estimated_start_date"`
	EstimatedEndDate   time.Time `json:"estimated_end_date" db:"estimated_end_date"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// Overlaps reports whether the big task's estimated dates touch the week.
func (b *BigTask) Overlaps(w *WeekPlan) bool {
	return !b.EstimatedStartDate.After(w.EndDate) && !b.EstimatedEndDate.Before(w.StartDate)
}
