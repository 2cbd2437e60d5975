package models

import (
	"time"

	"github.com/Kerhoff/planner/internal/apperr"
)

const (
	// BirthdayTitle is reserved for the birthday definition.
	BirthdayTitle = "My Birthday"
	// MemorableColor is the display color of generated occurrences.
	MemorableColor = "#FF6B9D"
	// MemorableHorizonYears is how many yearly occurrences are generated.
	MemorableHorizonYears = 5
)

// MemorableEvent is a user-defined annual date.
type MemorableEvent struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Day       int       `json:"day" db:"day"`
	Month     int       `json:"month" db:"month"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ValidateDayMonth rejects dates that exist in no year. Feb 29 is accepted.
func ValidateDayMonth(day, month int) error {
	if month < 1 || month > 12 {
		return apperr.New(apperr.CodeInvalidDate, "month must be between 1 and 12, got %d", month)
	}
	// 2024 is a leap year, so this bounds Feb at 29
	maxDay := YearMonth{Year: 2024, Month: time.Month(month)}.LastDay().Day()
	if day < 1 || day > maxDay {
		return apperr.New(apperr.CodeInvalidDate, "day %d is not valid for month %d", day, month)
	}
	return nil
}

// OccurrenceDate returns the event's date in year. Feb 29 falls on Feb 28 in
// non-leap years.
func (e *MemorableEvent) OccurrenceDate(year int) time.Time {
	last := YearMonth{Year: year, Month: time.Month(e.Month)}.LastDay().Day()
	day := e.Day
	if day > last {
		day = last
	}
	return time.Date(year, time.Month(e.Month), day, 0, 0, 0, 0, time.UTC)
}
