package models

import "time"

// CalendarType classifies a calendar
type CalendarType string

const (
	CalendarTypePersonal CalendarType = "PERSONAL"
	CalendarTypeShared   CalendarType = "SHARED"
)

// DefaultCalendarName is given to the calendar provisioned on activation
const DefaultCalendarName = "My Calendar"

// Calendar represents a named grouping of calendar items owned by one user
type Calendar struct {
	ID          int64        `json:"id" db:"id"`
	UserID      int64        `json:"user_id" db:"user_id"`
	Name        string       `json:"name" db:"name"`
	Description string       `json:"description" db:"description"`
	Type        CalendarType `json:"type" db:"calendar_type"`
	IsVisible   bool         `json:"is_visible" db:"is_visible"`
	IsPinned    bool         `json:"is_pinned" db:"is_pinned"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// IsPersonal returns true for the user's personal calendar
func (c *Calendar) IsPersonal() bool {
	return c.Type == CalendarTypePersonal
}
