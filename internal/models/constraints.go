package models

import "time"

// DefaultDailyLimitHours applies to item types without a configured ceiling.
const DefaultDailyLimitHours = 8

// LimitedItemTypes are the item types that carry a daily hour ceiling.
var LimitedItemTypes = []ItemType{ItemTypeTask, ItemTypeRoutine}

// IsLimitedItemType reports whether t may carry a daily limit.
func IsLimitedItemType(t ItemType) bool {
	for _, lt := range LimitedItemTypes {
		if lt == t {
			return true
		}
	}
	return false
}

// UserConstraints holds a user's sleep windows and daily hour limits.
type UserConstraints struct {
	UserID            int64            `json:"user_id" db:"user_id"`
	SleepHours        []TimeRange      `json:"sleep_hours"`
	DailyLimitEnabled bool             `json:"daily_limit_enabled" db:"daily_limit_enabled"`
	DailyLimits       map[ItemType]int `json:"daily_limits"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
}

// DefaultUserConstraints returns the values used until the user writes any.
func DefaultUserConstraints(userID int64) *UserConstraints {
	limits := make(map[ItemType]int, len(LimitedItemTypes))
	for _, t := range LimitedItemTypes {
		limits[t] = DefaultDailyLimitHours
	}
	return &UserConstraints{
		UserID:      userID,
		SleepHours:  []TimeRange{},
		DailyLimits: limits,
	}
}

// LimitFor returns the hour ceiling for t.
func (c *UserConstraints) LimitFor(t ItemType) int {
	if h, ok := c.DailyLimits[t]; ok {
		return h
	}
	return DefaultDailyLimitHours
}

// Clone returns a deep copy.
func (c *UserConstraints) Clone() *UserConstraints {
	out := *c
	out.SleepHours = append([]TimeRange{}, c.SleepHours...)
	out.DailyLimits = make(map[ItemType]int, len(c.DailyLimits))
	for k, v := range c.DailyLimits {
		out.DailyLimits[k] = v
	}
	return &out
}
