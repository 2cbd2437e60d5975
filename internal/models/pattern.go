package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// RecurringPattern is a weekly day-of-week recurrence.
type RecurringPattern struct {
	DaysOfWeek []time.Weekday `json:"days_of_week"`
}

var weekdayNames = map[string]time.Weekday{
	"MONDAY":    time.Monday,
	"TUESDAY":   time.Tuesday,
	"WEDNESDAY": time.Wednesday,
	"THURSDAY":  time.Thursday,
	"FRIDAY":    time.Friday,
	"SATURDAY":  time.Saturday,
	"SUNDAY":    time.Sunday,
}

var rruleDays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

var dayCodes = map[time.Weekday]string{
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
	time.Sunday:    "SU",
}

// ParseRecurringPattern builds a pattern from day names. Unknown names are
// dropped; an empty result falls back to Monday.
func ParseRecurringPattern(names []string) *RecurringPattern {
	seen := make(map[time.Weekday]bool)
	days := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		day, ok := weekdayNames[strings.ToUpper(strings.TrimSpace(name))]
		if !ok || seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	if len(days) == 0 {
		days = append(days, time.Monday)
	}
	sortWeekdays(days)
	return &RecurringPattern{DaysOfWeek: days}
}

// DayNames returns the upper-case day names, Monday first.
func (p *RecurringPattern) DayNames() []string {
	names := make([]string, 0, len(p.DaysOfWeek))
	for _, d := range p.DaysOfWeek {
		names = append(names, strings.ToUpper(d.String()))
	}
	return names
}

// Includes reports whether the pattern fires on day.
func (p *RecurringPattern) Includes(day time.Weekday) bool {
	for _, d := range p.DaysOfWeek {
		if d == day {
			return true
		}
	}
	return false
}

// RRule renders the pattern as an iCalendar recurrence rule.
func (p *RecurringPattern) RRule() string {
	codes := make([]string, 0, len(p.DaysOfWeek))
	for _, d := range p.DaysOfWeek {
		codes = append(codes, dayCodes[d])
	}
	return "FREQ=WEEKLY;BYDAY=" + strings.Join(codes, ",")
}

// Occurrences expands a routine scheduled at slot into the weekly occurrences
// starting within [from, to). Every occurrence keeps the slot's duration and zone.
func (p *RecurringPattern) Occurrences(slot TimeSlot, from, to time.Time) ([]TimeSlot, error) {
	byDay := make([]rrule.Weekday, 0, len(p.DaysOfWeek))
	for _, d := range p.DaysOfWeek {
		byDay = append(byDay, rruleDays[d])
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   slot.Start,
		Byweekday: byDay,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build recurrence rule: %w", err)
	}

	dur := slot.Duration()
	var out []TimeSlot
	for _, start := range r.Between(Wall(from), Wall(to), true) {
		if !start.Before(Wall(to)) {
			continue
		}
		out = append(out, TimeSlot{Start: start, End: start.Add(dur), Timezone: slot.Timezone})
	}
	return out, nil
}

func sortWeekdays(days []time.Weekday) {
	// Monday first, Sunday last
	sort.Slice(days, func(i, j int) bool {
		return (days[i]+6)%7 < (days[j]+6)%7
	})
}
