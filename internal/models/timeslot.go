package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Kerhoff/planner/internal/apperr"
)

// Wall drops the location of t and keeps its clock reading. Time slots store
// wall-clock values; the zone they are read in is carried separately.
func Wall(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// LoadZone resolves an IANA zone identifier. The empty string means UTC.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	if name == "Local" {
		return nil, apperr.New(apperr.CodeInvalidTimezone, "unknown timezone %q", name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, apperr.New(apperr.CodeInvalidTimezone, "unknown timezone %q", name)
	}
	return loc, nil
}

// TimeSlot is a concrete start/end pair in a named timezone.
type TimeSlot struct {
	Start    time.Time `json:"start_time"`
	End      time.Time `json:"end_time"`
	Timezone string    `json:"timezone"`
}

// NewTimeSlot builds a slot from the clock readings of start and end.
func NewTimeSlot(start, end time.Time, timezone string) TimeSlot {
	return TimeSlot{Start: Wall(start), End: Wall(end), Timezone: timezone}
}

// AllDaySlot spans [00:00 that day, 00:00 next day).
func AllDaySlot(day time.Time, timezone string) TimeSlot {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return TimeSlot{Start: start, End: start.AddDate(0, 0, 1), Timezone: timezone}
}

// Validate checks end > start and that the zone label resolves.
func (s TimeSlot) Validate() error {
	if !s.End.After(s.Start) {
		return apperr.New(apperr.CodeInvalidTimeSlot, "end time %s must be after start time %s",
			s.End.Format(time.DateTime), s.Start.Format(time.DateTime))
	}
	if _, err := LoadZone(s.Timezone); err != nil {
		return apperr.New(apperr.CodeInvalidTimeSlot, "unknown timezone %q", s.Timezone)
	}
	return nil
}

// Duration returns the wall-clock length of the slot.
func (s TimeSlot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Instants returns the absolute start and end instants.
func (s TimeSlot) Instants() (time.Time, time.Time, error) {
	loc, err := LoadZone(s.Timezone)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return atZone(s.Start, loc), atZone(s.End, loc), nil
}

// Reinterpret treats the stored clock readings as values in from and returns
// the slot re-expressed in to, denoting the same instants. It fails with
// InvalidTimeSlot when a clock reading in to is ambiguous or skipped, so the
// converted slot would resolve to different instants.
func (s TimeSlot) Reinterpret(from, to *time.Location, toName string) (TimeSlot, error) {
	start, end := atZone(s.Start, from), atZone(s.End, from)
	out := TimeSlot{
		Start:    Wall(start.In(to)),
		End:      Wall(end.In(to)),
		Timezone: toName,
	}
	if !out.End.After(out.Start) || !atZone(out.Start, to).Equal(start) || !atZone(out.End, to).Equal(end) {
		return TimeSlot{}, apperr.New(apperr.CodeInvalidTimeSlot, "slot %s - %s (%s) has no unambiguous wall clock in %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339), s.Timezone, toName)
	}
	return out, nil
}

// ConvertZone re-expresses the slot in newTZ at the same absolute instants.
func (s TimeSlot) ConvertZone(newTZ string) (TimeSlot, error) {
	from, err := LoadZone(s.Timezone)
	if err != nil {
		return TimeSlot{}, err
	}
	to, err := LoadZone(newTZ)
	if err != nil {
		return TimeSlot{}, err
	}
	return s.Reinterpret(from, to, newTZ)
}

// Overlaps reports whether two slots share any instant. Slots whose zone
// cannot be resolved are compared by clock reading.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	aStart, aEnd, errA := s.Instants()
	bStart, bEnd, errB := other.Instants()
	if errA != nil || errB != nil {
		aStart, aEnd, bStart, bEnd = s.Start, s.End, other.Start, other.End
	}
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Date returns the calendar day the slot starts on.
func (s TimeSlot) Date() time.Time {
	return time.Date(s.Start.Year(), s.Start.Month(), s.Start.Day(), 0, 0, 0, 0, time.UTC)
}

func atZone(wall time.Time, loc *time.Location) time.Time {
	return time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), loc)
}

// ClockTime is a wall-clock time of day in minutes since midnight.
type ClockTime int

// ParseClock parses the fixed HH:mm format.
func ParseClock(s string) (ClockTime, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, apperr.New(apperr.CodeInvalidTimeFormat, "invalid time %q (HH:mm required)", s)
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, apperr.New(apperr.CodeInvalidTimeFormat, "invalid time %q (HH:mm required)", s)
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

// ClockOf returns the time of day of t.
func ClockOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// TimeRange is a daily window such as sleep hours. End before Start means the
// window wraps past midnight.
type TimeRange struct {
	Start ClockTime `json:"start_time"`
	End   ClockTime `json:"end_time"`
}

// ParseTimeRange parses an HH:mm pair and rejects empty windows.
func ParseTimeRange(start, end string) (TimeRange, error) {
	s, err := ParseClock(start)
	if err != nil {
		return TimeRange{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return TimeRange{}, err
	}
	if s == e {
		return TimeRange{}, apperr.New(apperr.CodeInvalidTimeRange, "start time cannot equal end time (%s)", start)
	}
	return TimeRange{Start: s, End: e}, nil
}

// Wraps reports whether the window crosses midnight.
func (r TimeRange) Wraps() bool {
	return r.Start > r.End
}

// Contains reports whether t lies in [Start, End), wrap aware.
func (r TimeRange) Contains(t ClockTime) bool {
	if r.Wraps() {
		return t >= r.Start || t < r.End
	}
	return t >= r.Start && t < r.End
}

// DurationMinutes returns the window length.
func (r TimeRange) DurationMinutes() int {
	if r.Wraps() {
		return 24*60 - int(r.Start) + int(r.End)
	}
	return int(r.End - r.Start)
}

// Overlaps reports whether the two daily windows share any minute.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Contains(other.Start) || other.Contains(r.Start)
}

func (r TimeRange) String() string {
	return r.Start.String() + "-" + r.End.String()
}
