package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Kerhoff/planner/internal/apperr"
	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/repository"
)

// AgendaView selects the span of an agenda query.
type AgendaView string

const (
	ViewDay   AgendaView = "DAY"
	ViewWeek  AgendaView = "WEEK"
	ViewMonth AgendaView = "MONTH"
	ViewYear  AgendaView = "YEAR"
)

// ParseAgendaView accepts view names case-insensitively.
func ParseAgendaView(s string) (AgendaView, error) {
	switch v := AgendaView(strings.ToUpper(strings.TrimSpace(s))); v {
	case ViewDay, ViewWeek, ViewMonth, ViewYear:
		return v, nil
	default:
		return "", apperr.New(apperr.CodeInvalidView, "invalid view %q (use DAY, WEEK, MONTH or YEAR)", s)
	}
}

// Range returns the half-open date span of the view around date. Weeks run
// Monday to Sunday.
func (v AgendaView) Range(date time.Time) (time.Time, time.Time) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	switch v {
	case ViewWeek:
		start := day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
		return start, start.AddDate(0, 0, 7)
	case ViewMonth:
		start := models.YearMonthOf(day).FirstDay()
		return start, start.AddDate(0, 1, 0)
	case ViewYear:
		start := time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0)
	default:
		return day, day.AddDate(0, 0, 1)
	}
}

// AgendaEntry is one concrete appearance of an item in an agenda.
type AgendaEntry struct {
	ItemID    int64             `json:"item_id"`
	Type      models.ItemType   `json:"type"`
	Name      string            `json:"name"`
	Color     string            `json:"color,omitempty"`
	Status    models.ItemStatus `json:"status"`
	TimeSlot  models.TimeSlot   `json:"time_slot"`
	AllDay    bool              `json:"all_day"`
	Recurring bool              `json:"recurring"`
}

// GetAgenda lists the user's scheduled items touching the view's span around
// date. Routines appear once per weekly occurrence.
func (s *Service) GetAgenda(ctx context.Context, userID int64, view string, date time.Time) ([]AgendaEntry, error) {
	v, err := ParseAgendaView(view)
	if err != nil {
		return nil, err
	}
	from, to := v.Range(date)

	items, err := s.store.Repos().Items.ListByUser(ctx, userID, repository.ItemFilters{ScheduledOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled items (user_id=%d): %w", userID, err)
	}

	entries := make([]AgendaEntry, 0, len(items))
	for _, item := range items {
		slot := *item.TimeSlot
		pattern := item.Pattern()
		if item.Type != models.ItemTypeRoutine || pattern == nil {
			if overlapsSpan(slot, from, to) {
				entries = append(entries, agendaEntry(item, slot, false))
			}
			continue
		}

		occurrences, err := pattern.Occurrences(slot, from.Add(-slot.Duration()), to)
		if err != nil {
			return nil, fmt.Errorf("failed to expand routine %d: %w", item.ID, err)
		}
		for _, occ := range occurrences {
			if overlapsSpan(occ, from, to) {
				entries = append(entries, agendaEntry(item, occ, true))
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].TimeSlot.Start.Equal(entries[j].TimeSlot.Start) {
			return entries[i].TimeSlot.Start.Before(entries[j].TimeSlot.Start)
		}
		return entries[i].ItemID < entries[j].ItemID
	})
	return entries, nil
}

func overlapsSpan(slot models.TimeSlot, from, to time.Time) bool {
	return slot.Start.Before(to) && slot.End.After(from)
}

func agendaEntry(item *models.CalendarItem, slot models.TimeSlot, recurring bool) AgendaEntry {
	return AgendaEntry{
		ItemID:    item.ID,
		Type:      item.Type,
		Name:      item.Name,
		Color:     item.Color,
		Status:    item.Status,
		TimeSlot:  slot,
		AllDay:    item.IsAllDay(),
		Recurring: recurring,
	}
}
