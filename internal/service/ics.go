package service

import (
	"context"
	"fmt"

	ical "github.com/arran4/golang-ical"

	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/repository"
)

const icsProductID = "-//Kerhoff//planner//EN"

// ExportICS renders every scheduled item of the user as an iCalendar feed.
// Routines carry their weekly RRULE; all-day items use DATE values.
func (s *Service) ExportICS(ctx context.Context, userID int64) (string, error) {
	items, err := s.store.Repos().Items.ListByUser(ctx, userID, repository.ItemFilters{ScheduledOnly: true})
	if err != nil {
		return "", fmt.Errorf("failed to list scheduled items (user_id=%d): %w", userID, err)
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(icsProductID)

	stamp := s.now().UTC()
	for _, item := range items {
		start, end, err := item.TimeSlot.Instants()
		if err != nil {
			s.logger.WithError(err).WithField("item_id", item.ID).Warn("Skipping item with unresolvable timezone in export")
			continue
		}

		event := cal.AddEvent(fmt.Sprintf("item-%d@planner", item.ID))
		event.SetDtStampTime(stamp)
		event.SetModifiedAt(item.UpdatedAt.UTC())
		event.SetSummary(item.Name)
		if item.Note != "" {
			event.SetDescription(item.Note)
		}

		if item.IsAllDay() {
			event.SetAllDayStartAt(item.TimeSlot.Start)
			event.SetAllDayEndAt(item.TimeSlot.End)
		} else {
			event.SetStartAt(start)
			event.SetEndAt(end)
		}

		switch item.Type {
		case models.ItemTypeRoutine:
			if p := item.Pattern(); p != nil {
				event.SetProperty(ical.ComponentPropertyRrule, p.RRule())
			}
		case models.ItemTypeEvent:
			if item.Event.Location != "" {
				event.SetLocation(item.Event.Location)
			}
			for _, a := range item.Event.Attendees {
				event.AddAttendee(a)
			}
		}
	}

	return cal.Serialize(), nil
}
