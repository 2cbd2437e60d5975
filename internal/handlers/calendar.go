package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/service"
)

// typeEmoji returns an emoji for the item type.
func typeEmoji(t models.ItemType) string {
	switch t {
	case models.ItemTypeTask:
		return "✅"
	case models.ItemTypeRoutine:
		return "🔁"
	case models.ItemTypeEvent:
		return "📆"
	case models.ItemTypeMemorable:
		return "🎉"
	default:
		return "•"
	}
}

// ---------------------------------------------------------------------------
// AgendaHandler – /agenda [day|week|month]
// ---------------------------------------------------------------------------

// AgendaHandler handles the /agenda command. The view defaults to the
// current week.
type AgendaHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewAgendaHandler creates a new AgendaHandler.
func NewAgendaHandler(svc *service.Service, logger *logrus.Logger) *AgendaHandler {
	return &AgendaHandler{svc: svc, logger: logger}
}

// Handle processes the /agenda command.
func (h *AgendaHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	view := string(service.ViewWeek)
	if len(args) > 0 {
		view = args[0]
	}

	entries, err := h.svc.GetAgenda(context.Background(), message.From.ID, view, time.Now())
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		send(bot, message.Chat.ID, "📅 *Nothing scheduled!*\n\nUse /unscheduled to see what is waiting for a slot.")
		return nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 *Agenda (%s)*\n", strings.ToLower(view)))

	var day time.Time
	for _, e := range entries {
		if d := e.TimeSlot.Date(); !d.Equal(day) {
			day = d
			sb.WriteString(fmt.Sprintf("\n*%s*\n", d.Format("Mon, 02 Jan")))
		}
		when := "all day"
		if !e.AllDay {
			when = fmt.Sprintf("%s-%s", models.ClockOf(e.TimeSlot.Start), models.ClockOf(e.TimeSlot.End))
		}
		done := ""
		if e.Status == models.ItemStatusComplete {
			done = " ✔️"
		}
		sb.WriteString(fmt.Sprintf("%s %s %s%s\n", typeEmoji(e.Type), when, e.Name, done))
	}

	sb.WriteString(fmt.Sprintf("\n_%d entries_", len(entries)))
	send(bot, message.Chat.ID, sb.String())

	h.logger.WithFields(logrus.Fields{
		"user_id": message.From.ID,
		"view":    view,
		"count":   len(entries),
	}).Info("Listed agenda")

	return nil
}

// ---------------------------------------------------------------------------
// ExportHandler – /ics
// ---------------------------------------------------------------------------

// ExportHandler sends the user's calendar as an iCalendar document.
type ExportHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(svc *service.Service, logger *logrus.Logger) *ExportHandler {
	return &ExportHandler{svc: svc, logger: logger}
}

// Handle processes the /ics command.
func (h *ExportHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	feed, err := h.svc.ExportICS(context.Background(), message.From.ID)
	if err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(message.Chat.ID, tgbotapi.FileBytes{
		Name:  "calendar.ics",
		Bytes: []byte(feed),
	})
	doc.Caption = "📤 Your calendar"
	if _, err := bot.Send(doc); err != nil {
		return fmt.Errorf("failed to send calendar export: %w", err)
	}

	h.logger.WithField("user_id", message.From.ID).Info("Exported calendar")
	return nil
}
