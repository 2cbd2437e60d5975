package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/planner/internal/service"
)

// StartHandler handles the /start command
type StartHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewStartHandler creates a new start command handler
func NewStartHandler(svc *service.Service, logger *logrus.Logger) *StartHandler {
	return &StartHandler{svc: svc, logger: logger}
}

// Handle processes the /start command. It provisions the personal calendar
// the first time a user shows up.
func (h *StartHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	calendar, err := h.svc.CreateDefaultCalendar(context.Background(), message.From.ID)
	if err != nil {
		return err
	}

	welcomeText := fmt.Sprintf(`🎯 *Welcome to Planner, %s!*

Your calendar *%s* is ready.

*Get started:*
• /plan <YYYY> <MM> - Create a month plan
• /unscheduled - See what still needs a slot
• /agenda [day|week|month] - Show your agenda
• /birthday <DD> <MM> - Set your birthday
• /help - Show all commands`, message.From.FirstName, calendar.Name)

	send(bot, message.Chat.ID, welcomeText)

	h.logger.WithFields(logrus.Fields{
		"user_id":     message.From.ID,
		"calendar_id": calendar.ID,
	}).Info("Sent start message")

	return nil
}

// send replies with a Markdown message. Delivery failures are not reported
// back to the user, there is nowhere to report them.
func send(bot *tgbotapi.BotAPI, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)
}
