package handlers

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// HelpHandler handles the /help command
type HelpHandler struct {
	logger *logrus.Logger
}

func NewHelpHandler(logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{logger: logger}
}

func (h *HelpHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	helpText := `📚 *Planner Help*

*Planning:*
• /plan <YYYY> <MM> - Create or show a month plan
• /unscheduled - Routines and tasks still waiting for a slot

*Calendar:*
• /agenda [day|week|month] - Show your agenda
• /ics - Export your calendar as an .ics file

*Settings:*
• /tz <OLD> <NEW> - Move your items to a new timezone
• /birthday <DD> <MM> - Set your birthday
• /sleep <HH:mm-HH:mm> ... - Set sleep hours (no args clears them)
• /limits <on|off> [TASK=H] [ROUTINE=H] - Daily hour limits

_Timezones are IANA names, e.g. Europe/Berlin_`

	send(bot, message.Chat.ID, helpText)

	h.logger.WithFields(logrus.Fields{
		"user_id": message.From.ID,
	}).Info("Sent help message")

	return nil
}
