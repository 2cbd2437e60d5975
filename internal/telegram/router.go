package telegram

import (
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/planner/internal/apperr"
)

// Router handles message routing and command parsing
type Router struct {
	logger       *logrus.Logger
	handlers     map[string]CommandHandler
	descriptions map[string]string
}

// CommandHandler defines the interface for command handlers
type CommandHandler interface {
	Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error
}

// NewRouter creates a new message router
func NewRouter(logger *logrus.Logger) *Router {
	return &Router{
		logger:       logger,
		handlers:     make(map[string]CommandHandler),
		descriptions: make(map[string]string),
	}
}

// RegisterCommand registers a command handler
func (r *Router) RegisterCommand(command, description string, handler CommandHandler) {
	r.handlers[command] = handler
	r.descriptions[command] = description
	r.logger.Debugf("Registered command: %s", command)
}

// HandleMessage handles incoming messages. Only private chats are served;
// the sender's Telegram id is the planner user id.
func (r *Router) HandleMessage(bot *tgbotapi.BotAPI, message *tgbotapi.Message) {
	if message.From == nil || message.Text == "" || !message.IsCommand() {
		return
	}

	r.logger.WithFields(logrus.Fields{
		"chat_id":    message.Chat.ID,
		"user_id":    message.From.ID,
		"message_id": message.MessageID,
		"command":    message.Command(),
	}).Info("Received command")

	command := message.Command()
	args := strings.Fields(message.CommandArguments())

	handler, exists := r.handlers[command]
	if !exists {
		r.logger.WithFields(logrus.Fields{
			"command": command,
			"user_id": message.From.ID,
		}).Warn("Unknown command")

		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "❓ Unknown command. Use /help to see available commands."))
		return
	}

	if !message.Chat.IsPrivate() {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "🔒 Your planner is personal. Please message me directly."))
		return
	}

	if err := handler.Handle(bot, message, args); err != nil {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, r.describeError(command, message, err)))
	}
}

// describeError turns typed planner errors into a reply the user can act on
// and logs the rest.
func (r *Router) describeError(command string, message *tgbotapi.Message, err error) string {
	var e *apperr.Error
	if errors.As(err, &e) && apperr.KindOf(err) != apperr.KindInternal {
		r.logger.WithFields(logrus.Fields{
			"command": command,
			"user_id": message.From.ID,
			"code":    e.Code,
		}).Warn("Command rejected")

		text := "❌ " + e.Message
		for _, d := range e.Details {
			text += "\n• " + d
		}
		return text
	}

	r.logger.WithFields(logrus.Fields{
		"command": command,
		"chat_id": message.Chat.ID,
		"user_id": message.From.ID,
		"error":   err,
	}).Error("Command handler failed")
	return "❌ An error occurred while processing your command. Please try again."
}
