package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/service"
)

// ---------------------------------------------------------------------------
// TimezoneHandler – /tz <OLD> <NEW>
// ---------------------------------------------------------------------------

// TimezoneHandler moves every scheduled item to a new timezone.
type TimezoneHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewTimezoneHandler creates a new TimezoneHandler.
func NewTimezoneHandler(svc *service.Service, logger *logrus.Logger) *TimezoneHandler {
	return &TimezoneHandler{svc: svc, logger: logger}
}

// Handle processes the /tz command.
func (h *TimezoneHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if len(args) != 2 {
		send(bot, message.Chat.ID, "❌ Please provide the old and new timezone.\nUsage: `/tz Europe/Berlin Asia/Tokyo`")
		return nil
	}

	count, err := h.svc.ConvertUserTimezone(context.Background(), message.From.ID, args[0], args[1])
	if err != nil {
		return err
	}

	if count == 0 {
		send(bot, message.Chat.ID, "🌍 Nothing scheduled yet, nothing to convert.")
		return nil
	}
	send(bot, message.Chat.ID, fmt.Sprintf("🌍 Moved *%d* items from %s to %s.", count, args[0], args[1]))
	return nil
}

// ---------------------------------------------------------------------------
// BirthdayHandler – /birthday <DD> <MM>
// ---------------------------------------------------------------------------

// BirthdayHandler sets the user's birthday.
type BirthdayHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewBirthdayHandler creates a new BirthdayHandler.
func NewBirthdayHandler(svc *service.Service, logger *logrus.Logger) *BirthdayHandler {
	return &BirthdayHandler{svc: svc, logger: logger}
}

// Handle processes the /birthday command.
func (h *BirthdayHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if len(args) != 2 {
		send(bot, message.Chat.ID, "❌ Please provide a day and month.\nUsage: `/birthday 24 12`")
		return nil
	}
	day, errD := strconv.Atoi(args[0])
	month, errM := strconv.Atoi(args[1])
	if errD != nil || errM != nil {
		send(bot, message.Chat.ID, "❌ Day and month must be numbers.\nUsage: `/birthday 24 12`")
		return nil
	}

	event, err := h.svc.CreateOrUpdateBirthday(context.Background(), message.From.ID, day, month)
	if err != nil {
		return err
	}

	send(bot, message.Chat.ID, fmt.Sprintf("🎂 Birthday set to *%02d.%02d*. It is on your calendar for the next %d years.",
		event.Day, event.Month, models.MemorableHorizonYears))
	return nil
}

// ---------------------------------------------------------------------------
// SleepHandler – /sleep <HH:mm-HH:mm> ...
// ---------------------------------------------------------------------------

// SleepHandler replaces the user's sleep hours.
type SleepHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewSleepHandler creates a new SleepHandler.
func NewSleepHandler(svc *service.Service, logger *logrus.Logger) *SleepHandler {
	return &SleepHandler{svc: svc, logger: logger}
}

// Handle processes the /sleep command.
func (h *SleepHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ranges := make([]service.SleepHoursInput, 0, len(args))
	for _, arg := range args {
		start, end, ok := strings.Cut(arg, "-")
		if !ok {
			send(bot, message.Chat.ID, fmt.Sprintf("❌ `%s` is not a range.\nUsage: `/sleep 23:00-07:00`", arg))
			return nil
		}
		ranges = append(ranges, service.SleepHoursInput{StartTime: start, EndTime: end})
	}

	c, err := h.svc.UpdateSleepHours(context.Background(), message.From.ID, ranges)
	if err != nil {
		return err
	}

	if len(c.SleepHours) == 0 {
		send(bot, message.Chat.ID, "😴 Sleep hours cleared.")
		return nil
	}
	parts := make([]string, 0, len(c.SleepHours))
	for _, tr := range c.SleepHours {
		parts = append(parts, tr.String())
	}
	send(bot, message.Chat.ID, "😴 Sleep hours set: "+strings.Join(parts, ", "))
	return nil
}

// ---------------------------------------------------------------------------
// LimitsHandler – /limits <on|off> [TYPE=H ...]
// ---------------------------------------------------------------------------

// LimitsHandler toggles daily hour limits and sets their ceilings.
type LimitsHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewLimitsHandler creates a new LimitsHandler.
func NewLimitsHandler(svc *service.Service, logger *logrus.Logger) *LimitsHandler {
	return &LimitsHandler{svc: svc, logger: logger}
}

// Handle processes the /limits command. Without arguments it shows the
// current settings.
func (h *LimitsHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	if len(args) == 0 {
		c, err := h.svc.GetUserConstraints(ctx, message.From.ID)
		if err != nil {
			return err
		}
		send(bot, message.Chat.ID, formatLimits(c))
		return nil
	}

	var enabled bool
	switch strings.ToLower(args[0]) {
	case "on":
		enabled = true
	case "off":
	default:
		send(bot, message.Chat.ID, "❌ Usage: `/limits on TASK=6 ROUTINE=2` or `/limits off`")
		return nil
	}

	limits := make(map[string]int)
	for _, arg := range args[1:] {
		key, raw, ok := strings.Cut(arg, "=")
		hours, err := strconv.Atoi(raw)
		if !ok || err != nil {
			send(bot, message.Chat.ID, fmt.Sprintf("❌ `%s` is not TYPE=HOURS.", arg))
			return nil
		}
		limits[key] = hours
	}

	c, err := h.svc.UpdateDailyLimits(ctx, message.From.ID, enabled, limits)
	if err != nil {
		return err
	}
	send(bot, message.Chat.ID, formatLimits(c))
	return nil
}

func formatLimits(c *models.UserConstraints) string {
	state := "off"
	if c.DailyLimitEnabled {
		state = "on"
	}
	return fmt.Sprintf("⏱ *Daily limits: %s*\n• TASK: %dh\n• ROUTINE: %dh",
		state, c.LimitFor(models.ItemTypeTask), c.LimitFor(models.ItemTypeRoutine))
}
