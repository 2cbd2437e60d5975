package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/planner/internal/apperr"
	"github.com/Kerhoff/planner/internal/service"
)

// parsePeriod reads "<YYYY> <MM>" from the first two arguments.
func parsePeriod(args []string) (int, int, bool) {
	if len(args) < 2 {
		return 0, 0, false
	}
	year, errY := strconv.Atoi(args[0])
	month, errM := strconv.Atoi(args[1])
	if errY != nil || errM != nil {
		return 0, 0, false
	}
	return year, month, true
}

func formatPlan(details *service.MonthPlanDetails, created bool) string {
	var sb strings.Builder
	header := "🗓 *Month plan %s*"
	if created {
		header = "🗓 *Month plan %s created!*"
	}
	sb.WriteString(fmt.Sprintf(header+"\n\n", details.Plan.Period()))

	sb.WriteString("*Weeks:*\n")
	for _, w := range details.WeekPlans {
		sb.WriteString(fmt.Sprintf("%d. %s - %s\n", w.WeekNumber, w.StartDate.Format("02 Jan"), w.EndDate.Format("02 Jan")))
	}

	if len(details.Plan.ApprovedRoutineNames) > 0 {
		sb.WriteString("\n*Routines:* " + strings.Join(details.Plan.ApprovedRoutineNames, ", ") + "\n")
	}

	if len(details.BigTasks) > 0 {
		sb.WriteString("\n*Big tasks:*\n")
		for _, bt := range details.BigTasks {
			sb.WriteString(fmt.Sprintf("• %s (%d/%d, %d%%)\n", bt.Name, bt.CompletedTasks, bt.TotalTasks, bt.CompletionPercent))
		}
	}

	if len(details.Events) > 0 {
		sb.WriteString(fmt.Sprintf("\n_%d events planned_", len(details.Events)))
	}
	return sb.String()
}

// ---------------------------------------------------------------------------
// PlanHandler – /plan <YYYY> <MM>
// ---------------------------------------------------------------------------

// PlanHandler creates the month plan, or shows it when it already exists.
type PlanHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(svc *service.Service, logger *logrus.Logger) *PlanHandler {
	return &PlanHandler{svc: svc, logger: logger}
}

// Handle processes the /plan command.
func (h *PlanHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	year, month, ok := parsePeriod(args)
	if !ok {
		send(bot, message.Chat.ID, "❌ Please provide a year and month.\nUsage: `/plan 2025 03`")
		return nil
	}

	ctx := context.Background()
	details, err := h.svc.CreateMonthPlan(ctx, message.From.ID, year, month)
	created := err == nil
	if errors.Is(err, apperr.ErrDuplicatePlan) {
		details, err = h.svc.GetMonthPlanByPeriod(ctx, message.From.ID, year, month)
	}
	if err != nil {
		return err
	}

	send(bot, message.Chat.ID, formatPlan(details, created))

	h.logger.WithFields(logrus.Fields{
		"user_id":       message.From.ID,
		"month_plan_id": details.Plan.ID,
		"created":       created,
	}).Info("Month plan shown")

	return nil
}

// ---------------------------------------------------------------------------
// RoutinesHandler – /routines <YYYY> <MM> name, name, ...
// ---------------------------------------------------------------------------

// RoutinesHandler replaces the approved routine list of a month plan.
type RoutinesHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewRoutinesHandler creates a new RoutinesHandler.
func NewRoutinesHandler(svc *service.Service, logger *logrus.Logger) *RoutinesHandler {
	return &RoutinesHandler{svc: svc, logger: logger}
}

// Handle processes the /routines command. Names are comma separated; an
// empty list clears the plan's routines.
func (h *RoutinesHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	year, month, ok := parsePeriod(args)
	if !ok {
		send(bot, message.Chat.ID, "❌ Please provide a year, month and routine names.\nUsage: `/routines 2025 03 Gym, Reading`")
		return nil
	}

	var names []string
	for _, n := range strings.Split(strings.Join(args[2:], " "), ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}

	ctx := context.Background()
	details, err := h.svc.GetMonthPlanByPeriod(ctx, message.From.ID, year, month)
	if err != nil {
		return err
	}
	change, err := h.svc.UpdateRoutineList(ctx, message.From.ID, details.Plan.ID, names)
	if err != nil {
		return err
	}

	text := fmt.Sprintf("🔁 *Routines for %s updated*\n", details.Plan.Period())
	if len(change.Added) > 0 {
		text += "\n➕ " + strings.Join(change.Added, ", ")
	}
	if len(change.Removed) > 0 {
		text += "\n➖ " + strings.Join(change.Removed, ", ")
	}
	if len(change.Added) == 0 && len(change.Removed) == 0 {
		text += "\nNothing changed."
	}
	send(bot, message.Chat.ID, text)

	h.logger.WithFields(logrus.Fields{
		"user_id":       message.From.ID,
		"month_plan_id": details.Plan.ID,
		"added":         len(change.Added),
		"removed":       len(change.Removed),
	}).Info("Routine list updated via bot")

	return nil
}

// ---------------------------------------------------------------------------
// UnscheduledHandler – /unscheduled
// ---------------------------------------------------------------------------

// UnscheduledHandler lists routines and derived tasks still waiting for a
// slot in the upcoming months.
type UnscheduledHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewUnscheduledHandler creates a new UnscheduledHandler.
func NewUnscheduledHandler(svc *service.Service, logger *logrus.Logger) *UnscheduledHandler {
	return &UnscheduledHandler{svc: svc, logger: logger}
}

// Handle processes the /unscheduled command.
func (h *UnscheduledHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	groups, err := h.svc.GetUnscheduledItems(context.Background(), message.From.ID)
	if err != nil {
		return err
	}

	if len(groups) == 0 {
		send(bot, message.Chat.ID, "🗓 *No month plans yet!*\n\nCreate one with `/plan <YYYY> <MM>`")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("📋 *Unscheduled items*\n")
	for _, g := range groups {
		sb.WriteString(fmt.Sprintf("\n*%04d-%02d*\n", g.Year, g.Month))
		if len(g.Routines) == 0 && len(g.Tasks) == 0 {
			sb.WriteString("_all scheduled_\n")
			continue
		}
		for _, r := range g.Routines {
			sb.WriteString(fmt.Sprintf("🔁 %s", r.Name))
			if r.PreviousTiming != nil {
				sb.WriteString(fmt.Sprintf(" (last month %s-%s %s)", r.PreviousTiming.StartTime, r.PreviousTiming.EndTime,
					strings.Join(r.PreviousTiming.DaysOfWeek, ",")))
			}
			sb.WriteString("\n")
		}
		for _, t := range g.Tasks {
			sb.WriteString(fmt.Sprintf("📦 %s (%s - %s)\n", t.Name,
				t.EstimatedStartDate.Format("02 Jan"), t.EstimatedEndDate.Format("02 Jan")))
			for _, st := range t.SuggestedSubtasks {
				est := ""
				if st.EstimatedHours != nil {
					est = " ~" + *st.EstimatedHours
				}
				sb.WriteString(fmt.Sprintf("   ✅ %s%s\n", st.Name, est))
			}
		}
	}

	send(bot, message.Chat.ID, sb.String())

	h.logger.WithFields(logrus.Fields{
		"user_id": message.From.ID,
		"months":  len(groups),
	}).Info("Listed unscheduled items")

	return nil
}
