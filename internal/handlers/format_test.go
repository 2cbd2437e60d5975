package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/service"
)

func TestParsePeriod(t *testing.T) {
	year, month, ok := parsePeriod([]string{"2024", "03", "extra"})
	assert.True(t, ok)
	assert.Equal(t, 2024, year)
	assert.Equal(t, 3, month)

	_, _, ok = parsePeriod([]string{"2024"})
	assert.False(t, ok)
	_, _, ok = parsePeriod([]string{"march", "2024"})
	assert.False(t, ok)
}

func TestFormatPlan(t *testing.T) {
	details := &service.MonthPlanDetails{
		Plan: &models.MonthPlan{Year: 2024, Month: 1, ApprovedRoutineNames: []string{"Gym", "Read"}},
		WeekPlans: []*models.WeekPlan{
			{WeekNumber: 1, StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)},
		},
		BigTasks: []service.BigTaskSummary{
			{BigTask: &models.BigTask{Name: "Launch"}, TotalTasks: 4, CompletedTasks: 1, CompletionPercent: 25},
		},
	}

	text := formatPlan(details, true)
	assert.Contains(t, text, "Month plan 2024-01 created!")
	assert.Contains(t, text, "1. 01 Jan - 07 Jan")
	assert.Contains(t, text, "Gym, Read")
	assert.Contains(t, text, "Launch (1/4, 25%)")
	assert.NotContains(t, text, "events planned")
}

func TestFormatLimits(t *testing.T) {
	c := models.DefaultUserConstraints(1)
	c.DailyLimits[models.ItemTypeTask] = 3

	assert.Equal(t, "⏱ *Daily limits: off*\n• TASK: 3h\n• ROUTINE: 8h", formatLimits(c))
}

func TestTypeEmoji(t *testing.T) {
	assert.Equal(t, "🎉", typeEmoji(models.ItemTypeMemorable))
	assert.Equal(t, "•", typeEmoji("OTHER"))
}
