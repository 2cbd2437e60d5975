package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesByCode(t *testing.T) {
	err := New(CodeDuplicatePlan, "plan for %d-%02d exists", 2024, 3)
	wrapped := fmt.Errorf("create month plan: %w", err)

	assert.True(t, errors.Is(wrapped, ErrDuplicatePlan))
	assert.False(t, errors.Is(wrapped, ErrMonthPlanNotFound))
	assert.Equal(t, "DUPLICATE_PLAN: plan for 2024-03 exists", err.Error())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(New(CodeInvalidTimezone, "bad")))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("x: %w", ErrCalendarNotFound)))
	assert.Equal(t, KindConflict, KindOf(ErrDuplicatePlan))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}
