package apperr

import (
	"errors"
	"fmt"
)

// Kind groups error codes into the categories the transport layers map to responses.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindInternal   Kind = "internal"
)

// Code identifies a specific failure.
type Code string

const (
	CodeInvalidItemType   Code = "INVALID_ITEM_TYPE"
	CodeInvalidTimeSlot   Code = "INVALID_TIME_SLOT"
	CodeInvalidTimezone   Code = "INVALID_TIMEZONE"
	CodeInvalidTimeFormat Code = "INVALID_TIME_FORMAT"
	CodeInvalidTimeRange  Code = "INVALID_TIME_RANGE"
	CodeInvalidDate       Code = "INVALID_DATE"
	CodeInvalidView       Code = "INVALID_VIEW"
	CodeInvalidInput      Code = "INVALID_INPUT"
	CodeConstraints       Code = "CONSTRAINT_VIOLATIONS"

	CodeCalendarNotFound   Code = "CALENDAR_NOT_FOUND"
	CodeMonthPlanNotFound  Code = "MONTH_PLAN_NOT_FOUND"
	CodeWeekPlanNotFound   Code = "WEEK_PLAN_NOT_FOUND"
	CodeItemNotFound       Code = "ITEM_NOT_FOUND"
	CodeBigTaskNotFound    Code = "BIG_TASK_NOT_FOUND"
	CodeNoPersonalCalendar Code = "NO_PERSONAL_CALENDAR"

	CodeDuplicatePlan Code = "DUPLICATE_PLAN"
)

// Kind reports the category of the code.
func (c Code) Kind() Kind {
	switch c {
	case CodeInvalidItemType, CodeInvalidTimeSlot, CodeInvalidTimezone, CodeInvalidTimeFormat,
		CodeInvalidTimeRange, CodeInvalidDate, CodeInvalidView, CodeInvalidInput, CodeConstraints:
		return KindValidation
	case CodeCalendarNotFound, CodeMonthPlanNotFound, CodeWeekPlanNotFound, CodeItemNotFound,
		CodeBigTaskNotFound, CodeNoPersonalCalendar:
		return KindNotFound
	case CodeDuplicatePlan:
		return KindConflict
	default:
		return KindInternal
	}
}

// Error is a typed failure returned to callers of the scheduling core.
type Error struct {
	Code    Code
	Message string
	// Details carries per-item messages, e.g. constraint violations.
	Details []string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates an error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidItemType    = &Error{Code: CodeInvalidItemType}
	ErrInvalidTimeSlot    = &Error{Code: CodeInvalidTimeSlot}
	ErrInvalidTimezone    = &Error{Code: CodeInvalidTimezone}
	ErrInvalidTimeFormat  = &Error{Code: CodeInvalidTimeFormat}
	ErrInvalidTimeRange   = &Error{Code: CodeInvalidTimeRange}
	ErrInvalidDate        = &Error{Code: CodeInvalidDate}
	ErrInvalidView        = &Error{Code: CodeInvalidView}
	ErrInvalidInput       = &Error{Code: CodeInvalidInput}
	ErrConstraints        = &Error{Code: CodeConstraints}
	ErrCalendarNotFound   = &Error{Code: CodeCalendarNotFound}
	ErrMonthPlanNotFound  = &Error{Code: CodeMonthPlanNotFound}
	ErrWeekPlanNotFound   = &Error{Code: CodeWeekPlanNotFound}
	ErrItemNotFound       = &Error{Code: CodeItemNotFound}
	ErrBigTaskNotFound    = &Error{Code: CodeBigTaskNotFound}
	ErrNoPersonalCalendar = &Error{Code: CodeNoPersonalCalendar}
	ErrDuplicatePlan      = &Error{Code: CodeDuplicatePlan}
)

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Code.Kind()
	}
	return KindInternal
}
