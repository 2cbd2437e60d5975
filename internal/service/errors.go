package service

import "github.com/Kerhoff/planner/internal/apperr"

func errMonthPlanNotFound(id int64) error {
	return apperr.New(apperr.CodeMonthPlanNotFound, "month plan %d not found", id)
}

func errItemNotFound(id int64) error {
	return apperr.New(apperr.CodeItemNotFound, "calendar item %d not found", id)
}

func errCalendarNotFound(id int64) error {
	return apperr.New(apperr.CodeCalendarNotFound, "calendar %d not found", id)
}
