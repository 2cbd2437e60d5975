package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/planner/internal/apperr"
	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/service"
)

// UserHeader carries the authenticated caller's id, set by the gateway in
// front of this service.
const UserHeader = "X-User-ID"

const dateLayout = "2006-01-02"

// Server provides the HTTP API.
type Server struct {
	svc    *service.Service
	logger *logrus.Logger
	mux    *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// API – Calendars
	s.mux.HandleFunc("GET /api/calendars", s.handleListCalendars)
	s.mux.HandleFunc("POST /api/calendars/default", s.handleCreateDefaultCalendar)
	s.mux.HandleFunc("GET /api/calendar.ics", s.handleExportICS)

	// API – Calendar items
	s.mux.HandleFunc("POST /api/items", s.handleCreateItem)
	s.mux.HandleFunc("GET /api/items/{id}", s.handleGetItem)
	s.mux.HandleFunc("PUT /api/items/{id}/status", s.handleUpdateItemStatus)
	s.mux.HandleFunc("PUT /api/items/{id}/schedule", s.handleRescheduleItem)
	s.mux.HandleFunc("DELETE /api/items/{id}", s.handleDeleteItem)
	s.mux.HandleFunc("GET /api/agenda", s.handleAgenda)

	// API – Month plans
	s.mux.HandleFunc("POST /api/month-plans", s.handleCreateMonthPlan)
	s.mux.HandleFunc("GET /api/month-plans", s.handleGetMonthPlanByPeriod)
	s.mux.HandleFunc("GET /api/month-plans/{id}", s.handleGetMonthPlan)
	s.mux.HandleFunc("PUT /api/month-plans/{id}/routines", s.handleUpdateRoutineList)
	s.mux.HandleFunc("POST /api/month-plans/{id}/big-tasks", s.handleAddBigTask)
	s.mux.HandleFunc("POST /api/month-plans/{id}/events", s.handleAddEvent)
	s.mux.HandleFunc("DELETE /api/big-tasks/{id}", s.handleDeleteBigTask)
	s.mux.HandleFunc("GET /api/unscheduled", s.handleUnscheduled)

	// API – Memorable events
	s.mux.HandleFunc("GET /api/memorable-events", s.handleGetMemorableEvents)
	s.mux.HandleFunc("PUT /api/memorable-events", s.handleUpdateMemorableEvents)
	s.mux.HandleFunc("PUT /api/birthday", s.handleUpdateBirthday)

	// API – Timezone and constraints
	s.mux.HandleFunc("POST /api/timezone/convert", s.handleConvertTimezone)
	s.mux.HandleFunc("GET /api/constraints", s.handleGetConstraints)
	s.mux.HandleFunc("PUT /api/constraints/sleep-hours", s.handleUpdateSleepHours)
	s.mux.HandleFunc("PUT /api/constraints/daily-limits", s.handleUpdateDailyLimits)
	s.mux.HandleFunc("POST /api/constraints/validate", s.handleValidateConstraints)
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

type errorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorResponse{Error: message})
}

// respondServiceError maps typed service failures to 400, 404 or 409 and
// hides everything else behind a logged 500.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	default:
		s.logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		s.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var e *apperr.Error
	errors.As(err, &e)
	s.respondJSON(w, status, errorResponse{Error: e.Message, Code: string(e.Code), Details: e.Details})
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// pathID extracts the {id} path value and converts it to int64.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return 0, fmt.Errorf("missing id in path")
	}
	return strconv.ParseInt(raw, 10, 64)
}

// requireUser reads the caller id from the X-User-ID header.  It writes an
// error response and returns 0 when the header is absent or invalid.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get(UserHeader)
	if raw == "" {
		s.respondError(w, http.StatusUnauthorized, UserHeader+" header is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusBadRequest, UserHeader+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Calendars
// ---------------------------------------------------------------------------

func (s *Server) handleListCalendars(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	calendars, err := s.svc.ListCalendars(r.Context(), userID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, calendars)
}

func (s *Server) handleCreateDefaultCalendar(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	calendar, err := s.svc.CreateDefaultCalendar(r.Context(), userID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, calendar)
}

func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	feed, err := s.svc.ExportICS(r.Context(), userID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(feed)); err != nil {
		s.logger.WithError(err).Error("failed to write calendar feed")
	}
}

// ---------------------------------------------------------------------------
// Calendar items
// ---------------------------------------------------------------------------

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req service.CreateItemRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	id, err := s.svc.CreateCalendarItem(r.Context(), userID, req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := s.svc.GetCalendarItem(r.Context(), userID, id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req updateStatusRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := s.svc.UpdateItemStatus(r.Context(), userID, id, req.Status)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

type rescheduleRequest struct {
	TimeSlot *models.TimeSlot `json:"time_slot"`
}

func (s *Server) handleRescheduleItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req rescheduleRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := s.svc.RescheduleItem(r.Context(), userID, id, req.TimeSlot)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := s.svc.DeleteCalendarItem(r.Context(), userID, id); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	view := q.Get("view")
	if view == "" {
		view = string(service.ViewWeek)
	}
	date := time.Now()
	if raw := q.Get("date"); raw != "" {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = d
	}

	entries, err := s.svc.GetAgenda(r.Context(), userID, view, date)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, entries)
}

// ---------------------------------------------------------------------------
// Month plans
// ---------------------------------------------------------------------------

type createMonthPlanRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (s *Server) handleCreateMonthPlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req createMonthPlanRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	plan, err := s.svc.CreateMonthPlan(r.Context(), userID, req.Year, req.Month)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, plan)
}

func (s *Server) handleGetMonthPlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid month plan id")
		return
	}

	plan, err := s.svc.GetMonthPlan(r.Context(), userID, id)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, plan)
}

func (s *Server) handleGetMonthPlanByPeriod(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	year, errY := strconv.Atoi(q.Get("year"))
	month, errM := strconv.Atoi(q.Get("month"))
	if errY != nil || errM != nil {
		s.respondError(w, http.StatusBadRequest, "year and month query parameters are required")
		return
	}

	plan, err := s.svc.GetMonthPlanByPeriod(r.Context(), userID, year, month)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, plan)
}

type updateRoutineListRequest struct {
	RoutineNames []string `json:"routine_names"`
}

func (s *Server) handleUpdateRoutineList(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid month plan id")
		return
	}

	var req updateRoutineListRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	change, err := s.svc.UpdateRoutineList(r.Context(), userID, id, req.RoutineNames)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, change)
}

func (s *Server) handleAddBigTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid month plan id")
		return
	}

	var req service.AddBigTaskRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	result, err := s.svc.AddBigTask(r.Context(), userID, id, req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleDeleteBigTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid big task id")
		return
	}

	if err := s.svc.DeleteBigTask(r.Context(), userID, id); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid month plan id")
		return
	}

	var req service.AddEventRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := s.svc.AddEvent(r.Context(), userID, id, req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUnscheduled(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	groups, err := s.svc.GetUnscheduledItems(r.Context(), userID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, groups)
}

// ---------------------------------------------------------------------------
// Memorable events
// ---------------------------------------------------------------------------

func (s *Server) handleGetMemorableEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	events, err := s.svc.GetMemorableEvents(r.Context(), userID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, events)
}

type updateMemorableEventsRequest struct {
	Events []service.MemorableEventInput `json:"events"`
}

func (s *Server) handleUpdateMemorableEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req updateMemorableEventsRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	events, err := s.svc.UpdateMemorableEvents(r.Context(), userID, req.Events)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, events)
}

type birthdayRequest struct {
	Day   int `json:"day"`
	Month int `json:"month"`
}

func (s *Server) handleUpdateBirthday(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req birthdayRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	event, err := s.svc.CreateOrUpdateBirthday(r.Context(), userID, req.Day, req.Month)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, event)
}

// ---------------------------------------------------------------------------
// Timezone and constraints
// ---------------------------------------------------------------------------

type convertTimezoneRequest struct {
	OldTimezone string `json:"old_timezone"`
	NewTimezone string `json:"new_timezone"`
}

func (s *Server) handleConvertTimezone(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req convertTimezoneRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	count, err := s.svc.ConvertUserTimezone(r.Context(), userID, req.OldTimezone, req.NewTimezone)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"converted": count})
}

func (s *Server) handleGetConstraints(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	c, err := s.svc.GetUserConstraints(r.Context(), userID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, c)
}

type sleepHoursRequest struct {
	SleepHours []service.SleepHoursInput `json:"sleep_hours"`
}

func (s *Server) handleUpdateSleepHours(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req sleepHoursRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	c, err := s.svc.UpdateSleepHours(r.Context(), userID, req.SleepHours)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, c)
}

type dailyLimitsRequest struct {
	Enabled bool           `json:"enabled"`
	Limits  map[string]int `json:"limits"`
}

func (s *Server) handleUpdateDailyLimits(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req dailyLimitsRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	c, err := s.svc.UpdateDailyLimits(r.Context(), userID, req.Enabled, req.Limits)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, c)
}

type validateRequest struct {
	TimeSlot models.TimeSlot `json:"time_slot"`
	ItemType string          `json:"item_type"`
}

type validateResponse struct {
	Valid      bool                 `json:"valid"`
	Violations []*service.Violation `json:"violations"`
}

func (s *Server) handleValidateConstraints(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req validateRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	err := s.svc.ValidateConstraints(r.Context(), userID, req.TimeSlot, models.ItemType(req.ItemType))
	resp := validateResponse{Valid: true, Violations: []*service.Violation{}}

	var merr *multierror.Error
	switch {
	case err == nil:
	case errors.As(err, &merr):
		resp.Valid = false
		for _, e := range merr.Errors {
			var v *service.Violation
			if errors.As(e, &v) {
				resp.Violations = append(resp.Violations, v)
			}
		}
	default:
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}
