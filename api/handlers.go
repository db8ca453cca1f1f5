/*
handlers.go - HTTP API handlers for the habit tracker

PURPOSE:
  Exposes the tracker session via REST API. Handles HTTP request/response
  and JSON serialization, and delegates to the session (mutations), the
  analytics package (derived views) and the coach.

ENDPOINTS:
  State:
    GET    /api/state                  Whole tracker for the viewed month
    GET    /api/status                 Sync indicator and auth session
    PUT    /api/month                  Jump to a month (clamped)
    POST   /api/month/next             Next month
    POST   /api/month/prev             Previous month
    POST   /api/month/today            Real current month

  Habits:
    GET    /api/habits                 List habits
    POST   /api/habits                 Add habit
    PUT    /api/habits/{id}            Rename / recategorize
    DELETE /api/habits/{id}            Remove habit
    POST   /api/habits/{id}/toggle     Flip one day
    GET    /api/habits/{id}/stats      Per-habit drill-down

  Reflections:
    GET    /api/reflections/{month}    Month notes
    PUT    /api/reflections/{month}    Set wins or improvements

  Analytics:
    GET    /api/analytics/summary      KPI row
    GET    /api/analytics/leaderboard  Ranking (?month=N for one month)
    GET    /api/analytics/categories   Category breakdown
    GET    /api/analytics/weekdays     Weekday vs weekend, Sun..Sat
    GET    /api/analytics/trend        Monthly trend
    GET    /api/analytics/heatmap      Per-day completion fraction

  Data:
    GET    /api/export                 Download backup JSON
    POST   /api/import                 Replace state from backup JSON
    POST   /api/reset                  Delete snapshot, back to defaults

  Coach / Auth:
    POST   /api/coach                  AI coaching for a month
    POST   /api/auth/session           Sign in with an owner id
    DELETE /api/auth/session           Sign out

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, malformed import payloads
  - 404: Habit not found
  - 500: Internal errors

  Persistence failures never surface here: they are reflected in
  GET /api/status instead.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/zenhabit/analytics"
	"github.com/warp/zenhabit/coach"
	"github.com/warp/zenhabit/habit"
	"github.com/warp/zenhabit/persist"
	"github.com/warp/zenhabit/session"
	"go.uber.org/zap"
)

// maxImportBytes bounds the body of POST /api/import.
const maxImportBytes = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Session *session.Session
	Coach   *coach.Coach
	Logger  *zap.Logger
	Now     func() time.Time

	remote bool
}

// NewHandler creates a new handler. remote reports whether a remote table
// is configured (shown in the status).
func NewHandler(s *session.Session, c *coach.Coach, remote bool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = coach.New(nil, 0, logger, nil)
	}
	return &Handler{
		Session: s,
		Coach:   c,
		Logger:  logger.Named("api"),
		Now:     time.Now,
		remote:  remote,
	}
}

// =============================================================================
// STATE HANDLERS
// =============================================================================

// GetState returns the tracker for the viewed month.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stateDTO(h.Session.State()))
}

// GetStatus returns the sync indicator.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.statusDTO())
}

// SetMonth jumps to a month. Out-of-range values are clamped.
func (h *Handler) SetMonth(w http.ResponseWriter, r *http.Request) {
	var req MonthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthDTO(h.Session.SetMonth(req.Month)))
}

// NextMonth steps forward one month.
func (h *Handler) NextMonth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toMonthDTO(h.Session.StepMonth(1)))
}

// PrevMonth steps back one month.
func (h *Handler) PrevMonth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toMonthDTO(h.Session.StepMonth(-1)))
}

// Today jumps to the real current month.
func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toMonthDTO(h.Session.GoToToday()))
}

// =============================================================================
// HABIT HANDLERS
// =============================================================================

// ListHabits returns every habit with its numbers for the viewed month.
func (h *Handler) ListHabits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toHabitDTOs(h.Session.State()))
}

// CreateHabit adds a habit.
func (h *Handler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	var req CreateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	category, err := habit.ParseCategory(req.Category)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	created, err := h.Session.AddHabit(req.Name, category)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHabitDTO(created, h.Session.State().CurrentMonth))
}

// UpdateHabit renames and/or recategorizes a habit.
func (h *Handler) UpdateHabit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	category, err := habit.ParseCategory(req.Category)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := h.Session.UpdateHabit(id, req.Name, category)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHabitDTO(updated, h.Session.State().CurrentMonth))
}

// DeleteHabit removes a habit.
func (h *Handler) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.RemoveHabit(chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleDay flips one cell of a habit's matrix.
func (h *Handler) ToggleDay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updated, err := h.Session.Toggle(id, req.Month, req.Day)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHabitDTO(updated, req.Month))
}

// GetHabitStats returns the drill-down for one habit.
func (h *Handler) GetHabitStats(w http.ResponseWriter, r *http.Request) {
	state := h.Session.State()
	hb, ok := state.Habit(chi.URLParam(r, "id"))
	if !ok {
		writeDomainError(w, habit.ErrHabitNotFound)
		return
	}

	annual := analytics.AnnualTally(hb)
	months := make([]RatePointDTO, habit.MonthsInYear)
	for m := range months {
		months[m] = toRatePoint(m, analytics.MonthTally(hb, m))
	}
	writeJSON(w, http.StatusOK, HabitStatsDTO{
		ID:            hb.ID,
		Name:          hb.Name,
		AnnualRate:    analytics.Round(annual.Rate(), 1),
		AnnualLabel:   analytics.FormatPercent(annual.Rate()),
		Completed:     annual.Completed,
		Total:         annual.Total,
		CurrentStreak: analytics.CurrentStreak(hb, state.CurrentMonth),
		LongestStreak: analytics.LongestStreak(hb),
		Months:        months,
	})
}

// =============================================================================
// REFLECTION HANDLERS
// =============================================================================

// GetReflection returns one month's notes.
func (h *Handler) GetReflection(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	refl, err := h.Session.Reflection(month)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReflectionDTO(month, refl))
}

// SetReflection updates one field of a month's notes.
func (h *Handler) SetReflection(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req SetReflectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	refl, err := h.Session.SetReflection(month, habit.ReflectionField(req.Field), req.Value)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReflectionDTO(month, refl))
}

// =============================================================================
// ANALYTICS HANDLERS
// =============================================================================

// GetSummary returns the dashboard KPI row.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSummaryDTO(analytics.Summarize(h.Session.State())))
}

// GetLeaderboard ranks habits by annual rate, or by one month's rate when
// ?month= is given.
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	habits := h.Session.State().Habits

	raw := r.URL.Query().Get("month")
	if raw == "" {
		writeJSON(w, http.StatusOK, toLeaderboard(analytics.Leaderboard(habits)))
		return
	}
	month, err := parseMonth(raw)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaderboard(analytics.MonthLeaderboard(habits, month)))
}

// GetCategories returns the category breakdown in fixed order.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	state := h.Session.State()
	stats := analytics.ByCategory(state.Habits)
	splits := analytics.WeekdaySplitByCategory(state.Year, state.Habits)

	resp := CategoriesResponse{Categories: make([]CategoryDTO, len(stats)), Best: analytics.NoCategory}
	for i, c := range stats {
		resp.Categories[i] = CategoryDTO{
			Category:    string(c.Category),
			Habits:      c.Habits,
			Completed:   c.Tally.Completed,
			Total:       c.Tally.Total,
			Rate:        analytics.Round(c.Tally.Rate(), 1),
			WeekdayRate: analytics.Round(splits[i].Split.Weekday.Rate(), 1),
			WeekendRate: analytics.Round(splits[i].Split.Weekend.Rate(), 1),
		}
	}
	if best, ok := analytics.BestCategory(state.Habits); ok {
		resp.Best = string(best)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetWeekdays returns the weekday/weekend split and Sun..Sat rates.
func (h *Handler) GetWeekdays(w http.ResponseWriter, r *http.Request) {
	state := h.Session.State()
	split := analytics.WeekdaySplit(state.Year, state.Habits)

	days := analytics.DayOfWeekRates(state.Year, state.Habits)
	dtos := make([]DayRateDTO, len(days))
	for i, d := range days {
		dtos[i] = DayRateDTO{Day: d.Name, Weekend: d.Weekend, Rate: analytics.Round(d.Tally.Rate(), 1)}
	}

	writeJSON(w, http.StatusOK, WeekdaysResponse{
		WeekdayRate: analytics.Round(split.Weekday.Rate(), 1),
		WeekendRate: analytics.Round(split.Weekend.Rate(), 1),
		Weekday:     TallyDTO{Completed: split.Weekday.Completed, Total: split.Weekday.Total},
		Weekend:     TallyDTO{Completed: split.Weekend.Completed, Total: split.Weekend.Total},
		Days:        dtos,
	})
}

// GetTrend returns the all-habit completion per month.
func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	points := analytics.MonthlyTrend(h.Session.State().Habits)
	dtos := make([]RatePointDTO, len(points))
	for i, p := range points {
		dtos[i] = toRatePoint(p.Month, p.Tally)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetHeatmap returns the per-day completion fractions.
func (h *Handler) GetHeatmap(w http.ResponseWriter, r *http.Request) {
	state := h.Session.State()
	writeJSON(w, http.StatusOK, HeatmapResponse{Year: state.Year, Days: analytics.Heatmap(state.Habits)})
}

// =============================================================================
// DATA HANDLERS
// =============================================================================

// Export downloads the state as an indented JSON backup.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.Session.Export()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export state", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+persist.BackupFileName(h.Now())+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import replaces the state with an uploaded backup.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}
	state, err := h.Session.Import(data)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.stateDTO(state))
}

// Reset deletes the stored snapshot and restores the defaults.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	state, err := h.Session.Reset(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset state", err)
		return
	}
	writeJSON(w, http.StatusOK, h.stateDTO(state))
}

// =============================================================================
// COACH / AUTH HANDLERS
// =============================================================================

// GetCoaching asks the coach about a month (default: the viewed one).
func (h *Handler) GetCoaching(w http.ResponseWriter, r *http.Request) {
	var req CoachRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	state := h.Session.State()
	month := state.CurrentMonth
	if req.Month != nil {
		if !habit.ValidMonth(*req.Month) {
			writeDomainError(w, &habit.ValidationError{Field: "month", Message: "must be 0-11"})
			return
		}
		month = *req.Month
	}

	text := h.Coach.Insights(r.Context(), state, month)
	writeJSON(w, http.StatusOK, CoachResponse{Month: month, Text: text, Available: h.Coach.Available()})
}

// SignIn starts an auth session for an owner id.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	state, err := h.Session.SignIn(r.Context(), req.Owner)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.stateDTO(state))
}

// SignOut ends the auth session.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.Session.SignOut()
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) statusDTO() StatusDTO {
	return toStatusDTO(h.Session.Status(), h.Session.Owner(), h.remote)
}

func (h *Handler) stateDTO(s habit.State) StateDTO {
	return StateDTO{
		Year:          s.Year,
		CurrentMonth:  s.CurrentMonth,
		MonthName:     habit.MonthNames[s.CurrentMonth],
		MonthProgress: analytics.Round(analytics.MonthProgress(s.Habits, s.CurrentMonth), 1),
		Habits:        toHabitDTOs(s),
		Reflection:    toReflectionDTO(s.CurrentMonth, habit.GetReflection(s, s.CurrentMonth)),
		Status:        h.statusDTO(),
	}
}

func monthParam(r *http.Request) (int, error) {
	return parseMonth(chi.URLParam(r, "month"))
}

func parseMonth(raw string) (int, error) {
	m, err := strconv.Atoi(raw)
	if err != nil || !habit.ValidMonth(m) {
		return 0, &habit.ValidationError{Field: "month", Message: "must be an integer 0-11"}
	}
	return m, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps session and codec errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case habit.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Habit not found", err)
	case persist.IsFormatError(err):
		resp := ErrorResponse{Error: "Invalid backup file", Code: "FORMAT_ERROR", Details: err.Error()}
		writeJSON(w, http.StatusBadRequest, resp)
	case habit.IsClientError(err):
		resp := ErrorResponse{Error: "Validation failed", Code: "VALIDATION_ERROR", Details: err.Error()}
		writeJSON(w, http.StatusBadRequest, resp)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
