/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model (package habit, package analytics) from the wire
  contract. Rates are percentages rounded to one decimal; the matching
  *Label fields carry the display string ("27.4%").

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done by the session and the reducers, not in DTOs. DTOs
  are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/zenhabit/analytics"
	"github.com/warp/zenhabit/habit"
	"github.com/warp/zenhabit/persist"
)

// =============================================================================
// HABITS
// =============================================================================

// HabitDTO is a habit with its headline numbers for the viewed month.
type HabitDTO struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Origin        string   `json:"origin"`
	Data          [][]bool `json:"data"`
	MonthRate     float64  `json:"monthRate"`
	AnnualRate    float64  `json:"annualRate"`
	CurrentStreak int      `json:"currentStreak"`
	MissedTwice   []int    `json:"missedTwice"` // days of the viewed month
}

// CreateHabitRequest is the body of POST /api/habits.
type CreateHabitRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// UpdateHabitRequest is the body of PUT /api/habits/{id}.
type UpdateHabitRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ToggleRequest is the body of POST /api/habits/{id}/toggle.
type ToggleRequest struct {
	Month int `json:"month"`
	Day   int `json:"day"`
}

// HabitStatsDTO is the per-habit drill-down.
type HabitStatsDTO struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	AnnualRate    float64        `json:"annualRate"`
	AnnualLabel   string         `json:"annualLabel"`
	Completed     int            `json:"completed"`
	Total         int            `json:"total"`
	CurrentStreak int            `json:"currentStreak"`
	LongestStreak int            `json:"longestStreak"`
	Months        []RatePointDTO `json:"months"`
}

// RatePointDTO is one month of a series.
type RatePointDTO struct {
	Month     int     `json:"month"`
	Name      string  `json:"name"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Rate      float64 `json:"rate"`
}

func toHabitDTO(h habit.Habit, month int) HabitDTO {
	missed := []int{}
	for d := 0; d < habit.DaysInMonth[month]; d++ {
		if analytics.MissedTwice(h, month, d) {
			missed = append(missed, d)
		}
	}
	return HabitDTO{
		ID:            h.ID,
		Name:          h.Name,
		Category:      string(h.Category),
		Origin:        string(h.Origin),
		Data:          h.Data,
		MonthRate:     analytics.Round(analytics.MonthRate(h, month), 1),
		AnnualRate:    analytics.Round(analytics.AnnualRate(h), 1),
		CurrentStreak: analytics.CurrentStreak(h, month),
		MissedTwice:   missed,
	}
}

func toHabitDTOs(s habit.State) []HabitDTO {
	dtos := make([]HabitDTO, len(s.Habits))
	for i, h := range s.Habits {
		dtos[i] = toHabitDTO(h, s.CurrentMonth)
	}
	return dtos
}

func toRatePoint(month int, t analytics.Tally) RatePointDTO {
	return RatePointDTO{
		Month:     month,
		Name:      habit.MonthNames[month][:3],
		Completed: t.Completed,
		Total:     t.Total,
		Rate:      analytics.Round(t.Rate(), 1),
	}
}

// =============================================================================
// STATE
// =============================================================================

// StateDTO is the whole tracker as the UI needs it.
type StateDTO struct {
	Year          int           `json:"year"`
	CurrentMonth  int           `json:"currentMonth"`
	MonthName     string        `json:"monthName"`
	MonthProgress float64       `json:"monthProgress"`
	Habits        []HabitDTO    `json:"habits"`
	Reflection    ReflectionDTO `json:"reflection"` // of the viewed month
	Status        StatusDTO     `json:"status"`
}

// StatusDTO is the sync indicator and auth session.
type StatusDTO struct {
	State         string     `json:"state"` // saved | saving | error
	LastError     string     `json:"lastError,omitempty"`
	LastSavedAt   *time.Time `json:"lastSavedAt,omitempty"`
	Owner         string     `json:"owner,omitempty"`
	RemoteEnabled bool       `json:"remoteEnabled"`
}

// MonthRequest is the body of PUT /api/month.
type MonthRequest struct {
	Month int `json:"month"`
}

// MonthDTO reports the viewed month after navigation.
type MonthDTO struct {
	Month int    `json:"month"`
	Name  string `json:"name"`
}

func toMonthDTO(m int) MonthDTO {
	return MonthDTO{Month: m, Name: habit.MonthNames[m]}
}

func toStatusDTO(st persist.Status, owner string, remote bool) StatusDTO {
	dto := StatusDTO{
		State:         string(st.State),
		LastError:     st.LastError,
		Owner:         owner,
		RemoteEnabled: remote,
	}
	if !st.LastSavedAt.IsZero() {
		t := st.LastSavedAt
		dto.LastSavedAt = &t
	}
	return dto
}

// =============================================================================
// REFLECTIONS
// =============================================================================

// ReflectionDTO is one month's notes.
type ReflectionDTO struct {
	Month        int    `json:"month"`
	Wins         string `json:"wins"`
	Improvements string `json:"improvements"`
}

// SetReflectionRequest is the body of PUT /api/reflections/{month}.
type SetReflectionRequest struct {
	Field string `json:"field"` // wins | improvements
	Value string `json:"value"`
}

func toReflectionDTO(month int, r habit.Reflection) ReflectionDTO {
	return ReflectionDTO{Month: month, Wins: r.Wins, Improvements: r.Improvements}
}

// =============================================================================
// ANALYTICS
// =============================================================================

// SummaryDTO is the dashboard KPI row.
type SummaryDTO struct {
	AverageRate    float64 `json:"averageRate"`
	AverageLabel   string  `json:"averageLabel"`
	TotalCompleted int     `json:"totalCompleted"`
	MaxStreak      int     `json:"maxStreak"`
	BestCategory   string  `json:"bestCategory"`
	MonthProgress  float64 `json:"monthProgress"`
	HabitCount     int     `json:"habitCount"`
}

func toSummaryDTO(s analytics.Summary) SummaryDTO {
	return SummaryDTO{
		AverageRate:    analytics.Round(s.AverageRate, 1),
		AverageLabel:   analytics.FormatPercent(s.AverageRate),
		TotalCompleted: s.TotalCompleted,
		MaxStreak:      s.MaxStreak,
		BestCategory:   s.BestCategory,
		MonthProgress:  analytics.Round(s.MonthProgress, 1),
		HabitCount:     s.HabitCount,
	}
}

// LeaderboardEntryDTO is one row of a ranking.
type LeaderboardEntryDTO struct {
	Rank      int     `json:"rank"`
	HabitID   string  `json:"habitId"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Rate      float64 `json:"rate"`
	Label     string  `json:"label"`
}

func toLeaderboard(entries []analytics.Entry) []LeaderboardEntryDTO {
	dtos := make([]LeaderboardEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = LeaderboardEntryDTO{
			Rank:      i + 1,
			HabitID:   e.HabitID,
			Name:      e.Name,
			Category:  string(e.Category),
			Completed: e.Tally.Completed,
			Total:     e.Tally.Total,
			Rate:      analytics.Round(e.Rate(), 1),
			Label:     analytics.FormatPercent(e.Rate()),
		}
	}
	return dtos
}

// CategoryDTO is one category's annual aggregate and weekday split.
type CategoryDTO struct {
	Category    string  `json:"category"`
	Habits      int     `json:"habits"`
	Completed   int     `json:"completed"`
	Total       int     `json:"total"`
	Rate        float64 `json:"rate"`
	WeekdayRate float64 `json:"weekdayRate"`
	WeekendRate float64 `json:"weekendRate"`
}

// CategoriesResponse lists the categories in fixed order.
type CategoriesResponse struct {
	Categories []CategoryDTO `json:"categories"`
	Best       string        `json:"best"`
}

// WeekdaysResponse is the weekday/weekend split plus Sun..Sat rates.
type WeekdaysResponse struct {
	WeekdayRate float64      `json:"weekdayRate"`
	WeekendRate float64      `json:"weekendRate"`
	Weekday     TallyDTO     `json:"weekday"`
	Weekend     TallyDTO     `json:"weekend"`
	Days        []DayRateDTO `json:"days"`
}

// TallyDTO is a completed/total pair.
type TallyDTO struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// DayRateDTO is one day of the week.
type DayRateDTO struct {
	Day     string  `json:"day"`
	Weekend bool    `json:"weekend"`
	Rate    float64 `json:"rate"`
}

// HeatmapResponse holds per-day completion fractions, one row per month.
type HeatmapResponse struct {
	Year int         `json:"year"`
	Days [][]float64 `json:"days"`
}

// =============================================================================
// AUTH / COACH / IMPORT
// =============================================================================

// SignInRequest is the body of POST /api/auth/session. Authentication is
// done elsewhere; the caller passes the resulting owner id.
type SignInRequest struct {
	Owner string `json:"owner"`
}

// CoachRequest is the optional body of POST /api/coach.
type CoachRequest struct {
	Month *int `json:"month,omitempty"` // defaults to the viewed month
}

// CoachResponse carries the coaching text (Markdown).
type CoachResponse struct {
	Month     int    `json:"month"`
	Text      string `json:"text"`
	Available bool   `json:"available"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
