/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Habit CRUD, toggles and error status mapping
- Month navigation and reflections
- Analytics endpoints
- Export / import / reset
- Coach fallback and auth session
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/zenhabit/coach"
	"github.com/warp/zenhabit/habit"
	"github.com/warp/zenhabit/metrics"
	"github.com/warp/zenhabit/persist"
	"github.com/warp/zenhabit/session"
	"github.com/warp/zenhabit/store/sqlite"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

// =============================================================================
// TEST SETUP
// =============================================================================

var sept3 = time.Date(2026, time.September, 3, 12, 0, 0, 0, time.UTC)

type cannedAdvisor struct {
	text string
	err  error
}

func (c cannedAdvisor) Advise(context.Context, coach.Request) (string, error) {
	return c.text, c.err
}

type testServer struct {
	t       *testing.T
	router  http.Handler
	store   *sqlite.Store
	session *session.Session
}

func newTestServer(t *testing.T, advisor coach.Advisor) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	m := metrics.New()
	now := func() time.Time { return sept3 }
	adapter := persist.NewAdapter(persist.Options{
		Snapshots: store,
		Remote:    store,
		Debounce:  time.Hour,
		Year:      2026,
		Now:       now,
		Logger:    logger,
		Metrics:   m,
	})
	sess := session.New(context.Background(), session.Options{Adapter: adapter, Now: now, Logger: logger, Metrics: m})
	t.Cleanup(func() {
		_ = sess.Close(context.Background())
		store.Close()
	})

	h := NewHandler(sess, coach.New(advisor, time.Second, logger, m), true, logger)
	h.Now = now
	return &testServer{
		t:       t,
		router:  NewRouter(h, RouterOptions{Metrics: m.Handler(), Logger: logger}),
		store:   store,
		session: sess,
	}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// STATE
// =============================================================================

func TestGetState(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(http.MethodGet, "/api/state", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[StateDTO](t, rec)
	assert.Equal(t, 2026, st.Year)
	assert.Equal(t, 8, st.CurrentMonth)
	assert.Equal(t, "September", st.MonthName)
	assert.Len(t, st.Habits, 15)
	assert.Len(t, st.Habits[0].Data, 12)
	assert.True(t, st.Status.RemoteEnabled)
}

func TestMonthNavigation(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(http.MethodPut, "/api/month", MonthRequest{Month: 99})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MonthDTO{Month: 11, Name: "December"}, decode[MonthDTO](t, rec))

	rec = srv.do(http.MethodPost, "/api/month/next", nil)
	assert.Equal(t, 11, decode[MonthDTO](t, rec).Month)

	rec = srv.do(http.MethodPost, "/api/month/prev", nil)
	assert.Equal(t, 10, decode[MonthDTO](t, rec).Month)

	rec = srv.do(http.MethodPost, "/api/month/today", nil)
	assert.Equal(t, 8, decode[MonthDTO](t, rec).Month)
}

// =============================================================================
// HABITS
// =============================================================================

func TestHabitLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	// Create
	rec := srv.do(http.MethodPost, "/api/habits", CreateHabitRequest{Name: "Piano", Category: "personal"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[HabitDTO](t, rec)
	assert.Equal(t, "Personal", created.Category)
	assert.Equal(t, "local", created.Origin)

	// Toggle Sept 1st twice-ish
	rec = srv.do(http.MethodPost, "/api/habits/"+created.ID+"/toggle", ToggleRequest{Month: 8, Day: 0})
	require.Equal(t, http.StatusOK, rec.Code)
	toggled := decode[HabitDTO](t, rec)
	assert.True(t, toggled.Data[8][0])
	assert.Equal(t, 0, toggled.CurrentStreak, "Sept 30 is not done")

	// Update
	rec = srv.do(http.MethodPut, "/api/habits/"+created.ID, UpdateHabitRequest{Name: "Guitar", Category: "Mind"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[HabitDTO](t, rec)
	assert.Equal(t, "Guitar", updated.Name)
	assert.True(t, updated.Data[8][0], "matrix survives updates")

	// Stats
	rec = srv.do(http.MethodGet, "/api/habits/"+created.ID+"/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[HabitStatsDTO](t, rec)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 365, stats.Total)
	assert.Equal(t, "0.3%", stats.AnnualLabel)
	assert.Len(t, stats.Months, 12)

	// Delete
	rec = srv.do(http.MethodDelete, "/api/habits/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = srv.do(http.MethodDelete, "/api/habits/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHabitErrors(t *testing.T) {
	srv := newTestServer(t, nil)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"empty name", http.MethodPost, "/api/habits", CreateHabitRequest{Name: "  ", Category: "Health"}, http.StatusBadRequest},
		{"unknown category", http.MethodPost, "/api/habits", CreateHabitRequest{Name: "x", Category: "Finance"}, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/habits", []byte("{"), http.StatusBadRequest},
		{"update missing", http.MethodPut, "/api/habits/nope", UpdateHabitRequest{Name: "x", Category: "Mind"}, http.StatusNotFound},
		{"toggle missing", http.MethodPost, "/api/habits/nope/toggle", ToggleRequest{}, http.StatusNotFound},
		{"toggle Feb 29", http.MethodPost, "/api/habits/1/toggle", ToggleRequest{Month: 1, Day: 28}, http.StatusBadRequest},
		{"stats missing", http.MethodGet, "/api/habits/nope/stats", nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := srv.do(tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
	assert.Len(t, srv.session.State().Habits, 15, "failed requests change nothing")
}

// =============================================================================
// REFLECTIONS
// =============================================================================

func TestReflections(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(http.MethodGet, "/api/reflections/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ReflectionDTO{Month: 2}, decode[ReflectionDTO](t, rec))

	rec = srv.do(http.MethodPut, "/api/reflections/2", SetReflectionRequest{Field: "improvements", Value: "less coffee"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ReflectionDTO{Month: 2, Improvements: "less coffee"}, decode[ReflectionDTO](t, rec))

	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodGet, "/api/reflections/12", nil).Code)
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodGet, "/api/reflections/may", nil).Code)
	assert.Equal(t, http.StatusBadRequest,
		srv.do(http.MethodPut, "/api/reflections/2", SetReflectionRequest{Field: "mood", Value: "x"}).Code)
}

// =============================================================================
// ANALYTICS
// =============================================================================

func TestAnalytics(t *testing.T) {
	srv := newTestServer(t, nil)
	for d := 0; d < 10; d++ {
		_, err := srv.session.Toggle("4", 8, d) // Mind
		require.NoError(t, err)
	}

	rec := srv.do(http.MethodGet, "/api/analytics/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[SummaryDTO](t, rec)
	assert.Equal(t, 10, summary.TotalCompleted)
	assert.Equal(t, 10, summary.MaxStreak)
	assert.Equal(t, "Mind", summary.BestCategory)
	assert.Equal(t, 15, summary.HabitCount)

	rec = srv.do(http.MethodGet, "/api/analytics/leaderboard", nil)
	board := decode[[]LeaderboardEntryDTO](t, rec)
	require.Len(t, board, 15)
	assert.Equal(t, "4", board[0].HabitID)
	assert.Equal(t, "1", board[1].HabitID, "ties keep display order")

	rec = srv.do(http.MethodGet, "/api/analytics/leaderboard?month=8", nil)
	monthBoard := decode[[]LeaderboardEntryDTO](t, rec)
	assert.Equal(t, 33.3, monthBoard[0].Rate)
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodGet, "/api/analytics/leaderboard?month=x", nil).Code)

	rec = srv.do(http.MethodGet, "/api/analytics/categories", nil)
	cats := decode[CategoriesResponse](t, rec)
	require.Len(t, cats.Categories, 4)
	assert.Equal(t, "Health", cats.Categories[0].Category)
	assert.Equal(t, "Mind", cats.Best)

	rec = srv.do(http.MethodGet, "/api/analytics/weekdays", nil)
	wd := decode[WeekdaysResponse](t, rec)
	assert.Equal(t, 15*261, wd.Weekday.Total)
	assert.Equal(t, 15*104, wd.Weekend.Total)
	require.Len(t, wd.Days, 7)
	assert.Equal(t, "Sun", wd.Days[0].Day)

	rec = srv.do(http.MethodGet, "/api/analytics/trend", nil)
	trend := decode[[]RatePointDTO](t, rec)
	require.Len(t, trend, 12)
	assert.Equal(t, 10, trend[8].Completed)

	rec = srv.do(http.MethodGet, "/api/analytics/heatmap", nil)
	heat := decode[HeatmapResponse](t, rec)
	require.Len(t, heat.Days, 12)
	assert.InDelta(t, 1.0/15.0, heat.Days[8][0], 1e-9)
}

// =============================================================================
// BACKUP
// =============================================================================

func TestExportImport(t *testing.T) {
	srv := newTestServer(t, nil)
	_, err := srv.session.Toggle("2", 0, 0)
	require.NoError(t, err)

	rec := srv.do(http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "zenhabit-backup-2026-09-03.json")
	exported := rec.Body.Bytes()

	other := newTestServer(t, nil)
	rec = other.do(http.MethodPost, "/api/import", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[StateDTO](t, rec).Habits[1].Data[0][0])

	rec = other.do(http.MethodPost, "/api/import", []byte(`{"habits":"nope"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FORMAT_ERROR", decode[ErrorResponse](t, rec).Code)
}

func TestReset(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := srv.do(http.MethodPost, "/api/habits", CreateHabitRequest{Name: "Extra", Category: "Career"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = srv.do(http.MethodPost, "/api/reset", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[StateDTO](t, rec).Habits, 15)
}

// =============================================================================
// COACH / AUTH
// =============================================================================

func TestCoach(t *testing.T) {
	ok := newTestServer(t, cannedAdvisor{text: "Keep going"})
	rec := ok.do(http.MethodPost, "/api/coach", CoachRequest{})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CoachResponse](t, rec)
	assert.Equal(t, "Keep going", resp.Text)
	assert.Equal(t, 8, resp.Month)
	assert.True(t, resp.Available)

	failing := newTestServer(t, cannedAdvisor{err: errors.New("quota")})
	rec = failing.do(http.MethodPost, "/api/coach", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, coach.FallbackText, decode[CoachResponse](t, rec).Text)

	none := newTestServer(t, nil)
	bad := 13
	assert.Equal(t, http.StatusBadRequest, none.do(http.MethodPost, "/api/coach", CoachRequest{Month: &bad}).Code)
	rec = none.do(http.MethodPost, "/api/coach", nil)
	assert.Equal(t, coach.UnavailableText, decode[CoachResponse](t, rec).Text)
}

func TestAuthSession(t *testing.T) {
	srv := newTestServer(t, nil)
	require.NoError(t, srv.store.InsertHabit(context.Background(), "carol", habit.Habit{
		ID: "r1", Name: "Swim", Category: habit.CategoryHealth, Data: habit.NewMatrix(),
	}))

	rec := srv.do(http.MethodPost, "/api/auth/session", SignInRequest{Owner: "carol"})
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[StateDTO](t, rec)
	require.Len(t, st.Habits, 1)
	assert.Equal(t, "remote", st.Habits[0].Origin)
	assert.Equal(t, "carol", st.Status.Owner)

	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodPost, "/api/auth/session", SignInRequest{}).Code)

	assert.Equal(t, http.StatusNoContent, srv.do(http.MethodDelete, "/api/auth/session", nil).Code)
	rec = srv.do(http.MethodGet, "/api/status", nil)
	assert.Empty(t, decode[StatusDTO](t, rec).Owner)
}

// =============================================================================
// INFRASTRUCTURE
// =============================================================================

func TestMetricsAndHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.do(http.MethodPost, "/api/habits/1/toggle", ToggleRequest{Month: 0, Day: 0})

	rec := srv.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `zenhabit_mutations_total{op="toggle"} 1`))

	rec = srv.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
