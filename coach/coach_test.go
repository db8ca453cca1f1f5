package coach_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/zenhabit/coach"
	"github.com/warp/zenhabit/habit"
	"github.com/warp/zenhabit/metrics"
	"go.uber.org/zap/zaptest"
)

// stubAdvisor records the request and returns a canned answer.
type stubAdvisor struct {
	text string
	err  error
	got  coach.Request
	wait bool
}

func (s *stubAdvisor) Advise(ctx context.Context, req coach.Request) (string, error) {
	s.got = req
	if s.wait {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.text, s.err
}

func aprilState(t *testing.T) habit.State {
	t.Helper()
	s := habit.DefaultState(2026, 3)
	for d := 0; d < 15; d++ {
		s, _ = habit.ToggleDay(s, "1", 3, d)
	}
	s, err := habit.SetReflection(s, 3, habit.FieldWins, "slept well")
	require.NoError(t, err)
	return s
}

func TestNewRequest(t *testing.T) {
	req := coach.NewRequest(aprilState(t), 3)

	assert.Equal(t, 2026, req.Year)
	assert.Equal(t, 3, req.Month)
	require.Len(t, req.Habits, 15)
	assert.Equal(t, 15, req.Habits[0].Tally.Completed)
	assert.Equal(t, 30, req.Habits[0].Tally.Total)
	assert.InDelta(t, 15.0/450.0*100, req.Progress, 1e-9)
	assert.Equal(t, "slept well", req.Reflection.Wins)
}

func TestBuildPrompt(t *testing.T) {
	prompt := coach.BuildPrompt(coach.NewRequest(aprilState(t), 3))

	assert.Contains(t, prompt, "for April 2026")
	assert.Contains(t, prompt, "Overall Completion: 3.3%")
	assert.Contains(t, prompt, "7h+ Quality Sleep (Health): 15/30 days")
	assert.Contains(t, prompt, "Wins: slept well")
	assert.Contains(t, prompt, "Improvements: None listed")
	assert.Contains(t, prompt, "Return as Markdown.")
}

func TestInsights_Success(t *testing.T) {
	m := metrics.New()
	advisor := &stubAdvisor{text: "## Great month"}
	c := coach.New(advisor, time.Second, zaptest.NewLogger(t), m)

	text := c.Insights(context.Background(), aprilState(t), 3)

	assert.Equal(t, "## Great month", text)
	assert.Equal(t, 3, advisor.got.Month)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CoachRequestsTotal.WithLabelValues("ok")))
}

func TestInsights_FailureFallsBack(t *testing.T) {
	cases := map[string]*stubAdvisor{
		"error":          {err: &coach.ExternalServiceError{Service: "gemini", Err: errors.New("quota")}},
		"empty response": {text: "   "},
		"timeout":        {wait: true},
	}
	for name, advisor := range cases {
		t.Run(name, func(t *testing.T) {
			m := metrics.New()
			c := coach.New(advisor, 20*time.Millisecond, zaptest.NewLogger(t), m)

			text := c.Insights(context.Background(), aprilState(t), 3)

			assert.Equal(t, coach.FallbackText, text)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.CoachRequestsTotal.WithLabelValues("error")))
		})
	}
}

func TestInsights_NoAdvisor(t *testing.T) {
	c := coach.New(nil, 0, nil, nil)
	assert.False(t, c.Available())
	assert.Equal(t, coach.UnavailableText, c.Insights(context.Background(), habit.DefaultState(2026, 0), 0))
}

func TestExternalServiceError(t *testing.T) {
	cause := errors.New("503")
	err := error(&coach.ExternalServiceError{Service: "gemini", Err: cause})

	assert.ErrorIs(t, err, coach.ErrExternalService)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "gemini: 503", err.Error())
}

func TestNewGeminiAdvisor_RequiresKey(t *testing.T) {
	_, err := coach.NewGeminiAdvisor(context.Background(), "", "")
	assert.Error(t, err)
}
