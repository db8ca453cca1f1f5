/*
Package coach produces free-text coaching for one month of habit data.

PURPOSE:
  Builds a prompt from the month's per-habit tallies, the overall month
  progress and the user's reflection, and hands it to an Advisor (Gemini in
  production). Coach.Insights never fails: when the advisor is missing or
  errors, a fixed fallback text is returned instead.

SEE ALSO:
  - gemini.go: Advisor backed by google.golang.org/genai
  - prompt.go: Prompt text
*/
package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/warp/zenhabit/analytics"
	"github.com/warp/zenhabit/habit"
	"github.com/warp/zenhabit/metrics"
	"go.uber.org/zap"
)

const (
	// FallbackText is returned when the advisor call fails.
	FallbackText = "I'm having trouble analyzing your data right now. Keep pushing forward, consistency is key!"

	// UnavailableText is returned when no advisor is configured.
	UnavailableText = "Coach is currently unavailable. Please check your connection."

	defaultTimeout = 45 * time.Second
)

// ErrExternalService is the root of advisor failures.
var ErrExternalService = errors.New("external service error")

// ExternalServiceError wraps a failed advisor call.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() []error {
	return []error{ErrExternalService, e.Err}
}

// HabitLine is one habit's performance for the month.
type HabitLine struct {
	Name     string
	Category habit.Category
	Tally    analytics.Tally
}

// Request is everything the advisor sees.
type Request struct {
	Year       int
	Month      int
	Progress   float64 // month completion percentage
	Habits     []HabitLine
	Reflection habit.Reflection
}

// NewRequest summarizes month m of s.
func NewRequest(s habit.State, month int) Request {
	month = habit.ClampMonth(month)
	lines := make([]HabitLine, len(s.Habits))
	for i, h := range s.Habits {
		lines[i] = HabitLine{Name: h.Name, Category: h.Category, Tally: analytics.MonthTally(h, month)}
	}
	return Request{
		Year:       s.Year,
		Month:      month,
		Progress:   analytics.MonthProgress(s.Habits, month),
		Habits:     lines,
		Reflection: habit.GetReflection(s, month),
	}
}

// Advisor turns a Request into coaching text.
type Advisor interface {
	Advise(ctx context.Context, req Request) (string, error)
}

// Coach wraps an Advisor with a timeout, metrics and the fallback text.
type Coach struct {
	advisor Advisor
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a coach. advisor may be nil, in which case every request
// gets UnavailableText.
func New(advisor Advisor, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Coach {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coach{advisor: advisor, timeout: timeout, logger: logger.Named("coach"), metrics: m}
}

// Available reports whether an advisor is configured.
func (c *Coach) Available() bool {
	return c.advisor != nil
}

// Insights returns coaching text for month m of s. It always returns
// displayable text.
func (c *Coach) Insights(ctx context.Context, s habit.State, month int) string {
	if c.advisor == nil {
		return UnavailableText
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := NewRequest(s, month)
	text, err := c.advisor.Advise(ctx, req)
	if err == nil && strings.TrimSpace(text) == "" {
		err = &ExternalServiceError{Service: "coach", Err: errors.New("empty response")}
	}
	c.metrics.CoachRequest(err)
	if err != nil {
		c.logger.Warn("coaching request failed",
			zap.String("month", habit.MonthNames[req.Month]),
			zap.Error(err))
		return FallbackText
	}
	return text
}
