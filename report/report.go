// Package report renders a terminal summary of the tracker with lipgloss.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/warp/zenhabit/analytics"
	"github.com/warp/zenhabit/habit"
)

var (
	cPrimary = lipgloss.Color("63")  // indigo
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cMuted   = lipgloss.Color("244") // gray
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Panel = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
)

const barWidth = 20

// Render returns the month view (habits, streaks, reflection) followed by
// the annual dashboard.
func Render(s habit.State, month int) string {
	month = habit.ClampMonth(month)
	var b strings.Builder

	fmt.Fprintln(&b, Title.Render(fmt.Sprintf("ZenHabit %d · %s", s.Year, habit.MonthNames[month])))
	fmt.Fprintln(&b, labelValue("Month progress", analytics.FormatPercent(analytics.MonthProgress(s.Habits, month))))
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, H2.Render("Habits"))
	nameWidth := 0
	for _, h := range s.Habits {
		nameWidth = max(nameWidth, lipgloss.Width(h.Name))
	}
	for _, h := range s.Habits {
		rate := analytics.MonthRate(h, month)
		streak := analytics.CurrentStreak(h, month)
		line := fmt.Sprintf("%-*s %s %6s", nameWidth, h.Name, bar(rate), analytics.FormatPercent(rate))
		if streak > 0 {
			line += " " + Good.Render(fmt.Sprintf("🔥%d", streak))
		}
		fmt.Fprintln(&b, line)
	}
	fmt.Fprintln(&b)

	r := habit.GetReflection(s, month)
	fmt.Fprintln(&b, Panel.Render(strings.Join([]string{
		H2.Render("Reflection"),
		labelValue("Wins", orDash(r.Wins)),
		labelValue("Improvements", orDash(r.Improvements)),
	}, "\n")))
	fmt.Fprintln(&b)

	sum := analytics.Summarize(s)
	split := analytics.WeekdaySplit(s.Year, s.Habits)
	fmt.Fprintln(&b, H2.Render("Year at a glance"))
	fmt.Fprintln(&b, labelValue("Average rate", analytics.FormatPercent(sum.AverageRate)))
	fmt.Fprintln(&b, labelValue("Total completions", sum.TotalCompleted))
	fmt.Fprintln(&b, labelValue("Longest streak", fmt.Sprintf("%d days", sum.MaxStreak)))
	fmt.Fprintln(&b, labelValue("Best category", sum.BestCategory))
	fmt.Fprintln(&b, labelValue("Weekdays", analytics.FormatPercent(split.Weekday.Rate())))
	fmt.Fprintln(&b, labelValue("Weekends", analytics.FormatPercent(split.Weekend.Rate())))

	board := analytics.Leaderboard(s.Habits)
	if len(board) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, H2.Render("Top habits"))
		for i, e := range board[:min(3, len(board))] {
			fmt.Fprintf(&b, "%d. %s %s\n", i+1, e.Name, Muted.Render(analytics.FormatPercent(e.Rate())))
		}
	}
	return b.String()
}

func labelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return Muted.Render("-")
	}
	return s
}

// bar draws rate (0-100) as a fixed-width bar.
func bar(rate float64) string {
	filled := int(analytics.Round(rate/100*barWidth, 0))
	filled = min(max(filled, 0), barWidth)
	style := Warn
	if rate >= 50 {
		style = Good
	}
	return style.Render(strings.Repeat("█", filled)) + Muted.Render(strings.Repeat("░", barWidth-filled))
}
