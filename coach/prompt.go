package coach

import (
	"fmt"
	"strings"

	"github.com/warp/zenhabit/habit"
)

const noneListed = "None listed"

// BuildPrompt renders req as the coaching prompt.
func BuildPrompt(req Request) string {
	var habits strings.Builder
	for i, h := range req.Habits {
		if i > 0 {
			habits.WriteString("\n")
		}
		fmt.Fprintf(&habits, "%s (%s): %d/%d days", h.Name, h.Category, h.Tally.Completed, h.Tally.Total)
	}

	var b strings.Builder
	b.WriteString("Act as a world-class Data Analyst and Productivity Coach.\n")
	fmt.Fprintf(&b, "Analyze the following habit tracking data for %s %d:\n\n", habit.MonthNames[habit.ClampMonth(req.Month)], req.Year)
	fmt.Fprintf(&b, "Overall Completion: %.1f%%\n\n", req.Progress)
	b.WriteString("Individual Habit Performance:\n")
	b.WriteString(habits.String())
	b.WriteString("\n\nUser Reflection:\n")
	fmt.Fprintf(&b, "Wins: %s\n", orNone(req.Reflection.Wins))
	fmt.Fprintf(&b, "Improvements: %s\n\n", orNone(req.Reflection.Improvements))
	b.WriteString("Please provide:\n")
	b.WriteString("1. A concise analysis of their performance.\n")
	b.WriteString("2. Identification of the 'weakest link' category.\n")
	b.WriteString("3. Three high-impact, actionable coaching tips to maintain momentum.\n")
	b.WriteString("4. A motivational closing statement.\n\n")
	b.WriteString("Keep the tone professional, encouraging, and data-driven. Return as Markdown.\n")
	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return noneListed
	}
	return s
}
