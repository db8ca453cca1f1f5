/*
Package analytics computes derived views over habit completion data.

PURPOSE:
  Pure, side-effect-free aggregation: completion rates, streaks,
  weekday/weekend splits, category breakdowns and rankings. Every function
  reads its arguments only and may be called any number of times.

RATE FORMULA:
  rate = completed / total * 100
  When total == 0 the rate is 0. No function ever returns NaN.

ORDERING:
  Category-based results follow habit.Categories. Rankings use a stable
  sort so equal rates keep their input (display) order.

SEE ALSO:
  - streak.go: Current and longest streaks
  - calendar.go: Day-of-week classification
  - ranking.go: Leaderboards and best category
  - display.go: Percentage rounding for presentation
*/
package analytics

import "github.com/warp/zenhabit/habit"

// Tally is a completed/total pair of day counts.
type Tally struct {
	Completed int
	Total     int
}

// Add returns the element-wise sum.
func (t Tally) Add(o Tally) Tally {
	return Tally{Completed: t.Completed + o.Completed, Total: t.Total + o.Total}
}

// Rate is the completion percentage in [0,100].
func (t Tally) Rate() float64 {
	return Ratio(t.Completed, t.Total)
}

// Ratio returns completed/total*100, or 0 when total is 0.
func Ratio(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

func countTrue(row []bool) int {
	n := 0
	for _, v := range row {
		if v {
			n++
		}
	}
	return n
}

// =============================================================================
// SINGLE HABIT
// =============================================================================

// MonthTally counts one month of a habit. The total is the calendar length
// of the month, not the stored row length.
func MonthTally(h habit.Habit, month int) Tally {
	if !habit.ValidMonth(month) {
		return Tally{}
	}
	t := Tally{Total: habit.DaysInMonth[month]}
	if month < len(h.Data) {
		row := h.Data[month]
		if len(row) > t.Total {
			row = row[:t.Total]
		}
		t.Completed = countTrue(row)
	}
	return t
}

// MonthRate is the completion rate of one habit for one month.
func MonthRate(h habit.Habit, month int) float64 {
	return MonthTally(h, month).Rate()
}

// AnnualTally sums all twelve months of a habit.
func AnnualTally(h habit.Habit) Tally {
	var t Tally
	for m := 0; m < habit.MonthsInYear; m++ {
		t = t.Add(MonthTally(h, m))
	}
	return t
}

// AnnualRate is the completion rate of one habit for the whole year.
func AnnualRate(h habit.Habit) float64 {
	return AnnualTally(h).Rate()
}

// =============================================================================
// COLLECTIONS
// =============================================================================

// CollectionTally sums the annual tallies of every habit.
func CollectionTally(habits []habit.Habit) Tally {
	var t Tally
	for _, h := range habits {
		t = t.Add(AnnualTally(h))
	}
	return t
}

// CollectionAnnualRate is the annual rate across all habits.
func CollectionAnnualRate(habits []habit.Habit) float64 {
	return CollectionTally(habits).Rate()
}

// MonthProgressTally sums one month across all habits.
func MonthProgressTally(habits []habit.Habit, month int) Tally {
	var t Tally
	for _, h := range habits {
		t = t.Add(MonthTally(h, month))
	}
	return t
}

// MonthProgress is the completion rate of all habits for one month.
func MonthProgress(habits []habit.Habit, month int) float64 {
	return MonthProgressTally(habits, month).Rate()
}

// MonthPoint is one entry of the monthly trend.
type MonthPoint struct {
	Month int
	Name  string
	Tally Tally
}

// MonthlyTrend returns the all-habit completion for each month.
func MonthlyTrend(habits []habit.Habit) []MonthPoint {
	out := make([]MonthPoint, habit.MonthsInYear)
	for m := range out {
		out[m] = MonthPoint{
			Month: m,
			Name:  habit.MonthNames[m][:3],
			Tally: MonthProgressTally(habits, m),
		}
	}
	return out
}

// Heatmap returns, for every day of the year, the fraction of habits
// completed on that day (0..1). Rows follow habit.DaysInMonth.
func Heatmap(habits []habit.Habit) [][]float64 {
	out := make([][]float64, habit.MonthsInYear)
	for m, days := range habit.DaysInMonth {
		out[m] = make([]float64, days)
		if len(habits) == 0 {
			continue
		}
		for d := 0; d < days; d++ {
			active := 0
			for _, h := range habits {
				if done(h, m, d) {
					active++
				}
			}
			out[m][d] = float64(active) / float64(len(habits))
		}
	}
	return out
}

// MissedTwice reports whether day d and the day before it in the same month
// are both incomplete. Day 0 never qualifies.
func MissedTwice(h habit.Habit, month, day int) bool {
	if day < 1 || !habit.ValidDay(month, day) {
		return false
	}
	return !done(h, month, day) && !done(h, month, day-1)
}

func done(h habit.Habit, month, day int) bool {
	if month >= len(h.Data) || day >= len(h.Data[month]) {
		return false
	}
	return h.Data[month][day]
}

// =============================================================================
// SUMMARY
// =============================================================================

// NoCategory is shown when no category has any tracked days.
const NoCategory = "None"

// Summary bundles the headline numbers of the annual dashboard.
type Summary struct {
	AverageRate    float64
	TotalCompleted int
	MaxStreak      int
	BestCategory   string
	MonthProgress  float64
	HabitCount     int
}

// Summarize computes the dashboard KPIs for a state.
func Summarize(s habit.State) Summary {
	total := CollectionTally(s.Habits)
	best := NoCategory
	if c, ok := BestCategory(s.Habits); ok {
		best = string(c)
	}
	return Summary{
		AverageRate:    total.Rate(),
		TotalCompleted: total.Completed,
		MaxStreak:      MaxStreak(s.Habits),
		BestCategory:   best,
		MonthProgress:  MonthProgress(s.Habits, s.CurrentMonth),
		HabitCount:     len(s.Habits),
	}
}
