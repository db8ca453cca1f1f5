package analytics

import (
	"sort"

	"github.com/warp/zenhabit/habit"
)

// CategoryStat is the aggregate of every habit in one category.
type CategoryStat struct {
	Category habit.Category
	Habits   int
	Tally    Tally
}

// ByCategory aggregates annual tallies per category, in fixed order.
// Categories with no habits are present with a zero tally.
func ByCategory(habits []habit.Habit) []CategoryStat {
	out := make([]CategoryStat, len(habit.Categories))
	for i, c := range habit.Categories {
		out[i].Category = c
		for _, h := range habits {
			if h.Category == c {
				out[i].Habits++
				out[i].Tally = out[i].Tally.Add(AnnualTally(h))
			}
		}
	}
	return out
}

// BestCategory returns the category with the highest completion ratio.
// Ties go to the earliest category in habit.Categories. Returns false when
// no category has any tracked days.
func BestCategory(habits []habit.Habit) (habit.Category, bool) {
	var (
		best     habit.Category
		bestRate float64
		found    bool
	)
	for _, stat := range ByCategory(habits) {
		if stat.Tally.Total == 0 {
			continue
		}
		if r := stat.Tally.Rate(); !found || r > bestRate {
			best, bestRate, found = stat.Category, r, true
		}
	}
	return best, found
}

// Entry is one row of a leaderboard.
type Entry struct {
	HabitID  string
	Name     string
	Category habit.Category
	Tally    Tally
}

// Rate is the entry's completion percentage.
func (e Entry) Rate() float64 {
	return e.Tally.Rate()
}

func rank(habits []habit.Habit, tally func(habit.Habit) Tally) []Entry {
	out := make([]Entry, len(habits))
	for i, h := range habits {
		out[i] = Entry{HabitID: h.ID, Name: h.Name, Category: h.Category, Tally: tally(h)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rate() > out[j].Rate()
	})
	return out
}

// Leaderboard orders habits by annual rate, highest first. Equal rates keep
// input order.
func Leaderboard(habits []habit.Habit) []Entry {
	return rank(habits, AnnualTally)
}

// MonthLeaderboard orders habits by their rate in one month.
func MonthLeaderboard(habits []habit.Habit, month int) []Entry {
	return rank(habits, func(h habit.Habit) Tally { return MonthTally(h, month) })
}
