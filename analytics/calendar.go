package analytics

import (
	"time"

	"github.com/warp/zenhabit/habit"
)

// Weekday classifies calendar day d+1 of month m in year.
func Weekday(year, month, day int) time.Weekday {
	return time.Date(year, time.Month(month+1), day+1, 0, 0, 0, 0, time.UTC).Weekday()
}

// IsWeekend reports Saturday and Sunday.
func IsWeekend(wd time.Weekday) bool {
	return wd == time.Saturday || wd == time.Sunday
}

// Split separates weekday and weekend tallies.
type Split struct {
	Weekday Tally
	Weekend Tally
}

// Total is the combined tally.
func (s Split) Total() Tally {
	return s.Weekday.Add(s.Weekend)
}

func splitHabit(year int, h habit.Habit, into *Split) {
	for m, days := range habit.DaysInMonth {
		for d := 0; d < days; d++ {
			bucket := &into.Weekday
			if IsWeekend(Weekday(year, m, d)) {
				bucket = &into.Weekend
			}
			bucket.Total++
			if done(h, m, d) {
				bucket.Completed++
			}
		}
	}
}

// WeekdaySplit aggregates all habits into weekday and weekend tallies.
func WeekdaySplit(year int, habits []habit.Habit) Split {
	var s Split
	for _, h := range habits {
		splitHabit(year, h, &s)
	}
	return s
}

// CategorySplit is the weekday/weekend split of one category.
type CategorySplit struct {
	Category habit.Category
	Split    Split
}

// WeekdaySplitByCategory returns one split per category in fixed order.
func WeekdaySplitByCategory(year int, habits []habit.Habit) []CategorySplit {
	out := make([]CategorySplit, len(habit.Categories))
	for i, c := range habit.Categories {
		out[i].Category = c
		for _, h := range habits {
			if h.Category == c {
				splitHabit(year, h, &out[i].Split)
			}
		}
	}
	return out
}

// DayRate is the tally for one day of the week.
type DayRate struct {
	Day     time.Weekday
	Name    string
	Weekend bool
	Tally   Tally
}

// DayOfWeekRates returns Sunday..Saturday tallies across all habits.
func DayOfWeekRates(year int, habits []habit.Habit) []DayRate {
	out := make([]DayRate, 7)
	for i := range out {
		wd := time.Weekday(i)
		out[i] = DayRate{Day: wd, Name: wd.String()[:3], Weekend: IsWeekend(wd)}
	}
	for _, h := range habits {
		for m, days := range habit.DaysInMonth {
			for d := 0; d < days; d++ {
				r := &out[Weekday(year, m, d)]
				r.Tally.Total++
				if done(h, m, d) {
					r.Tally.Completed++
				}
			}
		}
	}
	return out
}
