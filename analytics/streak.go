package analytics

import "github.com/warp/zenhabit/habit"

// CurrentStreak counts consecutive completed days walking backward from the
// last day of month through January 1st. It stops at the first incomplete
// day, so a missed final day yields 0.
func CurrentStreak(h habit.Habit, month int) int {
	if !habit.ValidMonth(month) {
		return 0
	}
	streak := 0
	for m := month; m >= 0; m-- {
		for d := habit.DaysInMonth[m] - 1; d >= 0; d-- {
			if !done(h, m, d) {
				return streak
			}
			streak++
		}
	}
	return streak
}

// LongestStreak is the longest run of completed days anywhere in the year.
// Runs continue across month boundaries.
func LongestStreak(h habit.Habit) int {
	longest, run := 0, 0
	for m, days := range habit.DaysInMonth {
		for d := 0; d < days; d++ {
			if done(h, m, d) {
				run++
				if run > longest {
					longest = run
				}
				continue
			}
			run = 0
		}
	}
	return longest
}

// MaxStreak is the longest streak of any habit.
func MaxStreak(habits []habit.Habit) int {
	best := 0
	for _, h := range habits {
		if s := LongestStreak(h); s > best {
			best = s
		}
	}
	return best
}
