package progress

import "github.com/empower-sl/learnhub/pkg/timeutil"

// ══════════════════════════════════════════════════════════════════════════════
// DAILY STREAK
// ══════════════════════════════════════════════════════════════════════════════

// StreakChange describes the outcome of one study-day transition.
type StreakChange struct {
	Old int
	New int
}

// Changed reports whether the streak value moved.
func (c StreakChange) Changed() bool {
	return c.Old != c.New
}

// RecordStudyDay applies the streak transition for a lesson studied on today
// (YYYY-MM-DD in the learner's time zone):
//
//	no previous day (or unreadable) -> 1
//	diff == 1                       -> +1
//	diff  > 1                       -> reset to 1
//	diff == 0                       -> unchanged
//	diff  < 0                       -> unchanged, lastStudyDate kept
//
// A negative diff means the clock moved backwards; the later date is kept so
// the next forward day still counts as consecutive.
func (p *UserProgress) RecordStudyDay(today string) StreakChange {
	change := StreakChange{Old: p.DailyStreak}

	if p.LastStudyDate == "" {
		p.DailyStreak = 1
		p.LastStudyDate = today
		change.New = p.DailyStreak
		return change
	}

	diff, err := timeutil.DaysBetween(p.LastStudyDate, today)
	switch {
	case err != nil:
		p.DailyStreak = 1
	case diff < 0:
		change.New = p.DailyStreak
		return change
	case diff == 1:
		p.DailyStreak++
	case diff > 1:
		p.DailyStreak = 1
	}

	p.LastStudyDate = today
	change.New = p.DailyStreak
	return change
}
