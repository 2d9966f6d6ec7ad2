package progress

import "time"

// nextStreak applies the daily streak rule. It reports the new streak and
// whether lastActive should move to now.
//
//   - same calendar day: streak unchanged, timestamp refreshed
//   - previous calendar day: streak + 1
//   - earlier: streak restarts at 1
//   - lastActive in the future: nothing changes
func nextStreak(streak int, lastActive, now time.Time, loc *time.Location) (int, bool) {
	lastDay := midnight(lastActive.In(loc))
	today := midnight(now.In(loc))

	switch {
	case lastDay.Equal(today):
		return streak, true
	case lastDay.AddDate(0, 0, 1).Equal(today):
		return streak + 1, true
	case lastDay.Before(today):
		return 1, true
	default:
		return streak, false
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
