package progress

import "time"

// NextStreak returns the daily streak after a completion at now, given the
// streak and last completion instant before it. Days are calendar days in loc.
//
//   - no previous completion: 1
//   - previous completion yesterday: current + 1
//   - previous completion before yesterday: 1
//   - previous completion today: current (a second completion the same day
//     does not count twice), raised to 1 when a stored streak of 0 sits next
//     to a completion, since any completed profile has a streak of at least 1
func NextStreak(current int, last *time.Time, now time.Time, loc *time.Location) int {
	if last == nil {
		return 1
	}
	if loc == nil {
		loc = time.UTC
	}

	today := startOfDay(now, loc)
	yesterday := today.AddDate(0, 0, -1)
	lastDay := startOfDay(*last, loc)

	switch {
	case lastDay.Equal(yesterday):
		return current + 1
	case lastDay.Before(yesterday):
		return 1
	}

	// Same day, or a last completion stamped in the future by clock skew.
	if current < 1 {
		return 1
	}
	return current
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
