package model

import "time"

const day = 24 * time.Hour

// InWindow reports whether t falls in the trailing window of the given number
// of days ending at now, both ends inclusive.
func InWindow(t, now time.Time, days int) bool {
	start := now.Add(-time.Duration(days) * day)
	return !t.Before(start) && !t.After(now)
}
