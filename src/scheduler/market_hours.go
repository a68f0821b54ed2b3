package scheduler

import "time"

const (
	marketOpenMinute  = 9*60 + 30  // 09:30
	marketCloseMinute = 16*60 + 15 // 16:15, includes the post-close settle window
)

// MarketOpen reports whether t, already converted to the exchange's local
// time zone, falls within Monday–Friday 09:30–16:15. Scheduled polls outside
// this window are skipped; forced polls ignore it.
func MarketOpen(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	minute := t.Hour()*60 + t.Minute()
	return minute >= marketOpenMinute && minute <= marketCloseMinute
}
