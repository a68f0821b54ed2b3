package utils

import "time"

// ExchangeLocation returns the exchange's local time zone. Falls back to UTC
// if the tz database is unavailable, which only widens the polling window.
func ExchangeLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}
