package util

import (
	"time"

	"tradedesk/internal/domain"
)

// IsTradingDay reports whether t falls on a weekday. Market holidays are not
// tracked; the simulation calendar only excludes weekends.
func IsTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// TradingDays expands [start, end] inclusive into the ordered list of weekday
// dates, normalised to midnight UTC. Returns nil when end precedes start.
func TradingDays(start, end time.Time) []time.Time {
	start = Midnight(start)
	end = Midnight(end)

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// Midnight truncates t to its date in UTC.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(domain.DateLayout, s)
}
