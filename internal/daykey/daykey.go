// Package daykey handles the YYYY-MM-DD day keys that partition the journal.
// A trading day runs from local midnight to the next local midnight in the
// configured timezone, so all conversions here take an explicit location.
package daykey

import (
	"fmt"
	"time"
)

// Layout is the canonical day key format.
const Layout = "2006-01-02"

// At returns the day key for the instant t in loc.
func At(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(Layout)
}

// Today returns the current day key in loc.
func Today(loc *time.Location) string {
	return At(time.Now(), loc)
}

// Window returns the half-open interval [start, end) covered by key in loc.
// End is the next local midnight, so the window absorbs DST transitions
// instead of assuming 24 hours.
func Window(key string, loc *time.Location) (start, end time.Time, err error) {
	d, err := time.ParseInLocation(Layout, key, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid day key %q: %w", key, err)
	}
	start = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	end = time.Date(d.Year(), d.Month(), d.Day()+1, 0, 0, 0, 0, loc)
	return start, end, nil
}

// AddDays shifts key by n calendar days (n may be negative).
func AddDays(key string, n int) (string, error) {
	d, err := time.Parse(Layout, key)
	if err != nil {
		return "", fmt.Errorf("invalid day key %q: %w", key, err)
	}
	return d.AddDate(0, 0, n).Format(Layout), nil
}

// Valid reports whether key is a well-formed day key.
func Valid(key string) bool {
	d, err := time.Parse(Layout, key)
	if err != nil {
		return false
	}
	return d.Format(Layout) == key
}
