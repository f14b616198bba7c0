package timeutil

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SameDay reports whether a and b fall on the same calendar day.
// Both times are compared in their own locations; callers normalize first.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// SameYearMonth reports whether a and b fall in the same year and month.
func SameYearMonth(a, b time.Time) bool {
	ay, am, _ := a.Date()
	by, bm, _ := b.Date()
	return ay == by && am == bm
}

// HHMM formats t as a 24-hour "HH:MM" wall-clock string.
func HHMM(t time.Time) string {
	return t.Format("15:04")
}

// NextToday returns today at hour:min in now's location. If that instant has
// already passed relative to now, it is rolled forward by exactly one day.
func NextToday(hour, min int, now time.Time) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
	if at.Before(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

var (
	re24h = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)
	re12h = regexp.MustCompile(`(?i)^(1[0-2]|0?[1-9]):([0-5]\d)\s?(am|pm)$`)
)

// ErrBadClock is returned by ParseClock for anything outside the four
// accepted formats.
var ErrBadClock = errors.New("unrecognized clock time")

// ParseClock parses a clock time in exactly one of four strict formats:
// "HH:mm", "H:mm", "h:mm AM" and "h:mmam" (meridiem case-insensitive).
// Partial or ambiguous inputs are rejected rather than guessed at.
func ParseClock(s string) (hour, min int, err error) {
	if m := re12h.FindStringSubmatch(s); m != nil {
		hour, _ = strconv.Atoi(m[1])
		min, _ = strconv.Atoi(m[2])
		pm := strings.EqualFold(m[3], "pm")
		if hour == 12 {
			hour = 0
		}
		if pm {
			hour += 12
		}
		return hour, min, nil
	}
	if m := re24h.FindStringSubmatch(s); m != nil {
		hour, _ = strconv.Atoi(m[1])
		min, _ = strconv.Atoi(m[2])
		return hour, min, nil
	}
	return 0, 0, ErrBadClock
}
