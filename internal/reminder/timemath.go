package reminder

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// Key identifies the set of timers armed for one user's calendar day.
type Key string

// KeyFor builds the key for userID on the UTC calendar day of date.
func KeyFor(userID int, date time.Time) Key {
	return Key(fmt.Sprintf("%d-%s", userID, date.UTC().Format("2006-01-02")))
}

// EventInstant combines the UTC calendar day of date with a local "HH:MM"
// wall-clock time, offsetMinutes east of UTC. Unparseable hour or minute
// components count as zero, so a malformed time degrades to local midnight.
func EventInstant(date time.Time, hhmm string, offsetMinutes int) time.Time {
	h, m := parseClock(hhmm)
	d := date.UTC()
	wall := time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, time.UTC)
	return wall.Add(-time.Duration(offsetMinutes) * time.Minute)
}

func parseClock(hhmm string) (hour, minute int) {
	parts := strings.Split(hhmm, ":")
	hour, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	if len(parts) > 1 {
		minute, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return hour, minute
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// WithinLookahead reports whether instant lies in
// [start of today UTC, start of today UTC + days], both ends inclusive.
func WithinLookahead(now, instant time.Time, days int) bool {
	start := StartOfDay(now)
	end := start.AddDate(0, 0, days)
	return !instant.Before(start) && !instant.After(end)
}

// DateLabel formats the entry date the way reminder mails show it (D/M/YYYY).
func DateLabel(date time.Time) string {
	return date.UTC().Format("2/1/2006")
}
