package pause

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	clockHintRe    = regexp.MustCompile(`(?i)\b(?:resets?|available|try again)\b[^0-9]*?(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	durationHintRe = regexp.MustCompile(`(?i)\b(?:in|after)\s+(\d+)\s*(minutes?|mins?|hours?|hrs?|h|m)\b`)
	rfcHintRe      = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(?::\d{2})?(?:Z|[+-]\d{2}:\d{2})?`)
)

// ParseResetHint extracts a resume time from free-text tool output reporting
// quota exhaustion. It recognizes RFC3339 timestamps, relative durations
// ("try again in 2 hours"), and wall-clock times ("resets at 3pm"). Returns
// nil when nothing parseable is found; callers fall back to the fixed
// cooldown.
func ParseResetHint(output string, now time.Time) *time.Time {
	if g := rfcHintRe.FindString(output); g != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
			if t, err := time.Parse(layout, g); err == nil {
				return &t
			}
		}
	}

	if g := durationHintRe.FindStringSubmatch(output); g != nil {
		n, err := strconv.Atoi(g[1])
		if err == nil && n > 0 {
			unit := strings.ToLower(g[2])
			var d time.Duration
			if strings.HasPrefix(unit, "h") {
				d = time.Duration(n) * time.Hour
			} else {
				d = time.Duration(n) * time.Minute
			}
			t := now.Add(d)
			return &t
		}
	}

	if g := clockHintRe.FindStringSubmatch(output); g != nil {
		hour, err := strconv.Atoi(g[1])
		if err != nil || hour > 23 {
			return nil
		}
		minute := 0
		if g[2] != "" {
			minute, _ = strconv.Atoi(g[2])
		}
		switch strings.ToLower(g[3]) {
		case "pm":
			if hour < 12 {
				hour += 12
			}
		case "am":
			if hour == 12 {
				hour = 0
			}
		}
		t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		// A clock time already past today means tomorrow.
		if !t.After(now) {
			t = t.Add(24 * time.Hour)
		}
		return &t
	}

	return nil
}
