// Package budget converts usage snapshots into a discrete work-intensity
// mode and a project rotation recommendation.
package budget

import (
	"regexp"
	"strconv"
	"strings"
)

// SafetyMargin is subtracted from the remaining quota estimate before mode
// selection, absorbing noise in the externally reported percentages.
const SafetyMargin = 10.0

// Mode is the work-intensity band chosen from remaining budget.
type Mode string

const (
	ModeWait      Mode = "wait"
	ModeReview    Mode = "review"
	ModeImplement Mode = "implement"
	ModeDeep      Mode = "deep"
)

// Snapshot is one reading of quota consumption. SessionPct and WeeklyPct are
// percentages of the rolling session and weekly quota windows.
type Snapshot struct {
	SessionPct float64
	WeeklyPct  float64
}

// Available returns the remaining budget percentage after the safety
// margin, clamped to [0,100].
func (s Snapshot) Available() float64 {
	used := s.SessionPct
	if s.WeeklyPct > used {
		used = s.WeeklyPct
	}
	avail := 100 - used - SafetyMargin
	if avail < 0 {
		return 0
	}
	if avail > 100 {
		return 100
	}
	return avail
}

// DecideMode maps available budget to a mode. The bands are monotonic: a
// higher available percentage never yields a less intensive mode.
func DecideMode(available float64) Mode {
	switch {
	case available < 5:
		return ModeWait
	case available < 15:
		return ModeReview
	case available < 40:
		return ModeImplement
	default:
		return ModeDeep
	}
}

// Rotation returns the recommended project index for an iteration when no
// mission or tag disambiguates the choice. Round-robin over the iteration
// counter guarantees fairness without shared cross-iteration state.
func Rotation(iteration, projectCount int) int {
	if projectCount <= 0 {
		return 0
	}
	return iteration % projectCount
}

var usageLineRe = regexp.MustCompile(`(?i)^\s*(session|weekly)\b[^0-9]*([0-9]+(?:\.[0-9]+)?)\s*%?`)

// ParseUsageFile extracts session and weekly percentages from the plain-text
// usage file. Lines that don't match are ignored; missing values stay zero.
// The file is tool- or human-updated between iterations and may be stale.
func ParseUsageFile(content string) Snapshot {
	var snap Snapshot
	for _, line := range strings.Split(content, "\n") {
		g := usageLineRe.FindStringSubmatch(line)
		if g == nil {
			continue
		}
		v, err := strconv.ParseFloat(g[2], 64)
		if err != nil {
			continue
		}
		switch strings.ToLower(g[1]) {
		case "session":
			snap.SessionPct = v
		case "weekly":
			snap.WeeklyPct = v
		}
	}
	return snap
}
