package queue

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Status of a mission within the queue file.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Recurrence of a mission. Recurring missions are re-enqueued on completion
// with a computed next-due time.
type Recurrence string

const (
	RecurNone   Recurrence = ""
	RecurHourly Recurrence = "hourly"
	RecurDaily  Recurrence = "daily"
	RecurWeekly Recurrence = "weekly"
)

// Mission is one unit of requested work: a single line of free text with
// optional project, recurrence, and due-time tags. A struck-through line is
// already resolved and never claimed.
type Mission struct {
	Text       string
	Project    string // "" means untagged: default project / rotation decides
	Status     Status
	Recurrence Recurrence
	NotBefore  time.Time // zero means due now
	Resolved   bool      // struck through in the file
}

var (
	projectTagRe = regexp.MustCompile(`^\[project:([^\]\s]+)\]\s*`)
	recurTagRe   = regexp.MustCompile(`^\[recur:(hourly|daily|weekly)\]\s*`)
	dueTagRe     = regexp.MustCompile(`^\[due:([^\]]+)\]\s*`)
)

// parseMissionLine parses one dash-prefixed line into a Mission. Returns
// false for lines that aren't missions (blank, prose, headers).
func parseMissionLine(line string, status Status) (Mission, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "-") {
		return Mission{}, false
	}
	body := strings.TrimSpace(strings.TrimPrefix(trimmed, "-"))
	if body == "" {
		return Mission{}, false
	}

	m := Mission{Status: status}

	if strings.HasPrefix(body, "~~") && strings.HasSuffix(body, "~~") && len(body) > 4 {
		m.Resolved = true
		body = strings.TrimSpace(body[2 : len(body)-2])
	}

	// Tags may appear in any order at the start of the line.
	for {
		if g := projectTagRe.FindStringSubmatch(body); g != nil {
			m.Project = g[1]
			body = body[len(g[0]):]
			continue
		}
		if g := recurTagRe.FindStringSubmatch(body); g != nil {
			m.Recurrence = Recurrence(g[1])
			body = body[len(g[0]):]
			continue
		}
		if g := dueTagRe.FindStringSubmatch(body); g != nil {
			if t, err := time.Parse(time.RFC3339, g[1]); err == nil {
				m.NotBefore = t
			}
			body = body[len(g[0]):]
			continue
		}
		break
	}

	m.Text = strings.TrimSpace(body)
	if m.Text == "" {
		return Mission{}, false
	}
	return m, true
}

// Line renders the mission back to its file form.
func (m Mission) Line() string {
	var b strings.Builder
	b.WriteString("- ")
	if m.Resolved {
		b.WriteString("~~")
	}
	if m.Project != "" {
		fmt.Fprintf(&b, "[project:%s] ", m.Project)
	}
	if m.Recurrence != RecurNone {
		fmt.Fprintf(&b, "[recur:%s] ", m.Recurrence)
	}
	if !m.NotBefore.IsZero() {
		fmt.Fprintf(&b, "[due:%s] ", m.NotBefore.UTC().Format(time.RFC3339))
	}
	b.WriteString(m.Text)
	if m.Resolved {
		b.WriteString("~~")
	}
	return b.String()
}

// Due reports whether the mission is eligible to run at now.
func (m Mission) Due(now time.Time) bool {
	return m.NotBefore.IsZero() || !now.Before(m.NotBefore)
}

// Key identifies a mission for move operations: project tag plus text.
// The queue file is line-oriented, so this is the natural identity.
func (m Mission) Key() string {
	return m.Project + "\x00" + m.Text
}

// NextDue computes when a recurring mission should run again after now.
// Daily and weekly recurrences fire at the given hour (weekly on Monday).
func NextDue(r Recurrence, now time.Time, hour int) (time.Time, error) {
	var spec string
	switch r {
	case RecurHourly:
		spec = "0 * * * *"
	case RecurDaily:
		spec = fmt.Sprintf("0 %d * * *", hour)
	case RecurWeekly:
		spec = fmt.Sprintf("0 %d * * 1", hour)
	default:
		return time.Time{}, fmt.Errorf("no schedule for recurrence %q", r)
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse recurrence schedule: %w", err)
	}
	return sched.Next(now), nil
}
