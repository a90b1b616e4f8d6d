// Package queue manages the shared mission file: a sectioned plain-text task
// list mutated by both the run-loop and the bridge process. Every mutation
// happens inside one locked read-modify-write transaction through the store,
// so no two claims of the same mission can succeed across processes.
package queue

import (
	"errors"
	"fmt"
	"time"

	"github.com/sukria/koan-sub000/internal/store"
)

// ErrUnknownProject marks a mission whose project tag names no configured
// project. This is a configuration error: callers surface it to the operator
// and stop, rather than silently skipping the mission.
var ErrUnknownProject = errors.New("unknown project")

// Queue provides mission operations over the queue file at path. Known
// project names are checked on claim: a mission tagged with a project that
// doesn't exist is a configuration error, not a silent skip.
type Queue struct {
	store    *store.Store
	path     string
	projects map[string]bool
	// recurrenceHour is the local hour daily/weekly missions re-fire at.
	recurrenceHour int
}

// New creates a Queue over the file at path. projectNames is the configured
// project set.
func New(st *store.Store, path string, projectNames []string, recurrenceHour int) *Queue {
	known := make(map[string]bool, len(projectNames))
	for _, n := range projectNames {
		known[n] = true
	}
	return &Queue{store: st, path: path, projects: known, recurrenceHour: recurrenceHour}
}

// Path returns the queue file location.
func (q *Queue) Path() string {
	return q.path
}

// checkProject verifies the mission's project tag refers to a configured
// project. Untagged missions pass.
func (q *Queue) checkProject(m Mission) error {
	if m.Project == "" {
		return nil
	}
	if !q.projects[m.Project] {
		return fmt.Errorf("mission %q references unknown project %q: %w", m.Text, m.Project, ErrUnknownProject)
	}
	return nil
}

// List returns all missions grouped by status, in file order.
func (q *Queue) List() (map[Status][]Mission, error) {
	content, err := q.store.Read(q.path)
	if err != nil {
		return nil, err
	}
	return parseDocument(content).sections, nil
}

// ListPending returns pending missions in file order, skipping resolved
// lines. With a non-empty projectFilter, missions tagged for that project
// and untagged missions (which default to the filtered project) are
// returned. A pending mission tagged with an unknown project is an error.
func (q *Queue) ListPending(projectFilter string) ([]Mission, error) {
	content, err := q.store.Read(q.path)
	if err != nil {
		return nil, err
	}

	var out []Mission
	for _, m := range parseDocument(content).sections[StatusPending] {
		if m.Resolved {
			continue
		}
		if err := q.checkProject(m); err != nil {
			return nil, err
		}
		if projectFilter != "" && m.Project != "" && m.Project != projectFilter {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Add appends a mission to the Pending section in one locked transaction.
func (q *Queue) Add(m Mission) error {
	if err := q.checkProject(m); err != nil {
		return err
	}
	return q.store.Update(q.path, func(current string) (string, error) {
		doc := parseDocument(current)
		doc.add(StatusPending, m)
		return doc.render(), nil
	})
}

// ClaimNext moves the first due, unresolved pending mission to In Progress
// and returns it. Returns ok=false when nothing is claimable. The whole
// operation is one locked transaction: under concurrency exactly one caller
// wins a given mission.
func (q *Queue) ClaimNext(now time.Time) (Mission, bool, error) {
	var claimed Mission
	ok := false
	err := q.store.Update(q.path, func(current string) (string, error) {
		doc := parseDocument(current)
		for i, m := range doc.sections[StatusPending] {
			if m.Resolved || !m.Due(now) {
				continue
			}
			if err := q.checkProject(m); err != nil {
				return "", err
			}
			pending := doc.sections[StatusPending]
			doc.sections[StatusPending] = append(pending[:i:i], pending[i+1:]...)
			doc.add(StatusInProgress, m)
			claimed = m
			claimed.Status = StatusInProgress
			ok = true
			break
		}
		return doc.render(), nil
	})
	if err != nil {
		return Mission{}, false, err
	}
	return claimed, ok, nil
}

// Complete moves a claimed mission from In Progress to Done. A recurring
// mission is also re-enqueued to Pending with its next due time.
func (q *Queue) Complete(m Mission, now time.Time) error {
	return q.store.Update(q.path, func(current string) (string, error) {
		doc := parseDocument(current)
		moved, found := doc.remove(StatusInProgress, m.Key())
		if !found {
			return "", fmt.Errorf("mission %q not in progress", m.Text)
		}
		doc.add(StatusDone, moved)

		if moved.Recurrence != RecurNone {
			due, err := NextDue(moved.Recurrence, now, q.recurrenceHour)
			if err != nil {
				return "", err
			}
			next := moved
			next.NotBefore = due
			next.Resolved = false
			doc.add(StatusPending, next)
		}
		return doc.render(), nil
	})
}

// Release returns a claimed mission from In Progress to Pending, leaving it
// for the next pick.
func (q *Queue) Release(m Mission) error {
	return q.store.Update(q.path, func(current string) (string, error) {
		doc := parseDocument(current)
		moved, found := doc.remove(StatusInProgress, m.Key())
		if !found {
			return "", fmt.Errorf("mission %q not in progress", m.Text)
		}
		doc.add(StatusPending, moved)
		return doc.render(), nil
	})
}

// MarkDone resolves a mission by its text, searching Pending then In
// Progress. Used by the command line; the loop itself always settles
// missions through Complete and Release.
func (q *Queue) MarkDone(text string) error {
	return q.store.Update(q.path, func(current string) (string, error) {
		doc := parseDocument(current)
		for _, status := range []Status{StatusPending, StatusInProgress} {
			for _, m := range doc.sections[status] {
				if m.Text != text {
					continue
				}
				moved, _ := doc.remove(status, m.Key())
				doc.add(StatusDone, moved)
				return doc.render(), nil
			}
		}
		return "", fmt.Errorf("no open mission with text %q", text)
	})
}

// Recover demotes every In-Progress mission back to Pending. It runs at
// loop startup: a clean prior exit would already have resolved these, so
// anything still in progress was orphaned by a crash. Running it twice with
// no intervening mutation produces the same state as running it once.
func (q *Queue) Recover() (int, error) {
	demoted := 0
	err := q.store.Update(q.path, func(current string) (string, error) {
		doc := parseDocument(current)
		orphans := doc.sections[StatusInProgress]
		doc.sections[StatusInProgress] = nil
		for _, m := range orphans {
			doc.add(StatusPending, m)
		}
		demoted = len(orphans)
		return doc.render(), nil
	})
	if err != nil {
		return 0, err
	}
	return demoted, nil
}
