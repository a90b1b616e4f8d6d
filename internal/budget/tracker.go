package budget

import (
	"github.com/sukria/koan-sub000/internal/store"
)

// Tracker refreshes the usage snapshot once per loop iteration. It combines
// the externally supplied usage file (possibly stale) with token counters
// accumulated from execution results, taking the higher session estimate of
// the two.
type Tracker struct {
	store       *store.Store
	usagePath   string
	tokenBudget int // tokens per quota session window

	sessionTokens int64
}

// NewTracker creates a Tracker reading the usage file at usagePath.
// tokenBudget is the assumed session token allowance for the local estimate.
func NewTracker(st *store.Store, usagePath string, tokenBudget int) *Tracker {
	return &Tracker{store: st, usagePath: usagePath, tokenBudget: tokenBudget}
}

// Record adds token consumption reported by an execution result.
func (t *Tracker) Record(tokens int64) {
	if tokens > 0 {
		t.sessionTokens += tokens
	}
}

// ResetSession clears the accumulated session counters, used when a quota
// window rolls over (auto-resume after a pause).
func (t *Tracker) ResetSession() {
	t.sessionTokens = 0
}

// Refresh reads the usage file and merges in the local token estimate.
// Read errors degrade to the local estimate alone; the tracker must never
// take the loop down.
func (t *Tracker) Refresh() Snapshot {
	var snap Snapshot
	if content, err := t.store.Read(t.usagePath); err == nil {
		snap = ParseUsageFile(content)
	}

	if t.tokenBudget > 0 {
		est := float64(t.sessionTokens) / float64(t.tokenBudget) * 100
		if est > snap.SessionPct {
			snap.SessionPct = est
		}
	}
	return snap
}
