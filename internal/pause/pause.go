// Package pause persists why and until-when the run-loop is paused. The
// ledger is a marker file (presence means "paused") plus a JSON companion
// holding the record, both written through the atomic store so the bridge
// process reads consistent state.
package pause

import (
	"fmt"
	"os"
	"time"

	"github.com/sukria/koan-sub000/internal/store"
)

// Reason a pause was entered.
type Reason string

const (
	ReasonQuota   Reason = "quota"
	ReasonMaxRuns Reason = "max_runs"
	ReasonManual  Reason = "manual"
)

// Record describes an active pause. ResumeAt is nil when no reset hint was
// parseable; callers fall back to a fixed cooldown from CreatedAt.
type Record struct {
	Reason    Reason     `json:"reason"`
	CreatedAt time.Time  `json:"created_at"`
	ResumeAt  *time.Time `json:"resume_at,omitempty"`
	Hint      string     `json:"hint,omitempty"` // human-readable resume hint
}

// Ledger manages the pause marker and record files.
type Ledger struct {
	store      *store.Store
	markerPath string
	recordPath string
	cooldown   time.Duration // fallback when ResumeAt is unknown
}

// NewLedger creates a Ledger. cooldown is the fixed wait applied when a
// pause record carries no resume time.
func NewLedger(st *store.Store, markerPath, recordPath string, cooldown time.Duration) *Ledger {
	return &Ledger{store: st, markerPath: markerPath, recordPath: recordPath, cooldown: cooldown}
}

// Pause writes the record and then the marker. While the marker exists the
// loop performs no mission work.
func (l *Ledger) Pause(rec Record) error {
	if err := l.store.WriteJSON(l.recordPath, rec); err != nil {
		return fmt.Errorf("write pause record: %w", err)
	}
	if err := l.store.WriteAtomic(l.markerPath, []byte(rec.CreatedAt.UTC().Format(time.RFC3339)+"\n")); err != nil {
		return fmt.Errorf("write pause marker: %w", err)
	}
	return nil
}

// Resume clears the marker and record.
func (l *Ledger) Resume() error {
	if err := l.store.Remove(l.markerPath); err != nil {
		return err
	}
	return l.store.Remove(l.recordPath)
}

// Paused reports whether a pause is active.
func (l *Ledger) Paused() bool {
	return l.store.Exists(l.markerPath)
}

// Current returns the active pause record, or nil when not paused. A marker
// without a readable record still counts as paused; the record is
// reconstructed with only a created-at timestamp so auto-resume stays
// possible via the cooldown.
func (l *Ledger) Current() (*Record, error) {
	if !l.Paused() {
		return nil, nil
	}
	var rec Record
	if err := l.store.ReadJSON(l.recordPath, &rec); err != nil {
		if os.IsNotExist(err) {
			rec = Record{Reason: ReasonManual, CreatedAt: time.Now().UTC()}
			return &rec, nil
		}
		return nil, fmt.Errorf("read pause record: %w", err)
	}
	return &rec, nil
}

// ResumeTime returns when the pause becomes eligible for auto-resume:
// the record's resume time when known, otherwise created-at plus the fixed
// cooldown.
func (l *Ledger) ResumeTime(rec *Record) time.Time {
	if rec.ResumeAt != nil {
		return *rec.ResumeAt
	}
	return rec.CreatedAt.Add(l.cooldown)
}

// ShouldResume reports whether the pause has run its course at now.
func (l *Ledger) ShouldResume(rec *Record, now time.Time) bool {
	return !now.Before(l.ResumeTime(rec))
}
