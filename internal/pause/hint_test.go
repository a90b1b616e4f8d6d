package pause

import (
	"testing"
	"time"
)

func TestParseResetHintRFC3339(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	got := ParseResetHint("Your limit will reset at 2026-08-24T14:00:00Z.", now)
	if got == nil {
		t.Fatal("expected a parsed time")
	}
	want := time.Date(2026, 8, 24, 14, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parsed = %v, want %v", got, want)
	}
}

func TestParseResetHintDuration(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	got := ParseResetHint("Rate limited. Try again in 2 hours.", now)
	if got == nil || !got.Equal(now.Add(2*time.Hour)) {
		t.Errorf("hours hint = %v, want %v", got, now.Add(2*time.Hour))
	}

	got = ParseResetHint("please retry after 45 minutes", now)
	if got == nil || !got.Equal(now.Add(45*time.Minute)) {
		t.Errorf("minutes hint = %v, want %v", got, now.Add(45*time.Minute))
	}
}

func TestParseResetHintClockTime(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	got := ParseResetHint("Usage limit reached. Resets at 3pm.", now)
	if got == nil {
		t.Fatal("expected a parsed time")
	}
	want := time.Date(2026, 8, 24, 15, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("clock hint = %v, want %v", got, want)
	}
}

func TestParseResetHintClockTimeAlreadyPast(t *testing.T) {
	now := time.Date(2026, 8, 24, 16, 0, 0, 0, time.UTC)
	got := ParseResetHint("resets at 3pm", now)
	if got == nil {
		t.Fatal("expected a parsed time")
	}
	want := time.Date(2026, 8, 25, 15, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("past clock hint = %v, want tomorrow %v", got, want)
	}
}

func TestParseResetHintUnparseable(t *testing.T) {
	now := time.Now()
	if got := ParseResetHint("quota exhausted, no idea when it comes back", now); got != nil {
		t.Errorf("unparseable hint = %v, want nil", got)
	}
	if got := ParseResetHint("", now); got != nil {
		t.Errorf("empty hint = %v, want nil", got)
	}
}
