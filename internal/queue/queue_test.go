package queue

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sukria/koan-sub000/internal/store"
)

func newTestQueue(t *testing.T) (*Queue, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "missions.md")
	q := New(store.New(), path, []string{"blog", "tracker"}, 9)
	return q, path
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := store.New().WriteAtomic(path, []byte(content)); err != nil {
		t.Fatalf("write queue file: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := store.New().Read(path)
	if err != nil {
		t.Fatalf("read queue file: %v", err)
	}
	return content
}

func TestParseBilingualHeaders(t *testing.T) {
	q, path := newTestQueue(t)
	writeFile(t, path, `# Missions

## À faire
- [project:blog] write the summary post
- fix the flaky test

## En cours
- [project:tracker] migrate the schema

## Terminé
- old chore
`)

	sections, err := q.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sections[StatusPending]) != 2 {
		t.Errorf("pending = %d, want 2", len(sections[StatusPending]))
	}
	if len(sections[StatusInProgress]) != 1 {
		t.Errorf("in progress = %d, want 1", len(sections[StatusInProgress]))
	}
	if len(sections[StatusDone]) != 1 {
		t.Errorf("done = %d, want 1", len(sections[StatusDone]))
	}
	if got := sections[StatusPending][0].Project; got != "blog" {
		t.Errorf("project = %q, want blog", got)
	}
}

func TestClaimNextPreservesTagsAndText(t *testing.T) {
	q, path := newTestQueue(t)
	writeFile(t, path, `## Pending
- [project:blog] [recur:daily] rotate the logs
`)

	m, ok, err := q.ClaimNext(time.Now())
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if !ok {
		t.Fatal("expected a claim")
	}
	if m.Text != "rotate the logs" || m.Project != "blog" || m.Recurrence != RecurDaily {
		t.Errorf("claimed = %+v", m)
	}
	if m.Status != StatusInProgress {
		t.Errorf("status = %q, want in_progress", m.Status)
	}

	content := readFile(t, path)
	if !strings.Contains(content, "## In Progress\n- [project:blog] [recur:daily] rotate the logs") {
		t.Errorf("file should carry the mission under In Progress with its tags intact:\n%s", content)
	}
}

func TestClaimNextSkipsResolvedAndNotDue(t *testing.T) {
	q, path := newTestQueue(t)
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	writeFile(t, path, `## Pending
- ~~already handled~~
- [due:`+future+`] later mission
- ready mission
`)

	m, ok, err := q.ClaimNext(time.Now())
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if !ok || m.Text != "ready mission" {
		t.Errorf("claimed %+v, want the ready mission", m)
	}
}

func TestClaimNextEmptyQueue(t *testing.T) {
	q, _ := newTestQueue(t)
	_, ok, err := q.ClaimNext(time.Now())
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if ok {
		t.Error("claim on empty queue should report ok=false")
	}
}

func TestClaimNextUnknownProjectIsError(t *testing.T) {
	q, path := newTestQueue(t)
	writeFile(t, path, `## Pending
- [project:ghost] haunted mission
`)

	_, _, err := q.ClaimNext(time.Now())
	if err == nil {
		t.Fatal("expected error for unknown project tag")
	}
	if !errors.Is(err, ErrUnknownProject) {
		t.Errorf("error should wrap ErrUnknownProject: %v", err)
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("error should name the project: %v", err)
	}
}

func TestConcurrentClaimSingleWinner(t *testing.T) {
	q, path := newTestQueue(t)
	writeFile(t, path, `## Pending
- the only mission
`)

	const claimers = 10
	var wg sync.WaitGroup
	wins := make(chan Mission, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, ok, err := q.ClaimNext(time.Now())
			if err != nil {
				t.Errorf("ClaimNext: %v", err)
				return
			}
			if ok {
				wins <- m
			}
		}()
	}
	wg.Wait()
	close(wins)

	if n := len(wins); n != 1 {
		t.Errorf("%d claimers won, want exactly 1", n)
	}
}

func TestCompleteMovesToDone(t *testing.T) {
	q, path := newTestQueue(t)
	writeFile(t, path, "## Pending\n- ship it\n")

	m, _, err := q.ClaimNext(time.Now())
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if err := q.Complete(m, time.Now()); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	sections, err := q.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sections[StatusDone]) != 1 || len(sections[StatusInProgress]) != 0 {
		t.Errorf("sections after complete: %+v", sections)
	}
}

func TestCompleteRecurringReenqueues(t *testing.T) {
	q, path := newTestQueue(t)
	writeFile(t, path, "## Pending\n- [recur:hourly] poll the feeds\n")

	now := time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC)
	m, _, err := q.ClaimNext(now)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if err := q.Complete(m, now); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	sections, err := q.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	pending := sections[StatusPending]
	if len(pending) != 1 {
		t.Fatalf("pending after recurring complete = %d, want 1", len(pending))
	}
	wantDue := time.Date(2026, 8, 24, 11, 0, 0, 0, time.UTC)
	if !pending[0].NotBefore.Equal(wantDue) {
		t.Errorf("next due = %v, want %v", pending[0].NotBefore, wantDue)
	}
	if len(sections[StatusDone]) != 1 {
		t.Errorf("done = %d, want 1", len(sections[StatusDone]))
	}
}

func TestReleaseReturnsToPending(t *testing.T) {
	q, path := newTestQueue(t)
	writeFile(t, path, "## Pending\n- risky mission\n")

	m, _, err := q.ClaimNext(time.Now())
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if err := q.Release(m); err != nil {
		t.Fatalf("Release: %v", err)
	}

	sections, _ := q.List()
	if len(sections[StatusPending]) != 1 || len(sections[StatusInProgress]) != 0 {
		t.Errorf("sections after release: %+v", sections)
	}
}

func TestRecoverDemotesOrphansAndIsIdempotent(t *testing.T) {
	q, path := newTestQueue(t)
	writeFile(t, path, `## Pending
- untouched

## In Progress
- orphan one
- [project:blog] orphan two
`)

	n, err := q.Recover()
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if n != 2 {
		t.Errorf("demoted = %d, want 2", n)
	}
	first := readFile(t, path)

	n, err = q.Recover()
	if err != nil {
		t.Fatalf("Recover (second run): %v", err)
	}
	if n != 0 {
		t.Errorf("second recover demoted = %d, want 0", n)
	}
	if second := readFile(t, path); second != first {
		t.Errorf("second recover changed the file:\n%s\nvs\n%s", first, second)
	}

	sections, _ := q.List()
	if len(sections[StatusPending]) != 3 {
		t.Errorf("pending after recover = %d, want 3", len(sections[StatusPending]))
	}
}

func TestAddChecksProject(t *testing.T) {
	q, _ := newTestQueue(t)
	if err := q.Add(Mission{Text: "ok", Project: "blog"}); err != nil {
		t.Fatalf("Add known project: %v", err)
	}
	if err := q.Add(Mission{Text: "bad", Project: "ghost"}); err == nil {
		t.Error("Add with unknown project should fail")
	}
}

func TestMarkDoneByText(t *testing.T) {
	q, path := newTestQueue(t)
	writeFile(t, path, "## Pending\n- settle the invoice\n")

	if err := q.MarkDone("settle the invoice"); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	sections, _ := q.List()
	if len(sections[StatusDone]) != 1 {
		t.Errorf("done = %d, want 1", len(sections[StatusDone]))
	}
	if err := q.MarkDone("no such mission"); err == nil {
		t.Error("MarkDone on missing mission should fail")
	}
}

func TestListPendingFilter(t *testing.T) {
	q, path := newTestQueue(t)
	writeFile(t, path, `## Pending
- [project:blog] blog mission
- [project:tracker] tracker mission
- untagged mission
`)

	got, err := q.ListPending("blog")
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("filtered pending = %d, want 2 (tagged + untagged)", len(got))
	}
}

func TestMissionLineRoundTrip(t *testing.T) {
	due := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	m := Mission{Text: "weekly digest", Project: "blog", Recurrence: RecurWeekly, NotBefore: due}
	parsed, ok := parseMissionLine(m.Line(), StatusPending)
	if !ok {
		t.Fatalf("line did not parse: %q", m.Line())
	}
	if parsed.Text != m.Text || parsed.Project != m.Project || parsed.Recurrence != m.Recurrence || !parsed.NotBefore.Equal(due) {
		t.Errorf("round trip = %+v, want %+v", parsed, m)
	}
}

func TestResolvedLineRoundTrip(t *testing.T) {
	m := Mission{Text: "finished thing", Resolved: true}
	parsed, ok := parseMissionLine(m.Line(), StatusDone)
	if !ok {
		t.Fatalf("line did not parse: %q", m.Line())
	}
	if !parsed.Resolved {
		t.Error("resolved flag lost in round trip")
	}
}
