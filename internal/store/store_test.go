package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
)

func TestReadMissingFile(t *testing.T) {
	s := New()
	got, err := s.Read(filepath.Join(t.TempDir(), "nope.txt"))
	if err != nil {
		t.Fatalf("Read missing file: %v", err)
	}
	if got != "" {
		t.Errorf("Read missing file = %q, want empty", got)
	}
}

func TestWriteAtomicReplacesContent(t *testing.T) {
	s := New()
	path := filepath.Join(t.TempDir(), "state.txt")

	if err := s.WriteAtomic(path, []byte("first")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	if err := s.WriteAtomic(path, []byte("second")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	got, err := s.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "second" {
		t.Errorf("content = %q, want %q", got, "second")
	}
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	s := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "state.txt")

	for i := 0; i < 10; i++ {
		if err := s.WriteAtomic(path, []byte(fmt.Sprintf("write %d", i))); err != nil {
			t.Fatalf("WriteAtomic: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestCrashMidWriteLeavesOldContent(t *testing.T) {
	s := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "state.txt")

	if err := s.WriteAtomic(path, []byte("pre-write")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	// A process killed between the temp write and the rename leaves a
	// populated temp file next to the target and an untouched target.
	orphan := filepath.Join(dir, ".tmp-orphan")
	if err := os.WriteFile(orphan, []byte("half-finished"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := s.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "pre-write" {
		t.Errorf("content after interrupted write = %q, want %q", got, "pre-write")
	}

	// The next write recovers cleanly despite the leftover temp file.
	if err := s.WriteAtomic(path, []byte("post-write")); err != nil {
		t.Fatalf("WriteAtomic after interrupted write: %v", err)
	}
	got, err = s.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "post-write" {
		t.Errorf("content = %q, want %q", got, "post-write")
	}
}

func TestWriteAtomicCreatesParentDir(t *testing.T) {
	s := New()
	path := filepath.Join(t.TempDir(), "nested", "deeper", "state.txt")
	if err := s.WriteAtomic(path, []byte("x")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	if !s.Exists(path) {
		t.Error("file should exist after write")
	}
}

func TestUpdateSerializesConcurrentWriters(t *testing.T) {
	s := New()
	path := filepath.Join(t.TempDir(), "counter.txt")
	if err := s.WriteAtomic(path, []byte("0")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(path, func(current string) (string, error) {
				n, err := strconv.Atoi(strings.TrimSpace(current))
				if err != nil {
					return "", err
				}
				return strconv.Itoa(n + 1), nil
			})
			if err != nil {
				t.Errorf("Update: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != strconv.Itoa(writers) {
		t.Errorf("counter = %s, want %d: lost updates under concurrency", got, writers)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	s := New()
	path := filepath.Join(t.TempDir(), "rec.json")

	type rec struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	if err := s.WriteJSON(path, rec{Name: "alpha", Count: 3}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got rec
	if err := s.ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Name != "alpha" || got.Count != 3 {
		t.Errorf("round trip = %+v", got)
	}
}

func TestRemoveMissingFileIsNil(t *testing.T) {
	s := New()
	if err := s.Remove(filepath.Join(t.TempDir(), "gone")); err != nil {
		t.Errorf("Remove missing file: %v", err)
	}
}
