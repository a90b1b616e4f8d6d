// Package store provides the shared-file discipline used by every process
// that touches koan state: atomic replace-writes and advisory file locking.
// The mission queue, the pause ledger, and the usage file are only ever
// mutated through a Store.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Store performs locked, atomic file operations rooted anywhere on disk.
// The zero value is usable; it exists as a type so business logic takes an
// injected dependency instead of touching the filesystem ad hoc.
type Store struct{}

// New returns a Store.
func New() *Store {
	return &Store{}
}

// Read returns the full contents of path. A missing file reads as empty:
// the queue and usage files legitimately start out not existing.
func (s *Store) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// WriteAtomic replaces the contents of path such that a concurrent reader
// sees either the old or the new content, never a partial write. It writes
// to a temp file in the same directory and renames it into place.
func (s *Store) WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up temp file on any error path.
	defer func() {
		if tmpName != "" {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmpName, path, err)
	}
	tmpName = "" // prevent deferred removal
	return nil
}

// WithLock runs fn while holding an exclusive advisory lock scoped to path.
// Two processes locking the same path serialize; acquisition blocks with no
// timeout, so callers needing liveness must impose their own. The lock file
// lives next to the target so a crash releases it with the process's
// file handles.
func (s *Store) WithLock(path string, fn func() error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	lk := flock.New(lockPath(path))
	if err := lk.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer lk.Unlock()

	return fn()
}

// Update performs a locked read-modify-write of path. fn receives the current
// contents and returns the replacement contents.
func (s *Store) Update(path string, fn func(current string) (string, error)) error {
	return s.WithLock(path, func() error {
		current, err := s.Read(path)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		return s.WriteAtomic(path, []byte(next))
	})
}

// WriteJSON writes v as pretty-printed JSON to path atomically.
func (s *Store) WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')
	return s.WriteAtomic(path, data)
}

// ReadJSON reads the JSON file at path into v.
func (s *Store) ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path exists.
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Remove deletes path, ignoring a missing file.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// lockPath returns the advisory lock file used for path.
func lockPath(path string) string {
	return path + ".lock"
}
